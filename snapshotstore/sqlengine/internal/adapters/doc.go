// Package adapters provide database adapter implementations for the SQL snapshot engine.
//
// This package implements the adapter pattern to support multiple database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent read functionality through
// a common DBAdapter interface, allowing the snapshot finder to work with any
// supported database connection type.
//
// Adapters with a replica route a query to the replica only when the context asks for
// eventual consistency, see snapshotstore.WithEventualConsistency.
package adapters
