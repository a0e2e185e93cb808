// Package sqlengine provides a relational implementation of the snapshot finder.
//
// It reads the four audit tables (global ids, commits, commit properties and snapshots) and
// composes every request into one bounded, prepared SELECT built with goqu. PostgreSQL is the
// default dialect, SQLite is supported for embedded use.
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX), optional read replica
//   - Five target selectors on one shared query path
//   - Declarative predicates for all QueryParams constraints
//   - Commit property loading with a single extra query
//   - Configurable schema and table names
//   - Optional logging, metrics and tracing
//
// Usage examples:
//
//	db, _ := pgxpool.New(context.Background(), dsn)
//	finder, _ := sqlengine.NewSnapshotFinderFromPGXPool(db)
//
//	// With schema, table names and logging
//	finder, _ := sqlengine.NewSnapshotFinderFromPGXPool(
//		db,
//		sqlengine.WithSchema("audit"),
//		sqlengine.WithSnapshotTableName("snapshots"),
//		sqlengine.WithLogger(slog.Default()),
//	)
//
//	params, _ := snapshotstore.BuildQueryParams().Aggregate().LoadCommitProps().Build()
//	history, _ := finder.GetStateHistory(ctx, snapshotstore.InstanceID("Employee", "bob"), params)
//	latest, found, _ := finder.GetLatest(ctx, snapshotstore.InstanceID("Employee", "bob"), false)
package sqlengine
