// Package sqlitefixtures creates the four audit tables in an in-memory SQLite database
// and writes commits, global ids and snapshots into them for engine tests.
//
// Timestamps are bound by the driver in their text form, use whole-second UTC times
// so that range predicates compare them correctly.
package sqlitefixtures
