package sqlengine

import (
	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
)

const (
	// DialectPostgres is the default SQL dialect.
	DialectPostgres = "postgres"

	// DialectSQLite3 targets embedded SQLite databases.
	DialectSQLite3 = "sqlite3"
)

// Option defines a functional option for configuring SnapshotFinder.
type Option func(*SnapshotFinder) error

// WithSchema qualifies all table names with the given schema.
func WithSchema(schema string) Option {
	return func(sf *SnapshotFinder) error {
		sf.names.schema = schema
		return nil
	}
}

// WithGlobalIDTableName overrides the name of the global id table.
func WithGlobalIDTableName(tableName string) Option {
	return func(sf *SnapshotFinder) error {
		if tableName == "" {
			return snapshotstore.ErrEmptyTableName
		}

		sf.names.globalIDTableName = tableName

		return nil
	}
}

// WithSnapshotTableName overrides the name of the snapshot table.
func WithSnapshotTableName(tableName string) Option {
	return func(sf *SnapshotFinder) error {
		if tableName == "" {
			return snapshotstore.ErrEmptyTableName
		}

		sf.names.snapshotTableName = tableName

		return nil
	}
}

// WithCommitTableName overrides the name of the commit table.
func WithCommitTableName(tableName string) Option {
	return func(sf *SnapshotFinder) error {
		if tableName == "" {
			return snapshotstore.ErrEmptyTableName
		}

		sf.names.commitTableName = tableName

		return nil
	}
}

// WithCommitPropertyTableName overrides the name of the commit property table.
func WithCommitPropertyTableName(tableName string) Option {
	return func(sf *SnapshotFinder) error {
		if tableName == "" {
			return snapshotstore.ErrEmptyTableName
		}

		sf.names.commitPropertyTableName = tableName

		return nil
	}
}

// WithDialect selects the goqu SQL dialect, DialectPostgres or DialectSQLite3.
func WithDialect(dialect string) Option {
	return func(sf *SnapshotFinder) error {
		switch dialect {
		case DialectPostgres, DialectSQLite3:
			sf.dialect = dialect
			return nil
		default:
			return snapshotstore.ErrUnsupportedDialect
		}
	}
}

// WithStateConverter replaces the default snapshotstore.JSONStateConverter.
func WithStateConverter(converter snapshotstore.StateConverter) Option {
	return func(sf *SnapshotFinder) error {
		sf.converter = converter
		return nil
	}
}

// WithGlobalIDResolver replaces the SQL based GlobalIDRepository.
func WithGlobalIDResolver(resolver snapshotstore.GlobalIDResolver) Option {
	return func(sf *SnapshotFinder) error {
		sf.globalIDResolver = resolver
		return nil
	}
}

// WithCommitPropertyFetcher replaces the SQL based CommitPropertyFinder.
func WithCommitPropertyFetcher(fetcher snapshotstore.CommitPropertyFetcher) Option {
	return func(sf *SnapshotFinder) error {
		sf.commitPropertyFetcher = fetcher
		return nil
	}
}

// WithLogger sets the logger for the SnapshotFinder.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing, unknown global ids (development use)
// Info level: Snapshot counts and durations (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger snapshotstore.Logger) Option {
	return func(sf *SnapshotFinder) error {
		sf.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the SnapshotFinder.
// It receives the same messages as the Logger, with the context of the operation for trace correlation.
func WithContextualLogger(logger snapshotstore.ContextualLogger) Option {
	return func(sf *SnapshotFinder) error {
		sf.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the SnapshotFinder.
// It receives operation durations, returned snapshot counts and error counts.
func WithMetrics(collector snapshotstore.MetricsCollector) Option {
	return func(sf *SnapshotFinder) error {
		sf.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the SnapshotFinder.
// One span is created per finder operation.
func WithTracing(collector snapshotstore.TracingCollector) Option {
	return func(sf *SnapshotFinder) error {
		sf.tracingCollector = collector
		return nil
	}
}
