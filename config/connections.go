package config

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore/sqlengine"
)

const (
	postgresDriverName = "postgres"
	sqliteDriverName   = "sqlite"
)

// PGXPoolConfig parses dsn and applies the pool settings.
func (d Database) PGXPoolConfig(dsn string) (*pgxpool.Config, error) {
	dbConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Join(ErrOpeningDBFailed, err)
	}

	dbConfig.MaxConns = d.Pool.MaxConns
	dbConfig.MinConns = d.Pool.MinConns
	dbConfig.MaxConnLifetime = d.Pool.MaxConnLifetime
	dbConfig.MaxConnIdleTime = d.Pool.MaxConnIdleTime
	dbConfig.HealthCheckPeriod = d.Pool.HealthCheckPeriod
	dbConfig.ConnConfig.ConnectTimeout = d.Pool.ConnectTimeout

	return dbConfig, nil
}

// OpenSQLDB opens a *sql.DB for dsn with the driver matching the adapter and applies the pool settings.
// The connection is verified with a ping.
func (d Database) OpenSQLDB(ctx context.Context, dsn string) (*sql.DB, error) {
	driverName := postgresDriverName
	if d.Adapter == AdapterSQLite {
		driverName = sqliteDriverName
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Join(ErrOpeningDBFailed, err)
	}

	db.SetMaxOpenConns(int(d.Pool.MaxConns))
	db.SetMaxIdleConns(int(d.Pool.MinConns))
	db.SetConnMaxLifetime(d.Pool.MaxConnLifetime)
	db.SetConnMaxIdleTime(d.Pool.MaxConnIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, d.Pool.ConnectTimeout)
	defer cancel()

	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		_ = db.Close()

		return nil, errors.Join(ErrOpeningDBFailed, pingErr)
	}

	return db, nil
}

// OpenSQLX wraps OpenSQLDB for sqlx.
func (d Database) OpenSQLX(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := d.OpenSQLDB(ctx, dsn)
	if err != nil {
		return nil, err
	}

	driverName := postgresDriverName
	if d.Adapter == AdapterSQLite {
		driverName = sqliteDriverName
	}

	return sqlx.NewDb(db, driverName), nil
}

// OpenFinder opens the configured connections and creates a SnapshotFinder on top of them.
// The returned close function releases every connection that was opened.
// extra options are applied after the ones derived from the config.
func (cfg Config) OpenFinder(ctx context.Context, extra ...sqlengine.Option) (sqlengine.SnapshotFinder, func(), error) {
	options := append(cfg.EngineOptions(), extra...)
	database := cfg.Database

	switch database.Adapter {
	case AdapterPGXPool:
		return openPGXFinder(ctx, database, options)

	case AdapterSQLX:
		return openSQLXFinder(ctx, database, options)

	case AdapterSQLDB, AdapterSQLite:
		db, err := database.OpenSQLDB(ctx, database.DSN)
		if err != nil {
			return sqlengine.SnapshotFinder{}, nil, err
		}

		finder, err := sqlengine.NewSnapshotFinderFromSQLDB(db, options...)
		if err != nil {
			_ = db.Close()
			return sqlengine.SnapshotFinder{}, nil, err
		}

		return finder, func() { _ = db.Close() }, nil

	default:
		return sqlengine.SnapshotFinder{}, nil, ErrUnsupportedAdapter
	}
}

func openPGXFinder(
	ctx context.Context,
	database Database,
	options []sqlengine.Option,
) (sqlengine.SnapshotFinder, func(), error) {

	primary, err := newPGXPool(ctx, database, database.DSN)
	if err != nil {
		return sqlengine.SnapshotFinder{}, nil, err
	}

	if database.ReplicaDSN == "" {
		finder, finderErr := sqlengine.NewSnapshotFinderFromPGXPool(primary, options...)
		if finderErr != nil {
			primary.Close()
			return sqlengine.SnapshotFinder{}, nil, finderErr
		}

		return finder, primary.Close, nil
	}

	replica, err := newPGXPool(ctx, database, database.ReplicaDSN)
	if err != nil {
		primary.Close()
		return sqlengine.SnapshotFinder{}, nil, err
	}

	closeAll := func() {
		replica.Close()
		primary.Close()
	}

	finder, err := sqlengine.NewSnapshotFinderFromPGXPoolWithReplica(primary, replica, options...)
	if err != nil {
		closeAll()
		return sqlengine.SnapshotFinder{}, nil, err
	}

	return finder, closeAll, nil
}

func newPGXPool(ctx context.Context, database Database, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := database.PGXPoolConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Join(ErrOpeningDBFailed, err)
	}

	return pool, nil
}

func openSQLXFinder(
	ctx context.Context,
	database Database,
	options []sqlengine.Option,
) (sqlengine.SnapshotFinder, func(), error) {

	primary, err := database.OpenSQLX(ctx, database.DSN)
	if err != nil {
		return sqlengine.SnapshotFinder{}, nil, err
	}

	if database.ReplicaDSN == "" {
		finder, finderErr := sqlengine.NewSnapshotFinderFromSQLX(primary, options...)
		if finderErr != nil {
			_ = primary.Close()
			return sqlengine.SnapshotFinder{}, nil, finderErr
		}

		return finder, func() { _ = primary.Close() }, nil
	}

	replica, err := database.OpenSQLX(ctx, database.ReplicaDSN)
	if err != nil {
		_ = primary.Close()
		return sqlengine.SnapshotFinder{}, nil, err
	}

	closeAll := func() {
		_ = replica.Close()
		_ = primary.Close()
	}

	finder, err := sqlengine.NewSnapshotFinderFromSQLXWithReplica(primary, replica, options...)
	if err != nil {
		closeAll()
		return sqlengine.SnapshotFinder{}, nil, err
	}

	return finder, closeAll, nil
}

// EngineOptions translates the dialect and table settings into sqlengine options.
func (cfg Config) EngineOptions() []sqlengine.Option {
	options := []sqlengine.Option{sqlengine.WithDialect(cfg.Dialect())}

	tables := cfg.Tables

	if tables.Schema != "" {
		options = append(options, sqlengine.WithSchema(tables.Schema))
	}

	if tables.GlobalID != "" {
		options = append(options, sqlengine.WithGlobalIDTableName(tables.GlobalID))
	}

	if tables.Snapshot != "" {
		options = append(options, sqlengine.WithSnapshotTableName(tables.Snapshot))
	}

	if tables.Commit != "" {
		options = append(options, sqlengine.WithCommitTableName(tables.Commit))
	}

	if tables.CommitProperty != "" {
		options = append(options, sqlengine.WithCommitPropertyTableName(tables.CommitProperty))
	}

	return options
}

// Dialect returns the sqlengine dialect matching the adapter.
func (cfg Config) Dialect() string {
	if cfg.Database.Adapter == AdapterSQLite {
		return sqlengine.DialectSQLite3
	}

	return sqlengine.DialectPostgres
}
