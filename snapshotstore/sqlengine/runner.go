package sqlengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore/sqlengine/internal/adapters"
)

// sqlRunner renders prepared goqu statements and executes them with timing and debug logging.
type sqlRunner struct {
	db adapters.DBAdapter
	observer
}

// query renders and runs selectStmt. Failures are joined with ErrStoreFailure and the given specific error.
func (r sqlRunner) query(
	ctx context.Context,
	selectStmt *goqu.SelectDataset,
	action string,
	specificErr error,
) (adapters.DBRows, error) {

	sqlQuery, args, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		r.logError(ctx, logMsgBuildQueryFailed, toSQLErr)

		return nil, errors.Join(snapshotstore.ErrStoreFailure, snapshotstore.ErrBuildingQueryFailed, toSQLErr)
	}

	start := time.Now()
	rows, queryErr := r.db.Query(ctx, sqlQuery, args...)
	r.logQueryWithDuration(ctx, sqlQuery, action, time.Since(start))

	if queryErr != nil {
		r.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)

		return nil, errors.Join(snapshotstore.ErrStoreFailure, specificErr, queryErr)
	}

	return rows, nil
}

// closeRows closes database rows and logs a failure to do so.
func (r sqlRunner) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		r.logWarn(ctx, logMsgCloseRowsFailed, closeErr)
	}
}

// scanFailed logs and wraps a row scan or iteration failure.
func (r sqlRunner) scanFailed(ctx context.Context, message string, specificErr error, cause error) error {
	r.logError(ctx, message, cause)

	return errors.Join(snapshotstore.ErrStoreFailure, specificErr, cause)
}
