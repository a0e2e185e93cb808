package sqlengine

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
)

// GlobalIDRepository resolves GlobalIDs into the surrogate keys of the global id table.
//
// Instances are looked up by type name and local id. Value objects are looked up relative to their owner,
// which is resolved first, by owner key and fragment.
type GlobalIDRepository struct {
	runner sqlRunner
	query  snapshotQuery
}

// ResolveGlobalIDPK implements snapshotstore.GlobalIDResolver.
// An unknown GlobalID yields found == false and no error.
func (r GlobalIDRepository) ResolveGlobalIDPK(
	ctx context.Context,
	globalID snapshotstore.GlobalID,
) (snapshotstore.GlobalIDPK, bool, error) {

	if err := globalID.Validate(); err != nil {
		return 0, false, err
	}

	if globalID.IsInstance() {
		return r.selectPK(ctx, r.query.selectInstanceIDPK(globalID.TypeName, globalID.LocalID))
	}

	ownerPK, ownerFound, ownerErr := r.ResolveGlobalIDPK(ctx, *globalID.Owner)
	if ownerErr != nil || !ownerFound {
		return 0, false, ownerErr
	}

	return r.selectPK(ctx, r.query.selectValueObjectIDPK(ownerPK, globalID.Fragment))
}

func (r GlobalIDRepository) selectPK(
	ctx context.Context,
	selectStmt *goqu.SelectDataset,
) (snapshotstore.GlobalIDPK, bool, error) {

	rows, queryErr := r.runner.query(ctx, selectStmt, logActionSelectGlobalID, snapshotstore.ErrResolvingGlobalIDFailed)
	if queryErr != nil {
		return 0, false, queryErr
	}
	defer r.runner.closeRows(ctx, rows)

	var globalIDPK sql.NullInt64
	found := false

	if rows.Next() {
		if scanErr := rows.Scan(&globalIDPK); scanErr != nil {
			return 0, false, r.runner.scanFailed(ctx, logMsgScanRowFailed, snapshotstore.ErrResolvingGlobalIDFailed, scanErr)
		}

		found = globalIDPK.Valid
	}

	if iterationErr := rows.Err(); iterationErr != nil {
		return 0, false, r.runner.scanFailed(ctx, logMsgRowIterationFailed, snapshotstore.ErrResolvingGlobalIDFailed, iterationErr)
	}

	if !found {
		return 0, false, nil
	}

	return globalIDPK.Int64, true, nil
}
