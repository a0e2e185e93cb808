package sqlengine

import (
	"context"
	"slices"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
)

// CommitPropertyFinder loads the properties of a set of commits with one query.
type CommitPropertyFinder struct {
	runner sqlRunner
	query  snapshotQuery
}

// FetchCommitProperties implements snapshotstore.CommitPropertyFetcher.
// Duplicate keys are ignored, no keys means no query.
func (f CommitPropertyFinder) FetchCommitProperties(
	ctx context.Context,
	commitPKs []snapshotstore.CommitPK,
) ([]snapshotstore.CommitPropertyRow, error) {

	keys := slices.Clone(commitPKs)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	if len(keys) == 0 {
		return make([]snapshotstore.CommitPropertyRow, 0), nil
	}

	rows, queryErr := f.runner.query(ctx, f.query.selectCommitProperties(keys), logActionSelectCommitProperties, snapshotstore.ErrFetchingCommitPropertiesFailed)
	if queryErr != nil {
		return nil, queryErr
	}
	defer f.runner.closeRows(ctx, rows)

	propertyRows := make([]snapshotstore.CommitPropertyRow, 0)

	for rows.Next() {
		var row snapshotstore.CommitPropertyRow
		if scanErr := rows.Scan(&row.CommitPK, &row.Name, &row.Value); scanErr != nil {
			return nil, f.runner.scanFailed(ctx, logMsgScanRowFailed, snapshotstore.ErrFetchingCommitPropertiesFailed, scanErr)
		}

		propertyRows = append(propertyRows, row)
	}

	if iterationErr := rows.Err(); iterationErr != nil {
		return nil, f.runner.scanFailed(ctx, logMsgRowIterationFailed, snapshotstore.ErrFetchingCommitPropertiesFailed, iterationErr)
	}

	return propertyRows, nil
}
