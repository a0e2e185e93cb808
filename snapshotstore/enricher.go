package snapshotstore

import (
	"errors"
)

// CommitPropertyRow is one stored commit property, keyed by the surrogate key of its commit.
type CommitPropertyRow struct {
	CommitPK CommitPK
	Name     string
	Value    string
}

// EnrichWithCommitProperties attaches the commit properties to every snapshot of the respective commit.
//
// It groups the rows by commit key once and then walks the snapshots once. Each snapshot gets the
// complete property list of its commit, sorted by name and free of duplicates, so the result does not
// depend on the order of rows and enriching twice yields the same lists. Snapshots of commits without
// properties get an empty list.
//
// A row referencing a commit that none of the snapshots belongs to means the property fetch and the
// snapshot fetch disagree, this is reported as ErrInconsistentCommitReference.
//
// The input slice is not modified.
func EnrichWithCommitProperties(
	snapshots []SerializedSnapshot,
	rows []CommitPropertyRow,
) ([]SerializedSnapshot, error) {

	propertiesByCommit := make(map[CommitPK][]CommitProperty, len(snapshots))
	for _, snapshot := range snapshots {
		propertiesByCommit[snapshot.CommitPK] = make([]CommitProperty, 0)
	}

	for _, row := range rows {
		properties, known := propertiesByCommit[row.CommitPK]
		if !known {
			return nil, errors.Join(ErrInconsistency, ErrInconsistentCommitReference)
		}

		propertiesByCommit[row.CommitPK] = append(properties, CP(row.Name, row.Value))
	}

	for commitPK, properties := range propertiesByCommit {
		propertiesByCommit[commitPK] = sortCommitProperties(properties)
	}

	enriched := make([]SerializedSnapshot, len(snapshots))
	for i, snapshot := range snapshots {
		properties := propertiesByCommit[snapshot.CommitPK]
		snapshot.Commit.Properties = append(make([]CommitProperty, 0, len(properties)), properties...)
		enriched[i] = snapshot
	}

	return enriched, nil
}
