package snapshotstore

import (
	"context"
)

// GlobalIDResolver translates a GlobalID into the surrogate key of its stored row.
// An unknown GlobalID is not an error, it is reported with found == false.
type GlobalIDResolver interface {
	ResolveGlobalIDPK(ctx context.Context, globalID GlobalID) (pk GlobalIDPK, found bool, err error)
}

// CommitPropertyFetcher fetches all properties of the given commits.
type CommitPropertyFetcher interface {
	FetchCommitProperties(ctx context.Context, commitPKs []CommitPK) ([]CommitPropertyRow, error)
}
