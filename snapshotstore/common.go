package snapshotstore

import (
	"errors"
)

// Error kinds. Every error returned by this module wraps exactly one of them, so callers can
// distinguish caller errors, infrastructure failures and data inconsistencies with errors.Is.
var (
	// ErrInvalidQuery is returned for malformed target selectors or query parameters, before any store access.
	ErrInvalidQuery = errors.New("invalid snapshot query")

	// ErrStoreFailure is returned when the underlying store rejects or fails a query.
	ErrStoreFailure = errors.New("snapshot store failure")

	// ErrInconsistency is returned when stored rows reference data that cannot be resolved.
	ErrInconsistency = errors.New("snapshot store is inconsistent")

	// ErrPreconditionViolated is returned when a required argument is missing.
	ErrPreconditionViolated = errors.New("precondition violated")
)

var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrEmptyTableName        = errors.New("empty table name supplied")
	ErrUnsupportedDialect    = errors.New("unsupported sql dialect")

	ErrBuildingQueryFailed            = errors.New("building the query failed")
	ErrQueryingSnapshotsFailed        = errors.New("querying snapshots failed")
	ErrScanningDBRowFailed            = errors.New("scanning db row failed")
	ErrResolvingGlobalIDFailed        = errors.New("resolving global id failed")
	ErrSelectingMaxVersionFailed      = errors.New("selecting max snapshot version failed")
	ErrFetchingCommitPropertiesFailed = errors.New("fetching commit properties failed")
	ErrConvertingSerializedSnapshot   = errors.New("converting serialized snapshot failed")
	ErrInconsistentCommitReference    = errors.New("commit property references a commit without snapshots")
	ErrInconsistentGlobalID           = errors.New("stored global id can not be reassembled")
	ErrInvalidSnapshotState           = errors.New("snapshot state json is not valid")
	ErrInvalidChangedProperties       = errors.New("changed properties json is not valid")
	ErrQueryParamsNotBuilt            = errors.New("query params must be created with BuildQueryParams")
	ErrNegativeLimit                  = errors.New("limit must not be negative")
	ErrLimitExceedsMaximum            = errors.New("limit exceeds the documented maximum")
	ErrNegativeSkip                   = errors.New("skip must not be negative")
	ErrFromAfterTo                    = errors.New("from must not be after to")
	ErrInvalidSnapshotType            = errors.New("unknown snapshot type")
	ErrInvalidGlobalID                = errors.New("global id must have either a local id or an owner and a fragment")
	ErrEmptyTypeName                  = errors.New("type name must not be empty")
	ErrValueObjectOwnedByValueObject  = errors.New("value object owner must be an entity, nest with the fragment path")
	ErrInvalidTarget                  = errors.New("snapshot target is not valid")
	ErrInvalidCommitID                = errors.New("commit id is not valid")
	ErrNilSource                      = errors.New("source sequence must not be nil")
	ErrNilTransform                   = errors.New("transform function must not be nil")
	ErrNilOwnerContext                = errors.New("owner context must not be nil")
)

// SnapshotPK is the surrogate key of a snapshot row.
type SnapshotPK = int64

// GlobalIDPK is the surrogate key of a global id row.
type GlobalIDPK = int64

// CommitPK is the surrogate key of a commit row.
type CommitPK = int64

// preconditionViolated joins ErrPreconditionViolated with the specific cause.
func preconditionViolated(cause error) error {
	return errors.Join(ErrPreconditionViolated, cause)
}
