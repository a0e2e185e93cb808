package snapshotstore

import (
	"errors"
	"slices"
	"time"
)

const (
	// DefaultLimit is applied when no limit is supplied.
	DefaultLimit = 100

	// MaxLimit is the largest page a caller may request. Callers wanting "all" snapshots
	// must page through the history with Skip.
	MaxLimit = 10000
)

/***** QueryParams *****/

// QueryParams is an immutable set of optional snapshot query constraints plus pagination.
// Zero values mean "not constrained".
type QueryParams struct {
	changedProperty  string
	from             time.Time
	to               time.Time
	toCommitID       CommitID
	commitIDs        []CommitID
	version          uint64
	author           string
	commitProperties []CommitProperty
	snapshotType     SnapshotType
	limit            int
	skip             int
	aggregate        bool
	loadCommitProps  bool
	built            bool
}

func (qp QueryParams) ChangedProperty() string {
	return qp.changedProperty
}

func (qp QueryParams) From() time.Time {
	return qp.from
}

func (qp QueryParams) To() time.Time {
	return qp.to
}

func (qp QueryParams) ToCommitID() CommitID {
	return qp.toCommitID
}

func (qp QueryParams) CommitIDs() []CommitID {
	return slices.Clone(qp.commitIDs)
}

func (qp QueryParams) Version() uint64 {
	return qp.version
}

func (qp QueryParams) Author() string {
	return qp.author
}

func (qp QueryParams) CommitProperties() []CommitProperty {
	return slices.Clone(qp.commitProperties)
}

func (qp QueryParams) SnapshotType() SnapshotType {
	return qp.snapshotType
}

func (qp QueryParams) Limit() int {
	return qp.limit
}

func (qp QueryParams) Skip() int {
	return qp.skip
}

// IsAggregate reports whether entity queries include the value objects owned by the entity.
func (qp QueryParams) IsAggregate() bool {
	return qp.aggregate
}

// IsLoadCommitProps reports whether commit properties are fetched and attached to the result.
func (qp QueryParams) IsLoadCommitProps() bool {
	return qp.loadCommitProps
}

// Validate checks that the params were built with BuildQueryParams and are bounded.
func (qp QueryParams) Validate() error {
	if !qp.built {
		return errors.Join(ErrInvalidQuery, ErrQueryParamsNotBuilt)
	}

	return qp.validateValues()
}

func (qp QueryParams) validateValues() error {
	switch {
	case qp.limit < 0:
		return errors.Join(ErrInvalidQuery, ErrNegativeLimit)
	case qp.limit > MaxLimit:
		return errors.Join(ErrInvalidQuery, ErrLimitExceedsMaximum)
	case qp.skip < 0:
		return errors.Join(ErrInvalidQuery, ErrNegativeSkip)
	case qp.snapshotType != "" && !qp.snapshotType.IsValid():
		return errors.Join(ErrInvalidQuery, ErrInvalidSnapshotType)
	case !qp.from.IsZero() && !qp.to.IsZero() && qp.from.After(qp.to):
		return errors.Join(ErrInvalidQuery, ErrFromAfterTo)
	}

	return nil
}

/***** QueryParamsBuilder *****/

// QueryParamsBuilder collects query constraints. It is a value type, every method returns a modified copy,
// so a partially configured builder can be reused as a template.
type QueryParamsBuilder struct {
	params QueryParams
}

// BuildQueryParams starts a QueryParamsBuilder with DefaultLimit and no constraints.
func BuildQueryParams() QueryParamsBuilder {
	return QueryParamsBuilder{params: QueryParams{limit: DefaultLimit}}
}

// WithLimit is a shortcut for BuildQueryParams().Limit(limit).
func WithLimit(limit int) QueryParamsBuilder {
	return BuildQueryParams().Limit(limit)
}

// ChangedProperty only matches snapshots where the named property changed.
func (b QueryParamsBuilder) ChangedProperty(propertyName string) QueryParamsBuilder {
	b.params.changedProperty = propertyName
	return b
}

// From only matches commits created at or after from.
func (b QueryParamsBuilder) From(from time.Time) QueryParamsBuilder {
	b.params.from = from
	return b
}

// To only matches commits created at or before to.
func (b QueryParamsBuilder) To(to time.Time) QueryParamsBuilder {
	b.params.to = to
	return b
}

// ToCommitID only matches commits with an id lower than or equal to commitID.
func (b QueryParamsBuilder) ToCommitID(commitID CommitID) QueryParamsBuilder {
	b.params.toCommitID = commitID
	return b
}

// CommitIDs only matches snapshots recorded in one of the given commits.
//
// It sanitizes the input:
//   - removing zero CommitIDs
//   - sorting the CommitIDs
//   - removing duplicate CommitIDs
func (b QueryParamsBuilder) CommitIDs(commitID CommitID, commitIDs ...CommitID) QueryParamsBuilder {
	all := append(slices.Clone(b.params.commitIDs), commitID)
	all = append(all, commitIDs...)
	all = slices.DeleteFunc(all, func(id CommitID) bool { return id.IsZero() })
	slices.SortFunc(all, func(a, b CommitID) int { return a.Compare(b) })
	b.params.commitIDs = slices.Clip(slices.Compact(all))

	return b
}

// Version only matches snapshots with exactly this version.
func (b QueryParamsBuilder) Version(version uint64) QueryParamsBuilder {
	b.params.version = version
	return b
}

// Author only matches commits of this author.
func (b QueryParamsBuilder) Author(author string) QueryParamsBuilder {
	b.params.author = author
	return b
}

// CommitProperty only matches commits carrying this exact property. Repeated calls add more required properties.
//
// It sanitizes the input:
//   - ignoring properties with an empty name
//   - sorting the properties
//   - removing duplicate properties
func (b QueryParamsBuilder) CommitProperty(name string, value string) QueryParamsBuilder {
	if name == "" {
		return b
	}

	all := append(slices.Clone(b.params.commitProperties), CP(name, value))
	b.params.commitProperties = slices.Clip(sortCommitProperties(all))

	return b
}

// SnapshotType only matches snapshots of this type.
func (b QueryParamsBuilder) SnapshotType(snapshotType SnapshotType) QueryParamsBuilder {
	b.params.snapshotType = snapshotType
	return b
}

// Limit sets the maximum number of snapshots returned, within 0..MaxLimit.
func (b QueryParamsBuilder) Limit(limit int) QueryParamsBuilder {
	b.params.limit = limit
	return b
}

// Skip sets the number of newest snapshots to drop before applying the limit.
func (b QueryParamsBuilder) Skip(skip int) QueryParamsBuilder {
	b.params.skip = skip
	return b
}

// Aggregate widens entity queries to the value objects owned by the entity.
func (b QueryParamsBuilder) Aggregate() QueryParamsBuilder {
	b.params.aggregate = true
	return b
}

// LoadCommitProps fetches commit properties and attaches them to the returned snapshots.
func (b QueryParamsBuilder) LoadCommitProps() QueryParamsBuilder {
	b.params.loadCommitProps = true
	return b
}

// WithCommitProps toggles LoadCommitProps.
func (b QueryParamsBuilder) WithCommitProps(load bool) QueryParamsBuilder {
	b.params.loadCommitProps = load
	return b
}

// Build validates and returns the immutable QueryParams.
func (b QueryParamsBuilder) Build() (QueryParams, error) {
	params := b.params
	params.commitIDs = slices.Clone(params.commitIDs)
	params.commitProperties = slices.Clone(params.commitProperties)

	if err := params.validateValues(); err != nil {
		return QueryParams{}, err
	}

	params.built = true

	return params, nil
}
