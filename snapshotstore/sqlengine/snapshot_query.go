package sqlengine

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
)

const (
	alwaysFalse       = "1 != 1"
	likeAnyPrefix     = "%"
	changedPropQuote  = `"`
	fragmentSeparator = "/"
	likeEscapedSQL    = `? LIKE ? ESCAPE '\'`
)

var likeMetaEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// resolvedIdentifier is a SnapshotIdentifier whose GlobalID was translated into its surrogate key.
type resolvedIdentifier struct {
	globalIDPK snapshotstore.GlobalIDPK
	version    uint64
}

// predicateDescriptor is one optional QueryParams constraint: active tells whether the params use it,
// condition builds the SQL condition for it.
type predicateDescriptor struct {
	active    func(params snapshotstore.QueryParams) bool
	condition func(params snapshotstore.QueryParams) exp.Expression
}

// snapshotQuery composes the SQL statements of the snapshot finder.
type snapshotQuery struct {
	names   Names
	dialect goqu.DialectWrapper
}

func newSnapshotQuery(names Names, dialect string) snapshotQuery {
	return snapshotQuery{
		names:   names,
		dialect: goqu.Dialect(dialect),
	}
}

// selectSnapshots builds the one bounded query for a target condition and QueryParams.
// identityCondition may be nil for unscoped queries. limit is the effective page size (> 0).
func (q snapshotQuery) selectSnapshots(
	identityCondition exp.Expression,
	params snapshotstore.QueryParams,
	limit uint,
) *goqu.SelectDataset {

	conditions := make([]exp.Expression, 0)
	if identityCondition != nil {
		conditions = append(conditions, identityCondition)
	}

	for _, predicate := range q.predicateDescriptors() {
		if predicate.active(params) {
			conditions = append(conditions, predicate.condition(params))
		}
	}

	selectStmt := q.baseSelect()

	if len(conditions) > 0 {
		selectStmt = selectStmt.Where(goqu.And(conditions...))
	}

	return selectStmt.
		Order(col(aliasSnapshot, colSnapshotPK).Desc()).
		Offset(uint(params.Skip())).
		Limit(limit)
}

func (q snapshotQuery) baseSelect() *goqu.SelectDataset {
	return q.dialect.
		From(q.names.snapshotTable(aliasSnapshot)).
		Prepared(true).
		Select(
			col(aliasSnapshot, colSnapshotPK),
			col(aliasSnapshot, colSnapshotState),
			col(aliasSnapshot, colSnapshotType),
			col(aliasSnapshot, colSnapshotVersion),
			col(aliasSnapshot, colSnapshotChanged),
			col(aliasSnapshot, colSnapshotManagedType),
			col(aliasCommit, colCommitPK),
			col(aliasCommit, colCommitAuthor),
			col(aliasCommit, colCommitCommitDate),
			col(aliasCommit, colCommitCommitDateInstant),
			col(aliasCommit, colCommitCommitID),
			col(aliasGlobalID, colGlobalIDTypeName),
			col(aliasGlobalID, colGlobalIDLocalID),
			col(aliasGlobalID, colGlobalIDFragment),
			col(aliasGlobalID, colGlobalIDOwnerIDFK),
			col(aliasOwner, colGlobalIDTypeName).As(ownerColumnPrefix+colGlobalIDTypeName),
			col(aliasOwner, colGlobalIDLocalID).As(ownerColumnPrefix+colGlobalIDLocalID),
		).
		InnerJoin(
			q.names.commitTable(aliasCommit),
			goqu.On(col(aliasCommit, colCommitPK).Eq(col(aliasSnapshot, colSnapshotCommitFK))),
		).
		InnerJoin(
			q.names.globalIDTable(aliasGlobalID),
			goqu.On(col(aliasGlobalID, colGlobalIDPK).Eq(col(aliasSnapshot, colSnapshotGlobalIDFK))),
		).
		LeftOuterJoin(
			q.names.globalIDTable(aliasOwner),
			goqu.On(col(aliasOwner, colGlobalIDPK).Eq(col(aliasGlobalID, colGlobalIDOwnerIDFK))),
		)
}

func (q snapshotQuery) predicateDescriptors() []predicateDescriptor {
	return []predicateDescriptor{
		{
			active: func(p snapshotstore.QueryParams) bool { return p.ChangedProperty() != "" },
			condition: func(p snapshotstore.QueryParams) exp.Expression {
				pattern := likeAnyPrefix + changedPropQuote + escapeLike(p.ChangedProperty()) + changedPropQuote + likeAnyPrefix
				return likeEscaped(col(aliasSnapshot, colSnapshotChanged), pattern)
			},
		},
		{
			active: func(p snapshotstore.QueryParams) bool { return !p.From().IsZero() },
			condition: func(p snapshotstore.QueryParams) exp.Expression {
				return col(aliasCommit, colCommitCommitDate).Gte(p.From().UTC())
			},
		},
		{
			active: func(p snapshotstore.QueryParams) bool { return !p.To().IsZero() },
			condition: func(p snapshotstore.QueryParams) exp.Expression {
				return col(aliasCommit, colCommitCommitDate).Lte(p.To().UTC())
			},
		},
		{
			active: func(p snapshotstore.QueryParams) bool { return !p.ToCommitID().IsZero() },
			condition: func(p snapshotstore.QueryParams) exp.Expression {
				return col(aliasCommit, colCommitCommitID).Lte(p.ToCommitID().Number())
			},
		},
		{
			active: func(p snapshotstore.QueryParams) bool { return len(p.CommitIDs()) > 0 },
			condition: func(p snapshotstore.QueryParams) exp.Expression {
				numbers := make([]any, 0, len(p.CommitIDs()))
				for _, commitID := range p.CommitIDs() {
					numbers = append(numbers, commitID.Number())
				}

				return col(aliasCommit, colCommitCommitID).In(numbers...)
			},
		},
		{
			active: func(p snapshotstore.QueryParams) bool { return p.Version() > 0 },
			condition: func(p snapshotstore.QueryParams) exp.Expression {
				return col(aliasSnapshot, colSnapshotVersion).Eq(p.Version())
			},
		},
		{
			active: func(p snapshotstore.QueryParams) bool { return p.Author() != "" },
			condition: func(p snapshotstore.QueryParams) exp.Expression {
				return col(aliasCommit, colCommitAuthor).Eq(p.Author())
			},
		},
		{
			active: func(p snapshotstore.QueryParams) bool { return len(p.CommitProperties()) > 0 },
			condition: func(p snapshotstore.QueryParams) exp.Expression {
				propertyConditions := make([]exp.Expression, 0, len(p.CommitProperties()))
				for _, property := range p.CommitProperties() {
					propertyConditions = append(propertyConditions, q.commitPropertyCondition(property))
				}

				return goqu.And(propertyConditions...)
			},
		},
		{
			active: func(p snapshotstore.QueryParams) bool { return p.SnapshotType() != "" },
			condition: func(p snapshotstore.QueryParams) exp.Expression {
				return col(aliasSnapshot, colSnapshotType).Eq(string(p.SnapshotType()))
			},
		},
	}
}

// commitPropertyCondition requires the commit to carry the exact (name, value) pair.
func (q snapshotQuery) commitPropertyCondition(property snapshotstore.CommitProperty) exp.Expression {
	commitsWithProperty := q.dialect.
		From(q.names.commitPropertyTable(aliasCommitProperty)).
		Select(col(aliasCommitProperty, colCommitPropertyCommitFK)).
		Where(
			col(aliasCommitProperty, colCommitPropertyName).Eq(property.Name),
			col(aliasCommitProperty, colCommitPropertyValue).Eq(property.Value),
		)

	return col(aliasCommit, colCommitPK).In(commitsWithProperty)
}

/***** identity conditions, one per target selector *****/

// globalIDCondition matches one object, or the object and the value objects it owns directly.
func (q snapshotQuery) globalIDCondition(globalIDPK snapshotstore.GlobalIDPK, aggregate bool) exp.Expression {
	if !aggregate {
		return col(aliasGlobalID, colGlobalIDPK).Eq(globalIDPK)
	}

	return goqu.Or(
		col(aliasGlobalID, colGlobalIDPK).Eq(globalIDPK),
		col(aliasGlobalID, colGlobalIDOwnerIDFK).Eq(globalIDPK),
	)
}

// identifiersCondition matches the given (global id, version) pairs. The always false anchor keeps an
// empty batch from matching every row.
func (q snapshotQuery) identifiersCondition(identifiers []resolvedIdentifier) exp.Expression {
	alternatives := make([]exp.Expression, 0, len(identifiers)+1)
	alternatives = append(alternatives, goqu.L(alwaysFalse))

	for _, identifier := range identifiers {
		alternatives = append(alternatives, goqu.And(
			col(aliasSnapshot, colSnapshotGlobalIDFK).Eq(identifier.globalIDPK),
			col(aliasSnapshot, colSnapshotVersion).Eq(identifier.version),
		))
	}

	return goqu.Or(alternatives...)
}

// managedTypesCondition matches root objects of the given types. For aggregates it matches every
// snapshot of the given types, owned or not, plus the value objects owned by objects of these types.
func (q snapshotQuery) managedTypesCondition(typeNames []string, aggregate bool) exp.Expression {
	ofTypes := col(aliasSnapshot, colSnapshotManagedType).In(stringsToAny(typeNames)...)

	if !aggregate {
		return goqu.And(
			ofTypes,
			col(aliasGlobalID, colGlobalIDOwnerIDFK).IsNull(),
		)
	}

	return goqu.Or(
		ofTypes,
		col(aliasOwner, colGlobalIDTypeName).In(stringsToAny(typeNames)...),
	)
}

// valueObjectOwnerCondition matches value objects at fragment, or nested below it,
// owned by any instance of the owner entity type.
func (q snapshotQuery) valueObjectOwnerCondition(ownerTypeName string, fragment string) exp.Expression {
	return goqu.And(
		col(aliasOwner, colGlobalIDTypeName).Eq(ownerTypeName),
		goqu.Or(
			col(aliasGlobalID, colGlobalIDFragment).Eq(fragment),
			likeEscaped(col(aliasGlobalID, colGlobalIDFragment), escapeLike(fragment)+fragmentSeparator+likeAnyPrefix),
		),
	)
}

// likeEscaped renders column LIKE pattern with backslash as escape character, which postgres and sqlite share.
func likeEscaped(column exp.IdentifierExpression, pattern string) exp.Expression {
	return goqu.L(likeEscapedSQL, column, pattern)
}

// escapeLike makes the LIKE wildcards in value match literally.
func escapeLike(value string) string {
	return likeMetaEscaper.Replace(value)
}

/***** supporting statements *****/

func (q snapshotQuery) selectMaxVersion(globalIDPK snapshotstore.GlobalIDPK) *goqu.SelectDataset {
	return q.dialect.
		From(q.names.snapshotTable(aliasSnapshot)).
		Prepared(true).
		Select(goqu.MAX(col(aliasSnapshot, colSnapshotVersion))).
		Where(col(aliasSnapshot, colSnapshotGlobalIDFK).Eq(globalIDPK))
}

func (q snapshotQuery) selectInstanceIDPK(typeName string, localID string) *goqu.SelectDataset {
	return q.dialect.
		From(q.names.globalIDTable(aliasGlobalID)).
		Prepared(true).
		Select(col(aliasGlobalID, colGlobalIDPK)).
		Where(
			col(aliasGlobalID, colGlobalIDTypeName).Eq(typeName),
			col(aliasGlobalID, colGlobalIDLocalID).Eq(localID),
			col(aliasGlobalID, colGlobalIDOwnerIDFK).IsNull(),
		).
		Order(col(aliasGlobalID, colGlobalIDPK).Asc()).
		Limit(1)
}

func (q snapshotQuery) selectValueObjectIDPK(ownerPK snapshotstore.GlobalIDPK, fragment string) *goqu.SelectDataset {
	return q.dialect.
		From(q.names.globalIDTable(aliasGlobalID)).
		Prepared(true).
		Select(col(aliasGlobalID, colGlobalIDPK)).
		Where(
			col(aliasGlobalID, colGlobalIDOwnerIDFK).Eq(ownerPK),
			col(aliasGlobalID, colGlobalIDFragment).Eq(fragment),
		).
		Order(col(aliasGlobalID, colGlobalIDPK).Asc()).
		Limit(1)
}

func (q snapshotQuery) selectCommitProperties(commitPKs []snapshotstore.CommitPK) *goqu.SelectDataset {
	keys := make([]any, 0, len(commitPKs))
	for _, commitPK := range commitPKs {
		keys = append(keys, commitPK)
	}

	return q.dialect.
		From(q.names.commitPropertyTable(aliasCommitProperty)).
		Prepared(true).
		Select(
			col(aliasCommitProperty, colCommitPropertyCommitFK),
			col(aliasCommitProperty, colCommitPropertyName),
			col(aliasCommitProperty, colCommitPropertyValue),
		).
		Where(col(aliasCommitProperty, colCommitPropertyCommitFK).In(keys...)).
		Order(
			col(aliasCommitProperty, colCommitPropertyCommitFK).Asc(),
			col(aliasCommitProperty, colCommitPropertyName).Asc(),
		)
}

func stringsToAny(values []string) []any {
	converted := make([]any, 0, len(values))
	for _, value := range values {
		converted = append(converted, value)
	}

	return converted
}
