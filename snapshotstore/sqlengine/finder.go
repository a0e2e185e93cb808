package sqlengine

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore/sqlengine/internal/adapters"
)

// SnapshotFinder answers snapshot queries against the four audit tables of a relational database.
// It composes exactly one bounded snapshot SELECT per request, plus the identity lookups it depends on
// and at most one commit property query.
//
// SnapshotFinder holds no per-request state and is safe for concurrent use.
type SnapshotFinder struct {
	db                    adapters.DBAdapter
	names                 Names
	dialect               string
	query                 snapshotQuery
	converter             snapshotstore.StateConverter
	globalIDResolver      snapshotstore.GlobalIDResolver
	commitPropertyFetcher snapshotstore.CommitPropertyFetcher
	logger                snapshotstore.Logger
	contextualLogger      snapshotstore.ContextualLogger
	metricsCollector      snapshotstore.MetricsCollector
	tracingCollector      snapshotstore.TracingCollector
}

// NewSnapshotFinderFromPGXPool creates a new SnapshotFinder using a pgx Pool with optional configuration.
func NewSnapshotFinderFromPGXPool(db *pgxpool.Pool, options ...Option) (SnapshotFinder, error) {
	if db == nil {
		return SnapshotFinder{}, snapshotstore.ErrNilDatabaseConnection
	}

	return newSnapshotFinder(adapters.NewPGXAdapter(db), options...)
}

// NewSnapshotFinderFromPGXPoolWithReplica creates a new SnapshotFinder using a primary and a replica pgx Pool.
// Reads go to the replica only when the context asks for snapshotstore.EventualConsistency.
func NewSnapshotFinderFromPGXPoolWithReplica(
	primary *pgxpool.Pool,
	replica *pgxpool.Pool,
	options ...Option,
) (SnapshotFinder, error) {

	if primary == nil || replica == nil {
		return SnapshotFinder{}, snapshotstore.ErrNilDatabaseConnection
	}

	return newSnapshotFinder(adapters.NewPGXAdapterWithReplica(primary, replica), options...)
}

// NewSnapshotFinderFromSQLDB creates a new SnapshotFinder using a sql.DB with optional configuration.
func NewSnapshotFinderFromSQLDB(db *sql.DB, options ...Option) (SnapshotFinder, error) {
	if db == nil {
		return SnapshotFinder{}, snapshotstore.ErrNilDatabaseConnection
	}

	return newSnapshotFinder(adapters.NewSQLAdapter(db), options...)
}

// NewSnapshotFinderFromSQLX creates a new SnapshotFinder using a sqlx.DB with optional configuration.
func NewSnapshotFinderFromSQLX(db *sqlx.DB, options ...Option) (SnapshotFinder, error) {
	if db == nil {
		return SnapshotFinder{}, snapshotstore.ErrNilDatabaseConnection
	}

	return newSnapshotFinder(adapters.NewSQLXAdapter(db), options...)
}

// NewSnapshotFinderFromSQLXWithReplica creates a new SnapshotFinder using a primary and a replica sqlx.DB.
// Reads go to the replica only when the context asks for snapshotstore.EventualConsistency.
func NewSnapshotFinderFromSQLXWithReplica(primary *sqlx.DB, replica *sqlx.DB, options ...Option) (SnapshotFinder, error) {
	if primary == nil || replica == nil {
		return SnapshotFinder{}, snapshotstore.ErrNilDatabaseConnection
	}

	return newSnapshotFinder(adapters.NewSQLXAdapterWithReplica(primary, replica), options...)
}

func newSnapshotFinder(db adapters.DBAdapter, options ...Option) (SnapshotFinder, error) {
	sf := SnapshotFinder{
		db:        db,
		names:     defaultNames(),
		dialect:   DialectPostgres,
		converter: snapshotstore.JSONStateConverter{},
	}

	for _, option := range options {
		if err := option(&sf); err != nil {
			return SnapshotFinder{}, err
		}
	}

	sf.query = newSnapshotQuery(sf.names, sf.dialect)

	if sf.globalIDResolver == nil {
		sf.globalIDResolver = GlobalIDRepository{runner: sf.runner(), query: sf.query}
	}

	if sf.commitPropertyFetcher == nil {
		sf.commitPropertyFetcher = CommitPropertyFinder{runner: sf.runner(), query: sf.query}
	}

	sf.observer().logOperation(
		context.Background(),
		logMsgFinderCreated,
		logAttrDialect, sf.dialect,
		logAttrGlobalIDTable, sf.names.GlobalIDTableNameWithSchema(),
		logAttrSnapshotTable, sf.names.SnapshotTableNameWithSchema(),
		logAttrCommitTable, sf.names.CommitTableNameWithSchema(),
		logAttrCommitPropertyTable, sf.names.CommitPropertyTableNameWithSchema(),
	)

	return sf, nil
}

// Names returns the table names the finder queries.
func (sf SnapshotFinder) Names() Names {
	return sf.names
}

/***** operations *****/

// GetLatest returns the snapshot with the highest version of the given object.
// found is false if the object is unknown or has no snapshots.
func (sf SnapshotFinder) GetLatest(
	ctx context.Context,
	globalID snapshotstore.GlobalID,
	loadCommitProps bool,
) (snapshot snapshotstore.CdoSnapshot, found bool, err error) {

	oo, ctx := sf.observer().startOperation(ctx, operationGetLatest, snapshotstore.TargetGlobalID)

	snapshot, found, err = sf.getLatest(ctx, globalID, loadCommitProps)
	if err != nil {
		return snapshotstore.CdoSnapshot{}, false, oo.finishError(err)
	}

	if found {
		oo.finishSuccess(1)
	} else {
		oo.finishSuccess(0)
	}

	return snapshot, found, nil
}

// GetSnapshots returns snapshots of any object matching the params, newest first.
func (sf SnapshotFinder) GetSnapshots(
	ctx context.Context,
	params snapshotstore.QueryParams,
) ([]snapshotstore.CdoSnapshot, error) {

	return sf.observedFind(ctx, operationGetSnapshots, snapshotstore.AnySnapshots(), params)
}

// GetSnapshotsByIdentifiers returns the snapshots with the exact (GlobalID, version) pairs, newest first.
// Identifiers that match nothing are left out of the result.
func (sf SnapshotFinder) GetSnapshotsByIdentifiers(
	ctx context.Context,
	identifiers []snapshotstore.SnapshotIdentifier,
) ([]snapshotstore.CdoSnapshot, error) {

	target := snapshotstore.SnapshotsIdentifiedBy(identifiers...)

	if len(identifiers) > snapshotstore.MaxLimit {
		oo, _ := sf.observer().startOperation(ctx, operationGetSnapshotsByIdentifiers, target.Kind())

		return nil, oo.finishError(errors.Join(snapshotstore.ErrInvalidQuery, snapshotstore.ErrLimitExceedsMaximum))
	}

	params, err := snapshotstore.WithLimit(len(identifiers)).Build()
	if err != nil {
		return nil, err
	}

	return sf.observedFind(ctx, operationGetSnapshotsByIdentifiers, target, params)
}

// GetStateHistoryOfTypes returns snapshots of objects of the given managed types, newest first.
// With aggregate params, value objects owned by objects of these types are included.
func (sf SnapshotFinder) GetStateHistoryOfTypes(
	ctx context.Context,
	managedTypes []snapshotstore.ManagedType,
	params snapshotstore.QueryParams,
) ([]snapshotstore.CdoSnapshot, error) {

	return sf.observedFind(ctx, operationGetStateHistoryOfTypes, snapshotstore.SnapshotsOfTypes(managedTypes...), params)
}

// GetValueObjectStateHistory returns snapshots of value objects at fragment, or below it,
// owned by any instance of ownerEntity, newest first.
func (sf SnapshotFinder) GetValueObjectStateHistory(
	ctx context.Context,
	ownerEntity snapshotstore.ManagedType,
	fragment string,
	params snapshotstore.QueryParams,
) ([]snapshotstore.CdoSnapshot, error) {

	return sf.observedFind(ctx, operationGetValueObjectStateHistory, snapshotstore.ValueObjectsOf(ownerEntity, fragment), params)
}

// GetStateHistory returns the snapshots of one object, newest first.
// With aggregate params, the value objects owned by the object are included.
func (sf SnapshotFinder) GetStateHistory(
	ctx context.Context,
	globalID snapshotstore.GlobalID,
	params snapshotstore.QueryParams,
) ([]snapshotstore.CdoSnapshot, error) {

	return sf.observedFind(ctx, operationGetStateHistory, snapshotstore.SnapshotsOf(globalID), params)
}

// Find answers any target selector with the given params. All other list operations delegate to it.
func (sf SnapshotFinder) Find(
	ctx context.Context,
	target snapshotstore.SnapshotTarget,
	params snapshotstore.QueryParams,
) ([]snapshotstore.CdoSnapshot, error) {

	return sf.observedFind(ctx, operationFind, target, params)
}

/***** orchestration *****/

func (sf SnapshotFinder) observedFind(
	ctx context.Context,
	operation string,
	target snapshotstore.SnapshotTarget,
	params snapshotstore.QueryParams,
) ([]snapshotstore.CdoSnapshot, error) {

	oo, ctx := sf.observer().startOperation(ctx, operation, target.Kind())

	snapshots, err := sf.find(ctx, target, params)
	if err != nil {
		return nil, oo.finishError(err)
	}

	oo.finishSuccess(len(snapshots))

	return snapshots, nil
}

func (sf SnapshotFinder) find(
	ctx context.Context,
	target snapshotstore.SnapshotTarget,
	params snapshotstore.QueryParams,
) ([]snapshotstore.CdoSnapshot, error) {

	empty := make([]snapshotstore.CdoSnapshot, 0)

	if err := target.Validate(); err != nil {
		return nil, sf.invalidQuery(ctx, err)
	}

	if err := params.Validate(); err != nil {
		return nil, sf.invalidQuery(ctx, err)
	}

	if params.Limit() == 0 {
		return empty, nil
	}

	identityCondition, limit, resolved, err := sf.identityCondition(ctx, target, params)
	if err != nil {
		return nil, err
	}

	if !resolved {
		return empty, nil
	}

	return sf.querySnapshots(ctx, identityCondition, params, limit)
}

// identityCondition translates the target into its SQL condition and the effective limit.
// resolved is false when the target addresses objects the store does not know.
func (sf SnapshotFinder) identityCondition(
	ctx context.Context,
	target snapshotstore.SnapshotTarget,
	params snapshotstore.QueryParams,
) (condition exp.Expression, limit uint, resolved bool, err error) {

	limit = uint(params.Limit())

	switch target.Kind() {
	case snapshotstore.TargetGlobalID:
		globalIDPK, found, resolveErr := sf.resolveGlobalID(ctx, target.GlobalID())
		if resolveErr != nil || !found {
			return nil, 0, false, resolveErr
		}

		return sf.query.globalIDCondition(globalIDPK, params.IsAggregate()), limit, true, nil

	case snapshotstore.TargetIdentifiers:
		identifiers := make([]resolvedIdentifier, 0, len(target.Identifiers()))

		for _, identifier := range target.Identifiers() {
			globalIDPK, found, resolveErr := sf.resolveGlobalID(ctx, identifier.GlobalID)
			if resolveErr != nil {
				return nil, 0, false, resolveErr
			}

			if found {
				identifiers = append(identifiers, resolvedIdentifier{globalIDPK: globalIDPK, version: identifier.Version})
			}
		}

		if len(identifiers) == 0 {
			return nil, 0, false, nil
		}

		return sf.query.identifiersCondition(identifiers), min(limit, uint(len(identifiers))), true, nil

	case snapshotstore.TargetManagedTypes:
		typeNames := snapshotstore.ManagedTypeNames(target.ManagedTypes())

		return sf.query.managedTypesCondition(typeNames, params.IsAggregate()), limit, true, nil

	case snapshotstore.TargetValueObjectOwner:
		return sf.query.valueObjectOwnerCondition(target.OwnerEntity().Name, target.Fragment()), limit, true, nil

	default:
		return nil, limit, true, nil
	}
}

func (sf SnapshotFinder) resolveGlobalID(
	ctx context.Context,
	globalID snapshotstore.GlobalID,
) (snapshotstore.GlobalIDPK, bool, error) {

	globalIDPK, found, err := sf.globalIDResolver.ResolveGlobalIDPK(ctx, globalID)
	if err != nil {
		sf.observer().logError(ctx, logMsgResolveGlobalIDFailed, err, logAttrGlobalID, globalID.Value())

		return 0, false, withErrorKind(err, snapshotstore.ErrStoreFailure, snapshotstore.ErrResolvingGlobalIDFailed)
	}

	if !found {
		sf.observer().logDebug(ctx, logMsgUnknownGlobalID, logAttrGlobalID, globalID.Value())
	}

	return globalIDPK, found, nil
}

func (sf SnapshotFinder) getLatest(
	ctx context.Context,
	globalID snapshotstore.GlobalID,
	loadCommitProps bool,
) (snapshotstore.CdoSnapshot, bool, error) {

	if err := globalID.Validate(); err != nil {
		return snapshotstore.CdoSnapshot{}, false, sf.invalidQuery(ctx, err)
	}

	globalIDPK, found, err := sf.resolveGlobalID(ctx, globalID)
	if err != nil || !found {
		return snapshotstore.CdoSnapshot{}, false, err
	}

	maxVersion, hasSnapshots, err := sf.selectMaxVersion(ctx, globalIDPK)
	if err != nil || !hasSnapshots {
		return snapshotstore.CdoSnapshot{}, false, err
	}

	params, err := snapshotstore.WithLimit(1).WithCommitProps(loadCommitProps).Build()
	if err != nil {
		return snapshotstore.CdoSnapshot{}, false, err
	}

	snapshots, err := sf.querySnapshots(
		ctx,
		sf.query.identifiersCondition([]resolvedIdentifier{{globalIDPK: globalIDPK, version: maxVersion}}),
		params,
		1,
	)
	if err != nil || len(snapshots) == 0 {
		return snapshotstore.CdoSnapshot{}, false, err
	}

	return snapshots[0], true, nil
}

func (sf SnapshotFinder) selectMaxVersion(ctx context.Context, globalIDPK snapshotstore.GlobalIDPK) (uint64, bool, error) {
	runner := sf.runner()

	rows, queryErr := runner.query(ctx, sf.query.selectMaxVersion(globalIDPK), logActionSelectMaxVersion, snapshotstore.ErrSelectingMaxVersionFailed)
	if queryErr != nil {
		return 0, false, queryErr
	}
	defer runner.closeRows(ctx, rows)

	var maxVersion sql.NullInt64

	if rows.Next() {
		if scanErr := rows.Scan(&maxVersion); scanErr != nil {
			return 0, false, runner.scanFailed(ctx, logMsgScanRowFailed, snapshotstore.ErrSelectingMaxVersionFailed, scanErr)
		}
	}

	if iterationErr := rows.Err(); iterationErr != nil {
		return 0, false, runner.scanFailed(ctx, logMsgRowIterationFailed, snapshotstore.ErrSelectingMaxVersionFailed, iterationErr)
	}

	if !maxVersion.Valid || maxVersion.Int64 <= 0 {
		return 0, false, nil
	}

	return uint64(maxVersion.Int64), true, nil
}

// querySnapshots runs the composed snapshot query, then enriches and converts the rows.
func (sf SnapshotFinder) querySnapshots(
	ctx context.Context,
	identityCondition exp.Expression,
	params snapshotstore.QueryParams,
	limit uint,
) ([]snapshotstore.CdoSnapshot, error) {

	serialized, err := sf.selectSerializedSnapshots(ctx, identityCondition, params, limit)
	if err != nil {
		return nil, err
	}

	if params.IsLoadCommitProps() && len(serialized) > 0 {
		serialized, err = sf.loadCommitProperties(ctx, serialized)
		if err != nil {
			return nil, err
		}
	}

	snapshots := make([]snapshotstore.CdoSnapshot, 0, len(serialized))

	for _, serializedSnapshot := range serialized {
		snapshot, convertErr := sf.converter.FromSerializedSnapshot(serializedSnapshot)
		if convertErr != nil {
			sf.observer().logError(ctx, logMsgConvertSnapshotFailed, convertErr, logAttrGlobalID, serializedSnapshot.GlobalID.Value())

			return nil, errors.Join(snapshotstore.ErrInconsistency, snapshotstore.ErrConvertingSerializedSnapshot, convertErr)
		}

		snapshots = append(snapshots, snapshot)
	}

	return snapshots, nil
}

func (sf SnapshotFinder) selectSerializedSnapshots(
	ctx context.Context,
	identityCondition exp.Expression,
	params snapshotstore.QueryParams,
	limit uint,
) ([]snapshotstore.SerializedSnapshot, error) {

	runner := sf.runner()

	selectStmt := sf.query.selectSnapshots(identityCondition, params, limit)

	rows, queryErr := runner.query(ctx, selectStmt, logActionSelectSnapshots, snapshotstore.ErrQueryingSnapshotsFailed)
	if queryErr != nil {
		return nil, queryErr
	}
	defer runner.closeRows(ctx, rows)

	serialized := make([]snapshotstore.SerializedSnapshot, 0)

	for rows.Next() {
		row := snapshotRow{}
		if scanErr := rows.Scan(row.destinations()...); scanErr != nil {
			return nil, runner.scanFailed(ctx, logMsgScanRowFailed, snapshotstore.ErrScanningDBRowFailed, scanErr)
		}

		serializedSnapshot, rowErr := row.toSerializedSnapshot()
		if rowErr != nil {
			sf.observer().logError(ctx, logMsgInconsistentRow, rowErr)
			return nil, rowErr
		}

		serialized = append(serialized, serializedSnapshot)
	}

	if iterationErr := rows.Err(); iterationErr != nil {
		return nil, runner.scanFailed(ctx, logMsgRowIterationFailed, snapshotstore.ErrQueryingSnapshotsFailed, iterationErr)
	}

	return serialized, nil
}

func (sf SnapshotFinder) loadCommitProperties(
	ctx context.Context,
	serialized []snapshotstore.SerializedSnapshot,
) ([]snapshotstore.SerializedSnapshot, error) {

	commitPKs := make([]snapshotstore.CommitPK, 0, len(serialized))
	seen := make(map[snapshotstore.CommitPK]struct{}, len(serialized))

	for _, serializedSnapshot := range serialized {
		if _, ok := seen[serializedSnapshot.CommitPK]; ok {
			continue
		}

		seen[serializedSnapshot.CommitPK] = struct{}{}
		commitPKs = append(commitPKs, serializedSnapshot.CommitPK)
	}

	propertyRows, err := sf.commitPropertyFetcher.FetchCommitProperties(ctx, commitPKs)
	if err != nil {
		sf.observer().logError(ctx, logMsgFetchCommitPropsFailed, err)

		return nil, withErrorKind(err, snapshotstore.ErrStoreFailure, snapshotstore.ErrFetchingCommitPropertiesFailed)
	}

	enriched, err := snapshotstore.EnrichWithCommitProperties(serialized, propertyRows)
	if err != nil {
		sf.observer().logError(ctx, logMsgInconsistentRow, err)

		return nil, err
	}

	return enriched, nil
}

func (sf SnapshotFinder) invalidQuery(ctx context.Context, err error) error {
	sf.observer().logDebug(ctx, logMsgInvalidQuery, logAttrError, err.Error())

	return err
}

func (sf SnapshotFinder) observer() observer {
	return observer{
		logger:           sf.logger,
		contextualLogger: sf.contextualLogger,
		metricsCollector: sf.metricsCollector,
		tracingCollector: sf.tracingCollector,
	}
}

func (sf SnapshotFinder) runner() sqlRunner {
	return sqlRunner{db: sf.db, observer: sf.observer()}
}

// withErrorKind keeps errors that already carry an error kind and joins all others with kind and specific.
func withErrorKind(err error, kind error, specific error) error {
	for _, known := range []error{
		snapshotstore.ErrInvalidQuery,
		snapshotstore.ErrStoreFailure,
		snapshotstore.ErrInconsistency,
		snapshotstore.ErrPreconditionViolated,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	return errors.Join(kind, specific, err)
}
