package sqlengine_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore/sqlengine"
	"github.com/AntonStoeckl/cdo-snapshot-store-go/testutil/spies"
)

func Test_Observability_WithLogger_LogsConstruction(t *testing.T) {
	// setup
	logHandler := spies.NewLogHandlerSpy(false)

	// act
	createFinder(t, sqlengine.WithLogger(slog.New(logHandler)))

	// assert
	assert.Equal(t, 1, logHandler.GetRecordCount())
	assert.True(t,
		logHandler.HasInfoLogWithMessage("snapshotstore operation: snapshot finder created").
			WithStringAttr("dialect", sqlengine.DialectSQLite3).
			WithStringAttr("snapshot_table", "jv_snapshot").
			WithStringAttr("commit_property_table", "jv_commit_property").
			Assert(),
	)
}

func Test_Observability_WithLogger_LogsQueries(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logHandler := spies.NewLogHandlerSpy(false)
	f := createFinder(t, sqlengine.WithLogger(slog.New(logHandler)))

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)
	logHandler.Reset()

	// act
	_, err := f.finder.GetStateHistory(ctxWithTimeout, history.employee, buildParams(t, snapshotstore.BuildQueryParams().LoadCommitProps()))

	// assert
	require.NoError(t, err)
	assert.Equal(t, 4, logHandler.GetRecordCount(), "three sql statements and one operation summary")
	assert.True(t, logHandler.HasDebugLogWithMessage("executed sql for: select global id").WithDurationMS().WithAttr("query").Assert())
	assert.True(t, logHandler.HasDebugLogWithMessage("executed sql for: select snapshots").WithDurationMS().Assert())
	assert.True(t, logHandler.HasDebugLogWithMessage("executed sql for: select commit properties").WithDurationMS().Assert())
	assert.True(t,
		logHandler.HasInfoLogWithMessage("snapshotstore operation: snapshots found").
			WithStringAttr("operation", "get_state_history").
			WithSnapshotCount(3).
			WithDurationMS().
			Assert(),
	)
}

func Test_Observability_WithLogger_UnknownGlobalIDIsNotAnError(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logHandler := spies.NewLogHandlerSpy(false)
	f := createFinder(t, sqlengine.WithLogger(slog.New(logHandler)))

	// act
	_, err := f.finder.GetStateHistory(ctxWithTimeout, snapshotstore.InstanceID("Employee", "ghost"), defaultParams(t))

	// assert
	require.NoError(t, err)
	assert.True(t,
		logHandler.HasDebugLogWithMessage("global id is unknown, returning no snapshots").
			WithStringAttr("global_id", "Employee/ghost").
			Assert(),
	)
	assert.Zero(t, logHandler.CountRecords(slog.LevelError, "failed to resolve global id"))
	assert.Zero(t, logHandler.CountRecords(slog.LevelDebug, "executed sql for: select snapshots"), "no snapshot query for unknown ids")
	assert.True(t, logHandler.HasInfoLogWithMessage("snapshotstore operation: snapshots found").WithSnapshotCount(0).Assert())
}

func Test_Observability_WithLogger_LimitZeroRunsNoQuery(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logHandler := spies.NewLogHandlerSpy(false)
	f := createFinder(t, sqlengine.WithLogger(slog.New(logHandler)))

	// arrange
	givenEmployeeHistory(t, f.fixtures)

	// act
	snapshots, err := f.finder.GetSnapshots(ctxWithTimeout, buildParams(t, snapshotstore.WithLimit(0)))

	// assert
	require.NoError(t, err)
	assert.Empty(t, snapshots)
	assert.Zero(t, logHandler.CountRecords(slog.LevelDebug, "executed sql for: select snapshots"))
}

func Test_Observability_WithContextualLogger_LogsQueries(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logHandler := spies.NewLogHandlerSpy(false)
	f := createFinder(t, sqlengine.WithContextualLogger(slog.New(logHandler)))

	// arrange
	givenEmployeeHistory(t, f.fixtures)
	logHandler.Reset()

	// act
	_, err := f.finder.GetSnapshots(ctxWithTimeout, defaultParams(t))

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, logHandler.GetRecordCount())
	assert.True(t, logHandler.HasDebugLogWithMessage("executed sql for: select snapshots").WithDurationMS().Assert())
	assert.True(t, logHandler.HasInfoLogWithMessage("snapshotstore operation: snapshots found").WithSnapshotCount(3).Assert())
}

func Test_Observability_WithLogger_LogsStoreFailuresAsErrors(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logHandler := spies.NewLogHandlerSpy(false)
	f := createFinder(t, sqlengine.WithLogger(slog.New(logHandler)))

	// arrange
	require.NoError(t, f.db.Close())

	// act
	_, err := f.finder.GetSnapshots(ctxWithTimeout, defaultParams(t))

	// assert
	require.Error(t, err)
	assert.True(t, logHandler.HasErrorLogWithMessage("database query execution failed").WithAttr("error").WithAttr("query").Assert())
}

func Test_Observability_WithMetrics_RecordsSuccess(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metrics := spies.NewMetricsCollectorSpy()
	f := createFinder(t, sqlengine.WithMetrics(metrics))

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)

	// act
	_, err := f.finder.GetStateHistory(ctxWithTimeout, history.employee, defaultParams(t))

	// assert
	require.NoError(t, err)
	assert.True(t,
		metrics.HasDurationRecordForMetric("snapshotstore_query_duration_seconds").
			WithOperation("get_state_history").
			WithStatus("success").
			Assert(),
	)
	assert.True(t,
		metrics.HasValueRecordForMetric("snapshotstore_snapshots_queried").
			WithOperation("get_state_history").
			Assert(),
	)
	require.Len(t, metrics.GetValueRecords(), 1)
	assert.Equal(t, 3.0, metrics.GetValueRecords()[0].Value)
	assert.Empty(t, metrics.GetCounterRecords())
}

func Test_Observability_WithMetrics_RecordsErrorsByKind(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metrics := spies.NewMetricsCollectorSpy()
	f := createFinder(t, sqlengine.WithMetrics(metrics))

	// act
	_, invalidErr := f.finder.Find(ctxWithTimeout, snapshotstore.SnapshotTarget{}, defaultParams(t))
	require.NoError(t, f.db.Close())
	_, storeErr := f.finder.GetSnapshots(ctxWithTimeout, defaultParams(t))

	// assert
	require.Error(t, invalidErr)
	require.Error(t, storeErr)
	assert.True(t,
		metrics.HasCounterRecordForMetric("snapshotstore_database_errors_total").
			WithOperation("find").
			WithErrorType("invalid_query").
			Assert(),
	)
	assert.True(t,
		metrics.HasCounterRecordForMetric("snapshotstore_database_errors_total").
			WithOperation("get_snapshots").
			WithErrorType("store_failure").
			Assert(),
	)
	assert.True(t,
		metrics.HasDurationRecordForMetric("snapshotstore_query_duration_seconds").
			WithStatus("error").
			Assert(),
	)
}

func Test_Observability_WithContextualMetrics_PrefersContextMethods(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	metrics := spies.NewContextualMetricsCollectorSpy()
	f := createFinder(t, sqlengine.WithMetrics(metrics))

	// act
	_, err := f.finder.GetSnapshots(ctxWithTimeout, defaultParams(t))

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.GetContextualCallCount(), "duration and value are recorded with context")
}

func Test_Observability_WithTracing_CreatesOneSpanPerOperation(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tracing := spies.NewTracingCollectorSpy()
	f := createFinder(t, sqlengine.WithTracing(tracing))

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)

	// act
	_, historyErr := f.finder.GetStateHistory(ctxWithTimeout, history.employee, defaultParams(t))
	_, _, latestErr := f.finder.GetLatest(ctxWithTimeout, history.employee, false)
	_, invalidErr := f.finder.GetStateHistoryOfTypes(ctxWithTimeout, nil, defaultParams(t))

	// assert
	require.NoError(t, historyErr)
	require.NoError(t, latestErr)
	require.Error(t, invalidErr)
	assert.Len(t, tracing.GetSpanRecords(), 3)
	assert.True(t,
		tracing.HasSpanRecordForName("snapshotstore.get_state_history").
			WithStartAttribute("target_kind", "global_id").
			WithStatus("success").
			WithEndAttribute("snapshot_count", "3").
			WithSpanAttribute("duration_ms").
			Assert(),
	)
	assert.True(t,
		tracing.HasSpanRecordForName("snapshotstore.get_latest").
			WithStatus("success").
			WithEndAttribute("snapshot_count", "1").
			Assert(),
	)
	assert.True(t,
		tracing.HasSpanRecordForName("snapshotstore.get_state_history_of_types").
			WithStartAttribute("target_kind", "managed_types").
			WithStatus("error").
			WithEndAttribute("error_type", "invalid_query").
			Assert(),
	)
}
