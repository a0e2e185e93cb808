package sqlengine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
)

const (
	logMsgBuildQueryFailed          = "failed to build select query"
	logMsgDBQueryFailed             = "database query execution failed"
	logMsgCloseRowsFailed           = "failed to close database rows"
	logMsgScanRowFailed             = "failed to scan database row"
	logMsgRowIterationFailed        = "database row iteration failed"
	logMsgConvertSnapshotFailed     = "failed to convert serialized snapshot"
	logMsgInconsistentRow           = "stored row is inconsistent"
	logMsgResolveGlobalIDFailed     = "failed to resolve global id"
	logMsgFetchCommitPropsFailed    = "failed to fetch commit properties"
	logMsgInvalidQuery              = "invalid snapshot query rejected"
	logMsgUnknownGlobalID           = "global id is unknown, returning no snapshots"
	logMsgFinderCreated             = "snapshot finder created"
	logMsgSnapshotsFound            = "snapshots found"
	logMsgSQLExecuted               = "executed sql for: "
	logMsgOperation                 = "snapshotstore operation: "
	logAttrError                    = "error"
	logAttrQuery                    = "query"
	logAttrOperation                = "operation"
	logAttrGlobalID                 = "global_id"
	logAttrSnapshotCount            = "snapshot_count"
	logAttrDurationMS               = "duration_ms"
	logAttrDialect                  = "dialect"
	logAttrSnapshotTable            = "snapshot_table"
	logAttrCommitTable              = "commit_table"
	logAttrGlobalIDTable            = "global_id_table"
	logAttrCommitPropertyTable      = "commit_property_table"
	logActionSelectSnapshots        = "select snapshots"
	logActionSelectMaxVersion       = "select max version"
	logActionSelectGlobalID         = "select global id"
	logActionSelectCommitProperties = "select commit properties"

	metricQueryDuration    = "snapshotstore_query_duration_seconds"
	metricSnapshotsQueried = "snapshotstore_snapshots_queried"
	metricDatabaseErrors   = "snapshotstore_database_errors_total"

	spanNamePrefix        = "snapshotstore."
	spanAttrOperation     = "operation"
	spanAttrTargetKind    = "target_kind"
	spanAttrSnapshotCount = "snapshot_count"
	spanAttrDurationMS    = "duration_ms"
	spanAttrErrorType     = "error_type"
	labelStatus           = "status"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeInvalidQuery  = "invalid_query"
	errorTypeStoreFailure  = "store_failure"
	errorTypeInconsistency = "inconsistency"
	errorTypePrecondition  = "precondition_violated"
	errorTypeCanceled      = "canceled"
	errorTypeUnknown       = "unknown"

	operationGetLatest                  = "get_latest"
	operationGetSnapshots               = "get_snapshots"
	operationGetSnapshotsByIdentifiers  = "get_snapshots_by_identifiers"
	operationGetStateHistoryOfTypes     = "get_state_history_of_types"
	operationGetValueObjectStateHistory = "get_value_object_state_history"
	operationGetStateHistory            = "get_state_history"
	operationFind                       = "find"
)

// classifyError maps an error to the error_type label used for logs, metrics and spans.
func classifyError(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorTypeCanceled
	case errors.Is(err, snapshotstore.ErrInvalidQuery):
		return errorTypeInvalidQuery
	case errors.Is(err, snapshotstore.ErrInconsistency):
		return errorTypeInconsistency
	case errors.Is(err, snapshotstore.ErrStoreFailure):
		return errorTypeStoreFailure
	case errors.Is(err, snapshotstore.ErrPreconditionViolated):
		return errorTypePrecondition
	default:
		return errorTypeUnknown
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func formatMilliseconds(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d.Nanoseconds())/1e6)
}

/***** logging *****/

// observer bundles the optional observability collaborators shared by the finder and its SQL collaborators.
type observer struct {
	logger           snapshotstore.Logger
	contextualLogger snapshotstore.ContextualLogger
	metricsCollector snapshotstore.MetricsCollector
	tracingCollector snapshotstore.TracingCollector
}

// logQueryWithDuration logs SQL queries with execution time at debug level if a logger is configured.
func (o observer) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	if o.logger != nil {
		o.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}

	if o.contextualLogger != nil {
		o.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

func (o observer) logDebug(ctx context.Context, message string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(message, args...)
	}

	if o.contextualLogger != nil {
		o.contextualLogger.DebugContext(ctx, message, args...)
	}
}

// logOperation logs operational information at info level.
func (o observer) logOperation(ctx context.Context, action string, args ...any) {
	if o.logger != nil {
		o.logger.Info(logMsgOperation+action, args...)
	}

	if o.contextualLogger != nil {
		o.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical problems like cleanup failures.
func (o observer) logWarn(ctx context.Context, message string, err error) {
	if o.logger != nil {
		o.logger.Warn(message, logAttrError, err.Error())
	}

	if o.contextualLogger != nil {
		o.contextualLogger.WarnContext(ctx, message, logAttrError, err.Error())
	}
}

// logError logs failures at error level.
func (o observer) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if o.logger != nil {
		o.logger.Error(message, allArgs...)
	}

	if o.contextualLogger != nil {
		o.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

/***** metrics *****/

func (o observer) recordDurationMetrics(ctx context.Context, duration time.Duration, operation, status string) {
	if o.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       status,
	}

	if contextualCollector, ok := o.metricsCollector.(snapshotstore.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricQueryDuration, duration, labels)
		return
	}

	o.metricsCollector.RecordDuration(metricQueryDuration, duration, labels)
}

func (o observer) recordValueMetrics(ctx context.Context, value float64, operation, status string) {
	if o.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       status,
	}

	if contextualCollector, ok := o.metricsCollector.(snapshotstore.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metricSnapshotsQueried, value, labels)
		return
	}

	o.metricsCollector.RecordValue(metricSnapshotsQueried, value, labels)
}

func (o observer) recordErrorMetrics(ctx context.Context, operation, errorType string) {
	if o.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		labelStatus:       statusError,
		spanAttrErrorType: errorType,
	}

	if contextualCollector, ok := o.metricsCollector.(snapshotstore.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
		return
	}

	o.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
}

/***** operation observer *****/

// operationObserver encapsulates the span lifecycle and metrics recording of one finder operation.
type operationObserver struct {
	observer
	ctx       context.Context
	operation string
	span      snapshotstore.SpanContext
	start     time.Time
}

// startOperation opens the span of a finder operation and returns the context to continue with.
func (o observer) startOperation(
	ctx context.Context,
	operation string,
	targetKind snapshotstore.TargetKind,
) (*operationObserver, context.Context) {

	var span snapshotstore.SpanContext

	if o.tracingCollector != nil {
		ctx, span = o.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, map[string]string{
			spanAttrOperation:  operation,
			spanAttrTargetKind: targetKind.String(),
		})
	}

	return &operationObserver{
		observer:  o,
		ctx:       ctx,
		operation: operation,
		span:      span,
		start:     time.Now(),
	}, ctx
}

// finishSuccess records metrics, the info log and the span outcome of a successful operation.
func (oo *operationObserver) finishSuccess(snapshotCount int) {
	duration := time.Since(oo.start)

	oo.recordDurationMetrics(oo.ctx, duration, oo.operation, statusSuccess)
	oo.recordValueMetrics(oo.ctx, float64(snapshotCount), oo.operation, statusSuccess)

	oo.logOperation(
		oo.ctx,
		logMsgSnapshotsFound,
		logAttrOperation, oo.operation,
		logAttrSnapshotCount, snapshotCount,
		logAttrDurationMS, toMilliseconds(duration),
	)

	if oo.span == nil {
		return
	}

	oo.span.SetStatus(statusSuccess)
	oo.span.AddAttribute(spanAttrDurationMS, formatMilliseconds(duration))

	oo.tracingCollector.FinishSpan(oo.span, statusSuccess, map[string]string{
		spanAttrSnapshotCount: fmt.Sprintf("%d", snapshotCount),
	})
}

// finishError records metrics and the span outcome of a failed operation and returns err unchanged.
func (oo *operationObserver) finishError(err error) error {
	duration := time.Since(oo.start)
	errorType := classifyError(err)

	oo.recordDurationMetrics(oo.ctx, duration, oo.operation, statusError)
	oo.recordErrorMetrics(oo.ctx, oo.operation, errorType)

	if oo.span == nil {
		return err
	}

	oo.span.SetStatus(statusError)
	oo.span.AddAttribute(spanAttrErrorType, errorType)
	oo.span.AddAttribute(spanAttrDurationMS, formatMilliseconds(duration))

	oo.tracingCollector.FinishSpan(oo.span, statusError, map[string]string{spanAttrErrorType: errorType})

	return err
}
