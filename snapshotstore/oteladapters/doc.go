// Package oteladapters provides OpenTelemetry implementations of the snapshotstore observability interfaces.
//
// The adapters plug directly into the options of the SQL engine:
//
//	tracer := otel.Tracer("snapshot-history")
//	meter := otel.Meter("snapshot-history")
//
//	finder, _ := sqlengine.NewSnapshotFinderFromPGXPool(
//		pool,
//		sqlengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("snapshotstore")),
//		sqlengine.WithMetrics(oteladapters.NewMetricsCollector(meter)),
//		sqlengine.WithTracing(oteladapters.NewTracingCollector(tracer)),
//	)
//
// Durations are recorded as histograms in seconds, counters as Int64 counters,
// and snapshot counts as gauges.
package oteladapters
