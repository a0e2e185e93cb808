package snapshotstore

import "context"

// ConsistencyLevel defines which database node snapshot queries may be served from.
type ConsistencyLevel int

const (
	// StrongConsistency reads from the primary database, so a history query sees
	// every commit written before it. This is the default.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from a replica database. Audit screens and reports
	// that tolerate slightly stale history can use it to take load off the primary.
	EventualConsistency
)

// contextKey is a private type to prevent context key collisions.
type contextKey string

// ConsistencyLevelKey is the context key used to store consistency level preferences.
const ConsistencyLevelKey contextKey = "snapshotstore.consistency_level"

// WithStrongConsistency returns a context that routes snapshot queries to the primary database.
//
// Example usage:
//
//	ctx = snapshotstore.WithStrongConsistency(ctx)
//	latest, found, err := finder.GetLatest(ctx, globalID, false)
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that allows snapshot queries to be served by a replica.
//
// Example usage:
//
//	ctx = snapshotstore.WithEventualConsistency(ctx)
//	history, err := finder.GetStateHistory(ctx, globalID, params)
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context.
// If no consistency level is set, it returns StrongConsistency.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

// String provides a string representation of ConsistencyLevel for logging and debugging.
func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
