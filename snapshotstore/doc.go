// Package snapshotstore provides the core model and query abstractions of an object audit trail:
// immutable, versioned snapshots of entities and value objects grouped into commits.
//
// This package defines the types shared by the storage engines, including global ids,
// commits, snapshots, query parameters, target selectors, the commit property enricher,
// and common error definitions.
//
// Snapshots can be queried by:
//   - A single GlobalID (optionally widened to its aggregate of owned value objects)
//   - A batch of (GlobalID, version) identifiers
//   - A set of managed types
//   - A value object property across all owners of an entity type
//   - Nothing at all (any snapshot)
//
// Every query is further narrowed by QueryParams and is always bounded by a limit.
//
// Common usage pattern:
//
//	params, err := BuildQueryParams().
//		Author("alice").
//		SnapshotType(SnapshotTypeUpdate).
//		Limit(20).
//		Aggregate().
//		Build()
//	if err != nil {
//		// handle error
//	}
//
//	snapshots, err := finder.GetStateHistory(ctx, InstanceID("Employee", "bob"), params)
package snapshotstore
