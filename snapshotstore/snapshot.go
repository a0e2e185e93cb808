package snapshotstore

import (
	"encoding/json"
	"slices"
)

// SnapshotType describes the role of a snapshot in the lifecycle of its object.
type SnapshotType string

const (
	SnapshotTypeInitial  SnapshotType = "INITIAL"
	SnapshotTypeUpdate   SnapshotType = "UPDATE"
	SnapshotTypeTerminal SnapshotType = "TERMINAL"
)

// IsValid reports whether t is one of the known snapshot types.
func (t SnapshotType) IsValid() bool {
	switch t {
	case SnapshotTypeInitial, SnapshotTypeUpdate, SnapshotTypeTerminal:
		return true
	default:
		return false
	}
}

// CdoSnapshot is one immutable, versioned state of one addressable object.
//
// Versions of one GlobalID start at 1 and are gapless, a TERMINAL snapshot is always the last one.
type CdoSnapshot struct {
	GlobalID          GlobalID
	Commit            CommitMetadata
	Version           uint64
	Type              SnapshotType
	ManagedType       string
	State             json.RawMessage
	ChangedProperties []string
}

// IsInitial reports whether this is the first snapshot of its object.
func (s CdoSnapshot) IsInitial() bool {
	return s.Type == SnapshotTypeInitial
}

// IsTerminal reports whether this snapshot records the removal of its object.
func (s CdoSnapshot) IsTerminal() bool {
	return s.Type == SnapshotTypeTerminal
}

// HasChangedProperty reports whether the property differs from the previous snapshot.
func (s CdoSnapshot) HasChangedProperty(name string) bool {
	return slices.Contains(s.ChangedProperties, name)
}

// Identifier returns the (GlobalID, Version) pair of this snapshot.
func (s CdoSnapshot) Identifier() SnapshotIdentifier {
	return SnapshotIdentifier{GlobalID: s.GlobalID, Version: s.Version}
}

// SerializedSnapshot is the row form of a snapshot as it comes from the store,
// before the state converter turns it into a CdoSnapshot.
type SerializedSnapshot struct {
	SnapshotPK        SnapshotPK
	GlobalID          GlobalID
	ManagedType       string
	Version           uint64
	Type              SnapshotType
	State             []byte
	ChangedProperties []byte
	CommitPK          CommitPK
	Commit            CommitMetadata
}

// SnapshotIdentifier addresses one version of one object.
type SnapshotIdentifier struct {
	GlobalID GlobalID
	Version  uint64
}

// SI is a short factory for SnapshotIdentifier.
func SI(globalID GlobalID, version uint64) SnapshotIdentifier {
	return SnapshotIdentifier{GlobalID: globalID, Version: version}
}
