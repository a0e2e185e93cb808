package snapshotstore

import (
	"errors"
	"slices"
)

// TargetKind tags the variant held by a SnapshotTarget.
type TargetKind int

const (
	targetUnset TargetKind = iota
	TargetAny
	TargetGlobalID
	TargetIdentifiers
	TargetManagedTypes
	TargetValueObjectOwner
)

func (k TargetKind) String() string {
	switch k {
	case TargetAny:
		return "any"
	case TargetGlobalID:
		return "global_id"
	case TargetIdentifiers:
		return "identifiers"
	case TargetManagedTypes:
		return "managed_types"
	case TargetValueObjectOwner:
		return "value_object_owner"
	default:
		return "unset"
	}
}

// SnapshotTarget selects which objects a snapshot query is about. Exactly one selector is held,
// use the factory functions to build it:
//   - AnySnapshots
//   - SnapshotsOf
//   - SnapshotsIdentifiedBy
//   - SnapshotsOfTypes
//   - ValueObjectsOf
type SnapshotTarget struct {
	kind         TargetKind
	globalID     GlobalID
	identifiers  []SnapshotIdentifier
	managedTypes []ManagedType
	ownerEntity  ManagedType
	fragment     string
}

// AnySnapshots does not restrict the identity, only the QueryParams apply.
func AnySnapshots() SnapshotTarget {
	return SnapshotTarget{kind: TargetAny}
}

// SnapshotsOf selects the history of one object, or of its aggregate if QueryParams ask for it.
func SnapshotsOf(globalID GlobalID) SnapshotTarget {
	return SnapshotTarget{kind: TargetGlobalID, globalID: globalID}
}

// SnapshotsIdentifiedBy selects an explicit batch of snapshot versions.
func SnapshotsIdentifiedBy(identifiers ...SnapshotIdentifier) SnapshotTarget {
	return SnapshotTarget{kind: TargetIdentifiers, identifiers: slices.Clone(identifiers)}
}

// SnapshotsOfTypes selects all snapshots of root objects of the given types.
func SnapshotsOfTypes(managedTypes ...ManagedType) SnapshotTarget {
	return SnapshotTarget{kind: TargetManagedTypes, managedTypes: slices.Clone(managedTypes)}
}

// ValueObjectsOf selects the value objects stored at fragment (or below it) of any instance of ownerEntity.
func ValueObjectsOf(ownerEntity ManagedType, fragment string) SnapshotTarget {
	return SnapshotTarget{kind: TargetValueObjectOwner, ownerEntity: ownerEntity, fragment: fragment}
}

func (t SnapshotTarget) Kind() TargetKind {
	return t.kind
}

func (t SnapshotTarget) GlobalID() GlobalID {
	return t.globalID
}

func (t SnapshotTarget) Identifiers() []SnapshotIdentifier {
	return slices.Clone(t.identifiers)
}

func (t SnapshotTarget) ManagedTypes() []ManagedType {
	return slices.Clone(t.managedTypes)
}

func (t SnapshotTarget) OwnerEntity() ManagedType {
	return t.ownerEntity
}

func (t SnapshotTarget) Fragment() string {
	return t.fragment
}

// Validate rejects unset targets and selectors that can not address anything.
func (t SnapshotTarget) Validate() error {
	switch t.kind {
	case TargetAny:
		return nil

	case TargetGlobalID:
		return t.globalID.Validate()

	case TargetIdentifiers:
		for _, identifier := range t.identifiers {
			if err := identifier.GlobalID.Validate(); err != nil {
				return err
			}
		}

		return nil

	case TargetManagedTypes:
		if len(t.managedTypes) == 0 {
			return errors.Join(ErrInvalidQuery, ErrInvalidTarget)
		}

		for _, managedType := range t.managedTypes {
			if managedType.Name == "" {
				return errors.Join(ErrInvalidQuery, ErrEmptyTypeName)
			}
		}

		return nil

	case TargetValueObjectOwner:
		if t.ownerEntity.Name == "" || !t.ownerEntity.IsEntity() || t.fragment == "" {
			return errors.Join(ErrInvalidQuery, ErrInvalidTarget)
		}

		return nil

	default:
		return errors.Join(ErrInvalidQuery, ErrInvalidTarget)
	}
}
