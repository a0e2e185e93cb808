package snapshotstore

import (
	"errors"
)

const (
	instanceIDSeparator    = "/"
	valueObjectIDSeparator = "#"
)

// GlobalID is the address of a stored object.
//
// An Entity is addressed by its type name and local (business) id.
// An owned ValueObject is addressed relative to its owner by a fragment path like "address" or "items/0".
// Exactly one of LocalID or (Owner + Fragment) is set on a valid GlobalID, and the Owner is an Entity.
//
// While its properties are exported, it should only be constructed with the supplied factory methods:
//   - InstanceID
//   - ValueObjectID
type GlobalID struct {
	TypeName string
	LocalID  string
	Owner    *GlobalID
	Fragment string
}

// InstanceID builds the GlobalID of an Entity.
func InstanceID(typeName string, localID string) GlobalID {
	return GlobalID{TypeName: typeName, LocalID: localID}
}

// ValueObjectID builds the GlobalID of a ValueObject owned by the given owner and located at fragment.
func ValueObjectID(typeName string, owner GlobalID, fragment string) GlobalID {
	return GlobalID{TypeName: typeName, Owner: &owner, Fragment: fragment}
}

// Validate checks the identity invariant. A ValueObject is always owned by an Entity,
// deeper nesting is expressed by the fragment path, like "address/street".
func (id GlobalID) Validate() error {
	if id.TypeName == "" {
		return errors.Join(ErrInvalidQuery, ErrEmptyTypeName)
	}

	if id.Owner == nil {
		if id.LocalID == "" || id.Fragment != "" {
			return errors.Join(ErrInvalidQuery, ErrInvalidGlobalID)
		}

		return nil
	}

	if id.LocalID != "" || id.Fragment == "" {
		return errors.Join(ErrInvalidQuery, ErrInvalidGlobalID)
	}

	if id.Owner.Owner != nil {
		return errors.Join(ErrInvalidQuery, ErrValueObjectOwnedByValueObject)
	}

	return id.Owner.Validate()
}

// IsInstance reports whether the id addresses an independently identified Entity.
func (id GlobalID) IsInstance() bool {
	return id.LocalID != ""
}

// IsValueObject reports whether the id addresses a ValueObject positioned within its owner.
func (id GlobalID) IsValueObject() bool {
	return id.Owner != nil
}

// Root returns the owning Entity id of a ValueObject, or the id itself for an Entity.
func (id GlobalID) Root() GlobalID {
	if id.Owner != nil {
		return *id.Owner
	}

	return id
}

// Value renders the id as "Type/localId" for entities and "<owner>#<fragment>" for value objects.
func (id GlobalID) Value() string {
	if id.Owner != nil {
		return id.Owner.Value() + valueObjectIDSeparator + id.Fragment
	}

	return id.TypeName + instanceIDSeparator + id.LocalID
}

func (id GlobalID) String() string {
	return id.Value()
}

// Equal compares two ids structurally, including their owners.
func (id GlobalID) Equal(other GlobalID) bool {
	if id.TypeName != other.TypeName || id.LocalID != other.LocalID || id.Fragment != other.Fragment {
		return false
	}

	if id.Owner == nil || other.Owner == nil {
		return id.Owner == nil && other.Owner == nil
	}

	return id.Owner.Equal(*other.Owner)
}
