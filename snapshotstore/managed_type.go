package snapshotstore

// ManagedTypeKind declares how instances of a managed type are identified.
type ManagedTypeKind int

const (
	// EntityKind types have a natural id and are addressed with InstanceID.
	EntityKind ManagedTypeKind = iota

	// ValueObjectKind types have no id of their own and are addressed relative to an owner.
	ValueObjectKind
)

func (k ManagedTypeKind) String() string {
	switch k {
	case EntityKind:
		return "Entity"
	case ValueObjectKind:
		return "ValueObject"
	default:
		return "unknown"
	}
}

// ManagedType is a logical type tracked by the audit trail.
// Its kind is declared by the caller, it is never derived at runtime.
type ManagedType struct {
	Name string
	Kind ManagedTypeKind
}

// EntityType declares a managed Entity type.
func EntityType(name string) ManagedType {
	return ManagedType{Name: name, Kind: EntityKind}
}

// ValueObjectType declares a managed ValueObject type.
func ValueObjectType(name string) ManagedType {
	return ManagedType{Name: name, Kind: ValueObjectKind}
}

// IsEntity reports whether the type is an Entity.
func (mt ManagedType) IsEntity() bool {
	return mt.Kind == EntityKind
}

// ManagedTypeNames returns the names of the given types, in input order.
func ManagedTypeNames(types []ManagedType) []string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.Name)
	}

	return names
}
