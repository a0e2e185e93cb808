package snapshotstore

import (
	"strconv"
)

const fragmentSeparator = "/"

// IndexableContext exposes the position of the element currently visited in an ordered container.
// It lives for exactly one traversal.
type IndexableContext struct {
	index int
}

// Index returns the zero-based input position of the current element.
func (c IndexableContext) Index() int {
	return c.index
}

func (c *IndexableContext) incIndex() {
	c.index++
}

// OwnerContext describes where a value is located while an object graph is traversed:
// the owning object and the property holding the value. Inside an indexed traversal it also
// carries the IndexableContext of the current element.
type OwnerContext struct {
	owner        GlobalID
	propertyName string
	indexable    IndexableContext
	isIndexed    bool
}

// NewOwnerContext creates the context for values held by propertyName of owner.
func NewOwnerContext(owner GlobalID, propertyName string) *OwnerContext {
	return &OwnerContext{owner: owner, propertyName: propertyName}
}

func (oc OwnerContext) Owner() GlobalID {
	return oc.owner
}

func (oc OwnerContext) PropertyName() string {
	return oc.propertyName
}

// Index returns the position of the current element, ok is false outside an indexed traversal.
func (oc OwnerContext) Index() (index int, ok bool) {
	return oc.indexable.Index(), oc.isIndexed
}

// Fragment is the path of the current value within its owner: "<property>" or "<property>/<index>".
// When the owner is itself a ValueObject, its fragment is prepended, like "address/lines/0".
func (oc OwnerContext) Fragment() string {
	fragment := oc.propertyName
	if oc.isIndexed {
		fragment += fragmentSeparator + strconv.Itoa(oc.indexable.Index())
	}

	if oc.owner.Owner != nil {
		return oc.owner.Fragment + fragmentSeparator + fragment
	}

	return fragment
}

// ValueObjectID builds the GlobalID of the value currently located by this context,
// always owned by the Entity at the root.
func (oc OwnerContext) ValueObjectID(typeName string) GlobalID {
	return ValueObjectID(typeName, oc.owner.Root(), oc.Fragment())
}

func (oc OwnerContext) withIndexable(indexable IndexableContext) OwnerContext {
	oc.indexable = indexable
	oc.isIndexed = true

	return oc
}

// MapIndexed applies transform to every element of source, left to right, exactly once, and returns the
// results in input order. Each call receives a copy of owner carrying the element's input position,
// starting at 0 and incremented after every call no matter what transform returns.
//
// The returned slice is newly allocated and shares nothing with source.
// A nil source, transform or owner is rejected before transform is called.
func MapIndexed[S any, T any](
	source []S,
	transform func(element S, owner OwnerContext) T,
	owner *OwnerContext,
) ([]T, error) {

	switch {
	case source == nil:
		return nil, preconditionViolated(ErrNilSource)
	case transform == nil:
		return nil, preconditionViolated(ErrNilTransform)
	case owner == nil:
		return nil, preconditionViolated(ErrNilOwnerContext)
	}

	target := make([]T, 0, len(source))
	indexable := IndexableContext{}

	for _, element := range source {
		target = append(target, transform(element, owner.withIndexable(indexable)))
		indexable.incIndex()
	}

	return target, nil
}
