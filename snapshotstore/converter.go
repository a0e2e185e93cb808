package snapshotstore

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
)

// StateConverter turns a SerializedSnapshot into a CdoSnapshot.
type StateConverter interface {
	FromSerializedSnapshot(serialized SerializedSnapshot) (CdoSnapshot, error)
}

// JSONStateConverter keeps the state as validated raw JSON and decodes the changed properties,
// which are stored as a JSON array of property names.
type JSONStateConverter struct{}

// FromSerializedSnapshot implements StateConverter.
func (JSONStateConverter) FromSerializedSnapshot(serialized SerializedSnapshot) (CdoSnapshot, error) {
	if !jsoniter.ConfigFastest.Valid(serialized.State) {
		return CdoSnapshot{}, ErrInvalidSnapshotState
	}

	changedProperties := make([]string, 0)
	if len(serialized.ChangedProperties) > 0 {
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(serialized.ChangedProperties, &changedProperties); err != nil {
			return CdoSnapshot{}, errors.Join(ErrInvalidChangedProperties, err)
		}
	}

	state := make([]byte, len(serialized.State))
	copy(state, serialized.State)

	return CdoSnapshot{
		GlobalID:          serialized.GlobalID,
		Commit:            serialized.Commit,
		Version:           serialized.Version,
		Type:              serialized.Type,
		ManagedType:       serialized.ManagedType,
		State:             state,
		ChangedProperties: changedProperties,
	}, nil
}

// DecodeState unmarshals the snapshot state into v.
func (s CdoSnapshot) DecodeState(v any) error {
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(s.State, v); err != nil {
		return errors.Join(ErrInvalidSnapshotState, err)
	}

	return nil
}
