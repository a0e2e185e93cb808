package sqlengine

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
)

var errUnsupportedTimeValue = errors.New("unsupported time value")

// storedTimeLayouts are the layouts drivers hand out when they return a timestamp column as text.
var storedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// dbTime scans timestamp columns from drivers that return time.Time as well as from those that return text.
type dbTime struct {
	time.Time
}

// Scan implements sql.Scanner.
func (t *dbTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("%w: %T", errUnsupportedTimeValue, value)
	}
}

func (t *dbTime) parse(value string) error {
	for _, layout := range storedTimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			t.Time = parsed
			return nil
		}
	}

	return fmt.Errorf("%w: %q", errUnsupportedTimeValue, value)
}

// snapshotRow mirrors the column list of snapshotQuery.baseSelect.
type snapshotRow struct {
	snapshotPK        int64
	state             []byte
	snapshotType      string
	version           int64
	changedProperties []byte
	managedType       sql.NullString
	commitPK          int64
	author            sql.NullString
	commitDate        dbTime
	commitDateInstant sql.NullString
	commitID          float64
	typeName          string
	localID           sql.NullString
	fragment          sql.NullString
	ownerIDFK         sql.NullInt64
	ownerTypeName     sql.NullString
	ownerLocalID      sql.NullString
}

func (r *snapshotRow) destinations() []any {
	return []any{
		&r.snapshotPK,
		&r.state,
		&r.snapshotType,
		&r.version,
		&r.changedProperties,
		&r.managedType,
		&r.commitPK,
		&r.author,
		&r.commitDate,
		&r.commitDateInstant,
		&r.commitID,
		&r.typeName,
		&r.localID,
		&r.fragment,
		&r.ownerIDFK,
		&r.ownerTypeName,
		&r.ownerLocalID,
	}
}

// toSerializedSnapshot reassembles the GlobalID and commit of a row.
// Rows whose identity or commit id can not be reassembled are reported as ErrInconsistency.
func (r *snapshotRow) toSerializedSnapshot() (snapshotstore.SerializedSnapshot, error) {
	globalID, globalIDErr := r.globalID()
	if globalIDErr != nil {
		return snapshotstore.SerializedSnapshot{}, globalIDErr
	}

	commitID, commitIDErr := snapshotstore.CommitIDFromNumber(r.commitID)
	if commitIDErr != nil {
		return snapshotstore.SerializedSnapshot{}, errors.Join(snapshotstore.ErrInconsistency, commitIDErr)
	}

	if r.version <= 0 {
		return snapshotstore.SerializedSnapshot{}, errors.Join(
			snapshotstore.ErrInconsistency,
			fmt.Errorf("snapshot %d has version %d", r.snapshotPK, r.version),
		)
	}

	commitDate := r.commitDate.Time
	commitDateInstant := commitDate

	if r.commitDateInstant.Valid && r.commitDateInstant.String != "" {
		instant := dbTime{}
		if err := instant.parse(r.commitDateInstant.String); err == nil {
			commitDateInstant = instant.Time
		}
	}

	managedType := globalID.TypeName
	if r.managedType.Valid && r.managedType.String != "" {
		managedType = r.managedType.String
	}

	return snapshotstore.SerializedSnapshot{
		SnapshotPK:        r.snapshotPK,
		GlobalID:          globalID,
		ManagedType:       managedType,
		Version:           uint64(r.version),
		Type:              snapshotstore.SnapshotType(r.snapshotType),
		State:             r.state,
		ChangedProperties: r.changedProperties,
		CommitPK:          r.commitPK,
		Commit: snapshotstore.CommitMetadata{
			ID:                commitID,
			Author:            r.author.String,
			Properties:        make([]snapshotstore.CommitProperty, 0),
			CommitDate:        commitDate,
			CommitDateInstant: commitDateInstant,
		},
	}, nil
}

func (r *snapshotRow) globalID() (snapshotstore.GlobalID, error) {
	if !r.ownerIDFK.Valid {
		if !r.localID.Valid || r.localID.String == "" {
			return snapshotstore.GlobalID{}, errors.Join(snapshotstore.ErrInconsistency, snapshotstore.ErrInconsistentGlobalID)
		}

		return snapshotstore.InstanceID(r.typeName, r.localID.String), nil
	}

	if !r.ownerTypeName.Valid || !r.ownerLocalID.Valid || r.ownerLocalID.String == "" ||
		!r.fragment.Valid || r.fragment.String == "" {

		return snapshotstore.GlobalID{}, errors.Join(snapshotstore.ErrInconsistency, snapshotstore.ErrInconsistentGlobalID)
	}

	owner := snapshotstore.InstanceID(r.ownerTypeName.String, r.ownerLocalID.String)

	return snapshotstore.ValueObjectID(r.typeName, owner, r.fragment.String), nil
}
