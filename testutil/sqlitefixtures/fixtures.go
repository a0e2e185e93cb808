package sqlitefixtures

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
)

// CommitRef points to a commit written by GivenCommit.
type CommitRef struct {
	PK   snapshotstore.CommitPK
	ID   snapshotstore.CommitID
	Date time.Time
}

// Fixtures writes rows into the audit tables. Commit ids and snapshot versions are assigned
// in ascending order, like a repository recording commits one after another would do.
type Fixtures struct {
	t           testing.TB
	db          *sql.DB
	dialect     goqu.DialectWrapper
	commitMajor uint64
	globalIDs   map[string]snapshotstore.GlobalIDPK
	versions    map[snapshotstore.GlobalIDPK]uint64
}

// NewFixtures creates Fixtures for a database prepared with CreateSchema.
func NewFixtures(t testing.TB, db *sql.DB) *Fixtures {
	return &Fixtures{
		t:         t,
		db:        db,
		dialect:   goqu.Dialect("sqlite3"),
		globalIDs: make(map[string]snapshotstore.GlobalIDPK),
		versions:  make(map[snapshotstore.GlobalIDPK]uint64),
	}
}

// GivenUniqueID returns a random local id.
func GivenUniqueID() string {
	return uuid.NewString()
}

// GivenCommit writes a commit with the next commit id and its properties.
func (f *Fixtures) GivenCommit(
	author string,
	commitDate time.Time,
	properties ...snapshotstore.CommitProperty,
) CommitRef {

	f.t.Helper()

	f.commitMajor++
	commitID, err := snapshotstore.NewCommitID(f.commitMajor, 0)
	require.NoError(f.t, err)

	commitDate = commitDate.UTC()

	commitPK := f.insert("jv_commit", goqu.Record{
		"author":              author,
		"commit_date":         commitDate,
		"commit_date_instant": commitDate.Format(time.RFC3339Nano),
		"commit_id":           commitID.Number(),
	})

	for _, property := range properties {
		f.insert("jv_commit_property", goqu.Record{
			"commit_fk":      commitPK,
			"property_name":  property.Name,
			"property_value": property.Value,
		})
	}

	return CommitRef{PK: commitPK, ID: commitID, Date: commitDate}
}

// GivenGlobalID writes the global id, and its owner first if needed, unless it exists already.
func (f *Fixtures) GivenGlobalID(globalID snapshotstore.GlobalID) snapshotstore.GlobalIDPK {
	f.t.Helper()

	require.NoError(f.t, globalID.Validate())

	if globalIDPK, ok := f.globalIDs[globalID.Value()]; ok {
		return globalIDPK
	}

	record := goqu.Record{"type_name": globalID.TypeName}

	if globalID.IsInstance() {
		record["local_id"] = globalID.LocalID
	} else {
		record["owner_id_fk"] = f.GivenGlobalID(*globalID.Owner)
		record["fragment"] = globalID.Fragment
	}

	globalIDPK := f.insert("jv_global_id", record)
	f.globalIDs[globalID.Value()] = globalIDPK

	return globalIDPK
}

// GivenSnapshot writes the next version of the object within commit.
func (f *Fixtures) GivenSnapshot(
	commit CommitRef,
	globalID snapshotstore.GlobalID,
	snapshotType snapshotstore.SnapshotType,
	state string,
	changedProperties ...string,
) snapshotstore.SnapshotPK {

	f.t.Helper()

	globalIDPK := f.GivenGlobalID(globalID)
	f.versions[globalIDPK]++

	if changedProperties == nil {
		changedProperties = make([]string, 0)
	}

	changed, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(changedProperties)
	require.NoError(f.t, err)

	return f.insert("jv_snapshot", goqu.Record{
		"type":               string(snapshotType),
		"version":            f.versions[globalIDPK],
		"state":              state,
		"changed_properties": string(changed),
		"managed_type":       globalID.TypeName,
		"global_id_fk":       globalIDPK,
		"commit_fk":          commit.PK,
	})
}

// GivenRawSnapshotRow writes a snapshot row as is, for inconsistent data scenarios.
func (f *Fixtures) GivenRawSnapshotRow(record goqu.Record) snapshotstore.SnapshotPK {
	f.t.Helper()

	return f.insert("jv_snapshot", record)
}

// GivenRawGlobalIDRow writes a global id row as is, for inconsistent data scenarios.
func (f *Fixtures) GivenRawGlobalIDRow(record goqu.Record) snapshotstore.GlobalIDPK {
	f.t.Helper()

	return f.insert("jv_global_id", record)
}

func (f *Fixtures) insert(table string, record goqu.Record) int64 {
	f.t.Helper()

	query, args, err := f.dialect.Insert(table).Prepared(true).Rows(record).ToSQL()
	require.NoError(f.t, err)

	result, err := f.db.ExecContext(context.Background(), query, args...)
	require.NoError(f.t, err)

	id, err := result.LastInsertId()
	require.NoError(f.t, err)

	return id
}
