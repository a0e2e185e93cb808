package sqlengine_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore/sqlengine"
	"github.com/AntonStoeckl/cdo-snapshot-store-go/testutil/sqlitefixtures"
)

type finderFixture struct {
	db       *sql.DB
	finder   sqlengine.SnapshotFinder
	fixtures *sqlitefixtures.Fixtures
}

func createFinder(t *testing.T, options ...sqlengine.Option) finderFixture {
	t.Helper()

	db := sqlitefixtures.NewInMemoryDB(t)

	allOptions := append([]sqlengine.Option{sqlengine.WithDialect(sqlengine.DialectSQLite3)}, options...)
	finder, err := sqlengine.NewSnapshotFinderFromSQLDB(db, allOptions...)
	require.NoError(t, err)

	return finderFixture{
		db:       db,
		finder:   finder,
		fixtures: sqlitefixtures.NewFixtures(t, db),
	}
}

func buildParams(t *testing.T, builder snapshotstore.QueryParamsBuilder) snapshotstore.QueryParams {
	t.Helper()

	built, err := builder.Build()
	require.NoError(t, err)

	return built
}

func defaultParams(t *testing.T) snapshotstore.QueryParams {
	t.Helper()

	return buildParams(t, snapshotstore.BuildQueryParams())
}

func day(n int) time.Time {
	return time.Date(2024, time.March, n, 9, 30, 0, 0, time.UTC)
}

func versionsOf(snapshots []snapshotstore.CdoSnapshot) []uint64 {
	versions := make([]uint64, 0, len(snapshots))
	for _, snapshot := range snapshots {
		versions = append(versions, snapshot.Version)
	}

	return versions
}

func globalIDValuesOf(snapshots []snapshotstore.CdoSnapshot) []string {
	values := make([]string, 0, len(snapshots))
	for _, snapshot := range snapshots {
		values = append(values, snapshot.GlobalID.Value())
	}

	return values
}

// employeeHistory is the history of one employee over three commits:
//
//	v1 INITIAL by alice on day 1, changed name and salary
//	v2 UPDATE  by bob   on day 2, changed salary
//	v3 UPDATE  by alice on day 3, changed name
type employeeHistory struct {
	employee snapshotstore.GlobalID
	commits  []sqlitefixtures.CommitRef
}

func givenEmployeeHistory(t *testing.T, fixtures *sqlitefixtures.Fixtures) employeeHistory {
	t.Helper()

	employee := snapshotstore.InstanceID("Employee", sqlitefixtures.GivenUniqueID())

	c1 := fixtures.GivenCommit("alice", day(1))
	fixtures.GivenSnapshot(c1, employee, snapshotstore.SnapshotTypeInitial, `{"name":"Bob","salary":100}`, "name", "salary")

	c2 := fixtures.GivenCommit("bob", day(2))
	fixtures.GivenSnapshot(c2, employee, snapshotstore.SnapshotTypeUpdate, `{"name":"Bob","salary":120}`, "salary")

	c3 := fixtures.GivenCommit("alice", day(3))
	fixtures.GivenSnapshot(c3, employee, snapshotstore.SnapshotTypeUpdate, `{"name":"Robert","salary":120}`, "name")

	return employeeHistory{employee: employee, commits: []sqlitefixtures.CommitRef{c1, c2, c3}}
}

// givenItems writes one snapshot per item, each addressed as a value object at "items/<index>" of owner.
func givenItems(
	t *testing.T,
	fixtures *sqlitefixtures.Fixtures,
	commit sqlitefixtures.CommitRef,
	owner snapshotstore.GlobalID,
	items ...string,
) []snapshotstore.GlobalID {

	t.Helper()

	ids, err := snapshotstore.MapIndexed(
		items,
		func(_ string, ownerContext snapshotstore.OwnerContext) snapshotstore.GlobalID {
			return ownerContext.ValueObjectID("Item")
		},
		snapshotstore.NewOwnerContext(owner, "items"),
	)
	require.NoError(t, err)

	for i, id := range ids {
		fixtures.GivenSnapshot(commit, id, snapshotstore.SnapshotTypeInitial, `{"label":"`+items[i]+`"}`, "label")
	}

	return ids
}
