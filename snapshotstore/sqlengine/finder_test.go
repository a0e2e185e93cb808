package sqlengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/cdo-snapshot-store-go/snapshotstore"
	"github.com/AntonStoeckl/cdo-snapshot-store-go/testutil/sqlitefixtures"
)

func Test_GetStateHistory_ReturnsVersionsNewestFirst(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)
	givenEmployeeHistory(t, f.fixtures) // someone else

	// act
	snapshots, err := f.finder.GetStateHistory(ctxWithTimeout, history.employee, defaultParams(t))

	// assert
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	assert.Equal(t, []uint64{3, 2, 1}, versionsOf(snapshots))

	newest := snapshots[0]
	assert.True(t, newest.GlobalID.Equal(history.employee))
	assert.Equal(t, "Employee", newest.ManagedType)
	assert.Equal(t, snapshotstore.SnapshotTypeUpdate, newest.Type)
	assert.Equal(t, "alice", newest.Commit.Author)
	assert.Equal(t, history.commits[2].ID, newest.Commit.ID)
	assert.True(t, newest.Commit.CommitDate.Equal(day(3)))
	assert.True(t, newest.Commit.CommitDateInstant.Equal(day(3)))
	assert.JSONEq(t, `{"name":"Robert","salary":120}`, string(newest.State))
	assert.Equal(t, []string{"name"}, newest.ChangedProperties)
	assert.Empty(t, newest.Commit.Properties)

	oldest := snapshots[2]
	assert.True(t, oldest.IsInitial())
	assert.ElementsMatch(t, []string{"name", "salary"}, oldest.ChangedProperties)

	var state struct {
		Name   string `json:"name"`
		Salary int    `json:"salary"`
	}
	require.NoError(t, oldest.DecodeState(&state))
	assert.Equal(t, "Bob", state.Name)
	assert.Equal(t, 100, state.Salary)
}

func Test_GetStateHistory_PredicatesAreConjunctive(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)

	testCases := []struct {
		description      string
		params           snapshotstore.QueryParamsBuilder
		expectedVersions []uint64
	}{
		{"author", snapshotstore.BuildQueryParams().Author("alice"), []uint64{3, 1}},
		{"changed property", snapshotstore.BuildQueryParams().ChangedProperty("salary"), []uint64{2, 1}},
		{"author and changed property", snapshotstore.BuildQueryParams().Author("alice").ChangedProperty("salary"), []uint64{1}},
		{"author and snapshot type", snapshotstore.BuildQueryParams().Author("alice").SnapshotType(snapshotstore.SnapshotTypeUpdate), []uint64{3}},
		{"snapshot type initial", snapshotstore.BuildQueryParams().SnapshotType(snapshotstore.SnapshotTypeInitial), []uint64{1}},
		{"from", snapshotstore.BuildQueryParams().From(day(2)), []uint64{3, 2}},
		{"to", snapshotstore.BuildQueryParams().To(day(2)), []uint64{2, 1}},
		{"from and to", snapshotstore.BuildQueryParams().From(day(2)).To(day(2)), []uint64{2}},
		{"to commit id", snapshotstore.BuildQueryParams().ToCommitID(history.commits[1].ID), []uint64{2, 1}},
		{"commit ids", snapshotstore.BuildQueryParams().CommitIDs(history.commits[0].ID, history.commits[2].ID), []uint64{3, 1}},
		{"version", snapshotstore.BuildQueryParams().Version(2), []uint64{2}},
		{"no match", snapshotstore.BuildQueryParams().Author("bob").ChangedProperty("name"), []uint64{}},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// act
			snapshots, err := f.finder.GetStateHistory(ctxWithTimeout, history.employee, buildParams(t, tc.params))

			// assert
			require.NoError(t, err)
			assert.Equal(t, tc.expectedVersions, versionsOf(snapshots))
		})
	}
}

func Test_GetStateHistory_Pagination(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)

	testCases := []struct {
		description      string
		params           snapshotstore.QueryParamsBuilder
		expectedVersions []uint64
	}{
		{"limit", snapshotstore.WithLimit(2), []uint64{3, 2}},
		{"limit and skip", snapshotstore.WithLimit(2).Skip(1), []uint64{2, 1}},
		{"skip beyond the end", snapshotstore.BuildQueryParams().Skip(3), []uint64{}},
		{"limit 0", snapshotstore.WithLimit(0), []uint64{}},
		{"limit larger than the history", snapshotstore.WithLimit(snapshotstore.MaxLimit), []uint64{3, 2, 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// act
			snapshots, err := f.finder.GetStateHistory(ctxWithTimeout, history.employee, buildParams(t, tc.params))

			// assert
			require.NoError(t, err)
			assert.NotNil(t, snapshots)
			assert.Equal(t, tc.expectedVersions, versionsOf(snapshots))
		})
	}
}

func Test_GetStateHistory_UnknownGlobalID_ReturnsEmptyResult(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)
	unknownEmployee := snapshotstore.InstanceID("Employee", sqlitefixtures.GivenUniqueID())
	unknownValueObject := snapshotstore.ValueObjectID("Address", history.employee, "address")

	// act
	unknownEmployeeSnapshots, unknownEmployeeErr := f.finder.GetStateHistory(ctxWithTimeout, unknownEmployee, defaultParams(t))
	unknownValueObjectSnapshots, unknownValueObjectErr := f.finder.GetStateHistory(ctxWithTimeout, unknownValueObject, defaultParams(t))

	// assert
	assert.NoError(t, unknownEmployeeErr)
	assert.NotNil(t, unknownEmployeeSnapshots)
	assert.Empty(t, unknownEmployeeSnapshots)
	assert.NoError(t, unknownValueObjectErr)
	assert.Empty(t, unknownValueObjectSnapshots)
}

func Test_GetStateHistory_Aggregate_IncludesOwnedValueObjects(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)
	commit := f.fixtures.GivenCommit("alice", day(4))
	items := givenItems(t, f.fixtures, commit, history.employee, "pen", "ink")
	address := snapshotstore.ValueObjectID("Address", history.employee, "address")
	f.fixtures.GivenSnapshot(commit, address, snapshotstore.SnapshotTypeInitial, `{"city":"Berlin"}`)

	// act
	entityOnly, entityOnlyErr := f.finder.GetStateHistory(ctxWithTimeout, history.employee, defaultParams(t))
	aggregate, aggregateErr := f.finder.GetStateHistory(ctxWithTimeout, history.employee, buildParams(t, snapshotstore.BuildQueryParams().Aggregate()))

	// assert
	require.NoError(t, entityOnlyErr)
	require.NoError(t, aggregateErr)
	assert.Len(t, entityOnly, 3)
	assert.Len(t, aggregate, 6)
	assert.Contains(t, globalIDValuesOf(aggregate), items[0].Value())
	assert.Contains(t, globalIDValuesOf(aggregate), items[1].Value())
	assert.Contains(t, globalIDValuesOf(aggregate), address.Value())
	assert.Equal(t, "items/0", items[0].Fragment)
	assert.Equal(t, "items/1", items[1].Fragment)
}

func Test_GetStateHistory_ValueObject_ReassemblesOwner(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)
	commit := f.fixtures.GivenCommit("alice", day(4))
	items := givenItems(t, f.fixtures, commit, history.employee, "pen", "ink")

	// act
	snapshots, err := f.finder.GetStateHistory(ctxWithTimeout, items[1], defaultParams(t))

	// assert
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.True(t, snapshots[0].GlobalID.Equal(items[1]))
	assert.True(t, snapshots[0].GlobalID.IsValueObject())
	assert.True(t, snapshots[0].GlobalID.Root().Equal(history.employee))
	assert.Equal(t, "Item", snapshots[0].ManagedType)
	assert.JSONEq(t, `{"label":"ink"}`, string(snapshots[0].State))
}

func Test_GetLatest(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)
	withoutSnapshots := snapshotstore.InstanceID("Employee", sqlitefixtures.GivenUniqueID())
	f.fixtures.GivenGlobalID(withoutSnapshots)

	t.Run("returns the highest version", func(t *testing.T) {
		// act
		latest, found, err := f.finder.GetLatest(ctxWithTimeout, history.employee, false)

		// assert
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, uint64(3), latest.Version)
		assert.Equal(t, history.commits[2].ID, latest.Commit.ID)
	})

	t.Run("unknown object is not found", func(t *testing.T) {
		// act
		_, found, err := f.finder.GetLatest(ctxWithTimeout, snapshotstore.InstanceID("Employee", "ghost"), false)

		// assert
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("object without snapshots is not found", func(t *testing.T) {
		// act
		_, found, err := f.finder.GetLatest(ctxWithTimeout, withoutSnapshots, false)

		// assert
		assert.NoError(t, err)
		assert.False(t, found)
	})
}

func Test_GetSnapshotsByIdentifiers_SkipsIdentifiersWithoutMatch(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)
	identifiers := []snapshotstore.SnapshotIdentifier{
		snapshotstore.SI(history.employee, 1),
		snapshotstore.SI(snapshotstore.InstanceID("Employee", "ghost"), 1),
		snapshotstore.SI(history.employee, 3),
		snapshotstore.SI(history.employee, 99),
	}

	// act
	snapshots, err := f.finder.GetSnapshotsByIdentifiers(ctxWithTimeout, identifiers)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 1}, versionsOf(snapshots))
}

func Test_GetSnapshotsByIdentifiers_EmptyBatch_ReturnsEmptyResult(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	givenEmployeeHistory(t, f.fixtures)

	// act
	snapshots, err := f.finder.GetSnapshotsByIdentifiers(ctxWithTimeout, nil)

	// assert
	require.NoError(t, err)
	assert.NotNil(t, snapshots)
	assert.Empty(t, snapshots)
}

func Test_GetStateHistoryOfTypes(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)
	commit := f.fixtures.GivenCommit("alice", day(4))
	givenItems(t, f.fixtures, commit, history.employee, "pen", "ink")
	department := snapshotstore.InstanceID("Department", "sales")
	f.fixtures.GivenSnapshot(commit, department, snapshotstore.SnapshotTypeInitial, `{"name":"Sales"}`)
	givenItems(t, f.fixtures, commit, department, "desk")

	t.Run("roots of one type", func(t *testing.T) {
		// act
		snapshots, err := f.finder.GetStateHistoryOfTypes(
			ctxWithTimeout,
			[]snapshotstore.ManagedType{snapshotstore.EntityType("Employee")},
			defaultParams(t),
		)

		// assert
		require.NoError(t, err)
		assert.Len(t, snapshots, 3)
		for _, snapshot := range snapshots {
			assert.Equal(t, "Employee", snapshot.ManagedType)
		}
	})

	t.Run("roots of several types", func(t *testing.T) {
		// act
		snapshots, err := f.finder.GetStateHistoryOfTypes(
			ctxWithTimeout,
			[]snapshotstore.ManagedType{snapshotstore.EntityType("Employee"), snapshotstore.EntityType("Department")},
			defaultParams(t),
		)

		// assert
		require.NoError(t, err)
		assert.Len(t, snapshots, 4)
	})

	t.Run("aggregate of one type", func(t *testing.T) {
		// act
		snapshots, err := f.finder.GetStateHistoryOfTypes(
			ctxWithTimeout,
			[]snapshotstore.ManagedType{snapshotstore.EntityType("Employee")},
			buildParams(t, snapshotstore.BuildQueryParams().Aggregate()),
		)

		// assert
		require.NoError(t, err)
		assert.Len(t, snapshots, 5, "three employee versions plus two items owned by the employee")
	})

	t.Run("value object type without aggregate", func(t *testing.T) {
		// act
		snapshots, err := f.finder.GetStateHistoryOfTypes(
			ctxWithTimeout,
			[]snapshotstore.ManagedType{snapshotstore.ValueObjectType("Item")},
			defaultParams(t),
		)

		// assert
		require.NoError(t, err)
		assert.Empty(t, snapshots, "items are always owned, so there is no root of this type")
	})

	t.Run("aggregate of a value object type", func(t *testing.T) {
		// act
		snapshots, err := f.finder.GetStateHistoryOfTypes(
			ctxWithTimeout,
			[]snapshotstore.ManagedType{snapshotstore.ValueObjectType("Item")},
			buildParams(t, snapshotstore.BuildQueryParams().Aggregate()),
		)

		// assert
		require.NoError(t, err)
		assert.Len(t, snapshots, 3, "two items of the employee plus one of the department")
		for _, snapshot := range snapshots {
			assert.Equal(t, "Item", snapshot.ManagedType)
			assert.True(t, snapshot.GlobalID.IsValueObject())
		}
	})
}

func Test_GetValueObjectStateHistory(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	first := givenEmployeeHistory(t, f.fixtures)
	second := givenEmployeeHistory(t, f.fixtures)
	commit := f.fixtures.GivenCommit("alice", day(4))
	givenItems(t, f.fixtures, commit, first.employee, "pen", "ink")
	givenItems(t, f.fixtures, commit, second.employee, "stapler")
	f.fixtures.GivenSnapshot(commit, snapshotstore.ValueObjectID("Address", first.employee, "address"), snapshotstore.SnapshotTypeInitial, `{}`)
	f.fixtures.GivenSnapshot(commit, snapshotstore.ValueObjectID("Item", first.employee, "itemsArchive"), snapshotstore.SnapshotTypeInitial, `{}`)
	givenItems(t, f.fixtures, commit, snapshotstore.InstanceID("Department", "sales"), "desk")

	testCases := []struct {
		description   string
		fragment      string
		expectedCount int
	}{
		{"indexed fragments below the property", "items", 3},
		{"plain fragment", "address", 1},
		{"exact indexed fragment", "items/0", 2},
		{"unknown fragment", "phone", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// act
			snapshots, err := f.finder.GetValueObjectStateHistory(
				ctxWithTimeout,
				snapshotstore.EntityType("Employee"),
				tc.fragment,
				defaultParams(t),
			)

			// assert
			require.NoError(t, err)
			assert.Len(t, snapshots, tc.expectedCount)
			for _, snapshot := range snapshots {
				assert.True(t, snapshot.GlobalID.IsValueObject())
				assert.Equal(t, "Employee", snapshot.GlobalID.Owner.TypeName)
			}
		})
	}
}

func Test_GetValueObjectStateHistory_MatchesLikeWildcardsLiterally(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	employee := snapshotstore.InstanceID("Employee", sqlitefixtures.GivenUniqueID())
	commit := f.fixtures.GivenCommit("alice", day(1))
	f.fixtures.GivenSnapshot(commit, snapshotstore.ValueObjectID("Item", employee, "my_items/0"), snapshotstore.SnapshotTypeInitial, `{}`)
	f.fixtures.GivenSnapshot(commit, snapshotstore.ValueObjectID("Item", employee, "myXitems/0"), snapshotstore.SnapshotTypeInitial, `{}`)
	f.fixtures.GivenSnapshot(commit, snapshotstore.ValueObjectID("Item", employee, "my%items/0"), snapshotstore.SnapshotTypeInitial, `{}`)

	// act
	snapshots, err := f.finder.GetValueObjectStateHistory(ctxWithTimeout, snapshotstore.EntityType("Employee"), "my_items", defaultParams(t))

	// assert
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "my_items/0", snapshots[0].GlobalID.Fragment)
}

func Test_GetStateHistory_ChangedProperty_MatchesLikeWildcardsLiterally(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	employee := snapshotstore.InstanceID("Employee", sqlitefixtures.GivenUniqueID())
	f.fixtures.GivenSnapshot(f.fixtures.GivenCommit("alice", day(1)), employee, snapshotstore.SnapshotTypeInitial, `{}`, "gross_salary")
	f.fixtures.GivenSnapshot(f.fixtures.GivenCommit("alice", day(2)), employee, snapshotstore.SnapshotTypeUpdate, `{}`, "grossXsalary")

	// act
	snapshots, err := f.finder.GetStateHistory(
		ctxWithTimeout,
		employee,
		buildParams(t, snapshotstore.BuildQueryParams().ChangedProperty("gross_salary")),
	)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, versionsOf(snapshots))
}

func Test_GetStateHistory_NestedValueObjectPath(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)
	commit := f.fixtures.GivenCommit("alice", day(4))
	address := snapshotstore.ValueObjectID("Address", history.employee, "address")
	street := snapshotstore.ValueObjectID("Street", history.employee, "address/street")
	f.fixtures.GivenSnapshot(commit, address, snapshotstore.SnapshotTypeInitial, `{"city":"Berlin"}`)
	f.fixtures.GivenSnapshot(commit, street, snapshotstore.SnapshotTypeInitial, `{"name":"Main St"}`)

	t.Run("value object owned by a value object is rejected", func(t *testing.T) {
		// act
		nested := snapshotstore.ValueObjectID("Street", address, "street")
		snapshots, err := f.finder.GetStateHistory(ctxWithTimeout, nested, defaultParams(t))

		// assert
		assert.ErrorIs(t, err, snapshotstore.ErrInvalidQuery)
		assert.ErrorIs(t, err, snapshotstore.ErrValueObjectOwnedByValueObject)
		assert.Nil(t, snapshots)
	})

	t.Run("path below the entity", func(t *testing.T) {
		// act
		snapshots, err := f.finder.GetStateHistory(ctxWithTimeout, street, defaultParams(t))

		// assert
		require.NoError(t, err)
		require.Len(t, snapshots, 1)
		assert.True(t, snapshots[0].GlobalID.Equal(street))
	})

	t.Run("aggregate and unscoped reads", func(t *testing.T) {
		// act
		aggregate, aggregateErr := f.finder.GetStateHistory(ctxWithTimeout, history.employee, buildParams(t, snapshotstore.BuildQueryParams().Aggregate()))
		all, allErr := f.finder.GetSnapshots(ctxWithTimeout, defaultParams(t))
		belowAddress, belowAddressErr := f.finder.GetValueObjectStateHistory(ctxWithTimeout, snapshotstore.EntityType("Employee"), "address", defaultParams(t))

		// assert
		require.NoError(t, aggregateErr)
		require.NoError(t, allErr)
		require.NoError(t, belowAddressErr)
		assert.Len(t, aggregate, 5)
		assert.Len(t, all, 5)
		assert.ElementsMatch(t, []string{address.Value(), street.Value()}, globalIDValuesOf(belowAddress))
	})
}

func Test_GetSnapshots_ReturnsAnySnapshotBounded(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	givenEmployeeHistory(t, f.fixtures)
	givenEmployeeHistory(t, f.fixtures)

	// act
	all, allErr := f.finder.GetSnapshots(ctxWithTimeout, defaultParams(t))
	page, pageErr := f.finder.GetSnapshots(ctxWithTimeout, buildParams(t, snapshotstore.WithLimit(4)))
	byAuthor, byAuthorErr := f.finder.GetSnapshots(ctxWithTimeout, buildParams(t, snapshotstore.BuildQueryParams().Author("bob")))

	// assert
	require.NoError(t, allErr)
	require.NoError(t, pageErr)
	require.NoError(t, byAuthorErr)
	assert.Len(t, all, 6)
	assert.Len(t, page, 4)
	assert.Len(t, byAuthor, 2)
	assert.Equal(t, all[:4], page)
}

func Test_Find_CommitProperties(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	employee := snapshotstore.InstanceID("Employee", sqlitefixtures.GivenUniqueID())
	withProperties := f.fixtures.GivenCommit("alice", day(1), snapshotstore.CP("tenant", "acme"), snapshotstore.CP("origin", "api"))
	f.fixtures.GivenSnapshot(withProperties, employee, snapshotstore.SnapshotTypeInitial, `{}`)
	withoutProperties := f.fixtures.GivenCommit("alice", day(2))
	f.fixtures.GivenSnapshot(withoutProperties, employee, snapshotstore.SnapshotTypeUpdate, `{}`)
	otherTenant := f.fixtures.GivenCommit("alice", day(3), snapshotstore.CP("tenant", "globex"))
	f.fixtures.GivenSnapshot(otherTenant, employee, snapshotstore.SnapshotTypeUpdate, `{}`)

	target := snapshotstore.SnapshotsOf(employee)

	t.Run("are attached when requested", func(t *testing.T) {
		// act
		snapshots, err := f.finder.Find(ctxWithTimeout, target, buildParams(t, snapshotstore.BuildQueryParams().LoadCommitProps()))

		// assert
		require.NoError(t, err)
		require.Len(t, snapshots, 3)
		assert.Equal(t, []snapshotstore.CommitProperty{snapshotstore.CP("tenant", "globex")}, snapshots[0].Commit.Properties)
		assert.NotNil(t, snapshots[1].Commit.Properties)
		assert.Empty(t, snapshots[1].Commit.Properties)
		assert.Equal(
			t,
			[]snapshotstore.CommitProperty{snapshotstore.CP("origin", "api"), snapshotstore.CP("tenant", "acme")},
			snapshots[2].Commit.Properties,
		)
	})

	t.Run("are not loaded by default", func(t *testing.T) {
		// act
		snapshots, err := f.finder.Find(ctxWithTimeout, target, defaultParams(t))

		// assert
		require.NoError(t, err)
		require.Len(t, snapshots, 3)
		for _, snapshot := range snapshots {
			assert.Empty(t, snapshot.Commit.Properties)
		}
	})

	t.Run("filter snapshots", func(t *testing.T) {
		// act
		snapshots, err := f.finder.Find(ctxWithTimeout, target, buildParams(t, snapshotstore.BuildQueryParams().CommitProperty("tenant", "acme")))

		// assert
		require.NoError(t, err)
		assert.Equal(t, []uint64{1}, versionsOf(snapshots))
	})

	t.Run("filters combine", func(t *testing.T) {
		// act
		snapshots, err := f.finder.Find(
			ctxWithTimeout,
			target,
			buildParams(t, snapshotstore.BuildQueryParams().CommitProperty("tenant", "acme").CommitProperty("origin", "cli")),
		)

		// assert
		require.NoError(t, err)
		assert.Empty(t, snapshots)
	})

	t.Run("are attached to the latest snapshot when requested", func(t *testing.T) {
		// act
		latest, found, err := f.finder.GetLatest(ctxWithTimeout, employee, true)

		// assert
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []snapshotstore.CommitProperty{snapshotstore.CP("tenant", "globex")}, latest.Commit.Properties)
	})
}

func Test_Find_ResultsAreIndependentOfConcurrentCallers(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f := createFinder(t)

	// arrange
	history := givenEmployeeHistory(t, f.fixtures)
	target := snapshotstore.SnapshotsOf(history.employee)
	firstPage := buildParams(t, snapshotstore.WithLimit(2))
	results := make(chan []uint64, 10)

	// act
	for i := 0; i < cap(results); i++ {
		go func() {
			snapshots, err := f.finder.Find(ctxWithTimeout, target, firstPage)
			if err != nil {
				results <- nil
				return
			}

			results <- versionsOf(snapshots)
		}()
	}

	// assert
	for i := 0; i < cap(results); i++ {
		assert.Equal(t, []uint64{3, 2}, <-results)
	}
}
