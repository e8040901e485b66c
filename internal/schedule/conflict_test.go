package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-scheduler-backend/internal/model"
	"event-scheduler-backend/internal/store"
)

func TestCheckConflict(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	room := mustResource(t, svc, "Conference Room A", "room")
	workshop := mustEvent(t, svc, "Python Workshop", at(9), at(11))
	mustAllocate(t, svc, workshop.ID, room.ID)

	t.Run("overlap is reported with title and interval", func(t *testing.T) {
		conflict, reason, err := svc.CheckConflict(ctx, room.ID, 0, at(10), at(12))
		require.NoError(t, err)
		assert.True(t, conflict)
		assert.Equal(t, "Conflict with event 'Python Workshop' (2030-03-04 09:00 - 2030-03-04 11:00)", reason)
	})

	t.Run("touching endpoints do not conflict", func(t *testing.T) {
		conflict, reason, err := svc.CheckConflict(ctx, room.ID, 0, at(11), at(13))
		require.NoError(t, err)
		assert.False(t, conflict)
		assert.Empty(t, reason)
	})

	t.Run("self exclusion", func(t *testing.T) {
		conflict, _, err := svc.CheckConflict(ctx, room.ID, workshop.ID, at(8), at(12))
		require.NoError(t, err)
		assert.False(t, conflict)
	})

	t.Run("inverted interval is a conflict, not an error", func(t *testing.T) {
		conflict, reason, err := svc.CheckConflict(ctx, room.ID, 0, at(12), at(12))
		require.NoError(t, err)
		assert.True(t, conflict)
		assert.Equal(t, "Start time must be before end time", reason)
	})

	t.Run("unallocated resource is free", func(t *testing.T) {
		projector := mustResource(t, svc, "HD Projector", "equipment")
		conflict, _, err := svc.CheckConflict(ctx, projector.ID, 0, at(9), at(11))
		require.NoError(t, err)
		assert.False(t, conflict)
	})

	t.Run("FindConflict returns the event", func(t *testing.T) {
		other, err := svc.FindConflict(ctx, room.ID, 0, at(10), at(12))
		require.NoError(t, err)
		require.NotNil(t, other)
		assert.Equal(t, workshop.ID, other.ID)

		_, err = svc.FindConflict(ctx, room.ID, 0, at(12), at(10))
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})
}

func TestCheckConflict_ReasonUsesServiceTimezone(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	svc.loc = loc

	room := mustResource(t, svc, "Room", "room")
	e := mustEvent(t, svc, "Standup", at(9), at(10))
	mustAllocate(t, svc, e.ID, room.ID)

	_, reason, err := svc.CheckConflict(ctx, room.ID, 0, at(9), at(10))
	require.NoError(t, err)
	assert.Equal(t, "Conflict with event 'Standup' (2030-03-04 14:30 - 2030-03-04 15:30)", reason)
}

func TestFindAllConflicts(t *testing.T) {
	ctx := context.Background()

	t.Run("only shared resources conflict", func(t *testing.T) {
		svc, _ := newTestService(t)
		a := mustResource(t, svc, "Resource A", "room")
		b := mustResource(t, svc, "Resource B", "room")
		e1 := mustEvent(t, svc, "Event1", at(9), at(11))
		e2 := mustEvent(t, svc, "Event2", at(10), at(12))
		e3 := mustEvent(t, svc, "Event3", at(14), at(16))

		mustAllocate(t, svc, e1.ID, a.ID)
		// Allocate refuses the overlap, so write the conflicting row directly.
		seedAllocation(t, svc, e2.ID, a.ID)
		mustAllocate(t, svc, e3.ID, b.ID)

		conflicts, err := svc.FindAllConflicts(ctx)
		require.NoError(t, err)
		require.Len(t, conflicts, 1)
		assert.Equal(t, a.ID, conflicts[0].Resource.ID)
		assert.Equal(t, e1.ID, conflicts[0].Event1.ID)
		assert.Equal(t, e2.ID, conflicts[0].Event2.ID)
	})

	t.Run("overlap without shared resource is not a conflict", func(t *testing.T) {
		svc, _ := newTestService(t)
		a := mustResource(t, svc, "Resource A", "room")
		b := mustResource(t, svc, "Resource B", "room")
		e1 := mustEvent(t, svc, "Event1", at(9), at(11))
		e2 := mustEvent(t, svc, "Event2", at(10), at(12))
		mustAllocate(t, svc, e1.ID, a.ID)
		mustAllocate(t, svc, e2.ID, b.ID)

		conflicts, err := svc.FindAllConflicts(ctx)
		require.NoError(t, err)
		assert.Empty(t, conflicts)
	})

	t.Run("one entry per shared resource", func(t *testing.T) {
		svc, _ := newTestService(t)
		a := mustResource(t, svc, "Resource A", "room")
		b := mustResource(t, svc, "Resource B", "equipment")
		e1 := mustEvent(t, svc, "Event1", at(9), at(11))
		e2 := mustEvent(t, svc, "Event2", at(10), at(12))
		mustAllocate(t, svc, e1.ID, a.ID, b.ID)
		seedAllocation(t, svc, e2.ID, a.ID)
		seedAllocation(t, svc, e2.ID, b.ID)

		conflicts, err := svc.FindAllConflicts(ctx)
		require.NoError(t, err)
		require.Len(t, conflicts, 2)
		assert.Equal(t, a.ID, conflicts[0].Resource.ID)
		assert.Equal(t, b.ID, conflicts[1].Resource.ID)
	})
}

func TestConflictsIn_Deterministic(t *testing.T) {
	resources := []model.Resource{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	snap := &store.Snapshot{
		Events: map[int64]model.Event{
			1: {ID: 1, Title: "one", StartTime: at(9), EndTime: at(12)},
			2: {ID: 2, Title: "two", StartTime: at(10), EndTime: at(11)},
			3: {ID: 3, Title: "three", StartTime: at(11), EndTime: at(13)},
		},
		Resources: resources,
		Allocations: []model.Allocation{
			{ID: 1, EventID: 1, ResourceID: 2},
			{ID: 2, EventID: 2, ResourceID: 1},
			{ID: 3, EventID: 3, ResourceID: 2},
			{ID: 4, EventID: 1, ResourceID: 1},
			{ID: 5, EventID: 3, ResourceID: 1},
			// Dangling rows are skipped.
			{ID: 6, EventID: 99, ResourceID: 1},
		},
	}

	got := conflictsIn(snap)

	type pair struct{ resource, e1, e2 int64 }
	var pairs []pair
	for _, c := range got {
		pairs = append(pairs, pair{c.Resource.ID, c.Event1.ID, c.Event2.ID})
	}
	assert.Equal(t, []pair{
		{2, 1, 3}, // alloc 1 x alloc 3
		{1, 2, 1}, // alloc 2 x alloc 4
		{1, 1, 3}, // alloc 4 x alloc 5
	}, pairs)
	assert.Equal(t, got, conflictsIn(snap))
}

func TestScheduleOverview(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	room := mustResource(t, svc, "Room", "room")
	projector := mustResource(t, svc, "Projector", "equipment")
	e1 := mustEvent(t, svc, "Event1", at(9), at(11))
	e2 := mustEvent(t, svc, "Event2", at(10), at(12))
	e3 := mustEvent(t, svc, "Event3", at(14), at(16))
	e4 := mustEvent(t, svc, "Event4", at(15), at(17))

	mustAllocate(t, svc, e1.ID, room.ID)
	seedAllocation(t, svc, e2.ID, room.ID)
	mustAllocate(t, svc, e3.ID, projector.ID)

	overview, err := svc.ScheduleOverview(ctx)
	require.NoError(t, err)
	require.Len(t, overview, 2)

	assert.Equal(t, SubjectResource, overview[0].Subject.Kind)
	require.NotNil(t, overview[0].Subject.Resource)
	assert.Equal(t, room.ID, overview[0].Subject.Resource.ID)
	assert.Equal(t, e1.ID, overview[0].Event1.ID)
	assert.Equal(t, e2.ID, overview[0].Event2.ID)

	assert.Equal(t, SubjectSchedule, overview[1].Subject.Kind)
	assert.Nil(t, overview[1].Subject.Resource)
	assert.Equal(t, e3.ID, overview[1].Event1.ID)
	assert.Equal(t, e4.ID, overview[1].Event2.ID)

	conflicts, err := svc.FindAllConflicts(ctx)
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)
}

// seedAllocation inserts an allocation without a conflict check, the way
// legacy data or a concurrent writer outside this process could.
func seedAllocation(t *testing.T, svc *Service, eventID, resourceID int64) {
	t.Helper()
	require.NoError(t, svc.store.CreateAllocation(context.Background(), &model.Allocation{EventID: eventID, ResourceID: resourceID}))
}
