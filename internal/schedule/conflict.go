package schedule

import (
	"context"
	"sort"
	"time"

	"event-scheduler-backend/internal/model"
	"event-scheduler-backend/internal/store"
)

// Conflict is a pair of allocations of the same resource whose events overlap.
type Conflict struct {
	Resource model.Resource `json:"resource"`
	Event1   model.Event    `json:"event1"`
	Event2   model.Event    `json:"event2"`
}

// SubjectKind tags what two overlapping events have in common.
type SubjectKind string

const (
	// SubjectResource means both events hold the same resource.
	SubjectResource SubjectKind = "resource"
	// SubjectSchedule means the events only share time, no resource.
	SubjectSchedule SubjectKind = "schedule"
)

// OverlapSubject is either a shared resource or the bare time slot.
type OverlapSubject struct {
	Kind     SubjectKind     `json:"kind"`
	Resource *model.Resource `json:"resource,omitempty"`
}

// Overlap is one entry of the schedule overview.
type Overlap struct {
	Subject OverlapSubject `json:"subject"`
	Event1  model.Event    `json:"event1"`
	Event2  model.Event    `json:"event2"`
}

// CheckConflict reports whether committing resourceID to [start, end) would
// clash with another event already holding it. Allocations of excludeEventID
// are ignored so an event never conflicts with itself. An inverted interval
// is reported as a conflict, not as an error; the error return is reserved
// for store failures.
func (s *Service) CheckConflict(ctx context.Context, resourceID, excludeEventID int64, start, end time.Time) (bool, string, error) {
	if !start.Before(end) {
		return true, invalidIntervalReason, nil
	}
	other, err := s.FindConflict(ctx, resourceID, excludeEventID, start, end)
	if err != nil {
		return false, "", err
	}
	if other == nil {
		return false, "", nil
	}
	return true, conflictReason(*other, s.loc), nil
}

// FindConflict is CheckConflict returning the first conflicting event, or
// nil when the resource is free.
func (s *Service) FindConflict(ctx context.Context, resourceID, excludeEventID int64, start, end time.Time) (*model.Event, error) {
	if !start.Before(end) {
		return nil, ErrInvalidInterval
	}
	var other *model.Event
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		other, err = s.findConflict(ctx, tx, resourceID, excludeEventID, start, end)
		return err
	})
	return other, err
}

// findConflict scans the allocations of resourceID in id order and returns
// the event of the first one overlapping [start, end).
func (s *Service) findConflict(ctx context.Context, st store.Store, resourceID, excludeEventID int64, start, end time.Time) (*model.Event, error) {
	allocations, err := st.AllocationsByResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	for _, a := range allocations {
		if a.EventID == excludeEventID {
			continue
		}
		// Dangling allocation.
		if a.Event.ID == 0 {
			continue
		}
		if Overlaps(start, end, a.Event.StartTime, a.Event.EndTime) {
			e := a.Event
			return &e, nil
		}
	}
	return nil, nil
}

// FindAllConflicts returns every pair of allocations that share a resource
// and whose events overlap, read from one consistent snapshot.
func (s *Service) FindAllConflicts(ctx context.Context) ([]Conflict, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return conflictsIn(snap), nil
}

// conflictsIn enumerates allocation pairs i < j in allocation id order. Only
// pairs on the same resource are visited, which yields the same sequence as
// a full nested scan.
func conflictsIn(snap *store.Snapshot) []Conflict {
	conflicts := []Conflict{}
	allocs := snap.Allocations

	sameResource := make(map[int64][]int)
	for i, a := range allocs {
		sameResource[a.ResourceID] = append(sameResource[a.ResourceID], i)
	}

	for i, a := range allocs {
		e1, ok := snap.Event(a.EventID)
		if !ok {
			continue
		}
		for _, j := range sameResource[a.ResourceID] {
			if j <= i {
				continue
			}
			b := allocs[j]
			e2, ok := snap.Event(b.EventID)
			if !ok {
				continue
			}
			if !Overlaps(e1.StartTime, e1.EndTime, e2.StartTime, e2.EndTime) {
				continue
			}
			r, ok := snap.Resource(a.ResourceID)
			if !ok {
				continue
			}
			conflicts = append(conflicts, Conflict{Resource: r, Event1: e1, Event2: e2})
		}
	}
	return conflicts
}

// ScheduleOverview lists every pair of events overlapping in time. Pairs that
// share resources produce one entry per shared resource; pairs sharing none
// produce a single schedule entry. This is not a conflict report: only the
// resource entries are contention.
func (s *Service) ScheduleOverview(ctx context.Context) ([]Overlap, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return overlapsIn(snap), nil
}

func overlapsIn(snap *store.Snapshot) []Overlap {
	events := make([]model.Event, 0, len(snap.Events))
	for _, e := range snap.Events {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartTime.Before(events[j].StartTime)
	})

	resourcesOf := make(map[int64]map[int64]struct{})
	for _, a := range snap.Allocations {
		if resourcesOf[a.EventID] == nil {
			resourcesOf[a.EventID] = make(map[int64]struct{})
		}
		resourcesOf[a.EventID][a.ResourceID] = struct{}{}
	}

	overlaps := []Overlap{}
	for i, e1 := range events {
		for _, e2 := range events[i+1:] {
			if !Overlaps(e1.StartTime, e1.EndTime, e2.StartTime, e2.EndTime) {
				continue
			}
			shared := sharedResources(resourcesOf[e1.ID], resourcesOf[e2.ID])
			if len(shared) == 0 {
				overlaps = append(overlaps, Overlap{
					Subject: OverlapSubject{Kind: SubjectSchedule},
					Event1:  e1,
					Event2:  e2,
				})
				continue
			}
			for _, rid := range shared {
				r, ok := snap.Resource(rid)
				if !ok {
					continue
				}
				overlaps = append(overlaps, Overlap{
					Subject: OverlapSubject{Kind: SubjectResource, Resource: &r},
					Event1:  e1,
					Event2:  e2,
				})
			}
		}
	}
	return overlaps
}

func sharedResources(a, b map[int64]struct{}) []int64 {
	var shared []int64
	for id := range a {
		if _, ok := b[id]; ok {
			shared = append(shared, id)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i] < shared[j] })
	return shared
}
