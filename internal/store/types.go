package store

import (
	"errors"
	"sort"

	"event-scheduler-backend/internal/model"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("record not found")

// Counts summarizes the size of the entity tables.
type Counts struct {
	Events      int64 `json:"total_events"`
	Resources   int64 `json:"total_resources"`
	Allocations int64 `json:"total_allocations"`
}

// Snapshot is a consistent, read-only copy of the scheduling tables taken
// inside a single read transaction.
type Snapshot struct {
	Events      map[int64]model.Event
	Resources   []model.Resource   // ordered by id
	Allocations []model.Allocation // ordered by id
}

// Event looks up an event by id.
func (s *Snapshot) Event(id int64) (model.Event, bool) {
	e, ok := s.Events[id]
	return e, ok
}

// Resource looks up a resource by id.
func (s *Snapshot) Resource(id int64) (model.Resource, bool) {
	i := sort.Search(len(s.Resources), func(i int) bool { return s.Resources[i].ID >= id })
	if i < len(s.Resources) && s.Resources[i].ID == id {
		return s.Resources[i], true
	}
	return model.Resource{}, false
}

// AllocationsByResource groups the snapshot's allocations by resource id,
// preserving allocation id order inside each group.
func (s *Snapshot) AllocationsByResource() map[int64][]model.Allocation {
	out := make(map[int64][]model.Allocation)
	for _, a := range s.Allocations {
		out[a.ResourceID] = append(out[a.ResourceID], a)
	}
	return out
}

// AllocationsByEvent groups the snapshot's allocations by event id.
func (s *Snapshot) AllocationsByEvent() map[int64][]model.Allocation {
	out := make(map[int64][]model.Allocation)
	for _, a := range s.Allocations {
		out[a.EventID] = append(out[a.EventID], a)
	}
	return out
}
