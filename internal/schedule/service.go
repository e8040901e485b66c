package schedule

import (
	"context"
	"sort"
	"strings"
	"time"

	"event-scheduler-backend/config"
	"event-scheduler-backend/internal/model"
	"event-scheduler-backend/internal/store"
)

// Notifier receives the ids of newly committed allocations.
type Notifier interface {
	Dispatch(allocationID int64)
}

// Service is the scheduling engine: entity lifecycle, conflict detection,
// utilization reporting and allocation.
type Service struct {
	store         store.Store
	loc           *time.Location
	upcomingLimit int
	now           func() time.Time
	locks         *keyedLocks
	notifier      Notifier
}

// NewService creates a scheduling service over the given store. A nil cfg
// selects UTC and an upcoming-bookings limit of 5.
func NewService(cfg *config.SchedulerConfig, st store.Store) *Service {
	s := &Service{
		store:         st,
		loc:           time.UTC,
		upcomingLimit: 5,
		now:           time.Now,
		locks:         newKeyedLocks(),
	}
	if cfg != nil {
		if cfg.Location != nil {
			s.loc = cfg.Location
		}
		if cfg.UpcomingLimit > 0 {
			s.upcomingLimit = cfg.UpcomingLimit
		}
	}
	return s
}

// SetNotifier registers the receiver of booking notifications.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Location returns the timezone used for dates and formatting.
func (s *Service) Location() *time.Location {
	return s.loc
}

// EventInput carries the user-editable fields of an event.
type EventInput struct {
	Title       string
	StartTime   time.Time
	EndTime     time.Time
	Description string
}

// Validate checks the input before any store mutation.
func (in EventInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	if !in.StartTime.Before(in.EndTime) {
		return ErrInvalidInterval
	}
	return nil
}

// ResourceInput carries the user-editable fields of a resource.
type ResourceInput struct {
	Name string
	Type string
}

// Validate checks the input before any store mutation.
func (in ResourceInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(in.Type) == "" {
		return ErrTypeRequired
	}
	return nil
}

// --- Events ---

// ListEvents returns all events, most recent start first.
func (s *Service) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.store.ListEvents(ctx)
}

func (s *Service) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	return s.store.GetEvent(ctx, id)
}

func (s *Service) CreateEvent(ctx context.Context, in EventInput) (*model.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	e := &model.Event{
		Title:       strings.TrimSpace(in.Title),
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Description: in.Description,
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateEvent applies in to the event after re-checking every existing
// allocation of the event against the new interval. A single conflict
// rejects the whole edit.
func (s *Service) UpdateEvent(ctx context.Context, id int64, in EventInput) (*model.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	// The event lock keeps Allocate from adding resources while we hold the
	// locks of the current ones.
	unlockEvent := s.locks.lock(eventKey(id))
	defer unlockEvent()

	current, err := s.store.AllocationsByEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	unlockResources := s.locks.lockAll(resourceKeys(allocatedResourceIDs(current))...)
	defer unlockResources()

	var updated *model.Event
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		e, err := tx.GetEvent(ctx, id)
		if err != nil {
			return err
		}
		allocations, err := tx.AllocationsByEvent(ctx, id)
		if err != nil {
			return err
		}
		for _, a := range allocations {
			other, err := s.findConflict(ctx, tx, a.ResourceID, id, in.StartTime, in.EndTime)
			if err != nil {
				return err
			}
			if other != nil {
				return &ConflictError{ResourceID: a.ResourceID, Event: *other, Reason: conflictReason(*other, s.loc)}
			}
		}

		e.Title = strings.TrimSpace(in.Title)
		e.StartTime = in.StartTime
		e.EndTime = in.EndTime
		e.Description = in.Description
		if err := tx.SaveEvent(ctx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteEvent removes the event and all of its allocations.
func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	return s.store.DeleteEvent(ctx, id)
}

// --- Resources ---

func (s *Service) ListResources(ctx context.Context) ([]model.Resource, error) {
	return s.store.ListResources(ctx)
}

func (s *Service) GetResource(ctx context.Context, id int64) (*model.Resource, error) {
	return s.store.GetResource(ctx, id)
}

func (s *Service) CreateResource(ctx context.Context, in ResourceInput) (*model.Resource, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	r := &model.Resource{Name: strings.TrimSpace(in.Name), Type: strings.TrimSpace(in.Type)}
	if err := s.store.CreateResource(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) UpdateResource(ctx context.Context, id int64, in ResourceInput) (*model.Resource, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var updated *model.Resource
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		r, err := tx.GetResource(ctx, id)
		if err != nil {
			return err
		}
		r.Name = strings.TrimSpace(in.Name)
		r.Type = strings.TrimSpace(in.Type)
		if err := tx.SaveResource(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteResource removes the resource and all of its allocations.
func (s *Service) DeleteResource(ctx context.Context, id int64) error {
	return s.store.DeleteResource(ctx, id)
}

// --- Allocations ---

func (s *Service) ListAllocations(ctx context.Context) ([]model.Allocation, error) {
	return s.store.ListAllocations(ctx)
}

func (s *Service) GetAllocation(ctx context.Context, id int64) (*model.Allocation, error) {
	return s.store.GetAllocation(ctx, id)
}

// AllocationsByEvent returns the allocations of an existing event.
func (s *Service) AllocationsByEvent(ctx context.Context, eventID int64) ([]model.Allocation, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.AllocationsByEvent(ctx, eventID)
}

// AllocationsByResource returns the allocations of an existing resource with
// their events loaded.
func (s *Service) AllocationsByResource(ctx context.Context, resourceID int64) ([]model.Allocation, error) {
	if _, err := s.store.GetResource(ctx, resourceID); err != nil {
		return nil, err
	}
	return s.store.AllocationsByResource(ctx, resourceID)
}

// Detach removes a single allocation.
func (s *Service) Detach(ctx context.Context, allocationID int64) error {
	return s.store.DeleteAllocation(ctx, allocationID)
}

// Stats returns the entity counts shown on the dashboard.
func (s *Service) Stats(ctx context.Context) (store.Counts, error) {
	return s.store.Counts(ctx)
}

func allocatedResourceIDs(allocations []model.Allocation) []int64 {
	ids := make([]int64, 0, len(allocations))
	for _, a := range allocations {
		ids = append(ids, a.ResourceID)
	}
	return uniqueSorted(ids)
}

func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
