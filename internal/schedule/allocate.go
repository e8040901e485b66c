package schedule

import (
	"context"
	"errors"
	"log"

	"event-scheduler-backend/internal/model"
	"event-scheduler-backend/internal/store"
)

// OutcomeStatus is the per-resource result of an allocation request.
type OutcomeStatus string

const (
	OutcomeCreated  OutcomeStatus = "created"
	OutcomeExisting OutcomeStatus = "existing"
	OutcomeConflict OutcomeStatus = "conflict"
	OutcomeNotFound OutcomeStatus = "not_found"
)

// AllocationOutcome reports what happened to one requested resource.
type AllocationOutcome struct {
	ResourceID       int64             `json:"resource_id"`
	Status           OutcomeStatus     `json:"status"`
	Reason           string            `json:"reason,omitempty"`
	Allocation       *model.Allocation `json:"allocation,omitempty"`
	ConflictingEvent *model.Event      `json:"conflicting_event,omitempty"`
}

// AllocationResult is the itemized result of Allocate.
type AllocationResult struct {
	EventID  int64               `json:"event_id"`
	Outcomes []AllocationOutcome `json:"outcomes"`
}

// Created returns the allocations committed by the call.
func (r *AllocationResult) Created() []model.Allocation {
	var created []model.Allocation
	for _, o := range r.Outcomes {
		if o.Status == OutcomeCreated && o.Allocation != nil {
			created = append(created, *o.Allocation)
		}
	}
	return created
}

// Failed reports whether any requested resource was not allocated.
func (r *AllocationResult) Failed() bool {
	for _, o := range r.Outcomes {
		if o.Status == OutcomeConflict || o.Status == OutcomeNotFound {
			return true
		}
	}
	return false
}

// Allocate commits each requested resource to the event unless doing so
// would conflict. Conflicts and unknown resources are reported per resource
// and do not stop the others; pairings that already exist are left as they
// are. Every allocation created by one call is committed in one transaction.
func (s *Service) Allocate(ctx context.Context, eventID int64, resourceIDs []int64) (*AllocationResult, error) {
	ids := uniqueSorted(resourceIDs)

	unlock := s.locks.lockAll(append([]string{eventKey(eventID)}, resourceKeys(ids)...)...)
	defer unlock()

	var result *AllocationResult
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		event, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}

		result = &AllocationResult{EventID: eventID, Outcomes: make([]AllocationOutcome, 0, len(ids))}
		for _, rid := range ids {
			outcome, err := s.allocateOne(ctx, tx, event, rid)
			if err != nil {
				return err
			}
			result.Outcomes = append(result.Outcomes, outcome)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created := result.Created()
	log.Printf("Allocated %d of %d requested resources to event %d", len(created), len(ids), eventID)
	if s.notifier != nil {
		for _, a := range created {
			s.notifier.Dispatch(a.ID)
		}
	}
	return result, nil
}

func (s *Service) allocateOne(ctx context.Context, tx store.Store, event *model.Event, resourceID int64) (AllocationOutcome, error) {
	outcome := AllocationOutcome{ResourceID: resourceID}

	if _, err := tx.GetResource(ctx, resourceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			outcome.Status = OutcomeNotFound
			outcome.Reason = "resource not found"
			return outcome, nil
		}
		return outcome, err
	}

	other, err := s.findConflict(ctx, tx, resourceID, event.ID, event.StartTime, event.EndTime)
	if err != nil {
		return outcome, err
	}
	if other != nil {
		outcome.Status = OutcomeConflict
		outcome.Reason = conflictReason(*other, s.loc)
		outcome.ConflictingEvent = other
		return outcome, nil
	}

	existing, err := tx.FindAllocation(ctx, event.ID, resourceID)
	if err == nil {
		outcome.Status = OutcomeExisting
		outcome.Allocation = existing
		return outcome, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return outcome, err
	}

	a := &model.Allocation{EventID: event.ID, ResourceID: resourceID}
	if err := tx.CreateAllocation(ctx, a); err != nil {
		return outcome, err
	}
	outcome.Status = OutcomeCreated
	outcome.Allocation = a
	return outcome, nil
}
