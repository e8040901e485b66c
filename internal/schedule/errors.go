package schedule

import (
	"errors"
	"fmt"
	"time"

	"event-scheduler-backend/internal/model"
	"event-scheduler-backend/internal/store"
)

// Errors
var (
	ErrInvalidInterval = errors.New("start time must be before end time")
	ErrTitleRequired   = errors.New("event title is required")
	ErrNameRequired    = errors.New("resource name is required")
	ErrTypeRequired    = errors.New("resource type is required")

	// ErrNotFound is the store's not-found error, so callers can match either.
	ErrNotFound = store.ErrNotFound
)

// reasonTimeLayout is the layout used for intervals in conflict reasons.
const reasonTimeLayout = "2006-01-02 15:04"

// invalidIntervalReason is reported by CheckConflict for inverted intervals.
const invalidIntervalReason = "Start time must be before end time"

// ConflictError is returned when a resource is already committed to an event
// whose interval overlaps the requested one.
type ConflictError struct {
	ResourceID int64
	Event      model.Event
	Reason     string
}

func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Reason
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrTitleRequired) ||
		errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrTypeRequired)
}

func conflictReason(e model.Event, loc *time.Location) string {
	return fmt.Sprintf("Conflict with event '%s' (%s - %s)",
		e.Title,
		e.StartTime.In(loc).Format(reasonTimeLayout),
		e.EndTime.In(loc).Format(reasonTimeLayout))
}
