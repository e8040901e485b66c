package schedule

import (
	"context"
	"math"
	"sort"
	"time"

	"event-scheduler-backend/internal/model"
	"event-scheduler-backend/internal/store"
)

// Utilization is the booking summary of one resource over a date range.
type Utilization struct {
	Resource         model.Resource `json:"resource"`
	TotalHours       float64        `json:"total_hours"`
	UpcomingBookings []model.Event  `json:"upcoming_bookings"`
}

// CalculateUtilization returns one entry per resource. TotalHours sums the
// durations of allocated events lying entirely within [startDate, endDate]
// by calendar date in the service timezone. UpcomingBookings lists the
// earliest events starting at or after now, regardless of the range.
func (s *Service) CalculateUtilization(ctx context.Context, startDate, endDate time.Time) ([]Utilization, error) {
	from := dateOf(startDate, s.loc)
	to := dateOf(endDate, s.loc)

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return utilizationIn(snap, from, to, s.now(), s.loc, s.upcomingLimit), nil
}

func utilizationIn(snap *store.Snapshot, from, to, now time.Time, loc *time.Location, limit int) []Utilization {
	byResource := snap.AllocationsByResource()

	report := make([]Utilization, 0, len(snap.Resources))
	for _, r := range snap.Resources {
		var total time.Duration
		upcoming := []model.Event{}

		for _, a := range byResource[r.ID] {
			e, ok := snap.Event(a.EventID)
			if !ok {
				continue
			}
			if !dateOf(e.StartTime, loc).Before(from) && !dateOf(e.EndTime, loc).After(to) {
				total += e.Duration()
			}
			if !e.StartTime.Before(now) {
				upcoming = append(upcoming, e)
			}
		}

		sort.SliceStable(upcoming, func(i, j int) bool {
			if upcoming[i].StartTime.Equal(upcoming[j].StartTime) {
				return upcoming[i].ID < upcoming[j].ID
			}
			return upcoming[i].StartTime.Before(upcoming[j].StartTime)
		})
		if len(upcoming) > limit {
			upcoming = upcoming[:limit]
		}

		report = append(report, Utilization{
			Resource:         r,
			TotalHours:       roundHours(total),
			UpcomingBookings: upcoming,
		})
	}
	return report
}

// dateOf truncates t to midnight of its calendar date in loc.
func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}
