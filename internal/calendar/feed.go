// Package calendar renders scheduled events as iCalendar feeds.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"event-scheduler-backend/internal/model"
	"event-scheduler-backend/internal/store"
)

const productID = "-//event-scheduler//schedulerd//EN"

// ContentType is the media type of a rendered feed.
const ContentType = "text/calendar; charset=utf-8"

// All renders every event of the snapshot. Each VEVENT lists the names of
// its allocated resources as its location.
func All(snap *store.Snapshot, stamp time.Time) string {
	events := make([]model.Event, 0, len(snap.Events))
	for _, e := range snap.Events {
		events = append(events, e)
	}
	return render("All events", events, resourceNames(snap), stamp)
}

// ForResource renders the events holding resourceID.
func ForResource(snap *store.Snapshot, resourceID int64, stamp time.Time) string {
	name := fmt.Sprintf("Resource %d", resourceID)
	if r, ok := snap.Resource(resourceID); ok {
		name = r.Name
	}

	var events []model.Event
	for _, a := range snap.AllocationsByResource()[resourceID] {
		if e, ok := snap.Event(a.EventID); ok {
			events = append(events, e)
		}
	}
	return render(name, events, resourceNames(snap), stamp)
}

// resourceNames maps event ids to the sorted names of their resources.
func resourceNames(snap *store.Snapshot) map[int64][]string {
	names := make(map[int64][]string)
	for eventID, allocations := range snap.AllocationsByEvent() {
		for _, a := range allocations {
			if r, ok := snap.Resource(a.ResourceID); ok {
				names[eventID] = append(names[eventID], r.Name)
			}
		}
		sort.Strings(names[eventID])
	}
	return names
}

func render(name string, events []model.Event, locations map[int64][]string, stamp time.Time) string {
	sort.Slice(events, func(i, j int) bool {
		if events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].ID < events[j].ID
		}
		return events[i].StartTime.Before(events[j].StartTime)
	})

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(name)

	for _, e := range events {
		ev := cal.AddEvent(eventUID(e.ID))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetStartAt(e.StartTime.UTC())
		ev.SetEndAt(e.EndTime.UTC())
		ev.SetSummary(e.Title)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		if names := locations[e.ID]; len(names) > 0 {
			ev.SetLocation(strings.Join(names, ", "))
		}
	}
	return cal.Serialize()
}

func eventUID(id int64) string {
	return fmt.Sprintf("event-%d@event-scheduler", id)
}
