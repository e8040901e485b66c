// Package seed loads sample resources, events and allocations from YAML.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"event-scheduler-backend/internal/model"
	"event-scheduler-backend/internal/schedule"
	"event-scheduler-backend/internal/store"
)

//go:embed default.yaml
var defaultSeed []byte

// File is the YAML layout of a seed file.
type File struct {
	// DayOffset places events relative to today when an event has no date.
	DayOffset int        `yaml:"day_offset"`
	Resources []Resource `yaml:"resources"`
	Events    []Event    `yaml:"events"`
}

type Resource struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type Event struct {
	Title       string   `yaml:"title"`
	Date        string   `yaml:"date"`  // YYYY-MM-DD, optional
	Start       string   `yaml:"start"` // HH:MM
	End         string   `yaml:"end"`   // HH:MM
	Description string   `yaml:"description"`
	Resources   []string `yaml:"resources"`
}

// Summary counts the rows created by Apply.
type Summary struct {
	Resources   int
	Events      int
	Allocations int
}

// Default returns the built-in sample schedule.
func Default() (*File, error) {
	return parse(defaultSeed)
}

// Load reads a seed file. The name "default" selects the built-in sample.
func Load(path string) (*File, error) {
	if path == "default" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(raw)
}

func parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &f, nil
}

// Apply replaces the contents of the store with the seed in one transaction.
// Allocations are written as listed, overlapping ones included, so a seeded
// database can demonstrate the conflict report.
func Apply(ctx context.Context, st store.Store, f *File, now time.Time, loc *time.Location) (Summary, error) {
	if loc == nil {
		loc = time.UTC
	}
	var sum Summary
	err := st.Transaction(ctx, func(tx store.Store) error {
		sum = Summary{}
		if err := reset(ctx, tx); err != nil {
			return err
		}

		byName := make(map[string]int64, len(f.Resources))
		for _, r := range f.Resources {
			in := schedule.ResourceInput{Name: r.Name, Type: r.Type}
			if err := in.Validate(); err != nil {
				return fmt.Errorf("resource %q: %w", r.Name, err)
			}
			row := &model.Resource{Name: strings.TrimSpace(r.Name), Type: strings.TrimSpace(r.Type)}
			if err := tx.CreateResource(ctx, row); err != nil {
				return err
			}
			byName[row.Name] = row.ID
			sum.Resources++
		}

		day := now.In(loc).AddDate(0, 0, f.DayOffset)
		for _, e := range f.Events {
			in, err := e.input(day, loc)
			if err != nil {
				return fmt.Errorf("event %q: %w", e.Title, err)
			}
			row := &model.Event{Title: strings.TrimSpace(in.Title), StartTime: in.StartTime, EndTime: in.EndTime, Description: in.Description}
			if err := tx.CreateEvent(ctx, row); err != nil {
				return err
			}
			sum.Events++

			for _, name := range e.Resources {
				rid, ok := byName[strings.TrimSpace(name)]
				if !ok {
					return fmt.Errorf("event %q: unknown resource %q", e.Title, name)
				}
				if err := tx.CreateAllocation(ctx, &model.Allocation{EventID: row.ID, ResourceID: rid}); err != nil {
					return err
				}
				sum.Allocations++
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	log.Printf("Seeded %d resources, %d events, %d allocations", sum.Resources, sum.Events, sum.Allocations)
	return sum, nil
}

func (e Event) input(day time.Time, loc *time.Location) (schedule.EventInput, error) {
	date := day.Format("2006-01-02")
	if e.Date != "" {
		date = e.Date
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", date+" "+e.Start, loc)
	if err != nil {
		return schedule.EventInput{}, fmt.Errorf("invalid start: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02 15:04", date+" "+e.End, loc)
	if err != nil {
		return schedule.EventInput{}, fmt.Errorf("invalid end: %w", err)
	}
	in := schedule.EventInput{Title: e.Title, StartTime: start, EndTime: end, Description: e.Description}
	return in, in.Validate()
}

// reset removes every event and resource; their allocations and
// subscription mappings go with them.
func reset(ctx context.Context, tx store.Store) error {
	events, err := tx.ListEvents(ctx)
	if err != nil {
		return err
	}
	for _, e := range events {
		if err := tx.DeleteEvent(ctx, e.ID); err != nil {
			return err
		}
	}
	resources, err := tx.ListResources(ctx)
	if err != nil {
		return err
	}
	for _, r := range resources {
		if err := tx.DeleteResource(ctx, r.ID); err != nil {
			return err
		}
	}
	return nil
}
