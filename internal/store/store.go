package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"event-scheduler-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id int64) (*model.Event, error)
	CreateEvent(ctx context.Context, e *model.Event) error
	SaveEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id int64) error

	ListResources(ctx context.Context) ([]model.Resource, error)
	GetResource(ctx context.Context, id int64) (*model.Resource, error)
	CreateResource(ctx context.Context, r *model.Resource) error
	SaveResource(ctx context.Context, r *model.Resource) error
	DeleteResource(ctx context.Context, id int64) error

	ListAllocations(ctx context.Context) ([]model.Allocation, error)
	GetAllocation(ctx context.Context, id int64) (*model.Allocation, error)
	FindAllocation(ctx context.Context, eventID, resourceID int64) (*model.Allocation, error)
	AllocationsByEvent(ctx context.Context, eventID int64) ([]model.Allocation, error)
	AllocationsByResource(ctx context.Context, resourceID int64) ([]model.Allocation, error)
	CreateAllocation(ctx context.Context, a *model.Allocation) error
	DeleteAllocation(ctx context.Context, id int64) error

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription, resourceIDs []int64) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForResource(ctx context.Context, resourceID int64) ([]model.PushSubscription, error)

	Counts(ctx context.Context) (Counts, error)

	// Snapshot loads every event, resource and allocation in one read transaction.
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Transaction runs fn against a Store bound to a single database transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- Events ---

// ListEvents returns all events, most recent start first.
func (s *gormStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	if err := s.db.WithContext(ctx).Order("start_time DESC, id DESC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (s *gormStore) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	var e model.Event
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *gormStore) CreateEvent(ctx context.Context, e *model.Event) error {
	normalizeEvent(e)
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(e).Error
}

func (s *gormStore) SaveEvent(ctx context.Context, e *model.Event) error {
	normalizeEvent(e)
	res := s.db.WithContext(ctx).Model(e).Omit(clause.Associations).
		Select("title", "start_time", "end_time", "description", "updated_at").
		Updates(e)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEvent removes an event together with all of its allocations.
func (s *gormStore) DeleteEvent(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&model.Event{}, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("event_id = ?", id).Delete(&model.Allocation{}).Error; err != nil {
			return fmt.Errorf("failed to delete allocations of event %d: %w", id, err)
		}
		if err := tx.Delete(&model.Event{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete event %d: %w", id, err)
		}
		return nil
	})
}

// --- Resources ---

func (s *gormStore) ListResources(ctx context.Context) ([]model.Resource, error) {
	var resources []model.Resource
	if err := s.db.WithContext(ctx).Order("id").Find(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

func (s *gormStore) GetResource(ctx context.Context, id int64) (*model.Resource, error) {
	var r model.Resource
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *gormStore) CreateResource(ctx context.Context, r *model.Resource) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(r).Error
}

func (s *gormStore) SaveResource(ctx context.Context, r *model.Resource) error {
	res := s.db.WithContext(ctx).Model(r).Omit(clause.Associations).
		Select("name", "type", "updated_at").
		Updates(r)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteResource removes a resource, its allocations and its subscription
// mappings in one transaction.
func (s *gormStore) DeleteResource(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&model.Resource{}, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("resource_id = ?", id).Delete(&model.Allocation{}).Error; err != nil {
			return fmt.Errorf("failed to delete allocations of resource %d: %w", id, err)
		}
		if err := tx.Exec("DELETE FROM subscription_resource_mapping WHERE resource_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete subscriptions of resource %d: %w", id, err)
		}
		if err := tx.Delete(&model.Resource{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete resource %d: %w", id, err)
		}
		return nil
	})
}

// --- Allocations ---

func (s *gormStore) ListAllocations(ctx context.Context) ([]model.Allocation, error) {
	var allocations []model.Allocation
	if err := s.db.WithContext(ctx).Order("id").Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

func (s *gormStore) GetAllocation(ctx context.Context, id int64) (*model.Allocation, error) {
	var a model.Allocation
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *gormStore) FindAllocation(ctx context.Context, eventID, resourceID int64) (*model.Allocation, error) {
	var a model.Allocation
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND resource_id = ?", eventID, resourceID).
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// AllocationsByEvent returns the allocations of an event, ordered by id.
func (s *gormStore) AllocationsByEvent(ctx context.Context, eventID int64) ([]model.Allocation, error) {
	var allocations []model.Allocation
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("id").Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// AllocationsByResource returns the allocations of a resource, ordered by id,
// with the allocated Event preloaded.
func (s *gormStore) AllocationsByResource(ctx context.Context, resourceID int64) ([]model.Allocation, error) {
	var allocations []model.Allocation
	if err := s.db.WithContext(ctx).
		Preload("Event").
		Where("resource_id = ?", resourceID).
		Order("id").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

func (s *gormStore) CreateAllocation(ctx context.Context, a *model.Allocation) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
}

func (s *gormStore) DeleteAllocation(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.Allocation{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Subscriptions ---

// UpsertSubscription creates or replaces a push subscription and the set of
// resources it watches.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription, resourceIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Resources").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return err
		}

		var resources []*model.Resource
		if len(resourceIDs) > 0 {
			if err := tx.Find(&resources, resourceIDs).Error; err != nil {
				return err
			}
		}

		return tx.Model(sub).Association("Resources").Replace(resources)
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("Resources").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, notFound(err)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM subscription_resource_mapping WHERE push_subscription_endpoint = ?", endpoint).Error; err != nil {
			return err
		}
		return tx.Delete(&model.PushSubscription{Endpoint: endpoint}).Error
	})
}

// SubscriptionsForResource returns the subscriptions watching a resource.
func (s *gormStore) SubscriptionsForResource(ctx context.Context, resourceID int64) ([]model.PushSubscription, error) {
	var subscriptions []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_resource_mapping srm ON srm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("srm.resource_id = ?", resourceID).
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

// --- Reports ---

func (s *gormStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	db := s.db.WithContext(ctx)
	if err := db.Model(&model.Event{}).Count(&c.Events).Error; err != nil {
		return Counts{}, err
	}
	if err := db.Model(&model.Resource{}).Count(&c.Resources).Error; err != nil {
		return Counts{}, err
	}
	if err := db.Model(&model.Allocation{}).Count(&c.Allocations).Error; err != nil {
		return Counts{}, err
	}
	return c, nil
}

// Snapshot reads the three scheduling tables in one transaction. On
// PostgreSQL the transaction is read-only at repeatable-read isolation so
// concurrent commits cannot leak in between the reads.
func (s *gormStore) Snapshot(ctx context.Context) (*Snapshot, error) {
	var opts *sql.TxOptions
	if s.db.Dialector.Name() == "postgres" {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}

	snap := &Snapshot{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var events []model.Event
		if err := tx.Order("id").Find(&events).Error; err != nil {
			return fmt.Errorf("failed to read events: %w", err)
		}
		if err := tx.Order("id").Find(&snap.Resources).Error; err != nil {
			return fmt.Errorf("failed to read resources: %w", err)
		}
		if err := tx.Order("id").Find(&snap.Allocations).Error; err != nil {
			return fmt.Errorf("failed to read allocations: %w", err)
		}
		snap.Events = make(map[int64]model.Event, len(events))
		for _, e := range events {
			snap.Events[e.ID] = e
		}
		return nil
	}, opts)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func normalizeEvent(e *model.Event) {
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
}
