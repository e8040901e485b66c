package model

import "time"

// Allocation commits one resource to one event. A given (event, resource)
// pair exists at most once.
type Allocation struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	EventID    int64     `gorm:"not null;uniqueIndex:idx_allocation_event_resource;index" json:"event_id"`
	ResourceID int64     `gorm:"not null;uniqueIndex:idx_allocation_event_resource;index" json:"resource_id"`
	CreatedAt  time.Time `json:"created_at"`

	// Associations
	Event    Event    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Resource Resource `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
