package model

import "time"

// Resource is anything that can be committed to an event: a room, a piece of
// equipment, an instructor.
type Resource struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Type      string    `gorm:"size:50;not null;index" json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Allocations []Allocation `gorm:"foreignKey:ResourceID" json:"-"`
}
