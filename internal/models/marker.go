package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Marker is a point of interest belonging to exactly one map. OrderIndex
// defines display/route order and is not required to be unique.
type Marker struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MapID       uuid.UUID `gorm:"type:uuid;not null;index" json:"map_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Latitude    float64   `gorm:"type:decimal(10,8);not null" json:"latitude"`
	Longitude   float64   `gorm:"type:decimal(11,8);not null" json:"longitude"`
	ImageURL    string    `gorm:"type:text" json:"image_url"`
	OrderIndex  int       `gorm:"not null;default:0" json:"order_index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (m *Marker) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
