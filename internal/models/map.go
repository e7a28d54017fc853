package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Map is a story container centered on a geographic location.
//
// Views and Likes are denormalized counters. Likes must always equal the
// number of UserLike rows for the map; it is mutated only by the like/unlike
// transactions in MapService, never through the generic update path.
type Map struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	IsPublic     bool      `gorm:"not null;index" json:"is_public"`
	CenterLat    float64   `gorm:"type:decimal(10,8);not null" json:"center_lat"`
	CenterLng    float64   `gorm:"type:decimal(11,8);not null" json:"center_lng"`
	ZoomLevel    int       `gorm:"not null" json:"zoom_level"`
	ThumbnailURL string    `gorm:"type:text" json:"thumbnail_url"`
	Views        int       `gorm:"not null;default:0" json:"views"`
	Likes        int       `gorm:"not null;default:0" json:"likes"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Markers []Marker `gorm:"foreignKey:MapID;constraint:OnDelete:CASCADE" json:"markers,omitempty"`
}

func (m *Map) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
