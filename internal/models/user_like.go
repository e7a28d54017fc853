package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserLike records that a user has liked a map. It is the source of truth
// for like membership; Map.Likes is derived from it. The composite unique
// index is the final arbiter for concurrent double-like attempts.
type UserLike struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_likes_user_map" json:"user_id"`
	MapID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_likes_user_map;index" json:"map_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *UserLike) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
