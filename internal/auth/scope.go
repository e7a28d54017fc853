package auth

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PublicOnly returns a GORM scope that filters maps down to public ones.
func PublicOnly() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("maps.is_public = ?", true)
	}
}

// OwnedBy returns a GORM scope that filters maps to a single owner,
// regardless of visibility.
func OwnedBy(userID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("maps.user_id = ?", userID)
	}
}
