package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account that owns maps and like records.
type User struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email            string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Username         string    `gorm:"size:255;not null;uniqueIndex" json:"username"`
	Password         string    `gorm:"not null" json:"-"`
	SubscriptionPlan string    `gorm:"size:50;default:'free'" json:"subscription_plan"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Maps []Map `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns the UUID in-process so the model works on drivers
// without a server-side uuid default.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
