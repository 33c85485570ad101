package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partsmatch/partsmatch-backend/pkg/enums"
)

// User represents the canonical identity entity for buyers and sellers.
type User struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email            string         `gorm:"type:text;not null;uniqueIndex"`
	Role             enums.UserRole `gorm:"type:user_role;not null"`
	FirstName        string         `gorm:"column:first_name;not null"`
	LastName         string         `gorm:"column:last_name;not null"`
	Phone            *string        `gorm:"column:phone"`
	Parish           *string        `gorm:"column:parish"`
	EmailVerified    bool           `gorm:"column:email_verified;not null;default:false"`
	IsActive         bool           `gorm:"column:is_active;not null;default:true"`
	SubscriptionTier *string        `gorm:"column:subscription_tier"`
	LastLoginAt      *time.Time     `gorm:"column:last_login_at"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// Tier returns the raw subscription tier string, empty when unset.
func (u User) Tier() string {
	if u.SubscriptionTier == nil {
		return ""
	}
	return *u.SubscriptionTier
}

// FullName joins first and last name for display payloads.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
