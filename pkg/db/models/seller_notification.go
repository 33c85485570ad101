package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partsmatch/partsmatch-backend/pkg/enums"
)

// SellerNotification stores in-app notification payloads scoped to sellers.
type SellerNotification struct {
	ID        uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID  uuid.UUID              `gorm:"column:seller_id;type:uuid;not null"`
	RequestID uuid.UUID              `gorm:"column:request_id;type:uuid;not null"`
	Type      enums.NotificationType `gorm:"type:notification_type;not null"`
	Title     string                 `gorm:"type:text;not null"`
	Message   string                 `gorm:"type:text;not null"`
	ReadAt    *time.Time             `gorm:"type:timestamptz"`
	CreatedAt time.Time              `gorm:"type:timestamptz;default:now()"`
}
