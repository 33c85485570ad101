package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/partsmatch/partsmatch-backend/pkg/enums"
)

// DeliveryQueueEntry is one seller's slot in the fan-out of a part request.
//
// Exactly one entry exists per (request, seller) pair, created in the same
// transaction as the request itself. Entries are mutated only by the delivery
// worker and are never deleted; terminal rows double as the audit trail the
// stats reporter reads.
type DeliveryQueueEntry struct {
	ID                    uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID             uuid.UUID            `gorm:"column:request_id;type:uuid;not null;uniqueIndex:ux_delivery_queue_request_seller"`
	SellerID              uuid.UUID            `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:ux_delivery_queue_request_seller"`
	Status                enums.DeliveryStatus `gorm:"column:status;type:delivery_status;not null;default:pending"`
	ScheduledDeliveryTime time.Time            `gorm:"column:scheduled_delivery_time;not null"`
	SellerVisibleTime     time.Time            `gorm:"column:seller_visible_time;not null"`
	// NextAttemptAt gates retries when a backoff is configured. It never
	// rewrites ScheduledDeliveryTime, which is fixed at creation.
	NextAttemptAt *time.Time `gorm:"column:next_attempt_at"`
	RetryCount    int        `gorm:"column:retry_count;not null;default:0"`
	MaxRetries    int        `gorm:"column:max_retries;not null;default:3"`
	LastError     *string    `gorm:"column:last_error;type:text"`
	ProcessedAt   *time.Time `gorm:"column:processed_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
