package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partsmatch/partsmatch-backend/pkg/db/models"
)

// Repository persists seller-facing in-app notifications.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a notifications repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx inserts a notification inside the caller's transaction so delivery
// attempts and their notifications commit or roll back together.
func (r *Repository) CreateTx(ctx context.Context, tx *gorm.DB, notification *models.SellerNotification) error {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	return conn.WithContext(ctx).Create(notification).Error
}

// ListForSeller returns the seller's notifications, newest first.
func (r *Repository) ListForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.SellerNotification, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.SellerNotification
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkRead stamps read_at on an unread notification. Returns false when the
// notification does not exist for this seller.
func (r *Repository) MarkRead(ctx context.Context, sellerID, notificationID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SellerNotification{}).
		Where("id = ? AND seller_id = ? AND read_at IS NULL", notificationID, sellerID).
		UpdateColumn("read_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
