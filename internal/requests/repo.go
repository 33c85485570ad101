package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partsmatch/partsmatch-backend/pkg/db/models"
	"github.com/partsmatch/partsmatch-backend/pkg/enums"
)

// Repository owns part_requests persistence and the seller feed query.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a part requests repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx inserts a part request inside the caller's transaction.
func (r *Repository) CreateTx(ctx context.Context, tx *gorm.DB, request *models.PartRequest) error {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	return conn.WithContext(ctx).Create(request).Error
}

// FindWithBuyerTx loads a request and its buyer, using the caller's
// transaction when provided.
func (r *Repository) FindWithBuyerTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*models.PartRequest, *models.User, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}

	var request models.PartRequest
	if err := conn.WithContext(ctx).First(&request, "id = ?", requestID).Error; err != nil {
		return nil, nil, err
	}
	var buyer models.User
	if err := conn.WithContext(ctx).First(&buyer, "id = ?", request.BuyerID).Error; err != nil {
		return nil, nil, err
	}
	return &request, &buyer, nil
}

// ListVisibleForSeller returns requests whose queue entry for this seller is
// processed and whose visibility time has passed, newest-visible first.
func (r *Repository) ListVisibleForSeller(ctx context.Context, sellerID uuid.UUID, now time.Time, limit int) ([]VisibleRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []VisibleRequest
	err := r.db.WithContext(ctx).
		Table("delivery_queue_entries AS dqe").
		Select(`pr.id AS request_id, pr.part_name, pr.vehicle_make, pr.vehicle_model,
			pr.vehicle_year, pr.condition, pr.urgency, pr.budget, pr.parish,
			dqe.seller_visible_time AS visible_since`).
		Joins("JOIN part_requests pr ON pr.id = dqe.request_id").
		Where("dqe.seller_id = ?", sellerID).
		Where("dqe.status = ?", enums.DeliveryStatusProcessed).
		Where("dqe.seller_visible_time <= ?", now).
		Order("dqe.seller_visible_time DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
