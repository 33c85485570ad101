package sellers

import (
	"context"

	"gorm.io/gorm"

	"github.com/partsmatch/partsmatch-backend/pkg/db/models"
	"github.com/partsmatch/partsmatch-backend/pkg/enums"
)

// Repository exposes seller lookup operations backing request fan-out.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a sellers repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListEligibleTx returns every seller a new part request should fan out to,
// ordered by creation time for deterministic queue writes. An empty result is
// a valid outcome, not an error.
//
// TODO(marketplace): also filter on is_active once seller suspension ships;
// today suspended accounts still receive queue entries.
func (r *Repository) ListEligibleTx(ctx context.Context, tx *gorm.DB) ([]models.User, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}

	var sellers []models.User
	err := conn.WithContext(ctx).
		Where("role = ? AND email_verified = ?", enums.UserRoleSeller, true).
		Order("created_at ASC").
		Find(&sellers).Error
	if err != nil {
		return nil, err
	}
	return sellers, nil
}

// ListEligible is the non-transactional variant of ListEligibleTx.
func (r *Repository) ListEligible(ctx context.Context) ([]models.User, error) {
	return r.ListEligibleTx(ctx, nil)
}
