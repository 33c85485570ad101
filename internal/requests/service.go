package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partsmatch/partsmatch-backend/internal/delivery"
	"github.com/partsmatch/partsmatch-backend/pkg/config"
	"github.com/partsmatch/partsmatch-backend/pkg/db"
	"github.com/partsmatch/partsmatch-backend/pkg/db/models"
	"github.com/partsmatch/partsmatch-backend/pkg/enums"
	pkgerrors "github.com/partsmatch/partsmatch-backend/pkg/errors"
	"github.com/partsmatch/partsmatch-backend/pkg/logger"
)

// txRunner abstracts pkg/db.Client's transaction helper.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// sellerLister resolves the fan-out audience.
type sellerLister interface {
	ListEligibleTx(ctx context.Context, tx *gorm.DB) ([]models.User, error)
}

// queueWriter inserts fan-out entries.
type queueWriter interface {
	InsertBatchTx(ctx context.Context, tx *gorm.DB, entries []models.DeliveryQueueEntry) error
}

// requestCreator persists the request row.
type requestCreator interface {
	CreateTx(ctx context.Context, tx *gorm.DB, request *models.PartRequest) error
	ListVisibleForSeller(ctx context.Context, sellerID uuid.UUID, now time.Time, limit int) ([]VisibleRequest, error)
}

// Service implements part request submission: the request insert and its
// seller fan-out commit in one transaction.
type Service struct {
	db         txRunner
	repo       requestCreator
	sellers    sellerLister
	queue      queueWriter
	calculator *delivery.ScheduleCalculator
	cfg        config.DeliveryConfig
	logg       *logger.Logger
	now        func() time.Time
}

// ServiceParams wires submission dependencies.
type ServiceParams struct {
	DB         txRunner
	Repo       requestCreator
	Sellers    sellerLister
	Queue      queueWriter
	Calculator *delivery.ScheduleCalculator
	Config     config.DeliveryConfig
	Logger     *logger.Logger
	Now        func() time.Time
}

// NewService validates dependencies and builds the submission service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "requests service requires a db client")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "requests service requires a repository")
	}
	if params.Sellers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "requests service requires a seller lister")
	}
	if params.Queue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "requests service requires a queue writer")
	}
	if params.Calculator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "requests service requires a schedule calculator")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "requests service requires a logger")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:         params.DB,
		repo:       params.Repo,
		sellers:    params.Sellers,
		queue:      params.Queue,
		calculator: params.Calculator,
		cfg:        params.Config,
		logg:       params.Logger,
		now:        now,
	}, nil
}

// Submit persists the buyer's request and one queue entry per eligible
// seller. Zero eligible sellers is a successful submission with an empty
// fan-out. Any failure rolls back the request and every entry together.
func (s *Service) Submit(ctx context.Context, buyerID uuid.UUID, dto SubmitRequestDTO) (*SubmitResult, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}

	request, err := dto.ToModel(buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid part request")
	}

	submittedAt := s.now().UTC()
	var result SubmitResult

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(ctx, tx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating part request")
		}

		sellers, err := s.sellers.ListEligibleTx(ctx, tx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing eligible sellers")
		}

		maxRetries := s.cfg.MaxRetries
		if maxRetries <= 0 {
			maxRetries = 3
		}
		entries := make([]models.DeliveryQueueEntry, 0, len(sellers))
		for _, seller := range sellers {
			schedule := s.calculator.Calculate(submittedAt, seller.Tier())
			entries = append(entries, models.DeliveryQueueEntry{
				ID:                    uuid.New(),
				RequestID:             request.ID,
				SellerID:              seller.ID,
				Status:                enums.DeliveryStatusPending,
				ScheduledDeliveryTime: schedule.ScheduledDeliveryTime,
				SellerVisibleTime:     schedule.SellerVisibleTime,
				MaxRetries:            maxRetries,
			})
		}
		if err := s.queue.InsertBatchTx(ctx, tx, entries); err != nil {
			if db.IsUniqueViolation(err, "ux_delivery_queue_request_seller") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "seller already scheduled for this request")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scheduling seller deliveries")
		}

		result = SubmitResult{
			RequestID:             request.ID,
			ScheduledSellersCount: len(entries),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"request_id":        result.RequestID.String(),
		"scheduled_sellers": result.ScheduledSellersCount,
	}), "part request submitted")
	return &result, nil
}

// VisibleForSeller returns the seller's feed of requests whose visibility
// time has passed.
func (s *Service) VisibleForSeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]VisibleRequest, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	rows, err := s.repo.ListVisibleForSeller(ctx, sellerID, s.now().UTC(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing visible requests")
	}
	return rows, nil
}
