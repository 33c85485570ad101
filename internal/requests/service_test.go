package requests

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partsmatch/partsmatch-backend/internal/delivery"
	"github.com/partsmatch/partsmatch-backend/pkg/config"
	"github.com/partsmatch/partsmatch-backend/pkg/db/models"
	"github.com/partsmatch/partsmatch-backend/pkg/enums"
	"github.com/partsmatch/partsmatch-backend/pkg/logger"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeRepo struct {
	created   *models.PartRequest
	createErr error
	visible   []VisibleRequest
}

func (f *fakeRepo) CreateTx(ctx context.Context, tx *gorm.DB, request *models.PartRequest) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = request
	return nil
}

func (f *fakeRepo) ListVisibleForSeller(ctx context.Context, sellerID uuid.UUID, now time.Time, limit int) ([]VisibleRequest, error) {
	return f.visible, nil
}

type fakeSellers struct {
	sellers []models.User
	err     error
}

func (f *fakeSellers) ListEligibleTx(ctx context.Context, tx *gorm.DB) ([]models.User, error) {
	return f.sellers, f.err
}

type fakeQueue struct {
	entries []models.DeliveryQueueEntry
	err     error
}

func (f *fakeQueue) InsertBatchTx(ctx context.Context, tx *gorm.DB, entries []models.DeliveryQueueEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = entries
	return nil
}

func tier(s string) *string { return &s }

func sellerWithTier(t *string) models.User {
	return models.User{
		ID:               uuid.New(),
		Role:             enums.UserRoleSeller,
		EmailVerified:    true,
		SubscriptionTier: t,
	}
}

func validDTO() SubmitRequestDTO {
	return SubmitRequestDTO{
		PartName:     "alternator",
		VehicleMake:  "Toyota",
		VehicleModel: "Corolla",
		VehicleYear:  2018,
		Condition:    "used",
		Urgency:      "high",
		Parish:       "Kingston",
	}
}

func deliveryCfg() config.DeliveryConfig {
	return config.DeliveryConfig{
		MaxRetries:           3,
		ProcessingDelay:      2 * time.Minute,
		VisibilityBasic:      24 * time.Hour,
		VisibilityPremium:    5 * time.Minute,
		VisibilityEnterprise: 5 * time.Minute,
		VisibilityDefault:    48 * time.Hour,
	}
}

func newTestService(t *testing.T, repo *fakeRepo, sellers *fakeSellers, queue *fakeQueue, now time.Time) *Service {
	t.Helper()
	cfg := deliveryCfg()
	svc, err := NewService(ServiceParams{
		DB:         fakeTxRunner{},
		Repo:       repo,
		Sellers:    sellers,
		Queue:      queue,
		Calculator: delivery.NewScheduleCalculator(cfg),
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:        func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestSubmit_FansOutPerSellerTier(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	basic := sellerWithTier(tier("basic"))
	premium := sellerWithTier(tier("premium"))
	unknown := sellerWithTier(nil)

	repo := &fakeRepo{}
	queue := &fakeQueue{}
	svc := newTestService(t, repo, &fakeSellers{sellers: []models.User{basic, premium, unknown}}, queue, now)

	result, err := svc.Submit(context.Background(), uuid.New(), validDTO())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.ScheduledSellersCount != 3 {
		t.Fatalf("expected 3 scheduled sellers, got %d", result.ScheduledSellersCount)
	}
	if repo.created == nil || repo.created.ID != result.RequestID {
		t.Fatal("request not persisted before fan-out")
	}

	byseller := map[uuid.UUID]models.DeliveryQueueEntry{}
	for _, e := range queue.entries {
		byseller[e.SellerID] = e
		if !e.ScheduledDeliveryTime.Equal(now.Add(2 * time.Minute)) {
			t.Fatalf("processing delay must be uniform, got %v", e.ScheduledDeliveryTime)
		}
		if e.Status != enums.DeliveryStatusPending || e.RetryCount != 0 || e.MaxRetries != 3 {
			t.Fatalf("unexpected entry init: %+v", e)
		}
		if e.RequestID != result.RequestID {
			t.Fatalf("entry bound to wrong request: %+v", e)
		}
	}
	if !byseller[basic.ID].SellerVisibleTime.Equal(now.Add(24 * time.Hour)) {
		t.Fatal("basic tier should wait 24h for visibility")
	}
	if !byseller[premium.ID].SellerVisibleTime.Equal(now.Add(5 * time.Minute)) {
		t.Fatal("premium tier should wait 5m for visibility")
	}
	if !byseller[unknown.ID].SellerVisibleTime.Equal(now.Add(48 * time.Hour)) {
		t.Fatal("missing tier should get the conservative 48h delay")
	}
}

func TestSubmit_ZeroSellersIsSuccess(t *testing.T) {
	repo := &fakeRepo{}
	queue := &fakeQueue{}
	svc := newTestService(t, repo, &fakeSellers{}, queue, time.Now())

	result, err := svc.Submit(context.Background(), uuid.New(), validDTO())
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.ScheduledSellersCount != 0 {
		t.Fatalf("expected 0 scheduled sellers, got %d", result.ScheduledSellersCount)
	}
	if repo.created == nil {
		t.Fatal("request should still be created with no sellers")
	}
}

func TestSubmit_QueueFailureRollsBack(t *testing.T) {
	repo := &fakeRepo{}
	queue := &fakeQueue{err: errors.New("insert failed")}
	svc := newTestService(t, repo, &fakeSellers{sellers: []models.User{sellerWithTier(tier("basic"))}}, queue, time.Now())

	if _, err := svc.Submit(context.Background(), uuid.New(), validDTO()); err == nil {
		t.Fatal("expected queue failure to surface")
	}
}

func TestSubmit_InvalidEnumRejected(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeSellers{}, &fakeQueue{}, time.Now())
	dto := validDTO()
	dto.Condition = "mint"
	if _, err := svc.Submit(context.Background(), uuid.New(), dto); err == nil {
		t.Fatal("expected invalid condition error")
	}
}

func TestSubmit_RequiresBuyer(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeSellers{}, &fakeQueue{}, time.Now())
	if _, err := svc.Submit(context.Background(), uuid.Nil, validDTO()); err == nil {
		t.Fatal("expected buyer id validation error")
	}
}

func TestVisibleForSeller_RequiresSeller(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeSellers{}, &fakeQueue{}, time.Now())
	if _, err := svc.VisibleForSeller(context.Background(), uuid.Nil, 10); err == nil {
		t.Fatal("expected seller id validation error")
	}
}
