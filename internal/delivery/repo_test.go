package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/partsmatch/partsmatch-backend/pkg/db/models"
	"github.com/partsmatch/partsmatch-backend/pkg/enums"
)

func newRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`
		CREATE TABLE delivery_queue_entries (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			seller_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			scheduled_delivery_time DATETIME NOT NULL,
			seller_visible_time DATETIME NOT NULL,
			next_attempt_at DATETIME,
			retry_count INTEGER NOT NULL DEFAULT 0,
			max_retries INTEGER NOT NULL DEFAULT 3,
			last_error TEXT,
			processed_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (request_id, seller_id)
		)
	`).Error)
	return conn
}

func seedEntry(t *testing.T, db *gorm.DB, mutate func(*models.DeliveryQueueEntry)) models.DeliveryQueueEntry {
	t.Helper()
	now := time.Now().UTC()
	entry := models.DeliveryQueueEntry{
		ID:                    uuid.New(),
		RequestID:             uuid.New(),
		SellerID:              uuid.New(),
		Status:                enums.DeliveryStatusPending,
		ScheduledDeliveryTime: now.Add(-time.Minute),
		SellerVisibleTime:     now.Add(24 * time.Hour),
		MaxRetries:            3,
	}
	if mutate != nil {
		mutate(&entry)
	}
	require.NoError(t, db.Create(&entry).Error)
	return entry
}

func TestInsertBatchTx_UniquePerRequestSeller(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	requestID := uuid.New()
	sellerID := uuid.New()
	now := time.Now().UTC()
	entries := []models.DeliveryQueueEntry{{
		ID:                    uuid.New(),
		RequestID:             requestID,
		SellerID:              sellerID,
		Status:                enums.DeliveryStatusPending,
		ScheduledDeliveryTime: now,
		SellerVisibleTime:     now,
		MaxRetries:            3,
	}}
	require.NoError(t, repo.InsertBatchTx(ctx, db, entries))

	dup := entries
	dup[0].ID = uuid.New()
	require.Error(t, repo.InsertBatchTx(ctx, db, dup))

	require.NoError(t, repo.InsertBatchTx(ctx, db, nil))
}

func TestClaimDueTx_SelectsOnlyEligible(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	due := seedEntry(t, db, nil)
	seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.ScheduledDeliveryTime = now.Add(time.Hour) // not yet due
	})
	seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.RetryCount = 3 // retries exhausted
	})
	seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.Status = enums.DeliveryStatusProcessed
	})
	seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.Status = enums.DeliveryStatusFailed
	})
	backoff := now.Add(time.Hour)
	seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.NextAttemptAt = &backoff // backoff still pending
	})

	claimed, err := repo.ClaimDueTx(ctx, db, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, due.ID, claimed[0].ID)

	var stored models.DeliveryQueueEntry
	require.NoError(t, db.First(&stored, "id = ?", due.ID).Error)
	require.Equal(t, enums.DeliveryStatusProcessing, stored.Status)
}

func TestClaimDueTx_OldestFirstBounded(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	oldest := seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.ScheduledDeliveryTime = now.Add(-3 * time.Hour)
	})
	middle := seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.ScheduledDeliveryTime = now.Add(-2 * time.Hour)
	})
	seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.ScheduledDeliveryTime = now.Add(-time.Hour)
	})

	claimed, err := repo.ClaimDueTx(context.Background(), db, now, 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	require.Equal(t, oldest.ID, claimed[0].ID)
	require.Equal(t, middle.ID, claimed[1].ID)
}

func TestMarkProcessedTx(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	entry := seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		lastErr := "old failure"
		e.LastError = &lastErr
	})
	at := time.Now().UTC()

	require.NoError(t, repo.MarkProcessedTx(ctx, db, entry.ID, at))

	stored, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, enums.DeliveryStatusProcessed, stored.Status)
	require.NotNil(t, stored.ProcessedAt)
	require.Nil(t, stored.LastError)
}

func TestMarkRetryTx(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	entry := seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.Status = enums.DeliveryStatusProcessing
		e.RetryCount = 1
	})
	next := time.Now().UTC().Add(5 * time.Minute)

	require.NoError(t, repo.MarkRetryTx(ctx, db, entry.ID, "sink unavailable", &next, time.Now().UTC()))

	stored, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, enums.DeliveryStatusPending, stored.Status)
	require.Equal(t, 2, stored.RetryCount)
	require.NotNil(t, stored.LastError)
	require.Equal(t, "sink unavailable", *stored.LastError)
	require.NotNil(t, stored.NextAttemptAt)
	require.Equal(t, entry.ScheduledDeliveryTime.Unix(), stored.ScheduledDeliveryTime.Unix())
}

func TestMarkFailedTx(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	entry := seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.Status = enums.DeliveryStatusProcessing
		e.RetryCount = 2
	})

	require.NoError(t, repo.MarkFailedTx(ctx, db, entry.ID, "gave up", time.Now().UTC()))

	stored, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	require.Equal(t, enums.DeliveryStatusFailed, stored.Status)
	require.Equal(t, 3, stored.RetryCount)

	// Terminal rows are never claimed again.
	claimed, err := repo.ClaimDueTx(ctx, db, time.Now().UTC().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Empty(t, claimed)
}

func TestCountByStatus(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)

	seedEntry(t, db, nil)
	seedEntry(t, db, nil)
	seedEntry(t, db, func(e *models.DeliveryQueueEntry) { e.Status = enums.DeliveryStatusFailed })

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), counts[enums.DeliveryStatusPending])
	require.Equal(t, int64(1), counts[enums.DeliveryStatusFailed])
}

func TestProcessedAndOverdueQueries(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	recent := now.Add(-time.Hour)
	seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.Status = enums.DeliveryStatusProcessed
		e.ProcessedAt = &recent
	})
	old := now.Add(-48 * time.Hour)
	seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.Status = enums.DeliveryStatusProcessed
		e.ProcessedAt = &old
	})
	seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.ScheduledDeliveryTime = now.Add(-time.Minute)
	})
	seedEntry(t, db, func(e *models.DeliveryQueueEntry) {
		e.ScheduledDeliveryTime = now.Add(time.Hour)
	})

	processed, err := repo.ListProcessedSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, processed, 1)

	overdue, err := repo.ListOverduePending(ctx, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
}
