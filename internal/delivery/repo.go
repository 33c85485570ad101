package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/partsmatch/partsmatch-backend/pkg/db/models"
	"github.com/partsmatch/partsmatch-backend/pkg/enums"
)

// Repository owns delivery_queue_entries persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a delivery queue repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InsertBatchTx inserts fan-out entries inside the caller's transaction so the
// part request and its queue rows commit atomically.
func (r *Repository) InsertBatchTx(ctx context.Context, tx *gorm.DB, entries []models.DeliveryQueueEntry) error {
	if len(entries) == 0 {
		return nil
	}
	conn := tx
	if conn == nil {
		conn = r.db
	}
	return conn.WithContext(ctx).Create(&entries).Error
}

// ClaimDueTx selects due pending entries oldest-first, bounded by limit, and
// flips them to processing within the caller's transaction. On Postgres the
// select takes FOR UPDATE SKIP LOCKED so concurrent sweeps never claim the
// same rows; the processing status only exists inside this transaction, so a
// crash rolls the rows back to pending.
func (r *Repository) ClaimDueTx(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]models.DeliveryQueueEntry, error) {
	query := tx.WithContext(ctx).
		Where("status = ?", enums.DeliveryStatusPending).
		Where("scheduled_delivery_time <= ?", now).
		Where("retry_count < max_retries").
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("scheduled_delivery_time ASC").
		Limit(limit)

	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	var entries []models.DeliveryQueueEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	err := tx.WithContext(ctx).
		Model(&models.DeliveryQueueEntry{}).
		Where("id IN ?", ids).
		UpdateColumn("status", enums.DeliveryStatusProcessing).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkProcessedTx transitions a claimed entry to its success terminal state.
func (r *Repository) MarkProcessedTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error {
	return tx.WithContext(ctx).
		Model(&models.DeliveryQueueEntry{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"status":       enums.DeliveryStatusProcessed,
			"processed_at": at,
			"last_error":   nil,
			"updated_at":   at,
		}).Error
}

// MarkRetryTx records a failed attempt that still has retries left. The entry
// returns to pending; nextAttemptAt is nil when no backoff is configured,
// which makes the entry eligible again on the very next sweep.
func (r *Repository) MarkRetryTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, attemptErr string, nextAttemptAt *time.Time, at time.Time) error {
	return tx.WithContext(ctx).
		Model(&models.DeliveryQueueEntry{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"status":          enums.DeliveryStatusPending,
			"retry_count":     gorm.Expr("retry_count + 1"),
			"last_error":      attemptErr,
			"next_attempt_at": nextAttemptAt,
			"updated_at":      at,
		}).Error
}

// MarkFailedTx transitions an exhausted entry to its failure terminal state.
func (r *Repository) MarkFailedTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, attemptErr string, at time.Time) error {
	return tx.WithContext(ctx).
		Model(&models.DeliveryQueueEntry{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"status":      enums.DeliveryStatusFailed,
			"retry_count": gorm.Expr("retry_count + 1"),
			"last_error":  attemptErr,
			"updated_at":  at,
		}).Error
}

// CountByStatus returns row counts keyed by delivery status.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.DeliveryStatus]int64, error) {
	type row struct {
		Status enums.DeliveryStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryQueueEntry{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.DeliveryStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ProcessedTiming is one processed entry's delay sample inside the stats window.
type ProcessedTiming struct {
	ScheduledDeliveryTime time.Time
	ProcessedAt           time.Time
}

// ListProcessedSince returns timing samples for entries processed at or after
// the cutoff. Averages are computed by the caller so the query stays portable
// across Postgres and the sqlite test harness.
func (r *Repository) ListProcessedSince(ctx context.Context, cutoff time.Time) ([]ProcessedTiming, error) {
	var rows []ProcessedTiming
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryQueueEntry{}).
		Select("scheduled_delivery_time, processed_at").
		Where("status = ? AND processed_at >= ?", enums.DeliveryStatusProcessed, cutoff).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListOverduePending returns the scheduled times of pending entries already
// past due, for overdue count and age statistics.
func (r *Repository) ListOverduePending(ctx context.Context, now time.Time) ([]time.Time, error) {
	var rows []struct {
		ScheduledDeliveryTime time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&models.DeliveryQueueEntry{}).
		Select("scheduled_delivery_time").
		Where("status = ? AND scheduled_delivery_time <= ? AND retry_count < max_retries", enums.DeliveryStatusPending, now).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	times := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		times = append(times, row.ScheduledDeliveryTime)
	}
	return times, nil
}

// FindByID loads one queue entry.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryQueueEntry, error) {
	var entry models.DeliveryQueueEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
