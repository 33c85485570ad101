package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partsmatch/partsmatch-backend/pkg/config"
	"github.com/partsmatch/partsmatch-backend/pkg/db/models"
	pkgerrors "github.com/partsmatch/partsmatch-backend/pkg/errors"
	"github.com/partsmatch/partsmatch-backend/pkg/logger"
	"github.com/partsmatch/partsmatch-backend/pkg/metrics"
)

// txRunner abstracts pkg/db.Client's transaction helper.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// queueRepo is the slice of the delivery repository the processor mutates.
type queueRepo interface {
	ClaimDueTx(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]models.DeliveryQueueEntry, error)
	MarkProcessedTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
	MarkRetryTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, attemptErr string, nextAttemptAt *time.Time, at time.Time) error
	MarkFailedTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, attemptErr string, at time.Time) error
}

// requestLoader resolves the request and buyer behind a queue entry.
type requestLoader interface {
	FindWithBuyerTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*models.PartRequest, *models.User, error)
}

// Processor runs one sweep of the delivery queue at a time.
type Processor struct {
	db       txRunner
	queue    queueRepo
	requests requestLoader
	sink     NotificationSink
	logg     *logger.Logger
	cfg      config.DeliveryConfig
	metrics  *metrics.DeliveryWorkerMetrics
	now      func() time.Time
}

// ProcessorParams wires processor dependencies.
type ProcessorParams struct {
	DB       txRunner
	Queue    queueRepo
	Requests requestLoader
	Sink     NotificationSink
	Logger   *logger.Logger
	Config   config.DeliveryConfig
	Metrics  *metrics.DeliveryWorkerMetrics
	Now      func() time.Time
}

// NewProcessor validates dependencies and builds a Processor.
func NewProcessor(params ProcessorParams) (*Processor, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery processor requires a db client")
	}
	if params.Queue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery processor requires a queue repository")
	}
	if params.Requests == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery processor requires a request loader")
	}
	if params.Sink == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery processor requires a notification sink")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery processor requires a logger")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		db:       params.DB,
		queue:    params.Queue,
		requests: params.Requests,
		sink:     params.Sink,
		logg:     params.Logger,
		cfg:      params.Config,
		metrics:  params.Metrics,
		now:      now,
	}, nil
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Claimed   int
	Processed int
	Retried   int
	Failed    int
}

// Sweep claims due entries and processes them in a single transaction. A
// failing entry is marked for retry (or terminal failure) and never aborts the
// rest of the batch; only claim or bookkeeping errors abort the sweep, rolling
// every claimed row back to pending.
func (p *Processor) Sweep(ctx context.Context) (SweepResult, error) {
	start := p.now()
	var result SweepResult

	batchSize := p.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	err := p.db.WithTx(ctx, func(tx *gorm.DB) error {
		now := p.now().UTC()
		entries, err := p.queue.ClaimDueTx(ctx, tx, now, batchSize)
		if err != nil {
			return fmt.Errorf("claiming due entries: %w", err)
		}
		result.Claimed = len(entries)

		for _, entry := range entries {
			if err := p.processEntry(ctx, tx, entry, &result); err != nil {
				return err
			}
		}
		return nil
	})

	p.metrics.ObserveSweep(p.now().Sub(start))
	if err != nil {
		p.metrics.IncSweepFailure()
		return SweepResult{}, err
	}
	p.metrics.AddEntries("processed", result.Processed)
	p.metrics.AddEntries("retried", result.Retried)
	p.metrics.AddEntries("failed", result.Failed)

	if result.Claimed > 0 {
		p.logg.Info(p.logg.WithFields(ctx, map[string]any{
			"claimed":   result.Claimed,
			"processed": result.Processed,
			"retried":   result.Retried,
			"failed":    result.Failed,
		}), "delivery sweep completed")
	}
	return result, nil
}

// processEntry attempts one delivery and records its outcome. The returned
// error is reserved for bookkeeping failures that poison the transaction.
func (p *Processor) processEntry(ctx context.Context, tx *gorm.DB, entry models.DeliveryQueueEntry, result *SweepResult) error {
	now := p.now().UTC()
	entryCtx := p.logg.WithFields(ctx, map[string]any{
		"entry_id":   entry.ID.String(),
		"request_id": entry.RequestID.String(),
		"seller_id":  entry.SellerID.String(),
	})

	attemptErr := p.attempt(entryCtx, tx, entry)
	if attemptErr == nil {
		if err := p.queue.MarkProcessedTx(ctx, tx, entry.ID, now); err != nil {
			return fmt.Errorf("marking entry %s processed: %w", entry.ID, err)
		}
		result.Processed++
		return nil
	}

	p.logg.Warn(entryCtx, fmt.Sprintf("delivery attempt failed: %v", attemptErr))

	if entry.RetryCount+1 >= entry.MaxRetries {
		if err := p.queue.MarkFailedTx(ctx, tx, entry.ID, attemptErr.Error(), now); err != nil {
			return fmt.Errorf("marking entry %s failed: %w", entry.ID, err)
		}
		result.Failed++
		return nil
	}

	var nextAttemptAt *time.Time
	if p.cfg.RetryBackoff > 0 {
		next := now.Add(p.cfg.RetryBackoff)
		nextAttemptAt = &next
	}
	if err := p.queue.MarkRetryTx(ctx, tx, entry.ID, attemptErr.Error(), nextAttemptAt, now); err != nil {
		return fmt.Errorf("marking entry %s for retry: %w", entry.ID, err)
	}
	result.Retried++
	return nil
}

// attempt builds the payload and hands it to the sink under the per-attempt
// timeout.
func (p *Processor) attempt(ctx context.Context, tx *gorm.DB, entry models.DeliveryQueueEntry) error {
	request, buyer, err := p.requests.FindWithBuyerTx(ctx, tx, entry.RequestID)
	if err != nil {
		return fmt.Errorf("loading request: %w", err)
	}

	payload := BuildNotificationPayload(entry, *request, *buyer)

	attemptCtx := ctx
	if p.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, p.cfg.AttemptTimeout)
		defer cancel()
	}
	return p.sink.Deliver(attemptCtx, tx, payload)
}
