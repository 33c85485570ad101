package delivery

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partsmatch/partsmatch-backend/pkg/config"
	"github.com/partsmatch/partsmatch-backend/pkg/db/models"
	"github.com/partsmatch/partsmatch-backend/pkg/logger"
)

type fakeTxRunner struct {
	err error
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type markCall struct {
	kind          string
	id            uuid.UUID
	attemptErr    string
	nextAttemptAt *time.Time
}

type fakeQueueRepo struct {
	entries  []models.DeliveryQueueEntry
	claimErr error
	markErr  error
	marks    []markCall
}

func (f *fakeQueueRepo) ClaimDueTx(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]models.DeliveryQueueEntry, error) {
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	if len(f.entries) > limit {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeQueueRepo) MarkProcessedTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error {
	f.marks = append(f.marks, markCall{kind: "processed", id: id})
	return f.markErr
}

func (f *fakeQueueRepo) MarkRetryTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, attemptErr string, nextAttemptAt *time.Time, at time.Time) error {
	f.marks = append(f.marks, markCall{kind: "retry", id: id, attemptErr: attemptErr, nextAttemptAt: nextAttemptAt})
	return f.markErr
}

func (f *fakeQueueRepo) MarkFailedTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, attemptErr string, at time.Time) error {
	f.marks = append(f.marks, markCall{kind: "failed", id: id, attemptErr: attemptErr})
	return f.markErr
}

type fakeRequestLoader struct {
	request *models.PartRequest
	buyer   *models.User
	err     error
}

func (f *fakeRequestLoader) FindWithBuyerTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*models.PartRequest, *models.User, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.request, f.buyer, nil
}

type fakeSink struct {
	err      error
	payloads []NotificationPayload
}

func (f *fakeSink) Deliver(ctx context.Context, tx *gorm.DB, payload NotificationPayload) error {
	f.payloads = append(f.payloads, payload)
	return f.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func queueEntry(retryCount, maxRetries int) models.DeliveryQueueEntry {
	return models.DeliveryQueueEntry{
		ID:         uuid.New(),
		RequestID:  uuid.New(),
		SellerID:   uuid.New(),
		RetryCount: retryCount,
		MaxRetries: maxRetries,
	}
}

func newTestProcessor(t *testing.T, queue *fakeQueueRepo, sink *fakeSink, cfg config.DeliveryConfig) *Processor {
	t.Helper()
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	proc, err := NewProcessor(ProcessorParams{
		DB:    &fakeTxRunner{},
		Queue: queue,
		Requests: &fakeRequestLoader{
			request: &models.PartRequest{ID: uuid.New(), PartName: "alternator"},
			buyer:   &models.User{FirstName: "Keisha", LastName: "Brown"},
		},
		Sink:   sink,
		Logger: testLogger(),
		Config: cfg,
	})
	if err != nil {
		t.Fatalf("NewProcessor failed: %v", err)
	}
	return proc
}

func TestNewProcessor_RequiresDependencies(t *testing.T) {
	_, err := NewProcessor(ProcessorParams{})
	if err == nil {
		t.Fatal("expected dependency error")
	}
}

func TestSweep_EmptyQueueMutatesNothing(t *testing.T) {
	queue := &fakeQueueRepo{}
	sink := &fakeSink{}
	proc := newTestProcessor(t, queue, sink, config.DeliveryConfig{})

	result, err := proc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result != (SweepResult{}) {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if len(queue.marks) != 0 || len(sink.payloads) != 0 {
		t.Fatal("empty sweep must not touch entries or sinks")
	}
}

func TestSweep_ProcessesDueEntries(t *testing.T) {
	entries := []models.DeliveryQueueEntry{queueEntry(0, 3), queueEntry(1, 3)}
	queue := &fakeQueueRepo{entries: entries}
	sink := &fakeSink{}
	proc := newTestProcessor(t, queue, sink, config.DeliveryConfig{})

	result, err := proc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Claimed != 2 || result.Processed != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	for i, mark := range queue.marks {
		if mark.kind != "processed" || mark.id != entries[i].ID {
			t.Fatalf("unexpected mark %+v", mark)
		}
	}
	if len(sink.payloads) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(sink.payloads))
	}
	if sink.payloads[0].PartName != "alternator" {
		t.Fatalf("payload not built from request: %+v", sink.payloads[0])
	}
}

func TestSweep_SinkFailureSchedulesRetry(t *testing.T) {
	entry := queueEntry(0, 3)
	queue := &fakeQueueRepo{entries: []models.DeliveryQueueEntry{entry}}
	sink := &fakeSink{err: errors.New("smtp down")}
	proc := newTestProcessor(t, queue, sink, config.DeliveryConfig{})

	result, err := proc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Retried != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	mark := queue.marks[0]
	if mark.kind != "retry" || mark.attemptErr == "" {
		t.Fatalf("unexpected mark %+v", mark)
	}
	if mark.nextAttemptAt != nil {
		t.Fatal("zero backoff must leave next attempt open for the next sweep")
	}
}

func TestSweep_BackoffSetsNextAttempt(t *testing.T) {
	entry := queueEntry(0, 3)
	queue := &fakeQueueRepo{entries: []models.DeliveryQueueEntry{entry}}
	sink := &fakeSink{err: errors.New("timeout")}
	proc := newTestProcessor(t, queue, sink, config.DeliveryConfig{RetryBackoff: 5 * time.Minute})

	if _, err := proc.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	mark := queue.marks[0]
	if mark.kind != "retry" || mark.nextAttemptAt == nil {
		t.Fatalf("expected retry with next attempt set, got %+v", mark)
	}
}

func TestSweep_ExhaustedRetriesGoTerminal(t *testing.T) {
	entry := queueEntry(2, 3)
	queue := &fakeQueueRepo{entries: []models.DeliveryQueueEntry{entry}}
	sink := &fakeSink{err: errors.New("still broken")}
	proc := newTestProcessor(t, queue, sink, config.DeliveryConfig{})

	result, err := proc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Failed != 1 || result.Retried != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if queue.marks[0].kind != "failed" {
		t.Fatalf("expected terminal failure, got %+v", queue.marks[0])
	}
}

func TestSweep_OneBadEntryDoesNotAbortBatch(t *testing.T) {
	bad := queueEntry(0, 3)
	good := queueEntry(0, 3)
	queue := &fakeQueueRepo{entries: []models.DeliveryQueueEntry{bad, good}}
	sink := &fakeSink{}
	proc := newTestProcessor(t, queue, sink, config.DeliveryConfig{})
	proc.requests = &failOnceLoader{failFor: bad.RequestID, inner: proc.requests}

	result, err := proc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Retried != 1 || result.Processed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
}

type failOnceLoader struct {
	failFor uuid.UUID
	inner   requestLoader
}

func (f *failOnceLoader) FindWithBuyerTx(ctx context.Context, tx *gorm.DB, requestID uuid.UUID) (*models.PartRequest, *models.User, error) {
	if requestID == f.failFor {
		return nil, nil, errors.New("request missing")
	}
	return f.inner.FindWithBuyerTx(ctx, tx, requestID)
}

func TestSweep_ClaimErrorAbortsSweep(t *testing.T) {
	queue := &fakeQueueRepo{claimErr: errors.New("deadlock")}
	proc := newTestProcessor(t, queue, &fakeSink{}, config.DeliveryConfig{})

	if _, err := proc.Sweep(context.Background()); err == nil {
		t.Fatal("expected claim error to abort the sweep")
	}
}

func TestSweep_RespectsBatchSize(t *testing.T) {
	entries := []models.DeliveryQueueEntry{queueEntry(0, 3), queueEntry(0, 3), queueEntry(0, 3)}
	queue := &fakeQueueRepo{entries: entries}
	proc := newTestProcessor(t, queue, &fakeSink{}, config.DeliveryConfig{BatchSize: 2})

	result, err := proc.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Claimed != 2 {
		t.Fatalf("expected batch of 2, got %d", result.Claimed)
	}
}
