package delivery

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/partsmatch/partsmatch-backend/pkg/config"
	pkgerrors "github.com/partsmatch/partsmatch-backend/pkg/errors"
	"github.com/partsmatch/partsmatch-backend/pkg/logger"
)

const defaultSweepInterval = 60 * time.Second

// sweeper is the processor surface the worker drives.
type sweeper interface {
	Sweep(ctx context.Context) (SweepResult, error)
}

// WorkerParams wires worker dependencies.
type WorkerParams struct {
	Processor sweeper
	Lock      Lock
	Logger    *logger.Logger
	Config    config.DeliveryConfig
}

// Worker owns the recurring sweep loop. Construction is explicit; nothing
// starts at import time.
type Worker struct {
	processor sweeper
	lock      Lock
	logg      *logger.Logger
	interval  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	processed atomic.Int64
	retried   atomic.Int64
	failed    atomic.Int64
}

// NewWorker validates dependencies and builds a stopped Worker.
func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery worker requires a processor")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery worker requires a logger")
	}
	lock := params.Lock
	if lock == nil {
		lock = NoopLock{}
	}
	interval := params.Config.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Worker{
		processor: params.Processor,
		lock:      lock,
		logg:      params.Logger,
		interval:  interval,
	}, nil
}

// WorkerStatus is the lifecycle snapshot served by the admin status endpoint.
// Counters are cumulative since the worker process started and reset on
// restart.
type WorkerStatus struct {
	Running   bool  `json:"running"`
	Processed int64 `json:"processed"`
	Retried   int64 `json:"retried"`
	Failed    int64 `json:"failed"`
}

// Start launches the sweep loop. Calling Start on a running worker is a no-op
// that reports the worker was already running.
func (w *Worker) Start(ctx context.Context) (alreadyRunning bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return true
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.run(loopCtx, w.done)
	w.logg.Info(ctx, "delivery worker started")
	return false
}

// Stop cancels the loop and waits for the in-flight sweep to finish. Stopping
// a stopped worker is a no-op.
func (w *Worker) Stop(ctx context.Context) {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	done := w.done
	w.running = false
	w.cancel = nil
	w.done = nil
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
	}
	w.logg.Info(ctx, "delivery worker stopped")
}

// Status reports whether the loop is running plus cumulative counters.
func (w *Worker) Status() WorkerStatus {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	return WorkerStatus{
		Running:   running,
		Processed: w.processed.Load(),
		Retried:   w.retried.Load(),
		Failed:    w.failed.Load(),
	}
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	w.sweepOnce(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *Worker) sweepOnce(ctx context.Context) {
	locked, err := w.lock.Acquire(ctx)
	if err != nil {
		w.logg.Error(ctx, "acquiring sweep lock", err)
		return
	}
	if !locked {
		w.logg.Info(ctx, "another delivery worker holds the lock; skipping sweep")
		return
	}
	defer func() {
		if relErr := w.lock.Release(ctx); relErr != nil {
			w.logg.Error(ctx, "releasing sweep lock", relErr)
		}
	}()

	result, err := w.processor.Sweep(ctx)
	if err != nil {
		w.logg.Error(ctx, "delivery sweep failed", err)
		return
	}
	w.processed.Add(int64(result.Processed))
	w.retried.Add(int64(result.Retried))
	w.failed.Add(int64(result.Failed))
}

// Run starts the worker and blocks until the context is canceled. Used by the
// standalone worker binary.
func (w *Worker) Run(ctx context.Context) error {
	w.Start(ctx)
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	w.Stop(stopCtx)
	return ctx.Err()
}
