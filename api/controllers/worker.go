package controllers

import (
	"context"
	"net/http"

	"github.com/partsmatch/partsmatch-backend/api/responses"
	"github.com/partsmatch/partsmatch-backend/internal/delivery"
	pkgerrors "github.com/partsmatch/partsmatch-backend/pkg/errors"
	"github.com/partsmatch/partsmatch-backend/pkg/logger"
)

// workerControl is the lifecycle surface the admin endpoints drive.
type workerControl interface {
	Start(ctx context.Context) (alreadyRunning bool)
	Stop(ctx context.Context)
	Status() delivery.WorkerStatus
}

// statsReporter serves the queue stats snapshot.
type statsReporter interface {
	Report(ctx context.Context) (*delivery.QueueStats, error)
}

// WorkerStart launches the delivery worker loop. Idempotent.
func WorkerStart(worker workerControl, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if worker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery worker unavailable"))
			return
		}
		if already := worker.Start(r.Context()); already {
			responses.WriteSuccess(w, map[string]string{"status": "already_running"})
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "started"})
	}
}

// WorkerStop halts the delivery worker loop. Idempotent.
func WorkerStop(worker workerControl, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if worker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery worker unavailable"))
			return
		}
		worker.Stop(r.Context())
		responses.WriteSuccess(w, map[string]string{"status": "stopped"})
	}
}

// WorkerStatus reports the worker's running flag and cumulative counters.
func WorkerStatus(worker workerControl, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if worker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery worker unavailable"))
			return
		}
		responses.WriteSuccess(w, worker.Status())
	}
}

// WorkerStats serves the read-only queue health snapshot.
func WorkerStats(reporter statsReporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reporter == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats reporter unavailable"))
			return
		}
		stats, err := reporter.Report(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
