package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/partsmatch/partsmatch-backend/api/controllers"
	"github.com/partsmatch/partsmatch-backend/api/middleware"
	"github.com/partsmatch/partsmatch-backend/internal/delivery"
	"github.com/partsmatch/partsmatch-backend/internal/notifications"
	"github.com/partsmatch/partsmatch-backend/internal/requests"
	"github.com/partsmatch/partsmatch-backend/pkg/config"
	"github.com/partsmatch/partsmatch-backend/pkg/enums"
	"github.com/partsmatch/partsmatch-backend/pkg/logger"
)

// RouterParams collects everything the HTTP surface needs.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	RequestsSvc   *requests.Service
	Notifications *notifications.Repository
	Worker        *delivery.Worker
	Stats         *delivery.StatsReporter
	ReadyChecks   map[string]controllers.Pinger
}

// NewRouter assembles the chi router for the API process.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.ReadyChecks))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/requests", controllers.SubmitRequest(params.RequestsSvc, logg))

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleSeller), logg))
			r.Get("/requests", controllers.SellerRequests(params.RequestsSvc, logg))
			r.Get("/notifications", controllers.SellerNotifications(params.Notifications, logg))
			r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(params.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1/delivery", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

		r.Route("/worker", func(r chi.Router) {
			r.Post("/start", controllers.WorkerStart(params.Worker, logg))
			r.Post("/stop", controllers.WorkerStop(params.Worker, logg))
			r.Get("/status", controllers.WorkerStatus(params.Worker, logg))
			r.Get("/stats", controllers.WorkerStats(params.Stats, logg))
		})
	})

	return r
}
