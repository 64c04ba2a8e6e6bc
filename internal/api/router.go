package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/docrelay/internal/agent"
	"github.com/Harshitk-cp/docrelay/internal/api/handlers"
	mw "github.com/Harshitk-cp/docrelay/internal/api/middleware"
	"github.com/Harshitk-cp/docrelay/internal/buildconfig"
	"github.com/Harshitk-cp/docrelay/internal/config"
	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/Harshitk-cp/docrelay/internal/events"
	"github.com/Harshitk-cp/docrelay/internal/service"
	"github.com/Harshitk-cp/docrelay/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router  *chi.Mux
	Sweeper *service.SweeperService
	Hub     *events.Hub

	closeDispatcher func()
	startTime       time.Time
	counters        mw.Counters
}

// Pinger reports database reachability for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	dispatcher, closeDispatcher, err := agent.NewDispatcher(agent.Options{
		Transport:     config.AgentTransport(),
		NATSURL:       config.NATSURL(),
		SubjectPrefix: config.AgentSubjectPrefix(),
		Timeout:       config.AgentDispatchTimeout(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("agent dispatcher: %w", err)
	}
	logger.Info("agent dispatcher initialized", zap.String("transport", config.AgentTransport()))

	deps := Dependencies{
		Initiators:    store.NewInitiatorStore(db),
		DocumentTypes: store.NewDocumentTypeStore(db),
		Instances:     store.NewInstanceStore(db),
		Transactions:  store.NewTransactionStore(db),
		Dispatcher:    dispatcher,
		DB:            db,
	}
	app := newApp(deps, logger)
	app.closeDispatcher = closeDispatcher
	return app, nil
}

// Dependencies are the collaborators NewApp wires from configuration.
type Dependencies struct {
	Initiators    domain.InitiatorStore
	DocumentTypes domain.DocumentTypeStore
	Instances     domain.InstanceStore
	Transactions  domain.TransactionStore
	Dispatcher    domain.AgentDispatcher
	DB            Pinger
}

func newApp(deps Dependencies, logger *zap.Logger) *App {
	hub := events.NewHub(config.EventBufferSize(), logger)

	// Services
	keys := service.NewKeyIssuer(deps.Initiators, logger)
	ledger := service.NewTransactionLedger(deps.Transactions, keys, deps.Instances, deps.DocumentTypes, hub, logger)
	coordinator := service.NewProcessingCoordinator(ledger, deps.Instances, deps.Dispatcher, hub, logger)
	reconciler := service.NewDeviceReconciler(deps.Instances, hub, logger)
	instanceSvc := service.NewInstanceService(deps.Instances, hub, logger)
	clientLogs := service.NewClientLogService(deps.Instances, hub, logger)

	sweeper := service.NewSweeperService(ledger, logger)
	sweeper.SetInterval(config.SweepInterval())
	sweeper.SetStaleAfter(config.StaleTransactionAfter())

	// Handlers
	initiatorHandler := handlers.NewInitiatorHandler(keys)
	remoteHandler := handlers.NewRemoteHandler(coordinator)
	transactionHandler := handlers.NewTransactionHandler(ledger)
	instanceHandler := handlers.NewInstanceHandler(instanceSvc, reconciler, clientLogs)
	wsHandler := events.NewWebSocketHandler(hub, config.WSAllowedOrigins(), mw.HasAdminKey(config.AdminAPIKey()), logger)

	r := chi.NewRouter()

	app := &App{
		Router:          r,
		Sweeper:         sweeper,
		Hub:             hub,
		closeDispatcher: func() {},
		startTime:       time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.counters)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(deps.DB, logger))
	r.Get("/metrics", app.metricsHandler())
	r.Get("/ws", wsHandler.ServeHTTP)

	// Initiators
	r.Get("/initiator-key", initiatorHandler.Issue)
	r.Post("/initiator-key/validate", initiatorHandler.Validate)
	r.Post("/remote/process", remoteHandler.Process)

	// Agents
	r.Post("/remote/result", remoteHandler.Result)
	r.Post("/instances/{machineId}/report-devices", instanceHandler.ReportDevices)
	r.Post("/instances/{machineId}/logs", instanceHandler.Log)

	// Administration
	r.Group(func(r chi.Router) {
		r.Use(mw.AdminKeyAuth(config.AdminAPIKey()))

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", transactionHandler.List)
			r.Get("/latest/{n}", transactionHandler.Latest)
			r.Put("/status/{id}", transactionHandler.UpdateStatus)
			r.Get("/{id}", transactionHandler.GetByID)
			r.Delete("/{id}", transactionHandler.Delete)
		})

		r.Post("/instances", instanceHandler.Register)
		r.Get("/instances", instanceHandler.List)
		r.Get("/instances/{machineId}", instanceHandler.Get)
		r.Put("/instances/{machineId}/chosen-device", instanceHandler.ChooseDevice)
	})

	return app
}

// Close releases the agent transport.
func (app *App) Close() {
	app.closeDispatcher()
}

func healthHandler(db Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := buildconfig.VersionInfo()

		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			logger.Error("health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":  "error",
				"error":   "database unavailable",
				"version": info["version"],
				"commit":  info["commit"],
			})
			return
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": info["version"],
			"commit":  info["commit"],
		})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds":    uptime.Seconds(),
			"uptime_human":      uptime.Round(time.Second).String(),
			"request_count":     app.counters.Requests.Load(),
			"client_errors":     app.counters.ClientErrors.Load(),
			"server_errors":     app.counters.ServerErrors.Load(),
			"rate_limited":      app.counters.RateLimited.Load(),
			"event_subscribers": app.Hub.SubscriberCount(),
			"goroutines":        runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and transports satisfy interfaces at compile time.
var (
	_ domain.InitiatorStore    = (*store.InitiatorStore)(nil)
	_ domain.DocumentTypeStore = (*store.DocumentTypeStore)(nil)
	_ domain.InstanceStore     = (*store.InstanceStore)(nil)
	_ domain.TransactionStore  = (*store.TransactionStore)(nil)
	_ domain.EventPublisher    = (*events.Hub)(nil)
	_ domain.ResultForwarder   = (*events.Hub)(nil)
	_ domain.AgentDispatcher   = (*agent.NATSDispatcher)(nil)
	_ domain.AgentDispatcher   = (*agent.MockDispatcher)(nil)
	_ Pinger                   = (*pgxpool.Pool)(nil)
)
