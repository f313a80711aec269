package main

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/application"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/gatewayinfo"
	"github.com/DanielPopoola/payment-orchestrator/internal/application/services"
	"github.com/DanielPopoola/payment-orchestrator/internal/config"
	"github.com/DanielPopoola/payment-orchestrator/internal/gateway"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/gateways/bank"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/gateways/manual"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/observability"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/persistence"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/persistence/memory"
	"github.com/DanielPopoola/payment-orchestrator/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/payment-orchestrator/internal/interfaces/rest"
	"github.com/DanielPopoola/payment-orchestrator/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/payment-orchestrator/internal/interfaces/rest/middleware"
	"github.com/DanielPopoola/payment-orchestrator/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting payment orchestrator",
		"env", cfg.Primary.Env,
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
		"store", cfg.Database.Driver,
	)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open payment store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	gateways, err := buildGateways(cfg)
	if err != nil {
		logger.Error("failed to register gateways", "error", err)
		os.Exit(1)
	}

	info, err := gatewayinfo.NewRegistry(gateways, cfg.Registry(), cfg.Payments.AllowedGateways)
	if err != nil {
		logger.Error("invalid gateway configuration", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	factory := services.NewFactory(services.Deps{
		Store:           store,
		Gateways:        gateways,
		Info:            info,
		Extensions:      services.NewExtensions(logger, cfg.Primary.StrictExtensions, metrics),
		Logger:          logger,
		Timer:           metrics,
		EndpointBaseURL: cfg.Payments.EndpointBaseURL,
	})

	h := handlers.NewHandlers(factory, handlers.PaymentDefaults{
		SuccessURL: cfg.Payments.DefaultSuccessURL,
		FailureURL: cfg.Payments.DefaultFailureURL,
	}, logger)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	rest.RegisterDocsRoutes(mux)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		rest.WriteData(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	doc, err := rest.LoadSpec(ctx)
	if err != nil {
		logger.Error("failed to load api contract", "error", err)
		os.Exit(1)
	}
	validate, err := middleware.OpenAPIValidator(doc, logger)
	if err != nil {
		logger.Error("failed to build request validator", "error", err)
		os.Exit(1)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	defer rateLimiter.Shutdown()

	handler := validate(mux)
	handler = rateLimiter.Middleware(handler)
	handler = middleware.Timeout(cfg.Server.WriteTimeout)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + time.Second,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweeper := worker.NewSweeper(
		factory,
		cfg.Worker.PendingTTL,
		cfg.Worker.Interval,
		cfg.Worker.BatchSize,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go sweeper.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

// openStore returns the configured store and the function that releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (application.Store, func(), error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("using in-memory store, payments are lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	db, err := persistence.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return postgres.NewStore(db), db.Close, nil
}

// buildGateways binds every configured gateway to its driver. Retry settings
// from the retry section apply unless the gateway overrides them.
func buildGateways(cfg *config.Config) (*gateway.Registry, error) {
	registry := gateway.NewRegistry()
	registry.RegisterDriver(manual.Driver, manual.New)
	registry.RegisterDriver(bank.Driver, bank.New)

	for name, gw := range cfg.Gateways {
		params := map[string]string{
			bank.ParamMaxRetries: strconv.Itoa(cfg.Retry.MaxRetries),
			bank.ParamBaseDelay:  cfg.Retry.BaseDelay.String(),
		}
		maps.Copy(params, gw.Params)
		if err := registry.Bind(name, gw.Driver, params); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
