package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/irfndi/claw-quants/internal/api"
	"github.com/irfndi/claw-quants/internal/api/handlers"
	"github.com/irfndi/claw-quants/internal/cache"
	"github.com/irfndi/claw-quants/internal/config"
	"github.com/irfndi/claw-quants/internal/content"
	"github.com/irfndi/claw-quants/internal/database"
	"github.com/irfndi/claw-quants/internal/logging"
	"github.com/irfndi/claw-quants/internal/middleware"
	"github.com/irfndi/claw-quants/internal/services"
	"github.com/irfndi/claw-quants/internal/simulator"
	"github.com/irfndi/claw-quants/internal/telemetry"
	"github.com/irfndi/claw-quants/internal/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
}

// app holds everything the server needs, built from configuration.
type app struct {
	router      *gin.Engine
	logger      *logging.StandardLogger
	logrus      *logrus.Logger
	leaderboard *services.Leaderboard
	monitor     *services.ResourceMonitor
	closers     []func(context.Context) error
}

func (a *app) shutdown(ctx context.Context) {
	if a.leaderboard != nil {
		a.leaderboard.Stop()
	}
	if a.monitor != nil {
		a.monitor.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logrus.WithError(err).Warn("Shutdown step failed")
		}
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}

	if err := a.leaderboard.Start(ctx); err != nil {
		a.shutdown(context.Background())
		return err
	}
	a.monitor.Start(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           a.router,
		ReadTimeout:       cfg.Server.GetReadTimeout(),
		WriteTimeout:      cfg.Server.GetWriteTimeout(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       cfg.Server.GetIdleTimeout(),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.LogStartup(telemetry.ServiceName, version, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.LogShutdown(telemetry.ServiceName, "signal received")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("failed to start server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logrus.WithError(err).Error("Server forced to shutdown")
	}
	a.shutdown(shutdownCtx)

	a.logrus.Info("Server exited gracefully")
	return runErr
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{logrus: logging.NewLogrusLogger(cfg.LogLevel)}

	telemetryLevel := cfg.Telemetry.LogLevel
	if telemetryLevel == "" {
		telemetryLevel = cfg.LogLevel
	}
	if cfg.Telemetry.Enabled && strings.EqualFold(cfg.Telemetry.Exporter, telemetry.ExporterOTLP) {
		logger, otlpLogger := logging.NewStandardOTLPLogger(logging.OTLPConfig{
			Enabled:        true,
			Endpoint:       cfg.Telemetry.OTLPEndpoint,
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Environment,
			LogLevel:       telemetryLevel,
		})
		a.logger = logger
		if otlpLogger != nil {
			a.closers = append(a.closers, otlpLogger.Shutdown)
		}
	} else {
		a.logger = logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	}

	telemetryConfig := telemetry.DefaultConfig()
	telemetryConfig.Enabled = cfg.Telemetry.Enabled
	telemetryConfig.Exporter = cfg.Telemetry.Exporter
	telemetryConfig.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	if cfg.Telemetry.ServiceName != "" {
		telemetryConfig.ServiceName = cfg.Telemetry.ServiceName
	}
	if cfg.Telemetry.ServiceVersion != "" {
		telemetryConfig.ServiceVersion = cfg.Telemetry.ServiceVersion
	}
	telemetryConfig.Environment = cfg.Environment
	telemetryConfig.LogLevel = telemetryLevel

	provider, err := telemetry.InitTelemetryWithProvider(ctx, telemetryConfig, a.logger.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.closers = append(a.closers, provider.Shutdown)

	store := openSnapshotStore(ctx, cfg, a)

	site, err := content.Load()
	if err != nil {
		a.shutdown(context.Background())
		return nil, fmt.Errorf("failed to load site content: %w", err)
	}
	templates, err := web.LoadTemplates()
	if err != nil {
		a.shutdown(context.Background())
		return nil, err
	}

	a.leaderboard = services.NewLeaderboard(services.LeaderboardConfig{
		Schedule:          cfg.Leaderboard.DeploySchedule,
		DeployProbability: cfg.Leaderboard.DeployProbability,
		MaxTraders:        cfg.Leaderboard.MaxTraders,
		SeedTraders:       cfg.Leaderboard.SeedTraders,
		Window:            cfg.Simulator.Window,
	}, site, store, services.NewLockedRand(0), a.logrus)

	a.monitor = services.NewResourceMonitor(services.ResourceMonitorConfig{
		SampleInterval:  cfg.Monitor.GetSampleInterval(),
		CPUThreshold:    cfg.Monitor.CPUThreshold,
		MemoryThreshold: cfg.Monitor.MemoryThreshold,
	}, a.logger)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	pages := web.NewPages(site, a.leaderboard, templates, cfg.Environment, a.logrus)

	router := gin.New()
	router.Use(pages.Recovery())
	router.Use(otelgin.Middleware(telemetry.ServiceName))
	router.Use(middleware.RequestID())
	router.Use(middleware.TelemetryMiddleware())
	router.Use(middleware.RequestLogger(a.logger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	pages.Register(router)
	api.SetupRoutes(router, api.Dependencies{
		Cache:       store,
		Leaderboard: a.leaderboard,
		Monitor:     a.monitor,
		Simulation: handlers.SimulationConfig{
			Defaults:     simulationDefaults(cfg.Simulator),
			TickInterval: cfg.Simulator.GetTickInterval(),
		},
		AgentsOffset: site.Leaderboard.ActiveAgents.Offset,
		Version:      version,
		AdminAPIKey:  cfg.Server.AdminAPIKey,
		Events:       a.logger,
	})
	a.router = router
	return a, nil
}

// openSnapshotStore connects to Redis when enabled and falls back to the
// process-local store when Redis is disabled or unreachable.
func openSnapshotStore(ctx context.Context, cfg *config.Config, a *app) cache.SnapshotCache {
	if !cfg.Redis.Enabled {
		a.logrus.Info("Redis disabled, snapshots kept in memory")
		return memorySnapshotStore(a)
	}

	policy := services.DefaultRetryPolicies()["redis_connect"]
	retry := func(ctx context.Context, name string, op func(context.Context) error) error {
		return services.ExecuteWithRetry(ctx, a.logrus, name, policy, op)
	}

	client, err := database.NewRedisConnectionWithRetry(ctx, cfg.Redis, a.logrus, retry)
	if err != nil {
		a.logrus.WithError(err).Warn("Redis unavailable, snapshots kept in memory")
		return memorySnapshotStore(a)
	}
	a.closers = append(a.closers, func(context.Context) error {
		client.Close()
		return nil
	})

	redisStore := cache.NewRedisSnapshotCache(client.Client, a.logrus)
	redisStore.SetEventLogger(a.logger)
	return services.NewGuardedSnapshotCache(
		redisStore,
		services.CircuitBreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
			ResetTimeout:     60 * time.Second,
			MaxRequests:      5,
		},
		a.logrus,
	)
}

func memorySnapshotStore(a *app) *cache.InMemorySnapshotCache {
	store := cache.NewInMemorySnapshotCache(a.logrus)
	store.SetEventLogger(a.logger)
	return store
}

func simulationDefaults(cfg config.SimulatorConfig) simulator.Params {
	params := simulator.DefaultParams()
	if cfg.DefaultStart > 0 {
		params.StartValue = cfg.DefaultStart
	}
	if cfg.DefaultVolatility > 0 {
		params.Volatility = cfg.DefaultVolatility
	}
	if cfg.Window >= 2 {
		params.Count = cfg.Window
	}
	return params
}
