package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caretrack/licensure/config"
	redisadapter "github.com/caretrack/licensure/internal/adapters/redis"
	"github.com/caretrack/licensure/internal/data"
	"github.com/caretrack/licensure/internal/observability/notify"
	"github.com/caretrack/licensure/internal/observability/notify/slack"
	"github.com/caretrack/licensure/internal/observability/statsd"
	"github.com/caretrack/licensure/internal/service"
	"github.com/caretrack/licensure/internal/sources"
	"github.com/redis/go-redis/v9"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Licenses      *service.LicenseService
	Recorder      *service.RecorderService
	Tasks         *service.TaskEngine
	VerifyJob     *service.VerifyJobService
	Auth          *service.AuthService
	Registry      *sources.Registry
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink    *statsd.Client
	MetricsConfig  config.MetricsConfig
	Notifier       notify.Sink
	NotifierConfig config.NotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB               *sql.DB
	Redis            redis.UniversalClient
	LicenseRepo      *data.LicenseRepo
	VerificationRepo *data.VerificationRepo
	TaskRepo         *data.TaskRepo
	JobRunRepo       *data.JobRunRepo
	AuditRepo        *data.AuditRepo
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "licensure",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	var notifier notify.Sink
	if cfg.Notifications.Slack.IsEnabled() {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Notifications.Slack.WebhookURL,
			Channel:    cfg.Notifications.Slack.Channel,
			Username:   cfg.Notifications.Slack.Username,
			Timeout:    cfg.Notifications.Timeout,
		})
		if err != nil {
			obsLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			notifier = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:    metricsSink,
		MetricsConfig:  cfg.Metrics,
		Notifier:       notifier,
		NotifierConfig: cfg.Notifications,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient) *serviceRepositories {
	return &serviceRepositories{
		DB:               db,
		Redis:            redisClient,
		LicenseRepo:      data.NewLicenseRepo(db),
		VerificationRepo: data.NewVerificationRepo(db),
		TaskRepo:         data.NewTaskRepo(db),
		JobRunRepo:       data.NewJobRunRepo(db),
		AuditRepo:        data.NewAuditRepo(db),
	}
}

// newSourceDispatcher builds the verifier dispatcher, with a Redis-backed
// lookup cache when a client is available.
func newSourceDispatcher(redisClient redis.UniversalClient, lookupTimeout time.Duration) *sources.Dispatcher {
	opts := sources.DispatcherOptions{
		HTTPClient: &http.Client{Timeout: lookupTimeout},
	}
	if redisClient != nil {
		opts.Cache = redisadapter.NewLookupCache(redisClient)
	}
	return sources.NewDispatcher(opts)
}

func newAuthService(cfg config.AuthConfig, redisClient redis.UniversalClient, logger *slog.Logger) *service.AuthService {
	return BuildAuthService(AuthConfig{
		Auth:        cfg,
		RedisClient: redisClient,
		Logger:      logger,
	})
}

// DomainServicesOptions groups inputs for domain service wiring.
type DomainServicesOptions struct {
	Repos         *serviceRepositories
	Observability ObservabilityContainer
	Config        *config.AppConfig
	Logger        *slog.Logger
}

// buildDomainServices wires business services using repositories and observability adapters.
func buildDomainServices(opts *DomainServicesOptions) ServiceContainer {
	if opts == nil {
		return ServiceContainer{}
	}
	svcLogger := opts.Logger
	if svcLogger == nil {
		svcLogger = slog.Default()
	}

	appCfg := opts.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	registry := sources.NewRegistry()
	dispatcher := newSourceDispatcher(opts.Repos.Redis, appCfg.VerifyRun.LookupTimeout)

	licenseService := service.NewLicenseService(service.LicenseServiceOptions{
		Licenses:      opts.Repos.LicenseRepo,
		Verifications: opts.Repos.VerificationRepo,
		Audit:         opts.Repos.AuditRepo,
		Logger:        svcLogger,
	})

	recorderService := service.NewRecorderService(service.RecorderServiceOptions{
		Verifications: opts.Repos.VerificationRepo,
		Licenses:      opts.Repos.LicenseRepo,
		Audit:         opts.Repos.AuditRepo,
		Logger:        svcLogger,
	})

	taskEngine := service.NewTaskEngine(service.TaskEngineOptions{
		Tasks:  opts.Repos.TaskRepo,
		Audit:  opts.Repos.AuditRepo,
		Logger: svcLogger,
	})

	verifyJob := service.NewVerifyJobService(service.VerifyJobServiceOptions{
		Licenses:        opts.Repos.LicenseRepo,
		Runs:            opts.Repos.JobRunRepo,
		Registry:        registry,
		Verifiers:       dispatcher,
		Recorder:        recorderService,
		Tasks:           taskEngine,
		Audit:           opts.Repos.AuditRepo,
		Logger:          svcLogger,
		Concurrency:     appCfg.VerifyRun.Concurrency,
		Lookback:        appCfg.VerifyRun.Lookback,
		LookupTimeout:   appCfg.VerifyRun.LookupTimeout,
		BatchLimit:      appCfg.VerifyRun.BatchLimit,
		MaxErrorSamples: appCfg.VerifyRun.MaxErrorSamples,
	})

	authService := newAuthService(appCfg.Auth, opts.Repos.Redis, svcLogger)

	return ServiceContainer{
		Licenses:      licenseService,
		Recorder:      recorderService,
		Tasks:         taskEngine,
		VerifyJob:     verifyJob,
		Auth:          authService,
		Registry:      registry,
		Observability: opts.Observability,
	}
}

func NewServices(deps *ServiceDeps) ServiceContainer {
	if deps == nil {
		return ServiceContainer{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var obsCfg config.ObservabilityConfig
	if deps.Config != nil {
		obsCfg = deps.Config.Observability
	}
	observability := buildObservability(logger, obsCfg)
	repos := buildRepositories(deps.DB, deps.RedisClient)
	return buildDomainServices(&DomainServicesOptions{
		Repos:         repos,
		Observability: observability,
		Config:        deps.Config,
		Logger:        logger,
	})
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				if deps.logger != nil {
					deps.logger.WarnContext(
						ctx,
						"dropping background service error",
						"service",
						descriptor.name,
						"error",
						errMsg,
					)
				} else {
					slog.Default().WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
				}
			}
		}
	}()

	if deps.logger != nil {
		deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	} else {
		slog.Default().InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	}

	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newVerifyRunnerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeVerifyRunner,
		name: "verify runner",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			var runCfg config.VerifyRunConfig
			if deps.cfg.Config != nil {
				runCfg = deps.cfg.Config.VerifyRun
			}
			return RunVerifyRunner(ctx, VerifyRunnerConfig{
				Job:      deps.cfg.Services.VerifyJob,
				Interval: runCfg.Interval,
				Logger:   deps.logger,
				Metrics:  deps.cfg.Services.Observability.MetricsSink,
				Notifier: deps.cfg.Services.Observability.Notifier,
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newVerifyRunnerBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	ctx := context.Background()
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	// Determine which services are enabled
	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	// Start all enabled services
	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		logger:      logger,
		backgrounds: result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	modes := []config.ServiceMode{
		config.ServiceModeHTTP,
		config.ServiceModeVerifyRunner,
	}

	count := 0
	for _, mode := range modes {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	size := errorChannelCapacity(enabled) + 1
	if size < 1 {
		return 1
	}
	return size
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	// Gracefully stop HTTP server if running
	if cfg.httpServer != nil {
		// Create a timeout context for HTTP shutdown
		shutdownCtx, cancel := context.WithTimeout(cfg.ctx, shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	// Wait for background services to finish
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
