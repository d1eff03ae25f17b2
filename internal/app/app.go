package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"deliverystats/internal/config"
	apierrors "deliverystats/internal/errors"
	"deliverystats/internal/exchange"
	"deliverystats/internal/infrastructure"
	custommw "deliverystats/internal/middleware"
	"deliverystats/internal/services"
	handlers "deliverystats/internal/transport/http"
	"deliverystats/pkg/contracts"
)

const AppName = "deliverystats"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Reports       *services.DeliveryService
	Health        *services.HealthService
}

// NewApplication loads the configuration at configPath (empty searches the
// default locations) and wires the HTTP service
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	return New(cfg, logger, otelProviders), nil
}

// New builds an application from already initialized dependencies
func New(cfg *config.Config, logger *slog.Logger, otelProviders *infrastructure.OTelProviders) *Application {
	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	a.initializeServices()
	a.setupRouter()
	a.createServer()
	return a
}

// Endpoints returns the exchange hosts named by the configuration
func Endpoints(cfg config.ExchangeConfig) services.Endpoints {
	return services.Endpoints{
		SHFE: cfg.SHFEBaseURL,
		DCE:  cfg.DCEBaseURL,
		CZCE: cfg.CZCEBaseURL,
	}
}

// NewReportService wires the exchange client and the report pipelines.
// metrics may be nil.
func NewReportService(cfg config.ExchangeConfig, logger *slog.Logger, metrics *infrastructure.Metrics) *services.DeliveryService {
	clientOpts := []exchange.ClientOption{
		exchange.WithTimeout(cfg.Timeout),
		exchange.WithLogger(logger),
		exchange.WithMaxBodyBytes(cfg.MaxBodyBytes),
	}
	if cfg.UserAgent != "" {
		clientOpts = append(clientOpts, exchange.WithUserAgent(cfg.UserAgent))
	}

	var serviceOpts []services.Option
	if metrics != nil {
		clientOpts = append(clientOpts, exchange.WithRecorder(metrics))
		serviceOpts = append(serviceOpts, services.WithReportRecorder(metrics))
	}

	return services.NewDeliveryService(exchange.NewClient(clientOpts...), Endpoints(cfg), logger, serviceOpts...)
}

func (a *Application) metrics() *infrastructure.Metrics {
	if a.OTelProviders == nil {
		return nil
	}
	return a.OTelProviders.Metrics
}

// initializeServices initializes all application services
func (a *Application) initializeServices() {
	a.Reports = NewReportService(a.Config.Exchange, a.Logger, a.metrics())
	a.Health = services.NewHealthService(contracts.Version, contracts.BuildTime, Endpoints(a.Config.Exchange), a.Logger)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	// RequestID → RealIP → error logging/recovery → OTel → security → CORS → rate limit
	r.Use(custommw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
	if m := a.metrics(); m != nil {
		r.Use(custommw.NewOTelMiddleware(m).Handler)
	}
	r.Use(custommw.SecurityHeaders)
	if a.Config.Security.EnableCORS {
		r.Use(custommw.CORS(custommw.CORSConfig{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			Logger:         a.Logger,
		}))
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
	r.Get("/healthz", healthHandler.HealthCheck)
	r.Get("/readyz", healthHandler.ReadinessCheck)
	r.Get("/livez", healthHandler.LivenessCheck)
	r.Get("/version", healthHandler.Version)

	var scrape http.Handler
	if a.OTelProviders != nil {
		scrape = a.OTelProviders.MetricsHandler
	}
	r.Mount("/metrics", handlers.NewMetricsHandler(scrape).Routes())

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		if rl := a.Config.Security.RateLimit; rl.Enabled {
			r.Use(custommw.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
		}
		r.Use(custommw.Timeout(a.Config.Server.RequestTimeout))

		reportHandler := handlers.NewReportHandler(a.Reports, custommw.NewQueryValidator(a.Logger), a.Logger, errorHandler)
		r.Mount("/reports", reportHandler.Routes())
	})

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Serve accepts connections on l until the server is shut down
func (a *Application) Serve(ctx context.Context, l net.Listener) error {
	a.Logger.InfoContext(ctx, "Starting HTTP server",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("address", l.Addr().String()))

	if err := a.Server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing log file", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.Serve(ctx, l)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	}

	return a.Stop(context.Background())
}
