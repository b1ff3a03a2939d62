package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pharmalink/gateway/internal/actions"
	"github.com/pharmalink/gateway/internal/config"
	"github.com/pharmalink/gateway/internal/event"
	"github.com/pharmalink/gateway/internal/guard"
	"github.com/pharmalink/gateway/internal/handler"
	"github.com/pharmalink/gateway/internal/proxy"
	"github.com/pharmalink/gateway/internal/session"
	"github.com/pharmalink/gateway/internal/upstream"
	"github.com/pharmalink/gateway/pkg/health"
	"github.com/pharmalink/gateway/pkg/httpclient"
	"github.com/pharmalink/gateway/pkg/kafka"
	"github.com/pharmalink/gateway/pkg/tracing"
)

// App wires together all dependencies and runs the portal gateway.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	httpServer     *http.Server
	producer       *kafka.Producer
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance: upstream clients, session
// store, guard, action modules, and the HTTP router. The gateway holds no
// data of record; everything it serves lives behind the backend API.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "portal-gateway",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// The proxy relays whatever the browser sent, mutations included, so its
	// client must never retry. The action and session clients only carry
	// calls the gateway composes itself and get retries plus a breaker.
	proxyClient := httpclient.New(httpclient.Config{
		Timeout:         cfg.UpstreamTimeout,
		MaxRetries:      0,
		MaxConnsPerHost: 100,
	})
	apiClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.Config{
			Timeout:         cfg.UpstreamTimeout,
			MaxRetries:      cfg.UpstreamMaxRetries,
			RetryWaitMin:    time.Second,
			RetryWaitMax:    5 * time.Second,
			MaxConnsPerHost: 100,
		}),
		httpclient.DefaultCircuitBreakerConfig("backend-api"),
		logger,
	)
	api := upstream.New(cfg.TargetAPI, apiClient, logger)

	cookie := proxy.CookieConfig{
		Name:   cfg.CookieName,
		TTL:    cfg.CookieTTL,
		Secure: cfg.Production(),
	}
	forwarder := proxy.NewForwarder(cfg.TargetAPI, proxyClient, cookie, logger)

	healthHandler := health.NewHandler()

	// Session cache: in-process by default, Redis when the gateway runs more
	// than one replica behind a balancer.
	var cache session.Cache
	switch cfg.SessionStore {
	case "redis":
		redisCfg := session.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
		cache, err = session.NewRedisCache(ctx, redisCfg, cfg.CookieTTL)
		if err != nil {
			return nil, fmt.Errorf("connect session redis: %w", err)
		}
		if pinger, ok := cache.(interface{ Ping(context.Context) error }); ok {
			healthHandler.Register("redis", pinger.Ping)
		}
	default:
		cache = session.NewMemoryCache()
	}

	// Auth audit events. Best-effort: disabled or broker-down never blocks
	// a login.
	var producer *kafka.Producer
	var audit session.Recorder
	if cfg.AuditEnabled {
		producer = kafka.NewProducer(kafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		audit = event.NewAuditRecorder(producer, cfg.AuditTopic, logger)
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
	}

	sessions := session.NewStore(cache, session.NewProfileFetcher(api), cfg.SessionStaleness, audit, logger)
	g := guard.New(guard.DefaultPolicy(), sessions, cfg.CookieName, logger)

	acts := handler.NewActions(
		actions.NewAuth(api),
		actions.NewCompany(api),
		actions.NewPharmacy(api),
		actions.NewOwner(api),
		sessions,
		cookie,
		logger,
	)

	// Backend reachability check. Non-critical: a backend blip should not
	// pull the gateway out of the balancer, the breaker handles it.
	healthHandler.RegisterNonCritical("backend", func(ctx context.Context) error {
		u, err := url.Parse(cfg.TargetAPI)
		if err != nil {
			return fmt.Errorf("parse backend URL: %w", err)
		}
		host := u.Host
		if u.Port() == "" {
			port := "80"
			if u.Scheme == "https" {
				port = "443"
			}
			host = net.JoinHostPort(u.Hostname(), port)
		}
		d := net.Dialer{Timeout: 2 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return fmt.Errorf("backend unreachable: %w", err)
		}
		_ = conn.Close()
		return nil
	})

	router := handler.NewRouter(cfg, forwarder, acts, g, healthHandler, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		httpServer:     httpServer,
		producer:       producer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application in order:
// 1. HTTP server (drain in-flight requests)
// 2. Kafka producer (flush queued audit events)
// 3. Tracer (flush pending spans from drained requests)
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
