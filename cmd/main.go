package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/intervention-auth/config"
	database "github.com/duynhne/intervention-auth/internal/core"
	"github.com/duynhne/intervention-auth/internal/core/domain"
	"github.com/duynhne/intervention-auth/internal/core/queue"
	"github.com/duynhne/intervention-auth/internal/core/repository"
	logicv1 "github.com/duynhne/intervention-auth/internal/logic/v1"
	webv1 "github.com/duynhne/intervention-auth/internal/web/v1"
	"github.com/duynhne/intervention-auth/middleware"
	"github.com/duynhne/pkg/logger/zerolog"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		panic("Configuration validation failed: " + err.Error())
	}

	// Initialize Zerolog with LOG_LEVEL from config
	zerolog.Setup(cfg.Logging.Level)

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Str("port", cfg.Service.Port).
		Str("db_driver", cfg.Database.Driver).
		Msg("Service starting")

	// Initialize OpenTelemetry tracing
	var tp interface{ Shutdown(context.Context) error }
	if cfg.Tracing.Enabled {
		provider, err := middleware.InitTracing(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing")
		} else {
			tp = provider
			log.Info().
				Str("endpoint", cfg.Tracing.Endpoint).
				Float64("sample_rate", cfg.Tracing.SampleRate).
				Msg("Tracing initialized")
		}
	} else {
		log.Info().Msg("Tracing disabled (TRACING_ENABLED=false)")
	}

	// Initialize Pyroscope profiling
	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize profiling")
		} else {
			log.Info().
				Str("endpoint", cfg.Profiling.Endpoint).
				Msg("Profiling initialized")
			defer middleware.StopProfiling()
		}
	} else {
		log.Info().Msg("Profiling disabled (PROFILING_ENABLED=false)")
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	// Session records and the user directory
	users, sessions, closeDB, err := openRecordStore(startupCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("Database connection pool established")

	// Cookie-session state
	states, closeStates, err := openStateStore(startupCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to session state store")
	}

	// Auth events
	var events domain.EventPublisher = queue.NoopPublisher{}
	var amqpPublisher *queue.AMQPPublisher
	if cfg.Queue.Enabled {
		amqpPublisher, err = queue.NewAMQPPublisher(cfg.Queue.URL, cfg.Queue.Name)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to RabbitMQ, auth events disabled")
		} else {
			events = amqpPublisher
			log.Info().Str("queue", cfg.Queue.Name).Msg("Auth event publishing enabled")
		}
	}

	verifier, err := logicv1.NewPasswordVerifier(users, bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize credential verifier")
	}

	authService := logicv1.NewAuthService(
		users,
		verifier,
		logicv1.NewSessionManager(sessions, states, cfg.GetRegenerateIntervalDuration()),
		logicv1.NewTokenManager(sessions, cfg.GetTokenTTLDuration()),
		events,
	)

	sweeper, err := logicv1.NewSweeper(sessions, cfg.Sweep.Schedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule session sweep")
	}
	if cfg.Sweep.Enabled {
		sweeper.Start()
		log.Info().Str("schedule", cfg.Sweep.Schedule).Msg("Session sweep scheduled")
	}

	handler := webv1.NewHandler(authService, webv1.CookieConfig{
		Name:        cfg.Session.CookieName,
		Domain:      cfg.Session.CookieDomain,
		Path:        cfg.Session.CookiePath,
		ForceSecure: cfg.Session.ForceSecureCookie,
	}, sweeper)

	r := gin.New()
	r.Use(gin.Recovery())

	// Session binding relies on the client IP; only listed proxies may set it.
	if err := r.SetTrustedProxies(cfg.Session.TrustedProxies); err != nil {
		log.Fatal().Err(err).Msg("Invalid TRUSTED_PROXIES")
	}

	var isShuttingDown atomic.Bool

	// Tracing middleware
	r.Use(middleware.TracingMiddleware(cfg.Service.Name))

	// Logging middleware
	r.Use(middleware.LoggingMiddleware())

	// Prometheus middleware
	r.Use(middleware.PrometheusMiddleware())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness check
	// Returns 503 once shutdown has started, to drain traffic before HTTP shutdown.
	r.GET("/ready", func(c *gin.Context) {
		if isShuttingDown.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(r.Group("/api/v1"))

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Service.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Service.Port).Msg("Starting auth service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	// Fail readiness first and wait for propagation.
	isShuttingDown.Store(true)
	if drainDelay := cfg.GetReadinessDrainDelayDuration(); drainDelay > 0 {
		log.Info().Dur("delay", drainDelay).Msg("Readiness drain delay started")
		time.Sleep(drainDelay)
	}

	shutdownTimeout := cfg.GetShutdownTimeoutDuration()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info().Dur("timeout", shutdownTimeout).Msg("Shutting down server...")

	// 1. Shutdown HTTP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		log.Info().Msg("HTTP server shutdown complete")
	}

	// 2. Stop the sweep schedule, waiting for a running sweep
	select {
	case <-sweeper.Stop().Done():
		log.Info().Msg("Session sweep stopped")
	case <-shutdownCtx.Done():
		log.Warn().Msg("Session sweep still running at shutdown")
	}

	// 3. Close the event publisher
	if amqpPublisher != nil {
		if err := amqpPublisher.Close(); err != nil {
			log.Error().Err(err).Msg("RabbitMQ close error")
		}
	}

	// 4. Close stores
	closeStates()
	closeDB()
	log.Info().Msg("Stores closed")

	// 5. Shutdown tracer
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Tracer shutdown error")
		} else {
			log.Info().Msg("Tracer shutdown complete")
		}
	}

	log.Info().Msg("Graceful shutdown complete")
}

// openRecordStore connects to the database selected by DB_DRIVER and returns
// the user directory and session-record repositories backed by it.
func openRecordStore(ctx context.Context, cfg *config.Config) (domain.UserRepository, domain.SessionRepository, func(), error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := database.OpenMySQL(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(); err != nil {
				log.Error().Err(err).Msg("MySQL close error")
			}
		}
		return repository.NewMySQLUserRepository(db), repository.NewMySQLSessionRepository(db), closeFn, nil
	default:
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		return repository.NewUserRepository(pool), repository.NewSessionRepository(pool), pool.Close, nil
	}
}

// openStateStore returns the Redis state store when enabled, otherwise a
// process-local one suitable for a single replica.
func openStateStore(ctx context.Context, cfg *config.Config) (domain.SessionStateStore, func(), error) {
	ttl := cfg.GetSessionStateTTLDuration()

	if !cfg.Redis.Enabled {
		log.Warn().Msg("Session state kept in memory (REDIS_ENABLED=false); sessions do not survive restarts")
		store := repository.NewMemorySessionStateStore(ttl)
		pruneCtx, stopPruning := context.WithCancel(context.Background())
		store.StartPruning(pruneCtx, time.Minute)
		return store, stopPruning, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis session state store connected")

	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("Redis close error")
		}
	}
	return repository.NewRedisSessionStateStore(client, cfg.Redis.Prefix, ttl), closeFn, nil
}
