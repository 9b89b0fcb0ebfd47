package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/auth"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/config"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/event"
	handler "github.com/Ayoub-Elkhouzari/freelance-management/internal/handler/http"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/repository"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/repository/memory"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/repository/postgres"
	redisrepo "github.com/Ayoub-Elkhouzari/freelance-management/internal/repository/redis"
	"github.com/Ayoub-Elkhouzari/freelance-management/internal/service"
	"github.com/Ayoub-Elkhouzari/freelance-management/migrations"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/database"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/health"
	pkgkafka "github.com/Ayoub-Elkhouzari/freelance-management/pkg/kafka"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/tracing"
)

// App wires together all dependencies and runs the API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

type stores struct {
	users   repository.UserRepository
	tokens  repository.RefreshTokenRepository
	clients repository.ClientRepository
}

// NewApp creates a new application instance, initializing all dependencies.
// Everything opened before a failure is released again.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	h, err := a.build(ctx)
	if err != nil {
		a.release()
		return nil, err
	}

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           h,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func (a *App) build(ctx context.Context) (http.Handler, error) {
	cfg, logger := a.cfg, a.logger

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.TracingConfig())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler(3 * time.Second)

	st, err := a.openStores(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	throttle, err := a.openThrottle(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	publisher, err := a.openPublisher(healthHandler)
	if err != nil {
		return nil, err
	}

	codec, err := auth.NewTokenManager(cfg.TokenConfig())
	if err != nil {
		return nil, err
	}

	authService := service.NewAuthService(st.users, st.tokens, codec, publisher, throttle, logger)
	clientService := service.NewClientService(st.clients, logger)

	return handler.NewRouter(authService, clientService, healthHandler, logger, handler.RouterConfig{
		CORSOrigins:   cfg.CORSAllowedOrigins,
		AuthRateRPS:   cfg.AuthRateLimitRPS,
		AuthRateBurst: cfg.AuthRateLimitBurst,
		PprofCIDRs:    cfg.PprofAllowedCIDRs,
	}), nil
}

func (a *App) openStores(ctx context.Context, hh *health.Handler) (stores, error) {
	cfg, logger := a.cfg, a.logger

	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		hh.RegisterCritical("store", func(context.Context) error { return nil })
		return stores{
			users:   memory.NewUserRepository(),
			tokens:  memory.NewRefreshTokenRepository(),
			clients: memory.NewClientRepository(),
		}, nil
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.PostgresConfig()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return stores{}, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, config.ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return stores{}, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	hh.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	return stores{
		users:   postgres.NewUserRepository(pool),
		tokens:  postgres.NewRefreshTokenRepository(pool),
		clients: postgres.NewClientRepository(pool),
	}, nil
}

func (a *App) openThrottle(ctx context.Context, hh *health.Handler) (*service.LoginThrottle, error) {
	cfg, logger := a.cfg, a.logger

	var store repository.LoginAttemptStore
	switch cfg.LoginThrottleDriver {
	case config.DriverDisabled:
		logger.Warn("login throttle disabled")
		return nil, nil
	case config.DriverRedis:
		client, err := database.NewRedisClient(ctx, cfg.RedisConfig())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisConfig().Addr()))
		hh.RegisterNonCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		store = redisrepo.NewLoginAttemptStore(client)
	default:
		store = memory.NewLoginAttemptStore()
	}

	return service.NewLoginThrottle(store, cfg.LoginMaxFailures, cfg.LoginLockout, logger), nil
}

func (a *App) openPublisher(hh *health.Handler) (event.Publisher, error) {
	cfg, logger := a.cfg, a.logger

	if !cfg.KafkaEnabled {
		logger.Info("kafka disabled, domain events are dropped")
		return event.Discard{}, nil
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	a.producer = producer
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	hh.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	return event.NewKafkaPublisher(producer, cfg.KafkaTopicPrefix, logger), nil
}

// Handler returns the HTTP handler of the API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, Redis and finally the PostgreSQL pool.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// Drain in-flight HTTP requests.
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Flush spans after the drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeBackends()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// release undoes a partial NewApp.
func (a *App) release() {
	if a.tracerShutdown != nil {
		_ = a.tracerShutdown(context.Background())
	}
	a.closeBackends()
}

func (a *App) closeBackends() []error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errs
}
