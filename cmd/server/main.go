// Command macronizer starts the meal-log web server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/macronizer/internal/config"
	"github.com/and161185/macronizer/internal/limiter"
	"github.com/and161185/macronizer/internal/migrate"
	"github.com/and161185/macronizer/internal/nutrition"
	"github.com/and161185/macronizer/internal/repository"
	"github.com/and161185/macronizer/internal/repository/memory"
	"github.com/and161185/macronizer/internal/repository/postgres"
	httpserver "github.com/and161185/macronizer/internal/server/http"
	"github.com/and161185/macronizer/internal/service"
	"github.com/and161185/macronizer/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, prepares storage and starts the HTTP server.
func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		// logger is not configured yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	logger := newLogger(cfg.Debug)
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("env", cfg.Env),
		zap.String("storage", cfg.Storage),
		zap.String("addr", cfg.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var (
		userRepo repository.UserRepository
		logRepo  repository.LogRepository
	)
	switch cfg.Storage {
	case config.StoragePostgres:
		if err := migrate.Up(ctx, cfg.DatabaseURL, logger); err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres", zap.Error(err))
		}
		defer db.Close()
		userRepo = postgres.NewUserRepo(db)
		logRepo = postgres.NewLogRepo(db)
	default:
		store := memory.New()
		userRepo = store.Users()
		logRepo = store.Logs()
	}

	// Redis-backed sessions, lockout and lookup cache; in-process fallbacks without it
	var (
		sessStore session.Store   = session.NewMemoryStore()
		lim       limiter.Limiter = limiter.Nop{}
		foods     nutrition.Searcher
	)
	foods = nutrition.NewClient(cfg.NutritionAPIURL, cfg.NutritionAPIKey, cfg.NutritionTimeout)
	if cfg.RedisURL != "" {
		rdb, err := newRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		sessStore = session.NewRedisStore(rdb)
		lim = limiter.NewRedis(rdb, cfg.LoginWindow, cfg.LoginMaxFails, cfg.LoginBlockFor)
		if cfg.NutritionCacheTTL > 0 {
			foods = nutrition.NewCache(rdb, foods, cfg.NutritionCacheTTL, logger.Named("nutrition"))
		}
	} else {
		logger.Warn("REDIS_URL not set: sessions are in-process and login lockout is disabled")
	}

	// Services
	authSvc := service.NewAuthService(userRepo, lim)
	ledgerSvc := service.NewLedgerService(logRepo, cfg.MaxItemsPerLog)
	sessions := session.NewManager(sessStore, []byte(cfg.SessionSecret), cfg.SessionTTL, cfg.CookieSecure)

	app, err := httpserver.New(authSvc, ledgerSvc, foods, sessions, logger, httpserver.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AuthRatePerMin: cfg.AuthRatePerMin,
		AuthRateBurst:  cfg.AuthRateBurst,
	})
	if err != nil {
		logger.Fatal("http server", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

func newLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func newRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.DialTimeout = 3 * time.Second
	opt.ReadTimeout = 2 * time.Second
	opt.WriteTimeout = 2 * time.Second

	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
