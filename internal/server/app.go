// Package server initializes and runs the carpooling application server.
// It connects to the storage backends, runs schema migrations, wires the
// services together and starts the HTTP server, handling graceful shutdown
// on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/ostrval/carpooling/internal/logging"
	"github.com/ostrval/carpooling/internal/server/auth"
	"github.com/ostrval/carpooling/internal/server/cache"
	"github.com/ostrval/carpooling/internal/server/config"
	"github.com/ostrval/carpooling/internal/server/httpserver"
	"github.com/ostrval/carpooling/internal/server/repositories/repomanager"
	"github.com/ostrval/carpooling/internal/server/repositories/users"
	"github.com/ostrval/carpooling/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpserver.Server
}

// WaitForStore pings the database until it answers or the retry budget runs
// out. The database container may still be starting when the server or the
// seed loader comes up.
func WaitForStore(ctx context.Context, db *sql.DB) error {
	backoff := retry.WithMaxRetries(30, retry.NewConstant(1*time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := WaitForStore(ctx, db); err != nil {
		return nil, fmt.Errorf("db not reachable: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	routeCache := cache.NewRedisCache(rdb, cfg.RouteCacheTTL)

	var userRepo users.Repository
	switch cfg.UserStore {
	case config.UserStoreDocument:
		userRepo = users.NewDocumentRepository()
	case config.UserStorePostgres:
		userRepo = rm.Users(db)
	default:
		return nil, fmt.Errorf("unknown user store %q", cfg.UserStore)
	}

	tokens := auth.NewTokenService([]byte(cfg.SecretKey))

	loginValidity := cfg.LoginTokenValidityDuration
	if loginValidity <= 0 {
		loginValidity = cfg.AccessTokenValidityDuration
	}

	us := services.NewUserService(userRepo, tokens, loginValidity, logger)
	rs := services.NewRouteService(rm.Routes(db), routeCache, logger)
	ts := services.NewTripService(rm.Trips(db))

	srv := httpserver.New(cfg.EndpointAddr, logger.With("component", "http"), tokens, us, rs, ts)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
