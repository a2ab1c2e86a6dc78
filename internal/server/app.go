// Package server wires configuration, storage and services together and runs
// the HTTP API and background jobs until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/donationhub/internal/logging"
	"github.com/dmitrijs2005/donationhub/internal/server/auth"
	"github.com/dmitrijs2005/donationhub/internal/server/catalog"
	"github.com/dmitrijs2005/donationhub/internal/server/config"
	"github.com/dmitrijs2005/donationhub/internal/server/httpapi"
	"github.com/dmitrijs2005/donationhub/internal/server/ratelimit"
	"github.com/dmitrijs2005/donationhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/donationhub/internal/server/services"
	"github.com/dmitrijs2005/donationhub/internal/server/storage"
	"github.com/dmitrijs2005/donationhub/internal/server/sweeper"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	http    *httpapi.HTTPServer
	sweeper *sweeper.Sweeper
}

// NewApp opens the database, applies migrations, loads reference data and
// builds every service.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	cat, err := catalog.Load(ctx, rm.Lookups(db))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reference data error: %w", err)
	}

	issuer := auth.NewIssuer(auth.IssuerConfig{
		Issuer:  c.Issuer,
		Access:  auth.KeyConfig{Secret: []byte(c.AccessSecretKey), Validity: c.AccessTokenValidityDuration},
		Refresh: auth.KeyConfig{Secret: []byte(c.RefreshSecretKey), Validity: c.RefreshTokenValidityDuration},
	})
	rotation := auth.NewRotationPolicy(c.RefreshTokenValidityDuration, c.RefreshRotationThreshold)

	sessions := services.NewSessionService(db, rm, issuer, auth.NewBcryptVerifier(c.PasswordHashCost), cat, rotation, logger)
	donations := services.NewDonationService(db, rm, cat, newImageStore(c), c.PaginationLimitDefault, logger)
	requests := services.NewRequestService(db, rm, cat, c.PaginationLimitDefault, logger)

	app := &App{config: c, logger: logger, db: db}

	var limiter ratelimit.Limiter = ratelimit.NewLocalLimiter()
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		limiter = ratelimit.NewRedisLimiter(app.redis, "donationhub")
	}

	app.http = httpapi.NewHTTPServer(c.EndpointAddrHTTP, logger, sessions, donations, requests, cat,
		httpOptions(c, issuer, limiter))
	app.sweeper = sweeper.New(rm.Tokens(db), c.TokenSweepInterval, c.RevokedTokenRetention, logger)

	return app, nil
}

// newImageStore returns nil when no bucket is configured, which turns image
// uploads off.
func newImageStore(c *config.Config) services.ImageStore {
	if c.S3Bucket == "" {
		return nil
	}
	return storage.NewS3ImageStore(c)
}

// httpOptions sizes the session cookies after the lifetimes the issuer
// signs into the tokens.
func httpOptions(c *config.Config, issuer *auth.Issuer, limiter ratelimit.Limiter) httpapi.Options {
	return httpapi.Options{
		AccessTokenTTL:  issuer.Validity(auth.AccessToken),
		RefreshTokenTTL: issuer.Validity(auth.RefreshToken),
		Limiter:         limiter,
		AuthRateLimit:   c.AuthRateLimitPerMin,
		AuthRateWindow:  time.Minute,
	}
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
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives or the HTTP server fails, then releases
// the database and Redis connections.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.TokenSweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.sweeper.Run(ctx)
		}()
	}

	wg.Wait()

	if app.redis != nil {
		_ = app.redis.Close()
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
