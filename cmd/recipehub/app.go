package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/recipehub/config"
	"github.com/pageza/recipehub/internal/apiclient"
	"github.com/pageza/recipehub/internal/dashboard"
	"github.com/pageza/recipehub/internal/database"
	"github.com/pageza/recipehub/internal/logger"
	"github.com/pageza/recipehub/internal/media"
	"github.com/pageza/recipehub/internal/notify"
	"github.com/pageza/recipehub/internal/service"
	"github.com/pageza/recipehub/internal/session"
	"github.com/pageza/recipehub/internal/state"
)

// app holds every long-lived component of one process.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry

	store   session.Store
	session *session.Session
	redis   *redis.Client

	authSvc    *service.AuthService
	recipeSvc  *service.RecipeService
	messageSvc *service.MessageService

	center   *notify.Center
	auth     *state.AuthProvider
	recipes  *state.RecipeProvider
	messages *state.MessageProvider
	engine   *dashboard.Engine

	closers []func() error
}

// loadConfig reads configuration and builds the logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// newApp wires the client stack from configuration.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, closeStore, err := session.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, closeStore)
	a.session = session.New(store, log)

	client := apiclient.New(cfg.APIBaseURL, a.session,
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithRateLimit(cfg.RateLimit),
		apiclient.WithLogger(log),
		apiclient.WithRegisterer(a.registry),
	)

	var uploader media.Uploader
	s3cfg, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if up := media.NewS3Uploader(s3cfg, log); up != nil {
		uploader = up
	}

	a.authSvc = service.NewAuthService(client, a.session, log)
	a.recipeSvc = service.NewRecipeService(client, uploader, log)
	a.messageSvc = service.NewMessageService(client, uploader, log)

	a.center = notify.NewCenter(notify.DefaultCapacity)
	a.auth = state.NewAuthProvider(a.authSvc, a.session, log)
	client.OnUnauthorized(a.auth.Expire)
	a.recipes = state.NewRecipeProvider(a.recipeSvc, a.auth, a.center, log)
	a.messages = state.NewMessageProvider(a.messageSvc, a.center, log)
	a.engine = dashboard.NewEngine(a.authSvc, a.recipeSvc, a.messageSvc, a.session,
		dashboard.WithFeedSize(cfg.FeedSize),
		dashboard.WithBaselinePeriod(cfg.BaselinePeriod),
		dashboard.WithNotifier(a.center),
		dashboard.WithLogger(log),
		dashboard.WithRegisterer(a.registry),
	)
	return a, nil
}

// connectRedis opens the rate limiter connection when redis is configured.
// The gateway runs without rate limits otherwise.
func (a *app) connectRedis(ctx context.Context) {
	client, err := database.ConnectRedis(ctx, a.cfg, "rate_limit", a.logger)
	if errors.Is(err, database.ErrRedisNotConfigured) {
		return
	}
	if err != nil {
		a.logger.Warn("rate limiting disabled", zap.Error(err))
		return
	}
	a.redis = client
	a.closers = append(a.closers, client.Close)
}

// Close releases every connection opened by newApp.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
