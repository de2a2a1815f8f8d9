package main

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pageza/recipehub/config"
	"github.com/pageza/recipehub/internal/api"
	"github.com/pageza/recipehub/internal/dashboard"
	"github.com/pageza/recipehub/internal/middleware"
	"github.com/pageza/recipehub/internal/router"
	"github.com/pageza/recipehub/internal/server"
	"github.com/pageza/recipehub/internal/session"
	"github.com/pageza/recipehub/internal/state"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the view gateway and the dashboard poller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()
			if cfg.Env == config.Production {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()
			a.connectRedis(ctx)

			st := a.auth.Init(ctx)
			log.Info("session restored", zap.String("status", string(st.Status)))
			linked := state.Link(ctx, a.auth, a.recipes, a.messages)

			poller := dashboard.NewPoller(a.engine, cfg.DashboardInterval, log)
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				pollWhileAdmin(ctx, a.auth, poller)
			}()

			limits := api.RecipeLimits{
				Create: middleware.NewRecipeCreationRateLimiter(a.redis, log),
				Review: middleware.NewReviewRateLimiter(a.redis, log),
			}
			handler := router.SetupRouter(router.Handlers{
				Session:       api.NewSessionHandler(a.auth, a.authSvc),
				Recipes:       api.NewRecipeHandler(a.recipes, a.recipeSvc, a.auth, limits),
				Messages:      api.NewMessageHandler(a.messages, a.auth, middleware.NewMessageRateLimiter(a.redis, log)),
				Admin:         api.NewAdminHandler(a.engine, poller, a.authSvc, a.messageSvc, a.auth),
				Notifications: api.NewNotificationHandler(a.center),
			}, router.Options{
				Logger:         log,
				AllowedOrigins: cfg.AllowedOrigins,
				Health:         func(ctx context.Context) error { return session.Ping(ctx, a.store) },
				Gatherer:       a.registry,
			})

			err = server.New(cfg.Addr(), handler, log).Start(ctx)
			cancel()
			a.recipes.Detach()
			a.messages.Detach()
			wg.Wait()
			<-linked
			return err
		},
	}
}

// pollWhileAdmin runs the poller only while an admin is signed in.
func pollWhileAdmin(ctx context.Context, auth *state.AuthProvider, poller *dashboard.Poller) {
	updates, cancel := auth.Subscribe()
	defer cancel()

	var (
		stop func()
		done chan struct{}
	)
	halt := func() {
		if stop != nil {
			stop()
			<-done
			stop, done = nil, nil
		}
	}
	defer halt()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			switch {
			case st.IsAdmin() && stop == nil:
				pollCtx, cancelPoll := context.WithCancel(ctx)
				stop, done = cancelPoll, make(chan struct{})
				go func(done chan struct{}) {
					defer close(done)
					poller.Run(pollCtx)
				}(done)
			case !st.IsAdmin():
				halt()
			}
		}
	}
}
