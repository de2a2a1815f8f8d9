package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pageza/recipehub/internal/api"
	"github.com/pageza/recipehub/internal/middleware"
)

// Handlers are the route groups mounted under /api/v1.
type Handlers struct {
	Session       *api.SessionHandler
	Recipes       *api.RecipeHandler
	Messages      *api.MessageHandler
	Admin         *api.AdminHandler
	Notifications *api.NotificationHandler
}

// Options configures the ambient routes and middleware.
type Options struct {
	Logger         *zap.Logger
	AllowedOrigins []string
	// Health reports whether persisted state is reachable.
	Health   func(ctx context.Context) error
	Gatherer prometheus.Gatherer
}

const healthTimeout = 2 * time.Second

// SetupRouter configures the application routes
func SetupRouter(h Handlers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.ErrorHandler(opts.Logger),
		middleware.RequestLogger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	router.GET("/health", health(opts.Health))
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	for _, g := range []interface{ RegisterRoutes(*gin.RouterGroup) }{
		h.Session, h.Recipes, h.Messages, h.Admin, h.Notifications,
	} {
		g.RegisterRoutes(v1)
	}

	return router
}

func health(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
