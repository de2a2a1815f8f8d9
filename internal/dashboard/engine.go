package dashboard

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pageza/recipehub/internal/logger"
	"github.com/pageza/recipehub/internal/models"
	"github.com/pageza/recipehub/internal/notify"
	"github.com/pageza/recipehub/internal/service"
	"github.com/pageza/recipehub/internal/session"
	"github.com/pageza/recipehub/internal/types"
)

// ErrAllSourcesFailed is returned when no source answered a refresh. The
// previous snapshot is kept.
var ErrAllSourcesFailed = errors.New("all dashboard sources failed")

// Defaults for the engine options.
const (
	DefaultFeedSize       = 10
	DefaultBaselinePeriod = 24 * time.Hour
	DefaultRefreshTimeout = time.Minute
	ActivityWindow        = 24 * time.Hour
	RecentListSize        = 10
)

// Source names, reported in Snapshot.Unavailable and metrics.
const (
	SourceUsers        = "users"
	SourceRecipes      = "recipes"
	SourceMessages     = "messages"
	SourceUsersCount   = "users_count"
	SourceActiveUsers  = "active_users"
	SourceRecipesCount = "recipes_count"
	SourceTodayRecipes = "today_recipes"
	SourceRecipeStats  = "recipe_stats"
	SourceMessageStats = "message_stats"
)

const (
	sourceCount        = 9
	refreshFlight      = "refresh"
	loadFailureMessage = "Failed to load dashboard data"

	outcomeOK       = "ok"
	outcomeDegraded = "degraded"
	outcomeFailed   = "failed"
)

// BaselineStore persists the growth baseline between refreshes.
type BaselineStore interface {
	Baseline(ctx context.Context) (session.Baseline, bool, error)
	SetBaseline(ctx context.Context, b session.Baseline) error
}

// Snapshot is one fully computed dashboard.
type Snapshot struct {
	Stats          models.DashboardStats `json:"stats"`
	RecentActivity []models.Activity     `json:"recentActivity"`
	Users          []models.User         `json:"users"`
	Recipes        []models.Recipe       `json:"recipes"`
	Messages       []models.Message      `json:"messages"`
	Unavailable    []string              `json:"unavailable,omitempty"`
	RefreshedAt    time.Time             `json:"refreshedAt"`
}

// Engine fetches every dashboard source concurrently and derives the
// admin statistics, tolerating the failure of any single source.
type Engine struct {
	auth      service.IAuthService
	recipes   service.IRecipeService
	messages  service.IMessageService
	baselines BaselineStore
	notes     notify.Notifier
	logger    *zap.Logger
	metrics   *metrics
	now       func() time.Time

	feedSize       int
	baselinePeriod time.Duration
	refreshTimeout time.Duration

	flight singleflight.Group
	mu     sync.RWMutex
	last   *Snapshot
}

// Option configures an Engine.
type Option func(*Engine)

// WithFeedSize bounds the recent-activity feed.
func WithFeedSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.feedSize = n
		}
	}
}

// WithBaselinePeriod sets how long a growth baseline is compared against
// before it is rolled forward.
func WithBaselinePeriod(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.baselinePeriod = d
		}
	}
}

// WithRefreshTimeout bounds one shared refresh, which outlives the
// callers waiting on it.
func WithRefreshTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.refreshTimeout = d
		}
	}
}

// WithNotifier routes the consolidated failure notification.
func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notes = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger.OrNop(l).Named("dashboard") }
}

// WithRegisterer exports refresh metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.metrics = newMetrics(reg) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over the domain services. baselines may be
// nil, in which case growth is always 0.
func NewEngine(auth service.IAuthService, recipes service.IRecipeService, messages service.IMessageService, baselines BaselineStore, opts ...Option) *Engine {
	e := &Engine{
		auth:           auth,
		recipes:        recipes,
		messages:       messages,
		baselines:      baselines,
		notes:          notify.Discard{},
		logger:         zap.NewNop().Named("dashboard"),
		now:            time.Now,
		feedSize:       DefaultFeedSize,
		baselinePeriod: DefaultBaselinePeriod,
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Last returns the most recent successful snapshot, or nil.
func (e *Engine) Last() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// Refresh recomputes the dashboard. Concurrent calls share one computation,
// which runs to completion even if the caller that started it goes away;
// canceling ctx only stops this caller from waiting. When every source
// fails it returns the previous snapshot (possibly nil) with
// ErrAllSourcesFailed.
func (e *Engine) Refresh(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return e.Last(), err
	}
	ch := e.flight.DoChan(refreshFlight, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.refreshTimeout)
		defer cancel()
		return e.refresh(fctx)
	})
	select {
	case res := <-ch:
		if res.Shared {
			e.logger.Debug("joined refresh in flight")
		}
		snap, _ := res.Val.(*Snapshot)
		return snap, res.Err
	case <-ctx.Done():
		e.logger.Debug("stopped waiting for refresh", zap.Error(ctx.Err()))
		return e.Last(), ctx.Err()
	}
}

type fetched struct {
	users    types.List[models.User]
	recipes  types.List[models.Recipe]
	messages types.List[models.Message]

	usersCount   int
	activeUsers  int
	recipesCount int
	todayRecipes int
	recipeStats  types.RecipeStats
	messageStats types.MessageStats

	failed map[string]error
}

func (f *fetched) ok(source string) bool {
	_, bad := f.failed[source]
	return !bad
}

func (e *Engine) fetch(ctx context.Context) *fetched {
	out := &fetched{failed: map[string]error{}}
	var mu sync.Mutex
	mark := func(source string, err error) {
		if err == nil {
			return
		}
		mu.Lock()
		out.failed[source] = err
		mu.Unlock()
	}

	// every task records its own failure, so the group never cancels
	var g errgroup.Group
	g.Go(func() (err error) {
		out.users, err = e.auth.GetAllUsers(ctx, types.ListParams{Limit: service.FallbackLimit})
		mark(SourceUsers, err)
		return nil
	})
	g.Go(func() (err error) {
		out.recipes, err = e.recipes.GetRecipes(ctx, types.RecipeFilter{Sort: "newest", Limit: service.FallbackLimit})
		mark(SourceRecipes, err)
		return nil
	})
	g.Go(func() (err error) {
		out.messages, err = e.messages.GetAllMessages(ctx, types.ListParams{Limit: service.FallbackLimit})
		mark(SourceMessages, err)
		return nil
	})
	g.Go(func() (err error) {
		out.usersCount, err = e.auth.UsersCount(ctx)
		mark(SourceUsersCount, err)
		return nil
	})
	g.Go(func() (err error) {
		out.activeUsers, err = e.auth.ActiveUsersCount(ctx)
		mark(SourceActiveUsers, err)
		return nil
	})
	g.Go(func() (err error) {
		out.recipesCount, err = e.recipes.RecipesCount(ctx)
		mark(SourceRecipesCount, err)
		return nil
	})
	g.Go(func() (err error) {
		out.todayRecipes, err = e.recipes.TodayRecipesCount(ctx)
		mark(SourceTodayRecipes, err)
		return nil
	})
	g.Go(func() (err error) {
		out.recipeStats, err = e.recipes.RecipeStats(ctx)
		mark(SourceRecipeStats, err)
		return nil
	})
	g.Go(func() (err error) {
		out.messageStats, err = e.messages.MessagesStats(ctx)
		mark(SourceMessageStats, err)
		return nil
	})
	_ = g.Wait()
	return out
}

func (e *Engine) refresh(ctx context.Context) (*Snapshot, error) {
	start := e.now()
	f := e.fetch(ctx)

	failed := make([]string, 0, len(f.failed))
	for source, err := range f.failed {
		failed = append(failed, source)
		e.logger.Info("dashboard source unavailable", zap.String("source", source), zap.Error(err))
	}
	sort.Strings(failed)

	if err := ctx.Err(); err != nil {
		return e.Last(), err
	}
	if len(failed) == sourceCount {
		e.notes.Push(notify.LevelError, loadFailureMessage)
		e.metrics.observe(outcomeFailed, e.now().Sub(start), failed, 0)
		e.logger.Warn("dashboard refresh failed", zap.Strings("sources", failed))
		return e.Last(), ErrAllSourcesFailed
	}

	now := e.now()
	stats := e.derive(ctx, f, now)
	snap := &Snapshot{
		Stats:          stats,
		RecentActivity: RecentActivity(f.recipes.Items, f.messages.Items, f.users.Items, now, ActivityWindow, e.feedSize),
		Users:          head(f.users.Items, RecentListSize),
		Recipes:        head(f.recipes.Items, RecentListSize),
		Messages:       head(f.messages.Items, RecentListSize),
		Unavailable:    failed,
		RefreshedAt:    now,
	}

	e.mu.Lock()
	e.last = snap
	e.mu.Unlock()

	outcome := outcomeOK
	if len(failed) > 0 {
		outcome = outcomeDegraded
	}
	e.metrics.observe(outcome, e.now().Sub(start), failed, len(stats.Stale))
	e.logger.Debug("dashboard refreshed",
		zap.String("outcome", outcome),
		zap.Int("total_users", stats.TotalUsers),
		zap.Int("total_recipes", stats.TotalRecipes),
		zap.Strings("stale", stats.Stale))
	return snap, nil
}

// derive resolves every stat from its aggregate, else from the collection,
// else zero flagged stale.
func (e *Engine) derive(ctx context.Context, f *fetched, now time.Time) models.DashboardStats {
	var s models.DashboardStats
	stale := func(field string) { s.Stale = append(s.Stale, field) }

	switch {
	case f.ok(SourceUsersCount):
		s.TotalUsers = f.usersCount
	case f.ok(SourceUsers):
		s.TotalUsers = listTotal(f.users)
	default:
		stale("totalUsers")
	}

	switch {
	case f.ok(SourceActiveUsers):
		s.ActiveUsers = f.activeUsers
	case f.ok(SourceUsers):
		s.ActiveUsers = service.CountActive(f.users.Items, now)
	default:
		stale("activeUsers")
	}

	switch {
	case f.ok(SourceRecipesCount):
		s.TotalRecipes = f.recipesCount
	case f.ok(SourceRecipes):
		s.TotalRecipes = listTotal(f.recipes)
	default:
		stale("totalRecipes")
	}

	switch {
	case f.ok(SourceTodayRecipes):
		s.TodayRecipes = f.todayRecipes
	case f.ok(SourceRecipes):
		s.TodayRecipes = service.CountToday(f.recipes.Items, now)
	default:
		stale("todayRecipes")
	}

	switch {
	case f.ok(SourceRecipeStats):
		s.AvgRecipeRating, s.TotalLikes = f.recipeStats.AverageRating, f.recipeStats.TotalLikes
	case f.ok(SourceRecipes):
		rs := service.ComputeRecipeStats(f.recipes.Items)
		s.AvgRecipeRating, s.TotalLikes = rs.AverageRating, rs.TotalLikes
	default:
		stale("avgRecipeRating")
		stale("totalLikes")
	}

	switch {
	case f.ok(SourceMessageStats):
		s.TotalMessages, s.PendingMessages = f.messageStats.Total, f.messageStats.Pending
	case f.ok(SourceMessages):
		ms := service.ComputeMessageStats(f.messages.Items)
		s.TotalMessages, s.PendingMessages = ms.Total, ms.Pending
	default:
		stale("totalMessages")
		stale("pendingMessages")
	}

	if s.IsStale("totalUsers") {
		stale("growthRate")
	} else {
		s.GrowthRate = e.growth(ctx, s.TotalUsers, now)
	}

	s.CompletionRate = CompletionRate(s.TotalRecipes, s.TotalUsers)
	s.UserEngagement = UserEngagement(s.ActiveUsers, s.TotalUsers)
	if f.ok(SourceRecipes) {
		s.WeeklyGrowth = WeeklyGrowth(f.recipes.Items, now)
	} else {
		stale("weeklyGrowth")
	}

	s.TotalUsers = nonNegative(s.TotalUsers)
	s.ActiveUsers = nonNegative(s.ActiveUsers)
	s.TotalRecipes = nonNegative(s.TotalRecipes)
	s.TodayRecipes = nonNegative(s.TodayRecipes)
	s.TotalLikes = nonNegative(s.TotalLikes)
	s.TotalMessages = nonNegative(s.TotalMessages)
	s.PendingMessages = nonNegative(s.PendingMessages)
	s.AvgRecipeRating = nonNegative(s.AvgRecipeRating)
	return s
}

// growth compares current with the stored baseline, which is replaced once
// it is older than the baseline period or missing.
func (e *Engine) growth(ctx context.Context, current int, now time.Time) float64 {
	if e.baselines == nil {
		return 0
	}
	b, ok, err := e.baselines.Baseline(ctx)
	if err != nil {
		e.logger.Warn("failed to read growth baseline", zap.Error(err))
		return 0
	}
	rate := 0.0
	if ok {
		rate = GrowthRate(b.Value, current)
	}
	if !ok || now.Sub(b.At) >= e.baselinePeriod {
		if err := e.baselines.SetBaseline(ctx, session.Baseline{Value: current, At: now}); err != nil {
			e.logger.Warn("failed to store growth baseline", zap.Error(err))
		}
	}
	return rate
}

func listTotal[T any](l types.List[T]) int {
	if l.Total > len(l.Items) {
		return l.Total
	}
	return len(l.Items)
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	return append([]T(nil), items...)
}
