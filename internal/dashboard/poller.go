package dashboard

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/recipehub/internal/logger"
)

// DefaultInterval between scheduled refreshes.
const DefaultInterval = 30 * time.Second

// Poller refreshes the engine on an interval and on demand. Overlapping
// triggers join the refresh in flight.
type Poller struct {
	engine   *Engine
	interval time.Duration
	trigger  chan struct{}
	logger   *zap.Logger
}

// NewPoller creates a poller; interval <= 0 uses DefaultInterval.
func NewPoller(engine *Engine, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		engine:   engine,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		logger:   logger.OrNop(log).Named("dashboard_poller"),
	}
}

// Trigger requests a refresh without waiting for it.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run refreshes at once and then on every tick or trigger until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("dashboard poller started", zap.Duration("interval", p.interval))
	p.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("dashboard poller stopped")
			return
		case <-ticker.C:
			p.refresh(ctx)
		case <-p.trigger:
			p.refresh(ctx)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	if _, err := p.engine.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Warn("scheduled dashboard refresh failed", zap.Error(err))
	}
}
