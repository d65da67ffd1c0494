package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
)

// AccessLogPruner periodically deletes access-log entries older than a
// retention period.  A retention of 0 disables pruning entirely.
type AccessLogPruner struct {
	store     store.AccessLogStore
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// PrunerConfig holds the parameters for NewAccessLogPruner.
type PrunerConfig struct {
	// RetentionDays is how many days of access history to keep.
	// 0 means keep everything (pruner will not start).
	RetentionDays int

	// IntervalHours is how often the pruner runs.  Defaults to 6.
	IntervalHours int
}

// NewAccessLogPruner creates a pruner but does not start it.
func NewAccessLogPruner(s store.AccessLogStore, cfg PrunerConfig, logger *zap.Logger) *AccessLogPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AccessLogPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start runs an immediate prune, then repeats on the configured interval
// until ctx is cancelled or Stop is called.
func (p *AccessLogPruner) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		if p.retention <= 0 {
			p.logger.Info("access log pruner disabled (retention=0)")
			close(p.done)
			return
		}

		ctx, p.cancel = context.WithCancel(ctx)
		go p.loop(ctx)

		p.logger.Info("access log pruner started",
			zap.Duration("retention", p.retention),
			zap.Duration("interval", p.interval),
		)
	})
}

// Stop signals the pruner to exit and waits for it.  Safe to call repeatedly.
func (p *AccessLogPruner) Stop() {
	// Never started: mark done so the wait below returns.
	p.startOnce.Do(func() { close(p.done) })
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

// PruneNow deletes expired entries once and reports how many went.
func (p *AccessLogPruner) PruneNow(ctx context.Context) (int64, error) {
	if p.retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-p.retention)
	return p.store.PruneOlderThan(ctx, cutoff)
}

func (p *AccessLogPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *AccessLogPruner) prune(ctx context.Context) {
	deleted, err := p.PruneNow(ctx)
	if err != nil {
		p.logger.Error("access log prune failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("access log pruned", zap.Int64("deleted", deleted))
	}
}
