package dispatch

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ok-landscape/syndicate/internal/models"
	"github.com/ok-landscape/syndicate/internal/publish"
	"github.com/ok-landscape/syndicate/internal/queue"
	"github.com/ok-landscape/syndicate/pkg/clock"
)

// Config tunes the dispatch loop.
type Config struct {
	PollInterval    time.Duration
	DueWindow       time.Duration
	ThrottleBackoff time.Duration
	PublishTimeout  time.Duration
	RescheduleDelay time.Duration
	// RefillSpec is the cron expression for the periodic horizon refill.
	RefillSpec string
	// PublishesPerSec paces consecutive publish calls within one tick.
	PublishesPerSec float64
}

// Refiller plans a fresh batch of queue-ready copies; satisfied by the
// calendar planner.
type Refiller interface {
	PlanHorizon(start time.Time, days int) []models.QueuedContent
}

// Dispatcher drains due queue items to the platform publishers. It runs a
// poll loop, enforces the per-platform publish budgets and triggers the
// periodic horizon refill.
type Dispatcher struct {
	cfg        Config
	store      *queue.Store
	publishers *publish.Registry
	budget     *Budget
	refiller   Refiller
	limiter    *rate.Limiter
	clock      clock.Clock
	logger     *zap.Logger

	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}

	// sleep is the backoff primitive, injectable so tests do not wait.
	sleep func(ctx context.Context, d time.Duration) bool
}

func New(cfg Config, store *queue.Store, publishers *publish.Registry, budget *Budget, refiller Refiller, clk clock.Clock, logger *zap.Logger) *Dispatcher {
	var limiter *rate.Limiter
	if cfg.PublishesPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.PublishesPerSec), 1)
	}

	return &Dispatcher{
		cfg:        cfg,
		store:      store,
		publishers: publishers,
		budget:     budget,
		refiller:   refiller,
		limiter:    limiter,
		clock:      clk,
		logger:     logger,
		stopCh:     make(chan struct{}),
		sleep:      sleepWithContext,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Start launches the poll loop and the refill schedule. An empty queue is
// refilled immediately so a fresh deployment starts publishing without
// waiting for the first cron boundary.
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.refiller != nil && d.cfg.RefillSpec != "" {
		d.cron = cron.New()
		if _, err := d.cron.AddFunc(d.cfg.RefillSpec, func() {
			d.RefillHorizon()
		}); err != nil {
			d.logger.Error("Invalid refill schedule",
				zap.String("spec", d.cfg.RefillSpec), zap.Error(err))
			return err
		}
		d.cron.Start()
		d.logger.Info("Refill schedule started", zap.String("spec", d.cfg.RefillSpec))
	}

	if d.refiller != nil && d.store.Len() == 0 {
		go func() {
			d.logger.Info("Queue empty, running initial refill")
			d.RefillHorizon()
		}()
	}

	d.ticker = time.NewTicker(d.cfg.PollInterval)
	d.logger.Info("Starting dispatcher", zap.Duration("poll_interval", d.cfg.PollInterval))

	go func() {
		for {
			select {
			case <-d.ticker.C:
				d.RunOnce(ctx)
			case <-d.stopCh:
				d.logger.Info("Dispatcher stopped")
				return
			case <-ctx.Done():
				d.logger.Info("Dispatcher context cancelled")
				return
			}
		}
	}()

	return nil
}

// Stop halts the poll loop and the refill schedule. In-flight publishes run
// to completion; publish calls are bounded by the publish timeout.
func (d *Dispatcher) Stop() {
	if d.ticker != nil {
		d.ticker.Stop()
	}
	if d.cron != nil {
		stopCtx := d.cron.Stop()
		<-stopCtx.Done()
	}
	close(d.stopCh)
	d.logger.Info("Dispatcher shutdown completed")
}

// RefillHorizon plans the next horizon and enqueues the result.
func (d *Dispatcher) RefillHorizon() {
	if d.refiller == nil {
		return
	}

	items := d.refiller.PlanHorizon(d.clock.Now(), 0)
	if len(items) == 0 {
		d.logger.Warn("Horizon refill produced no items")
		return
	}

	if err := d.store.EnqueueBatch(items); err != nil {
		d.logger.Error("Failed to enqueue refilled horizon", zap.Error(err))
		return
	}

	d.logger.Info("Horizon refilled", zap.Int("items", len(items)))
}

// RunOnce processes every currently due item in queue order. Exported so the
// CLI and tests can drive a single dispatch pass.
func (d *Dispatcher) RunOnce(ctx context.Context) {
	due := d.store.Due(d.cfg.DueWindow)
	if len(due) == 0 {
		return
	}

	d.logger.Info("Dispatching due content", zap.Int("count", len(due)))

	// Platforms that stayed throttled after one backoff sit out the rest of
	// this tick; their items come back on the next poll.
	skipped := make(map[string]bool)

	for _, item := range due {
		if ctx.Err() != nil {
			return
		}
		select {
		case <-d.stopCh:
			return
		default:
		}

		if skipped[item.Platform] {
			continue
		}

		if !d.budget.Allow(item.Platform) {
			d.logger.Warn("Publish budget exhausted, backing off",
				zap.String("platform", item.Platform),
				zap.Duration("backoff", d.cfg.ThrottleBackoff))
			if !d.sleep(ctx, d.cfg.ThrottleBackoff) {
				return
			}
			if !d.budget.Allow(item.Platform) {
				d.logger.Warn("Platform still throttled, skipping for this pass",
					zap.String("platform", item.Platform))
				skipped[item.Platform] = true
				continue
			}
		}

		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				return
			}
		}

		d.dispatch(ctx, item)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, item models.QueuedContent) {
	pub, ok := d.publishers.For(item.Platform)
	if !ok {
		d.logger.Error("No publisher registered for platform, content needs operator attention",
			zap.String("platform", item.Platform),
			zap.String("content_id", item.ContentID))
		return
	}

	pctx, cancel := context.WithTimeout(ctx, d.cfg.PublishTimeout)
	defer cancel()

	result := pub.Publish(pctx, publish.Request{
		DestinationID: item.DestinationID,
		Platform:      item.Platform,
		Body:          item.Body,
		Hashtags:      item.Hashtags,
		Link:          item.Link,
		MediaPath:     item.MediaPath,
		AltText:       item.AltText,
		ContentID:     item.ContentID,
		SourceID:      item.SourceID,
	})

	switch {
	case result.Success:
		if err := d.store.MarkPosted(item, result.PostID); err != nil {
			d.logger.Error("Published but failed to record posting",
				zap.String("content_id", item.ContentID),
				zap.Error(err))
		}

	case result.Transient:
		newTime := item.ScheduledAt.Add(d.cfg.RescheduleDelay)
		d.logger.Warn("Transient publish failure, rescheduling",
			zap.String("content_id", item.ContentID),
			zap.String("platform", item.Platform),
			zap.Time("new_time", newTime),
			zap.Error(result.Err))
		if _, err := d.store.Reschedule(item.ContentID, newTime); err != nil {
			d.logger.Error("Failed to reschedule content",
				zap.String("content_id", item.ContentID),
				zap.Error(err))
		}

	default:
		// Terminal failure: the copy stays queued so an operator can
		// inspect, fix and reschedule or remove it.
		d.logger.Error("Terminal publish failure, operator attention required",
			zap.String("content_id", item.ContentID),
			zap.String("platform", item.Platform),
			zap.String("destination", item.DestinationName),
			zap.Error(result.Err))
	}
}

// BudgetState exposes the current publish budgets for the stats endpoint.
func (d *Dispatcher) BudgetState() map[string]BudgetState {
	return d.budget.State()
}
