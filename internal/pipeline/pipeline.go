// Package pipeline orchestrates one fetch-merge-evaluate cycle and the
// refresh loop around it.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phquake/quakewatch/internal/domain"
	"github.com/phquake/quakewatch/internal/observability"
	"github.com/phquake/quakewatch/internal/source"
)

// Notifier delivers alert messages to an outbound channel. Delivery failure
// is the notifier's problem to report; the pipeline only logs it.
type Notifier interface {
	SendAlert(ctx context.Context, events []domain.QuakeEvent) error
}

// AlertPublisher writes newly-raised alerts to an egress sink.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, events []domain.QuakeEvent) error
}

// Result is the outcome of one cycle, handed to the presentation layer.
type Result struct {
	Events      []domain.QuakeEvent `json:"events"`
	AlertRaised bool                `json:"alert_raised"`
	NewAlerts   []domain.QuakeEvent `json:"new_alerts,omitempty"`
	CompletedAt time.Time           `json:"completed_at"`
}

// Pipeline sequences the source adapters, merger, and alert evaluator.
type Pipeline struct {
	primary   source.Source
	secondary source.Source
	evaluator *Evaluator
	threshold float64
	notifier  Notifier       // nil when notification is disabled
	publisher AlertPublisher // nil when egress is disabled
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready  atomic.Bool
	mu     sync.RWMutex
	latest Result
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithNotifier attaches an outbound alert notifier.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithPublisher attaches an alert egress publisher.
func WithPublisher(pub AlertPublisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// New creates a Pipeline with the given stages.
func New(primary, secondary source.Source, evaluator *Evaluator, threshold float64, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		primary:   primary,
		secondary: secondary,
		evaluator: evaluator,
		threshold: threshold,
		logger:    logger,
		metrics:   metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once at least one cycle has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no refresh cycle has completed yet")
	}
	return nil
}

// Latest returns the most recently completed cycle's result.
func (p *Pipeline) Latest() Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// RunCycle executes one fetch-merge-evaluate pass and hands alerts to the
// notification collaborators. It always yields a best-effort result: a
// failed source contributes an empty list, never an aborted cycle.
func (p *Pipeline) RunCycle(ctx context.Context) Result {
	start := time.Now()

	// Both fetches are independent; run them together. Each adapter is
	// never-raise, so one source failing cannot mask the other's results.
	var primaryEvents, secondaryEvents []domain.QuakeEvent
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		primaryEvents = p.fetchFrom(gctx, p.primary)
		return nil
	})
	g.Go(func() error {
		secondaryEvents = p.fetchFrom(gctx, p.secondary)
		return nil
	})
	_ = g.Wait()

	merged, dropped := domain.Merge(primaryEvents, secondaryEvents)
	p.metrics.MergedFeedSize.Observe(float64(len(merged)))
	p.metrics.DuplicatesDropped.Add(float64(dropped))

	raised, alerts := p.evaluator.Evaluate(merged, p.threshold)
	if raised {
		p.dispatchAlerts(ctx, alerts)
	}

	result := Result{
		Events:      merged,
		AlertRaised: raised,
		NewAlerts:   alerts,
		CompletedAt: domain.Clock().Now().UTC(),
	}

	p.mu.Lock()
	p.latest = result
	p.mu.Unlock()
	p.ready.Store(true)

	p.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("cycle complete",
		"primary", len(primaryEvents),
		"secondary", len(secondaryEvents),
		"merged", len(merged),
		"duplicates", dropped,
		"alerts", len(alerts),
	)
	return result
}

// Run executes cycles at the given interval until the context is cancelled.
// The first cycle runs immediately.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("pipeline started", "interval", interval, "threshold", p.threshold)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			p.RunCycle(ctx)
		}
	}
}

// fetchFrom wraps a source fetch so a misbehaving source (a test double or
// future adapter that does return an error) degrades to empty like the
// built-in adapters.
func (p *Pipeline) fetchFrom(ctx context.Context, s source.Source) []domain.QuakeEvent {
	events, err := s.Fetch(ctx)
	if err != nil {
		p.logger.Warn("source fetch failed", "source", s.Name(), "error", err)
		return nil
	}
	return events
}

// dispatchAlerts hands new alerts to the optional notifier and publisher.
// Failures are logged and counted; they never propagate into the cycle.
func (p *Pipeline) dispatchAlerts(ctx context.Context, alerts []domain.QuakeEvent) {
	if p.notifier != nil {
		if err := p.notifier.SendAlert(ctx, alerts); err != nil {
			p.logger.Warn("alert notification failed", "error", err, "alerts", len(alerts))
			p.metrics.NotifyDeliveries.WithLabelValues("error").Inc()
		} else {
			p.metrics.NotifyDeliveries.WithLabelValues("success").Inc()
		}
	}

	if p.publisher != nil {
		if err := p.publisher.PublishAlerts(ctx, alerts); err != nil {
			p.logger.Warn("alert publish failed", "error", err, "alerts", len(alerts))
		} else {
			p.metrics.AlertsPublished.Add(float64(len(alerts)))
		}
	}
}
