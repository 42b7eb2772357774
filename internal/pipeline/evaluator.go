package pipeline

import (
	"log/slog"

	"github.com/phquake/quakewatch/internal/domain"
	"github.com/phquake/quakewatch/internal/observability"
)

// AlertLedger is the durable set of already-alerted event identities.
type AlertLedger interface {
	Contains(id string) bool
	Add(id string) error
	Size() int
}

// Evaluator decides which events in a merged feed constitute new alerts and
// commits them to the ledger.
type Evaluator struct {
	ledger  AlertLedger
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEvaluator creates an Evaluator backed by the given ledger.
func NewEvaluator(ledger AlertLedger, logger *slog.Logger, metrics *observability.Metrics) *Evaluator {
	return &Evaluator{
		ledger:  ledger,
		logger:  logger,
		metrics: metrics,
	}
}

// Evaluate scans the feed in order. An event newly alerts when its
// magnitude (absent counts as 0, so it can never qualify) meets the
// threshold inclusively and its identity is not yet in the ledger. Each
// qualifying identity is committed immediately, so the same identity
// appearing twice in one feed alerts at most once. A ledger write failure
// is logged but does not suppress the alert: missing one notification is
// worse than the small chance of repeating one after a crash.
func (ev *Evaluator) Evaluate(feed []domain.QuakeEvent, threshold float64) (bool, []domain.QuakeEvent) {
	var alerts []domain.QuakeEvent
	for _, e := range feed {
		if e.MagnitudeOrZero() < threshold {
			continue
		}
		if ev.ledger.Contains(e.ID) {
			continue
		}

		if err := ev.ledger.Add(e.ID); err != nil {
			ev.logger.Error("ledger write failed, alert may repeat after restart",
				"event_id", e.ID, "error", err)
		}

		ev.logger.Info("new alert",
			"event_id", e.ID,
			"magnitude", e.MagnitudeOrZero(),
			"place", e.Place,
			"source", e.Source,
		)
		ev.metrics.AlertsRaised.Inc()
		alerts = append(alerts, e)
	}

	ev.metrics.LedgerSize.Set(float64(ev.ledger.Size()))
	return len(alerts) > 0, alerts
}
