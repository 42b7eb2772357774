// Package source contains the upstream feed adapters. Both adapters share a
// best-effort contract: transport failures, timeouts, and malformed payloads
// degrade to an empty result with a warning, never an error that could stall
// the refresh cycle. Malformed rows and features are skipped individually so
// one bad record never discards the rest of a document.
package source

import (
	"context"

	"github.com/phquake/quakewatch/internal/domain"
)

// userAgent is sent on every upstream request so feed operators can
// identify this monitor.
const userAgent = "quakewatch/1.0"

// Source is one upstream feed of earthquake events.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.QuakeEvent, error)
}
