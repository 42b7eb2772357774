package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phquake/quakewatch/internal/domain"
	"github.com/phquake/quakewatch/internal/observability"
)

// USGSClient fetches the USGS GeoJSON summary feed and normalizes every
// in-region feature into a QuakeEvent tagged domain.PrimaryFeed.
type USGSClient struct {
	url        string
	httpClient *http.Client
	bounds     domain.Bounds
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewUSGSClient creates the primary feed adapter.
func NewUSGSClient(url string, timeout time.Duration, bounds domain.Bounds, logger *slog.Logger, metrics *observability.Metrics) *USGSClient {
	return &USGSClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		bounds:  bounds,
		logger:  logger,
		metrics: metrics,
	}
}

func (c *USGSClient) Name() string { return "usgs" }

// Fetch retrieves and normalizes the feed. It never returns an error:
// any failure yields an empty slice after a warning, so the secondary
// feed and the rest of the cycle proceed regardless.
func (c *USGSClient) Fetch(ctx context.Context) ([]domain.QuakeEvent, error) {
	start := time.Now()
	events, err := c.fetch(ctx)
	c.metrics.FetchDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		c.logger.Warn("usgs fetch failed", "url", c.url, "error", err)
		c.metrics.FetchRequests.WithLabelValues(c.Name(), "error").Inc()
		return nil, nil
	}

	outcome := "success"
	if len(events) == 0 {
		outcome = "empty"
	}
	c.metrics.FetchRequests.WithLabelValues(c.Name(), outcome).Inc()
	c.metrics.EventsFetched.WithLabelValues(c.Name()).Add(float64(len(events)))
	return events, nil
}

func (c *USGSClient) fetch(ctx context.Context) ([]domain.QuakeEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("usgs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("usgs feed: status %d", resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	fetchedAt := domain.Clock().Now().UTC()
	events := make([]domain.QuakeEvent, 0, len(fc.Features))
	for _, f := range fc.Features {
		event, ok := c.normalize(f, fetchedAt)
		if !ok {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// normalize converts a single feature, reporting false when it must be
// dropped. Features need at least [lon, lat] coordinates and must fall
// inside the region of interest.
func (c *USGSClient) normalize(f feature, fetchedAt time.Time) (domain.QuakeEvent, bool) {
	if len(f.Geometry.Coordinates) < 2 {
		c.metrics.RowsSkipped.WithLabelValues(c.Name(), "bad_coords").Inc()
		return domain.QuakeEvent{}, false
	}

	lon := f.Geometry.Coordinates[0]
	lat := f.Geometry.Coordinates[1]
	if !c.bounds.InRegion(&lat, &lon) {
		c.metrics.RowsSkipped.WithLabelValues(c.Name(), "out_of_region").Inc()
		return domain.QuakeEvent{}, false
	}

	event := domain.QuakeEvent{
		ID:         f.ID,
		Magnitude:  f.Properties.Mag,
		Place:      f.Properties.Place,
		TimeMillis: f.Properties.Time,
		Lat:        &lat,
		Lon:        &lon,
		Source:     domain.PrimaryFeed,
		FetchedAt:  fetchedAt,
	}
	if len(f.Geometry.Coordinates) >= 3 {
		depth := f.Geometry.Coordinates[2]
		event.DepthKm = &depth
	}
	if event.ID == "" {
		var rawTime string
		if f.Properties.Time != nil {
			rawTime = fmt.Sprintf("%d", *f.Properties.Time)
		}
		event.ID = domain.SynthesizeID(domain.PrimaryFeed, rawTime, lat, lon)
	}
	return event, true
}

// USGS GeoJSON feed types.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string `json:"id"`
	Properties struct {
		Mag   *float64 `json:"mag"`
		Place string   `json:"place"`
		Time  *int64   `json:"time"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat, depth?]
	} `json:"geometry"`
}
