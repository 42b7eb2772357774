package source

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/phquake/quakewatch/internal/domain"
	"github.com/phquake/quakewatch/internal/observability"
)

// bulletinAnchor is the header-cell text that identifies the earthquake
// table on the PHIVOLCS page. Anchoring on header text survives the layout
// shuffles (class renames, wrapper tables) the page goes through; only the
// wording of this one cell matters.
const bulletinAnchor = "Date - Time"

// bulletinTimeLayout parses cells like "20 October 2025 - 05:27 PM".
const bulletinTimeLayout = "2 January 2006 - 03:04 PM"

// phTime is Philippine Standard Time. Fixed offset: the Philippines
// observes no daylight saving.
var phTime = time.FixedZone("PST", 8*60*60)

// TableLocator finds the earthquake data table in a parsed document,
// returning nil when no table can be identified. Swappable so an upstream
// redesign only requires replacing this one function.
type TableLocator func(doc *goquery.Document) *goquery.Selection

// PHIVOLCSClient scrapes the PHIVOLCS earthquake bulletin page and
// normalizes every in-region row into a QuakeEvent tagged
// domain.SecondaryScrape.
type PHIVOLCSClient struct {
	url         string
	httpClient  *http.Client
	bounds      domain.Bounds
	logger      *slog.Logger
	metrics     *observability.Metrics
	locateTable TableLocator
}

// NewPHIVOLCSClient creates the secondary feed adapter. The PHIVOLCS host
// serves an incomplete certificate chain, so this client alone skips TLS
// verification.
func NewPHIVOLCSClient(url string, timeout time.Duration, bounds domain.Bounds, logger *slog.Logger, metrics *observability.Metrics) *PHIVOLCSClient {
	return &PHIVOLCSClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // broken upstream chain
			},
		},
		bounds:      bounds,
		logger:      logger,
		metrics:     metrics,
		locateTable: LocateBulletinTable,
	}
}

// SetTableLocator replaces the table-finding strategy. Used by tests and
// as the seam for upstream layout changes.
func (c *PHIVOLCSClient) SetTableLocator(locate TableLocator) {
	c.locateTable = locate
}

func (c *PHIVOLCSClient) Name() string { return "phivolcs" }

// Fetch retrieves and scrapes the bulletin. It never returns an error: a
// missing table, transport failure, or fully malformed page degrades to an
// empty slice with a warning.
func (c *PHIVOLCSClient) Fetch(ctx context.Context) ([]domain.QuakeEvent, error) {
	start := time.Now()
	events, err := c.fetch(ctx)
	c.metrics.FetchDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		c.logger.Warn("phivolcs fetch failed", "url", c.url, "error", err)
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

func (c *PHIVOLCSClient) fetch(ctx context.Context) ([]domain.QuakeEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("phivolcs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("phivolcs page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	table := c.locateTable(doc)
	if table == nil {
		return nil, fmt.Errorf("bulletin table not found: no header cell matching %q", bulletinAnchor)
	}

	fetchedAt := domain.Clock().Now().UTC()
	var events []domain.QuakeEvent
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		event, ok := c.parseRow(row, fetchedAt)
		if !ok {
			return
		}
		events = append(events, event)
	})
	return events, nil
}

// parseRow normalizes one table row, reporting false when the row must be
// skipped. Header rows, footers, and spacer rows have fewer than six data
// cells and are skipped silently; data rows are dropped only when the
// date-time or coordinates cannot be parsed or the event is out of region.
func (c *PHIVOLCSClient) parseRow(row *goquery.Selection, fetchedAt time.Time) (domain.QuakeEvent, bool) {
	cells := row.Find("td")
	if cells.Length() < 6 {
		return domain.QuakeEvent{}, false
	}

	rawTime := cleanCell(cells.Eq(0).Text())
	localTime, err := time.ParseInLocation(bulletinTimeLayout, rawTime, phTime)
	if err != nil {
		c.metrics.RowsSkipped.WithLabelValues(c.Name(), "bad_time").Inc()
		c.logger.Debug("phivolcs row skipped: unparseable date-time", "cell", rawTime)
		return domain.QuakeEvent{}, false
	}
	timeMillis := localTime.UTC().UnixMilli()

	lat := domain.ParseCoordinate(cells.Eq(1).Text())
	lon := domain.ParseCoordinate(cells.Eq(2).Text())
	if lat == nil || lon == nil {
		c.metrics.RowsSkipped.WithLabelValues(c.Name(), "bad_coords").Inc()
		return domain.QuakeEvent{}, false
	}
	if !c.bounds.InRegion(lat, lon) {
		c.metrics.RowsSkipped.WithLabelValues(c.Name(), "out_of_region").Inc()
		return domain.QuakeEvent{}, false
	}

	return domain.QuakeEvent{
		ID:         domain.SynthesizeID(domain.SecondaryScrape, rawTime, *lat, *lon),
		Magnitude:  domain.ParseCoordinate(cells.Eq(4).Text()),
		Place:      cleanCell(cells.Eq(5).Text()),
		TimeMillis: &timeMillis,
		Lat:        lat,
		Lon:        lon,
		DepthKm:    domain.ParseCoordinate(cells.Eq(3).Text()),
		Source:     domain.SecondaryScrape,
		FetchedAt:  fetchedAt,
	}, true
}

// LocateBulletinTable is the default TableLocator: find the header cell
// containing the anchor text, then walk up to its enclosing table.
func LocateBulletinTable(doc *goquery.Document) *goquery.Selection {
	anchor := doc.Find("th").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(cleanCell(s.Text()), bulletinAnchor)
	}).First()
	if anchor.Length() == 0 {
		return nil
	}

	table := anchor.Closest("table")
	if table.Length() == 0 {
		return nil
	}
	return table
}

// cleanCell collapses runs of whitespace (including non-breaking spaces)
// into single spaces and trims the result.
func cleanCell(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}
