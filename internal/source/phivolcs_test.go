package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/phquake/quakewatch/internal/domain"
	"github.com/phquake/quakewatch/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bulletinFixture mimics the PHIVOLCS page: decorative wrapper tables, an
// anchor header cell, data rows with the date-time wrapped in a link, a
// footer row with too few cells, and assorted malformed rows.
const bulletinFixture = `<html><body>
<table><tr><td>site navigation chrome</td></tr></table>
<strong>OCTOBER 2025</strong>
<table class="MsoNormalTable">
  <tr>
    <th>Date - Time (Philippine Time)</th>
    <th>Latitude</th><th>Longitude</th><th>Depth (km)</th><th>Mag</th><th>Location</th>
  </tr>
  <tr>
    <td><a href="/2025_1020_0927.html">20 October 2025 - 05:27 PM</a></td>
    <td>14.60</td><td>120.98</td><td>031</td><td>5.6</td><td>009 km S 42&deg; W of Manila</td>
  </tr>
  <tr>
    <td><a href="#">20 October 2025 - 04:11 AM</a></td>
    <td>8.21</td><td>126.44</td><td></td><td></td><td>Offshore Surigao del Sur</td>
  </tr>
  <tr>
    <td><a href="#">19 October 2025 - 11:55 PM</a></td>
    <td>35.68</td><td>139.65</td><td>10</td><td>4.8</td><td>Out of region</td>
  </tr>
  <tr>
    <td><a href="#">not a date at all</a></td>
    <td>10.0</td><td>122.0</td><td>5</td><td>3.1</td><td>Bad date row</td>
  </tr>
  <tr>
    <td><a href="#">18 October 2025 - 01:02 AM</a></td>
    <td>unknown</td><td>122.0</td><td>5</td><td>3.1</td><td>Bad latitude row</td>
  </tr>
  <tr><td colspan="6">footer notice</td></tr>
</table>
</body></html>`

func testPHIVOLCSClient(url string) *PHIVOLCSClient {
	return NewPHIVOLCSClient(url, 5*time.Second, testBounds, testLogger(), observability.NewMetricsForTesting())
}

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPHIVOLCSClient_Fetch(t *testing.T) {
	srv := serveHTML(t, bulletinFixture)

	events, err := testPHIVOLCSClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, domain.SecondaryScrape, first.Source)
	assert.True(t, strings.HasPrefix(first.ID, "phivolcs-"))
	assert.Equal(t, 14.60, *first.Lat)
	assert.Equal(t, 120.98, *first.Lon)
	assert.Equal(t, 31.0, *first.DepthKm)
	assert.Equal(t, 5.6, *first.Magnitude)
	assert.Equal(t, "009 km S 42° W of Manila", first.Place)

	// 05:27 PM Philippine time is 09:27 UTC the same day.
	wantMillis := time.Date(2025, 10, 20, 9, 27, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, wantMillis, *first.TimeMillis)

	// Empty depth/magnitude cells stay absent rather than becoming 0.
	second := events[1]
	assert.Nil(t, second.DepthKm)
	assert.Nil(t, second.Magnitude)
	assert.Equal(t, "Offshore Surigao del Sur", second.Place)
}

func TestPHIVOLCSClient_Fetch_RowSkipping(t *testing.T) {
	srv := serveHTML(t, bulletinFixture)

	events, err := testPHIVOLCSClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)

	// Out-of-region, bad-date, and bad-latitude rows are each dropped
	// individually without aborting the rest of the table.
	for _, e := range events {
		assert.NotEqual(t, "Out of region", e.Place)
		assert.NotEqual(t, "Bad date row", e.Place)
		assert.NotEqual(t, "Bad latitude row", e.Place)
	}
}

func TestPHIVOLCSClient_Fetch_NoAnchor(t *testing.T) {
	srv := serveHTML(t, `<html><body><table><tr><th>Completely Different Layout</th></tr></table></body></html>`)

	events, err := testPHIVOLCSClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPHIVOLCSClient_Fetch_NeverRaises(t *testing.T) {
	t.Run("non-success status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		events, err := testPHIVOLCSClient(srv.URL).Fetch(context.Background())
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("connection refused", func(t *testing.T) {
		events, err := testPHIVOLCSClient("http://127.0.0.1:1").Fetch(context.Background())
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("not html at all", func(t *testing.T) {
		srv := serveHTML(t, `{"this": "is json"}`)
		events, err := testPHIVOLCSClient(srv.URL).Fetch(context.Background())
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestPHIVOLCSClient_Fetch_DeterministicIdentity(t *testing.T) {
	srv := serveHTML(t, bulletinFixture)
	c := testPHIVOLCSClient(srv.URL)

	first, err := c.Fetch(context.Background())
	require.NoError(t, err)
	second, err := c.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestPHIVOLCSClient_ColumnShuffleTolerance(t *testing.T) {
	// The anchor cell moved inside a restyled header and the table gained
	// extra wrapper rows; rows still parse as long as the anchor text and
	// column order survive.
	body := `<html><body><div><table border="1">
	  <tr><th><span style="font-family:Arial">Date - Time&nbsp;(Philippine Time)</span></th>
	  <th>Lat</th><th>Lon</th><th>Depth</th><th>Magnitude</th><th>Where</th></tr>
	  <tr><td>3 January 2026 - 08:15 AM</td><td>9.5</td><td>124.1</td><td>12</td><td>4.4</td><td>Bohol</td></tr>
	</table></div></body></html>`
	srv := serveHTML(t, body)

	events, err := testPHIVOLCSClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Bohol", events[0].Place)
}

func TestLocateBulletinTable(t *testing.T) {
	t.Run("finds the anchored table", func(t *testing.T) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(bulletinFixture))
		require.NoError(t, err)

		table := LocateBulletinTable(doc)
		require.NotNil(t, table)
		assert.Greater(t, table.Find("tr").Length(), 1)
	})

	t.Run("nil when anchor missing", func(t *testing.T) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><p>maintenance</p></body></html>"))
		require.NoError(t, err)
		assert.Nil(t, LocateBulletinTable(doc))
	})
}
