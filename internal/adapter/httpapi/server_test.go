package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phquake/quakewatch/internal/adapter/httpapi"
	"github.com/phquake/quakewatch/internal/domain"
	"github.com/phquake/quakewatch/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	readyErr error
	result   pipeline.Result
}

func (m *mockProvider) CheckReadiness(_ context.Context) error { return m.readyErr }
func (m *mockProvider) Latest() pipeline.Result                { return m.result }

func newTestServer(p *mockProvider) *httpapi.Server {
	return httpapi.NewServer(":0", p, slog.Default())
}

func get(t *testing.T, srv *httpapi.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(&mockProvider{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		rec := get(t, newTestServer(&mockProvider{}), "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		p := &mockProvider{readyErr: fmt.Errorf("no refresh cycle has completed yet")}
		rec := get(t, newTestServer(p), "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "not ready", body["status"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(&mockProvider{}), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIEvents(t *testing.T) {
	t.Run("serves the latest feed", func(t *testing.T) {
		mag := 6.2
		ts := int64(1761900000000)
		p := &mockProvider{result: pipeline.Result{
			Events: []domain.QuakeEvent{
				{ID: "us7000abcd", Magnitude: &mag, TimeMillis: &ts, Source: domain.PrimaryFeed},
			},
			CompletedAt: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
		}}

		rec := get(t, newTestServer(p), "/api/events")
		assert.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Events    []domain.QuakeEvent `json:"events"`
			Count     int                 `json:"count"`
			UpdatedAt time.Time           `json:"updated_at"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Events, 1)
		assert.Equal(t, "us7000abcd", body.Events[0].ID)
		assert.Equal(t, 1, body.Count)
		assert.False(t, body.UpdatedAt.IsZero())
	})

	t.Run("empty feed serializes as array", func(t *testing.T) {
		rec := get(t, newTestServer(&mockProvider{}), "/api/events")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"events":[]`)
	})
}

func TestAPIStatus(t *testing.T) {
	p := &mockProvider{result: pipeline.Result{
		Events:      []domain.QuakeEvent{{ID: "a"}, {ID: "b"}},
		AlertRaised: true,
		NewAlerts:   []domain.QuakeEvent{{ID: "a"}},
	}}

	rec := get(t, newTestServer(p), "/api/status")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		AlertRaised bool `json:"alert_raised"`
		NewAlerts   int  `json:"new_alerts"`
		Events      int  `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.AlertRaised)
	assert.Equal(t, 1, body.NewAlerts)
	assert.Equal(t, 2, body.Events)
}
