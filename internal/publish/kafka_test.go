package publish

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/phquake/quakewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestSerializeToMessage(t *testing.T) {
	frozen := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { domain.SetClock(nil) })

	event := domain.QuakeEvent{
		ID:         "us7000abcd",
		Magnitude:  f64(6.2),
		Place:      "10 km SE of Lubang (Occidental Mindoro)",
		TimeMillis: i64(1761900000000),
		Lat:        f64(14.5995),
		Lon:        f64(120.9842),
		DepthKm:    f64(31.4),
		Source:     domain.PrimaryFeed,
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("us7000abcd"), msg.Key)

	var decoded domain.QuakeEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, *event.Magnitude, *decoded.Magnitude)
	assert.Equal(t, event.Source, decoded.Source)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "source", msg.Headers[0].Key)
	assert.Equal(t, []byte("USGS"), msg.Headers[0].Value)
	assert.Equal(t, "alerted_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-01-10T12:00:00Z"), msg.Headers[1].Value)
}

func TestSerializeToMessage_AbsentFieldsOmitted(t *testing.T) {
	msg, err := serializeToMessage(domain.QuakeEvent{ID: "x", Source: domain.SecondaryScrape})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &raw))
	assert.NotContains(t, raw, "mag")
	assert.NotContains(t, raw, "lat")
	assert.NotContains(t, raw, "depth")
}
