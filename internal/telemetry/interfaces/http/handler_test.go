package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	telemetry "engine-monitor/internal/telemetry/domain"
	thresholds "engine-monitor/internal/thresholds/domain"
)

type memReadings struct {
	readings []telemetry.Reading
}

func (m *memReadings) Insert(_ context.Context, readings []telemetry.Reading) error {
	m.readings = append(m.readings, readings...)
	return nil
}

func (m *memReadings) Latest(context.Context) (*telemetry.Reading, error) {
	if len(m.readings) == 0 {
		return nil, nil
	}
	latest := m.readings[len(m.readings)-1]
	return &latest, nil
}

func (m *memReadings) LatestInRange(context.Context, time.Time, time.Time) (*telemetry.Reading, error) {
	return m.Latest(context.Background())
}

func (m *memReadings) Since(_ context.Context, after time.Time) ([]telemetry.Reading, error) {
	var out []telemetry.Reading
	for _, reading := range m.readings {
		if reading.Timestamp.After(after) {
			out = append(out, reading)
		}
	}
	return out, nil
}

func (m *memReadings) Range(_ context.Context, from, to time.Time) ([]telemetry.Reading, error) {
	var out []telemetry.Reading
	for _, reading := range m.readings {
		if !reading.Timestamp.Before(from) && !reading.Timestamp.After(to) {
			out = append(out, reading)
		}
	}
	return out, nil
}

func (m *memReadings) Count(context.Context) (int64, error) {
	return int64(len(m.readings)), nil
}

type stubQuery struct{}

func (stubQuery) Stats(context.Context, time.Time, time.Time) ([]telemetry.ChannelStats, error) {
	return nil, nil
}

func (stubQuery) Insight(context.Context, string, time.Time, time.Time, telemetry.BucketGranularity) ([]telemetry.InsightPoint, error) {
	return nil, nil
}

type stubThresholds struct {
	set map[string]thresholds.Threshold
}

func (s stubThresholds) FindAll(context.Context) (map[string]thresholds.Threshold, error) {
	return s.set, nil
}

func (s stubThresholds) Upsert(context.Context, thresholds.Threshold) error { return nil }

type memCache struct {
	reading *telemetry.Reading
}

func (c *memCache) Set(_ context.Context, reading telemetry.Reading) error {
	c.reading = &reading
	return nil
}

func (c *memCache) Get(context.Context) (*telemetry.Reading, error) {
	return c.reading, nil
}

func testLogger() *log.Logger {
	return log.New(&strings.Builder{}, "", 0)
}

func TestIngestHandlerStoresReadingsAndWarmsCache(t *testing.T) {
	repo := &memReadings{}
	cache := &memCache{}
	handler, err := NewIngestHandler(repo, cache, testLogger())
	require.NoError(t, err)

	body := `{"points":[
		{"ts":1767978600,"values":{"RPM":1800,"IAT":35,"CLT":88,"AFR":14.7,"MAP":95,"TPS":12}},
		{"ts":1767978000,"values":{"RPM":1750}}
	]}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest/readings", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp["inserted"])

	// Points arrive unordered; the repo sees them oldest first and the
	// cache holds the newest one.
	require.Len(t, repo.readings, 2)
	assert.True(t, repo.readings[0].Timestamp.Before(repo.readings[1].Timestamp))
	require.NotNil(t, cache.reading)
	assert.Equal(t, 1800.0, cache.reading.RPM)
}

func TestIngestHandlerRejectsUnknownChannel(t *testing.T) {
	handler, err := NewIngestHandler(&memReadings{}, nil, testLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest/readings",
		strings.NewReader(`{"ts":1767978600,"values":{"BOOST":1.4}}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestHandlerRejectsEmptyPayload(t *testing.T) {
	handler, err := NewIngestHandler(&memReadings{}, nil, testLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest/readings", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadingsHandlerLatestClassifiesChannels(t *testing.T) {
	repo := &memReadings{readings: []telemetry.Reading{{
		Timestamp: time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC),
		RPM:       1950, // inside band but past 90% of 2000
		CLT:       120,  // above upper
		IAT:       30,   // unconfigured
		AFR:       14.7,
		MAP:       95,
		TPS:       12,
	}}}
	set := map[string]thresholds.Threshold{
		telemetry.ChannelRPM: {Sensor: telemetry.ChannelRPM, Upper: 2000, Lower: 800, Unit: "rpm"},
		telemetry.ChannelCLT: {Sensor: telemetry.ChannelCLT, Upper: 110, Lower: 60, Unit: "C"},
	}
	handler, err := NewReadingsHandler(repo, stubQuery{}, stubThresholds{set: set}, nil, testLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/readings?latest=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Channels []channelView `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	byChannel := map[string]channelView{}
	for _, view := range resp.Channels {
		byChannel[view.Channel] = view
	}
	assert.Equal(t, statusWarning, byChannel[telemetry.ChannelRPM].Status)
	assert.Equal(t, statusCritical, byChannel[telemetry.ChannelCLT].Status)
	assert.Equal(t, statusNormal, byChannel[telemetry.ChannelIAT].Status)
	assert.Nil(t, byChannel[telemetry.ChannelIAT].Upper)
	assert.Equal(t, "C", byChannel[telemetry.ChannelCLT].Unit)
}

func TestReadingsHandlerLatestEmptyStoreIs404(t *testing.T) {
	handler, err := NewReadingsHandler(&memReadings{}, stubQuery{}, stubThresholds{}, nil, testLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/readings?latest=true", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), telemetry.ErrNoReadings.Error())
}

func TestReadingsHandlerLatestPrefersCache(t *testing.T) {
	repo := &memReadings{}
	cached := telemetry.Reading{Timestamp: time.Now().UTC(), RPM: 1234}
	handler, err := NewReadingsHandler(repo, stubQuery{}, stubThresholds{}, &memCache{reading: &cached}, testLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/readings?latest=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reading *telemetry.Reading `json:"reading"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Reading)
	assert.Equal(t, 1234.0, resp.Reading.RPM)
}

func TestReadingsHandlerRangePaginates(t *testing.T) {
	repo := &memReadings{}
	base := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		repo.readings = append(repo.readings, telemetry.Reading{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			RPM:       float64(1000 + i),
		})
	}
	handler, err := NewReadingsHandler(repo, stubQuery{}, stubThresholds{}, nil, testLogger())
	require.NoError(t, err)

	from := base.Add(-time.Hour).Format(time.RFC3339)
	to := base.Add(time.Hour).Format(time.RFC3339)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/readings?from="+from+"&to="+to+"&page=2&limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total    int                 `json:"total"`
		Readings []telemetry.Reading `json:"readings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Total)
	require.Len(t, resp.Readings, 2)
	assert.Equal(t, 1002.0, resp.Readings[0].RPM)
}

func TestReadingsHandlerInsightValidatesBucket(t *testing.T) {
	handler, err := NewReadingsHandler(&memReadings{}, stubQuery{}, stubThresholds{}, nil, testLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/insights?channel=RPM&bucket=week", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
