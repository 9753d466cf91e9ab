package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alerts "engine-monitor/internal/alerts/domain"
)

type stubAlerts struct {
	listDayStart time.Time
	listDayEnd   time.Time
	listPage     int
	listLimit    int
	list         []alerts.Alert
	total        int64
}

func (s *stubAlerts) InsertBatch(context.Context, []alerts.Alert) error { return nil }

func (s *stubAlerts) ListByDay(_ context.Context, dayStart, dayEnd time.Time, page, limit int) ([]alerts.Alert, int64, error) {
	s.listDayStart = dayStart
	s.listDayEnd = dayEnd
	s.listPage = page
	s.listLimit = limit
	return s.list, s.total, nil
}

func (s *stubAlerts) ListRecent(context.Context, int) ([]alerts.Alert, error) { return nil, nil }

func (s *stubAlerts) CountBySensor(context.Context, time.Time, time.Time) (map[string]int64, error) {
	return nil, nil
}

type stubRuns struct {
	latest *alerts.ProcessingRun
}

func (s *stubRuns) Latest(context.Context) (*alerts.ProcessingRun, error) { return s.latest, nil }
func (s *stubRuns) Insert(context.Context, alerts.ProcessingRun) error    { return nil }

func TestAlertsHandlerListUsesWIBDayBounds(t *testing.T) {
	repo := &stubAlerts{
		list: []alerts.Alert{{
			ID:          "alert-1",
			Sensor:      "RPM",
			Value:       2100,
			Upper:       2000,
			Lower:       1000,
			Description: alerts.DescriptionAboveUpper,
			Timestamp:   time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC),
		}},
		total: 23,
	}
	handler, err := NewHandler(repo, &stubRuns{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?date=2026-03-10&page=2", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	// WIB 2026-03-10 starts at 17:00 UTC the day before and spans 24h.
	assert.Equal(t, time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC), repo.listDayStart)
	assert.Equal(t, time.Date(2026, 3, 10, 16, 59, 59, int(999*time.Millisecond), time.UTC), repo.listDayEnd)
	assert.Equal(t, 2, repo.listPage)
	assert.Equal(t, defaultPageLimit, repo.listLimit)

	var body listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2026-03-10", body.Date)
	assert.Equal(t, int64(23), body.Total)
	assert.Equal(t, int64(3), body.TotalPages)
	require.Len(t, body.Alerts, 1)
	assert.Equal(t, alerts.DescriptionAboveUpper, body.Alerts[0].Description)
}

func TestAlertsHandlerListRejectsBadDate(t *testing.T) {
	handler, err := NewHandler(&stubAlerts{}, &stubRuns{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?date=10-03-2026", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlertsHandlerProcessorWithoutRuns(t *testing.T) {
	handler, err := NewHandler(&stubAlerts{}, &stubRuns{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/processor", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"lastRun":null}`, rec.Body.String())
}

func TestAlertsHandlerProcessorReturnsLatestRun(t *testing.T) {
	last := time.Date(2026, 3, 10, 4, 10, 0, 0, time.UTC)
	runs := &stubRuns{latest: &alerts.ProcessingRun{
		ProcessedTS:       last,
		LastReadingTime:   &last,
		ReadingsProcessed: 12,
		AlertsGenerated:   3,
		Success:           true,
		CreatedAt:         last,
	}}
	handler, err := NewHandler(&stubAlerts{}, runs)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/processor", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		LastRun *alerts.ProcessingRun `json:"lastRun"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.LastRun)
	assert.Equal(t, 12, body.LastRun.ReadingsProcessed)
	assert.True(t, body.LastRun.Success)
}

func TestAlertsHandlerRejectsWrites(t *testing.T) {
	handler, err := NewHandler(&stubAlerts{}, &stubRuns{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
