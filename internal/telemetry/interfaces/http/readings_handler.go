package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	telemetry "engine-monitor/internal/telemetry/domain"
	thresholds "engine-monitor/internal/thresholds/domain"
	"engine-monitor/internal/wib"
)

const (
	statusNormal   = "Normal"
	statusWarning  = "Warning"
	statusCritical = "Critical"

	warningFraction = 0.9
	defaultLimit    = 20
	maxLimit        = 500
)

// LatestReader reads the most recent reading, cache first.
type LatestReader interface {
	Get(ctx context.Context) (*telemetry.Reading, error)
}

// ReadingsHandler serves stored readings and bucketed insights.
type ReadingsHandler struct {
	repo       telemetry.ReadingRepository
	query      telemetry.ReadingQuery
	thresholds thresholds.Repository
	cache      LatestReader
	logger     *log.Logger
}

// NewReadingsHandler constructs a handler. The cache is optional.
func NewReadingsHandler(repo telemetry.ReadingRepository, query telemetry.ReadingQuery, thresholdRepo thresholds.Repository, cache LatestReader, logger *log.Logger) (*ReadingsHandler, error) {
	if repo == nil {
		return nil, errors.New("readings handler: nil repository")
	}
	if query == nil {
		return nil, errors.New("readings handler: nil query")
	}
	if thresholdRepo == nil {
		return nil, errors.New("readings handler: nil threshold repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReadingsHandler{repo: repo, query: query, thresholds: thresholdRepo, cache: cache, logger: logger}, nil
}

// ServeHTTP handles /api/v1/readings and /api/v1/insights.
func (h *ReadingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v1/readings":
		if r.URL.Query().Get("latest") == "true" {
			h.handleLatest(w, r)
			return
		}
		h.handleRange(w, r)
	case "/api/v1/insights":
		h.handleInsight(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type channelView struct {
	Channel string   `json:"channel"`
	Value   float64  `json:"value"`
	Unit    string   `json:"unit,omitempty"`
	Status  string   `json:"status"`
	Upper   *float64 `json:"upperThreshold,omitempty"`
	Lower   *float64 `json:"lowerThreshold,omitempty"`
}

// handleLatest returns the newest reading with each channel classified
// against the configured thresholds.
func (h *ReadingsHandler) handleLatest(w http.ResponseWriter, r *http.Request) {
	reading, err := h.latestReading(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if reading == nil {
		// Matches the dashboard contract: an empty store is 404, not an
		// empty document.
		http.Error(w, telemetry.ErrNoReadings.Error(), http.StatusNotFound)
		return
	}

	set, err := h.thresholds.FindAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]channelView, 0, len(telemetry.Channels))
	for _, channel := range telemetry.Channels {
		value, ok := reading.Value(channel)
		if !ok {
			continue
		}
		view := channelView{Channel: channel, Value: value, Status: statusNormal}
		if threshold, configured := set[channel]; configured {
			view.Unit = threshold.Unit
			upper, lower := threshold.Upper, threshold.Lower
			view.Upper, view.Lower = &upper, &lower
			view.Status = classify(value, threshold)
		}
		views = append(views, view)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"reading": reading, "channels": views})
}

func (h *ReadingsHandler) latestReading(ctx context.Context) (*telemetry.Reading, error) {
	if h.cache != nil {
		reading, err := h.cache.Get(ctx)
		if err != nil {
			h.logger.Printf("readings: cache get error: %v", err)
		} else if reading != nil {
			return reading, nil
		}
	}
	return h.repo.Latest(ctx)
}

// classify grades a channel value against its thresholds. Breaches are
// Critical; values inside the band but past 90% of the upper bound are
// Warning.
func classify(value float64, threshold thresholds.Threshold) string {
	if value > threshold.Upper || value < threshold.Lower {
		return statusCritical
	}
	if threshold.Upper > 0 && value > warningFraction*threshold.Upper {
		return statusWarning
	}
	return statusNormal
}

// handleRange returns readings inside [from, to], paginated in memory
// after a bounded range query.
func (h *ReadingsHandler) handleRange(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	readings, err := h.repo.Range(r.Context(), from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	page := parsePositiveInt(r, "page", 1)
	limit := parsePositiveInt(r, "limit", defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}

	total := len(readings)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"page":     page,
		"limit":    limit,
		"total":    total,
		"readings": readings[start:end],
	})
}

// handleInsight returns bucketed channel averages over a range.
func (h *ReadingsHandler) handleInsight(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		http.Error(w, "channel is required", http.StatusBadRequest)
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bucket := telemetry.BucketGranularity(r.URL.Query().Get("bucket"))
	if bucket == "" {
		bucket = telemetry.BucketDay
	}
	switch bucket {
	case telemetry.BucketHour, telemetry.BucketDay, telemetry.BucketMonth:
	default:
		http.Error(w, "bucket must be hour, day or month", http.StatusBadRequest)
		return
	}

	points, err := h.query.Insight(r.Context(), channel, from, to, bucket)
	if err != nil {
		if errors.Is(err, telemetry.ErrUnknownChannel) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if points == nil {
		points = []telemetry.InsightPoint{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"channel": channel,
		"bucket":  bucket,
		"points":  points,
	})
}

// parseRange reads from/to query parameters as RFC3339 instants or WIB
// calendar dates. The range defaults to the current WIB day.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, to := wib.DayBounds(now)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := parseTimeParam(raw, false)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := parseTimeParam(raw, true)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to must not be before from")
	}
	return from, to, nil
}

func parseTimeParam(raw string, endOfDay bool) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, wib.Location)
	if err != nil {
		return time.Time{}, errors.New("time must be RFC3339 or YYYY-MM-DD")
	}
	start, end := wib.DayBounds(parsed.UTC())
	if endOfDay {
		return end, nil
	}
	return start, nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
