package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"engine-monitor/internal/observability/metrics"
	telemetry "engine-monitor/internal/telemetry/domain"
)

// ReadingCache stores the most recent reading for fast status reads.
type ReadingCache interface {
	Set(ctx context.Context, reading telemetry.Reading) error
}

// IngestHandler handles sensor reading ingestion from the data logger.
type IngestHandler struct {
	repo   telemetry.ReadingRepository
	cache  ReadingCache
	logger *log.Logger
}

// NewIngestHandler constructs an ingest handler. The cache is optional.
func NewIngestHandler(repo telemetry.ReadingRepository, cache ReadingCache, logger *log.Logger) (*IngestHandler, error) {
	if repo == nil {
		return nil, errors.New("telemetry ingest: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{repo: repo, cache: cache, logger: logger}, nil
}

// ServeHTTP ingests sensor readings.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("telemetry ingest: read body error: %v", err)
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("telemetry ingest: decode error: %v", err)
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	readings, err := req.toReadings()
	if err != nil {
		h.logger.Printf("telemetry ingest: invalid payload: %v", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	start := time.Now()
	if err := h.repo.Insert(r.Context(), readings); err != nil {
		h.logger.Printf("telemetry ingest: insert error: %v", err)
		metrics.ObserveIngest(len(readings), time.Since(start), false)
		http.Error(w, "insert error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveIngest(len(readings), time.Since(start), true)

	if h.cache != nil {
		newest := readings[len(readings)-1]
		if err := h.cache.Set(r.Context(), newest); err != nil {
			// Cache misses are served from Postgres, so a write
			// failure is not an ingest failure.
			h.logger.Printf("telemetry ingest: cache set error: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"inserted": len(readings)})
}

type ingestRequest struct {
	TS     int64              `json:"ts"`
	Values map[string]float64 `json:"values"`
	Points []ingestPoint      `json:"points"`
}

type ingestPoint struct {
	TS     int64              `json:"ts"`
	Values map[string]float64 `json:"values"`
}

func (r ingestRequest) toReadings() ([]telemetry.Reading, error) {
	points := r.Points
	if len(points) == 0 && r.TS != 0 {
		points = []ingestPoint{{TS: r.TS, Values: r.Values}}
	}
	if len(points) == 0 {
		return nil, errors.New("no reading points")
	}

	readings := make([]telemetry.Reading, 0, len(points))
	for _, point := range points {
		ts, err := parseTimestamp(point.TS)
		if err != nil {
			return nil, err
		}
		if len(point.Values) == 0 {
			return nil, errors.New("empty values")
		}
		reading := telemetry.Reading{Timestamp: ts}
		for key, value := range point.Values {
			if err := reading.SetValue(key, value); err != nil {
				return nil, err
			}
		}
		readings = append(readings, reading)
	}
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})
	return readings, nil
}

func parseTimestamp(value int64) (time.Time, error) {
	if value <= 0 {
		return time.Time{}, errors.New("invalid ts")
	}
	// Accept milliseconds or seconds.
	if value > 1_000_000_000_000 {
		return time.UnixMilli(value).UTC(), nil
	}
	return time.Unix(value, 0).UTC(), nil
}
