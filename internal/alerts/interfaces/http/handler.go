package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	alerts "engine-monitor/internal/alerts/domain"
	"engine-monitor/internal/wib"
)

const defaultPageLimit = 10

// Handler provides alert HTTP endpoints.
type Handler struct {
	alerts alerts.Repository
	runs   alerts.RunRepository
}

// NewHandler constructs a handler.
func NewHandler(alertRepo alerts.Repository, runRepo alerts.RunRepository) (*Handler, error) {
	if alertRepo == nil {
		return nil, errors.New("alerts handler: nil alert repository")
	}
	if runRepo == nil {
		return nil, errors.New("alerts handler: nil run repository")
	}
	return &Handler{alerts: alertRepo, runs: runRepo}, nil
}

// ServeHTTP handles /api/v1/alerts and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v1/alerts":
		h.handleList(w, r)
	case "/api/v1/alerts/processor":
		h.handleProcessor(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type listResponse struct {
	Date       string         `json:"date"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	Total      int64          `json:"total"`
	TotalPages int64          `json:"totalPages"`
	Alerts     []alerts.Alert `json:"alerts"`
}

// handleList returns alerts for one WIB day, paginated. The date query
// parameter is a WIB calendar date; it defaults to today in WIB.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	dayStart := wib.DayStart(now)

	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, wib.Location)
		if err != nil {
			http.Error(w, "date must be formatted as YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		dayStart = parsed.UTC()
	}
	dayStart, dayEnd := wib.DayBounds(dayStart)

	page := parsePositiveInt(r, "page", 1)
	limit := parsePositiveInt(r, "limit", defaultPageLimit)

	list, total, err := h.alerts.ListByDay(r.Context(), dayStart, dayEnd, page, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []alerts.Alert{}
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(listResponse{
		Date:       wib.ToWIB(dayStart).Format("2006-01-02"),
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		Alerts:     list,
	})
}

// handleProcessor returns the latest processing run entry.
func (h *Handler) handleProcessor(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Latest(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if run == nil {
		_ = json.NewEncoder(w).Encode(map[string]any{"lastRun": nil})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"lastRun": run})
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
