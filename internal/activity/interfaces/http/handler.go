package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	activityapp "engine-monitor/internal/activity/application"
	activity "engine-monitor/internal/activity/domain"
	"engine-monitor/internal/wib"
)

// Handler provides engine status and active-time endpoints.
type Handler struct {
	service *activityapp.Service
	records activity.Repository
}

// NewHandler constructs a handler.
func NewHandler(service *activityapp.Service, records activity.Repository) (*Handler, error) {
	if service == nil {
		return nil, errors.New("activity handler: nil service")
	}
	if records == nil {
		return nil, errors.New("activity handler: nil record repository")
	}
	return &Handler{service: service, records: records}, nil
}

// ServeHTTP handles /api/v1/engine and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v1/engine/status":
		h.handleStatus(w, r)
	case "/api/v1/engine/active-time":
		h.handleHistory(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// handleStatus runs an accumulator pass and returns the result. Polling
// this endpoint is what drives active-time accumulation.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.EngineStatus(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

type historyEntry struct {
	Date       string `json:"date"`
	ActiveTime int    `json:"activeTime"`
	IsActive   bool   `json:"isActive"`
}

// handleHistory returns per-day active time over a WIB date range. The
// range defaults to the last 7 days.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	to := wib.DayStart(now)
	from := to.Add(-6 * 24 * time.Hour)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, wib.Location)
		if err != nil {
			http.Error(w, "from must be formatted as YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		from = wib.DayStart(parsed.UTC())
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, wib.Location)
		if err != nil {
			http.Error(w, "to must be formatted as YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		to = wib.DayStart(parsed.UTC())
	}
	if to.Before(from) {
		http.Error(w, "to must not be before from", http.StatusBadRequest)
		return
	}

	records, err := h.records.History(r.Context(), from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	entries := make([]historyEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, historyEntry{
			Date:       wib.ToWIB(record.DayStart).Format("2006-01-02"),
			ActiveTime: record.ActiveTime,
			IsActive:   record.IsActive,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"history": entries})
}
