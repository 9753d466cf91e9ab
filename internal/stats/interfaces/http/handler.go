package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	statsapp "engine-monitor/internal/stats/application"
)

// Handler serves period summaries.
type Handler struct {
	service *statsapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *statsapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("stats handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/v1/stats.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	period := statsapp.Period(strings.ToLower(r.URL.Query().Get("period")))
	if period == "" {
		period = statsapp.PeriodWeek
	}

	summary, err := h.service.Summarize(r.Context(), period)
	if err != nil {
		if errors.Is(err, statsapp.ErrInvalidPeriod) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}
