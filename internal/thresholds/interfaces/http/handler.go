package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	activitylog "engine-monitor/internal/activitylog/domain"
	activityloghttp "engine-monitor/internal/activitylog/interfaces/http"
	"engine-monitor/internal/auth"
	thresholds "engine-monitor/internal/thresholds/domain"
)

// Handler provides threshold read and update endpoints.
type Handler struct {
	repo   thresholds.Repository
	feed   activitylog.Repository
	logger *log.Logger
}

// NewHandler constructs a handler. The activity feed is optional.
func NewHandler(repo thresholds.Repository, feed activitylog.Repository, logger *log.Logger) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("thresholds handler: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{repo: repo, feed: feed, logger: logger}, nil
}

// ServeHTTP handles /api/v1/thresholds.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v1/thresholds" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPut:
		h.handlePut(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	set, err := h.repo.FindAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"thresholds": set})
}

// handlePut upserts one or more sensor thresholds. The next alert cycle
// picks the new values up without a restart.
func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	var updates []thresholds.Threshold
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if len(updates) == 0 {
		http.Error(w, "no thresholds provided", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	for i := range updates {
		updates[i].UpdatedAt = now
		if err := updates[i].Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	for _, update := range updates {
		if err := h.repo.Upsert(r.Context(), update); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	h.recordUpdates(r, updates)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"updated": len(updates)})
}

func (h *Handler) recordUpdates(r *http.Request, updates []thresholds.Threshold) {
	if h.feed == nil {
		return
	}
	actor := auth.SubjectFromContext(r.Context())
	if actor == "" {
		actor = "system"
	}
	for _, update := range updates {
		entry := activitylog.Entry{
			ID:     activitylog.NewID(),
			Actor:  actor,
			Action: activitylog.ActionThresholdUpdated,
			Detail: fmt.Sprintf("%s upper=%.2f lower=%.2f", update.Sensor, update.Upper, update.Lower),
			IP:     activityloghttp.ClientIP(r),
		}
		if err := h.feed.Insert(r.Context(), entry); err != nil {
			h.logger.Printf("thresholds: activity log write failed: %v", err)
		}
	}
}
