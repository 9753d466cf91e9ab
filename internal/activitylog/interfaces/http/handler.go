package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	activitylog "engine-monitor/internal/activitylog/domain"
	"engine-monitor/internal/auth"
)

// Handler provides the activity feed endpoints.
type Handler struct {
	repo activitylog.Repository
}

// NewHandler constructs a handler.
func NewHandler(repo activitylog.Repository) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("activity log handler: nil repository")
	}
	return &Handler{repo: repo}, nil
}

// ServeHTTP handles /api/v1/activities.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v1/activities" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page := parsePositiveInt(r, "page", 1)
	limit := parsePositiveInt(r, "limit", 20)
	search := r.URL.Query().Get("search")

	entries, total, err := h.repo.List(r.Context(), page, limit, search)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []activitylog.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"page":       page,
		"limit":      limit,
		"total":      total,
		"activities": entries,
	})
}

type createRequest struct {
	Action string `json:"action"`
	Detail string `json:"detail"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	actor := auth.SubjectFromContext(r.Context())
	if actor == "" {
		actor = "system"
	}
	entry := activitylog.Entry{
		ID:     activitylog.NewID(),
		Actor:  actor,
		Action: strings.TrimSpace(req.Action),
		Detail: strings.TrimSpace(req.Detail),
		IP:     ClientIP(r),
	}
	if err := entry.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.repo.Insert(r.Context(), entry); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"id": entry.ID})
}

// ClientIP extracts the client ip from common proxy headers or
// RemoteAddr.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
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
