package activitylog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded user or system action, shown on the dashboard
// activity feed.
type Entry struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	IP        string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// Actions recorded by the backend itself.
const (
	ActionThresholdUpdated = "threshold_updated"
)

// Validate checks required fields.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Actor) == "" {
		return errors.New("activity log: empty actor")
	}
	if strings.TrimSpace(e.Action) == "" {
		return errors.New("activity log: empty action")
	}
	return nil
}

// NewID generates a random entry id.
func NewID() string {
	return uuid.NewString()
}

// Repository persists and lists activity entries.
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	List(ctx context.Context, page, limit int, search string) ([]Entry, int64, error)
}
