package notify

import (
	"context"

	alertapp "engine-monitor/internal/alerts/application"
	alerts "engine-monitor/internal/alerts/domain"
)

// MultiNotifier fans a batch out to multiple notifiers.
type MultiNotifier struct {
	notifiers []alertapp.Notifier
}

// NewMultiNotifier constructs a MultiNotifier.
func NewMultiNotifier(notifiers ...alertapp.Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Notify forwards the batch to all notifiers.
func (m *MultiNotifier) Notify(ctx context.Context, batch []alerts.Alert) {
	if m == nil {
		return
	}
	for _, notifier := range m.notifiers {
		if notifier != nil {
			notifier.Notify(ctx, batch)
		}
	}
}
