package export

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	activity "engine-monitor/internal/activity/domain"
	"engine-monitor/internal/observability/metrics"
	telemetry "engine-monitor/internal/telemetry/domain"
	"engine-monitor/internal/wib"
)

// maxRangeDays caps export ranges so one request cannot stream months
// of readings.
const maxRangeDays = 31

// Handler serves file exports.
type Handler struct {
	readings telemetry.ReadingRepository
	records  activity.Repository
	logger   *log.Logger
}

// NewHandler constructs a handler.
func NewHandler(readings telemetry.ReadingRepository, records activity.Repository, logger *log.Logger) (*Handler, error) {
	if readings == nil {
		return nil, errors.New("export handler: nil reading repository")
	}
	if records == nil {
		return nil, errors.New("export handler: nil activity repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{readings: readings, records: records, logger: logger}, nil
}

// ServeHTTP handles /api/v1/exports/ routes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v1/exports/readings.csv":
		h.handleReadingsCSV(w, r)
	case "/api/v1/exports/readings.xlsx":
		h.handleReadingsXLSX(w, r)
	case "/api/v1/exports/activity.pdf":
		h.handleActivityPDF(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleReadingsCSV(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseExportRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	readings, err := h.readings.Range(r.Context(), from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	start := time.Now()
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", attachment("readings", from, to, "csv"))
	if err := WriteReadingsCSV(w, readings); err != nil {
		// Headers are already sent; all we can do is log.
		h.logger.Printf("export: csv stream error: %v", err)
	}
	metrics.ObserveExport("csv", time.Since(start))
}

func (h *Handler) handleReadingsXLSX(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseExportRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	readings, err := h.readings.Range(r.Context(), from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	start := time.Now()
	payload, err := BuildReadingsXLSX(readings, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", attachment("readings", from, to, "xlsx"))
	_, _ = w.Write(payload)
	metrics.ObserveExport("xlsx", time.Since(start))
}

func (h *Handler) handleActivityPDF(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseExportRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.records.History(r.Context(), wib.DayStart(from), wib.DayStart(to))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	start := time.Now()
	payload, err := BuildActivityPDF(records, from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", attachment("activity", from, to, "pdf"))
	_, _ = w.Write(payload)
	metrics.ObserveExport("pdf", time.Since(start))
}

// parseExportRange reads from/to WIB dates, defaulting to the last 7
// days, and enforces the range cap.
func parseExportRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, to := wib.DayBounds(now)
	from = from.Add(-6 * 24 * time.Hour)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, wib.Location)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be formatted as YYYY-MM-DD")
		}
		from, _ = wib.DayBounds(parsed.UTC())
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, wib.Location)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be formatted as YYYY-MM-DD")
		}
		_, to = wib.DayBounds(parsed.UTC())
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to must not be before from")
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("range exceeds %d days", maxRangeDays)
	}
	return from, to, nil
}

func attachment(name string, from, to time.Time, ext string) string {
	return fmt.Sprintf(`attachment; filename="%s_%s_%s.%s"`,
		name,
		wib.ToWIB(from).Format("20060102"),
		wib.ToWIB(to).Format("20060102"),
		ext)
}
