// Command recount recomputes daily active time from stored readings
// and compares it with the accumulator's records. It reports drift
// without modifying anything unless -fix is set.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	activityrepo "engine-monitor/internal/activity/infrastructure/postgres"
	telemetry "engine-monitor/internal/telemetry/domain"
	telemetrypostgres "engine-monitor/internal/telemetry/infrastructure/postgres"
	"engine-monitor/internal/wib"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	days := flag.Int("days", 7, "days to recount, ending today")
	increment := flag.Int("increment", 10, "minutes credited per poll window")
	fix := flag.Bool("fix", false, "rewrite drifted records")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	logger := log.New(os.Stdout, "recount ", log.LstdFlags)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	readings := telemetrypostgres.NewReadingRepository(db)
	records := activityrepo.NewActivityRepository(db)

	today := wib.DayStart(time.Now().UTC())
	drifted := 0
	for d := *days - 1; d >= 0; d-- {
		dayStart := today.Add(-time.Duration(d) * 24 * time.Hour)
		_, dayEnd := wib.DayBounds(dayStart)

		dayReadings, err := readings.Range(ctx, dayStart, dayEnd)
		if err != nil {
			logger.Fatalf("range query error: %v", err)
		}
		expected := expectedActiveTime(dayStart, dayReadings, *increment)

		record, err := records.FindByDay(ctx, dayStart)
		if err != nil {
			logger.Fatalf("record lookup error: %v", err)
		}
		stored := 0
		if record != nil {
			stored = record.ActiveTime
		}

		day := wib.ToWIB(dayStart).Format("2006-01-02")
		if stored == expected {
			logger.Printf("%s ok: %d min", day, stored)
			continue
		}
		drifted++
		logger.Printf("%s drift: stored=%d expected=%d", day, stored, expected)
		if *fix {
			if err := rewrite(ctx, db, dayStart, expected, dayReadings); err != nil {
				logger.Fatalf("rewrite error: %v", err)
			}
			logger.Printf("%s rewritten to %d min", day, expected)
		}
	}
	logger.Printf("recount complete: %d drifted day(s)", drifted)
}

// expectedActiveTime rebuilds the counter the way the accumulator
// would have: one increment per poll window that saw fresh data. A
// window is an increment-minute slot of the WIB day; any reading in a
// slot credits it once.
func expectedActiveTime(dayStart time.Time, readings []telemetry.Reading, increment int) int {
	if increment <= 0 || len(readings) == 0 {
		return 0
	}
	window := time.Duration(increment) * time.Minute
	seen := map[int64]struct{}{}
	for _, reading := range readings {
		slot := int64(reading.Timestamp.Sub(dayStart) / window)
		seen[slot] = struct{}{}
	}
	total := len(seen) * increment
	if total > 24*60 {
		total = 24 * 60
	}
	return total
}

func rewrite(ctx context.Context, db *sql.DB, dayStart time.Time, activeTime int, readings []telemetry.Reading) error {
	last := dayStart
	for _, reading := range readings {
		if reading.Timestamp.After(last) {
			last = reading.Timestamp
		}
	}
	_, err := db.ExecContext(ctx, `
INSERT INTO daily_engine_activity (day_start, active_time_minutes, last_processed_ts, is_active, updated_at)
VALUES ($1, $2, $3, FALSE, NOW())
ON CONFLICT (day_start) DO UPDATE SET
	active_time_minutes = $2,
	last_processed_ts = $3,
	updated_at = NOW()`,
		dayStart.UTC(), activeTime, last.UTC())
	return err
}
