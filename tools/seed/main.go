// Command seed populates the database with historical readings and
// default thresholds for local development and demos.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	activityrepo "engine-monitor/internal/activity/infrastructure/postgres"
	telemetry "engine-monitor/internal/telemetry/domain"
	telemetrypostgres "engine-monitor/internal/telemetry/infrastructure/postgres"
	thresholds "engine-monitor/internal/thresholds/domain"
	thresholdrepo "engine-monitor/internal/thresholds/infrastructure/postgres"
	"engine-monitor/internal/wib"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	days := flag.Int("days", 7, "days of history to seed")
	perDay := flag.Int("per-day", 120, "readings per day")
	seedThresholds := flag.Bool("thresholds", true, "seed default thresholds")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	logger := log.New(os.Stdout, "seed ", log.LstdFlags)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	if *seedThresholds {
		writeThresholds(ctx, thresholdrepo.NewThresholdRepository(db), logger)
	}
	writeReadings(ctx, telemetrypostgres.NewReadingRepository(db), *days, *perDay, logger)
	writeActivity(ctx, activityrepo.NewActivityRepository(db), *days, logger)
	logger.Printf("done")
}

func writeThresholds(ctx context.Context, repo *thresholdrepo.ThresholdRepository, logger *log.Logger) {
	defaults := []thresholds.Threshold{
		{Sensor: telemetry.ChannelRPM, Upper: 6500, Lower: 600, Unit: "rpm"},
		{Sensor: telemetry.ChannelIAT, Upper: 60, Lower: -10, Unit: "C"},
		{Sensor: telemetry.ChannelCLT, Upper: 110, Lower: 60, Unit: "C"},
		{Sensor: telemetry.ChannelAFR, Upper: 16, Lower: 11, Unit: "lambda"},
		{Sensor: telemetry.ChannelMAP, Upper: 250, Lower: 20, Unit: "kPa"},
		{Sensor: telemetry.ChannelTPS, Upper: 100, Lower: 0, Unit: "%"},
	}
	now := time.Now().UTC()
	for _, threshold := range defaults {
		threshold.UpdatedAt = now
		if err := repo.Upsert(ctx, threshold); err != nil {
			logger.Fatalf("threshold upsert error: %v", err)
		}
	}
	logger.Printf("seeded %d thresholds", len(defaults))
}

func writeReadings(ctx context.Context, repo *telemetrypostgres.ReadingRepository, days, perDay int, logger *log.Logger) {
	rng := rand.New(rand.NewSource(42))
	today := wib.DayStart(time.Now().UTC())

	total := 0
	for d := days - 1; d >= 0; d-- {
		dayStart := today.Add(-time.Duration(d) * 24 * time.Hour)
		// Sessions start mid-morning WIB.
		sessionStart := dayStart.Add(9 * time.Hour)
		step := 8 * time.Hour / time.Duration(perDay)

		readings := make([]telemetry.Reading, 0, perDay)
		phase := rng.Float64() * math.Pi
		for i := 0; i < perDay; i++ {
			ts := sessionStart.Add(time.Duration(i) * step)
			phase += 0.05
			readings = append(readings, telemetry.Reading{
				Timestamp: ts,
				RPM:       math.Round(1500 + 700*math.Sin(phase) + rng.Float64()*80),
				IAT:       32 + 4*math.Sin(phase/7),
				CLT:       85 + 6*math.Sin(phase/11),
				AFR:       14.7 + 0.5*math.Sin(phase/3),
				MAP:       95 + 15*math.Sin(phase/5),
				TPS:       math.Max(0, 12+10*math.Sin(phase/2)),
			})
		}
		if err := repo.Insert(ctx, readings); err != nil {
			logger.Fatalf("reading insert error: %v", err)
		}
		total += len(readings)
	}
	logger.Printf("seeded %d readings over %d days", total, days)
}

func writeActivity(ctx context.Context, repo *activityrepo.ActivityRepository, days int, logger *log.Logger) {
	today := wib.DayStart(time.Now().UTC())
	for d := days - 1; d >= 1; d-- {
		dayStart := today.Add(-time.Duration(d) * 24 * time.Hour)
		// One increment per 10 polled minutes over an 8 hour session.
		target := 8 * 6
		last := dayStart.Add(9 * time.Hour)
		for i := 0; i < target; i++ {
			last = last.Add(10 * time.Minute)
			if _, _, err := repo.ApplyIncrement(ctx, dayStart, 10, last); err != nil {
				logger.Fatalf("activity seed error: %v", err)
			}
		}
	}
	logger.Printf("seeded activity for %d past days", days-1)
}
