package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	activityapp "engine-monitor/internal/activity/application"
	activityrepo "engine-monitor/internal/activity/infrastructure/postgres"
	activityhttp "engine-monitor/internal/activity/interfaces/http"
	activitylogrepo "engine-monitor/internal/activitylog/infrastructure/postgres"
	activityloghttp "engine-monitor/internal/activitylog/interfaces/http"
	alertapp "engine-monitor/internal/alerts/application"
	alertrepo "engine-monitor/internal/alerts/infrastructure/postgres"
	alerthttp "engine-monitor/internal/alerts/interfaces/http"
	alertnotify "engine-monitor/internal/alerts/notify"
	"engine-monitor/internal/auth"
	"engine-monitor/internal/export"
	"engine-monitor/internal/monitor"
	"engine-monitor/internal/observability/metrics"
	statsapp "engine-monitor/internal/stats/application"
	statshttp "engine-monitor/internal/stats/interfaces/http"
	telemetrypostgres "engine-monitor/internal/telemetry/infrastructure/postgres"
	telemetryredis "engine-monitor/internal/telemetry/infrastructure/redis"
	telemetryhttp "engine-monitor/internal/telemetry/interfaces/http"
	thresholds "engine-monitor/internal/thresholds/domain"
	thresholdrepo "engine-monitor/internal/thresholds/infrastructure/postgres"
	thresholdhttp "engine-monitor/internal/thresholds/interfaces/http"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	monitorCfg, err := monitor.LoadConfig()
	if err != nil {
		logger.Fatalf("monitor config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)

	readingRepo := telemetrypostgres.NewReadingRepository(db)
	readingQuery := telemetrypostgres.NewReadingQuery(db)
	thresholdRepo := thresholdrepo.NewThresholdRepository(db)
	activityRepo := activityrepo.NewActivityRepository(db)
	alertRepo := alertrepo.NewAlertRepository(db)
	runRepo := alertrepo.NewRunRepository(db)
	feedRepo := activitylogrepo.NewRepository(db)

	var cache *telemetryredis.LatestCache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Printf("redis unavailable, latest-reading cache disabled: %v", err)
		} else {
			cache = telemetryredis.NewLatestCache(client, monitorCfg.CacheTTL.Std())
		}
	}

	seedThresholds(thresholdRepo, monitorCfg, logger)

	activityService, err := activityapp.NewService(readingRepo, activityRepo, monitorCfg.IncrementMinutes, monitorCfg.IdleThreshold.Std(), logger)
	if err != nil {
		logger.Fatalf("activity service error: %v", err)
	}

	processorOpts := []alertapp.ProcessorOption{
		alertapp.WithLock(alertrepo.NewAdvisoryLock(db)),
	}
	if monitorCfg.WebhookURL != "" {
		webhook, err := alertnotify.NewWebhookNotifier(monitorCfg.WebhookURL, alertnotify.WithLogger(logger))
		if err != nil {
			logger.Fatalf("alert webhook error: %v", err)
		}
		processorOpts = append(processorOpts, alertapp.WithNotifier(alertnotify.NewMultiNotifier(webhook)))
	}
	processor, err := alertapp.NewProcessor(readingRepo, thresholdRepo, alertRepo, runRepo, logger, processorOpts...)
	if err != nil {
		logger.Fatalf("alert processor error: %v", err)
	}
	scheduler := alertapp.NewScheduler(processor, monitorCfg.AlertInterval.Std(), logger)
	go scheduler.Start(context.Background())

	statsService, err := statsapp.NewService(activityRepo, readingQuery, alertRepo)
	if err != nil {
		logger.Fatalf("stats service error: %v", err)
	}

	ingestHandler, err := telemetryhttp.NewIngestHandler(readingRepo, cacheWriter(cache), logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	readingsHandler, err := telemetryhttp.NewReadingsHandler(readingRepo, readingQuery, thresholdRepo, cacheReader(cache), logger)
	if err != nil {
		logger.Fatalf("readings handler error: %v", err)
	}
	engineHandler, err := activityhttp.NewHandler(activityService, activityRepo)
	if err != nil {
		logger.Fatalf("engine handler error: %v", err)
	}
	alertsHandler, err := alerthttp.NewHandler(alertRepo, runRepo)
	if err != nil {
		logger.Fatalf("alerts handler error: %v", err)
	}
	thresholdsHandler, err := thresholdhttp.NewHandler(thresholdRepo, feedRepo, logger)
	if err != nil {
		logger.Fatalf("thresholds handler error: %v", err)
	}
	activitiesHandler, err := activityloghttp.NewHandler(feedRepo)
	if err != nil {
		logger.Fatalf("activities handler error: %v", err)
	}
	statsHandler, err := statshttp.NewHandler(statsService)
	if err != nil {
		logger.Fatalf("stats handler error: %v", err)
	}
	exportHandler, err := export.NewHandler(readingRepo, activityRepo, logger)
	if err != nil {
		logger.Fatalf("export handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/ingest/readings", ingestAuth.Wrap(ingestHandler))
	mux.Handle("/api/v1/engine/status", engineHandler)
	mux.Handle("/api/v1/engine/active-time", engineHandler)
	mux.Handle("/api/v1/readings", readingsHandler)
	mux.Handle("/api/v1/insights", readingsHandler)
	mux.Handle("/api/v1/alerts", alertsHandler)
	mux.Handle("/api/v1/alerts/processor", alertsHandler)
	mux.Handle("/api/v1/thresholds", thresholdsHandler)
	mux.Handle("/api/v1/activities", activitiesHandler)
	mux.Handle("/api/v1/stats", statsHandler)
	mux.Handle("/api/v1/exports/", exportHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL       string
	HTTPAddr          string
	RedisAddr         string
	RedisPassword     string
	JWTSecret         string
	IngestSecret      string
	IngestSkewSeconds int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		RedisAddr:         getenvDefault("REDIS_ADDR", ""),
		RedisPassword:     getenvDefault("REDIS_PASSWORD", ""),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:      getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds: getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

// seedThresholds writes configured default thresholds for sensors that
// have none yet.
func seedThresholds(repo *thresholdrepo.ThresholdRepository, cfg monitor.Config, logger *log.Logger) {
	if len(cfg.Thresholds) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := repo.FindAll(ctx)
	if err != nil {
		logger.Printf("threshold seed skipped: %v", err)
		return
	}
	for sensor, seed := range cfg.Thresholds {
		if _, ok := existing[sensor]; ok {
			continue
		}
		threshold := thresholds.Threshold{
			Sensor:    sensor,
			Upper:     seed.Upper,
			Lower:     seed.Lower,
			Unit:      seed.Unit,
			UpdatedAt: time.Now().UTC(),
		}
		if err := threshold.Validate(); err != nil {
			logger.Printf("threshold seed invalid for %s: %v", sensor, err)
			continue
		}
		if err := repo.Upsert(ctx, threshold); err != nil {
			logger.Printf("threshold seed failed for %s: %v", sensor, err)
		}
	}
}

// cacheWriter adapts the optional cache to the ingest handler without
// passing a typed nil through an interface.
func cacheWriter(cache *telemetryredis.LatestCache) telemetryhttp.ReadingCache {
	if cache == nil {
		return nil
	}
	return cache
}

func cacheReader(cache *telemetryredis.LatestCache) telemetryhttp.LatestReader {
	if cache == nil {
		return nil
	}
	return cache
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
