// Command fake_logger simulates the engine data logger. It generates
// plausible sensor readings and posts signed batches to the ingest
// endpoint on an interval.
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"
)

type point struct {
	TS     int64              `json:"ts"`
	Values map[string]float64 `json:"values"`
}

type payload struct {
	Points []point `json:"points"`
}

func main() {
	baseURL := getenvDefault("LOGGER_TARGET", "http://localhost:8080")
	secret := os.Getenv("INGEST_HMAC_SECRET")
	interval := getenvDuration("LOGGER_INTERVAL", 10*time.Second)
	batch := getenvIntDefault("LOGGER_BATCH", 1)

	if secret == "" {
		log.Fatal("INGEST_HMAC_SECRET is required")
	}

	logger := log.New(os.Stdout, "fake_logger ", log.LstdFlags)
	client := &http.Client{Timeout: 10 * time.Second}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	phase := 0.0
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		points := make([]point, 0, batch)
		now := time.Now().UTC()
		for i := 0; i < batch; i++ {
			ts := now.Add(-time.Duration(batch-1-i) * time.Second)
			points = append(points, point{TS: ts.Unix(), Values: generate(rng, phase)})
			phase += 0.05
		}
		if err := send(client, baseURL, []byte(secret), payload{Points: points}); err != nil {
			logger.Printf("send failed: %v", err)
		} else {
			logger.Printf("sent %d readings", len(points))
		}
		<-ticker.C
	}
}

// generate produces values that drift like a warm idling engine.
func generate(rng *rand.Rand, phase float64) map[string]float64 {
	rpm := 1500 + 400*math.Sin(phase) + rng.Float64()*50
	return map[string]float64{
		"RPM": math.Round(rpm),
		"IAT": 32 + 3*math.Sin(phase/7) + rng.Float64(),
		"CLT": 85 + 5*math.Sin(phase/11) + rng.Float64(),
		"AFR": 14.7 + 0.4*math.Sin(phase/3) + rng.Float64()*0.1,
		"MAP": 90 + 8*math.Sin(phase/5) + rng.Float64(),
		"TPS": math.Max(0, 10+8*math.Sin(phase/2)+rng.Float64()),
	}
}

func send(client *http.Client, baseURL string, secret []byte, body payload) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("\n"))
	_, _ = mac.Write(data)
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequest(http.MethodPost, baseURL+"/ingest/readings", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Ingest-Timestamp", timestamp)
	req.Header.Set("X-Ingest-Signature", signature)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
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

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
