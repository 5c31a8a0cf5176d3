package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clipscout/scraper/pkg/cache"
	"github.com/clipscout/scraper/pkg/keyring"
	"github.com/clipscout/scraper/pkg/logging"
	"github.com/clipscout/scraper/pkg/report"
	"github.com/clipscout/scraper/pkg/rotation"
	"github.com/clipscout/scraper/pkg/scrape"
)

// keySlotCount is the number of named credential slots read from the
// environment (RAPIDAPI_KEY_1 .. RAPIDAPI_KEY_5).
const keySlotCount = 5

func main() {
	// Configuration from environment
	port := getEnv("PORT", "8080")
	logLevel := getEnv("LOG_LEVEL", "info")
	host := getEnv("SEARCH_API_HOST", scrape.DefaultHost)
	region := getEnv("SEARCH_REGION", scrape.DefaultRegion)
	redisURL := getEnv("REDIS_URL", "")
	resetSchedule := getEnv("RESET_SCHEDULE", report.DefaultResetSchedule)
	monthlyLimit := getEnvInt("MONTHLY_LIMIT", keyring.DefaultMonthlyLimit)
	cacheTTL := getEnvDuration("CACHE_TTL", 15*time.Minute)

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Output: os.Stderr,
	})

	// Key pool from the named slots; missing slots shrink the pool.
	registry := keyring.New(keySlots(monthlyLimit), logging.NewLogger("keyring"))
	scheduler := rotation.NewScheduler(registry, logging.NewLogger("rotation"))

	execCfg := scrape.DefaultExecutorConfig()
	execCfg.Host = host
	execCfg.Region = region
	execCfg.CacheTTL = cacheTTL

	// Response cache is optional; without Redis every search goes remote.
	if redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("redis_url", redisURL).Msg("Failed to connect to Redis")
		}
		execCfg.Cache = cache.NewManager(redisClient)
		logger.Info().Str("redis_url", redisURL).Dur("ttl", cacheTTL).Msg("Response cache enabled")
	}

	executor := scrape.NewExecutor(registry, execCfg, logging.NewLogger("executor"))
	orchestrator := scrape.NewOrchestrator(scheduler, executor, scrape.DefaultBatchConfig(), logging.NewLogger("orchestrator"))

	reporter := report.NewReporter(registry, logging.NewLogger("report"))
	if err := reporter.StartMonthlyReset(resetSchedule); err != nil {
		logger.Fatal().Err(err).Msg("Failed to schedule monthly reset")
	}
	defer reporter.Stop()

	// HTTP Server
	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/api/v1/scrape", scrapeHandler(orchestrator))
	http.HandleFunc("/api/v1/keys/stats", statsHandler(reporter))
	http.HandleFunc("/api/v1/keys/reset", resetHandler(reporter))
	http.Handle("/metrics", promhttp.Handler())

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("host", host).
		Str("region", region).
		Msg("Starting scraper API server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// keySlots reads the named credential slots from the environment in
// declaration order. Slot names are stable; absent secrets are handed to
// the registry, which logs and omits them.
func keySlots(monthlyLimit int) []keyring.Slot {
	slots := make([]keyring.Slot, 0, keySlotCount)
	for i := 1; i <= keySlotCount; i++ {
		slots = append(slots, keyring.Slot{
			Name:         fmt.Sprintf("key_%d", i),
			Secret:       os.Getenv(fmt.Sprintf("RAPIDAPI_KEY_%d", i)),
			MonthlyLimit: monthlyLimit,
		})
	}
	return slots
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// batchResponse is the JSON shape returned by the scrape endpoint.
type batchResponse struct {
	Term       string           `json:"term"`
	Mode       string           `json:"mode"`
	Requested  int              `json:"requested"`
	Successful int              `json:"successful"`
	Total      int              `json:"total"`
	Outcomes   []scrape.Outcome `json:"outcomes"`
}

func scrapeHandler(orchestrator *scrape.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("term")
		if term == "" {
			http.Error(w, "missing required parameter: term", http.StatusBadRequest)
			return
		}

		count := scrape.DefaultPageSize
		if countStr := r.URL.Query().Get("count"); countStr != "" {
			parsed, err := strconv.Atoi(countStr)
			if err != nil || parsed <= 0 {
				http.Error(w, "invalid count parameter", http.StatusBadRequest)
				return
			}
			count = parsed
		}

		mode := r.URL.Query().Get("mode")
		if mode == "" {
			mode = orchestrator.ModeForNow()
		}

		var outcomes []scrape.Outcome
		switch mode {
		case scrape.ModeParallel:
			outcomes = orchestrator.RunParallel(r.Context(), term, count)
		case scrape.ModeSequential:
			outcomes = orchestrator.RunSequential(r.Context(), term, count)
		default:
			http.Error(w, "invalid mode parameter (parallel or sequential)", http.StatusBadRequest)
			return
		}

		successful := 0
		for _, outcome := range outcomes {
			if outcome.OK {
				successful++
			}
		}

		writeJSON(w, batchResponse{
			Term:       term,
			Mode:       mode,
			Requested:  count,
			Successful: successful,
			Total:      len(outcomes),
			Outcomes:   outcomes,
		})
	}
}

func statsHandler(reporter *report.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, reporter.Stats())
	}
}

func resetHandler(reporter *report.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		reporter.ResetMonthly()
		writeJSON(w, map[string]string{"status": "reset"})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
