package keyring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for key usage tracking.
var (
	keyUsageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_key_usage_total",
		Help: "Total call attempts by key slot",
	}, []string{"key"})

	keyCallsPeriod = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scraper_key_calls_period",
		Help: "Call attempts in the current period by key slot",
	}, []string{"key"})

	keyPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scraper_key_pool_size",
		Help: "Number of active keys in the rotation pool",
	})
)

// Registry owns the credential pool. It is the single consistent view of
// usage counters shared by the scheduler and the executor, constructed once
// at startup and passed explicitly (never reached through a global).
//
// All counter mutations happen under a single short-held mutex; parallel
// batch calls touch disjoint records, but Go schedules goroutines
// preemptively so reads and writes still need the lock.
type Registry struct {
	mu     sync.Mutex
	keys   []*ApiKey // registration order
	byName map[string]*ApiKey
	logger zerolog.Logger
}

// New builds a registry from the configured slots, in declaration order.
// A slot with an empty secret logs a warning and is omitted; construction
// never fails on a missing secret, the pool just shrinks by one.
func New(slots []Slot, logger zerolog.Logger) *Registry {
	r := &Registry{
		byName: make(map[string]*ApiKey),
		logger: logger,
	}

	for _, slot := range slots {
		if slot.Secret == "" {
			logger.Warn().
				Str("key", slot.Name).
				Msg("Key slot has no configured secret - skipping")
			continue
		}

		limit := slot.MonthlyLimit
		if limit <= 0 {
			limit = DefaultMonthlyLimit
		}

		key := &ApiKey{
			Name:         slot.Name,
			Secret:       slot.Secret,
			Active:       true,
			MonthlyLimit: limit,
		}
		r.keys = append(r.keys, key)
		r.byName[key.Name] = key
		keyCallsPeriod.WithLabelValues(key.Name).Set(0)
	}

	keyPoolSize.Set(float64(len(r.keys)))
	logger.Info().
		Int("pool_size", len(r.keys)).
		Int("slots_configured", len(slots)).
		Msg("Key pool initialized")

	return r
}

// ListActive returns the active keys in registration order.
func (r *Registry) ListActive() []*ApiKey {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make([]*ApiKey, 0, len(r.keys))
	for _, key := range r.keys {
		if key.Active {
			active = append(active, key)
		}
	}
	return active
}

// RecordUsage increments the named key's period counter and stamps its
// last-used time. An unknown name is a logged no-op: the call already
// happened remotely, there is just no local record to charge it to.
func (r *Registry) RecordUsage(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.byName[name]
	if !ok {
		r.logger.Warn().
			Str("key", name).
			Msg("Usage recorded for unknown key - ignoring")
		return
	}

	key.CallsThisPeriod++
	key.LastUsed = time.Now()

	keyUsageTotal.WithLabelValues(name).Inc()
	keyCallsPeriod.WithLabelValues(name).Set(float64(key.CallsThisPeriod))

	r.logger.Debug().
		Str("key", name).
		Int("calls_this_period", key.CallsThisPeriod).
		Msg("Key usage recorded")
}

// Stats returns the operational snapshot keyed by slot name.
func (r *Registry) Stats() map[string]KeyStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make(map[string]KeyStats, len(r.keys))
	for _, key := range r.keys {
		stats[key.Name] = KeyStats{
			Active:          key.Active,
			CallsThisPeriod: key.CallsThisPeriod,
			MonthlyLimit:    key.MonthlyLimit,
			Remaining:       key.Remaining(),
			LastUsed:        key.LastUsed,
			UsagePercent:    key.UsagePercent(),
		}
	}
	return stats
}

// ResetPeriod zeroes every key's period counter. Idempotent.
func (r *Registry) ResetPeriod() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range r.keys {
		key.CallsThisPeriod = 0
		keyCallsPeriod.WithLabelValues(key.Name).Set(0)
	}

	r.logger.Info().
		Int("pool_size", len(r.keys)).
		Msg("Key usage counters reset")
}
