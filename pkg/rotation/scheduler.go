// Package rotation selects credentials from the key pool for a batch.
// Selection is round-robin with a sliding start offset: every selection
// advances the starting cursor, so cumulative usage spreads evenly across
// the pool instead of exhausting the first keys disproportionately.
package rotation

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/clipscout/scraper/pkg/keyring"
)

// Prometheus metrics for key selection.
var (
	selectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_key_selections_total",
		Help: "Total key selections by policy",
	}, []string{"policy"})

	degradedSelectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_degraded_selections_total",
		Help: "Selections that returned fewer keys than requested",
	})
)

// Default pool sizes for the two time-of-day policies.
const (
	// DefaultPeakPoolSize is how many keys a peak-window selection takes
	// by default, favoring parallel throughput.
	DefaultPeakPoolSize = 3

	// DefaultConservePoolSize is how many keys an off-peak selection takes
	// by default, favoring throttled sequential fetching.
	DefaultConservePoolSize = 2
)

// Peak window boundaries in local hours. Peak spans [12,24) and [0,2);
// the remainder [2,12) is the conserve window. Start hours are inclusive,
// end hours exclusive: 12:00 is peak, 02:00 is not.
const (
	peakStartHour = 12
	peakEndHour   = 2
)

// IsPeakWindow reports whether the given time falls in the peak window.
func IsPeakWindow(t time.Time) bool {
	hour := t.Hour()
	return hour >= peakStartHour || hour < peakEndHour
}

// Scheduler owns the rotation cursor and hands out keys for batches.
// The cursor is process-lifetime state, advanced modulo the active pool
// size on every selection, never persisted.
type Scheduler struct {
	mu       sync.Mutex
	registry *keyring.Registry
	cursor   int
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler over the given registry.
func NewScheduler(registry *keyring.Registry, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		registry: registry,
		logger:   logger,
	}
}

// SelectForPeak selects up to n keys under the peak policy.
// n <= 0 means DefaultPeakPoolSize.
func (s *Scheduler) SelectForPeak(n int) []*keyring.ApiKey {
	if n <= 0 {
		n = DefaultPeakPoolSize
	}
	return s.selectKeys(n, "peak")
}

// SelectForConserve selects up to n keys under the conserve policy.
// n <= 0 means DefaultConservePoolSize.
func (s *Scheduler) SelectForConserve(n int) []*keyring.ApiKey {
	if n <= 0 {
		n = DefaultConservePoolSize
	}
	return s.selectKeys(n, "conserve")
}

// selectKeys takes min(requested, active) consecutive keys starting at the
// cursor, wrapping modulo the active pool size, then advances the cursor by
// the number taken. A short pool is a degraded selection, logged but never
// an error: the batch runs with what is available.
func (s *Scheduler) selectKeys(requested int, policy string) []*keyring.ApiKey {
	active := s.registry.ListActive()
	if len(active) == 0 {
		s.logger.Warn().
			Str("policy", policy).
			Int("requested", requested).
			Msg("No active keys available for selection")
		degradedSelectionsTotal.Inc()
		return nil
	}

	n := requested
	if n > len(active) {
		s.logger.Warn().
			Str("policy", policy).
			Int("requested", requested).
			Int("available", len(active)).
			Msg("Degraded selection - fewer active keys than requested")
		degradedSelectionsTotal.Inc()
		n = len(active)
	}

	s.mu.Lock()
	// The pool can shrink between selections; renormalize the cursor.
	start := s.cursor % len(active)
	selected := make([]*keyring.ApiKey, 0, n)
	for i := 0; i < n; i++ {
		selected = append(selected, active[(start+i)%len(active)])
	}
	s.cursor = (start + n) % len(active)
	cursor := s.cursor
	s.mu.Unlock()

	selectionsTotal.WithLabelValues(policy).Inc()

	s.logger.Debug().
		Str("policy", policy).
		Int("selected", n).
		Int("start", start).
		Int("cursor", cursor).
		Msg("Keys selected")

	return selected
}

// Cursor returns the current rotation cursor. Exposed for operational
// visibility and tests.
func (s *Scheduler) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
