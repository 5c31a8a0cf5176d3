package scrape

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/clipscout/scraper/pkg/keyring"
	"github.com/clipscout/scraper/pkg/rotation"
)

// Prometheus metrics for batch execution.
var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_batches_total",
		Help: "Total batches by mode",
	}, []string{"mode"})

	batchCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_batch_calls_total",
		Help: "Total batch calls by mode and result",
	}, []string{"mode", "result"})
)

// Batch execution modes.
const (
	ModeParallel   = "parallel"
	ModeSequential = "sequential"
)

// BatchConfig holds orchestrator configuration.
type BatchConfig struct {
	// PageSize is the item count requested per call.
	PageSize int

	// SequentialDelay is the throttle between consecutive sequential calls.
	SequentialDelay time.Duration
}

// DefaultBatchConfig returns the default batch configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		PageSize:        DefaultPageSize,
		SequentialDelay: SequentialDelay,
	}
}

// Orchestrator composes the rotation scheduler and the executor into
// batches. Both run modes stay independently callable regardless of the
// current time; ModeForNow only advises.
type Orchestrator struct {
	scheduler *rotation.Scheduler
	executor  *Executor
	pageSize  int
	delay     time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(scheduler *rotation.Scheduler, executor *Executor, cfg BatchConfig, logger zerolog.Logger) *Orchestrator {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.SequentialDelay <= 0 {
		cfg.SequentialDelay = SequentialDelay
	}

	return &Orchestrator{
		scheduler: scheduler,
		executor:  executor,
		pageSize:  cfg.PageSize,
		delay:     cfg.SequentialDelay,
		logger:    logger,
		now:       time.Now,
	}
}

// ModeForNow returns the mode the current time recommends. Advisory only.
func (o *Orchestrator) ModeForNow() string {
	if rotation.IsPeakWindow(o.now()) {
		return ModeParallel
	}
	return ModeSequential
}

// RunParallel fetches up to total items for term with all calls in flight
// at once. One credential per call, cursor = pageIndex * pageSize. All
// calls are joined before returning; an individual failure never cancels
// its siblings. Outcomes come back in issuance order.
func (o *Orchestrator) RunParallel(ctx context.Context, term string, total int) []Outcome {
	pages := o.pagesFor(total)
	if pages == 0 {
		return nil
	}

	keys := o.scheduler.SelectForPeak(pages)
	if len(keys) == 0 {
		o.logger.Warn().Str("term", term).Msg("No keys available - skipping batch")
		return nil
	}

	batchID := uuid.NewString()
	o.logBatchStart(batchID, ModeParallel, term, pages, len(keys))

	outcomes := make([]Outcome, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(page int, key *keyring.ApiKey) {
			defer wg.Done()
			outcomes[page] = o.executor.Execute(ctx, key, Request{
				Term:   term,
				Cursor: page * o.pageSize,
				Count:  o.pageSize,
			})
		}(i, key)
	}
	wg.Wait()

	o.logBatchDone(batchID, ModeParallel, term, outcomes)
	return outcomes
}

// RunSequential fetches up to total items for term one call at a time, with
// a fixed delay between calls (none after the last). A failed call does not
// stop the loop; a short key pool just yields fewer outcomes than pages.
func (o *Orchestrator) RunSequential(ctx context.Context, term string, total int) []Outcome {
	pages := o.pagesFor(total)
	if pages == 0 {
		return nil
	}

	keys := o.scheduler.SelectForConserve(pages)
	if len(keys) == 0 {
		o.logger.Warn().Str("term", term).Msg("No keys available - skipping batch")
		return nil
	}

	batchID := uuid.NewString()
	o.logBatchStart(batchID, ModeSequential, term, pages, len(keys))

	outcomes := make([]Outcome, 0, len(keys))
	for i, key := range keys {
		outcomes = append(outcomes, o.executor.Execute(ctx, key, Request{
			Term:   term,
			Cursor: i * o.pageSize,
			Count:  o.pageSize,
		}))

		if i < len(keys)-1 {
			select {
			case <-time.After(o.delay):
			case <-ctx.Done():
				o.logger.Warn().
					Str("batch_id", batchID).
					Str("term", term).
					Msg("Sequential batch interrupted")
				o.logBatchDone(batchID, ModeSequential, term, outcomes)
				return outcomes
			}
		}
	}

	o.logBatchDone(batchID, ModeSequential, term, outcomes)
	return outcomes
}

// pagesFor returns ceil(total / pageSize), 0 for non-positive totals.
func (o *Orchestrator) pagesFor(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + o.pageSize - 1) / o.pageSize
}

func (o *Orchestrator) logBatchStart(batchID, mode, term string, pages, keys int) {
	batchesTotal.WithLabelValues(mode).Inc()

	event := o.logger.Info()
	if keys < pages {
		// Reduced coverage, not an error: the batch runs with what it got.
		event = o.logger.Warn()
	}
	event.
		Str("batch_id", batchID).
		Str("mode", mode).
		Str("term", term).
		Int("pages", pages).
		Int("keys", keys).
		Msg("Batch started")
}

func (o *Orchestrator) logBatchDone(batchID, mode, term string, outcomes []Outcome) {
	successes := 0
	for _, outcome := range outcomes {
		if outcome.OK {
			successes++
			batchCallsTotal.WithLabelValues(mode, "success").Inc()
		} else {
			batchCallsTotal.WithLabelValues(mode, "failure").Inc()
		}
	}

	o.logger.Info().
		Str("batch_id", batchID).
		Str("mode", mode).
		Str("term", term).
		Int("successful", successes).
		Int("total", len(outcomes)).
		Msg("Batch complete")
}
