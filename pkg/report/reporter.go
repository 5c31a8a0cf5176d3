// Package report provides the read-only operational view over the key
// registry plus the period-reset entry point. The reset can be invoked
// directly (e.g. by an HTTP trigger) or run on a cron schedule.
package report

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/clipscout/scraper/pkg/keyring"
)

// DefaultResetSchedule fires at midnight on the first of every month.
const DefaultResetSchedule = "0 0 1 * *"

// Reporter proxies registry stats and resets for operational consumers.
type Reporter struct {
	registry *keyring.Registry
	cron     *cron.Cron
	logger   zerolog.Logger
	running  bool
}

// NewReporter creates a reporter over the given registry.
func NewReporter(registry *keyring.Registry, logger zerolog.Logger) *Reporter {
	return &Reporter{
		registry: registry,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Stats returns the registry's usage snapshot keyed by slot name.
func (r *Reporter) Stats() map[string]keyring.KeyStats {
	return r.registry.Stats()
}

// ResetMonthly zeroes every key's period counter. Idempotent; safe to
// invoke from an external trigger at any time.
func (r *Reporter) ResetMonthly() {
	r.logger.Info().Msg("Monthly usage reset triggered")
	r.registry.ResetPeriod()
}

// StartMonthlyReset schedules ResetMonthly on the given cron expression.
// An empty schedule means DefaultResetSchedule.
func (r *Reporter) StartMonthlyReset(schedule string) error {
	if schedule == "" {
		schedule = DefaultResetSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid reset schedule %q: %w", schedule, err)
	}

	if _, err := r.cron.AddFunc(schedule, r.ResetMonthly); err != nil {
		return fmt.Errorf("schedule monthly reset: %w", err)
	}

	r.cron.Start()
	r.running = true

	r.logger.Info().
		Str("schedule", schedule).
		Msg("Monthly reset scheduled")

	return nil
}

// Stop halts the reset schedule. A reset already in flight completes.
func (r *Reporter) Stop() {
	if !r.running {
		return
	}
	r.cron.Stop()
	r.running = false
	r.logger.Info().Msg("Monthly reset schedule stopped")
}
