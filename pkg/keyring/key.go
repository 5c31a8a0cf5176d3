// Package keyring manages the pool of search API credentials and their
// per-period usage bookkeeping. Every call against the remote endpoint,
// successful or not, consumes quota on the remote side, so the registry
// counts attempts rather than successes.
package keyring

import (
	"math"
	"time"
)

// DefaultMonthlyLimit is the per-key monthly call allowance assumed when a
// slot does not configure its own limit.
const DefaultMonthlyLimit = 10000

// Slot describes one configured credential slot. Slots are declared in a
// fixed order and that order is the stable iteration order of the pool.
type Slot struct {
	// Name is the unique, stable identifier of the slot (e.g. "key_1").
	Name string

	// Secret is the API key value. An empty secret means the slot is
	// unconfigured and is omitted from the pool.
	Secret string

	// MonthlyLimit is the advisory monthly call allowance for this key.
	// Zero means DefaultMonthlyLimit.
	MonthlyLimit int
}

// ApiKey is one credential record with its usage counters.
// The registry is the only writer of the mutable fields.
type ApiKey struct {
	// Name is the unique slot name.
	Name string

	// Secret is the API key value sent in the auth header.
	Secret string

	// Active indicates whether the key participates in rotation.
	Active bool

	// MonthlyLimit is the advisory monthly allowance. It is never enforced
	// as a hard cap; exceeding it is observable via Stats.
	MonthlyLimit int

	// CallsThisPeriod counts attempts since the last period reset.
	CallsThisPeriod int

	// LastUsed is the timestamp of the most recent attempt.
	LastUsed time.Time
}

// Remaining returns the advisory calls left in the current period.
// May go negative when usage exceeds the limit.
func (k *ApiKey) Remaining() int {
	return k.MonthlyLimit - k.CallsThisPeriod
}

// UsagePercent returns the used share of the monthly allowance, rounded to
// the nearest whole percent.
func (k *ApiKey) UsagePercent() int {
	if k.MonthlyLimit <= 0 {
		return 0
	}
	return int(math.Round(float64(k.CallsThisPeriod) / float64(k.MonthlyLimit) * 100))
}

// KeyStats is the operational snapshot of one key.
type KeyStats struct {
	Active          bool      `json:"active"`
	CallsThisPeriod int       `json:"calls_this_period"`
	MonthlyLimit    int       `json:"monthly_limit"`
	Remaining       int       `json:"remaining"`
	LastUsed        time.Time `json:"last_used"`
	UsagePercent    int       `json:"usage_percent"`
}
