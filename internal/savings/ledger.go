// Package savings accumulates the estimated value of spot
// replacements over the process lifetime.
package savings

import (
	"log/slog"
	"sync"
	"time"
)

// Replacement is one metered replacement: instances of a cheaper spot
// type covering capacity lost from an on-demand group.
type Replacement struct {
	Group         string    `json:"group"`
	InstanceType  string    `json:"instance_type"`
	Zone          string    `json:"zone"`
	Instances     int32     `json:"instances"`
	SpotPrice     float64   `json:"spot_price_hourly"`
	OnDemandPrice float64   `json:"ondemand_price_hourly"`
	HourlyRate    float64   `json:"savings_usd_hourly"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Ledger tracks the savings rate per group and the full replacement
// history. Rates add up within a group because replacements are
// additive; capacity granted earlier keeps running.
type Ledger struct {
	logger *slog.Logger

	mu      sync.Mutex
	history []Replacement
	byGroup map[string]float64
}

// NewLedger creates an empty ledger.
func NewLedger(logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		logger:  logger,
		byGroup: make(map[string]float64),
	}
}

// Record meters one replacement. A spot price at or above the
// on-demand price counts as zero savings, never negative.
func (l *Ledger) Record(group, instanceType, zone string, instances int32, spotPrice, onDemandPrice float64) Replacement {
	rate := (onDemandPrice - spotPrice) * float64(instances)
	if rate < 0 {
		rate = 0
	}

	entry := Replacement{
		Group:         group,
		InstanceType:  instanceType,
		Zone:          zone,
		Instances:     instances,
		SpotPrice:     spotPrice,
		OnDemandPrice: onDemandPrice,
		HourlyRate:    rate,
		RecordedAt:    time.Now(),
	}

	l.mu.Lock()
	l.history = append(l.history, entry)
	l.byGroup[group] += rate
	total := 0.0
	for _, groupRate := range l.byGroup {
		total += groupRate
	}
	l.mu.Unlock()

	l.logger.Info("replacement savings metered",
		"group", group,
		"instance_type", instanceType,
		"instances", instances,
		"savings_usd_hourly", rate,
		"total_usd_hourly", total,
	)

	return entry
}

// GroupRate returns the accumulated hourly savings rate for one group.
func (l *Ledger) GroupRate(group string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.byGroup[group]
}

// HourlyRate returns the accumulated hourly savings rate across all
// groups.
func (l *Ledger) HourlyRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0.0
	for _, rate := range l.byGroup {
		total += rate
	}
	return total
}

// History returns a copy of every metered replacement in order.
func (l *Ledger) History() []Replacement {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Replacement, len(l.history))
	copy(out, l.history)
	return out
}
