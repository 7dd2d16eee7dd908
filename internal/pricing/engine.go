// Package pricing implements the weighted spot price engine. It blends
// short- and long-window historical averages into one weighted price
// per instance type and keeps only the cheapest availability zone for
// each type.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Knetic/govaluate"

	"github.com/patoarvizu/knotifier/internal/cloudapi"
	"github.com/patoarvizu/knotifier/internal/metrics"
)

// Averaging windows and their blend weights. The three-month window
// dominates so short spikes don't flip instance type selection.
const (
	windowCurrent    = time.Minute
	windowLastDay    = 24 * time.Hour
	windowThreeMonth = 90 * 24 * time.Hour

	weightCurrent    = 0.25
	weightLastDay    = 0.25
	weightThreeMonth = 0.50
)

// Record is the weighted price of one instance type in its cheapest
// availability zone.
type Record struct {
	InstanceType     string
	AvailabilityZone string
	WeightedPrice    float64
}

// EngineConfig configures the price engine.
type EngineConfig struct {
	History           cloudapi.PriceHistoryAPI
	InstanceTypes     []string
	AvailabilityZones []string

	// Workers caps concurrent history queries. Default: 4.
	Workers int

	// EligibilityExpression optionally filters selection candidates.
	// Evaluated with parameters price, instance_type, and zone, e.g.
	// "price < 0.50 && zone != 'us-east-1e'".
	EligibilityExpression string

	Logger *slog.Logger
}

// Engine computes and caches weighted prices. Refresh runs on its own
// schedule; readers only ever see a completed table state.
type Engine struct {
	history     cloudapi.PriceHistoryAPI
	types       []string
	zones       []string
	workers     int
	eligibility *govaluate.EvaluableExpression
	logger      *slog.Logger

	mu     sync.RWMutex
	lowest map[string]Record
}

// NewEngine creates a price engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.History == nil {
		return nil, fmt.Errorf("price history source is required")
	}
	if len(cfg.InstanceTypes) == 0 {
		return nil, fmt.Errorf("at least one instance type is required")
	}
	if len(cfg.AvailabilityZones) == 0 {
		return nil, fmt.Errorf("at least one availability zone is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var eligibility *govaluate.EvaluableExpression
	if cfg.EligibilityExpression != "" {
		expr, err := govaluate.NewEvaluableExpression(cfg.EligibilityExpression)
		if err != nil {
			return nil, fmt.Errorf("invalid eligibility expression: %w", err)
		}
		eligibility = expr
	}

	return &Engine{
		history:     cfg.History,
		types:       cfg.InstanceTypes,
		zones:       cfg.AvailabilityZones,
		workers:     cfg.Workers,
		eligibility: eligibility,
		logger:      cfg.Logger,
	}, nil
}

// Refresh recomputes the weighted price for every tracked
// (instanceType, zone) pair and replaces the table with the result.
// Pairs are independent and fan out to a bounded worker pool. An
// instance type whose pairs all failed keeps its previous entry so a
// transient API outage doesn't blank the table.
func (e *Engine) Refresh(ctx context.Context) {
	start := time.Now()

	type pair struct{ instanceType, zone string }
	jobs := make(chan pair)

	var tableMu sync.Mutex
	fresh := make(map[string]Record)

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				price, err := e.weightedPrice(ctx, job.instanceType, job.zone)
				if err != nil {
					e.logger.Warn("weighted price computation failed",
						"instance_type", job.instanceType,
						"zone", job.zone,
						"error", err,
					)
					metrics.ExternalAPIErrors.WithLabelValues("SpotPriceHistory").Inc()
					continue
				}
				tableMu.Lock()
				existing, ok := fresh[job.instanceType]
				if !ok || price < existing.WeightedPrice {
					fresh[job.instanceType] = Record{
						InstanceType:     job.instanceType,
						AvailabilityZone: job.zone,
						WeightedPrice:    price,
					}
				}
				tableMu.Unlock()
			}
		}()
	}

	for _, instanceType := range e.types {
		for _, zone := range e.zones {
			jobs <- pair{instanceType: instanceType, zone: zone}
		}
	}
	close(jobs)
	wg.Wait()

	e.commit(fresh)

	metrics.PriceRefreshDuration.Observe(time.Since(start).Seconds())
	e.logger.Debug("weighted price table refreshed",
		"types", len(e.types),
		"zones", len(e.zones),
		"duration", time.Since(start),
	)
}

// weightedPrice blends the three window averages for one pair.
func (e *Engine) weightedPrice(ctx context.Context, instanceType, zone string) (float64, error) {
	now := time.Now()

	current, err := e.averagePrice(ctx, instanceType, zone, now.Add(-windowCurrent), now)
	if err != nil {
		return 0, err
	}
	lastDay, err := e.averagePrice(ctx, instanceType, zone, now.Add(-windowLastDay), now)
	if err != nil {
		return 0, err
	}
	threeMonth, err := e.averagePrice(ctx, instanceType, zone, now.Add(-windowThreeMonth), now)
	if err != nil {
		return 0, err
	}

	weighted := current*weightCurrent + lastDay*weightLastDay + threeMonth*weightThreeMonth
	return math.Floor(weighted*10000) / 10000, nil
}

// averagePrice averages every sample in the window. An empty window
// reports the maximum representable price so the zone is never chosen
// over one with real data.
func (e *Engine) averagePrice(ctx context.Context, instanceType, zone string, start, end time.Time) (float64, error) {
	samples, err := e.history.SpotPriceHistory(ctx, instanceType, zone, start, end)
	if err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return math.MaxFloat64, nil
	}

	var sum float64
	for _, sample := range samples {
		sum += sample.Price
	}
	return sum / float64(len(samples)), nil
}

// commit replaces the table entries for every instance type the cycle
// produced data for.
func (e *Engine) commit(fresh map[string]Record) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lowest == nil {
		e.lowest = make(map[string]Record)
	}
	for instanceType, record := range fresh {
		e.lowest[instanceType] = record
		metrics.WeightedPriceUSD.WithLabelValues(record.InstanceType, record.AvailabilityZone).Set(record.WeightedPrice)
	}
}

// Prices returns a snapshot copy of the weighted price table.
func (e *Engine) Prices() map[string]Record {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]Record, len(e.lowest))
	for instanceType, record := range e.lowest {
		out[instanceType] = record
	}
	return out
}

// CheapestOf picks the cheapest priced instance type among preferred.
// Returns ErrNoEligiblePriceData when no preferred type has a cached
// price yet, which is expected before the first price cycle completes.
func (e *Engine) CheapestOf(preferred []string) (Record, error) {
	prices := e.Prices()

	var best Record
	found := false
	for _, instanceType := range preferred {
		record, ok := prices[instanceType]
		if !ok {
			continue
		}
		if !e.eligible(record) {
			continue
		}
		if !found || record.WeightedPrice < best.WeightedPrice {
			best = record
			found = true
		}
	}

	if !found {
		return Record{}, cloudapi.ErrNoEligiblePriceData
	}
	return best, nil
}

// eligible applies the optional selection expression. An evaluation
// failure excludes the candidate; a misconfigured expression must not
// silently admit everything.
func (e *Engine) eligible(record Record) bool {
	if e.eligibility == nil {
		return true
	}

	result, err := e.eligibility.Evaluate(map[string]interface{}{
		"price":         record.WeightedPrice,
		"instance_type": record.InstanceType,
		"zone":          record.AvailabilityZone,
	})
	if err != nil {
		e.logger.Warn("eligibility expression evaluation failed",
			"instance_type", record.InstanceType,
			"zone", record.AvailabilityZone,
			"error", err,
		)
		return false
	}

	ok, isBool := result.(bool)
	return isBool && ok
}
