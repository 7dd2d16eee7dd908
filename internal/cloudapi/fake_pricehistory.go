package cloudapi

import (
	"context"
	"sync"
	"time"
)

// FakePriceHistoryAPI is a deterministic, in-memory PriceHistoryAPI for
// tests. Samples are filtered by the requested time window exactly like
// the real boundary.
type FakePriceHistoryAPI struct {
	mu      sync.Mutex
	samples map[string][]SpotPriceSample

	// Err, when set, is returned by every call.
	Err error
}

// NewFakePriceHistoryAPI creates an empty fake price history source.
func NewFakePriceHistoryAPI() *FakePriceHistoryAPI {
	return &FakePriceHistoryAPI{samples: make(map[string][]SpotPriceSample)}
}

// AddSample records one observation for an (instanceType, zone) pair.
func (f *FakePriceHistoryAPI) AddSample(instanceType, zone string, price float64, ts time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := instanceType + ":" + zone
	f.samples[key] = append(f.samples[key], SpotPriceSample{
		InstanceType:     instanceType,
		AvailabilityZone: zone,
		Price:            price,
		Timestamp:        ts,
	})
}

func (f *FakePriceHistoryAPI) SpotPriceHistory(ctx context.Context, instanceType, availabilityZone string, start, end time.Time) ([]SpotPriceSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var out []SpotPriceSample
	for _, sample := range f.samples[instanceType+":"+availabilityZone] {
		if sample.Timestamp.Before(start) || sample.Timestamp.After(end) {
			continue
		}
		out = append(out, sample)
	}
	return out, nil
}

// Compile-time interface check.
var _ PriceHistoryAPI = (*FakePriceHistoryAPI)(nil)
