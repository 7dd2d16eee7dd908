package cloudapi

import (
	"context"
	"time"
)

// SpotPriceSample is one historical price observation. Immutable after
// fetch.
type SpotPriceSample struct {
	InstanceType     string
	AvailabilityZone string
	Price            float64
	Timestamp        time.Time
}

// PriceHistoryAPI is the boundary to the spot price history source.
// SpotPriceHistory pages internally and returns every sample for the
// (instanceType, zone) pair within [start, end].
type PriceHistoryAPI interface {
	SpotPriceHistory(ctx context.Context, instanceType, availabilityZone string, start, end time.Time) ([]SpotPriceSample, error)
}

// OnDemandPriceAPI resolves the standard hourly rate for an instance
// type, used only for savings estimates.
type OnDemandPriceAPI interface {
	OnDemandPrice(ctx context.Context, instanceType string) (float64, error)
}
