// Package metrics provides Prometheus metrics for knotifier.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WeightedPriceUSD tracks the cached weighted price per instance
	// type in its cheapest availability zone.
	WeightedPriceUSD = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "knotifier",
			Name:      "weighted_price_usd",
			Help:      "Weighted spot price in USD per hour for the cheapest zone",
		},
		[]string{"instance", "zone"},
	)

	// PriceRefreshDuration tracks one full weighted price table refresh.
	PriceRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "knotifier",
			Name:      "price_refresh_duration_seconds",
			Help:      "Duration of a complete weighted price refresh",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	// NotificationsProcessed counts drained queue messages by outcome.
	// Outcomes: tallied, ignored, malformed, deferred.
	NotificationsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knotifier",
			Name:      "notifications_processed_total",
			Help:      "Termination notifications drained from the queue by outcome",
		},
		[]string{"outcome"},
	)

	// ReplacementsPending tracks outstanding replacement instances per
	// on-demand group.
	ReplacementsPending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "knotifier",
			Name:      "replacements_pending",
			Help:      "Replacement instances still owed to a group's spot pair",
		},
		[]string{"group"},
	)

	// ReconcileCycles counts reconciliation cycles by outcome.
	// Outcomes: complete, partial, skipped.
	ReconcileCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knotifier",
			Name:      "reconcile_cycles_total",
			Help:      "Reconciliation cycles by outcome",
		},
		[]string{"outcome"},
	)

	// SpotGroupsCreated counts paired spot groups created.
	SpotGroupsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "knotifier",
			Name:      "spot_groups_created_total",
			Help:      "Paired spot groups created",
		},
	)

	// SpotGroupsUpdated counts capacity updates to existing spot groups.
	SpotGroupsUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "knotifier",
			Name:      "spot_groups_updated_total",
			Help:      "Capacity updates applied to existing spot groups",
		},
	)

	// LaunchTemplatesCreated counts derived launch templates created.
	LaunchTemplatesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "knotifier",
			Name:      "launch_templates_created_total",
			Help:      "Derived spot launch templates created",
		},
	)

	// ExternalAPIErrors counts failures at the cloud boundary by
	// operation name.
	ExternalAPIErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knotifier",
			Name:      "external_api_errors_total",
			Help:      "Cloud API failures by operation",
		},
		[]string{"operation"},
	)

	// EstimatedSavingsUSDHourly tracks the estimated hourly savings of
	// the most recent replacement per group: (on-demand - weighted) x
	// new instances.
	EstimatedSavingsUSDHourly = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "knotifier",
			Name:      "estimated_savings_usd_hourly",
			Help:      "Estimated hourly savings of the latest replacement per group",
		},
		[]string{"group", "instance"},
	)
)
