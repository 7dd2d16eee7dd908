package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNotificationOutcomesAreIndependent(t *testing.T) {
	before := testutil.ToFloat64(NotificationsProcessed.WithLabelValues("tallied"))

	NotificationsProcessed.WithLabelValues("tallied").Inc()
	NotificationsProcessed.WithLabelValues("tallied").Inc()
	NotificationsProcessed.WithLabelValues("malformed").Inc()

	if got := testutil.ToFloat64(NotificationsProcessed.WithLabelValues("tallied")); got != before+2 {
		t.Errorf("tallied = %v, want %v", got, before+2)
	}
}

func TestReplacementsPendingTracksGroups(t *testing.T) {
	ReplacementsPending.WithLabelValues("web-od").Set(3)
	ReplacementsPending.WithLabelValues("api-od").Set(1)

	if got := testutil.ToFloat64(ReplacementsPending.WithLabelValues("web-od")); got != 3 {
		t.Errorf("web-od pending = %v, want 3", got)
	}

	ReplacementsPending.WithLabelValues("web-od").Set(0)
	if got := testutil.ToFloat64(ReplacementsPending.WithLabelValues("web-od")); got != 0 {
		t.Errorf("web-od pending = %v, want 0 after settle", got)
	}
	if got := testutil.ToFloat64(ReplacementsPending.WithLabelValues("api-od")); got != 1 {
		t.Errorf("api-od pending = %v, want 1", got)
	}
}

func TestWeightedPriceGaugeOverwrites(t *testing.T) {
	WeightedPriceUSD.WithLabelValues("c3.large", "us-east-1b").Set(0.0750)
	WeightedPriceUSD.WithLabelValues("c3.large", "us-east-1b").Set(0.0810)

	if got := testutil.ToFloat64(WeightedPriceUSD.WithLabelValues("c3.large", "us-east-1b")); got != 0.0810 {
		t.Errorf("weighted price = %v, want 0.0810", got)
	}
}
