package lease_test

import (
	"testing"
	"time"

	"riptide/internal/lease"
)

func TestRecommendedTimeoutTiers(t *testing.T) {
	const gib = int64(1) << 30
	cases := []struct {
		name  string
		bytes int64
		want  time.Duration
	}{
		{"tiny clip", 50 << 20, 5 * time.Minute},
		{"quarter gig", gib / 4, 10 * time.Minute},
		{"one gig", gib, 20 * time.Minute},
		{"three gigs", 3 * gib, 35 * time.Minute},
		{"five gigs", 5 * gib, 50 * time.Minute},
		{"huge source", 20 * gib, 60 * time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := lease.RecommendedTimeout(tc.bytes); got != tc.want {
				t.Fatalf("RecommendedTimeout(%d) = %v, want %v", tc.bytes, got, tc.want)
			}
		})
	}
}

func TestEstimateProcessingGrowsWithSize(t *testing.T) {
	const gib = int64(1) << 30
	small := lease.EstimateProcessing(gib)
	large := lease.EstimateProcessing(4 * gib)
	if small <= time.Minute {
		t.Fatalf("estimate for 1 GiB = %v, want more than the fixed overhead", small)
	}
	if large <= small {
		t.Fatalf("estimate must grow with size: %v vs %v", small, large)
	}
	if lease.EstimateProcessing(0) != time.Minute {
		t.Fatalf("empty input should cost only the fixed overhead, got %v", lease.EstimateProcessing(0))
	}
}
