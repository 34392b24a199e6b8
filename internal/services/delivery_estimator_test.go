package services

import (
	"testing"
	"time"

	domain "github.com/emberwok/api/internal/domain"
)

func TestEstimateBaseWindow(t *testing.T) {
	est := NewDeliveryEstimator(DeliveryEstimatorDeps{
		Clock: func() time.Time { return testNoon },
	})

	got := est.Estimate(2, domain.Zone1)
	if got.MinMinutes != 25 || got.MaxMinutes != 40 {
		t.Fatalf("expected 25-40 window got %d-%d", got.MinMinutes, got.MaxMinutes)
	}
	if !got.EstimatedArrival.Equal(testNoon.Add(40 * time.Minute)) {
		t.Fatalf("unexpected arrival %v", got.EstimatedArrival)
	}
	if got.Breakdown.Peak != 0 || got.Breakdown.Weather != 0 || got.Breakdown.Queue != 0 {
		t.Fatalf("unexpected surcharges %+v", got.Breakdown)
	}
}

func TestEstimatePrepTiers(t *testing.T) {
	est := NewDeliveryEstimator(DeliveryEstimatorDeps{
		Clock: func() time.Time { return testNoon },
	})

	cases := []struct {
		items int
		prep  int
	}{
		{1, 15},
		{3, 15},
		{4, 25},
		{6, 25},
		{7, 35},
		{10, 35},
		{11, 45},
	}
	for _, tc := range cases {
		got := est.Estimate(tc.items, domain.Zone1)
		if got.Breakdown.Prep != tc.prep {
			t.Fatalf("%d items: expected prep %d got %d", tc.items, tc.prep, got.Breakdown.Prep)
		}
	}
}

func TestEstimateStacksDelays(t *testing.T) {
	peakDinner := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
	est := NewDeliveryEstimator(DeliveryEstimatorDeps{
		Clock:      func() time.Time { return peakDinner },
		QueueDepth: func() int { return 3 },
		BadWeather: func() bool { return true },
	})

	got := est.Estimate(4, domain.Zone3)
	// prep 25 + travel 30 + queue 15 + peak 15 + weather 10
	if got.MinMinutes != 95 || got.MaxMinutes != 110 {
		t.Fatalf("expected 95-110 window got %d-%d", got.MinMinutes, got.MaxMinutes)
	}
	if got.Breakdown.Queue != 15 || got.Breakdown.Peak != 15 || got.Breakdown.Weather != 10 {
		t.Fatalf("unexpected breakdown %+v", got.Breakdown)
	}
}

func TestEstimateUnknownZoneTravel(t *testing.T) {
	est := NewDeliveryEstimator(DeliveryEstimatorDeps{
		Clock: func() time.Time { return testNoon },
	})

	got := est.Estimate(1, domain.ZoneUnknown)
	if got.Breakdown.Travel != 20 {
		t.Fatalf("expected fallback travel 20 got %d", got.Breakdown.Travel)
	}
}

func TestEstimatePeakBoundaries(t *testing.T) {
	at := func(hour int) func() time.Time {
		return func() time.Time {
			return time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC)
		}
	}

	cases := []struct {
		hour int
		peak int
	}{
		{17, 0},
		{18, peakDelayMinutes},
		{20, peakDelayMinutes},
		{21, 0},
	}
	for _, tc := range cases {
		est := NewDeliveryEstimator(DeliveryEstimatorDeps{Clock: at(tc.hour)})
		got := est.Estimate(1, domain.Zone1)
		if got.Breakdown.Peak != tc.peak {
			t.Fatalf("hour %d: expected peak %d got %d", tc.hour, tc.peak, got.Breakdown.Peak)
		}
	}
}
