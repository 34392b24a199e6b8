package domain

import "testing"

func TestFormatGBP(t *testing.T) {
	cases := []struct {
		minor int64
		want  string
	}{
		{0, "£0.00"},
		{99, "£0.99"},
		{2880, "£28.80"},
		{123456, "£1,234.56"},
		{-500, "-£5.00"},
	}
	for _, tc := range cases {
		if got := FormatGBP(tc.minor); got != tc.want {
			t.Fatalf("%d: expected %s got %s", tc.minor, tc.want, got)
		}
	}
}

func TestPercentOfRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		amount int64
		pct    float64
		want   int64
	}{
		{2400, 10, 240},
		{999, 10, 100},
		{25, 50, 13},
		{0, 10, 0},
		{2400, 0, 0},
	}
	for _, tc := range cases {
		if got := PercentOf(tc.amount, tc.pct); got != tc.want {
			t.Fatalf("%v%% of %d: expected %d got %d", tc.pct, tc.amount, tc.want, got)
		}
	}
}

func TestRateOf(t *testing.T) {
	cases := []struct {
		amount int64
		rate   float64
		want   int64
	}{
		{2400, 0.20, 480},
		{2160, 0.20, 432},
		{33, 0.20, 7},
		{0, 0.20, 0},
	}
	for _, tc := range cases {
		if got := RateOf(tc.amount, tc.rate); got != tc.want {
			t.Fatalf("%d at %v: expected %d got %d", tc.amount, tc.rate, tc.want, got)
		}
	}
}
