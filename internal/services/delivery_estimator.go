package services

import (
	"time"

	domain "github.com/emberwok/api/internal/domain"
)

const (
	queuePenaltyMinutes = 5
	peakDelayMinutes    = 15
	weatherDelayMinutes = 10
	estimateSpread      = 15
)

// DeliveryEstimatorDeps wires the inputs for delivery time estimation.
// Every field is optional.
type DeliveryEstimatorDeps struct {
	Clock func() time.Time
	// TravelMinutes maps delivery zones to driving time.
	TravelMinutes map[domain.DeliveryZone]int
	// QueueDepth reports the number of orders currently ahead in the
	// kitchen.
	QueueDepth func() int
	// BadWeather reports whether deliveries are slowed by weather.
	BadWeather    func() bool
	PeakStartHour int
	PeakEndHour   int
}

// DeliveryEstimator predicts the delivery window for an order from its
// size, zone, kitchen queue, and conditions at the time of asking.
type DeliveryEstimator struct {
	now        func() time.Time
	travel     map[domain.DeliveryZone]int
	queueDepth func() int
	badWeather func() bool
	peakStart  int
	peakEnd    int
}

// NewDeliveryEstimator constructs an estimator, defaulting the clock to
// time.Now, travel times to 10/20/30 minutes by zone, an empty kitchen
// queue, clear weather, and an 18:00-21:00 peak.
func NewDeliveryEstimator(deps DeliveryEstimatorDeps) *DeliveryEstimator {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	travel := deps.TravelMinutes
	if travel == nil {
		travel = map[domain.DeliveryZone]int{
			domain.Zone1: 10,
			domain.Zone2: 20,
			domain.Zone3: 30,
		}
	}
	queue := deps.QueueDepth
	if queue == nil {
		queue = func() int { return 0 }
	}
	weather := deps.BadWeather
	if weather == nil {
		weather = func() bool { return false }
	}
	peakStart, peakEnd := deps.PeakStartHour, deps.PeakEndHour
	if peakStart == 0 && peakEnd == 0 {
		peakStart, peakEnd = 18, 21
	}
	return &DeliveryEstimator{
		now:        func() time.Time { return clock().UTC() },
		travel:     travel,
		queueDepth: queue,
		badWeather: weather,
		peakStart:  peakStart,
		peakEnd:    peakEnd,
	}
}

// Estimate computes the delivery window for an order of itemCount items
// going to the given zone. The window spans fifteen minutes from the
// summed preparation, travel, queue, and condition delays.
func (e *DeliveryEstimator) Estimate(itemCount int, zone domain.DeliveryZone) domain.DeliveryEstimate {
	now := e.now()

	breakdown := domain.EstimateBreakdown{
		Prep:   prepMinutes(itemCount),
		Travel: e.travelFor(zone),
		Queue:  e.queueDepth() * queuePenaltyMinutes,
	}
	if hour := now.Hour(); hour >= e.peakStart && hour < e.peakEnd {
		breakdown.Peak = peakDelayMinutes
	}
	if e.badWeather() {
		breakdown.Weather = weatherDelayMinutes
	}

	min := breakdown.Prep + breakdown.Travel + breakdown.Queue + breakdown.Peak + breakdown.Weather
	max := min + estimateSpread

	return domain.DeliveryEstimate{
		MinMinutes:       min,
		MaxMinutes:       max,
		EstimatedArrival: now.Add(time.Duration(max) * time.Minute),
		Breakdown:        breakdown,
	}
}

// prepMinutes tiers kitchen preparation time by order size.
func prepMinutes(itemCount int) int {
	switch {
	case itemCount <= 3:
		return 15
	case itemCount <= 6:
		return 25
	case itemCount <= 10:
		return 35
	default:
		return 45
	}
}

func (e *DeliveryEstimator) travelFor(zone domain.DeliveryZone) int {
	if minutes, ok := e.travel[zone]; ok {
		return minutes
	}
	return 20
}
