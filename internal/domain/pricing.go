package domain

import "time"

// PricingBreakdown captures the monetary results of recomputing a cart.
type PricingBreakdown struct {
	Subtotal       int64
	DiscountAmount int64
	TaxAmount      int64
	DeliveryFee    int64
	TipAmount      int64
	Total          int64
	// DetachedCode is set when an inactive or expired discount code was
	// silently removed from the cart during the recompute.
	DetachedCode string
	// FreeDelivery is set when an attached free-delivery code zeroed the
	// delivery fee.
	FreeDelivery bool
}

// DeliveryFeeRequest are the inputs for a delivery fee quote. Peak
// overrides the gateway's wall-clock peak detection when non-nil.
type DeliveryFeeRequest struct {
	Postcode   string
	Subtotal   int64
	Peak       *bool
	BadWeather bool
}

// DiscountRequest are the inputs for discount code validation.
type DiscountRequest struct {
	Code         string
	Subtotal     int64
	CustomerID   string
	IsFirstOrder bool
}

// DiscountValidation is a successful discount code validation outcome.
type DiscountValidation struct {
	Code         string
	Type         DiscountType
	Amount       int64
	FreeDelivery bool
}

// DeliveryQuote is the fee computation returned by the delivery gateway.
type DeliveryQuote struct {
	Zone             DeliveryZone
	Fee              int64
	BaseFee          int64
	PeakSurcharge    int64
	WeatherSurcharge int64
	FreeDelivery     bool
}

// EstimateBreakdown itemises the minutes contributing to a delivery
// estimate.
type EstimateBreakdown struct {
	Prep    int
	Travel  int
	Queue   int
	Peak    int
	Weather int
}

// DeliveryEstimate is the displayed delivery window for an order.
type DeliveryEstimate struct {
	MinMinutes       int
	MaxMinutes       int
	EstimatedArrival time.Time
	Breakdown        EstimateBreakdown
}
