package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/emberwok/api/internal/domain"
)

var (
	errPricingCodesRequired = errors.New("pricing engine: discount code source is required")
)

// defaultTaxRate is the VAT rate applied when none is configured.
const defaultTaxRate = 0.20

// CartPricingEngineDeps wires the dependencies for cart pricing.
type CartPricingEngineDeps struct {
	Codes   DiscountCodeSource
	TaxRate float64
	Clock   func() time.Time
}

// CartPricingEngine derives every monetary field on a cart from its
// lines, attached discount code, delivery fee, and tip.
type CartPricingEngine struct {
	codes   DiscountCodeSource
	taxRate float64
	now     func() time.Time
}

// NewCartPricingEngine constructs the engine enforcing dependency
// validation. A zero tax rate defaults to the standard VAT rate and a
// nil clock to time.Now.
func NewCartPricingEngine(deps CartPricingEngineDeps) (*CartPricingEngine, error) {
	if deps.Codes == nil {
		return nil, errPricingCodesRequired
	}
	rate := deps.TaxRate
	if rate == 0 {
		rate = defaultTaxRate
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &CartPricingEngine{
		codes:   deps.Codes,
		taxRate: rate,
		now:     func() time.Time { return clock().UTC() },
	}, nil
}

// Recalculate recomputes line totals, subtotal, discount, tax, and total
// in place. It never fails: a code that cannot be resolved or is no
// longer active is silently detached and the cart priced without it,
// with the detached code reported on the breakdown. Running it twice in
// a row yields identical results.
//
// Tax applies to the discounted subtotal. The delivery fee and tip are
// added after tax. An attached free-delivery code zeroes the stored
// delivery fee.
func (e *CartPricingEngine) Recalculate(ctx context.Context, cart *domain.Cart) domain.PricingBreakdown {
	now := e.now()

	var subtotal int64
	for i := range cart.Lines {
		line := &cart.Lines[i]
		line.LineTotal = line.UnitPrice * int64(line.Quantity)
		subtotal += line.LineTotal
	}

	var breakdown domain.PricingBreakdown
	var discount int64
	if cart.DiscountCode != "" {
		code, err := e.codes.LookupCode(ctx, cart.DiscountCode)
		if err != nil || !code.ActiveAt(now) {
			breakdown.DetachedCode = cart.DiscountCode
			cart.DiscountCode = ""
		} else {
			discount = discountFor(code, subtotal)
			if code.Type == domain.DiscountTypeFreeDelivery {
				cart.DeliveryFee = 0
				breakdown.FreeDelivery = true
			}
		}
	}
	if discount > subtotal {
		discount = subtotal
	}

	tax := domain.RateOf(subtotal-discount, e.taxRate)

	cart.Subtotal = subtotal
	cart.DiscountAmount = discount
	cart.TaxAmount = tax
	cart.Total = subtotal - discount + tax + cart.DeliveryFee + cart.TipAmount

	breakdown.Subtotal = subtotal
	breakdown.DiscountAmount = discount
	breakdown.TaxAmount = tax
	breakdown.DeliveryFee = cart.DeliveryFee
	breakdown.TipAmount = cart.TipAmount
	breakdown.Total = cart.Total
	return breakdown
}

// discountFor computes the monetary discount a code yields on a
// subtotal. A code whose minimum order amount is not met stays attached
// but yields nothing.
func discountFor(code domain.DiscountCode, subtotal int64) int64 {
	if code.MinOrderAmount > 0 && subtotal < code.MinOrderAmount {
		return 0
	}
	var amount int64
	switch code.Type {
	case domain.DiscountTypePercentage:
		amount = domain.PercentOf(subtotal, code.Value)
	case domain.DiscountTypeFixedAmount:
		amount = int64(code.Value)
	}
	if code.MaxDiscountAmount > 0 && amount > code.MaxDiscountAmount {
		amount = code.MaxDiscountAmount
	}
	return amount
}

// UnitPrice computes the per-unit price of a menu item with the given
// customization: base price, size adjustment, and the selected extras
// that are still available.
func UnitPrice(item domain.MenuItem, c domain.Customization) int64 {
	price := item.Price
	if c.Size != "" {
		price += item.SizeAdjustments[c.Size]
	}
	for _, id := range c.ExtraIDs {
		for _, extra := range item.Extras {
			if extra.ID == id && extra.IsAvailable {
				price += extra.Price
				break
			}
		}
	}
	if price < 0 {
		price = 0
	}
	return price
}
