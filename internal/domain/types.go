package domain

import (
	"time"
)

// AnonymizedCustomerID replaces the customer reference on orders retained
// after the customer account has been deleted.
const AnonymizedCustomerID = "customer:anonymized"

// OrderStatus describes the lifecycle states of a placed order.
type OrderStatus string

const (
	// OrderStatusPending is the initial state of every order.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed indicates the kitchen accepted the order.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusPreparing indicates the kitchen started cooking.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusReady indicates the order is packed and awaiting a driver.
	OrderStatusReady OrderStatus = "ready"
	// OrderStatusOutForDelivery indicates a driver picked the order up.
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	// OrderStatusDelivered is terminal.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled is terminal.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// DiscountType enumerates the supported discount code mechanics.
type DiscountType string

const (
	// DiscountTypePercentage deducts a percentage of the cart subtotal.
	DiscountTypePercentage DiscountType = "percentage"
	// DiscountTypeFixedAmount deducts a fixed amount.
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
	// DiscountTypeFreeDelivery waives the delivery fee instead of
	// producing a monetary discount.
	DiscountTypeFreeDelivery DiscountType = "free_delivery"
)

// DeliveryZone is the distance tier an address falls into.
type DeliveryZone int

const (
	// ZoneUnknown means the zone has not been resolved yet.
	ZoneUnknown DeliveryZone = 0
	// Zone1 covers 0-2 miles.
	Zone1 DeliveryZone = 1
	// Zone2 covers 2-5 miles.
	Zone2 DeliveryZone = 2
	// Zone3 covers 5-8 miles.
	Zone3 DeliveryZone = 3
	// ZoneOutOfRange is beyond the delivery area.
	ZoneOutOfRange DeliveryZone = 4
)

// SpiceLevel is the requested heat for a line item.
type SpiceLevel int

const (
	SpiceNone     SpiceLevel = 0
	SpiceMild     SpiceLevel = 1
	SpiceMedium   SpiceLevel = 2
	SpiceHot      SpiceLevel = 3
	SpiceExtraHot SpiceLevel = 4
)

// ItemSize is the portion size of a line item.
type ItemSize string

const (
	SizeSmall  ItemSize = "small"
	SizeMedium ItemSize = "medium"
	SizeLarge  ItemSize = "large"
)

// PaymentMethod enumerates accepted payment options.
type PaymentMethod string

const (
	PaymentMethodCard          PaymentMethod = "card"
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodLoyaltyPoints PaymentMethod = "loyalty_points"
)

// CardType identifies the card network detected during validation.
type CardType string

const (
	CardTypeVisa       CardType = "visa"
	CardTypeMastercard CardType = "mastercard"
	CardTypeAmex       CardType = "amex"
	CardTypeUnknown    CardType = "unknown"
)

// ItemExtra is a priced add-on offered for a menu item.
type ItemExtra struct {
	ID          string
	Name        string
	Price       int64
	IsAvailable bool
}

// AvailabilityWindow restricts a menu item to a weekly time slot.
// Minutes are counted from midnight; both bounds are inclusive.
type AvailabilityWindow struct {
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
}

// Contains reports whether the window covers the given instant.
func (w AvailabilityWindow) Contains(t time.Time) bool {
	if t.Weekday() != w.Weekday {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	return minute >= w.StartMinute && minute <= w.EndMinute
}

// MenuItem is the catalog view consumed by the cart and order engines.
// Prices are minor currency units (pence).
type MenuItem struct {
	ID                   string
	Name                 string
	Description          string
	Price                int64
	CategoryID           string
	PreparationTime      int
	StockQuantity        int
	IsAvailable          bool
	Extras               []ItemExtra
	RemovableIngredients []string
	SizeAdjustments      map[ItemSize]int64
	Availability         []AvailabilityWindow
}

// AvailableAt reports whether the item's schedule covers the given instant.
// Items without a schedule are available at any time of day.
func (m MenuItem) AvailableAt(t time.Time) bool {
	if len(m.Availability) == 0 {
		return true
	}
	for _, w := range m.Availability {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// Customization captures the per-line modifications a customer selected.
type Customization struct {
	ExtraIDs           []string
	RemovedIngredients []string
	Size               ItemSize
	SpiceLevel         SpiceLevel
	Instructions       string
}

// Equal compares two customizations treating extras and removed
// ingredients as unordered sets. Instructions do not participate: two
// lines differing only in free text are still the same dish.
func (c Customization) Equal(other Customization) bool {
	if c.Size != other.Size || c.SpiceLevel != other.SpiceLevel {
		return false
	}
	return sameStringSet(c.ExtraIDs, other.ExtraIDs) &&
		sameStringSet(c.RemovedIngredients, other.RemovedIngredients)
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		seen[v]--
		if seen[v] < 0 {
			return false
		}
	}
	return true
}

// Address is a delivery destination. Zone is resolved from the postcode
// by the delivery gateway and cached here once known.
type Address struct {
	Line1        string
	Line2        string
	City         string
	Postcode     string
	Country      string
	Zone         DeliveryZone
	Instructions string
}

// CartLine is a single menu item, quantity, and customization inside a
// cart, or a frozen copy of the same inside an order.
type CartLine struct {
	ID            string
	MenuItemID    string
	Quantity      int
	Customization Customization
	UnitPrice     int64
	LineTotal     int64
	Notes         string
	AddedAt       time.Time
}

// Clone returns a deep copy of the line.
func (l CartLine) Clone() CartLine {
	dup := l
	dup.Customization.ExtraIDs = append([]string(nil), l.Customization.ExtraIDs...)
	dup.Customization.RemovedIngredients = append([]string(nil), l.Customization.RemovedIngredients...)
	return dup
}

// Cart is the mutable pre-order aggregate. The four derived monetary
// fields are recomputed after every mutation and never hand-edited.
type Cart struct {
	ID             string
	CustomerID     string
	Lines          []CartLine
	DiscountCode   string
	DeliveryFee    int64
	TipAmount      int64
	Subtotal       int64
	DiscountAmount int64
	TaxAmount      int64
	Total          int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TotalQuantity sums the quantities across all cart lines.
func (c Cart) TotalQuantity() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// Clone returns a deep copy so stored carts cannot be mutated through
// returned snapshots.
func (c Cart) Clone() Cart {
	dup := c
	dup.Lines = make([]CartLine, len(c.Lines))
	for i, line := range c.Lines {
		dup.Lines[i] = line.Clone()
	}
	return dup
}

// DiscountCode is the read-only view of a promotion rule. Amounts are
// minor units; Value is a percentage for percentage codes and minor
// units for fixed-amount codes.
type DiscountCode struct {
	ID                   string
	Code                 string
	Type                 DiscountType
	Value                float64
	MinOrderAmount       int64
	MaxDiscountAmount    int64
	UsageLimit           int
	TimesUsed            int
	SingleUsePerCustomer bool
	FirstOrderOnly       bool
	ValidFrom            time.Time
	ValidUntil           *time.Time
	IsActive             bool
}

// ActiveAt reports whether the code can produce a discount at the given
// instant: the active flag is set and the validity window covers t.
func (d DiscountCode) ActiveAt(t time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.ValidFrom.After(t) {
		return false
	}
	if d.ValidUntil != nil && d.ValidUntil.Before(t) {
		return false
	}
	return true
}

// StatusChange is one entry of an order's append-only status history.
type StatusChange struct {
	Status    OrderStatus
	Timestamp time.Time
	Note      string
}

// Order is the immutable snapshot created from a cart at placement time.
// Only the status envelope (status, history, timestamps, notes,
// cancellation fields) changes afterwards.
type Order struct {
	ID                  string
	Number              string
	CustomerID          string
	Lines               []CartLine
	DeliveryAddress     Address
	Subtotal            int64
	DiscountAmount      int64
	TaxAmount           int64
	DeliveryFee         int64
	TipAmount           int64
	Total               int64
	DiscountCodeUsed    string
	LoyaltyPointsUsed   int
	LoyaltyPointsEarned int
	Status              OrderStatus
	History             []StatusChange
	PaymentMethod       PaymentMethod
	IsScheduled         bool
	ScheduledFor        *time.Time
	EstimatedDelivery   *time.Time
	ActualDelivery      *time.Time
	Notes               string
	CancellationReason  string
	RefundAmount        int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	dup := o
	dup.Lines = make([]CartLine, len(o.Lines))
	for i, line := range o.Lines {
		dup.Lines[i] = line.Clone()
	}
	dup.History = append([]StatusChange(nil), o.History...)
	if o.ScheduledFor != nil {
		ts := *o.ScheduledFor
		dup.ScheduledFor = &ts
	}
	if o.EstimatedDelivery != nil {
		ts := *o.EstimatedDelivery
		dup.EstimatedDelivery = &ts
	}
	if o.ActualDelivery != nil {
		ts := *o.ActualDelivery
		dup.ActualDelivery = &ts
	}
	return dup
}

// CancellationRecord is one entry of the per-customer cancellation log
// used to enforce the monthly cancellation cap.
type CancellationRecord struct {
	OrderID    string
	CustomerID string
	Reason     string
	OccurredAt time.Time
}

// PointTransaction is one entry of a loyalty account's append-only
// points history. Positive points are earned, negative redeemed.
type PointTransaction struct {
	ID         string
	CustomerID string
	Points     int
	Reason     string
	OrderID    string
	CreatedAt  time.Time
}
