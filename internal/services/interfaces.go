// Package services contains the cart and order engines: cart mutation
// and pricing, discount handling, order placement, the status lifecycle,
// cancellation with refunds, scheduling, and reordering. Storage and the
// catalog, delivery, and loyalty gateways are injected as interfaces.
package services

import (
	"context"
	"time"

	domain "github.com/emberwok/api/internal/domain"
)

// CatalogGateway exposes the menu plus stock reservation. Reservations
// are expected to be atomic per item.
type CatalogGateway interface {
	GetItem(ctx context.Context, itemID string) (domain.MenuItem, error)
	ReserveStock(ctx context.Context, itemID string, qty int) error
	ReleaseStock(ctx context.Context, itemID string, qty int) error
}

// DeliveryGateway exposes postcode zone resolution, fee quoting, and
// discount code validation.
type DeliveryGateway interface {
	ResolveZone(postcode string) domain.DeliveryZone
	Quote(ctx context.Context, req domain.DeliveryFeeRequest) (domain.DeliveryQuote, error)
	ValidateCode(ctx context.Context, req domain.DiscountRequest) (domain.DiscountValidation, error)
	LookupCode(ctx context.Context, code string) (domain.DiscountCode, error)
	MarkUsed(ctx context.Context, customerID, code string) error
}

// DiscountCodeSource is the slice of the delivery gateway the pricing
// engine needs to revalidate a code already attached to a cart.
type DiscountCodeSource interface {
	LookupCode(ctx context.Context, code string) (domain.DiscountCode, error)
}

// LoyaltyGateway exposes point balances and adjustments.
type LoyaltyGateway interface {
	Balance(ctx context.Context, customerID string) (int, error)
	Adjust(ctx context.Context, customerID string, delta int, reason, orderID string) error
}

// AddItemCommand adds a menu item to a cart, creating the cart when it
// does not exist yet.
type AddItemCommand struct {
	CartID        string
	CustomerID    string
	ItemID        string
	Quantity      int
	Customization domain.Customization
	Notes         string
}

// UpdateLineCommand updates a cart line. Nil fields are left untouched.
type UpdateLineCommand struct {
	CartID   string
	LineID   string
	Quantity *int
	Notes    *string
}

// MergeCartsCommand folds a guest cart into a customer cart at login.
type MergeCartsCommand struct {
	GuestCartID    string
	CustomerCartID string
	CustomerID     string
}

// ApplyDiscountCommand attaches a discount code to a cart.
type ApplyDiscountCommand struct {
	CartID       string
	Code         string
	CustomerID   string
	IsFirstOrder bool
}

// CartSummary is the display view of a cart with per-line availability
// warnings.
type CartSummary struct {
	CartID         string
	ItemCount      int
	TotalQuantity  int
	Subtotal       int64
	DiscountAmount int64
	TaxAmount      int64
	DeliveryFee    int64
	TipAmount      int64
	Total          int64
	DiscountCode   string
	Warnings       []string
}

// CartService mutates carts and keeps their derived monetary fields
// consistent after every operation.
type CartService interface {
	GetCart(ctx context.Context, cartID string) (domain.Cart, error)
	AddItem(ctx context.Context, cmd AddItemCommand) (domain.Cart, error)
	UpdateLine(ctx context.Context, cmd UpdateLineCommand) (domain.Cart, error)
	RemoveLine(ctx context.Context, cartID, lineID string) (domain.Cart, error)
	ClearCart(ctx context.Context, cartID string) (domain.Cart, error)
	MergeCarts(ctx context.Context, cmd MergeCartsCommand) (domain.Cart, error)
	ApplyDiscountCode(ctx context.Context, cmd ApplyDiscountCommand) (domain.Cart, error)
	RemoveDiscountCode(ctx context.Context, cartID string) (domain.Cart, error)
	SetTip(ctx context.Context, cartID string, amount int64) (domain.Cart, error)
	SetLineNotes(ctx context.Context, cartID, lineID, notes string) (domain.Cart, error)
	ApplyDeliveryQuote(ctx context.Context, cmd DeliveryQuoteCommand) (domain.Cart, error)
	Summary(ctx context.Context, cartID string) (CartSummary, error)
}

// DeliveryQuoteCommand prices delivery for a cart and stores the fee on
// it.
type DeliveryQuoteCommand struct {
	CartID     string
	Postcode   string
	BadWeather bool
}

// PlaceOrderCommand converts a cart into an order.
type PlaceOrderCommand struct {
	CartID          string
	CustomerID      string
	DeliveryAddress domain.Address
	PaymentMethod   domain.PaymentMethod
	// LoyaltyPoints is the number of points the customer asked to
	// redeem against the order total.
	LoyaltyPoints int
	BadWeather    bool
}

// ScheduleOrderCommand places an order for a future time.
type ScheduleOrderCommand struct {
	PlaceOrderCommand
	ScheduledFor time.Time
}

// ModifyScheduleCommand moves a scheduled order to a new time.
type ModifyScheduleCommand struct {
	OrderID      string
	CustomerID   string
	ScheduledFor time.Time
}

// UpdateStatusCommand advances an order through its lifecycle.
type UpdateStatusCommand struct {
	OrderID string
	Status  domain.OrderStatus
	Note    string
}

// CancelOrderCommand cancels an order on behalf of its customer.
type CancelOrderCommand struct {
	OrderID    string
	CustomerID string
	Reason     string
}

// CancellationResult reports the refund computed for a cancellation.
type CancellationResult struct {
	Order          domain.Order
	RefundAmount   int64
	RefundPercent  int
	PointsRestored int
}

// ReorderCommand rebuilds a cart from a past order. CartID names the
// target cart; a new cart is created when empty.
type ReorderCommand struct {
	OrderID    string
	CustomerID string
	CartID     string
}

// PriceChange reports an item whose price moved since the original
// order.
type PriceChange struct {
	MenuItemID string
	Name       string
	OldPrice   int64
	NewPrice   int64
}

// ReorderResult carries the rebuilt cart plus what could not be carried
// over unchanged.
type ReorderResult struct {
	Cart         domain.Cart
	SkippedItems []string
	PriceChanges []PriceChange
}

// OrderService owns the order lifecycle from placement to delivery or
// cancellation.
type OrderService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (domain.Order, error)
	ScheduleOrder(ctx context.Context, cmd ScheduleOrderCommand) (domain.Order, error)
	ModifyScheduledOrder(ctx context.Context, cmd ModifyScheduleCommand) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, customerID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (domain.Order, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (CancellationResult, error)
	Reorder(ctx context.Context, cmd ReorderCommand) (ReorderResult, error)
	SetOrderNotes(ctx context.Context, orderID, customerID, notes string) (domain.Order, error)
	AnonymizeCustomer(ctx context.Context, customerID string) (int, error)
}
