package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/emberwok/api/internal/domain"
	"github.com/emberwok/api/internal/platform/textutil"
	"github.com/emberwok/api/internal/repositories"
)

var (
	errOrderRepositoryRequired = errors.New("order service: order repository is required")
	errOrderCartsRequired      = errors.New("order service: cart repository is required")
	errOrderLogRequired        = errors.New("order service: cancellation log is required")
	errOrderCatalogRequired    = errors.New("order service: catalog gateway is required")
	errOrderDeliveryRequired   = errors.New("order service: delivery gateway is required")
	errOrderLoyaltyRequired    = errors.New("order service: loyalty gateway is required")
	errOrderPricerRequired     = errors.New("order service: pricing engine is required")
	errOrderEstimatorRequired  = errors.New("order service: delivery estimator is required")
)

// orderStateTransitions is the allowed lifecycle graph. Delivered and
// cancelled orders accept no further transitions.
var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:        {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed:      {domain.OrderStatusPreparing, domain.OrderStatusCancelled},
	domain.OrderStatusPreparing:      {domain.OrderStatusReady, domain.OrderStatusCancelled},
	domain.OrderStatusReady:          {domain.OrderStatusOutForDelivery},
	domain.OrderStatusOutForDelivery: {domain.OrderStatusDelivered},
	domain.OrderStatusDelivered:      {},
	domain.OrderStatusCancelled:      {},
}

func canTransition(from, to domain.OrderStatus) bool {
	for _, allowed := range orderStateTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// refundPercents maps the order status at cancellation time to the
// refund percentage. Statuses past preparing cannot be cancelled.
var refundPercents = map[domain.OrderStatus]int{
	domain.OrderStatusPending:   100,
	domain.OrderStatusConfirmed: 100,
	domain.OrderStatusPreparing: 50,
}

// OrderPolicy carries the business rules enforced at placement and
// cancellation time.
type OrderPolicy struct {
	// MinOrderAmount is the smallest accepted subtotal, in pence.
	MinOrderAmount int64
	// OpenHour and CloseHour bound the daily ordering window; orders
	// are accepted when OpenHour <= hour < CloseHour.
	OpenHour  int
	CloseHour int
	// MaxCancellations caps cancellations per customer within
	// CancellationWindow.
	MaxCancellations   int
	CancellationWindow time.Duration
	// PointValue is the redemption value of one loyalty point in pence.
	PointValue int64
	// ScheduleMinLead and ScheduleMaxLead bound how far ahead an order
	// may be scheduled.
	ScheduleMinLead time.Duration
	ScheduleMaxLead time.Duration
	// ModifyCutoff is how long before its scheduled time a scheduled
	// order may still be modified.
	ModifyCutoff time.Duration
	// MaxOrderNotes caps the length of order-level notes.
	MaxOrderNotes int
}

// DefaultOrderPolicy returns the standard rules: 10.00 minimum order,
// 11:00-23:00 opening hours, 3 cancellations per 30 days, 1p points,
// scheduling between 1 hour and 7 days ahead with a 30 minute
// modification cutoff, 500 characters of order notes.
func DefaultOrderPolicy() OrderPolicy {
	return OrderPolicy{
		MinOrderAmount:     1000,
		OpenHour:           11,
		CloseHour:          23,
		MaxCancellations:   3,
		CancellationWindow: 30 * 24 * time.Hour,
		PointValue:         1,
		ScheduleMinLead:    time.Hour,
		ScheduleMaxLead:    7 * 24 * time.Hour,
		ModifyCutoff:       30 * time.Minute,
		MaxOrderNotes:      500,
	}
}

// OrderServiceDeps wires the storage, gateway, and engine dependencies
// for the order lifecycle.
type OrderServiceDeps struct {
	Orders        repositories.OrderRepository
	Carts         repositories.CartRepository
	Cancellations repositories.CancellationLog
	Catalog       CatalogGateway
	Delivery      DeliveryGateway
	Loyalty       LoyaltyGateway
	Pricer        *CartPricingEngine
	Estimator     *DeliveryEstimator
	Policy        OrderPolicy
	Clock         func() time.Time
	Logger        func(context.Context, string, map[string]any)
	IDGenerator   func() string
	// NumberSuffix yields the numeric suffix of generated order
	// numbers. Defaults to a random four-digit value.
	NumberSuffix func() int
	// Locks is the per-aggregate lock set, shared with the cart
	// service so placement and cart mutations on the same cart id
	// serialise. Nil gets a private set.
	Locks *LockSet
}

type orderService struct {
	orders        repositories.OrderRepository
	carts         repositories.CartRepository
	cancellations repositories.CancellationLog
	catalog       CatalogGateway
	delivery      DeliveryGateway
	loyalty       LoyaltyGateway
	pricer        *CartPricingEngine
	estimator     *DeliveryEstimator
	policy        OrderPolicy
	newID         func() string
	numberSuffix  func() int
	now           func() time.Time
	logger        func(context.Context, string, map[string]any)

	locks *LockSet
}

// NewOrderService constructs an OrderService enforcing dependency
// validation. A zero policy falls back to the defaults.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errOrderRepositoryRequired
	}
	if deps.Carts == nil {
		return nil, errOrderCartsRequired
	}
	if deps.Cancellations == nil {
		return nil, errOrderLogRequired
	}
	if deps.Catalog == nil {
		return nil, errOrderCatalogRequired
	}
	if deps.Delivery == nil {
		return nil, errOrderDeliveryRequired
	}
	if deps.Loyalty == nil {
		return nil, errOrderLoyaltyRequired
	}
	if deps.Pricer == nil {
		return nil, errOrderPricerRequired
	}
	if deps.Estimator == nil {
		return nil, errOrderEstimatorRequired
	}

	policy := deps.Policy
	if policy == (OrderPolicy{}) {
		policy = DefaultOrderPolicy()
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	suffix := deps.NumberSuffix
	if suffix == nil {
		suffix = func() int { return rand.IntN(9000) + 1000 }
	}
	locks := deps.Locks
	if locks == nil {
		locks = NewLockSet()
	}

	return &orderService{
		orders:        deps.Orders,
		carts:         deps.Carts,
		cancellations: deps.Cancellations,
		catalog:       deps.Catalog,
		delivery:      deps.Delivery,
		loyalty:       deps.Loyalty,
		pricer:        deps.Pricer,
		estimator:     deps.Estimator,
		policy:        policy,
		newID:         idGen,
		numberSuffix:  suffix,
		now:           func() time.Time { return clock().UTC() },
		logger:        logger,
		locks:         locks,
	}, nil
}

// PlaceOrder converts a cart into a pending order: validates the cart,
// address, stock, and opening hours, applies loyalty points, reserves
// stock, and clears the cart.
func (s *orderService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (domain.Order, error) {
	return s.place(ctx, cmd, nil)
}

// ScheduleOrder places an order for a future time between one hour and
// seven days ahead, inside opening hours and every item's availability
// window.
func (s *orderService) ScheduleOrder(ctx context.Context, cmd ScheduleOrderCommand) (domain.Order, error) {
	now := s.now()
	at := cmd.ScheduledFor.UTC()

	if err := s.checkScheduleSlot(now, at); err != nil {
		return domain.Order{}, err
	}

	return s.place(ctx, cmd.PlaceOrderCommand, &at)
}

// checkScheduleSlot validates a requested slot against the lead-time
// bounds and opening hours.
func (s *orderService) checkScheduleSlot(now, at time.Time) error {
	if at.Sub(now) < s.policy.ScheduleMinLead {
		return ErrScheduleTooSoon
	}
	if at.Sub(now) > s.policy.ScheduleMaxLead {
		return ErrScheduleTooFar
	}
	if hour := at.Hour(); hour < s.policy.OpenHour || hour >= s.policy.CloseHour {
		return fmt.Errorf("%w: at the scheduled time", ErrRestaurantClosed)
	}
	return nil
}

// place is the shared placement path. A non-nil scheduledFor makes the
// order scheduled: item availability is checked at that time and the
// estimate pinned to it.
func (s *orderService) place(ctx context.Context, cmd PlaceOrderCommand, scheduledFor *time.Time) (domain.Order, error) {
	cartID := strings.TrimSpace(cmd.CartID)
	customerID := strings.TrimSpace(cmd.CustomerID)
	if cartID == "" || customerID == "" {
		return domain.Order{}, fmt.Errorf("%w: cart id and customer id are required", ErrInvalidInput)
	}

	unlock := s.locks.lock(cartID)
	defer unlock()

	now := s.now()

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		if isNotFound(err) {
			return domain.Order{}, fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
		}
		return domain.Order{}, err
	}
	if len(cart.Lines) == 0 {
		return domain.Order{}, ErrEmptyCart
	}

	s.pricer.Recalculate(ctx, &cart)

	if cart.Subtotal < s.policy.MinOrderAmount {
		return domain.Order{}, fmt.Errorf("%w: minimum is %s",
			ErrBelowMinimumOrder, domain.FormatGBP(s.policy.MinOrderAmount))
	}

	address := cmd.DeliveryAddress
	if strings.TrimSpace(address.Line1) == "" && strings.TrimSpace(address.Postcode) == "" {
		return domain.Order{}, ErrNoDeliveryAddress
	}
	if address.Zone == domain.ZoneUnknown {
		address.Zone = s.delivery.ResolveZone(address.Postcode)
	}
	if address.Zone == domain.ZoneOutOfRange {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrOutOfDeliveryZone, address.Postcode)
	}

	// Availability is validated for every line before any stock is
	// reserved so a mid-loop failure never leaves a partial
	// reservation behind.
	availabilityAt := now
	if scheduledFor != nil {
		availabilityAt = *scheduledFor
	}
	items := make(map[string]domain.MenuItem, len(cart.Lines))
	for _, line := range cart.Lines {
		item, err := s.catalog.GetItem(ctx, line.MenuItemID)
		if err != nil {
			if isNotFound(err) {
				return domain.Order{}, fmt.Errorf("%w: %s", ErrItemUnavailable, line.MenuItemID)
			}
			return domain.Order{}, err
		}
		if !item.IsAvailable {
			return domain.Order{}, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
		}
		if !item.AvailableAt(availabilityAt) {
			return domain.Order{}, fmt.Errorf("%w: %s is not served at that time", ErrItemUnavailable, item.Name)
		}
		if item.StockQuantity < line.Quantity {
			return domain.Order{}, fmt.Errorf("%w: only %d of %s left",
				ErrInsufficientStock, item.StockQuantity, item.Name)
		}
		items[line.MenuItemID] = item
	}

	if hour := now.Hour(); hour < s.policy.OpenHour || hour >= s.policy.CloseHour {
		return domain.Order{}, fmt.Errorf("%w: orders are accepted %02d:00-%02d:00",
			ErrRestaurantClosed, s.policy.OpenHour, s.policy.CloseHour)
	}

	total := cart.Total
	discount := cart.DiscountAmount
	pointsUsed := 0
	if cmd.LoyaltyPoints > 0 {
		balance, err := s.loyalty.Balance(ctx, customerID)
		if err != nil {
			return domain.Order{}, err
		}
		// Points only apply when the customer holds at least the
		// requested amount; the monetary value is capped at half the
		// order total and the spent-point count recomputed from the
		// capped value.
		if balance >= cmd.LoyaltyPoints {
			value := int64(cmd.LoyaltyPoints) * s.policy.PointValue
			if limit := total / 2; value > limit {
				value = limit
			}
			pointsUsed = int(value / s.policy.PointValue)
			value = int64(pointsUsed) * s.policy.PointValue
			discount += value
			total -= value
		}
	}

	order := domain.Order{
		ID:                "ord_" + s.newID(),
		Number:            s.orderNumber(now),
		CustomerID:        customerID,
		Lines:             cart.Clone().Lines,
		DeliveryAddress:   address,
		Subtotal:          cart.Subtotal,
		DiscountAmount:    discount,
		TaxAmount:         cart.TaxAmount,
		DeliveryFee:       cart.DeliveryFee,
		TipAmount:         cart.TipAmount,
		Total:             total,
		DiscountCodeUsed:  cart.DiscountCode,
		LoyaltyPointsUsed: pointsUsed,
		// One point per whole pound spent, credited on delivery.
		LoyaltyPointsEarned: int(total / 100),
		Status:              domain.OrderStatusPending,
		History: []domain.StatusChange{{
			Status:    domain.OrderStatusPending,
			Timestamp: now,
			Note:      "order placed",
		}},
		PaymentMethod: cmd.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if scheduledFor != nil {
		at := *scheduledFor
		order.IsScheduled = true
		order.ScheduledFor = &at
		order.EstimatedDelivery = &at
	} else {
		estimate := s.estimator.Estimate(cart.TotalQuantity(), address.Zone)
		order.EstimatedDelivery = &estimate.EstimatedArrival
	}

	reserved, err := s.reserveAll(ctx, cart.Lines)
	if err != nil {
		return domain.Order{}, err
	}

	if pointsUsed > 0 {
		if err := s.loyalty.Adjust(ctx, customerID, -pointsUsed, "points redeemed", order.ID); err != nil {
			s.releaseAll(ctx, reserved)
			return domain.Order{}, err
		}
	}

	if err := s.orders.Save(ctx, order); err != nil {
		s.releaseAll(ctx, reserved)
		if pointsUsed > 0 {
			if rerr := s.loyalty.Adjust(ctx, customerID, pointsUsed, "redemption reversed", order.ID); rerr != nil {
				s.logger(ctx, "order.points_reversal_failed", map[string]any{
					"order_id": order.ID,
					"error":    rerr.Error(),
				})
			}
		}
		return domain.Order{}, err
	}

	if order.DiscountCodeUsed != "" {
		if err := s.delivery.MarkUsed(ctx, customerID, order.DiscountCodeUsed); err != nil {
			s.logger(ctx, "order.discount_mark_failed", map[string]any{
				"order_id": order.ID,
				"code":     order.DiscountCodeUsed,
				"error":    err.Error(),
			})
		}
	}

	if err := s.carts.Delete(ctx, cartID); err != nil && !isNotFound(err) {
		s.logger(ctx, "order.cart_delete_failed", map[string]any{
			"order_id": order.ID,
			"cart_id":  cartID,
			"error":    err.Error(),
		})
	}

	s.logger(ctx, "order.placed", map[string]any{
		"order_id":  order.ID,
		"number":    order.Number,
		"total":     order.Total,
		"scheduled": order.IsScheduled,
	})
	return order.Clone(), nil
}

// reserveAll reserves stock for every line, rolling back earlier
// reservations when one fails.
func (s *orderService) reserveAll(ctx context.Context, lines []domain.CartLine) ([]domain.CartLine, error) {
	var reserved []domain.CartLine
	for _, line := range lines {
		if err := s.catalog.ReserveStock(ctx, line.MenuItemID, line.Quantity); err != nil {
			s.releaseAll(ctx, reserved)
			if isInsufficientStock(err) {
				return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, line.MenuItemID)
			}
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: %s", ErrItemUnavailable, line.MenuItemID)
			}
			return nil, err
		}
		reserved = append(reserved, line)
	}
	return reserved, nil
}

func (s *orderService) releaseAll(ctx context.Context, lines []domain.CartLine) {
	for _, line := range lines {
		if err := s.catalog.ReleaseStock(ctx, line.MenuItemID, line.Quantity); err != nil {
			s.logger(ctx, "order.stock_release_failed", map[string]any{
				"item_id": line.MenuItemID,
				"error":   err.Error(),
			})
		}
	}
}

// GetOrder returns an order snapshot.
func (s *orderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return order.Clone(), nil
}

// ListOrders returns the customer's orders, newest first.
func (s *orderService) ListOrders(ctx context.Context, customerID string) ([]domain.Order, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}
	return s.orders.ListByCustomer(ctx, id)
}

// UpdateStatus advances an order through its lifecycle, appending a
// history entry. Delivery records the actual delivery time and credits
// the earned loyalty points; confirmation and preparation refresh the
// delivery estimate.
func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}

	unlock := s.locks.lock(orderID)
	defer unlock()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !canTransition(order.Status, cmd.Status) {
		return domain.Order{}, fmt.Errorf("%w: %s to %s",
			ErrInvalidStatusTransition, order.Status, cmd.Status)
	}

	now := s.now()
	order.Status = cmd.Status
	order.History = append(order.History, domain.StatusChange{
		Status:    cmd.Status,
		Timestamp: now,
		Note:      cmd.Note,
	})
	order.UpdatedAt = now

	switch cmd.Status {
	case domain.OrderStatusConfirmed, domain.OrderStatusPreparing:
		if !order.IsScheduled {
			estimate := s.estimator.Estimate(quantityOf(order.Lines), order.DeliveryAddress.Zone)
			order.EstimatedDelivery = &estimate.EstimatedArrival
		}
	case domain.OrderStatusDelivered:
		order.ActualDelivery = &now
		if order.LoyaltyPointsEarned > 0 && order.CustomerID != domain.AnonymizedCustomerID {
			if err := s.loyalty.Adjust(ctx, order.CustomerID, order.LoyaltyPointsEarned, "points earned", order.ID); err != nil {
				s.logger(ctx, "order.points_award_failed", map[string]any{
					"order_id": order.ID,
					"error":    err.Error(),
				})
			}
		}
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return domain.Order{}, err
	}
	s.logger(ctx, "order.status_updated", map[string]any{
		"order_id": order.ID,
		"status":   string(cmd.Status),
	})
	return order.Clone(), nil
}

// CancelOrder cancels an order on the customer's behalf, releasing
// stock, restoring redeemed points, and recording a refund determined
// by the order's current status.
func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (CancellationResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	customerID := strings.TrimSpace(cmd.CustomerID)
	if orderID == "" || customerID == "" {
		return CancellationResult{}, fmt.Errorf("%w: order id and customer id are required", ErrInvalidInput)
	}

	unlock := s.locks.lock(orderID)
	defer unlock()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return CancellationResult{}, err
	}
	if order.CustomerID != customerID {
		return CancellationResult{}, ErrUnauthorized
	}

	now := s.now()
	count, err := s.cancellations.CountSince(ctx, customerID, now.Add(-s.policy.CancellationWindow))
	if err != nil {
		return CancellationResult{}, err
	}
	if count >= s.policy.MaxCancellations {
		return CancellationResult{}, fmt.Errorf("%w: %d in the last 30 days",
			ErrCancellationLimitExceeded, count)
	}

	percent, ok := refundPercents[order.Status]
	if !ok {
		return CancellationResult{}, fmt.Errorf("%w: %s", ErrCannotCancel, order.Status)
	}
	refund := domain.PercentOf(order.Total, float64(percent))

	order.Status = domain.OrderStatusCancelled
	order.History = append(order.History, domain.StatusChange{
		Status:    domain.OrderStatusCancelled,
		Timestamp: now,
		Note:      cmd.Reason,
	})
	order.CancellationReason = cmd.Reason
	order.RefundAmount = refund
	order.UpdatedAt = now

	s.releaseAll(ctx, order.Lines)

	restored := 0
	if order.LoyaltyPointsUsed > 0 {
		if err := s.loyalty.Adjust(ctx, customerID, order.LoyaltyPointsUsed, "cancellation refund", order.ID); err != nil {
			s.logger(ctx, "order.points_restore_failed", map[string]any{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		} else {
			restored = order.LoyaltyPointsUsed
		}
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return CancellationResult{}, err
	}
	if err := s.cancellations.Record(ctx, domain.CancellationRecord{
		OrderID:    order.ID,
		CustomerID: customerID,
		Reason:     cmd.Reason,
		OccurredAt: now,
	}); err != nil {
		return CancellationResult{}, err
	}

	s.logger(ctx, "order.cancelled", map[string]any{
		"order_id": order.ID,
		"refund":   refund,
		"percent":  percent,
	})
	return CancellationResult{
		Order:          order.Clone(),
		RefundAmount:   refund,
		RefundPercent:  percent,
		PointsRestored: restored,
	}, nil
}

// ModifyScheduledOrder moves a scheduled order to a new time, up to
// thirty minutes before the currently scheduled time.
func (s *orderService) ModifyScheduledOrder(ctx context.Context, cmd ModifyScheduleCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}

	unlock := s.locks.lock(orderID)
	defer unlock()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.CustomerID != strings.TrimSpace(cmd.CustomerID) {
		return domain.Order{}, ErrUnauthorized
	}
	if !order.IsScheduled || order.ScheduledFor == nil {
		return domain.Order{}, ErrNotScheduled
	}

	now := s.now()
	if now.After(order.ScheduledFor.Add(-s.policy.ModifyCutoff)) {
		return domain.Order{}, ErrCutoffPassed
	}

	at := cmd.ScheduledFor.UTC()
	if err := s.checkScheduleSlot(now, at); err != nil {
		return domain.Order{}, err
	}
	order.ScheduledFor = &at
	order.EstimatedDelivery = &at
	order.UpdatedAt = now

	if err := s.orders.Save(ctx, order); err != nil {
		return domain.Order{}, err
	}
	s.logger(ctx, "order.rescheduled", map[string]any{
		"order_id":      order.ID,
		"scheduled_for": at.Format(time.RFC3339),
	})
	return order.Clone(), nil
}

// Reorder rebuilds a cart from a past order at current catalog prices,
// skipping items that can no longer be ordered and reporting price
// changes. At least one item must carry over.
func (s *orderService) Reorder(ctx context.Context, cmd ReorderCommand) (ReorderResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	customerID := strings.TrimSpace(cmd.CustomerID)
	if orderID == "" || customerID == "" {
		return ReorderResult{}, fmt.Errorf("%w: order id and customer id are required", ErrInvalidInput)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return ReorderResult{}, err
	}
	if order.CustomerID != customerID {
		return ReorderResult{}, ErrUnauthorized
	}

	now := s.now()
	result := ReorderResult{}
	var lines []domain.CartLine
	for _, line := range order.Lines {
		item, err := s.catalog.GetItem(ctx, line.MenuItemID)
		switch {
		case err != nil && isNotFound(err):
			result.SkippedItems = append(result.SkippedItems, line.MenuItemID)
			continue
		case err != nil:
			return ReorderResult{}, err
		case !item.IsAvailable || !item.AvailableAt(now):
			result.SkippedItems = append(result.SkippedItems, item.Name)
			continue
		case item.StockQuantity < line.Quantity:
			result.SkippedItems = append(result.SkippedItems, item.Name)
			continue
		}

		price := UnitPrice(item, line.Customization)
		if price != line.UnitPrice {
			result.PriceChanges = append(result.PriceChanges, PriceChange{
				MenuItemID: item.ID,
				Name:       item.Name,
				OldPrice:   line.UnitPrice,
				NewPrice:   price,
			})
		}

		dup := line.Clone()
		dup.ID = "itm_" + s.newID()
		dup.UnitPrice = price
		dup.AddedAt = now
		lines = append(lines, dup)
	}
	if len(lines) == 0 {
		return ReorderResult{}, ErrNothingToReorder
	}

	cartID := strings.TrimSpace(cmd.CartID)
	if cartID == "" {
		cartID = "crt_" + s.newID()
	}

	unlock := s.locks.lock(cartID)
	defer unlock()

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		if !isNotFound(err) {
			return ReorderResult{}, err
		}
		cart = domain.Cart{ID: cartID, CustomerID: customerID, CreatedAt: now}
	}
	cart.Lines = lines
	s.pricer.Recalculate(ctx, &cart)
	cart.UpdatedAt = now

	if err := s.carts.Save(ctx, cart); err != nil {
		return ReorderResult{}, err
	}

	s.logger(ctx, "order.reordered", map[string]any{
		"order_id": order.ID,
		"cart_id":  cart.ID,
		"skipped":  len(result.SkippedItems),
	})
	result.Cart = cart.Clone()
	return result, nil
}

// SetOrderNotes replaces the order-level notes after validating them.
func (s *orderService) SetOrderNotes(ctx context.Context, orderID, customerID, notes string) (domain.Order, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	if len(notes) > s.policy.MaxOrderNotes {
		return domain.Order{}, fmt.Errorf("%w: at most %d characters", ErrNotesTooLong, s.policy.MaxOrderNotes)
	}
	if textutil.ContainsBlockedContent(notes) {
		return domain.Order{}, ErrNotesBlocked
	}
	if textutil.ContainsContactInfo(notes) {
		return domain.Order{}, ErrNotesContactInfo
	}

	unlock := s.locks.lock(id)
	defer unlock()

	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.CustomerID != strings.TrimSpace(customerID) {
		return domain.Order{}, ErrUnauthorized
	}

	order.Notes = textutil.Sanitize(notes)
	order.UpdatedAt = s.now()

	if err := s.orders.Save(ctx, order); err != nil {
		return domain.Order{}, err
	}
	return order.Clone(), nil
}

// AnonymizeCustomer strips the customer reference from every retained
// order, returning how many were rewritten. Orders survive account
// deletion for bookkeeping.
func (s *orderService) AnonymizeCustomer(ctx context.Context, customerID string) (int, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return 0, fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}

	orders, err := s.orders.ListByCustomer(ctx, id)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, order := range orders {
		unlock := s.locks.lock(order.ID)
		current, err := s.loadOrder(ctx, order.ID)
		if err != nil {
			unlock()
			return count, err
		}
		current.CustomerID = domain.AnonymizedCustomerID
		current.UpdatedAt = s.now()
		if err := s.orders.Save(ctx, current); err != nil {
			unlock()
			return count, err
		}
		unlock()
		count++
	}

	s.logger(ctx, "order.customer_anonymized", map[string]any{
		"customer_id": id,
		"orders":      count,
	})
	return count, nil
}

func (s *orderService) loadOrder(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return domain.Order{}, err
	}
	return order, nil
}

// orderNumber builds a human-facing number like ORD-20260829-4821.
func (s *orderService) orderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), s.numberSuffix())
}

func quantityOf(lines []domain.CartLine) int {
	total := 0
	for _, line := range lines {
		total += line.Quantity
	}
	return total
}
