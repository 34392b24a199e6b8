package services

import "errors"

// Cart engine sentinels.
var (
	// ErrInvalidInput signals the caller provided invalid data.
	ErrInvalidInput = errors.New("cart: invalid input")
	// ErrCartNotFound indicates the cart does not exist.
	ErrCartNotFound = errors.New("cart: not found")
	// ErrLineNotFound indicates the cart line does not exist.
	ErrLineNotFound = errors.New("cart: line not found")
	// ErrInvalidQuantity indicates a quantity outside the per-line bounds.
	ErrInvalidQuantity = errors.New("cart: invalid quantity")
	// ErrCartFull indicates the cart-wide quantity cap would be exceeded.
	ErrCartFull = errors.New("cart: item limit reached")
	// ErrQuantityLimitExceeded indicates merging would push a line past
	// the per-line quantity cap.
	ErrQuantityLimitExceeded = errors.New("cart: max quantity exceeded")
	// ErrItemNotFound indicates the referenced menu item does not exist.
	ErrItemNotFound = errors.New("cart: item not found")
	// ErrItemUnavailable indicates the item cannot be ordered right now.
	ErrItemUnavailable = errors.New("cart: item not available")
	// ErrInsufficientStock indicates remaining stock cannot cover the
	// requested quantity.
	ErrInsufficientStock = errors.New("cart: insufficient stock")
	// ErrDiscountRejected wraps the gateway's reason for refusing a code.
	ErrDiscountRejected = errors.New("cart: discount code rejected")
)

// Notes sentinels, shared by cart line and order notes.
var (
	ErrNotesTooLong     = errors.New("notes: too long")
	ErrNotesBlocked     = errors.New("notes: inappropriate content")
	ErrNotesContactInfo = errors.New("notes: contact information not allowed")
)

// Order lifecycle sentinels.
var (
	ErrOrderNotFound             = errors.New("order: not found")
	ErrEmptyCart                 = errors.New("order: cart is empty")
	ErrBelowMinimumOrder         = errors.New("order: below minimum order amount")
	ErrNoDeliveryAddress         = errors.New("order: delivery address required")
	ErrOutOfDeliveryZone         = errors.New("order: outside delivery area")
	ErrRestaurantClosed          = errors.New("order: restaurant is closed")
	ErrInvalidStatusTransition   = errors.New("order: invalid status transition")
	ErrUnauthorized              = errors.New("order: not authorized")
	ErrCancellationLimitExceeded = errors.New("order: monthly cancellation limit reached")
	ErrCannotCancel              = errors.New("order: cannot cancel in current status")
	ErrNotScheduled              = errors.New("order: not a scheduled order")
	ErrCutoffPassed              = errors.New("order: modification cutoff passed")
	ErrScheduleTooSoon           = errors.New("order: must schedule at least 1 hour in advance")
	ErrScheduleTooFar            = errors.New("order: cannot schedule more than 7 days in advance")
	ErrNothingToReorder          = errors.New("order: no items available to reorder")
)

// ErrorKind buckets sentinel errors into the broad failure classes the
// transport layer maps onto status codes.
type ErrorKind int

const (
	// KindUnknown covers unclassified failures.
	KindUnknown ErrorKind = iota
	// KindValidation covers bad input shape or range.
	KindValidation
	// KindNotFound covers absent carts, orders, lines, and items.
	KindNotFound
	// KindConflict covers illegal transitions, limits, and cutoffs.
	KindConflict
	// KindResource covers stock, zone, and opening-hour refusals.
	KindResource
)

// Kind classifies an engine error for transport mapping.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrCartNotFound),
		errors.Is(err, ErrLineNotFound),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrOrderNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidStatusTransition),
		errors.Is(err, ErrCancellationLimitExceeded),
		errors.Is(err, ErrCannotCancel),
		errors.Is(err, ErrCutoffPassed),
		errors.Is(err, ErrNotScheduled):
		return KindConflict
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrItemUnavailable),
		errors.Is(err, ErrOutOfDeliveryZone),
		errors.Is(err, ErrRestaurantClosed),
		errors.Is(err, ErrNothingToReorder):
		return KindResource
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrCartFull),
		errors.Is(err, ErrQuantityLimitExceeded),
		errors.Is(err, ErrDiscountRejected),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrBelowMinimumOrder),
		errors.Is(err, ErrNoDeliveryAddress),
		errors.Is(err, ErrScheduleTooSoon),
		errors.Is(err, ErrScheduleTooFar),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrNotesTooLong),
		errors.Is(err, ErrNotesBlocked),
		errors.Is(err, ErrNotesContactInfo):
		return KindValidation
	default:
		return KindUnknown
	}
}

type notFounder interface {
	IsNotFound() bool
}

// isNotFound reports whether any error in the chain identifies itself as
// a not-found failure, the way repository and gateway errors do.
func isNotFound(err error) bool {
	var nf notFounder
	return errors.As(err, &nf) && nf.IsNotFound()
}

type stockShorter interface {
	IsInsufficientStock() bool
}

func isInsufficientStock(err error) bool {
	var short stockShorter
	return errors.As(err, &short) && short.IsInsufficientStock()
}
