package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/emberwok/api/internal/domain"
	"github.com/emberwok/api/internal/platform/textutil"
	"github.com/emberwok/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartPricerRequired     = errors.New("cart service: pricing engine is required")
	errCartCatalogRequired    = errors.New("cart service: catalog gateway is required")
	errCartDeliveryRequired   = errors.New("cart service: delivery gateway is required")
)

// CartLimits are the hard caps enforced on every cart mutation.
type CartLimits struct {
	// MaxCartQuantity caps the summed quantity across all lines.
	MaxCartQuantity int
	// MaxLineQuantity caps the quantity of a single line.
	MaxLineQuantity int
	// MaxLineNotes caps the length of per-line notes.
	MaxLineNotes int
}

// DefaultCartLimits returns the standard caps: 50 items per cart, 99
// per line, 200 characters of line notes.
func DefaultCartLimits() CartLimits {
	return CartLimits{MaxCartQuantity: 50, MaxLineQuantity: 99, MaxLineNotes: 200}
}

// CartServiceDeps wires the repository, pricing, and gateway
// dependencies for cart operations.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Pricer      *CartPricingEngine
	Catalog     CatalogGateway
	Delivery    DeliveryGateway
	Limits      CartLimits
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
	// Locks is the per-aggregate lock set, shared with the order
	// service so placement and cart mutations on the same cart id
	// serialise. Nil gets a private set.
	Locks *LockSet
}

type cartService struct {
	repo     repositories.CartRepository
	pricer   *CartPricingEngine
	catalog  CatalogGateway
	delivery DeliveryGateway
	limits   CartLimits
	newID    func() string
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)

	locks *LockSet
}

// NewCartService constructs a CartService enforcing dependency
// validation. Zero limits fall back to the defaults, a nil clock to
// time.Now, and a nil id generator to ULIDs.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Pricer == nil {
		return nil, errCartPricerRequired
	}
	if deps.Catalog == nil {
		return nil, errCartCatalogRequired
	}
	if deps.Delivery == nil {
		return nil, errCartDeliveryRequired
	}

	limits := deps.Limits
	if limits.MaxCartQuantity <= 0 || limits.MaxLineQuantity <= 0 || limits.MaxLineNotes <= 0 {
		limits = DefaultCartLimits()
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

	locks := deps.Locks
	if locks == nil {
		locks = NewLockSet()
	}

	return &cartService{
		repo:     deps.Repository,
		pricer:   deps.Pricer,
		catalog:  deps.Catalog,
		delivery: deps.Delivery,
		limits:   limits,
		newID:    idGen,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
		locks:    locks,
	}, nil
}

// GetCart loads a cart and recomputes its totals, persisting the result
// when the recompute detached a stale discount code.
func (s *cartService) GetCart(ctx context.Context, cartID string) (domain.Cart, error) {
	id := strings.TrimSpace(cartID)
	if id == "" {
		return domain.Cart{}, fmt.Errorf("%w: cart id is required", ErrInvalidInput)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	cart, err := s.loadCart(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}

	before := cart.Total
	breakdown := s.pricer.Recalculate(ctx, &cart)
	if breakdown.DetachedCode != "" || cart.Total != before {
		cart.UpdatedAt = s.now()
		if err := s.repo.Save(ctx, cart); err != nil {
			return domain.Cart{}, err
		}
	}
	if breakdown.DetachedCode != "" {
		s.logger(ctx, "cart.discount_detached", map[string]any{
			"cart_id": cart.ID,
			"code":    breakdown.DetachedCode,
		})
	}
	return cart.Clone(), nil
}

// AddItem adds a menu item to the cart, creating the cart when absent.
// A line with the same item and customization is merged rather than
// duplicated.
func (s *cartService) AddItem(ctx context.Context, cmd AddItemCommand) (domain.Cart, error) {
	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" {
		return domain.Cart{}, fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}
	if cmd.Quantity < 1 || cmd.Quantity > s.limits.MaxLineQuantity {
		return domain.Cart{}, fmt.Errorf("%w: quantity must be between 1 and %d, got %d",
			ErrInvalidQuantity, s.limits.MaxLineQuantity, cmd.Quantity)
	}

	cartID := strings.TrimSpace(cmd.CartID)
	if cartID == "" {
		cartID = "crt_" + s.newID()
	}

	unlock := s.locks.lock(cartID)
	defer unlock()

	now := s.now()
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		if !errors.Is(err, ErrCartNotFound) {
			return domain.Cart{}, err
		}
		cart = domain.Cart{
			ID:         cartID,
			CustomerID: strings.TrimSpace(cmd.CustomerID),
			CreatedAt:  now,
		}
	}

	if cart.TotalQuantity()+cmd.Quantity > s.limits.MaxCartQuantity {
		return domain.Cart{}, fmt.Errorf("%w: cart holds at most %d items",
			ErrCartFull, s.limits.MaxCartQuantity)
	}

	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		if isNotFound(err) {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
		}
		return domain.Cart{}, err
	}
	if !item.IsAvailable {
		return domain.Cart{}, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
	}
	if !item.AvailableAt(now) {
		return domain.Cart{}, fmt.Errorf("%w: %s is not served at this time", ErrItemUnavailable, item.Name)
	}

	notes := textutil.Truncate(textutil.Sanitize(cmd.Notes), s.limits.MaxLineNotes)

	merged := false
	for i := range cart.Lines {
		line := &cart.Lines[i]
		if line.MenuItemID != itemID || !line.Customization.Equal(cmd.Customization) {
			continue
		}
		newQty := line.Quantity + cmd.Quantity
		if newQty > s.limits.MaxLineQuantity {
			return domain.Cart{}, fmt.Errorf("%w: at most %d of the same item",
				ErrQuantityLimitExceeded, s.limits.MaxLineQuantity)
		}
		if item.StockQuantity < newQty {
			return domain.Cart{}, fmt.Errorf("%w: only %d of %s left",
				ErrInsufficientStock, item.StockQuantity, item.Name)
		}
		line.Quantity = newQty
		if notes != "" {
			line.Notes = notes
		}
		merged = true
		break
	}

	if !merged {
		if item.StockQuantity < cmd.Quantity {
			return domain.Cart{}, fmt.Errorf("%w: only %d of %s left",
				ErrInsufficientStock, item.StockQuantity, item.Name)
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ID:            "itm_" + s.newID(),
			MenuItemID:    itemID,
			Quantity:      cmd.Quantity,
			Customization: cmd.Customization,
			UnitPrice:     UnitPrice(item, cmd.Customization),
			Notes:         notes,
			AddedAt:       now,
		})
	}

	saved, err := s.finish(ctx, &cart)
	if err != nil {
		return domain.Cart{}, err
	}
	s.logger(ctx, "cart.item_added", map[string]any{
		"cart_id":  cart.ID,
		"item_id":  itemID,
		"quantity": cmd.Quantity,
		"merged":   merged,
	})
	return saved, nil
}

// UpdateLine applies the non-nil fields of the command to a cart line.
func (s *cartService) UpdateLine(ctx context.Context, cmd UpdateLineCommand) (domain.Cart, error) {
	cartID := strings.TrimSpace(cmd.CartID)
	lineID := strings.TrimSpace(cmd.LineID)
	if cartID == "" || lineID == "" {
		return domain.Cart{}, fmt.Errorf("%w: cart id and line id are required", ErrInvalidInput)
	}
	if cmd.Quantity == nil && cmd.Notes == nil {
		return domain.Cart{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}

	unlock := s.locks.lock(cartID)
	defer unlock()

	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}

	idx := -1
	for i := range cart.Lines {
		if cart.Lines[i].ID == lineID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Cart{}, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}
	line := &cart.Lines[idx]

	if cmd.Quantity != nil {
		qty := *cmd.Quantity
		if qty < 1 || qty > s.limits.MaxLineQuantity {
			return domain.Cart{}, fmt.Errorf("%w: quantity must be between 1 and %d, got %d",
				ErrInvalidQuantity, s.limits.MaxLineQuantity, qty)
		}
		if cart.TotalQuantity()-line.Quantity+qty > s.limits.MaxCartQuantity {
			return domain.Cart{}, fmt.Errorf("%w: cart holds at most %d items",
				ErrCartFull, s.limits.MaxCartQuantity)
		}
		// Tolerate items that have left the menu; the stock check
		// happens again at placement.
		if item, err := s.catalog.GetItem(ctx, line.MenuItemID); err == nil && item.StockQuantity < qty {
			return domain.Cart{}, fmt.Errorf("%w: only %d of %s left",
				ErrInsufficientStock, item.StockQuantity, item.Name)
		}
		line.Quantity = qty
	}

	if cmd.Notes != nil {
		notes, err := s.validateLineNotes(*cmd.Notes)
		if err != nil {
			return domain.Cart{}, err
		}
		line.Notes = notes
	}

	saved, err := s.finish(ctx, &cart)
	if err != nil {
		return domain.Cart{}, err
	}
	s.logger(ctx, "cart.line_updated", map[string]any{"cart_id": cart.ID, "line_id": lineID})
	return saved, nil
}

// RemoveLine deletes a line from the cart. Removing a line that is not
// there is a no-op.
func (s *cartService) RemoveLine(ctx context.Context, cartID, lineID string) (domain.Cart, error) {
	id := strings.TrimSpace(cartID)
	if id == "" {
		return domain.Cart{}, fmt.Errorf("%w: cart id is required", ErrInvalidInput)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	cart, err := s.loadCart(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}

	kept := cart.Lines[:0]
	for _, line := range cart.Lines {
		if line.ID != lineID {
			kept = append(kept, line)
		}
	}
	cart.Lines = kept

	saved, err := s.finish(ctx, &cart)
	if err != nil {
		return domain.Cart{}, err
	}
	s.logger(ctx, "cart.line_removed", map[string]any{"cart_id": cart.ID, "line_id": lineID})
	return saved, nil
}

// ClearCart removes every line, the tip, and the delivery fee. The
// attached discount code survives so the customer does not have to
// re-enter it.
func (s *cartService) ClearCart(ctx context.Context, cartID string) (domain.Cart, error) {
	id := strings.TrimSpace(cartID)
	if id == "" {
		return domain.Cart{}, fmt.Errorf("%w: cart id is required", ErrInvalidInput)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	cart, err := s.loadCart(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}

	cart.Lines = nil
	cart.TipAmount = 0
	cart.DeliveryFee = 0

	saved, err := s.finish(ctx, &cart)
	if err != nil {
		return domain.Cart{}, err
	}
	s.logger(ctx, "cart.cleared", map[string]any{"cart_id": cart.ID})
	return saved, nil
}

// MergeCarts folds a guest cart into the customer's cart at login.
// Lines with the same item and customization are combined, capped at
// the per-line limit; the guest cart is deleted afterwards. A missing
// guest cart is a no-op, and a missing customer cart adopts the guest
// cart wholesale.
func (s *cartService) MergeCarts(ctx context.Context, cmd MergeCartsCommand) (domain.Cart, error) {
	guestID := strings.TrimSpace(cmd.GuestCartID)
	customerCartID := strings.TrimSpace(cmd.CustomerCartID)
	if guestID == "" || customerCartID == "" {
		return domain.Cart{}, fmt.Errorf("%w: both cart ids are required", ErrInvalidInput)
	}
	if guestID == customerCartID {
		return s.GetCart(ctx, customerCartID)
	}

	unlock := s.locks.lockAll(guestID, customerCartID)
	defer unlock()

	guest, err := s.loadCart(ctx, guestID)
	if err != nil {
		if !errors.Is(err, ErrCartNotFound) {
			return domain.Cart{}, err
		}
		cart, err := s.loadCart(ctx, customerCartID)
		if err != nil {
			return domain.Cart{}, err
		}
		return cart.Clone(), nil
	}

	target, err := s.loadCart(ctx, customerCartID)
	if err != nil {
		if !errors.Is(err, ErrCartNotFound) {
			return domain.Cart{}, err
		}
		// No customer cart yet: the guest cart becomes it.
		target = guest.Clone()
		target.ID = customerCartID
		target.CustomerID = strings.TrimSpace(cmd.CustomerID)
	} else {
		if cid := strings.TrimSpace(cmd.CustomerID); cid != "" {
			target.CustomerID = cid
		}
		for _, line := range guest.Lines {
			s.mergeLine(&target, line)
		}
		if target.DiscountCode == "" && guest.DiscountCode != "" {
			target.DiscountCode = guest.DiscountCode
		}
	}

	saved, err := s.finish(ctx, &target)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.repo.Delete(ctx, guestID); err != nil && !isNotFound(err) {
		return domain.Cart{}, err
	}
	s.logger(ctx, "cart.merged", map[string]any{
		"guest_cart_id": guestID,
		"cart_id":       customerCartID,
	})
	return saved, nil
}

// mergeLine folds one guest line into the target cart, respecting the
// per-line and cart-wide caps. Quantities that do not fit are dropped.
func (s *cartService) mergeLine(target *domain.Cart, line domain.CartLine) {
	room := s.limits.MaxCartQuantity - target.TotalQuantity()
	if room <= 0 {
		return
	}
	qty := line.Quantity
	if qty > room {
		qty = room
	}

	for i := range target.Lines {
		existing := &target.Lines[i]
		if existing.MenuItemID != line.MenuItemID || !existing.Customization.Equal(line.Customization) {
			continue
		}
		newQty := existing.Quantity + qty
		if newQty > s.limits.MaxLineQuantity {
			newQty = s.limits.MaxLineQuantity
		}
		existing.Quantity = newQty
		return
	}

	dup := line.Clone()
	dup.Quantity = qty
	target.Lines = append(target.Lines, dup)
}

// ApplyDiscountCode validates a code through the delivery gateway and
// attaches it. The cart is untouched when validation fails.
func (s *cartService) ApplyDiscountCode(ctx context.Context, cmd ApplyDiscountCommand) (domain.Cart, error) {
	cartID := strings.TrimSpace(cmd.CartID)
	if cartID == "" {
		return domain.Cart{}, fmt.Errorf("%w: cart id is required", ErrInvalidInput)
	}

	unlock := s.locks.lock(cartID)
	defer unlock()

	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}

	validation, err := s.delivery.ValidateCode(ctx, domain.DiscountRequest{
		Code:         cmd.Code,
		Subtotal:     cart.Subtotal,
		CustomerID:   strings.TrimSpace(cmd.CustomerID),
		IsFirstOrder: cmd.IsFirstOrder,
	})
	if err != nil {
		return domain.Cart{}, fmt.Errorf("%w: %w", ErrDiscountRejected, err)
	}

	cart.DiscountCode = validation.Code

	saved, err := s.finish(ctx, &cart)
	if err != nil {
		return domain.Cart{}, err
	}
	s.logger(ctx, "cart.discount_applied", map[string]any{
		"cart_id": cart.ID,
		"code":    validation.Code,
	})
	return saved, nil
}

// RemoveDiscountCode detaches the discount code from the cart.
func (s *cartService) RemoveDiscountCode(ctx context.Context, cartID string) (domain.Cart, error) {
	id := strings.TrimSpace(cartID)
	if id == "" {
		return domain.Cart{}, fmt.Errorf("%w: cart id is required", ErrInvalidInput)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	cart, err := s.loadCart(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}

	code := cart.DiscountCode
	cart.DiscountCode = ""

	saved, err := s.finish(ctx, &cart)
	if err != nil {
		return domain.Cart{}, err
	}
	if code != "" {
		s.logger(ctx, "cart.discount_removed", map[string]any{"cart_id": cart.ID, "code": code})
	}
	return saved, nil
}

// SetTip stores a tip amount on the cart.
func (s *cartService) SetTip(ctx context.Context, cartID string, amount int64) (domain.Cart, error) {
	id := strings.TrimSpace(cartID)
	if id == "" {
		return domain.Cart{}, fmt.Errorf("%w: cart id is required", ErrInvalidInput)
	}
	if amount < 0 {
		return domain.Cart{}, fmt.Errorf("%w: tip cannot be negative", ErrInvalidInput)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	cart, err := s.loadCart(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}

	cart.TipAmount = amount

	saved, err := s.finish(ctx, &cart)
	if err != nil {
		return domain.Cart{}, err
	}
	s.logger(ctx, "cart.tip_set", map[string]any{"cart_id": cart.ID, "amount": amount})
	return saved, nil
}

// SetLineNotes replaces the notes on a cart line after validating them.
func (s *cartService) SetLineNotes(ctx context.Context, cartID, lineID, notes string) (domain.Cart, error) {
	id := strings.TrimSpace(cartID)
	if id == "" || strings.TrimSpace(lineID) == "" {
		return domain.Cart{}, fmt.Errorf("%w: cart id and line id are required", ErrInvalidInput)
	}

	clean, err := s.validateLineNotes(notes)
	if err != nil {
		return domain.Cart{}, err
	}

	unlock := s.locks.lock(id)
	defer unlock()

	cart, err := s.loadCart(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}

	found := false
	for i := range cart.Lines {
		if cart.Lines[i].ID == lineID {
			cart.Lines[i].Notes = clean
			found = true
			break
		}
	}
	if !found {
		return domain.Cart{}, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}

	return s.finish(ctx, &cart)
}

// ApplyDeliveryQuote resolves the zone for a postcode, prices delivery
// through the gateway, and stores the fee on the cart.
func (s *cartService) ApplyDeliveryQuote(ctx context.Context, cmd DeliveryQuoteCommand) (domain.Cart, error) {
	cartID := strings.TrimSpace(cmd.CartID)
	postcode := strings.TrimSpace(cmd.Postcode)
	if cartID == "" {
		return domain.Cart{}, fmt.Errorf("%w: cart id is required", ErrInvalidInput)
	}
	if postcode == "" {
		return domain.Cart{}, fmt.Errorf("%w: postcode is required", ErrInvalidInput)
	}

	if s.delivery.ResolveZone(postcode) == domain.ZoneOutOfRange {
		return domain.Cart{}, fmt.Errorf("%w: %s", ErrOutOfDeliveryZone, postcode)
	}

	unlock := s.locks.lock(cartID)
	defer unlock()

	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}

	quote, err := s.delivery.Quote(ctx, domain.DeliveryFeeRequest{
		Postcode:   postcode,
		Subtotal:   cart.Subtotal,
		BadWeather: cmd.BadWeather,
	})
	if err != nil {
		return domain.Cart{}, err
	}

	cart.DeliveryFee = quote.Fee

	saved, err := s.finish(ctx, &cart)
	if err != nil {
		return domain.Cart{}, err
	}
	s.logger(ctx, "cart.delivery_quoted", map[string]any{
		"cart_id": cart.ID,
		"zone":    int(quote.Zone),
		"fee":     quote.Fee,
	})
	return saved, nil
}

// Summary returns the display view of a cart with availability warnings
// for lines that could no longer be ordered as they stand.
func (s *cartService) Summary(ctx context.Context, cartID string) (CartSummary, error) {
	cart, err := s.GetCart(ctx, cartID)
	if err != nil {
		return CartSummary{}, err
	}

	now := s.now()
	summary := CartSummary{
		CartID:         cart.ID,
		ItemCount:      len(cart.Lines),
		TotalQuantity:  cart.TotalQuantity(),
		Subtotal:       cart.Subtotal,
		DiscountAmount: cart.DiscountAmount,
		TaxAmount:      cart.TaxAmount,
		DeliveryFee:    cart.DeliveryFee,
		TipAmount:      cart.TipAmount,
		Total:          cart.Total,
		DiscountCode:   cart.DiscountCode,
	}

	for _, line := range cart.Lines {
		item, err := s.catalog.GetItem(ctx, line.MenuItemID)
		switch {
		case err != nil && isNotFound(err):
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("%s is no longer on the menu", line.MenuItemID))
		case err != nil:
			return CartSummary{}, err
		case !item.IsAvailable:
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("%s is currently unavailable", item.Name))
		case !item.AvailableAt(now):
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("%s is not served at this time", item.Name))
		case item.StockQuantity < line.Quantity:
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("only %d of %s left", item.StockQuantity, item.Name))
		}
	}
	return summary, nil
}

// loadCart fetches a cart translating storage not-found into the
// service sentinel.
func (s *cartService) loadCart(ctx context.Context, cartID string) (domain.Cart, error) {
	cart, err := s.repo.Get(ctx, cartID)
	if err != nil {
		if isNotFound(err) {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
		}
		return domain.Cart{}, err
	}
	return cart, nil
}

// finish recomputes the cart's totals, stamps it, and persists it,
// returning a defensive copy.
func (s *cartService) finish(ctx context.Context, cart *domain.Cart) (domain.Cart, error) {
	breakdown := s.pricer.Recalculate(ctx, cart)
	cart.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, *cart); err != nil {
		return domain.Cart{}, err
	}
	if breakdown.DetachedCode != "" {
		s.logger(ctx, "cart.discount_detached", map[string]any{
			"cart_id": cart.ID,
			"code":    breakdown.DetachedCode,
		})
	}
	return cart.Clone(), nil
}

// validateLineNotes sanitises notes and rejects over-long or
// inappropriate content.
func (s *cartService) validateLineNotes(notes string) (string, error) {
	if len(notes) > s.limits.MaxLineNotes {
		return "", fmt.Errorf("%w: at most %d characters", ErrNotesTooLong, s.limits.MaxLineNotes)
	}
	if textutil.ContainsBlockedContent(notes) {
		return "", ErrNotesBlocked
	}
	return textutil.Sanitize(notes), nil
}
