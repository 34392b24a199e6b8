package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	domain "github.com/emberwok/api/internal/domain"
	"github.com/emberwok/api/internal/gateways/catalog"
	"github.com/emberwok/api/internal/repositories/memory"
)

// fakeNotFound mimics the behaviour of gateway and repository not-found
// errors.
type fakeNotFound struct{}

func (fakeNotFound) Error() string    { return "not found" }
func (fakeNotFound) IsNotFound() bool { return true }

type stubDelivery struct {
	zoneFn     func(string) domain.DeliveryZone
	quoteFn    func(context.Context, domain.DeliveryFeeRequest) (domain.DeliveryQuote, error)
	validateFn func(context.Context, domain.DiscountRequest) (domain.DiscountValidation, error)
	lookupFn   func(context.Context, string) (domain.DiscountCode, error)
	markFn     func(context.Context, string, string) error
}

func (s *stubDelivery) ResolveZone(postcode string) domain.DeliveryZone {
	if s.zoneFn != nil {
		return s.zoneFn(postcode)
	}
	return domain.Zone1
}

func (s *stubDelivery) Quote(ctx context.Context, req domain.DeliveryFeeRequest) (domain.DeliveryQuote, error) {
	if s.quoteFn != nil {
		return s.quoteFn(ctx, req)
	}
	return domain.DeliveryQuote{Zone: domain.Zone1, Fee: 200, BaseFee: 200}, nil
}

func (s *stubDelivery) ValidateCode(ctx context.Context, req domain.DiscountRequest) (domain.DiscountValidation, error) {
	if s.validateFn != nil {
		return s.validateFn(ctx, req)
	}
	return domain.DiscountValidation{}, errors.New("no codes configured")
}

func (s *stubDelivery) LookupCode(ctx context.Context, code string) (domain.DiscountCode, error) {
	if s.lookupFn != nil {
		return s.lookupFn(ctx, code)
	}
	return domain.DiscountCode{}, fakeNotFound{}
}

func (s *stubDelivery) MarkUsed(ctx context.Context, customerID, code string) error {
	if s.markFn != nil {
		return s.markFn(ctx, customerID, code)
	}
	return nil
}

type stubLoyalty struct {
	balanceFn func(context.Context, string) (int, error)
	adjustFn  func(context.Context, string, int, string, string) error
}

func (s *stubLoyalty) Balance(ctx context.Context, customerID string) (int, error) {
	if s.balanceFn != nil {
		return s.balanceFn(ctx, customerID)
	}
	return 0, nil
}

func (s *stubLoyalty) Adjust(ctx context.Context, customerID string, delta int, reason, orderID string) error {
	if s.adjustFn != nil {
		return s.adjustFn(ctx, customerID, delta, reason, orderID)
	}
	return nil
}

// sequentialIDs yields 000001, 000002, ... so tests can predict ids.
func sequentialIDs() func() string {
	seq := 0
	return func() string {
		seq++
		return fmt.Sprintf("%06d", seq)
	}
}

func menuFixture() []domain.MenuItem {
	return []domain.MenuItem{
		{
			ID: "item-katsu", Name: "Chicken Katsu Curry", Price: 1200,
			PreparationTime: 12, StockQuantity: 20, IsAvailable: true,
			SizeAdjustments: map[domain.ItemSize]int64{domain.SizeLarge: 200},
			Extras: []domain.ItemExtra{
				{ID: "ex-rice", Name: "Extra rice", Price: 150, IsAvailable: true},
			},
		},
		{
			ID: "item-gyoza", Name: "Pork Gyoza", Price: 650,
			PreparationTime: 8, StockQuantity: 5, IsAvailable: true,
		},
		{
			ID: "item-off", Name: "Seasonal Special", Price: 950,
			PreparationTime: 10, StockQuantity: 10, IsAvailable: false,
		},
		{
			ID: "item-lunch", Name: "Lunch Bento", Price: 1050,
			PreparationTime: 10, StockQuantity: 10, IsAvailable: true,
			Availability: []domain.AvailabilityWindow{
				{Weekday: time.Monday, StartMinute: 11 * 60, EndMinute: 14 * 60},
			},
		},
	}
}

// testNoon is a Monday lunchtime inside the ordering window.
var testNoon = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func newTestCartService(t *testing.T, cat CatalogGateway, del DeliveryGateway, now time.Time) (CartService, *memory.CartRepository) {
	t.Helper()
	if cat == nil {
		cat = catalog.NewService(menuFixture()...)
	}
	if del == nil {
		del = &stubDelivery{}
	}
	repo := memory.NewCartRepository()
	pricer, err := NewCartPricingEngine(CartPricingEngineDeps{
		Codes:   del,
		TaxRate: 0.20,
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new pricing engine: %v", err)
	}
	svc, err := NewCartService(CartServiceDeps{
		Repository:  repo,
		Pricer:      pricer,
		Catalog:     cat,
		Delivery:    del,
		Clock:       func() time.Time { return now },
		IDGenerator: sequentialIDs(),
	})
	if err != nil {
		t.Fatalf("new cart service: %v", err)
	}
	return svc, repo
}

func TestCartAddItemCreatesCart(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{
		CustomerID: "cust-1",
		ItemID:     "item-katsu",
		Quantity:   2,
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	if !strings.HasPrefix(cart.ID, "crt_") {
		t.Fatalf("unexpected cart id %s", cart.ID)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("expected 1 line got %d", len(cart.Lines))
	}
	if !strings.HasPrefix(cart.Lines[0].ID, "itm_") {
		t.Fatalf("unexpected line id %s", cart.Lines[0].ID)
	}
	if cart.Lines[0].UnitPrice != 1200 {
		t.Fatalf("expected unit price 1200 got %d", cart.Lines[0].UnitPrice)
	}
	if cart.Subtotal != 2400 || cart.TaxAmount != 480 || cart.Total != 2880 {
		t.Fatalf("unexpected totals %d/%d/%d", cart.Subtotal, cart.TaxAmount, cart.Total)
	}
	assertCartInvariant(t, cart)
}

func TestCartAddItemMergesMatchingLines(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: 2})
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	cart, err = svc.AddItem(ctx, AddItemCommand{CartID: cart.ID, ItemID: "item-katsu", Quantity: 3})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 5 {
		t.Fatalf("expected merged line of 5, got %d lines", len(cart.Lines))
	}

	// A different size is a different dish and gets its own line.
	cart, err = svc.AddItem(ctx, AddItemCommand{
		CartID:        cart.ID,
		ItemID:        "item-katsu",
		Quantity:      1,
		Customization: domain.Customization{Size: domain.SizeLarge},
	})
	if err != nil {
		t.Fatalf("third add: %v", err)
	}
	if len(cart.Lines) != 2 {
		t.Fatalf("expected 2 lines got %d", len(cart.Lines))
	}
	if cart.Lines[1].UnitPrice != 1400 {
		t.Fatalf("expected large unit price 1400 got %d", cart.Lines[1].UnitPrice)
	}
	assertCartInvariant(t, cart)
}

func TestCartAddItemQuantityBounds(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	for _, qty := range []int{0, -1, 100} {
		_, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: qty})
		if !errors.Is(err, ErrInvalidQuantity) {
			t.Fatalf("quantity %d: expected ErrInvalidQuantity got %v", qty, err)
		}
	}
}

func TestCartAddItemEnforcesCartCap(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: 20})
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	cart, err = svc.AddItem(ctx, AddItemCommand{CartID: cart.ID, ItemID: "item-lunch", Quantity: 10})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	_, err = svc.AddItem(ctx, AddItemCommand{
		CartID:        cart.ID,
		ItemID:        "item-katsu",
		Quantity:      25,
		Customization: domain.Customization{Size: domain.SizeLarge},
	})
	if !errors.Is(err, ErrCartFull) {
		t.Fatalf("expected ErrCartFull got %v", err)
	}
}

func TestCartAddItemRejectsUnknownItem(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	_, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-nope", Quantity: 1})
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound got %v", err)
	}
}

func TestCartAddItemRejectsUnavailableItem(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	_, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-off", Quantity: 1})
	if !errors.Is(err, ErrItemUnavailable) {
		t.Fatalf("expected ErrItemUnavailable got %v", err)
	}
}

func TestCartAddItemRejectsOutsideAvailabilityWindow(t *testing.T) {
	ctx := context.Background()
	afternoon := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	svc, _ := newTestCartService(t, nil, nil, afternoon)

	_, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-lunch", Quantity: 1})
	if !errors.Is(err, ErrItemUnavailable) {
		t.Fatalf("expected ErrItemUnavailable got %v", err)
	}
}

func TestCartAddItemRejectsInsufficientStock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	_, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-gyoza", Quantity: 6})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock got %v", err)
	}
}

func TestCartUpdateLine(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	lineID := cart.Lines[0].ID

	qty := 4
	notes := "no salad"
	cart, err = svc.UpdateLine(ctx, UpdateLineCommand{
		CartID:   cart.ID,
		LineID:   lineID,
		Quantity: &qty,
		Notes:    &notes,
	})
	if err != nil {
		t.Fatalf("update line: %v", err)
	}
	if cart.Lines[0].Quantity != 4 || cart.Lines[0].Notes != "no salad" {
		t.Fatalf("update not applied: %+v", cart.Lines[0])
	}
	if cart.Subtotal != 4800 {
		t.Fatalf("expected subtotal 4800 got %d", cart.Subtotal)
	}
	assertCartInvariant(t, cart)

	_, err = svc.UpdateLine(ctx, UpdateLineCommand{CartID: cart.ID, LineID: "itm_missing", Quantity: &qty})
	if !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound got %v", err)
	}

	zero := 0
	_, err = svc.UpdateLine(ctx, UpdateLineCommand{CartID: cart.ID, LineID: lineID, Quantity: &zero})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity got %v", err)
	}
}

func TestCartUpdateLineChecksStock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-gyoza", Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	qty := 7
	_, err = svc.UpdateLine(ctx, UpdateLineCommand{CartID: cart.ID, LineID: cart.Lines[0].ID, Quantity: &qty})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock got %v", err)
	}
}

func TestCartRemoveLine(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	cart, err = svc.RemoveLine(ctx, cart.ID, cart.Lines[0].ID)
	if err != nil {
		t.Fatalf("remove line: %v", err)
	}
	if len(cart.Lines) != 0 || cart.Total != 0 {
		t.Fatalf("expected empty cart, got %d lines total %d", len(cart.Lines), cart.Total)
	}

	// Removing a line that is not there is not an error.
	if _, err := svc.RemoveLine(ctx, cart.ID, "itm_missing"); err != nil {
		t.Fatalf("remove absent line: %v", err)
	}
}

func TestCartClearKeepsDiscountCode(t *testing.T) {
	ctx := context.Background()
	del := &stubDelivery{
		validateFn: func(_ context.Context, req domain.DiscountRequest) (domain.DiscountValidation, error) {
			return domain.DiscountValidation{Code: "SAVE10", Type: domain.DiscountTypePercentage, Amount: req.Subtotal / 10}, nil
		},
		lookupFn: func(context.Context, string) (domain.DiscountCode, error) {
			return domain.DiscountCode{Code: "SAVE10", Type: domain.DiscountTypePercentage, Value: 10, IsActive: true}, nil
		},
	}
	svc, _ := newTestCartService(t, nil, del, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	cart, err = svc.ApplyDiscountCode(ctx, ApplyDiscountCommand{CartID: cart.ID, Code: "SAVE10"})
	if err != nil {
		t.Fatalf("apply discount: %v", err)
	}

	cart, err = svc.ClearCart(ctx, cart.ID)
	if err != nil {
		t.Fatalf("clear cart: %v", err)
	}
	if len(cart.Lines) != 0 || cart.Total != 0 || cart.TipAmount != 0 {
		t.Fatalf("cart not cleared: %+v", cart)
	}
	if cart.DiscountCode != "SAVE10" {
		t.Fatalf("expected discount code to survive clearing, got %q", cart.DiscountCode)
	}
}

func TestCartMergeCarts(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestCartService(t, nil, nil, testNoon)

	guest, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: 2})
	if err != nil {
		t.Fatalf("guest add: %v", err)
	}
	target, err := svc.AddItem(ctx, AddItemCommand{CustomerID: "cust-1", ItemID: "item-katsu", Quantity: 1})
	if err != nil {
		t.Fatalf("customer add: %v", err)
	}
	target, err = svc.AddItem(ctx, AddItemCommand{CartID: target.ID, ItemID: "item-gyoza", Quantity: 1})
	if err != nil {
		t.Fatalf("customer add 2: %v", err)
	}

	merged, err := svc.MergeCarts(ctx, MergeCartsCommand{
		GuestCartID:    guest.ID,
		CustomerCartID: target.ID,
		CustomerID:     "cust-1",
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged.Lines) != 2 {
		t.Fatalf("expected 2 lines got %d", len(merged.Lines))
	}
	if merged.TotalQuantity() != 4 {
		t.Fatalf("expected quantity 4 got %d", merged.TotalQuantity())
	}
	assertCartInvariant(t, merged)

	if _, err := repo.Get(ctx, guest.ID); err == nil {
		t.Fatalf("expected guest cart deleted")
	}
}

func TestCartMergeCartsGuestMissing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	target, err := svc.AddItem(ctx, AddItemCommand{CustomerID: "cust-1", ItemID: "item-katsu", Quantity: 1})
	if err != nil {
		t.Fatalf("customer add: %v", err)
	}

	merged, err := svc.MergeCarts(ctx, MergeCartsCommand{
		GuestCartID:    "crt_gone",
		CustomerCartID: target.ID,
	})
	if err != nil {
		t.Fatalf("merge with absent guest: %v", err)
	}
	if merged.ID != target.ID || len(merged.Lines) != 1 {
		t.Fatalf("expected untouched customer cart, got %+v", merged)
	}
}

func TestCartMergeCartsAdoptsGuestCart(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestCartService(t, nil, nil, testNoon)

	guest, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: 2})
	if err != nil {
		t.Fatalf("guest add: %v", err)
	}

	merged, err := svc.MergeCarts(ctx, MergeCartsCommand{
		GuestCartID:    guest.ID,
		CustomerCartID: "crt_customer",
		CustomerID:     "cust-1",
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.ID != "crt_customer" || merged.CustomerID != "cust-1" {
		t.Fatalf("expected adopted cart, got %+v", merged)
	}
	if len(merged.Lines) != 1 || merged.Lines[0].Quantity != 2 {
		t.Fatalf("expected guest lines carried over")
	}
	if _, err := repo.Get(ctx, guest.ID); err == nil {
		t.Fatalf("expected guest cart deleted")
	}
}

func TestCartApplyDiscountCodeRejected(t *testing.T) {
	ctx := context.Background()
	del := &stubDelivery{
		validateFn: func(context.Context, domain.DiscountRequest) (domain.DiscountValidation, error) {
			return domain.DiscountValidation{}, errors.New("first order only")
		},
	}
	svc, _ := newTestCartService(t, nil, del, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	before := cart.Total

	_, err = svc.ApplyDiscountCode(ctx, ApplyDiscountCommand{CartID: cart.ID, Code: "WELCOME5"})
	if !errors.Is(err, ErrDiscountRejected) {
		t.Fatalf("expected ErrDiscountRejected got %v", err)
	}

	cart, err = svc.GetCart(ctx, cart.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if cart.DiscountCode != "" || cart.Total != before {
		t.Fatalf("cart mutated by failed discount: %+v", cart)
	}
}

func TestCartApplyDiscountCodeSuccess(t *testing.T) {
	ctx := context.Background()
	del := &stubDelivery{
		validateFn: func(_ context.Context, req domain.DiscountRequest) (domain.DiscountValidation, error) {
			return domain.DiscountValidation{Code: "SAVE10", Type: domain.DiscountTypePercentage, Amount: req.Subtotal / 10}, nil
		},
		lookupFn: func(context.Context, string) (domain.DiscountCode, error) {
			return domain.DiscountCode{
				Code: "SAVE10", Type: domain.DiscountTypePercentage, Value: 10,
				MinOrderAmount: 1500, IsActive: true,
			}, nil
		},
	}
	svc, _ := newTestCartService(t, nil, del, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	cart, err = svc.ApplyDiscountCode(ctx, ApplyDiscountCommand{CartID: cart.ID, Code: "SAVE10"})
	if err != nil {
		t.Fatalf("apply discount: %v", err)
	}

	if cart.DiscountCode != "SAVE10" {
		t.Fatalf("expected code attached got %q", cart.DiscountCode)
	}
	if cart.DiscountAmount != 240 || cart.TaxAmount != 432 || cart.Total != 2592 {
		t.Fatalf("unexpected totals %d/%d/%d", cart.DiscountAmount, cart.TaxAmount, cart.Total)
	}
	assertCartInvariant(t, cart)
}

func TestCartSetTip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	cart, err = svc.SetTip(ctx, cart.ID, 300)
	if err != nil {
		t.Fatalf("set tip: %v", err)
	}
	if cart.TipAmount != 300 || cart.Total != 3180 {
		t.Fatalf("unexpected tip %d total %d", cart.TipAmount, cart.Total)
	}
	assertCartInvariant(t, cart)

	if _, err := svc.SetTip(ctx, cart.ID, -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput got %v", err)
	}
}

func TestCartSetLineNotesValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: 1})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	lineID := cart.Lines[0].ID

	if _, err := svc.SetLineNotes(ctx, cart.ID, lineID, strings.Repeat("x", 201)); !errors.Is(err, ErrNotesTooLong) {
		t.Fatalf("expected ErrNotesTooLong got %v", err)
	}
	if _, err := svc.SetLineNotes(ctx, cart.ID, lineID, "this is spam content"); !errors.Is(err, ErrNotesBlocked) {
		t.Fatalf("expected ErrNotesBlocked got %v", err)
	}

	cart, err = svc.SetLineNotes(ctx, cart.ID, lineID, "extra spicy please")
	if err != nil {
		t.Fatalf("set notes: %v", err)
	}
	if cart.Lines[0].Notes != "extra spicy please" {
		t.Fatalf("notes not applied: %q", cart.Lines[0].Notes)
	}
}

func TestCartApplyDeliveryQuote(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestCartService(t, nil, nil, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	cart, err = svc.ApplyDeliveryQuote(ctx, DeliveryQuoteCommand{CartID: cart.ID, Postcode: "LE1 1AA"})
	if err != nil {
		t.Fatalf("apply quote: %v", err)
	}
	if cart.DeliveryFee != 200 || cart.Total != 3080 {
		t.Fatalf("unexpected fee %d total %d", cart.DeliveryFee, cart.Total)
	}
	assertCartInvariant(t, cart)
}

func TestCartApplyDeliveryQuoteOutOfZone(t *testing.T) {
	ctx := context.Background()
	del := &stubDelivery{zoneFn: func(string) domain.DeliveryZone { return domain.ZoneOutOfRange }}
	svc, _ := newTestCartService(t, nil, del, testNoon)

	_, err := svc.ApplyDeliveryQuote(ctx, DeliveryQuoteCommand{CartID: "crt_1", Postcode: "NG1 1AA"})
	if !errors.Is(err, ErrOutOfDeliveryZone) {
		t.Fatalf("expected ErrOutOfDeliveryZone got %v", err)
	}
}

func TestCartSummaryWarnings(t *testing.T) {
	ctx := context.Background()
	cat := catalog.NewService(menuFixture()...)
	svc, _ := newTestCartService(t, cat, nil, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-gyoza", Quantity: 4})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	// Stock drops under the carted quantity after the fact.
	if err := cat.ReserveStock(ctx, "item-gyoza", 3); err != nil {
		t.Fatalf("reserve stock: %v", err)
	}

	summary, err := svc.Summary(ctx, cart.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalQuantity != 4 || summary.Total != cart.Total {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.Warnings) != 1 || !strings.Contains(summary.Warnings[0], "only 2") {
		t.Fatalf("expected low stock warning, got %v", summary.Warnings)
	}
}

func TestCartGetCartDetachesStaleCode(t *testing.T) {
	ctx := context.Background()
	active := true
	del := &stubDelivery{
		validateFn: func(_ context.Context, req domain.DiscountRequest) (domain.DiscountValidation, error) {
			return domain.DiscountValidation{Code: "SAVE10", Type: domain.DiscountTypePercentage, Amount: req.Subtotal / 10}, nil
		},
	}
	del.lookupFn = func(context.Context, string) (domain.DiscountCode, error) {
		return domain.DiscountCode{Code: "SAVE10", Type: domain.DiscountTypePercentage, Value: 10, IsActive: active}, nil
	}
	svc, repo := newTestCartService(t, nil, del, testNoon)

	cart, err := svc.AddItem(ctx, AddItemCommand{ItemID: "item-katsu", Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	cart, err = svc.ApplyDiscountCode(ctx, ApplyDiscountCommand{CartID: cart.ID, Code: "SAVE10"})
	if err != nil {
		t.Fatalf("apply discount: %v", err)
	}

	// The code is deactivated behind the cart's back.
	active = false

	got, err := svc.GetCart(ctx, cart.ID)
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if got.DiscountCode != "" || got.DiscountAmount != 0 {
		t.Fatalf("expected code detached, got %+v", got)
	}
	if got.Total != 2880 {
		t.Fatalf("expected total back to 2880 got %d", got.Total)
	}

	stored, err := repo.Get(ctx, cart.ID)
	if err != nil {
		t.Fatalf("stored cart: %v", err)
	}
	if stored.DiscountCode != "" {
		t.Fatalf("detachment not persisted")
	}
}
