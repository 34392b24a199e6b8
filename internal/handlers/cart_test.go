package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/emberwok/api/internal/domain"
	"github.com/emberwok/api/internal/services"
)

type stubCartService struct {
	getFn      func(context.Context, string) (domain.Cart, error)
	addFn      func(context.Context, services.AddItemCommand) (domain.Cart, error)
	updateFn   func(context.Context, services.UpdateLineCommand) (domain.Cart, error)
	removeFn   func(context.Context, string, string) (domain.Cart, error)
	clearFn    func(context.Context, string) (domain.Cart, error)
	mergeFn    func(context.Context, services.MergeCartsCommand) (domain.Cart, error)
	applyFn    func(context.Context, services.ApplyDiscountCommand) (domain.Cart, error)
	removeDcFn func(context.Context, string) (domain.Cart, error)
	tipFn      func(context.Context, string, int64) (domain.Cart, error)
	notesFn    func(context.Context, string, string, string) (domain.Cart, error)
	quoteFn    func(context.Context, services.DeliveryQuoteCommand) (domain.Cart, error)
	summaryFn  func(context.Context, string) (services.CartSummary, error)
}

func (s *stubCartService) GetCart(ctx context.Context, cartID string) (domain.Cart, error) {
	if s.getFn != nil {
		return s.getFn(ctx, cartID)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddItemCommand) (domain.Cart, error) {
	if s.addFn != nil {
		return s.addFn(ctx, cmd)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) UpdateLine(ctx context.Context, cmd services.UpdateLineCommand) (domain.Cart, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) RemoveLine(ctx context.Context, cartID, lineID string) (domain.Cart, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, cartID, lineID)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) ClearCart(ctx context.Context, cartID string) (domain.Cart, error) {
	if s.clearFn != nil {
		return s.clearFn(ctx, cartID)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) MergeCarts(ctx context.Context, cmd services.MergeCartsCommand) (domain.Cart, error) {
	if s.mergeFn != nil {
		return s.mergeFn(ctx, cmd)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) ApplyDiscountCode(ctx context.Context, cmd services.ApplyDiscountCommand) (domain.Cart, error) {
	if s.applyFn != nil {
		return s.applyFn(ctx, cmd)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) RemoveDiscountCode(ctx context.Context, cartID string) (domain.Cart, error) {
	if s.removeDcFn != nil {
		return s.removeDcFn(ctx, cartID)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) SetTip(ctx context.Context, cartID string, amount int64) (domain.Cart, error) {
	if s.tipFn != nil {
		return s.tipFn(ctx, cartID, amount)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) SetLineNotes(ctx context.Context, cartID, lineID, notes string) (domain.Cart, error) {
	if s.notesFn != nil {
		return s.notesFn(ctx, cartID, lineID, notes)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) ApplyDeliveryQuote(ctx context.Context, cmd services.DeliveryQuoteCommand) (domain.Cart, error) {
	if s.quoteFn != nil {
		return s.quoteFn(ctx, cmd)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartService) Summary(ctx context.Context, cartID string) (services.CartSummary, error) {
	if s.summaryFn != nil {
		return s.summaryFn(ctx, cartID)
	}
	return services.CartSummary{}, errors.New("not implemented")
}

func newCartRouter(svc services.CartService) http.Handler {
	return NewRouter(WithCartRoutes(NewCartHandlers(svc).Routes))
}

func TestAddItemHandler(t *testing.T) {
	var got services.AddItemCommand
	svc := &stubCartService{
		addFn: func(_ context.Context, cmd services.AddItemCommand) (domain.Cart, error) {
			got = cmd
			return domain.Cart{
				ID:    "crt_1",
				Lines: []domain.CartLine{{ID: "itm_1", MenuItemID: cmd.ItemID, Quantity: cmd.Quantity, UnitPrice: 1400, LineTotal: 2800}},
				Total: 3360,
			}, nil
		},
	}
	router := newCartRouter(svc)

	body := `{"item_id":"item-katsu","quantity":2,"customization":{"size":"large","extra_ids":["ex-rice"]},"notes":"no coriander"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(body))
	req.Header.Set(customerHeader, "cust-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if got.ItemID != "item-katsu" || got.Quantity != 2 || got.CustomerID != "cust-1" {
		t.Fatalf("unexpected command %+v", got)
	}
	if got.Customization.Size != domain.SizeLarge || len(got.Customization.ExtraIDs) != 1 {
		t.Fatalf("customization not decoded %+v", got.Customization)
	}

	var payload cartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Cart.ID != "crt_1" || payload.Cart.Total != 3360 {
		t.Fatalf("unexpected payload %+v", payload.Cart)
	}
}

func TestAddItemHandlerValidation(t *testing.T) {
	svc := &stubCartService{
		addFn: func(context.Context, services.AddItemCommand) (domain.Cart, error) {
			return domain.Cart{}, services.ErrInvalidQuantity
		},
	}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", bytes.NewBufferString(`{"item_id":"item-katsu","quantity":0}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetCartHandlerNotFound(t *testing.T) {
	svc := &stubCartService{
		getFn: func(context.Context, string) (domain.Cart, error) {
			return domain.Cart{}, services.ErrCartNotFound
		},
	}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/crt_missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestAddItemHandlerRejectsEmptyBody(t *testing.T) {
	router := newCartRouter(&stubCartService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestApplyDiscountHandlerRejection(t *testing.T) {
	svc := &stubCartService{
		applyFn: func(context.Context, services.ApplyDiscountCommand) (domain.Cart, error) {
			return domain.Cart{}, services.ErrDiscountRejected
		},
	}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/crt_1/discount", bytes.NewBufferString(`{"code":"NOPE"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestSummaryHandler(t *testing.T) {
	svc := &stubCartService{
		summaryFn: func(_ context.Context, cartID string) (services.CartSummary, error) {
			return services.CartSummary{
				CartID:   cartID,
				Total:    2880,
				Warnings: []string{"only 2 of Pork Gyoza left"},
			}, nil
		},
	}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/crt_1/summary", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var payload cartSummaryPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.CartID != "crt_1" || len(payload.Warnings) != 1 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestSetTipHandler(t *testing.T) {
	var gotAmount int64
	svc := &stubCartService{
		tipFn: func(_ context.Context, _ string, amount int64) (domain.Cart, error) {
			gotAmount = amount
			return domain.Cart{ID: "crt_1", TipAmount: amount}, nil
		},
	}
	router := newCartRouter(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/crt_1/tip", bytes.NewBufferString(`{"amount":300}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if gotAmount != 300 {
		t.Fatalf("expected tip 300 got %d", gotAmount)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}
