package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/emberwok/api/internal/domain"
	"github.com/emberwok/api/internal/platform/httpx"
	"github.com/emberwok/api/internal/services"
)

// CartHandlers exposes the cart endpoints.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers constructs a new CartHandlers instance.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes registers the /cart endpoints.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/items", h.addItem)
	r.Post("/merge", h.mergeCarts)
	r.Get("/{cartID}", h.getCart)
	r.Get("/{cartID}/summary", h.summary)
	r.Delete("/{cartID}/items", h.clearCart)
	r.Patch("/{cartID}/items/{lineID}", h.updateLine)
	r.Delete("/{cartID}/items/{lineID}", h.removeLine)
	r.Put("/{cartID}/items/{lineID}/notes", h.setLineNotes)
	r.Post("/{cartID}/discount", h.applyDiscount)
	r.Delete("/{cartID}/discount", h.removeDiscount)
	r.Put("/{cartID}/tip", h.setTip)
	r.Post("/{cartID}/delivery-quote", h.deliveryQuote)
}

type customizationRequest struct {
	ExtraIDs           []string `json:"extra_ids"`
	RemovedIngredients []string `json:"removed_ingredients"`
	Size               string   `json:"size"`
	SpiceLevel         int      `json:"spice_level"`
	Instructions       string   `json:"instructions"`
}

type addItemRequest struct {
	CartID        string               `json:"cart_id"`
	ItemID        string               `json:"item_id"`
	Quantity      int                  `json:"quantity"`
	Customization customizationRequest `json:"customization"`
	Notes         string               `json:"notes"`
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cart, err := h.carts.AddItem(ctx, services.AddItemCommand{
		CartID:        strings.TrimSpace(req.CartID),
		CustomerID:    customerID(r),
		ItemID:        strings.TrimSpace(req.ItemID),
		Quantity:      req.Quantity,
		Customization: buildCustomization(req.Customization),
		Notes:         req.Notes,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, cart)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cart, err := h.carts.GetCart(ctx, chi.URLParam(r, "cartID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, cart)
}

func (h *CartHandlers) summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.carts.Summary(ctx, chi.URLParam(r, "cartID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCartSummaryPayload(summary))
}

type updateLineRequest struct {
	Quantity *int    `json:"quantity"`
	Notes    *string `json:"notes"`
}

func (h *CartHandlers) updateLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateLineRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cart, err := h.carts.UpdateLine(ctx, services.UpdateLineCommand{
		CartID:   chi.URLParam(r, "cartID"),
		LineID:   chi.URLParam(r, "lineID"),
		Quantity: req.Quantity,
		Notes:    req.Notes,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, cart)
}

func (h *CartHandlers) removeLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cart, err := h.carts.RemoveLine(ctx, chi.URLParam(r, "cartID"), chi.URLParam(r, "lineID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, cart)
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cart, err := h.carts.ClearCart(ctx, chi.URLParam(r, "cartID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, cart)
}

type mergeCartsRequest struct {
	GuestCartID    string `json:"guest_cart_id"`
	CustomerCartID string `json:"customer_cart_id"`
}

func (h *CartHandlers) mergeCarts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req mergeCartsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cart, err := h.carts.MergeCarts(ctx, services.MergeCartsCommand{
		GuestCartID:    strings.TrimSpace(req.GuestCartID),
		CustomerCartID: strings.TrimSpace(req.CustomerCartID),
		CustomerID:     customerID(r),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, cart)
}

type applyDiscountRequest struct {
	Code         string `json:"code"`
	IsFirstOrder bool   `json:"is_first_order"`
}

func (h *CartHandlers) applyDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req applyDiscountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cart, err := h.carts.ApplyDiscountCode(ctx, services.ApplyDiscountCommand{
		CartID:       chi.URLParam(r, "cartID"),
		Code:         strings.TrimSpace(req.Code),
		CustomerID:   customerID(r),
		IsFirstOrder: req.IsFirstOrder,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, cart)
}

func (h *CartHandlers) removeDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cart, err := h.carts.RemoveDiscountCode(ctx, chi.URLParam(r, "cartID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, cart)
}

type setTipRequest struct {
	Amount int64 `json:"amount"`
}

func (h *CartHandlers) setTip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setTipRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cart, err := h.carts.SetTip(ctx, chi.URLParam(r, "cartID"), req.Amount)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, cart)
}

type setLineNotesRequest struct {
	Notes string `json:"notes"`
}

func (h *CartHandlers) setLineNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setLineNotesRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cart, err := h.carts.SetLineNotes(ctx, chi.URLParam(r, "cartID"), chi.URLParam(r, "lineID"), req.Notes)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, cart)
}

type deliveryQuoteRequest struct {
	Postcode   string `json:"postcode"`
	BadWeather bool   `json:"bad_weather"`
}

func (h *CartHandlers) deliveryQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req deliveryQuoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cart, err := h.carts.ApplyDeliveryQuote(ctx, services.DeliveryQuoteCommand{
		CartID:     chi.URLParam(r, "cartID"),
		Postcode:   strings.TrimSpace(req.Postcode),
		BadWeather: req.BadWeather,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeCartResponse(w, http.StatusOK, cart)
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartPayload struct {
	ID             string            `json:"id"`
	CustomerID     string            `json:"customer_id,omitempty"`
	Lines          []cartLinePayload `json:"lines"`
	DiscountCode   string            `json:"discount_code,omitempty"`
	Subtotal       int64             `json:"subtotal"`
	DiscountAmount int64             `json:"discount_amount"`
	TaxAmount      int64             `json:"tax_amount"`
	DeliveryFee    int64             `json:"delivery_fee"`
	TipAmount      int64             `json:"tip_amount"`
	Total          int64             `json:"total"`
	CreatedAt      string            `json:"created_at,omitempty"`
	UpdatedAt      string            `json:"updated_at,omitempty"`
}

type cartLinePayload struct {
	ID            string                `json:"id"`
	MenuItemID    string                `json:"menu_item_id"`
	Quantity      int                   `json:"quantity"`
	Customization *customizationPayload `json:"customization,omitempty"`
	UnitPrice     int64                 `json:"unit_price"`
	LineTotal     int64                 `json:"line_total"`
	Notes         string                `json:"notes,omitempty"`
}

type customizationPayload struct {
	ExtraIDs           []string `json:"extra_ids,omitempty"`
	RemovedIngredients []string `json:"removed_ingredients,omitempty"`
	Size               string   `json:"size,omitempty"`
	SpiceLevel         int      `json:"spice_level,omitempty"`
	Instructions       string   `json:"instructions,omitempty"`
}

type cartSummaryPayload struct {
	CartID         string   `json:"cart_id"`
	ItemCount      int      `json:"item_count"`
	TotalQuantity  int      `json:"total_quantity"`
	Subtotal       int64    `json:"subtotal"`
	DiscountAmount int64    `json:"discount_amount"`
	TaxAmount      int64    `json:"tax_amount"`
	DeliveryFee    int64    `json:"delivery_fee"`
	TipAmount      int64    `json:"tip_amount"`
	Total          int64    `json:"total"`
	DiscountCode   string   `json:"discount_code,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

func writeCartResponse(w http.ResponseWriter, status int, cart domain.Cart) {
	httpx.WriteJSON(w, status, cartResponse{Cart: buildCartPayload(cart)})
}

func buildCartPayload(cart domain.Cart) cartPayload {
	lines := make([]cartLinePayload, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, buildCartLinePayload(line))
	}
	return cartPayload{
		ID:             cart.ID,
		CustomerID:     cart.CustomerID,
		Lines:          lines,
		DiscountCode:   cart.DiscountCode,
		Subtotal:       cart.Subtotal,
		DiscountAmount: cart.DiscountAmount,
		TaxAmount:      cart.TaxAmount,
		DeliveryFee:    cart.DeliveryFee,
		TipAmount:      cart.TipAmount,
		Total:          cart.Total,
		CreatedAt:      formatTime(cart.CreatedAt),
		UpdatedAt:      formatTime(cart.UpdatedAt),
	}
}

func buildCartLinePayload(line domain.CartLine) cartLinePayload {
	return cartLinePayload{
		ID:            line.ID,
		MenuItemID:    line.MenuItemID,
		Quantity:      line.Quantity,
		Customization: buildCustomizationPayload(line.Customization),
		UnitPrice:     line.UnitPrice,
		LineTotal:     line.LineTotal,
		Notes:         line.Notes,
	}
}

func buildCustomizationPayload(c domain.Customization) *customizationPayload {
	if len(c.ExtraIDs) == 0 && len(c.RemovedIngredients) == 0 &&
		c.Size == "" && c.SpiceLevel == 0 && c.Instructions == "" {
		return nil
	}
	return &customizationPayload{
		ExtraIDs:           c.ExtraIDs,
		RemovedIngredients: c.RemovedIngredients,
		Size:               string(c.Size),
		SpiceLevel:         int(c.SpiceLevel),
		Instructions:       c.Instructions,
	}
}

func buildCartSummaryPayload(summary services.CartSummary) cartSummaryPayload {
	return cartSummaryPayload{
		CartID:         summary.CartID,
		ItemCount:      summary.ItemCount,
		TotalQuantity:  summary.TotalQuantity,
		Subtotal:       summary.Subtotal,
		DiscountAmount: summary.DiscountAmount,
		TaxAmount:      summary.TaxAmount,
		DeliveryFee:    summary.DeliveryFee,
		TipAmount:      summary.TipAmount,
		Total:          summary.Total,
		DiscountCode:   summary.DiscountCode,
		Warnings:       summary.Warnings,
	}
}

func buildCustomization(req customizationRequest) domain.Customization {
	return domain.Customization{
		ExtraIDs:           req.ExtraIDs,
		RemovedIngredients: req.RemovedIngredients,
		Size:               domain.ItemSize(strings.TrimSpace(req.Size)),
		SpiceLevel:         domain.SpiceLevel(req.SpiceLevel),
		Instructions:       req.Instructions,
	}
}
