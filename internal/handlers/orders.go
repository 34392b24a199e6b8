package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/emberwok/api/internal/domain"
	"github.com/emberwok/api/internal/platform/httpx"
	"github.com/emberwok/api/internal/services"
)

var validOrderStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusPending:        {},
	domain.OrderStatusConfirmed:      {},
	domain.OrderStatusPreparing:      {},
	domain.OrderStatusReady:          {},
	domain.OrderStatusOutForDelivery: {},
	domain.OrderStatusDelivered:      {},
	domain.OrderStatusCancelled:      {},
}

// OrderHandlers exposes the order lifecycle endpoints.
type OrderHandlers struct {
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.placeOrder)
	r.Get("/", h.listOrders)
	r.Post("/scheduled", h.scheduleOrder)
	r.Get("/{orderID}", h.getOrder)
	r.Patch("/{orderID}/schedule", h.modifySchedule)
	r.Put("/{orderID}/status", h.updateStatus)
	r.Put("/{orderID}/notes", h.setNotes)
	r.Post("/{orderID}:cancel", h.cancelOrder)
	r.Post("/{orderID}:reorder", h.reorder)
	r.Post("/customer:anonymize", h.anonymizeCustomer)
}

type addressRequest struct {
	Line1        string `json:"line1"`
	Line2        string `json:"line2"`
	City         string `json:"city"`
	Postcode     string `json:"postcode"`
	Country      string `json:"country"`
	Instructions string `json:"instructions"`
}

type placeOrderRequest struct {
	CartID          string         `json:"cart_id"`
	DeliveryAddress addressRequest `json:"delivery_address"`
	PaymentMethod   string         `json:"payment_method"`
	LoyaltyPoints   int            `json:"loyalty_points"`
	BadWeather      bool           `json:"bad_weather"`
	ScheduledFor    string         `json:"scheduled_for,omitempty"`
}

func (h *OrderHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customer := customerID(r)
	if customer == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "customer identification required", http.StatusUnauthorized))
		return
	}

	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.orders.PlaceOrder(ctx, buildPlaceOrderCommand(req, customer))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeOrderResponse(w, http.StatusCreated, order)
}

func (h *OrderHandlers) scheduleOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customer := customerID(r)
	if customer == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "customer identification required", http.StatusUnauthorized))
		return
	}

	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	at, err := parseTimeParam(req.ScheduledFor)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "scheduled_for must be a valid RFC3339 timestamp", http.StatusBadRequest))
		return
	}

	order, err := h.orders.ScheduleOrder(ctx, services.ScheduleOrderCommand{
		PlaceOrderCommand: buildPlaceOrderCommand(req, customer),
		ScheduledFor:      at,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeOrderResponse(w, http.StatusCreated, order)
}

type modifyScheduleRequest struct {
	ScheduledFor string `json:"scheduled_for"`
}

func (h *OrderHandlers) modifySchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req modifyScheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	at, err := parseTimeParam(req.ScheduledFor)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "scheduled_for must be a valid RFC3339 timestamp", http.StatusBadRequest))
		return
	}

	order, err := h.orders.ModifyScheduledOrder(ctx, services.ModifyScheduleCommand{
		OrderID:      chi.URLParam(r, "orderID"),
		CustomerID:   customerID(r),
		ScheduledFor: at,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeOrderResponse(w, http.StatusOK, order)
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeOrderResponse(w, http.StatusOK, order)
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customer := customerID(r)
	if customer == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "customer identification required", http.StatusUnauthorized))
		return
	}

	orders, err := h.orders.ListOrders(ctx, customer)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(orders))
	for _, order := range orders {
		items = append(items, buildOrderSummary(order))
	}
	httpx.WriteJSON(w, http.StatusOK, orderListResponse{Items: items})
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *OrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if _, ok := validOrderStatuses[status]; !ok {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateStatus(ctx, services.UpdateStatusCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Status:  status,
		Note:    strings.TrimSpace(req.Note),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeOrderResponse(w, http.StatusOK, order)
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type cancelOrderResponse struct {
	Order          orderPayload `json:"order"`
	RefundAmount   int64        `json:"refund_amount"`
	RefundPercent  int          `json:"refund_percent"`
	PointsRestored int          `json:"points_restored"`
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req cancelOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.orders.CancelOrder(ctx, services.CancelOrderCommand{
		OrderID:    chi.URLParam(r, "orderID"),
		CustomerID: customerID(r),
		Reason:     strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cancelOrderResponse{
		Order:          buildOrderPayload(result.Order),
		RefundAmount:   result.RefundAmount,
		RefundPercent:  result.RefundPercent,
		PointsRestored: result.PointsRestored,
	})
}

type reorderRequest struct {
	CartID string `json:"cart_id"`
}

type reorderResponse struct {
	Cart         cartPayload          `json:"cart"`
	SkippedItems []string             `json:"skipped_items,omitempty"`
	PriceChanges []priceChangePayload `json:"price_changes,omitempty"`
}

type priceChangePayload struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	OldPrice   int64  `json:"old_price"`
	NewPrice   int64  `json:"new_price"`
}

func (h *OrderHandlers) reorder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req reorderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.orders.Reorder(ctx, services.ReorderCommand{
		OrderID:    chi.URLParam(r, "orderID"),
		CustomerID: customerID(r),
		CartID:     strings.TrimSpace(req.CartID),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	changes := make([]priceChangePayload, 0, len(result.PriceChanges))
	for _, change := range result.PriceChanges {
		changes = append(changes, priceChangePayload{
			MenuItemID: change.MenuItemID,
			Name:       change.Name,
			OldPrice:   change.OldPrice,
			NewPrice:   change.NewPrice,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, reorderResponse{
		Cart:         buildCartPayload(result.Cart),
		SkippedItems: result.SkippedItems,
		PriceChanges: changes,
	})
}

type setOrderNotesRequest struct {
	Notes string `json:"notes"`
}

func (h *OrderHandlers) setNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req setOrderNotesRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.orders.SetOrderNotes(ctx, chi.URLParam(r, "orderID"), customerID(r), req.Notes)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeOrderResponse(w, http.StatusOK, order)
}

type anonymizeResponse struct {
	OrdersAnonymized int `json:"orders_anonymized"`
}

// anonymizeCustomer scrubs the caller's identity from their order
// history. The orders themselves are retained for reporting.
func (h *OrderHandlers) anonymizeCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customer := customerID(r)
	if customer == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "customer identification required", http.StatusUnauthorized))
		return
	}

	count, err := h.orders.AnonymizeCustomer(ctx, customer)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, anonymizeResponse{OrdersAnonymized: count})
}

type orderListResponse struct {
	Items []orderSummaryPayload `json:"items"`
}

type orderSummaryPayload struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	Total       int64  `json:"total"`
	IsScheduled bool   `json:"is_scheduled,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID                  string                `json:"id"`
	OrderNumber         string                `json:"order_number"`
	CustomerID          string                `json:"customer_id"`
	Status              string                `json:"status"`
	Lines               []cartLinePayload     `json:"lines"`
	DeliveryAddress     addressPayload        `json:"delivery_address"`
	Subtotal            int64                 `json:"subtotal"`
	DiscountAmount      int64                 `json:"discount_amount"`
	TaxAmount           int64                 `json:"tax_amount"`
	DeliveryFee         int64                 `json:"delivery_fee"`
	TipAmount           int64                 `json:"tip_amount"`
	Total               int64                 `json:"total"`
	DiscountCodeUsed    string                `json:"discount_code_used,omitempty"`
	LoyaltyPointsUsed   int                   `json:"loyalty_points_used,omitempty"`
	LoyaltyPointsEarned int                   `json:"loyalty_points_earned,omitempty"`
	PaymentMethod       string                `json:"payment_method,omitempty"`
	History             []statusChangePayload `json:"history"`
	IsScheduled         bool                  `json:"is_scheduled,omitempty"`
	ScheduledFor        string                `json:"scheduled_for,omitempty"`
	EstimatedDelivery   string                `json:"estimated_delivery,omitempty"`
	ActualDelivery      string                `json:"actual_delivery,omitempty"`
	Notes               string                `json:"notes,omitempty"`
	CancellationReason  string                `json:"cancellation_reason,omitempty"`
	RefundAmount        int64                 `json:"refund_amount,omitempty"`
	CreatedAt           string                `json:"created_at"`
	UpdatedAt           string                `json:"updated_at"`
}

type addressPayload struct {
	Line1        string `json:"line1"`
	Line2        string `json:"line2,omitempty"`
	City         string `json:"city,omitempty"`
	Postcode     string `json:"postcode"`
	Country      string `json:"country,omitempty"`
	Zone         int    `json:"zone,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type statusChangePayload struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Note      string `json:"note,omitempty"`
}

func writeOrderResponse(w http.ResponseWriter, status int, order domain.Order) {
	httpx.WriteJSON(w, status, orderResponse{Order: buildOrderPayload(order)})
}

func buildPlaceOrderCommand(req placeOrderRequest, customer string) services.PlaceOrderCommand {
	return services.PlaceOrderCommand{
		CartID:     strings.TrimSpace(req.CartID),
		CustomerID: customer,
		DeliveryAddress: domain.Address{
			Line1:        strings.TrimSpace(req.DeliveryAddress.Line1),
			Line2:        strings.TrimSpace(req.DeliveryAddress.Line2),
			City:         strings.TrimSpace(req.DeliveryAddress.City),
			Postcode:     strings.TrimSpace(req.DeliveryAddress.Postcode),
			Country:      strings.TrimSpace(req.DeliveryAddress.Country),
			Instructions: strings.TrimSpace(req.DeliveryAddress.Instructions),
		},
		PaymentMethod: domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
		LoyaltyPoints: req.LoyaltyPoints,
		BadWeather:    req.BadWeather,
	}
}

func buildOrderSummary(order domain.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:          order.ID,
		OrderNumber: order.Number,
		Status:      string(order.Status),
		Total:       order.Total,
		IsScheduled: order.IsScheduled,
		CreatedAt:   formatTime(order.CreatedAt),
	}
}

func buildOrderPayload(order domain.Order) orderPayload {
	lines := make([]cartLinePayload, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, buildCartLinePayload(line))
	}
	history := make([]statusChangePayload, 0, len(order.History))
	for _, change := range order.History {
		history = append(history, statusChangePayload{
			Status:    string(change.Status),
			Timestamp: formatTime(change.Timestamp),
			Note:      change.Note,
		})
	}
	return orderPayload{
		ID:          order.ID,
		OrderNumber: order.Number,
		CustomerID:  order.CustomerID,
		Status:      string(order.Status),
		Lines:       lines,
		DeliveryAddress: addressPayload{
			Line1:        order.DeliveryAddress.Line1,
			Line2:        order.DeliveryAddress.Line2,
			City:         order.DeliveryAddress.City,
			Postcode:     order.DeliveryAddress.Postcode,
			Country:      order.DeliveryAddress.Country,
			Zone:         int(order.DeliveryAddress.Zone),
			Instructions: order.DeliveryAddress.Instructions,
		},
		Subtotal:            order.Subtotal,
		DiscountAmount:      order.DiscountAmount,
		TaxAmount:           order.TaxAmount,
		DeliveryFee:         order.DeliveryFee,
		TipAmount:           order.TipAmount,
		Total:               order.Total,
		DiscountCodeUsed:    order.DiscountCodeUsed,
		LoyaltyPointsUsed:   order.LoyaltyPointsUsed,
		LoyaltyPointsEarned: order.LoyaltyPointsEarned,
		PaymentMethod:       string(order.PaymentMethod),
		History:             history,
		IsScheduled:         order.IsScheduled,
		ScheduledFor:        formatTimePtr(order.ScheduledFor),
		EstimatedDelivery:   formatTimePtr(order.EstimatedDelivery),
		ActualDelivery:      formatTimePtr(order.ActualDelivery),
		Notes:               order.Notes,
		CancellationReason:  order.CancellationReason,
		RefundAmount:        order.RefundAmount,
		CreatedAt:           formatTime(order.CreatedAt),
		UpdatedAt:           formatTime(order.UpdatedAt),
	}
}
