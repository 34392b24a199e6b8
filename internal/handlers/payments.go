package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/emberwok/api/internal/payments"
	"github.com/emberwok/api/internal/platform/httpx"
)

// PaymentHandlers exposes the card validation endpoint. Validation is
// shape-only; no payment provider is contacted.
type PaymentHandlers struct {
	clock func() time.Time
}

// NewPaymentHandlers constructs a new PaymentHandlers instance. A nil
// clock defaults to time.Now.
func NewPaymentHandlers(clock func() time.Time) *PaymentHandlers {
	if clock == nil {
		clock = time.Now
	}
	return &PaymentHandlers{clock: clock}
}

// Routes registers the /payments endpoints.
func (h *PaymentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/card:validate", h.validateCard)
}

type validateCardRequest struct {
	Number      string `json:"number"`
	HolderName  string `json:"holder_name"`
	ExpiryMonth int    `json:"expiry_month"`
	ExpiryYear  int    `json:"expiry_year"`
	CVV         string `json:"cvv"`
}

type validateCardResponse struct {
	Valid      bool     `json:"valid"`
	CardType   string   `json:"card_type,omitempty"`
	MaskedCard string   `json:"masked_card,omitempty"`
	LastFour   string   `json:"last_four,omitempty"`
	Problems   []string `json:"problems,omitempty"`
}

func (h *PaymentHandlers) validateCard(w http.ResponseWriter, r *http.Request) {
	var req validateCardRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result := payments.Validate(payments.CardDetails{
		Number:      req.Number,
		HolderName:  req.HolderName,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		CVV:         req.CVV,
	}, h.clock())

	httpx.WriteJSON(w, http.StatusOK, validateCardResponse{
		Valid:      result.Valid,
		CardType:   string(result.CardType),
		MaskedCard: result.MaskedCard,
		LastFour:   result.LastFour,
		Problems:   result.Problems,
	})
}
