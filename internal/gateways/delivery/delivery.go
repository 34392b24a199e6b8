// Package delivery is the in-memory reference implementation of the
// delivery/discount gateway: postcode zone resolution, delivery fee
// computation, and discount code validation as pure query functions.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/emberwok/api/internal/domain"
)

// Validation failure sentinels. Callers match with errors.Is to report
// the specific rejection to the customer.
var (
	ErrCodeRequired    = errors.New("discount: code required")
	ErrCodeUnknown     = errors.New("discount: invalid code")
	ErrCodeInactive    = errors.New("discount: code inactive")
	ErrCodeNotYetValid = errors.New("discount: code not yet valid")
	ErrCodeExpired     = errors.New("discount: code expired")
	ErrCodeUsageLimit  = errors.New("discount: usage limit reached")
	ErrCodeAlreadyUsed = errors.New("discount: already used by customer")
	ErrCodeFirstOrder  = errors.New("discount: first order only")
	ErrCodeMinOrder    = errors.New("discount: minimum order not met")

	// ErrPostcodeRequired indicates an empty postcode was supplied.
	ErrPostcodeRequired = errors.New("delivery: postcode required")
	// ErrOutOfRange indicates the postcode resolves outside the
	// delivery area.
	ErrOutOfRange = errors.New("delivery: outside delivery area")
)

// Config carries the tunable fee parameters.
type Config struct {
	ZoneFees              map[domain.DeliveryZone]int64
	FreeDeliveryThreshold int64
	PeakSurcharge         int64
	WeatherSurcharge      int64
	PeakStartHour         int
	PeakEndHour           int
}

// DefaultConfig returns the standard tariff: zone fees 2.00/3.50/5.00,
// free delivery over 30.00, peak 18:00-21:00 surcharge 1.50, bad weather
// surcharge 1.00.
func DefaultConfig() Config {
	return Config{
		ZoneFees: map[domain.DeliveryZone]int64{
			domain.Zone1: 200,
			domain.Zone2: 350,
			domain.Zone3: 500,
		},
		FreeDeliveryThreshold: 3000,
		PeakSurcharge:         150,
		WeatherSurcharge:      100,
		PeakStartHour:         18,
		PeakEndHour:           21,
	}
}

// Service stores discount codes and per-customer usage behind a mutex.
type Service struct {
	cfg   Config
	clock func() time.Time

	mu    sync.RWMutex
	codes map[string]domain.DiscountCode
	usage map[string]map[string]bool
}

// NewService constructs the gateway. A nil clock defaults to time.Now.
func NewService(cfg Config, clock func() time.Time) *Service {
	if cfg.ZoneFees == nil {
		cfg = DefaultConfig()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		cfg:   cfg,
		clock: clock,
		codes: make(map[string]domain.DiscountCode),
		usage: make(map[string]map[string]bool),
	}
}

// AddCode registers a discount code, keyed by its uppercased code string.
func (s *Service) AddCode(code domain.DiscountCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[strings.ToUpper(strings.TrimSpace(code.Code))] = code
}

// ResolveZone maps a postcode to its delivery zone. LE1/LE2 are zone 1,
// LE3-LE5 zone 2, other LE prefixes zone 3, everything else out of range.
func (s *Service) ResolveZone(postcode string) domain.DeliveryZone {
	pc := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(postcode), " ", ""))
	switch {
	case pc == "":
		return domain.ZoneOutOfRange
	case strings.HasPrefix(pc, "LE1") || strings.HasPrefix(pc, "LE2"):
		return domain.Zone1
	case strings.HasPrefix(pc, "LE3") || strings.HasPrefix(pc, "LE4") || strings.HasPrefix(pc, "LE5"):
		return domain.Zone2
	case strings.HasPrefix(pc, "LE"):
		return domain.Zone3
	default:
		return domain.ZoneOutOfRange
	}
}

// Quote computes the delivery fee for a postcode and subtotal.
func (s *Service) Quote(_ context.Context, req domain.DeliveryFeeRequest) (domain.DeliveryQuote, error) {
	if strings.TrimSpace(req.Postcode) == "" {
		return domain.DeliveryQuote{}, ErrPostcodeRequired
	}
	zone := s.ResolveZone(req.Postcode)
	if zone == domain.ZoneOutOfRange {
		return domain.DeliveryQuote{}, ErrOutOfRange
	}

	quote := domain.DeliveryQuote{Zone: zone, BaseFee: s.cfg.ZoneFees[zone]}

	if req.Subtotal >= s.cfg.FreeDeliveryThreshold {
		quote.FreeDelivery = true
		return quote, nil
	}

	fee := quote.BaseFee

	peak := s.isPeakTime()
	if req.Peak != nil {
		peak = *req.Peak
	}
	if peak {
		quote.PeakSurcharge = s.cfg.PeakSurcharge
		fee += s.cfg.PeakSurcharge
	}
	if req.BadWeather {
		quote.WeatherSurcharge = s.cfg.WeatherSurcharge
		fee += s.cfg.WeatherSurcharge
	}

	quote.Fee = fee
	return quote, nil
}

// ValidateCode checks every rule of a discount code against the cart and
// customer context, returning the computed discount when eligible.
func (s *Service) ValidateCode(_ context.Context, req domain.DiscountRequest) (domain.DiscountValidation, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return domain.DiscountValidation{}, ErrCodeRequired
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	discount, ok := s.codes[code]
	if !ok {
		return domain.DiscountValidation{}, fmt.Errorf("%w: %s", ErrCodeUnknown, code)
	}
	if !discount.IsActive {
		return domain.DiscountValidation{}, ErrCodeInactive
	}

	now := s.clock()
	if discount.ValidFrom.After(now) {
		return domain.DiscountValidation{}, ErrCodeNotYetValid
	}
	if discount.ValidUntil != nil && discount.ValidUntil.Before(now) {
		return domain.DiscountValidation{}, ErrCodeExpired
	}
	if discount.UsageLimit > 0 && discount.TimesUsed >= discount.UsageLimit {
		return domain.DiscountValidation{}, ErrCodeUsageLimit
	}
	if req.CustomerID != "" && discount.SingleUsePerCustomer && s.usage[req.CustomerID][code] {
		return domain.DiscountValidation{}, ErrCodeAlreadyUsed
	}
	if discount.FirstOrderOnly && !req.IsFirstOrder {
		return domain.DiscountValidation{}, ErrCodeFirstOrder
	}
	if discount.MinOrderAmount > 0 && req.Subtotal < discount.MinOrderAmount {
		return domain.DiscountValidation{}, fmt.Errorf("%w: minimum order %s", ErrCodeMinOrder, domain.FormatGBP(discount.MinOrderAmount))
	}

	result := domain.DiscountValidation{Code: code, Type: discount.Type}
	switch discount.Type {
	case domain.DiscountTypePercentage:
		result.Amount = domain.PercentOf(req.Subtotal, discount.Value)
	case domain.DiscountTypeFixedAmount:
		result.Amount = int64(discount.Value)
	case domain.DiscountTypeFreeDelivery:
		result.FreeDelivery = true
	}
	if discount.MaxDiscountAmount > 0 && result.Amount > discount.MaxDiscountAmount {
		result.Amount = discount.MaxDiscountAmount
	}
	return result, nil
}

// LookupCode returns the current state of a code for cart recomputation.
func (s *Service) LookupCode(_ context.Context, code string) (domain.DiscountCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	discount, ok := s.codes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return domain.DiscountCode{}, fmt.Errorf("%w: %s", ErrCodeUnknown, code)
	}
	return discount, nil
}

// MarkUsed records a redemption for usage-limit and single-use tracking.
func (s *Service) MarkUsed(_ context.Context, customerID, code string) error {
	key := strings.ToUpper(strings.TrimSpace(code))
	s.mu.Lock()
	defer s.mu.Unlock()
	discount, ok := s.codes[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCodeUnknown, code)
	}
	discount.TimesUsed++
	s.codes[key] = discount
	if customerID != "" {
		if s.usage[customerID] == nil {
			s.usage[customerID] = make(map[string]bool)
		}
		s.usage[customerID][key] = true
	}
	return nil
}

func (s *Service) isPeakTime() bool {
	hour := s.clock().Hour()
	return hour >= s.cfg.PeakStartHour && hour < s.cfg.PeakEndHour
}
