// Package payments holds the pure payment-card validator. It validates
// shape only (Luhn, network, expiry, CVV); it never talks to a payment
// provider and is independent of the pricing and lifecycle engines.
package payments

import (
	"strings"
	"time"

	domain "github.com/emberwok/api/internal/domain"
)

// CardDetails are the inputs to Validate. The card number may contain
// spaces or dashes.
type CardDetails struct {
	Number      string
	HolderName  string
	ExpiryMonth int
	ExpiryYear  int
	CVV         string
}

// CardValidation reports the validation outcome. Problems lists every
// failed rule; the card is valid when Problems is empty.
type CardValidation struct {
	Valid      bool
	CardType   domain.CardType
	MaskedCard string
	LastFour   string
	Problems   []string
}

var cardLengths = map[domain.CardType][]int{
	domain.CardTypeVisa:       {13, 16},
	domain.CardTypeMastercard: {16},
	domain.CardTypeAmex:       {15},
}

// Validate checks the card details against every rule at once so the
// caller can surface all problems in a single round trip.
func Validate(details CardDetails, now time.Time) CardValidation {
	var problems []string

	number := strings.NewReplacer(" ", "", "-", "").Replace(details.Number)
	if !luhnValid(number) {
		problems = append(problems, "invalid card number")
	}

	cardType := DetectCardType(number)
	if cardType == domain.CardTypeUnknown {
		problems = append(problems, "unsupported card type")
	}
	if lengths, ok := cardLengths[cardType]; ok && !containsInt(lengths, len(number)) {
		problems = append(problems, "invalid card number length")
	}

	if details.ExpiryMonth < 1 || details.ExpiryMonth > 12 {
		problems = append(problems, "invalid expiry month")
	} else if details.ExpiryYear < now.Year() ||
		(details.ExpiryYear == now.Year() && time.Month(details.ExpiryMonth) < now.Month()) {
		problems = append(problems, "card expired")
	}
	if details.ExpiryYear > now.Year()+10 {
		problems = append(problems, "invalid expiry year")
	}

	cvv := strings.TrimSpace(details.CVV)
	expectedCVV := 3
	if cardType == domain.CardTypeAmex {
		expectedCVV = 4
	}
	if len(cvv) != expectedCVV || !digitsOnly(cvv) {
		problems = append(problems, "invalid cvv")
	}

	if len(strings.TrimSpace(details.HolderName)) < 2 {
		problems = append(problems, "card holder name required")
	}

	result := CardValidation{Problems: problems}
	if len(problems) > 0 {
		return result
	}

	result.Valid = true
	result.CardType = cardType
	result.LastFour = number[len(number)-4:]
	result.MaskedCard = strings.Repeat("*", len(number)-4) + result.LastFour
	return result
}

// DetectCardType identifies the card network from the number prefix.
func DetectCardType(number string) domain.CardType {
	switch {
	case strings.HasPrefix(number, "4"):
		return domain.CardTypeVisa
	case hasAnyPrefix(number, "51", "52", "53", "54", "55", "2221", "2720"):
		return domain.CardTypeMastercard
	case hasAnyPrefix(number, "34", "37"):
		return domain.CardTypeAmex
	default:
		return domain.CardTypeUnknown
	}
}

func luhnValid(number string) bool {
	if number == "" || !digitsOnly(number) {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
