package payments

import (
	"strings"
	"testing"
	"time"

	domain "github.com/emberwok/api/internal/domain"
)

var cardTestNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func validVisa() CardDetails {
	return CardDetails{
		Number:      "4532 0151 1283 0366",
		HolderName:  "A Customer",
		ExpiryMonth: 12,
		ExpiryYear:  2027,
		CVV:         "123",
	}
}

func TestValidateAcceptsVisa(t *testing.T) {
	result := Validate(validVisa(), cardTestNow)
	if !result.Valid {
		t.Fatalf("expected valid card, problems: %v", result.Problems)
	}
	if result.CardType != domain.CardTypeVisa {
		t.Fatalf("expected visa got %s", result.CardType)
	}
	if result.LastFour != "0366" {
		t.Fatalf("expected last four 0366 got %s", result.LastFour)
	}
	if result.MaskedCard != "************0366" {
		t.Fatalf("unexpected mask %s", result.MaskedCard)
	}
}

func TestValidateAcceptsAmexWithFourDigitCVV(t *testing.T) {
	details := CardDetails{
		Number:      "3782 822463 10005",
		HolderName:  "A Customer",
		ExpiryMonth: 6,
		ExpiryYear:  2028,
		CVV:         "1234",
	}
	result := Validate(details, cardTestNow)
	if !result.Valid {
		t.Fatalf("expected valid amex, problems: %v", result.Problems)
	}
	if result.CardType != domain.CardTypeAmex {
		t.Fatalf("expected amex got %s", result.CardType)
	}

	details.CVV = "123"
	result = Validate(details, cardTestNow)
	if result.Valid {
		t.Fatalf("expected three-digit cvv rejected for amex")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	result := Validate(CardDetails{
		Number:      "1234",
		ExpiryMonth: 13,
		ExpiryYear:  2027,
		CVV:         "12x",
	}, cardTestNow)
	if result.Valid {
		t.Fatalf("expected invalid card")
	}
	for _, want := range []string{
		"invalid card number",
		"unsupported card type",
		"invalid expiry month",
		"invalid cvv",
		"card holder name required",
	} {
		found := false
		for _, p := range result.Problems {
			if p == want {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected problem %q in %v", want, result.Problems)
		}
	}
}

func TestValidateRejectsExpiredCard(t *testing.T) {
	details := validVisa()
	details.ExpiryMonth = 2
	details.ExpiryYear = 2026
	result := Validate(details, cardTestNow)
	if result.Valid || !containsProblem(result, "card expired") {
		t.Fatalf("expected expired card rejected, got %v", result.Problems)
	}

	// The current month is still acceptable.
	details.ExpiryMonth = 3
	if result := Validate(details, cardTestNow); !result.Valid {
		t.Fatalf("current month should be valid, problems: %v", result.Problems)
	}
}

func TestValidateRejectsFarFutureExpiry(t *testing.T) {
	details := validVisa()
	details.ExpiryYear = 2040
	result := Validate(details, cardTestNow)
	if result.Valid || !containsProblem(result, "invalid expiry year") {
		t.Fatalf("expected far-future expiry rejected, got %v", result.Problems)
	}
}

func TestDetectCardType(t *testing.T) {
	cases := []struct {
		number string
		want   domain.CardType
	}{
		{"4532015112830366", domain.CardTypeVisa},
		{"5425233430109903", domain.CardTypeMastercard},
		{"2221000000000009", domain.CardTypeMastercard},
		{"378282246310005", domain.CardTypeAmex},
		{"341234567890127", domain.CardTypeAmex},
		{"6011000000000004", domain.CardTypeUnknown},
	}
	for _, tc := range cases {
		if got := DetectCardType(tc.number); got != tc.want {
			t.Fatalf("%s: expected %s got %s", tc.number, tc.want, got)
		}
	}
}

func TestLuhn(t *testing.T) {
	if !luhnValid("4532015112830366") {
		t.Fatalf("expected valid luhn")
	}
	if luhnValid("4532015112830367") {
		t.Fatalf("expected invalid luhn")
	}
	if luhnValid("") || luhnValid("4532a15112830366") {
		t.Fatalf("expected non-digit input rejected")
	}
}

func containsProblem(result CardValidation, problem string) bool {
	for _, p := range result.Problems {
		if strings.Contains(p, problem) {
			return true
		}
	}
	return false
}
