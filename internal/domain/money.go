package domain

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var gbpPrinter = message.NewPrinter(language.BritishEnglish)

// FormatGBP renders a minor-unit amount as a user-facing sterling string,
// e.g. 123456 -> "£1,234.56". Negative amounts keep the sign before the
// currency symbol.
func FormatGBP(minor int64) string {
	if minor < 0 {
		return gbpPrinter.Sprintf("-£%.2f", float64(-minor)/100)
	}
	return gbpPrinter.Sprintf("£%.2f", float64(minor)/100)
}

// PercentOf returns pct percent of a minor-unit amount, rounded half away
// from zero to the nearest minor unit.
func PercentOf(amount int64, pct float64) int64 {
	return int64(math.Round(float64(amount) * pct / 100))
}

// RateOf returns amount scaled by a fractional rate (e.g. 0.20), rounded
// half away from zero to the nearest minor unit.
func RateOf(amount int64, rate float64) int64 {
	return int64(math.Round(float64(amount) * rate))
}
