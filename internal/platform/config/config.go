// Package config reads runtime configuration from the environment with
// typed defaults. Monetary values are minor currency units (pence).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultTaxRate          = 0.20
	defaultMinOrderAmount   = 1000
	defaultMaxCartQuantity  = 50
	defaultMaxLineQuantity  = 99
	defaultMaxLineNotes     = 200
	defaultMaxOrderNotes    = 500
	defaultOpenHour         = 11
	defaultCloseHour        = 23
	defaultMaxCancellations = 3
	defaultPointValue       = 1
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	Pricing PricingConfig
	Orders  OrderConfig
	Loyalty LoyaltyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// PricingConfig tunes the cart pricing calculator.
type PricingConfig struct {
	// TaxRate is the flat VAT rate applied to the discounted subtotal.
	TaxRate float64
}

// OrderConfig tunes the cart and order lifecycle engines.
type OrderConfig struct {
	MinOrderAmount   int64
	MaxCartQuantity  int
	MaxLineQuantity  int
	MaxLineNotes     int
	MaxOrderNotes    int
	OpenHour         int
	CloseHour        int
	MaxCancellations int
}

// LoyaltyConfig tunes point redemption.
type LoyaltyConfig struct {
	// PointValue is the redemption value of one point in minor units.
	PointValue int64
}

// Load builds the configuration from the environment, applying defaults
// for unset values and failing on malformed ones.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:         envString("PORT", defaultPort),
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
			IdleTimeout:  defaultIdleTimeout,
		},
		Pricing: PricingConfig{TaxRate: defaultTaxRate},
		Orders: OrderConfig{
			MinOrderAmount:   defaultMinOrderAmount,
			MaxCartQuantity:  defaultMaxCartQuantity,
			MaxLineQuantity:  defaultMaxLineQuantity,
			MaxLineNotes:     defaultMaxLineNotes,
			MaxOrderNotes:    defaultMaxOrderNotes,
			OpenHour:         defaultOpenHour,
			CloseHour:        defaultCloseHour,
			MaxCancellations: defaultMaxCancellations,
		},
		Loyalty: LoyaltyConfig{PointValue: defaultPointValue},
	}

	var err error
	if cfg.Pricing.TaxRate, err = envFloat("TAX_RATE", cfg.Pricing.TaxRate); err != nil {
		return Config{}, err
	}
	if cfg.Orders.MinOrderAmount, err = envInt64("MIN_ORDER_PENCE", cfg.Orders.MinOrderAmount); err != nil {
		return Config{}, err
	}
	if cfg.Orders.MaxCartQuantity, err = envInt("MAX_CART_QUANTITY", cfg.Orders.MaxCartQuantity); err != nil {
		return Config{}, err
	}
	if cfg.Orders.MaxLineQuantity, err = envInt("MAX_LINE_QUANTITY", cfg.Orders.MaxLineQuantity); err != nil {
		return Config{}, err
	}
	if cfg.Orders.MaxLineNotes, err = envInt("MAX_LINE_NOTES", cfg.Orders.MaxLineNotes); err != nil {
		return Config{}, err
	}
	if cfg.Orders.MaxOrderNotes, err = envInt("MAX_ORDER_NOTES", cfg.Orders.MaxOrderNotes); err != nil {
		return Config{}, err
	}
	if cfg.Orders.OpenHour, err = envInt("OPEN_HOUR", cfg.Orders.OpenHour); err != nil {
		return Config{}, err
	}
	if cfg.Orders.CloseHour, err = envInt("CLOSE_HOUR", cfg.Orders.CloseHour); err != nil {
		return Config{}, err
	}
	if cfg.Orders.MaxCancellations, err = envInt("MAX_CANCELLATIONS_PER_MONTH", cfg.Orders.MaxCancellations); err != nil {
		return Config{}, err
	}
	if cfg.Loyalty.PointValue, err = envInt64("LOYALTY_POINT_VALUE_PENCE", cfg.Loyalty.PointValue); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Pricing.TaxRate < 0 || c.Pricing.TaxRate >= 1 {
		return fmt.Errorf("config: TAX_RATE must be in [0,1), got %v", c.Pricing.TaxRate)
	}
	if c.Orders.OpenHour < 0 || c.Orders.OpenHour > 23 || c.Orders.CloseHour < 1 || c.Orders.CloseHour > 24 {
		return fmt.Errorf("config: operating hours out of range: %d-%d", c.Orders.OpenHour, c.Orders.CloseHour)
	}
	if c.Orders.OpenHour >= c.Orders.CloseHour {
		return fmt.Errorf("config: OPEN_HOUR must precede CLOSE_HOUR: %d-%d", c.Orders.OpenHour, c.Orders.CloseHour)
	}
	if c.Orders.MaxLineQuantity < 1 || c.Orders.MaxCartQuantity < 1 {
		return fmt.Errorf("config: quantity limits must be positive")
	}
	if c.Orders.MaxLineNotes < 1 || c.Orders.MaxOrderNotes < 1 {
		return fmt.Errorf("config: note length limits must be positive")
	}
	if c.Loyalty.PointValue < 1 {
		return fmt.Errorf("config: LOYALTY_POINT_VALUE_PENCE must be positive, got %d", c.Loyalty.PointValue)
	}
	return nil
}

func envString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return value, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return value, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return value, nil
}
