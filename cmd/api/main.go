package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	domain "github.com/emberwok/api/internal/domain"
	"github.com/emberwok/api/internal/gateways/catalog"
	"github.com/emberwok/api/internal/gateways/delivery"
	"github.com/emberwok/api/internal/gateways/loyalty"
	"github.com/emberwok/api/internal/handlers"
	"github.com/emberwok/api/internal/platform/config"
	"github.com/emberwok/api/internal/platform/observability"
	"github.com/emberwok/api/internal/repositories/memory"
	"github.com/emberwok/api/internal/services"
)

func main() {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	catalogGateway := catalog.NewService(seedMenu()...)
	deliveryGateway := delivery.NewService(delivery.DefaultConfig(), nil)
	for _, code := range seedDiscountCodes() {
		deliveryGateway.AddCode(code)
	}
	loyaltyGateway := loyalty.NewService(nil, nil)

	cartRepo := memory.NewCartRepository()
	orderRepo := memory.NewOrderRepository()
	cancellationLog := memory.NewCancellationLog()

	eventHook := observability.EventHook(logger.Named("events"))

	pricer, err := services.NewCartPricingEngine(services.CartPricingEngineDeps{
		Codes:   deliveryGateway,
		TaxRate: cfg.Pricing.TaxRate,
	})
	if err != nil {
		logger.Fatal("failed to build pricing engine", zap.Error(err))
	}

	estimator := services.NewDeliveryEstimator(services.DeliveryEstimatorDeps{})

	// Shared per-cart locking between the two services: placement and
	// cart mutations on the same cart id must serialise.
	locks := services.NewLockSet()

	cartService, err := services.NewCartService(services.CartServiceDeps{
		Repository: cartRepo,
		Pricer:     pricer,
		Catalog:    catalogGateway,
		Delivery:   deliveryGateway,
		Limits: services.CartLimits{
			MaxCartQuantity: cfg.Orders.MaxCartQuantity,
			MaxLineQuantity: cfg.Orders.MaxLineQuantity,
			MaxLineNotes:    cfg.Orders.MaxLineNotes,
		},
		Logger: eventHook,
		Locks:  locks,
	})
	if err != nil {
		logger.Fatal("failed to build cart service", zap.Error(err))
	}

	policy := services.DefaultOrderPolicy()
	policy.MinOrderAmount = cfg.Orders.MinOrderAmount
	policy.OpenHour = cfg.Orders.OpenHour
	policy.CloseHour = cfg.Orders.CloseHour
	policy.MaxCancellations = cfg.Orders.MaxCancellations
	policy.PointValue = cfg.Loyalty.PointValue
	policy.MaxOrderNotes = cfg.Orders.MaxOrderNotes

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:        orderRepo,
		Carts:         cartRepo,
		Cancellations: cancellationLog,
		Catalog:       catalogGateway,
		Delivery:      deliveryGateway,
		Loyalty:       loyaltyGateway,
		Pricer:        pricer,
		Estimator:     estimator,
		Policy:        policy,
		Logger:        eventHook,
		Locks:         locks,
	})
	if err != nil {
		logger.Fatal("failed to build order service", zap.Error(err))
	}

	router := handlers.NewRouter(
		handlers.WithCartRoutes(handlers.NewCartHandlers(cartService).Routes),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(orderService).Routes),
		handlers.WithPaymentRoutes(handlers.NewPaymentHandlers(nil).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("emberwok api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// seedMenu returns the starter catalogue used until a real menu source
// is wired in.
func seedMenu() []domain.MenuItem {
	return []domain.MenuItem{
		{
			ID: "item-katsu-curry", Name: "Chicken Katsu Curry", Price: 1200,
			Description:     "Panko chicken, curry sauce, sticky rice",
			PreparationTime: 12, StockQuantity: 40, IsAvailable: true,
			SizeAdjustments: map[domain.ItemSize]int64{
				domain.SizeSmall: -150,
				domain.SizeLarge: 200,
			},
			Extras: []domain.ItemExtra{
				{ID: "extra-rice", Name: "Extra rice", Price: 150, IsAvailable: true},
				{ID: "extra-katsu", Name: "Extra katsu fillet", Price: 350, IsAvailable: true},
			},
			RemovableIngredients: []string{"spring onion", "pickles"},
		},
		{
			ID: "item-pork-gyoza", Name: "Pork Gyoza (6)", Price: 650,
			PreparationTime: 8, StockQuantity: 60, IsAvailable: true,
		},
		{
			ID: "item-firecracker", Name: "Firecracker Prawn Wok", Price: 1350,
			PreparationTime: 14, StockQuantity: 30, IsAvailable: true,
		},
		{
			ID: "item-lunch-bento", Name: "Lunch Bento", Price: 1050,
			PreparationTime: 10, StockQuantity: 25, IsAvailable: true,
			Availability: []domain.AvailabilityWindow{
				{Weekday: time.Monday, StartMinute: 11 * 60, EndMinute: 14 * 60},
				{Weekday: time.Tuesday, StartMinute: 11 * 60, EndMinute: 14 * 60},
				{Weekday: time.Wednesday, StartMinute: 11 * 60, EndMinute: 14 * 60},
				{Weekday: time.Thursday, StartMinute: 11 * 60, EndMinute: 14 * 60},
				{Weekday: time.Friday, StartMinute: 11 * 60, EndMinute: 14 * 60},
			},
		},
	}
}

// seedDiscountCodes returns the launch promotions.
func seedDiscountCodes() []domain.DiscountCode {
	return []domain.DiscountCode{
		{
			ID: "promo-save10", Code: "SAVE10",
			Type: domain.DiscountTypePercentage, Value: 10,
			MinOrderAmount: 1500, MaxDiscountAmount: 1000,
			IsActive: true,
		},
		{
			ID: "promo-welcome", Code: "WELCOME5",
			Type: domain.DiscountTypeFixedAmount, Value: 500,
			MinOrderAmount: 2000, FirstOrderOnly: true,
			SingleUsePerCustomer: true, IsActive: true,
		},
		{
			ID: "promo-freedel", Code: "FREEDEL",
			Type: domain.DiscountTypeFreeDelivery,
			MinOrderAmount: 1000, IsActive: true,
		},
	}
}
