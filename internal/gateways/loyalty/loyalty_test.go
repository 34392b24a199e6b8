package loyalty

import (
	"context"
	"errors"
	"testing"
	"time"
)

var testClock = func() time.Time {
	return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
}

func TestBalanceDefaultsToZero(t *testing.T) {
	svc := NewService(testClock, nil)

	balance, err := svc.Balance(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected zero balance got %d", balance)
	}
}

func TestAdjustAccumulates(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testClock, nil)

	if err := svc.Adjust(ctx, "cust-1", 120, "points earned", "ord_1"); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if err := svc.Adjust(ctx, "cust-1", -50, "points redeemed", "ord_2"); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	balance, _ := svc.Balance(ctx, "cust-1")
	if balance != 70 {
		t.Fatalf("expected balance 70 got %d", balance)
	}

	history, err := svc.History(ctx, "cust-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 transactions got %d", len(history))
	}
	if history[0].Points != 120 || history[0].Reason != "points earned" || history[0].OrderID != "ord_1" {
		t.Fatalf("unexpected first transaction %+v", history[0])
	}
	if history[1].Points != -50 {
		t.Fatalf("unexpected second transaction %+v", history[1])
	}
}

func TestAdjustRejectsOverdraw(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testClock, nil)

	if err := svc.Adjust(ctx, "cust-1", 30, "points earned", "ord_1"); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	err := svc.Adjust(ctx, "cust-1", -31, "points redeemed", "ord_2")
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints got %v", err)
	}

	// The failed adjustment leaves balance and history untouched.
	balance, _ := svc.Balance(ctx, "cust-1")
	if balance != 30 {
		t.Fatalf("balance changed on failed adjustment: %d", balance)
	}
	history, _ := svc.History(ctx, "cust-1")
	if len(history) != 1 {
		t.Fatalf("history grew on failed adjustment: %d", len(history))
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testClock, nil)

	if err := svc.Adjust(ctx, "cust-1", 10, "points earned", "ord_1"); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	history, _ := svc.History(ctx, "cust-1")
	history[0].Points = 9999

	again, _ := svc.History(ctx, "cust-1")
	if again[0].Points != 10 {
		t.Fatalf("stored history mutated through returned copy: %+v", again[0])
	}
}
