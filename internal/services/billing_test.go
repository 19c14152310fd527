package services

import (
	"context"
	"testing"
	"time"

	"github.com/aaron7k/wealth/internal/core"
	"github.com/aaron7k/wealth/internal/storage"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBillingAdvancers(t *testing.T) {
	tests := []struct {
		name    string
		cycle   core.Period
		current time.Time
		want    time.Time
	}{
		{"weekly", core.Weekly, date(2025, time.June, 10), date(2025, time.June, 17)},
		{"monthly mid-month", core.Monthly, date(2025, time.June, 10), date(2025, time.July, 10)},
		{"monthly clamps short month", core.Monthly, date(2025, time.January, 31), date(2025, time.February, 28)},
		{"monthly clamps leap february", core.Monthly, date(2024, time.January, 31), date(2024, time.February, 29)},
		{"monthly across year", core.Monthly, date(2025, time.December, 15), date(2026, time.January, 15)},
		{"quarterly", core.Quarterly, date(2025, time.November, 30), date(2026, time.February, 28)},
		{"yearly", core.Yearly, date(2025, time.June, 10), date(2026, time.June, 10)},
		{"yearly leap day clamps", core.Yearly, date(2024, time.February, 29), date(2025, time.February, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advancer, err := GetBillingAdvancer(tt.cycle)
			if err != nil {
				t.Fatalf("GetBillingAdvancer(%s) error = %v", tt.cycle, err)
			}
			if got := advancer.Next(tt.current); !got.Equal(tt.want) {
				t.Errorf("Next(%s) = %s, want %s",
					tt.current.Format(time.DateOnly),
					got.Format(time.DateOnly),
					tt.want.Format(time.DateOnly))
			}
		})
	}

	t.Run("unknown cycle", func(t *testing.T) {
		if _, err := GetBillingAdvancer("biweekly"); err == nil {
			t.Error("GetBillingAdvancer should reject unknown cycles")
		}
	})
}

func TestProcessDueSubscriptions(t *testing.T) {
	repo, converter := newTestDeps(t)
	txSvc := NewTransactionService(repo, nil, converter)
	processor := NewBillingProcessor(repo, txSvc)
	ctx := context.Background()

	account := createAccount(t, repo, "user-1", "USD", 100000)

	sub, err := repo.CreateSubscription(ctx, core.Subscription{
		UserID:          "user-1",
		Name:            "Streaming",
		Amount:          core.Money{Cents: 1599},
		BillingCycle:    core.Monthly,
		NextBillingDate: date(2025, time.June, 10),
		Status:          core.SubscriptionActive,
		AccountID:       account.ID,
	})
	if err != nil {
		t.Fatalf("CreateSubscription() error = %v", err)
	}

	now := date(2025, time.June, 15)
	processed, err := processor.ProcessDueSubscriptions(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDueSubscriptions() error = %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}

	if got := accountBalance(t, repo, "user-1", account.ID); got != 98401 {
		t.Errorf("balance = %d, want 98401", got)
	}

	updated, err := repo.GetSubscription(ctx, "user-1", sub.ID)
	if err != nil {
		t.Fatalf("GetSubscription() error = %v", err)
	}
	if want := date(2025, time.July, 10); !updated.NextBillingDate.Equal(want) {
		t.Errorf("next billing = %s, want %s",
			updated.NextBillingDate.Format(time.DateOnly), want.Format(time.DateOnly))
	}

	txns, err := repo.ListTransactions(ctx, "user-1", storage.TransactionFilter{Type: core.Expense})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txns) != 1 || txns[0].Description != "Subscription: Streaming" {
		t.Errorf("charge transactions = %+v", txns)
	}

	t.Run("second run is a no-op", func(t *testing.T) {
		processed, err := processor.ProcessDueSubscriptions(ctx, now)
		if err != nil {
			t.Fatalf("ProcessDueSubscriptions() error = %v", err)
		}
		if processed != 0 {
			t.Errorf("processed = %d, want 0", processed)
		}
	})
}

func TestProcessDueSubscriptionsCatchUp(t *testing.T) {
	repo, converter := newTestDeps(t)
	txSvc := NewTransactionService(repo, nil, converter)
	processor := NewBillingProcessor(repo, txSvc)
	ctx := context.Background()

	account := createAccount(t, repo, "user-1", "USD", 100000)

	// Three cycles behind.
	sub, err := repo.CreateSubscription(ctx, core.Subscription{
		UserID:          "user-1",
		Name:            "Gym",
		Amount:          core.Money{Cents: 4500},
		BillingCycle:    core.Monthly,
		NextBillingDate: date(2025, time.March, 5),
		Status:          core.SubscriptionActive,
		AccountID:       account.ID,
	})
	if err != nil {
		t.Fatalf("CreateSubscription() error = %v", err)
	}

	if _, err := processor.ProcessDueSubscriptions(ctx, date(2025, time.June, 15)); err != nil {
		t.Fatalf("ProcessDueSubscriptions() error = %v", err)
	}

	updated, err := repo.GetSubscription(ctx, "user-1", sub.ID)
	if err != nil {
		t.Fatalf("GetSubscription() error = %v", err)
	}
	if want := date(2025, time.July, 5); !updated.NextBillingDate.Equal(want) {
		t.Errorf("next billing = %s, want %s (past cycles skipped)",
			updated.NextBillingDate.Format(time.DateOnly), want.Format(time.DateOnly))
	}
}
