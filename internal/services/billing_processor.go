package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aaron7k/wealth/internal/core"
	"github.com/aaron7k/wealth/internal/storage"
)

// BillingProcessor charges due subscriptions by creating the matching
// expense transactions and advancing each next billing date.
type BillingProcessor struct {
	storage            *storage.SQLiteRepository
	transactionService *TransactionService
}

func NewBillingProcessor(storage *storage.SQLiteRepository, transactionService *TransactionService) *BillingProcessor {
	return &BillingProcessor{
		storage:            storage,
		transactionService: transactionService,
	}
}

// ProcessDueSubscriptions charges every active subscription whose next
// billing date is on or before now. One bad subscription never stops
// the rest; a charge that was created but whose date failed to advance
// will be caught on the next tick only after manual review, so that
// failure is logged loudly.
func (p *BillingProcessor) ProcessDueSubscriptions(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil || p.transactionService == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	due, err := p.storage.ListDueSubscriptions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due subscriptions: %w", err)
	}

	slog.InfoContext(ctx, "Processing due subscriptions",
		"total_due", len(due),
		"processing_date", now.Format(time.DateOnly))

	processed := 0
	for _, sub := range due {
		advancer, err := GetBillingAdvancer(sub.BillingCycle)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping subscription with unknown cycle",
				"subscription_id", sub.ID,
				"cycle", string(sub.BillingCycle))
			continue
		}

		_, err = p.transactionService.CreateTransaction(ctx, core.Transaction{
			UserID:      sub.UserID,
			Description: fmt.Sprintf("Subscription: %s", sub.Name),
			Amount:      sub.Amount,
			Type:        core.Expense,
			Date:        sub.NextBillingDate,
			AccountID:   sub.AccountID,
			CategoryID:  sub.CategoryID,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to charge subscription",
				"subscription_id", sub.ID,
				"name", sub.Name,
				"error", err)
			continue
		}

		next := advancer.Next(sub.NextBillingDate)
		// Catch up when the worker was down across several cycles.
		for !next.After(now) {
			next = advancer.Next(next)
		}
		if err := p.storage.AdvanceSubscriptionBilling(ctx, sub.ID, next); err != nil {
			slog.ErrorContext(ctx, "Charged subscription but failed to advance billing date",
				"subscription_id", sub.ID,
				"name", sub.Name,
				"error", err)
			continue
		}

		processed++
		slog.InfoContext(ctx, "Charged subscription",
			"subscription_id", sub.ID,
			"name", sub.Name,
			"amount_cents", sub.Amount.Cents,
			"next_billing_date", next.Format(time.DateOnly))
	}

	slog.InfoContext(ctx, "Subscription billing complete",
		"processed", processed,
		"total_due", len(due))
	return processed, nil
}
