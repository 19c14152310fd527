package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aaron7k/wealth/internal/core"
	"github.com/aaron7k/wealth/internal/rates"
	"github.com/aaron7k/wealth/internal/storage"
)

// LedgerService is the read and reconciliation side of the tithe and
// savings period ledger.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	converter *rates.Converter
}

func NewLedgerService(storage *storage.SQLiteRepository, converter *rates.Converter) *LedgerService {
	return &LedgerService{
		storage:   storage,
		converter: converter,
	}
}

// Overview is the per-kind summary shown above the entry list.
type Overview struct {
	Paid    core.Money
	Pending core.Money
	Entries []core.PeriodEntry
}

func (s *LedgerService) Overview(ctx context.Context, userID string, kind core.LedgerKind) (Overview, error) {
	totals, err := s.storage.SumPeriodEntries(ctx, userID, kind)
	if err != nil {
		return Overview{}, err
	}
	entries, err := s.storage.ListPeriodEntries(ctx, userID, kind)
	if err != nil {
		return Overview{}, err
	}
	return Overview{
		Paid:    core.Money{Cents: totals.PaidCents},
		Pending: core.Money{Cents: totals.PendingCents},
		Entries: entries,
	}, nil
}

// MarkPaid settles one period entry.
func (s *LedgerService) MarkPaid(ctx context.Context, userID, id string, paidOn time.Time) error {
	return s.storage.MarkPeriodEntryPaid(ctx, userID, id, paidOn)
}

// Recalculate re-derives the expected tithe for the period containing
// now from the flagged income transactions and reconciles the diezmo
// row: the amount is overwritten if it drifted, and the row is created
// if absent. Running it twice in a row is a no-op.
func (s *LedgerService) Recalculate(ctx context.Context, userID string, now time.Time) (core.PeriodEntry, error) {
	profile, err := s.storage.GetProfile(ctx, userID)
	if err != nil {
		return core.PeriodEntry{}, fmt.Errorf("load profile: %w", err)
	}

	start, end := core.PeriodBounds(now, profile.TithePeriod)
	incomes, err := s.storage.ListTitheIncomes(ctx, userID, start, end)
	if err != nil {
		return core.PeriodEntry{}, fmt.Errorf("list tithe incomes: %w", err)
	}

	var totalIncome int64
	for _, in := range incomes {
		totalIncome += s.converter.Convert(in.AmountCents, in.Currency, profile.DefaultCurrency)
	}
	expected := core.ComputeAllocation(core.Money{Cents: totalIncome}, 0).Tithe

	entry, err := s.storage.FindPeriodEntry(ctx, userID, core.LedgerDiezmo, start, end)
	if errors.Is(err, core.ErrNotFound) {
		return s.storage.CreatePeriodEntry(ctx, core.PeriodEntry{
			UserID:      userID,
			Kind:        core.LedgerDiezmo,
			Amount:      expected,
			PeriodType:  profile.TithePeriod,
			PeriodStart: start,
			PeriodEnd:   end,
			Notes:       "recalculated",
		})
	}
	if err != nil {
		return core.PeriodEntry{}, err
	}

	if entry.Amount.Cents != expected.Cents {
		slog.InfoContext(ctx, "Reconciling tithe period",
			"user_id", userID,
			"period_start", start.Format(time.DateOnly),
			"stored_cents", entry.Amount.Cents,
			"expected_cents", expected.Cents)
		if err := s.storage.SetPeriodEntryAmount(ctx, userID, entry.ID, expected.Cents); err != nil {
			return core.PeriodEntry{}, err
		}
		entry.Amount = expected
	}
	return entry, nil
}
