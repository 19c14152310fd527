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

// AllocationService runs the tithe and savings bookkeeping that follows
// a qualifying income transaction.
type AllocationService struct {
	storage   *storage.SQLiteRepository
	converter *rates.Converter
}

func NewAllocationService(storage *storage.SQLiteRepository, converter *rates.Converter) *AllocationService {
	return &AllocationService{
		storage:   storage,
		converter: converter,
	}
}

// ProcessIncome allocates tithe and savings for one income transaction.
// Callers treat this as fire-and-forget: the transaction is already
// committed, so errors here are logged and never surfaced to the user.
func (s *AllocationService) ProcessIncome(ctx context.Context, t core.Transaction) error {
	if t.Type != core.Income || !t.GenerateTithe {
		return nil
	}

	profile, err := s.storage.GetProfile(ctx, t.UserID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if !profile.TitheEnabled {
		return nil
	}

	account, err := s.storage.GetAccount(ctx, t.UserID, t.AccountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	converted := core.Money{Cents: s.converter.Convert(t.Amount.Cents, account.Currency, profile.DefaultCurrency)}
	alloc := core.ComputeAllocation(converted, profile.SavingsPercentage)

	slog.InfoContext(ctx, "Income allocation computed",
		"user_id", t.UserID,
		"transaction_id", t.ID,
		"income_cents", converted.Cents,
		"tithe_cents", alloc.Tithe.Cents,
		"savings_cents", alloc.Savings.Cents,
		"currency", profile.DefaultCurrency)

	// Deductions come out of the source account in its own currency.
	if profile.AutoDeductTithe && alloc.Tithe.Cents > 0 {
		deduct := s.converter.Convert(alloc.Tithe.Cents, profile.DefaultCurrency, account.Currency)
		if err := s.storage.ApplyBalanceDelta(ctx, t.UserID, t.AccountID, -deduct); err != nil {
			return fmt.Errorf("deduct tithe: %w", err)
		}
	}
	if profile.SavingsPercentage > 0 && alloc.Savings.Cents > 0 {
		deduct := s.converter.Convert(alloc.Savings.Cents, profile.DefaultCurrency, account.Currency)
		if err := s.storage.ApplyBalanceDelta(ctx, t.UserID, t.AccountID, -deduct); err != nil {
			return fmt.Errorf("deduct savings: %w", err)
		}
	}

	start, end := core.PeriodBounds(t.Date, profile.TithePeriod)
	note := fmt.Sprintf("+%s from %s", alloc.Tithe, t.Description)
	if err := s.accumulate(ctx, t.UserID, core.LedgerDiezmo, profile.TithePeriod, start, end, alloc.Tithe, note); err != nil {
		return fmt.Errorf("accumulate tithe: %w", err)
	}

	if profile.SavingsPercentage > 0 && alloc.Savings.Cents > 0 {
		note := fmt.Sprintf("+%s from %s", alloc.Savings, t.Description)
		if err := s.accumulate(ctx, t.UserID, core.LedgerSavings, profile.TithePeriod, start, end, alloc.Savings, note); err != nil {
			return fmt.Errorf("accumulate savings: %w", err)
		}
	}

	return nil
}

// accumulate finds the period row for (kind, start, end) and adds the
// amount to it, creating the row on first contribution of the period.
func (s *AllocationService) accumulate(ctx context.Context, userID string, kind core.LedgerKind, periodType core.Period, start, end time.Time, amount core.Money, note string) error {
	entry, err := s.storage.FindPeriodEntry(ctx, userID, kind, start, end)
	if errors.Is(err, core.ErrNotFound) {
		_, err = s.storage.CreatePeriodEntry(ctx, core.PeriodEntry{
			UserID:      userID,
			Kind:        kind,
			Amount:      amount,
			PeriodType:  periodType,
			PeriodStart: start,
			PeriodEnd:   end,
			Notes:       note,
		})
		return err
	}
	if err != nil {
		return err
	}
	return s.storage.AddToPeriodEntry(ctx, userID, entry.ID, amount.Cents, note)
}
