package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aaron7k/wealth/internal/core"
	"github.com/aaron7k/wealth/internal/rates"
	"github.com/aaron7k/wealth/internal/storage"
)

func newTestDeps(t *testing.T) (*storage.SQLiteRepository, *rates.Converter) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	converter := rates.NewConverter("")
	converter.SetRates(map[string]float64{
		"USD": 1.0,
		"MXN": 17.5,
		"EUR": 0.85,
	})
	return repo, converter
}

func createAccount(t *testing.T, repo *storage.SQLiteRepository, userID, currency string, balanceCents int64) core.Account {
	t.Helper()

	a, err := repo.CreateAccount(context.Background(), core.Account{
		UserID:   userID,
		Name:     "Main",
		Type:     core.AccountChecking,
		Balance:  core.Money{Cents: balanceCents},
		Currency: currency,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	return a
}

func setProfile(t *testing.T, repo *storage.SQLiteRepository, p core.Profile) {
	t.Helper()
	if err := repo.UpdateProfile(context.Background(), p); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
}

func accountBalance(t *testing.T, repo *storage.SQLiteRepository, userID, id string) int64 {
	t.Helper()
	a, err := repo.GetAccount(context.Background(), userID, id)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	return a.Balance.Cents
}

func TestIncomeAllocationEndToEnd(t *testing.T) {
	repo, converter := newTestDeps(t)
	svc := NewTransactionService(repo, nil, converter)
	ctx := context.Background()

	account := createAccount(t, repo, "user-1", "USD", 100000)
	setProfile(t, repo, core.Profile{
		UserID:            "user-1",
		TitheEnabled:      true,
		TithePeriod:       core.Monthly,
		AutoDeductTithe:   true,
		SavingsPercentage: 10,
		DefaultCurrency:   "USD",
	})

	date := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)
	_, err := svc.CreateTransaction(ctx, core.Transaction{
		UserID:        "user-1",
		Description:   "Salary",
		Amount:        core.Money{Cents: 50000},
		Type:          core.Income,
		Date:          date,
		AccountID:     account.ID,
		GenerateTithe: true,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	// 1000.00 + 500.00 income - 50.00 tithe - 45.00 savings (10% of 450.00)
	if got := accountBalance(t, repo, "user-1", account.ID); got != 140500 {
		t.Errorf("balance = %d, want 140500", got)
	}

	start, end := core.PeriodBounds(date, core.Monthly)
	diezmo, err := repo.FindPeriodEntry(ctx, "user-1", core.LedgerDiezmo, start, end)
	if err != nil {
		t.Fatalf("FindPeriodEntry(diezmo) error = %v", err)
	}
	if diezmo.Amount.Cents != 5000 {
		t.Errorf("diezmo amount = %d, want 5000", diezmo.Amount.Cents)
	}

	savings, err := repo.FindPeriodEntry(ctx, "user-1", core.LedgerSavings, start, end)
	if err != nil {
		t.Fatalf("FindPeriodEntry(savings) error = %v", err)
	}
	if savings.Amount.Cents != 4500 {
		t.Errorf("savings amount = %d, want 4500", savings.Amount.Cents)
	}

	t.Run("second income accumulates into the same rows", func(t *testing.T) {
		_, err := svc.CreateTransaction(ctx, core.Transaction{
			UserID:        "user-1",
			Description:   "Bonus",
			Amount:        core.Money{Cents: 10000},
			Type:          core.Income,
			Date:          date.AddDate(0, 0, 5),
			AccountID:     account.ID,
			GenerateTithe: true,
		})
		if err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}

		entries, err := repo.ListPeriodEntries(ctx, "user-1", core.LedgerDiezmo)
		if err != nil {
			t.Fatalf("ListPeriodEntries() error = %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("got %d diezmo rows, want 1", len(entries))
		}
		if entries[0].Amount.Cents != 6000 {
			t.Errorf("accumulated diezmo = %d, want 6000", entries[0].Amount.Cents)
		}
	})
}

func TestAllocationSkipsWhenDisabled(t *testing.T) {
	repo, converter := newTestDeps(t)
	svc := NewTransactionService(repo, nil, converter)
	ctx := context.Background()

	account := createAccount(t, repo, "user-1", "USD", 100000)
	// Default profile: tithing disabled.

	_, err := svc.CreateTransaction(ctx, core.Transaction{
		UserID:        "user-1",
		Description:   "Salary",
		Amount:        core.Money{Cents: 50000},
		Type:          core.Income,
		Date:          time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC),
		AccountID:     account.ID,
		GenerateTithe: true,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	if got := accountBalance(t, repo, "user-1", account.ID); got != 150000 {
		t.Errorf("balance = %d, want 150000 (no deductions)", got)
	}
	entries, err := repo.ListPeriodEntries(ctx, "user-1", core.LedgerDiezmo)
	if err != nil {
		t.Fatalf("ListPeriodEntries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d diezmo rows, want 0", len(entries))
	}
}

func TestAllocationCrossCurrency(t *testing.T) {
	repo, converter := newTestDeps(t)
	svc := NewTransactionService(repo, nil, converter)
	ctx := context.Background()

	// MXN account, USD default currency, rate 17.5.
	account := createAccount(t, repo, "user-1", "MXN", 1750000)
	setProfile(t, repo, core.Profile{
		UserID:            "user-1",
		TitheEnabled:      true,
		TithePeriod:       core.Monthly,
		AutoDeductTithe:   true,
		SavingsPercentage: 0,
		DefaultCurrency:   "USD",
	})

	date := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)
	// 17,500.00 MXN = 1,000.00 USD; tithe 100.00 USD = 1,750.00 MXN.
	_, err := svc.CreateTransaction(ctx, core.Transaction{
		UserID:        "user-1",
		Description:   "Pago",
		Amount:        core.Money{Cents: 1750000},
		Type:          core.Income,
		Date:          date,
		AccountID:     account.ID,
		GenerateTithe: true,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	start, end := core.PeriodBounds(date, core.Monthly)
	diezmo, err := repo.FindPeriodEntry(ctx, "user-1", core.LedgerDiezmo, start, end)
	if err != nil {
		t.Fatalf("FindPeriodEntry() error = %v", err)
	}
	if diezmo.Amount.Cents != 10000 {
		t.Errorf("diezmo amount = %d USD cents, want 10000", diezmo.Amount.Cents)
	}

	// Balance in MXN: +17,500.00 income - 1,750.00 tithe.
	want := int64(1750000 + 1750000 - 175000)
	if got := accountBalance(t, repo, "user-1", account.ID); got != want {
		t.Errorf("balance = %d, want %d", got, want)
	}
}

func TestRecalculateIdempotent(t *testing.T) {
	repo, converter := newTestDeps(t)
	txSvc := NewTransactionService(repo, nil, converter)
	ledger := NewLedgerService(repo, converter)
	ctx := context.Background()

	account := createAccount(t, repo, "user-1", "USD", 0)
	setProfile(t, repo, core.Profile{
		UserID:          "user-1",
		TitheEnabled:    true,
		TithePeriod:     core.Monthly,
		DefaultCurrency: "USD",
	})

	now := time.Date(2025, time.July, 20, 0, 0, 0, 0, time.UTC)
	for _, cents := range []int64{50000, 30000} {
		_, err := txSvc.CreateTransaction(ctx, core.Transaction{
			UserID:        "user-1",
			Description:   "Income",
			Amount:        core.Money{Cents: cents},
			Type:          core.Income,
			Date:          now,
			AccountID:     account.ID,
			GenerateTithe: true,
		})
		if err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}

	first, err := ledger.Recalculate(ctx, "user-1", now)
	if err != nil {
		t.Fatalf("Recalculate() error = %v", err)
	}
	second, err := ledger.Recalculate(ctx, "user-1", now)
	if err != nil {
		t.Fatalf("second Recalculate() error = %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("recalculation created a second row: %s vs %s", first.ID, second.ID)
	}
	// 10% of 800.00 total flagged income.
	if second.Amount.Cents != 8000 {
		t.Errorf("recalculated amount = %d, want 8000", second.Amount.Cents)
	}

	entries, err := repo.ListPeriodEntries(ctx, "user-1", core.LedgerDiezmo)
	if err != nil {
		t.Fatalf("ListPeriodEntries() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d diezmo rows after two recalculations, want 1", len(entries))
	}
}

func TestRecalculateReconcilesDrift(t *testing.T) {
	repo, converter := newTestDeps(t)
	ledger := NewLedgerService(repo, converter)
	ctx := context.Background()

	account := createAccount(t, repo, "user-1", "USD", 0)
	setProfile(t, repo, core.Profile{
		UserID:          "user-1",
		TitheEnabled:    true,
		TithePeriod:     core.Monthly,
		DefaultCurrency: "USD",
	})

	now := time.Date(2025, time.July, 20, 0, 0, 0, 0, time.UTC)
	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:        "user-1",
		Description:   "Income",
		Amount:        core.Money{Cents: 100000},
		Type:          core.Income,
		Date:          now,
		AccountID:     account.ID,
		GenerateTithe: true,
	}); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	// Seed a drifted row for the period.
	start, end := core.PeriodBounds(now, core.Monthly)
	seeded, err := repo.CreatePeriodEntry(ctx, core.PeriodEntry{
		UserID:      "user-1",
		Kind:        core.LedgerDiezmo,
		Amount:      core.Money{Cents: 1234},
		PeriodType:  core.Monthly,
		PeriodStart: start,
		PeriodEnd:   end,
	})
	if err != nil {
		t.Fatalf("CreatePeriodEntry() error = %v", err)
	}

	entry, err := ledger.Recalculate(ctx, "user-1", now)
	if err != nil {
		t.Fatalf("Recalculate() error = %v", err)
	}
	if entry.ID != seeded.ID {
		t.Errorf("Recalculate() created a new row instead of reconciling")
	}
	if entry.Amount.Cents != 10000 {
		t.Errorf("reconciled amount = %d, want 10000", entry.Amount.Cents)
	}
}

func TestTransactionBalanceEffects(t *testing.T) {
	repo, converter := newTestDeps(t)
	svc := NewTransactionService(repo, nil, converter)
	ctx := context.Background()

	account := createAccount(t, repo, "user-1", "USD", 100000)
	date := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

	created, err := svc.CreateTransaction(ctx, core.Transaction{
		UserID:      "user-1",
		Description: "Groceries",
		Amount:      core.Money{Cents: 12000},
		Type:        core.Expense,
		Date:        date,
		AccountID:   account.ID,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if got := accountBalance(t, repo, "user-1", account.ID); got != 88000 {
		t.Fatalf("balance after expense = %d, want 88000", got)
	}

	t.Run("update re-applies delta", func(t *testing.T) {
		created.Amount = core.Money{Cents: 20000}
		if err := svc.UpdateTransaction(ctx, created); err != nil {
			t.Fatalf("UpdateTransaction() error = %v", err)
		}
		if got := accountBalance(t, repo, "user-1", account.ID); got != 80000 {
			t.Errorf("balance after update = %d, want 80000", got)
		}
	})

	t.Run("delete reverses delta", func(t *testing.T) {
		if err := svc.DeleteTransaction(ctx, "user-1", created.ID); err != nil {
			t.Fatalf("DeleteTransaction() error = %v", err)
		}
		if got := accountBalance(t, repo, "user-1", account.ID); got != 100000 {
			t.Errorf("balance after delete = %d, want 100000", got)
		}
	})

	t.Run("rejects unknown account", func(t *testing.T) {
		_, err := svc.CreateTransaction(ctx, core.Transaction{
			UserID:      "user-1",
			Description: "Ghost",
			Amount:      core.Money{Cents: 100},
			Type:        core.Expense,
			Date:        date,
			AccountID:   "missing",
		})
		if err == nil {
			t.Error("CreateTransaction() with unknown account should fail")
		}
	})
}

func TestTransferCrossCurrency(t *testing.T) {
	repo, converter := newTestDeps(t)
	svc := NewTransactionService(repo, nil, converter)
	ctx := context.Background()

	usd := createAccount(t, repo, "user-1", "USD", 100000)
	mxn, err := repo.CreateAccount(ctx, core.Account{
		UserID:   "user-1",
		Name:     "Pesos",
		Type:     core.AccountSavings,
		Currency: "MXN",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	date := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	out, in, err := svc.Transfer(ctx, "user-1", usd.ID, mxn.ID, core.Money{Cents: 10000}, "", date)
	if err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}

	if out.Type != core.Expense || out.AccountID != usd.ID {
		t.Errorf("outgoing leg = %+v", out)
	}
	if in.Type != core.Income || in.AccountID != mxn.ID {
		t.Errorf("incoming leg = %+v", in)
	}
	// 100.00 USD at 17.5 = 1,750.00 MXN.
	if in.Amount.Cents != 175000 {
		t.Errorf("converted amount = %d, want 175000", in.Amount.Cents)
	}

	if got := accountBalance(t, repo, "user-1", usd.ID); got != 90000 {
		t.Errorf("source balance = %d, want 90000", got)
	}
	if got := accountBalance(t, repo, "user-1", mxn.ID); got != 175000 {
		t.Errorf("destination balance = %d, want 175000", got)
	}

	t.Run("same account rejected", func(t *testing.T) {
		_, _, err := svc.Transfer(ctx, "user-1", usd.ID, usd.ID, core.Money{Cents: 100}, "", date)
		if err == nil {
			t.Error("Transfer() to the same account should fail")
		}
	})
}
