package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aaron7k/wealth/internal/core"
	"github.com/aaron7k/wealth/internal/rates"
	"github.com/aaron7k/wealth/internal/storage"
)

// ReportingService computes the read-side aggregates: budget spend and
// the dashboard summary.
type ReportingService struct {
	storage   *storage.SQLiteRepository
	converter *rates.Converter
}

func NewReportingService(storage *storage.SQLiteRepository, converter *rates.Converter) *ReportingService {
	return &ReportingService{
		storage:   storage,
		converter: converter,
	}
}

// CategoryBreakdown is one slice of the expense pie.
type CategoryBreakdown struct {
	CategoryID   string
	CategoryName string
	Amount       core.Money
}

// DashboardSummary backs the dashboard page. All money fields are in
// the user's default currency.
type DashboardSummary struct {
	Currency        string
	TotalBalance    core.Money
	MonthIncome     core.Money
	MonthExpenses   core.Money
	ExpensesByCat   []CategoryBreakdown
	Budgets         []core.Budget
	PendingTithe    core.Money
	PendingSavings  core.Money
	UpcomingCharges []core.Subscription
	GeneratedAt     time.Time
}

// BudgetsWithSpent returns the user's budgets with spent and remaining
// filled in from matching expense transactions.
func (s *ReportingService) BudgetsWithSpent(ctx context.Context, userID string) ([]core.Budget, error) {
	budgets, err := s.storage.ListBudgets(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range budgets {
		if err := s.fillSpent(ctx, userID, &budgets[i]); err != nil {
			return nil, err
		}
	}
	return budgets, nil
}

// BudgetWithSpent returns one budget with its computed fields.
func (s *ReportingService) BudgetWithSpent(ctx context.Context, userID, id string) (core.Budget, error) {
	b, err := s.storage.GetBudget(ctx, userID, id)
	if err != nil {
		return core.Budget{}, err
	}
	if err := s.fillSpent(ctx, userID, &b); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (s *ReportingService) fillSpent(ctx context.Context, userID string, b *core.Budget) error {
	spent, err := s.storage.SumTransactions(ctx, userID, core.Expense, b.CategoryID, b.StartDate, b.EndDate)
	if err != nil {
		return fmt.Errorf("budget spent: %w", err)
	}
	b.Spent = core.Money{Cents: spent}
	b.Remaining = core.Money{Cents: b.Amount.Cents - spent}
	return nil
}

// Summary builds the dashboard for the month containing now.
func (s *ReportingService) Summary(ctx context.Context, userID string, now time.Time) (DashboardSummary, error) {
	profile, err := s.storage.GetProfile(ctx, userID)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("load profile: %w", err)
	}

	accounts, err := s.storage.ListAccounts(ctx, userID)
	if err != nil {
		return DashboardSummary{}, err
	}
	var totalBalance int64
	for _, a := range accounts {
		if !a.IsActive {
			continue
		}
		totalBalance += s.converter.Convert(a.Balance.Cents, a.Currency, profile.DefaultCurrency)
	}

	monthStart, monthEnd := core.PeriodBounds(now, core.Monthly)
	income, err := s.storage.SumTransactions(ctx, userID, core.Income, "", monthStart, monthEnd)
	if err != nil {
		return DashboardSummary{}, err
	}
	expenses, err := s.storage.SumTransactions(ctx, userID, core.Expense, "", monthStart, monthEnd)
	if err != nil {
		return DashboardSummary{}, err
	}

	sums, err := s.storage.ExpensesByCategory(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return DashboardSummary{}, err
	}
	byCat := make([]CategoryBreakdown, 0, len(sums))
	for _, cs := range sums {
		byCat = append(byCat, CategoryBreakdown{
			CategoryID:   cs.CategoryID,
			CategoryName: cs.CategoryName,
			Amount:       core.Money{Cents: cs.TotalCents},
		})
	}

	budgets, err := s.BudgetsWithSpent(ctx, userID)
	if err != nil {
		return DashboardSummary{}, err
	}

	tithe, err := s.storage.SumPeriodEntries(ctx, userID, core.LedgerDiezmo)
	if err != nil {
		return DashboardSummary{}, err
	}
	savings, err := s.storage.SumPeriodEntries(ctx, userID, core.LedgerSavings)
	if err != nil {
		return DashboardSummary{}, err
	}

	upcoming, err := s.storage.ListUpcomingSubscriptions(ctx, userID, now.AddDate(0, 0, 30))
	if err != nil {
		return DashboardSummary{}, err
	}

	return DashboardSummary{
		Currency:        profile.DefaultCurrency,
		TotalBalance:    core.Money{Cents: totalBalance},
		MonthIncome:     core.Money{Cents: income},
		MonthExpenses:   core.Money{Cents: expenses},
		ExpensesByCat:   byCat,
		Budgets:         budgets,
		PendingTithe:    core.Money{Cents: tithe.PendingCents},
		PendingSavings:  core.Money{Cents: savings.PendingCents},
		UpcomingCharges: upcoming,
		GeneratedAt:     now,
	}, nil
}
