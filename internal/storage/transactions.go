package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aaron7k/wealth/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	AccountID  string
	CategoryID string
	Type       core.TransactionType
	From       time.Time
	To         time.Time
	Limit      int
}

// TitheIncome is the slice of a transaction the ledger recalculation
// needs: the amount plus the currency of the holding account.
type TitheIncome struct {
	AmountCents int64
	Currency    string
}

// CategorySum is one row of the expense-by-category breakdown.
type CategorySum struct {
	CategoryID   string
	CategoryName string
	TotalCents   int64
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = uuid.NewString()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, description, amount_cents, type, transaction_date,
		                          account_id, category_id, generate_tithe)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Description, t.Amount.Cents, string(t.Type), formatDate(t.Date),
		t.AccountID, nullableString(t.CategoryID), t.GenerateTithe)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"type", string(t.Type),
		"amount_cents", t.Amount.Cents,
		"account_id", t.AccountID)
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	var t core.Transaction
	var date string
	var categoryID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, description, amount_cents, type, transaction_date,
		       account_id, category_id, generate_tithe
		FROM transactions WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&t.ID, &t.UserID, &t.Description, &t.Amount.Cents, &t.Type, &date,
			&t.AccountID, &categoryID, &t.GenerateTithe)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	t.Date = parseDate(date)
	t.CategoryID = categoryID.String
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]core.Transaction, error) {
	query := `
		SELECT id, user_id, description, amount_cents, type, transaction_date,
		       account_id, category_id, generate_tithe
		FROM transactions WHERE user_id = ?`
	args := []any{userID}

	var conds []string
	if f.AccountID != "" {
		conds = append(conds, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID != "" {
		conds = append(conds, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() {
		conds = append(conds, "transaction_date >= ?")
		args = append(args, formatDate(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "transaction_date <= ?")
		args = append(args, formatDate(f.To))
	}
	if len(conds) > 0 {
		query += " AND " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY transaction_date DESC, created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var date string
		var categoryID sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Description, &t.Amount.Cents, &t.Type, &date,
			&t.AccountID, &categoryID, &t.GenerateTithe); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Date = parseDate(date)
		t.CategoryID = categoryID.String
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET description = ?, amount_cents = ?, type = ?, transaction_date = ?,
		    account_id = ?, category_id = ?, generate_tithe = ?
		WHERE id = ? AND user_id = ?`,
		t.Description, t.Amount.Cents, string(t.Type), formatDate(t.Date),
		t.AccountID, nullableString(t.CategoryID), t.GenerateTithe, t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// SumTransactions totals amounts of one type within an inclusive date
// range, optionally narrowed to a category. Used for budget "spent" and
// the dashboard cards.
func (r *SQLiteRepository) SumTransactions(ctx context.Context, userID string, txType core.TransactionType, categoryID string, from, to time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = ? AND type = ? AND transaction_date >= ? AND transaction_date <= ?`
	args := []any{userID, string(txType), formatDate(from), formatDate(to)}
	if categoryID != "" {
		query += " AND category_id = ?"
		args = append(args, categoryID)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return total, nil
}

// ExpensesByCategory returns per-category expense totals for the range.
func (r *SQLiteRepository) ExpensesByCategory(ctx context.Context, userID string, from, to time.Time) ([]CategorySum, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(t.category_id, ''), COALESCE(c.name, 'Uncategorized'), SUM(t.amount_cents)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.type = 'expense'
		  AND t.transaction_date >= ? AND t.transaction_date <= ?
		GROUP BY t.category_id
		ORDER BY SUM(t.amount_cents) DESC`,
		userID, formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("expenses by category: %w", err)
	}
	defer rows.Close()

	var sums []CategorySum
	for rows.Next() {
		var s CategorySum
		if err := rows.Scan(&s.CategoryID, &s.CategoryName, &s.TotalCents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		sums = append(sums, s)
	}
	return sums, rows.Err()
}

// ListTitheIncomes returns income transactions flagged for tithing in
// the period, joined with the account currency so each amount can be
// converted before aggregation.
func (r *SQLiteRepository) ListTitheIncomes(ctx context.Context, userID string, from, to time.Time) ([]TitheIncome, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.amount_cents, a.currency
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE t.user_id = ? AND t.type = 'income' AND t.generate_tithe = 1
		  AND t.transaction_date >= ? AND t.transaction_date <= ?`,
		userID, formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("list tithe incomes: %w", err)
	}
	defer rows.Close()

	var incomes []TitheIncome
	for rows.Next() {
		var ti TitheIncome
		if err := rows.Scan(&ti.AmountCents, &ti.Currency); err != nil {
			return nil, fmt.Errorf("scan tithe income: %w", err)
		}
		incomes = append(incomes, ti)
	}
	return incomes, rows.Err()
}
