package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aaron7k/wealth/internal/core"
)

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.ID = uuid.NewString()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, name, amount_cents, period, start_date, end_date, category_id, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Name, b.Amount.Cents, string(b.Period),
		formatDate(b.StartDate), formatDate(b.EndDate), b.CategoryID, b.IsActive)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID, id string) (core.Budget, error) {
	var b core.Budget
	var start, end string
	var isActive int
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, amount_cents, period, start_date, end_date, category_id, is_active
		FROM budgets WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&b.ID, &b.UserID, &b.Name, &b.Amount.Cents, &b.Period, &start, &end, &b.CategoryID, &isActive)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	b.StartDate = parseDate(start)
	b.EndDate = parseDate(end)
	b.IsActive = isActive != 0
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, amount_cents, period, start_date, end_date, category_id, is_active
		FROM budgets WHERE user_id = ? ORDER BY start_date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		var start, end string
		var isActive int
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Amount.Cents, &b.Period, &start, &end, &b.CategoryID, &isActive); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.StartDate = parseDate(start)
		b.EndDate = parseDate(end)
		b.IsActive = isActive != 0
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE budgets
		SET name = ?, amount_cents = ?, period = ?, start_date = ?, end_date = ?,
		    category_id = ?, is_active = ?
		WHERE id = ? AND user_id = ?`,
		b.Name, b.Amount.Cents, string(b.Period), formatDate(b.StartDate), formatDate(b.EndDate),
		b.CategoryID, b.IsActive, b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}
