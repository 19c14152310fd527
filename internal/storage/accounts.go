package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aaron7k/wealth/internal/core"
)

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.ID = uuid.NewString()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, type, balance_cents, currency, bank_name, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, string(a.Type), a.Balance.Cents, a.Currency, a.BankName, a.IsActive)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account created",
		"id", a.ID,
		"user_id", a.UserID,
		"name", a.Name,
		"currency", a.Currency)
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	var a core.Account
	var isActive int
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, type, balance_cents, currency, bank_name, is_active
		FROM accounts WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance.Cents, &a.Currency, &a.BankName, &isActive)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	a.IsActive = isActive != 0
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, type, balance_cents, currency, bank_name, is_active
		FROM accounts WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var isActive int
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Balance.Cents, &a.Currency, &a.BankName, &isActive); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.IsActive = isActive != 0
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, type = ?, balance_cents = ?, currency = ?, bank_name = ?, is_active = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		a.Name, string(a.Type), a.Balance.Cents, a.Currency, a.BankName, a.IsActive, a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// ApplyBalanceDelta adjusts an account balance with a single in-database
// increment. Concurrent transaction entry cannot lose updates this way,
// unlike a read-modify-write of the balance column.
func (r *SQLiteRepository) ApplyBalanceDelta(ctx context.Context, userID, accountID string, deltaCents int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET balance_cents = balance_cents + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		deltaCents, accountID, userID)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return err
	}

	slog.DebugContext(ctx, "Account balance adjusted",
		"account_id", accountID,
		"delta_cents", deltaCents)
	return nil
}

func rowsAffectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
