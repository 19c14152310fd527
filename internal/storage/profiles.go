package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aaron7k/wealth/internal/core"
)

// GetProfile returns the user's settings, inserting the defaults on
// first access so every caller sees a row.
func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	p, err := r.readProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Profile{}, err
	}

	p = core.DefaultProfile(userID)
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, tithe_enabled, tithe_period, auto_deduct_tithe,
		                      savings_percentage, default_currency)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		p.UserID, p.TitheEnabled, string(p.TithePeriod), p.AutoDeductTithe,
		p.SavingsPercentage, p.DefaultCurrency)
	if err != nil {
		return core.Profile{}, fmt.Errorf("insert default profile: %w", err)
	}
	return r.readProfile(ctx, userID)
}

func (r *SQLiteRepository) readProfile(ctx context.Context, userID string) (core.Profile, error) {
	var p core.Profile
	var titheEnabled, autoDeduct int
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, tithe_enabled, tithe_period, auto_deduct_tithe,
		       savings_percentage, default_currency
		FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &titheEnabled, &p.TithePeriod, &autoDeduct,
			&p.SavingsPercentage, &p.DefaultCurrency)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, core.ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	p.TitheEnabled = titheEnabled != 0
	p.AutoDeductTithe = autoDeduct != 0
	return p, nil
}

func (r *SQLiteRepository) UpdateProfile(ctx context.Context, p core.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, tithe_enabled, tithe_period, auto_deduct_tithe,
		                      savings_percentage, default_currency)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			tithe_enabled = excluded.tithe_enabled,
			tithe_period = excluded.tithe_period,
			auto_deduct_tithe = excluded.auto_deduct_tithe,
			savings_percentage = excluded.savings_percentage,
			default_currency = excluded.default_currency,
			updated_at = CURRENT_TIMESTAMP`,
		p.UserID, p.TitheEnabled, string(p.TithePeriod), p.AutoDeductTithe,
		p.SavingsPercentage, p.DefaultCurrency)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
