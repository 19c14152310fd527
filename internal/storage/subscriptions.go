package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/aaron7k/wealth/internal/core"
)

func (r *SQLiteRepository) CreateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error) {
	s.ID = uuid.NewString()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, name, amount_cents, billing_cycle, next_billing_date,
		                           status, account_id, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Name, s.Amount.Cents, string(s.BillingCycle), formatDate(s.NextBillingDate),
		string(s.Status), s.AccountID, nullableString(s.CategoryID))
	if err != nil {
		return core.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	return s, nil
}

func scanSubscription(scan func(dest ...any) error) (core.Subscription, error) {
	var s core.Subscription
	var nextBilling string
	var categoryID sql.NullString
	err := scan(&s.ID, &s.UserID, &s.Name, &s.Amount.Cents, &s.BillingCycle, &nextBilling,
		&s.Status, &s.AccountID, &categoryID)
	if err != nil {
		return core.Subscription{}, err
	}
	s.NextBillingDate = parseDate(nextBilling)
	s.CategoryID = categoryID.String
	return s, nil
}

const subscriptionColumns = `id, user_id, name, amount_cents, billing_cycle, next_billing_date, status, account_id, category_id`

func (r *SQLiteRepository) GetSubscription(ctx context.Context, userID, id string) (core.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ? AND user_id = ?`, id, userID)
	s, err := scanSubscription(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Subscription{}, core.ErrNotFound
	}
	if err != nil {
		return core.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListSubscriptions(ctx context.Context, userID string) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = ? ORDER BY next_billing_date`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// ListDueSubscriptions returns active subscriptions across all users
// whose next billing date is on or before the given day. The billing
// worker runs without a user scope.
func (r *SQLiteRepository) ListDueSubscriptions(ctx context.Context, now time.Time) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE status = 'active' AND next_billing_date <= ?
		 ORDER BY next_billing_date`, formatDate(now))
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// ListUpcomingSubscriptions returns a user's active subscriptions due
// within the window, for the dashboard.
func (r *SQLiteRepository) ListUpcomingSubscriptions(ctx context.Context, userID string, until time.Time) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_id = ? AND status = 'active' AND next_billing_date <= ?
		 ORDER BY next_billing_date`, userID, formatDate(until))
	if err != nil {
		return nil, fmt.Errorf("list upcoming subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *SQLiteRepository) UpdateSubscription(ctx context.Context, s core.Subscription) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET name = ?, amount_cents = ?, billing_cycle = ?, next_billing_date = ?,
		    status = ?, account_id = ?, category_id = ?
		WHERE id = ? AND user_id = ?`,
		s.Name, s.Amount.Cents, string(s.BillingCycle), formatDate(s.NextBillingDate),
		string(s.Status), s.AccountID, nullableString(s.CategoryID), s.ID, s.UserID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// AdvanceSubscriptionBilling moves next_billing_date forward after a
// successful charge.
func (r *SQLiteRepository) AdvanceSubscriptionBilling(ctx context.Context, id string, next time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET next_billing_date = ? WHERE id = ?`, formatDate(next), id)
	if err != nil {
		return fmt.Errorf("advance subscription billing: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Subscription billing advanced",
		"id", id,
		"next_billing_date", formatDate(next))
	return nil
}

func (r *SQLiteRepository) DeleteSubscription(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}
