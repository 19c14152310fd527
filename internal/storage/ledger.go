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

// PeriodTotals aggregates a user's ledger rows of one kind.
type PeriodTotals struct {
	PaidCents    int64
	PendingCents int64
}

const periodEntryColumns = `id, user_id, kind, amount_cents, period_type, period_start, period_end, is_paid, paid_date, notes`

func scanPeriodEntry(scan func(dest ...any) error) (core.PeriodEntry, error) {
	var e core.PeriodEntry
	var start, end string
	var isPaid int
	var paidDate sql.NullString
	err := scan(&e.ID, &e.UserID, &e.Kind, &e.Amount.Cents, &e.PeriodType,
		&start, &end, &isPaid, &paidDate, &e.Notes)
	if err != nil {
		return core.PeriodEntry{}, err
	}
	e.PeriodStart = parseDate(start)
	e.PeriodEnd = parseDate(end)
	e.IsPaid = isPaid != 0
	e.PaidDate = parseNullableDate(paidDate)
	return e, nil
}

func (r *SQLiteRepository) CreatePeriodEntry(ctx context.Context, e core.PeriodEntry) (core.PeriodEntry, error) {
	e.ID = uuid.NewString()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO period_entries (id, user_id, kind, amount_cents, period_type,
		                            period_start, period_end, is_paid, paid_date, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, string(e.Kind), e.Amount.Cents, string(e.PeriodType),
		formatDate(e.PeriodStart), formatDate(e.PeriodEnd), e.IsPaid, nullableDate(e.PaidDate), e.Notes)
	if err != nil {
		return core.PeriodEntry{}, fmt.Errorf("create period entry: %w", err)
	}

	slog.InfoContext(ctx, "Period entry created",
		"id", e.ID,
		"user_id", e.UserID,
		"kind", string(e.Kind),
		"period_start", formatDate(e.PeriodStart),
		"period_end", formatDate(e.PeriodEnd))
	return e, nil
}

func (r *SQLiteRepository) GetPeriodEntry(ctx context.Context, userID, id string) (core.PeriodEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+periodEntryColumns+` FROM period_entries WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanPeriodEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PeriodEntry{}, core.ErrNotFound
	}
	if err != nil {
		return core.PeriodEntry{}, fmt.Errorf("get period entry: %w", err)
	}
	return e, nil
}

// FindPeriodEntry locates the single row for (kind, period). The unique
// index on (user_id, kind, period_start, period_end) guarantees at most
// one match.
func (r *SQLiteRepository) FindPeriodEntry(ctx context.Context, userID string, kind core.LedgerKind, start, end time.Time) (core.PeriodEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+periodEntryColumns+` FROM period_entries
		 WHERE user_id = ? AND kind = ? AND period_start = ? AND period_end = ?`,
		userID, string(kind), formatDate(start), formatDate(end))
	e, err := scanPeriodEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PeriodEntry{}, core.ErrNotFound
	}
	if err != nil {
		return core.PeriodEntry{}, fmt.Errorf("find period entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListPeriodEntries(ctx context.Context, userID string, kind core.LedgerKind) ([]core.PeriodEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+periodEntryColumns+` FROM period_entries
		 WHERE user_id = ? AND kind = ?
		 ORDER BY period_start DESC`, userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list period entries: %w", err)
	}
	defer rows.Close()

	var entries []core.PeriodEntry
	for rows.Next() {
		e, err := scanPeriodEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan period entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddToPeriodEntry accumulates an amount onto an existing row with an
// in-database increment, appending the note on its own line.
func (r *SQLiteRepository) AddToPeriodEntry(ctx context.Context, userID, id string, deltaCents int64, note string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE period_entries
		SET amount_cents = amount_cents + ?,
		    notes = CASE WHEN ? = '' THEN notes
		                 WHEN notes = '' THEN ?
		                 ELSE notes || char(10) || ? END,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		deltaCents, note, note, note, id, userID)
	if err != nil {
		return fmt.Errorf("add to period entry: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// SetPeriodEntryAmount overwrites a row's amount, used by the
// recalculation path so repeated runs converge on the same value.
func (r *SQLiteRepository) SetPeriodEntryAmount(ctx context.Context, userID, id string, amountCents int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE period_entries
		SET amount_cents = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		amountCents, id, userID)
	if err != nil {
		return fmt.Errorf("set period entry amount: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *SQLiteRepository) MarkPeriodEntryPaid(ctx context.Context, userID, id string, paidOn time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE period_entries
		SET is_paid = 1, paid_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		formatDate(paidOn), id, userID)
	if err != nil {
		return fmt.Errorf("mark period entry paid: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Period entry marked paid",
		"id", id,
		"user_id", userID,
		"paid_date", formatDate(paidOn))
	return nil
}

func (r *SQLiteRepository) SumPeriodEntries(ctx context.Context, userID string, kind core.LedgerKind) (PeriodTotals, error) {
	var t PeriodTotals
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN is_paid = 1 THEN amount_cents ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN is_paid = 0 THEN amount_cents ELSE 0 END), 0)
		FROM period_entries WHERE user_id = ? AND kind = ?`,
		userID, string(kind)).
		Scan(&t.PaidCents, &t.PendingCents)
	if err != nil {
		return PeriodTotals{}, fmt.Errorf("sum period entries: %w", err)
	}
	return t, nil
}
