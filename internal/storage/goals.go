package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/aaron7k/wealth/internal/core"
)

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.ID = uuid.NewString()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (id, user_id, name, target_cents, current_cents, deadline)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Name, g.Target.Cents, g.Current.Cents, nullableDate(g.Deadline))
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, id string) (core.Goal, error) {
	var g core.Goal
	var deadline sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, target_cents, current_cents, deadline
		FROM goals WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&g.ID, &g.UserID, &g.Name, &g.Target.Cents, &g.Current.Cents, &deadline)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, core.ErrNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	g.Deadline = parseNullableDate(deadline)
	g.IsCompleted = g.Completed()
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, target_cents, current_cents, deadline
		FROM goals WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.Goal
	for rows.Next() {
		var g core.Goal
		var deadline sql.NullString
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.Target.Cents, &g.Current.Cents, &deadline); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.Deadline = parseNullableDate(deadline)
		g.IsCompleted = g.Completed()
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, g core.Goal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals SET name = ?, target_cents = ?, deadline = ?
		WHERE id = ? AND user_id = ?`,
		g.Name, g.Target.Cents, nullableDate(g.Deadline), g.ID, g.UserID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// DeleteGoal removes the goal and its contribution history in one
// transaction. The contributions delete is scoped through the goal's
// owner so a wrong-user request touches nothing.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete goal: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM goal_contributions
		WHERE goal_id IN (SELECT id FROM goals WHERE id = ? AND user_id = ?)`,
		id, userID); err != nil {
		return fmt.Errorf("delete goal contributions: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return err
	}
	return tx.Commit()
}

// AddGoalContribution records the contribution and bumps the goal's
// running total, atomically: the total is an in-database increment so
// concurrent contributions never clobber each other, and both writes
// share one transaction so a failed insert leaves the total untouched.
func (r *SQLiteRepository) AddGoalContribution(ctx context.Context, userID string, c core.GoalContribution) (core.GoalContribution, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.GoalContribution{}, fmt.Errorf("begin goal contribution: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE goals SET current_cents = current_cents + ?
		WHERE id = ? AND user_id = ?`,
		c.Amount.Cents, c.GoalID, userID)
	if err != nil {
		return core.GoalContribution{}, fmt.Errorf("add goal contribution: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return core.GoalContribution{}, err
	}

	c.ID = uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO goal_contributions (id, goal_id, amount_cents, contributed_at, notes)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.GoalID, c.Amount.Cents, formatDate(c.ContributedAt), c.Notes)
	if err != nil {
		return core.GoalContribution{}, fmt.Errorf("record goal contribution: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.GoalContribution{}, fmt.Errorf("commit goal contribution: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListGoalContributions(ctx context.Context, userID, goalID string) ([]core.GoalContribution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT gc.id, gc.goal_id, gc.amount_cents, gc.contributed_at, gc.notes
		FROM goal_contributions gc
		JOIN goals g ON g.id = gc.goal_id
		WHERE gc.goal_id = ? AND g.user_id = ?
		ORDER BY gc.contributed_at DESC`, goalID, userID)
	if err != nil {
		return nil, fmt.Errorf("list goal contributions: %w", err)
	}
	defer rows.Close()

	var contributions []core.GoalContribution
	for rows.Next() {
		var c core.GoalContribution
		var contributed string
		if err := rows.Scan(&c.ID, &c.GoalID, &c.Amount.Cents, &contributed, &c.Notes); err != nil {
			return nil, fmt.Errorf("scan goal contribution: %w", err)
		}
		c.ContributedAt = parseDate(contributed)
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}
