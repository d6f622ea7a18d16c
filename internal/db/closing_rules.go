package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"openinghours/internal/model"
	"openinghours/internal/tz"

	"github.com/jmoiron/sqlx"
)

// ListClosingRules returns the closing rules of a premises ordered by start.
func (db *DB) ListClosingRules(ctx context.Context, premisesID int64) ([]model.ClosingRule, error) {
	var out []model.ClosingRule
	err := db.SelectContext(ctx, &out, `
		SELECT id, premises_id, start_at, end_at, COALESCE(reason, '') AS reason
		FROM closing_rules
		WHERE premises_id = ?
		ORDER BY start_at, id`, premisesID)
	if err != nil {
		return nil, fmt.Errorf("list closing rules for premises %d: %w", premisesID, err)
	}
	return out, nil
}

// ListClosingRulesBetween returns rules overlapping [from, to).
func (db *DB) ListClosingRulesBetween(ctx context.Context, premisesID int64, from, to time.Time) ([]model.ClosingRule, error) {
	var out []model.ClosingRule
	err := db.SelectContext(ctx, &out, `
		SELECT id, premises_id, start_at, end_at, COALESCE(reason, '') AS reason
		FROM closing_rules
		WHERE premises_id = ? AND start_at < ? AND end_at > ?
		ORDER BY start_at, id`, premisesID, to.UTC(), from.UTC())
	if err != nil {
		return nil, fmt.Errorf("list closing rules for premises %d: %w", premisesID, err)
	}
	return out, nil
}

// GetClosingRule returns one rule of a premises.
func (db *DB) GetClosingRule(ctx context.Context, premisesID, id int64) (*model.ClosingRule, error) {
	var r model.ClosingRule
	err := db.GetContext(ctx, &r, `
		SELECT id, premises_id, start_at, end_at, COALESCE(reason, '') AS reason
		FROM closing_rules
		WHERE premises_id = ? AND id = ?`, premisesID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("closing rule %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get closing rule %d: %w", id, err)
	}
	return &r, nil
}

// UpsertClosingRule inserts a rule when its ID is zero, otherwise updates it in place.
func (db *DB) UpsertClosingRule(ctx context.Context, r *model.ClosingRule) error {
	if r.ID == 0 {
		return insertClosingRule(ctx, db.DB, r)
	}

	res, err := db.ExecContext(ctx, `
		UPDATE closing_rules
		SET start_at = ?, end_at = ?, reason = ?
		WHERE id = ? AND premises_id = ?`,
		r.Start.UTC(), r.End.UTC(), nullString(r.Reason), r.ID, r.PremisesID,
	)
	if err != nil {
		return fmt.Errorf("update closing rule %d: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("closing rule %d: %w", r.ID, ErrNotFound)
	}
	return nil
}

// DeleteClosingRule removes a rule. Deleting a missing rule is not an error.
func (db *DB) DeleteClosingRule(ctx context.Context, premisesID, id int64) error {
	if _, err := db.ExecContext(ctx,
		`DELETE FROM closing_rules WHERE id = ? AND premises_id = ?`, id, premisesID,
	); err != nil {
		return fmt.Errorf("delete closing rule %d: %w", id, err)
	}
	return nil
}

// SeedHoliday inserts the closing rule of a configured holiday the first time
// the holiday is seen for the premises. Later syncs leave the rule alone, so
// an operator can edit or delete it. Reports whether the rule was added.
func (db *DB) SeedHoliday(ctx context.Context, date tz.Date, r *model.ClosingRule) (added bool, err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin seed holiday: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO holiday_seeds (premises_id, holiday_date) VALUES (?, ?)`,
		r.PremisesID, date.String(),
	)
	if err != nil {
		return false, fmt.Errorf("seed holiday %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, tx.Rollback()
	}

	if err = insertClosingRule(ctx, tx, r); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed holiday %s: %w", date, err)
	}
	return true, nil
}

func insertClosingRule(ctx context.Context, ex sqlx.ExecerContext, r *model.ClosingRule) error {
	res, err := ex.ExecContext(ctx, `
		INSERT INTO closing_rules (premises_id, start_at, end_at, reason)
		VALUES (?, ?, ?, ?)`,
		r.PremisesID, r.Start.UTC(), r.End.UTC(), nullString(r.Reason),
	)
	if err != nil {
		return fmt.Errorf("insert closing rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
