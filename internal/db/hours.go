package db

import (
	"context"
	"fmt"

	"openinghours/internal/model"

	"github.com/jmoiron/sqlx"
)

// ListOpeningHours returns the weekly hours of a premises ordered by weekday then opening time.
func (db *DB) ListOpeningHours(ctx context.Context, premisesID int64) ([]model.OpeningHours, error) {
	var out []model.OpeningHours
	err := db.SelectContext(ctx, &out, `
		SELECT id, premises_id, weekday, opens, shuts
		FROM opening_hours
		WHERE premises_id = ?
		ORDER BY weekday, opens, id`, premisesID)
	if err != nil {
		return nil, fmt.Errorf("list opening hours for premises %d: %w", premisesID, err)
	}
	return out, nil
}

// DeleteOpeningHours removes every weekly slot of a premises.
func (db *DB) DeleteOpeningHours(ctx context.Context, premisesID int64) error {
	return deleteOpeningHours(ctx, db.DB, premisesID)
}

// InsertOpeningHours stores one slot and sets its ID.
func (db *DB) InsertOpeningHours(ctx context.Context, h *model.OpeningHours) error {
	return insertOpeningHours(ctx, db.DB, h)
}

// ReplaceOpeningHours swaps the whole weekly schedule of a premises in one
// transaction and marks its hours as set, so config defaults are not seeded
// over a week saved with every day closed.
func (db *DB) ReplaceOpeningHours(ctx context.Context, premisesID int64, hours []model.OpeningHours) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace opening hours: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = deleteOpeningHours(ctx, tx, premisesID); err != nil {
		return err
	}
	for i := range hours {
		hours[i].PremisesID = premisesID
		if err = insertOpeningHours(ctx, tx, &hours[i]); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx, `UPDATE premises SET hours_seeded = 1 WHERE id = ?`, premisesID); err != nil {
		return fmt.Errorf("mark hours seeded for premises %d: %w", premisesID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace opening hours: %w", err)
	}

	db.logger.Debug().Int64("premises_id", premisesID).Int("slots", len(hours)).Msg("Opening hours replaced")
	return nil
}

func deleteOpeningHours(ctx context.Context, ex sqlx.ExecerContext, premisesID int64) error {
	if _, err := ex.ExecContext(ctx, `DELETE FROM opening_hours WHERE premises_id = ?`, premisesID); err != nil {
		return fmt.Errorf("delete opening hours for premises %d: %w", premisesID, err)
	}
	return nil
}

func insertOpeningHours(ctx context.Context, ex sqlx.ExecerContext, h *model.OpeningHours) error {
	res, err := ex.ExecContext(ctx, `
		INSERT INTO opening_hours (premises_id, weekday, opens, shuts)
		VALUES (?, ?, ?, ?)`,
		h.PremisesID, h.Weekday, h.Opens, h.Shuts,
	)
	if err != nil {
		return fmt.Errorf("insert opening hours %s %s-%s: %w", h.Weekday, h.Opens, h.Shuts, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = id
	return nil
}
