package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"openinghours/internal/model"
)

const premisesColumns = `id, slug, name, timezone, is_active, created_at, updated_at`

// GetPremises returns premises by ID.
func (db *DB) GetPremises(ctx context.Context, id int64) (*model.Premises, error) {
	var p model.Premises
	err := db.GetContext(ctx, &p, `SELECT `+premisesColumns+` FROM premises WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("premises %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get premises %d: %w", id, err)
	}
	return &p, nil
}

// GetPremisesBySlug returns premises by its URL slug.
func (db *DB) GetPremisesBySlug(ctx context.Context, slug string) (*model.Premises, error) {
	var p model.Premises
	err := db.GetContext(ctx, &p, `SELECT `+premisesColumns+` FROM premises WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("premises %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get premises %q: %w", slug, err)
	}
	return &p, nil
}

// ListActivePremises returns active premises ordered by name.
func (db *DB) ListActivePremises(ctx context.Context) ([]model.Premises, error) {
	var out []model.Premises
	err := db.SelectContext(ctx, &out,
		`SELECT `+premisesColumns+` FROM premises WHERE is_active = 1 ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list premises: %w", err)
	}
	return out, nil
}

// UpsertPremises inserts or updates premises keyed by ID, preserving created_at.
func (db *DB) UpsertPremises(ctx context.Context, p *model.Premises) error {
	now := time.Now().UTC()
	if p.ID == 0 {
		res, err := db.ExecContext(ctx, `
			INSERT INTO premises (slug, name, timezone, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.Slug, p.Name, p.Timezone, p.IsActive, now, now,
		)
		if err != nil {
			return fmt.Errorf("insert premises %q: %w", p.Slug, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		p.ID = id
		p.CreatedAt, p.UpdatedAt = now, now
		return nil
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO premises (id, slug, name, timezone, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM premises WHERE id = ?), ?), ?)
		ON CONFLICT(id) DO UPDATE SET
			slug = excluded.slug,
			name = excluded.name,
			timezone = excluded.timezone,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		p.ID, p.Slug, p.Name, p.Timezone, p.IsActive, p.ID, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert premises %d: %w", p.ID, err)
	}
	p.UpdatedAt = now
	return nil
}
