package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/seremi5/expense-server/internal/domain/settings"
)

func (r *SettingsRepository) ListEvents(ctx context.Context, includeInactive bool) ([]settings.Event, error) {
	q := pick(r.pool, r.tx)

	rows, err := q.Query(ctx, `
SELECT id, name, starts_on, ends_on, active, created_at
  FROM events
 WHERE $1 OR active
 ORDER BY starts_on DESC NULLS LAST, id DESC
`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []settings.Event
	for rows.Next() {
		var event settings.Event
		if err := rows.Scan(&event.ID, &event.Name, &event.StartsOn, &event.EndsOn, &event.Active, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (r *SettingsRepository) GetEvent(ctx context.Context, id int64) (*settings.Event, error) {
	q := pick(r.pool, r.tx)

	var event settings.Event
	err := q.QueryRow(ctx, `
SELECT id, name, starts_on, ends_on, active, created_at FROM events WHERE id = $1
`, id).Scan(&event.ID, &event.Name, &event.StartsOn, &event.EndsOn, &event.Active, &event.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settings.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

func (r *SettingsRepository) CreateEvent(ctx context.Context, event *settings.Event) error {
	q := pick(r.pool, r.tx)

	err := q.QueryRow(ctx, `
INSERT INTO events (name, starts_on, ends_on, active, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`, event.Name, event.StartsOn, event.EndsOn, event.Active, event.CreatedAt).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *SettingsRepository) UpdateEvent(ctx context.Context, event *settings.Event) error {
	q := pick(r.pool, r.tx)

	tag, err := q.Exec(ctx, `
UPDATE events SET name = $2, starts_on = $3, ends_on = $4, active = $5 WHERE id = $1
`, event.ID, event.Name, event.StartsOn, event.EndsOn, event.Active)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return settings.ErrNotFound
	}
	return nil
}

func (r *SettingsRepository) ListCategories(ctx context.Context, includeInactive bool) ([]settings.Category, error) {
	q := pick(r.pool, r.tx)

	rows, err := q.Query(ctx, `
SELECT id, name, account, active, created_at
  FROM categories
 WHERE $1 OR active
 ORDER BY name ASC
`, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []settings.Category
	for rows.Next() {
		var category settings.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Account, &category.Active, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *SettingsRepository) GetCategory(ctx context.Context, id int64) (*settings.Category, error) {
	q := pick(r.pool, r.tx)

	var category settings.Category
	err := q.QueryRow(ctx, `
SELECT id, name, account, active, created_at FROM categories WHERE id = $1
`, id).Scan(&category.ID, &category.Name, &category.Account, &category.Active, &category.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settings.ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &category, nil
}

func (r *SettingsRepository) CreateCategory(ctx context.Context, category *settings.Category) error {
	q := pick(r.pool, r.tx)

	err := q.QueryRow(ctx, `
INSERT INTO categories (name, account, active, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id
`, category.Name, category.Account, category.Active, category.CreatedAt).Scan(&category.ID)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *SettingsRepository) UpdateCategory(ctx context.Context, category *settings.Category) error {
	q := pick(r.pool, r.tx)

	tag, err := q.Exec(ctx, `
UPDATE categories SET name = $2, account = $3, active = $4 WHERE id = $1
`, category.ID, category.Name, category.Account, category.Active)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return settings.ErrNotFound
	}
	return nil
}
