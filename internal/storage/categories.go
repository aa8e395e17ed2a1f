package storage

import (
	"context"
	"database/sql"
	"fmt"

	"backoffice/internal/core"
)

// Categories is the category taxonomy over SQLite. The primary key on name
// makes Create an idempotent upsert across processes.
type Categories struct {
	db *sql.DB
}

func (c *Categories) List(ctx context.Context) ([]core.Category, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var cat core.Category
		if err := rows.Scan(&cat.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (c *Categories) Create(ctx context.Context, name string) (core.Category, error) {
	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO categories (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return core.Category{}, fmt.Errorf("create category %q: %w", name, err)
	}
	return core.Category{Name: name}, nil
}

func (c *Categories) Exists(ctx context.Context, name string) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx, `SELECT 1 FROM categories WHERE name = ?`, name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check category %q: %w", name, err)
	}
	return true, nil
}
