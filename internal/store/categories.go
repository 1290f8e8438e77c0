package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mzanotto/funkostore/internal/model"
)

// CreateCategory creates a new category with a generated UUID.
// Name uniqueness must be checked by the caller first (GetCategoryByName);
// there is deliberately no database constraint so names freed by a hard
// delete can be reused.
func CreateCategory(ctx context.Context, db *sql.DB, name string) (*model.Category, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO categories (id, name) VALUES (?, ?)`,
		id, name,
	)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	return GetCategory(ctx, db, id)
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, db *sql.DB, id string) (*model.Category, error) {
	c := &model.Category{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at, is_deleted
		 FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.IsDeleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// GetCategoryByName returns a category by name, compared case-insensitively
// with surrounding whitespace trimmed. Used for uniqueness checks.
func GetCategoryByName(ctx context.Context, db *sql.DB, name string) (*model.Category, error) {
	c := &model.Category{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at, is_deleted
		 FROM categories WHERE LOWER(name) = LOWER(TRIM(?))`, name,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.IsDeleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category by name: %w", err)
	}
	return c, nil
}

// ListCategories returns all non-deleted categories.
func ListCategories(ctx context.Context, db *sql.DB) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at, is_deleted
		 FROM categories WHERE is_deleted = 0 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.IsDeleted); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategory renames a category.
func UpdateCategory(ctx context.Context, db *sql.DB, id, name string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE categories SET name = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND is_deleted = 0`,
		name, id,
	)
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}
	return nil
}

// SoftDeleteCategory marks a category as deleted without removing it.
func SoftDeleteCategory(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE categories SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("soft-deleting category: %w", err)
	}
	return nil
}

// DeleteCategory hard-deletes a category. Funkos that reference it keep
// existing with a null category.
func DeleteCategory(ctx context.Context, db *sql.DB, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE funkos SET category_id = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE category_id = ?`, id,
	); err != nil {
		return fmt.Errorf("detaching funkos from category: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ?`, id,
	); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing category deletion: %w", err)
	}
	return nil
}
