package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mzanotto/funkostore/internal/model"
)

// CreateFunko creates a new funko. An empty image defaults to the
// placeholder via the schema default.
func CreateFunko(ctx context.Context, db *sql.DB, name string, price decimal.Decimal, quantity int, categoryID *string) (*model.Funko, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO funkos (name, price, quantity, category_id) VALUES (?, ?, ?, ?)`,
		name, price.String(), quantity, categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating funko: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting funko id: %w", err)
	}

	return GetFunko(ctx, db, id)
}

// GetFunko returns a funko by ID, including soft-deleted ones.
func GetFunko(ctx context.Context, db *sql.DB, id int64) (*model.Funko, error) {
	f := &model.Funko{}
	var price string
	err := db.QueryRowContext(ctx,
		`SELECT id, name, price, quantity, image, category_id, created_at, updated_at, is_deleted
		 FROM funkos WHERE id = ?`, id,
	).Scan(&f.ID, &f.Name, &price, &f.Quantity, &f.Image, &f.CategoryID, &f.CreatedAt, &f.UpdatedAt, &f.IsDeleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting funko: %w", err)
	}
	if f.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parsing funko price: %w", err)
	}
	return f, nil
}

// ListFunkos returns all non-deleted funkos, optionally filtered by category.
func ListFunkos(ctx context.Context, db *sql.DB, categoryID string) ([]model.Funko, error) {
	query := `SELECT id, name, price, quantity, image, category_id, created_at, updated_at, is_deleted
	          FROM funkos WHERE is_deleted = 0`
	args := []any{}
	if categoryID != "" {
		query += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing funkos: %w", err)
	}
	defer rows.Close()

	var funkos []model.Funko
	for rows.Next() {
		var f model.Funko
		var price string
		if err := rows.Scan(&f.ID, &f.Name, &price, &f.Quantity, &f.Image, &f.CategoryID, &f.CreatedAt, &f.UpdatedAt, &f.IsDeleted); err != nil {
			return nil, fmt.Errorf("scanning funko: %w", err)
		}
		if f.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing funko price: %w", err)
		}
		funkos = append(funkos, f)
	}
	return funkos, rows.Err()
}

// UpdateFunko updates a funko's metadata.
func UpdateFunko(ctx context.Context, db *sql.DB, id int64, name string, price decimal.Decimal, quantity int, categoryID *string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE funkos SET name = ?, price = ?, quantity = ?, category_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND is_deleted = 0`,
		name, price.String(), quantity, categoryID, id,
	)
	if err != nil {
		return fmt.Errorf("updating funko: %w", err)
	}
	return nil
}

// UpdateFunkoQuantity sets a funko's stock level. Used by the order
// reservation workflow; no locking or versioning is applied, so concurrent
// callers race with last-write-wins semantics.
func UpdateFunkoQuantity(ctx context.Context, db *sql.DB, id int64, quantity int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE funkos SET quantity = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		quantity, id,
	)
	if err != nil {
		return fmt.Errorf("updating funko quantity: %w", err)
	}
	return nil
}

// SetFunkoImage updates a funko's image path.
func SetFunkoImage(ctx context.Context, db *sql.DB, id int64, image string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE funkos SET image = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND is_deleted = 0`,
		image, id,
	)
	if err != nil {
		return fmt.Errorf("setting funko image: %w", err)
	}
	return nil
}

// SoftDeleteFunko marks a funko as deleted without removing it.
func SoftDeleteFunko(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE funkos SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("soft-deleting funko: %w", err)
	}
	return nil
}

// DeleteFunko hard-deletes a funko.
func DeleteFunko(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM funkos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting funko: %w", err)
	}
	return nil
}
