package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mzanotto/funkostore/internal/model"
)

// CreateUser creates a new user with the given role set.
func CreateUser(ctx context.Context, db *sql.DB, username, email, passwordHash string, roles []string) (*model.User, error) {
	if len(roles) == 0 {
		roles = []string{model.RoleUser}
	}
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, roles) VALUES (?, ?, ?, ?)`,
		username, email, passwordHash, model.JoinRoles(roles),
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID, including soft-deleted ones.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	return getUserBy(ctx, db, `id = ?`, id)
}

// GetUserByUsername returns a non-deleted user by username.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	return getUserBy(ctx, db, `username = ? AND is_deleted = 0`, username)
}

// GetUserByEmail returns a non-deleted user by email.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	return getUserBy(ctx, db, `email = ? AND is_deleted = 0`, email)
}

func getUserBy(ctx context.Context, db *sql.DB, where string, arg any) (*model.User, error) {
	u := &model.User{}
	var roles string
	err := db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, roles, created_at, updated_at, is_deleted
		 FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &roles, &u.CreatedAt, &u.UpdatedAt, &u.IsDeleted)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u.Roles = model.SplitRoles(roles)
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, username, email, password_hash, roles, created_at, updated_at, is_deleted
		 FROM users WHERE is_deleted = 0 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var roles string
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &roles, &u.CreatedAt, &u.UpdatedAt, &u.IsDeleted); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		u.Roles = model.SplitRoles(roles)
		users = append(users, u)
	}
	return users, rows.Err()
}

// SoftDeleteUser marks a user as deleted. Used when the user still has
// orders referencing them.
func SoftDeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("soft-deleting user: %w", err)
	}
	return nil
}

// DeleteUser hard-deletes a user. Only safe when no orders reference them.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
