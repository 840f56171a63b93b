package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/brief-builder/internal/apperror"
	"github.com/sakif/brief-builder/internal/model"
	"github.com/sakif/brief-builder/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, password_hash, is_active, github_id, created_at, updated_at`

// CreateUser inserts a new user, filling in ID and timestamps.
// A duplicate username, email or GitHub id comes back as apperror.ErrConflict
// naming the offending field.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		user.GitHubID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", uniqueField(err))
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUserBy(ctx, "id", id)
}

// GetUserByEmail matches case-insensitively (the column is COLLATE NOCASE).
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUserBy(ctx, "email", email)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUserBy(ctx, "username", username)
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return db.getUserBy(ctx, "github_id", githubID)
}

// LinkGitHub records the GitHub account id on an existing user.
func (db *DB) LinkGitHub(ctx context.Context, userID string, githubID int64) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET github_id = ?, updated_at = ? WHERE id = ?`,
		githubID, time.Now().UTC(), userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "github_id")
		}
		return fmt.Errorf("sqlite: linking github account for user %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// getUserBy looks a user up by a single column. column is always one of the
// constants above, never caller input.
func (db *DB) getUserBy(ctx context.Context, column string, value any) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`,
		value,
	).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.IsActive,
		&u.GitHubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(value))
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}

	return &u, nil
}

// uniqueField extracts the column from "UNIQUE constraint failed: users.email".
func uniqueField(err error) string {
	msg := err.Error()
	for _, field := range []string{"email", "username", "github_id"} {
		if strings.Contains(msg, "users."+field) {
			return field
		}
	}
	return "id"
}
