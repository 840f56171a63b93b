// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered brief owner.
//
// PasswordHash is a bcrypt hash and is never serialized. GitHubID is set only
// for accounts that signed in (or were linked) through GitHub.
type User struct {
	ID           string    `json:"id"         db:"id"`
	Username     string    `json:"username"   db:"username"`
	Email        string    `json:"email"      db:"email"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	IsActive     bool      `json:"is_active"  db:"is_active"`
	GitHubID     *int64    `json:"-"          db:"github_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
