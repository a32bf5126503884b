// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a single identity. An empty PasswordHash marks a federation-only
// account that can never authenticate with a password.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         *string
	IsActive     bool
	IsVerified   bool
	CreatedAt    time.Time
}

