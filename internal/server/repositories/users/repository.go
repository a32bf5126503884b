// Package users declares the storage contract for the identity table and its
// PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/senas-auth/internal/server/models"
)

// Repository persists users. Lookups return common.ErrorNotFound when no row
// matches; Create surfaces the driver's unique-violation error unchanged
// (wrapped) so callers can classify it with dbx.IsUniqueViolation.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
