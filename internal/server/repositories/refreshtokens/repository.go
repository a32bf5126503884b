// Package refreshtokens declares the storage contract for renewal credentials
// and its PostgreSQL implementation. Records are never deleted; revocation
// is a one-way flag.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/senas-auth/internal/server/models"
)

// Repository stores hashed renewal credentials.
type Repository interface {
	// Create inserts a new, non-revoked record.
	Create(ctx context.Context, token *models.RefreshToken) error

	// ListActiveByPrefix returns every non-revoked record in the given prefix
	// bucket, expired ones included. An empty bucket is not an error.
	ListActiveByPrefix(ctx context.Context, prefix string) ([]*models.RefreshToken, error)

	// Revoke flips revoked to true for id if it is still false and reports
	// whether this call performed the transition.
	Revoke(ctx context.Context, id string) (bool, error)
}
