package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/senas-auth/internal/common"
	"github.com/dmitrijs2005/senas-auth/internal/dbx"
	"github.com/dmitrijs2005/senas-auth/internal/server/federated"
	"github.com/dmitrijs2005/senas-auth/internal/server/models"
	"github.com/dmitrijs2005/senas-auth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// placeholderEmailDomain is used for federated identities without an email.
const placeholderEmailDomain = "firebase.local"

// Reconciler maps a verified federated identity onto exactly one local user,
// merging by email with any account that already exists.
type Reconciler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	newID       func() string
}

func NewReconciler(db *sql.DB, m repomanager.RepositoryManager) *Reconciler {
	return &Reconciler{db: db, repomanager: m, newID: uuid.NewString}
}

// Reconcile returns the user for identity, creating a federation-only user
// when no account owns its email. An existing user is returned unchanged.
func (r *Reconciler) Reconcile(ctx context.Context, identity federated.Identity) (*models.User, error) {
	userID := identity.ExternalID
	if userID == "" {
		userID = r.newID()
	}

	email := identity.Email
	if email == "" {
		email = userID + "@" + placeholderEmailDomain
	}

	var user *models.User
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := r.repomanager.Users(tx)

		existing, err := repo.GetByEmail(ctx, email)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		candidate := &models.User{
			ID:       userID,
			Email:    email,
			IsActive: true,
		}
		if identity.DisplayName != "" {
			name := identity.DisplayName
			candidate.Name = &name
		}

		user, err = repo.Create(ctx, candidate)
		return err
	})

	if err == nil {
		return user, nil
	}
	if dbx.IsUniqueViolation(err) {
		return r.loadWinner(ctx, email, userID)
	}
	return nil, fmt.Errorf("reconcile identity: %w", err)
}

// loadWinner re-reads the record created by a concurrent reconciliation that
// claimed the same email or id first.
func (r *Reconciler) loadWinner(ctx context.Context, email, userID string) (*models.User, error) {
	repo := r.repomanager.Users(r.db)

	user, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("reconcile identity: %w", err)
	}

	user, err = repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reconcile identity: %w", err)
	}
	return user, nil
}
