// Package services contains the server's business logic: account
// registration and login, renewal-token issuance and revocation, bearer
// credential resolution and federated identity reconciliation.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/senas-auth/internal/common"
	"github.com/dmitrijs2005/senas-auth/internal/dbx"
	"github.com/dmitrijs2005/senas-auth/internal/logging"
	"github.com/dmitrijs2005/senas-auth/internal/server/auth"
	"github.com/dmitrijs2005/senas-auth/internal/server/config"
	"github.com/dmitrijs2005/senas-auth/internal/server/federated"
	"github.com/dmitrijs2005/senas-auth/internal/server/models"
	"github.com/dmitrijs2005/senas-auth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenPair is the result of a successful login or refresh. RefreshToken is
// empty after a refresh because renewal tokens are not rotated.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// UserService sequences the credential components into the account use
// cases exposed over HTTP.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      SecretHasher
	codec       *auth.TokenCodec
	renewals    *RenewalStore
	reconciler  *Reconciler
	verifier    federated.Verifier
	logger      logging.Logger

	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher SecretHasher, verifier federated.Verifier, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		hasher:                       hasher,
		codec:                        auth.NewTokenCodec([]byte(cfg.SecretKey)),
		renewals:                     NewRenewalStore(db, m, hasher),
		reconciler:                   NewReconciler(db, m),
		verifier:                     verifier,
		logger:                       logger.With("module", "users"),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates a password account. The email is stored exactly as given.
func (s *UserService) Register(ctx context.Context, email, password string, name *string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, internalError(err)
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetByEmail(ctx, email)
		if err == nil {
			return common.ErrEmailTaken
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		user, err = repo.Create(ctx, &models.User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: digest,
			Name:         name,
			IsActive:     true,
		})
		return err
	})

	switch {
	case err == nil:
		s.logger.Info(ctx, "user registered", "user_id", user.ID)
		return user, nil
	case errors.Is(err, common.ErrEmailTaken), dbx.IsUniqueViolation(err):
		return nil, common.ErrEmailTaken
	default:
		return nil, internalError(err)
	}
}

// Login checks the password and returns a fresh access token together with
// a new renewal token. Unknown emails, federation-only accounts, inactive
// accounts and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, internalError(err)
	}

	if user.PasswordHash == "" || !user.IsActive || !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	access, err := s.codec.Mint(user.ID, s.accessTokenValidityDuration)
	if err != nil {
		return nil, internalError(err)
	}

	renewal, err := s.renewals.Issue(ctx, user.ID, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, internalError(err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: renewal,
		ExpiresIn:    s.accessTokenValidityDuration,
	}, nil
}

// Refresh exchanges a live renewal token for a new access token. The renewal
// token itself stays valid.
func (s *UserService) Refresh(ctx context.Context, renewalToken string) (*TokenPair, error) {
	if renewalToken == "" {
		return nil, common.ErrMissingToken
	}

	record, err := s.renewals.Verify(ctx, renewalToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, internalError(err)
	}

	access, err := s.codec.Mint(record.UserID, s.accessTokenValidityDuration)
	if err != nil {
		return nil, internalError(err)
	}

	return &TokenPair{AccessToken: access, ExpiresIn: s.accessTokenValidityDuration}, nil
}

// Logout revokes renewalToken if it is known. It never fails; storage
// errors are logged.
func (s *UserService) Logout(ctx context.Context, renewalToken string) {
	if renewalToken == "" {
		return
	}
	if err := s.renewals.Revoke(ctx, renewalToken); err != nil {
		s.logger.Error(ctx, "revoke renewal token", "error", err)
	}
}

// WhoAmI resolves the user behind an Authorization header value carrying
// either a locally minted access token or a federated identity token.
func (s *UserService) WhoAmI(ctx context.Context, authorization string) (*models.User, error) {
	raw, err := auth.ParseBearer(authorization)
	if err != nil {
		return nil, err
	}

	cred := s.ResolveCredential(raw)
	switch cred.Kind {
	case CredentialLocal:
		user, err := s.repomanager.Users(s.db).GetByID(ctx, cred.Subject)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrUserNotFound
			}
			return nil, internalError(err)
		}
		return user, nil

	default:
		user, err := s.FederatedLogin(ctx, cred.Token)
		if errors.Is(err, common.ErrInvalidFederatedToken) {
			return nil, common.ErrInvalidCredential
		}
		return user, err
	}
}

// FederatedLogin verifies a federated identity token and returns the local
// user it maps to, creating one on first sign-in.
func (s *UserService) FederatedLogin(ctx context.Context, token string) (*models.User, error) {
	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, common.ErrInvalidFederatedToken
	}

	user, err := s.reconciler.Reconcile(ctx, identity)
	if err != nil {
		return nil, internalError(err)
	}
	return user, nil
}

// Authenticate accepts only locally minted access tokens and returns the
// subject user id.
func (s *UserService) Authenticate(authorization string) (string, error) {
	raw, err := auth.ParseBearer(authorization)
	if err != nil {
		return "", err
	}
	return s.codec.Verify(raw)
}

func internalError(err error) error {
	return fmt.Errorf("%w: %v", common.ErrorInternal, err)
}
