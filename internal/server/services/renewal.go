package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/senas-auth/internal/common"
	"github.com/dmitrijs2005/senas-auth/internal/server/models"
	"github.com/dmitrijs2005/senas-auth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	// renewalTokenBytes is the entropy of a renewal token; the plaintext is
	// its hex encoding.
	renewalTokenBytes = 32
	lookupPrefixLen   = 8
)

// SecretHasher is the one-way hash applied to secrets stored at rest.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
}

// RenewalStore issues opaque renewal tokens, keeps only their salted hashes
// and finds records again by verifying a presented plaintext against the
// candidates in its prefix bucket.
type RenewalStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      SecretHasher
	now         func() time.Time
}

func NewRenewalStore(db *sql.DB, m repomanager.RepositoryManager, hasher SecretHasher) *RenewalStore {
	return &RenewalStore{db: db, repomanager: m, hasher: hasher, now: time.Now}
}

// Issue creates a renewal token for userID and returns its plaintext. The
// plaintext is not recoverable afterwards. A ttl of zero or less yields a
// token that never expires.
func (s *RenewalStore) Issue(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	plain, err := common.MakeRandHexString(renewalTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate renewal token: %w", err)
	}

	digest, err := s.hasher.Hash(plain)
	if err != nil {
		return "", fmt.Errorf("hash renewal token: %w", err)
	}

	now := s.now()
	record := &models.RefreshToken{
		ID:           uuid.NewString(),
		UserID:       userID,
		TokenHash:    digest,
		LookupPrefix: plain[:lookupPrefixLen],
		IssuedAt:     now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		record.ExpiresAt = &expiresAt
	}

	if err := s.repomanager.RefreshTokens(s.db).Create(ctx, record); err != nil {
		return "", err
	}
	return plain, nil
}

// Verify returns the live record matching token. Revoked, expired, unknown
// and malformed tokens all yield common.ErrorNotFound.
func (s *RenewalStore) Verify(ctx context.Context, token string) (*models.RefreshToken, error) {
	record, err := s.match(ctx, token)
	if err != nil {
		return nil, err
	}
	if record.Expired(s.now()) {
		return nil, common.ErrorNotFound
	}
	return record, nil
}

// Revoke marks the record matching token as revoked. Unknown tokens and
// tokens already revoked are ignored; only storage failures are returned.
func (s *RenewalStore) Revoke(ctx context.Context, token string) error {
	record, err := s.match(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return err
	}

	// A false result means a concurrent revoke won; the outcome is the same.
	if _, err := s.repomanager.RefreshTokens(s.db).Revoke(ctx, record.ID); err != nil {
		return err
	}
	return nil
}

func (s *RenewalStore) match(ctx context.Context, token string) (*models.RefreshToken, error) {
	if !wellFormedRenewalToken(token) {
		return nil, common.ErrorNotFound
	}

	candidates, err := s.repomanager.RefreshTokens(s.db).ListActiveByPrefix(ctx, token[:lookupPrefixLen])
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if s.hasher.Verify(token, c.TokenHash) {
			return c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func wellFormedRenewalToken(token string) bool {
	if len(token) != renewalTokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
