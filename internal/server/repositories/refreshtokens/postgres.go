package refreshtokens

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/senas-auth/internal/dbx"
	"github.com/dmitrijs2005/senas-auth/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, lookup_prefix, issued_at, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
	`
	if _, err := r.db.ExecContext(ctx, query,
		token.ID, token.UserID, token.TokenHash, token.LookupPrefix, token.IssuedAt, token.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListActiveByPrefix(ctx context.Context, prefix string) ([]*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, lookup_prefix, issued_at, expires_at, revoked
		FROM refresh_tokens
		WHERE lookup_prefix = $1 AND revoked = FALSE
		ORDER BY issued_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.RefreshToken
	for rows.Next() {
		t := &models.RefreshToken{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.LookupPrefix, &t.IssuedAt, &t.ExpiresAt, &t.Revoked); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE id = $1 AND revoked = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}
