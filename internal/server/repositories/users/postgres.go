package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/senas-auth/internal/common"
	"github.com/dmitrijs2005/senas-auth/internal/dbx"
	"github.com/dmitrijs2005/senas-auth/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectUser = `SELECT id, email, password_hash, name, is_active, is_verified, created_at FROM users`

// Create inserts user and fills in the server-assigned creation time.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, email, password_hash, name, is_active, is_verified)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.IsActive, user.IsVerified).Scan(&user.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = $1`, id)
}

// GetByEmail matches the email exactly as stored.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE email = $1`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.IsActive, &user.IsVerified, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
