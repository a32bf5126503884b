package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/senas-auth/internal/common"
	"github.com/dmitrijs2005/senas-auth/internal/cryptox"
	"github.com/dmitrijs2005/senas-auth/internal/dbx"
	"github.com/dmitrijs2005/senas-auth/internal/logging"
	"github.com/dmitrijs2005/senas-auth/internal/server/config"
	"github.com/dmitrijs2005/senas-auth/internal/server/federated"
	"github.com/dmitrijs2005/senas-auth/internal/server/models"
	"github.com/dmitrijs2005/senas-auth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/senas-auth/internal/server/repositories/users"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var testHasher = cryptox.NewHasher(cryptox.Params{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
})

func uniqueViolation() error {
	return fmt.Errorf("db error: %w", &pgconn.PgError{Code: "23505", Message: "duplicate key value"})
}

// fakeUsers is an in-memory users.Repository enforcing unique id and email.
type fakeUsers struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	calls   int
	failErr error

	// beforeCreate runs ahead of the uniqueness check; tests use it to
	// simulate a concurrent writer.
	beforeCreate func()
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*models.User{}}
}

func (f *fakeUsers) put(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.byID[u.ID] = &cp
}

func (f *fakeUsers) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.beforeCreate != nil {
		hook := f.beforeCreate
		f.beforeCreate = nil
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failErr != nil {
		return nil, fmt.Errorf("db error: %w", f.failErr)
	}
	if _, ok := f.byID[u.ID]; ok {
		return nil, uniqueViolation()
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, uniqueViolation()
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	f.byID[u.ID] = &cp
	return u, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failErr != nil {
		return nil, fmt.Errorf("db error: %w", f.failErr)
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failErr != nil {
		return nil, fmt.Errorf("db error: %w", f.failErr)
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

// fakeTokens is an in-memory refreshtokens.Repository.
type fakeTokens struct {
	mu      sync.Mutex
	rows    []*models.RefreshToken
	lists   int
	failErr error
}

func (f *fakeTokens) Create(ctx context.Context, t *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return fmt.Errorf("db error: %w", f.failErr)
	}
	cp := *t
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeTokens) ListActiveByPrefix(ctx context.Context, prefix string) ([]*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.failErr != nil {
		return nil, fmt.Errorf("db error: %w", f.failErr)
	}
	var out []*models.RefreshToken
	for _, r := range f.rows {
		if r.LookupPrefix == prefix && !r.Revoked {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTokens) Revoke(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return false, fmt.Errorf("db error: %w", f.failErr)
	}
	for _, r := range f.rows {
		if r.ID == id && !r.Revoked {
			r.Revoked = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTokens) get(id string) *models.RefreshToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			cp := *r
			return &cp
		}
	}
	return nil
}

type fakeRepoManager struct {
	users  *fakeUsers
	tokens *fakeTokens
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return m.users }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.tokens
}

// fakeVerifier accepts the tokens it knows about.
type fakeVerifier struct {
	mu         sync.Mutex
	identities map[string]federated.Identity
	calls      int
}

func (v *fakeVerifier) Verify(ctx context.Context, token string) (federated.Identity, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	id, ok := v.identities[token]
	if !ok {
		return federated.Identity{}, common.ErrInvalidFederatedToken
	}
	return id, nil
}

type harness struct {
	svc      *UserService
	users    *fakeUsers
	tokens   *fakeTokens
	verifier *fakeVerifier
	rm       *fakeRepoManager
	db       *sql.DB
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		users:    newFakeUsers(),
		tokens:   &fakeTokens{},
		verifier: &fakeVerifier{identities: map[string]federated.Identity{}},
		db:       newTestDB(t),
	}
	h.rm = &fakeRepoManager{users: h.users, tokens: h.tokens}

	cfg := &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: 30 * 24 * time.Hour,
	}
	h.svc = NewUserService(h.db, h.rm, testHasher, h.verifier, cfg, logging.Nop{})
	return h
}

func strPtr(s string) *string { return &s }
