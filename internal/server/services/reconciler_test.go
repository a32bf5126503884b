package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/senas-auth/internal/server/federated"
	"github.com/dmitrijs2005/senas-auth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(t *testing.T) (*Reconciler, *fakeUsers) {
	t.Helper()
	users := newFakeUsers()
	r := NewReconciler(newTestDB(t), &fakeRepoManager{users: users, tokens: &fakeTokens{}})
	r.newID = func() string { return "generated-id" }
	return r, users
}

func TestReconcile_ExistingEmailReturnedUnchanged(t *testing.T) {
	r, users := newTestReconciler(t)
	users.put(&models.User{ID: "local-1", Email: "a@x.com", PasswordHash: "digest", Name: strPtr("Ana"), IsActive: true})

	got, err := r.Reconcile(context.Background(), federated.Identity{ExternalID: "fb-1", Email: "a@x.com", DisplayName: "Someone"})
	require.NoError(t, err)

	assert.Equal(t, "local-1", got.ID)
	assert.Equal(t, "digest", got.PasswordHash)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Ana", *got.Name)
	assert.Equal(t, 1, users.count())
}

func TestReconcile_CreatesFederationOnlyUser(t *testing.T) {
	r, _ := newTestReconciler(t)

	got, err := r.Reconcile(context.Background(), federated.Identity{ExternalID: "fb-1", Email: "b@x.com", DisplayName: "Bea"})
	require.NoError(t, err)

	assert.Equal(t, "fb-1", got.ID)
	assert.Equal(t, "b@x.com", got.Email)
	assert.Empty(t, got.PasswordHash)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Bea", *got.Name)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsVerified)
}

func TestReconcile_PlaceholderEmail(t *testing.T) {
	r, users := newTestReconciler(t)
	ctx := context.Background()

	got, err := r.Reconcile(ctx, federated.Identity{ExternalID: "fb-2"})
	require.NoError(t, err)
	assert.Equal(t, "fb-2@firebase.local", got.Email)
	assert.Nil(t, got.Name)

	again, err := r.Reconcile(ctx, federated.Identity{ExternalID: "fb-2"})
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
	assert.Equal(t, 1, users.count())
}

func TestReconcile_GeneratesIDWhenExternalIDMissing(t *testing.T) {
	r, _ := newTestReconciler(t)

	got, err := r.Reconcile(context.Background(), federated.Identity{Email: "c@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "generated-id", got.ID)

	r2, _ := newTestReconciler(t)
	got, err = r2.Reconcile(context.Background(), federated.Identity{})
	require.NoError(t, err)
	assert.Equal(t, "generated-id@firebase.local", got.Email)
}

func TestReconcile_LostRaceOnEmail(t *testing.T) {
	r, users := newTestReconciler(t)
	users.beforeCreate = func() {
		users.put(&models.User{ID: "winner", Email: "a@x.com"})
	}

	got, err := r.Reconcile(context.Background(), federated.Identity{ExternalID: "fb-1", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "winner", got.ID)
	assert.Equal(t, 1, users.count())
}

func TestReconcile_LostRaceOnID(t *testing.T) {
	r, users := newTestReconciler(t)
	users.beforeCreate = func() {
		users.put(&models.User{ID: "fb-1", Email: "old@x.com"})
	}

	got, err := r.Reconcile(context.Background(), federated.Identity{ExternalID: "fb-1", Email: "new@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "fb-1", got.ID)
	assert.Equal(t, "old@x.com", got.Email)
}

func TestReconcile_StorageError(t *testing.T) {
	r, users := newTestReconciler(t)
	users.failErr = errors.New("db down")

	_, err := r.Reconcile(context.Background(), federated.Identity{ExternalID: "fb-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}
