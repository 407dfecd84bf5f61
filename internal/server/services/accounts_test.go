package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mousetrap/internal/common"
)

func TestAccountService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewAccountService(store)

	id, err := svc.Register(ctx, "alice", "pw1", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.NotEqual(t, "pw1", store.accounts[id].PasswordHash)

	got, err := svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = svc.Login(ctx, "alice", "wrongpw")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = svc.Login(ctx, "ghost", "pw1")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestAccountService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewAccountService(newMemStore())

	_, err := svc.Register(ctx, "al~ice", "pw", "a@b.c")
	assert.ErrorIs(t, err, common.ErrReservedSeparator)

	_, err = svc.Register(ctx, "alice", "pw", "nope")
	assert.ErrorIs(t, err, common.ErrInvalidEmail)

	_, err = svc.Register(ctx, "alice", "pw", "a@b.c")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "alice", "pw2", "a@b.c")
	assert.ErrorIs(t, err, common.ErrorAlreadyExist)
}

func TestAccountService_RegisterStoreError(t *testing.T) {
	store := newMemStore()
	store.insertErr = errors.New("db down")
	svc := NewAccountService(store)

	_, err := svc.Register(context.Background(), "alice", "pw", "a@b.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestAccountService_AdminIsolation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewAccountService(store)

	created, err := svc.EnsureAdmin(ctx, "admin", "secret", "root@example.com")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "admin", "secret", "root@example.com")
	require.NoError(t, err)
	assert.False(t, created)

	id, err := svc.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, common.AdminID, id)

	assert.ErrorIs(t, svc.Delete(ctx, "admin"), common.ErrorUnauthorized)

	uid, err := svc.Register(ctx, "bob", "pw", "bob@example.com")
	require.NoError(t, err)
	store.dots[uid] = nil
	store.networks[uid] = "snap"

	require.NoError(t, svc.Delete(ctx, "bob"))
	_, ok := store.networks[uid]
	assert.False(t, ok)

	assert.ErrorIs(t, svc.Delete(ctx, "bob"), common.ErrorNotFound)

	names, err := svc.ListUserNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, names)
}

func TestAccountService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewAccountService(store)

	created, err := svc.EnsureAdmin(ctx, "admin", "root-pw", "admin@example.com")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "admin", "other-pw", "admin@example.com")
	require.NoError(t, err)
	assert.False(t, created, "existing admin is left alone")

	id, err := svc.Login(ctx, "admin", "root-pw")
	require.NoError(t, err)
	assert.Equal(t, common.AdminID, id)

	_, err = svc.EnsureAdmin(ctx, "ad~min", "pw", "admin@example.com")
	assert.ErrorIs(t, err, common.ErrReservedSeparator)
}
