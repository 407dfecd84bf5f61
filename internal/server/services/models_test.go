package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mousetrap/internal/common"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
	"github.com/dmitrijs2005/mousetrap/internal/server/models"
)

func TestModelService_AppendDots(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewModelService(store, &sync.Mutex{}, 150, 0.004)

	enough, err := svc.AppendDots(ctx, 1, make([]motion.Dot, 100))
	require.NoError(t, err)
	assert.False(t, enough)

	enough, err = svc.AppendDots(ctx, 1, make([]motion.Dot, 50))
	require.NoError(t, err)
	assert.True(t, enough)

	enough, err = svc.AppendDots(ctx, 1, nil)
	require.NoError(t, err)
	assert.True(t, enough)
}

func TestModelService_Defense(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.accounts[1] = &models.Account{ID: 1, UserName: "alice", Email: "alice@example.com"}
	svc := NewModelService(store, &sync.Mutex{}, 10, 0.004)

	_, err := svc.Defense(ctx, 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	store.networks[1] = "snapshot"
	d, err := svc.Defense(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, &Defense{Snapshot: "snapshot", Limit: 0.004, Email: "alice@example.com"}, d)
}
