package redisx_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pdv-nfce/internal/infrastructure/redisx"
)

func TestIdempotency_CicloDeVida(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR no definido")
	}
	rdb := redisx.New(addr, "", 0)
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()
	store := redisx.NewIdempotency(rdb, time.Minute, 30*time.Second)
	key := uuid.NewString()

	id, ok, err := store.Reserve(ctx, "biz-1", key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, id)

	// segunda petición con la venta todavía en curso
	id, ok, err = store.Reserve(ctx, "biz-1", key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)

	// la misma clave en otro negocio es independiente
	_, ok, err = store.Reserve(ctx, "biz-2", key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Complete(ctx, "biz-1", key, "sale-123"))
	id, ok, err = store.Reserve(ctx, "biz-1", key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "sale-123", id)

	require.NoError(t, store.Release(ctx, "biz-2", key))
	_, ok, err = store.Reserve(ctx, "biz-2", key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotency_MarcaEnCursoExpira(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR no definido")
	}
	rdb := redisx.New(addr, "", 0)
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()
	store := redisx.NewIdempotency(rdb, time.Minute, 200*time.Millisecond)
	key := uuid.NewString()

	_, ok, err := store.Reserve(ctx, "biz-1", key)
	require.NoError(t, err)
	require.True(t, ok)

	// Complete nunca llegó: la clave vuelve a estar disponible
	time.Sleep(400 * time.Millisecond)
	_, ok, err = store.Reserve(ctx, "biz-1", key)
	require.NoError(t, err)
	assert.True(t, ok)

	// una vez registrada la venta rige el ttl largo
	require.NoError(t, store.Complete(ctx, "biz-1", key, "sale-9"))
	time.Sleep(400 * time.Millisecond)
	id, ok, err := store.Reserve(ctx, "biz-1", key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "sale-9", id)
}
