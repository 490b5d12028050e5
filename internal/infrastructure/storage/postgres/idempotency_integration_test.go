package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebook/internal/core/apperror"
)

func openIdempotencyDB(t *testing.T) *TxManager {
	t.Helper()

	dsn := os.Getenv("TRADEBOOK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TRADEBOOK_TEST_DATABASE_URL not set")
	}

	migrator, err := NewMigrator(dsn)
	require.NoError(t, err)
	_, err = migrator.Up()
	require.NoError(t, err)
	require.NoError(t, migrator.Close())

	pool, err := NewPool(context.Background(), DefaultPoolConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewTxManager(pool, TxOptions{})
}

func TestIntegration_IdempotencyExpiry(t *testing.T) {
	txm := openIdempotencyDB(t)
	ctx := context.Background()
	key := "it-" + time.Now().UTC().Format(time.RFC3339Nano)

	live := NewIdempotencyStore(txm, time.Hour)
	replay, err := live.AcquireKey(ctx, key, "POST /api/v1/sales-invoices", "hash-a")
	require.NoError(t, err)
	require.Nil(t, replay)
	require.NoError(t, live.CompleteKey(ctx, key, 201, "application/json", map[string]string{"id": "1"}))

	replay, err = live.AcquireKey(ctx, key, "POST /api/v1/sales-invoices", "hash-a")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, 201, replay.StatusCode)

	_, err = live.AcquireKey(ctx, key, "POST /api/v1/sales-invoices", "hash-b")
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))

	// Force the stored row past its TTL.
	_, err = txm.GetQuerier(ctx).Exec(ctx,
		`UPDATE sys_idempotency SET expires_at = $1 WHERE idempotency_key = $2`,
		time.Now().UTC().Add(-time.Minute), key)
	require.NoError(t, err)

	replay, err = live.AcquireKey(ctx, key, "POST /api/v1/sales-invoices", "hash-b")
	require.NoError(t, err)
	assert.Nil(t, replay, "expired key is acquired fresh")

	var status string
	var expiresAt time.Time
	require.NoError(t, txm.GetQuerier(ctx).QueryRow(ctx,
		`SELECT status, expires_at FROM sys_idempotency WHERE idempotency_key = $1`, key,
	).Scan(&status, &expiresAt))
	assert.Equal(t, string(IdempotencyStatusPending), status)
	assert.True(t, expiresAt.After(time.Now().UTC()))

	short := NewIdempotencyStore(txm, -time.Second)
	gone := key + "-gone"
	_, err = short.AcquireKey(ctx, gone, "POST /api/v1/purchase-bills", "hash-c")
	require.NoError(t, err)

	removed, err := short.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, int64(1))

	var count int
	require.NoError(t, txm.GetQuerier(ctx).QueryRow(ctx,
		`SELECT count(*) FROM sys_idempotency WHERE idempotency_key = $1`, gone,
	).Scan(&count))
	assert.Zero(t, count)
}
