package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundkeep/wallet-service/internal/logger"
	"github.com/fundkeep/wallet-service/internal/store"
)

func TestBalance_CacheAside(t *testing.T) {
	db := newTestDB(t)
	rdb, mock := redismock.NewClientMock()
	log, err := logger.NewLogger("error")
	require.NoError(t, err)
	svc := NewWalletService(db, store.NewWalletStore(db), store.NewBalanceCache(rdb), log)
	ctx := context.Background()

	seedWallet(t, db, "w1", "alice", "100.00")

	mock.ExpectGet("balance:alice").RedisNil()
	mock.ExpectSet("balance:alice", "100", 5*time.Minute).SetVal("OK")
	mock.ExpectGet("balance:alice").SetVal("100")

	// miss: served from the database and cached
	bal, err := svc.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, bal.Equal(amt("100.00")))

	// hit: served from the cache
	bal, err = svc.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, bal.Equal(amt("100.00")))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalance_UnknownOwner(t *testing.T) {
	db := newTestDB(t)
	rdb, mock := redismock.NewClientMock()
	log, err := logger.NewLogger("error")
	require.NoError(t, err)
	svc := NewWalletService(db, store.NewWalletStore(db), store.NewBalanceCache(rdb), log)

	mock.ExpectGet("balance:nobody").RedisNil()
	_, err = svc.Balance(context.Background(), "nobody")
	assert.ErrorIs(t, err, store.ErrWalletNotFound)
}

func TestHistory(t *testing.T) {
	db := newTestDB(t)
	rdb, _ := redismock.NewClientMock()
	log, err := logger.NewLogger("error")
	require.NoError(t, err)
	svc := NewWalletService(db, store.NewWalletStore(db), store.NewBalanceCache(rdb), log)
	ctx := context.Background()

	seedWallet(t, db, "w1", "alice", "100.00")
	seedWallet(t, db, "w2", "bob", "100.00")
	seedWallet(t, db, "w3", "carol", "100.00")

	tlog := store.NewTransferLogStore(db)
	_, err = tlog.CreatePending(ctx, "h1", "w1", "w2", amt("10.00"))
	require.NoError(t, err)
	_, err = tlog.CreatePending(ctx, "h2", "w2", "w1", amt("5.00"))
	require.NoError(t, err)
	_, err = tlog.CreatePending(ctx, "h3", "w2", "w3", amt("5.00"))
	require.NoError(t, err)

	recs, err := svc.History(ctx, "alice", 10, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "h1", recs[0].IdempotencyKey)
	assert.Equal(t, "h2", recs[1].IdempotencyKey)
}
