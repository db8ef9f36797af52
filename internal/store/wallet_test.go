package store

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fundkeep/wallet-service/internal/model"
)

func TestWalletGet(t *testing.T) {
	db := newTestDB(t)
	s := NewWalletStore(db)
	ctx := context.Background()

	_, err := s.Get(ctx, "nobody")
	assert.ErrorIs(t, err, ErrWalletNotFound)

	require.NoError(t, db.Create(&model.Wallet{ID: "w1", OwnerID: "alice", Balance: dec("25.00")}).Error)
	w, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "w1", w.ID)
	assert.True(t, w.Balance.Equal(dec("25.00")))
}

func TestAdjustBalance(t *testing.T) {
	db := newTestDB(t)
	s := NewWalletStore(db)
	ctx := context.Background()
	require.NoError(t, db.Create(&model.Wallet{ID: "w1", OwnerID: "alice", Balance: dec("25.00")}).Error)

	require.NoError(t, s.AdjustBalance(ctx, db, "w1", dec("10.00")))

	// a debit past zero is rejected and leaves the balance untouched
	err := s.AdjustBalance(ctx, db, "w1", dec("-50.00"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	var w model.Wallet
	require.NoError(t, db.First(&w, "id = ?", "w1").Error)
	assert.True(t, w.Balance.Equal(dec("35.00")))
}

func TestAdjustBalance_ConcurrentNeverNegative(t *testing.T) {
	db := newTestDB(t)
	s := NewWalletStore(db)
	require.NoError(t, db.Create(&model.Wallet{ID: "w1", OwnerID: "alice", Balance: dec("100.00")}).Error)

	// two withdrawals of 80: at most one can commit
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = db.Transaction(func(tx *gorm.DB) error {
				w, err := s.GetForUpdate(context.Background(), tx, "w1")
				if err != nil {
					return err
				}
				if w.Balance.LessThan(dec("80.00")) {
					return ErrInsufficientFunds
				}
				return s.AdjustBalance(context.Background(), tx, "w1", dec("-80.00"))
			})
		}()
	}
	wg.Wait()

	var final model.Wallet
	require.NoError(t, db.First(&final, "id = ?", "w1").Error)
	assert.True(t, final.Balance.GreaterThanOrEqual(decimal.Zero))
	assert.True(t, final.Balance.Equal(dec("20.00")) || final.Balance.Equal(dec("100.00")),
		"balance must reflect zero or one withdrawal, got %s", final.Balance)
}
