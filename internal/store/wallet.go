package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fundkeep/wallet-service/internal/model"
)

// WalletStore is the persistence contract for wallets. All mutation goes
// through a transaction scope supplied by the caller; the store keeps no
// cross-call state.
type WalletStore interface {
	Create(ctx context.Context, tx *gorm.DB, w *model.Wallet) error
	Get(ctx context.Context, ownerID string) (*model.Wallet, error)
	GetForUpdate(ctx context.Context, tx *gorm.DB, walletID string) (*model.Wallet, error)
	AdjustBalance(ctx context.Context, tx *gorm.DB, walletID string, delta decimal.Decimal) error
}

type walletStore struct {
	db *gorm.DB
}

// NewWalletStore constructs the GORM-backed wallet store.
func NewWalletStore(db *gorm.DB) WalletStore {
	return &walletStore{db: db}
}

func (s *walletStore) Create(ctx context.Context, tx *gorm.DB, w *model.Wallet) error {
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		return classify(err)
	}
	return nil
}

// Get resolves a wallet by owner without locking it.
func (s *walletStore) Get(ctx context.Context, ownerID string) (*model.Wallet, error) {
	var w model.Wallet
	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, classify(err)
	}
	return &w, nil
}

// GetForUpdate locks the wallet row for the duration of the caller's
// transaction.
func (s *walletStore) GetForUpdate(ctx context.Context, tx *gorm.DB, walletID string) (*model.Wallet, error) {
	var w model.Wallet
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", walletID).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, classify(err)
	}
	return &w, nil
}

// AdjustBalance applies a signed delta inside tx. The WHERE guard is a
// second line of defence behind the caller's locked balance check: a
// negative delta that would take the balance below zero matches no row.
func (s *walletStore) AdjustBalance(ctx context.Context, tx *gorm.DB, walletID string, delta decimal.Decimal) error {
	res := tx.WithContext(ctx).
		Model(&model.Wallet{}).
		Where("id = ? AND balance + ? >= 0", walletID, delta).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}
