package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fundkeep/wallet-service/internal/model"
	"github.com/fundkeep/wallet-service/internal/store"
)

// WalletService serves read queries for the authenticated owner.
type WalletService struct {
	db      *gorm.DB
	wallets store.WalletStore
	cache   *store.BalanceCache
	log     *zap.SugaredLogger
}

func NewWalletService(db *gorm.DB, wallets store.WalletStore, cache *store.BalanceCache, logger *zap.SugaredLogger) *WalletService {
	return &WalletService{db: db, wallets: wallets, cache: cache, log: logger}
}

// Balance returns the owner's current balance, cache-aside.
func (s *WalletService) Balance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	if bal, err := s.cache.Get(ctx, ownerID); err == nil {
		return bal, nil
	}
	w, err := s.wallets.Get(ctx, ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.cache.Set(ctx, ownerID, w.Balance); err != nil {
		s.log.Warnf("cache balance: %v", err)
	}
	return w.Balance, nil
}

// History returns transfer records touching the owner's wallet, oldest first.
func (s *WalletService) History(ctx context.Context, ownerID string, limit int, since time.Time) ([]model.TransferRecord, error) {
	w, err := s.wallets.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var recs []model.TransferRecord
	err = s.db.WithContext(ctx).
		Where("(from_wallet_id = ? OR to_wallet_id = ?) AND created_at >= ?", w.ID, w.ID, since).
		Order("created_at asc").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}
