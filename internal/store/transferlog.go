package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fundkeep/wallet-service/internal/model"
)

// TransferLogStore is the persistence contract for transfer records.
type TransferLogStore interface {
	FindByKey(ctx context.Context, key string) (*model.TransferRecord, error)
	// CreatePending inserts a PENDING record. Uniqueness of the idempotency
	// key is enforced by the insert itself (unique index), never by a
	// separate lookup; a concurrent duplicate surfaces as ErrDuplicateKey.
	CreatePending(ctx context.Context, key, fromWalletID, toWalletID string, amount decimal.Decimal) (*model.TransferRecord, error)
	// MarkTerminal transitions a PENDING record to COMPLETED or FAILED
	// within tx. Transitioning an already-terminal record is a programming
	// error and returns ErrAlreadyTerminal.
	MarkTerminal(ctx context.Context, tx *gorm.DB, id, status, reason string) error
	FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.TransferRecord, error)
}

type transferLogStore struct {
	db *gorm.DB
}

// NewTransferLogStore constructs the GORM-backed transfer log store.
func NewTransferLogStore(db *gorm.DB) TransferLogStore {
	return &transferLogStore{db: db}
}

func (s *transferLogStore) FindByKey(ctx context.Context, key string) (*model.TransferRecord, error) {
	var rec model.TransferRecord
	err := s.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, classify(err)
	}
	return &rec, nil
}

func (s *transferLogStore) CreatePending(ctx context.Context, key, fromWalletID, toWalletID string, amount decimal.Decimal) (*model.TransferRecord, error) {
	rec := &model.TransferRecord{
		ID:             uuid.NewString(),
		IdempotencyKey: key,
		FromWalletID:   fromWalletID,
		ToWalletID:     toWalletID,
		Amount:         amount,
		Status:         model.StatusPending,
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicateKey
		}
		return nil, classify(err)
	}
	return rec, nil
}

func (s *transferLogStore) MarkTerminal(ctx context.Context, tx *gorm.DB, id, status, reason string) error {
	if status != model.StatusCompleted && status != model.StatusFailed {
		return fmt.Errorf("mark terminal: %q is not a terminal status", status)
	}
	res := tx.WithContext(ctx).
		Model(&model.TransferRecord{}).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(map[string]interface{}{
			"status":     status,
			"reason":     reason,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("transfer %s: %w", id, ErrAlreadyTerminal)
	}
	return nil
}

func (s *transferLogStore) FindStalePending(ctx context.Context, olderThan time.Time, limit int) ([]model.TransferRecord, error) {
	var recs []model.TransferRecord
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.StatusPending, olderThan).
		Order("created_at").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, classify(err)
	}
	return recs, nil
}
