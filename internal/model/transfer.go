package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer statuses. PENDING is the only non-terminal state; COMPLETED and
// FAILED are never mutated once written.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// TransferRecord is the durable audit entry for one transfer attempt,
// keyed by the client-supplied idempotency key.
type TransferRecord struct {
	ID             string          `gorm:"primaryKey;size:36"`
	IdempotencyKey string          `gorm:"size:64;not null;uniqueIndex"`
	FromWalletID   string          `gorm:"size:36;not null"`
	ToWalletID     string          `gorm:"size:36;not null"`
	Amount         decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Status         string          `gorm:"size:16;not null;default:'PENDING'"`
	Reason         string          `gorm:"size:255"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
}

func (TransferRecord) TableName() string { return "transfer_log" }

// Terminal reports whether the record has reached a final status.
func (t *TransferRecord) Terminal() bool { return t.Status != StatusPending }
