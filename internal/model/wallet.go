package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds the balance of exactly one owner. OwnerID is unique and
// balance is stored as fixed-point numeric with scale 2.
type Wallet struct {
	ID        string          `gorm:"primaryKey;size:36"`
	OwnerID   string          `gorm:"size:36;not null;uniqueIndex"`
	Balance   decimal.Decimal `gorm:"type:numeric(20,2);not null;default:'0'"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
}

func (Wallet) TableName() string { return "wallet" }
