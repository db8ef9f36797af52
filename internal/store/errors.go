package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrWalletNotFound indicates that no wallet exists for the owner.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrInsufficientFunds is returned when a debit would drive a balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrDuplicateKey indicates that a transfer record with the idempotency key already exists.
	ErrDuplicateKey = errors.New("idempotency key already exists")
	// ErrTransferNotFound indicates that no transfer record matches the lookup.
	ErrTransferNotFound = errors.New("transfer not found")
	// ErrAlreadyTerminal indicates an attempt to re-finalize a terminal transfer record.
	ErrAlreadyTerminal = errors.New("transfer record already terminal")
	// ErrContention indicates a lock-wait timeout or cancellation; safe to retry.
	ErrContention = errors.New("lock contention, retry")
)

// postgres lock-wait error classes that must surface as retryable
// contention rather than a terminal failure.
const (
	pgLockNotAvailable = "55P03"
	pgQueryCanceled    = "57014"
	pgDeadlockDetected = "40P01"
)

// classify maps driver-level failures onto the store taxonomy. Anything
// unrecognized is passed through as an infrastructure failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(ErrContention, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgQueryCanceled, pgDeadlockDetected:
			return errors.Join(ErrContention, err)
		}
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
