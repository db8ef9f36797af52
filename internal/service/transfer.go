package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fundkeep/wallet-service/internal/config"
	"github.com/fundkeep/wallet-service/internal/metrics"
	"github.com/fundkeep/wallet-service/internal/model"
	"github.com/fundkeep/wallet-service/internal/store"
)

// ErrInvalidRequest covers business validation failures the caller must fix
// (self-transfer, non-positive amount, reuse of a failed key when the retry
// policy forbids it).
var ErrInvalidRequest = errors.New("invalid transfer request")

// Outcome statuses reported to the caller.
const (
	OutcomeCompleted  = "COMPLETED"
	OutcomeFailed     = "FAILED"
	OutcomeInProgress = "IN_PROGRESS"
)

// Outcome is the result of one transfer attempt.
type Outcome struct {
	Status string                `json:"status"`
	Record *model.TransferRecord `json:"record,omitempty"`
	Reason string                `json:"reason,omitempty"`
}

// TransferEngine moves money between two wallets exactly once per
// idempotency key. Correctness is delegated to the store's transactions and
// row locks, so multiple engine instances may run against the same database.
type TransferEngine struct {
	db          *gorm.DB
	wallets     store.WalletStore
	tlog        store.TransferLogStore
	outbox      store.OutboxStore
	cache       *store.BalanceCache
	metrics     *metrics.Transfers
	log         *zap.SugaredLogger
	retryFailed bool
}

func NewTransferEngine(
	db *gorm.DB,
	wallets store.WalletStore,
	tlog store.TransferLogStore,
	outbox store.OutboxStore,
	cache *store.BalanceCache,
	m *metrics.Transfers,
	logger *zap.SugaredLogger,
	cfg config.EngineConfig,
) *TransferEngine {
	return &TransferEngine{
		db:          db,
		wallets:     wallets,
		tlog:        tlog,
		outbox:      outbox,
		cache:       cache,
		metrics:     m,
		log:         logger,
		retryFailed: cfg.RetryFailed,
	}
}

// Execute runs one transfer attempt end to end: idempotency resolution,
// wallet resolution, atomic balance mutation and status finalization.
// Business failures after the PENDING record exists resolve to a terminal
// FAILED record; infrastructure failures leave the record PENDING for the
// reconciler rather than risking a wrong terminal status.
func (e *TransferEngine) Execute(ctx context.Context, requesterOwnerID, toOwnerID string, amount decimal.Decimal, key string) (*Outcome, error) {
	start := time.Now()
	out, err := e.execute(ctx, requesterOwnerID, toOwnerID, amount, key)
	status := "ERROR"
	if out != nil {
		status = out.Status
	}
	e.metrics.Observe(status, time.Since(start))
	return out, err
}

func (e *TransferEngine) execute(ctx context.Context, requesterOwnerID, toOwnerID string, amount decimal.Decimal, key string) (*Outcome, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if requesterOwnerID == toOwnerID {
		return nil, fmt.Errorf("%w: cannot transfer to self", ErrInvalidRequest)
	}

	for {
		rec, err := e.tlog.FindByKey(ctx, key)
		switch {
		case err == nil:
			return e.replay(rec)
		case !errors.Is(err, store.ErrTransferNotFound):
			return nil, fmt.Errorf("resolve idempotency key: %w", err)
		}

		// Non-locking reads to fail fast on missing wallets before any
		// record or transaction exists.
		from, err := e.wallets.Get(ctx, requesterOwnerID)
		if err != nil {
			return nil, fmt.Errorf("sender wallet: %w", err)
		}
		to, err := e.wallets.Get(ctx, toOwnerID)
		if err != nil {
			return nil, fmt.Errorf("receiver wallet: %w", err)
		}
		if from.ID == to.ID {
			return nil, fmt.Errorf("%w: sender and receiver share a wallet", ErrInvalidRequest)
		}

		rec, err = e.tlog.CreatePending(ctx, key, from.ID, to.ID, amount)
		if errors.Is(err, store.ErrDuplicateKey) {
			// A concurrent attempt with the same key won the insert;
			// re-resolve against its record.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create pending record: %w", err)
		}

		return e.run(ctx, rec, requesterOwnerID, toOwnerID, amount)
	}
}

// replay answers a retry from the existing record without touching balances.
func (e *TransferEngine) replay(rec *model.TransferRecord) (*Outcome, error) {
	switch rec.Status {
	case model.StatusCompleted:
		return &Outcome{Status: OutcomeCompleted, Record: rec, Reason: "transfer already processed"}, nil
	case model.StatusPending:
		return &Outcome{Status: OutcomeInProgress, Record: rec, Reason: "transfer in progress, retry later"}, nil
	default:
		if e.retryFailed {
			return nil, fmt.Errorf("%w: idempotency key resolved FAILED, use a new key to retry", ErrInvalidRequest)
		}
		return &Outcome{Status: OutcomeFailed, Record: rec, Reason: rec.Reason}, nil
	}
}

func (e *TransferEngine) run(ctx context.Context, rec *model.TransferRecord, fromOwnerID, toOwnerID string, amount decimal.Decimal) (*Outcome, error) {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock both rows in ascending wallet-id order regardless of role so
		// opposite-direction transfers between the same pair cannot deadlock.
		firstID, secondID := rec.FromWalletID, rec.ToWalletID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		w1, err := e.wallets.GetForUpdate(ctx, tx, firstID)
		if err != nil {
			return err
		}
		w2, err := e.wallets.GetForUpdate(ctx, tx, secondID)
		if err != nil {
			return err
		}
		wFrom := w1
		if w2.ID == rec.FromWalletID {
			wFrom = w2
		}

		// Authoritative balance check under lock; the earlier read was
		// advisory only.
		if wFrom.Balance.LessThan(amount) {
			return store.ErrInsufficientFunds
		}
		if err := e.wallets.AdjustBalance(ctx, tx, rec.FromWalletID, amount.Neg()); err != nil {
			return err
		}
		if err := e.wallets.AdjustBalance(ctx, tx, rec.ToWalletID, amount); err != nil {
			return err
		}
		if err := e.tlog.MarkTerminal(ctx, tx, rec.ID, model.StatusCompleted, ""); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"transfer_id": rec.ID,
			"from_wallet": rec.FromWalletID,
			"to_wallet":   rec.ToWalletID,
			"amount":      amount.StringFixed(2),
		})
		return e.outbox.CreateEvent(ctx, tx, &model.OutboxEvent{
			Aggregate:   "Transfer",
			AggregateID: rec.ID,
			EventType:   "TransferCompleted",
			Payload:     string(payload),
		})
	})
	if err == nil {
		if cerr := e.cache.Invalidate(ctx, fromOwnerID, toOwnerID); cerr != nil {
			e.log.Warnf("invalidate balance cache: %v", cerr)
		}
		rec.Status = model.StatusCompleted
		return &Outcome{Status: OutcomeCompleted, Record: rec, Reason: "transfer successful"}, nil
	}

	if businessFailure(err) {
		// The mutation rolled back; finalize FAILED in its own commit so the
		// key is permanently resolved instead of stuck PENDING.
		if ferr := e.tlog.MarkTerminal(ctx, e.db, rec.ID, model.StatusFailed, err.Error()); ferr != nil {
			e.log.Errorw("finalize failed transfer", "transfer_id", rec.ID, "cause", err, "err", ferr)
			return nil, fmt.Errorf("finalize transfer %s: %w", rec.ID, ferr)
		}
		rec.Status = model.StatusFailed
		rec.Reason = err.Error()
		return &Outcome{Status: OutcomeFailed, Record: rec, Reason: err.Error()}, nil
	}

	// Contention or store failure: the record stays PENDING for the
	// reconciler and the whole call is safe to retry with the same key.
	e.log.Warnw("transfer left pending", "transfer_id", rec.ID, "err", err)
	return nil, fmt.Errorf("transfer %s: %w", rec.ID, err)
}

func businessFailure(err error) bool {
	if errors.Is(err, store.ErrContention) {
		return false
	}
	return errors.Is(err, store.ErrInsufficientFunds) ||
		errors.Is(err, store.ErrWalletNotFound) ||
		errors.Is(err, ErrInvalidRequest)
}
