package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fundkeep/wallet-service/internal/config"
	"github.com/fundkeep/wallet-service/internal/model"
	"github.com/fundkeep/wallet-service/internal/store"
)

// Reconciler resolves transfer records left PENDING by a crash. Balance
// mutation and the COMPLETED mark share one commit, so a PENDING record
// older than the stale threshold means that transaction never committed and
// no balance effect exists; the record is finalized FAILED.
type Reconciler struct {
	db         *gorm.DB
	tlog       store.TransferLogStore
	log        *zap.SugaredLogger
	staleAfter time.Duration
	batch      int
}

func NewReconciler(db *gorm.DB, tlog store.TransferLogStore, logger *zap.SugaredLogger, cfg config.ReconcilerConfig) *Reconciler {
	return &Reconciler{
		db:         db,
		tlog:       tlog,
		log:        logger,
		staleAfter: time.Duration(cfg.StaleAfter),
		batch:      cfg.Batch,
	}
}

// Run performs one reconciliation sweep and reports how many records it
// resolved.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	stale, err := r.tlog.FindStalePending(ctx, time.Now().Add(-r.staleAfter), r.batch)
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, rec := range stale {
		err := r.tlog.MarkTerminal(ctx, r.db, rec.ID, model.StatusFailed, "reconciled: transaction never committed")
		if errors.Is(err, store.ErrAlreadyTerminal) {
			// Lost a race with an in-flight finalizer; nothing to do.
			continue
		}
		if err != nil {
			r.log.Errorw("reconcile transfer", "transfer_id", rec.ID, "err", err)
			continue
		}
		r.log.Infow("reconciled stale transfer", "transfer_id", rec.ID, "key", rec.IdempotencyKey)
		resolved++
	}
	return resolved, nil
}
