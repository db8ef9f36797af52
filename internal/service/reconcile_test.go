package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundkeep/wallet-service/internal/config"
	"github.com/fundkeep/wallet-service/internal/logger"
	"github.com/fundkeep/wallet-service/internal/model"
	"github.com/fundkeep/wallet-service/internal/store"
)

func TestReconciler_ResolvesStalePending(t *testing.T) {
	db := newTestDB(t)
	tlog := store.NewTransferLogStore(db)
	log, err := logger.NewLogger("error")
	require.NoError(t, err)
	r := NewReconciler(db, tlog, log, config.ReconcilerConfig{StaleAfter: config.Duration(time.Minute), Batch: 10})
	ctx := context.Background()

	stale, err := tlog.CreatePending(ctx, "crashed", "w1", "w2", amt("10.00"))
	require.NoError(t, err)
	fresh, err := tlog.CreatePending(ctx, "in-flight", "w1", "w2", amt("10.00"))
	require.NoError(t, err)
	done, err := tlog.CreatePending(ctx, "finished", "w1", "w2", amt("10.00"))
	require.NoError(t, err)
	require.NoError(t, tlog.MarkTerminal(ctx, db, done.ID, model.StatusCompleted, ""))

	require.NoError(t, db.Model(&model.TransferRecord{}).
		Where("id = ?", stale.ID).Update("created_at", time.Now().Add(-10*time.Minute)).Error)

	resolved, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	var got model.TransferRecord
	require.NoError(t, db.First(&got, "id = ?", stale.ID).Error)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Contains(t, got.Reason, "reconciled")

	// records still possibly in flight are left alone
	got = model.TransferRecord{}
	require.NoError(t, db.First(&got, "id = ?", fresh.ID).Error)
	assert.Equal(t, model.StatusPending, got.Status)

	// a second sweep finds nothing
	resolved, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, resolved)
}
