package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fundkeep/wallet-service/internal/config"
	"github.com/fundkeep/wallet-service/internal/logger"
	"github.com/fundkeep/wallet-service/internal/service"
	"github.com/fundkeep/wallet-service/internal/store"

	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// The reconciler drains the event outbox to Kafka and resolves transfer
// records left PENDING by a crashed server instance.
func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger(cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true, TranslateError: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.LeastBytes{},
	}

	outbox := store.NewOutboxStore(gdb, kw)
	tlog := store.NewTransferLogStore(gdb)
	reconciler := service.NewReconciler(gdb, tlog, log, cfg.Reconciler)

	ticker := time.NewTicker(time.Duration(cfg.Reconciler.Interval))
	defer ticker.Stop()

	log.Info("wallet-reconciler started")
	for range ticker.C {
		ctx := context.Background()

		events, err := outbox.Poll(ctx, cfg.Reconciler.Batch)
		if err != nil {
			log.Errorf("poll outbox: %v", err)
		}
		for _, evt := range events {
			if err := outbox.Publish(ctx, evt); err != nil {
				log.Errorf("publish id=%d: %v", evt.ID, err)
				continue
			}
			if err := outbox.MarkProcessed(ctx, evt.ID); err != nil {
				log.Errorf("mark processed id=%d: %v", evt.ID, err)
			} else {
				log.Infof("event %d sent", evt.ID)
			}
		}

		resolved, err := reconciler.Run(ctx)
		if err != nil {
			log.Errorf("reconcile sweep: %v", err)
			continue
		}
		if resolved > 0 {
			log.Infof("resolved %d stale transfers", resolved)
		}
	}
}
