package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fundkeep/wallet-service/internal/config"
	"github.com/fundkeep/wallet-service/internal/logger"
	"github.com/fundkeep/wallet-service/internal/metrics"
	"github.com/fundkeep/wallet-service/internal/model"
	"github.com/fundkeep/wallet-service/internal/service"
	"github.com/fundkeep/wallet-service/internal/store"
	httptransport "github.com/fundkeep/wallet-service/internal/transport/http"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/segmentio/kafka-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// 1. load config
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	// 2. init logger
	log, err := logger.NewLogger(cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	// 3. postgres
	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{PrepareStmt: true, TranslateError: true})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	if err := gdb.AutoMigrate(&model.User{}, &model.Wallet{}, &model.TransferRecord{}, &model.OutboxEvent{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	// 4. redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	// 5. kafka writer
	kw := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Brokers...),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.LeastBytes{},
	}

	// 6. stores & services
	wallets := store.NewWalletStore(gdb)
	tlog := store.NewTransferLogStore(gdb)
	users := store.NewUserStore(gdb)
	outbox := store.NewOutboxStore(gdb, kw)
	cache := store.NewBalanceCache(rdb)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.NewTransfers(reg)

	engine := service.NewTransferEngine(gdb, wallets, tlog, outbox, cache, m, log, cfg.Engine)
	auth := service.NewAuthService(gdb, users, wallets, cfg.Auth, log)
	walletSvc := service.NewWalletService(gdb, wallets, cache, log)

	// 7. gin router
	router := httptransport.NewRouter(auth, walletSvc, engine, reg, cfg.RateLimit, log)

	// 8. serve
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Infof("wallet-server listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
