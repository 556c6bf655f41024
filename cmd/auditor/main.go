package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mkshitij1763/e-commerce-api/internal/audit"
	"github.com/mkshitij1763/e-commerce-api/internal/config"
	"github.com/mkshitij1763/e-commerce-api/internal/events"
	kafkax "github.com/mkshitij1763/e-commerce-api/internal/kafka"
	"github.com/mkshitij1763/e-commerce-api/internal/logging"
	"github.com/mkshitij1763/e-commerce-api/internal/postgres"
	"github.com/mkshitij1763/e-commerce-api/internal/redisx"
)

// The auditor tails every order topic and persists an append-only trail in
// the order_events table, deduplicated by event id.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &audit.Service{
		Repo:        &audit.Repo{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-auditor",
		Log:         logger,
	}

	group := getenv("AUDITOR_GROUP", "order-auditor")
	workers := atoiDefault(os.Getenv("AUDITOR_WORKERS"), 4)

	topics := []string{
		events.TopicOrderPlaced,
		events.TopicOrderPaid,
		events.TopicOrderStatusChanged,
	}

	var wg sync.WaitGroup
	for _, topic := range topics {
		topic := topic
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("auditor consumer started",
				zap.String("group", group), zap.String("topic", topic), zap.Int("workers", workers))
			if err := cons.Start(ctx, svc.HandleEvent); err != nil {
				logger.Error("consumer exit", zap.String("topic", topic), zap.Error(err))
				cancel()
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info("shutting down auditor")
	case <-ctx.Done():
	}
	cancel()
	wg.Wait()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil || i <= 0 {
		return def
	}
	return i
}
