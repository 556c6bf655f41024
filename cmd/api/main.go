package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mkshitij1763/e-commerce-api/internal/auth"
	"github.com/mkshitij1763/e-commerce-api/internal/cart"
	"github.com/mkshitij1763/e-commerce-api/internal/catalog"
	"github.com/mkshitij1763/e-commerce-api/internal/checkout"
	"github.com/mkshitij1763/e-commerce-api/internal/config"
	"github.com/mkshitij1763/e-commerce-api/internal/events"
	"github.com/mkshitij1763/e-commerce-api/internal/httpx"
	kafkax "github.com/mkshitij1763/e-commerce-api/internal/kafka"
	"github.com/mkshitij1763/e-commerce-api/internal/logging"
	"github.com/mkshitij1763/e-commerce-api/internal/order"
	"github.com/mkshitij1763/e-commerce-api/internal/postgres"
	"github.com/mkshitij1763/e-commerce-api/internal/redisx"
)

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

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	placed := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderPlaced, 1024, logger)
	placed.Start(ctx)
	paid := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderPaid, 1024, logger)
	paid.Start(ctx)
	statuses := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderStatusChanged, 1024, logger)
	statuses.Start(ctx)

	// Domain wiring
	engine := checkout.NewEngine(&cart.Repo{DB: db}, &catalog.Repo{DB: db}, &checkout.PgStore{DB: db})
	orders := order.NewService(&order.Repo{DB: db})

	router := httpx.NewRouter(logger)
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))
		h := &httpx.OrdersHandler{
			Engine:   engine,
			Orders:   orders,
			Redis:    rdb,
			Placed:   placed,
			Paid:     paid,
			Statuses: statuses,
			Service:  cfg.ServiceName,
			Log:      logger,
		}
		h.Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{placed, paid, statuses} {
		p.Close()
		p.WaitClosed()
	}
}
