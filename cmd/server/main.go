package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeynil/invest-ledger/internal/api"
	"github.com/honeynil/invest-ledger/internal/config"
	"github.com/honeynil/invest-ledger/internal/handler"
	"github.com/honeynil/invest-ledger/internal/infrastructure/kafka"
	"github.com/honeynil/invest-ledger/internal/infrastructure/redis"
	"github.com/honeynil/invest-ledger/internal/observability"
	"github.com/honeynil/invest-ledger/internal/repository"
	"github.com/honeynil/invest-ledger/internal/repository/memory"
	"github.com/honeynil/invest-ledger/internal/repository/postgres"
	service "github.com/honeynil/invest-ledger/internal/services"
	_ "github.com/lib/pq"
)

const serviceName = "invest-ledger"

func main() {
	cfg := config.Load()

	// Инициализируем логи, метрики, трейсы
	shutdownObservability := observability.Setup(observability.Options{
		ServiceName:  serviceName,
		MetricsAddr:  cfg.MetricsAddr,
		OTLPEndpoint: cfg.OTLPEndpoint,
		LogLevel:     slog.LevelInfo,
	})
	defer func() {
		if err := shutdownObservability(context.Background()); err != nil {
			slog.Error("failed to shut down observability", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	redisClient, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		slog.Error("failed to connect to Redis", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()
	events := service.NewEventPublisher(producer, cfg.KafkaEventsTopic)

	// Инициализируем сервисы
	svc := handler.Services{
		Auth:         service.NewAuthService(store, redisClient, cfg.JWTSecret, cfg.JWTTTL, cfg.Currency),
		Wallets:      service.NewWalletService(store, events),
		Transactions: service.NewTransactionService(store),
		Catalog:      service.NewCatalogService(store, redisClient, cfg.CatalogCacheTTL),
		Investments:  service.NewInvestmentService(store, events),
		Copies:       service.NewCopyTradingService(store, events),
		Withdrawals:  service.NewWithdrawalService(store, events),
		KYC:          service.NewKYCService(store, events),
	}

	// Решения бэк-офиса приходят через Kafka
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaSettlementTopic, cfg.KafkaGroupID, service.Settlement{
		Withdrawals: svc.Withdrawals,
		Investments: svc.Investments,
	})
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		consumer.Consume(ctx)
	}()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.SetupRouter(handler.NewHandler(svc), redisClient, cfg.JWTSecret),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("starting server", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	<-consumerDone
	if err := consumer.Close(); err != nil {
		slog.Error("failed to close Kafka consumer", "error", err)
	}
	slog.Info("server stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.StorageDriver == config.DriverMemory {
		slog.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	}

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return postgres.NewStore(db), nil
}
