package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	httpapi "github.com/aaronwittchen/logistics-platform-sub000/services/inventory-service/internal/http"
	"github.com/aaronwittchen/logistics-platform-sub000/services/inventory-service/internal/repo"
	"github.com/aaronwittchen/logistics-platform-sub000/services/inventory-service/internal/service"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/breaker"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/config"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/logger"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/rabbit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New("inventory-service", cfg.Common.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer db.Close()

	manager := rabbit.NewManager(rabbit.ManagerConfig{
		URL:                  cfg.Rabbit.URL,
		MaxReconnectAttempts: cfg.Rabbit.MaxReconnectAttempts,
		BaseReconnectDelay:   cfg.Rabbit.BaseReconnectDelay(),
	}, logger.Component(log, "rabbit"))
	if err := manager.Connect(); err != nil {
		log.Fatal().Err(err).Msg("rabbit connect failed")
	}
	defer func() { _ = manager.Close() }()

	ch, err := manager.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("rabbit channel unavailable")
	}
	if err := rabbit.DeclareTopology(ch, cfg.Rabbit.Exchange, cfg.Rabbit.DeadLetterExchange); err != nil {
		log.Fatal().Err(err).Msg("declare topology failed")
	}
	if err := rabbit.DeclareDeadLetterQueue(ch, cfg.Rabbit.DeadLetterExchange, "inventory.dlq", "#"); err != nil {
		log.Fatal().Err(err).Msg("declare dead-letter queue failed")
	}

	publisher := rabbit.NewEventPublisher(
		manager,
		breaker.New(breaker.Config{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			RecoveryTimeout:  cfg.Breaker.RecoveryTimeout(),
			SuccessThreshold: cfg.Breaker.SuccessThreshold,
		}),
		rabbit.PublisherConfig{
			Exchange:           cfg.Rabbit.Exchange,
			DeadLetterExchange: cfg.Rabbit.DeadLetterExchange,
			Publisher:          "inventory-service",
			MaxRetries:         cfg.Rabbit.MaxRetries,
			RetryDelay:         cfg.Rabbit.RetryDelay(),
		},
		logger.Component(log, "publisher"),
	)

	svc := &service.StockItems{
		Repo:      &repo.StockItemsPG{DB: db},
		Publisher: publisher,
		Log:       logger.Component(log, "stock-items"),
	}

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(&httpapi.Handlers{Svc: svc, Log: log}),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("inventory-service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	cancel()
}
