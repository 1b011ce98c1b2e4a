package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aaronwittchen/logistics-platform-sub000/services/stock-projector/internal/worker"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/cache"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/config"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/events"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/logger"
	"github.com/aaronwittchen/logistics-platform-sub000/shared/pkg/rabbit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New("stock-projector", cfg.Common.LogLevel)

	redis := cache.New(cfg.Redis.Addr)
	defer func() { _ = redis.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redis.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("redis connect failed")
	}

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

	consumer := rabbit.NewEventConsumer(
		manager,
		events.StockRegistry(),
		rabbit.ConsumerConfig{
			Exchange:           cfg.Rabbit.Exchange,
			DeadLetterExchange: cfg.Rabbit.DeadLetterExchange,
			MaxRetries:         cfg.Rabbit.MaxRetries,
			RetryDelay:         cfg.Rabbit.RetryDelay(),
			Prefetch:           cfg.Rabbit.Prefetch,
		},
		logger.Component(log, "consumer"),
	)

	projection := &worker.Projection{
		Cache: redis,
		Log:   logger.Component(log, "projection"),
	}
	if err := consumer.Subscribe(ctx, projection); err != nil {
		log.Fatal().Err(err).Msg("subscribe failed")
	}

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.HTTP.Addr, nil); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	log.Info().Msg("stock-projector started")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutdown")
	cancel()
}
