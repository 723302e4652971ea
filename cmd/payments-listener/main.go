package main

import (
	"context"
	"errors"
	"sync"

	"clinicq/internal/bootstrap"
	"clinicq/internal/events"
	"clinicq/pkg/app"
	"clinicq/pkg/config"
	"clinicq/pkg/kafka"
	kafka_config "clinicq/pkg/kafka/config"
	kafkamw "clinicq/pkg/kafka/middleware"
	"clinicq/pkg/logger"
)

const ServiceName = "payments-listener"

// consumerWorker runs a Kafka consumer under the application lifecycle.
// The fetch loop only exits on cancellation, so Stop cancels before closing.
type consumerWorker struct {
	consumer *kafka.Consumer
	log      *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (w *consumerWorker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.log.Error("Payments consumer stopped", "error", err)
	}
}

func (w *consumerWorker) Stop() {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	if err := w.consumer.Close(); err != nil {
		w.log.Error("Failed to close payments consumer", "error", err)
	}
}

func main() {
	cfg := config.Load(ServiceName)
	kcfg, err := kafka_config.Load(config.NewViper())
	if err != nil {
		cfg.Log.Fatal("Failed to load Kafka configuration", "error", err)
	}
	if !kcfg.Enabled {
		cfg.Log.Fatal("KAFKA_ENABLED must be true for the payments listener")
	}

	cfg.Log.Info("Starting Payments listener", "topic", kcfg.PaymentsTopic, "group", kcfg.ConsumerGroupID)
	serverApp := app.NewApplication(cfg)

	repos := bootstrap.NewRepositories(cfg)
	counter, err := bootstrap.NewCounter(context.Background(), cfg, repos)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize token counter", "error", err)
	}

	producerMetrics := kafkamw.NewMetrics()
	publisher, closePublisher, err := bootstrap.NewPublisher(cfg, kcfg, producerMetrics)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event publisher", "error", err)
	}
	serverApp.OnShutdown(closePublisher)

	services := bootstrap.NewServices(cfg, repos, counter, publisher)
	payments := events.NewPaymentHandler(services.Bookings, cfg.Log)

	consumer, err := kafka.NewConsumer(
		kcfg,
		kcfg.PaymentsTopic,
		kcfg.ConsumerGroupID,
		kcfg.PaymentsDLQTopic,
		payments.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create payments consumer", "error", err)
	}

	consumerMetrics := kafkamw.NewMetrics()
	consumer.Use(kafkamw.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafkamw.MetricsConsumerMiddleware(consumerMetrics))

	health := serverApp.Health()
	bootstrap.RegisterHealthChecks(health, cfg)
	health.AddMetrics("kafka_consumer", func() any { return consumerMetrics.Snapshot() })
	health.AddMetrics("kafka_producer", func() any { return producerMetrics.Snapshot() })

	serverApp.AddWorker(&consumerWorker{consumer: consumer, log: cfg.Log})
	serverApp.SetApp()
	serverApp.Run()
}
