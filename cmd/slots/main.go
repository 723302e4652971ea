package main

import (
	"context"

	"clinicq/internal/bootstrap"
	bookingshandler "clinicq/internal/bookings/handler"
	"clinicq/internal/events"
	lockshandler "clinicq/internal/locks/handler"
	locksservice "clinicq/internal/locks/service"
	slotshandler "clinicq/internal/slots/handler"
	visitshandler "clinicq/internal/visits/handler"
	"clinicq/pkg/app"
	"clinicq/pkg/auth"
	"clinicq/pkg/config"
	"clinicq/pkg/contracts"
	kafka_config "clinicq/pkg/kafka/config"
	kafkamw "clinicq/pkg/kafka/middleware"
	"clinicq/pkg/middleware"
)

const ServiceName = "slots"

func main() {
	cfg := config.Load(ServiceName)
	kcfg, err := kafka_config.Load(config.NewViper())
	if err != nil {
		cfg.Log.Fatal("Failed to load Kafka configuration", "error", err)
	}

	cfg.Log.Info("Starting Slots service")
	serverApp := app.NewApplication(cfg)

	repos := bootstrap.NewRepositories(cfg)
	counter, err := bootstrap.NewCounter(context.Background(), cfg, repos)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize token counter", "error", err)
	}

	metrics := kafkamw.NewMetrics()
	publisher, closePublisher, err := bootstrap.NewPublisher(cfg, kcfg, metrics)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event publisher", "error", err)
	}
	serverApp.OnShutdown(closePublisher)

	services := bootstrap.NewServices(cfg, repos, counter, publisher)

	bootstrap.RegisterHealthChecks(serverApp.Health(), cfg)
	if kcfg.Enabled {
		serverApp.Health().AddMetrics("kafka_producer", func() any { return metrics.Snapshot() })
	}

	serverApp.AddWorker(locksservice.NewSweeper(services.Locks, cfg.SweepInterval, cfg.Clock, cfg.Log))
	serverApp.SetApp(initHandlers(cfg, services)...)
	serverApp.Run()
}

func initHandlers(cfg *config.Config, services *bootstrap.Services) []contracts.Handler {
	if cfg.JWTSecret == "" {
		cfg.Log.Warn("JWT_SECRET is not set, admin and reception routes reject every request")
	}
	gate := middleware.NewRoleGate(auth.NewJWTAuthorizer(cfg.JWTSecret, cfg.JWTIssuer), cfg.Log)

	handlers := []contracts.Handler{
		slotshandler.NewSlotHandler(services.Slots, gate, cfg.Log),
		bookingshandler.NewBookingHandler(services.Bookings, gate, cfg.Log),
		lockshandler.NewLockAdminHandler(services.Locks, gate, cfg),
		visitshandler.NewVisitHandler(services.Visits, gate, cfg.Log),
	}

	if cfg.PaymentWebhookSecret != "" {
		payments := events.NewPaymentHandler(services.Bookings, cfg.Log)
		handlers = append(handlers, events.NewPaymentWebhookHandler(payments, cfg.PaymentWebhookSecret, cfg.Log))
		cfg.Log.Info("Payment webhook enabled")
	}
	return handlers
}
