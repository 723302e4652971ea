// Package bootstrap assembles repositories and services from configuration.
// Every binary builds the same graph through it.
package bootstrap

import (
	"context"
	"fmt"

	bookingsrepo "clinicq/internal/bookings/repository"
	bookingsservice "clinicq/internal/bookings/service"
	bookingsvalidator "clinicq/internal/bookings/validator"
	"clinicq/internal/events"
	locksrepo "clinicq/internal/locks/repository"
	locksservice "clinicq/internal/locks/service"
	mongomigrations "clinicq/internal/migrations/mongo"
	pgmigrations "clinicq/internal/migrations/postgres"
	slotsrepo "clinicq/internal/slots/repository"
	slotsservice "clinicq/internal/slots/service"
	slotsvalidator "clinicq/internal/slots/validator"
	"clinicq/internal/storage/memory"
	tokensrepo "clinicq/internal/tokens/repository"
	tokensservice "clinicq/internal/tokens/service"
	visitsrepo "clinicq/internal/visits/repository"
	visitsservice "clinicq/internal/visits/service"
	visitsvalidator "clinicq/internal/visits/validator"
	"clinicq/pkg/app"
	"clinicq/pkg/config"
	"clinicq/pkg/db"
	mongotx "clinicq/pkg/db/mongo"
	"clinicq/pkg/kafka"
	kafka_config "clinicq/pkg/kafka/config"
	kafkamw "clinicq/pkg/kafka/middleware"
)

type Repositories struct {
	Slots    slotsrepo.SlotRepository
	Locks    locksrepo.LockRepository
	Bookings bookingsrepo.BookingRepository
	Patients visitsrepo.PatientDirectory
	Visits   visitsrepo.VisitRecorder
	Tx       db.Transactor

	// set only for the memory backend
	Store *memory.Store
}

type Services struct {
	Slots    slotsservice.SlotService
	Ledger   *slotsservice.Ledger
	Locks    *locksservice.LockManager
	Bookings bookingsservice.BookingService
	Tokens   *tokensservice.Sequencer
	Visits   visitsservice.VisitService
}

// NewRepositories connects the configured storage backend.
func NewRepositories(cfg *config.Config) *Repositories {
	if cfg.StorageBackend == config.StorageMemory {
		store := memory.NewStore()
		cfg.Log.Warn("Using in-memory storage, data is lost on restart")
		return &Repositories{
			Slots:    store.Slots(),
			Locks:    store.Locks(),
			Bookings: store.Bookings(),
			Patients: store.Patients(),
			Visits:   store.Visits(),
			Tx:       store,
			Store:    store,
		}
	}

	cfg.SetMongo()
	return &Repositories{
		Slots:    slotsrepo.NewMongoSlotRepository(cfg),
		Locks:    locksrepo.NewMongoLockRepository(cfg),
		Bookings: bookingsrepo.NewMongoBookingRepository(cfg),
		Patients: visitsrepo.NewMongoPatientDirectory(cfg),
		Visits:   visitsrepo.NewMongoVisitRecorder(cfg),
		Tx:       mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// NewCounter connects the configured token counter backend. The mongo
// backend falls back to the in-memory counter when storage is in memory.
func NewCounter(ctx context.Context, cfg *config.Config, repos *Repositories) (tokensrepo.Counter, error) {
	switch cfg.TokenBackend {
	case config.TokenBackendRedis:
		cfg.SetRedis()
		return tokensrepo.NewRedisCounter(cfg.Client.Redis, cfg.TokenKeyTTL, cfg.Log), nil

	case config.TokenBackendPostgres:
		cfg.SetPostgres()
		if err := pgmigrations.Migrate(ctx, cfg.Client.Postgres, cfg.Log); err != nil {
			return nil, fmt.Errorf("migrate token counters: %w", err)
		}
		return tokensrepo.NewPostgresCounter(cfg.Client.Postgres), nil

	default:
		if repos.Store != nil {
			return repos.Store.Counter(), nil
		}
		return tokensrepo.NewMongoCounter(cfg), nil
	}
}

// Migrate applies the schema of every configured persistent backend.
func Migrate(ctx context.Context, cfg *config.Config) error {
	applied := 0
	if cfg.UsesMongo() {
		if cfg.Client.Mongo == nil {
			cfg.SetMongo()
		}
		if err := mongomigrations.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
			return fmt.Errorf("mongo migration: %w", err)
		}
		applied++
	}
	if cfg.TokenBackend == config.TokenBackendPostgres {
		if cfg.Client.Postgres == nil {
			cfg.SetPostgres()
		}
		if err := pgmigrations.Migrate(ctx, cfg.Client.Postgres, cfg.Log); err != nil {
			return fmt.Errorf("postgres migration: %w", err)
		}
		applied++
	}
	if applied == 0 {
		cfg.Log.Warn("No persistent backend configured, nothing to migrate", "storage", cfg.StorageBackend)
	}
	return nil
}

// NewPublisher returns the Kafka event publisher, or a no-op one when Kafka
// is disabled. The returned close func is never nil.
func NewPublisher(cfg *config.Config, kcfg *kafka_config.Config, metrics *kafkamw.Metrics) (events.Publisher, func() error, error) {
	if !kcfg.Enabled {
		cfg.Log.Info("Kafka disabled, domain events are dropped")
		return events.NoopPublisher{}, func() error { return nil }, nil
	}

	producer, err := kafka.NewProducer(kcfg, kcfg.BookingEventsTopic, "", cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("create booking events producer: %w", err)
	}
	producer.Use(kafkamw.LoggingProducerMiddleware(cfg.Log))
	if metrics != nil {
		producer.Use(kafkamw.MetricsProducerMiddleware(metrics))
	}

	cfg.Log.Info("Publishing domain events", "topic", kcfg.BookingEventsTopic, "brokers", kcfg.Brokers)
	return events.NewKafkaPublisher(producer, cfg.Log), producer.Close, nil
}

func NewServices(cfg *config.Config, repos *Repositories, counter tokensrepo.Counter, publisher events.Publisher) *Services {
	ledger := slotsservice.NewLedger(repos.Slots, cfg.Log)
	slots := slotsservice.NewSlotService(
		repos.Slots,
		repos.Locks,
		slotsvalidator.NewSlotValidator(cfg.Log, cfg.Calendar),
		cfg,
	)
	locks := locksservice.NewLockManager(repos.Locks, ledger, repos.Tx, cfg)
	tokens := tokensservice.NewSequencer(counter, cfg)

	bookings := bookingsservice.NewBookingService(
		repos.Bookings,
		slots,
		repos.Slots,
		ledger,
		locks,
		repos.Tx,
		publisher,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)

	visits := visitsservice.NewVisitService(
		repos.Bookings,
		repos.Patients,
		repos.Visits,
		tokens,
		repos.Tx,
		publisher,
		visitsvalidator.NewVisitValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Services initialized",
		"storage", cfg.StorageBackend,
		"token_backend", cfg.TokenBackend,
		"database", cfg.MongoDatabaseName,
	)

	return &Services{
		Slots:    slots,
		Ledger:   ledger,
		Locks:    locks,
		Bookings: bookings,
		Tokens:   tokens,
		Visits:   visits,
	}
}

// RegisterHealthChecks adds a readiness check for every connected store.
func RegisterHealthChecks(health *app.HealthHandler, cfg *config.Config) {
	if c := cfg.Client.Mongo; c != nil {
		health.AddCheck("mongodb", func(ctx context.Context) error {
			return c.Ping(ctx, nil)
		})
	}
	if c := cfg.Client.Redis; c != nil {
		health.AddCheck("redis", func(ctx context.Context) error {
			return c.Ping(ctx).Err()
		})
	}
	if c := cfg.Client.Postgres; c != nil {
		health.AddCheck("postgres", func(ctx context.Context) error {
			return c.Ping(ctx)
		})
	}
}
