package main

import (
	"context"
	"time"

	"clinicq/internal/bootstrap"
	"clinicq/pkg/config"
)

const JobName = "migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting migration job")
	if err := bootstrap.Migrate(ctx, cfg); err != nil {
		cfg.Log.Error("Migration failed", "error", err)
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Migration job aborted")
	}
	cfg.Log.Info("Migration completed successfully")
}
