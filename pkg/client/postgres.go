package client

import (
	"context"
	"time"

	"clinicq/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func (c *Client) SetPostgres(log *logger.Logger, postgresURL string, connTimeout time.Duration) {
	c.log = log
	poolCfg, err := pgxpool.ParseConfig(postgresURL)
	if err != nil {
		log.Fatal("Failed to parse Postgres URL", "error", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatal("Failed to create Postgres pool", "error", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping Postgres", "error", err)
	}

	log.Info("Successfully connected to Postgres", "host", poolCfg.ConnConfig.Host)
	c.Postgres = pool
}
