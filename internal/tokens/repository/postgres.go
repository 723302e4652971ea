package repository

import (
	"context"
	"fmt"

	tokenserrors "clinicq/internal/tokens/errors"

	"github.com/jackc/pgx/v5"
)

const incrementSQL = `
INSERT INTO token_counters (hospital_id, day_key, value, updated_at)
VALUES ($1, $2::date, 1, now())
ON CONFLICT (hospital_id, day_key)
DO UPDATE SET value = token_counters.value + 1, updated_at = now()
RETURNING value`

// rowQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresCounter struct {
	db rowQuerier
}

func NewPostgresCounter(db rowQuerier) Counter {
	return &postgresCounter{db: db}
}

func (c *postgresCounter) Increment(ctx context.Context, hospitalID, dayKey string) (int64, error) {
	var value int64
	if err := c.db.QueryRow(ctx, incrementSQL, hospitalID, dayKey).Scan(&value); err != nil {
		return 0, fmt.Errorf("%w: %w", tokenserrors.ErrCounterUnavailable, err)
	}
	return value, nil
}
