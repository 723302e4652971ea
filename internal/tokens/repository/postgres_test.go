package repository

import (
	"context"
	"errors"
	"testing"

	tokenserrors "clinicq/internal/tokens/errors"

	"github.com/jackc/pgx/v5"
)

type fakeRow struct {
	value int64
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = r.value
	return nil
}

type mockQuerier struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFunc(ctx, sql, args...)
}

func TestPostgresCounter_Increment(t *testing.T) {
	var gotArgs []any
	db := &mockQuerier{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			gotArgs = args
			return fakeRow{value: 3}
		},
	}

	got, err := NewPostgresCounter(db).Increment(context.Background(), "h1", "2026-03-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "h1" || gotArgs[1] != "2026-03-02" {
		t.Errorf("unexpected query args %v", gotArgs)
	}
}

func TestPostgresCounter_IncrementError(t *testing.T) {
	db := &mockQuerier{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return fakeRow{err: errors.New("conn closed")}
		},
	}

	_, err := NewPostgresCounter(db).Increment(context.Background(), "h1", "2026-03-02")
	if !errors.Is(err, tokenserrors.ErrCounterUnavailable) {
		t.Fatalf("expected ErrCounterUnavailable, got %v", err)
	}
}
