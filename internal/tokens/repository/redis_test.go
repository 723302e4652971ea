package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	tokenserrors "clinicq/internal/tokens/errors"
	"clinicq/pkg/logger"

	"github.com/go-redis/redismock/v9"
)

func TestRedisCounter_Increment(t *testing.T) {
	const ttl = 48 * time.Hour
	key := RedisKey("h1", "2026-03-02")

	tests := []struct {
		name    string
		setup   func(mock redismock.ClientMock)
		want    int64
		wantErr bool
	}{
		{
			name: "first token of the day sets expiry",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectIncr(key).SetVal(1)
				mock.ExpectExpire(key, ttl).SetVal(true)
			},
			want: 1,
		},
		{
			name: "later tokens only increment",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectIncr(key).SetVal(7)
			},
			want: 7,
		},
		{
			name: "failed expiry still returns the token",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectIncr(key).SetVal(1)
				mock.ExpectExpire(key, ttl).SetErr(errors.New("connection reset"))
			},
			want: 1,
		},
		{
			name: "failed increment",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectIncr(key).SetErr(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			tt.setup(mock)

			counter := NewRedisCounter(db, ttl, logger.Discard())
			got, err := counter.Increment(context.Background(), "h1", "2026-03-02")

			if tt.wantErr {
				if !errors.Is(err, tokenserrors.ErrCounterUnavailable) {
					t.Fatalf("expected ErrCounterUnavailable, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected token %d, got %d", tt.want, got)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet redis expectations: %v", err)
			}
		})
	}
}

func TestRedisKey(t *testing.T) {
	if got := RedisKey("h1", "2026-03-02"); got != "token:h1:2026-03-02" {
		t.Errorf("unexpected key %q", got)
	}
}
