package service

import (
	"context"
	"time"

	"clinicq/internal/tokens/repository"
	"clinicq/pkg/config"
	apperrors "clinicq/pkg/errors"
	"clinicq/pkg/locale"
	"clinicq/pkg/sanitizer"
)

// Sequencer issues gap-free, strictly increasing queue tokens per hospital
// and business day. Counter failures are surfaced and never retried, since
// an increment that landed before the error would be skipped by a retry.
type Sequencer struct {
	counter repository.Counter
	cfg     *config.Config
}

func NewSequencer(counter repository.Counter, cfg *config.Config) *Sequencer {
	return &Sequencer{counter: counter, cfg: cfg}
}

// NextToken issues the next token of the business day that contains at.
func (s *Sequencer) NextToken(ctx context.Context, hospitalID string, at time.Time) (int64, error) {
	return s.NextTokenForDay(ctx, hospitalID, s.cfg.Calendar.DayKey(at))
}

func (s *Sequencer) NextTokenForDay(ctx context.Context, hospitalID, dayKey string) (int64, error) {
	hospitalID = sanitizer.NormalizeIdentifier(hospitalID)
	if hospitalID == "" {
		return 0, apperrors.InvalidInput("hospitalId is required")
	}
	if !locale.ValidDay(dayKey) {
		return 0, apperrors.InvalidInput("day must be in YYYY-MM-DD format")
	}

	token, err := s.counter.Increment(ctx, hospitalID, dayKey)
	if err != nil {
		s.cfg.Log.Error("Failed to issue token", "hospital_id", hospitalID, "day", dayKey, "error", err)
		return 0, apperrors.StorageUnavailable(err)
	}

	s.cfg.Log.Info("Token issued", "hospital_id", hospitalID, "day", dayKey, "token", token)
	return token, nil
}
