package memory

import (
	"context"

	"clinicq/internal/tokens/repository"
)

type Counter struct {
	s *Store
}

var _ repository.Counter = (*Counter)(nil)

func (c *Counter) Increment(ctx context.Context, hospitalID, dayKey string) (int64, error) {
	var value int64
	err := c.s.write(ctx, func(j *journal) error {
		key := hospitalID + "|" + dayKey
		c.s.counters[key]++
		value = c.s.counters[key]
		j.record(func() { c.s.counters[key]-- })
		return nil
	})
	return value, err
}
