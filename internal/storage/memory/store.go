// Package memory is a single-process implementation of every repository.
// Writes and transactions are serialized by one mutex; a failed transaction
// is undone from a journal of inverse operations.
package memory

import (
	"context"
	"sync"
	"time"

	"clinicq/pkg/db"
	"clinicq/pkg/model"
)

type txKey struct{}

type journal struct {
	undo []func()
}

func (j *journal) record(fn func()) {
	j.undo = append(j.undo, fn)
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
}

type Store struct {
	mu sync.RWMutex

	slots    map[string]*model.Slot
	slotKeys map[string]string

	locks map[string]*model.SlotLock

	bookings      map[string]*model.Booking
	bookingByLock map[string]string

	counters map[string]int64

	patients       map[string]*model.Patient
	visits         map[string]*model.Visit
	visitByBooking map[string]string
	visitByToken   map[string]string
}

func NewStore() *Store {
	return &Store{
		slots:          make(map[string]*model.Slot),
		slotKeys:       make(map[string]string),
		locks:          make(map[string]*model.SlotLock),
		bookings:       make(map[string]*model.Booking),
		bookingByLock:  make(map[string]string),
		counters:       make(map[string]int64),
		patients:       make(map[string]*model.Patient),
		visits:         make(map[string]*model.Visit),
		visitByBooking: make(map[string]string),
		visitByToken:   make(map[string]string),
	}
}

var _ db.Transactor = (*Store)(nil)

// ExecuteTransaction holds the write lock for the whole of fn. Nested calls
// join the outer transaction.
func (s *Store) ExecuteTransaction(ctx context.Context, fn db.TxFunc) error {
	if _, ok := ctx.Value(txKey{}).(*journal); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		j.rollback()
		return err
	}
	return nil
}

// write runs fn under the write lock, or inside the caller's transaction.
func (s *Store) write(ctx context.Context, fn func(j *journal) error) error {
	if j, ok := ctx.Value(txKey{}).(*journal); ok {
		return fn(j)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&journal{})
}

func (s *Store) read(ctx context.Context, fn func() error) error {
	if _, ok := ctx.Value(txKey{}).(*journal); ok {
		return fn()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Slots returns the slot repository view of the store.
func (s *Store) Slots() *SlotRepository {
	return &SlotRepository{s: s}
}

func (s *Store) Locks() *LockRepository {
	return &LockRepository{s: s}
}

func (s *Store) Bookings() *BookingRepository {
	return &BookingRepository{s: s}
}

func (s *Store) Counter() *Counter {
	return &Counter{s: s}
}

func (s *Store) Patients() *PatientDirectory {
	return &PatientDirectory{s: s}
}

func (s *Store) Visits() *VisitRecorder {
	return &VisitRecorder{s: s}
}
