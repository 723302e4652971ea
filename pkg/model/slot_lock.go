package model

import "time"

type LockState string

const (
	LockActive    LockState = "active"
	LockReleased  LockState = "released"
	LockConfirmed LockState = "confirmed"
	LockExpired   LockState = "expired"
)

// SlotLock is a time-boxed claim on one unit of a slot's capacity.
type SlotLock struct {
	ID          string     `json:"id" bson:"_id"`
	SlotID      string     `json:"slotId" bson:"slot_id"`
	HospitalID  string     `json:"hospitalId" bson:"hospital_id"`
	SessionID   string     `json:"sessionId" bson:"session_id"`
	State       LockState  `json:"state" bson:"state"`
	CreatedAt   time.Time  `json:"createdAt" bson:"created_at"`
	ExpiresAt   time.Time  `json:"expiresAt" bson:"expires_at"`
	ReleasedAt  *time.Time `json:"releasedAt,omitempty" bson:"released_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty" bson:"confirmed_at,omitempty"`
	ExpiredAt   *time.Time `json:"expiredAt,omitempty" bson:"expired_at,omitempty"`
}

// Live reports whether the lock still holds capacity at now.
// A lock is dead from ExpiresAt onwards.
func (l *SlotLock) Live(now time.Time) bool {
	return l.State == LockActive && now.Before(l.ExpiresAt)
}

// Stale reports whether the lock is still marked active but has outlived its TTL.
func (l *SlotLock) Stale(now time.Time) bool {
	return l.State == LockActive && !now.Before(l.ExpiresAt)
}

type LockRequest struct {
	SlotID    string `json:"slotId" validate:"required,mongodb"`
	SessionID string `json:"sessionId" validate:"required,min=1,max=128"`
}

type LockGrant struct {
	LockID    string    `json:"lockId"`
	SlotID    string    `json:"slotId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type SweepResult struct {
	Expired int       `json:"expired"`
	At      time.Time `json:"at"`
}
