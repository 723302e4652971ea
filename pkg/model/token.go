package model

import "time"

// TokenCounter is the per-hospital, per-business-day queue counter.
type TokenCounter struct {
	HospitalID string    `json:"hospitalId" bson:"hospital_id"`
	DayKey     string    `json:"dayKey" bson:"day_key"`
	Value      int64     `json:"value" bson:"value"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updated_at"`
}
