package model

import "time"

// Slot is one bookable time window of one hospital on one business day.
// BookedCount counts committed bookings and HeldCount counts active
// reservation locks; BookedCount+HeldCount never exceeds MaxCapacity.
type Slot struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty"`
	HospitalID  string    `json:"hospitalId" bson:"hospital_id"`
	Date        string    `json:"date" bson:"date"`
	SlotNumber  int       `json:"slotNumber" bson:"slot_number"`
	StartTime   string    `json:"startTime" bson:"start_time"`
	EndTime     string    `json:"endTime" bson:"end_time"`
	MaxCapacity int       `json:"maxCapacity" bson:"max_capacity"`
	BookedCount int       `json:"bookedCount" bson:"booked_count"`
	HeldCount   int       `json:"heldCount" bson:"held_count"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// Deletable reports whether nothing references the slot's capacity.
func (s *Slot) Deletable() bool {
	return s.BookedCount == 0 && s.HeldCount == 0
}

// SlotView is the public projection of a slot.
type SlotView struct {
	ID             string `json:"id"`
	Date           string `json:"date"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	SlotNumber     int    `json:"slotNumber"`
	AvailableCount int    `json:"availableCount"`
	MaxCapacity    int    `json:"maxCapacity"`
}

// Availability is the ledger's view of a slot.
type Availability struct {
	SlotID      string `json:"slotId"`
	HospitalID  string `json:"hospitalId"`
	Date        string `json:"date"`
	MaxCapacity int    `json:"maxCapacity"`
	Committed   int    `json:"committed"`
	ActiveLocks int    `json:"activeLocks"`
}

// Remaining is the capacity not yet committed or held, floored at zero.
func (a Availability) Remaining() int {
	return max(0, a.MaxCapacity-a.Committed-a.ActiveLocks)
}

// DaySummary describes one business day that has at least one slot.
type DaySummary struct {
	Date           string `json:"date"`
	SlotCount      int    `json:"slotCount"`
	AvailableCount int    `json:"availableCount"`
}

// SlotWindow is the answer of the window query. HasMore is false when fewer
// days than requested were found within the scan cap.
type SlotWindow struct {
	HospitalID string       `json:"hospitalId"`
	From       string       `json:"from"`
	Days       []DaySummary `json:"days"`
	HasMore    bool         `json:"hasMore"`
}

type SlotGenerationRequest struct {
	HospitalID  string `json:"hospitalId" validate:"required,max=64"`
	FromDate    string `json:"fromDate" validate:"required,business_day"`
	ToDate      string `json:"toDate" validate:"required,business_day"`
	DayStart    string `json:"dayStart" validate:"required,clock_time"`
	DayEnd      string `json:"dayEnd" validate:"required,clock_time"`
	SlotMinutes int    `json:"slotMinutes" validate:"required,min=5,max=480"`
	MaxCapacity int    `json:"maxCapacity" validate:"required,min=1,max=500"`
}

type SlotGenerationResult struct {
	HospitalID string `json:"hospitalId"`
	Days       int    `json:"days"`
	Created    int    `json:"created"`
	Skipped    int    `json:"skipped"`
}
