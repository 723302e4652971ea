package model

import "time"

const (
	BookingConfirmed = "confirmed"
	BookingCheckedIn = "checked_in"
	BookingCancelled = "cancelled"

	ModeOnline  = "online"
	ModeOffline = "offline"
)

type BookingDetails struct {
	PatientName      string `json:"patientName" bson:"patient_name" validate:"required,min=2,max=100"`
	PatientPhone     string `json:"patientPhone" bson:"patient_phone" validate:"required,e164"`
	PatientID        string `json:"patientId,omitempty" bson:"patient_id,omitempty" validate:"omitempty,max=64"`
	DoctorID         string `json:"doctorId,omitempty" bson:"doctor_id,omitempty" validate:"omitempty,max=64"`
	Mode             string `json:"mode" bson:"mode" validate:"omitempty,oneof=online offline"`
	PaymentReference string `json:"paymentReference,omitempty" bson:"payment_reference,omitempty" validate:"omitempty,max=128"`
}

// Booking is the durable result of a confirmed reservation.
type Booking struct {
	ID          string         `json:"id,omitempty" bson:"_id,omitempty"`
	HospitalID  string         `json:"hospitalId" bson:"hospital_id"`
	SlotID      string         `json:"slotId" bson:"slot_id"`
	LockID      string         `json:"lockId" bson:"lock_id"`
	Date        string         `json:"date" bson:"date"`
	SlotNumber  int            `json:"slotNumber" bson:"slot_number"`
	StartTime   string         `json:"startTime" bson:"start_time"`
	EndTime     string         `json:"endTime" bson:"end_time"`
	Status      string         `json:"status" bson:"status"`
	Details     BookingDetails `json:"bookingDetails" bson:"details"`
	CreatedAt   time.Time      `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" bson:"updated_at"`
	CheckedInAt *time.Time     `json:"checkedInAt,omitempty" bson:"checked_in_at,omitempty"`
	CancelledAt *time.Time     `json:"cancelledAt,omitempty" bson:"cancelled_at,omitempty"`
}

type ConfirmRequest struct {
	LockID         string         `json:"lockId" validate:"required,uuid4"`
	BookingDetails BookingDetails `json:"bookingDetails"`
}

type BookingFilter struct {
	HospitalID string
	FromDate   string
	Date       string
	Mode       string
	Status     string
}

// BookingCount is one row of the per-day, per-hospital analysis.
type BookingCount struct {
	Date       string `json:"date" bson:"date"`
	HospitalID string `json:"hospitalId" bson:"hospital_id"`
	Count      int64  `json:"count" bson:"count"`
}
