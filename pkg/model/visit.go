package model

import "time"

const (
	VisitWaiting = "waiting"

	VisitSourceAppointment = "appointment"
	VisitSourceWalkIn      = "walk_in"
)

type Patient struct {
	ID         string `json:"id" bson:"_id"`
	HospitalID string `json:"hospitalId" bson:"hospital_id"`
	Name       string `json:"name" bson:"name"`
	Phone      string `json:"phone" bson:"phone"`
}

// Visit is a patient's presence in today's queue.
type Visit struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty"`
	HospitalID string    `json:"hospitalId" bson:"hospital_id"`
	PatientID  string    `json:"patientId" bson:"patient_id"`
	BookingID  string    `json:"bookingId,omitempty" bson:"booking_id,omitempty"`
	DoctorID   string    `json:"doctorId,omitempty" bson:"doctor_id,omitempty"`
	Token      int64     `json:"token" bson:"token"`
	DayKey     string    `json:"dayKey" bson:"day_key"`
	Source     string    `json:"source" bson:"source"`
	Status     string    `json:"status" bson:"status"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
}

type CheckInRequest struct {
	BookingID string `json:"bookingId" validate:"required,mongodb"`
	PatientID string `json:"patientId" validate:"required,max=64"`
}

type WalkInRequest struct {
	HospitalID string `json:"hospitalId" validate:"required,max=64"`
	PatientID  string `json:"patientId" validate:"required,max=64"`
	DoctorID   string `json:"doctorId,omitempty" validate:"omitempty,max=64"`
}
