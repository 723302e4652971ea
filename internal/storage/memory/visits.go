package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	visitserrors "clinicq/internal/visits/errors"
	"clinicq/internal/visits/repository"
	"clinicq/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PatientDirectory struct {
	s *Store
}

var _ repository.PatientDirectory = (*PatientDirectory)(nil)

// Add registers a patient. Used to seed the store.
func (d *PatientDirectory) Add(ctx context.Context, patient *model.Patient) error {
	return d.s.write(ctx, func(j *journal) error {
		stored := *patient
		previous, existed := d.s.patients[stored.ID]
		d.s.patients[stored.ID] = &stored
		j.record(func() {
			if existed {
				d.s.patients[stored.ID] = previous
			} else {
				delete(d.s.patients, stored.ID)
			}
		})
		return nil
	})
}

func (d *PatientDirectory) FindPatient(ctx context.Context, hospitalID, patientID string) (*model.Patient, error) {
	var out *model.Patient
	err := d.s.read(ctx, func() error {
		patient, ok := d.s.patients[patientID]
		if !ok || patient.HospitalID != hospitalID {
			return fmt.Errorf("%w: %s", visitserrors.ErrPatientNotFound, patientID)
		}
		copied := *patient
		out = &copied
		return nil
	})
	return out, err
}

type VisitRecorder struct {
	s *Store
}

var _ repository.VisitRecorder = (*VisitRecorder)(nil)

func tokenKey(hospitalID, dayKey string, token int64) string {
	return fmt.Sprintf("%s|%s|%d", hospitalID, dayKey, token)
}

func (r *VisitRecorder) CreateVisit(ctx context.Context, visit *model.Visit) error {
	return r.s.write(ctx, func(j *journal) error {
		if visit.BookingID != "" {
			if _, exists := r.s.visitByBooking[visit.BookingID]; exists {
				return fmt.Errorf("%w: %s", visitserrors.ErrDuplicateVisit, visit.BookingID)
			}
		}
		byToken := tokenKey(visit.HospitalID, visit.DayKey, visit.Token)
		if _, exists := r.s.visitByToken[byToken]; exists {
			return fmt.Errorf("%w: %s/%s #%d", visitserrors.ErrDuplicateToken, visit.HospitalID, visit.DayKey, visit.Token)
		}

		visit.ID = primitive.NewObjectID().Hex()
		stored := *visit
		r.s.visits[stored.ID] = &stored
		r.s.visitByToken[byToken] = stored.ID
		if stored.BookingID != "" {
			r.s.visitByBooking[stored.BookingID] = stored.ID
		}
		j.record(func() {
			delete(r.s.visits, stored.ID)
			delete(r.s.visitByToken, byToken)
			if stored.BookingID != "" {
				delete(r.s.visitByBooking, stored.BookingID)
			}
		})
		return nil
	})
}

func (r *VisitRecorder) ListByDay(ctx context.Context, hospitalID, dayKey string, limit int, offset int64) ([]*model.Visit, error) {
	out := make([]*model.Visit, 0)
	err := r.s.read(ctx, func() error {
		for _, v := range r.s.visits {
			if v.HospitalID == hospitalID && v.DayKey == dayKey {
				copied := *v
				out = append(out, &copied)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b *model.Visit) int { return cmp.Compare(a.Token, b.Token) })
	return page(out, limit, offset), nil
}

func (r *VisitRecorder) CountByDay(ctx context.Context, hospitalID, dayKey string) (int64, error) {
	var count int64
	err := r.s.read(ctx, func() error {
		for _, v := range r.s.visits {
			if v.HospitalID == hospitalID && v.DayKey == dayKey {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *VisitRecorder) FindByToken(ctx context.Context, hospitalID, dayKey string, token int64) (*model.Visit, error) {
	var out *model.Visit
	err := r.s.read(ctx, func() error {
		id, ok := r.s.visitByToken[tokenKey(hospitalID, dayKey, token)]
		if !ok {
			return fmt.Errorf("%w: %s/%s #%d", visitserrors.ErrVisitNotFound, hospitalID, dayKey, token)
		}
		copied := *r.s.visits[id]
		out = &copied
		return nil
	})
	return out, err
}
