package validator

import (
	"testing"

	"clinicq/pkg/locale"
	"clinicq/pkg/logger"
	"clinicq/pkg/model"
)

func newTestValidator() *SlotValidator {
	return NewSlotValidator(logger.Discard(), locale.MustCalendar("+05:30"))
}

func validRequest() *model.SlotGenerationRequest {
	return &model.SlotGenerationRequest{
		HospitalID:  "h1",
		FromDate:    "2026-02-27",
		ToDate:      "2026-03-02",
		DayStart:    "09:00",
		DayEnd:      "10:00",
		SlotMinutes: 25,
		MaxCapacity: 4,
	}
}

func TestPlan(t *testing.T) {
	slots, days, err := newTestValidator().Plan(validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 09:00-09:25 and 09:25-09:50 fit, 09:50-10:15 does not
	if days != 4 {
		t.Fatalf("expected 4 days across the month end, got %d", days)
	}
	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(slots))
	}

	first, last := slots[0], slots[len(slots)-1]
	if first.Date != "2026-02-27" || first.SlotNumber != 1 || first.StartTime != "09:00" || first.EndTime != "09:25" {
		t.Errorf("unexpected first slot %+v", first)
	}
	if last.Date != "2026-03-02" || last.SlotNumber != 2 || last.StartTime != "09:25" || last.EndTime != "09:50" {
		t.Errorf("unexpected last slot %+v", last)
	}
	for _, slot := range slots {
		if slot.MaxCapacity != 4 || slot.HospitalID != "h1" {
			t.Errorf("slot not stamped from request: %+v", slot)
		}
	}
}

func TestPlan_WindowTooShort(t *testing.T) {
	req := validRequest()
	req.SlotMinutes = 90

	if _, _, err := newTestValidator().Plan(req); err == nil {
		t.Fatal("expected an error when no slot fits the day")
	}
}

func TestValidateGeneration(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(req *model.SlotGenerationRequest)
		wantErr bool
	}{
		{name: "valid", mutate: func(req *model.SlotGenerationRequest) {}},
		{name: "missing hospital", mutate: func(req *model.SlotGenerationRequest) { req.HospitalID = "" }, wantErr: true},
		{name: "bad date", mutate: func(req *model.SlotGenerationRequest) { req.FromDate = "2026-13-01" }, wantErr: true},
		{name: "reversed range", mutate: func(req *model.SlotGenerationRequest) { req.ToDate = "2026-02-01" }, wantErr: true},
		{name: "end before start", mutate: func(req *model.SlotGenerationRequest) { req.DayEnd = "08:00" }, wantErr: true},
		{name: "bad clock time", mutate: func(req *model.SlotGenerationRequest) { req.DayStart = "9am" }, wantErr: true},
		{name: "zero capacity", mutate: func(req *model.SlotGenerationRequest) { req.MaxCapacity = 0 }, wantErr: true},
		{name: "range too long", mutate: func(req *model.SlotGenerationRequest) { req.ToDate = "2026-12-31" }, wantErr: true},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			err := v.ValidateGeneration(req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGeneration() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
