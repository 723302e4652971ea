package validator

import (
	"fmt"
	"time"

	"clinicq/pkg/locale"
	"clinicq/pkg/logger"
	"clinicq/pkg/model"
	"clinicq/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// MaxGenerationDays bounds one generation request.
const MaxGenerationDays = 92

type SlotValidator struct {
	validate *validator.Validate
	calendar *locale.Calendar
	logger   *logger.Logger
}

func NewSlotValidator(log *logger.Logger, calendar *locale.Calendar) *SlotValidator {
	log.Info("Slot validator initialized successfully")

	return &SlotValidator{
		validate: validation.New(log),
		calendar: calendar,
		logger:   log,
	}
}

func (v *SlotValidator) ValidateGeneration(req *model.SlotGenerationRequest) error {
	if err := validation.Struct(v.validate, req); err != nil {
		return err
	}

	var errs validation.ValidationErrors
	if req.ToDate < req.FromDate {
		errs = append(errs, validation.ValidationError{Field: "ToDate", Message: "must not be before FromDate"})
	}
	if req.DayEnd <= req.DayStart {
		errs = append(errs, validation.ValidationError{Field: "DayEnd", Message: "must be after DayStart"})
	}
	if len(errs) > 0 {
		return errs
	}

	from, _ := v.calendar.ParseDay(req.FromDate)
	to, _ := v.calendar.ParseDay(req.ToDate)
	if days := int(to.Sub(from).Hours()/24) + 1; days > MaxGenerationDays {
		return validation.ValidationErrors{{
			Field:   "ToDate",
			Message: fmt.Sprintf("range must not exceed %d days, got %d", MaxGenerationDays, days),
		}}
	}

	return nil
}

// Plan expands a validated request into slot rows, numbered from 1 within
// each day. A trailing window shorter than SlotMinutes is dropped.
func (v *SlotValidator) Plan(req *model.SlotGenerationRequest) ([]*model.Slot, int, error) {
	start, err := time.Parse("15:04", req.DayStart)
	if err != nil {
		return nil, 0, validation.ValidationErrors{{Field: "DayStart", Message: "must be a time in HH:MM format"}}
	}
	end, err := time.Parse("15:04", req.DayEnd)
	if err != nil {
		return nil, 0, validation.ValidationErrors{{Field: "DayEnd", Message: "must be a time in HH:MM format"}}
	}
	step := time.Duration(req.SlotMinutes) * time.Minute

	var windows [][2]string
	for t := start; !t.Add(step).After(end); t = t.Add(step) {
		windows = append(windows, [2]string{t.Format("15:04"), t.Add(step).Format("15:04")})
	}
	if len(windows) == 0 {
		return nil, 0, validation.ValidationErrors{{Field: "SlotMinutes", Message: "does not fit between DayStart and DayEnd"}}
	}

	var slots []*model.Slot
	days := 0
	for day := req.FromDate; day <= req.ToDate; {
		for i, w := range windows {
			slots = append(slots, &model.Slot{
				HospitalID:  req.HospitalID,
				Date:        day,
				SlotNumber:  i + 1,
				StartTime:   w[0],
				EndTime:     w[1],
				MaxCapacity: req.MaxCapacity,
			})
		}
		days++

		next, err := v.calendar.AddDays(day, 1)
		if err != nil {
			return nil, 0, err
		}
		day = next
	}

	return slots, days, nil
}
