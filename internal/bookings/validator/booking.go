package validator

import (
	"clinicq/pkg/logger"
	"clinicq/pkg/model"
	"clinicq/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: validation.New(log),
		logger:   log,
	}
}

func (v *BookingValidator) ValidateLock(req *model.LockRequest) error {
	return validation.Struct(v.validate, req)
}

// ValidateConfirm expects details that were already sanitized, so the phone
// number is checked in its E.164 form.
func (v *BookingValidator) ValidateConfirm(req *model.ConfirmRequest) error {
	return validation.Struct(v.validate, req)
}
