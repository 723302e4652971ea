package validator

import (
	"clinicq/pkg/logger"
	"clinicq/pkg/model"
	"clinicq/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type VisitValidator struct {
	validate *validator.Validate
}

func NewVisitValidator(log *logger.Logger) *VisitValidator {
	return &VisitValidator{validate: validation.New(log)}
}

func (v *VisitValidator) ValidateCheckIn(req *model.CheckInRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *VisitValidator) ValidateWalkIn(req *model.WalkInRequest) error {
	return validation.Struct(v.validate, req)
}
