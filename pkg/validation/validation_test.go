package validation

import (
	"errors"
	"testing"

	"clinicq/pkg/logger"
)

type sample struct {
	Day   string `validate:"required,business_day"`
	Start string `validate:"required,clock_time"`
	Count int    `validate:"min=1"`
}

func TestStruct(t *testing.T) {
	v := New(logger.Discard())

	tests := []struct {
		name       string
		in         sample
		wantFields []string
	}{
		{"valid", sample{Day: "2024-01-31", Start: "09:30", Count: 1}, nil},
		{"bad day", sample{Day: "2024-02-30", Start: "09:30", Count: 1}, []string{"Day"}},
		{"bad clock", sample{Day: "2024-01-01", Start: "24:00", Count: 1}, []string{"Start"}},
		{"several", sample{Day: "", Start: "9:30", Count: 0}, []string{"Day", "Start", "Count"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(v, tt.in)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("error %v is not ValidationErrors", err)
			}
			details := verrs.Details()
			for _, field := range tt.wantFields {
				if _, ok := details[field]; !ok {
					t.Errorf("missing error for %s in %v", field, details)
				}
			}
		})
	}
}
