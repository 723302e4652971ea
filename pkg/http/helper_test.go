package http

import (
	"net/http/httptest"
	"testing"

	"clinicq/pkg/config"
)

func TestExtractLimitOffset(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int64
		wantErr    bool
	}{
		{"defaults", "", 10, 0, false},
		{"explicit", "?limit=25&offset=50", 25, 50, false},
		{"limit capped", "?limit=100000", config.DefaultPaginationLimit, 0, false},
		{"negative offset", "?offset=-4", 10, 0, false},
		{"bad limit", "?limit=abc", 0, 0, true},
		{"bad offset", "?offset=1.5", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/x"+tt.query, nil)
			limit, offset, err := ExtractLimitOffset(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("got (%d, %d), want (%d, %d)", limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?days=14", nil)
	if v, err := QueryInt(r, "days", 7); err != nil || v != 14 {
		t.Errorf("QueryInt(days) = %d, %v", v, err)
	}
	if v, err := QueryInt(r, "missing", 7); err != nil || v != 7 {
		t.Errorf("QueryInt(missing) = %d, %v", v, err)
	}
	r = httptest.NewRequest("GET", "/x?days=many", nil)
	if _, err := QueryInt(r, "days", 7); err == nil {
		t.Error("expected error for non-numeric days")
	}
}
