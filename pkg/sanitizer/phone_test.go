package sanitizer

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		region string
		want   string
	}{
		{
			name:   "already E.164",
			input:  "+919876543210",
			region: "IN",
			want:   "+919876543210",
		},
		{
			name:   "with spaces",
			input:  "+91 98765 43210",
			region: "IN",
			want:   "+919876543210",
		},
		{
			name:   "national number uses default region",
			input:  "98765-43210",
			region: "IN",
			want:   "+919876543210",
		},
		{
			name:   "leading and trailing spaces",
			input:  "  +919876543210  ",
			region: "IN",
			want:   "+919876543210",
		},
		{
			name:   "empty string",
			input:  "",
			region: "IN",
			want:   "",
		},
		{
			name:   "only whitespace",
			input:  "   ",
			region: "IN",
			want:   "",
		},
		{
			name:   "not a number",
			input:  "call me",
			region: "IN",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePhone(tt.input, tt.region)
			if got != tt.want {
				t.Errorf("NormalizePhone(%q, %q) = %q, want %q", tt.input, tt.region, got, tt.want)
			}
		})
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	first := NormalizePhone("+91 98765 43210", "IN")
	second := NormalizePhone(first, "IN")
	if first != second {
		t.Errorf("NormalizePhone is not idempotent: %q then %q", first, second)
	}
}
