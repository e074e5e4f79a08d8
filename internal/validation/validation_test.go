package validation

import (
	"errors"
	"strings"
	"testing"
)

// TestValidateQuery verifies acceptance of ordinary prefixes and each rejection reason.
func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		maxLen  int
		want    string
		wantErr error
	}{
		{name: "simple", input: "par", maxLen: 10, want: "par"},
		{name: "keeps spaces", input: "new y", maxLen: 10, want: "new y"},
		{name: "unicode", input: "zürich", maxLen: 6, want: "zürich"},
		{name: "no bound", input: strings.Repeat("a", 500), maxLen: 0, want: strings.Repeat("a", 500)},
		{name: "empty", input: "", maxLen: 10, wantErr: ErrQueryEmpty},
		{name: "too long", input: "abcdef", maxLen: 5, wantErr: ErrQueryTooLong},
		{name: "invalid utf8", input: "pa\xffr", maxLen: 10, wantErr: ErrQueryInvalidUTF8},
		{name: "control", input: "pa\nr", maxLen: 10, wantErr: ErrQueryControlChars},
		{name: "delete", input: "pa\x7f", maxLen: 10, wantErr: ErrQueryControlChars},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateQuery(tt.input, tt.maxLen)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ValidateQuery(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateQuery(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ValidateQuery(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
