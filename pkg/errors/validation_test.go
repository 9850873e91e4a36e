package errors

import (
	"strings"
	"testing"
)

func TestValidateItemName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "inserter", false},
		{"valid with dash", "transport-belt", false},
		{"valid with digits", "assembling-machine-2", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 201), true},
		{"space", "iron chest", true},
		{"newline", "iron\nchest", true},
		{"null byte", "foo\x00bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateItemName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateItemName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", false},
		{"plain", "Red science", false},
		{"rich text", "[item=iron-plate] smelter", false},
		{"unicode", "Stahlwerk äöü", false},

		{"newline", "line\nbreak", true},
		{"invalid utf8", "\xff\xfe", true},
		{"too long", strings.Repeat("x", 201), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLabel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLabel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidLabel) {
				t.Errorf("ValidateLabel(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidLabel)
			}
		})
	}
}

func TestValidateIcons(t *testing.T) {
	tests := []struct {
		name    string
		input   []int
		wantErr bool
	}{
		{"none", nil, false},
		{"one", []int{1}, false},
		{"full", []int{1, 2, 3, 4}, false},
		{"unordered", []int{3, 1}, false},

		{"too many", []int{1, 2, 3, 4, 1}, true},
		{"zero index", []int{0}, true},
		{"index above max", []int{5}, true},
		{"duplicate", []int{2, 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIcons(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIcons(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateStoreKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "smelting", false},
		{"valid namespaced", "user:42:main-bus", false},
		{"valid dotted", "v1.2_rails", false},

		{"empty", "", true},
		{"too long", strings.Repeat("k", 129), true},
		{"path traversal", "foo..bar", true},
		{"slash", "foo/bar", true},
		{"leading dash", "-foo", true},
		{"space", "foo bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStoreKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStoreKey(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
