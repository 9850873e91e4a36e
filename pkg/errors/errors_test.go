package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	refused := errors.New("connection refused")
	tests := []struct {
		name  string
		err   *Error
		want  string
		cause error
	}{
		{"new", New(ErrCodeInvalidIcons, "icon slot %d", 5), "INVALID_ICONS: icon slot 5", nil},
		{"wrap", Wrap(ErrCodeStoreUnavailable, refused, "connect %s", "localhost:6379"),
			"STORE_UNAVAILABLE: connect localhost:6379: connection refused", refused},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if got := errors.Unwrap(tt.err); got != tt.cause {
				t.Errorf("Unwrap() = %v, want %v", got, tt.cause)
			}
			if tt.cause != nil && !errors.Is(tt.err, tt.cause) {
				t.Error("errors.Is(err, cause) = false")
			}
		})
	}
}

// decodeFailure stands in for codec errors that carry their own Code method.
type decodeFailure struct{ code Code }

func (e decodeFailure) Error() string { return "decode: " + string(e.code) }
func (e decodeFailure) Code() Code    { return e.code }

func TestCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"structured", New(ErrCodeInvalidPlacement, "cell (3, 4) is occupied"), ErrCodeInvalidPlacement},
		{"wrapped with fmt", fmt.Errorf("place: %w", New(ErrCodeNotFound, "entity 7")), ErrCodeNotFound},
		{"outermost wins", Wrap(ErrCodeEncodeFailed, New(ErrCodeInvalidInput, "inner"), "outer"), ErrCodeEncodeFailed},
		{"coder", fmt.Errorf("load: %w", decodeFailure{ErrCodeBadVersionByte}), ErrCodeBadVersionByte},
		{"plain", errors.New("plain"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.want {
				t.Errorf("GetCode() = %q, want %q", got, tt.want)
			}
			if tt.want != "" && !Is(tt.err, tt.want) {
				t.Errorf("Is(err, %q) = false", tt.want)
			}
			if Is(tt.err, ErrCodeStoreCorrupt) {
				t.Error("Is(err, STORE_CORRUPT) = true")
			}
		})
	}
	if Is(errors.New("x"), "") {
		t.Error("empty code must never match")
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{New(ErrCodeInvalidLabel, "label too long"), "label too long"},
		{fmt.Errorf("save: %w", Wrap(ErrCodeStoreCorrupt, errors.New("eof"), "entry lamp")), "entry lamp"},
		{errors.New("plain error"), "plain error"},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
