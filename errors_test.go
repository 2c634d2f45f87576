// Copyright 2024 The Assuan Authors.

package assuan

import (
	"strings"
	"testing"
)

func TestErrorCodeError(t *testing.T) {
	got := ErrUnknownCommand.Error()
	if !strings.Contains(got, "Unknown command") {
		t.Errorf("ErrUnknownCommand.Error() = %q, want it to mention %q", got, "Unknown command")
	}
}

func TestProtocolErrorWithDescription(t *testing.T) {
	e := &ProtocolError{Code: ErrGeneral, Desc: "disk on fire"}
	got := e.Error()
	if !strings.Contains(got, "disk on fire") {
		t.Errorf("Error() = %q, want it to contain description", got)
	}
}

func TestProtocolErrorWithoutDescription(t *testing.T) {
	e := &ProtocolError{Code: ErrCanceled}
	if got, want := e.Error(), ErrCanceled.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, NoError},
		{"bare code", ErrEOF, ErrEOF},
		{"protocol error", &ProtocolError{Code: ErrParameter}, ErrParameter},
		{"foreign error", testErr{}, ErrGeneral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeOf(tc.err); got != tc.want {
				t.Errorf("CodeOf(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

type testErr struct{}

func (testErr) Error() string { return "boom" }
