// Copyright 2024 The Assuan Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package assuan

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable numeric error space surfaced by every operation in
// this package (§4.D). Zero always means success.
type ErrorCode int

// The error kinds the core must be able to produce (§4.D).
const (
	NoError ErrorCode = iota
	ErrGeneral
	ErrUnknownCommand
	ErrNotImplemented
	ErrLineTooLong
	ErrInvalidResponse
	ErrInvalidValue
	ErrAssReadError
	ErrAssWriteError
	ErrEOF
	ErrCanceled
	ErrNoDataCallback
	ErrNoInquireCallback
	ErrNestedCommands
	ErrConnectFailed
	ErrAcceptFailed
	ErrParameter
)

// defaultErrorText is the built-in ERR-line description table, used unless
// GlobalConfig.ErrorText overrides it (spec.md §9 open question 3).
var defaultErrorText = map[ErrorCode]string{
	NoError:              "Success",
	ErrGeneral:           "General error",
	ErrUnknownCommand:    "Unknown command",
	ErrNotImplemented:    "Not implemented",
	ErrLineTooLong:       "Line too long",
	ErrInvalidResponse:   "Invalid response",
	ErrInvalidValue:      "Invalid value",
	ErrAssReadError:      "Read error",
	ErrAssWriteError:     "Write error",
	ErrEOF:               "End of file",
	ErrCanceled:          "Canceled",
	ErrNoDataCallback:    "No data callback registered",
	ErrNoInquireCallback: "No inquire callback registered",
	ErrNestedCommands:    "Nested commands",
	ErrConnectFailed:     "Connect failed",
	ErrAcceptFailed:      "Accept failed",
	ErrParameter:         "Invalid parameter",
}

// errorText returns the human-readable description for code, consulting
// cfg's override hook if set.
func (cfg *GlobalConfig) errorText(code ErrorCode) string {
	if cfg != nil && cfg.ErrorText != nil {
		if s := cfg.ErrorText(code); s != "" {
			return s
		}
	}
	if s, ok := defaultErrorText[code]; ok {
		return s
	}
	return "Unknown error"
}

// Error implements the error interface. A bare ErrorCode carries no
// embedder-supplied description; see ProtocolError for one that does.
func (c ErrorCode) Error() string {
	if s, ok := defaultErrorText[c]; ok {
		return fmt.Sprintf("assuan: %s (%d)", s, int(c))
	}
	return fmt.Sprintf("assuan: error %d", int(c))
}

// ProtocolError pairs an ErrorCode with a peer-supplied or handler-supplied
// description, the way an ERR line carries both a code and free text.
type ProtocolError struct {
	Code ErrorCode
	Desc string
}

func (e *ProtocolError) Error() string {
	if e.Desc == "" {
		return e.Code.Error()
	}
	return fmt.Sprintf("assuan: %s (%d): %s", e.Code.Error(), int(e.Code), e.Desc)
}

// CodeOf extracts the ErrorCode from err, defaulting to ErrGeneral for
// errors this package did not produce and NoError for nil.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return NoError
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Code
	}
	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}
	return ErrGeneral
}
