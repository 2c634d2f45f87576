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

import "fmt"

// fmtWrap wraps a lower-level error with one of this package's stable
// ErrorCodes while preserving the original error text, the way
// connection.go wraps syscall errors with fmt.Errorf("Init: %v", err).
func fmtWrap(code ErrorCode, err error) error {
	if err == nil {
		return nil
	}
	return &ProtocolError{Code: code, Desc: fmt.Sprintf("%v", err)}
}
