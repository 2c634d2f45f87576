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

// Kind tags a parsed protocol line (§3, "Message kinds").
type Kind int

const (
	KindComment Kind = iota
	KindCommand
	KindOK
	KindERR
	KindStatus
	KindData
	KindInquire
	KindEnd
	KindCancel
)

func (k Kind) String() string {
	switch k {
	case KindComment:
		return "Comment"
	case KindCommand:
		return "Command"
	case KindOK:
		return "OK"
	case KindERR:
		return "ERR"
	case KindStatus:
		return "Status"
	case KindData:
		return "Data"
	case KindInquire:
		return "Inquire"
	case KindEnd:
		return "End"
	case KindCancel:
		return "Cancel"
	default:
		return "Unknown"
	}
}

// Message is a single parsed Assuan protocol line (§3, §6). Which fields are
// meaningful depends on Kind:
//
//   - Command: Verb, Args
//   - OK, Comment: Args (info/comment text, may be empty)
//   - ERR: Code, Args (description)
//   - Status, Inquire: Verb (keyword), Args
//   - Data: Bytes (already percent-decoded)
//   - End, Cancel: no payload
type Message struct {
	Kind  Kind
	Verb  string
	Args  string
	Code  ErrorCode
	Bytes []byte
}

// IsTerminal reports whether m concludes a command/reply exchange (§3
// invariant 3).
func (m Message) IsTerminal() bool {
	return m.Kind == KindOK || m.Kind == KindERR
}
