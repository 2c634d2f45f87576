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
	"fmt"
	"strconv"
	"strings"
)

const (
	// maxLineChars is the 1,000-byte payload ceiling from §3 ("Line
	// buffer"): the content of a line, not counting an optional trailing CR
	// and the mandatory LF.
	maxLineChars = 1000

	// maxLineBytes is the full 1,002-byte wire envelope (§6): content, plus
	// an optional CR, plus LF.
	maxLineBytes = maxLineChars + 2

	// dataLinePrefix is "D " — two bytes of framing budget subtracted from
	// maxLineChars when packing an inline-data chunk.
	dataLinePrefix = "D "
)

// encodePercent percent-escapes '%', '\r', and '\n' in b, per §4.E: "%25",
// "%0D", "%0A"; all other bytes are passed through literally.
func encodePercent(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case '%':
			out = append(out, '%', '2', '5')
		case '\r':
			out = append(out, '%', '0', 'D')
		case '\n':
			out = append(out, '%', '0', 'A')
		default:
			out = append(out, c)
		}
	}
	return out
}

// encodedLen returns the number of wire bytes c would occupy once encoded,
// without allocating.
func encodedLen(c byte) int {
	switch c {
	case '%', '\r', '\n':
		return 3
	default:
		return 1
	}
}

// decodePercent reverses encodePercent. A malformed "%XX" escape (missing or
// non-hex digits) is a protocol error per §4.C ("a malformed escape aborts
// the connection").
func decodePercent(b []byte) ([]byte, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c != '%' {
			out = append(out, c)
			continue
		}
		if i+2 >= len(b) {
			return nil, ErrInvalidValue
		}
		v, err := strconv.ParseUint(string(b[i+1:i+3]), 16, 8)
		if err != nil {
			return nil, ErrInvalidValue
		}
		out = append(out, byte(v))
		i += 2
	}
	return out, nil
}

// splitDataLines packs payload into a sequence of "D "-prefixed, percent
// encoded line bodies (without trailing LF), none exceeding maxLineChars,
// per §4.C's write path: "the writer appends encoded bytes until the line
// would exceed 1,000 payload bytes, at which point it emits LF [and] starts
// a new D framing prefix". A zero-length payload still yields one empty "D"
// line so that an intentionally-empty inquiry answer is distinguishable
// from no answer at all.
func splitDataLines(payload []byte) [][]byte {
	budget := maxLineChars - len(dataLinePrefix)

	var lines [][]byte
	cur := []byte(dataLinePrefix)
	used := 0

	flush := func() {
		lines = append(lines, cur)
		cur = []byte(dataLinePrefix)
		used = 0
	}

	for _, c := range payload {
		n := encodedLen(c)
		if used+n > budget {
			flush()
		}
		cur = append(cur, encodePercent([]byte{c})...)
		used += n
	}

	if len(lines) == 0 || used > 0 {
		lines = append(lines, cur)
	}
	return lines
}

// renderLine serializes m into wire bytes, including the trailing LF but
// never a CR (this core never emits CR; it only tolerates receiving one).
// Data messages are not handled here (they yield ErrInvalidValue); inline
// data is rendered, as one or more "D" lines, by renderDataLines instead.
func renderLine(m Message) ([]byte, error) {
	var s string
	switch m.Kind {
	case KindCommand:
		if m.Args == "" {
			s = m.Verb
		} else {
			s = m.Verb + " " + m.Args
		}
	case KindOK:
		if m.Args == "" {
			s = "OK"
		} else {
			s = "OK " + m.Args
		}
	case KindERR:
		s = fmt.Sprintf("ERR %d", int(m.Code))
		if m.Args != "" {
			s += " " + m.Args
		}
	case KindStatus:
		s = "S " + m.Verb
		if m.Args != "" {
			s += " " + m.Args
		}
	case KindInquire:
		s = "INQUIRE " + m.Verb
		if m.Args != "" {
			s += " " + m.Args
		}
	case KindEnd:
		s = "END"
	case KindCancel:
		s = "CAN"
	case KindComment:
		s = "# " + m.Args
	default:
		return nil, ErrInvalidValue
	}

	if len(s) > maxLineChars {
		return nil, ErrLineTooLong
	}

	line := make([]byte, 0, len(s)+1)
	line = append(line, s...)
	line = append(line, '\n')
	return line, nil
}

// renderDataLines serializes a Data message as one or more complete wire
// lines (each including its trailing LF).
func renderDataLines(payload []byte) [][]byte {
	chunks := splitDataLines(payload)
	out := make([][]byte, len(chunks))
	for i, c := range chunks {
		line := make([]byte, 0, len(c)+1)
		line = append(line, c...)
		line = append(line, '\n')
		out[i] = line
	}
	return out
}

// parseLine parses one line (without its trailing LF/CR, already stripped
// by the read path) into a Message, per §4.E's rules. Reply keywords are
// recognized case-insensitively; any other first token yields a Command
// whose Verb keeps its original case (server-side lookup upper-cases it).
func parseLine(line string) (Message, error) {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return Message{}, ErrInvalidResponse
	}

	if trimmed[0] == '#' {
		return Message{Kind: KindComment, Args: strings.TrimPrefix(strings.TrimPrefix(trimmed, "#"), " ")}, nil
	}

	verb, rest := splitToken(trimmed)
	upper := strings.ToUpper(verb)

	switch upper {
	case "OK":
		return Message{Kind: KindOK, Args: rest}, nil
	case "ERR":
		return parseErrLine(rest)
	case "S":
		kw, args := splitToken(rest)
		return Message{Kind: KindStatus, Verb: kw, Args: args}, nil
	case "D":
		decoded, err := decodePercent([]byte(rest))
		if err != nil {
			return Message{}, err
		}
		return Message{Kind: KindData, Bytes: decoded}, nil
	case "INQUIRE":
		kw, args := splitToken(rest)
		return Message{Kind: KindInquire, Verb: kw, Args: args}, nil
	case "END":
		return Message{Kind: KindEnd}, nil
	case "CAN":
		return Message{Kind: KindCancel}, nil
	default:
		return Message{Kind: KindCommand, Verb: verb, Args: rest}, nil
	}
}

func parseErrLine(rest string) (Message, error) {
	codeStr, desc := splitToken(rest)
	n, err := strconv.Atoi(codeStr)
	if err != nil {
		return Message{}, ErrInvalidResponse
	}
	return Message{Kind: KindERR, Code: ErrorCode(n), Args: desc}, nil
}

// splitToken returns the first whitespace-delimited token of s and the
// remainder after exactly one separating space, preserving any further
// internal whitespace in the remainder (§4.E rule 2).
func splitToken(s string) (token, rest string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	token = s[:i]
	rest = s[i+1:]
	return token, rest
}
