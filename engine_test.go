// Copyright 2024 The Assuan Authors.

package assuan

import (
	"bytes"
	"testing"
)

func TestEncodeDecodePercentRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte(""),
		[]byte("hello world"),
		[]byte("100%\r\ndone"),
		bytes.Repeat([]byte{'%', '\r', '\n', 'x'}, 257),
	}

	for _, b := range cases {
		enc := encodePercent(b)
		for _, c := range enc {
			if c == '\r' || c == '\n' {
				t.Fatalf("encodePercent(%q) leaked raw control byte: %q", b, enc)
			}
		}
		dec, err := decodePercent(enc)
		if err != nil {
			t.Fatalf("decodePercent(%q): %v", enc, err)
		}
		if !bytes.Equal(dec, b) && !(len(dec) == 0 && len(b) == 0) {
			t.Fatalf("round trip mismatch: got %q, want %q", dec, b)
		}
	}
}

func TestDecodePercentMalformed(t *testing.T) {
	cases := []string{"%", "%0", "%ZZ", "abc%"}
	for _, s := range cases {
		if _, err := decodePercent([]byte(s)); err == nil {
			t.Errorf("decodePercent(%q): want error, got nil", s)
		}
	}
}

func TestSplitDataLinesRespectsLineLength(t *testing.T) {
	payload := bytes.Repeat([]byte("%"), 5000)
	lines := splitDataLines(payload)
	if len(lines) < 5 {
		t.Fatalf("expected at least 5 lines for a 5000-byte all-escaped payload, got %d", len(lines))
	}

	var rebuilt []byte
	for _, l := range lines {
		if len(l) > maxLineChars {
			t.Fatalf("line %q exceeds maxLineChars", l)
		}
		if !bytes.HasPrefix(l, []byte("D ")) && string(l) != "D" {
			t.Fatalf("line %q missing D prefix", l)
		}
		body := bytes.TrimPrefix(l, []byte("D "))
		body = bytes.TrimPrefix(body, []byte("D"))
		dec, err := decodePercent(body)
		if err != nil {
			t.Fatalf("decodePercent(%q): %v", body, err)
		}
		rebuilt = append(rebuilt, dec...)
	}
	if !bytes.Equal(rebuilt, payload) {
		t.Fatalf("reassembled payload mismatch: got %d bytes, want %d", len(rebuilt), len(payload))
	}
}

func TestSplitDataLinesEmptyPayloadYieldsOneLine(t *testing.T) {
	lines := splitDataLines(nil)
	if len(lines) != 1 {
		t.Fatalf("expected exactly one line for an empty payload, got %d", len(lines))
	}
}

func TestParseLineCommand(t *testing.T) {
	m, err := parseLine("ECHO hello world")
	if err != nil {
		t.Fatalf("parseLine: %v", err)
	}
	if m.Kind != KindCommand || m.Verb != "ECHO" || m.Args != "hello world" {
		t.Fatalf("got %+v", m)
	}
}

func TestParseLineOK(t *testing.T) {
	m, err := parseLine("OK")
	if err != nil || m.Kind != KindOK {
		t.Fatalf("parseLine(OK) = %+v, %v", m, err)
	}
}

func TestParseLineErr(t *testing.T) {
	m, err := parseLine("ERR 275 Unknown command")
	if err != nil {
		t.Fatalf("parseLine: %v", err)
	}
	if m.Kind != KindERR || m.Code != 275 || m.Args != "Unknown command" {
		t.Fatalf("got %+v", m)
	}
}

func TestParseLineData(t *testing.T) {
	m, err := parseLine("D ab%25c\r")
	if err != nil {
		t.Fatalf("parseLine: %v", err)
	}
	if m.Kind != KindData || string(m.Bytes) != "ab%c\r" {
		t.Fatalf("got %+v", m)
	}
}

func TestParseLineInvalidLeadingToken(t *testing.T) {
	// A reply-stream token that isn't one of the recognized keywords is
	// interpreted as a Command; only truly empty input is rejected here
	// (§4.E rule 3 is enforced by callers that know which stream they're on).
	if _, err := parseLine(""); err == nil {
		t.Errorf("parseLine(\"\"): want error")
	}
}

func TestRenderLineRoundTrip(t *testing.T) {
	msgs := []Message{
		{Kind: KindCommand, Verb: "NOP"},
		{Kind: KindOK, Args: "ready"},
		{Kind: KindERR, Code: 99, Args: "canceled"},
		{Kind: KindStatus, Verb: "PROGRESS", Args: "1 2"},
		{Kind: KindInquire, Verb: "NEED", Args: "3"},
		{Kind: KindEnd},
		{Kind: KindCancel},
	}

	for _, m := range msgs {
		line, err := renderLine(m)
		if err != nil {
			t.Fatalf("renderLine(%+v): %v", m, err)
		}
		if line[len(line)-1] != '\n' {
			t.Fatalf("renderLine(%+v) missing trailing LF", m)
		}
		if bytes.Count(line, []byte{'\n'}) != 1 {
			t.Fatalf("renderLine(%+v) has embedded LF: %q", m, line)
		}

		got, err := parseLine(string(bytes.TrimSuffix(line, []byte{'\n'})))
		if err != nil {
			t.Fatalf("parseLine(%q): %v", line, err)
		}
		if got.Kind != m.Kind {
			t.Fatalf("round trip kind mismatch: got %v want %v", got.Kind, m.Kind)
		}
	}
}

func TestRenderLineTooLong(t *testing.T) {
	huge := make([]byte, maxLineChars+10)
	for i := range huge {
		huge[i] = 'x'
	}
	_, err := renderLine(Message{Kind: KindOK, Args: string(huge)})
	if err != ErrLineTooLong {
		t.Fatalf("got err %v, want ErrLineTooLong", err)
	}
}
