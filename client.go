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

import "strings"

// InquireHandler answers a server's INQUIRE by writing zero or more D
// chunks via write, then returning. Transact terminates the inquiry with
// END once the handler returns nil, or with CAN if it returns an error; in
// both cases Transact then goes on reading until the server's terminal
// OK/ERR reply for the command and returns that outcome.
type InquireHandler func(keyword, args string, write func([]byte) error) error

// Transact writes a command line and reads reply lines until a terminal
// OK/ERR, routing D lines to dataSink, S lines to statusSink, and INQUIRE
// to inquireHandler (§4.G). Any sink may be nil; a nil dataSink when D
// arrives (or a nil inquireHandler when INQUIRE arrives) surfaces
// ErrNoDataCallback / ErrNoInquireCallback, matching a missing-callback
// condition rather than silently discarding peer data.
func Transact(
	ctx *Context,
	verb, args string,
	dataSink func([]byte) error,
	statusSink func(keyword, args string) error,
	inquireHandler InquireHandler,
) error {
	if err := ctx.writeMessage(Message{Kind: KindCommand, Verb: verb, Args: args}); err != nil {
		return err
	}
	if err := ctx.flush(); err != nil {
		return err
	}

	for {
		line, err := ctx.readLine()
		if err != nil {
			return err
		}
		msg, perr := parseLine(line)
		if perr != nil {
			return ErrInvalidResponse
		}

		switch msg.Kind {
		case KindOK:
			return nil
		case KindERR:
			return &ProtocolError{Code: msg.Code, Desc: msg.Args}
		case KindData:
			if dataSink == nil {
				return ErrNoDataCallback
			}
			if err := dataSink(msg.Bytes); err != nil {
				return err
			}
		case KindStatus:
			if statusSink != nil {
				if err := statusSink(msg.Verb, msg.Args); err != nil {
					return err
				}
			}
		case KindInquire:
			if err := respondToInquiry(ctx, msg, inquireHandler); err != nil {
				return err
			}
		case KindComment:
			// Ignorable (§3).
		default:
			return ErrInvalidResponse
		}
	}
}

func respondToInquiry(ctx *Context, msg Message, handler InquireHandler) error {
	if handler == nil {
		if err := ctx.writeMessage(Message{Kind: KindCancel}); err != nil {
			return err
		}
		_ = ctx.flush()
		return ErrNoInquireCallback
	}

	write := func(b []byte) error {
		if err := ctx.writeData(b); err != nil {
			return err
		}
		return ctx.flush()
	}

	if err := handler(msg.Verb, msg.Args, write); err != nil {
		// The server answers the CAN with a terminal ERR for the command;
		// Transact's read loop picks that up as the command's result.
		if werr := ctx.writeMessage(Message{Kind: KindCancel}); werr != nil {
			return werr
		}
		return ctx.flush()
	}

	if err := ctx.writeMessage(Message{Kind: KindEnd}); err != nil {
		return err
	}
	return ctx.flush()
}

// SendRaw writes a single, already-formatted line verbatim, appending the
// trailing LF, for protocol extension and diagnostic use (§4.G). It does
// not interpret line's content as any particular Kind.
func SendRaw(ctx *Context, line string) error {
	line = strings.TrimSuffix(line, "\n")
	if err := ctx.writeLine(append([]byte(line), '\n')); err != nil {
		return err
	}
	return ctx.flush()
}

// ReceiveLine reads and returns a single raw line (without its terminator),
// for protocol extension and diagnostic use (§4.G).
func ReceiveLine(ctx *Context) (string, error) {
	return ctx.readLine()
}
