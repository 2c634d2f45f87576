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
	"bytes"
	"fmt"
	"strings"
	"sync"
)

// Role identifies which end of a conversation a Context drives (§3).
type Role int

const (
	RoleServer Role = iota
	RoleClient
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Context is the per-conversation state object (§3, "Context"). All
// operations on a given Context must be serialized by the caller (§5); two
// Contexts are fully independent. The zero value is not usable; construct
// with one of NewServerPipe, NewServerSocket, NewClientPipe, or
// NewClientSocket.
//
// Modeled on the teacher's Connection: mutex-guarded per-conversation
// state, owned fds, a debug logger, and an explicit release that reaps a
// spawned peer.
type Context struct {
	cfg  GlobalConfig
	role Role

	inFD  int
	outFD int

	ownsFDs bool
	peerPID int
	hasPID  bool

	mu            sync.Mutex
	open          bool
	inputEOF      bool
	broken        bool
	brokenErr     error
	confidential  bool
	pendingCancel bool
	terminated    bool
	inquiryDepth  int
	recvFDs       []int
	sendFDs       []int

	inbuf  []byte // raw bytes read but not yet consumed as a line
	outbuf []byte // bytes queued for the next flush

	registry *Registry // server role only
}

func newContext(cfg GlobalConfig, role Role, inFD, outFD int) *Context {
	return &Context{
		cfg:    cfg,
		role:   role,
		inFD:   inFD,
		outFD:  outFD,
		open:   true,
		inbuf:  cfg.Allocator.Allocate(0),
		outbuf: cfg.Allocator.Allocate(0),
	}
}

// appendBuf grows buf by len(p) bytes and copies p into the new tail,
// routing every growth through cfg.Allocator.Reallocate so an embedder's
// secure allocator sees every byte inbuf/outbuf ever hold (§4.B).
func (c *Context) appendBuf(buf, p []byte) []byte {
	old := len(buf)
	buf = c.cfg.Allocator.Reallocate(buf, old+len(p))
	copy(buf[old:], p)
	return buf
}

func (c *Context) logf(level Level, format string, args ...interface{}) {
	if c.cfg.LogSink == nil {
		return
	}
	c.cfg.LogSink.Logf(level, format, args...)
}

// IsConfidential reports whether the conversation has been marked as
// carrying confidential data via SetConfidential (RESET clears the flag);
// handlers may consult this to decide whether to scrub logs.
func (c *Context) IsConfidential() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confidential
}

// SetConfidential toggles the confidential-mode flag (§3).
func (c *Context) SetConfidential(v bool) {
	c.mu.Lock()
	c.confidential = v
	c.mu.Unlock()
}

// Cancel sets the pending-cancel flag from outside the protocol loop (§5,
// "a pending-cancel flag set by the embedder via a cancel(ctx) API").
func (c *Context) Cancel() {
	c.mu.Lock()
	c.pendingCancel = true
	c.mu.Unlock()
}

// IsCanceled reports the pending-cancel flag without clearing it. The
// engine calls this at each protocol boundary
// (§5, "Cancellation never interrupts an in-flight syscall; it is checked
// at protocol boundaries").
func (c *Context) IsCanceled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingCancel
}

func (c *Context) clearCancel() {
	c.mu.Lock()
	c.pendingCancel = false
	c.mu.Unlock()
}

func (c *Context) markBroken(err error) error {
	c.mu.Lock()
	if !c.broken {
		c.broken = true
		c.brokenErr = err
	}
	c.mu.Unlock()
	return err
}

func (c *Context) checkBroken() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return c.brokenErr
	}
	return nil
}

// AttachFDs stages fds to be sent as an SCM_RIGHTS ancillary batch
// alongside the next outgoing line (§4.C, "Ancillary data"). Only
// meaningful on socket transports.
func (c *Context) AttachFDs(fds []int) {
	c.mu.Lock()
	c.sendFDs = append(c.sendFDs, fds...)
	c.mu.Unlock()
}

// ReceiveFD dequeues the next ancillary file descriptor delivered by the
// peer, ok is false if none is pending. The caller takes ownership and is
// responsible for closing it (§5, "Resource ownership").
func (c *Context) ReceiveFD() (fd int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.recvFDs) == 0 {
		return -1, false
	}
	fd = c.recvFDs[0]
	c.recvFDs = c.recvFDs[1:]
	return fd, true
}

// writeLine appends one complete wire line (including its trailing LF) to
// the output buffer, enforcing the 1,002-byte envelope (§3 invariant 1).
func (c *Context) writeLine(line []byte) error {
	if len(line) > maxLineBytes {
		return c.markBroken(ErrLineTooLong)
	}
	c.outbuf = c.appendBuf(c.outbuf, line)
	return nil
}

// writeMessage serializes and queues m.
func (c *Context) writeMessage(m Message) error {
	if err := c.checkBroken(); err != nil {
		return err
	}
	if c.IsCanceled() {
		return ErrCanceled
	}

	line, err := renderLine(m)
	if err != nil {
		return err
	}

	c.logf(LevelDebug, "%s ctx=%p -> %s", c.role, c, strings.TrimSuffix(string(line), "\n"))
	return c.writeLine(line)
}

// writeData serializes payload as one or more D-lines and queues them.
func (c *Context) writeData(payload []byte) error {
	if err := c.checkBroken(); err != nil {
		return err
	}
	if c.IsCanceled() {
		return ErrCanceled
	}

	for _, line := range renderDataLines(payload) {
		c.logf(LevelDebug, "%s ctx=%p -> %s", c.role, c, strings.TrimSuffix(string(line), "\n"))
		if err := c.writeLine(line); err != nil {
			return err
		}
	}
	return nil
}

// flush pushes the accumulated output buffer to the peer via the vtable's
// Sendmsg when ancillary fds are staged (attaching them to the first write)
// and via Write otherwise, on any transport. Short writes are retried; EINTR is retried by the
// vtable itself; any other error is fatal (§4.C).
func (c *Context) flush() error {
	if len(c.outbuf) == 0 {
		return nil
	}

	buf := c.outbuf
	c.outbuf = c.outbuf[:0]

	c.mu.Lock()
	fds := c.sendFDs
	c.sendFDs = nil
	c.mu.Unlock()

	for len(buf) > 0 {
		var n int
		var err error
		if len(fds) > 0 {
			n, err = c.cfg.Vtable.Sendmsg(c.outFD, buf, fds)
			fds = nil // attach once, on the first write of this flush
		} else {
			n, err = c.cfg.Vtable.Write(c.outFD, buf)
		}
		if err != nil {
			return c.markBroken(fmt.Errorf("%w: %v", ErrAssWriteError, err))
		}
		if n == 0 {
			return c.markBroken(ErrAssWriteError)
		}
		buf = buf[n:]
	}
	return nil
}

// readLine returns the next complete line from the peer, with its trailing
// LF stripped and a single trailing CR tolerated and stripped (§4.C, read
// path). It returns io.EOF-equivalent via ErrEOF when the peer has closed
// the connection, and ErrLineTooLong if a line, counted up to and including
// its LF, exceeds the 1,002-byte envelope.
func (c *Context) readLine() (string, error) {
	if err := c.checkBroken(); err != nil {
		return "", err
	}

	for {
		if i := bytes.IndexByte(c.inbuf, '\n'); i >= 0 {
			if i+1 > maxLineBytes {
				return "", c.markBroken(ErrLineTooLong)
			}
			line := append([]byte(nil), c.inbuf[:i]...)
			rest := len(c.inbuf) - (i + 1)
			copy(c.inbuf, c.inbuf[i+1:])
			c.inbuf = c.inbuf[:rest]
			line = bytes.TrimSuffix(line, []byte{'\r'})
			s := string(line)
			c.logf(LevelDebug, "%s ctx=%p <- %s", c.role, c, s)
			return s, nil
		}

		if len(c.inbuf) > maxLineBytes {
			return "", c.markBroken(ErrLineTooLong)
		}

		if c.inputEOF {
			return "", c.markBroken(ErrEOF)
		}

		scratch := make([]byte, 4096)
		n, oobFDs, err := c.cfg.Vtable.Recvmsg(c.inFD, scratch)
		if err != nil {
			n, err = c.cfg.Vtable.Read(c.inFD, scratch)
			oobFDs = nil
		}
		if err != nil {
			return "", c.markBroken(fmt.Errorf("%w: %v", ErrAssReadError, err))
		}
		if n == 0 {
			c.inputEOF = true
			continue
		}

		c.inbuf = c.appendBuf(c.inbuf, scratch[:n])
		if len(oobFDs) > 0 {
			c.mu.Lock()
			c.recvFDs = append(c.recvFDs, oobFDs...)
			c.mu.Unlock()
		}
	}
}

// Release drains pending output best-effort, closes owned fds, reaps a
// spawned peer if present, and frees owned memory (§4.B). Safe to call more
// than once.
func (c *Context) Release() error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil
	}
	c.open = false
	c.mu.Unlock()

	_ = c.flush()

	var firstErr error
	if c.ownsFDs {
		if err := c.cfg.Vtable.Close(c.inFD); err != nil && firstErr == nil {
			firstErr = err
		}
		if c.outFD != c.inFD {
			if err := c.cfg.Vtable.Close(c.outFD); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	if c.hasPID {
		exited, err := c.cfg.Vtable.Waitpid(c.peerPID, false)
		if err == nil && !exited {
			// Fall back to a blocking wait; the spec's release contract is
			// "reaps a child if present", not "never blocks".
			_, _ = c.cfg.Vtable.Waitpid(c.peerPID, true)
		}
	}

	c.cfg.Allocator.Free(c.inbuf)
	c.cfg.Allocator.Free(c.outbuf)

	return firstErr
}
