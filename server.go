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
	"sort"
	"strings"
	"sync"
)

// Handler is the callable a server registers for a verb (§4.F). It receives
// a restricted Peer handle rather than the Context itself, per §9's note on
// avoiding long-lived borrows of context internals.
type Handler func(p *Peer, args string) error

type commandEntry struct {
	verb    string
	handler Handler
	help    string
}

// Registry is a server's command table (§3, "Command table entry"; §4.F,
// "Command registry"). The zero value is ready to use; NewRegistry
// pre-populates the mandatory built-in verbs.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*commandEntry
	optionFn func(p *Peer, key, value string) error
}

// NewRegistry returns a Registry with the mandatory built-in verbs already
// registered: NOP, CANCEL, BYE, AUTH, RESET, END, HELP, OPTION (§4.F).
// Built-ins are overrideable by a later explicit Register call.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]*commandEntry)}
	r.registerBuiltins()
	return r
}

// Register adds or replaces the handler for verb (§4.F). Verb lookup is
// ASCII case-insensitive and exact-length; Register normalizes verb to
// upper case internally for that comparison while preserving the original
// case for Verbs() and the HELP listing.
func (r *Registry) Register(verb string, h Handler, help string) error {
	if verb == "" || h == nil {
		return ErrParameter
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = make(map[string]*commandEntry)
	}
	r.entries[strings.ToUpper(verb)] = &commandEntry{verb: verb, handler: h, help: help}
	return nil
}

// SetOptionHandler installs the callback OPTION key=value is forwarded to.
func (r *Registry) SetOptionHandler(fn func(p *Peer, key, value string) error) {
	r.mu.Lock()
	r.optionFn = fn
	r.mu.Unlock()
}

func (r *Registry) lookup(verb string) (*commandEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[strings.ToUpper(verb)]
	return e, ok
}

// Verbs returns every registered verb, sorted, for introspection (SPEC_FULL
// §4's HELP discoverability addition).
func (r *Registry) Verbs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.verb)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) registerBuiltins() {
	r.Register("NOP", func(p *Peer, args string) error {
		return nil
	}, "Does nothing")

	r.Register("CANCEL", func(p *Peer, args string) error {
		p.ctx.Cancel()
		return nil
	}, "Mark the current request as canceled")

	r.Register("BYE", func(p *Peer, args string) error {
		p.bye = true
		return nil
	}, "Close the connection")

	r.Register("AUTH", func(p *Peer, args string) error {
		return nil
	}, "Dummy placeholder for compatibility")

	r.Register("RESET", func(p *Peer, args string) error {
		p.ctx.SetConfidential(false)
		p.ctx.clearCancel()
		if p.onReset != nil {
			return p.onReset()
		}
		return nil
	}, "Reset the connection state")

	r.Register("END", func(p *Peer, args string) error {
		// Meaningful only while Peer.Inquire is actively reading D/END/CAN
		// lines on behalf of a handler; as a bare top-level command it has
		// nothing to terminate, so it is accepted as a no-op the way NOP is.
		return nil
	}, "Terminate an inquiry response")

	r.Register("HELP", func(p *Peer, args string) error {
		args = strings.TrimSpace(args)
		if args == "" {
			for _, v := range p.registry.Verbs() {
				if err := p.WriteData([]byte(v)); err != nil {
					return err
				}
			}
			return nil
		}
		e, ok := p.registry.lookup(args)
		if !ok {
			return &ProtocolError{Code: ErrUnknownCommand, Desc: args}
		}
		return p.WriteData([]byte(e.help))
	}, "List commands, or describe one")

	r.Register("OPTION", func(p *Peer, args string) error {
		key, value := splitToken(args)
		if eq := strings.IndexByte(key, '='); eq >= 0 {
			value = key[eq+1:]
			key = key[:eq]
		}
		if p.registry.optionFn == nil {
			return nil
		}
		return p.registry.optionFn(p, key, value)
	}, "Set a connection option")
}

// Peer is the restricted handle a Handler receives (§9, "Handler callbacks
// → explicit continuations"). It exposes only the operations a handler is
// meant to use: writing status/data lines, inquiring the client for more
// data, and checking for cancellation.
type Peer struct {
	ctx      *Context
	registry *Registry
	onReset  func() error
	bye      bool
}

// WriteData writes payload as one or more inline D-lines (§3).
func (p *Peer) WriteData(payload []byte) error {
	if err := p.ctx.writeData(payload); err != nil {
		return err
	}
	return p.ctx.flush()
}

// WriteStatus writes an S-line (§3).
func (p *Peer) WriteStatus(keyword, args string) error {
	if err := p.ctx.writeMessage(Message{Kind: KindStatus, Verb: keyword, Args: args}); err != nil {
		return err
	}
	return p.ctx.flush()
}

// IsCanceled reports whether the client has requested cancellation (§5).
func (p *Peer) IsCanceled() bool {
	return p.ctx.IsCanceled()
}

// AttachFDs stages file descriptors to ride along with the next line this
// Peer writes (§4.C, "Ancillary data").
func (p *Peer) AttachFDs(fds []int) { p.ctx.AttachFDs(fds) }

// ReceiveFD dequeues an ancillary fd delivered by the client.
func (p *Peer) ReceiveFD() (int, bool) { return p.ctx.ReceiveFD() }

// Inquire sends "INQUIRE keyword args" and blocks reading the client's
// response: D-lines accumulate into the returned payload, END concludes it
// successfully, CAN returns ErrCanceled, an ERR line returns its embedded
// code, and BYE cancels the handler and terminates the connection (§4.F,
// "Inquiry from within a handler"; §9 open question 1). Nested inquiries
// (calling Inquire again before the first resolves) fail with
// ErrNestedCommands without disturbing the first (§3 invariant 4).
func (p *Peer) Inquire(keyword, args string) ([]byte, error) {
	p.ctx.mu.Lock()
	if p.ctx.inquiryDepth > 0 {
		p.ctx.mu.Unlock()
		return nil, ErrNestedCommands
	}
	p.ctx.inquiryDepth++
	p.ctx.mu.Unlock()

	defer func() {
		p.ctx.mu.Lock()
		p.ctx.inquiryDepth--
		p.ctx.mu.Unlock()
	}()

	if err := p.ctx.writeMessage(Message{Kind: KindInquire, Verb: keyword, Args: args}); err != nil {
		return nil, err
	}
	if err := p.ctx.flush(); err != nil {
		return nil, err
	}

	var payload []byte
	for {
		line, err := p.ctx.readLine()
		if err != nil {
			return nil, err
		}
		msg, perr := parseLine(line)
		if perr != nil {
			return nil, ErrInvalidResponse
		}

		switch msg.Kind {
		case KindData:
			payload = append(payload, msg.Bytes...)
		case KindEnd:
			return payload, nil
		case KindCancel:
			return nil, ErrCanceled
		case KindERR:
			return nil, &ProtocolError{Code: msg.Code, Desc: msg.Args}
		case KindCommand:
			if strings.EqualFold(msg.Verb, "BYE") {
				p.bye = true
				return nil, ErrCanceled
			}
			return nil, ErrInvalidResponse
		default:
			return nil, ErrInvalidResponse
		}
	}
}

// Process repeatedly reads one command line, dispatches it to the matching
// handler (or replies ErrUnknownCommand), and writes the terminal OK/ERR
// the handler's return value implies (§4.F, "Main loop"). It returns when
// the client sends BYE or a transport error occurs; a clean EOF or a prior
// BYE is reported as nil, matching §8 scenario 7 ("the next process call
// returns immediately with 0 and the context is marked terminated").
func Process(ctx *Context) error {
	if ctx.registry == nil {
		return ErrParameter
	}

	ctx.mu.Lock()
	terminated := ctx.terminated
	ctx.mu.Unlock()
	if terminated {
		return nil
	}

	for {
		line, err := ctx.readLine()
		if err == ErrEOF {
			return nil
		}
		if err != nil {
			return err
		}

		msg, perr := parseLine(line)
		if perr != nil || msg.Kind != KindCommand {
			_ = replyErr(ctx, &ProtocolError{Code: ErrInvalidResponse})
			continue
		}

		peer := &Peer{ctx: ctx, registry: ctx.registry}
		entry, ok := ctx.registry.lookup(msg.Verb)
		if !ok {
			if err := replyErr(ctx, &ProtocolError{Code: ErrUnknownCommand, Desc: msg.Verb}); err != nil {
				return err
			}
			continue
		}

		hErr := entry.handler(peer, msg.Args)
		ctx.clearCancel()

		if hErr != nil {
			if err := replyErr(ctx, hErr); err != nil {
				return err
			}
		} else {
			if err := ctx.writeMessage(Message{Kind: KindOK}); err != nil {
				return err
			}
			if err := ctx.flush(); err != nil {
				return err
			}
		}

		if peer.bye {
			ctx.mu.Lock()
			ctx.terminated = true
			ctx.mu.Unlock()
			return nil
		}
	}
}

func replyErr(ctx *Context, err error) error {
	var pe *ProtocolError
	if e, ok := err.(*ProtocolError); ok {
		pe = e
	} else if code, ok := err.(ErrorCode); ok {
		pe = &ProtocolError{Code: code}
	} else {
		pe = &ProtocolError{Code: CodeOf(err), Desc: err.Error()}
	}

	cfg := ctx.cfg
	desc := pe.Desc
	if desc == "" {
		desc = cfg.errorText(pe.Code)
	}

	if werr := ctx.writeMessage(Message{Kind: KindERR, Code: pe.Code, Args: desc}); werr != nil {
		return werr
	}
	return ctx.flush()
}
