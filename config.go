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
	"flag"
	"io"
	"log"
	"os"
	"sync"

	"github.com/go-assuan/assuan/internal/bufpool"
)

// Level is a log verbosity level consumed by LogSink.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

// LogSink is the abstract sink the core writes diagnostics to (§1, "out of
// scope: configuration of logging sinks"). The core only ever calls Logf; a
// failing or nil sink is dropped silently per §7.
type LogSink interface {
	Logf(level Level, format string, args ...interface{})
}

// stdLogSink wraps a standard library *log.Logger, the way debug.go wraps
// gLogger: nil-safe, and gated by a minimum level.
type stdLogSink struct {
	logger *log.Logger
	min    Level
}

func (s *stdLogSink) Logf(level Level, format string, args ...interface{}) {
	if s == nil || s.logger == nil || level < s.min {
		return
	}
	s.logger.Printf(format, args...)
}

var fEnableDebug = flag.Bool(
	"assuan.debug",
	false,
	"Write assuan protocol debugging messages to stderr.")

var defaultSink LogSink
var defaultSinkOnce sync.Once

func initDefaultSink() {
	if !flag.Parsed() {
		// Mirror the teacher's flag-gated default: without a parsed flag set we
		// can't know whether debugging was requested, so stay silent.
		defaultSink = &stdLogSink{logger: log.New(io.Discard, "assuan: ", log.LstdFlags), min: LevelInfo}
		return
	}

	var w io.Writer = io.Discard
	if *fEnableDebug {
		w = os.Stderr
	}
	defaultSink = &stdLogSink{
		logger: log.New(w, "assuan: ", log.Ldate|log.Ltime|log.Lmicroseconds),
		min:    LevelDebug,
	}
}

// DefaultLogSink returns the process default log sink, initializing it from
// the -assuan.debug flag on first use.
func DefaultLogSink() LogSink {
	defaultSinkOnce.Do(initDefaultSink)
	return defaultSink
}

// Allocator is the injected allocate/reallocate/free trio (§4.B). The core
// only needs it for buffer growth bookkeeping; Go's garbage collector does
// the rest, so Allocate/Reallocate return freshly-sized byte slices and Free
// is advisory (callers embedding a locked/secure heap can use it to scrub
// memory before it becomes unreachable).
type Allocator struct {
	Allocate   func(size int) []byte
	Reallocate func(buf []byte, size int) []byte
	Free       func(buf []byte)
}

// defaultBufPool backs the three DefaultAllocator functions below with the
// same freelist-style reuse the teacher's buffer.MessageProvider gives
// Connection's read/write buffers. It is used only by the default, non-secure
// allocator: an embedder that supplies its own Allocator (e.g. over a locked
// heap) bypasses this pool entirely, since pooling unscrubbed buffers across
// unrelated Contexts is exactly what a secure allocator must not do.
var defaultBufPool = bufpool.New(maxLineBytes)

func defaultAllocate(size int) []byte {
	buf := defaultBufPool.Get()
	if cap(buf) < size {
		buf = make([]byte, 0, size)
	}
	return buf[:size]
}

func defaultReallocate(buf []byte, size int) []byte {
	if cap(buf) >= size {
		return buf[:size]
	}
	n := defaultAllocate(size)
	copy(n, buf)
	return n
}

func defaultFree(buf []byte) {
	defaultBufPool.Put(buf[:0])
}

// DefaultAllocator is used whenever GlobalConfig.Allocator is left unset.
var DefaultAllocator = Allocator{
	Allocate:   defaultAllocate,
	Reallocate: defaultReallocate,
	Free:       defaultFree,
}

func (a *Allocator) orDefault() Allocator {
	if a == nil {
		return DefaultAllocator
	}
	out := *a
	if out.Allocate == nil {
		out.Allocate = defaultAllocate
	}
	if out.Reallocate == nil {
		out.Reallocate = defaultReallocate
	}
	if out.Free == nil {
		out.Free = defaultFree
	}
	return out
}

// GlobalConfig is the process-wide default established once during library
// initialization, then consulted read-only (§9, "Global hooks → explicit
// configuration"). Contexts copy a snapshot at construction time so later
// mutation of the global value never races with a live conversation.
type GlobalConfig struct {
	Allocator Allocator
	Vtable    SystemVtable
	LogSink   LogSink

	// ErrorText overrides the ERR-line description for a given ErrorCode
	// when the reported error carries no description of its own (a bare
	// ErrorCode, or a ProtocolError with an empty Desc); see spec.md §9 open
	// question 3. Returning "" falls back to the built in table.
	ErrorText func(ErrorCode) string
}

var (
	globalConfigMu sync.RWMutex
	globalConfig   = GlobalConfig{
		Allocator: DefaultAllocator,
	}
)

// SetGlobalConfig installs the process-wide defaults consulted by contexts
// created after this call. It is intended to run once at startup, before any
// context is created; mutating it concurrently with live contexts is safe
// (each context already holds its own snapshot) but has no effect on them.
func SetGlobalConfig(cfg GlobalConfig) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

func snapshotGlobalConfig() GlobalConfig {
	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	cfg := globalConfig
	cfg.Allocator = cfg.Allocator.orDefault()
	if cfg.Vtable == nil || cfg.Vtable.Version() == 0 {
		cfg.Vtable = defaultVtable()
	}
	if cfg.LogSink == nil {
		cfg.LogSink = DefaultLogSink()
	}
	return cfg
}
