// Copyright 2024 The Assuan Authors.

package assuan

import (
	"sync"
	"time"
)

// fakeVtable is an in-memory, intercepting SystemVtable used to test the
// line-framing engine without real OS descriptors (§8 property 2: "no line
// emitted on the wire exceeds 1,002 bytes, observed by an intercepting fake
// transport"). Socketpair wires two fd ids together: a write on one
// delivers bytes to a Read on the other.
type fakeVtable struct {
	mu      sync.Mutex
	nextFD  int
	inbox   map[int][][]byte // fd -> queued chunks available to Read
	written map[int][][]byte // fd -> every chunk ever written to it (for assertions)
	peerOf  map[int]int
}

func newFakeVtable() *fakeVtable {
	return &fakeVtable{
		inbox:   make(map[int][][]byte),
		written: make(map[int][][]byte),
		peerOf:  make(map[int]int),
	}
}

func (f *fakeVtable) Version() int          { return 2 }
func (f *fakeVtable) Usleep(time.Duration)  {}
func (f *fakeVtable) Pipe() (int, int, error) {
	return f.Socketpair()
}
func (f *fakeVtable) Close(fd int) error { return nil }

func (f *fakeVtable) Read(fd int, p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.inbox[fd]
	if len(q) == 0 {
		return 0, nil
	}
	chunk := q[0]
	n := copy(p, chunk)
	if n < len(chunk) {
		q[0] = chunk[n:]
	} else {
		q = q[1:]
	}
	f.inbox[fd] = q
	return n, nil
}

func (f *fakeVtable) Write(fd int, p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]byte(nil), p...)
	f.written[fd] = append(f.written[fd], cp)
	if peer, ok := f.peerOf[fd]; ok {
		f.inbox[peer] = append(f.inbox[peer], cp)
	}
	return len(p), nil
}

func (f *fakeVtable) Sendmsg(fd int, p []byte, oobFDs []int) (int, error) {
	return f.Write(fd, p)
}

func (f *fakeVtable) Recvmsg(fd int, p []byte) (int, []int, error) {
	n, err := f.Read(fd, p)
	return n, nil, err
}

func (f *fakeVtable) Spawn(path string, argv []string, stdinFD, stdoutFD int, inheritedFDs []int) (int, error) {
	return 0, ErrNotImplemented
}

func (f *fakeVtable) Waitpid(pid int, block bool) (bool, error) { return true, nil }

func (f *fakeVtable) Socketpair() (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.nextFD
	f.nextFD++
	b := f.nextFD
	f.nextFD++
	f.peerOf[a] = b
	f.peerOf[b] = a
	return a, b, nil
}

func (f *fakeVtable) Socket() (int, error)               { return 0, ErrNotImplemented }
func (f *fakeVtable) Connect(fd int, path string) error   { return ErrNotImplemented }
func (f *fakeVtable) Accept(listenFD int) (int, error)    { return 0, ErrNotImplemented }
func (f *fakeVtable) PeerCredentials(fd int) (int, int, int, error) {
	return 0, 0, 0, ErrNotImplemented
}

func (f *fakeVtable) linesWrittenTo(fd int) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.written[fd]))
	copy(out, f.written[fd])
	return out
}
