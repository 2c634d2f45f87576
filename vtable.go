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

import "time"

// SystemVtable is the indirection layer over OS primitives (§4.A). The core
// never calls a platform syscall directly; every blocking or fd-touching
// operation goes through this interface so an embedder can substitute a
// test double, a sandboxed variant, or (on an unsupported platform) a
// not-implemented stub.
//
// Version 1 requires Usleep, Pipe, Close, Read, Write, Sendmsg, Recvmsg,
// Spawn, Waitpid, Socketpair. Version 2 additionally requires Socket,
// Connect, and Accept (the socket server's half of the listen/dial pair).
// A GlobalConfig.Vtable whose Version reports 0 is not used: the core
// substitutes the platform default (PosixDefault or WindowsDefault) for it.
// Any other version is used as given for every method; there is no
// per-method fallback to the default.
type SystemVtable interface {
	Version() int

	Usleep(d time.Duration)
	Pipe() (r, w int, err error)
	Close(fd int) error
	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)

	// Sendmsg writes p on fd, optionally attaching oobFDs as an SCM_RIGHTS
	// ancillary batch.
	Sendmsg(fd int, p []byte, oobFDs []int) (int, error)

	// Recvmsg reads into p from fd, returning any ancillary fds attached to
	// the message.
	Recvmsg(fd int, p []byte) (n int, oobFDs []int, err error)

	// Spawn execs path with argv, wiring stdin/stdout to the given fds and
	// leaving inheritedFDs open across the exec. It returns the child pid.
	Spawn(path string, argv []string, stdinFD, stdoutFD int, inheritedFDs []int) (pid int, err error)
	Waitpid(pid int, block bool) (exited bool, err error)

	Socketpair() (a, b int, err error)

	// Version 2.
	Socket() (fd int, err error)
	Connect(fd int, path string) error

	// Accept accepts one pending connection on listenFD, a listening local
	// socket the embedder has already bound and put into the listen state,
	// and returns the new connection's fd (§4.H, "Socket server").
	Accept(listenFD int) (connFD int, err error)

	// PeerCredentials returns the uid/gid/pid of the process on the other
	// end of a connected Unix-domain socket fd, where the platform supports
	// it (SO_PEERCRED / LOCAL_PEERCREDS / getpeereid).
	PeerCredentials(fd int) (uid, gid, pid int, err error)
}

// HookedVtable wraps a SystemVtable with pre/post-syscall hooks (§4.A) that
// run around each potentially blocking call (Read, Write, Sendmsg, Recvmsg,
// Waitpid, Usleep, Connect, Accept), letting a host environment suspend
// signal handling or cancellation around blocking syscalls. The remaining
// methods pass straight through to the wrapped vtable without hooks.
type HookedVtable struct {
	SystemVtable
	Before func(call string)
	After  func(call string)
}

func (h *HookedVtable) hook(call string, fn func()) {
	if h.Before != nil {
		h.Before(call)
	}
	fn()
	if h.After != nil {
		h.After(call)
	}
}

func (h *HookedVtable) Read(fd int, p []byte) (n int, err error) {
	h.hook("read", func() { n, err = h.SystemVtable.Read(fd, p) })
	return
}

func (h *HookedVtable) Write(fd int, p []byte) (n int, err error) {
	h.hook("write", func() { n, err = h.SystemVtable.Write(fd, p) })
	return
}

func (h *HookedVtable) Sendmsg(fd int, p []byte, oobFDs []int) (n int, err error) {
	h.hook("sendmsg", func() { n, err = h.SystemVtable.Sendmsg(fd, p, oobFDs) })
	return
}

func (h *HookedVtable) Recvmsg(fd int, p []byte) (n int, oobFDs []int, err error) {
	h.hook("recvmsg", func() { n, oobFDs, err = h.SystemVtable.Recvmsg(fd, p) })
	return
}

func (h *HookedVtable) Waitpid(pid int, block bool) (exited bool, err error) {
	h.hook("waitpid", func() { exited, err = h.SystemVtable.Waitpid(pid, block) })
	return
}

func (h *HookedVtable) Usleep(d time.Duration) {
	h.hook("usleep", func() { h.SystemVtable.Usleep(d) })
}

func (h *HookedVtable) Connect(fd int, path string) (err error) {
	h.hook("connect", func() { err = h.SystemVtable.Connect(fd, path) })
	return
}

func (h *HookedVtable) Accept(listenFD int) (connFD int, err error) {
	h.hook("accept", func() { connFD, err = h.SystemVtable.Accept(listenFD) })
	return
}

// defaultVtable returns the platform default, selected the way the teacher
// selects mount_linux.go vs mount_darwin.go via build tags: see
// vtable_unix.go and vtable_other.go.
func defaultVtable() SystemVtable {
	return newPlatformDefaultVtable()
}
