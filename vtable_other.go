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

//go:build !unix

package assuan

import "time"

// windowsDefault is a placeholder SystemVtable for non-unix platforms.
// Pipe transport and named-pipe based sockets on Windows would live here
// the way mount_darwin.go sits beside mount_linux.go in the teacher; this
// rewrite's scope (§1) is the core protocol engine, not a per-OS transport
// backend, so every syscall-shaped method reports ErrNotImplemented rather
// than guessing at Windows semantics.
type windowsDefault struct{}

// WindowsDefault is the shared instance returned by defaultVtable off unix.
var WindowsDefault SystemVtable = windowsDefault{}

func newPlatformDefaultVtable() SystemVtable { return WindowsDefault }

func (windowsDefault) Version() int { return 0 }

func (windowsDefault) Usleep(d time.Duration) { time.Sleep(d) }

func (windowsDefault) Pipe() (int, int, error) { return -1, -1, ErrNotImplemented }

func (windowsDefault) Close(fd int) error { return ErrNotImplemented }

func (windowsDefault) Read(fd int, p []byte) (int, error) { return 0, ErrNotImplemented }

func (windowsDefault) Write(fd int, p []byte) (int, error) { return 0, ErrNotImplemented }

func (windowsDefault) Sendmsg(fd int, p []byte, oobFDs []int) (int, error) {
	return 0, ErrNotImplemented
}

func (windowsDefault) Recvmsg(fd int, p []byte) (int, []int, error) {
	return 0, nil, ErrNotImplemented
}

func (windowsDefault) Spawn(path string, argv []string, stdinFD, stdoutFD int, inheritedFDs []int) (int, error) {
	return 0, ErrNotImplemented
}

func (windowsDefault) Waitpid(pid int, block bool) (bool, error) { return false, ErrNotImplemented }

func (windowsDefault) Socketpair() (int, int, error) { return -1, -1, ErrNotImplemented }

func (windowsDefault) Socket() (int, error) { return -1, ErrNotImplemented }

func (windowsDefault) Connect(fd int, path string) error { return ErrNotImplemented }

func (windowsDefault) Accept(listenFD int) (int, error) { return -1, ErrNotImplemented }

func (windowsDefault) PeerCredentials(fd int) (int, int, int, error) {
	return 0, 0, 0, ErrNotImplemented
}
