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

//go:build unix

package assuan

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// posixDefault is the default SystemVtable on POSIX platforms, grounded on
// the teacher's direct use of syscall.Write in connection.go's writeMessage
// plus golang.org/x/sys/unix for the socket-level ancillary-data calls that
// package syscall alone doesn't expose portably.
type posixDefault struct{}

// PosixDefault is the shared instance returned by defaultVtable on unix.
var PosixDefault SystemVtable = posixDefault{}

func newPlatformDefaultVtable() SystemVtable { return PosixDefault }

func (posixDefault) Version() int { return 2 }

func (posixDefault) Usleep(d time.Duration) { time.Sleep(d) }

func (posixDefault) Pipe() (r, w int, err error) {
	var fds [2]int
	if err = unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

func (posixDefault) Close(fd int) error { return unix.Close(fd) }

// Read retries on EINTR, mirroring the "only EINTR is transparently
// retried" rule of §7.
func (posixDefault) Read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

func (posixDefault) Write(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Write(fd, p)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// Sendmsg attaches oobFDs as a single SCM_RIGHTS control message, the way
// the pack's skopeo image-proxy builds its reply ancillary buffer with
// syscall.UnixRights before calling WriteMsgUnix.
func (posixDefault) Sendmsg(fd int, p []byte, oobFDs []int) (int, error) {
	var oob []byte
	if len(oobFDs) > 0 {
		oob = unix.UnixRights(oobFDs...)
	}
	for {
		err := unix.Sendmsg(fd, p, oob, nil, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return len(p), nil
	}
}

func (posixDefault) Recvmsg(fd int, p []byte) (n int, oobFDs []int, err error) {
	oob := make([]byte, unix.CmsgSpace(64*4))
	for {
		var oobn int
		n, oobn, _, _, err = unix.Recvmsg(fd, p, oob, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, nil, err
		}

		if oobn > 0 {
			cmsgs, perr := unix.ParseSocketControlMessage(oob[:oobn])
			if perr == nil {
				for _, c := range cmsgs {
					fds, ferr := unix.ParseUnixRights(&c)
					if ferr == nil {
						oobFDs = append(oobFDs, fds...)
					}
				}
			}
		}
		return n, oobFDs, nil
	}
}

// Spawn execs path with argv, wiring stdinFD/stdoutFD to the child's fds 0
// and 1 and sharing this process's stderr. inheritedFDs are passed through
// os/exec's ExtraFiles, so the child sees them in order as fds 3, 4, ...
// rather than under their original numbers; fds opened by Go with
// close-on-exec are not inherited.
func (posixDefault) Spawn(path string, argv []string, stdinFD, stdoutFD int, inheritedFDs []int) (int, error) {
	cmd := exec.Command(path, argv...)
	cmd.Stdin = os.NewFile(uintptr(stdinFD), "assuan-stdin")
	cmd.Stdout = os.NewFile(uintptr(stdoutFD), "assuan-stdout")
	cmd.Stderr = os.Stderr

	for _, fd := range inheritedFDs {
		cmd.ExtraFiles = append(cmd.ExtraFiles, os.NewFile(uintptr(fd), fmt.Sprintf("assuan-fd-%d", fd)))
	}

	if err := cmd.Start(); err != nil {
		return 0, err
	}
	return cmd.Process.Pid, nil
}

func (posixDefault) Waitpid(pid int, block bool) (bool, error) {
	var options int
	if !block {
		options = unix.WNOHANG
	}

	var ws unix.WaitStatus
	got, err := unix.Wait4(pid, &ws, options, nil)
	if err != nil {
		return false, err
	}
	return got == pid, nil
}

func (posixDefault) Socketpair() (a, b int, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

func (posixDefault) Socket() (int, error) {
	return unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
}

func (posixDefault) Connect(fd int, path string) error {
	return unix.Connect(fd, &unix.SockaddrUnix{Name: path})
}

// Accept retries on EINTR like Read/Write, returning the accepted
// connection's fd. The caller is assumed to have already bound and listened
// on listenFD; accept(2) itself has nothing further to negotiate.
func (posixDefault) Accept(listenFD int) (int, error) {
	for {
		connFD, _, err := unix.Accept(listenFD)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return -1, err
		}
		return connFD, nil
	}
}

// PeerCredentials reads SO_PEERCRED where available. On platforms in the
// "unix" build constraint that lack it (the BSDs, which use
// LOCAL_PEERCRED/getpeereid instead) this returns ErrNotImplemented; a
// production rewrite would add platform-specific files the way
// mount_darwin.go sits beside mount_linux.go in the teacher.
func (posixDefault) PeerCredentials(fd int) (uid, gid, pid int, err error) {
	cred, err := unix.GetsockoptUcred(fd, syscall.SOL_SOCKET, unix.SO_PEERCRED)
	if err != nil {
		return 0, 0, 0, err
	}
	return int(cred.Uid), int(cred.Gid), int(cred.Pid), nil
}
