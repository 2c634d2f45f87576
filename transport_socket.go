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

import "encoding/binary"

// PeerCredentials captures the uid/gid/pid of the process on the other end
// of a connected Unix-domain socket (§4.H, "Socket server").
type PeerCredentials struct {
	UID, GID, PID int
}

// NewServerSocket accepts one pending connection on listenFD — a listening
// local socket the caller has already bound and put into the listen state —
// and wraps it as a server Context, capturing the peer's credentials where
// the platform supports it (§4.H, "Socket server"; §6, "new_server_socket").
// If nonce is non-empty, it is read and verified immediately after accept,
// the server-side counterpart of NewClientSocket's handshake write.
func NewServerSocket(listenFD int, registry *Registry, nonce []byte) (*Context, PeerCredentials, error) {
	if registry == nil {
		return nil, PeerCredentials{}, ErrParameter
	}
	cfg := snapshotGlobalConfig()

	connFD, err := cfg.Vtable.Accept(listenFD)
	if err != nil {
		return nil, PeerCredentials{}, fmtWrap(ErrAcceptFailed, err)
	}

	if len(nonce) > 0 {
		if err := ReadNonce(cfg.Vtable, connFD, nonce); err != nil {
			_ = cfg.Vtable.Close(connFD)
			return nil, PeerCredentials{}, err
		}
	}

	var creds PeerCredentials
	if uid, gid, pid, err := cfg.Vtable.PeerCredentials(connFD); err == nil {
		creds = PeerCredentials{UID: uid, GID: gid, PID: pid}
	}

	c := newContext(cfg, RoleServer, connFD, connFD)
	c.ownsFDs = true
	c.registry = registry
	return c, creds, nil
}

// NewClientSocket connects to a named local socket (§4.H, "Socket client";
// §6, "new_client_socket"). If nonce is non-empty, it is written
// immediately after connect as a length-prefixed handshake for platforms
// that lack filesystem permission bits on sockets (§4.H).
func NewClientSocket(path string, nonce []byte) (*Context, error) {
	cfg := snapshotGlobalConfig()
	v := cfg.Vtable

	fd, err := v.Socket()
	if err != nil {
		return nil, fmtWrap(ErrConnectFailed, err)
	}
	if err := v.Connect(fd, path); err != nil {
		_ = v.Close(fd)
		return nil, fmtWrap(ErrConnectFailed, err)
	}

	if len(nonce) > 0 {
		if err := writeNonce(v, fd, nonce); err != nil {
			_ = v.Close(fd)
			return nil, fmtWrap(ErrConnectFailed, err)
		}
	}

	c := newContext(cfg, RoleClient, fd, fd)
	c.ownsFDs = true
	return c, nil
}

// writeNonce sends a 4-byte big-endian length prefix followed by nonce,
// matching the libassuan convention of a fixed-size handshake token
// exchanged once immediately after connect.
func writeNonce(v SystemVtable, fd int, nonce []byte) error {
	hdr := make([]byte, 4)
	binary.BigEndian.PutUint32(hdr, uint32(len(nonce)))
	buf := append(hdr, nonce...)
	for len(buf) > 0 {
		n, err := v.Write(fd, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAssWriteError
		}
		buf = buf[n:]
	}
	return nil
}

// ReadNonce reads and verifies the length-prefixed handshake token written
// by NewClientSocket's nonce argument; NewServerSocket calls this itself
// when given a non-empty nonce.
func ReadNonce(v SystemVtable, fd int, expected []byte) error {
	hdr := make([]byte, 4)
	if err := readFull(v, fd, hdr); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(hdr)
	if int(n) != len(expected) {
		return ErrAcceptFailed
	}
	got := make([]byte, n)
	if err := readFull(v, fd, got); err != nil {
		return err
	}
	for i := range got {
		if got[i] != expected[i] {
			return ErrAcceptFailed
		}
	}
	return nil
}

func readFull(v SystemVtable, fd int, buf []byte) error {
	for len(buf) > 0 {
		n, err := v.Read(fd, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrEOF
		}
		buf = buf[n:]
	}
	return nil
}
