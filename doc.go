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

// Package assuan implements the core of the Assuan IPC protocol: a
// lightweight, line-oriented request/response protocol for talking to a
// security-sensitive helper process over a pipe or a local stream socket.
//
// The primary elements of interest are:
//
//   - Context, the per-conversation state object returned by NewServerPipe,
//     NewServerSocket, NewClientPipe, NewClientSocket, and NewSocketpair.
//
//   - Registry, a server's command table, and Process, which drives a
//     server Context's dispatch loop against it.
//
//   - Transact, which drives a client Context through a single
//     command/reply exchange, including the inquiry sub-protocol.
//
//   - SystemVtable, the pluggable syscall layer that lets a single
//     protocol core run over pipes, Unix-domain sockets, or a test double.
//
// A Context serves exactly one conversation with one peer and is not safe
// for concurrent use; distinct Contexts are fully independent and may be
// driven from separate goroutines.
package assuan
