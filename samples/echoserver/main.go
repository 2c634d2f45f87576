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

// A minimal Assuan server, used by samples/echoclient and by the tests in
// samples/.
//
// It speaks on fds 0/1, so it is meant to be spawned the way a real Assuan
// helper is: with NewClientPipe, which execs this binary and wires its own
// pipe ends to the child's stdin/stdout.
package main

import (
	"flag"
	"log"

	"github.com/go-assuan/assuan"
)

var fDebug = flag.Bool("debug", false, "Enable assuan.debug protocol tracing.")

func main() {
	flag.Parse()

	registry := assuan.NewRegistry()

	registry.Register("ECHO", func(p *assuan.Peer, args string) error {
		return p.WriteData([]byte(args))
	}, "Echo the argument back as inline data")

	registry.Register("UPPER", func(p *assuan.Peer, args string) error {
		payload, err := p.Inquire("PLAINTEXT", "")
		if err != nil {
			return err
		}
		upper := make([]byte, len(payload))
		for i, b := range payload {
			if b >= 'a' && b <= 'z' {
				b -= 'a' - 'A'
			}
			upper[i] = b
		}
		return p.WriteData(upper)
	}, "Inquire a payload and echo it back upper-cased")

	ctx, err := assuan.NewServerPipe(0, 1, registry)
	if err != nil {
		log.Fatalf("NewServerPipe: %v", err)
	}
	defer ctx.Release()

	if err := assuan.Process(ctx); err != nil {
		log.Fatalf("Process: %v", err)
	}
}
