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

// A simple tool for driving samples/echoserver over a pipe, demonstrating
// NewClientPipe, Transact, and the inquiry sub-protocol end to end.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/go-assuan/assuan"
)

var fServerPath = flag.String("server_path", "", "Path to the echoserver binary.")

func main() {
	flag.Parse()

	if *fServerPath == "" {
		log.Fatalf("You must set --server_path.")
	}

	ctx, err := assuan.NewClientPipe(*fServerPath, nil, nil)
	if err != nil {
		log.Fatalf("NewClientPipe: %v", err)
	}
	defer ctx.Release()

	var echoed []byte
	err = assuan.Transact(ctx, "ECHO", "hello, world", func(b []byte) error {
		echoed = append(echoed, b...)
		return nil
	}, nil, nil)
	if err != nil {
		log.Fatalf("Transact(ECHO): %v", err)
	}
	fmt.Printf("ECHO replied: %s\n", echoed)

	var uppered []byte
	inquire := func(keyword, args string, write func([]byte) error) error {
		if keyword != "PLAINTEXT" {
			return fmt.Errorf("unexpected inquiry keyword %q", keyword)
		}
		return write([]byte("shout this"))
	}
	err = assuan.Transact(ctx, "UPPER", "", func(b []byte) error {
		uppered = append(uppered, b...)
		return nil
	}, nil, inquire)
	if err != nil {
		log.Fatalf("Transact(UPPER): %v", err)
	}
	fmt.Printf("UPPER replied: %s\n", uppered)

	if err := assuan.Transact(ctx, "BYE", "", nil, nil, nil); err != nil {
		log.Fatalf("Transact(BYE): %v", err)
	}
}
