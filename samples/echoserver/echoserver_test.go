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

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-assuan/assuan"
)

// Built once per test binary run, the way subprocess.go's buildMountSample
// builds mount_sample once for every test in samples/.
var (
	buildOnce     sync.Once
	echoserverBin string
	buildErr      error
)

func buildEchoserver(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir := t.TempDir()
		echoserverBin = filepath.Join(dir, "echoserver")
		cmd := exec.Command("go", "build", "-o", echoserverBin, "github.com/go-assuan/assuan/samples/echoserver")
		cmd.Stderr = os.Stderr
		buildErr = cmd.Run()
	})
	if buildErr != nil {
		t.Fatalf("building echoserver: %v", buildErr)
	}
	return echoserverBin
}

func TestEchoserverEndToEnd(t *testing.T) {
	bin := buildEchoserver(t)

	ctx, err := assuan.NewClientPipe(bin, nil, nil)
	if err != nil {
		t.Fatalf("NewClientPipe: %v", err)
	}
	defer ctx.Release()

	var got []byte
	err = assuan.Transact(ctx, "ECHO", "hello from the test", func(b []byte) error {
		got = append(got, b...)
		return nil
	}, nil, nil)
	if err != nil {
		t.Fatalf("Transact(ECHO): %v", err)
	}
	if string(got) != "hello from the test" {
		t.Fatalf("got %q, want %q", got, "hello from the test")
	}

	var uppered []byte
	inquire := func(keyword, args string, write func([]byte) error) error {
		if keyword != "PLAINTEXT" {
			return fmt.Errorf("unexpected inquiry keyword %q", keyword)
		}
		return write([]byte("quiet"))
	}
	err = assuan.Transact(ctx, "UPPER", "", func(b []byte) error {
		uppered = append(uppered, b...)
		return nil
	}, nil, inquire)
	if err != nil {
		t.Fatalf("Transact(UPPER): %v", err)
	}
	if string(uppered) != "QUIET" {
		t.Fatalf("got %q, want %q", uppered, "QUIET")
	}

	if err := assuan.Transact(ctx, "BYE", "", nil, nil, nil); err != nil {
		t.Fatalf("Transact(BYE): %v", err)
	}
}
