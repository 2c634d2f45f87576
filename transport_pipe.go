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

// NewServerPipe wraps two inherited file descriptors — typically fds 0 and
// 1 of a process exec'd by a NewClientPipe caller — as a server Context
// (§4.H, "Pipe server"; §6, "new_server_pipe"). registry supplies the
// command table; it must not be nil.
func NewServerPipe(inFD, outFD int, registry *Registry) (*Context, error) {
	if registry == nil {
		return nil, ErrParameter
	}
	cfg := snapshotGlobalConfig()
	c := newContext(cfg, RoleServer, inFD, outFD)
	c.ownsFDs = true
	c.registry = registry
	return c, nil
}

// NewClientPipe forks and execs path with argv, keeping one end of two pipe
// pairs in the parent and handing the other ends to the child as its
// stdin/stdout (§4.H, "Pipe client"; §6, "new_client_pipe"). inheritedFDs
// names additional file descriptors to leave open across the exec; all
// others are closed by the vtable's Spawn implementation. The returned
// Context owns its fds and the child pid; Release reaps the child.
func NewClientPipe(path string, argv []string, inheritedFDs []int) (*Context, error) {
	cfg := snapshotGlobalConfig()
	v := cfg.Vtable

	// Parent reads from childToParentR, child writes to childToParentW.
	childToParentR, childToParentW, err := v.Pipe()
	if err != nil {
		return nil, fmtWrap(ErrGeneral, err)
	}

	// Parent writes to parentToChildW, child reads from parentToChildR.
	parentToChildR, parentToChildW, err := v.Pipe()
	if err != nil {
		_ = v.Close(childToParentR)
		_ = v.Close(childToParentW)
		return nil, fmtWrap(ErrGeneral, err)
	}

	pid, err := v.Spawn(path, argv, parentToChildR, childToParentW, inheritedFDs)
	if err != nil {
		_ = v.Close(childToParentR)
		_ = v.Close(childToParentW)
		_ = v.Close(parentToChildR)
		_ = v.Close(parentToChildW)
		return nil, fmtWrap(ErrGeneral, err)
	}

	// The child inherited its ends; the parent's copies of them are no
	// longer needed and would otherwise wedge EOF detection.
	_ = v.Close(parentToChildR)
	_ = v.Close(childToParentW)

	c := newContext(cfg, RoleClient, childToParentR, parentToChildW)
	c.ownsFDs = true
	c.hasPID = true
	c.peerPID = pid
	return c, nil
}
