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

// NewSocketpair creates a connected pair of Contexts sharing an in-process
// socketpair, for testing (§4.H, "Socketpair helper"). One side is given
// the server role with registry as its command table, the other the
// client role.
func NewSocketpair(registry *Registry) (server, client *Context, err error) {
	if registry == nil {
		return nil, nil, ErrParameter
	}
	cfg := snapshotGlobalConfig()

	a, b, err := cfg.Vtable.Socketpair()
	if err != nil {
		return nil, nil, fmtWrap(ErrGeneral, err)
	}

	server = newContext(cfg, RoleServer, a, a)
	server.ownsFDs = true
	server.registry = registry

	client = newContext(cfg, RoleClient, b, b)
	client.ownsFDs = true

	return server, client, nil
}
