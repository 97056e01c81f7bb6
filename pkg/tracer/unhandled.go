// Copyright 2026 The ReproTrace Authors.
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

package tracer

// The two fall-throughs for syscalls the tracer observes but does not
// interpret. Pure observers: they warn and never fail the trace.

// sysUnhandledPath1 names the syscall and its first path argument.
func sysUnhandledPath1(t *Tracer, name string, p *Process, disc int) error {
	if p.Retvalue < 0 {
		return nil
	}
	path, err := t.pathArg(p, 0)
	if err != nil {
		return t.swallowMem(p, name, err)
	}
	t.warnf(p.TID, "process used unhandled syscall %s on %q", name, path)
	return nil
}

// sysUnhandledOther names the syscall only. Also the landing spot for *at
// calls whose descriptor is not AT_FDCWD.
func sysUnhandledOther(t *Tracer, name string, p *Process, disc int) error {
	t.warnf(p.TID, "process used unhandled syscall %s", name)
	return nil
}
