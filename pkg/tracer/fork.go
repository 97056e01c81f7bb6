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

import (
	"fmt"

	"github.com/bSzala/reprozip/pkg/abi/linux"
)

// Fork-family discriminators.
const (
	// discPlainFork: fork/vfork, the child is always a new process.
	discPlainFork = 0
	// discCloneFlags: clone, inspect the flags argument for the
	// thread bit.
	discCloneFlags = 1
)

// sysFork runs at fork/vfork/clone exit in the parent. The child's first
// stop may have arrived already (it then sits in the registry as UNKNOWN,
// suspended) or may still be pending; both orders end with the child
// ATTACHED or ALLOCATED, carrying the parent's working directory and a fresh
// sink identifier.
func sysFork(t *Tracer, name string, p *Process, disc int) error {
	if p.Retvalue <= 0 {
		return nil
	}
	newTid := int(p.Retvalue)
	isThread := disc == discCloneFlags && p.Params[0]&linux.CloneThread != 0

	child := t.registry.Get(newTid)
	resumeChild := false
	if child != nil {
		if child.Status != StatusUnknown {
			t.criticalf(newTid, "%s returned tid %d which is already %v", name, newTid, child.Status)
			return &InvariantError{TID: newTid, Msg: "created tid already attached"}
		}
		child.Status = StatusAttached
		resumeChild = true
	} else {
		child = &Process{TID: newTid, Status: StatusAllocated, CurrentSyscall: -1}
		t.registry.Add(child)
	}
	if isThread {
		child.TGID = p.TGID
	} else {
		child.TGID = newTid
	}
	child.Mode = p.Mode
	child.WD = p.WD

	id, err := t.sink.AddProcess(p.Identifier, p.WD)
	if err != nil {
		return &SinkError{TID: p.TID, Op: "add_process", Err: err}
	}
	child.Identifier = id
	if isThread {
		t.debugf(p.TID, "new thread %d", newTid)
	} else {
		t.debugf(p.TID, "new process %d", newTid)
	}

	if resumeChild {
		if err := t.io.Resume(newTid); err != nil {
			return fmt.Errorf("resuming new task %d: %w", newTid, err)
		}
	}
	return nil
}
