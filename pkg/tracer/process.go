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

// Status is the lifecycle state of a traced task.
type Status int

const (
	// StatusUnknown marks a task whose first stop arrived before its
	// creator's fork-family syscall returned.
	StatusUnknown Status = iota
	// StatusAllocated marks a task whose creation was observed in the
	// parent but which has not stopped yet.
	StatusAllocated
	// StatusAttached marks a live task pinned by the tracer.
	StatusAttached
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusAllocated:
		return "allocated"
	case StatusAttached:
		return "attached"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ParamCount is the number of register-sized syscall arguments captured at
// entry.
const ParamCount = 6

// Process is the tracer's record of one traced task. The registry owns all
// records; handlers borrow exactly one for the duration of a stop.
type Process struct {
	// TID is the OS-level task identifier.
	TID int

	// TGID is the thread-group leader's identifier. Equal to TID for a
	// process, different for a non-leader thread. Immutable once set.
	TGID int

	// Identifier is the opaque handle the sink returned when the process
	// was recorded. It survives thread grouping and execve.
	Identifier int64

	// Status is the lifecycle state.
	Status Status

	// Mode is the ABI the task is currently running under.
	Mode linux.Mode

	// WD is the task's working directory as last observed. Always
	// absolute and non-empty once the task is attached.
	WD string

	// InSyscall distinguishes entry stops from exit stops. Toggled once
	// per boundary crossing.
	InSyscall bool

	// CurrentSyscall is the syscall number captured at the most recent
	// entry, or -1 when the task is not in one.
	CurrentSyscall int

	// Params are the raw arguments captured at entry.
	Params [ParamCount]uint64

	// Retvalue is the return value captured at exit. Negative means the
	// kernel failed the call.
	Retvalue int64

	// Scratch is handler-private state carried between a matched entry
	// and exit. Only execve uses it today.
	Scratch *execScratch

	// tbl is the syscall table the most recent dispatch selected for this
	// task. Handlers that redirect (the *at adapter) look targets up here.
	tbl *Table
}

// Arg returns param i as a signed integer.
func (p *Process) Arg(i int) int64 { return int64(p.Params[i]) }

// Registry is the set of currently traced tasks, keyed by tid. The dispatch
// engine is the only mutator; no locking is needed.
type Registry struct {
	procs map[int]*Process
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{procs: make(map[int]*Process)}
}

// Get returns the record for tid, or nil.
func (r *Registry) Get(tid int) *Process { return r.procs[tid] }

// Add inserts p, replacing nothing: the caller must have checked that tid is
// free.
func (r *Registry) Add(p *Process) { r.procs[p.TID] = p }

// Remove drops the record for tid.
func (r *Registry) Remove(tid int) { delete(r.procs, tid) }

// Size returns the number of live records.
func (r *Registry) Size() int { return len(r.procs) }

// Find returns the first record satisfying match, or nil. Iteration order is
// unspecified; callers rely on invariants that make the match unique.
func (r *Registry) Find(match func(*Process) bool) *Process {
	for _, p := range r.procs {
		if match(p) {
			return p
		}
	}
	return nil
}
