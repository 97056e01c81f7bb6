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

// Package tracer is the syscall dispatch and interpretation engine. It is
// driven by syscall-boundary stop events for a tree of traced tasks, decodes
// each call against a per-ABI table, and emits file, process and exec events
// to a sink. Execution is single-threaded: stops are served one at a time,
// which is what lets the registry go unlocked.
package tracer

import (
	"fmt"

	"github.com/bSzala/reprozip/pkg/abi/linux"
	"github.com/bSzala/reprozip/pkg/sink"
	"github.com/sirupsen/logrus"
)

// Regs is the register snapshot the provider reports at a stop.
type Regs struct {
	// Params are the six raw syscall arguments.
	Params [ParamCount]uint64

	// Retvalue is the syscall return register. Meaningful at exit stops.
	Retvalue int64

	// Sysno is the raw syscall number, x32 marker bit included.
	Sysno int

	// Mode is the ABI the task is executing under at this stop.
	Mode linux.Mode
}

// TraceeIO provides the ptrace-level primitives the engine consumes.
type TraceeIO interface {
	// Attach pins tid.
	Attach(tid int) error

	// Resume lets tid run to its next syscall boundary.
	Resume(tid int) error

	// Read copies tracee memory at addr into buf, returning how many
	// bytes were read. A short read is not an error.
	Read(tid int, addr uintptr, buf []byte) (int, error)

	// Registers snapshots the task's registers.
	Registers(tid int) (Regs, error)
}

// Tracer drives the trace: it owns the registry and the syscall tables and
// turns stop events into sink events.
type Tracer struct {
	io       TraceeIO
	sink     sink.Sink
	log      *logrus.Logger
	registry *Registry

	i386  *Table
	amd64 *Table
	x32   *Table
}

// New returns a tracer writing to snk. The syscall tables are built on first
// use and shared across tracers.
func New(io TraceeIO, snk sink.Sink, log *logrus.Logger) *Tracer {
	buildTables()
	return &Tracer{
		io:       io,
		sink:     snk,
		log:      log,
		registry: NewRegistry(),
		i386:     tblI386,
		amd64:    tblAmd64,
		x32:      tblX32,
	}
}

// Registry exposes the task set, for the event loop and for tests.
func (t *Tracer) Registry() *Registry { return t.registry }

// Attached reports whether tid is a known, attached task.
func (t *Tracer) Attached(tid int) bool {
	p := t.registry.Get(tid)
	return p != nil && p.Status == StatusAttached
}

// AddRoot registers the root of the traced tree. The sink sees it as a
// process with no parent.
func (t *Tracer) AddRoot(tid int, wd string) error {
	if t.registry.Get(tid) != nil {
		return &InvariantError{TID: tid, Msg: "root tid already registered"}
	}
	id, err := t.sink.AddProcess(-1, wd)
	if err != nil {
		return &SinkError{TID: tid, Op: "add_process", Err: err}
	}
	t.registry.Add(&Process{
		TID:            tid,
		TGID:           tid,
		Identifier:     id,
		Status:         StatusAttached,
		WD:             wd,
		CurrentSyscall: -1,
	})
	return nil
}

// TaskExit removes tid from the registry and reports its exit status. Safe
// to call for tids the tracer never attached.
func (t *Tracer) TaskExit(tid, status int) error {
	p := t.registry.Get(tid)
	if p == nil {
		return nil
	}
	t.registry.Remove(tid)
	if p.Status != StatusAttached {
		return nil
	}
	t.debugf(tid, "task exited with status %d", status)
	if err := t.sink.AddExit(p.Identifier, status); err != nil {
		return &SinkError{TID: tid, Op: "add_exit", Err: err}
	}
	return nil
}

// HandleStop serves one syscall-boundary stop for tid: select the ABI table,
// run the entry- or exit-side handler, toggle the in-syscall flag and resume
// the task. A task seen before its creator's fork returned is parked as
// UNKNOWN and not resumed; sysFork attaches it later.
func (t *Tracer) HandleStop(tid int) error {
	p := t.registry.Get(tid)
	if p == nil {
		t.debugf(tid, "stopped before its creator returned")
		t.registry.Add(&Process{TID: tid, Status: StatusUnknown, CurrentSyscall: -1})
		return nil
	}
	switch p.Status {
	case StatusAllocated:
		p.Status = StatusAttached
		return t.resume(tid)
	case StatusUnknown:
		// Still waiting for the creator; keep it suspended.
		return nil
	}

	regs, err := t.io.Registers(tid)
	if err != nil {
		return fmt.Errorf("reading registers of %d: %w", tid, err)
	}

	sysno := regs.Sysno
	isX32 := false
	if regs.Mode == linux.X8664 && sysno&linux.X32SyscallBit != 0 {
		sysno &^= linux.X32SyscallBit
		isX32 = true
	}

	// Mode is refreshed on every stop: execve may have switched the ABI
	// since the entry record was made.
	p.Mode = regs.Mode
	if !p.InSyscall {
		p.CurrentSyscall = sysno
		p.Params = regs.Params
	} else {
		p.Retvalue = regs.Retvalue
	}

	if sysno < 0 || sysno >= linux.MaxSyscall {
		t.warnf(tid, "ignoring out-of-range syscall %d", sysno)
	} else {
		tbl := t.amd64
		switch {
		case regs.Mode == linux.I386:
			tbl = t.i386
		case isX32:
			tbl = t.x32
		}
		p.tbl = tbl

		// execve rewrites thread identity mid-call and may change the
		// ABI across the exec, so its exit cannot be routed by this
		// task's own entry record: route by whoever holds the scratch.
		if holder := t.scratchHolder(p.TGID); holder != nil &&
			(sysno == tbl.ExecveNr || sysno == holder.Scratch.tbl.ExecveNr) {
			// The stop is the call's exit even when it lands on a
			// task whose own record says otherwise.
			p.Retvalue = regs.Retvalue
			return t.finishExec(p, holder)
		}

		if s := tbl.slot(sysno); s != nil {
			fn := s.Enter
			if p.InSyscall {
				fn = s.Exit
			}
			if fn != nil {
				if err := fn(t, s.Name, p, s.Disc); err != nil {
					return err
				}
			}
		}
	}

	p.InSyscall = !p.InSyscall
	if !p.InSyscall {
		p.CurrentSyscall = -1
		p.Scratch = nil
	}
	return t.resume(tid)
}

// finishExec routes a stop to the execve exit handler of the ABI the call was
// entered under. The stop may be carried by the originator itself or, after a
// non-leader-thread exec, by the thread-group leader.
func (t *Tracer) finishExec(p, holder *Process) error {
	if holder != p && !p.InSyscall && p.TID != p.TGID {
		// A non-leader cannot be the surviving task of somebody else's
		// exec; two threads are execve-ing at once.
		t.criticalf(p.TID, "concurrent execve in thread group %d", p.TGID)
		return &InvariantError{TID: p.TID, Msg: "concurrent execve in thread group"}
	}
	entryTbl := holder.Scratch.tbl
	s := entryTbl.slot(entryTbl.ExecveNr)
	if err := s.Exit(t, s.Name, p, s.Disc); err != nil {
		return err
	}
	// Whatever the surviving task's entry record said, it is out of the
	// call now.
	p.InSyscall = false
	p.CurrentSyscall = -1
	p.Scratch = nil
	return t.resume(p.TID)
}

func (t *Tracer) resume(tid int) error {
	if err := t.io.Resume(tid); err != nil {
		return fmt.Errorf("resuming %d: %w", tid, err)
	}
	return nil
}

func (t *Tracer) debugf(tid int, format string, args ...any) {
	t.log.WithField("tid", tid).Debugf(format, args...)
}

func (t *Tracer) warnf(tid int, format string, args ...any) {
	t.log.WithField("tid", tid).Warnf(format, args...)
}

func (t *Tracer) criticalf(tid int, format string, args ...any) {
	t.log.WithField("tid", tid).Errorf(format, args...)
}
