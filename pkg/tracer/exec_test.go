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

package tracer_test

import (
	"errors"
	"testing"

	"github.com/bSzala/reprozip/pkg/abi/linux"
	"github.com/bSzala/reprozip/pkg/tracer"
	"github.com/google/go-cmp/cmp"
)

// setupExecveMem lays out binary/argv/envp for an execve at the given
// pointer width and returns the three argument registers.
func setupExecveMem(io *fakeIO, tid, width int) [6]uint64 {
	io.setString(tid, 0x1000, "/bin/prog")
	io.setString(tid, 0x2100, "prog")
	io.setString(tid, 0x2200, "-v")
	io.setPointers(tid, 0x2000, width, 0x2100, 0x2200)
	io.setString(tid, 0x3100, "PATH=/bin")
	io.setPointers(tid, 0x3000, width, 0x3100)
	return [6]uint64{0x1000, 0x2000, 0x3000}
}

func TestExecveSameTask(t *testing.T) {
	tr, io, snk, _ := newTestTracer(t)
	if err := tr.AddRoot(100, "/w"); err != nil {
		t.Fatal(err)
	}
	params := setupExecveMem(io, 100, 8)

	entry := tracer.Regs{Sysno: 59, Mode: linux.X8664, Params: params}
	stop(t, tr, io, 100, entry)
	if tr.Registry().Get(100).Scratch == nil {
		t.Fatal("no scratch attached at execve entry")
	}
	exit := entry
	stop(t, tr, io, 100, exit)

	wantExec := []sinkEvent{{
		Kind: "add_exec", ID: 1, Binary: "/bin/prog",
		Argv: []string{"prog", "-v"}, Envp: []string{"PATH=/bin"}, WD: "/w",
	}}
	if diff := cmp.Diff(wantExec, snk.ofKind("add_exec")); diff != "" {
		t.Errorf("exec events mismatch (-want +got):\n%s", diff)
	}
	if got := snk.ofKind("ingest_binary_metadata"); len(got) != 1 || got[0].Binary != "/bin/prog" {
		t.Errorf("ingest events = %+v, want one for /bin/prog", got)
	}
	if got := snk.ofKind("add_exit"); len(got) != 0 {
		t.Errorf("unexpected exit events: %+v", got)
	}
	p := tr.Registry().Get(100)
	if p.Scratch != nil || p.InSyscall {
		t.Errorf("task not cleaned up after exec: scratch=%v in_syscall=%v", p.Scratch, p.InSyscall)
	}
}

func TestExecveFailed(t *testing.T) {
	tr, io, snk, _ := newTestTracer(t)
	if err := tr.AddRoot(100, "/w"); err != nil {
		t.Fatal(err)
	}
	params := setupExecveMem(io, 100, 8)

	entry := tracer.Regs{Sysno: 59, Mode: linux.X8664, Params: params}
	stop(t, tr, io, 100, entry)
	exit := entry
	exit.Retvalue = -2
	stop(t, tr, io, 100, exit)

	if got := snk.ofKind("add_exec"); len(got) != 0 {
		t.Errorf("failed exec still emitted: %+v", got)
	}
	if p := tr.Registry().Get(100); p.Scratch != nil {
		t.Error("scratch not released after failed exec")
	}
}

// A non-leader thread's successful execve re-identifies the caller: the exit
// stop lands on the leader, the calling thread's tid vanishes.
func TestThreadLeaderExecve(t *testing.T) {
	tr, io, snk, _ := newTestTracer(t)
	if err := tr.AddRoot(400, "/w"); err != nil {
		t.Fatal(err)
	}

	// Leader clones a thread 401.
	clone := tracer.Regs{Sysno: 56, Mode: linux.X8664, Params: [6]uint64{linux.CloneThread}}
	stop(t, tr, io, 400, clone)
	cloneExit := clone
	cloneExit.Retvalue = 401
	stop(t, tr, io, 400, cloneExit)
	stop(t, tr, io, 401, tracer.Regs{}) // first stop: attach and resume

	// 401 enters execve.
	params := setupExecveMem(io, 401, 8)
	stop(t, tr, io, 401, tracer.Regs{Sysno: 59, Mode: linux.X8664, Params: params})

	// The exit arrives on the leader.
	stop(t, tr, io, 400, tracer.Regs{Sysno: 59, Mode: linux.X8664})

	if tr.Registry().Get(401) != nil {
		t.Error("caller thread still registered after exec")
	}
	p := tr.Registry().Get(400)
	if p == nil || p.Status != tracer.StatusAttached {
		t.Fatalf("leader record = %+v, want attached", p)
	}
	wantExits := []sinkEvent{{Kind: "add_exit", ID: 2, Status: 0}}
	if diff := cmp.Diff(wantExits, snk.ofKind("add_exit")); diff != "" {
		t.Errorf("exit events mismatch (-want +got):\n%s", diff)
	}
	execs := snk.ofKind("add_exec")
	if len(execs) != 1 || execs[0].ID != 1 || execs[0].Binary != "/bin/prog" {
		t.Errorf("exec events = %+v, want one on the leader's identifier", execs)
	}
}

// An ABI switch across the exec: the call enters under i386 numbering and
// exits reported as the 64-bit execve.
func TestExecveABITransition(t *testing.T) {
	tr, io, snk, _ := newTestTracer(t)
	if err := tr.AddRoot(300, "/w"); err != nil {
		t.Fatal(err)
	}
	params := setupExecveMem(io, 300, 4)

	stop(t, tr, io, 300, tracer.Regs{Sysno: 11, Mode: linux.I386, Params: params})
	stop(t, tr, io, 300, tracer.Regs{Sysno: 59, Mode: linux.X8664})

	execs := snk.ofKind("add_exec")
	if len(execs) != 1 || execs[0].Binary != "/bin/prog" {
		t.Fatalf("exec events = %+v, want one for /bin/prog", execs)
	}
	p := tr.Registry().Get(300)
	if p.Mode != linux.X8664 {
		t.Errorf("mode after exec = %v, want x86_64", p.Mode)
	}
	if p.InSyscall {
		t.Error("task still marked in-syscall after exec exit")
	}
}

// Two sibling threads execve-ing at once is undefined behavior the tracer
// refuses to guess about.
func TestConcurrentExecveRefused(t *testing.T) {
	tr, io, _, _ := newTestTracer(t)
	if err := tr.AddRoot(400, "/w"); err != nil {
		t.Fatal(err)
	}
	for _, tid := range []int{401, 402} {
		clone := tracer.Regs{Sysno: 56, Mode: linux.X8664, Params: [6]uint64{linux.CloneThread}}
		stop(t, tr, io, 400, clone)
		cloneExit := clone
		cloneExit.Retvalue = int64(tid)
		stop(t, tr, io, 400, cloneExit)
		stop(t, tr, io, tid, tracer.Regs{})
	}

	params := setupExecveMem(io, 401, 8)
	stop(t, tr, io, 401, tracer.Regs{Sysno: 59, Mode: linux.X8664, Params: params})

	// 402's execve entry while 401 is mid-execve.
	io.setRegs(402, tracer.Regs{Sysno: 59, Mode: linux.X8664})
	err := tr.HandleStop(402)
	var ie *tracer.InvariantError
	if !errors.As(err, &ie) {
		t.Fatalf("HandleStop = %v, want InvariantError", err)
	}
}
