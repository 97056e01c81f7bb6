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

// execve is the one syscall handled on both sides. The entry side runs
// before the kernel tears down the old image, so the binary path, argv and
// envp must be copied out of the tracee there; the exit side reports the
// exec, possibly on a different task than the one that entered the call.

// execScratch is the per-call state stashed on the calling task between
// execve entry and exit.
type execScratch struct {
	binary string
	argv   []string
	envp   []string

	// tbl is the table that was in effect at entry. After an ABI change
	// across the exec, the exit must still be routed through it.
	tbl *Table
}

func enterExecve(t *Tracer, name string, p *Process, disc int) error {
	binary, err := t.pathArg(p, 0)
	if err != nil {
		return t.swallowMem(p, name, err)
	}
	argv, err := t.readStringArray(p, p.Params[1])
	if err != nil {
		return t.swallowMem(p, name, err)
	}
	envp, err := t.readStringArray(p, p.Params[2])
	if err != nil {
		return t.swallowMem(p, name, err)
	}
	t.debugf(p.TID, "execve entry: %q", binary)
	p.Scratch = &execScratch{binary: binary, argv: argv, envp: envp, tbl: p.tbl}
	return nil
}

// scratchHolder returns the unique task in tgid that is mid-execve with
// scratch attached, or nil. At most one such task exists at a time; two is
// the concurrent-execve condition the dispatch engine refuses.
func (t *Tracer) scratchHolder(tgid int) *Process {
	return t.registry.Find(func(q *Process) bool {
		return q.TGID == tgid && q.Status == StatusAttached && q.InSyscall &&
			q.Scratch != nil && q.CurrentSyscall == q.Scratch.tbl.ExecveNr
	})
}

func exitExecve(t *Tracer, name string, p *Process, disc int) error {
	// A successful execve by a non-leader thread re-identifies the caller:
	// the stop arrives on the thread-group leader, and the task that
	// stashed scratch at entry is gone. Find it.
	originator := p
	if p.Scratch == nil {
		originator = t.scratchHolder(p.TGID)
		if originator == nil || originator == p {
			t.criticalf(p.TID, "execve exit with no originator in tgid %d", p.TGID)
			return &InvariantError{TID: p.TID, Msg: "execve exit with no originator"}
		}
	}
	sc := originator.Scratch
	originator.Scratch = nil

	if originator != p {
		// The caller's thread id vanished inside the kernel; report it
		// as a clean exit and drop the record.
		if err := t.sink.AddExit(originator.Identifier, 0); err != nil {
			return &SinkError{TID: p.TID, Op: "add_exit", Err: err}
		}
		t.registry.Remove(originator.TID)
	}

	if p.Retvalue < 0 {
		t.debugf(p.TID, "execve failed: %d", p.Retvalue)
		return nil
	}

	if err := t.sink.AddExec(p.Identifier, sc.binary, sc.argv, sc.envp, p.WD); err != nil {
		return &SinkError{TID: p.TID, Op: "add_exec", Err: err}
	}
	if err := t.sink.IngestBinaryMetadata(p.Identifier, p.TID, sc.binary); err != nil {
		return &SinkError{TID: p.TID, Op: "ingest_binary_metadata", Err: err}
	}
	t.debugf(p.TID, "exec %q", sc.binary)
	return nil
}
