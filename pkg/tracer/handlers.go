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
	"errors"

	"github.com/bSzala/reprozip/pkg/fspath"
	"github.com/bSzala/reprozip/pkg/sink"
	"golang.org/x/sys/unix"
)

// The file family all works the same way: at exit only, when the kernel
// accepted the call, resolve the path argument against the task's working
// directory and record the access.

// modeFromOpenFlags classifies open(2)-style flags as a read/write bitset.
func modeFromOpenFlags(flags uint64) sink.FileMode {
	switch flags & unix.O_ACCMODE {
	case unix.O_WRONLY:
		return sink.FileWrite
	case unix.O_RDWR:
		return sink.FileRead | sink.FileWrite
	default:
		return sink.FileRead
	}
}

// pathArg reads the string at params[i] and resolves it against the task's
// working directory.
func (t *Tracer) pathArg(p *Process, i int) (string, error) {
	raw, err := t.readString(p, p.Params[i])
	if err != nil {
		return "", err
	}
	return fspath.Resolve(p.WD, raw), nil
}

// swallowMem logs and absorbs tracee read failures; anything else propagates.
func (t *Tracer) swallowMem(p *Process, name string, err error) error {
	var me *MemError
	if errors.As(err, &me) {
		t.warnf(p.TID, "%s: cannot read tracee memory: %v", name, err)
		return nil
	}
	return err
}

// emitFileOpen forwards one access record to the sink.
func (t *Tracer) emitFileOpen(p *Process, path string, mode sink.FileMode, isDir bool) error {
	if err := t.sink.AddFileOpen(p.Identifier, path, mode, isDir); err != nil {
		return &SinkError{TID: p.TID, Op: "add_file_open", Err: err}
	}
	return nil
}

func sysOpen(t *Tracer, name string, p *Process, disc int) error {
	if p.Retvalue < 0 {
		return nil
	}
	path, err := t.pathArg(p, 0)
	if err != nil {
		return t.swallowMem(p, name, err)
	}
	return t.emitFileOpen(p, path, modeFromOpenFlags(p.Params[1]), false)
}

func sysCreat(t *Tracer, name string, p *Process, disc int) error {
	if p.Retvalue < 0 {
		return nil
	}
	path, err := t.pathArg(p, 0)
	if err != nil {
		return t.swallowMem(p, name, err)
	}
	// creat is open(path, O_CREAT|O_WRONLY|O_TRUNC, mode).
	return t.emitFileOpen(p, path, modeFromOpenFlags(unix.O_CREAT|unix.O_WRONLY|unix.O_TRUNC), false)
}

func sysStat(t *Tracer, name string, p *Process, disc int) error {
	if p.Retvalue < 0 {
		return nil
	}
	path, err := t.pathArg(p, 0)
	if err != nil {
		return t.swallowMem(p, name, err)
	}
	return t.emitFileOpen(p, path, sink.FileStat, false)
}

// sysReadlink records the metadata access against the link itself, not its
// target.
func sysReadlink(t *Tracer, name string, p *Process, disc int) error {
	return sysStat(t, name, p, disc)
}

func sysMkdir(t *Tracer, name string, p *Process, disc int) error {
	if p.Retvalue < 0 {
		return nil
	}
	path, err := t.pathArg(p, 0)
	if err != nil {
		return t.swallowMem(p, name, err)
	}
	return t.emitFileOpen(p, path, sink.FileWrite, true)
}

// sysSymlink records the link path (second argument); the first argument is
// the target string, which may not even exist.
func sysSymlink(t *Tracer, name string, p *Process, disc int) error {
	if p.Retvalue < 0 {
		return nil
	}
	raw, err := t.readString(p, p.Params[1])
	if err != nil {
		return t.swallowMem(p, name, err)
	}
	return t.emitFileOpen(p, fspath.Resolve(p.WD, raw), sink.FileWrite, true)
}

// sysChdir records the new working directory and, on success, replaces the
// task's recorded one.
func sysChdir(t *Tracer, name string, p *Process, disc int) error {
	if p.Retvalue < 0 {
		return nil
	}
	path, err := t.pathArg(p, 0)
	if err != nil {
		return t.swallowMem(p, name, err)
	}
	if err := t.emitFileOpen(p, path, sink.FileWDir, true); err != nil {
		return err
	}
	p.WD = path
	return nil
}
