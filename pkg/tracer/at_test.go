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
	"strings"
	"testing"

	"github.com/bSzala/reprozip/pkg/abi/linux"
	"github.com/bSzala/reprozip/pkg/sink"
	"github.com/bSzala/reprozip/pkg/tracer"
	"github.com/google/go-cmp/cmp"
)

// atFDCWD is the AT_FDCWD sentinel as it appears in a 64-bit register.
const atFDCWD = ^uint64(99)

func TestOpenatCwdSentinel(t *testing.T) {
	tr, io, snk, _ := newTestTracer(t)
	if err := tr.AddRoot(100, "/home/u"); err != nil {
		t.Fatal(err)
	}
	io.setString(100, 0x1000, "cfg")

	entry := tracer.Regs{Sysno: 257, Mode: linux.X8664, Params: [6]uint64{atFDCWD, 0x1000, 0, 0}}
	stop(t, tr, io, 100, entry)
	exit := entry
	exit.Retvalue = 4
	stop(t, tr, io, 100, exit)

	want := []sinkEvent{{Kind: "add_file_open", ID: 1, Path: "/home/u/cfg", Mode: sink.FileRead}}
	if diff := cmp.Diff(want, snk.ofKind("add_file_open")); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	// The record's own params are copy-in/copy-out.
	if got := tr.Registry().Get(100); got.Params[0] != atFDCWD || got.Params[1] != 0x1000 {
		t.Errorf("params mutated by adapter: %#x", got.Params)
	}
}

// The adapter with the CWD sentinel must be observationally equivalent to
// the plain call.
func TestOpenatEquivalence(t *testing.T) {
	run := func(sysno int, params [6]uint64) []sinkEvent {
		tr, io, snk, _ := newTestTracer(t)
		if err := tr.AddRoot(100, "/home/u"); err != nil {
			t.Fatal(err)
		}
		io.setString(100, 0x1000, "data/file")
		entry := tracer.Regs{Sysno: sysno, Mode: linux.X8664, Params: params}
		stop(t, tr, io, 100, entry)
		exit := entry
		exit.Retvalue = 3
		stop(t, tr, io, 100, exit)
		return snk.ofKind("add_file_open")
	}

	plain := run(2, [6]uint64{0x1000, 1})
	at := run(257, [6]uint64{atFDCWD, 0x1000, 1})
	if diff := cmp.Diff(plain, at); diff != "" {
		t.Errorf("openat(AT_FDCWD) differs from open (-open +openat):\n%s", diff)
	}
}

func TestOpenatOtherDescriptor(t *testing.T) {
	tr, io, snk, hook := newTestTracer(t)
	if err := tr.AddRoot(100, "/"); err != nil {
		t.Fatal(err)
	}
	entry := tracer.Regs{Sysno: 257, Mode: linux.X8664, Params: [6]uint64{5, 0x1000, 0}}
	stop(t, tr, io, 100, entry)
	exit := entry
	exit.Retvalue = 4
	stop(t, tr, io, 100, exit)

	if got := snk.ofKind("add_file_open"); len(got) != 0 {
		t.Errorf("descriptor-relative openat emitted events: %+v", got)
	}
	w := warnings(hook)
	if len(w) != 1 || !strings.Contains(w[0], "openat") {
		t.Errorf("warnings = %q, want one naming openat", w)
	}
}

func TestUnlinkatThroughAdapter(t *testing.T) {
	tr, io, _, hook := newTestTracer(t)
	if err := tr.AddRoot(100, "/tmp"); err != nil {
		t.Fatal(err)
	}
	io.setString(100, 0x1000, "junk")
	entry := tracer.Regs{Sysno: 263, Mode: linux.X8664, Params: [6]uint64{atFDCWD, 0x1000, 0}}
	stop(t, tr, io, 100, entry)
	stop(t, tr, io, 100, entry)

	w := warnings(hook)
	if len(w) != 1 || !strings.Contains(w[0], "unlink") || !strings.Contains(w[0], "/tmp/junk") {
		t.Errorf("warnings = %q, want unlink on /tmp/junk", w)
	}
}

func TestSymlinkatCwd(t *testing.T) {
	tr, io, snk, _ := newTestTracer(t)
	if err := tr.AddRoot(100, "/srv"); err != nil {
		t.Fatal(err)
	}
	io.setString(100, 0x1000, "/srv/out")
	io.setString(100, 0x2000, "latest")
	entry := tracer.Regs{Sysno: 266, Mode: linux.X8664, Params: [6]uint64{0x1000, atFDCWD, 0x2000}}
	stop(t, tr, io, 100, entry)
	stop(t, tr, io, 100, entry)

	want := []sinkEvent{{Kind: "add_file_open", ID: 1, Path: "/srv/latest", Mode: sink.FileWrite, Dir: true}}
	if diff := cmp.Diff(want, snk.ofKind("add_file_open")); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestFstatatCwd32(t *testing.T) {
	tr, io, snk, _ := newTestTracer(t)
	if err := tr.AddRoot(100, "/home/u"); err != nil {
		t.Fatal(err)
	}
	io.setString(100, 0x1000, "notes.txt")
	entry := tracer.Regs{Sysno: 300, Mode: linux.I386, Params: [6]uint64{0xFFFFFF9C, 0x1000, 0x4000}}
	stop(t, tr, io, 100, entry)
	stop(t, tr, io, 100, entry)

	want := []sinkEvent{{Kind: "add_file_open", ID: 1, Path: "/home/u/notes.txt", Mode: sink.FileStat}}
	if diff := cmp.Diff(want, snk.ofKind("add_file_open")); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}
