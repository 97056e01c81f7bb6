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
	"testing"

	"github.com/bSzala/reprozip/pkg/abi/linux"
	"github.com/bSzala/reprozip/pkg/tracer"
	"github.com/google/go-cmp/cmp"
)

// sockaddrInet4 is a struct sockaddr_in for 1.2.3.4:80.
var sockaddrInet4 = []byte{
	2, 0, // AF_INET
	0, 80, // port, network order
	1, 2, 3, 4, // address
	0, 0, 0, 0, 0, 0, 0, 0, // zero padding
}

func TestSocketcallConnect(t *testing.T) {
	tr, io, snk, hook := newTestTracer(t)
	if err := tr.AddRoot(300, "/"); err != nil {
		t.Fatal(err)
	}
	io.setMem(300, 0x3000, sockaddrInet4)
	// socketcall argument words: fd, addr pointer, addrlen.
	io.setPointers(300, 0x2000, 4, 7, 0x3000, 16)

	entry := tracer.Regs{Sysno: 102, Mode: linux.I386, Params: [6]uint64{3, 0x2000}}
	stop(t, tr, io, 300, entry)
	stop(t, tr, io, 300, entry)

	want := []string{"process connected to 1.2.3.4:80"}
	if diff := cmp.Diff(want, warnings(hook)); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
	if got := snk.ofKind("add_file_open"); len(got) != 0 {
		t.Errorf("socketcall emitted file events: %+v", got)
	}
}

func TestSocketcallUnknownOp(t *testing.T) {
	tr, io, _, hook := newTestTracer(t)
	if err := tr.AddRoot(300, "/"); err != nil {
		t.Fatal(err)
	}
	entry := tracer.Regs{Sysno: 102, Mode: linux.I386, Params: [6]uint64{4, 0x2000}}
	stop(t, tr, io, 300, entry)
	stop(t, tr, io, 300, entry)

	if w := warnings(hook); len(w) != 0 {
		t.Errorf("unexpected warnings: %q", w)
	}
}

func TestConnectDirect(t *testing.T) {
	tr, io, _, hook := newTestTracer(t)
	if err := tr.AddRoot(100, "/"); err != nil {
		t.Fatal(err)
	}
	io.setMem(100, 0x3000, sockaddrInet4)
	entry := tracer.Regs{Sysno: 42, Mode: linux.X8664, Params: [6]uint64{7, 0x3000, 16}}
	stop(t, tr, io, 100, entry)
	stop(t, tr, io, 100, entry)

	want := []string{"process connected to 1.2.3.4:80"}
	if diff := cmp.Diff(want, warnings(hook)); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestAcceptIndirectLength(t *testing.T) {
	tr, io, _, hook := newTestTracer(t)
	if err := tr.AddRoot(100, "/"); err != nil {
		t.Fatal(err)
	}
	io.setMem(100, 0x3000, sockaddrInet4)
	io.setMem(100, 0x4000, []byte{16, 0, 0, 0}) // *addrlen
	entry := tracer.Regs{Sysno: 43, Mode: linux.X8664, Params: [6]uint64{7, 0x3000, 0x4000}}
	stop(t, tr, io, 100, entry)
	exit := entry
	exit.Retvalue = 8
	stop(t, tr, io, 100, exit)

	want := []string{"process accepted a connection from 1.2.3.4:80"}
	if diff := cmp.Diff(want, warnings(hook)); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectShortAddrlen(t *testing.T) {
	tr, io, _, hook := newTestTracer(t)
	if err := tr.AddRoot(100, "/"); err != nil {
		t.Fatal(err)
	}
	entry := tracer.Regs{Sysno: 42, Mode: linux.X8664, Params: [6]uint64{7, 0x3000, 1}}
	stop(t, tr, io, 100, entry)
	stop(t, tr, io, 100, entry)

	if w := warnings(hook); len(w) != 0 {
		t.Errorf("unexpected warnings: %q", w)
	}
}

func TestConnectUnknownFamily(t *testing.T) {
	tr, io, _, hook := newTestTracer(t)
	if err := tr.AddRoot(100, "/"); err != nil {
		t.Fatal(err)
	}
	io.setMem(100, 0x3000, []byte{42, 0, 1, 2, 3, 4, 5, 6})
	entry := tracer.Regs{Sysno: 42, Mode: linux.X8664, Params: [6]uint64{7, 0x3000, 8}}
	stop(t, tr, io, 100, entry)
	stop(t, tr, io, 100, entry)

	want := []string{"process connected to unknown, family=42"}
	if diff := cmp.Diff(want, warnings(hook)); diff != "" {
		t.Errorf("warnings mismatch (-want +got):\n%s", diff)
	}
}
