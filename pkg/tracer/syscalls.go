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
	"sort"
	"sync"
)

// HandlerFn is one side of a syscall handler. It receives the slot's display
// name, the task that stopped, and the slot's discriminator.
type HandlerFn func(t *Tracer, name string, p *Process, disc int) error

// Syscall is one slot of a syscall table: a display name, an optional handler
// per side, and a discriminator whose meaning belongs to the handler family
// (the *at adapter stores the target syscall number there; the fork family
// stores whether the clone flags must be inspected).
type Syscall struct {
	Name  string
	Enter HandlerFn
	Exit  HandlerFn
	Disc  int
}

func (s *Syscall) empty() bool {
	return s.Name == "" && s.Enter == nil && s.Exit == nil
}

type sysdef struct {
	nr   int
	sys  Syscall
}

// Helpers building table entries. They keep the per-ABI listings down to one
// line per syscall.

func enterExit(nr int, name string, enter, exit HandlerFn) sysdef {
	return sysdef{nr, Syscall{Name: name, Enter: enter, Exit: exit}}
}

func exitOnly(nr int, name string, exit HandlerFn) sysdef {
	return sysdef{nr, Syscall{Name: name, Exit: exit}}
}

func exitDisc(nr int, name string, exit HandlerFn, disc int) sysdef {
	return sysdef{nr, Syscall{Name: name, Exit: exit, Disc: disc}}
}

// Table is the per-ABI dispatch table: a sparse array indexed by syscall
// number. Tables are built once and shared by reference; they are immutable
// after construction.
type Table struct {
	// Name labels the ABI for logs and the syscalls listing.
	Name string

	// ExecveNr is the execve number under this ABI. The dispatch engine
	// consults it for the exec identity handoff.
	ExecveNr int

	slots []Syscall
}

// newTable builds a table from an unordered definition list. The array is
// sized one past the highest number used; unmentioned slots dispatch nothing.
func newTable(name string, execveNr int, defs []sysdef) *Table {
	max := 0
	for _, d := range defs {
		if d.nr > max {
			max = d.nr
		}
	}
	tb := &Table{
		Name:     name,
		ExecveNr: execveNr,
		slots:    make([]Syscall, max+1),
	}
	for _, d := range defs {
		if !tb.slots[d.nr].empty() {
			panic(fmt.Sprintf("%s: duplicate syscall %d", name, d.nr))
		}
		tb.slots[d.nr] = d.sys
	}
	return tb
}

// slot returns the entry for nr, or nil when nr is out of range or carries no
// handler.
func (tb *Table) slot(nr int) *Syscall {
	if nr < 0 || nr >= len(tb.slots) {
		return nil
	}
	if s := &tb.slots[nr]; !s.empty() {
		return s
	}
	return nil
}

// Handled returns "number name" for every populated slot, sorted by number.
func (tb *Table) Handled() []string {
	var out []string
	for nr := range tb.slots {
		if s := &tb.slots[nr]; !s.empty() {
			out = append(out, fmt.Sprintf("%4d %s", nr, s.Name))
		}
	}
	sort.Strings(out)
	return out
}

var (
	tablesOnce sync.Once
	tblI386    *Table
	tblAmd64   *Table
	tblX32     *Table
)

func buildTables() {
	tablesOnce.Do(func() {
		tblI386 = i386Table()
		tblAmd64 = amd64Table()
		tblX32 = x32Table()
	})
}

// Tables returns the three ABI tables, for listing tools.
func Tables() []*Table {
	buildTables()
	return []*Table{tblI386, tblAmd64, tblX32}
}
