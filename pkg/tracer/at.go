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
	"github.com/bSzala/reprozip/pkg/abi/linux"
	"github.com/bSzala/reprozip/pkg/fspath"
	"github.com/bSzala/reprozip/pkg/sink"
)

// atFDCWD reports whether the raw descriptor argument is the
// current-working-directory sentinel under either pointer width.
func atFDCWD(arg uint64) bool {
	return int32(uint32(arg)) == linux.AtFDCWD
}

// sysAtAdapter maps an *at syscall onto its non-at handler when the
// descriptor is AT_FDCWD. The discriminator is the target syscall number in
// the same ABI. The target handler runs on a copy of the record whose
// parameter vector is shifted left by one; the record itself is never
// mutated.
func sysAtAdapter(t *Tracer, name string, p *Process, disc int) error {
	if !atFDCWD(p.Params[0]) {
		return sysUnhandledOther(t, name, p, disc)
	}
	shifted := *p
	shifted.Params = [ParamCount]uint64{}
	copy(shifted.Params[:], p.Params[1:])

	var err error
	if s := p.tbl.slot(disc); s != nil && s.Exit != nil {
		err = s.Exit(t, s.Name, &shifted, s.Disc)
	} else {
		t.warnf(p.TID, "%s: no target for syscall %d in %s table", name, disc, p.tbl.Name)
	}
	return err
}

// sysSymlinkAt is not routed through the adapter: the descriptor is the
// second argument and the link path the third.
func sysSymlinkAt(t *Tracer, name string, p *Process, disc int) error {
	if p.Retvalue < 0 {
		return nil
	}
	if !atFDCWD(p.Params[1]) {
		return sysUnhandledOther(t, name, p, disc)
	}
	raw, err := t.readString(p, p.Params[2])
	if err != nil {
		return t.swallowMem(p, name, err)
	}
	return t.emitFileOpen(p, fspath.Resolve(p.WD, raw), sink.FileWrite, true)
}
