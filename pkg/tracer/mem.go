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
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/bSzala/reprozip/pkg/abi/linux"
)

// Reads out of a tracee's address space go through the TraceeIO provider in
// small chunks. Every failure mode (unreadable address, short read, runaway
// string) surfaces as *MemError; no truncated data is ever returned.

const readChunk = 64

// maxArrayLen bounds argv/envp duplication.
const maxArrayLen = 4096

var errNullPointer = errors.New("null pointer")

// readBuf reads exactly len(buf) bytes at addr.
func (t *Tracer) readBuf(p *Process, addr uint64, buf []byte) error {
	if addr == 0 {
		return &MemError{TID: p.TID, Addr: addr, Err: errNullPointer}
	}
	done := 0
	for done < len(buf) {
		n, err := t.io.Read(p.TID, uintptr(addr)+uintptr(done), buf[done:])
		if err != nil || n == 0 {
			return &MemError{TID: p.TID, Addr: addr + uint64(done), Err: err}
		}
		done += n
	}
	return nil
}

// readString copies a NUL-terminated string out of the tracee, bounded by
// PATH_MAX.
func (t *Tracer) readString(p *Process, addr uint64) (string, error) {
	if addr == 0 {
		return "", &MemError{TID: p.TID, Addr: addr, Err: errNullPointer}
	}
	var out []byte
	buf := make([]byte, readChunk)
	for len(out) < linux.PathMax {
		n, err := t.io.Read(p.TID, uintptr(addr)+uintptr(len(out)), buf)
		if err != nil || n == 0 {
			return "", &MemError{TID: p.TID, Addr: addr + uint64(len(out)), Err: err}
		}
		if i := bytes.IndexByte(buf[:n], 0); i >= 0 {
			return string(append(out, buf[:i]...)), nil
		}
		out = append(out, buf[:n]...)
	}
	return "", &MemError{TID: p.TID, Addr: addr, Err: errors.New("unterminated string")}
}

// readWord reads one machine word at the tracee's pointer width.
func (t *Tracer) readWord(p *Process, addr uint64) (uint64, error) {
	width := p.Mode.PointerSize()
	buf := make([]byte, width)
	if err := t.readBuf(p, addr, buf); err != nil {
		return 0, err
	}
	if width == 4 {
		return uint64(binary.LittleEndian.Uint32(buf)), nil
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// readPointer reads a tracee pointer. Identical layout to a word; kept
// separate so call sites say what they mean.
func (t *Tracer) readPointer(p *Process, addr uint64) (uint64, error) {
	return t.readWord(p, addr)
}

// readStringArray duplicates a NULL-terminated array of string pointers
// (argv, envp) into local memory.
func (t *Tracer) readStringArray(p *Process, addr uint64) ([]string, error) {
	if addr == 0 {
		return nil, &MemError{TID: p.TID, Addr: addr, Err: errNullPointer}
	}
	width := uint64(p.Mode.PointerSize())
	var out []string
	for i := 0; i < maxArrayLen; i++ {
		ptr, err := t.readPointer(p, addr+uint64(i)*width)
		if err != nil {
			return nil, err
		}
		if ptr == 0 {
			return out, nil
		}
		s, err := t.readString(p, ptr)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return nil, &MemError{TID: p.TID, Addr: addr, Err: errors.New("unterminated array")}
}
