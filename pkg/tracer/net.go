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
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Network endpoints are reported, not persisted: a trace replayed elsewhere
// cannot reproduce the peer, so the tracer only warns about them.

// maxSockaddrLen caps how much of an address buffer is read out of the
// tracee.
const maxSockaddrLen = 128

// socketcall sub-operations (32-bit only).
const (
	socketcallConnect = 3
	socketcallAccept  = 5
)

func sysConnect(t *Tracer, name string, p *Process, disc int) error {
	return t.reportEndpoint(p, "connect", p.Params[1], p.Params[2], false)
}

// sysAccept covers accept and accept4; their address-length argument is
// behind a pointer, written back by the kernel.
func sysAccept(t *Tracer, name string, p *Process, disc int) error {
	return t.reportEndpoint(p, "accept", p.Params[1], p.Params[2], true)
}

// sysSocketcall demuxes the 32-bit multiplexer: the first argument selects a
// sub-operation and the second points to its argument words.
func sysSocketcall(t *Tracer, name string, p *Process, disc int) error {
	op := p.Params[0]
	if op != socketcallConnect && op != socketcallAccept {
		return nil
	}
	width := uint64(p.Mode.PointerSize())
	args := p.Params[1]
	addr, err := t.readWord(p, args+width)
	if err != nil {
		return t.swallowMem(p, name, err)
	}
	alen, err := t.readWord(p, args+2*width)
	if err != nil {
		return t.swallowMem(p, name, err)
	}
	if op == socketcallConnect {
		return t.reportEndpoint(p, "connect", addr, alen, false)
	}
	return t.reportEndpoint(p, "accept", addr, alen, true)
}

// reportEndpoint decodes the sockaddr at addrPtr and warns about the peer.
// lenIndirect says the length argument is a pointer to a socklen_t rather
// than the length itself (accept-style).
func (t *Tracer) reportEndpoint(p *Process, verb string, addrPtr, lenArg uint64, lenIndirect bool) error {
	if p.Retvalue < 0 || addrPtr == 0 {
		return nil
	}
	addrLen := lenArg
	if lenIndirect {
		// socklen_t is 32 bits under every supported ABI.
		buf := make([]byte, 4)
		if err := t.readBuf(p, lenArg, buf); err != nil {
			return t.swallowMem(p, verb, err)
		}
		addrLen = uint64(binary.LittleEndian.Uint32(buf))
	}
	if addrLen < 2 {
		return nil
	}
	if addrLen > maxSockaddrLen {
		addrLen = maxSockaddrLen
	}
	buf := make([]byte, addrLen)
	if err := t.readBuf(p, addrPtr, buf); err != nil {
		return t.swallowMem(p, verb, err)
	}

	endpoint := formatSockaddr(buf)
	if verb == "connect" {
		t.warnf(p.TID, "process connected to %s", endpoint)
	} else {
		t.warnf(p.TID, "process accepted a connection from %s", endpoint)
	}
	return nil
}

func formatSockaddr(buf []byte) string {
	family := binary.LittleEndian.Uint16(buf)
	switch {
	case family == unix.AF_INET && len(buf) >= 8:
		port := binary.BigEndian.Uint16(buf[2:4])
		return fmt.Sprintf("%s:%d", net.IP(buf[4:8]), port)
	case family == unix.AF_INET6 && len(buf) >= 24:
		port := binary.BigEndian.Uint16(buf[2:4])
		return fmt.Sprintf("[%s]:%d", net.IP(buf[8:24]), port)
	default:
		return fmt.Sprintf("unknown, family=%d", family)
	}
}
