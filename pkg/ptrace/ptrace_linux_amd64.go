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

//go:build linux && amd64

// Package ptrace is the Linux tracee I/O provider: it spawns the traced root,
// owns the wait loop, and gives the engine registers and memory of stopped
// tasks. amd64 hosts only; 32-bit tracees are recognised by their code
// segment selector.
package ptrace

import (
	"fmt"

	"github.com/bSzala/reprozip/pkg/abi/linux"
	"github.com/bSzala/reprozip/pkg/tracer"
	"golang.org/x/sys/unix"
)

// syscallEvent is the stop signal of a syscall-stop under
// PTRACE_O_TRACESYSGOOD.
const syscallEvent = unix.SIGTRAP | 0x80

// Code segment selectors distinguishing the tracee's execution mode.
const (
	userCS32 = 0x23
	userCS64 = 0x33
)

const traceOptions = unix.PTRACE_O_TRACESYSGOOD |
	unix.PTRACE_O_TRACECLONE |
	unix.PTRACE_O_TRACEFORK |
	unix.PTRACE_O_TRACEVFORK

// Provider implements tracer.TraceeIO over the host ptrace interface.
type Provider struct{}

// Attach implements tracer.TraceeIO.Attach.
func (Provider) Attach(tid int) error {
	if err := unix.PtraceAttach(tid); err != nil {
		return fmt.Errorf("attaching to %d: %w", tid, err)
	}
	return unix.PtraceSetOptions(tid, traceOptions)
}

// Resume implements tracer.TraceeIO.Resume: the task runs to its next
// syscall boundary.
func (Provider) Resume(tid int) error {
	err := unix.PtraceSyscall(tid, 0)
	if err == unix.ESRCH {
		// The task died before we got to resume it; its exit
		// notification is already queued.
		return nil
	}
	return err
}

// Read implements tracer.TraceeIO.Read.
func (Provider) Read(tid int, addr uintptr, buf []byte) (int, error) {
	return unix.PtracePeekData(tid, addr, buf)
}

// Registers implements tracer.TraceeIO.Registers.
func (Provider) Registers(tid int) (tracer.Regs, error) {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(tid, &regs); err != nil {
		return tracer.Regs{}, fmt.Errorf("reading registers of %d: %w", tid, err)
	}
	r := tracer.Regs{Sysno: int(int64(regs.Orig_rax))}
	if regs.Cs == userCS32 {
		r.Mode = linux.I386
		// i386 argument registers, as they appear in the 64-bit
		// register file.
		r.Params = [tracer.ParamCount]uint64{regs.Rbx, regs.Rcx, regs.Rdx, regs.Rsi, regs.Rdi, regs.Rbp}
		// eax is zero-extended by the kernel; restore the sign.
		r.Retvalue = int64(int32(uint32(regs.Rax)))
	} else {
		r.Mode = linux.X8664
		r.Params = [tracer.ParamCount]uint64{regs.Rdi, regs.Rsi, regs.Rdx, regs.R10, regs.R8, regs.R9}
		r.Retvalue = int64(regs.Rax)
	}
	return r, nil
}
