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

package ptrace

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"github.com/bSzala/reprozip/pkg/tracer"
	"golang.org/x/sys/unix"
)

// Run spawns argv as the traced root in wd and serves stop events to t until
// every traced task is gone. Returns the root's exit code.
//
// Ptrace ties a tracee to the tracing OS thread, so the whole loop runs on
// one locked thread.
func Run(t *tracer.Tracer, argv []string, wd string) (int, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = wd
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}
	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("starting %q: %w", argv[0], err)
	}
	root := cmd.Process.Pid

	// The child stops with SIGTRAP at its initial execve.
	var ws unix.WaitStatus
	if _, err := unix.Wait4(root, &ws, 0, nil); err != nil {
		return 1, fmt.Errorf("waiting for initial stop of %d: %w", root, err)
	}
	if err := unix.PtraceSetOptions(root, traceOptions); err != nil {
		return 1, fmt.Errorf("setting trace options on %d: %w", root, err)
	}
	if err := t.AddRoot(root, wd); err != nil {
		return 1, err
	}
	if err := (Provider{}).Resume(root); err != nil {
		return 1, err
	}

	rootCode := 0
	for t.Registry().Size() > 0 {
		wpid, err := unix.Wait4(-1, &ws, unix.WALL, nil)
		if err == unix.EINTR {
			continue
		}
		if err == unix.ECHILD {
			break
		}
		if err != nil {
			return 1, fmt.Errorf("wait: %w", err)
		}

		switch {
		case ws.Exited():
			if err := t.TaskExit(wpid, ws.ExitStatus()); err != nil {
				return 1, err
			}
			if wpid == root {
				rootCode = ws.ExitStatus()
			}

		case ws.Signaled():
			status := 128 + int(ws.Signal())
			if err := t.TaskExit(wpid, status); err != nil {
				return 1, err
			}
			if wpid == root {
				rootCode = status
			}

		case ws.Stopped():
			sig := ws.StopSignal()
			switch {
			case sig == syscallEvent:
				if err := t.HandleStop(wpid); err != nil {
					return 1, err
				}
			case ws.TrapCause() == unix.PTRACE_EVENT_CLONE,
				ws.TrapCause() == unix.PTRACE_EVENT_FORK,
				ws.TrapCause() == unix.PTRACE_EVENT_VFORK:
				// The new task auto-attaches (options are
				// inherited) and stops on its own; only the
				// parent needs resuming here.
				if err := (Provider{}).Resume(wpid); err != nil {
					return 1, err
				}
			case sig == unix.SIGSTOP && !t.Attached(wpid):
				// First stop of a new task. HandleStop either
				// parks it until its creator returns, or
				// attaches and resumes it.
				if err := t.HandleStop(wpid); err != nil {
					return 1, err
				}
			default:
				// Deliver the signal and keep going. SIGTRAP
				// stops are ptrace's own and are not forwarded.
				fwd := int(sig)
				if sig == unix.SIGTRAP {
					fwd = 0
				}
				if err := unix.PtraceSyscall(wpid, fwd); err != nil && err != unix.ESRCH {
					return 1, fmt.Errorf("forwarding signal to %d: %w", wpid, err)
				}
			}
		}
	}
	return rootCode, nil
}
