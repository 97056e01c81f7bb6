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

import "fmt"

// MemError reports a failed read from a tracee's address space. Handlers
// swallow it: the event for the partial read is dropped and a warning is
// logged, but the trace continues.
type MemError struct {
	TID  int
	Addr uint64
	Err  error
}

// Error implements error.
func (e *MemError) Error() string {
	return fmt.Sprintf("tid %d: read at %#x: %v", e.TID, e.Addr, e.Err)
}

// Unwrap returns the underlying cause.
func (e *MemError) Unwrap() error { return e.Err }

// SinkError reports a failed persistence call. It propagates out of the
// dispatch engine and aborts the trace.
type SinkError struct {
	TID int
	Op  string
	Err error
}

// Error implements error.
func (e *SinkError) Error() string {
	return fmt.Sprintf("tid %d: sink %s: %v", e.TID, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SinkError) Unwrap() error { return e.Err }

// InvariantError reports an inconsistency in the process registry. The trace
// is unsafe to continue once one is observed.
type InvariantError struct {
	TID int
	Msg string
}

// Error implements error.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("tid %d: %s", e.TID, e.Msg)
}
