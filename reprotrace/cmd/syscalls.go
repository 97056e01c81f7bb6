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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bSzala/reprozip/pkg/tracer"
	"github.com/google/subcommands"
)

// Syscalls implements subcommands.Command for the "syscalls" command.
type Syscalls struct{}

// Name implements subcommands.Command.Name.
func (*Syscalls) Name() string { return "syscalls" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Syscalls) Synopsis() string {
	return "print the syscalls the tracer handles, per ABI"
}

// Usage implements subcommands.Command.Usage.
func (*Syscalls) Usage() string {
	return `syscalls - print the handled syscall tables
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Syscalls) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Syscalls) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	for _, tb := range tracer.Tables() {
		fmt.Fprintf(os.Stdout, "%s:\n", tb.Name)
		for _, line := range tb.Handled() {
			fmt.Fprintf(os.Stdout, "  %s\n", line)
		}
	}
	return subcommands.ExitSuccess
}
