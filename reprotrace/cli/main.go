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

// Package cli is the main entrypoint for reprotrace.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bSzala/reprozip/reprotrace/cmd"
	"github.com/bSzala/reprozip/reprotrace/version"
	"github.com/google/subcommands"
)

const versionFlagName = "version"

// Main is the main entrypoint.
func Main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(cmd.Trace), "")

	const helperGroup = "helpers"
	subcommands.Register(new(cmd.Syscalls), helperGroup)

	if flag.Lookup(versionFlagName) == nil {
		flag.Bool(versionFlagName, false, "show version and exit.")
	}

	// All subcommands must be registered before flag parsing.
	flag.Parse()

	if flag.Lookup(versionFlagName).Value.String() == "true" {
		fmt.Fprintf(os.Stdout, "reprotrace version %s\n", version.Version())
		os.Exit(0)
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}
