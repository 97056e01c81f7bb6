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

// Package cmd implements the reprotrace subcommands.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bSzala/reprozip/pkg/ptrace"
	"github.com/bSzala/reprozip/pkg/sink/sqlite"
	"github.com/bSzala/reprozip/pkg/tracer"
	"github.com/bSzala/reprozip/reprotrace/config"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// Trace implements subcommands.Command for the "trace" command.
type Trace struct{}

// Name implements subcommands.Command.Name.
func (*Trace) Name() string { return "trace" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Trace) Synopsis() string {
	return "run a command and record its filesystem and process activity"
}

// Usage implements subcommands.Command.Usage.
func (*Trace) Usage() string {
	return `trace [flags] <command> [args...] - run command under the tracer
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Trace) SetFlags(f *flag.FlagSet) {
	config.RegisterFlags(f)
}

// Execute implements subcommands.Command.Execute.
func (*Trace) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	conf, err := config.NewFromFlags(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "trace: no command given")
		return subcommands.ExitUsageError
	}

	log := newLogger(conf)

	store, err := sqlite.Open(conf.Database)
	if err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Error(err)
		store.Close()
		return subcommands.ExitFailure
	}

	t := tracer.New(ptrace.Provider{}, store, log)
	code, err := ptrace.Run(t, f.Args(), wd)
	if err != nil {
		log.Error(err)
		store.Close()
		return subcommands.ExitFailure
	}
	if err := store.Close(); err != nil {
		log.Error(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitStatus(code)
}

func newLogger(conf *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if conf.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	if conf.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}
