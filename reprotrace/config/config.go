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

// Package config holds the tracer's user-facing configuration: flags, with
// an optional TOML file supplying defaults.
package config

import (
	"flag"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the effective configuration of a trace run.
type Config struct {
	// Database is the path of the SQLite trace store.
	Database string `toml:"database"`

	// Debug enables debug logging.
	Debug bool `toml:"debug"`

	// LogFormat is "text" or "json".
	LogFormat string `toml:"log-format"`
}

func defaultConfig() *Config {
	return &Config{
		Database:  "trace.sqlite3",
		LogFormat: "text",
	}
}

// RegisterFlags registers the trace flags on f.
func RegisterFlags(f *flag.FlagSet) {
	f.String("config", "", "optional TOML file providing defaults for these flags.")
	f.String("database", "trace.sqlite3", "path of the SQLite trace store.")
	f.Bool("debug", false, "enable debug logging.")
	f.String("log-format", "text", "log format: text (default) or json.")
}

// NewFromFlags builds a Config: defaults, overlaid by the --config file if
// given, overlaid by flags set on the command line.
func NewFromFlags(f *flag.FlagSet) (*Config, error) {
	c := defaultConfig()
	if file := f.Lookup("config").Value.String(); file != "" {
		if _, err := toml.DecodeFile(file, c); err != nil {
			return nil, fmt.Errorf("loading %s: %w", file, err)
		}
	}
	set := make(map[string]bool)
	f.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	if set["database"] {
		c.Database = f.Lookup("database").Value.String()
	}
	if set["debug"] {
		c.Debug = f.Lookup("debug").Value.String() == "true"
	}
	if set["log-format"] {
		c.LogFormat = f.Lookup("log-format").Value.String()
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	if c.Database == "" {
		return nil, fmt.Errorf("database path must not be empty")
	}
	return c, nil
}
