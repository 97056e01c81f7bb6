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

// Binary reprotrace runs a command under ptrace and records the file and
// process activity of its whole process tree to a SQLite store. Network
// endpoints are logged as warnings, not stored.
package main

import "github.com/bSzala/reprozip/reprotrace/cli"

func main() {
	cli.Main()
}
