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

// Package fspath resolves path arguments observed in tracees against the
// tracee's recorded working directory. Resolution is purely lexical: the
// tracer never consults the host filesystem, so symlinks in intermediate
// components are not chased.
package fspath

import (
	"path"
	"strings"
)

// Resolve makes raw absolute with respect to wd. An already-absolute raw is
// returned unchanged. Otherwise the result is wd joined with raw, with "."
// and ".." segments collapsed and duplicate separators removed.
//
// wd is trusted to be absolute.
func Resolve(wd, raw string) string {
	if strings.HasPrefix(raw, "/") {
		return raw
	}
	return path.Clean(wd + "/" + raw)
}
