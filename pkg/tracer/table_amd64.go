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

const (
	execveNrAmd64 = 59
	// The x32 sub-ABI reuses the native numbering except for the calls
	// the kernel gives compat entry points; execve is the only one the
	// tracer handles.
	execveNrX32 = 520
)

// amd64Defs lists the 64-bit syscalls. x32 shares the listing with execve
// renumbered, so the number is a parameter.
func amd64Defs(execveNr int) []sysdef {
	return []sysdef{
		exitOnly(2, "open", sysOpen),
		exitOnly(85, "creat", sysCreat),
		exitOnly(21, "access", sysStat),
		exitOnly(4, "stat", sysStat),
		exitOnly(6, "lstat", sysStat),
		exitOnly(89, "readlink", sysReadlink),
		exitOnly(83, "mkdir", sysMkdir),
		exitOnly(88, "symlink", sysSymlink),
		exitOnly(80, "chdir", sysChdir),
		enterExit(execveNr, "execve", enterExecve, exitExecve),
		exitOnly(57, "fork", sysFork),
		exitOnly(58, "vfork", sysFork),
		exitDisc(56, "clone", sysFork, discCloneFlags),
		exitOnly(42, "connect", sysConnect),
		exitOnly(43, "accept", sysAccept),
		exitOnly(288, "accept4", sysAccept),

		exitDisc(257, "openat", sysAtAdapter, 2),
		exitDisc(258, "mkdirat", sysAtAdapter, 83),
		exitDisc(262, "newfstatat", sysAtAdapter, 4),
		exitDisc(263, "unlinkat", sysAtAdapter, 87),
		exitDisc(267, "readlinkat", sysAtAdapter, 89),
		exitDisc(269, "faccessat", sysAtAdapter, 21),
		exitOnly(266, "symlinkat", sysSymlinkAt),

		// Observed but not interpreted.
		exitOnly(76, "truncate", sysUnhandledPath1),
		exitOnly(82, "rename", sysUnhandledPath1),
		exitOnly(84, "rmdir", sysUnhandledPath1),
		exitOnly(87, "unlink", sysUnhandledPath1),
		exitOnly(90, "chmod", sysUnhandledPath1),
		exitOnly(92, "chown", sysUnhandledPath1),
		exitOnly(132, "utime", sysUnhandledPath1),
		exitOnly(133, "mknod", sysUnhandledPath1),
		exitOnly(165, "mount", sysUnhandledOther),
		exitOnly(264, "renameat", sysUnhandledOther),
	}
}

func amd64Table() *Table {
	return newTable("x86_64", execveNrAmd64, amd64Defs(execveNrAmd64))
}

func x32Table() *Table {
	return newTable("x32", execveNrX32, amd64Defs(execveNrX32))
}
