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

const execveNrI386 = 11

// i386Table is the 32-bit x86 dispatch table. socketcall only exists here;
// connect and accept arrive through it.
func i386Table() *Table {
	return newTable("i386", execveNrI386, []sysdef{
		exitOnly(5, "open", sysOpen),
		exitOnly(8, "creat", sysCreat),
		exitOnly(33, "access", sysStat),
		exitOnly(18, "oldstat", sysStat),
		exitOnly(84, "oldlstat", sysStat),
		exitOnly(106, "stat", sysStat),
		exitOnly(107, "lstat", sysStat),
		exitOnly(195, "stat64", sysStat),
		exitOnly(196, "lstat64", sysStat),
		exitOnly(85, "readlink", sysReadlink),
		exitOnly(39, "mkdir", sysMkdir),
		exitOnly(83, "symlink", sysSymlink),
		exitOnly(12, "chdir", sysChdir),
		enterExit(execveNrI386, "execve", enterExecve, exitExecve),
		exitOnly(2, "fork", sysFork),
		exitOnly(190, "vfork", sysFork),
		exitDisc(120, "clone", sysFork, discCloneFlags),
		exitOnly(102, "socketcall", sysSocketcall),

		exitDisc(295, "openat", sysAtAdapter, 5),
		exitDisc(296, "mkdirat", sysAtAdapter, 39),
		exitDisc(300, "fstatat64", sysAtAdapter, 195),
		exitDisc(301, "unlinkat", sysAtAdapter, 10),
		exitDisc(305, "readlinkat", sysAtAdapter, 85),
		exitDisc(307, "faccessat", sysAtAdapter, 33),
		exitOnly(304, "symlinkat", sysSymlinkAt),

		// Observed but not interpreted.
		exitOnly(10, "unlink", sysUnhandledPath1),
		exitOnly(14, "mknod", sysUnhandledPath1),
		exitOnly(15, "chmod", sysUnhandledPath1),
		exitOnly(30, "utime", sysUnhandledPath1),
		exitOnly(38, "rename", sysUnhandledPath1),
		exitOnly(40, "rmdir", sysUnhandledPath1),
		exitOnly(92, "truncate", sysUnhandledPath1),
		exitOnly(182, "chown", sysUnhandledPath1),
		exitOnly(21, "mount", sysUnhandledOther),
		exitOnly(302, "renameat", sysUnhandledOther),
	})
}
