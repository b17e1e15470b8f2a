// Package syscall implements the process and file-I/O syscall bodies:
// fork/execv/exit/waitpid/getpid and
// open/close/read/write/lseek/dup2/chdir/getcwd.
//
// Every method takes the calling process as an explicit *proc.Process_t
// parameter rather than reaching for an implicit "current process" —
// nothing in this package maintains package-global current-thread state.
package syscall

import (
	"kernelcore/defs"
	"kernelcore/mem"
	"kernelcore/proc"
)

// Syscalls_t bundles the kernel-wide state a syscall body needs to reach
// beyond the calling process itself: the process table (for fork/waitpid)
// and the coremap (for building execv's fresh address space; fork's copy
// uses the parent address space's own coremap).
type Syscalls_t struct {
	pt *proc.ProcTable_t
	cm *mem.Coremap_t
}

func MkSyscalls(pt *proc.ProcTable_t, cm *mem.Coremap_t) *Syscalls_t {
	return &Syscalls_t{pt: pt, cm: cm}
}

// Getpid needs no kernel state beyond the caller's own process.
func (sc *Syscalls_t) Getpid(p *proc.Process_t) defs.Pid_t {
	return p.Pid
}
