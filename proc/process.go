package proc

import (
	"kernelcore/defs"
	"kernelcore/fd"
	"kernelcore/mem"
	"kernelcore/synch"
	"kernelcore/vm"
)

// Process_t is one process's kernel-visible state.
type Process_t struct {
	Pid  defs.Pid_t
	Ppid defs.Pid_t
	Name string

	As    *vm.AddrSpace_t
	Files *fd.FileTable_t
	Cwd   *fd.Cwd_t

	exitLock   *synch.Lock_t
	exitCV     *synch.CV_t
	exited     bool
	exitStatus int
}

// NewRootProcess builds the first process: a fresh address space, a file
// table with slots 0/1/2 pre-opened to the console, and a cwd of "/". It
// is unregistered; the caller must Insert it into a ProcTable_t. ppid 0
// marks it parentless.
func NewRootProcess(name string, cm *mem.Coremap_t) *Process_t {
	return mkProcess(name, 0, vm.NewAddrSpace(cm), fd.MkFileTable(), fd.MkRootCwd())
}

// mkProcess builds an unregistered process object; the caller is
// responsible for inserting it into a ProcTable_t, which assigns Pid.
func mkProcess(name string, ppid defs.Pid_t, as *vm.AddrSpace_t, files *fd.FileTable_t, cwd *fd.Cwd_t) *Process_t {
	return &Process_t{
		Name:     name,
		Ppid:     ppid,
		As:       as,
		Files:    files,
		Cwd:      cwd,
		exitLock: synch.MkLock(),
		exitCV:   synch.MkCV(),
	}
}

func (p *Process_t) Exited() bool {
	p.exitLock.Acquire(defs.Tid_t(p.Pid))
	defer p.exitLock.Release(defs.Tid_t(p.Pid))
	return p.exited
}

// Exit records the final exit status and wakes every waiter. exited
// transitions false -> true exactly once and exitStatus is immutable
// afterward.
func (p *Process_t) Exit(status int) {
	p.exitLock.Acquire(defs.Tid_t(p.Pid))
	if p.exited {
		p.exitLock.Release(defs.Tid_t(p.Pid))
		panic("proc: exited set twice")
	}
	p.exitStatus = status
	p.exited = true
	p.exitCV.Broadcast(p.exitLock, defs.Tid_t(p.Pid))
	p.exitLock.Release(defs.Tid_t(p.Pid))
}

// WaitExited blocks self (identified by callerPid, used only as the
// synch package's recursive-acquire guard) until p has exited, then
// returns its exit status.
func (p *Process_t) WaitExited(callerPid defs.Pid_t) int {
	self := defs.Tid_t(callerPid)
	p.exitLock.Acquire(self)
	for !p.exited {
		p.exitCV.Wait(p.exitLock, self)
	}
	status := p.exitStatus
	p.exitLock.Release(self)
	return status
}
