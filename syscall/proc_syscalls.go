package syscall

import (
	"encoding/binary"

	"kernelcore/defs"
	"kernelcore/limits"
	"kernelcore/proc"
	"kernelcore/vm"
)

// Fork builds a child of parent and returns its pid along with a
// trapframe prepared for the child's first return from the fork call: v0
// and a3 zeroed (fork returns 0 to the child) and epc advanced past the
// syscall instruction so the child doesn't re-execute it. Handing that
// trapframe to a new kernel thread and entering user mode with it is the
// scheduler's job; Fork builds the child's address space, file table, and
// process-table slot, and prepares the trapframe, but does not launch it.
func (sc *Syscalls_t) Fork(parent *proc.Process_t, tf *defs.Trapframe_t) (defs.Pid_t, *defs.Trapframe_t, defs.Err_t) {
	child, err := sc.pt.Fork(parent)
	if err != 0 {
		return 0, nil, err
	}
	childtf := *tf
	childtf.SetV0(0)
	childtf.SetA3(0)
	childtf.Epc += 4
	return child.Pid, &childtf, 0
}

// Exit records p's exit status. If p's parent is gone or has already
// exited, nobody will ever wait for p, so it is reaped immediately.
// Otherwise the status is recorded and every waiter is woken; p stays in
// the process table, a zombie, until Waitpid reaps it.
func (sc *Syscalls_t) Exit(p *proc.Process_t, exitcode int) {
	status := defs.MKWAIT_EXIT(exitcode)
	parent, err := sc.pt.Get(p.Ppid)
	if err != 0 || parent.Exited() {
		if q, err := sc.pt.Remove(p.Pid); err != 0 || q != p {
			panic("syscall: exit: failed to remove self from process table")
		}
		p.As.Destroy()
		p.Files.Destroy()
		return
	}
	p.Exit(status)
}

// Waitpid blocks until pid exits, then reaps it. options must be exactly
// 0; no flag value is otherwise consulted.
func (sc *Syscalls_t) Waitpid(p *proc.Process_t, pid defs.Pid_t, options int) (defs.Pid_t, int, defs.Err_t) {
	if options != 0 {
		return -1, 0, defs.EINVAL
	}
	target, err := sc.pt.Get(pid)
	if err != 0 {
		return -1, 0, err
	}
	if target.Ppid != p.Pid {
		return -1, 0, defs.ECHILD
	}
	status := target.WaitExited(p.Pid)

	sc.pt.Remove(pid)
	target.As.Destroy()
	target.Files.Destroy()
	return pid, status, 0
}

const ptrSize = 4

// pushBytes copies data onto the new stack just below sp and returns the
// new (lower) stack pointer. Once pushBytes is called for the first time
// during an Execv, the old address space has already been kept around
// only so it can be thrown away; the new one below sp is the only copy of
// the new process image on the way to becoming live, so a failure here
// has nothing safe to roll back to. It panics rather than return an
// error.
func pushBytes(as *vm.AddrSpace_t, sp uintptr, data []byte) uintptr {
	sp -= uintptr(len(data))
	var ub vm.Userbuf_t
	ub.Init(as, sp, len(data))
	if _, err := ub.Uiowrite(data); err != 0 {
		panic("syscall: execv: argument marshaling failed after commit")
	}
	return sp
}

// pushPtr pushes one big-endian 32-bit pointer, the MIPS word size this
// core targets.
func pushPtr(as *vm.AddrSpace_t, sp uintptr, v uintptr) uintptr {
	buf := make([]byte, ptrSize)
	binary.BigEndian.PutUint32(buf, uint32(v))
	return pushBytes(as, sp, buf)
}

// copyinArgv reads the argv pointer array at uva out of as — a vector of
// big-endian 32-bit user pointers terminated by a NULL entry — and copies
// each string it points to into kernel memory, bounded in total by
// ARG_MAX. A bad pointer anywhere in the array, or within any string it
// points to, surfaces as whatever copyinstr returned (typically EFAULT);
// exceeding ARG_MAX across the accumulated strings returns E2BIG.
func copyinArgv(as *vm.AddrSpace_t, uva uintptr) ([]string, defs.Err_t) {
	var args []string
	total := 0
	for i := 0; ; i++ {
		var ub vm.Userbuf_t
		ub.Init(as, uva+uintptr(i*ptrSize), ptrSize)
		var pbuf [ptrSize]byte
		if _, err := ub.Uioread(pbuf[:]); err != 0 {
			return nil, err
		}
		ptr := uintptr(binary.BigEndian.Uint32(pbuf[:]))
		if ptr == 0 {
			return args, 0
		}
		budget := limits.ARG_MAX - total
		if budget < 0 {
			budget = 0
		}
		s, err := copyinstr(as, ptr, budget)
		if err != 0 {
			if err == defs.ENAMETOOLONG {
				return nil, defs.E2BIG
			}
			return nil, err
		}
		total += len(s) + 1
		args = append(args, s)
	}
}

// Execv builds a new address space for p's process image and lays out
// argv on its stack, then swaps it in for p's old address space.
//
// entry is the program's already-resolved entry point — locating and
// loading the executable is the ELF loader's job and happens before Execv
// is called. argvUva is a user pointer to the calling process's argv
// vector; Execv reads it out of p's current (pre-exec) address space via
// copyinArgv before the new address space is even built, since that is
// the last point at which the old address space, and the user pointers
// into it, still exist. Up through stack creation, failure is
// recoverable: the new address space is simply discarded and p keeps
// running under its old one. Once argument marshaling onto the new stack
// begins, though, there is no old state left to fall back to that would
// make sense to resume — the old address space is logically already gone
// — so pushBytes/pushPtr panic instead of returning an error past that
// point.
func (sc *Syscalls_t) Execv(p *proc.Process_t, entry uintptr, argvUva uintptr) (uintptr, uintptr, defs.Err_t) {
	args, err := copyinArgv(p.As, argvUva)
	if err != 0 {
		return 0, 0, err
	}

	newAs := vm.NewAddrSpace(sc.cm)
	sp, err := newAs.DefineStack()
	if err != 0 {
		return 0, 0, err
	}

	argvAddrs := make([]uintptr, len(args))
	for i := len(args) - 1; i >= 0; i-- {
		data := append([]byte(args[i]), 0)
		sp = pushBytes(newAs, sp, data)
		argvAddrs[i] = sp
	}

	sp &^= uintptr(ptrSize - 1)

	sp = pushPtr(newAs, sp, 0) // argv[] NULL terminator
	for i := len(args) - 1; i >= 0; i-- {
		sp = pushPtr(newAs, sp, argvAddrs[i])
	}

	oldAs := p.As
	p.As = newAs
	oldAs.Destroy()
	return entry, sp, 0
}
