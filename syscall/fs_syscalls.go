package syscall

import (
	"kernelcore/defs"
	"kernelcore/limits"
	"kernelcore/proc"
	"kernelcore/ustr"
	"kernelcore/vm"
)

// copyinstr copies a NUL-terminated string out of as starting at uva,
// reading one byte at a time through vm.Userbuf_t so a bad pointer or an
// unmapped page surfaces as EFAULT exactly where the fault occurs. max
// bounds the read; running out of budget before finding the NUL returns
// ENAMETOOLONG rather than reading past it.
func copyinstr(as *vm.AddrSpace_t, uva uintptr, max int) (string, defs.Err_t) {
	var ub vm.Userbuf_t
	ub.Init(as, uva, max)
	buf := make([]byte, 0, 32)
	var b [1]byte
	for {
		n, err := ub.Uioread(b[:])
		if err != 0 {
			return "", err
		}
		if n == 0 {
			return "", defs.ENAMETOOLONG
		}
		if b[0] == 0 {
			return string(buf), 0
		}
		buf = append(buf, b[0])
	}
}

// Open copies path in from user memory, bounded by PATH_MAX, then resolves
// it against p's file table and installs a new handle at the lowest free
// slot.
func (sc *Syscalls_t) Open(p *proc.Process_t, pathUva uintptr, flags defs.Fdopt_t) (int, defs.Err_t) {
	path, err := copyinstr(p.As, pathUva, limits.PATH_MAX)
	if err != 0 {
		return 0, err
	}
	return p.Files.Open(path, flags)
}

func (sc *Syscalls_t) Close(p *proc.Process_t, fdnum int) defs.Err_t {
	return p.Files.Remove(fdnum)
}

// Read copies up to length bytes from fd into the user buffer at uva. The
// handle's offset advances by the number of bytes actually transferred,
// matching write's behavior.
func (sc *Syscalls_t) Read(p *proc.Process_t, fdnum int, uva uintptr, length int) (int, defs.Err_t) {
	fh, err := p.Files.Get(fdnum)
	if err != 0 {
		return 0, err
	}
	var ub vm.Userbuf_t
	ub.Init(p.As, uva, length)
	return fh.Read(&ub)
}

// Write copies up to length bytes from the user buffer at uva into fd.
func (sc *Syscalls_t) Write(p *proc.Process_t, fdnum int, uva uintptr, length int) (int, defs.Err_t) {
	fh, err := p.Files.Get(fdnum)
	if err != 0 {
		return 0, err
	}
	var ub vm.Userbuf_t
	ub.Init(p.As, uva, length)
	return fh.Write(&ub)
}

func (sc *Syscalls_t) Lseek(p *proc.Process_t, fdnum int, offset, whence int) (int, defs.Err_t) {
	fh, err := p.Files.Get(fdnum)
	if err != 0 {
		return 0, err
	}
	return fh.Lseek(offset, whence)
}

// Dup2 is a thin pass-through; the never-nest-the-spinlock discipline is
// already implemented inside fd.FileTable_t.Dup2.
func (sc *Syscalls_t) Dup2(p *proc.Process_t, oldfd, newfd int) (int, defs.Err_t) {
	return p.Files.Dup2(oldfd, newfd)
}

// Chdir copies path in from user memory, bounded by PATH_MAX, and hands it
// to p's working-directory tracker.
func (sc *Syscalls_t) Chdir(p *proc.Process_t, pathUva uintptr) defs.Err_t {
	path, err := copyinstr(p.As, pathUva, limits.PATH_MAX)
	if err != 0 {
		return err
	}
	p.Cwd.Chdir(ustr.Ustr(path))
	return 0
}

// Getcwd copies p's current working directory into the user buffer at
// uva, truncating at buflen bytes exactly as a short uio would.
func (sc *Syscalls_t) Getcwd(p *proc.Process_t, uva uintptr, buflen int) (int, defs.Err_t) {
	path := []byte(p.Cwd.Getcwd())
	var ub vm.Userbuf_t
	ub.Init(p.As, uva, buflen)
	return ub.Uiowrite(path)
}
