// Package fd implements the per-process file table: fixed-size descriptor
// arrays of refcounted file handles, pre-opened to a console vnode at
// construction.
package fd

import (
	"sync"

	"kernelcore/bpath"
	"kernelcore/defs"
	"kernelcore/fdops"
	"kernelcore/limits"
	"kernelcore/synch"
	"kernelcore/ustr"
)

// FileHandle_t is one shared open-file description.
type FileHandle_t struct {
	Name     string
	vnode    fdops.Vnode_i
	offset   int
	mu       sync.Mutex
	refcount int
	flags    defs.Fdopt_t
}

func newHandle(name string, vn fdops.Vnode_i, flags defs.Fdopt_t) *FileHandle_t {
	return &FileHandle_t{Name: name, vnode: vn, flags: flags, refcount: 1}
}

func (fh *FileHandle_t) writable() bool {
	mode := fh.flags & defs.O_ACCMODE
	return mode == defs.O_WRONLY || mode == defs.O_RDWR
}

func (fh *FileHandle_t) readable() bool {
	mode := fh.flags & defs.O_ACCMODE
	return mode == defs.O_RDONLY || mode == defs.O_RDWR
}

// Read performs one read and advances the handle's offset by the number
// of bytes actually transferred.
func (fh *FileHandle_t) Read(dst fdops.Userio_i) (int, defs.Err_t) {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if !fh.readable() {
		return 0, defs.EBADF
	}
	buf := make([]byte, dst.Remain())
	n, err := fh.vnode.VopRead(buf, fh.offset)
	if err != 0 {
		return 0, err
	}
	if n == 0 {
		return 0, 0
	}
	wn, err := dst.Uiowrite(buf[:n])
	if err != 0 {
		return 0, err
	}
	fh.offset += wn
	return wn, 0
}

func (fh *FileHandle_t) Write(src fdops.Userio_i) (int, defs.Err_t) {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if !fh.writable() {
		return 0, defs.EBADF
	}
	buf := make([]byte, src.Remain())
	rn, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	n, err := fh.vnode.VopWrite(buf[:rn], fh.offset)
	if err != 0 {
		return 0, err
	}
	fh.offset += n
	return n, 0
}

// Lseek repositions the handle's offset. A vnode that isn't seekable (the
// console, say) rejects every whence with ESPIPE; otherwise SEEK_END is
// computed against the vnode's current size. Negative results are
// rejected with EINVAL.
func (fh *FileHandle_t) Lseek(offset, whence int) (int, defs.Err_t) {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if !fh.vnode.VopIsSeekable() {
		return 0, defs.ESPIPE
	}
	var newoff int
	switch whence {
	case defs.SEEK_SET:
		newoff = offset
	case defs.SEEK_CUR:
		newoff = fh.offset + offset
	case defs.SEEK_END:
		size, err := fh.vnode.VopStat()
		if err != 0 {
			return 0, err
		}
		newoff = size + offset
	default:
		return 0, defs.EINVAL
	}
	if newoff < 0 {
		return 0, defs.EINVAL
	}
	fh.offset = newoff
	return fh.offset, 0
}

func (fh *FileHandle_t) incref() {
	fh.mu.Lock()
	fh.refcount++
	fh.mu.Unlock()
}

// decref drops one reference, destroying the handle (and decref'ing its
// vnode) when the count reaches zero. Returns whether it was destroyed.
func (fh *FileHandle_t) decref() bool {
	fh.mu.Lock()
	fh.refcount--
	dead := fh.refcount == 0
	fh.mu.Unlock()
	if dead {
		fh.vnode.VopDecref()
	}
	return dead
}

// FileTable_t is the per-process descriptor table: OPEN_MAX slots, each
// either nil or a reference to a shared FileHandle_t, guarded by one
// spinlock.
type FileTable_t struct {
	lock  synch.Spinlock_t
	table [limits.OPEN_MAX]*FileHandle_t
}

// MkFileTable builds a file table with slots 0/1/2 pre-opened to a fresh
// console vnode, read-only/write-only/write-only respectively.
func MkFileTable() *FileTable_t {
	ft := &FileTable_t{}
	con := newConsoleVnode()
	ft.table[0] = newHandle("con:", con, defs.O_RDONLY)
	con.VopIncref()
	ft.table[1] = newHandle("con:", con, defs.O_WRONLY)
	con.VopIncref()
	ft.table[2] = newHandle("con:", con, defs.O_WRONLY)
	return ft
}

func validSlot(fd int) bool { return fd >= 0 && fd < limits.OPEN_MAX }

// Add inserts fh at the lowest free slot. EMFILE if the table is full.
func (ft *FileTable_t) Add(fh *FileHandle_t) (int, defs.Err_t) {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	for i := 0; i < limits.OPEN_MAX; i++ {
		if ft.table[i] == nil {
			ft.table[i] = fh
			return i, 0
		}
	}
	return -1, defs.EMFILE
}

// Get returns the handle at fd without taking any handle-level lock.
func (ft *FileTable_t) Get(fdnum int) (*FileHandle_t, defs.Err_t) {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	if !validSlot(fdnum) {
		return nil, defs.EBADF
	}
	fh := ft.table[fdnum]
	if fh == nil {
		return nil, defs.EBADF
	}
	return fh, 0
}

// Remove clears slot fd and drops its reference to the handle, destroying
// it if the refcount reaches zero.
func (ft *FileTable_t) Remove(fdnum int) defs.Err_t {
	ft.lock.Lock()
	if !validSlot(fdnum) || ft.table[fdnum] == nil {
		ft.lock.Unlock()
		return defs.EBADF
	}
	fh := ft.table[fdnum]
	ft.table[fdnum] = nil
	ft.lock.Unlock()

	fh.decref()
	return 0
}

// Dup2 implements the dup2 syscall's table-level mechanics: if newfd is
// occupied, close it first in its own critical section, then install
// oldfd's handle into newfd with an incremented refcount in a second,
// separate critical section — the file-table spinlock is never held
// across both steps at once.
func (ft *FileTable_t) Dup2(oldfd, newfd int) (int, defs.Err_t) {
	if oldfd == newfd {
		if _, err := ft.Get(oldfd); err != 0 {
			return -1, err
		}
		return newfd, 0
	}
	if !validSlot(oldfd) || !validSlot(newfd) {
		return -1, defs.EBADF
	}

	old, err := ft.Get(oldfd)
	if err != 0 {
		return -1, err
	}

	if _, err := ft.Get(newfd); err == 0 {
		if err := ft.Remove(newfd); err != 0 {
			return -1, err
		}
	}

	ft.lock.Lock()
	old.incref()
	ft.table[newfd] = old
	ft.lock.Unlock()
	return newfd, 0
}

// Copy builds a child file table for fork: an empty table (no console
// slots of its own) into which every non-null parent slot is copied by
// reference with its handle's refcount bumped — slot index alignment is
// preserved.
func (ft *FileTable_t) Copy() *FileTable_t {
	child := &FileTable_t{}
	ft.lock.Lock()
	defer ft.lock.Unlock()
	for i, fh := range ft.table {
		if fh == nil {
			continue
		}
		fh.incref()
		child.table[i] = fh
	}
	return child
}

// Destroy drops this table's reference to every occupied slot.
func (ft *FileTable_t) Destroy() {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	for i, fh := range ft.table {
		if fh == nil {
			continue
		}
		fh.decref()
		ft.table[i] = nil
	}
}

// Open resolves path against the in-memory file store and installs a new
// handle at the lowest free slot.
func (ft *FileTable_t) Open(path string, flags defs.Fdopt_t) (int, defs.Err_t) {
	vn, err := rootFs.Open(path, flags)
	if err != 0 {
		return -1, err
	}
	fh := newHandle(path, vn, flags)
	slot, err := ft.Add(fh)
	if err != 0 {
		fh.decref()
		return -1, err
	}
	return slot, 0
}

// Cwd_t tracks a process's current working directory.
type Cwd_t struct {
	mu   sync.Mutex
	Path ustr.Ustr
}

func MkRootCwd() *Cwd_t {
	return &Cwd_t{Path: ustr.MkUstrRoot()}
}

func (cwd *Cwd_t) Fullpath(p ustr.Ustr) ustr.Ustr {
	cwd.mu.Lock()
	defer cwd.mu.Unlock()
	if p.IsAbsolute() {
		return p
	}
	return cwd.Path.Extend(p)
}

func (cwd *Cwd_t) Canonicalpath(p ustr.Ustr) ustr.Ustr {
	return bpath.Canonicalize(cwd.Fullpath(p))
}

// Chdir replaces the working directory with the canonicalized form of p.
func (cwd *Cwd_t) Chdir(p ustr.Ustr) {
	np := cwd.Canonicalpath(p)
	cwd.mu.Lock()
	cwd.Path = np
	cwd.mu.Unlock()
}

// Getcwd returns the current working directory path.
func (cwd *Cwd_t) Getcwd() ustr.Ustr {
	cwd.mu.Lock()
	defer cwd.mu.Unlock()
	return append(ustr.Ustr{}, cwd.Path...)
}
