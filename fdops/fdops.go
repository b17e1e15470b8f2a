// Package fdops defines the interfaces that sit between a file handle
// (package fd) and whatever backs it: a buffer abstraction for the
// source/destination of a read or write, and the vnode operations a
// backing object must support.
package fdops

import "kernelcore/defs"

// Userio_i abstracts a region of memory being read from or written to,
// whether it is a real user buffer (vm.Userbuf_t) or a kernel-owned stand-in
// (vm.Fakeubuf_t).
type Userio_i interface {
	Uiowrite(src []byte) (int, defs.Err_t)
	Uioread(dst []byte) (int, defs.Err_t)
	Remain() int
	Totalsz() int
}

// Vnode_i is the opaque backing object a file handle points at — a VOP_*
// dispatch vector, not a concrete file format. Read and Write operate at an
// explicit offset so the handle (which owns the byte offset) never needs
// to know how the vnode stores its bytes.
//
// VopIsSeekable and VopStat let a handle answer lseek without knowing what
// kind of vnode it holds: a device-backed vnode such as the console has no
// notion of position and reports itself non-seekable, while a vnode with a
// well-defined extent (an in-memory file) reports its current size so
// SEEK_END can be computed against it.
type Vnode_i interface {
	VopRead(dst []byte, off int) (int, defs.Err_t)
	VopWrite(src []byte, off int) (int, defs.Err_t)
	VopIncref()
	VopDecref()
	VopIsSeekable() bool
	VopStat() (size int, err defs.Err_t)
}
