package vm

import (
	"kernelcore/defs"
	"kernelcore/limits"
)

// Userio_i is the interface the file-handle layer reads into and writes
// from, whether the other end is a real user buffer or a kernel-backed
// stand-in. Uioread and Uiowrite name the direction from the perspective
// of user data moving into or out of the object.
type Userio_i interface {
	Uioread(dst []byte) (int, defs.Err_t)
	Uiowrite(src []byte) (int, defs.Err_t)
	Remain() int
	Totalsz() int
}

// Userbuf_t reads and writes a fixed-length region of one process's
// address space, faulting pages in as needed. A virtual-address lookup and
// the read/write to the backing frame must be atomic with respect to a
// concurrent page fault, which is why the whole transfer runs under the
// address space's pmap lock rather than locking per page.
type Userbuf_t struct {
	as  *AddrSpace_t
	uva uintptr
	len int
	off int
}

func (ub *Userbuf_t) Init(as *AddrSpace_t, uva uintptr, length int) {
	if length < 0 {
		panic("vm.Userbuf_t.Init: negative length")
	}
	ub.as = as
	ub.uva = uva
	ub.len = length
	ub.off = 0
}

func (ub *Userbuf_t) Remain() int  { return ub.len - ub.off }
func (ub *Userbuf_t) Totalsz() int { return ub.len }

func (ub *Userbuf_t) Uioread(dst []byte) (int, defs.Err_t) {
	ub.as.lockPmap()
	defer ub.as.unlockPmap()
	return ub.txLocked(dst, false)
}

func (ub *Userbuf_t) Uiowrite(src []byte) (int, defs.Err_t) {
	ub.as.lockPmap()
	defer ub.as.unlockPmap()
	return ub.txLocked(src, true)
}

// txLocked requires the caller to already hold as.pmapLock.
func (ub *Userbuf_t) txLocked(buf []byte, write bool) (int, defs.Err_t) {
	did := 0
	for len(buf) != 0 && ub.off != ub.len {
		va := ub.uva + uintptr(ub.off)
		pageAddr := va &^ uintptr(limits.PAGE_SIZE-1)
		voff := int(va - pageAddr)

		pte := ub.as.PgTable.GetEntry(pageAddr)
		if pte == nil {
			return did, defs.EFAULT
		}
		if pte.Paddr == 0 {
			ft := defs.VM_FAULT_READ
			if write {
				ft = defs.VM_FAULT_WRITE
			}
			if _, _, err := ub.as.faultLocked(va, ft); err != 0 {
				return did, err
			}
		}

		frame := ub.as.cm.FrameBytes(pte.Paddr)
		chunk := frame[voff:]

		remain := ub.len - ub.off
		if len(chunk) > remain {
			chunk = chunk[:remain]
		}
		if len(chunk) > len(buf) {
			chunk = chunk[:len(buf)]
		}

		var n int
		if write {
			n = copy(chunk, buf)
		} else {
			n = copy(buf, chunk)
		}
		buf = buf[n:]
		ub.off += n
		did += n
	}
	return did, 0
}

// faultLocked is Fault's body, callable by code that already holds
// as.pmapLock (Userbuf_t's transfer loop) without recursing on the mutex.
func (as *AddrSpace_t) faultLocked(vaddr uintptr, ft defs.Faulttype_t) (defs.Pa_t, defs.Pa_t, defs.Err_t) {
	if ft == defs.VM_FAULT_READONLY {
		panic("vm: READONLY fault on a page this core never marks read-only")
	}
	pageAddr := vaddr &^ uintptr(limits.PAGE_SIZE-1)
	pte := as.PgTable.GetEntry(pageAddr)
	if pte == nil {
		return 0, 0, defs.EFAULT
	}
	if pte.Paddr == 0 {
		paddr, err := as.cm.AllocUpage(as, pageAddr)
		if err != 0 {
			return 0, 0, defs.ENOMEM
		}
		pte.Paddr = paddr
	}
	hi := defs.Pa_t(pageAddr) & defs.TLB_HI_VPAGE
	lo := (pte.Paddr & defs.TLB_LO_PPAGE) | defs.TLB_VALID | defs.TLB_DIRTY
	return hi, lo, 0
}

// Fakeubuf_t stands in for Userbuf_t when the "user" data actually lives
// in a kernel-owned byte slice, so the same read/write path can run
// without an address space behind it.
type Fakeubuf_t struct {
	Fake []byte
	off  int
}

func (fb *Fakeubuf_t) Init(buf []byte) {
	fb.Fake = buf
	fb.off = 0
}

func (fb *Fakeubuf_t) Remain() int  { return len(fb.Fake) - fb.off }
func (fb *Fakeubuf_t) Totalsz() int { return len(fb.Fake) }

func (fb *Fakeubuf_t) Uioread(dst []byte) (int, defs.Err_t) {
	n := copy(dst, fb.Fake[fb.off:])
	fb.off += n
	return n, 0
}

func (fb *Fakeubuf_t) Uiowrite(src []byte) (int, defs.Err_t) {
	n := copy(fb.Fake[fb.off:], src)
	fb.off += n
	return n, 0
}
