package vm

import (
	"sync"

	"kernelcore/defs"
	"kernelcore/limits"
	"kernelcore/mem"
)

// Segment_t records one mapped region's extent. Permission bits are not
// tracked or enforced here.
type Segment_t struct {
	Start  uintptr
	Npages int
}

func (s *Segment_t) end() uintptr {
	return s.Start + uintptr(s.Npages)*limits.PAGE_SIZE
}

const maxSegments = 4

// AddrSpace_t is one process's virtual address space: a page table plus
// the segments carved out of it. pmapLock guards lookups against
// concurrent page-table mutation so that a TLB-refill fault and a
// copyin/copyout never observe a half-updated entry; it is distinct from
// PageTable_t's own spinlock, which only protects the table's internal
// bookkeeping.
type AddrSpace_t struct {
	pmapLock sync.Mutex

	PgTable *PageTable_t
	Segs    [maxSegments]*Segment_t
	Heap    *Segment_t
	Stack   *Segment_t

	cm *mem.Coremap_t
}

func (as *AddrSpace_t) lockPmap()   { as.pmapLock.Lock() }
func (as *AddrSpace_t) unlockPmap() { as.pmapLock.Unlock() }

func NewAddrSpace(cm *mem.Coremap_t) *AddrSpace_t {
	return &AddrSpace_t{
		PgTable: MkPageTable(),
		cm:      cm,
	}
}

func (as *AddrSpace_t) freeSegSlot() int {
	for i, s := range as.Segs {
		if s == nil {
			return i
		}
	}
	return -1
}

// DefineRegion carves out a segment at vaddr of the given byte size and
// eagerly creates unbacked page-table entries for every page it spans —
// backing frames are allocated lazily on first fault.
func (as *AddrSpace_t) DefineRegion(vaddr uintptr, memsize int) (*Segment_t, defs.Err_t) {
	if vaddr >= limits.USERSTACK {
		return nil, defs.EFAULT
	}
	idx := as.freeSegSlot()
	if idx < 0 {
		return nil, defs.ENOMEM
	}
	npages := (memsize + limits.PAGE_SIZE - 1) / limits.PAGE_SIZE
	seg := &Segment_t{Start: vaddr, Npages: npages}

	for i := 0; i < npages; i++ {
		pg := vaddr + uintptr(i*limits.PAGE_SIZE)
		if err := as.PgTable.AllocPage(pg); err != 0 {
			for j := 0; j < i; j++ {
				as.PgTable.FreePage(as.cm, as, vaddr+uintptr(j*limits.PAGE_SIZE))
			}
			return nil, err
		}
	}
	as.Segs[idx] = seg
	return seg, 0
}

// DefineStack creates the fixed-size stack segment and returns the initial
// user stack pointer, USERSTACK.
func (as *AddrSpace_t) DefineStack() (uintptr, defs.Err_t) {
	npages := limits.USERSTACK_SIZE / limits.PAGE_SIZE
	base := uintptr(limits.USERSTACK) - limits.USERSTACK_SIZE

	idx := as.freeSegSlot()
	if idx < 0 {
		return 0, defs.ENOMEM
	}
	seg := &Segment_t{Start: base, Npages: npages}
	for i := 0; i < npages; i++ {
		pg := base + uintptr(i*limits.PAGE_SIZE)
		if err := as.PgTable.AllocPage(pg); err != 0 {
			for j := 0; j < i; j++ {
				as.PgTable.FreePage(as.cm, as, base+uintptr(j*limits.PAGE_SIZE))
			}
			return 0, err
		}
	}
	as.Segs[idx] = seg
	as.Stack = seg
	return limits.USERSTACK, 0
}

// DefineHeap creates (or returns, if already present) the heap segment, an
// initially zero-page region starting at the caller-supplied vaddr.
func (as *AddrSpace_t) DefineHeap(vaddr uintptr) (*Segment_t, defs.Err_t) {
	if as.Heap != nil {
		return as.Heap, 0
	}
	seg, err := as.DefineRegion(vaddr, 0)
	if err != 0 {
		return nil, err
	}
	as.Heap = seg
	return seg, 0
}

// Copy deep-copies the page table (frame contents included) and every
// segment. A failure partway through destroys the partially built address
// space before returning the error.
func (as *AddrSpace_t) Copy() (*AddrSpace_t, defs.Err_t) {
	nas := NewAddrSpace(as.cm)

	pgt, err := as.PgTable.Copy(as.cm, nas)
	if err != 0 {
		return nil, err
	}
	nas.PgTable = pgt

	for i, s := range as.Segs {
		if s == nil {
			continue
		}
		cp := *s
		nas.Segs[i] = &cp
		if s == as.Heap {
			nas.Heap = nas.Segs[i]
		}
		if s == as.Stack {
			nas.Stack = nas.Segs[i]
		}
	}
	return nas, 0
}

// Destroy frees every backing frame via the page table, then drops the
// segment references. Safe to call on an address space with no faulted-in
// pages.
func (as *AddrSpace_t) Destroy() {
	as.PgTable.Destroy(as.cm, as)
	for i := range as.Segs {
		as.Segs[i] = nil
	}
	as.Heap = nil
	as.Stack = nil
}

func (as *AddrSpace_t) segFor(vaddr uintptr) *Segment_t {
	for _, s := range as.Segs {
		if s != nil && vaddr >= s.Start && vaddr < s.end() {
			return s
		}
	}
	return nil
}

// Fault is the TLB-refill handler. A READONLY fault always panics:
// no segment in this core is ever marked copy-on-write or otherwise made
// read-only after creation, so the hardware should never raise one. An
// absent page-table entry (outside any defined segment) is EFAULT. An
// entry present but unbacked is backed now, on demand, and the computed
// (TLB-hi, TLB-lo) pair is returned for the caller to load into the TLB.
func (as *AddrSpace_t) Fault(vaddr uintptr, ft defs.Faulttype_t) (defs.Pa_t, defs.Pa_t, defs.Err_t) {
	as.lockPmap()
	defer as.unlockPmap()
	return as.faultLocked(vaddr, ft)
}
