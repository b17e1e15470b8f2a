// Package mem implements the coremap: the physical frame allocator. It
// tracks every usable physical page above the managed-window boundary and
// services both contiguous kernel allocations and single-page user
// allocations.
//
// Entries are a flat array of per-frame records plus a free-count and a
// single spinlock, addressed by (paddr-firstPaddr)/PAGE_SIZE. Physical RAM
// itself is modeled as one []byte arena; "kernel virtual address" and
// physical address coincide, matching the MIPS convention that KSEG0 is an
// identity mapping of physical memory.
package mem

import (
	"kernelcore/defs"
	"kernelcore/limits"
	"kernelcore/synch"
	"kernelcore/util"
)

const (
	infoAllocated  uint32 = 1 << 0
	infoContig     uint32 = 1 << 1
	infoWritable   uint32 = 1 << 2
	infoFrameShift        = 12
)

var infoFrameMask uint32 = ^(uint32(1)<<infoFrameShift - 1)

// CoremapEntry_t is one record per managed physical frame. As is the
// owning address space, compared by identity; it is typed interface{}
// rather than a concrete address-space pointer so that mem, a dependency
// of vm, never imports vm back.
type CoremapEntry_t struct {
	As    interface{}
	Vaddr uintptr
	info  uint32
}

func (e *CoremapEntry_t) allocated() bool { return e.info&infoAllocated != 0 }
func (e *CoremapEntry_t) contig() bool    { return e.info&infoContig != 0 }
func (e *CoremapEntry_t) writable() bool  { return e.info&infoWritable != 0 }

func (e *CoremapEntry_t) setFlag(bit uint32, v bool) {
	if v {
		e.info |= bit
	} else {
		e.info &^= bit
	}
}

// Coremap_t is the physical frame allocator. entries[i] describes the
// frame at paddr = firstPaddr + i*PAGE_SIZE; mem holds the simulated
// backing bytes for every managed frame, indexed the same way.
type Coremap_t struct {
	lock       synch.Spinlock_t
	entries    []CoremapEntry_t
	mem        []byte
	firstPaddr defs.Pa_t
	nMapped    int
	freeCount  int
}

// header/entry sizes below are notional — used only to reproduce the
// bootstrap self-placement arithmetic that decides where firstPaddr lands,
// even though this implementation's Coremap_t does not literally live
// inside the frames it manages the way a C struct placed at the start of
// free memory would.
const (
	headerBytes = 32
	entryBytes  = 16
)

// Bootstrap builds a coremap managing the physical range
// [firstFreePaddr, ramSize).
func Bootstrap(firstFreePaddr, ramSize defs.Pa_t) *Coremap_t {
	if firstFreePaddr%limits.PAGE_SIZE != 0 {
		panic("mem.Bootstrap: firstFreePaddr not page-aligned")
	}
	if ramSize <= firstFreePaddr {
		panic("mem.Bootstrap: no usable RAM above firstFreePaddr")
	}
	pagesFree := int(ramSize-firstFreePaddr) / limits.PAGE_SIZE
	coremapBytes := headerBytes + pagesFree*entryBytes
	nCoremapPages := util.Roundup(coremapBytes, limits.PAGE_SIZE) / limits.PAGE_SIZE
	if nCoremapPages > pagesFree {
		nCoremapPages = pagesFree
	}
	firstPaddr := firstFreePaddr + defs.Pa_t(nCoremapPages*limits.PAGE_SIZE)
	nMapped := pagesFree - nCoremapPages

	cm := &Coremap_t{
		entries:    make([]CoremapEntry_t, nMapped),
		mem:        make([]byte, nMapped*limits.PAGE_SIZE),
		firstPaddr: firstPaddr,
		nMapped:    nMapped,
		freeCount:  nMapped,
	}
	for i := range cm.entries {
		paddr := uint32(firstPaddr) + uint32(i*limits.PAGE_SIZE)
		cm.entries[i].info = paddr & infoFrameMask
	}
	return cm
}

func (cm *Coremap_t) paddrOf(idx int) defs.Pa_t {
	return cm.firstPaddr + defs.Pa_t(idx*limits.PAGE_SIZE)
}

func (cm *Coremap_t) indexOf(paddr defs.Pa_t) (int, bool) {
	if paddr < cm.firstPaddr {
		return 0, false
	}
	off := paddr - cm.firstPaddr
	if off%limits.PAGE_SIZE != 0 {
		return 0, false
	}
	idx := int(off) / limits.PAGE_SIZE
	if idx >= cm.nMapped {
		return 0, false
	}
	return idx, true
}

func (cm *Coremap_t) pageBytes(idx int) []byte {
	return cm.mem[idx*limits.PAGE_SIZE : (idx+1)*limits.PAGE_SIZE]
}

// NMapped and FirstPaddr let vm reason about index bounds without reaching
// into Coremap_t's internals.
func (cm *Coremap_t) NMapped() int          { return cm.nMapped }
func (cm *Coremap_t) FirstPaddr() defs.Pa_t { return cm.firstPaddr }

// AllocKpages allocates a contiguous run of n frames for kernel use,
// returning the kernel-virtual (== physical, per the KSEG0 identity map)
// address of the first frame, or 0 on failure.
func (cm *Coremap_t) AllocKpages(n int) defs.Pa_t {
	if n <= 0 {
		return 0
	}
	cm.lock.Lock()
	defer cm.lock.Unlock()
	if cm.freeCount < n {
		return 0
	}
	for start := 0; start+n <= cm.nMapped; start++ {
		free := true
		for j := 0; j < n; j++ {
			if cm.entries[start+j].allocated() {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		for j := 0; j < n; j++ {
			e := &cm.entries[start+j]
			e.setFlag(infoAllocated, true)
			e.setFlag(infoContig, j != 0)
			e.setFlag(infoWritable, true)
		}
		cm.freeCount -= n
		return cm.paddrOf(start)
	}
	return 0
}

// FreeKpages frees the contiguous run starting at vaddr. Malformed input
// (unaligned, out of range) is a silent no-op. The forward walk is
// bounded by nMapped so it can never read past the managed array.
func (cm *Coremap_t) FreeKpages(vaddr defs.Pa_t) {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	idx, ok := cm.indexOf(vaddr)
	if !ok {
		return
	}
	if !cm.entries[idx].allocated() {
		return
	}
	cm.entries[idx].setFlag(infoAllocated, false)
	cm.entries[idx].setFlag(infoContig, false)
	cm.freeCount++
	for i := idx + 1; i < cm.nMapped; i++ {
		e := &cm.entries[i]
		if !e.allocated() || !e.contig() {
			break
		}
		e.setFlag(infoAllocated, false)
		e.setFlag(infoContig, false)
		cm.freeCount++
	}
}

// AllocUpage allocates one frame for user space, tagging it with the
// owning address space and the virtual address it is bound to.
func (cm *Coremap_t) AllocUpage(as interface{}, vaddr uintptr) (defs.Pa_t, defs.Err_t) {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	for i := 0; i < cm.nMapped; i++ {
		e := &cm.entries[i]
		if e.allocated() {
			continue
		}
		e.setFlag(infoAllocated, true)
		e.setFlag(infoContig, false)
		e.setFlag(infoWritable, true)
		e.As = as
		e.Vaddr = vaddr
		cm.freeCount--
		return cm.paddrOf(i), 0
	}
	return 0, defs.ENOMEM
}

// FreeUpage frees a single user frame. as must match the frame's recorded
// owner, or EPERM is returned. The range check is against nMapped, the
// fixed mapped-frame count, not against the free counter, which changes
// as frames come and go.
func (cm *Coremap_t) FreeUpage(paddr defs.Pa_t, as interface{}) defs.Err_t {
	cm.lock.Lock()
	defer cm.lock.Unlock()
	idx, ok := cm.indexOf(paddr)
	if !ok || idx >= cm.nMapped {
		panic("mem.FreeUpage: index out of range")
	}
	e := &cm.entries[idx]
	if e.As != as {
		return defs.EPERM
	}
	e.As = nil
	e.Vaddr = 0
	e.setFlag(infoAllocated, false)
	e.setFlag(infoContig, false)
	e.setFlag(infoWritable, false)
	cm.freeCount++
	return 0
}

// CopyPage copies PAGE_SIZE bytes from src to dest; dest must be allocated
// and writable.
func (cm *Coremap_t) CopyPage(src, dest defs.Pa_t) defs.Err_t {
	if src%limits.PAGE_SIZE != 0 || dest%limits.PAGE_SIZE != 0 {
		return defs.EINVAL
	}
	cm.lock.Lock()
	defer cm.lock.Unlock()
	si, ok := cm.indexOf(src)
	if !ok {
		return defs.EFAULT
	}
	di, ok := cm.indexOf(dest)
	if !ok {
		return defs.EFAULT
	}
	d := &cm.entries[di]
	if !d.allocated() || !d.writable() {
		return defs.EFAULT
	}
	copy(cm.pageBytes(di), cm.pageBytes(si))
	return 0
}

// FrameBytes returns the simulated backing bytes for the frame at paddr.
// Used by vm for copyin/copyout and for zeroing freshly allocated pages.
func (cm *Coremap_t) FrameBytes(paddr defs.Pa_t) []byte {
	idx, ok := cm.indexOf(paddr)
	if !ok {
		panic("mem.FrameBytes: index out of range")
	}
	return cm.pageBytes(idx)
}

// UsedBytes reports (nMapped-freeCount)*PAGE_SIZE without taking the
// coremap lock; the result may be stale the instant it is returned.
func (cm *Coremap_t) UsedBytes() int {
	return (cm.nMapped - cm.freeCount) * limits.PAGE_SIZE
}
