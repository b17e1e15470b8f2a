// Package vm implements the per-process two-level page table, address
// space, and TLB-refill fault handler, plus the page-fault-safe
// user-memory copyin/copyout helpers the syscall layer needs for
// read/write/execv.
package vm

import (
	"kernelcore/defs"
	"kernelcore/mem"
	"kernelcore/synch"
)

const (
	entriesPerLevel = 1024

	firstLevelShift  = 22
	secondLevelShift = 12
	firstLevelMask   = uintptr(0xFFC00000)
	secondLevelMask  = uintptr(0x003FF000)
)

func firstLevelIndex(vaddr uintptr) int {
	return int((vaddr & firstLevelMask) >> firstLevelShift)
}

func secondLevelIndex(vaddr uintptr) int {
	return int((vaddr & secondLevelMask) >> secondLevelShift)
}

// PageTableEntry_t records one virtual page's backing. Paddr == 0 means
// present-but-unbacked — the lazy-allocation state a page fault resolves.
type PageTableEntry_t struct {
	Vaddr uintptr
	Paddr defs.Pa_t
}

// PageTable_t is the two-level table: a fixed first-level array of
// on-demand second-level arrays of pointers to individually allocated
// entries.
type PageTable_t struct {
	lock   synch.Spinlock_t
	levels [entriesPerLevel][]*PageTableEntry_t
	nAlloc int
}

func MkPageTable() *PageTable_t {
	return &PageTable_t{}
}

func (pgt *PageTable_t) NAlloc() int {
	pgt.lock.Lock()
	defer pgt.lock.Unlock()
	return pgt.nAlloc
}

// AllocPage creates an unbacked entry for vaddr. The caller guarantees
// vaddr is page-aligned and within a defined segment.
func (pgt *PageTable_t) AllocPage(vaddr uintptr) defs.Err_t {
	fl := firstLevelIndex(vaddr)
	sl := secondLevelIndex(vaddr)

	pgt.lock.Lock()
	defer pgt.lock.Unlock()

	if pgt.levels[fl] == nil {
		pgt.levels[fl] = make([]*PageTableEntry_t, entriesPerLevel)
	}
	if pgt.levels[fl][sl] != nil {
		return defs.EFAULT
	}
	pgt.levels[fl][sl] = &PageTableEntry_t{Vaddr: vaddr, Paddr: 0}
	pgt.nAlloc++
	return 0
}

// FreePage detaches the entry for vaddr, if any, and frees its backing
// frame. owner is the address space to pass to mem.FreeUpage for
// ownership verification.
func (pgt *PageTable_t) FreePage(cm *mem.Coremap_t, owner interface{}, vaddr uintptr) defs.Err_t {
	fl := firstLevelIndex(vaddr)
	sl := secondLevelIndex(vaddr)

	pgt.lock.Lock()
	if pgt.levels[fl] == nil {
		pgt.lock.Unlock()
		return 0
	}
	pte := pgt.levels[fl][sl]
	if pte == nil {
		pgt.lock.Unlock()
		return 0
	}
	pgt.levels[fl][sl] = nil
	pgt.nAlloc--
	paddr := pte.Paddr
	pgt.lock.Unlock()

	if paddr == 0 {
		return 0
	}
	return cm.FreeUpage(paddr, owner)
}

// GetEntry looks up vaddr without allocating any intermediate level.
func (pgt *PageTable_t) GetEntry(vaddr uintptr) *PageTableEntry_t {
	fl := firstLevelIndex(vaddr)
	sl := secondLevelIndex(vaddr)

	pgt.lock.Lock()
	defer pgt.lock.Unlock()
	if pgt.levels[fl] == nil {
		return nil
	}
	return pgt.levels[fl][sl]
}

// Copy builds a fresh table with a frame-copied backing for every live
// entry of pgt, owned by newOwner. On ENOMEM partway through, the partial
// new table is destroyed before the error is returned.
func (pgt *PageTable_t) Copy(cm *mem.Coremap_t, newOwner interface{}) (*PageTable_t, defs.Err_t) {
	dst := MkPageTable()

	pgt.lock.Lock()
	defer pgt.lock.Unlock()

	for fl := 0; fl < entriesPerLevel; fl++ {
		if pgt.levels[fl] == nil {
			continue
		}
		for sl := 0; sl < entriesPerLevel; sl++ {
			src := pgt.levels[fl][sl]
			if src == nil {
				continue
			}
			if dst.levels[fl] == nil {
				dst.levels[fl] = make([]*PageTableEntry_t, entriesPerLevel)
			}
			npte := &PageTableEntry_t{Vaddr: src.Vaddr}
			if src.Paddr != 0 {
				np, err := cm.AllocUpage(newOwner, src.Vaddr)
				if err != 0 {
					dst.destroyLocked(cm, newOwner)
					return nil, err
				}
				if err := cm.CopyPage(src.Paddr, np); err != 0 {
					dst.destroyLocked(cm, newOwner)
					return nil, err
				}
				npte.Paddr = np
			}
			dst.levels[fl][sl] = npte
			dst.nAlloc++
		}
	}
	return dst, 0
}

// Destroy frees every live entry's backing frame and the entry itself,
// then asserts the table is fully torn down.
func (pgt *PageTable_t) Destroy(cm *mem.Coremap_t, owner interface{}) {
	pgt.lock.Lock()
	defer pgt.lock.Unlock()
	pgt.destroyLocked(cm, owner)
}

func (pgt *PageTable_t) destroyLocked(cm *mem.Coremap_t, owner interface{}) {
	for fl := 0; fl < entriesPerLevel; fl++ {
		if pgt.levels[fl] == nil {
			continue
		}
		for sl := 0; sl < entriesPerLevel; sl++ {
			pte := pgt.levels[fl][sl]
			if pte == nil {
				continue
			}
			if pte.Paddr != 0 {
				if err := cm.FreeUpage(pte.Paddr, owner); err != 0 {
					panic("vm: destroy: free_upage of owned frame failed")
				}
			}
			pgt.levels[fl][sl] = nil
			pgt.nAlloc--
		}
		pgt.levels[fl] = nil
	}
	if pgt.nAlloc != 0 {
		panic("vm: destroy: n_alloc != 0 after sweep")
	}
}
