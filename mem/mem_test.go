package mem

import (
	"testing"

	"kernelcore/defs"
	"kernelcore/limits"
)

func bootFor(t *testing.T, nFrames int) *Coremap_t {
	t.Helper()
	const first defs.Pa_t = 0x10000
	ram := first + defs.Pa_t((nFrames+8)*limits.PAGE_SIZE)
	cm := Bootstrap(first, ram)
	if cm.NMapped() < nFrames {
		t.Fatalf("want at least %d mapped frames, got %d", nFrames, cm.NMapped())
	}
	return cm
}

func TestFrameAllocatorRoundTrip(t *testing.T) {
	cm := bootFor(t, 1000)

	v1 := cm.AllocKpages(4)
	if v1 == 0 {
		t.Fatalf("alloc_kpages(4) failed")
	}
	v2 := cm.AllocKpages(1)
	if v2 == 0 {
		t.Fatalf("alloc_kpages(1) failed")
	}
	cm.FreeKpages(v1)
	if got, want := cm.UsedBytes(), 1*limits.PAGE_SIZE; got != want {
		t.Fatalf("used_bytes = %d, want %d", got, want)
	}
	v3 := cm.AllocKpages(3)
	if v3 == 0 {
		t.Fatalf("alloc_kpages(3) failed")
	}
	if v3 < v1 || v3 >= v1+4*limits.PAGE_SIZE {
		t.Fatalf("v3 (%#x) does not lie in the freed run starting at v1 (%#x)", v3, v1)
	}
}

func TestAllocKpagesZero(t *testing.T) {
	cm := bootFor(t, 16)
	if v := cm.AllocKpages(0); v != 0 {
		t.Fatalf("alloc_kpages(0) = %#x, want 0", v)
	}
}

func TestAllocKpagesExceedsFree(t *testing.T) {
	cm := bootFor(t, 16)
	before := cm.UsedBytes()
	if v := cm.AllocKpages(cm.NMapped() + 1); v != 0 {
		t.Fatalf("alloc_kpages(free+1) = %#x, want 0", v)
	}
	if after := cm.UsedBytes(); after != before {
		t.Fatalf("state changed on failed allocation: %d -> %d", before, after)
	}
}

func TestFreeKpagesUnalignedOrOutOfRangeNoop(t *testing.T) {
	cm := bootFor(t, 16)
	before := cm.UsedBytes()
	cm.FreeKpages(cm.FirstPaddr() + 1)
	cm.FreeKpages(0)
	if after := cm.UsedBytes(); after != before {
		t.Fatalf("free_kpages on bad address mutated state: %d -> %d", before, after)
	}
}

func TestNoOverlappingRuns(t *testing.T) {
	cm := bootFor(t, 64)
	a := cm.AllocKpages(5)
	b := cm.AllocKpages(5)
	if a == 0 || b == 0 {
		t.Fatalf("allocation failed")
	}
	aEnd := a + defs.Pa_t(5*limits.PAGE_SIZE)
	if b >= a && b < aEnd {
		t.Fatalf("run b (%#x) overlaps run a (%#x..%#x)", b, a, aEnd)
	}
}

func TestUpageOwnershipEnforced(t *testing.T) {
	cm := bootFor(t, 16)
	owner := &struct{ x int }{1}
	other := &struct{ x int }{2}
	paddr, err := cm.AllocUpage(owner, 0x1000)
	if err != 0 {
		t.Fatalf("alloc_upage failed: %v", err)
	}
	if err := cm.FreeUpage(paddr, other); err != defs.EPERM {
		t.Fatalf("free_upage by non-owner = %v, want EPERM", err)
	}
	if err := cm.FreeUpage(paddr, owner); err != 0 {
		t.Fatalf("free_upage by owner failed: %v", err)
	}
}

func TestCopyPage(t *testing.T) {
	cm := bootFor(t, 16)
	src, err := cm.AllocUpage(nil, 0)
	if err != 0 {
		t.Fatalf("alloc src: %v", err)
	}
	dst, err := cm.AllocUpage(nil, limits.PAGE_SIZE)
	if err != 0 {
		t.Fatalf("alloc dst: %v", err)
	}
	cm.FrameBytes(src)[0] = 0xAA
	if err := cm.CopyPage(src, dst); err != 0 {
		t.Fatalf("copy_page: %v", err)
	}
	if cm.FrameBytes(dst)[0] != 0xAA {
		t.Fatalf("copy_page did not copy byte 0")
	}
	cm.FrameBytes(src)[0] = 0xBB
	if cm.FrameBytes(dst)[0] != 0xAA {
		t.Fatalf("copy_page did not make an independent copy")
	}
}
