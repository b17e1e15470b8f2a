package proc

import (
	"testing"

	"kernelcore/defs"
	"kernelcore/limits"
	"kernelcore/mem"
)

func testCoremap(t *testing.T) *mem.Coremap_t {
	t.Helper()
	const first defs.Pa_t = 0x10000
	return mem.Bootstrap(first, first+defs.Pa_t(64*limits.PAGE_SIZE))
}

func TestInsertUntilFullReturnsEMPROC(t *testing.T) {
	pt := MkProcTable()
	cm := testCoremap(t)

	n := limits.PID_MAX - limits.PID_MIN
	for i := 0; i < n; i++ {
		p := NewRootProcess("filler", cm)
		if _, err := pt.Insert(p); err != 0 {
			t.Fatalf("insert %d: unexpected %v", i, err)
		}
	}

	overflow := NewRootProcess("overflow", cm)
	if _, err := pt.Insert(overflow); err != defs.EMPROC {
		t.Fatalf("insert on full table = %v, want EMPROC", err)
	}
}

func TestForkRollsBackOnInsertFailure(t *testing.T) {
	pt := MkProcTable()
	cm := testCoremap(t)

	parent := NewRootProcess("parent", cm)
	if _, err := pt.Insert(parent); err != 0 {
		t.Fatalf("insert parent: %v", err)
	}

	// Fill every remaining slot so the next Insert, made from inside
	// Fork, is guaranteed to fail.
	for {
		filler := NewRootProcess("filler", cm)
		if _, err := pt.Insert(filler); err != 0 {
			break
		}
	}

	usedBefore := cm.UsedBytes()
	child, err := pt.Fork(parent)
	if err != defs.EMPROC {
		t.Fatalf("fork on full table = %v, want EMPROC", err)
	}
	if child != nil {
		t.Fatalf("fork returned a child despite insert failure")
	}
	if got := cm.UsedBytes(); got != usedBefore {
		t.Fatalf("fork rollback leaked frames: used %d, want %d", got, usedBefore)
	}
}

func TestForkCopiesAddressSpaceAndSharesFileHandles(t *testing.T) {
	pt := MkProcTable()
	cm := testCoremap(t)
	parent := NewRootProcess("parent", cm)
	if _, err := pt.Insert(parent); err != 0 {
		t.Fatalf("insert parent: %v", err)
	}
	fdnum, err := parent.Files.Open("/tmp/forktest", defs.O_RDWR|defs.O_CREAT)
	if err != 0 {
		t.Fatalf("open: %v", err)
	}

	child, err := pt.Fork(parent)
	if err != 0 {
		t.Fatalf("fork: %v", err)
	}
	if child.As == parent.As {
		t.Fatalf("fork shared the address space instead of copying it")
	}
	if _, err := child.Files.Get(fdnum); err != 0 {
		t.Fatalf("child missing parent's fd: %v", err)
	}
	if child.Ppid != parent.Pid {
		t.Fatalf("child ppid = %d, want %d", child.Ppid, parent.Pid)
	}
}

func TestGetAndRemoveRejectOutOfRangePid(t *testing.T) {
	pt := MkProcTable()
	if _, err := pt.Get(0); err != defs.ESRCH {
		t.Fatalf("get(0) = %v, want ESRCH", err)
	}
	if _, err := pt.Get(limits.PID_MAX); err != defs.ESRCH {
		t.Fatalf("get(PID_MAX) = %v, want ESRCH", err)
	}
	if _, err := pt.Remove(limits.PID_MAX); err != defs.ESRCH {
		t.Fatalf("remove(PID_MAX) = %v, want ESRCH", err)
	}
}

func TestRemoveClearsSlotAndReturnsOccupant(t *testing.T) {
	pt := MkProcTable()
	cm := testCoremap(t)
	p := NewRootProcess("x", cm)
	pid, err := pt.Insert(p)
	if err != 0 {
		t.Fatalf("insert: %v", err)
	}

	got, err := pt.Remove(pid)
	if err != 0 || got != p {
		t.Fatalf("remove: got=%v err=%v, want %v", got, err, p)
	}
	if _, err := pt.Get(pid); err != defs.ESRCH {
		t.Fatalf("get after remove = %v, want ESRCH", err)
	}
}
