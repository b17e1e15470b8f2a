package fd

import (
	"testing"

	"kernelcore/defs"
)

type bufUio struct {
	buf []byte
	off int
}

func mkUio(b []byte) *bufUio { return &bufUio{buf: b} }

func (u *bufUio) Uiowrite(src []byte) (int, defs.Err_t) {
	n := copy(u.buf[u.off:], src)
	u.off += n
	return n, 0
}
func (u *bufUio) Uioread(dst []byte) (int, defs.Err_t) {
	n := copy(dst, u.buf[u.off:])
	u.off += n
	return n, 0
}
func (u *bufUio) Remain() int  { return len(u.buf) - u.off }
func (u *bufUio) Totalsz() int { return len(u.buf) }

func TestStdSlotsPreopened(t *testing.T) {
	ft := MkFileTable()
	if _, err := ft.Get(0); err != 0 {
		t.Fatalf("stdin missing: %v", err)
	}
	if _, err := ft.Get(1); err != 0 {
		t.Fatalf("stdout missing: %v", err)
	}
	if _, err := ft.Get(2); err != 0 {
		t.Fatalf("stderr missing: %v", err)
	}
}

func TestOpenWriteReadRoundTrip(t *testing.T) {
	ft := MkFileTable()
	fdnum, err := ft.Open("/tmp/x", defs.O_RDWR|defs.O_CREAT)
	if err != 0 {
		t.Fatalf("open: %v", err)
	}
	fh, _ := ft.Get(fdnum)

	wb := []byte("hello world")
	n, err := fh.Write(mkUio(wb))
	if err != 0 || n != len(wb) {
		t.Fatalf("write: n=%d err=%v", n, err)
	}

	if _, err := fh.Lseek(0, defs.SEEK_SET); err != 0 {
		t.Fatalf("lseek: %v", err)
	}

	rb := make([]byte, len(wb))
	out := mkUio(rb)
	n, err = fh.Read(out)
	if err != 0 || n != len(wb) || string(rb) != "hello world" {
		t.Fatalf("read: n=%d err=%v got=%q", n, err, rb)
	}
}

func TestLseekSeekEndOnRegularFile(t *testing.T) {
	ft := MkFileTable()
	fdnum, err := ft.Open("/tmp/seekend", defs.O_RDWR|defs.O_CREAT|defs.O_TRUNC)
	if err != 0 {
		t.Fatalf("open: %v", err)
	}
	fh, _ := ft.Get(fdnum)

	wb := []byte("0123456789")
	if n, err := fh.Write(mkUio(wb)); err != 0 || n != len(wb) {
		t.Fatalf("write: n=%d err=%v", n, err)
	}

	off, err := fh.Lseek(-4, defs.SEEK_END)
	if err != 0 {
		t.Fatalf("lseek seek_end: %v", err)
	}
	if off != len(wb)-4 {
		t.Fatalf("expected offset %d, got %d", len(wb)-4, off)
	}
}

func TestLseekRejectsAllWhenceOnConsole(t *testing.T) {
	ft := MkFileTable()
	fh, err := ft.Get(1) // stdout, console-backed
	if err != 0 {
		t.Fatalf("get stdout: %v", err)
	}
	for _, whence := range []int{defs.SEEK_SET, defs.SEEK_CUR, defs.SEEK_END} {
		if _, err := fh.Lseek(0, whence); err != defs.ESPIPE {
			t.Fatalf("whence %d: expected ESPIPE, got %v", whence, err)
		}
	}
}

func TestReadOnlyHandleRejectsWrite(t *testing.T) {
	ft := MkFileTable()
	fh, _ := ft.Get(0)
	if _, err := fh.Write(mkUio([]byte("x"))); err != defs.EBADF {
		t.Fatalf("write on read-only handle = %v, want EBADF", err)
	}
}

func TestCloseDropsRefcountNotSharedHandle(t *testing.T) {
	ft := MkFileTable()
	fdnum, _ := ft.Open("/tmp/y", defs.O_RDWR|defs.O_CREAT)
	newfd, err := ft.Dup2(fdnum, 10)
	if err != 0 {
		t.Fatalf("dup2: %v", err)
	}
	if err := ft.Remove(fdnum); err != 0 {
		t.Fatalf("close original: %v", err)
	}
	fh, err := ft.Get(newfd)
	if err != 0 {
		t.Fatalf("dup'd fd should still be open: %v", err)
	}
	if _, err := fh.Write(mkUio([]byte("still alive"))); err != 0 {
		t.Fatalf("write via surviving dup failed: %v", err)
	}
}

func TestDup2SameFdIsNoop(t *testing.T) {
	ft := MkFileTable()
	if newfd, err := ft.Dup2(1, 1); err != 0 || newfd != 1 {
		t.Fatalf("dup2(1,1) = %d, %v", newfd, err)
	}
}

func TestAddFailsWhenTableFull(t *testing.T) {
	ft := MkFileTable()
	for {
		if _, err := ft.Add(newHandle("x", newConsoleVnode(), defs.O_RDONLY)); err != 0 {
			if err != defs.EMFILE {
				t.Fatalf("unexpected error filling table: %v", err)
			}
			break
		}
	}
}

func TestForkCopySharesHandlesWithBumpedRefcount(t *testing.T) {
	ft := MkFileTable()
	fdnum, _ := ft.Open("/tmp/z", defs.O_RDWR|defs.O_CREAT)
	child := ft.Copy()

	parentFh, _ := ft.Get(fdnum)
	childFh, _ := child.Get(fdnum)
	if parentFh != childFh {
		t.Fatalf("fork copy should share the same handle object")
	}

	if err := ft.Remove(fdnum); err != 0 {
		t.Fatalf("parent close: %v", err)
	}
	if _, err := childFh.Write(mkUio([]byte("child still open"))); err != 0 {
		t.Fatalf("child's copy should survive parent close: %v", err)
	}
}

func TestChdirAndGetcwd(t *testing.T) {
	cwd := MkRootCwd()
	cwd.Chdir([]byte("usr/bin"))
	if got := cwd.Getcwd().String(); got != "/usr/bin" {
		t.Fatalf("getcwd = %q, want /usr/bin", got)
	}
	cwd.Chdir([]byte("../lib"))
	if got := cwd.Getcwd().String(); got != "/usr/lib" {
		t.Fatalf("getcwd after .. = %q, want /usr/lib", got)
	}
}
