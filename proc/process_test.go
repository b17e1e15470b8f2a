package proc

import (
	"testing"
	"time"

	"kernelcore/defs"
)

func mkTestProcess(pid defs.Pid_t) *Process_t {
	p := mkProcess("x", 0, nil, nil, nil)
	p.Pid = pid
	return p
}

func TestExitSetsStatusAndExited(t *testing.T) {
	p := mkTestProcess(1)
	p.Exit(defs.MKWAIT_EXIT(7))
	if !p.Exited() {
		t.Fatalf("expected Exited() true after Exit")
	}
	if got := p.WaitExited(2); defs.WEXITSTATUS(got) != 7 {
		t.Fatalf("exit status = %d, want 7", defs.WEXITSTATUS(got))
	}
}

func TestExitCalledTwicePanics(t *testing.T) {
	p := mkTestProcess(1)
	p.Exit(0)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on second Exit")
		}
	}()
	p.Exit(0)
}

func TestWaitExitedBlocksUntilExit(t *testing.T) {
	p := mkTestProcess(1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		p.Exit(defs.MKWAIT_EXIT(9))
	}()

	status := p.WaitExited(2)
	if defs.WEXITSTATUS(status) != 9 {
		t.Fatalf("status = %d, want 9", defs.WEXITSTATUS(status))
	}
}

func TestWaitExitedReturnsImmediatelyIfAlreadyExited(t *testing.T) {
	p := mkTestProcess(1)
	p.Exit(defs.MKWAIT_EXIT(3))

	done := make(chan int, 1)
	go func() { done <- p.WaitExited(2) }()

	select {
	case status := <-done:
		if defs.WEXITSTATUS(status) != 3 {
			t.Fatalf("status = %d, want 3", defs.WEXITSTATUS(status))
		}
	case <-time.After(time.Second):
		t.Fatalf("WaitExited blocked on an already-exited process")
	}
}
