// Package proc implements the process table and per-process state:
// PID-indexed slots, fork/exit/wait resource bookkeeping, and the
// exit-wait rendezvous waitpid blocks on.
package proc

import (
	"kernelcore/defs"
	"kernelcore/limits"
	"kernelcore/synch"
)

// ProcTable_t is the PID-indexed process table.
type ProcTable_t struct {
	lock  synch.Spinlock_t
	table [limits.PID_MAX]*Process_t
}

func MkProcTable() *ProcTable_t {
	return &ProcTable_t{}
}

// Insert places p in the first free slot in [PID_MIN, PID_MAX) and sets
// p.Pid to that slot. EMPROC if the table is full.
func (pt *ProcTable_t) Insert(p *Process_t) (defs.Pid_t, defs.Err_t) {
	pt.lock.Lock()
	defer pt.lock.Unlock()
	for pid := limits.PID_MIN; pid < limits.PID_MAX; pid++ {
		if pt.table[pid] != nil {
			continue
		}
		pt.table[pid] = p
		p.Pid = defs.Pid_t(pid)
		return p.Pid, 0
	}
	return 0, defs.EMPROC
}

// Remove clears pid's slot and returns what was there (possibly nil).
func (pt *ProcTable_t) Remove(pid defs.Pid_t) (*Process_t, defs.Err_t) {
	if pid < limits.PID_MIN || pid >= limits.PID_MAX {
		return nil, defs.ESRCH
	}
	pt.lock.Lock()
	defer pt.lock.Unlock()
	p := pt.table[pid]
	pt.table[pid] = nil
	return p, 0
}

// Fork builds a child of parent: a deep copy of its address space, a
// refcount-bumped copy of its file table, and a new table slot. Any
// failure rolls back everything done so far.
func (pt *ProcTable_t) Fork(parent *Process_t) (*Process_t, defs.Err_t) {
	childAs, err := parent.As.Copy()
	if err != 0 {
		return nil, err
	}
	childFiles := parent.Files.Copy()

	child := mkProcess(parent.Name, parent.Pid, childAs, childFiles, parent.Cwd)
	if _, err := pt.Insert(child); err != 0 {
		childAs.Destroy()
		childFiles.Destroy()
		return nil, err
	}
	return child, 0
}

// Get returns pid's process. ESRCH if out of range or the slot is empty.
func (pt *ProcTable_t) Get(pid defs.Pid_t) (*Process_t, defs.Err_t) {
	if pid < limits.PID_MIN || pid >= limits.PID_MAX {
		return nil, defs.ESRCH
	}
	pt.lock.Lock()
	defer pt.lock.Unlock()
	p := pt.table[pid]
	if p == nil {
		return nil, defs.ESRCH
	}
	return p, 0
}
