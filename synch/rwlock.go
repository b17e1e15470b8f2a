package synch

import "kernelcore/defs"

// RWLock_t is a writer-preferring reader/writer lock: a reader blocks not
// only while a writer holds the lock but also while one is merely queued
// behind active readers, so a reader arriving after a writer has already
// started waiting cannot cut in front of it. writersWaiting tracks queued
// writers separately from the single active-writer flag to make that
// ordering possible.
type RWLock_t struct {
	lock           Spinlock_t
	readerWchan    *Wchan_t
	writerWchan    *Wchan_t
	readerCount    int
	writerCount    int
	writersWaiting int
	writerThread   defs.Tid_t
}

func MkRWLock() *RWLock_t {
	rw := &RWLock_t{writerThread: noholder}
	rw.readerWchan = MkWchan(&rw.lock)
	rw.writerWchan = MkWchan(&rw.lock)
	return rw
}

func (rw *RWLock_t) AcquireRead() {
	rw.lock.Lock()
	for rw.writerCount != 0 || rw.writersWaiting != 0 {
		rw.readerWchan.Sleep()
	}
	rw.readerCount++
	rw.lock.Unlock()
}

func (rw *RWLock_t) ReleaseRead() {
	rw.lock.Lock()
	rw.readerCount--
	if rw.readerCount < 0 {
		panic("RWLock_t: reader count went negative")
	}
	if rw.readerCount == 0 {
		rw.writerWchan.Wakeone()
	}
	rw.lock.Unlock()
}

func (rw *RWLock_t) AcquireWrite(self defs.Tid_t) {
	rw.lock.Lock()
	rw.writersWaiting++
	for rw.writerCount != 0 || rw.readerCount != 0 {
		rw.writerWchan.Sleep()
	}
	rw.writersWaiting--
	rw.writerCount = 1
	rw.writerThread = self
	rw.lock.Unlock()
}

func (rw *RWLock_t) ReleaseWrite(self defs.Tid_t) {
	rw.lock.Lock()
	if rw.writerThread != self {
		rw.lock.Unlock()
		panic("RWLock_t: release_write by non-owner")
	}
	rw.writerCount--
	rw.writerThread = noholder
	// readerCount is necessarily 0 here: no reader can have incremented it
	// while a writer held the lock. A parked reader hasn't incremented it
	// either — AcquireRead only does that after it wakes and exits its
	// wait loop. So whether to wake readers can't be decided by looking
	// at readerCount; it has to be decided by whether a writer is still
	// queued.
	if rw.writersWaiting > 0 {
		rw.writerWchan.Wakeone()
	} else {
		rw.readerWchan.Wakeall()
	}
	rw.lock.Unlock()
}
