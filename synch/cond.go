package synch

import "kernelcore/defs"

// CV_t is a condition variable tied to a caller-supplied Lock_t. The
// caller must hold m before calling Wait/Signal/Broadcast; Wait releases m
// for the duration of the sleep and reacquires it before returning.
type CV_t struct {
	lock  Spinlock_t
	wchan *Wchan_t
}

func MkCV() *CV_t {
	cv := &CV_t{}
	cv.wchan = MkWchan(&cv.lock)
	return cv
}

func (cv *CV_t) Wait(m *Lock_t, self defs.Tid_t) {
	cv.lock.Lock()
	m.Release(self)
	cv.wchan.Sleep()
	cv.lock.Unlock()
	m.Acquire(self)
}

func (cv *CV_t) Signal(m *Lock_t, self defs.Tid_t) {
	if !m.IHold(self) {
		panic("CV_t.Signal without holding the associated lock")
	}
	cv.lock.Lock()
	cv.wchan.Wakeone()
	cv.lock.Unlock()
}

func (cv *CV_t) Broadcast(m *Lock_t, self defs.Tid_t) {
	if !m.IHold(self) {
		panic("CV_t.Broadcast without holding the associated lock")
	}
	cv.lock.Lock()
	cv.wchan.Wakeall()
	cv.lock.Unlock()
}
