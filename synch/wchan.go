package synch

import "sync"

// Wchan_t is a wait channel: parking on it atomically releases the given
// lock and re-acquires it on wake. It is a thin wrapper over sync.Cond.
type Wchan_t struct {
	cond *sync.Cond
}

func MkWchan(l sync.Locker) *Wchan_t {
	return &Wchan_t{cond: sync.NewCond(l)}
}

// Sleep parks the caller. The caller must hold the lock Wchan_t was built
// with; it is released while parked and reacquired before Sleep returns.
func (w *Wchan_t) Sleep() { w.cond.Wait() }

func (w *Wchan_t) Wakeone() { w.cond.Signal() }

func (w *Wchan_t) Wakeall() { w.cond.Broadcast() }
