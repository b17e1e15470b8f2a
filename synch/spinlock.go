// Package synch implements the kernel's blocking primitives: a spinlock
// stand-in, wait channels, semaphores, a non-recursive blocking mutex,
// condition variables, and a writer-preferring reader/writer lock.
package synch

import "sync"

// Spinlock_t is the leaf lock every other primitive in this package builds
// on. It does not spin on real hardware here — there is no way to disable
// local-CPU preemption from a goroutine — but it is used the way a spinlock
// is meant to be used: held only across short, non-blocking critical
// sections.
type Spinlock_t struct {
	mu sync.Mutex
}

func (s *Spinlock_t) Lock()   { s.mu.Lock() }
func (s *Spinlock_t) Unlock() { s.mu.Unlock() }
