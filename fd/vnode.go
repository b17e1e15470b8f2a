package fd

import (
	"sync"

	"kernelcore/defs"
	"kernelcore/fdops"
)

// consoleVnode_t backs the pre-opened stdin/stdout/stderr slots every file
// table starts with: read drains a shared input queue, write appends to a
// shared output log, without pretending to be a real device driver.
type consoleVnode_t struct {
	mu       sync.Mutex
	refcount int
	in       []byte
	out      []byte
}

func newConsoleVnode() *consoleVnode_t {
	return &consoleVnode_t{refcount: 1}
}

func (c *consoleVnode_t) VopRead(dst []byte, off int) (int, defs.Err_t) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := copy(dst, c.in)
	c.in = c.in[n:]
	return n, 0
}

func (c *consoleVnode_t) VopWrite(src []byte, off int) (int, defs.Err_t) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, src...)
	return len(src), 0
}

func (c *consoleVnode_t) VopIncref() {
	c.mu.Lock()
	c.refcount++
	c.mu.Unlock()
}

func (c *consoleVnode_t) VopDecref() {
	c.mu.Lock()
	c.refcount--
	c.mu.Unlock()
}

// VopIsSeekable is always false: a console has no notion of position.
func (c *consoleVnode_t) VopIsSeekable() bool { return false }

func (c *consoleVnode_t) VopStat() (int, defs.Err_t) {
	return 0, defs.ESPIPE
}

// Feed queues bytes for a later console read — used by tests and by
// whatever in this core plays the role of a keyboard driver.
func (c *consoleVnode_t) Feed(b []byte) {
	c.mu.Lock()
	c.in = append(c.in, b...)
	c.mu.Unlock()
}

// Written returns everything ever written to this console vnode — used by
// tests to observe stdout/stderr without a real terminal.
func (c *consoleVnode_t) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.out...)
}

// memVnode_t backs regular files opened by path. Storage is an in-memory
// byte slice shared by every open of the same path, so every open of the
// same path sees the same underlying vnode.
type memVnode_t struct {
	mu       sync.Mutex
	refcount int
	data     []byte
}

func (m *memVnode_t) VopRead(dst []byte, off int) (int, defs.Err_t) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if off >= len(m.data) {
		return 0, 0
	}
	n := copy(dst, m.data[off:])
	return n, 0
}

func (m *memVnode_t) VopWrite(src []byte, off int) (int, defs.Err_t) {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := off + len(src)
	if end > len(m.data) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:end], src)
	return len(src), 0
}

func (m *memVnode_t) VopIncref() {
	m.mu.Lock()
	m.refcount++
	m.mu.Unlock()
}

func (m *memVnode_t) VopDecref() {
	m.mu.Lock()
	m.refcount--
	m.mu.Unlock()
}

// VopIsSeekable is always true: a regular file has a well-defined extent.
func (m *memVnode_t) VopIsSeekable() bool { return true }

func (m *memVnode_t) VopStat() (int, defs.Err_t) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data), 0
}

// memFs_t is the process-wide table of regular-file vnodes, indexed by the
// path string exactly as passed to Open (no canonicalization): looks up an
// existing vnode or creates one, minus a real directory tree.
type memFs_t struct {
	mu    sync.Mutex
	files map[string]*memVnode_t
}

func newMemFs() *memFs_t {
	return &memFs_t{files: make(map[string]*memVnode_t)}
}

// Open returns the vnode for path, creating it (with a fresh incref'd
// reference) if O_CREAT is set and no such file exists. Absent a real
// directory tree, any path string is a valid file name.
func (fs *memFs_t) Open(path string, flags defs.Fdopt_t) (fdops.Vnode_i, defs.Err_t) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	vn, ok := fs.files[path]
	if !ok {
		if flags&defs.O_CREAT == 0 {
			return nil, defs.ENOENT
		}
		vn = &memVnode_t{refcount: 0}
		fs.files[path] = vn
	} else if flags&defs.O_EXCL != 0 && flags&defs.O_CREAT != 0 {
		return nil, defs.EEXIST
	}
	if flags&defs.O_TRUNC != 0 {
		vn.data = nil
	}
	vn.VopIncref()
	return vn, 0
}

var rootFs = newMemFs()
