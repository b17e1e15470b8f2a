package defs

// Fdopt_t carries the open(2) flag bits this core interprets.
type Fdopt_t uint

const (
	O_RDONLY   Fdopt_t = 0
	O_WRONLY   Fdopt_t = 1
	O_RDWR     Fdopt_t = 2
	O_CREAT    Fdopt_t = 0x40
	O_EXCL     Fdopt_t = 0x80
	O_TRUNC    Fdopt_t = 0x200
	O_APPEND   Fdopt_t = 0x400
	O_CLOEXEC  Fdopt_t = 0x80000
	O_ACCMODE  Fdopt_t = O_RDONLY | O_WRONLY | O_RDWR
)

const (
	SEEK_SET = 0
	SEEK_CUR = 1
	SEEK_END = 2
)

// waitpid's options argument. Only WOPT_NONE is accepted; Waitpid rejects
// any nonzero value, and the other names are not consulted.
const (
	WOPT_NONE      = 0
	WOPT_NOHANG    = 1
	WOPT_UNTRACED  = 2
)
