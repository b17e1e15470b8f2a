package defs

// Device identifiers known to the file-table bootstrap. Only the console is
// modeled: stdin/stdout/stderr are pre-opened against it.
const (
	D_CONSOLE int = 1
)
