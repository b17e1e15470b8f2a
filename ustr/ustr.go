package ustr

type Ustr []uint8

func (us Ustr) Isdot() bool {
	return len(us) == 1 && us[0] == '.'
}

func (us Ustr) Isdotdot() bool {
	return len(us) == 2 && us[0] == '.' && us[1] == '.'
}

func MkUstr() Ustr {
	us := Ustr{}
	return us
}

func MkUstrRoot() Ustr {
	us := Ustr("/")
	return us
}

// Extend appends p to us as a new path component, joined by a single
// slash. It never mutates us: Cwd_t.Fullpath relies on that to hand out a
// fresh path without aliasing the stored cwd.
func (us Ustr) Extend(p Ustr) Ustr {
	tmp := make(Ustr, len(us))
	copy(tmp, us)
	r := append(tmp, '/')
	return append(r, p...)
}

func (us Ustr) IsAbsolute() bool {
	if len(us) == 0 {
		return false
	}
	return us[0] == '/'
}

func (us Ustr) IndexByte(b uint8) int {
	for i, v := range us {
		if v == b {
			return i
		}
	}
	return -1
}

func (us Ustr) String() string {
	return string(us)
}
