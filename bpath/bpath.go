package bpath

import "kernelcore/ustr"

// Pathparts_t walks a path one slash-delimited component at a time
// without allocating a []Ustr to hold them.
type Pathparts_t struct {
	path ustr.Ustr
	loc  int
}

func (pp *Pathparts_t) Pp_init(path ustr.Ustr) {
	pp.path = path
	pp.loc = 0
}

func (pp *Pathparts_t) Next() (ustr.Ustr, bool) {
	ret := ustr.MkUstr()
	for len(ret) == 0 {
		if pp.loc == len(pp.path) {
			return ustr.MkUstr(), false
		}
		ret = pp.path[pp.loc:]
		nloc := ustr.Ustr.IndexByte(ret, '/')
		if nloc != -1 {
			ret = ret[:nloc]
			pp.loc += nloc + 1
		} else {
			pp.loc += len(ret)
		}
	}
	return ret, true
}

// Canonicalize resolves "." and ".." components and collapses repeated
// slashes, walking path one component at a time with Pathparts_t. A ".."
// at the root of an absolute path, or with no preceding component to
// cancel in a relative one, is dropped rather than erroring: there is no
// parent to climb to.
func Canonicalize(path ustr.Ustr) ustr.Ustr {
	abs := path.IsAbsolute()

	var pp Pathparts_t
	pp.Pp_init(path)
	var parts []ustr.Ustr
	for {
		comp, ok := pp.Next()
		if !ok {
			break
		}
		switch {
		case comp.Isdot():
		case comp.Isdotdot():
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, comp)
		}
	}

	if len(parts) == 0 {
		if abs {
			return ustr.MkUstrRoot()
		}
		return ustr.MkUstr()
	}

	out := ustr.MkUstr()
	if abs {
		out = append(ustr.MkUstrRoot(), parts[0]...)
	} else {
		out = append(out, parts[0]...)
	}
	for _, p := range parts[1:] {
		out = out.Extend(p)
	}
	return out
}
