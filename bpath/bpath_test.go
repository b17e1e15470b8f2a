package bpath

import (
	"testing"

	"kernelcore/ustr"
)

func canon(s string) string {
	return Canonicalize(ustr.Ustr(s)).String()
}

func TestCanonicalizeCollapsesSlashesAndDot(t *testing.T) {
	if got := canon("//usr//./bin"); got != "/usr/bin" {
		t.Fatalf("canonicalize = %q, want /usr/bin", got)
	}
}

func TestCanonicalizeResolvesDotDot(t *testing.T) {
	if got := canon("/usr/bin/../lib"); got != "/usr/lib" {
		t.Fatalf("canonicalize = %q, want /usr/lib", got)
	}
}

func TestCanonicalizeDotDotAtRootIsDropped(t *testing.T) {
	if got := canon("/../etc"); got != "/etc" {
		t.Fatalf("canonicalize = %q, want /etc", got)
	}
}

func TestCanonicalizeRootStaysRoot(t *testing.T) {
	if got := canon("/"); got != "/" {
		t.Fatalf("canonicalize = %q, want /", got)
	}
}

func TestCanonicalizeRelativePathStaysRelative(t *testing.T) {
	if got := canon("a/./b/../c"); got != "a/c" {
		t.Fatalf("canonicalize = %q, want a/c", got)
	}
}

func TestPathpartsWalksComponents(t *testing.T) {
	var pp Pathparts_t
	pp.Pp_init(ustr.Ustr("/usr//bin/"))
	var got []string
	for {
		comp, ok := pp.Next()
		if !ok {
			break
		}
		got = append(got, comp.String())
	}
	want := []string{"usr", "bin"}
	if len(got) != len(want) {
		t.Fatalf("parts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("parts = %v, want %v", got, want)
		}
	}
}
