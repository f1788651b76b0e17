package filter

import "testing"

func TestStripInvisibleRemovesZeroWidth(t *testing.T) {
	in := "hello\342\200\213world\357\273\277"
	out := stripInvisible(in)
	if out != "helloworld" {
		t.Errorf("stripInvisible(%q) = %q, want %q", in, out, "helloworld")
	}
}

func TestStripInvisiblePreservesNormalText(t *testing.T) {
	in := "plain ascii text, nothing to strip"
	if out := stripInvisible(in); out != in {
		t.Errorf("stripInvisible changed clean text: %q", out)
	}
}

func TestStripInvisibleBidiControls(t *testing.T) {
	in := "a‮b⁦c"
	out := stripInvisible(in)
	if out != "abc" {
		t.Errorf("stripInvisible(%q) = %q, want %q", in, out, "abc")
	}
}
