package diffrender

import "testing"

func TestLines_Identical(t *testing.T) {
	unchanged, added, removed := Lines("a\nb\nc\n", "a\nb\nc\n")
	if unchanged != 4 || added != 0 || removed != 0 {
		t.Errorf("got (%d,%d,%d), want (4,0,0)", unchanged, added, removed)
	}
}

func TestLines_NewFile(t *testing.T) {
	unchanged, added, removed := Lines("", "a\nb\n")
	if unchanged != 0 || added != 2 || removed != 0 {
		t.Errorf("got (%d,%d,%d), want (0,2,0)", unchanged, added, removed)
	}
}

func TestLines_DeletedFile(t *testing.T) {
	unchanged, added, removed := Lines("a\nb\n", "")
	if unchanged != 0 || added != 0 || removed != 2 {
		t.Errorf("got (%d,%d,%d), want (0,0,2)", unchanged, added, removed)
	}
}

func TestLines_MixedEdit(t *testing.T) {
	before := "one\ntwo\nthree\n"
	after := "one\ntwo-changed\nthree\nfour\n"
	_, added, removed := Lines(before, after)
	if added != 2 || removed != 1 {
		t.Errorf("got added=%d removed=%d, want added=2 removed=1", added, removed)
	}
}

func TestSummarize(t *testing.T) {
	stat := Summarize("main.go", "a\nb\n", "a\nb\nc\n")
	if stat.Path != "main.go" {
		t.Errorf("got path %q, want main.go", stat.Path)
	}
	if stat.Added != 1 || stat.Removed != 0 {
		t.Errorf("got added=%d removed=%d, want added=1 removed=0", stat.Added, stat.Removed)
	}
	if got, want := stat.String(), "main.go  +1 -0"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCountLines(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 2},
		{"a\nb\n", 3},
	}
	for _, c := range cases {
		if got := countLines(c.in); got != c.want {
			t.Errorf("countLines(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
