package fileserver

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRelativeAndAbsolute(t *testing.T) {
	cases := []struct{ dir, filename, want string }{
		{"/proj/src", "inc.bin", "/proj/src/inc.bin"},
		{"/proj/src", "../shared/inc.bin", "/proj/shared/inc.bin"},
		{"/proj/src", "/etc/inc.bin", "/etc/inc.bin"},
		{"/proj/src", "C:/data/inc.bin", "C:/data/inc.bin"},
	}
	for _, c := range cases {
		if got := Resolve(c.dir, c.filename); got != c.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", c.dir, c.filename, got, c.want)
		}
	}
}

func TestGetHandleDedupesSamePath(t *testing.T) {
	fs := New("/base")
	a := fs.GetHandle("/base", "x.bin")
	b := fs.GetHandle("/base/sub/..", "x.bin")
	if a != b {
		t.Fatalf("expected equal handles for equivalent paths, got %d and %d", a, b)
	}
}

func TestReadBytesFullAndSliced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := New(dir)
	full, err := fs.ReadBytes("data.bin", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(full) != "0123456789" {
		t.Fatalf("got %q, want full contents", full)
	}

	start, size := 2, 3
	sliced, err := fs.ReadBytes("data.bin", &start, &size)
	if err != nil {
		t.Fatal(err)
	}
	if string(sliced) != "234" {
		t.Fatalf("got %q, want \"234\"", sliced)
	}
}

func TestReadBytesOutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, []byte("short"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := New(dir)
	start, size := 0, 100
	if _, err := fs.ReadBytes("data.bin", &start, &size); err == nil {
		t.Fatal("expected an out-of-bounds error")
	}
}

func TestWriteBytesThenReadBack(t *testing.T) {
	dir := t.TempDir()
	fs := New(dir)
	path := filepath.Join(dir, "out.bin")
	if err := fs.WriteBytes(path, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("got %v, want [1 2 3]", got)
	}
}
