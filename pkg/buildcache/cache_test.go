package buildcache

import (
	"path/filepath"
	"testing"

	"github.com/hlorenzi/customasm-go/pkg/token"
)

func TestLookupMissOnEmptyCache(t *testing.T) {
	c := New()
	if _, ok := c.Lookup([]byte("hello")); ok {
		t.Fatal("expected a miss on an empty cache")
	}
}

func TestStoreThenLookupHits(t *testing.T) {
	c := New()
	toks := token.Lex("f.asm", "mov a, b")
	c.Store([]byte("mov a, b"), toks)

	got, ok := c.Lookup([]byte("mov a, b"))
	if !ok {
		t.Fatal("expected a hit after Store")
	}
	if len(got) != len(toks) {
		t.Fatalf("got %d tokens, want %d", len(got), len(toks))
	}
}

func TestDifferentContentsMiss(t *testing.T) {
	c := New()
	c.Store([]byte("mov a, b"), token.Lex("f.asm", "mov a, b"))
	if _, ok := c.Lookup([]byte("mov a, c")); ok {
		t.Fatal("expected a miss for different contents")
	}
}

func TestSaveLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.gob")

	c := New()
	toks := token.Lex("f.asm", "ld x, 1")
	c.Store([]byte("ld x, 1"), toks)
	if err := c.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := loaded.Lookup([]byte("ld x, 1"))
	if !ok {
		t.Fatal("expected the persisted entry to round-trip")
	}
	if len(got) != len(toks) {
		t.Fatalf("got %d tokens, want %d", len(got), len(toks))
	}
}

func TestLoadMissingFileYieldsEmptyCache(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.gob"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Lookup([]byte("anything")); ok {
		t.Fatal("expected an empty cache")
	}
}
