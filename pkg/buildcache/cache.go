// Package buildcache persists parsed include-file token streams between
// runs of the same project file, keyed by a siphash of file contents so
// an unchanged include is never re-lexed. Grounded on the teacher's
// pkg/result/checkpoint.go (same gob-to-a-single-file persistence
// shape), generalized from search-progress checkpointing to content-
// addressed include caching, and on spec.md §6's `#once` dedup rule
// (each included file is processed at most once per run) extended
// across runs.
package buildcache

import (
	"encoding/gob"
	"os"

	"github.com/dchest/siphash"
	"github.com/hlorenzi/customasm-go/pkg/token"
)

func init() {
	gob.Register(token.Token{})
}

// key is a siphash-64 digest of a file's contents, used as the cache
// key across runs.
type key [8]byte

// entry caches one included file's lexed token stream against the
// content digest it was produced from.
type entry struct {
	Key    key
	Tokens []token.Token
}

// Cache maps content digests to previously-lexed token streams.
type Cache struct {
	sipKey0, sipKey1 uint64
	entries          map[key]entry
}

// New returns an empty cache, keyed by a fixed siphash key pair (the
// cache is a local performance optimization, not a security boundary,
// so a process-stable key is fine).
func New() *Cache {
	return &Cache{
		sipKey0: 0x636173326173636d, // "casm" "asm2"c ascii-ish salt
		sipKey1: 0x6275696c64636163, // "buildcac" ascii-ish salt
		entries: map[key]entry{},
	}
}

// Digest returns the siphash key for contents.
func (c *Cache) Digest(contents []byte) key {
	h := siphash.Hash(c.sipKey0, c.sipKey1, contents)
	var k key
	for i := 0; i < 8; i++ {
		k[i] = byte(h >> (8 * i))
	}
	return k
}

// Lookup returns a previously-cached token stream for contents, if any.
func (c *Cache) Lookup(contents []byte) ([]token.Token, bool) {
	e, ok := c.entries[c.Digest(contents)]
	if !ok {
		return nil, false
	}
	return e.Tokens, true
}

// Store records contents' lexed token stream for future lookups.
func (c *Cache) Store(contents []byte, toks []token.Token) {
	k := c.Digest(contents)
	c.entries[k] = entry{Key: k, Tokens: toks}
}

// Load reads a persisted cache from path, per the teacher's
// SaveCheckpoint/LoadCheckpoint pattern. A missing file is not an
// error — it just yields an empty cache.
func Load(path string) (*Cache, error) {
	c := New()
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var entries []entry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return nil, err
	}
	for _, e := range entries {
		c.entries[e.Key] = e
	}
	return c, nil
}

// Save persists the cache to path.
func (c *Cache) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	entries := make([]entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	return gob.NewEncoder(f).Encode(entries)
}
