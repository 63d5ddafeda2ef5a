package driver

import (
	"crypto/sha256"
	"os"
	"testing"

	"ownc/internal/registry"
	"ownc/internal/usage"
)

func TestDiskCacheRoundTrip(t *testing.T) {
	c, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	key := sha256.Sum256([]byte("unit"))
	var out DiskPayload
	if ok, err := c.Get(key, &out); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	in := &DiskPayload{
		Schema: diskCacheSchemaVersion,
		Path:   "unit.json",
		Rounds: 3,
		Signatures: []CachedSignature{
			{ID: "Point::norm", Receiver: uint8(registry.Borrowed)},
			{ID: "consume", Params: []uint8{uint8(registry.Owned), uint8(registry.MutBorrowed)}},
		},
	}
	if err := c.Put(key, in); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ok, err := c.Get(key, &out); !ok || err != nil {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	sigs := out.signatures()
	if got := sigs["consume"].Params; len(got) != 2 || got[0] != registry.Owned || got[1] != registry.MutBorrowed {
		t.Fatalf("consume params: %v", got)
	}
	if sigs["Point::norm"].Receiver != registry.Borrowed {
		t.Fatalf("norm receiver: %v", sigs["Point::norm"].Receiver)
	}

	stale := *in
	stale.Schema = diskCacheSchemaVersion + 1
	if err := c.Put(key, &stale); err != nil {
		t.Fatalf("put stale: %v", err)
	}
	if ok, _ := c.Get(key, &out); ok {
		t.Fatalf("entries of another schema must miss")
	}

	if err := c.DropAll(); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := os.Stat(c.pathFor(key)); !os.IsNotExist(err) {
		t.Fatalf("entry survived DropAll: %v", err)
	}
}

func TestCacheKeyTracksDecisionOptions(t *testing.T) {
	digest := sha256.Sum256([]byte("unit"))
	base := cacheKey(digest, Options{})
	cases := []struct {
		name string
		opts Options
		same bool
	}{
		{"same", Options{}, true},
		{"jobs do not matter", Options{Jobs: 7}, true},
		{"strict", Options{Strict: true}, false},
		{"void list", Options{Usage: usage.Options{Void: []string{"log"}}}, false},
		{"consuming calls", Options{Registry: registry.Options{Consuming: map[string]bool{"drop": true}}}, false},
	}
	for _, tc := range cases {
		if got := cacheKey(digest, tc.opts) == base; got != tc.same {
			t.Fatalf("%s: same key = %v, want %v", tc.name, got, tc.same)
		}
	}
	a := cacheKey(digest, Options{Usage: usage.Options{Void: []string{"a", "b"}}})
	b := cacheKey(digest, Options{Usage: usage.Options{Void: []string{"b", "a"}}})
	if a != b {
		t.Fatalf("list order must not change the key")
	}
}
