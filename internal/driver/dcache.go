package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"ownc/internal/registry"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache хранит разрешённые сигнатуры юнитов по дайджесту документа.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DiskPayload is what one checked unit leaves behind.
type DiskPayload struct {
	Schema     uint16
	Path       string
	Rounds     int
	Broken     bool // the unit had fatal diagnostics
	Signatures []CachedSignature
}

type CachedSignature struct {
	ID       string
	Receiver uint8
	Params   []uint8
}

// OpenDiskCache opens (creating if needed) the cache under
// $XDG_CACHE_HOME/app or ~/.cache/app.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open cache %s: %w", dir, err)
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key [32]byte) string {
	return filepath.Join(c.dir, "units", hex.EncodeToString(key[:])+".mp")
}

func (c *DiskCache) Put(key [32]byte, payload *DiskPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// атомарная замена
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Get reports false for missing entries and for entries of another schema.
func (c *DiskCache) Get(key [32]byte, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("decode cache entry: %w", err)
	}
	return out.Schema == diskCacheSchemaVersion, nil
}

// DropAll removes every cached unit.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "units"))
}

// cacheKey: H(digest || options that change decisions).
func cacheKey(digest [32]byte, opts Options) [32]byte {
	h := sha256.New()
	_, _ = h.Write(digest[:])
	fmt.Fprintf(h, "strict=%t;", opts.Strict)
	for _, list := range [][]string{
		opts.Usage.Void, opts.Usage.Consuming,
		opts.Usage.MutatingMethods, opts.Usage.ConsumingMethods, opts.Usage.ReadingMethods,
	} {
		sorted := append([]string(nil), list...)
		sort.Strings(sorted)
		h.Write([]byte(strings.Join(sorted, ",") + ";"))
	}
	consuming := make([]string, 0, len(opts.Registry.Consuming))
	for name, on := range opts.Registry.Consuming {
		if on {
			consuming = append(consuming, name)
		}
	}
	sort.Strings(consuming)
	h.Write([]byte(strings.Join(consuming, ",")))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func newPayload(path string, res *Result) *DiskPayload {
	p := &DiskPayload{
		Schema: diskCacheSchemaVersion,
		Path:   path,
		Rounds: res.Rounds,
		Broken: res.Failed(),
	}
	for _, id := range res.Registry.IDs() {
		e, ok := res.Registry.Lookup(id)
		if !ok {
			continue
		}
		sig := e.Signature()
		cs := CachedSignature{ID: string(id), Receiver: uint8(sig.Receiver), Params: make([]uint8, len(sig.Params))}
		for i, d := range sig.Params {
			cs.Params[i] = uint8(d)
		}
		p.Signatures = append(p.Signatures, cs)
	}
	return p
}

func (p *DiskPayload) signatures() map[registry.FuncID]registry.Signature {
	if len(p.Signatures) == 0 {
		return nil
	}
	out := make(map[registry.FuncID]registry.Signature, len(p.Signatures))
	for _, cs := range p.Signatures {
		sig := registry.Signature{Receiver: registry.Decision(cs.Receiver), Params: make([]registry.Decision, len(cs.Params))}
		for i, d := range cs.Params {
			sig.Params[i] = registry.Decision(d)
		}
		out[registry.FuncID(cs.ID)] = sig
	}
	return out
}
