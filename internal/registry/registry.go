package registry

import (
	"strconv"
	"sync"

	"github.com/cwbudde/exprforge/internal/emit"
	"github.com/cwbudde/exprforge/internal/fallback"
	"github.com/cwbudde/exprforge/internal/ir"
)

// Entry is one registered evaluator definition: the class entry of
// spec.md's registry — simple name, normalized content digest, and the
// artifact it was interned under. Exactly one of Chunk or Fallback is set,
// depending on which compilation path produced it.
type Entry struct {
	SimpleName string
	Digest     string
	Normalized string
	// Hash32 is a cheap 32-bit prefix of Digest, the registry's cached
	// fast-compare hash carried on Entry the way the class-entry shape
	// documents it, alongside the full 128-bit Digest used for the actual
	// identity key.
	Hash32   uint32
	Chunk    *emit.Chunk
	Fallback *fallback.Unit
}

// entryKey is the (digest, normalized_string) pair that identifies a
// registered entry: digest equality alone is not enough to rule out a hash
// collision, so the normalized text is carried as a collision guard.
type entryKey struct {
	digest     string
	normalized string
}

// Registry deduplicates compiled artifacts by content digest behind a
// concurrent map, and separately tracks the simple name -> Entry mapping
// exact-name lookup needs.
type Registry struct {
	mu      sync.RWMutex
	entries map[entryKey]*Entry
	byName  map[string]*Entry
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		entries: make(map[entryKey]*Entry),
		byName:  make(map[string]*Entry),
	}
}

// Define interns chunk under simpleName, returning the surviving Entry. If
// an entry with an equal (digest, normalized) key is already registered,
// Define discards chunk and returns the existing Entry instead — it still
// records simpleName against that entry, so a different request name that
// happens to compile to the same bytecode resolves to the same class.
// Definition is idempotent, and under a data race the first caller to
// complete Define always wins.
func (r *Registry) Define(simpleName string, chunk *emit.Chunk) *Entry {
	digest, normalized := Digest(chunk)
	return r.intern(simpleName, digest, normalized, chunk, nil)
}

// DefineFallback is Define for a single fallback-compiled expression: e is
// the lowered EIR the Unit was built from, used only to compute the
// content digest.
func (r *Registry) DefineFallback(simpleName string, e ir.Expr, unit *fallback.Unit) *Entry {
	digest, normalized := FallbackDigest(e)
	return r.intern(simpleName, digest, normalized, nil, unit)
}

// DefineFallbackBlock is DefineFallback for a BLOCK-content request.
func (r *Registry) DefineFallbackBlock(simpleName string, body *ir.Block, unit *fallback.Unit) *Entry {
	digest, normalized := FallbackBlockDigest(body)
	return r.intern(simpleName, digest, normalized, nil, unit)
}

func (r *Registry) intern(simpleName, digest, normalized string, chunk *emit.Chunk, unit *fallback.Unit) *Entry {
	key := entryKey{digest: digest, normalized: normalized}

	r.mu.RLock()
	if existing, ok := r.entries[key]; ok {
		r.mu.RUnlock()
		r.mu.Lock()
		r.byName[simpleName] = existing
		r.mu.Unlock()
		return existing
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[key]; ok {
		r.byName[simpleName] = existing
		return existing
	}
	entry := &Entry{
		SimpleName: simpleName,
		Digest:     digest,
		Normalized: normalized,
		Hash32:     hash32(digest),
		Chunk:      chunk,
		Fallback:   unit,
	}
	r.entries[key] = entry
	r.byName[simpleName] = entry
	return entry
}

// Lookup resolves name to the entry currently registered under it —
// spec.md's `lookup(name) -> Class?`, an exact simple-name lookup.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[name]
	return e, ok
}

// Len reports how many distinct content digests are currently interned.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// hash32 derives the class entry's cached 32-bit hash from the first four
// bytes of the 128-bit digest's hex rendering.
func hash32(digest string) uint32 {
	if len(digest) < 8 {
		return 0
	}
	v, _ := strconv.ParseUint(digest[:8], 16, 32)
	return uint32(v)
}
