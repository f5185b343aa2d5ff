// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

package gen

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/popgen-tools/geva/internal/binio"
	"golang.org/x/exp/rand"
)

// cacheEntry wraps a decoded Vector with an explicit reference count. The
// original C++ grid evicts whichever cached entries are "unique" (the
// cache holds the only surviving shared_ptr); Go's GC exposes no such
// introspection, so callers that want eviction-awareness must pair Get
// with Release. Get counts one reference per call and prune evicts only
// entries whose count is back at zero, so a vector obtained from Get and
// never released stays in the cache.
type cacheEntry struct {
	vec  *Vector
	refs int32
}

// Grid is the (samples × markers) genotype matrix: a random-access source
// of per-individual decoded variant vectors, with a bounded cache.
type Grid struct {
	mu sync.Mutex

	samples []Sample
	markers []Marker

	source io.ReadSeeker
	index  []int64 // file offset of each sample's record, for random access
	rng    *rand.Rand

	cache       map[int]*cacheEntry
	cacheOrder  []int // insertion-ish order, used by the eviction cursor
	cacheLimit  int   // 0 = unbounded
	cacheCursor int
}

// NewGrid constructs a Grid bound to an already-open, seekable binary grid
// source, with pre-loaded sample and marker metadata and their file-offset
// index (built by Load).
func NewGrid(source io.ReadSeeker, samples []Sample, markers []Marker, index []int64, rng *rand.Rand) *Grid {
	return &Grid{
		source:  source,
		samples: samples,
		markers: markers,
		index:   index,
		rng:     rng,
		cache:   map[int]*cacheEntry{},
	}
}

func (g *Grid) SampleSize() int  { return len(g.samples) }
func (g *Grid) MarkerSize() int  { return len(g.markers) }
func (g *Grid) Sample(id int) Sample { return g.samples[id] }
func (g *Grid) Marker(id int) Marker { return g.markers[id] }
func (g *Grid) Samples() []Sample { return g.samples }
func (g *Grid) Markers() []Marker { return g.markers }

// Read returns the decompressed genotype vector for sampleID, length
// exactly MarkerSize(). It does not touch the cache.
func (g *Grid) Read(sampleID int) ([]Genotype, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.read(sampleID)
}

// read performs the actual seek + decode; caller must hold g.mu.
func (g *Grid) read(sampleID int) ([]Genotype, error) {
	if sampleID < 0 || sampleID >= len(g.index) {
		return nil, fmt.Errorf("gen: grid: sample id %d out of range", sampleID)
	}
	r := binio.NewReader(g.source)
	if err := r.Jump(g.index[sampleID]); err != nil {
		return nil, err
	}
	if err := r.Match(); err != nil {
		return nil, err
	}
	idx, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if int(idx) != sampleID {
		return nil, fmt.Errorf("gen: grid: index mismatch at sample %d: file says %d", sampleID, idx)
	}
	outLength, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	rawLength, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	raw, err := r.Bytes(int(rawLength))
	if err != nil {
		return nil, err
	}
	decoded, err := DecompressVector(raw, int(outLength))
	if err != nil {
		return nil, err
	}
	if len(decoded) != len(g.markers) {
		return nil, fmt.Errorf("gen: grid: decoded vector for sample %d has length %d, want %d", sampleID, len(decoded), len(g.markers))
	}
	return decoded, nil
}

// Get returns a shared handle to the cached variant vector for sampleID,
// decoding and inserting it into the cache on a miss. The grid never
// mutates a vector after publishing it, so concurrent readers may safely
// hold handles returned by Get.
func (g *Grid) Get(sampleID int) (*Vector, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.cache[sampleID]; ok {
		atomic.AddInt32(&e.refs, 1)
		return e.vec, nil
	}

	raw, err := g.read(sampleID)
	if err != nil {
		return nil, err
	}
	vec := NewVector(sampleID, raw)
	e := &cacheEntry{vec: vec, refs: 1}
	g.cache[sampleID] = e
	g.cacheOrder = append(g.cacheOrder, sampleID)
	g.prune()
	return vec, nil
}

// Release drops one reference to a vector previously obtained from Get,
// making it eligible for eviction once no caller holds a reference.
func (g *Grid) Release(sampleID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.cache[sampleID]; ok {
		atomic.AddInt32(&e.refs, -1)
	}
}

// Cache sets the cache entry ceiling (0 = unbounded) and triggers pruning.
func (g *Grid) Cache(max int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cacheLimit = max
	g.prune()
}

// prune implements the eviction policy described in spec §4.1: a rotating
// cursor picks a random start and visits cache entries cyclically,
// evicting entries whose only live reference is the cache's own, until
// size is at or below the bound. Caller must hold g.mu.
func (g *Grid) prune() {
	if g.cacheLimit <= 0 || len(g.cache) <= g.cacheLimit {
		return
	}
	// drop indices of already-evicted entries from cacheOrder lazily
	live := g.cacheOrder[:0]
	for _, id := range g.cacheOrder {
		if _, ok := g.cache[id]; ok {
			live = append(live, id)
		}
	}
	g.cacheOrder = live

	n := len(g.cacheOrder)
	if n == 0 {
		return
	}
	start := int(g.rng.Intn(n))
	for cyc := 0; len(g.cache) > g.cacheLimit && cyc < n; cyc++ {
		id := g.cacheOrder[(start+cyc)%n]
		e, ok := g.cache[id]
		if !ok {
			continue
		}
		if atomic.LoadInt32(&e.refs) <= 0 {
			delete(g.cache, id)
		}
	}
}
