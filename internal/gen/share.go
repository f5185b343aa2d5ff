// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

package gen

import (
	"fmt"
	"sort"

	"golang.org/x/exp/rand"
)

// SamplePair is an unordered pair of sample ids, always stored with the
// smaller id first so it can key a map.
type SamplePair struct{ A, B int }

func MakePair(a, b int) SamplePair {
	if a > b {
		a, b = b, a
	}
	return SamplePair{a, b}
}

// ShareIndex is the per-frequency-class (fk) index of focal sites and the
// sample pairs that share them. See spec.md §3 "Share index".
type ShareIndex struct {
	Fk int

	Sites map[int][]int             // marker id -> carrier sample ids (len == Fk)
	Pairs map[SamplePair]map[int]bool // sample pair -> set of marker ids both carry
}

func newShareIndex(fk int) *ShareIndex {
	return &ShareIndex{Fk: fk, Sites: map[int][]int{}, Pairs: map[SamplePair]map[int]bool{}}
}

// MaxSites / MaxPairs caps, 0 = unbounded. Region restricts scanning to a
// closed position interval, [0,0] = unrestricted.
type ShareOptions struct {
	MaxSites int
	MaxPairs int
	RegionLo uint32
	RegionHi uint32
	Seed     uint64 // base seed; each fk's subsampling derives its own child seed from this
}

// Detect builds one ShareIndex per fk in target by scanning every marker
// once, for fks where AltCount() matches. Only heterozygote-only sites are
// used: a site whose marker genotype counts record any homozygous-alt
// individual is skipped. A carrier is any individual with an alt
// haplotype at the site; a site whose carrier count still differs from fk
// (marker counts inconsistent with the genotypes) is an error.
func Detect(g *Grid, target map[int]bool, opt ShareOptions) (map[int]*ShareIndex, error) {
	table := map[int]*ShareIndex{}
	inRegion := opt.RegionLo != 0 || opt.RegionHi != 0

	for _, m := range g.Markers() {
		if inRegion && (m.Position < opt.RegionLo || m.Position > opt.RegionHi) {
			continue
		}
		fk := m.AltCount()
		if !target[fk] {
			continue
		}
		if m.GenCount[G2] > 0 {
			continue
		}
		idx, ok := table[fk]
		if !ok {
			idx = newShareIndex(fk)
			table[fk] = idx
		}
		carriers, err := carriersAt(g, m.ID)
		if err != nil {
			return nil, err
		}
		if len(carriers) != fk {
			return nil, fmt.Errorf("gen: share: marker %d carrier count %d != fk %d", m.ID, len(carriers), fk)
		}
		idx.Sites[m.ID] = carriers
	}

	for fk, idx := range table {
		if opt.MaxSites > 0 {
			idx.subsetSites(opt.MaxSites, opt.seededRand(fk))
		}
		idx.createPairs()
		if opt.MaxPairs > 0 {
			idx.subsetPairs(opt.MaxPairs, opt.seededRand(fk))
			idx.remakeSites()
		}
		idx.clean()
	}
	for fk, idx := range table {
		if len(idx.Sites) == 0 || len(idx.Pairs) == 0 {
			delete(table, fk)
		}
	}
	return table, nil
}

// Select builds a single ShareIndex from an explicit list of focal marker
// positions (matched by strict equality); the allele count at each focal
// site becomes its fk.
func Select(g *Grid, positions map[uint32]bool) (map[int]*ShareIndex, error) {
	table := map[int]*ShareIndex{}
	for _, m := range g.Markers() {
		if !positions[m.Position] {
			continue
		}
		fk := m.AltCount()
		idx, ok := table[fk]
		if !ok {
			idx = newShareIndex(fk)
			table[fk] = idx
		}
		carriers, err := carriersAt(g, m.ID)
		if err != nil {
			return nil, err
		}
		idx.Sites[m.ID] = carriers
	}
	for _, idx := range table {
		idx.createPairs()
		idx.clean()
	}
	for fk, idx := range table {
		if len(idx.Sites) == 0 || len(idx.Pairs) == 0 {
			delete(table, fk)
		}
	}
	return table, nil
}

func carriersAt(g *Grid, markerID int) ([]int, error) {
	var carriers []int
	for s := 0; s < g.SampleSize(); s++ {
		v, err := g.Get(s)
		if err != nil {
			return nil, err
		}
		gt := v.Gen(markerID)
		g.Release(s)
		h0, h1 := gt.Haplotypes()
		if h0 == H1 || h1 == H1 {
			carriers = append(carriers, s)
		}
	}
	return carriers, nil
}

func (opt ShareOptions) seededRand(fk int) *rand.Rand {
	return rand.New(rand.NewSource(opt.Seed + uint64(fk)*2654435761 + 0x9E3779B9))
}

// createPairs enumerates, for every site, every unordered pair of its
// carriers, and records the site against that pair.
func (idx *ShareIndex) createPairs() {
	for site, carriers := range idx.Sites {
		for i := 0; i < len(carriers); i++ {
			for j := i + 1; j < len(carriers); j++ {
				p := MakePair(carriers[i], carriers[j])
				m, ok := idx.Pairs[p]
				if !ok {
					m = map[int]bool{}
					idx.Pairs[p] = m
				}
				m[site] = true
			}
		}
	}
}

// remakeSites regenerates the sites map from the (possibly subsampled)
// pairs map, keeping the two views consistent. A carrier id is recorded
// once per site even when multiple surviving pairs name it, so |carriers|
// still equals the site's fk.
func (idx *ShareIndex) remakeSites() {
	seen := map[int]map[int]bool{}
	idx.Sites = map[int][]int{}
	for pair, sites := range idx.Pairs {
		for site := range sites {
			set, ok := seen[site]
			if !ok {
				set = map[int]bool{}
				seen[site] = set
			}
			for _, carrier := range []int{pair.A, pair.B} {
				if set[carrier] {
					continue
				}
				set[carrier] = true
				idx.Sites[site] = append(idx.Sites[site], carrier)
			}
		}
	}
}

func (idx *ShareIndex) subsetSites(max int, rng *rand.Rand) {
	if len(idx.Sites) <= max {
		return
	}
	keys := make([]int, 0, len(idx.Sites))
	for k := range idx.Sites {
		keys = append(keys, k)
	}
	sort.Ints(keys) // deterministic order before shuffling
	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	sub := map[int][]int{}
	for _, k := range keys[:max] {
		sub[k] = idx.Sites[k]
	}
	idx.Sites = sub
}

func (idx *ShareIndex) subsetPairs(max int, rng *rand.Rand) {
	if len(idx.Pairs) <= max {
		return
	}
	keys := make([]SamplePair, 0, len(idx.Pairs))
	for k := range idx.Pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].A != keys[j].A {
			return keys[i].A < keys[j].A
		}
		return keys[i].B < keys[j].B
	})
	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	sub := map[SamplePair]map[int]bool{}
	for _, k := range keys[:max] {
		sub[k] = idx.Pairs[k]
	}
	idx.Pairs = sub
}

// clean removes the index entirely in the caller if either view is empty;
// ShareIndex itself has nothing left to prune once Sites/Pairs are built,
// mirroring the original's table-level clean_table (applied by the caller
// across the whole fk -> ShareIndex map).
func (idx *ShareIndex) clean() {}
