package gen

import (
	"fmt"
	"sync"
)

// Vector is one individual's decoded genotype vector across all markers,
// plus lazily-derived per-haplotype views. The genotype vector is set once
// (at construction) and never mutated afterwards; the haplotype views are
// computed at most once, on first request, guarded by a mutex.
type Vector struct {
	SampleID int

	genotype []Genotype
	phased   bool // true unless any genotype in the vector is unphased

	mu   sync.Mutex
	good bool // haplotype views have been computed
	hap  [2][]Hap
}

// NewVector wraps a decoded genotype vector for one individual. Phasing is
// determined once here: phased is true unless any genotype is unphased,
// matching the original's assignment-time scan.
func NewVector(sampleID int, genotype []Genotype) *Vector {
	v := &Vector{SampleID: sampleID, genotype: genotype, phased: true}
	for _, g := range genotype {
		if !g.IsPhased() {
			v.phased = false
			break
		}
	}
	return v
}

// Len returns the number of markers this vector covers.
func (v *Vector) Len() int { return len(v.genotype) }

// Phased reports whether every genotype in this vector carries the phase
// bit.
func (v *Vector) Phased() bool { return v.phased }

// Gen returns the raw packed genotype at marker index i.
func (v *Vector) Gen(i int) Genotype { return v.genotype[i] }

// Raw returns the underlying genotype slice (read-only; never mutate).
func (v *Vector) Raw() []Genotype { return v.genotype }

// Hap returns the haplotype view for chr (Maternal or Paternal), computing
// it lazily and idempotently on first call. Requesting a haplotype view on
// an unphased vector fails.
func (v *Vector) Hap(chr Chr) ([]Hap, error) {
	if chr != Maternal && chr != Paternal {
		return nil, fmt.Errorf("gen: Hap: invalid chromosome tag %v", chr)
	}
	if !v.phased {
		return nil, fmt.Errorf("gen: Hap: vector for sample %d is not phased", v.SampleID)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.good {
		v.hap[Maternal] = make([]Hap, len(v.genotype))
		v.hap[Paternal] = make([]Hap, len(v.genotype))
		for i, g := range v.genotype {
			h0, h1 := g.Haplotypes()
			v.hap[Maternal][i] = h0
			v.hap[Paternal][i] = h1
		}
		v.good = true
	}
	return v.hap[chr], nil
}
