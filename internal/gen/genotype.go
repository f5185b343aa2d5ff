// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

// Package gen implements the genotype grid: the column-oriented matrix of
// per-individual variant vectors, its bounded cache, and the shared-site
// index used to enumerate focal sites by minor-allele count.
package gen

import "fmt"

// Hap is a single haplotype symbol at a site.
type Hap uint8

const (
	H0 Hap = iota // reference allele
	H1            // alternate allele
	HX            // missing
)

// GenIndex is the collapsed genotype class used for marker-level counts.
type GenIndex uint8

const (
	G0 GenIndex = iota // homozygous reference
	G1                 // heterozygous
	G2                 // homozygous alternate
	GX                 // missing
)

// Chr distinguishes which chromosome copy a haplotype view belongs to.
type Chr uint8

const (
	Maternal Chr = iota
	Paternal
	Unphased
	ChrVoid
)

// Genotype is a packed diploid call: two haplotype symbols plus a phase
// bit, following the original encoding exactly: 11*hap0 + hap1 + 121*phased.
type Genotype uint8

// MakeGenotype packs two haplotype symbols and a phase flag into a Genotype.
func MakeGenotype(h0, h1 Hap, phased bool) Genotype {
	g := Genotype(11*uint8(h0) + uint8(h1))
	if phased {
		g += 121
	}
	return g
}

// IsPhased reports whether g carries the phased bit.
func (g Genotype) IsPhased() bool { return g > 120 }

// Unphase strips the phase bit, if set.
func (g Genotype) Unphase() Genotype {
	if g.IsPhased() {
		return g - 121
	}
	return g
}

// Haplotypes decodes g into its two haplotype symbols.
func (g Genotype) Haplotypes() (h0, h1 Hap) {
	u := g.Unphase()
	return Hap(u / 11), Hap(u % 11)
}

// Index collapses g into its GenIndex class.
func (g Genotype) Index() GenIndex {
	h0, h1 := g.Haplotypes()
	switch {
	case h0 == H0 && h1 == H0:
		return G0
	case (h0 == H0 && h1 == H1) || (h0 == H1 && h1 == H0):
		return G1
	case h0 == H1 && h1 == H1:
		return G2
	default:
		return GX
	}
}

// Missing genotype value (both haplotypes missing, unphased).
var Missing = MakeGenotype(HX, HX, false)

// CompressedGenotype is a 4-bit lossy-phase code for one genotype, used as
// the payload nibble of a run-length-compressed byte.
type CompressedGenotype uint8

const (
	cg00 CompressedGenotype = iota
	cg01
	cg01p
	cg0x
	cg0xp
	cg10
	cg10p
	cg11
	cg1x
	cg1xp
	cgx0
	cgx0p
	cgx1
	cgx1p
	cgxx
	cgUndef
)

// MakeCompressed maps a haplotype pair and phase flag to its 4-bit code.
func MakeCompressed(h0, h1 Hap, phased bool) CompressedGenotype {
	switch {
	case h0 == H0 && h1 == H0:
		return cg00
	case h0 == H0 && h1 == H1:
		if phased {
			return cg01p
		}
		return cg01
	case h0 == H0 && h1 == HX:
		if phased {
			return cg0xp
		}
		return cg0x
	case h0 == H1 && h1 == H0:
		if phased {
			return cg10p
		}
		return cg10
	case h0 == H1 && h1 == H1:
		return cg11
	case h0 == H1 && h1 == HX:
		if phased {
			return cg1xp
		}
		return cg1x
	case h0 == HX && h1 == H0:
		if phased {
			return cgx0p
		}
		return cgx0
	case h0 == HX && h1 == H1:
		if phased {
			return cgx1p
		}
		return cgx1
	case h0 == HX && h1 == HX:
		return cgxx
	default:
		return cgUndef
	}
}

// CompressGenotype maps a packed Genotype directly to its 4-bit code.
func CompressGenotype(g Genotype) CompressedGenotype {
	h0, h1 := g.Haplotypes()
	return MakeCompressed(h0, h1, g.IsPhased())
}

// Uncompress is the inverse of MakeCompressed/CompressGenotype. Several
// codes collapse distinct (haplotype, phase) inputs onto one output value
// (e.g. cg00 always decodes to a phased homozygous-ref call); this mirrors
// the original encoding exactly, including that lossiness.
func (cg CompressedGenotype) Uncompress() Genotype {
	switch cg {
	case cg00:
		return MakeGenotype(H0, H0, true)
	case cg01:
		return MakeGenotype(H0, H1, false)
	case cg01p:
		return MakeGenotype(H0, H1, true)
	case cg0x:
		return MakeGenotype(H0, HX, false)
	case cg0xp:
		return MakeGenotype(H0, HX, true)
	case cg10:
		return MakeGenotype(H1, H0, false)
	case cg10p:
		return MakeGenotype(H1, H0, true)
	case cg11:
		return MakeGenotype(H1, H1, true)
	case cg1x:
		return MakeGenotype(H1, HX, false)
	case cg1xp:
		return MakeGenotype(H1, HX, true)
	case cgx0:
		return MakeGenotype(HX, H0, false)
	case cgx0p:
		return MakeGenotype(HX, H0, true)
	case cgx1:
		return MakeGenotype(HX, H1, false)
	case cgx1p:
		return MakeGenotype(HX, H1, true)
	case cgxx:
		return MakeGenotype(HX, HX, true)
	default:
		return MakeGenotype(HX, HX, true)
	}
}

// compression run-length layout: the low nibble holds the CompressedGenotype
// code, the high nibble holds up to 15 additional repeats of that code (so
// one byte can represent a run of 1..16 identical genotypes).
const (
	runOff  = 4
	runMax  = (1 << runOff) - 1 // 15
	runMask = CompressedGenotype(runMax)
)

// CompressVector run-length-compresses a genotype vector.
func CompressVector(v []Genotype) []byte {
	if len(v) == 0 {
		return nil
	}
	out := make([]byte, 0, len(v))
	out = append(out, byte(CompressGenotype(v[0])))
	num := 0
	k := 0
	for i := 1; i < len(v); i++ {
		c := byte(CompressGenotype(v[i]))
		if num < runMax && out[k] == c {
			num++
			continue
		}
		if num > 0 {
			out[k] |= byte(num << runOff)
		}
		out = append(out, c)
		num = 0
		k++
	}
	if num > 0 {
		out[k] |= byte(num << runOff)
	}
	return out
}

// DecompressVector expands a run-length-compressed byte vector. full is the
// expected decoded length; a length mismatch is a fatal decode error, per
// the grid's "decode that produces a vector of unexpected length is fatal"
// invariant.
func DecompressVector(v []byte, full int) ([]Genotype, error) {
	if len(v) == 0 {
		if full == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("gen: decompress: empty input for expected length %d", full)
	}
	codes := make([]CompressedGenotype, len(v))
	reps := make([]int, len(v))
	length := len(v)
	for i, b := range v {
		codes[i] = CompressedGenotype(b) & runMask
		reps[i] = int(b>>runOff) & runMax
		length += reps[i]
	}
	if length != full {
		return nil, fmt.Errorf("gen: decompress: decoded length %d != expected %d", length, full)
	}
	out := make([]Genotype, length)
	num, k := 0, 0
	g := codes[0].Uncompress()
	for i := 0; i < length; i++ {
		out[i] = g
		if num == reps[k] {
			num = 0
			k++
			if k < len(codes) {
				g = codes[k].Uncompress()
			}
		} else {
			num++
		}
	}
	return out, nil
}
