// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

package ibd

import "golang.org/x/exp/rand"

// ResolveChromosome picks which chromosome copy (maternal/paternal) of one
// individual's genotype carries the alt allele at the focal site, given
// the genotype's two haplotype symbols h0, h1 (0=ref, 1=alt, 2=missing).
// A het call (1,0) or (0,1) determines the answer unambiguously. A
// homozygous call (both ref or both alt) is ambiguous: the caller was
// expecting this individual to carry exactly one alt copy to share, but
// the genotype doesn't distinguish maternal from paternal, so a fair coin
// decides. Returns 0 for maternal, 1 for paternal.
func ResolveChromosome(h0, h1 int, rng *rand.Rand) int {
	switch {
	case h0 == 1 && h1 == 0:
		return 0 // maternal carries alt
	case h0 == 0 && h1 == 1:
		return 1 // paternal carries alt
	default:
		return int(rng.Intn(2))
	}
}
