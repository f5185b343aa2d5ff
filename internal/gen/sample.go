package gen

// Sample is an immutable per-individual record, created once at data load
// and never mutated afterwards.
type Sample struct {
	ID     int
	Label  string
	Phased bool
}

// Marker is an immutable per-site record.
type Marker struct {
	ID         int
	Chromosome uint16
	Position   uint32
	Allele     string

	HapCount [3]uint32 // H0, H1, HX counts across all haplotypes at this site
	GenCount [4]uint32 // G0, G1, G2, GX counts across all individuals

	RecombRate float64
	GenDist    float64 // cumulative genetic distance, cM
}

// AltCount returns the minor/alt allele carrier count (fk) at this marker,
// counted in haplotypes (matches the original's hap_count[H1] convention).
func (m Marker) AltCount() int { return int(m.HapCount[H1]) }
