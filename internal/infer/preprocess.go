// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

package infer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/popgen-tools/geva/internal/gen"
)

// VariantRecord is one biallelic site as handed to preprocessing by an
// external variant-call reader. Reading VCF itself is out of scope (spec
// §1's non-goals); this is the contract a VCF (or other) front-end
// collaborator populates before calling BuildSamplesAndMarkers and
// gen.WriteAll.
type VariantRecord struct {
	Chromosome uint16
	Position   uint32
	Allele     string
	GenDist    float64
	Genotypes  []gen.Genotype // one per sample
}

// ReadTabular parses a minimal whitespace-separated text format used by
// tests and small examples in place of a real VCF reader: a header line
// "CHROM POS ALLELE GENDIST sample1 sample2 ...", followed by one row per
// site with tri-state genotype tokens (0|0, 0|1, 1|0, 1|1, 0/0, 0/1, 1/1,
// ./.) per sample.
func ReadTabular(r io.Reader) (samples []string, records []VariantRecord, err error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("infer: preprocess: empty input")
	}
	header := strings.Fields(scanner.Text())
	if len(header) < 5 {
		return nil, nil, fmt.Errorf("infer: preprocess: header too short")
	}
	samples = header[4:]

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4+len(samples) {
			return nil, nil, fmt.Errorf("infer: preprocess: row has %d fields, want %d", len(fields), 4+len(samples))
		}
		chr, err := strconv.ParseUint(fields[0], 10, 16)
		if err != nil {
			return nil, nil, fmt.Errorf("infer: preprocess: chromosome: %w", err)
		}
		pos, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("infer: preprocess: position: %w", err)
		}
		dist, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("infer: preprocess: gendist: %w", err)
		}
		rec := VariantRecord{Chromosome: uint16(chr), Position: uint32(pos), Allele: fields[2], GenDist: dist}
		rec.Genotypes = make([]gen.Genotype, len(samples))
		for i, tok := range fields[4:] {
			g, err := parseGenotypeToken(tok)
			if err != nil {
				return nil, nil, fmt.Errorf("infer: preprocess: sample %d: %w", i, err)
			}
			rec.Genotypes[i] = g
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return samples, records, nil
}

func parseGenotypeToken(tok string) (gen.Genotype, error) {
	phased := strings.Contains(tok, "|")
	sep := "/"
	if phased {
		sep = "|"
	}
	parts := strings.SplitN(tok, sep, 2)
	if len(parts) != 2 {
		return gen.Missing, fmt.Errorf("malformed genotype token %q", tok)
	}
	h0, err0 := parseHap(parts[0])
	h1, err1 := parseHap(parts[1])
	if err0 != nil {
		return gen.Missing, err0
	}
	if err1 != nil {
		return gen.Missing, err1
	}
	return gen.MakeGenotype(h0, h1, phased), nil
}

func parseHap(s string) (gen.Hap, error) {
	switch s {
	case "0":
		return gen.H0, nil
	case "1":
		return gen.H1, nil
	case ".":
		return gen.HX, nil
	default:
		return gen.HX, fmt.Errorf("unrecognised haplotype symbol %q", s)
	}
}

// BuildSamplesAndMarkers derives the grid Sample/Marker metadata and the
// per-sample genotype vectors from a set of variant records, computing
// per-marker carrier counts and running cumulative genetic distance,
// ready for gen.WriteAll.
func BuildSamplesAndMarkers(names []string, records []VariantRecord) ([]gen.Sample, []gen.Marker, [][]gen.Genotype) {
	ns := len(names)
	samples := make([]gen.Sample, ns)
	for i, n := range names {
		samples[i] = gen.Sample{ID: i, Label: n, Phased: true}
	}

	markers := make([]gen.Marker, len(records))
	vectors := make([][]gen.Genotype, ns)
	for i := range vectors {
		vectors[i] = make([]gen.Genotype, len(records))
	}

	cum := 0.0
	for m, rec := range records {
		cum += rec.GenDist
		marker := gen.Marker{ID: m, Chromosome: rec.Chromosome, Position: rec.Position, Allele: rec.Allele, GenDist: cum}
		for i, g := range rec.Genotypes {
			vectors[i][m] = g
			h0, h1 := g.Haplotypes()
			marker.HapCount[indexOf(h0)]++
			marker.HapCount[indexOf(h1)]++
			marker.GenCount[g.Index()]++
			if h0 != gen.HX {
				samples[i].Phased = samples[i].Phased && g.IsPhased()
			}
		}
		markers[m] = marker
	}
	return samples, markers, vectors
}

func indexOf(h gen.Hap) int {
	switch h {
	case gen.H0:
		return 0
	case gen.H1:
		return 1
	default:
		return 2
	}
}
