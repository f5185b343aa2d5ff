// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

package gen

import (
	"fmt"
	"io"

	"github.com/popgen-tools/geva/internal/binio"
	"golang.org/x/exp/rand"
)

// Load reads a complete binary grid file (header, per-sample walkabout
// index, sample records, marker records) and returns a ready-to-use Grid.
// source must remain open for the lifetime of the returned Grid: genotype
// vectors are decoded lazily on Get/Read, not eagerly here.
func Load(source io.ReadSeeker, rng *rand.Rand) (*Grid, error) {
	r := binio.NewReader(source)

	if err := r.Match(); err != nil {
		return nil, fmt.Errorf("gen: grid header: %w", err)
	}
	sampleSize, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	markerSize, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if _, err := r.Uint32(); err != nil { // interval[0]
		return nil, err
	}
	if _, err := r.Uint32(); err != nil { // interval[1]
		return nil, err
	}
	if _, err := r.Bool(); err != nil { // compression flag
		return nil, err
	}

	index := make([]int64, sampleSize)
	for i := 0; i < int(sampleSize); i++ {
		off, err := r.Here()
		if err != nil {
			return nil, err
		}
		index[i] = off

		if err := r.Match(); err != nil {
			return nil, fmt.Errorf("gen: grid: sample %d checkpoint: %w", i, err)
		}
		idx, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		if int(idx) != i {
			return nil, fmt.Errorf("gen: grid: sample %d has index %d in file", i, idx)
		}
		if _, err := r.Uint32(); err != nil { // out_length (marker size)
			return nil, err
		}
		rawLength, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		if err := r.Skip(int64(rawLength)); err != nil {
			return nil, err
		}
	}
	if err := r.Match(); err != nil {
		return nil, fmt.Errorf("gen: grid: post-sample-vectors checkpoint: %w", err)
	}

	samples := make([]Sample, sampleSize)
	for i := range samples {
		if err := r.Match(); err != nil {
			return nil, fmt.Errorf("gen: grid: sample record %d checkpoint: %w", i, err)
		}
		idx, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		label, err := r.String()
		if err != nil {
			return nil, err
		}
		phased, err := r.Bool()
		if err != nil {
			return nil, err
		}
		samples[idx] = Sample{ID: int(idx), Label: label, Phased: phased}
	}
	if err := r.Match(); err != nil {
		return nil, fmt.Errorf("gen: grid: post-sample-records checkpoint: %w", err)
	}

	markers := make([]Marker, markerSize)
	for i := range markers {
		if err := r.Match(); err != nil {
			return nil, fmt.Errorf("gen: grid: marker record %d checkpoint: %w", i, err)
		}
		idx, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		label, err := r.String()
		if err != nil {
			return nil, err
		}
		chrom, err := r.Uint16()
		if err != nil {
			return nil, err
		}
		pos, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		allele, err := r.String()
		if err != nil {
			return nil, err
		}
		var hapCount [3]uint32
		for k := range hapCount {
			v, err := r.Uint32()
			if err != nil {
				return nil, err
			}
			hapCount[k] = v
		}
		var genCount [4]uint32
		for k := range genCount {
			v, err := r.Uint32()
			if err != nil {
				return nil, err
			}
			genCount[k] = v
		}
		rate, err := r.Float64()
		if err != nil {
			return nil, err
		}
		dist, err := r.Float64()
		if err != nil {
			return nil, err
		}
		markers[idx] = Marker{
			ID: int(idx), Allele: allele, Chromosome: chrom, Position: pos,
			HapCount: hapCount, GenCount: genCount, RecombRate: rate, GenDist: dist,
		}
		_ = label // marker labels are not retained in Marker (kept for file fidelity only)
	}
	if err := r.Match(); err != nil {
		return nil, fmt.Errorf("gen: grid: closing checkpoint: %w", err)
	}

	return NewGrid(source, samples, markers, index, rng), nil
}

// Writer incrementally builds a binary grid file: one call to PutSample
// per individual (genotype vectors must all have the same length, equal
// to len(markers)), then a single Finish call once every sample and
// marker is known. Mirrors Grid::Make/Grid::save in the original.
type Writer struct {
	w          *binio.Writer
	compress   bool
	sampleSize int
	markerSize int
	offsets    []int64
	vectors    [][]byte // raw bytes written per sample, for the header length
}

func NewWriter(w io.Writer, compress bool) *Writer {
	return &Writer{w: binio.NewWriter(w), compress: compress}
}

// writeHeader must run first; sampleSize/markerSize are the final counts.
func (gw *Writer) writeHeader(sampleSize, markerSize int) error {
	if err := gw.w.Checkpoint(); err != nil {
		return err
	}
	if err := gw.w.Uint32(uint32(sampleSize)); err != nil {
		return err
	}
	if err := gw.w.Uint32(uint32(markerSize)); err != nil {
		return err
	}
	if err := gw.w.Uint32(0); err != nil { // interval[0]: unused by this port
		return err
	}
	if err := gw.w.Uint32(uint32(markerSize)); err != nil { // interval[1]
		return err
	}
	return gw.w.Bool(gw.compress)
}

// WriteAll writes a complete grid file in one pass: header, per-sample
// vectors, sample records, marker records, trailing checkpoint.
func WriteAll(w io.Writer, samples []Sample, markers []Marker, vectors [][]Genotype, compress bool) error {
	if len(samples) != len(vectors) {
		return fmt.Errorf("gen: WriteAll: %d samples but %d vectors", len(samples), len(vectors))
	}
	gw := NewWriter(w, compress)
	if err := gw.writeHeader(len(samples), len(markers)); err != nil {
		return err
	}
	for i, vec := range vectors {
		if len(vec) != len(markers) {
			return fmt.Errorf("gen: WriteAll: sample %d vector length %d != marker count %d", i, len(vec), len(markers))
		}
		var raw []byte
		if compress {
			raw = CompressVector(vec)
		} else {
			raw = make([]byte, len(vec))
			for k, g := range vec {
				raw[k] = byte(g)
			}
		}
		if err := gw.w.Checkpoint(); err != nil {
			return err
		}
		if err := gw.w.Uint32(uint32(i)); err != nil {
			return err
		}
		if err := gw.w.Uint32(uint32(len(vec))); err != nil { // out_length
			return err
		}
		if err := gw.w.Uint32(uint32(len(raw))); err != nil { // raw_length
			return err
		}
		if err := gw.w.Bytes(raw); err != nil {
			return err
		}
	}
	if err := gw.w.Checkpoint(); err != nil {
		return err
	}

	for _, s := range samples {
		if err := gw.w.Checkpoint(); err != nil {
			return err
		}
		if err := gw.w.Uint32(uint32(s.ID)); err != nil {
			return err
		}
		if err := gw.w.String(s.Label); err != nil {
			return err
		}
		if err := gw.w.Bool(s.Phased); err != nil {
			return err
		}
	}
	if err := gw.w.Checkpoint(); err != nil {
		return err
	}

	for _, m := range markers {
		if err := gw.w.Checkpoint(); err != nil {
			return err
		}
		if err := gw.w.Uint32(uint32(m.ID)); err != nil {
			return err
		}
		if err := gw.w.String(fmt.Sprintf("m%d", m.ID)); err != nil {
			return err
		}
		if err := gw.w.Uint16(m.Chromosome); err != nil {
			return err
		}
		if err := gw.w.Uint32(m.Position); err != nil {
			return err
		}
		if err := gw.w.String(m.Allele); err != nil {
			return err
		}
		for _, c := range m.HapCount {
			if err := gw.w.Uint32(c); err != nil {
				return err
			}
		}
		for _, c := range m.GenCount {
			if err := gw.w.Uint32(c); err != nil {
				return err
			}
		}
		if err := gw.w.Float64(m.RecombRate); err != nil {
			return err
		}
		if err := gw.w.Float64(m.GenDist); err != nil {
			return err
		}
	}
	return gw.w.Checkpoint()
}
