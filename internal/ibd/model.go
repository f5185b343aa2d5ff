// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

// Package ibd implements the two-state (NON/IBD) HMM that decodes identity-
// by-descent segment endpoints around a focal site, and the nearest-
// neighbour pair selector that feeds it candidate pairs.
package ibd

import (
	"fmt"
	"math"
	"sync"
)

// State is one of the two hidden states.
type State uint8

const (
	NonState State = iota
	IBDState
)

// Obs is the observed pair-of-haplotypes symbol at one site.
type Obs uint8

const (
	Obs00 Obs = iota // both reference
	Obs01             // heterozygous pair (01 or 10, unordered)
	Obs11             // both alternate
	ObsMissing
)

// ObsHapPair classifies a pair of haplotype symbols.
func ObsHapPair(h0, h1 int) Obs {
	switch {
	case h0 == 0 && h1 == 0:
		return Obs00
	case (h0 == 0 && h1 == 1) || (h0 == 1 && h1 == 0):
		return Obs01
	case h0 == 1 && h1 == 1:
		return Obs11
	default:
		return ObsMissing
	}
}

const decimalErr = 1e-8

// Model holds the per-marker initial and emission tables and the lazily
// built, mutex-cached per-interval transition matrices.
type Model struct {
	Ne float64 // effective population size
	Nh int     // haploid sample size (2 * individuals)

	// per-marker, indexed by marker id
	InitsCon [][2]float64 // concordant initial probabilities [NON, IBD]
	InitsDis [][2]float64 // discordant initial probabilities [NON, IBD]
	Emiss    [][2][4]float64 // [marker][state][Obs]

	// per-interval genetic distance (cM) between marker i and i+1
	Dist []float64

	mu    sync.Mutex
	trans map[int][][2][2]float64 // fk -> per-interval transition matrices
}

func NewModel(ne float64, nh int, dist []float64) *Model {
	return &Model{Ne: ne, Nh: nh, Dist: dist, trans: map[int][][2][2]float64{}}
}

// ExpectedAge computes the expected coalescence time (in units of 2Ne) for
// a site with fk carriers out of Nh haplotypes, per spec §4.3.
func (m *Model) ExpectedAge(fk int) float64 {
	if fk <= 1 {
		return decimalErr
	}
	if fk >= m.Nh {
		return 2
	}
	f := float64(fk) / float64(m.Nh)
	return -2 * (f / (1 - f)) * math.Log(f)
}

// transition builds (and caches) the per-interval 2x2 transition matrices
// for the given focal allele count fk. fk==0 is special-cased to an
// expected age of exactly 1.0 (not routed through ExpectedAge's fk<=1
// branch): this basis is used specifically for discordant-pair decoding,
// matching the original's calc_trans_matric(0, ...) call.
func (m *Model) transition(fk int) ([][2][2]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.trans[fk]; ok {
		return t, nil
	}
	xage := 1.0
	if fk != 0 {
		xage = m.ExpectedAge(fk)
	}
	t := make([][2][2]float64, len(m.Dist))
	for i, d := range m.Dist {
		p := math.Exp(xage * -4 * m.Ne * d / 100)
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("ibd: model: transition probability %v out of [0,1] for fk=%d interval=%d", p, fk, i)
		}
		// T[NON][NON]=1, T[NON][IBD]=0, T[IBD][NON]=1-p, T[IBD][IBD]=p
		t[i][NonState][NonState] = 1
		t[i][NonState][IBDState] = 0
		t[i][IBDState][NonState] = 1 - p
		t[i][IBDState][IBDState] = p
	}
	m.trans[fk] = t
	return t, nil
}

// Transition returns the cached (or newly built) transition table for fk.
func (m *Model) Transition(fk int) ([][2][2]float64, error) { return m.transition(fk) }

// normalizeRow renormalises a 2-element probability row to sum to 1 and
// bumps any zero entry off zero by ε, matching the loader's treatment of
// both the concordant and discordant initial-probability tables
// identically (see DESIGN.md open-question decision #2).
func normalizeRow(row [2]float64) [2]float64 {
	sum := row[0] + row[1]
	if sum <= 0 {
		return [2]float64{0.5, 0.5}
	}
	row[0] /= sum
	row[1] /= sum
	if row[0] < decimalErr {
		row[0] = decimalErr
	}
	if row[1] < decimalErr {
		row[1] = decimalErr
	}
	sum = row[0] + row[1]
	row[0] /= sum
	row[1] /= sum
	return row
}

// GenerateExpected fills Model's InitsCon/InitsDis/Emiss tables under the
// "expected" rule described in spec §4.3, for nm markers: IBD=1, NON=0 in
// the interior with endpoints pinned, and emission concentrated on the
// matching observation under IBD (with a configurable leak to the
// heterozygous observation) and binomial on allele frequency under NON.
func (m *Model) GenerateExpected(nm int, altFreq []float64, leak float64) {
	m.InitsCon = make([][2]float64, nm)
	m.InitsDis = make([][2]float64, nm)
	m.Emiss = make([][2][4]float64, nm)
	for i := 0; i < nm; i++ {
		ibd, non := 1.0, decimalErr
		if i == 0 || i == nm-1 {
			ibd, non = 0.5, 0.5
		}
		m.InitsCon[i] = normalizeRow([2]float64{non, ibd})
		m.InitsDis[i] = normalizeRow([2]float64{non, ibd})

		f := altFreq[i]
		// NON: binomial on allele frequency
		m.Emiss[i][NonState][Obs00] = (1 - f) * (1 - f)
		m.Emiss[i][NonState][Obs01] = 2 * f * (1 - f)
		m.Emiss[i][NonState][Obs11] = f * f
		m.Emiss[i][NonState][ObsMissing] = 1

		// IBD: concentrated on the matching observation, leaking to het
		m.Emiss[i][IBDState][Obs00] = 1 - leak
		m.Emiss[i][IBDState][Obs01] = leak
		m.Emiss[i][IBDState][Obs11] = 1 - leak
		m.Emiss[i][IBDState][ObsMissing] = 1
	}
}
