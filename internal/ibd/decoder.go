// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

package ibd

import (
	"fmt"
	"math"
)

// Segment is the inclusive [lhs, rhs] marker-index range of an inferred
// IBD tract around a focal marker. Invariant: lhs <= focal <= rhs.
type Segment struct {
	Lhs, Focal, Rhs int
}

// side identifies which direction (left or right of focal) a decoder pass
// runs over.
type side int

const (
	left side = iota
	right
)

// Decoder runs the scaled Viterbi / forward / backward / posterior passes
// described in spec §4.4, against a shared Model.
type Decoder struct {
	Model *Model
}

func NewDecoder(m *Model) *Decoder { return &Decoder{Model: m} }

// obsAt returns the Obs classification for one haplotype pair at marker i,
// given the two haplotype vectors (values 0=ref,1=alt,2=missing).
func obsAt(a, b []int, i int) Obs {
	ha, hb := a[i], b[i]
	if ha == 2 || hb == 2 {
		return ObsMissing
	}
	return ObsHapPair(ha, hb)
}

// scale divides both state probabilities by the larger of the two
// (clamping it to exactly 1), returning the divisor as the step's scaling
// weight. This is the numerically stable rescaling spec §9 describes.
func scale(p *[2]float64) float64 {
	w := p[0]
	if p[1] > w {
		w = p[1]
	}
	if w <= 0 {
		return 1
	}
	p[0] /= w
	p[1] /= w
	return w
}

// Detect decodes the IBD segment around focal for one pair of haplotype
// vectors a, b (each length = total marker count, values in {0,1,2}).
// discordant selects the discordant initial-probability table and routes
// the Viterbi/forward transition basis through fk=0 rather than the
// pair's actual fk (matching the original's preserved asymmetry — see
// DESIGN.md open-question decision #4; the backward pass, used only when
// a posterior is requested, always uses the pair's true fk).
func (d *Decoder) Detect(a, b []int, focal, fk int, discordant bool) (Segment, error) {
	obsFocal := obsAt(a, b, focal)
	if discordant {
		if obsFocal != Obs01 {
			return Segment{}, fmt.Errorf("ibd: decoder: focal observation %v invalid for discordant pair", obsFocal)
		}
	} else {
		if obsFocal != Obs11 {
			return Segment{}, fmt.Errorf("ibd: decoder: focal observation %v invalid for concordant pair", obsFocal)
		}
	}

	transFk := fk
	if discordant {
		transFk = 0
	}
	trans, err := d.Model.transition(transFk)
	if err != nil {
		return Segment{}, err
	}

	lhs, err := d.viterbiEndpoint(a, b, focal, discordant, trans, left)
	if err != nil {
		return Segment{}, err
	}
	rhs, err := d.viterbiEndpoint(a, b, focal, discordant, trans, right)
	if err != nil {
		return Segment{}, err
	}
	return Segment{Lhs: lhs, Focal: focal, Rhs: rhs}, nil
}

// viterbiEndpoint runs the scaled max-product Viterbi recursion outward
// from focal in the given direction and returns the decoded segment
// endpoint on that side: the largest marker index k such that the Viterbi
// path at k is IBD, scanning outward from focal, or focal itself if the
// very first step off focal is already NON.
func (d *Decoder) viterbiEndpoint(a, b []int, focal int, discordant bool, trans [][2][2]float64, sd side) (int, error) {
	n := len(a)
	inits := d.Model.InitsCon[focal]
	if discordant {
		inits = d.Model.InitsDis[focal]
	}
	emissFocal := d.Model.Emiss[focal]
	focalObs := obsAt(a, b, focal)

	prob := [2]float64{
		inits[NonState] * emissFocal[NonState][focalObs],
		inits[IBDState] * emissFocal[IBDState][focalObs],
	}
	scale(&prob)

	type step struct {
		prob [2]float64
		prev [2]State // predecessor state chosen for NON/IBD at this step
	}
	var path []step

	k := focal
	endpoint := focal
	for {
		if sd == left {
			k--
		} else {
			k++
		}
		if k < 0 || k >= n {
			break
		}
		intervalIdx := k
		if sd == left {
			intervalIdx = k
		} else {
			intervalIdx = k - 1
		}
		if intervalIdx < 0 || intervalIdx >= len(trans) {
			break
		}
		T := trans[intervalIdx]
		obs := obsAt(a, b, k)
		e := d.Model.Emiss[k]

		var emit [2]float64
		if obs == ObsMissing {
			emit = [2]float64{1, 1}
		} else {
			emit = [2]float64{e[NonState][obs], e[IBDState][obs]}
		}

		var next [2]float64
		var prev [2]State
		// NON
		nonFromNon := prob[NonState] * T[NonState][NonState]
		nonFromIbd := prob[IBDState] * T[IBDState][NonState]
		if nonFromNon >= nonFromIbd {
			next[NonState] = nonFromNon
			prev[NonState] = NonState
		} else {
			next[NonState] = nonFromIbd
			prev[NonState] = IBDState
		}
		next[NonState] *= emit[NonState]
		// IBD
		ibdFromNon := prob[NonState] * T[NonState][IBDState]
		ibdFromIbd := prob[IBDState] * T[IBDState][IBDState]
		if ibdFromNon >= ibdFromIbd {
			next[IBDState] = ibdFromNon
			prev[IBDState] = NonState
		} else {
			next[IBDState] = ibdFromIbd
			prev[IBDState] = IBDState
		}
		next[IBDState] *= emit[IBDState]

		scale(&next)
		prob = next
		path = append(path, step{prob: prob, prev: prev})
	}

	if len(path) == 0 {
		return focal, nil
	}

	// backtrack: argmax at the last step (ties favour IBD, i.e. NON only
	// wins on strict >), then follow prev[] back toward focal.
	last := path[len(path)-1]
	var state State
	if last.prob[NonState] > last.prob[IBDState] {
		state = NonState
	} else {
		state = IBDState
	}

	// walk backward from the last step toward focal, recording the state
	// at each marker; stop advancing `endpoint` at the first NON.
	states := make([]State, len(path))
	states[len(path)-1] = state
	for i := len(path) - 1; i > 0; i-- {
		state = path[i].prev[state]
		states[i-1] = state
	}

	k = focal
	for i := 0; i < len(states); i++ {
		if sd == left {
			k--
		} else {
			k++
		}
		if states[i] != IBDState {
			break
		}
		endpoint = k
	}
	return endpoint, nil
}

// Posterior computes, for one side of the focal site, the per-marker log
// posterior probability of each state, using scaled forward/backward
// passes combined via cumulative log-weights (spec §4.4's numerically
// stable posterior). The backward pass always uses the pair's true fk
// transition basis, regardless of discordance — this asymmetry with the
// Viterbi/forward pass is intentional, see DESIGN.md decision #4.
func (d *Decoder) Posterior(a, b []int, focal, fk int, discordant bool, sd side) ([][2]float64, error) {
	transFwd, err := d.Model.transition(fkOrZero(fk, discordant))
	if err != nil {
		return nil, err
	}
	transBwd, err := d.Model.transition(fk)
	if err != nil {
		return nil, err
	}

	n := len(a)
	inits := d.Model.InitsCon[focal]
	if discordant {
		inits = d.Model.InitsDis[focal]
	}
	focalObs := obsAt(a, b, focal)
	emissFocal := d.Model.Emiss[focal]

	var markers []int
	k := focal
	for {
		markers = append(markers, k)
		if sd == left {
			k--
		} else {
			k++
		}
		if k < 0 || k >= n {
			break
		}
	}

	fw := make([][2]float64, len(markers))
	fwWeight := make([]float64, len(markers))
	fw[0] = [2]float64{inits[NonState] * emissFocal[NonState][focalObs], inits[IBDState] * emissFocal[IBDState][focalObs]}
	fwWeight[0] = scale(&fw[0])

	for i := 1; i < len(markers); i++ {
		mIdx := markers[i]
		intervalIdx := markers[i-1]
		if sd == left {
			intervalIdx = mIdx
		} else {
			intervalIdx = mIdx - 1
		}
		if intervalIdx < 0 || intervalIdx >= len(transFwd) {
			fw[i] = fw[i-1]
			fwWeight[i] = 1
			continue
		}
		T := transFwd[intervalIdx]
		obs := obsAt(a, b, mIdx)
		e := d.Model.Emiss[mIdx]
		var emit [2]float64
		if obs == ObsMissing {
			emit = [2]float64{1, 1}
		} else {
			emit = [2]float64{e[NonState][obs], e[IBDState][obs]}
		}
		prev := fw[i-1]
		fw[i][NonState] = emit[NonState] * (prev[NonState]*T[NonState][NonState] + prev[IBDState]*T[IBDState][NonState])
		fw[i][IBDState] = emit[IBDState] * (prev[NonState]*T[NonState][IBDState] + prev[IBDState]*T[IBDState][IBDState])
		fwWeight[i] = scale(&fw[i])
	}

	bw := make([][2]float64, len(markers))
	bwWeight := make([]float64, len(markers))
	last := len(markers) - 1
	bw[last] = [2]float64{1, 1}
	bwWeight[last] = 1
	for i := last - 1; i >= 0; i-- {
		mIdx := markers[i]
		nextIdx := markers[i+1]
		intervalIdx := mIdx
		if sd == left {
			intervalIdx = nextIdx
		} else {
			intervalIdx = mIdx
		}
		if intervalIdx < 0 || intervalIdx >= len(transBwd) {
			bw[i] = bw[i+1]
			bwWeight[i] = 1
			continue
		}
		T := transBwd[intervalIdx]
		obs := obsAt(a, b, nextIdx)
		e := d.Model.Emiss[nextIdx]
		var emit [2]float64
		if obs == ObsMissing {
			emit = [2]float64{1, 1}
		} else {
			emit = [2]float64{e[NonState][obs], e[IBDState][obs]}
		}
		next := bw[i+1]
		bw[i][NonState] = T[NonState][NonState]*emit[NonState]*next[NonState] + T[NonState][IBDState]*emit[IBDState]*next[IBDState]
		bw[i][IBDState] = T[IBDState][NonState]*emit[NonState]*next[NonState] + T[IBDState][IBDState]*emit[IBDState]*next[IBDState]
		bwWeight[i] = scale(&bw[i])
	}

	fwLog := make([]float64, len(markers))
	bwLog := make([]float64, len(markers))
	for i, w := range fwWeight {
		if i == 0 {
			fwLog[i] = math.Log(w)
		} else {
			fwLog[i] = fwLog[i-1] + math.Log(w)
		}
	}
	for i := last; i >= 0; i-- {
		if i == last {
			bwLog[i] = math.Log(bwWeight[i])
		} else {
			bwLog[i] = bwLog[i+1] + math.Log(bwWeight[i])
		}
	}

	non := fwLog[last] + math.Log(fw[last][NonState])
	ibd := fwLog[last] + math.Log(fw[last][IBDState])
	sum := non + math.Log(1+math.Exp(ibd-non))

	out := make([][2]float64, len(markers))
	for i := range markers {
		pnon := math.Log(fw[i][NonState]*bw[i][NonState]) + fwLog[i] + bwLog[i] - sum
		pibd := math.Log(fw[i][IBDState]*bw[i][IBDState]) + fwLog[i] + bwLog[i] - sum
		out[i] = [2]float64{pnon, pibd}
	}
	return out, nil
}

func fkOrZero(fk int, discordant bool) int {
	if discordant {
		return 0
	}
	return fk
}
