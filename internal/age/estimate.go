// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

package age

import "math"

// CLE is the per-site, per-clock composite likelihood estimate: a
// posterior over the shared coalescent-time grid, combining every
// contributing pair.
type CLE struct {
	NCon, NDis int // contributing concordant / discordant pair counts

	Mean, Mode, Median float64
	CI025, CI975       float64
	Lower, Upper, Estim float64 // geometric robust estimate

	Seq  []float64 // normalised posterior on the time grid
	Good bool
}

// Estimate accumulates per-pair CCFs for one site under one clock.
type Estimate struct {
	p *Param

	logsum []float64
	shared int
	others int
	lower  float64 // sum of log(q50) over concordant pairs
	upper  float64 // sum of log(q50) over discordant pairs
}

func NewEstimate(p *Param) *Estimate {
	return &Estimate{p: p, logsum: make([]float64, len(p.Time))}
}

// Include folds one pair's CCF into the running sums. Returns false (and
// discards the pair) if the CCF isn't good/passing, or if its quantiles
// leave the grid range — matching the original's exact boundary checks.
func (e *Estimate) Include(ccf *CCF, share bool) bool {
	if !ccf.Good || !ccf.Pass {
		return false
	}
	minT, maxT := e.p.Time[0], e.p.Time[len(e.p.Time)-1]
	if ccf.Q25 >= maxT || ccf.Q50 <= minT || ccf.Q50 >= maxT || ccf.Q75 <= minT {
		ccf.Good = false
		return false
	}
	for i, v := range ccf.D {
		e.logsum[i] += math.Log(v)
	}
	if share {
		e.shared++
		e.lower += math.Log(ccf.Q50)
	} else {
		e.others++
		e.upper += math.Log(ccf.Q50)
	}
	return true
}

// Estimate reduces the accumulated sums into a CLE, following
// AgeEstimate.cpp's Estimate::estimate exactly.
func (e *Estimate) Estimate() CLE {
	out := CLE{NCon: e.shared, NDis: e.others}
	if e.shared == 0 || e.others == 0 {
		return out
	}

	lowerLog := e.lower / float64(e.shared)
	upperLog := e.upper / float64(e.others)
	out.Lower = math.Exp(lowerLog)
	out.Upper = math.Exp(upperLog)
	out.Estim = math.Exp((lowerLog + upperLog) / 2)

	nt := len(e.logsum)
	argLogMax := 0
	logMax := e.logsum[0]
	for i := 1; i < nt; i++ {
		if e.logsum[i] > logMax {
			logMax = e.logsum[i]
			argLogMax = i
		}
	}
	if argLogMax == 0 || argLogMax == nt-1 {
		return out
	}

	seq := make([]float64, nt)
	sum := 0.0
	for i, v := range e.logsum {
		seq[i] = math.Exp(v - logMax)
		sum += seq[i]
	}
	for i := range seq {
		seq[i] /= sum
	}

	cumsum := make([]float64, nt)
	running := 0.0
	for i, v := range seq {
		running += v
		cumsum[i] = running
	}

	argMax := 0
	for i := 1; i < nt; i++ {
		if seq[i] > seq[argMax] {
			argMax = i
		}
	}
	argMin := 0
	bestDist := math.Abs(cumsum[0] - 0.5)
	for i := 1; i < nt; i++ {
		if d := math.Abs(cumsum[i] - 0.5); d < bestDist {
			bestDist = d
			argMin = i
		}
	}

	mean := 0.0
	for i, v := range seq {
		mean += e.p.Time[i] * v
	}
	out.Mean = mean
	out.Mode = e.p.Time[argMax]
	out.Median = e.p.Time[argMin]

	out.CI025 = interpolateCrossing(cumsum, e.p.Time, 0.025)
	out.CI975 = interpolateCrossing(cumsum, e.p.Time, 0.975)

	peak := seq[argMax]
	out.Seq = make([]float64, nt)
	for i, v := range seq {
		if v > DecimalErr {
			out.Seq[i] = v / peak
		}
	}
	out.Good = true
	return out
}

// interpolateCrossing finds the grid time at which cumsum linearly
// crosses target, per the original's approx<T> helper.
func interpolateCrossing(cumsum, time []float64, target float64) float64 {
	for i := 1; i < len(cumsum); i++ {
		if cumsum[i-1] <= target && cumsum[i] >= target {
			y0, y1 := cumsum[i-1], cumsum[i]
			x0, x1 := time[i-1], time[i]
			if y1 == y0 {
				return x0
			}
			return x0 + (target-y0)*(x1-x0)/(y1-y0)
		}
	}
	if target <= cumsum[0] {
		return time[0]
	}
	return time[len(time)-1]
}

// Filter implements spec §4.8's pair-filtering pass for one clock: find
// the grid time t* minimising wsum(t), then mark the losing half of each
// class's extreme pairs as Pass=false.
type FilterCandidate struct {
	CCF   *CCF
	Q50   float64
	Share bool
}

func Filter(p *Param, candidates []FilterCandidate) {
	var con, dis []FilterCandidate
	for _, c := range candidates {
		if c.Share {
			con = append(con, c)
		} else {
			dis = append(dis, c)
		}
	}
	nCon, nDis := len(con), len(dis)
	if nCon == 0 || nDis == 0 {
		return
	}

	bestW := math.MaxFloat64
	bestT := p.Time[0]
	for _, t := range p.Time {
		nconT, ndisT := 0, 0
		for _, c := range con {
			if c.Q50 > t {
				nconT++
			}
		}
		for _, c := range dis {
			if c.Q50 < t {
				ndisT++
			}
		}
		w := float64(nconT)/float64(nCon) + float64(ndisT)/float64(nDis)
		if w < bestW {
			bestW = w
			bestT = t
		}
	}

	failTopHalf(con, bestT, true)
	failTopHalf(dis, bestT, false)
}

// failTopHalf marks pass=false on the highest-q50 (concordant, above t*)
// or lowest-q50 (discordant, below t*) half of the candidates, floored; a
// lone candidate, whose floored half is zero, is failed outright.
func failTopHalf(list []FilterCandidate, t float64, above bool) {
	var candidates []FilterCandidate
	for _, c := range list {
		if (above && c.Q50 > t) || (!above && c.Q50 < t) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return
	}
	quota := len(candidates) / 2
	if quota <= 0 {
		for _, c := range candidates {
			c.CCF.Pass = false
		}
		return
	}
	sortByQ50(candidates, above)
	for i := 0; i < quota; i++ {
		candidates[i].CCF.Pass = false
	}
}

func sortByQ50(c []FilterCandidate, descending bool) {
	// simple insertion sort: candidate lists are small (bounded by
	// LimitSharers/OutgroupSize, at most a few hundred entries)
	for i := 1; i < len(c); i++ {
		for j := i; j > 0; j-- {
			less := c[j].Q50 > c[j-1].Q50
			if !descending {
				less = c[j].Q50 < c[j-1].Q50
			}
			if less {
				c[j], c[j-1] = c[j-1], c[j]
			} else {
				break
			}
		}
	}
}
