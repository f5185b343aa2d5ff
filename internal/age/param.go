// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

// Package age implements the cumulative coalescent function (CCF) density
// and the composite-likelihood estimate (CLE) aggregator: the per-pair and
// per-site age-of-variant estimation described in spec §4.7-4.8.
package age

import "math"

const (
	DecimalErr = 1e-8
	NearNil    = 1e-12
	NearOne    = 1 - 1e-12
)

// Clock selects which molecular-clock component(s) a CCF is computed under.
type Clock int

const (
	ClockMut Clock = iota
	ClockRec
	ClockCmb
)

// Param is the immutable parameter block shared by every pair and site
// computation: sample counts, population-genetic constants, per-marker
// precomputed vectors, and the discrete coalescent time grid. Built once
// at startup and never mutated afterwards.
type Param struct {
	Ng int     // individuals
	Nh int     // haplotypes, 2*Ng
	Nm int     // markers
	Ne float64 // effective population size
	Mr float64 // mutation rate
	Theta float64 // 4*Ne*Mr

	FirstBoundary int // first marker index (global boundary)
	LastBoundary  int // last marker index (global boundary)

	Position []float64 // per-marker physical position
	Distance []float64 // per-marker cumulative genetic distance, rescaled by 4Ne/100
	AltFreq  []float64 // per-marker alt allele frequency
	LogHet   []float64 // per-marker log heterozygosity
	LogHom   []float64 // per-marker log homozygosity
	CumLogHom []float64 // running cumulative sum of LogHom

	BreakptRange  int // sites considered past a breakpoint, default 1000
	NearestRange  int // sites scanned for Hamming ranking, default 5000
	LimitSharers  int // concordant pair cap, default 100
	OutgroupSize  int // discordant pair cap, default 100

	NT       int       // time grid point count, default 1024
	Time     []float64 // log-spaced time grid, units of 2Ne
	LogPrior []float64 // companion log-prior vector
}

// DefaultCaps matches spec §3's stated defaults.
const (
	DefaultBreakptRange = 1000
	DefaultNearestRange = 5000
	DefaultLimitSharers = 100
	DefaultOutgroupSize = 100
	DefaultNT           = 1024
	DefaultMaxTime      = 40 // units of 2Ne
	DefaultMinTime      = 1e-8
)

// NewTimeGrid builds nt log-spaced points from minTime to maxTime
// (inclusive), units of 2Ne, with a uniform-in-log-time prior.
func NewTimeGrid(nt int, minTime, maxTime float64) (time, logPrior []float64) {
	time = make([]float64, nt)
	logPrior = make([]float64, nt)
	logMin := math.Log(minTime)
	logMax := math.Log(maxTime)
	step := (logMax - logMin) / float64(nt-1)
	for i := 0; i < nt; i++ {
		time[i] = math.Exp(logMin + step*float64(i))
	}
	time[0], time[nt-1] = minTime, maxTime
	// uniform-in-log-time prior, normalised to sum to 1
	logp := -math.Log(float64(nt))
	for i := range logPrior {
		logPrior[i] = logp
	}
	return time, logPrior
}

// NewParam constructs a Param with the default caps and a freshly built
// time grid. Per-marker vectors must be filled in by the caller from the
// loaded Grid.
func NewParam(ng, nm int, ne, mr float64) *Param {
	time, logPrior := NewTimeGrid(DefaultNT, DefaultMinTime, DefaultMaxTime)
	return &Param{
		Ng: ng, Nh: 2 * ng, Nm: nm, Ne: ne, Mr: mr, Theta: 4 * ne * mr,
		BreakptRange: DefaultBreakptRange, NearestRange: DefaultNearestRange,
		LimitSharers: DefaultLimitSharers, OutgroupSize: DefaultOutgroupSize,
		NT: DefaultNT, Time: time, LogPrior: logPrior,
	}
}

// AtGlobalBoundary reports whether marker index i is the first or last
// marker overall (as opposed to merely the edge of one pair's segment).
func (p *Param) AtGlobalBoundary(i int) bool {
	return i <= p.FirstBoundary || i >= p.LastBoundary
}
