// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

package ibd

import (
	"sort"

	"golang.org/x/exp/rand"
)

// Gamete identifies one chromosome copy of one individual.
type Gamete struct {
	Sample int
	Chr    int // 0 = maternal, 1 = paternal
}

// ConcordantPair is an unordered pair of "in" (alt-carrying) gametes.
type ConcordantPair struct {
	A, B Gamete
	Rank float64 // random tie-break value
}

// DiscordantPair is an (in x out) gamete pair ranked by Hamming distance.
type DiscordantPair struct {
	In, Out Gamete
	Hamming int
}

// SelectorOptions carries the caps and window named in spec §4.5.
type SelectorOptions struct {
	NearestRange  int
	LimitSharers  int // concordant cap
	OutgroupSize  int // discordant cap
	Diversify     bool
}

// contextAt extracts the symbolic haplotype context for one gamete: the
// haplotype values {0,1,2} of up to `window` sites left and right of
// focal (focal itself excluded), with the window clipped at the ends of
// the chromosome.
func contextAt(hap []int, focal, window int) []int {
	lo := focal - window
	if lo < 0 {
		lo = 0
	}
	hi := focal + window
	if hi >= len(hap) {
		hi = len(hap) - 1
	}
	ctx := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		if i == focal {
			continue
		}
		ctx = append(ctx, hap[i])
	}
	return ctx
}

// hamming counts positions where both contexts are non-missing and differ.
func hamming(a, b []int) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	d := 0
	for i := 0; i < n; i++ {
		if a[i] == 2 || b[i] == 2 {
			continue
		}
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

// Select builds the concordant and discordant pair lists for one focal
// site, given every candidate gamete's haplotype vector and its value at
// the focal site. haps maps a Gamete to its full-chromosome haplotype
// vector (values 0/1/2); focal is the marker index.
func Select(haps map[Gamete][]int, focal int, opt SelectorOptions, rng *rand.Rand) ([]ConcordantPair, []DiscordantPair) {
	var in, out []Gamete
	for g, hv := range haps {
		switch hv[focal] {
		case 1:
			in = append(in, g)
		case 0:
			out = append(out, g)
		}
	}

	ctx := make(map[Gamete][]int, len(in)+len(out))
	for _, g := range in {
		ctx[g] = contextAt(haps[g], focal, opt.NearestRange)
	}
	for _, g := range out {
		ctx[g] = contextAt(haps[g], focal, opt.NearestRange)
	}

	var con []ConcordantPair
	for i := 0; i < len(in); i++ {
		for j := i + 1; j < len(in); j++ {
			con = append(con, ConcordantPair{A: in[i], B: in[j], Rank: rng.Float64()})
		}
	}
	sort.Slice(con, func(i, j int) bool { return con[i].Rank < con[j].Rank })

	var dis []DiscordantPair
	for _, gi := range in {
		for _, go_ := range out {
			dis = append(dis, DiscordantPair{In: gi, Out: go_, Hamming: hamming(ctx[gi], ctx[go_])})
		}
	}
	sort.Slice(dis, func(i, j int) bool { return dis[i].Hamming < dis[j].Hamming })

	if opt.Diversify {
		dis = diversify(dis, opt.OutgroupSize)
	}

	if len(con) > opt.LimitSharers {
		con = con[:opt.LimitSharers]
	}
	if len(dis) > opt.OutgroupSize {
		dis = dis[:opt.OutgroupSize]
	}
	return con, dis
}

// diversify repeatedly pops the head of the (already Hamming-sorted) list
// and greedily appends subsequent entries whose Out gamete has not been
// seen yet, until outgroupSize distinct Out gametes are accumulated. This
// prevents one rare out-chromosome from dominating the list.
func diversify(sorted []DiscordantPair, outgroupSize int) []DiscordantPair {
	seen := map[Gamete]bool{}
	var out []DiscordantPair
	for _, p := range sorted {
		if len(out) >= outgroupSize {
			break
		}
		if seen[p.Out] {
			continue
		}
		seen[p.Out] = true
		out = append(out, p)
	}
	return out
}
