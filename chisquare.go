// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package geva

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var chisquared = distuv.ChiSquared{K: 1, Src: rand.NewSource(rand.Uint64())}
var chisquared2 = distuv.ChiSquared{K: 2, Src: rand.NewSource(rand.Uint64())}

// checkEmissionFit compares one HMM emission row's NON-state genotype
// proportions against the Hardy-Weinberg binomial expectation at allele
// frequency f, returning a chi-squared goodness-of-fit p-value. Used by
// the --checkHMMFit diagnostic (spec §6's row-sum-to-one check extended
// with an optional fit check) to flag emission files whose NON state
// departs from a simple binomial model.
func checkEmissionFit(nonRow [3]float64, f float64, n float64) float64 {
	exp00, exp01, exp11 := (1-f)*(1-f)*n, 2*f*(1-f)*n, f*f*n
	obs00, obs01, obs11 := nonRow[0]*n, nonRow[1]*n, nonRow[2]*n
	sum := 0.0
	for _, pair := range [][2]float64{{obs00, exp00}, {obs01, exp01}, {obs11, exp11}} {
		if pair[1] <= 0 {
			continue
		}
		d := pair[0] - pair[1]
		sum += (d * d) / pair[1]
	}
	return 1 - chisquared2.CDF(sum)
}

func pvalue(a, b []bool) float64 {
	//     !b        b
	// !a  tab[0]    tab[1]
	// a   tab[2]    tab[3]
	tab := make([]int, 4)
	for ai, aval := range []bool{false, true} {
		for bi, bval := range []bool{false, true} {
			obs := 0
			for i := range a {
				if a[i] == aval && b[i] == bval {
					obs++
				}
			}
			tab[ai*2+bi] = obs
		}
	}
	var sum float64
	for ai := 0; ai < 2; ai++ {
		for bi := 0; bi < 2; bi++ {
			rowtotal := tab[ai*2] + tab[ai*2+1]
			coltotal := tab[bi] + tab[2+bi]
			exp := float64(rowtotal) * float64(coltotal) / float64(len(a))
			obs := tab[ai*2+bi]
			d := float64(obs) - exp
			sum += (d * d) / exp
		}
	}
	return 1 - chisquared.CDF(sum)
}
