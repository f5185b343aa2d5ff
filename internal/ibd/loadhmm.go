// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

package ibd

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// initial file fields: Frequency CON_NON CON_IBD DIS_NON DIS_IBD
// emission file fields: Frequency NON_00 NON_01 NON_11 IBD_00 IBD_01 IBD_11
//
// Both files are whitespace-separated text with an optional header row;
// probabilities are interpolated to every integer haplotype carrier count
// 0..Nh from the rows actually supplied, matching spec §6 and the
// original loader's approx<T> scheme.

func readFields(r io.Reader) ([][]string, error) {
	var rows [][]string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rows = append(rows, strings.Fields(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func isHeaderRow(fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(fields[0], 64)
	return err != nil
}

// LoadInitial parses an initial-state-probability file into per-carrier-
// count [NON, IBD] rows for concordant and discordant pairs, interpolated
// across every integer count 0..nh.
func LoadInitial(r io.Reader, nh int) (con, dis map[int][2]float64, err error) {
	rows, err := readFields(r)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) > 0 && isHeaderRow(rows[0]) {
		rows = rows[1:]
	}

	con = map[int][2]float64{}
	dis = map[int][2]float64{}
	seen := map[string]bool{}

	for i, f := range rows {
		if len(f) != 5 {
			return nil, nil, fmt.Errorf("ibd: loadhmm: initial file line %d: expected 5 fields, got %d", i+1, len(f))
		}
		if seen[f[0]] {
			return nil, nil, fmt.Errorf("ibd: loadhmm: initial file line %d: duplicate frequency %s", i+1, f[0])
		}
		seen[f[0]] = true

		frq, err := strconv.ParseFloat(f[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("ibd: loadhmm: initial file line %d: %w", i+1, err)
		}
		conNon, conIBD, err := parsePair(f[1], f[2])
		if err != nil {
			return nil, nil, fmt.Errorf("ibd: loadhmm: initial file line %d: %w", i+1, err)
		}
		disNon, disIBD, err := parsePair(f[3], f[4])
		if err != nil {
			return nil, nil, fmt.Errorf("ibd: loadhmm: initial file line %d: %w", i+1, err)
		}
		if sum := conNon + conIBD; sum < 0.999 || sum > 1.001 {
			return nil, nil, fmt.Errorf("ibd: loadhmm: initial file line %d: concordant probabilities sum to %v, not 1", i+1, sum)
		}
		if sum := disNon + disIBD; sum < 0.999 || sum > 1.001 {
			return nil, nil, fmt.Errorf("ibd: loadhmm: initial file line %d: discordant probabilities sum to %v, not 1", i+1, sum)
		}

		num := int(frq*float64(nh) + 0.5)
		con[num] = normalizeRow([2]float64{conNon, conIBD})
		dis[num] = normalizeRow([2]float64{disNon, disIBD})
	}

	con[0] = [2]float64{1, 0}
	con[nh] = [2]float64{0, 1}
	dis[0] = [2]float64{1, 0}
	dis[nh] = [2]float64{1, 0}

	interpolateInits(con, nh)
	interpolateInits(dis, nh)
	return con, dis, nil
}

func parsePair(a, b string) (x, y float64, err error) {
	x, err = strconv.ParseFloat(a, 64)
	if err != nil {
		return 0, 0, err
	}
	y, err = strconv.ParseFloat(b, 64)
	if err != nil {
		return 0, 0, err
	}
	return decimalErr + x, decimalErr + y, nil
}

func interpolateInits(m map[int][2]float64, nh int) {
	keys := sortedKeys(m)
	for k := 1; k < nh; k++ {
		if _, ok := m[k]; ok {
			continue
		}
		lo, hi := bracket(keys, k)
		m[k] = normalizeRow([2]float64{
			lerp(float64(k), float64(lo), float64(hi), m[lo][0], m[hi][0]),
			lerp(float64(k), float64(lo), float64(hi), m[lo][1], m[hi][1]),
		})
	}
}

// LoadEmission parses an emission-probability file into per-carrier-count
// [state][obs] rows, interpolated across every integer count 0..nh.
func LoadEmission(r io.Reader, nh int) (map[int][2][4]float64, error) {
	rows, err := readFields(r)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && isHeaderRow(rows[0]) {
		rows = rows[1:]
	}

	out := map[int][2][4]float64{}
	seen := map[string]bool{}

	for i, f := range rows {
		if len(f) != 7 {
			return nil, fmt.Errorf("ibd: loadhmm: emission file line %d: expected 7 fields, got %d", i+1, len(f))
		}
		if seen[f[0]] {
			return nil, fmt.Errorf("ibd: loadhmm: emission file line %d: duplicate frequency %s", i+1, f[0])
		}
		seen[f[0]] = true

		frq, err := strconv.ParseFloat(f[0], 64)
		if err != nil {
			return nil, fmt.Errorf("ibd: loadhmm: emission file line %d: %w", i+1, err)
		}
		var non [3]float64
		var ibd [3]float64
		nonSum, ibdSum := 0.0, 0.0
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(f[1+j], 64)
			if err != nil {
				return nil, fmt.Errorf("ibd: loadhmm: emission file line %d: %w", i+1, err)
			}
			non[j] = decimalErr + v
			nonSum += non[j]
		}
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(f[4+j], 64)
			if err != nil {
				return nil, fmt.Errorf("ibd: loadhmm: emission file line %d: %w", i+1, err)
			}
			ibd[j] = decimalErr + v
			ibdSum += ibd[j]
		}
		if nonSum < 0.999 || nonSum > 1.001 {
			return nil, fmt.Errorf("ibd: loadhmm: emission file line %d: NON probabilities sum to %v, not 1", i+1, nonSum)
		}
		if ibdSum < 0.999 || ibdSum > 1.001 {
			return nil, fmt.Errorf("ibd: loadhmm: emission file line %d: IBD probabilities sum to %v, not 1", i+1, ibdSum)
		}

		num := int(frq*float64(nh) + 0.5)
		var row [2][4]float64
		row[NonState][Obs00], row[NonState][Obs01], row[NonState][Obs11] = non[0]/nonSum, non[1]/nonSum, non[2]/nonSum
		row[IBDState][Obs00], row[IBDState][Obs01], row[IBDState][Obs11] = ibd[0]/ibdSum, ibd[1]/ibdSum, ibd[2]/ibdSum
		row[NonState][ObsMissing], row[IBDState][ObsMissing] = 1, 1
		out[num] = row
	}

	out[0] = [2][4]float64{{1, 0, 0, 1}, {1, 0, 0, 1}}
	out[nh] = [2][4]float64{{0, 0, 1, 1}, {0, 0, 1, 1}}

	keys := sortedKeys2(out)
	for k := 1; k < nh; k++ {
		if _, ok := out[k]; ok {
			continue
		}
		lo, hi := bracket(keys, k)
		a, b := out[lo], out[hi]
		var row [2][4]float64
		nonSum, ibdSum := 0.0, 0.0
		for j := 0; j < 3; j++ {
			row[NonState][j] = decimalErr + lerp(float64(k), float64(lo), float64(hi), a[NonState][j], b[NonState][j])
			row[IBDState][j] = decimalErr + lerp(float64(k), float64(lo), float64(hi), a[IBDState][j], b[IBDState][j])
			nonSum += row[NonState][j]
			ibdSum += row[IBDState][j]
		}
		for j := 0; j < 3; j++ {
			row[NonState][j] /= nonSum
			row[IBDState][j] /= ibdSum
		}
		row[NonState][ObsMissing], row[IBDState][ObsMissing] = 1, 1
		out[k] = row
	}
	return out, nil
}

// DistFromCumulative converts a per-marker cumulative genetic distance (cM)
// vector into the per-interval delta vector Model.Dist expects, bumping
// every interval by ε and rejecting negative deltas.
func DistFromCumulative(cum []float64) ([]float64, error) {
	if len(cum) < 2 {
		return nil, nil
	}
	out := make([]float64, len(cum)-1)
	for i := 1; i < len(cum); i++ {
		d := cum[i] - cum[i-1]
		if d < 0 {
			return nil, fmt.Errorf("ibd: loadhmm: genetic distance between markers %d and %d is negative", i-1, i)
		}
		out[i-1] = d + decimalErr
	}
	return out, nil
}

// FillInitial projects loaded per-carrier-count initial tables onto every
// marker by its alt-haplotype carrier count, matching spec §4.3's
// per-site initial-probability assignment.
func (m *Model) FillInitial(con, dis map[int][2]float64, carriersAt func(marker int) int, nm int) {
	m.InitsCon = make([][2]float64, nm)
	m.InitsDis = make([][2]float64, nm)
	for i := 0; i < nm; i++ {
		k := carriersAt(i)
		m.InitsCon[i] = con[k]
		m.InitsDis[i] = dis[k]
	}
}

// FillEmission projects a loaded per-carrier-count emission table onto
// every marker by its alt-haplotype carrier count.
func (m *Model) FillEmission(emiss map[int][2][4]float64, carriersAt func(marker int) int, nm int) {
	m.Emiss = make([][2][4]float64, nm)
	for i := 0; i < nm; i++ {
		m.Emiss[i] = emiss[carriersAt(i)]
	}
}

func sortedKeys(m map[int][2]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedKeys2(m map[int][2][4]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// bracket finds the two sorted keys immediately below and above k.
func bracket(keys []int, k int) (lo, hi int) {
	lo, hi = keys[0], keys[len(keys)-1]
	for i := 0; i < len(keys); i++ {
		if keys[i] <= k {
			lo = keys[i]
		}
		if keys[i] >= k {
			hi = keys[i]
			break
		}
	}
	return lo, hi
}

func lerp(x, x0, x1, y0, y1 float64) float64 {
	if x1 == x0 {
		return y0
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}
