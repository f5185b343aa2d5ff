// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

package geva

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/popgen-tools/geva/internal/gen"
	"golang.org/x/exp/rand"
)

// shareCountCommand reports, for a range of focal allele counts, the
// pairwise sharing-count matrix (how many sites each sample pair shares
// IBD candidacy at) — ported from original_source's count_share.h, a
// diagnostic the distilled spec folds into "pairwise-sharing matrices".
type shareCountCommand struct{}

func (c *shareCountCommand) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	flags.SetOutput(stderr)
	gridPath := flags.String("grid", "", "input grid `file`")
	minFk := flags.Int("minFk", 2, "minimum focal allele count")
	maxFk := flags.Int("maxFk", 0, "maximum focal allele count (0 = haplotype count - 1)")
	seed := flags.Uint64("seed", 1, "PRNG seed")

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *gridPath == "" {
		fmt.Fprintln(stderr, "geva share count: -grid is required")
		return 2
	}

	f, err := os.Open(*gridPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer f.Close()

	rng := rand.New(rand.NewSource(*seed))
	grid, err := gen.Load(f, rng)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	hi := *maxFk
	if hi == 0 {
		hi = 2*grid.SampleSize() - 1
	}
	target := map[int]bool{}
	for fk := *minFk; fk <= hi; fk++ {
		target[fk] = true
	}

	table, err := gen.Detect(grid, target, gen.ShareOptions{Seed: *seed})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	counts := map[gen.SamplePair]int{}
	for _, idx := range table {
		for pair, sites := range idx.Pairs {
			counts[pair] += len(sites)
		}
	}

	w := bufio.NewWriter(stdout)
	defer w.Flush()
	fmt.Fprintln(w, "SampleA SampleB SharedSites")
	pairs := make([]gen.SamplePair, 0, len(counts))
	for p := range counts {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	for _, p := range pairs {
		fmt.Fprintf(w, "%d %d %d\n", p.A, p.B, counts[p])
	}
	return 0
}

// shareSelectCommand builds a Share Index from an explicit list of focal
// positions rather than an fk range — ported from original_source's
// select_share.h, spec §4.2's "alternative entry point".
type shareSelectCommand struct{}

func (c *shareSelectCommand) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	flags.SetOutput(stderr)
	gridPath := flags.String("grid", "", "input grid `file`")
	positionsPath := flags.String("positions", "", "`file` of focal positions, one integer per line")
	seed := flags.Uint64("seed", 1, "PRNG seed")

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *gridPath == "" || *positionsPath == "" {
		fmt.Fprintln(stderr, "geva share select: -grid and -positions are required")
		return 2
	}

	positions, err := readPositions(*positionsPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	f, err := os.Open(*gridPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer f.Close()

	rng := rand.New(rand.NewSource(*seed))
	grid, err := gen.Load(f, rng)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	table, err := gen.Select(grid, positions)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	w := bufio.NewWriter(stdout)
	defer w.Flush()
	fmt.Fprintln(w, "Fk Site Carriers")
	fks := make([]int, 0, len(table))
	for fk := range table {
		fks = append(fks, fk)
	}
	sort.Ints(fks)
	for _, fk := range fks {
		sites := make([]int, 0, len(table[fk].Sites))
		for s := range table[fk].Sites {
			sites = append(sites, s)
		}
		sort.Ints(sites)
		for _, s := range sites {
			fmt.Fprintf(w, "%d %d %v\n", fk, s, table[fk].Sites[s])
		}
	}
	return 0
}

// readPositions parses one integer focal position per line, rejecting
// duplicates, matching select_share.h's input contract.
func readPositions(path string) (map[uint32]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := map[uint32]bool{}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		v, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("share select: positions file line %d: %w", line, err)
		}
		if out[uint32(v)] {
			return nil, fmt.Errorf("share select: positions file line %d: duplicate position %d", line, v)
		}
		out[uint32(v)] = true
	}
	return out, scanner.Err()
}
