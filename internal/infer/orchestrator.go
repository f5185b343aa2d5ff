// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

// Package infer implements the inference orchestrator: the batch queue,
// worker pool, per-site barrier, and output writers described in spec §4.9.
package infer

import (
	"fmt"
	"io"
	"sort"

	"github.com/popgen-tools/geva/internal/age"
	"github.com/popgen-tools/geva/internal/gen"
	"github.com/popgen-tools/geva/internal/ibd"
	"github.com/popgen-tools/geva/internal/pool"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

// siteTask is one queued (fk, focal site, carriers) hold record.
type siteTask struct {
	Fk      int
	Focal   int
	Carrier []int
}

// pairResult is the output of one completed pair inference unit.
type pairResult struct {
	con    bool // true = concordant, false = discordant
	seg    ibd.Segment
	sd     ibd.SegDiff
	ccfMut age.CCF
	ccfRec age.CCF
	ccfCmb age.CCF
}

// Orchestrator drives inference across every queued site using a bounded
// worker pool, matching spec §4.9 and §5's concurrency model.
type Orchestrator struct {
	Grid    *gen.Grid
	Model   *ibd.Model
	Decoder *ibd.Decoder
	Param   *age.Param
	Threads int
	Log     *logrus.Logger
	Seed    uint64

	// TreeConsistency gates the tree-consistency segment-difference rule
	// (spec §4.6) for concordant pairs: when set, a mismatch only counts
	// if the site's allele count does not exceed the focal site's fk.
	// Matches the original's use_tree_consistency flag, which defaults
	// off (AgeInfer.cpp).
	TreeConsistency bool

	PairsOut io.Writer
	SitesOut io.Writer
}

// Run processes every task in the queue: for each site it builds the pair
// list via the selector, runs pair inference across the worker pool,
// waits for the site's pairs to complete, then runs the estimator and
// writes output rows. Processing queue entries happens sequentially (one
// site's worker-pool fan-out completes before the next site starts),
// matching spec §4.9's "per-site barrier."
func (o *Orchestrator) Run(queue []siteTask) (warnings int, err error) {
	rng := rand.New(rand.NewSource(o.Seed))

	for _, task := range queue {
		n, werr := o.runSite(task, rng)
		warnings += n
		if werr != nil {
			return warnings, werr
		}
	}
	return warnings, nil
}

func (o *Orchestrator) runSite(task siteTask, rng *rand.Rand) (warnings int, err error) {
	haps, err := o.gametesAround(task.Focal, rng)
	if err != nil {
		return 0, err
	}

	selOpt := ibd.SelectorOptions{
		NearestRange: o.Param.NearestRange,
		LimitSharers: o.Param.LimitSharers,
		OutgroupSize: o.Param.OutgroupSize,
		Diversify:    true,
	}
	con, dis := ibd.Select(haps, task.Focal, selOpt, rng)
	if len(con) == 0 || len(dis) == 0 {
		o.Log.WithField("site", task.Focal).Warn("skipping site: empty concordant or discordant pair list")
		return 1, nil
	}

	type job struct {
		a, b []int
		con  bool
	}
	var jobs []job
	for _, p := range con {
		jobs = append(jobs, job{a: haps[p.A], b: haps[p.B], con: true})
	}
	for _, p := range dis {
		jobs = append(jobs, job{a: haps[p.In], b: haps[p.Out], con: false})
	}

	results := make([]*pairResult, len(jobs))
	th := pool.New(o.Threads)
	for i, j := range jobs {
		i, j := i, j
		th.Acquire()
		go func() {
			defer th.Release()
			r, err := o.inferPair(j.a, j.b, task.Focal, task.Fk, !j.con)
			if err != nil {
				th.Report(err)
				return
			}
			r.con = j.con
			results[i] = r
		}()
	}
	if err := th.Wait(); err != nil {
		return warnings, fmt.Errorf("infer: site %d: %w", task.Focal, err)
	}

	return warnings + o.aggregateSite(task, results)
}

func (o *Orchestrator) inferPair(a, b []int, focal, fk int, discordant bool) (*pairResult, error) {
	seg, err := o.Decoder.Detect(a, b, focal, fk, discordant)
	if err != nil {
		return nil, err
	}
	var sd ibd.SegDiff
	if o.TreeConsistency && !discordant {
		altCountAt := func(i int) int { return o.Grid.Marker(i).AltCount() }
		sd = ibd.ApproxSegDiff(a, b, seg, altCountAt, fk)
	} else {
		sd = ibd.DetectSegDiff(a, b, seg)
	}
	r := &pairResult{seg: seg, sd: sd}

	share := !discordant
	ccfMut, err := age.HardCCF(age.ClockMut, share, seg, sd, o.Param)
	if err != nil {
		return nil, err
	}
	ccfRec, err := age.HardCCF(age.ClockRec, share, seg, sd, o.Param)
	if err != nil {
		return nil, err
	}
	ccfCmb, err := age.HardCCF(age.ClockCmb, share, seg, sd, o.Param)
	if err != nil {
		return nil, err
	}
	ccfMut.Pass, ccfRec.Pass, ccfCmb.Pass = true, true, true
	r.ccfMut, r.ccfRec, r.ccfCmb = ccfMut, ccfRec, ccfCmb
	return r, nil
}

// aggregateSite runs the Estimate Aggregator over one site's completed
// pairs, for each clock, producing raw and filtered (adjusted) passes,
// and writes the pairs/sites output rows.
func (o *Orchestrator) aggregateSite(task siteTask, results []*pairResult) int {
	warnings := 0
	clocks := []struct {
		name  string
		clock age.Clock
		get   func(*pairResult) *age.CCF
	}{
		{"MUT", age.ClockMut, func(r *pairResult) *age.CCF { return &r.ccfMut }},
		{"REC", age.ClockRec, func(r *pairResult) *age.CCF { return &r.ccfRec }},
		{"CMB", age.ClockCmb, func(r *pairResult) *age.CCF { return &r.ccfCmb }},
	}

	for _, c := range clocks {
		raw := age.NewEstimate(o.Param)
		var candidates []age.FilterCandidate
		for _, r := range results {
			if r == nil {
				continue
			}
			ccf := c.get(r)
			raw.Include(ccf, r.con)
			if ccf.Good {
				candidates = append(candidates, age.FilterCandidate{CCF: ccf, Q50: ccf.Q50, Share: r.con})
			}
		}
		rawCLE := raw.Estimate()
		if !rawCLE.Good {
			warnings++
		}
		o.writeSite(task.Focal, c.name, "raw", rawCLE)

		age.Filter(o.Param, candidates)

		adj := age.NewEstimate(o.Param)
		for _, r := range results {
			if r == nil {
				continue
			}
			adj.Include(c.get(r), r.con)
		}
		adjCLE := adj.Estimate()
		o.writeSite(task.Focal, c.name, "adjusted", adjCLE)
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		o.writePair(task.Focal, r)
	}
	return warnings
}

func (o *Orchestrator) writeSite(focal int, clock, pass string, cle age.CLE) {
	if o.SitesOut == nil {
		return
	}
	fmt.Fprintf(o.SitesOut, "%d %s %s %d %d %v %g %g %g %g %g %g %g %g\n",
		focal, clock, pass, cle.NCon, cle.NDis, cle.Good,
		cle.Mean*2*o.Param.Ne, cle.Mode*2*o.Param.Ne, cle.Median*2*o.Param.Ne,
		cle.CI025*2*o.Param.Ne, cle.CI975*2*o.Param.Ne,
		cle.Lower*2*o.Param.Ne, cle.Upper*2*o.Param.Ne, cle.Estim*2*o.Param.Ne)
}

func (o *Orchestrator) writePair(focal int, r *pairResult) {
	if o.PairsOut == nil {
		return
	}
	fmt.Fprintf(o.PairsOut, "%d %v %d %d %d %d %d %g %g %g\n",
		focal, r.con, r.seg.Lhs, r.seg.Rhs, r.sd.Left, r.sd.Right,
		r.ccfMut.Shape, r.ccfMut.Q50*2*o.Param.Ne, r.ccfRec.Q50*2*o.Param.Ne, r.ccfCmb.Q50*2*o.Param.Ne)
}

// gametesAround materialises, for every individual, both chromosome
// copies' haplotype vector (0/1/2), resolving per-genotype phase with a
// fair coin where ambiguous (an unphased heterozygous call; spec §7),
// reusing cached decoded vectors
// from the Grid.
func (o *Orchestrator) gametesAround(focal int, rng *rand.Rand) (map[ibd.Gamete][]int, error) {
	out := map[ibd.Gamete][]int{}
	nm := o.Grid.MarkerSize()
	for s := 0; s < o.Grid.SampleSize(); s++ {
		v, err := o.Grid.Get(s)
		if err != nil {
			return nil, err
		}
		mat := make([]int, nm)
		pat := make([]int, nm)
		for i := 0; i < nm; i++ {
			h0, h1 := v.Gen(i).Haplotypes()
			hv0, hv1 := hapToInt(h0), hapToInt(h1)
			if hv0 == hv1 {
				mat[i], pat[i] = hv0, hv1
				continue
			}
			if hv0 == 2 || hv1 == 2 {
				mat[i], pat[i] = hv0, hv1
				continue
			}
			if v.Gen(i).IsPhased() || rng.Intn(2) == 0 {
				mat[i], pat[i] = hv0, hv1
			} else {
				mat[i], pat[i] = hv1, hv0
			}
		}
		o.Grid.Release(s)
		out[ibd.Gamete{Sample: s, Chr: 0}] = mat
		out[ibd.Gamete{Sample: s, Chr: 1}] = pat
	}
	return out, nil
}

func hapToInt(h gen.Hap) int {
	switch h {
	case gen.H0:
		return 0
	case gen.H1:
		return 1
	default:
		return 2
	}
}

// BuildQueue materialises the ordered list of (fk, focal, carriers) hold
// records from a Share Index map, optionally shuffled.
func BuildQueue(table map[int]*gen.ShareIndex, shuffle bool, rng *rand.Rand) []siteTask {
	var queue []siteTask
	for fk, idx := range table {
		for site, carriers := range idx.Sites {
			queue = append(queue, siteTask{Fk: fk, Focal: site, Carrier: carriers})
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i].Focal < queue[j].Focal })
	if shuffle {
		rng.Shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })
	}
	return queue
}
