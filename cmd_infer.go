// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

package geva

import (
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/popgen-tools/geva/internal/age"
	"github.com/popgen-tools/geva/internal/gen"
	"github.com/popgen-tools/geva/internal/ibd"
	"github.com/popgen-tools/geva/internal/infer"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

type inferCommand struct{}

func (c *inferCommand) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	flags.SetOutput(stderr)

	gridPath := flags.String("grid", "", "input `file` written by the preprocess subcommand")
	out := flags.String("o", "geva", "output file prefix; writes `prefix`.pairs.txt, `prefix`.sites.txt, `prefix`.log")
	ne := flags.Float64("Ne", 10000, "effective population size")
	mut := flags.Float64("mut", 1e-8, "mutation rate per site per generation")
	threads := flags.Int("threads", 1, "number of concurrent pair-inference workers")
	seed := flags.Uint64("seed", 1, "PRNG seed")
	initsFile := flags.String("hmmInitial", "", "optional HMM initial-state-probability `file`")
	emissFile := flags.String("hmmEmission", "", "optional HMM emission-probability `file`")
	checkHMMFit := flags.Bool("checkHMMFit", false, "run a chi-squared goodness-of-fit diagnostic on loaded emission rows")
	maxConcordant := flags.Int("maxConcordant", age.DefaultLimitSharers, "maximum concordant pairs per site")
	maxDiscordant := flags.Int("maxDiscordant", age.DefaultOutgroupSize, "maximum discordant pairs per site")
	treeConsistency := flags.Bool("treeConsistency", false, "drop concordant-pair mismatches at sites more common than the focal allele (off by default, matching the original)")

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *gridPath == "" {
		fmt.Fprintln(stderr, "geva infer: -grid is required")
		return 2
	}

	logger, logf, err := newLogger(*out)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer logf.Close()

	f, err := os.Open(*gridPath)
	if err != nil {
		logger.WithError(err).Error("opening grid file")
		return 1
	}
	defer f.Close()

	rng := rand.New(rand.NewSource(*seed))
	grid, err := gen.Load(f, rng)
	if err != nil {
		logger.WithError(err).Error("loading grid")
		return 1
	}

	param := age.NewParam(grid.SampleSize(), grid.MarkerSize(), *ne, *mut)
	fillParamFromGrid(param, grid)

	rawDist := make([]float64, grid.MarkerSize())
	for i := range rawDist {
		rawDist[i] = grid.Marker(i).GenDist
	}
	dist, err := ibd.DistFromCumulative(rawDist)
	if err != nil {
		logger.WithError(err).Error("computing per-interval genetic distance")
		return 1
	}
	model := ibd.NewModel(*ne, 2*grid.SampleSize(), dist)

	carriersAt := func(m int) int { return grid.Marker(m).AltCount() }
	if *initsFile != "" && *emissFile != "" {
		fi, err := os.Open(*initsFile)
		if err != nil {
			logger.WithError(err).Error("opening HMM initial-probability file")
			return 1
		}
		defer fi.Close()
		con, dis, err := ibd.LoadInitial(fi, model.Nh)
		if err != nil {
			logger.WithError(err).Error("parsing HMM initial-probability file")
			return 1
		}
		fe, err := os.Open(*emissFile)
		if err != nil {
			logger.WithError(err).Error("opening HMM emission-probability file")
			return 1
		}
		defer fe.Close()
		emiss, err := ibd.LoadEmission(fe, model.Nh)
		if err != nil {
			logger.WithError(err).Error("parsing HMM emission-probability file")
			return 1
		}
		model.FillInitial(con, dis, carriersAt, grid.MarkerSize())
		model.FillEmission(emiss, carriersAt, grid.MarkerSize())
		if *checkHMMFit {
			reportHMMFit(logger, emiss, model.Nh)
		}
	} else {
		model.GenerateExpected(grid.MarkerSize(), param.AltFreq, 1e-4)
	}

	target := map[int]bool{}
	for _, m := range grid.Markers() {
		if fk := m.AltCount(); fk > 0 && fk < 2*grid.SampleSize() {
			target[fk] = true
		}
	}
	shareOpt := gen.ShareOptions{Seed: *seed}
	table, err := gen.Detect(grid, target, shareOpt)
	if err != nil {
		logger.WithError(err).Error("building share index")
		return 1
	}

	pairsFile, err := os.Create(*out + ".pairs.txt")
	if err != nil {
		logger.WithError(err).Error("creating pairs output")
		return 1
	}
	defer pairsFile.Close()
	sitesFile, err := os.Create(*out + ".sites.txt")
	if err != nil {
		logger.WithError(err).Error("creating sites output")
		return 1
	}
	defer sitesFile.Close()

	param.LimitSharers = *maxConcordant
	param.OutgroupSize = *maxDiscordant

	orch := &infer.Orchestrator{
		Grid: grid, Model: model, Decoder: &ibd.Decoder{Model: model},
		Param: param, Threads: *threads, Log: logger, Seed: *seed,
		TreeConsistency: *treeConsistency,
		PairsOut:        pairsFile, SitesOut: sitesFile,
	}
	queue := infer.BuildQueue(table, false, rng)
	warnings, err := orch.Run(queue)
	if err != nil {
		logger.WithError(err).Error("running inference")
		return 1
	}
	logger.WithField("warnings", warnings).Info("inference complete")
	return 0
}

// fillParamFromGrid derives the per-marker Position/Distance/AltFreq and
// log-heterozygosity vectors, and the first/last global boundary indices,
// from a loaded Grid.
func fillParamFromGrid(p *age.Param, g *gen.Grid) {
	nm := g.MarkerSize()
	p.Position = make([]float64, nm)
	p.Distance = make([]float64, nm)
	p.AltFreq = make([]float64, nm)
	p.LogHet = make([]float64, nm)
	p.LogHom = make([]float64, nm)
	p.CumLogHom = make([]float64, nm)
	p.FirstBoundary = 0
	p.LastBoundary = nm - 1

	cumLogHom := 0.0
	for i := 0; i < nm; i++ {
		m := g.Marker(i)
		p.Position[i] = float64(m.Position)
		p.Distance[i] = m.GenDist * 4 * p.Ne / 100
		f := float64(m.AltCount()) / float64(2*g.SampleSize())
		p.AltFreq[i] = f
		het := 2 * f * (1 - f)
		hom := 1 - het
		p.LogHet[i] = logSafe(het)
		p.LogHom[i] = logSafe(hom)
		cumLogHom += p.LogHom[i]
		p.CumLogHom[i] = cumLogHom
	}
}

// reportHMMFit logs a chi-squared goodness-of-fit p-value for every
// loaded emission row's NON-state genotype proportions against the
// binomial expectation at that row's allele frequency.
func reportHMMFit(logger *logrus.Logger, emiss map[int][2][4]float64, nh int) {
	for k, row := range emiss {
		if k == 0 || k == nh {
			continue
		}
		f := float64(k) / float64(nh)
		non := [3]float64{row[0][0], row[0][1], row[0][2]}
		p := checkEmissionFit(non, f, float64(nh))
		if p < 0.01 {
			logger.WithFields(logrus.Fields{"carriers": k, "pvalue": p}).Warn("HMM emission row departs from binomial expectation")
		}
	}
}

func logSafe(v float64) float64 {
	if v <= 0 {
		return -745 // ~log(min positive float64)
	}
	return math.Log(v)
}

func newLogger(out string) (*logrus.Logger, io.WriteCloser, error) {
	logger := logrus.New()
	f, err := os.OpenFile(out+".log", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, err
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, f))
	return logger, f, nil
}
