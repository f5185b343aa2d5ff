// Copyright (c) 2018 Patrick K. Albers. All rights reserved.
// Reworked for the Go port.

package geva

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/popgen-tools/geva/internal/gen"
	"github.com/popgen-tools/geva/internal/infer"
)

// preprocessCommand builds a binary Grid file from a tabular variant
// listing. Reading VCF itself is out of scope (spec §1's non-goals); this
// subcommand exposes the grid-writing half of that pipeline against the
// minimal tabular contract in internal/infer/preprocess.go, which a real
// VCF front-end would populate instead.
type preprocessCommand struct{}

func (c *preprocessCommand) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	flags.SetOutput(stderr)

	inPath := flags.String("i", "-", "input tabular variant `file` (- for stdin)")
	outPath := flags.String("grid", "", "output grid `file`")
	compress := flags.Bool("compress", true, "run-length compress per-sample genotype vectors")

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *outPath == "" {
		fmt.Fprintln(stderr, "geva preprocess: -grid is required")
		return 2
	}

	var in io.Reader = stdin
	if *inPath != "-" {
		f, err := os.Open(*inPath)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer f.Close()
		in = f
	}

	names, records, err := infer.ReadTabular(in)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	samples, markers, vectors := infer.BuildSamplesAndMarkers(names, records)

	out, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer out.Close()

	if err := gen.WriteAll(out, samples, markers, vectors, *compress); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
