// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package geva

import (
	"os"
	"runtime/debug"
	"strings"

	"git.arvados.org/arvados.git/lib/cmd"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	handler = cmd.Multi(map[string]cmd.Handler{
		"version":   cmd.Version,
		"-version":  cmd.Version,
		"--version": cmd.Version,

		"preprocess": &preprocessCommand{},
		"infer":      &inferCommand{},
		"share": cmd.Multi(map[string]cmd.Handler{
			"count":  &shareCountCommand{},
			"select": &shareSelectCommand{},
		}),
	})
)

func init() {
	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(30)
	}
}

// Main is the geva CLI entry point, dispatching to the preprocess, infer,
// and share-count/share-select subcommands.
func Main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.StandardLogger().Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	}
	if len(os.Args) >= 2 && !strings.HasSuffix(os.Args[1], "version") {
		cmd.Version.RunCommand("geva", nil, nil, os.Stderr, os.Stderr)
	}
	os.Exit(handler.RunCommand(os.Args[0], os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
