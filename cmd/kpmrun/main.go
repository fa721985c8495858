// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/latticekpm/kpmcore/container"
)

func main() {
	app := cli.NewApp()
	app.Name = "kpmrun"
	app.Usage = "compute Chebyshev moments of a tight-binding Hamiltonian via the Kernel Polynomial Method"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "input",
			Usage: "path to the input container (§6) describing the lattice, Hamiltonian and calculation",
		},
		cli.StringFlag{
			Name:  "quantities",
			Usage: "comma-separated list of /Calculation/<quantity> names to compute",
		},
		cli.Int64Flag{
			Name:  "seed",
			Value: 1,
			Usage: "master RNG seed (per-thread streams are derived from it and the thread id)",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fatal("%v", err)
	}
}

func run(c *cli.Context) error {
	inputPath := c.String("input")
	if inputPath == "" {
		return fmt.Errorf("kpmrun: -input is required")
	}
	quantitiesFlag := c.String("quantities")
	if quantitiesFlag == "" {
		return fmt.Errorf("kpmrun: -quantities is required")
	}
	names := strings.Split(quantitiesFlag, ",")

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("kpmrun: %w", err)
	}
	defer f.Close()

	src := container.New()
	if _, err := src.ReadFrom(f); err != nil {
		return fmt.Errorf("kpmrun: reading %s: %w", inputPath, err)
	}

	if err := runJob(src, src, names, uint64(c.Int64("seed"))); err != nil {
		return err
	}

	out, err := os.Create(inputPath)
	if err != nil {
		return fmt.Errorf("kpmrun: %w", err)
	}
	defer out.Close()
	if _, err := src.WriteTo(out); err != nil {
		return fmt.Errorf("kpmrun: writing %s: %w", inputPath, err)
	}
	return nil
}
