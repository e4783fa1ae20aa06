package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/lcox74/bfjit/internal/core"
	"github.com/lcox74/bfjit/internal/jit"
	"github.com/lcox74/bfjit/internal/vm"
)

func main() {
	app := &cli.App{
		Name:      "bfjit",
		Usage:     "Brainfuck interpreter and x86-64 JIT compiler",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "interp",
				Aliases: []string{"i"},
				Usage:   "run the interpreter",
			},
			&cli.BoolFlag{
				Name:    "jit",
				Aliases: []string{"j"},
				Usage:   "run the JIT compiler",
			},
			&cli.IntFlag{
				Name:    "opt",
				Aliases: []string{"O"},
				Value:   2,
				Usage:   "optimisation level (0, 1, or 2)",
			},
			&cli.IntFlag{
				Name:    "size",
				Aliases: []string{"s"},
				Value:   jit.DefaultCodeSize,
				Usage:   "JIT code buffer size in bytes",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging (IR stats, code sizes, timings)",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Action: runAction,
		Commands: []*cli.Command{
			tokensCommand(),
			irCommand(),
			asmCommand(),
			buildCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runAction executes the program with the selected backends, interpreter
// first so the two outputs appear in a stable order when both are chosen.
func runAction(c *cli.Context) error {
	if !c.Bool("interp") && !c.Bool("jit") {
		cli.ShowAppHelp(c)
		return cli.Exit("\nchoose interpreter (-i) and/or JIT compiler (-j)", 1)
	}
	if c.NArg() != 1 {
		cli.ShowAppHelp(c)
		return cli.Exit("\nexpected exactly one input file", 1)
	}

	level, err := parseOptLevel(c.Int("opt"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	ops, err := compileFile(c.Args().First(), level)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if c.Bool("interp") {
		start := time.Now()
		if err := vm.NewVM().Run(ops); err != nil {
			return cli.Exit(err, 1)
		}
		logrus.Debugf("interpreter time usage: %s", time.Since(start))
	}

	if c.Bool("jit") {
		start := time.Now()
		if err := jit.Run(ops, jit.WithCodeSize(c.Int("size"))); err != nil {
			return cli.Exit(err, 1)
		}
		logrus.Debugf("jit-compiler time usage: %s", time.Since(start))
	}

	return nil
}

func parseOptLevel(level int) (core.OptLevel, error) {
	switch level {
	case 0:
		return core.O0, nil
	case 1:
		return core.O1, nil
	case 2:
		return core.O2, nil
	}
	return core.O0, fmt.Errorf("invalid optimization level: %d (must be 0, 1, or 2)", level)
}

// compileFile reads a source file and lowers it to an optimised Program.
func compileFile(file string, level core.OptLevel) (core.Program, error) {
	src, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return nil, err
	}

	tokens := core.Tokenize(src)
	ops, err := core.Lower(tokens)
	if err != nil {
		return nil, err
	}

	ops = core.OptimiseWithLevel(ops, level)
	logrus.Debugf("compiled %s: %d tokens, %d ops at O%d", file, len(tokens)-1, len(ops), level)
	return ops, nil
}
