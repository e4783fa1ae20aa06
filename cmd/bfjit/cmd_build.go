package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/lcox74/bfjit/internal/codegen/linux"
)

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:        "build",
		Usage:       "build a native ELF64 Linux executable",
		Description: "Produces a static ELF64 Linux executable directly, no toolchain required.",
		ArgsUsage:   "<file>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "opt",
				Aliases: []string{"O"},
				Value:   2,
				Usage:   "optimisation level (0, 1, or 2)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output file (default: input file without extension)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("expected exactly one input file", 1)
			}

			level, err := parseOptLevel(c.Int("opt"))
			if err != nil {
				return cli.Exit(err, 1)
			}

			file := filepath.Clean(c.Args().First())
			outFile := c.String("output")
			if outFile == "" {
				outFile = strings.TrimSuffix(file, ".bf")
			}

			ops, err := compileFile(file, level)
			if err != nil {
				return cli.Exit(err, 1)
			}

			binary := linux.NewX86_64Generator(ops).GenerateELF()
			logrus.Debugf("ELF image: %d bytes", len(binary))

			if err := os.WriteFile(outFile, binary, 0755); err != nil {
				return cli.Exit(err, 1)
			}

			fmt.Printf("built %s -> %s\n", file, outFile)
			return nil
		},
	}
}
