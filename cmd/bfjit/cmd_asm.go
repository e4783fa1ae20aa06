package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cli "github.com/urfave/cli/v2"

	"github.com/lcox74/bfjit/internal/codegen/gas"
)

func asmCommand() *cli.Command {
	return &cli.Command{
		Name:      "asm",
		Usage:     "generate GAS assembly",
		ArgsUsage: "<file>",
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
				Usage:   "output file (default: input file with .s extension)",
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
				outFile = strings.TrimSuffix(file, ".bf") + ".s"
			}

			ops, err := compileFile(file, level)
			if err != nil {
				return cli.Exit(err, 1)
			}

			asm := gas.NewGenerator(ops).Generate()
			if err := os.WriteFile(outFile, []byte(asm), 0644); err != nil {
				return cli.Exit(err, 1)
			}

			fmt.Printf("generated %s -> %s\n", file, outFile)
			return nil
		},
	}
}
