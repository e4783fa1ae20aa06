package main

import (
	"fmt"

	cli "github.com/urfave/cli/v2"
)

func irCommand() *cli.Command {
	return &cli.Command{
		Name:      "ir",
		Usage:     "dump IR",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "opt",
				Aliases: []string{"O"},
				Value:   0,
				Usage:   "optimisation level (0, 1, or 2)",
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

			ops, err := compileFile(c.Args().First(), level)
			if err != nil {
				return cli.Exit(err, 1)
			}

			fmt.Print(ops.Dump())
			return nil
		},
	}
}
