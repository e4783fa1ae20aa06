package main

import (
	"fmt"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v2"

	"github.com/lcox74/bfjit/internal/core"
)

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:      "tokens",
		Usage:     "dump tokenizer output",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("expected exactly one input file", 1)
			}

			src, err := os.ReadFile(filepath.Clean(c.Args().First()))
			if err != nil {
				return cli.Exit(err, 1)
			}

			for _, tok := range core.Tokenize(src) {
				fmt.Printf("%d:%d\t%v\n", tok.Pos.Line, tok.Pos.Column, tok.Kind)
			}
			return nil
		},
	}
}
