//go:build !(linux && amd64)

package jit

import "github.com/lcox74/bfjit/internal/core"

func run(cfg *config, ops core.Program) error {
	return ErrUnsupported
}
