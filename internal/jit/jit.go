// Package jit compiles IR operations to x86-64 machine code in an
// executable mapping and transfers control to it in-process.
//
// The emitted function keeps the tape cell pointer in RBX and performs its
// I/O through small read/write thunks appended after the epilogue, so the
// only state shared with the host is the tape itself and the two file
// descriptors baked in at compile time. The mapping is scoped to a single
// compile+execute cycle and released before Run returns.
package jit

import (
	"errors"
	"fmt"
	"os"

	"github.com/lcox74/bfjit/internal/core"
)

// DefaultCodeSize is the default capacity of the executable code buffer.
const DefaultCodeSize = 1 << 16

// ErrUnsupported is returned on platforms the JIT cannot target.
var ErrUnsupported = errors.New("jit is only supported on linux/amd64")

type config struct {
	codeSize int
	input    *os.File
	output   *os.File
}

// Option is a functional option for configuring a compilation.
type Option func(*config)

// WithCodeSize sets the executable buffer capacity (default DefaultCodeSize).
// Emission that outgrows the buffer fails with an error naming the capacity.
func WithCodeSize(size int) Option {
	return func(c *config) {
		c.codeSize = size
	}
}

// WithInput sets the file the emitted code reads from (default os.Stdin).
func WithInput(f *os.File) Option {
	return func(c *config) {
		c.input = f
	}
}

// WithOutput sets the file the emitted code writes to (default os.Stdout).
func WithOutput(f *os.File) Option {
	return func(c *config) {
		c.output = f
	}
}

// Run compiles the program to native code against a zeroed tape and
// executes it, blocking until the program finishes. The emitted branch
// patching leans entirely on proper loop nesting, so the program is
// validated before any code is written.
func Run(ops core.Program, opts ...Option) error {
	if err := ops.Validate(); err != nil {
		return fmt.Errorf("refusing to compile: %w", err)
	}

	cfg := config{
		codeSize: DefaultCodeSize,
		input:    os.Stdin,
		output:   os.Stdout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return run(&cfg, ops)
}
