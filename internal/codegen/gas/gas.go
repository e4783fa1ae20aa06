// Package gas renders a program as GAS (AT&T syntax) x86_64 Linux assembly.
// The output mirrors the instruction selection of the JIT and ELF backends,
// which makes it the easiest way to inspect what they emit.
package gas

import (
	"fmt"
	"strings"

	"github.com/lcox74/bfjit/internal/core"
)

// Linux syscall numbers
const (
	sysRead  = 0
	sysWrite = 1
	sysExit  = 60
)

// Generator produces GAS assembly from IR operations.
type Generator struct {
	ops     core.Program
	out     strings.Builder
	targets map[int]bool
}

// NewGenerator creates a new GAS assembly generator.
func NewGenerator(ops core.Program) *Generator {
	g := &Generator{ops: ops, targets: make(map[int]bool)}
	g.collectTargets()
	return g
}

// collectTargets finds all jump target indices.
func (g *Generator) collectTargets() {
	for _, op := range g.ops {
		if op.Kind == core.OpJz || op.Kind == core.OpJnz {
			g.targets[int(op.Arg)] = true
		}
	}
}

// Generate produces the complete assembly output.
func (g *Generator) Generate() string {
	g.emitHeader()
	g.emitPrologue()

	for i, op := range g.ops {
		if g.targets[i] {
			g.emitLabel(i)
		}
		g.emitOp(op)
	}

	if g.targets[len(g.ops)] {
		g.emitLabel(len(g.ops))
	}
	g.emitEpilogue()
	g.emitHelpers()

	return g.out.String()
}

// emitHeader outputs the assembly file header with BSS and text sections.
func (g *Generator) emitHeader() {
	fmt.Fprintf(&g.out, ".section .bss\n")
	fmt.Fprintf(&g.out, "    .lcomm tape, %d\n", core.TapeSize)
	fmt.Fprintf(&g.out, "\n")
	fmt.Fprintf(&g.out, ".section .text\n")
	fmt.Fprintf(&g.out, ".globl _start\n")
}

// emitPrologue outputs the program start: RBX holds the cell pointer,
// starting at the tape base.
func (g *Generator) emitPrologue() {
	fmt.Fprintf(&g.out, "_start:\n")
	fmt.Fprintf(&g.out, "    movq $tape, %%rbx\n")
}

// emitEpilogue outputs the exit(0) syscall.
func (g *Generator) emitEpilogue() {
	fmt.Fprintf(&g.out, "    movq $%d, %%rax\n", sysExit)
	fmt.Fprintf(&g.out, "    xorq %%rdi, %%rdi\n")
	fmt.Fprintf(&g.out, "    syscall\n")
}

// emitHelpers outputs the I/O helper functions. The read helper stores the
// EOF sentinel when no byte arrives.
func (g *Generator) emitHelpers() {
	fmt.Fprintf(&g.out, "\n_bf_read:\n")
	fmt.Fprintf(&g.out, "    movq $%d, %%rax\n", sysRead)
	fmt.Fprintf(&g.out, "    xorq %%rdi, %%rdi\n")
	fmt.Fprintf(&g.out, "    movq %%rbx, %%rsi\n")
	fmt.Fprintf(&g.out, "    movq $1, %%rdx\n")
	fmt.Fprintf(&g.out, "    syscall\n")
	fmt.Fprintf(&g.out, "    testq %%rax, %%rax\n")
	fmt.Fprintf(&g.out, "    jg 1f\n")
	fmt.Fprintf(&g.out, "    movb $-1, (%%rbx)\n")
	fmt.Fprintf(&g.out, "1:  ret\n")

	fmt.Fprintf(&g.out, "\n_bf_write:\n")
	fmt.Fprintf(&g.out, "    movq $%d, %%rax\n", sysWrite)
	fmt.Fprintf(&g.out, "    movq $1, %%rdi\n")
	fmt.Fprintf(&g.out, "    movq %%rbx, %%rsi\n")
	fmt.Fprintf(&g.out, "    movq $1, %%rdx\n")
	fmt.Fprintf(&g.out, "    syscall\n")
	fmt.Fprintf(&g.out, "    ret\n")
}

// emitLabel outputs a label for the given IR index.
func (g *Generator) emitLabel(index int) {
	fmt.Fprintf(&g.out, ".jt_%d:\n", index)
}

// emitOp outputs assembly for a single IR operation.
func (g *Generator) emitOp(op core.Op) {
	switch op.Kind {
	case core.OpShift:
		g.emitShift(op.Arg)
	case core.OpAdd:
		g.emitAdd(op.Arg)
	case core.OpZero:
		fmt.Fprintf(&g.out, "    movb $0, (%%rbx)\n")
	case core.OpIn:
		fmt.Fprintf(&g.out, "    call _bf_read\n")
	case core.OpOut:
		fmt.Fprintf(&g.out, "    call _bf_write\n")
	case core.OpJz:
		g.emitTest()
		fmt.Fprintf(&g.out, "    jz .jt_%d\n", op.Arg)
	case core.OpJnz:
		g.emitTest()
		fmt.Fprintf(&g.out, "    jnz .jt_%d\n", op.Arg)
	}
}

// emitShift outputs: addq $k, %rbx (or subq for negative values)
func (g *Generator) emitShift(k int32) {
	if k == 0 {
		return
	}
	if k > 0 {
		fmt.Fprintf(&g.out, "    addq $%d, %%rbx\n", k)
	} else {
		fmt.Fprintf(&g.out, "    subq $%d, %%rbx\n", -k)
	}
}

// emitAdd outputs: addb $k, (%rbx) (or subb for negative values)
func (g *Generator) emitAdd(k int32) {
	if k == 0 {
		return
	}
	if k > 0 {
		fmt.Fprintf(&g.out, "    addb $%d, (%%rbx)\n", k)
	} else {
		fmt.Fprintf(&g.out, "    subb $%d, (%%rbx)\n", -k)
	}
}

// emitTest loads the current cell and sets ZF for the following branch.
func (g *Generator) emitTest() {
	fmt.Fprintf(&g.out, "    movb (%%rbx), %%al\n")
	fmt.Fprintf(&g.out, "    testb %%al, %%al\n")
}
