// Package linux produces ELF64 x86_64 Linux executables from IR operations.
//
// The instruction selection matches the JIT backend: RBX is the cell
// pointer and I/O goes through read/write helper routines. The differences
// are the tape (a kernel-zeroed BSS segment at a fixed virtual address
// instead of a host-allocated buffer) and the ending (an exit(0) syscall
// instead of an epilogue returning to the host).
package linux

import (
	"debug/elf"
	"encoding/binary"

	"github.com/lcox74/bfjit/internal/core"
	"github.com/lcox74/bfjit/pkg/amd64"
	elfb "github.com/lcox74/bfjit/pkg/elf"
)

// Linux syscall numbers
const (
	sysRead  = 0
	sysWrite = 1
	sysExit  = 60
)

// Special fixup targets for the I/O helpers.
const (
	fixupRead  = -1
	fixupWrite = -2
)

// jumpFixup records a location that needs to be patched with a relative offset.
type jumpFixup struct {
	offset    int // Offset in code where rel32 starts
	targetIdx int // IR index of the jump target, or fixupRead/fixupWrite
}

// X86_64Generator produces x86_64 machine code from IR operations.
type X86_64Generator struct {
	ops       core.Program
	code      []byte
	targets   map[int]bool // IR indices that are jump targets
	labelAddr map[int]int  // IR index -> code offset
	fixups    []jumpFixup  // Jumps and calls that need patching
	readAddr  int          // code offset of the read helper
	writeAddr int          // code offset of the write helper
	codeBase  uint64       // Virtual address where code will be loaded
	bssBase   uint64       // Virtual address for BSS/tape
}

// NewX86_64Generator creates a new x86_64 machine code generator.
func NewX86_64Generator(ops core.Program) *X86_64Generator {
	g := &X86_64Generator{
		ops:       ops,
		code:      make([]byte, 0, 4096),
		targets:   make(map[int]bool),
		labelAddr: make(map[int]int),
		codeBase:  elfb.DefaultCodeBase + elfb.PageSize, // Code starts after ELF headers
		bssBase:   elfb.DefaultBSSBase,
	}
	g.collectTargets()
	return g
}

// collectTargets finds all jump target indices.
func (g *X86_64Generator) collectTargets() {
	for _, op := range g.ops {
		if op.Kind == core.OpJz || op.Kind == core.OpJnz {
			g.targets[int(op.Arg)] = true
		}
	}
}

// Generate produces raw x86_64 machine code.
func (g *X86_64Generator) Generate() []byte {
	g.emitPrologue()

	for i, op := range g.ops {
		if g.targets[i] {
			g.labelAddr[i] = len(g.code)
		}
		g.emitOp(op)
	}

	// Record final label address if it's a target
	if g.targets[len(g.ops)] {
		g.labelAddr[len(g.ops)] = len(g.code)
	}

	g.emitEpilogue()
	g.emitHelpers()
	g.resolveFixups()

	return g.code
}

// GenerateELF produces a complete ELF64 executable.
func (g *X86_64Generator) GenerateELF() []byte {
	code := g.Generate()

	builder := elfb.NewBuilder()
	builder.SetEntry(g.codeBase)
	builder.AddLoadSegment(code, g.codeBase, elf.PF_R|elf.PF_X)
	builder.AddBSSSegment(g.bssBase, core.TapeSize, elf.PF_R|elf.PF_W)

	return builder.Build()
}

// emitBytes appends a byte slice to the code buffer.
func (g *X86_64Generator) emitBytes(b []byte) {
	g.code = append(g.code, b...)
}

// emitPrologue outputs the program start: point RBX at the tape base.
func (g *X86_64Generator) emitPrologue() {
	g.emitBytes(amd64.MovabsRBX(g.bssBase)) // movabs $tape, %rbx
}

// emitEpilogue outputs the exit(0) syscall.
func (g *X86_64Generator) emitEpilogue() {
	g.emitBytes(amd64.MovqImm32RAX(sysExit)) // movq $60, %rax
	g.emitBytes(amd64.XorRDIRDI())           // xorq %rdi, %rdi
	g.emitBytes(amd64.Syscall())             // syscall
}

// emitHelpers outputs the I/O helper functions.
func (g *X86_64Generator) emitHelpers() {
	// _bf_read:
	g.readAddr = len(g.code)
	g.emitBytes(amd64.MovqImm32RAX(sysRead)) // movq $0, %rax
	g.emitBytes(amd64.XorRDIRDI())           // xorq %rdi, %rdi
	g.emitBytes(amd64.MovqRBXRSI())          // movq %rbx, %rsi
	g.emitBytes(amd64.MovqImm32RDX(1))       // movq $1, %rdx
	g.emitBytes(amd64.Syscall())             // syscall
	g.emitBytes(amd64.TestRAXRAX())          // testq %rax, %rax
	g.emitBytes(amd64.JgRel8(3))             // jg past the sentinel store
	g.emitBytes(amd64.MovbImm8Mem(0xFF))     // movb $0xff, (%rbx) - EOF
	g.emitBytes(amd64.Ret())                 // ret

	// _bf_write:
	g.writeAddr = len(g.code)
	g.emitBytes(amd64.MovqImm32RAX(sysWrite)) // movq $1, %rax
	g.emitBytes(amd64.MovqImm32RDI(1))        // movq $1, %rdi
	g.emitBytes(amd64.MovqRBXRSI())           // movq %rbx, %rsi
	g.emitBytes(amd64.MovqImm32RDX(1))        // movq $1, %rdx
	g.emitBytes(amd64.Syscall())              // syscall
	g.emitBytes(amd64.Ret())                  // ret
}

// emitOp outputs machine code for a single IR operation.
func (g *X86_64Generator) emitOp(op core.Op) {
	switch op.Kind {
	case core.OpShift:
		g.emitShift(op.Arg)
	case core.OpAdd:
		g.emitAdd(op.Arg)
	case core.OpZero:
		g.emitBytes(amd64.MovbZeroMem()) // movb $0, (%rbx)
	case core.OpIn:
		g.emitCall(fixupRead)
	case core.OpOut:
		g.emitCall(fixupWrite)
	case core.OpJz:
		g.emitJump(amd64.JzRel32(0), int(op.Arg))
	case core.OpJnz:
		g.emitJump(amd64.JnzRel32(0), int(op.Arg))
	}
}

// emitShift outputs: addq/subq $k, %rbx
// Op.Arg is already the full 32-bit displacement.
func (g *X86_64Generator) emitShift(k int32) {
	if k == 0 {
		return
	}
	if k > 0 {
		g.emitBytes(amd64.AddqImm32RBX(k)) // addq $k, %rbx
	} else {
		g.emitBytes(amd64.SubqImm32RBX(-k)) // subq $k, %rbx
	}
}

// emitAdd outputs: addb/subb $k, (%rbx)
// Tape cells are unsigned bytes [0, 255], so we use separate add/sub with uint8 immediates.
func (g *X86_64Generator) emitAdd(k int32) {
	if k == 0 {
		return
	}
	if k > 0 {
		g.emitBytes(amd64.AddbImm8Mem(uint8(k))) // addb $k, (%rbx)
	} else {
		g.emitBytes(amd64.SubbImm8Mem(uint8(-k))) // subb $k, (%rbx)
	}
}

// emitCall outputs a call to an I/O helper with a placeholder displacement.
func (g *X86_64Generator) emitCall(helper int) {
	g.fixups = append(g.fixups, jumpFixup{
		offset:    len(g.code) + 1, // rel32 starts at offset 1 in call instruction
		targetIdx: helper,
	})
	g.emitBytes(amd64.CallRel32(0)) // Placeholder
}

// emitJump outputs: movb (%rbx), %al; testb %al, %al; jz/jnz target
func (g *X86_64Generator) emitJump(jump []byte, target int) {
	g.emitBytes(amd64.MovbMemAL()) // movb (%rbx), %al
	g.emitBytes(amd64.TestALAL())  // testb %al, %al
	g.fixups = append(g.fixups, jumpFixup{
		offset:    len(g.code) + 2, // rel32 starts at offset 2 in jz/jnz
		targetIdx: target,
	})
	g.emitBytes(jump) // Placeholder
}

// resolveFixups patches all jump and call targets.
func (g *X86_64Generator) resolveFixups() {
	for _, fixup := range g.fixups {
		var targetAddr int
		switch fixup.targetIdx {
		case fixupRead:
			targetAddr = g.readAddr
		case fixupWrite:
			targetAddr = g.writeAddr
		default:
			targetAddr = g.labelAddr[fixup.targetIdx]
		}

		// Displacements are relative to the end of the instruction,
		// 4 bytes past the start of the rel32.
		instrEnd := fixup.offset + 4
		rel32 := int32(targetAddr - instrEnd)

		binary.LittleEndian.PutUint32(g.code[fixup.offset:], uint32(rel32))
	}
}
