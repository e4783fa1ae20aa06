//go:build linux && amd64

package jit

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/lcox74/bfjit/internal/core"
	"github.com/lcox74/bfjit/pkg/amd64"
)

// Linux syscall numbers used by the emitted I/O thunks.
const (
	sysRead  = 0
	sysWrite = 1
)

// callFixup records a call site whose rel32 still points at a placeholder.
// The thunks it targets are emitted after the epilogue.
type callFixup struct {
	offset int  // code offset of the call's rel32 (one past the E8 opcode)
	in     bool // true for the read thunk, false for the write thunk
}

// compiler lowers IR operations into an Assembler.
type compiler struct {
	asm    *amd64.Assembler
	fixups []callFixup
}

func run(cfg *config, ops core.Program) error {
	mem, err := mapExec(cfg.codeSize)
	if err != nil {
		return fmt.Errorf("map executable memory: %w", err)
	}
	defer unmapExec(mem)

	tape := make([]byte, core.TapeSize)

	c := &compiler{asm: amd64.NewAssembler(mem)}
	c.emitPrologue(&tape[0])
	for _, op := range ops {
		c.emitOp(op)
	}
	c.emitEpilogue()
	c.emitThunks(int32(cfg.input.Fd()), int32(cfg.output.Fd()))

	if err := c.asm.Err(); err != nil {
		return err
	}

	enter(mem)

	// The emitted code holds raw pointers and file descriptors the GC
	// cannot see; keep their owners alive until it has returned.
	runtime.KeepAlive(tape)
	runtime.KeepAlive(cfg.input)
	runtime.KeepAlive(cfg.output)
	return nil
}

// enter casts the start of the mapping to a niladic function and calls it.
// A Go func value is a pointer to a funcval whose first word is the code
// address, so a one-word struct wrapping the code pointer stands in for it.
func enter(code []byte) {
	entry := unsafe.Pointer(&struct{ *byte }{&code[0]})
	fn := *(*func())(unsafe.Pointer(&entry))
	fn()
}

// emitPrologue establishes the frame, saves RDI, RSI, RBX, RDX, RCX and RAX,
// and loads the tape address into RBX.
//
// The save set is a conservative superset of what either host ABI requires,
// which keeps the entry sequence identical everywhere. R11, which the
// thunks' syscalls clobber, is not saved. R14 and R15 are never
// touched by the emitted code (the Go runtime reserves R14 for the current
// goroutine).
func (c *compiler) emitPrologue(tape *byte) {
	c.asm.Emit(amd64.PushRBP()...)   // pushq %rbp
	c.asm.Emit(amd64.MovRSPRBP()...) // movq %rsp, %rbp

	c.asm.Emit(amd64.PushRDI()...) // pushq %rdi
	c.asm.Emit(amd64.PushRSI()...) // pushq %rsi
	c.asm.Emit(amd64.PushRBX()...) // pushq %rbx
	c.asm.Emit(amd64.PushRDX()...) // pushq %rdx
	c.asm.Emit(amd64.PushRCX()...) // pushq %rcx
	c.asm.Emit(amd64.PushRAX()...) // pushq %rax

	addr := uint64(uintptr(unsafe.Pointer(tape)))
	c.asm.Emit(amd64.MovabsRBX(addr)...) // movabs $tape, %rbx
}

// emitEpilogue restores the saved registers in reverse order and returns.
func (c *compiler) emitEpilogue() {
	c.asm.Emit(amd64.PopRAX()...) // popq %rax
	c.asm.Emit(amd64.PopRCX()...) // popq %rcx
	c.asm.Emit(amd64.PopRDX()...) // popq %rdx
	c.asm.Emit(amd64.PopRBX()...) // popq %rbx
	c.asm.Emit(amd64.PopRSI()...) // popq %rsi
	c.asm.Emit(amd64.PopRDI()...) // popq %rdi
	c.asm.Emit(amd64.PopRBP()...) // popq %rbp
	c.asm.Emit(amd64.Ret()...)    // retq
}

// emitOp outputs machine code for a single IR operation.
func (c *compiler) emitOp(op core.Op) {
	switch op.Kind {
	case core.OpShift:
		c.emitShift(op.Arg)
	case core.OpAdd:
		c.emitAdd(op.Arg)
	case core.OpZero:
		c.asm.Emit(amd64.MovbZeroMem()...) // movb $0, (%rbx)
	case core.OpIn:
		c.emitCallThunk(true)
	case core.OpOut:
		c.emitCallThunk(false)
	case core.OpJz:
		c.emitTest()
		c.asm.Je()
	case core.OpJnz:
		c.emitTest()
		c.asm.Jne()
	}
}

// emitShift outputs: addq/subq $k, %rbx
func (c *compiler) emitShift(k int32) {
	if k == 0 {
		return
	}
	if k > 0 {
		c.asm.Emit(amd64.AddqImm32RBX(k)...) // addq $k, %rbx
	} else {
		c.asm.Emit(amd64.SubqImm32RBX(-k)...) // subq $k, %rbx
	}
}

// emitAdd outputs: addb/subb $k, (%rbx)
func (c *compiler) emitAdd(k int32) {
	if k == 0 {
		return
	}
	if k > 0 {
		c.asm.Emit(amd64.AddbImm8Mem(uint8(k))...) // addb $k, (%rbx)
	} else {
		c.asm.Emit(amd64.SubbImm8Mem(uint8(-k))...) // subb $k, (%rbx)
	}
}

// emitTest loads the current cell and sets ZF for the following branch.
func (c *compiler) emitTest() {
	c.asm.Emit(amd64.MovbMemAL()...) // movb (%rbx), %al
	c.asm.Emit(amd64.TestALAL()...)  // testb %al, %al
}

// emitCallThunk outputs a call with a placeholder displacement, to be
// patched once the thunks exist.
func (c *compiler) emitCallThunk(in bool) {
	c.fixups = append(c.fixups, callFixup{
		offset: c.asm.Len() + 1, // rel32 starts after the E8 opcode
		in:     in,
	})
	c.asm.Emit(amd64.CallRel32(0)...)
}

// emitThunks outputs the read and write thunks after the epilogue and
// resolves all pending call fixups against them.
//
// Both thunks preserve RBX; the syscall instruction only clobbers RCX and
// R11. A read that returns zero bytes or an error stores the EOF sentinel
// (0xFF, getchar's EOF narrowed to a byte) into the current cell.
func (c *compiler) emitThunks(inFd, outFd int32) {
	readOff := c.asm.Len()
	c.asm.Emit(amd64.MovqImm32RAX(sysRead)...) // movq $0, %rax
	c.asm.Emit(amd64.MovqImm32RDI(inFd)...)    // movq $fd, %rdi
	c.asm.Emit(amd64.MovqRBXRSI()...)          // movq %rbx, %rsi
	c.asm.Emit(amd64.MovqImm32RDX(1)...)       // movq $1, %rdx
	c.asm.Emit(amd64.Syscall()...)             // syscall
	c.asm.Emit(amd64.TestRAXRAX()...)          // testq %rax, %rax
	c.asm.Emit(amd64.JgRel8(3)...)             // jg past the sentinel store
	c.asm.Emit(amd64.MovbImm8Mem(0xFF)...)     // movb $0xff, (%rbx)
	c.asm.Emit(amd64.Ret()...)                 // retq

	writeOff := c.asm.Len()
	c.asm.Emit(amd64.MovqImm32RAX(sysWrite)...) // movq $1, %rax
	c.asm.Emit(amd64.MovqImm32RDI(outFd)...)    // movq $fd, %rdi
	c.asm.Emit(amd64.MovqRBXRSI()...)           // movq %rbx, %rsi
	c.asm.Emit(amd64.MovqImm32RDX(1)...)        // movq $1, %rdx
	c.asm.Emit(amd64.Syscall()...)              // syscall
	c.asm.Emit(amd64.Ret()...)                  // retq

	for _, fixup := range c.fixups {
		target := writeOff
		if fixup.in {
			target = readOff
		}
		c.asm.PatchRel32(fixup.offset, target)
	}
}
