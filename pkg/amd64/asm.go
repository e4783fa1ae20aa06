package amd64

import (
	"encoding/binary"
	"fmt"
)

// OverflowError is reported when emission runs past the end of the code
// buffer. The fix is to compile again with a larger buffer.
type OverflowError struct {
	Size int // capacity of the buffer that overflowed
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("code buffer overflow, try a size greater than %d", e.Size)
}

// Assembler is an append-only machine code writer over a fixed-size buffer,
// typically an executable mapping. The write cursor only ever advances.
//
// Errors are sticky: after the first failed write every subsequent call is
// a no-op and Err reports the original failure, so emission code can run
// straight through without per-call checks.
type Assembler struct {
	buf      []byte
	off      int
	brackets []int // offsets just past unpatched je displacements
	err      error
}

// NewAssembler returns an Assembler writing into buf.
func NewAssembler(buf []byte) *Assembler {
	return &Assembler{buf: buf}
}

// Err returns the first error encountered during emission, if any.
func (a *Assembler) Err() error { return a.err }

// Len returns the current write offset.
func (a *Assembler) Len() int { return a.off }

// Code returns the emitted machine code.
func (a *Assembler) Code() []byte { return a.buf[:a.off] }

// reserve checks that n more bytes fit in the buffer.
func (a *Assembler) reserve(n int) bool {
	if a.err != nil {
		return false
	}
	if a.off+n > len(a.buf) {
		a.err = &OverflowError{Size: len(a.buf)}
		return false
	}
	return true
}

// Emit appends a literal byte sequence.
func (a *Assembler) Emit(bs ...byte) {
	if !a.reserve(len(bs)) {
		return
	}
	copy(a.buf[a.off:], bs)
	a.off += len(bs)
}

// EmitU8 appends an 8-bit value.
func (a *Assembler) EmitU8(v uint8) {
	if !a.reserve(1) {
		return
	}
	a.buf[a.off] = v
	a.off++
}

// EmitU16 appends a 16-bit value in little-endian order.
func (a *Assembler) EmitU16(v uint16) {
	if !a.reserve(2) {
		return
	}
	binary.LittleEndian.PutUint16(a.buf[a.off:], v)
	a.off += 2
}

// EmitU32 appends a 32-bit value in little-endian order.
func (a *Assembler) EmitU32(v uint32) {
	if !a.reserve(4) {
		return
	}
	binary.LittleEndian.PutUint32(a.buf[a.off:], v)
	a.off += 4
}

// EmitU64 appends a 64-bit value in little-endian order.
func (a *Assembler) EmitU64(v uint64) {
	if !a.reserve(8) {
		return
	}
	binary.LittleEndian.PutUint64(a.buf[a.off:], v)
	a.off += 8
}

// Je emits a jz with a placeholder displacement and remembers it on the
// bracket stack. The matching Jne patches it.
//
// The pair implements Brainfuck bracket semantics: brackets are properly
// nested and the jz always comes first, so a stack of unpatched offsets is
// all the relocation machinery needed.
func (a *Assembler) Je() {
	a.Emit(JzRel32(0)...)
	if a.err != nil {
		return
	}
	a.brackets = append(a.brackets, a.off)
}

// Jne emits a jnz and patches the displacement pair: the jz at the top of
// the bracket stack jumps forward to just past this jnz, and this jnz jumps
// backward to just past the jz.
func (a *Assembler) Jne() {
	if len(a.brackets) == 0 {
		if a.err == nil {
			a.err = fmt.Errorf("jne without matching je")
		}
		return
	}
	a.Emit(JnzRel32(0)...)
	if a.err != nil {
		return
	}

	jeNext := a.brackets[len(a.brackets)-1]
	a.brackets = a.brackets[:len(a.brackets)-1]
	jneNext := a.off

	// Displacements are relative to the end of each jump instruction.
	binary.LittleEndian.PutUint32(a.buf[jeNext-4:], uint32(int32(jneNext-jeNext)))
	binary.LittleEndian.PutUint32(a.buf[jneNext-4:], uint32(int32(jeNext-jneNext)))
}

// Unclosed returns the number of je instructions still awaiting their jne.
func (a *Assembler) Unclosed() int { return len(a.brackets) }

// PatchRel32 writes the rel32 at offset so that control transfers to
// target. offset must point at a previously emitted 4-byte displacement.
func (a *Assembler) PatchRel32(offset, target int) {
	if a.err != nil {
		return
	}
	binary.LittleEndian.PutUint32(a.buf[offset:], uint32(int32(target-(offset+4))))
}
