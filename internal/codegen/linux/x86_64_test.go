package linux

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/lcox74/bfjit/internal/core"
	elfb "github.com/lcox74/bfjit/pkg/elf"
)

func lower(t *testing.T, src string) core.Program {
	t.Helper()
	ops, err := core.Lower(core.Tokenize([]byte(src)))
	if err != nil {
		t.Fatalf("Lower(%q) failed: %v", src, err)
	}
	return ops
}

func TestGeneratePrologue(t *testing.T) {
	code := NewX86_64Generator(nil).Generate()

	// movabs $bss, %rbx
	want := []byte{0x48, 0xBB, 0x00, 0x00, 0x60, 0x00, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(code[:10], want) {
		t.Errorf("prologue = % X, want % X", code[:10], want)
	}
}

func TestGenerateLoopDisplacements(t *testing.T) {
	code := NewX86_64Generator(lower(t, "[]")).Generate()

	// After the 10-byte prologue: movb (%rbx),%al; testb %al,%al; jz
	// at 14 with its rel32 at 16, then the same test and a jnz at 24
	// with its rel32 at 26. The jz lands one past the jnz (offset 30),
	// the jnz back at the start of the first test (offset 10).
	if code[14] != 0x0F || code[15] != 0x84 {
		t.Fatalf("jz opcode = % X, want 0F 84", code[14:16])
	}
	if got := int32(binary.LittleEndian.Uint32(code[16:])); got != 10 {
		t.Errorf("jz displacement = %d, want 10", got)
	}
	if code[24] != 0x0F || code[25] != 0x85 {
		t.Fatalf("jnz opcode = % X, want 0F 85", code[24:26])
	}
	if got := int32(binary.LittleEndian.Uint32(code[26:])); got != -20 {
		t.Errorf("jnz displacement = %d, want -20", got)
	}
}

func TestGenerateCallsResolveToHelpers(t *testing.T) {
	g := NewX86_64Generator(lower(t, ",."))
	code := g.Generate()

	// call _bf_read at offset 10, call _bf_write at 15.
	for i, want := range []int{g.readAddr, g.writeAddr} {
		off := 10 + i*5
		if code[off] != 0xE8 {
			t.Fatalf("call opcode at %d = %#x, want E8", off, code[off])
		}
		disp := int32(binary.LittleEndian.Uint32(code[off+1:]))
		if target := off + 5 + int(disp); target != want {
			t.Errorf("call %d resolves to %d, want %d", i, target, want)
		}
	}
}

func TestGenerateELF(t *testing.T) {
	img := NewX86_64Generator(lower(t, "+.")).GenerateELF()

	f, err := elf.NewFile(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("debug/elf rejected the image: %v", err)
	}
	defer f.Close()

	if f.Entry != elfb.DefaultCodeBase+elfb.PageSize {
		t.Errorf("Entry = %#x, want %#x", f.Entry, elfb.DefaultCodeBase+elfb.PageSize)
	}
	if len(f.Progs) != 2 {
		t.Fatalf("got %d program headers, want 2", len(f.Progs))
	}
	if f.Progs[1].Memsz != core.TapeSize {
		t.Errorf("tape segment memsz = %d, want %d", f.Progs[1].Memsz, core.TapeSize)
	}
}
