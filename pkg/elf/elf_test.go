package elf

import (
	"bytes"
	"debug/elf"
	"testing"
)

func TestBuildRoundTrip(t *testing.T) {
	code := []byte{0x48, 0xC7, 0xC0, 0x3C, 0x00, 0x00, 0x00, 0x0F, 0x05} // exit

	b := NewBuilder()
	b.SetEntry(DefaultCodeBase + PageSize)
	b.AddLoadSegment(code, DefaultCodeBase+PageSize, elf.PF_R|elf.PF_X)
	b.AddBSSSegment(DefaultBSSBase, 0x20000, elf.PF_R|elf.PF_W)
	img := b.Build()

	f, err := elf.NewFile(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("debug/elf rejected the image: %v", err)
	}
	defer f.Close()

	if f.Type != elf.ET_EXEC {
		t.Errorf("Type = %v, want ET_EXEC", f.Type)
	}
	if f.Machine != elf.EM_X86_64 {
		t.Errorf("Machine = %v, want EM_X86_64", f.Machine)
	}
	if f.Entry != DefaultCodeBase+PageSize {
		t.Errorf("Entry = %#x, want %#x", f.Entry, DefaultCodeBase+PageSize)
	}
	if len(f.Progs) != 2 {
		t.Fatalf("got %d program headers, want 2", len(f.Progs))
	}

	text := f.Progs[0]
	if text.Flags != elf.PF_R|elf.PF_X {
		t.Errorf("text flags = %v, want R+X", text.Flags)
	}
	if text.Off != PageSize {
		t.Errorf("text offset = %#x, want %#x", text.Off, PageSize)
	}
	if text.Vaddr%PageSize != text.Off%PageSize {
		t.Errorf("text vaddr %#x and offset %#x not congruent mod page size", text.Vaddr, text.Off)
	}
	if got := img[text.Off : text.Off+uint64(len(code))]; !bytes.Equal(got, code) {
		t.Errorf("text bytes = % X, want % X", got, code)
	}

	bss := f.Progs[1]
	if bss.Filesz != 0 || bss.Memsz != 0x20000 {
		t.Errorf("bss filesz/memsz = %d/%d, want 0/131072", bss.Filesz, bss.Memsz)
	}
	if bss.Flags != elf.PF_R|elf.PF_W {
		t.Errorf("bss flags = %v, want R+W", bss.Flags)
	}
}
