// Package elf builds minimal static ELF64 executables: a file header, one
// program header per segment, and the segment data. No section headers are
// emitted; the kernel only reads program headers to load an executable.
// Types and constants come from debug/elf so the output can be read back
// with the same package.
package elf

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

const (
	// HeaderSize is the size of the ELF64 file header.
	HeaderSize = 64
	// PhdrSize is the size of one ELF64 program header.
	PhdrSize = 56

	PageSize        = 0x1000
	DefaultCodeBase = 0x400000
	DefaultBSSBase  = 0x600000
)

// Segment describes one loadable segment.
type Segment struct {
	VAddr uint64
	Data  []byte // nil for BSS
	MemSz uint64
	Flags elf.ProgFlag
	IsBSS bool
}

// Builder accumulates segments and produces the executable image.
type Builder struct {
	entry    uint64
	segments []Segment
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// SetEntry sets the virtual address execution starts at.
func (b *Builder) SetEntry(addr uint64) {
	b.entry = addr
}

// AddLoadSegment adds a loadable segment backed by file data.
func (b *Builder) AddLoadSegment(data []byte, vaddr uint64, flags elf.ProgFlag) {
	b.segments = append(b.segments, Segment{
		VAddr: vaddr,
		Data:  data,
		MemSz: uint64(len(data)),
		Flags: flags,
	})
}

// AddBSSSegment adds a zero-initialized segment with no file data.
func (b *Builder) AddBSSSegment(vaddr, size uint64, flags elf.ProgFlag) {
	b.segments = append(b.segments, Segment{
		VAddr: vaddr,
		MemSz: size,
		Flags: flags,
		IsBSS: true,
	})
}

// Build produces the final ELF binary.
func (b *Builder) Build() []byte {
	var out bytes.Buffer

	// Segment data starts at the first page boundary past the headers.
	headerSize := uint64(HeaderSize + len(b.segments)*PhdrSize)
	dataOffset := alignUp(headerSize, PageSize)

	hdr := elf.Header64{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_X86_64),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     b.entry,
		Phoff:     HeaderSize,
		Ehsize:    HeaderSize,
		Phentsize: PhdrSize,
		Phnum:     uint16(len(b.segments)),
	}
	ident := [elf.EI_NIDENT]byte{
		elf.ELFMAG[0], elf.ELFMAG[1], elf.ELFMAG[2], elf.ELFMAG[3],
		byte(elf.ELFCLASS64),
		byte(elf.ELFDATA2LSB),
		byte(elf.EV_CURRENT),
		byte(elf.ELFOSABI_NONE),
	}
	hdr.Ident = ident
	binary.Write(&out, binary.LittleEndian, hdr)

	fileOffset := dataOffset
	for _, seg := range b.segments {
		phdr := elf.Prog64{
			Type:  uint32(elf.PT_LOAD),
			Flags: uint32(seg.Flags),
			Vaddr: seg.VAddr,
			Paddr: seg.VAddr,
			Memsz: seg.MemSz,
			Align: PageSize,
		}
		if !seg.IsBSS {
			// p_offset and p_vaddr must be congruent modulo the page size;
			// the caller's vaddrs are page-aligned, as is dataOffset.
			phdr.Off = fileOffset
			phdr.Filesz = uint64(len(seg.Data))
			fileOffset += uint64(len(seg.Data))
		}
		binary.Write(&out, binary.LittleEndian, phdr)
	}

	// Pad to the segment data offset, then append the data.
	out.Write(make([]byte, dataOffset-headerSize))
	for _, seg := range b.segments {
		if !seg.IsBSS {
			out.Write(seg.Data)
		}
	}

	return out.Bytes()
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
