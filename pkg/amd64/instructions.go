// Package amd64 provides x86_64 (AMD64) machine code encoding utilities.
// This package has no dependencies on the engine internals and can be used
// standalone for generating x86_64 machine code.
package amd64

import "encoding/binary"

// This file contains the instruction encoders.
// Each function returns the machine code bytes for a specific instruction.
//
// The cell-addressing instructions assume the convention used by the JIT
// and ELF backends: RBX holds a byte pointer to the current tape cell.
// RBX is callee-saved under both the System V and Microsoft x64 ABIs,
// so it survives calls made from emitted code.
//
// For details on x86-64 instruction encoding (REX prefixes, ModRM, SIB
// bytes), see: https://wiki.osdev.org/X86-64_Instruction_Encoding

// MovabsRBX encodes: movabs $imm64, %rbx (48 BB <imm64>)
// Loads a 64-bit immediate into RBX.
func MovabsRBX(imm64 uint64) []byte {
	// REX.W (48) = 64-bit operand
	// B8+r = mov imm64 to register, with RBX: BB
	buf := make([]byte, 10)
	buf[0] = 0x48 // REX.W
	buf[1] = 0xBB // mov rbx, imm64
	binary.LittleEndian.PutUint64(buf[2:], imm64)
	return buf
}

// AddbImm8Mem encodes: addb $imm8, (%rbx) (80 03 <imm8>)
// Adds an 8-bit immediate to the byte at (%rbx).
func AddbImm8Mem(imm8 uint8) []byte {
	// 80 /0 ib = add r/m8, imm8
	// ModRM: 00 (indirect) 000 (/0) 011 (rbx) = 03
	return []byte{0x80, 0x03, imm8}
}

// SubbImm8Mem encodes: subb $imm8, (%rbx) (80 2B <imm8>)
// Subtracts an 8-bit immediate from the byte at (%rbx).
func SubbImm8Mem(imm8 uint8) []byte {
	// 80 /5 ib = sub r/m8, imm8
	// ModRM: 00 (indirect) 101 (/5) 011 (rbx) = 2B
	return []byte{0x80, 0x2B, imm8}
}

// MovbImm8Mem encodes: movb $imm8, (%rbx) (C6 03 <imm8>)
// Stores an 8-bit immediate into the byte at (%rbx).
func MovbImm8Mem(imm8 uint8) []byte {
	// C6 /0 ib = mov r/m8, imm8
	// ModRM: 00 (indirect) 000 (/0) 011 (rbx) = 03
	return []byte{0xC6, 0x03, imm8}
}

// MovbZeroMem encodes: movb $0, (%rbx) (C6 03 00)
// Sets the byte at (%rbx) to 0.
func MovbZeroMem() []byte {
	return MovbImm8Mem(0)
}

// AddqImm32RBX encodes: addq $imm32, %rbx (48 81 C3 <imm32>)
// Adds a signed 32-bit immediate to RBX.
func AddqImm32RBX(imm32 int32) []byte {
	// REX.W (48)
	// 81 /0 id = add r/m64, imm32
	// ModRM: 11 (reg) 000 (/0) 011 (rbx) = C3
	buf := make([]byte, 7)
	buf[0] = 0x48
	buf[1] = 0x81
	buf[2] = 0xC3
	binary.LittleEndian.PutUint32(buf[3:], uint32(imm32))
	return buf
}

// SubqImm32RBX encodes: subq $imm32, %rbx (48 81 EB <imm32>)
// Subtracts a signed 32-bit immediate from RBX.
func SubqImm32RBX(imm32 int32) []byte {
	// REX.W (48)
	// 81 /5 id = sub r/m64, imm32
	// ModRM: 11 (reg) 101 (/5) 011 (rbx) = EB
	buf := make([]byte, 7)
	buf[0] = 0x48
	buf[1] = 0x81
	buf[2] = 0xEB
	binary.LittleEndian.PutUint32(buf[3:], uint32(imm32))
	return buf
}

// MovbMemAL encodes: movb (%rbx), %al (8A 03)
// Loads the byte at (%rbx) into AL.
func MovbMemAL() []byte {
	// 8A /r = mov r8, r/m8
	// ModRM: 00 (indirect) 000 (al) 011 (rbx) = 03
	return []byte{0x8A, 0x03}
}

// MovbALMem encodes: movb %al, (%rbx) (88 03)
// Stores AL into the byte at (%rbx).
func MovbALMem() []byte {
	// 88 /r = mov r/m8, r8
	// ModRM: 00 (indirect) 000 (al) 011 (rbx) = 03
	return []byte{0x88, 0x03}
}

// TestALAL encodes: testb %al, %al (84 C0)
// Sets ZF from AL.
func TestALAL() []byte {
	// 84 /r = test r/m8, r8
	// ModRM: 11 (reg-reg) 000 (al) 000 (al) = C0
	return []byte{0x84, 0xC0}
}

// TestRAXRAX encodes: testq %rax, %rax (48 85 C0)
// Sets flags from RAX, in particular SF/ZF for sign checks.
func TestRAXRAX() []byte {
	// REX.W (48)
	// 85 /r = test r/m64, r64
	// ModRM: 11 (reg-reg) 000 (rax) 000 (rax) = C0
	return []byte{0x48, 0x85, 0xC0}
}

// MovqRBXRSI encodes: movq %rbx, %rsi (48 89 DE)
// Copies the cell pointer into RSI (the buffer argument of read/write).
func MovqRBXRSI() []byte {
	// REX.W (48)
	// 89 /r = mov r/m64, r64
	// ModRM: 11 (reg-reg) 011 (rbx) 110 (rsi) = DE
	return []byte{0x48, 0x89, 0xDE}
}

// MovqImm32RAX encodes: movq $imm32, %rax (48 C7 C0 <imm32>)
// Load 32-bit sign-extended immediate into RAX.
func MovqImm32RAX(imm32 int32) []byte {
	buf := make([]byte, 7)
	buf[0] = 0x48 // REX.W
	buf[1] = 0xC7 // mov r/m64, imm32
	buf[2] = 0xC0 // ModRM: 11 000 000 (rax)
	binary.LittleEndian.PutUint32(buf[3:], uint32(imm32))
	return buf
}

// MovqImm32RDI encodes: movq $imm32, %rdi (48 C7 C7 <imm32>)
// Load 32-bit sign-extended immediate into RDI.
func MovqImm32RDI(imm32 int32) []byte {
	buf := make([]byte, 7)
	buf[0] = 0x48 // REX.W
	buf[1] = 0xC7 // mov r/m64, imm32
	buf[2] = 0xC7 // ModRM: 11 000 111 (rdi)
	binary.LittleEndian.PutUint32(buf[3:], uint32(imm32))
	return buf
}

// MovqImm32RDX encodes: movq $imm32, %rdx (48 C7 C2 <imm32>)
// Load 32-bit sign-extended immediate into RDX.
func MovqImm32RDX(imm32 int32) []byte {
	buf := make([]byte, 7)
	buf[0] = 0x48 // REX.W
	buf[1] = 0xC7 // mov r/m64, imm32
	buf[2] = 0xC2 // ModRM: 11 000 010 (rdx)
	binary.LittleEndian.PutUint32(buf[3:], uint32(imm32))
	return buf
}

// XorRDIRDI encodes: xorq %rdi, %rdi (48 31 FF)
// Zeros RDI.
func XorRDIRDI() []byte {
	return []byte{0x48, 0x31, 0xFF}
}

// PushRBP encodes: pushq %rbp (55)
func PushRBP() []byte { return []byte{0x55} }

// MovRSPRBP encodes: movq %rsp, %rbp (48 89 E5)
func MovRSPRBP() []byte { return []byte{0x48, 0x89, 0xE5} }

// PushRAX encodes: pushq %rax (50)
func PushRAX() []byte { return []byte{0x50} }

// PushRCX encodes: pushq %rcx (51)
func PushRCX() []byte { return []byte{0x51} }

// PushRDX encodes: pushq %rdx (52)
func PushRDX() []byte { return []byte{0x52} }

// PushRBX encodes: pushq %rbx (53)
func PushRBX() []byte { return []byte{0x53} }

// PushRSI encodes: pushq %rsi (56)
func PushRSI() []byte { return []byte{0x56} }

// PushRDI encodes: pushq %rdi (57)
func PushRDI() []byte { return []byte{0x57} }

// PopRAX encodes: popq %rax (58)
func PopRAX() []byte { return []byte{0x58} }

// PopRCX encodes: popq %rcx (59)
func PopRCX() []byte { return []byte{0x59} }

// PopRDX encodes: popq %rdx (5A)
func PopRDX() []byte { return []byte{0x5A} }

// PopRBX encodes: popq %rbx (5B)
func PopRBX() []byte { return []byte{0x5B} }

// PopRBP encodes: popq %rbp (5D)
func PopRBP() []byte { return []byte{0x5D} }

// PopRSI encodes: popq %rsi (5E)
func PopRSI() []byte { return []byte{0x5E} }

// PopRDI encodes: popq %rdi (5F)
func PopRDI() []byte { return []byte{0x5F} }

// JzRel32 encodes: jz rel32 (0F 84 <rel32>)
// Jump if zero flag is set. rel32 is relative to end of instruction.
func JzRel32(rel32 int32) []byte {
	buf := make([]byte, 6)
	buf[0] = 0x0F
	buf[1] = 0x84
	binary.LittleEndian.PutUint32(buf[2:], uint32(rel32))
	return buf
}

// JnzRel32 encodes: jnz rel32 (0F 85 <rel32>)
// Jump if zero flag is not set. rel32 is relative to end of instruction.
func JnzRel32(rel32 int32) []byte {
	buf := make([]byte, 6)
	buf[0] = 0x0F
	buf[1] = 0x85
	binary.LittleEndian.PutUint32(buf[2:], uint32(rel32))
	return buf
}

// JgRel8 encodes: jg rel8 (7F <rel8>)
// Short jump if greater (signed). rel8 is relative to end of instruction.
func JgRel8(rel8 int8) []byte {
	return []byte{0x7F, uint8(rel8)}
}

// CallRel32 encodes: call rel32 (E8 <rel32>)
// Call a function. rel32 is relative to end of instruction.
func CallRel32(rel32 int32) []byte {
	buf := make([]byte, 5)
	buf[0] = 0xE8
	binary.LittleEndian.PutUint32(buf[1:], uint32(rel32))
	return buf
}

// Ret encodes: ret (C3)
func Ret() []byte {
	return []byte{0xC3}
}

// Syscall encodes: syscall (0F 05)
func Syscall() []byte {
	return []byte{0x0F, 0x05}
}
