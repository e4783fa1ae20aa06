//go:build linux && amd64

package jit

import "syscall"

// mapExec returns a zero-filled anonymous private mapping that is readable,
// writable and executable, so code can be emitted straight into it and then
// entered without remapping.
func mapExec(size int) ([]byte, error) {
	return syscall.Mmap(-1, 0, size,
		syscall.PROT_READ|syscall.PROT_WRITE|syscall.PROT_EXEC,
		syscall.MAP_PRIVATE|syscall.MAP_ANON)
}

// unmapExec releases the mapping. Pointers into it are invalid afterwards.
func unmapExec(mem []byte) error {
	return syscall.Munmap(mem)
}
