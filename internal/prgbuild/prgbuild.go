// Package prgbuild wraps a generated restore program in a loadable C64 PRG
// container: the two-byte load address every PRG file carries, a minimal
// BASIC stub that SYSes into the restore loader, and the loader's own
// bytes — which already carry everything else (the erasure stages and
// every compressed payload are embedded inside the loader, copied or
// decompressed into place at runtime). Grounded on
// original_source/src/make_prg_asm.rs's generate_main_code_vasm.
package prgbuild

import (
	"fmt"

	"github.com/vsfrestore/vsfrestore/internal/restore"
)

// loadAddr is the address VICE and every stock KERNAL LOAD routine places
// a PRG's first byte at when no explicit address is given.
const loadAddr = 0x0801

// basicStub is "10 SYS 2061" tokenized the way VICE's own BASIC would: a
// 2-byte pointer to the next line ($080B, the end-of-program link below), the
// 2-byte line number 10, the SYS token ($9E), the decimal target address
// as PETSCII digits, a statement-end NUL, and the 2-byte end-of-program
// link. 2061 is $080D, loadAddr+len(basicStub).
var basicStub = []byte{0x0B, 0x08, 0x0A, 0x00, 0x9E, '2', '0', '6', '1', 0x00, 0x00, 0x00}

// Build assembles the final PRG image from a generated restore program.
// The loader must already be assembled to start at loadAddr+len(basicStub)
// ($080D); restore.Generate guarantees this via loaderOrigin.
func Build(prog *restore.Program) ([]byte, error) {
	if len(prog.Loader) == 0 {
		return nil, fmt.Errorf("prgbuild: restore program has no loader code")
	}
	out := make([]byte, 0, 2+len(basicStub)+len(prog.Loader))
	out = append(out, byte(loadAddr&0xFF), byte(loadAddr>>8))
	out = append(out, basicStub...)
	out = append(out, prog.Loader...)
	return out, nil
}
