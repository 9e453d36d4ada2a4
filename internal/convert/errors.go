package convert

import (
	"github.com/vsfrestore/vsfrestore/internal/asm6502"
	"github.com/vsfrestore/vsfrestore/internal/blockalloc"
	"github.com/vsfrestore/vsfrestore/internal/lzsa1"
	"github.com/vsfrestore/vsfrestore/internal/snapshot"
)

// Exit codes, matching the CLI contract: 0 success, 2 bad arguments (the
// caller's concern, not this package's), 3 unsupported snapshot, 4
// allocation failure, 5 I/O error (also the caller's concern), 6 internal
// error.
const (
	ExitUnsupportedSnapshot = 3
	ExitAllocationFailed    = 4
	ExitInternal            = 6
)

// ExitCode classifies err the way the driver's own error-kind type switch
// does, so cmd/vsfrestore doesn't need to import every pipeline package
// just to pick an exit status. It returns 0 for a nil error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch err.(type) {
	case snapshot.ErrUnsupportedSnapshot, snapshot.ErrMalformedSnapshot:
		return ExitUnsupportedSnapshot
	case blockalloc.ErrAllocationFailed:
		return ExitAllocationFailed
	case asm6502.ErrAsmError, lzsa1.ErrCompressionOverflow:
		return ExitInternal
	default:
		return ExitInternal
	}
}
