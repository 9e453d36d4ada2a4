// Package convert drives the end-to-end conversion from a parsed snapshot
// to a finished PRG or CRT artifact: it calls restore.Generate once, with
// any manual-free ranges the caller supplied, then hands the generated
// program to prgbuild or crtbuild depending on the requested output kind.
// Grounded on convertprg.go and disassemble.go's type-switch error handling
// and log-to-stderr reporting style.
package convert

import (
	"fmt"

	"github.com/vsfrestore/vsfrestore/internal/crtbuild"
	"github.com/vsfrestore/vsfrestore/internal/prgbuild"
	"github.com/vsfrestore/vsfrestore/internal/ramscan"
	"github.com/vsfrestore/vsfrestore/internal/restore"
	"github.com/vsfrestore/vsfrestore/internal/snapshot"
)

// OutputKind selects the artifact Convert produces.
type OutputKind int

const (
	PRG OutputKind = iota
	CRT
)

// Options configures one conversion. ManualFree supplies ranges to zero in
// the working RAM copy before the allocator runs; the driver does not
// populate this itself on a first attempt — only a caller retrying after an
// AllocationFailed does.
type Options struct {
	Output     OutputKind
	Name       string
	MagicDesk  bool // CRT-only: Magic Desk instead of EasyFlash
	Files      []crtbuild.File
	ManualFree []ramscan.FreeRun
}

// Diagnostics carries the non-fatal observations a conversion surfaced.
type Diagnostics struct {
	StackRisk bool
}

// Result is a completed conversion's output bytes and diagnostics.
type Result struct {
	Image       []byte
	Diagnostics Diagnostics
}

// AllocationFailed is re-exported from restore so callers can type-switch
// on it without importing restore themselves.
type AllocationFailed = restore.ErrAllocationFailed

// Driver is the sole entry point into the conversion pipeline. It holds no
// state between calls; every field Convert touches is local to the call.
type Driver struct{}

// Convert runs the full pipeline against st, making exactly one attempt
// with opts.ManualFree applied. On an AllocationFailed error the caller may
// call Convert again with ranges added to Options.ManualFree; the driver
// does not retry by itself.
func (d Driver) Convert(st *snapshot.State, opts Options) (*Result, error) {
	prog, err := restore.Generate(st, opts.ManualFree)
	if err != nil {
		return nil, err
	}

	var image []byte
	switch opts.Output {
	case PRG:
		image, err = prgbuild.Build(prog)
	case CRT:
		kind := crtbuild.EasyFlash
		if opts.MagicDesk {
			kind = crtbuild.MagicDesk
		}
		image, err = crtbuild.Build(prog, crtbuild.Options{
			Kind:       kind,
			Name:       opts.Name,
			Files:      opts.Files,
			SnapshotSP: st.CPU.SP,
		})
	default:
		return nil, fmt.Errorf("convert: unknown output kind %d", opts.Output)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Image:       image,
		Diagnostics: Diagnostics{StackRisk: prog.Diagnostics.StackRisk},
	}, nil
}
