package convert

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"

	"github.com/vsfrestore/vsfrestore/internal/prgbuild"
	"github.com/vsfrestore/vsfrestore/internal/restore"
	"github.com/vsfrestore/vsfrestore/internal/sim6502"
	"github.com/vsfrestore/vsfrestore/internal/snapshot"
)

// runPRG assembles prog into a PRG the way prgbuild does, stages its loader
// at the address a SYS call would jump to, and runs it to completion on the
// simulator — the same "execute the produced image on real hardware"
// property spec.md's Final-image-equality test names.
func runPRG(t *testing.T, prog *restore.Program) (*sim6502.Processor, *sim6502.RAM) {
	t.Helper()
	if _, err := prgbuild.Build(prog); err != nil {
		t.Fatalf("prgbuild.Build: %v", err)
	}
	var image [65536]byte
	copy(image[0x080D:], prog.Loader)
	ram := sim6502.NewRAM(image)
	p := sim6502.NewProcessor(ram)
	p.JumpTo(0x080D)

	n, err := p.Run(5_000_000)
	if err != nil {
		t.Fatalf("Run after %d instructions: %v\nregisters: %s", n, err, spew.Sdump(p))
	}
	return p, ram
}

// emptyRAMState is spec.md §8 scenario 1: RAM all $00 except the BASIC
// cold-start vectors, a clean high stack pointer, and BASIC's own
// post-READY program counter.
func emptyRAMState() *snapshot.State {
	var st snapshot.State
	st.RAM[0xFFFC], st.RAM[0xFFFD] = 0x00, 0xFC // reset vector, unused by the simulator but part of the captured image
	st.CPU = snapshot.CPU{PC: 0xE5CD, SP: 0xF3, P: 0x20, PortData: 0x37, PortDDR: 0x2F}
	return &st
}

// compressibleRAMState is emptyRAMState plus a repeating, non-zero pattern
// in the middle of the main-RAM region the allocator compresses. An
// all-zero region's backreferences are degenerate: reading either forward
// or backward from the destination lands on another zero, so a reversed
// match direction is invisible. A repeating non-zero pattern is not: the
// bytes a match should copy were just written moments earlier at a lower
// address, and a source pointer walked the wrong way reads stale or
// unrelated bytes instead.
func compressibleRAMState() *snapshot.State {
	st := emptyRAMState()
	pattern := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	for i := 0; i < 256; i++ {
		st.RAM[0x1000+i] = pattern[i%len(pattern)]
	}
	return st
}

// assertRestoredRAMMatches runs prog on the simulator and checks both the
// final register file and every byte of RAM the restore program is
// responsible for against st, the snapshot it was generated from.
func assertRestoredRAMMatches(t *testing.T, st *snapshot.State, prog *restore.Program) {
	t.Helper()
	p, ram := runPRG(t, prog)

	got := ram.Image()
	wantRegs := struct{ A, X, Y, SP, P byte; PC uint16 }{st.CPU.A, st.CPU.X, st.CPU.Y, st.CPU.SP, st.CPU.P, st.CPU.PC}
	gotRegs := struct{ A, X, Y, SP, P byte; PC uint16 }{p.A, p.X, p.Y, p.S, p.P, p.PC}
	if diff := deep.Equal(wantRegs, gotRegs); diff != nil {
		t.Errorf("register mismatch after restore: %v\nfull state: %s", diff, spew.Sdump(p))
	}

	for i := 0x0002; i <= 0xFFEF; i++ {
		if got[i] != st.RAM[i] {
			t.Fatalf("RAM[%#x] = %#x, want %#x (byte-exact restore violated)", i, got[i], st.RAM[i])
		}
	}
	for i := 0xFF00; i <= 0xFFFF; i++ {
		if got[i] != st.RAM[i] {
			t.Fatalf("RAM[%#x] = %#x, want %#x", i, got[i], st.RAM[i])
		}
	}
}

func TestConvertPRGEmptyRAM(t *testing.T) {
	st := emptyRAMState()
	var d Driver
	result, err := d.Convert(st, Options{Output: PRG})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if result.Diagnostics.StackRisk {
		t.Error("StackRisk = true, want false for a clean high stack pointer")
	}

	prog, err := restore.Generate(st, nil)
	if err != nil {
		t.Fatalf("restore.Generate: %v", err)
	}
	assertRestoredRAMMatches(t, st, prog)
}

// TestConvertPRGCompressibleRAM exercises an actual LZSA1 backreference
// through the assembled decompressor, unlike TestConvertPRGEmptyRAM's
// all-zero RAM where a reversed match direction still reads the right
// value by coincidence.
func TestConvertPRGCompressibleRAM(t *testing.T) {
	st := compressibleRAMState()
	var d Driver
	if _, err := d.Convert(st, Options{Output: PRG}); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	prog, err := restore.Generate(st, nil)
	if err != nil {
		t.Fatalf("restore.Generate: %v", err)
	}
	assertRestoredRAMMatches(t, st, prog)
}

// TestConvertPRGHighStack is spec.md §8 scenario 2: a low stack pointer
// forces the final stage's fallback placement and must surface StackRisk
// without failing the conversion.
func TestConvertPRGHighStack(t *testing.T) {
	st := emptyRAMState()
	st.CPU.SP = 0x04
	var d Driver
	result, err := d.Convert(st, Options{Output: PRG})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !result.Diagnostics.StackRisk {
		t.Error("StackRisk = false, want true for SP=$04")
	}
	if len(result.Image) == 0 {
		t.Error("Convert produced an empty image despite StackRisk being non-fatal")
	}
}

func TestConvertCRTMagicDesk(t *testing.T) {
	st := emptyRAMState()
	var d Driver
	result, err := d.Convert(st, Options{Output: CRT, MagicDesk: true, Name: "TEST CART"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(result.Image) < 64 {
		t.Fatalf("CRT image too short: %d bytes", len(result.Image))
	}
	if string(result.Image[0:16]) != "C64 CARTRIDGE   " {
		t.Errorf("CRT signature = %q", result.Image[0:16])
	}
}

func TestConvertUnknownOutputKind(t *testing.T) {
	st := emptyRAMState()
	var d Driver
	if _, err := d.Convert(st, Options{Output: OutputKind(99)}); err == nil {
		t.Error("Convert with an unknown output kind: want error, got nil")
	}
}
