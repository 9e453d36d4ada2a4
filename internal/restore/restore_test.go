package restore

import (
	"testing"

	"github.com/vsfrestore/vsfrestore/internal/lzsa1"
	"github.com/vsfrestore/vsfrestore/internal/ramscan"
	"github.com/vsfrestore/vsfrestore/internal/snapshot"
)

// fakeState builds a State with enough variety in RAM to give the
// allocator two distinct free runs (a single stray byte splits one big
// run of $00 into two, both still well over MinRunLength) and some
// recognizable non-free content for the preserve blocks to round-trip.
func fakeState() *snapshot.State {
	var st snapshot.State
	st.RAM[0x8000] = 0x01 // splits the $0200-$FFEF run of zeros in two
	for i := 0; i < 256; i++ {
		st.RAM[0x0100+i] = byte(i) // distinctive page-1 content
	}
	st.CPU = snapshot.CPU{A: 0x11, X: 0x22, Y: 0x33, SP: 0xF0, PC: 0xC000, P: 0x20}
	st.CIA1 = snapshot.CIA{ORA: 0x7F, DDRA: 0xFF, IER: 0x82, CRA: 0x11, CRB: 0x08}
	st.CIA2 = snapshot.CIA{ORA: 0x3F, DDRA: 0x3F, IER: 0x01, CRA: 0x11, CRB: 0x08}
	return &st
}

func TestGenerateProducesDisjointStages(t *testing.T) {
	st := fakeState()
	prog, err := Generate(st, nil)
	if err != nil {
		t.Fatalf("Generate: unexpected error: %v", err)
	}

	if len(prog.Loader) == 0 || len(prog.Block9) == 0 || len(prog.Block10) == 0 || len(prog.Final) == 0 {
		t.Fatalf("Generate produced an empty stage: loader=%d block9=%d block10=%d final=%d",
			len(prog.Loader), len(prog.Block9), len(prog.Block10), len(prog.Final))
	}

	if prog.Block9Addr == prog.Block10Addr {
		t.Errorf("Block9Addr and Block10Addr coincide: %#x", prog.Block9Addr)
	}
	type span struct{ start, end uint16 }
	spans := []span{
		{prog.Block9Addr, prog.Block9Addr + uint16(len(prog.Block9))},
		{prog.Block10Addr, prog.Block10Addr + uint16(len(prog.Block10))},
	}
	if spans[0].start < spans[1].end && spans[1].start < spans[0].end {
		t.Errorf("Block9 %+v and Block10 %+v overlap", spans[0], spans[1])
	}

	if prog.FinalAddr < 0x0100 || prog.FinalAddr+uint16(len(prog.Final)) > 0x0200 {
		t.Errorf("FinalAddr+len = %#x, want a span inside page 1", prog.FinalAddr+uint16(len(prog.Final)))
	}
}

// TestMainPayloadRoundTrips decompresses Generate's main-RAM payload and
// checks that the patched regions (preserve-block originals, Block 9's and
// Block 10's own code) land at the addresses the stages themselves expect
// to find them at.
func TestMainPayloadRoundTrips(t *testing.T) {
	st := fakeState()
	prog, err := Generate(st, nil)
	if err != nil {
		t.Fatalf("Generate: unexpected error: %v", err)
	}

	decompressed, err := lzsa1.Decompress(prog.MainPayload)
	if err != nil {
		t.Fatalf("lzsa1.Decompress(MainPayload): %v", err)
	}
	if len(decompressed) != 0xFFF0-0x0200 {
		t.Fatalf("decompressed length = %d, want %d", len(decompressed), 0xFFF0-0x0200)
	}

	b9 := decompressed[prog.Block9Addr-0x0200 : prog.Block9Addr-0x0200+uint16(len(prog.Block9))]
	if string(b9) != string(prog.Block9) {
		t.Errorf("decompressed region at Block9Addr does not match Block9's assembled code")
	}
	b10 := decompressed[prog.Block10Addr-0x0200 : prog.Block10Addr-0x0200+uint16(len(prog.Block10))]
	if string(b10) != string(prog.Block10) {
		t.Errorf("decompressed region at Block10Addr does not match Block10's assembled code")
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	st := fakeState()
	p1, err := Generate(st, nil)
	if err != nil {
		t.Fatalf("Generate: unexpected error: %v", err)
	}
	p2, err := Generate(st, nil)
	if err != nil {
		t.Fatalf("Generate: unexpected error: %v", err)
	}
	if p1.Block9Addr != p2.Block9Addr || p1.Block10Addr != p2.Block10Addr || p1.FinalAddr != p2.FinalAddr {
		t.Error("Generate placed stages differently across repeated calls on the same input")
	}
	if string(p1.Loader) != string(p2.Loader) {
		t.Error("Generate produced different loader bytes across repeated calls on the same input")
	}
}

func TestGenerateHonorsManualFree(t *testing.T) {
	st := fakeState()
	// Leave no naturally free run at all (fill $0200-$FFEF with varying
	// bytes, none repeated 32 times running), then hand the allocator one
	// manual-free range big enough for everything.
	for i := 0x0200; i <= 0xFFEF; i++ {
		st.RAM[i] = byte(i) // no run of any one value reaches MinRunLength
	}
	_, err := Generate(st, []ramscan.FreeRun{{Start: 0x2000, Length: 4000}, {Start: 0x8000, Length: 4000}})
	if err != nil {
		t.Fatalf("Generate with manual-free ranges: unexpected error: %v", err)
	}
}
