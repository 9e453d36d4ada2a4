package ramscan

import "testing"

func TestScanFindsSequences(t *testing.T) {
	var ram [65536]byte
	for i := range ram {
		ram[i] = byte(i) // no two neighbours equal: no runs of its own
	}
	for i := 0x0300; i < 0x0300+64; i++ {
		ram[i] = 0xAA
	}
	for i := 0x1000; i < 0x1000+32; i++ {
		ram[i] = 0x00
	}
	runs := Scan(&ram)

	var found64, found32 bool
	for _, r := range runs {
		if r.Start == 0x0300 && r.Length == 64 && r.Value == 0xAA {
			found64 = true
		}
		if r.Start == 0x1000 && r.Length == 32 && r.Value == 0x00 {
			found32 = true
		}
	}
	if !found64 {
		t.Error("missing expected 64-byte 0xAA run at $0300")
	}
	if !found32 {
		t.Error("missing expected 32-byte 0x00 run at $1000")
	}
}

func TestScanIgnoresAreaBelow0x200(t *testing.T) {
	var ram [65536]byte
	for i := range ram {
		ram[i] = 0x00
	}
	runs := Scan(&ram)
	if len(runs) != 1 {
		t.Fatalf("Scan: got %d runs, want 1 (the whole $0200-$FFEF span)", len(runs))
	}
	if runs[0].Start != 0x0200 {
		t.Errorf("run start = %#x, want 0x0200 (nothing from below $0200)", runs[0].Start)
	}
	if runs[0].End() != 0xFFF0 {
		t.Errorf("run end = %#x, want 0xFFF0 (nothing from $FFF0 up)", runs[0].End())
	}
}

func TestScanDropsRunsShorterThanMinimum(t *testing.T) {
	var ram [65536]byte
	for i := range ram {
		ram[i] = byte(i) // no two adjacent bytes equal, so no run anywhere
	}
	for i := 0x2000; i < 0x2000+MinRunLength-1; i++ {
		ram[i] = 0x55
	}
	runs := Scan(&ram)
	for _, r := range runs {
		if r.Start == 0x2000 {
			t.Fatalf("Scan: reported a %d-byte run below MinRunLength (%d)", r.Length, MinRunLength)
		}
	}
}

func TestScanDoesNotCoalesceAcrossValueChange(t *testing.T) {
	var ram [65536]byte
	for i := 0x3000; i < 0x3000+40; i++ {
		ram[i] = 0x11
	}
	for i := 0x3000 + 40; i < 0x3000+80; i++ {
		ram[i] = 0x22
	}
	runs := Scan(&ram)
	var a, b bool
	for _, r := range runs {
		if r.Start == 0x3000 && r.Length == 40 && r.Value == 0x11 {
			a = true
		}
		if r.Start == 0x3000+40 && r.Length == 40 && r.Value == 0x22 {
			b = true
		}
	}
	if !a || !b {
		t.Error("Scan coalesced two adjacent runs of different values, or missed one")
	}
}

func TestScanOrderingIsAscending(t *testing.T) {
	var ram [65536]byte
	for i := 0x5000; i < 0x5000+40; i++ {
		ram[i] = 0x01
	}
	for i := 0x2000; i < 0x2000+40; i++ {
		ram[i] = 0x02
	}
	runs := Scan(&ram)
	for i := 1; i < len(runs); i++ {
		if runs[i].Start < runs[i-1].Start {
			t.Fatalf("runs not in ascending order: %#x before %#x", runs[i-1].Start, runs[i].Start)
		}
	}
}
