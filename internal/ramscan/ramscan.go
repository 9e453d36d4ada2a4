// Package ramscan finds reusable free space inside a C64 RAM image: maximal
// runs of a single repeated byte value that the block allocator may later
// claim for restore-stage code and compressed payloads.
package ramscan

// MinRunLength is the shortest run ramscan will report, grounded on
// find_ram.rs's MIN_SEQUENCE_LEN. Callers never need a different
// threshold, so it is a constant rather than a Scan parameter.
const MinRunLength = 32

// scanStart and scanEnd bound the byte-addressable space the allocator is
// allowed to repurpose: below $0200 is zero page and the hardware stack,
// and $FFF0-$FFFF holds the 6502 vectors.
const (
	scanStart = 0x0200
	scanEnd   = 0xFFEF // inclusive
)

// FreeRun is a maximal run of address where every byte equals Value.
type FreeRun struct {
	Start  uint16
	Length int
	Value  byte
}

// End returns the address one past the run's last byte.
func (f FreeRun) End() uint16 { return f.Start + uint16(f.Length) }

// Scan walks ram[$0200..$FFEF] and returns every maximal same-byte run of
// at least MinRunLength bytes, in ascending address order. It never
// coalesces across a value change, even when the new run is adjacent.
func Scan(ram *[65536]byte) []FreeRun {
	var runs []FreeRun
	pos := scanStart
	for pos <= scanEnd {
		runStart := pos
		value := ram[pos]
		length := 1
		pos++
		for pos <= scanEnd && ram[pos] == value {
			length++
			pos++
		}
		if length >= MinRunLength {
			runs = append(runs, FreeRun{Start: uint16(runStart), Length: length, Value: value})
		}
	}
	return runs
}
