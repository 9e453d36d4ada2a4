package sim6502

// RAM is a flat, unbanked 64 KiB address space: every read and write goes
// straight to the backing array, with no shadowing or I/O side effects.
// That is exactly what a restore program expects of its own machine by the
// time it runs, so tests can seed one from a snapshot's RAM image directly.
type RAM struct {
	mem [65536]byte
}

// NewRAM returns a RAM seeded with image's contents.
func NewRAM(image [65536]byte) *RAM {
	return &RAM{mem: image}
}

func (r *RAM) Read(addr uint16) uint8 { return r.mem[addr] }

func (r *RAM) Write(addr uint16, val uint8) { r.mem[addr] = val }

func (r *RAM) PowerOn() {
	for i := range r.mem {
		r.mem[i] = 0
	}
}

// Image returns a value copy of the current 64 KiB contents, the same
// shape snapshot.State.RAM uses, so a test can diff post-run memory
// directly against a captured machine state.
func (r *RAM) Image() [65536]byte { return r.mem }
