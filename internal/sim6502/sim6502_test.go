package sim6502

import (
	"testing"

	"github.com/vsfrestore/vsfrestore/internal/asm6502"
)

func assemble(t *testing.T, org uint16, stmts ...asm6502.Stmt) []byte {
	t.Helper()
	_, code, err := asm6502.Assemble(append([]asm6502.Stmt{asm6502.OrgStmt(org)}, stmts...))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return code
}

func newProcAt(t *testing.T, org uint16, code []byte) (*Processor, *RAM) {
	t.Helper()
	var image [65536]byte
	copy(image[org:], code)
	ram := NewRAM(image)
	p := NewProcessor(ram)
	p.JumpTo(org)
	return p, ram
}

func TestLoadStoreAndIncrement(t *testing.T) {
	code := assemble(t, 0xC000,
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0x42)),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(0x0300)),
		asm6502.Insn("INC", asm6502.Abs, asm6502.Lit(0x0300)),
		asm6502.Insn("LDX", asm6502.Abs, asm6502.Lit(0x0300)),
	)
	p, ram := newProcAt(t, 0xC000, code)
	for i := 0; i < 4; i++ {
		if _, err := p.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if got := ram.Read(0x0300); got != 0x43 {
		t.Errorf("RAM[0x0300] = %#x, want 0x43", got)
	}
	if p.X != 0x43 {
		t.Errorf("X = %#x, want 0x43", p.X)
	}
}

func TestBranchNotTaken(t *testing.T) {
	code := assemble(t, 0xC000,
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0x01)),
		asm6502.Insn("BEQ", asm6502.Rel, asm6502.Sym("skip")),
		asm6502.Insn("LDX", asm6502.Imm, asm6502.Lit(0x99)),
		asm6502.LabelStmt("skip"),
		asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0x55)),
	)
	p, _ := newProcAt(t, 0xC000, code)
	for i := 0; i < 4; i++ {
		if _, err := p.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if p.X != 0x99 || p.Y != 0x55 {
		t.Errorf("X/Y = %#x/%#x, want 0x99/0x55 (branch should not have been taken)", p.X, p.Y)
	}
}

func TestBranchTakenSkipsInstruction(t *testing.T) {
	code := assemble(t, 0xC000,
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0x00)),
		asm6502.Insn("BEQ", asm6502.Rel, asm6502.Sym("skip")),
		asm6502.Insn("LDX", asm6502.Imm, asm6502.Lit(0x99)),
		asm6502.LabelStmt("skip"),
		asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0x55)),
	)
	p, _ := newProcAt(t, 0xC000, code)
	for i := 0; i < 3; i++ {
		if _, err := p.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if p.X != 0 {
		t.Errorf("X = %#x, want 0 (LDX should have been skipped)", p.X)
	}
	if p.Y != 0x55 {
		t.Errorf("Y = %#x, want 0x55", p.Y)
	}
}

func TestJSRAndRTS(t *testing.T) {
	code := assemble(t, 0xC000,
		asm6502.Insn("JSR", asm6502.Abs, asm6502.Sym("sub")),
		asm6502.Insn("LDX", asm6502.Imm, asm6502.Lit(0x77)),
		asm6502.LabelStmt("sub"),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0x11)),
		asm6502.Insn("RTS", asm6502.Implied, asm6502.Operand{}),
	)
	p, _ := newProcAt(t, 0xC000, code)
	p.S = 0xFD
	for i := 0; i < 4; i++ {
		if _, err := p.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if p.A != 0x11 {
		t.Errorf("A = %#x, want 0x11", p.A)
	}
	if p.X != 0x77 {
		t.Errorf("X = %#x, want 0x77 (RTS should return to the caller)", p.X)
	}
}

func TestRunStopsAtRTI(t *testing.T) {
	code := assemble(t, 0x080D,
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0x05)),
		asm6502.Insn("LDX", asm6502.Imm, asm6502.Lit(0x06)),
		asm6502.Insn("RTI", asm6502.Implied, asm6502.Operand{}),
	)
	p, ram := newProcAt(t, 0x080D, code)
	// Fake interrupt frame the RTI will pop: P, then PC low, then PC high,
	// each one slot higher than the last since pop increments S before
	// reading.
	ram.Write(0x01FD, 0x34) // P (arbitrary, not asserted)
	ram.Write(0x01FE, 0x34) // PC low
	ram.Write(0x01FF, 0xEA) // PC high
	p.S = 0xFC

	n, err := p.Run(100)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 3 {
		t.Errorf("instruction count = %d, want 3", n)
	}
	if p.A != 0x05 || p.X != 0x06 {
		t.Errorf("A/X = %#x/%#x, want 0x05/0x06", p.A, p.X)
	}
	if p.PC != 0xEA34 {
		t.Errorf("PC after RTI = %#x, want 0xEA34", p.PC)
	}
}

func TestRunawayWithoutRTI(t *testing.T) {
	code := assemble(t, 0xC000, asm6502.Insn("NOP", asm6502.Implied, asm6502.Operand{}))
	var image [65536]byte
	copy(image[0xC000:], code)
	for i := 0xC001; i < 0x10000; i++ {
		image[i] = 0xEA // NOP forever, never reaches an RTI
	}
	ram := NewRAM(image)
	p := NewProcessor(ram)
	p.JumpTo(0xC000)

	if _, err := p.Run(10); err == nil {
		t.Fatal("Run: want ErrRunaway, got nil")
	}
}

func TestUnimplementedOpcodeHalts(t *testing.T) {
	var image [65536]byte
	image[0xC000] = 0x02 // not in the legal NMOS set this package models
	ram := NewRAM(image)
	p := NewProcessor(ram)
	p.JumpTo(0xC000)

	if _, err := p.Step(); err == nil {
		t.Fatal("Step: want UnimplementedOpcode, got nil")
	}
	if _, err := p.Step(); err == nil {
		t.Fatal("Step after halt: want HaltOpcode, got nil")
	}
}

func TestIndirectYAddressing(t *testing.T) {
	code := assemble(t, 0xC000,
		asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0x05)),
		asm6502.Insn("LDA", asm6502.IndY, asm6502.Lit(0x80)),
	)
	var image [65536]byte
	copy(image[0xC000:], code)
	image[0x0080] = 0x00
	image[0x0081] = 0x03 // pointer -> $0300
	image[0x0305] = 0x99 // $0300 + Y(5)
	ram := NewRAM(image)
	p := NewProcessor(ram)
	p.JumpTo(0xC000)

	for i := 0; i < 2; i++ {
		if _, err := p.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if p.A != 0x99 {
		t.Errorf("A = %#x, want 0x99", p.A)
	}
}

func TestCompareSetsCarryAndZero(t *testing.T) {
	code := assemble(t, 0xC000,
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0x10)),
		asm6502.Insn("CMP", asm6502.Imm, asm6502.Lit(0x10)),
	)
	p, _ := newProcAt(t, 0xC000, code)
	for i := 0; i < 2; i++ {
		if _, err := p.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
	if p.P&PCarry == 0 {
		t.Error("carry flag clear, want set (A >= operand)")
	}
	if p.P&PZero == 0 {
		t.Error("zero flag clear, want set (A == operand)")
	}
}
