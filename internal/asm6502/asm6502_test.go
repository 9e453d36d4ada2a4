package asm6502

import (
	"bytes"
	"testing"

	"github.com/go-test/deep"
)

func TestAssembleSimpleProgram(t *testing.T) {
	stmts := []Stmt{
		OrgStmt(0xC000),
		LabelStmt("start"),
		Insn("SEI", Implied, Operand{}),
		Insn("LDX", Imm, Lit(0xFF)),
		Insn("TXS", Implied, Operand{}),
		Insn("LDA", Imm, Lit(0x42)),
		Insn("STA", ZP, Lit(0xFB)),
		Insn("JMP", Abs, Sym("start")),
	}
	origin, code, err := Assemble(stmts)
	if err != nil {
		t.Fatalf("Assemble: unexpected error: %v", err)
	}
	if origin != 0xC000 {
		t.Errorf("origin = %#x, want 0xC000", origin)
	}
	want := []byte{0x78, 0xA2, 0xFF, 0x9A, 0xA9, 0x42, 0x85, 0xFB, 0x4C, 0x00, 0xC0}
	if diff := deep.Equal(code, want); diff != nil {
		t.Errorf("code mismatch: %v\ngot:  %x\nwant: %x", diff, code, want)
	}
}

func TestAssembleBackwardBranch(t *testing.T) {
	stmts := []Stmt{
		OrgStmt(0x0100),
		LabelStmt("loop"),
		Insn("DEX", Implied, Operand{}),
		Insn("BNE", Rel, Sym("loop")),
		Insn("RTS", Implied, Operand{}),
	}
	_, code, err := Assemble(stmts)
	if err != nil {
		t.Fatalf("Assemble: unexpected error: %v", err)
	}
	// DEX(1) BNE(2) RTS(1); branch target is loop (pc 0x0100), displacement
	// is measured from the byte after the branch operand (pc 0x0103).
	disp := int8(0x0100 - 0x0103)
	want := []byte{0xCA, 0xD0, byte(disp), 0x60}
	if !bytes.Equal(code, want) {
		t.Errorf("code = %x, want %x", code, want)
	}
}

func TestAssembleForwardBranch(t *testing.T) {
	stmts := []Stmt{
		OrgStmt(0x0200),
		Insn("BEQ", Rel, Sym("skip")),
		Insn("LDA", Imm, Lit(0x00)),
		LabelStmt("skip"),
		Insn("RTS", Implied, Operand{}),
	}
	_, code, err := Assemble(stmts)
	if err != nil {
		t.Fatalf("Assemble: unexpected error: %v", err)
	}
	want := []byte{0xF0, 0x02, 0xA9, 0x00, 0x60}
	if !bytes.Equal(code, want) {
		t.Errorf("code = %x, want %x", code, want)
	}
}

func TestAssembleWordStmtWithLabel(t *testing.T) {
	stmts := []Stmt{
		OrgStmt(0x0300),
		LabelStmt("vector"),
		Insn("RTS", Implied, Operand{}),
		WordStmt(Sym("vector"), Lit(0xBEEF)),
	}
	_, code, err := Assemble(stmts)
	if err != nil {
		t.Fatalf("Assemble: unexpected error: %v", err)
	}
	want := []byte{0x60, 0x00, 0x03, 0xEF, 0xBE}
	if !bytes.Equal(code, want) {
		t.Errorf("code = %x, want %x", code, want)
	}
}

func TestAssembleUnresolvedLabelFails(t *testing.T) {
	stmts := []Stmt{
		OrgStmt(0x0400),
		Insn("JMP", Abs, Sym("nowhere")),
	}
	_, _, err := Assemble(stmts)
	ae, ok := err.(ErrAsmError)
	if !ok {
		t.Fatalf("Assemble: got error %v (%T), want ErrAsmError", err, err)
	}
	if ae.Symbol != "nowhere" {
		t.Errorf("ErrAsmError.Symbol = %q, want %q", ae.Symbol, "nowhere")
	}
}

func TestAssembleOutOfRangeBranchFails(t *testing.T) {
	stmts := []Stmt{OrgStmt(0x0500), Insn("BEQ", Rel, Sym("far"))}
	for i := 0; i < 200; i++ {
		stmts = append(stmts, Insn("NOP", Implied, Operand{}))
	}
	stmts = append(stmts, LabelStmt("far"), Insn("RTS", Implied, Operand{}))

	_, _, err := Assemble(stmts)
	ae, ok := err.(ErrAsmError)
	if !ok {
		t.Fatalf("Assemble: got error %v (%T), want ErrAsmError", err, err)
	}
	if ae.Symbol != "BEQ" {
		t.Errorf("ErrAsmError.Symbol = %q, want BEQ", ae.Symbol)
	}
}

func TestAssembleUnknownMnemonicFails(t *testing.T) {
	stmts := []Stmt{OrgStmt(0x0600), Insn("FROB", Implied, Operand{})}
	_, _, err := Assemble(stmts)
	if _, ok := err.(ErrAsmError); !ok {
		t.Fatalf("Assemble: got error %v (%T), want ErrAsmError", err, err)
	}
}

func TestAssembleDuplicateLabelFails(t *testing.T) {
	stmts := []Stmt{
		OrgStmt(0x0700),
		LabelStmt("x"),
		Insn("NOP", Implied, Operand{}),
		LabelStmt("x"),
		Insn("RTS", Implied, Operand{}),
	}
	_, _, err := Assemble(stmts)
	if _, ok := err.(ErrAsmError); !ok {
		t.Fatalf("Assemble: got error %v (%T), want ErrAsmError", err, err)
	}
}

func TestAssembleDeterministic(t *testing.T) {
	stmts := []Stmt{
		OrgStmt(0x0800),
		LabelStmt("top"),
		Insn("LDA", ZP, Lit(0xFE)),
		Insn("BEQ", Rel, Sym("top")),
		Insn("RTS", Implied, Operand{}),
	}
	_, a, err := Assemble(stmts)
	if err != nil {
		t.Fatalf("Assemble: unexpected error: %v", err)
	}
	_, b, err := Assemble(stmts)
	if err != nil {
		t.Fatalf("Assemble: unexpected error: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("Assemble is not deterministic across repeated calls on the same input")
	}
}
