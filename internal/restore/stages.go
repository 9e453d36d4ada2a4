package restore

import (
	"fmt"

	"github.com/vsfrestore/vsfrestore/internal/asm6502"
)

// copyLiteralStmts copies length bytes from src to dst using only
// absolute-indexed addressing — every address here is known at codegen
// time, so no runtime pointer is needed. tag must be unique among calls
// sharing one assembly, to keep generated labels distinct.
func copyLiteralStmts(tag string, src, dst uint16, length int) []asm6502.Stmt {
	var out []asm6502.Stmt
	pos, page := 0, 0
	for length-pos >= 256 {
		lbl := fmt.Sprintf("%s_cp%d", tag, page)
		out = append(out,
			asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
			asm6502.LabelStmt(lbl),
			asm6502.Insn("LDA", asm6502.AbsY, asm6502.Lit(src+uint16(pos))),
			asm6502.Insn("STA", asm6502.AbsY, asm6502.Lit(dst+uint16(pos))),
			asm6502.Insn("INY", asm6502.Implied, asm6502.Operand{}),
			asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(lbl)),
		)
		pos += 256
		page++
	}
	if rem := length - pos; rem > 0 {
		lbl := fmt.Sprintf("%s_cprem", tag)
		out = append(out,
			asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
			asm6502.LabelStmt(lbl),
			asm6502.Insn("LDA", asm6502.AbsY, asm6502.Lit(src+uint16(pos))),
			asm6502.Insn("STA", asm6502.AbsY, asm6502.Lit(dst+uint16(pos))),
			asm6502.Insn("INY", asm6502.Implied, asm6502.Operand{}),
			asm6502.Insn("CPY", asm6502.Imm, asm6502.Lit(uint16(rem))),
			asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(lbl)),
		)
	}
	return out
}

// zeroFillLiteralStmts fills length bytes starting at dst with fill, the
// same way. fill must be the byte value the region's free run originally
// held, or the restored image will not match the captured snapshot there.
func zeroFillLiteralStmts(tag string, dst uint16, length int, fill byte) []asm6502.Stmt {
	out := []asm6502.Stmt{asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(fill)))}
	pos, page := 0, 0
	for length-pos >= 256 {
		lbl := fmt.Sprintf("%s_zf%d", tag, page)
		out = append(out,
			asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
			asm6502.LabelStmt(lbl),
			asm6502.Insn("STA", asm6502.AbsY, asm6502.Lit(dst+uint16(pos))),
			asm6502.Insn("INY", asm6502.Implied, asm6502.Operand{}),
			asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(lbl)),
		)
		pos += 256
		page++
	}
	if rem := length - pos; rem > 0 {
		lbl := fmt.Sprintf("%s_zfrem", tag)
		out = append(out,
			asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
			asm6502.LabelStmt(lbl),
			asm6502.Insn("STA", asm6502.AbsY, asm6502.Lit(dst+uint16(pos))),
			asm6502.Insn("INY", asm6502.Implied, asm6502.Operand{}),
			asm6502.Insn("CPY", asm6502.Imm, asm6502.Lit(uint16(rem))),
			asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(lbl)),
		)
	}
	return out
}

// storeLiteralStmts writes an explicit byte sequence to consecutive
// addresses starting at dst, for small fixed register images where an
// unrolled store is clearer than a loop.
func storeLiteralStmts(dst uint16, data []byte) []asm6502.Stmt {
	var out []asm6502.Stmt
	for i, b := range data {
		out = append(out,
			asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(b))),
			asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(dst+uint16(i))),
		)
	}
	return out
}

// decompressToStmts runs the loader-resident decompressor once against an
// embedded payload (referenced by its label), writing to dst, then
// returns to the caller.
func decompressToStmts(srcLabel string, dst uint16) []asm6502.Stmt {
	return []asm6502.Stmt{
		asm6502.Insn("LDA", asm6502.Imm, asm6502.SymLo(srcLabel)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpStreamLo)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.SymHi(srcLabel)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpStreamHi)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(dst&0xFF)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpDstLo)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(dst>>8)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpDstHi)),
		asm6502.Insn("JSR", asm6502.Abs, asm6502.Sym("loader_decomp")),
	}
}

// block9Stmts builds Stage B9: restore the eight preserve blocks and the
// vector bytes, erase its own preserve-block footprint, restore SP, jump
// to Block 10.
func block9Stmts(p placement, vectors [16]byte) []asm6502.Stmt {
	var out []asm6502.Stmt
	out = append(out, asm6502.OrgStmt(p.block9Addr), asm6502.LabelStmt("block9"))

	dest := uint16(0x0100)
	for i, pb := range p.preserve {
		tag := fmt.Sprintf("b9_restore%d", i)
		out = append(out, copyLiteralStmts(tag, pb.Start, dest, pb.Length)...)
		dest += uint16(pb.Length)
	}

	out = append(out, storeLiteralStmts(0xFFF0, vectors[:])...)

	for i, pb := range p.preserve {
		tag := fmt.Sprintf("b9_erase%d", i)
		out = append(out, zeroFillLiteralStmts(tag, pb.Start, pb.Length, pb.Value)...)
	}

	out = append(out,
		asm6502.Insn("LDX", asm6502.Imm, asm6502.Lit(uint16(p.snapshotSP))),
		asm6502.Insn("TXS", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("JMP", asm6502.Abs, asm6502.Lit(p.block10Addr)),
	)
	return out
}

// block10Stmts builds Stage B10: erase Block 9's footprint, restore the
// eight scratch zero-page bytes and the CPU registers, jump to the final
// stage.
func block10Stmts(p placement, zpHigh [8]byte, a, x, y byte) []asm6502.Stmt {
	var out []asm6502.Stmt
	out = append(out, asm6502.OrgStmt(p.block10Addr), asm6502.LabelStmt("block10"))

	out = append(out, zeroFillLiteralStmts("b10_erase", p.block9Addr, p.block9Len, p.block9Value)...)
	out = append(out, storeLiteralStmts(0x00F8, zpHigh[:])...)

	out = append(out,
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(a))),
		asm6502.Insn("LDX", asm6502.Imm, asm6502.Lit(uint16(x))),
		asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(uint16(y))),
		asm6502.Insn("JMP", asm6502.Abs, asm6502.Lit(p.finalAddr)),
	)
	return out
}

// finalStmts builds Stage F: erase Block 10's footprint, restore the I/O
// port and interrupt-mask registers, start the CIA timers, push an RTI
// frame for the snapshot's P/PC, and return to the restored program.
func finalStmts(p placement, io finalIO, a byte) []asm6502.Stmt {
	var out []asm6502.Stmt
	out = append(out, asm6502.OrgStmt(p.finalAddr), asm6502.LabelStmt("final"))

	out = append(out, zeroFillLiteralStmts("f_erase", p.block10Addr, p.block10Len, p.block10Value)...)

	out = append(out,
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(io.ddr))),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(0x0000)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(io.portData))),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(0x0001)),

		// Drain latched CIA/VIC interrupt flags before the masks below go
		// live, so a pending flag left over from the erasure stages can't
		// fire the instant interrupts are unmasked.
		asm6502.Insn("LDA", asm6502.Abs, asm6502.Lit(0xDC0D)),
		asm6502.Insn("LDA", asm6502.Abs, asm6502.Lit(0xDD0D)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0xFF)),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(0xD019)),

		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(io.vicIRQMask))),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(0xD01A)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(0x80|io.cia1ICR))),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(0xDC0D)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(0x80|io.cia2ICR))),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(0xDD0D)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(io.cia1CRA))),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(0xDC0E)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(io.cia1CRB))),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(0xDC0F)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(io.cia2CRA))),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(0xDD0E)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(io.cia2CRB))),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(0xDD0F)),
	)

	sp1 := 0x0100 + uint16(io.sp)
	sp2 := 0x0100 + uint16(io.sp) - 1
	out = append(out,
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(io.pc>>8))),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(sp1)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(io.pc&0xFF))),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(sp1-1)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(io.p))),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(sp2-1)),
		asm6502.Insn("LDX", asm6502.Imm, asm6502.Lit(uint16(io.sp-3))),
		asm6502.Insn("TXS", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(a))),
		asm6502.Insn("RTI", asm6502.Implied, asm6502.Operand{}),
	)
	return out
}

// finalIO carries every hardware register the final stage must write,
// grouped to keep finalStmts' signature manageable.
type finalIO struct {
	ddr, portData                       byte
	vicIRQMask                          byte
	cia1ICR, cia2ICR                    byte
	cia1CRA, cia1CRB, cia2CRA, cia2CRB  byte
	sp                                  byte
	p                                   byte
	pc                                  uint16
}

// placement bundles the allocator's decisions that stage codegen needs.
type placement struct {
	preserve                    [8]block
	block9Addr, block10Addr     uint16
	block9Len, block10Len       int
	block9Value, block10Value   byte
	finalAddr                   uint16
	snapshotSP                  byte
}

type block struct {
	Start  uint16
	Length int
	Value  byte
}
