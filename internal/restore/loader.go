package restore

import (
	"fmt"

	"github.com/vsfrestore/vsfrestore/internal/asm6502"
	"github.com/vsfrestore/vsfrestore/internal/snapshot"
)

// buildLoaderStmts builds Stage L: it runs from ROM-visible memory with the
// KERNAL and BASIC still banked in, decompresses every small captured
// region directly into place, writes the CIA register images it can write
// safely this early, switches to an all-RAM map, then hands off to a copy
// of the decompressor relocated into page 1 to unpack the bulk of RAM and
// jump to Block 9.
//
// The relocated copy's own machine code is assembled separately with its
// final origin ($0100) baked in, then embedded here as data — its internal
// JSR/JMP targets would be wrong if it ran from wherever it happens to sit
// inside Stage L's own footprint.
func buildLoaderStmts(st *snapshot.State, p placement, payloads loaderPayloads) []asm6502.Stmt {
	relocCode := assembleReloc(p)

	var out []asm6502.Stmt
	out = append(out, asm6502.OrgStmt(loaderOrigin), asm6502.LabelStmt("loader"))

	// Step 1: enable I/O, KERNAL and BASIC still banked in for the
	// decompression calls below to run from ROM-visible memory.
	out = append(out,
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0x37)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(0x0001)),
	)

	// Steps 2-4: Color RAM, VIC-II, SID, each by reference to an embedded
	// payload decompressed directly into its hardware target.
	out = append(out, decompressToStmts("color_payload", 0xD800)...)
	out = append(out, decompressToStmts("vic_payload", 0xD000)...)
	out = append(out, decompressToStmts("sid_payload", 0xD400)...)

	// Step 5: CIA register images, Control Register A/B held back for the
	// final stage so the timers don't start running this early.
	out = append(out, ciaStmts(0xDC00, st.CIA1)...)
	out = append(out, ciaStmts(0xDD00, st.CIA2)...)

	// Step 6: zero page, $0002-$00F7 only — $F8-$FF stay live as the
	// decompressor's own scratch until Block 10 restores them.
	out = append(out, decompressToStmts("zp_payload", 0x0002)...)

	// Step 7: drop to an all-RAM map. Every absolute address the rest of
	// this stage touches is RAM, so the switch can happen before the final
	// stage's code bytes are copied into place.
	out = append(out,
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0x34)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(0x0001)),
	)

	// Step 8: stage the main-RAM payload and the relocated decompressor
	// somewhere safe, and the final stage's own code directly at its
	// allocated address — page 1, outside the main decompression's
	// $0200-$FFEF target, so it survives the run in step 9 untouched.
	out = append(out, copyFromLabelStmts("ld_payload", "main_payload", payloads.mainRAMDst, len(payloads.mainRAM))...)
	out = append(out, copyFromLabelStmts("ld_final", "final_code", p.finalAddr, len(payloads.finalCode))...)
	out = append(out, copyFromLabelStmts("ld_reloc", "reloc_blob", 0x0100, len(relocCode))...)

	// Step 9: point the relocated decompressor at the staged payload and
	// $0200, then jump into page 1. It never returns here — on end of
	// stream it jumps straight to Block 9.
	out = append(out,
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(payloads.mainRAMDst&0xFF)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpStreamLo)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(payloads.mainRAMDst>>8)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpStreamHi)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0x0200&0xFF)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpDstLo)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0x0200>>8)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpDstHi)),
		asm6502.Insn("JMP", asm6502.Abs, asm6502.Lit(0x0100)),
	)

	// The loader-resident decompressor, used by the four decompressToStmts
	// calls above via JSR loader_decomp / RTS. decompressorStmts defines
	// the loader_decomp label itself, as the first statement it emits.
	out = append(out, decompressorStmts("loader", "")...)

	// Embedded payload blobs, one label each, referenced by name from
	// decompressToStmts and the copyFromLabelStmts calls above.
	out = append(out, asm6502.LabelStmt("color_payload"), asm6502.ByteStmt(payloads.color...))
	out = append(out, asm6502.LabelStmt("vic_payload"), asm6502.ByteStmt(payloads.vic...))
	out = append(out, asm6502.LabelStmt("sid_payload"), asm6502.ByteStmt(payloads.sid...))
	out = append(out, asm6502.LabelStmt("zp_payload"), asm6502.ByteStmt(payloads.zp...))
	out = append(out, asm6502.LabelStmt("main_payload"), asm6502.ByteStmt(payloads.mainRAM...))
	out = append(out, asm6502.LabelStmt("final_code"), asm6502.ByteStmt(payloads.finalCode...))
	out = append(out, asm6502.LabelStmt("reloc_blob"), asm6502.ByteStmt(relocCode...))

	return out
}

// assembleReloc assembles a second copy of the decompressor at the fixed
// origin it will run from once copied there, page 1, so the copy's own
// internal branch and call targets are correct the moment it starts
// executing — they cannot be fixed up after the copy, since this program
// never runs anything but a plain byte-for-byte move to get it there.
func assembleReloc(p placement) []byte {
	var stmts []asm6502.Stmt
	stmts = append(stmts, asm6502.OrgStmt(0x0100))
	stmts = append(stmts, decompressorStmts("reloc", "reloc_done")...)
	stmts = append(stmts,
		asm6502.LabelStmt("reloc_done"),
		asm6502.Insn("JMP", asm6502.Abs, asm6502.Lit(p.block9Addr)),
	)
	_, code, err := asm6502.Assemble(stmts)
	if err != nil {
		panic("restore: internal error assembling the relocated decompressor: " + err.Error())
	}
	return code
}

// copyFromLabelStmts copies length bytes from srcLabel, an embedded blob
// resolved at assemble time, to the literal address dst. It reuses
// zpMatchLo/Hi as a scratch source pointer — safe here because this code
// runs entirely before Stage L hands off to the decompressor that claims
// those bytes as live state.
func copyFromLabelStmts(tag, srcLabel string, dst uint16, length int) []asm6502.Stmt {
	out := []asm6502.Stmt{
		asm6502.Insn("LDA", asm6502.Imm, asm6502.SymLo(srcLabel)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpMatchLo)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.SymHi(srcLabel)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpMatchHi)),
	}
	pos, page := 0, 0
	for length-pos >= 256 {
		lbl := fmt.Sprintf("%s_cp%d", tag, page)
		out = append(out,
			asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
			asm6502.LabelStmt(lbl),
			asm6502.Insn("LDA", asm6502.IndY, asm6502.Lit(zpMatchLo)),
			asm6502.Insn("STA", asm6502.AbsY, asm6502.Lit(dst+uint16(pos))),
			asm6502.Insn("INY", asm6502.Implied, asm6502.Operand{}),
			asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(lbl)),
			asm6502.Insn("INC", asm6502.ZP, asm6502.Lit(zpMatchHi)),
		)
		pos += 256
		page++
	}
	if rem := length - pos; rem > 0 {
		lbl := fmt.Sprintf("%s_cprem", tag)
		out = append(out,
			asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
			asm6502.LabelStmt(lbl),
			asm6502.Insn("LDA", asm6502.IndY, asm6502.Lit(zpMatchLo)),
			asm6502.Insn("STA", asm6502.AbsY, asm6502.Lit(dst+uint16(pos))),
			asm6502.Insn("INY", asm6502.Implied, asm6502.Operand{}),
			asm6502.Insn("CPY", asm6502.Imm, asm6502.Lit(uint16(rem))),
			asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(lbl)),
		)
	}
	return out
}

// ciaStmts writes one CIA's data direction, data port, timer latch, and
// time-of-day registers, plus its interrupt mask via the standard
// clear-then-set sequence, but leaves Control Register A/B alone — the
// final stage writes those last, immediately before RTI, so the timers
// don't start running until the restored program is about to resume.
func ciaStmts(base uint16, c snapshot.CIA) []asm6502.Stmt {
	data := []byte{
		c.DDRA, c.DDRB,
		byte(c.TAL & 0xFF), byte(c.TAL >> 8),
		byte(c.TBL & 0xFF), byte(c.TBL >> 8),
		c.TODTenths, c.TODSec, c.TODMin, c.TODHour,
		c.ORA, c.ORB,
	}
	addrs := []uint16{
		base + 0x02, base + 0x03,
		base + 0x04, base + 0x05,
		base + 0x06, base + 0x07,
		base + 0x08, base + 0x09, base + 0x0A, base + 0x0B,
		base + 0x00, base + 0x01,
	}
	var out []asm6502.Stmt
	for i, b := range data {
		out = append(out,
			asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(b))),
			asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(addrs[i])),
		)
	}
	out = append(out,
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0x7F)),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(base+0x0D)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(uint16(0x80|c.IER))),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(base+0x0D)),
	)
	return out
}
