package crtbuild

import (
	"fmt"

	"github.com/vsfrestore/vsfrestore/internal/asm6502"
)

// Boot-time zero-page scratch. The cartridge boot code runs before the
// restore loader it copies into RAM ever executes, so it is free to use
// any zero-page bytes without colliding with the loader's own scratch.
const (
	zpBankSrcLo = 0xF8
	zpBankSrcHi = 0xF9
	zpBankDstLo = 0xFA
	zpBankDstHi = 0xFB
	zpBankNum   = 0xFC
)

var cbm80Sig = []byte{0xC3, 0xC2, 0xCD, 0x38, 0x30}

// buildROMLImage lays out bank 0 of a cartridge ROM with the cold-start and
// NMI vectors, the CBM80 autostart signature, a small boot routine, and the
// restore loader's own bytes, then slices the whole stream into bankSize
// banks (zero-padding the last). The boot routine bank-switches through
// $DE00, copying every byte of the ROML window into RAM at dst one page at
// a time; since the payload is laid out contiguously across banks it never
// needs to special-case a bank boundary beyond detecting it.
func buildROMLImage(loader []byte, dst uint16) [][]byte {
	return buildROMLImageStmts(bootStmts(len(loader), dst), loader)
}

// buildROMLImageMagicDesk is buildROMLImage with the permanent $DE00
// disable spliced in ahead of the jump to the loader.
func buildROMLImageMagicDesk(loader []byte, dst uint16) [][]byte {
	return buildROMLImageStmts(spliceMagicDeskDisable(bootStmts(len(loader), dst)), loader)
}

func buildROMLImageStmts(boot []asm6502.Stmt, loader []byte) [][]byte {
	_, bootCode, err := asm6502.Assemble(append([]asm6502.Stmt{asm6502.OrgStmt(romlBase + 10)}, boot...))
	if err != nil {
		panic("crtbuild: internal error assembling the boot trampoline: " + err.Error())
	}

	stream := make([]byte, 0, 10+len(bootCode)+len(loader))
	stream = append(stream, 0, 0) // cold-start vector, patched below
	stream = append(stream, 0, 0) // NMI vector, patched below
	stream = append(stream, cbm80Sig...)
	stream = append(stream, 0) // pad to romlBase+10, where bootCode is assembled
	stream = append(stream, bootCode...)
	stream = append(stream, loader...)

	bootAddr := uint16(romlBase + 10)
	stream[0], stream[1] = byte(bootAddr&0xFF), byte(bootAddr>>8)
	// The cartridge ROM is never interrupted before the boot routine's own
	// SEI takes effect, so the NMI vector only needs to point somewhere
	// that returns cleanly; reuse the boot entry's first instruction.
	stream[2], stream[3] = byte(bootAddr&0xFF), byte(bootAddr>>8)

	return chunkBanks(stream)
}

// bootStmts copies len(loader) bytes from the ROML window, starting right
// after this very routine, to dst, switching banks at $DE00 whenever the
// source pointer's high byte rolls from $9F to $A0.
func bootStmts(loaderLen int, dst uint16) []asm6502.Stmt {
	pages := (loaderLen + 255) / 256
	var out []asm6502.Stmt
	out = append(out,
		asm6502.LabelStmt("boot"),
		asm6502.Insn("SEI", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("LDX", asm6502.Imm, asm6502.Lit(0xFF)),
		asm6502.Insn("TXS", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(dst&0xFF)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpBankDstLo)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(dst>>8)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpBankDstHi)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.SymLo("boot_data")),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpBankSrcLo)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.SymHi("boot_data")),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpBankSrcHi)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpBankNum)),
	)
	for p := 0; p < pages; p++ {
		lbl := fmt.Sprintf("boot_pg%d", p)
		cont := fmt.Sprintf("boot_cont%d", p)
		out = append(out,
			asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
			asm6502.LabelStmt(lbl),
			asm6502.Insn("LDA", asm6502.IndY, asm6502.Lit(zpBankSrcLo)),
			asm6502.Insn("STA", asm6502.IndY, asm6502.Lit(zpBankDstLo)),
			asm6502.Insn("INY", asm6502.Implied, asm6502.Operand{}),
			asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(lbl)),
			asm6502.Insn("INC", asm6502.ZP, asm6502.Lit(zpBankDstHi)),
			asm6502.Insn("INC", asm6502.ZP, asm6502.Lit(zpBankSrcHi)),
			asm6502.Insn("LDA", asm6502.ZP, asm6502.Lit(zpBankSrcHi)),
			asm6502.Insn("CMP", asm6502.Imm, asm6502.Lit(0xA0)),
			asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(cont)),
			asm6502.Insn("INC", asm6502.ZP, asm6502.Lit(zpBankNum)),
			asm6502.Insn("LDA", asm6502.ZP, asm6502.Lit(zpBankNum)),
			asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(0xDE00)),
			asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0x80)),
			asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpBankSrcHi)),
			asm6502.LabelStmt(cont),
		)
	}
	out = append(out, asm6502.Insn("JMP", asm6502.Abs, asm6502.Lit(dst)))
	out = append(out, asm6502.LabelStmt("boot_data"))
	return out
}

// spliceMagicDeskDisable is spliced into bank 0's boot trampoline by
// buildMagicDesk, right before the final jump to the loader. Magic Desk's
// only disable is permanent: bit 7 of $DE00 kills the cartridge until the
// next reset, unlike EasyFlash's $DE02 which can be toggled back on. Once
// the loader is in RAM there is nothing left for ROML to do, and the
// restored program must see a cartridge-free machine when it resumes, so
// this has to run before bootStmts' JMP rather than after it.
func spliceMagicDeskDisable(boot []asm6502.Stmt) []asm6502.Stmt {
	head := boot[:len(boot)-2]
	tail := boot[len(boot)-2:]
	disable := []asm6502.Stmt{
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0x80)),
		asm6502.Insn("STA", asm6502.Abs, asm6502.Lit(0xDE00)),
	}
	out := append(append([]asm6502.Stmt{}, head...), disable...)
	return append(out, tail...)
}
