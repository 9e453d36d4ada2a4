package restore

import "github.com/vsfrestore/vsfrestore/internal/asm6502"

// Zero-page scratch used by every embedded decompressor copy. Stage L
// restores $0002-$00F7 before any of this code runs, so the decompressor
// is confined to the eight bytes Block 10 restores last, $F8-$FF.
const (
	zpStreamLo = 0xF8
	zpStreamHi = 0xF9
	zpDstLo    = 0xFA
	zpDstHi    = 0xFB
	zpMatchLo  = 0xFC
	zpMatchHi  = 0xFD
	zpCountLo  = 0xFE
	zpCountHi  = 0xFF
)

// decompressorStmts emits one self-contained copy of the LZSA1 decompressor,
// every label prefixed with name so two copies (the loader-resident one and
// the one relocated into page 1) can coexist in a single assembly. On
// reaching the wire format's end-of-stream sentinel it jumps to doneLabel,
// or returns with RTS if doneLabel is empty — the loader-resident copy is
// called once per small payload and returns to its caller; the relocated
// copy runs once, for the main RAM image, and jumps straight to Block 9.
//
// zpStreamLo/Hi and zpDstLo/Hi must already hold the source and
// destination pointers when execution reaches name+"_decomp".
func decompressorStmts(name, doneLabel string) []asm6502.Stmt {
	L := func(suffix string) string { return name + "_" + suffix }
	s := func(ss ...asm6502.Stmt) []asm6502.Stmt { return ss }
	var out []asm6502.Stmt
	app := func(ss []asm6502.Stmt) { out = append(out, ss...) }

	app(s(asm6502.LabelStmt(L("decomp"))))

	// token_loop: read the token byte, decode the literal-run field.
	app(s(
		asm6502.LabelStmt(L("token_loop")),
		asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("LDA", asm6502.IndY, asm6502.Lit(zpStreamLo)),
		asm6502.Insn("JSR", asm6502.Abs, asm6502.Sym(L("inc_stream"))),
		asm6502.Insn("PHA", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("AND", asm6502.Imm, asm6502.Lit(0x70)),
		asm6502.Insn("LSR", asm6502.Accum, asm6502.Operand{}),
		asm6502.Insn("LSR", asm6502.Accum, asm6502.Operand{}),
		asm6502.Insn("LSR", asm6502.Accum, asm6502.Operand{}),
		asm6502.Insn("LSR", asm6502.Accum, asm6502.Operand{}),
		asm6502.Insn("CMP", asm6502.Imm, asm6502.Lit(7)),
		asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(L("lit_direct"))),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(7)),
		asm6502.Insn("JSR", asm6502.Abs, asm6502.Sym(L("get_length"))),
		asm6502.Insn("BCC", asm6502.Rel, asm6502.Sym(L("lit_copy"))),
		asm6502.Insn("JMP", asm6502.Abs, asm6502.Sym(L("eof"))),
		asm6502.LabelStmt(L("lit_direct")),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountLo)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountHi)),
		asm6502.LabelStmt(L("lit_copy")),
		asm6502.Insn("JSR", asm6502.Abs, asm6502.Sym(L("copy_from_stream"))),
	))

	// Literal run consumed; recover the token, decode the offset and the
	// match-length field.
	app(s(
		asm6502.Insn("PLA", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("TAX", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("LDA", asm6502.IndY, asm6502.Lit(zpStreamLo)),
		asm6502.Insn("JSR", asm6502.Abs, asm6502.Sym(L("inc_stream"))),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpMatchLo)),
		asm6502.Insn("TXA", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("AND", asm6502.Imm, asm6502.Lit(0x80)),
		asm6502.Insn("BEQ", asm6502.Rel, asm6502.Sym(L("not_wide"))),
		asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("LDA", asm6502.IndY, asm6502.Lit(zpStreamLo)),
		asm6502.Insn("JSR", asm6502.Abs, asm6502.Sym(L("inc_stream"))),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpMatchHi)),
		asm6502.Insn("JMP", asm6502.Abs, asm6502.Sym(L("offset_done"))),
		asm6502.LabelStmt(L("not_wide")),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0xFF)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpMatchHi)),
		asm6502.LabelStmt(L("offset_done")),
	))

	// matchSrcPtr = dstPtr + offset, overwriting the offset in place. offset
	// is encoded as the two's-complement negative distance, so adding it to
	// dstPtr (not subtracting) is what walks the source pointer backward.
	app(s(
		asm6502.Insn("LDA", asm6502.ZP, asm6502.Lit(zpDstLo)),
		asm6502.Insn("CLC", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("ADC", asm6502.ZP, asm6502.Lit(zpMatchLo)),
		asm6502.Insn("TAY", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("LDA", asm6502.ZP, asm6502.Lit(zpDstHi)),
		asm6502.Insn("ADC", asm6502.ZP, asm6502.Lit(zpMatchHi)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpMatchHi)),
		asm6502.Insn("TYA", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpMatchLo)),
	))

	// Decode the match-length field from the saved token (still in X).
	app(s(
		asm6502.Insn("TXA", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("AND", asm6502.Imm, asm6502.Lit(0x0F)),
		asm6502.Insn("CMP", asm6502.Imm, asm6502.Lit(15)),
		asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(L("match_direct"))),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(18)),
		asm6502.Insn("JSR", asm6502.Abs, asm6502.Sym(L("get_length"))),
		asm6502.Insn("BCC", asm6502.Rel, asm6502.Sym(L("match_copy"))),
		asm6502.Insn("JMP", asm6502.Abs, asm6502.Sym(L("eof"))),
		asm6502.LabelStmt(L("match_direct")),
		asm6502.Insn("CLC", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("ADC", asm6502.Imm, asm6502.Lit(3)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountLo)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountHi)),
		asm6502.LabelStmt(L("match_copy")),
		asm6502.Insn("JSR", asm6502.Abs, asm6502.Sym(L("copy_from_match"))),
		asm6502.Insn("JMP", asm6502.Abs, asm6502.Sym(L("token_loop"))),
	))

	app(s(asm6502.LabelStmt(L("inc_stream"))))
	app(incPtr16(L("inc_stream_done"), zpStreamLo, zpStreamHi))
	app(s(asm6502.Insn("RTS", asm6502.Implied, asm6502.Operand{})))

	app(getLengthStmts(L("get_length")))
	app(copyLoopStmts(L("copy_from_stream"), zpStreamLo, zpStreamHi))
	app(copyLoopStmts(L("copy_from_match"), zpMatchLo, zpMatchHi))

	app(s(asm6502.LabelStmt(L("eof"))))
	if doneLabel == "" {
		app(s(asm6502.Insn("RTS", asm6502.Implied, asm6502.Operand{})))
	} else {
		app(s(asm6502.Insn("JMP", asm6502.Abs, asm6502.Sym(doneLabel))))
	}

	return out
}

// incPtr16 emits "increment the 16-bit pointer at lo/hi", ending at
// doneLabel so callers that inline this can continue past it.
func incPtr16(doneLabel string, lo, hi uint16) []asm6502.Stmt {
	return []asm6502.Stmt{
		asm6502.Insn("INC", asm6502.ZP, asm6502.Lit(lo)),
		asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(doneLabel)),
		asm6502.Insn("INC", asm6502.ZP, asm6502.Lit(hi)),
		asm6502.LabelStmt(doneLabel),
	}
}

// getLengthStmts transcribes the decompressor's get_length routine: on
// entry A holds the escape base (7 or 18). It returns the decoded count in
// zpCountLo/zpCountHi with the carry flag clear, or sets the carry flag to
// report the end-of-stream sentinel.
func getLengthStmts(label string) []asm6502.Stmt {
	L := func(suffix string) string { return label + "_" + suffix }
	return []asm6502.Stmt{
		asm6502.LabelStmt(label),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountLo)),
		asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("LDA", asm6502.IndY, asm6502.Lit(zpStreamLo)),
		asm6502.Insn("JSR", asm6502.Abs, asm6502.Sym(label+"_incstream")),
		asm6502.Insn("CLC", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("ADC", asm6502.ZP, asm6502.Lit(zpCountLo)),
		asm6502.Insn("BCS", asm6502.Rel, asm6502.Sym(L("overflow"))),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountLo)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountHi)),
		asm6502.Insn("CLC", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("RTS", asm6502.Implied, asm6502.Operand{}),

		asm6502.LabelStmt(L("overflow")),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountLo)), // wrapped
		asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("LDA", asm6502.IndY, asm6502.Lit(zpStreamLo)),
		asm6502.Insn("JSR", asm6502.Abs, asm6502.Sym(label+"_incstream")),
		asm6502.Insn("TAX", asm6502.Implied, asm6502.Operand{}), // X = s2
		asm6502.Insn("LDA", asm6502.ZP, asm6502.Lit(zpCountLo)), // A = wrapped
		asm6502.Insn("BEQ", asm6502.Rel, asm6502.Sym(L("wrapped_zero"))),
		asm6502.Insn("CPX", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("BEQ", asm6502.Rel, asm6502.Sym(L("w_s2_zero"))),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountHi)), // wrapped
		asm6502.Insn("TXA", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountLo)), // s2
		asm6502.Insn("CLC", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("RTS", asm6502.Implied, asm6502.Operand{}),

		asm6502.LabelStmt(L("w_s2_zero")),
		asm6502.Insn("SEC", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("SBC", asm6502.Imm, asm6502.Lit(1)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountHi)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountLo)),
		asm6502.Insn("CLC", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("RTS", asm6502.Implied, asm6502.Operand{}),

		asm6502.LabelStmt(L("wrapped_zero")),
		asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("LDA", asm6502.IndY, asm6502.Lit(zpStreamLo)),
		asm6502.Insn("JSR", asm6502.Abs, asm6502.Sym(label+"_incstream")),
		asm6502.Insn("CMP", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("BEQ", asm6502.Rel, asm6502.Sym(L("is_eof"))),
		asm6502.Insn("TAY", asm6502.Implied, asm6502.Operand{}), // Y = s3
		asm6502.Insn("CPX", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("BEQ", asm6502.Rel, asm6502.Sym(L("x_s2_zero"))),
		asm6502.Insn("STY", asm6502.ZP, asm6502.Lit(zpCountHi)), // s3
		asm6502.Insn("TXA", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountLo)), // s2
		asm6502.Insn("CLC", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("RTS", asm6502.Implied, asm6502.Operand{}),

		asm6502.LabelStmt(L("x_s2_zero")),
		asm6502.Insn("TYA", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("SEC", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("SBC", asm6502.Imm, asm6502.Lit(1)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountHi)),
		asm6502.Insn("LDA", asm6502.Imm, asm6502.Lit(0)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpCountLo)),
		asm6502.Insn("CLC", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("RTS", asm6502.Implied, asm6502.Operand{}),

		asm6502.LabelStmt(L("is_eof")),
		asm6502.Insn("SEC", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("RTS", asm6502.Implied, asm6502.Operand{}),

		asm6502.LabelStmt(label + "_incstream"),
		asm6502.Insn("INC", asm6502.ZP, asm6502.Lit(zpStreamLo)),
		asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(label+"_incstream_done")),
		asm6502.Insn("INC", asm6502.ZP, asm6502.Lit(zpStreamHi)),
		asm6502.LabelStmt(label + "_incstream_done"),
		asm6502.Insn("RTS", asm6502.Implied, asm6502.Operand{}),
	}
}

// copyLoopStmts copies zpCountHi*256+zpCountLo bytes from the pointer at
// srcLo/srcHi to zpDstLo/zpDstHi, advancing both pointers by the amount
// copied, then returns.
func copyLoopStmts(label string, srcLo, srcHi uint16) []asm6502.Stmt {
	L := func(suffix string) string { return label + "_" + suffix }
	return []asm6502.Stmt{
		asm6502.LabelStmt(label),
		asm6502.Insn("LDA", asm6502.ZP, asm6502.Lit(zpCountHi)),
		asm6502.Insn("BEQ", asm6502.Rel, asm6502.Sym(L("remainder"))),

		asm6502.LabelStmt(L("page")),
		asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
		asm6502.LabelStmt(L("page_loop")),
		asm6502.Insn("LDA", asm6502.IndY, asm6502.Lit(srcLo)),
		asm6502.Insn("STA", asm6502.IndY, asm6502.Lit(zpDstLo)),
		asm6502.Insn("INY", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(L("page_loop"))),
		asm6502.Insn("INC", asm6502.ZP, asm6502.Lit(srcHi)),
		asm6502.Insn("INC", asm6502.ZP, asm6502.Lit(zpDstHi)),
		asm6502.Insn("DEC", asm6502.ZP, asm6502.Lit(zpCountHi)),
		asm6502.Insn("LDA", asm6502.ZP, asm6502.Lit(zpCountHi)),
		asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(L("page"))),

		asm6502.LabelStmt(L("remainder")),
		asm6502.Insn("LDA", asm6502.ZP, asm6502.Lit(zpCountLo)),
		asm6502.Insn("BEQ", asm6502.Rel, asm6502.Sym(L("done"))),
		asm6502.Insn("LDY", asm6502.Imm, asm6502.Lit(0)),
		asm6502.LabelStmt(L("rem_loop")),
		asm6502.Insn("LDA", asm6502.IndY, asm6502.Lit(srcLo)),
		asm6502.Insn("STA", asm6502.IndY, asm6502.Lit(zpDstLo)),
		asm6502.Insn("INY", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("CPY", asm6502.ZP, asm6502.Lit(zpCountLo)),
		asm6502.Insn("BNE", asm6502.Rel, asm6502.Sym(L("rem_loop"))),
		asm6502.Insn("TYA", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("CLC", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("ADC", asm6502.ZP, asm6502.Lit(srcLo)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(srcLo)),
		asm6502.Insn("BCC", asm6502.Rel, asm6502.Sym(L("adv1"))),
		asm6502.Insn("INC", asm6502.ZP, asm6502.Lit(srcHi)),
		asm6502.LabelStmt(L("adv1")),
		asm6502.Insn("LDA", asm6502.ZP, asm6502.Lit(zpCountLo)),
		asm6502.Insn("CLC", asm6502.Implied, asm6502.Operand{}),
		asm6502.Insn("ADC", asm6502.ZP, asm6502.Lit(zpDstLo)),
		asm6502.Insn("STA", asm6502.ZP, asm6502.Lit(zpDstLo)),
		asm6502.Insn("BCC", asm6502.Rel, asm6502.Sym(L("done"))),
		asm6502.Insn("INC", asm6502.ZP, asm6502.Lit(zpDstHi)),

		asm6502.LabelStmt(L("done")),
		asm6502.Insn("RTS", asm6502.Implied, asm6502.Operand{}),
	}
}
