// Package asm6502 is a small symbolic two-pass assembler over a statement
// list built programmatically rather than parsed from text. The restore
// codegen package is its only caller: it constructs a []Stmt describing one
// stage's machine code, possibly assembling it twice when the stage's own
// size feeds back into block allocation.
package asm6502

import "fmt"

// AddrMode names one of the 6502's addressing-mode encodings. Every
// mnemonic+AddrMode pair this package knows about has a fixed, unambiguous
// instruction width — the 6502 has no variable-length encodings, so unlike
// a text assembler this package never has to guess a size twice.
type AddrMode int

const (
	Implied AddrMode = iota
	Accum
	Imm
	ZP
	ZPX
	ZPY
	Abs
	AbsX
	AbsY
	IndX
	IndY
	Ind
	Rel
)

// byteSel picks out one byte of a resolved 16-bit operand, for the
// standard 6502 idiom of loading a label's address into a zero-page
// pointer one byte at a time.
type byteSel int

const (
	selNone byteSel = iota
	selLo
	selHi
)

// Operand is either a literal 16-bit value or a forward/backward reference
// to a label resolved during pass 1, optionally narrowed to that label's
// low or high byte.
type Operand struct {
	Symbol string
	Value  uint16
	sel    byteSel
}

// Lit builds a literal operand.
func Lit(v uint16) Operand { return Operand{Value: v} }

// Sym builds a label-reference operand.
func Sym(name string) Operand { return Operand{Symbol: name} }

// SymLo builds an operand for the low byte of name's resolved address —
// the 6502 idiom `LDA #<label`.
func SymLo(name string) Operand { return Operand{Symbol: name, sel: selLo} }

// SymHi builds an operand for the high byte of name's resolved address —
// the 6502 idiom `LDA #>label`.
func SymHi(name string) Operand { return Operand{Symbol: name, sel: selHi} }

type stmtKind int

const (
	kindLabel stmtKind = iota
	kindByte
	kindWord
	kindOrg
	kindInsn
)

// Stmt is one entry in the synthetic instruction list. Build it with the
// constructor functions (LabelStmt, ByteStmt, WordStmt, OrgStmt, Insn)
// rather than populating the struct directly.
type Stmt struct {
	kind     stmtKind
	label    string
	data     []byte
	words    []Operand
	org      uint16
	mnemonic string
	mode     AddrMode
	operand  Operand
}

// LabelStmt defines name at the address the next statement will occupy.
func LabelStmt(name string) Stmt { return Stmt{kind: kindLabel, label: name} }

// ByteStmt emits raw bytes verbatim.
func ByteStmt(data ...byte) Stmt { return Stmt{kind: kindByte, data: data} }

// WordStmt emits each operand as a 16-bit little-endian value.
func WordStmt(ops ...Operand) Stmt { return Stmt{kind: kindWord, words: ops} }

// OrgStmt sets the address the following statement will be assembled at.
func OrgStmt(addr uint16) Stmt { return Stmt{kind: kindOrg, org: addr} }

// Insn emits one instruction. mode must be Implied or Accum for
// implied/accumulator-only mnemonics; operand is ignored in that case.
func Insn(mnemonic string, mode AddrMode, operand Operand) Stmt {
	return Stmt{kind: kindInsn, mnemonic: mnemonic, mode: mode, operand: operand}
}

// ErrAsmError reports an unresolved label or an out-of-range relative
// branch discovered during pass 2.
type ErrAsmError struct {
	Symbol string
	Reason string
}

func (e ErrAsmError) Error() string {
	return fmt.Sprintf("asm6502: %s: %s", e.Symbol, e.Reason)
}

func insnSize(mode AddrMode) int {
	switch mode {
	case Implied, Accum:
		return 1
	case Abs, AbsX, AbsY, Ind:
		return 3
	default:
		return 2
	}
}

// Assemble runs both passes over stmts and returns the origin (the address
// of the first byte emitted) and the assembled code.
func Assemble(stmts []Stmt) (origin uint16, code []byte, err error) {
	labels, err := resolveLabels(stmts)
	if err != nil {
		return 0, nil, err
	}

	origin = firstContentAddress(stmts)
	buf := make([]byte, 0, 256)
	pc := origin
	for _, s := range stmts {
		switch s.kind {
		case kindLabel:
			// already resolved in pass 1
		case kindOrg:
			if pc != s.org && len(buf) > 0 {
				return 0, nil, ErrAsmError{Symbol: "<org>", Reason: "mid-stream origin change is not supported by this assembler"}
			}
			pc = s.org
		case kindByte:
			buf = append(buf, s.data...)
			pc += uint16(len(s.data))
		case kindWord:
			for _, w := range s.words {
				v, err := resolveOperand(w, labels)
				if err != nil {
					return 0, nil, err
				}
				buf = append(buf, byte(v), byte(v>>8))
				pc += 2
			}
		case kindInsn:
			opcode, ok := lookupOpcode(s.mnemonic, s.mode)
			if !ok {
				return 0, nil, ErrAsmError{Symbol: s.mnemonic, Reason: "no such mnemonic/addressing-mode combination"}
			}
			buf = append(buf, opcode)
			pc++
			switch s.mode {
			case Implied, Accum:
				// no operand bytes
			case Rel:
				target, err := resolveOperand(s.operand, labels)
				if err != nil {
					return 0, nil, err
				}
				disp := int(target) - int(pc+1)
				if disp < -128 || disp > 127 {
					return 0, nil, ErrAsmError{Symbol: s.mnemonic, Reason: fmt.Sprintf("relative branch out of range: displacement %d to %s", disp, s.operand.symbolOrHex())}
				}
				buf = append(buf, byte(int8(disp)))
				pc++
			case Abs, AbsX, AbsY, Ind:
				v, err := resolveOperand(s.operand, labels)
				if err != nil {
					return 0, nil, err
				}
				buf = append(buf, byte(v), byte(v>>8))
				pc += 2
			default: // Imm, ZP, ZPX, ZPY, IndX, IndY
				v, err := resolveOperand(s.operand, labels)
				if err != nil {
					return 0, nil, err
				}
				if v > 0xFF {
					return 0, nil, ErrAsmError{Symbol: s.mnemonic, Reason: fmt.Sprintf("operand %#x does not fit an 8-bit addressing mode", v)}
				}
				buf = append(buf, byte(v))
				pc++
			}
		}
	}
	return origin, buf, nil
}

func (o Operand) symbolOrHex() string {
	if o.Symbol != "" {
		return o.Symbol
	}
	return fmt.Sprintf("%#x", o.Value)
}

func resolveOperand(o Operand, labels map[string]uint16) (uint16, error) {
	v := o.Value
	if o.Symbol != "" {
		resolved, ok := labels[o.Symbol]
		if !ok {
			return 0, ErrAsmError{Symbol: o.Symbol, Reason: "unresolved label"}
		}
		v = resolved
	}
	switch o.sel {
	case selLo:
		return v & 0xFF, nil
	case selHi:
		return v >> 8, nil
	default:
		return v, nil
	}
}

// firstContentAddress returns the address at which the first byte-emitting
// statement lands, applying any Org directives that precede it.
func firstContentAddress(stmts []Stmt) uint16 {
	var pc uint16
	for _, s := range stmts {
		switch s.kind {
		case kindOrg:
			pc = s.org
		case kindLabel:
			// no size; keep scanning
		default:
			return pc
		}
	}
	return pc
}

// resolveLabels is pass 1: walk the statement list once, computing every
// label's address. Every statement has a fixed, mode-determined size, so
// there is nothing to iterate to a fixed point — one pass is enough.
func resolveLabels(stmts []Stmt) (map[string]uint16, error) {
	labels := make(map[string]uint16)
	var pc uint16
	for _, s := range stmts {
		switch s.kind {
		case kindOrg:
			pc = s.org
		case kindLabel:
			if _, dup := labels[s.label]; dup {
				return nil, ErrAsmError{Symbol: s.label, Reason: "label defined more than once"}
			}
			labels[s.label] = pc
		case kindByte:
			pc += uint16(len(s.data))
		case kindWord:
			pc += uint16(2 * len(s.words))
		case kindInsn:
			opcode, ok := lookupOpcode(s.mnemonic, s.mode)
			if !ok {
				return nil, ErrAsmError{Symbol: s.mnemonic, Reason: "no such mnemonic/addressing-mode combination"}
			}
			_ = opcode
			pc += uint16(insnSize(s.mode))
		}
	}
	return labels, nil
}
