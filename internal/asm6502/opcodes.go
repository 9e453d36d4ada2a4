package asm6502

// opcodeTable is the legal NMOS 6502 instruction set, grounded on the
// opcode semantics documented in the teacher's cpu.go (the per-opcode
// iXXX methods and their addressing-mode dispatch). Restore codegen never
// needs the undocumented/illegal opcodes that file also models, so this
// table sticks to the architecturally defined set.
var opcodeTable = map[string]map[AddrMode]byte{
	"ADC": {Imm: 0x69, ZP: 0x65, ZPX: 0x75, Abs: 0x6D, AbsX: 0x7D, AbsY: 0x79, IndX: 0x61, IndY: 0x71},
	"AND": {Imm: 0x29, ZP: 0x25, ZPX: 0x35, Abs: 0x2D, AbsX: 0x3D, AbsY: 0x39, IndX: 0x21, IndY: 0x31},
	"ASL": {Accum: 0x0A, ZP: 0x06, ZPX: 0x16, Abs: 0x0E, AbsX: 0x1E},
	"BCC": {Rel: 0x90},
	"BCS": {Rel: 0xB0},
	"BEQ": {Rel: 0xF0},
	"BIT": {ZP: 0x24, Abs: 0x2C},
	"BMI": {Rel: 0x30},
	"BNE": {Rel: 0xD0},
	"BPL": {Rel: 0x10},
	"BRK": {Implied: 0x00},
	"BVC": {Rel: 0x50},
	"BVS": {Rel: 0x70},
	"CLC": {Implied: 0x18},
	"CLD": {Implied: 0xD8},
	"CLI": {Implied: 0x58},
	"CLV": {Implied: 0xB8},
	"CMP": {Imm: 0xC9, ZP: 0xC5, ZPX: 0xD5, Abs: 0xCD, AbsX: 0xDD, AbsY: 0xD9, IndX: 0xC1, IndY: 0xD1},
	"CPX": {Imm: 0xE0, ZP: 0xE4, Abs: 0xEC},
	"CPY": {Imm: 0xC0, ZP: 0xC4, Abs: 0xCC},
	"DEC": {ZP: 0xC6, ZPX: 0xD6, Abs: 0xCE, AbsX: 0xDE},
	"DEX": {Implied: 0xCA},
	"DEY": {Implied: 0x88},
	"EOR": {Imm: 0x49, ZP: 0x45, ZPX: 0x55, Abs: 0x4D, AbsX: 0x5D, AbsY: 0x59, IndX: 0x41, IndY: 0x51},
	"INC": {ZP: 0xE6, ZPX: 0xF6, Abs: 0xEE, AbsX: 0xFE},
	"INX": {Implied: 0xE8},
	"INY": {Implied: 0xC8},
	"JMP": {Abs: 0x4C, Ind: 0x6C},
	"JSR": {Abs: 0x20},
	"LDA": {Imm: 0xA9, ZP: 0xA5, ZPX: 0xB5, Abs: 0xAD, AbsX: 0xBD, AbsY: 0xB9, IndX: 0xA1, IndY: 0xB1},
	"LDX": {Imm: 0xA2, ZP: 0xA6, ZPY: 0xB6, Abs: 0xAE, AbsY: 0xBE},
	"LDY": {Imm: 0xA0, ZP: 0xA4, ZPX: 0xB4, Abs: 0xAC, AbsX: 0xBC},
	"LSR": {Accum: 0x4A, ZP: 0x46, ZPX: 0x56, Abs: 0x4E, AbsX: 0x5E},
	"NOP": {Implied: 0xEA},
	"ORA": {Imm: 0x09, ZP: 0x05, ZPX: 0x15, Abs: 0x0D, AbsX: 0x1D, AbsY: 0x19, IndX: 0x01, IndY: 0x11},
	"PHA": {Implied: 0x48},
	"PHP": {Implied: 0x08},
	"PLA": {Implied: 0x68},
	"PLP": {Implied: 0x28},
	"ROL": {Accum: 0x2A, ZP: 0x26, ZPX: 0x36, Abs: 0x2E, AbsX: 0x3E},
	"ROR": {Accum: 0x6A, ZP: 0x66, ZPX: 0x76, Abs: 0x6E, AbsX: 0x7E},
	"RTI": {Implied: 0x40},
	"RTS": {Implied: 0x60},
	"SBC": {Imm: 0xE9, ZP: 0xE5, ZPX: 0xF5, Abs: 0xED, AbsX: 0xFD, AbsY: 0xF9, IndX: 0xE1, IndY: 0xF1},
	"SEC": {Implied: 0x38},
	"SED": {Implied: 0xF8},
	"SEI": {Implied: 0x78},
	"STA": {ZP: 0x85, ZPX: 0x95, Abs: 0x8D, AbsX: 0x9D, AbsY: 0x99, IndX: 0x81, IndY: 0x91},
	"STX": {ZP: 0x86, ZPY: 0x96, Abs: 0x8E},
	"STY": {ZP: 0x84, ZPX: 0x94, Abs: 0x8C},
	"TAX": {Implied: 0xAA},
	"TAY": {Implied: 0xA8},
	"TSX": {Implied: 0xBA},
	"TXA": {Implied: 0x8A},
	"TXS": {Implied: 0x9A},
	"TYA": {Implied: 0x98},
}

func lookupOpcode(mnemonic string, mode AddrMode) (byte, bool) {
	modes, ok := opcodeTable[mnemonic]
	if !ok {
		return 0, false
	}
	op, ok := modes[mode]
	return op, ok
}
