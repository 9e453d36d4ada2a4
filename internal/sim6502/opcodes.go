package sim6502

import "github.com/vsfrestore/vsfrestore/internal/asm6502"

type decodedOpcode struct {
	mnemonic string
	mode     asm6502.AddrMode
}

// decodeTable is the byte-to-instruction direction of the same legal NMOS
// 6502 set asm6502/opcodes.go encodes. The two tables are each other's
// inverse and necessarily duplicated: asm6502's table is keyed by
// mnemonic+mode and its lookup function is unexported, so decoding an
// opcode byte back into a mnemonic has to walk the same assignments again
// in the other direction.
var decodeTable = map[byte]decodedOpcode{
	0x69: {"ADC", asm6502.Imm}, 0x65: {"ADC", asm6502.ZP}, 0x75: {"ADC", asm6502.ZPX},
	0x6D: {"ADC", asm6502.Abs}, 0x7D: {"ADC", asm6502.AbsX}, 0x79: {"ADC", asm6502.AbsY},
	0x61: {"ADC", asm6502.IndX}, 0x71: {"ADC", asm6502.IndY},

	0x29: {"AND", asm6502.Imm}, 0x25: {"AND", asm6502.ZP}, 0x35: {"AND", asm6502.ZPX},
	0x2D: {"AND", asm6502.Abs}, 0x3D: {"AND", asm6502.AbsX}, 0x39: {"AND", asm6502.AbsY},
	0x21: {"AND", asm6502.IndX}, 0x31: {"AND", asm6502.IndY},

	0x0A: {"ASL", asm6502.Accum}, 0x06: {"ASL", asm6502.ZP}, 0x16: {"ASL", asm6502.ZPX},
	0x0E: {"ASL", asm6502.Abs}, 0x1E: {"ASL", asm6502.AbsX},

	0x90: {"BCC", asm6502.Rel}, 0xB0: {"BCS", asm6502.Rel}, 0xF0: {"BEQ", asm6502.Rel},
	0x24: {"BIT", asm6502.ZP}, 0x2C: {"BIT", asm6502.Abs},
	0x30: {"BMI", asm6502.Rel}, 0xD0: {"BNE", asm6502.Rel}, 0x10: {"BPL", asm6502.Rel},
	0x00: {"BRK", asm6502.Implied},
	0x50: {"BVC", asm6502.Rel}, 0x70: {"BVS", asm6502.Rel},

	0x18: {"CLC", asm6502.Implied}, 0xD8: {"CLD", asm6502.Implied},
	0x58: {"CLI", asm6502.Implied}, 0xB8: {"CLV", asm6502.Implied},

	0xC9: {"CMP", asm6502.Imm}, 0xC5: {"CMP", asm6502.ZP}, 0xD5: {"CMP", asm6502.ZPX},
	0xCD: {"CMP", asm6502.Abs}, 0xDD: {"CMP", asm6502.AbsX}, 0xD9: {"CMP", asm6502.AbsY},
	0xC1: {"CMP", asm6502.IndX}, 0xD1: {"CMP", asm6502.IndY},

	0xE0: {"CPX", asm6502.Imm}, 0xE4: {"CPX", asm6502.ZP}, 0xEC: {"CPX", asm6502.Abs},
	0xC0: {"CPY", asm6502.Imm}, 0xC4: {"CPY", asm6502.ZP}, 0xCC: {"CPY", asm6502.Abs},

	0xC6: {"DEC", asm6502.ZP}, 0xD6: {"DEC", asm6502.ZPX}, 0xCE: {"DEC", asm6502.Abs}, 0xDE: {"DEC", asm6502.AbsX},
	0xCA: {"DEX", asm6502.Implied}, 0x88: {"DEY", asm6502.Implied},

	0x49: {"EOR", asm6502.Imm}, 0x45: {"EOR", asm6502.ZP}, 0x55: {"EOR", asm6502.ZPX},
	0x4D: {"EOR", asm6502.Abs}, 0x5D: {"EOR", asm6502.AbsX}, 0x59: {"EOR", asm6502.AbsY},
	0x41: {"EOR", asm6502.IndX}, 0x51: {"EOR", asm6502.IndY},

	0xE6: {"INC", asm6502.ZP}, 0xF6: {"INC", asm6502.ZPX}, 0xEE: {"INC", asm6502.Abs}, 0xFE: {"INC", asm6502.AbsX},
	0xE8: {"INX", asm6502.Implied}, 0xC8: {"INY", asm6502.Implied},

	0x4C: {"JMP", asm6502.Abs}, 0x6C: {"JMP", asm6502.Ind},
	0x20: {"JSR", asm6502.Abs},

	0xA9: {"LDA", asm6502.Imm}, 0xA5: {"LDA", asm6502.ZP}, 0xB5: {"LDA", asm6502.ZPX},
	0xAD: {"LDA", asm6502.Abs}, 0xBD: {"LDA", asm6502.AbsX}, 0xB9: {"LDA", asm6502.AbsY},
	0xA1: {"LDA", asm6502.IndX}, 0xB1: {"LDA", asm6502.IndY},

	0xA2: {"LDX", asm6502.Imm}, 0xA6: {"LDX", asm6502.ZP}, 0xB6: {"LDX", asm6502.ZPY},
	0xAE: {"LDX", asm6502.Abs}, 0xBE: {"LDX", asm6502.AbsY},

	0xA0: {"LDY", asm6502.Imm}, 0xA4: {"LDY", asm6502.ZP}, 0xB4: {"LDY", asm6502.ZPX},
	0xAC: {"LDY", asm6502.Abs}, 0xBC: {"LDY", asm6502.AbsX},

	0x4A: {"LSR", asm6502.Accum}, 0x46: {"LSR", asm6502.ZP}, 0x56: {"LSR", asm6502.ZPX},
	0x4E: {"LSR", asm6502.Abs}, 0x5E: {"LSR", asm6502.AbsX},

	0xEA: {"NOP", asm6502.Implied},

	0x09: {"ORA", asm6502.Imm}, 0x05: {"ORA", asm6502.ZP}, 0x15: {"ORA", asm6502.ZPX},
	0x0D: {"ORA", asm6502.Abs}, 0x1D: {"ORA", asm6502.AbsX}, 0x19: {"ORA", asm6502.AbsY},
	0x01: {"ORA", asm6502.IndX}, 0x11: {"ORA", asm6502.IndY},

	0x48: {"PHA", asm6502.Implied}, 0x08: {"PHP", asm6502.Implied},
	0x68: {"PLA", asm6502.Implied}, 0x28: {"PLP", asm6502.Implied},

	0x2A: {"ROL", asm6502.Accum}, 0x26: {"ROL", asm6502.ZP}, 0x36: {"ROL", asm6502.ZPX},
	0x2E: {"ROL", asm6502.Abs}, 0x3E: {"ROL", asm6502.AbsX},

	0x6A: {"ROR", asm6502.Accum}, 0x66: {"ROR", asm6502.ZP}, 0x76: {"ROR", asm6502.ZPX},
	0x6E: {"ROR", asm6502.Abs}, 0x7E: {"ROR", asm6502.AbsX},

	0x40: {"RTI", asm6502.Implied}, 0x60: {"RTS", asm6502.Implied},

	0xE9: {"SBC", asm6502.Imm}, 0xE5: {"SBC", asm6502.ZP}, 0xF5: {"SBC", asm6502.ZPX},
	0xED: {"SBC", asm6502.Abs}, 0xFD: {"SBC", asm6502.AbsX}, 0xF9: {"SBC", asm6502.AbsY},
	0xE1: {"SBC", asm6502.IndX}, 0xF1: {"SBC", asm6502.IndY},

	0x38: {"SEC", asm6502.Implied}, 0xF8: {"SED", asm6502.Implied}, 0x78: {"SEI", asm6502.Implied},

	0x85: {"STA", asm6502.ZP}, 0x95: {"STA", asm6502.ZPX}, 0x8D: {"STA", asm6502.Abs},
	0x9D: {"STA", asm6502.AbsX}, 0x99: {"STA", asm6502.AbsY}, 0x81: {"STA", asm6502.IndX}, 0x91: {"STA", asm6502.IndY},

	0x86: {"STX", asm6502.ZP}, 0x96: {"STX", asm6502.ZPY}, 0x8E: {"STX", asm6502.Abs},
	0x84: {"STY", asm6502.ZP}, 0x94: {"STY", asm6502.ZPX}, 0x8C: {"STY", asm6502.Abs},

	0xAA: {"TAX", asm6502.Implied}, 0xA8: {"TAY", asm6502.Implied}, 0xBA: {"TSX", asm6502.Implied},
	0x8A: {"TXA", asm6502.Implied}, 0x9A: {"TXS", asm6502.Implied}, 0x98: {"TYA", asm6502.Implied},
}
