// Package basictext detokenizes a C64 BASIC program back into listing text.
// prgbuild embeds a one-line tokenized stub ahead of every restore loader;
// this package lets a test assert what that stub actually says rather than
// comparing it against another copy of the same token bytes.
//
// Grounded on c64basic.go's List, adapted to read directly from a byte
// slice addressed the way a PRG's load address offsets it, rather than
// through a memory.Bank — this module has no bank/bus abstraction for plain
// data, only for the 6502 address space internal/sim6502 drives.
package basictext

import (
	"bytes"
	"errors"
	"fmt"
)

// tokens maps a BASIC V2 token byte to its keyword text. Only 0x80-0xCB are
// defined; anything below is a literal ASCII byte.
var tokens = map[byte]string{
	0x80: "END", 0x81: "FOR", 0x82: "NEXT", 0x83: "DATA", 0x84: "INPUT#",
	0x85: "INPUT", 0x86: "DIM", 0x87: "READ", 0x88: "LET", 0x89: "GOTO",
	0x8A: "RUN", 0x8B: "IF", 0x8C: "RESTORE", 0x8D: "GOSUB", 0x8E: "RETURN",
	0x8F: "REM", 0x90: "STOP", 0x91: "ON", 0x92: "WAIT", 0x93: "LOAD",
	0x94: "SAVE", 0x95: "VERIFY", 0x96: "DEF", 0x97: "POKE", 0x98: "PRINT#",
	0x99: "PRINT", 0x9A: "CONT", 0x9B: "LIST", 0x9C: "CLR", 0x9D: "CMD",
	0x9E: "SYS", 0x9F: "OPEN", 0xA0: "CLOSE", 0xA1: "GET", 0xA2: "NEW",
	0xA3: "TAB(", 0xA4: "TO", 0xA5: "FN", 0xA6: "SPC(", 0xA7: "THEN",
	0xA8: "NOT", 0xA9: "STEP", 0xAA: "+", 0xAB: "-", 0xAC: "*", 0xAD: "/",
	0xAE: "^", 0xAF: "AND", 0xB0: "OR", 0xB1: ">", 0xB2: "=", 0xB3: "<",
	0xB4: "SGN", 0xB5: "INT", 0xB6: "ABS", 0xB7: "USR", 0xB8: "FRE",
	0xB9: "POS", 0xBA: "SQR", 0xBB: "RND", 0xBC: "LOG", 0xBD: "EXP",
	0xBE: "COS", 0xBF: "SIN", 0xC0: "TAN", 0xC1: "ATN", 0xC2: "PEEK",
	0xC3: "LEN", 0xC4: "STR$", 0xC5: "VAL", 0xC6: "ASC", 0xC7: "CHR$",
	0xC8: "LEFT$", 0xC9: "RIGHT$", 0xCA: "MID$", 0xCB: "GO",
}

func readAddr(mem []byte, addr uint16) uint16 {
	return uint16(mem[addr+1])<<8 | uint16(mem[addr])
}

// List detokenizes the BASIC line starting at pc within mem, mem addressed
// so mem[pc] is the line's first byte (the low byte of its next-line
// pointer). It returns the listing text and the pc of the following line;
// a next-line pointer of 0x0000 ends the program and returns "", 0, nil.
func List(mem []byte, pc uint16) (string, uint16, error) {
	newPC := readAddr(mem, pc)
	pc += 2
	if newPC == 0x0000 {
		return "", 0x0000, nil
	}

	lineNum := readAddr(mem, pc)
	pc += 2

	var b bytes.Buffer
	b.WriteString(fmt.Sprintf("%d ", lineNum))

	for {
		tok := mem[pc]
		pc++
		if tok == 0x00 {
			break
		}
		if tok > 0xCB {
			return b.String(), 0, errors.New("?SYNTAX  ERROR")
		}
		if t, ok := tokens[tok]; ok {
			b.WriteString(t)
		} else {
			b.WriteByte(tok)
		}
	}
	return b.String(), newPC, nil
}
