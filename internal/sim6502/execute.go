package sim6502

import (
	"fmt"

	"github.com/vsfrestore/vsfrestore/internal/asm6502"
)

// execute runs one already-decoded instruction, fetching any operand bytes
// it needs from Ram at the current PC.
func (p *Processor) execute(mnemonic string, mode asm6502.AddrMode) error {
	switch mnemonic {
	case "ADC":
		p.adc(p.loadOperand(mode))
	case "AND":
		p.A &= p.loadOperand(mode)
		p.setZN(p.A)
	case "ASL":
		p.shift(mode, func(v uint8, _ bool) (uint8, bool) { return v << 1, v&0x80 != 0 })
	case "BCC":
		p.branch(p.P&PCarry == 0)
	case "BCS":
		p.branch(p.P&PCarry != 0)
	case "BEQ":
		p.branch(p.P&PZero != 0)
	case "BIT":
		v := p.Ram.Read(p.effectiveAddr(mode))
		p.setFlag(PZero, p.A&v == 0)
		p.setFlag(PNegative, v&0x80 != 0)
		p.setFlag(POverflow, v&0x40 != 0)
	case "BMI":
		p.branch(p.P&PNegative != 0)
	case "BNE":
		p.branch(p.P&PZero == 0)
	case "BPL":
		p.branch(p.P&PNegative == 0)
	case "BRK":
		p.PC++ // skip the padding byte real hardware reads and discards
		p.push16(p.PC)
		p.push(p.P | PBreak | PAlwaysOne)
		p.setFlag(PInterrupt, true)
		p.PC = p.readAddr(IRQVector)
	case "BVC":
		p.branch(p.P&POverflow == 0)
	case "BVS":
		p.branch(p.P&POverflow != 0)
	case "CLC":
		p.setFlag(PCarry, false)
	case "CLD":
		p.setFlag(PDecimal, false)
	case "CLI":
		p.setFlag(PInterrupt, false)
	case "CLV":
		p.setFlag(POverflow, false)
	case "CMP":
		p.compare(p.A, p.loadOperand(mode))
	case "CPX":
		p.compare(p.X, p.loadOperand(mode))
	case "CPY":
		p.compare(p.Y, p.loadOperand(mode))
	case "DEC":
		p.rmw(mode, func(v uint8) uint8 { return v - 1 })
	case "DEX":
		p.X--
		p.setZN(p.X)
	case "DEY":
		p.Y--
		p.setZN(p.Y)
	case "EOR":
		p.A ^= p.loadOperand(mode)
		p.setZN(p.A)
	case "INC":
		p.rmw(mode, func(v uint8) uint8 { return v + 1 })
	case "INX":
		p.X++
		p.setZN(p.X)
	case "INY":
		p.Y++
		p.setZN(p.Y)
	case "JMP":
		p.PC = p.effectiveAddr(mode)
	case "JSR":
		addr := p.effectiveAddr(mode)
		p.push16(p.PC - 1)
		p.PC = addr
	case "LDA":
		p.A = p.loadOperand(mode)
		p.setZN(p.A)
	case "LDX":
		p.X = p.loadOperand(mode)
		p.setZN(p.X)
	case "LDY":
		p.Y = p.loadOperand(mode)
		p.setZN(p.Y)
	case "LSR":
		p.shift(mode, func(v uint8, _ bool) (uint8, bool) { return v >> 1, v&0x01 != 0 })
	case "NOP":
	case "ORA":
		p.A |= p.loadOperand(mode)
		p.setZN(p.A)
	case "PHA":
		p.push(p.A)
	case "PHP":
		p.push(p.P | PBreak | PAlwaysOne)
	case "PLA":
		p.A = p.pop()
		p.setZN(p.A)
	case "PLP":
		p.P = p.pop() | PAlwaysOne
	case "ROL":
		p.shift(mode, func(v uint8, carryIn bool) (uint8, bool) {
			r := v << 1
			if carryIn {
				r |= 0x01
			}
			return r, v&0x80 != 0
		})
	case "ROR":
		p.shift(mode, func(v uint8, carryIn bool) (uint8, bool) {
			r := v >> 1
			if carryIn {
				r |= 0x80
			}
			return r, v&0x01 != 0
		})
	case "RTI":
		p.P = p.pop() | PAlwaysOne
		p.PC = p.pop16()
	case "RTS":
		p.PC = p.pop16() + 1
	case "SBC":
		p.sbc(p.loadOperand(mode))
	case "SEC":
		p.setFlag(PCarry, true)
	case "SED":
		p.setFlag(PDecimal, true)
	case "SEI":
		p.setFlag(PInterrupt, true)
	case "STA":
		p.Ram.Write(p.effectiveAddr(mode), p.A)
	case "STX":
		p.Ram.Write(p.effectiveAddr(mode), p.X)
	case "STY":
		p.Ram.Write(p.effectiveAddr(mode), p.Y)
	case "TAX":
		p.X = p.A
		p.setZN(p.X)
	case "TAY":
		p.Y = p.A
		p.setZN(p.Y)
	case "TSX":
		p.X = p.S
		p.setZN(p.X)
	case "TXA":
		p.A = p.X
		p.setZN(p.A)
	case "TXS":
		p.S = p.X
	case "TYA":
		p.A = p.Y
		p.setZN(p.A)
	default:
		return fmt.Errorf("sim6502: %s has no execution semantics", mnemonic)
	}
	return nil
}

// effectiveAddr resolves a memory-referencing addressing mode, fetching
// whatever operand bytes it needs from the current PC. Imm and Accum are
// not memory references and are handled by loadOperand/shift instead.
func (p *Processor) effectiveAddr(mode asm6502.AddrMode) uint16 {
	switch mode {
	case asm6502.ZP:
		return uint16(p.fetch())
	case asm6502.ZPX:
		return uint16(p.fetch() + p.X)
	case asm6502.ZPY:
		return uint16(p.fetch() + p.Y)
	case asm6502.Abs:
		lo, hi := p.fetch(), p.fetch()
		return uint16(hi)<<8 | uint16(lo)
	case asm6502.AbsX:
		lo, hi := p.fetch(), p.fetch()
		return (uint16(hi)<<8 | uint16(lo)) + uint16(p.X)
	case asm6502.AbsY:
		lo, hi := p.fetch(), p.fetch()
		return (uint16(hi)<<8 | uint16(lo)) + uint16(p.Y)
	case asm6502.IndX:
		zp := p.fetch() + p.X
		lo := p.Ram.Read(uint16(zp))
		hi := p.Ram.Read(uint16(zp + 1))
		return uint16(hi)<<8 | uint16(lo)
	case asm6502.IndY:
		zp := p.fetch()
		lo := p.Ram.Read(uint16(zp))
		hi := p.Ram.Read(uint16(zp + 1))
		return (uint16(hi)<<8 | uint16(lo)) + uint16(p.Y)
	case asm6502.Ind:
		lo, hi := p.fetch(), p.fetch()
		ptr := uint16(hi)<<8 | uint16(lo)
		// Reproduces the NMOS page-wrap bug: the high byte is fetched from
		// the same page as the low byte even when the low byte is $FF.
		loB := p.Ram.Read(ptr)
		hiB := p.Ram.Read((ptr & 0xFF00) | uint16(byte(ptr)+1))
		return uint16(hiB)<<8 | uint16(loB)
	default:
		panic(fmt.Sprintf("sim6502: addressing mode %d has no effective address", mode))
	}
}

func (p *Processor) loadOperand(mode asm6502.AddrMode) uint8 {
	switch mode {
	case asm6502.Imm:
		return p.fetch()
	case asm6502.Accum:
		return p.A
	default:
		return p.Ram.Read(p.effectiveAddr(mode))
	}
}

func (p *Processor) branch(taken bool) {
	disp := int8(p.fetch())
	if taken {
		p.PC = uint16(int32(p.PC) + int32(disp))
	}
}

func (p *Processor) compare(reg, v uint8) {
	result := reg - v
	p.setFlag(PCarry, reg >= v)
	p.setZN(result)
}

// shift applies fn (ASL/LSR ignore the carry-in argument; ROL/ROR use it)
// to the accumulator or a memory operand, updating carry and Z/N from the
// result.
func (p *Processor) shift(mode asm6502.AddrMode, fn func(v uint8, carryIn bool) (uint8, bool)) {
	carryIn := p.P&PCarry != 0
	if mode == asm6502.Accum {
		r, c := fn(p.A, carryIn)
		p.A = r
		p.setFlag(PCarry, c)
		p.setZN(r)
		return
	}
	addr := p.effectiveAddr(mode)
	r, c := fn(p.Ram.Read(addr), carryIn)
	p.Ram.Write(addr, r)
	p.setFlag(PCarry, c)
	p.setZN(r)
}

func (p *Processor) rmw(mode asm6502.AddrMode, fn func(uint8) uint8) {
	addr := p.effectiveAddr(mode)
	r := fn(p.Ram.Read(addr))
	p.Ram.Write(addr, r)
	p.setZN(r)
}

// adc and sbc model NMOS decimal mode with the standard nibble-adjust
// algorithm. Real NMOS silicon leaves Z/N/V in undefined states for some
// decimal-mode operand combinations; this models the commonly implemented
// (and for this purpose sufficient) behavior rather than every documented
// quirk, since the restore programs this package runs never execute SED.
func (p *Processor) adc(v uint8) {
	carry := uint16(0)
	if p.P&PCarry != 0 {
		carry = 1
	}
	if p.P&PDecimal != 0 {
		lo := (p.A & 0x0F) + (v & 0x0F) + uint8(carry)
		hi := (p.A >> 4) + (v >> 4)
		if lo > 9 {
			lo += 6
			hi++
		}
		c := hi > 9
		if c {
			hi += 6
		}
		bin := uint16(p.A) + uint16(v) + carry
		overflow := (p.A^v)&0x80 == 0 && (p.A^uint8(bin))&0x80 != 0
		p.A = (hi&0x0F)<<4 | (lo & 0x0F)
		p.setFlag(PCarry, c)
		p.setFlag(POverflow, overflow)
		p.setZN(p.A)
		return
	}
	sum := uint16(p.A) + uint16(v) + carry
	result := uint8(sum)
	overflow := (p.A^v)&0x80 == 0 && (p.A^result)&0x80 != 0
	p.A = result
	p.setFlag(PCarry, sum > 0xFF)
	p.setFlag(POverflow, overflow)
	p.setZN(result)
}

func (p *Processor) sbc(v uint8) {
	borrow := int16(1)
	if p.P&PCarry != 0 {
		borrow = 0
	}
	if p.P&PDecimal != 0 {
		lo := int16(p.A&0x0F) - int16(v&0x0F) - borrow
		hi := int16(p.A>>4) - int16(v>>4)
		if lo < 0 {
			lo += 10
			hi--
		}
		c := hi >= 0
		if hi < 0 {
			hi += 10
		}
		bin := int16(p.A) - int16(v) - borrow
		overflow := (p.A^v)&0x80 != 0 && (uint8(bin)^p.A)&0x80 != 0
		p.A = uint8(hi&0x0F)<<4 | uint8(lo&0x0F)
		p.setFlag(PCarry, c)
		p.setFlag(POverflow, overflow)
		p.setZN(p.A)
		return
	}
	bin := int16(p.A) - int16(v) - borrow
	result := uint8(bin)
	overflow := (p.A^v)&0x80 != 0 && (result^p.A)&0x80 != 0
	p.A = result
	p.setFlag(PCarry, bin >= 0)
	p.setFlag(POverflow, overflow)
	p.setZN(result)
}
