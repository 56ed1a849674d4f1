package cpu

import "github.com/mbbscore/emucore/internal/x86asm"

// aluCompute evaluates one ADD/OR/ADC/SBB/AND/SUB/XOR/CMP at the given
// operand width, updating flags via setFlagsArith/setFlagsLogic, and
// returns the result (CMP's result is never written back by the caller).
func (c *CPU) aluCompute(width byte, kind x86asm.AluKind, a, b uint32) uint32 {
	switch width {
	case 1:
		return uint32(c.aluCompute8(kind, byte(a), byte(b)))
	case 2:
		return uint32(c.aluCompute16(kind, uint16(a), uint16(b)))
	default:
		return c.aluCompute32(kind, a, b)
	}
}

func (c *CPU) aluCompute8(kind x86asm.AluKind, a, b byte) byte {
	cf := c.GetFlag(FlagCF)
	switch kind {
	case x86asm.AluAdd:
		wide := uint16(a) + uint16(b)
		c.setFlagsArith8(wide, a, b, false)
		return byte(wide)
	case x86asm.AluAdc:
		wide := uint16(a) + uint16(b)
		if cf {
			wide++
		}
		c.setFlagsArith8(wide, a, b, false)
		return byte(wide)
	case x86asm.AluSub, x86asm.AluCmp:
		wide := uint16(a) - uint16(b)
		c.setFlagsArith8(wide, a, b, true)
		return byte(wide)
	case x86asm.AluSbb:
		wide := uint16(a) - uint16(b)
		if cf {
			wide--
		}
		c.setFlagsArith8(wide, a, b, true)
		return byte(wide)
	case x86asm.AluOr:
		r := a | b
		c.setFlagsLogic8(r)
		return r
	case x86asm.AluAnd:
		r := a & b
		c.setFlagsLogic8(r)
		return r
	default: // AluXor
		r := a ^ b
		c.setFlagsLogic8(r)
		return r
	}
}

func (c *CPU) aluCompute16(kind x86asm.AluKind, a, b uint16) uint16 {
	cf := c.GetFlag(FlagCF)
	switch kind {
	case x86asm.AluAdd:
		wide := uint32(a) + uint32(b)
		c.setFlagsArith16(wide, a, b, false)
		return uint16(wide)
	case x86asm.AluAdc:
		wide := uint32(a) + uint32(b)
		if cf {
			wide++
		}
		c.setFlagsArith16(wide, a, b, false)
		return uint16(wide)
	case x86asm.AluSub, x86asm.AluCmp:
		wide := uint32(a) - uint32(b)
		c.setFlagsArith16(wide, a, b, true)
		return uint16(wide)
	case x86asm.AluSbb:
		wide := uint32(a) - uint32(b)
		if cf {
			wide--
		}
		c.setFlagsArith16(wide, a, b, true)
		return uint16(wide)
	case x86asm.AluOr:
		r := a | b
		c.setFlagsLogic16(r)
		return r
	case x86asm.AluAnd:
		r := a & b
		c.setFlagsLogic16(r)
		return r
	default:
		r := a ^ b
		c.setFlagsLogic16(r)
		return r
	}
}

func (c *CPU) aluCompute32(kind x86asm.AluKind, a, b uint32) uint32 {
	cf := c.GetFlag(FlagCF)
	switch kind {
	case x86asm.AluAdd:
		wide := uint64(a) + uint64(b)
		c.setFlagsArith32(wide, a, b, false)
		return uint32(wide)
	case x86asm.AluAdc:
		wide := uint64(a) + uint64(b)
		if cf {
			wide++
		}
		c.setFlagsArith32(wide, a, b, false)
		return uint32(wide)
	case x86asm.AluSub, x86asm.AluCmp:
		wide := uint64(a) - uint64(b)
		c.setFlagsArith32(wide, a, b, true)
		return uint32(wide)
	case x86asm.AluSbb:
		wide := uint64(a) - uint64(b)
		if cf {
			wide--
		}
		c.setFlagsArith32(wide, a, b, true)
		return uint32(wide)
	case x86asm.AluOr:
		r := a | b
		c.setFlagsLogic32(r)
		return r
	case x86asm.AluAnd:
		r := a & b
		c.setFlagsLogic32(r)
		return r
	default:
		r := a ^ b
		c.setFlagsLogic32(r)
		return r
	}
}

func (c *CPU) setFlagsLogicWidth(width byte, result uint32) {
	switch width {
	case 1:
		c.setFlagsLogic8(byte(result))
	case 2:
		c.setFlagsLogic16(uint16(result))
	default:
		c.setFlagsLogic32(result)
	}
}

func (c *CPU) incDec(width byte, a uint32, dec bool) uint32 {
	switch width {
	case 1:
		wide := uint16(a) + 1
		if dec {
			wide = uint16(a) - 1
		}
		c.setFlagsIncDec8(wide, byte(a), dec)
		return uint32(byte(wide))
	case 2:
		wide := uint32(a) + 1
		if dec {
			wide = uint32(a) - 1
		}
		c.setFlagsIncDec16(wide, uint16(a), dec)
		return uint32(uint16(wide))
	default:
		wide := uint64(a) + 1
		if dec {
			wide = uint64(a) - 1
		}
		c.setFlagsIncDec32(wide, a, dec)
		return uint32(wide)
	}
}

// negate computes two's-complement negation at width, setting flags the
// way NEG does: CF clear only when the operand was zero, OF/SF/ZF/PF/AF
// from the equivalent 0-a subtraction.
func (c *CPU) negate(width byte, a uint32) uint32 {
	switch width {
	case 1:
		wide := uint16(0) - uint16(byte(a))
		c.setFlagsArith8(wide, 0, byte(a), true)
		return uint32(byte(wide))
	case 2:
		wide := uint32(0) - uint32(uint16(a))
		c.setFlagsArith16(wide, 0, uint16(a), true)
		return uint32(uint16(wide))
	default:
		wide := uint64(0) - uint64(a)
		c.setFlagsArith32(wide, 0, a, true)
		return uint32(wide)
	}
}
