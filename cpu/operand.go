package cpu

import (
	"github.com/mbbscore/emucore/farptr"
	"github.com/mbbscore/emucore/internal/x86asm"
)

// readRM/writeRM/readReg/writeReg give execute.go one width-agnostic seam
// for operand access regardless of whether the RM operand resolved to a
// register or to memory: ModRM decode already recorded IsMemory, so the
// executor never branches on addressing mode itself.

func (c *CPU) readRM(inst *x86asm.Instruction, width byte) uint32 {
	if inst.IsMemory {
		addr := c.effectiveAddr(inst)
		switch width {
		case 1:
			return uint32(c.Mem.GetByte(addr))
		case 2:
			return uint32(c.Mem.GetWord(addr))
		default:
			return c.Mem.GetDword(addr)
		}
	}
	switch width {
	case 1:
		return uint32(c.reg8ByIndex(inst.RM))
	case 2:
		return uint32(c.reg16ByIndex(inst.RM))
	default:
		return c.reg32ByIndex(inst.RM)
	}
}

func (c *CPU) writeRM(inst *x86asm.Instruction, width byte, v uint32) {
	if inst.IsMemory {
		addr := c.effectiveAddr(inst)
		switch width {
		case 1:
			c.Mem.SetByte(addr, byte(v))
		case 2:
			c.Mem.SetWord(addr, uint16(v))
		default:
			c.Mem.SetDword(addr, v)
		}
		return
	}
	switch width {
	case 1:
		c.setReg8ByIndex(inst.RM, byte(v))
	case 2:
		c.setReg16ByIndex(inst.RM, uint16(v))
	default:
		c.setReg32ByIndex(inst.RM, v)
	}
}

// readWidth/writeWidth access memory at an explicit far pointer, for string
// instructions that address through SI/DI rather than a decoded RM operand.
func (c *CPU) readWidth(addr farptr.FarPtr, width byte) uint32 {
	switch width {
	case 1:
		return uint32(c.Mem.GetByte(addr))
	case 2:
		return uint32(c.Mem.GetWord(addr))
	default:
		return c.Mem.GetDword(addr)
	}
}

func (c *CPU) writeWidth(addr farptr.FarPtr, width byte, v uint32) {
	switch width {
	case 1:
		c.Mem.SetByte(addr, byte(v))
	case 2:
		c.Mem.SetWord(addr, uint16(v))
	default:
		c.Mem.SetDword(addr, v)
	}
}

func (c *CPU) readReg(inst *x86asm.Instruction, width byte) uint32 {
	switch width {
	case 1:
		return uint32(c.reg8ByIndex(inst.Reg))
	case 2:
		return uint32(c.reg16ByIndex(inst.Reg))
	default:
		return c.reg32ByIndex(inst.Reg)
	}
}

func (c *CPU) writeReg(inst *x86asm.Instruction, width byte, v uint32) {
	switch width {
	case 1:
		c.setReg8ByIndex(inst.Reg, byte(v))
	case 2:
		c.setReg16ByIndex(inst.Reg, uint16(v))
	default:
		c.setReg32ByIndex(inst.Reg, v)
	}
}

// signExtend widens a value of the given source width to 32 bits using the
// sign bit of that width, for MOVSX. (0x83's Ib is sign-extended by the
// decoder, not here.)
func signExtend(v uint32, width byte) uint32 {
	switch width {
	case 1:
		return uint32(int32(int8(byte(v))))
	case 2:
		return uint32(int32(int16(uint16(v))))
	default:
		return v
	}
}

func (c *CPU) push16(v uint16) {
	c.SetSP(c.SP() - 2)
	c.Mem.SetWord(far(c.SS, c.SP()), v)
}

func (c *CPU) pop16() uint16 {
	v := c.Mem.GetWord(far(c.SS, c.SP()))
	c.SetSP(c.SP() + 2)
	return v
}

func (c *CPU) push32(v uint32) {
	c.ESP -= 4
	c.Mem.SetDword(far(c.SS, uint16(c.ESP)), v)
}

func (c *CPU) pop32() uint32 {
	v := c.Mem.GetDword(far(c.SS, uint16(c.ESP)))
	c.ESP += 4
	return v
}

// pushWord/popWord push/pop at the instruction's operand width, used by
// PUSH/POP and near CALL.
func (c *CPU) pushWord(inst *x86asm.Instruction, v uint32) {
	if inst.OperandSize32 {
		c.push32(v)
	} else {
		c.push16(uint16(v))
	}
}

func (c *CPU) popWord(inst *x86asm.Instruction) uint32 {
	if inst.OperandSize32 {
		return c.pop32()
	}
	return uint32(c.pop16())
}
