package cpu

import "github.com/mbbscore/emucore/internal/x86asm"

// executeString runs MOVS/CMPS/SCAS/LODS/STOS to completion in one call,
// including any REP/REPE/REPNE repetition: this core steps a whole
// repeated string op per Tick rather than one iteration per interrupt
// check, which is a simplification a guest relying on interrupt latency
// during a long REP would notice, but no MAJORBBS-era door module depends
// on that.
func (c *CPU) executeString(inst *x86asm.Instruction) {
	width := inst.ImmSize
	step := uint16(width)
	if c.GetFlag(FlagDF) {
		step = -step
	}
	srcSeg := c.effectiveSeg(inst, false)

	count := uint32(1)
	repeating := inst.Rep != x86asm.RepNone
	if repeating {
		count = uint32(c.CX())
	}

	for n := uint32(0); n < count; n++ {
		if repeating && c.CX() == 0 {
			break
		}
		switch inst.Mnemonic {
		case x86asm.Movs:
			v := c.readWidth(far(srcSeg, c.SI()), width)
			c.writeWidth(far(c.ES, c.DI()), width, v)
			c.SetSI(c.SI() + step)
			c.SetDI(c.DI() + step)
		case x86asm.Cmps:
			a := c.readWidth(far(srcSeg, c.SI()), width)
			b := c.readWidth(far(c.ES, c.DI()), width)
			c.aluCompute(width, x86asm.AluCmp, a, b)
			c.SetSI(c.SI() + step)
			c.SetDI(c.DI() + step)
		case x86asm.Scas:
			a := c.accumulator(width)
			b := c.readWidth(far(c.ES, c.DI()), width)
			c.aluCompute(width, x86asm.AluCmp, a, b)
			c.SetDI(c.DI() + step)
		case x86asm.Lods:
			v := c.readWidth(far(srcSeg, c.SI()), width)
			c.setAccumulator(width, v)
			c.SetSI(c.SI() + step)
		case x86asm.Stos:
			v := c.accumulator(width)
			c.writeWidth(far(c.ES, c.DI()), width, v)
			c.SetDI(c.DI() + step)
		}

		if !repeating {
			break
		}
		c.SetCX(c.CX() - 1)
		if inst.Mnemonic == x86asm.Cmps || inst.Mnemonic == x86asm.Scas {
			if inst.Rep == x86asm.RepZ && !c.GetFlag(FlagZF) {
				break
			}
			if inst.Rep == x86asm.RepNZ && c.GetFlag(FlagZF) {
				break
			}
		}
	}
}

func (c *CPU) accumulator(width byte) uint32 {
	switch width {
	case 1:
		return uint32(c.AL())
	case 2:
		return uint32(c.AX())
	default:
		return c.EAX
	}
}

func (c *CPU) setAccumulator(width byte, v uint32) {
	switch width {
	case 1:
		c.SetAL(byte(v))
	case 2:
		c.SetAX(uint16(v))
	default:
		c.EAX = v
	}
}
