package cpu

import (
	"github.com/mbbscore/emucore/farptr"
	"github.com/mbbscore/emucore/internal/x86asm"
)

// usesBP16 reports whether a 16-bit addressing mode's RM selects BP as a
// base register (RM 2, 3, 6, except the mod 0 / RM 6 direct address), in
// which case the implied segment is SS rather than DS, matching the 8086
// addressing-mode table.
func usesBP16(inst *x86asm.Instruction) bool {
	if inst.Mod == 0 && inst.RM == 6 {
		return false // direct address, no base register at all
	}
	switch inst.RM {
	case 2, 3, 6:
		return true
	default:
		return false
	}
}

// effectiveSeg resolves which segment register backs a memory operand: an
// explicit override prefix always wins, otherwise SS for BP-based 16-bit
// addressing and EBP-based 32-bit addressing, DS otherwise.
func (c *CPU) effectiveSeg(inst *x86asm.Instruction, impliedSS bool) uint16 {
	switch inst.SegOverride {
	case x86asm.SegES:
		return c.ES
	case x86asm.SegCS:
		return c.CS
	case x86asm.SegSS:
		return c.SS
	case x86asm.SegDS:
		return c.DS
	case x86asm.SegFS:
		return c.FS
	case x86asm.SegGS:
		return c.GS
	}
	if impliedSS {
		return c.SS
	}
	return c.DS
}

// effectiveAddr computes the far pointer a memory-form RM operand refers
// to. It must only be called when inst.IsMemory is true.
func (c *CPU) effectiveAddr(inst *x86asm.Instruction) farptr.FarPtr {
	if inst.AddressSize32 {
		return c.effectiveAddr32(inst)
	}
	return c.effectiveAddr16(inst)
}

// effectiveAddr16 implements the classic 8086 RM addressing-mode table:
// 0=BX+SI 1=BX+DI 2=BP+SI 3=BP+DI 4=SI 5=DI 6=disp16(mod 0)/BP+disp 7=BX.
func (c *CPU) effectiveAddr16(inst *x86asm.Instruction) farptr.FarPtr {
	var base uint16
	if inst.DirectRM {
		base = uint16(inst.Disp)
	} else {
		switch inst.RM {
		case 0:
			base = c.BX() + c.SI()
		case 1:
			base = c.BX() + c.DI()
		case 2:
			base = c.BP() + c.SI()
		case 3:
			base = c.BP() + c.DI()
		case 4:
			base = c.SI()
		case 5:
			base = c.DI()
		case 6:
			base = c.BP()
		case 7:
			base = c.BX()
		}
		base += uint16(inst.Disp)
	}
	seg := c.effectiveSeg(inst, usesBP16(inst))
	return farptr.New(seg, base)
}

// effectiveAddr32 implements 32-bit SIB-or-bare-register addressing. Only
// the base/index register combinations a 386-targeting compiler emits for
// flat data access within one segment are needed; the computed offset
// wraps into the segment the same way 16-bit addressing does.
func (c *CPU) effectiveAddr32(inst *x86asm.Instruction) farptr.FarPtr {
	var base uint32
	impliedSS := false
	if inst.HasSIB {
		if !(inst.Mod == 0 && inst.Base == 5) {
			base = c.reg32ByIndex(inst.Base)
			impliedSS = inst.Base&7 == 5 // EBP base
		}
		if inst.Index != 4 { // index==4 means "no index"
			base += c.reg32ByIndex(inst.Index) << inst.Scale
		}
	} else if inst.DirectRM {
		// mod==0, rm==5: disp32 only, no base register.
	} else {
		base = c.reg32ByIndex(inst.RM)
		impliedSS = inst.RM&7 == 5 // EBP
	}
	base += uint32(inst.Disp)
	seg := c.effectiveSeg(inst, impliedSS)
	return farptr.New(seg, uint16(base))
}
