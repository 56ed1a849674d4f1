package cpu

import (
	"github.com/mbbscore/emucore/fpu"
	"github.com/mbbscore/emucore/internal/x86asm"
)

// execute dispatches one decoded instruction. branched reports whether the
// instruction already set c.IP itself (a jump/call/return/loop), so Tick
// knows not to overwrite it with nextIP.
func (c *CPU) execute(inst *x86asm.Instruction, nextIP uint16) (hostCall *HostCall, branched bool, fault *Fault) {
	switch inst.Mnemonic {
	case x86asm.Mov:
		c.execMov(inst)

	case x86asm.MovSegRM:
		if inst.Cond == 0 {
			c.writeRM(inst, 2, uint32(c.segByIndex(int8(inst.Reg))))
		} else {
			c.setSegByIndex(int8(inst.Reg), uint16(c.readRM(inst, 2)))
		}

	case x86asm.MovMoffs:
		c.execMovMoffs(inst)

	case x86asm.Push:
		c.execPush(inst)
	case x86asm.PushImm:
		c.pushWord(inst, inst.Imm)
	case x86asm.PushSeg:
		c.push16(c.segByIndex(int8(inst.Reg)))
	case x86asm.Pop:
		c.execPop(inst)
	case x86asm.PopSeg:
		c.setSegByIndex(int8(inst.Reg), c.pop16())

	case x86asm.Lea:
		addr := c.effectiveAddr(inst)
		c.writeReg(inst, opWidth(inst), uint32(addr.Offset))

	case x86asm.Xchg:
		c.execXchg(inst)

	case x86asm.In:
		c.log.Debugw("IN from unmodeled port", "port", inst.Imm)
		switch inst.ImmSize {
		case 1:
			c.SetAL(0)
		case 2:
			c.SetAX(0)
		default:
			c.EAX = 0
		}
	case x86asm.Out:
		c.log.Debugw("OUT to unmodeled port", "port", inst.Imm)

	case x86asm.AluOp:
		c.execAlu(inst)

	case x86asm.Inc, x86asm.Dec:
		c.execIncDec(inst)

	case x86asm.Test:
		width := inst.ImmSize
		a := c.readRM(inst, width)
		var b uint32
		if inst.HasImm {
			b = inst.Imm
		} else {
			b = c.readReg(inst, width)
		}
		c.aluCompute(width, x86asm.AluAnd, a, b)

	case x86asm.Not:
		width := inst.ImmSize
		r := ^c.readRM(inst, width) & widthMask(width)
		c.writeRM(inst, width, r)

	case x86asm.Neg:
		width := inst.ImmSize
		r := c.negate(width, c.readRM(inst, width))
		c.writeRM(inst, width, r)

	case x86asm.Mul:
		c.execMul(inst)
	case x86asm.Imul:
		c.execImul(inst)
	case x86asm.Div:
		if f := c.execDiv(inst); f != nil {
			return nil, false, f
		}
	case x86asm.Idiv:
		if f := c.execIdiv(inst); f != nil {
			return nil, false, f
		}

	case x86asm.ShiftOp:
		c.execShift(inst)

	case x86asm.Cbw:
		if inst.OperandSize32 {
			c.EAX = uint32(int32(int16(c.AX())))
		} else {
			c.SetAX(uint16(int16(int8(c.AL()))))
		}
	case x86asm.Cwd:
		if inst.OperandSize32 {
			if int32(c.EAX) < 0 {
				c.EDX = 0xFFFFFFFF
			} else {
				c.EDX = 0
			}
		} else {
			if int16(c.AX()) < 0 {
				c.SetDX(0xFFFF)
			} else {
				c.SetDX(0)
			}
		}

	case x86asm.Movsx, x86asm.Movzx:
		c.execMovxx(inst)

	case x86asm.Jmp:
		if inst.Cond == 7 {
			c.IP = uint16(c.readRM(inst, opWidth(inst)))
		} else {
			c.IP = nextIP + uint16(inst.Imm)
		}
		branched = true

	case x86asm.JmpFar:
		seg, off := c.resolveFarTarget(inst)
		c.CS, c.IP = seg, off
		branched = true
		if c.isImported(seg) {
			hostCall = &HostCall{Segment: seg, Offset: off, IsJump: true}
		}

	case x86asm.Call:
		var target uint16
		if inst.HasModRM {
			target = uint16(c.readRM(inst, opWidth(inst)))
		} else {
			target = nextIP + uint16(inst.Imm)
		}
		c.pushWord(inst, uint32(nextIP))
		c.IP = target
		branched = true

	case x86asm.CallFar:
		seg, off := c.resolveFarTarget(inst)
		c.push16(c.CS)
		c.push16(nextIP)
		c.CS, c.IP = seg, off
		branched = true
		if c.isImported(seg) {
			hostCall = &HostCall{Segment: seg, Offset: off}
		}

	case x86asm.Ret:
		off := c.pop16()
		if inst.HasImm {
			c.SetSP(c.SP() + uint16(inst.Imm))
		}
		c.IP = off
		branched = true

	case x86asm.RetFar:
		off := c.pop16()
		seg := c.pop16()
		if inst.HasImm {
			c.SetSP(c.SP() + uint16(inst.Imm))
		}
		c.CS, c.IP = seg, off
		branched = true

	case x86asm.Jcc:
		if c.condTrue(inst.Cond) {
			c.IP = nextIP + uint16(inst.Imm)
		} else {
			c.IP = nextIP
		}
		branched = true

	case x86asm.Loop, x86asm.Loope, x86asm.Loopne:
		c.SetCX(c.CX() - 1)
		take := c.CX() != 0
		switch inst.Mnemonic {
		case x86asm.Loope:
			take = take && c.GetFlag(FlagZF)
		case x86asm.Loopne:
			take = take && !c.GetFlag(FlagZF)
		}
		if take {
			c.IP = nextIP + uint16(inst.Imm)
		} else {
			c.IP = nextIP
		}
		branched = true

	case x86asm.Jcxz:
		if c.CX() == 0 {
			c.IP = nextIP + uint16(inst.Imm)
		} else {
			c.IP = nextIP
		}
		branched = true

	case x86asm.Clc:
		c.SetFlag(FlagCF, false)
	case x86asm.Stc:
		c.SetFlag(FlagCF, true)
	case x86asm.Cmc:
		c.SetFlag(FlagCF, !c.GetFlag(FlagCF))
	case x86asm.Cld:
		c.SetFlag(FlagDF, false)
	case x86asm.Std:
		c.SetFlag(FlagDF, true)
	case x86asm.Cli:
		c.SetFlag(FlagIF, false)
	case x86asm.Sti:
		c.SetFlag(FlagIF, true)

	case x86asm.Pushf:
		c.push16(c.Flags)
	case x86asm.Popf:
		c.Flags = c.pop16()
	case x86asm.Lahf:
		c.SetAH(byte(c.Flags) | 0x02)
	case x86asm.Sahf:
		c.Flags = (c.Flags &^ 0x00D5) | (uint16(c.AH()) & 0x00D5)

	case x86asm.Nop:
	case x86asm.Hlt:
		c.Halted = true
	case x86asm.Wait:

	case x86asm.Enter:
		frameSize := uint16(inst.Imm)
		c.push16(c.BP())
		c.SetBP(c.SP())
		c.SetSP(c.SP() - frameSize)
	case x86asm.Leave:
		c.SetSP(c.BP())
		c.SetBP(c.pop16())

	case x86asm.Movs, x86asm.Cmps, x86asm.Scas, x86asm.Lods, x86asm.Stos:
		c.executeString(inst)

	case x86asm.Int3:
		c.log.Debugw("INT3 encountered; no debug-trap handling modeled")
	case x86asm.IntImm:
		c.log.Debugw("software interrupt not modeled", "vector", inst.Imm)

	case x86asm.Fpu:
		hadStackFault := c.FPU.FSW&fpu.SWStackFault != 0
		c.executeFpu(inst)
		if !hadStackFault && c.FPU.FSW&fpu.SWStackFault != 0 {
			if c.FPU.FSW&fpu.SWC1 != 0 {
				return nil, false, c.newFault(CodeFPUStackOverflow, "FPU stack overflow", inst.RawBytes)
			}
			return nil, false, c.newFault(CodeFPUStackUnderflow, "FPU stack underflow", inst.RawBytes)
		}

	default:
		return nil, false, c.newFault(CodeDecodeError, "unhandled mnemonic", inst.RawBytes)
	}
	return hostCall, branched, nil
}

func (c *CPU) execMov(inst *x86asm.Instruction) {
	width := inst.ImmSize
	switch inst.Cond {
	case 0:
		c.writeRM(inst, width, c.readReg(inst, width))
	case 1:
		c.writeReg(inst, width, c.readRM(inst, width))
	case 2:
		c.setReg8ByIndex(inst.Reg, byte(inst.Imm))
	case 3:
		if width == 4 {
			c.setReg32ByIndex(inst.Reg, inst.Imm)
		} else {
			c.setReg16ByIndex(inst.Reg, uint16(inst.Imm))
		}
	case 4:
		c.writeRM(inst, 1, inst.Imm)
	case 5:
		c.writeRM(inst, width, inst.Imm)
	}
}

func (c *CPU) execMovMoffs(inst *x86asm.Instruction) {
	width := inst.ImmSize
	seg := c.effectiveSeg(inst, false)
	addr := far(seg, uint16(inst.Disp))
	if inst.Cond == 1 {
		c.setAccumulator(width, c.readWidth(addr, width))
	} else {
		c.writeWidth(addr, width, c.accumulator(width))
	}
}

func (c *CPU) execPush(inst *x86asm.Instruction) {
	if inst.HasModRM {
		c.pushWord(inst, c.readRM(inst, inst.ImmSize))
		return
	}
	w := opWidth(inst)
	var v uint32
	if w == 4 {
		v = c.reg32ByIndex(inst.Reg)
	} else {
		v = uint32(c.reg16ByIndex(inst.Reg))
	}
	c.pushWord(inst, v)
}

func (c *CPU) execPop(inst *x86asm.Instruction) {
	if inst.HasModRM {
		v := c.popWord(inst)
		c.writeRM(inst, inst.ImmSize, v)
		return
	}
	w := opWidth(inst)
	v := c.popWord(inst)
	if w == 4 {
		c.setReg32ByIndex(inst.Reg, v)
	} else {
		c.setReg16ByIndex(inst.Reg, uint16(v))
	}
}

func (c *CPU) execXchg(inst *x86asm.Instruction) {
	if inst.Cond == 9 {
		seg := c.effectiveSeg(inst, false)
		addr := far(seg, c.BX()+uint16(c.AL()))
		c.SetAL(c.Mem.GetByte(addr))
		return
	}
	width := inst.ImmSize
	if width == 0 {
		width = opWidth(inst)
	}
	a := c.readRM(inst, width)
	b := c.readReg(inst, width)
	c.writeRM(inst, width, b)
	c.writeReg(inst, width, a)
}

func (c *CPU) execAlu(inst *x86asm.Instruction) {
	width := inst.ImmSize
	var dstIsRM bool
	var a, b uint32
	switch inst.Cond {
	case 0:
		a, b, dstIsRM = c.readRM(inst, width), c.readReg(inst, width), true
	case 1:
		a, b = c.readReg(inst, width), c.readRM(inst, width)
	case 2, 6:
		a, b, dstIsRM = c.readRM(inst, width), inst.Imm, true
	}
	r := c.aluCompute(width, inst.Alu, a, b)
	if inst.Alu == x86asm.AluCmp {
		return
	}
	if dstIsRM {
		c.writeRM(inst, width, r)
	} else {
		c.writeReg(inst, width, r)
	}
}

func (c *CPU) execIncDec(inst *x86asm.Instruction) {
	dec := inst.Mnemonic == x86asm.Dec
	if inst.Cond == 8 {
		width := inst.ImmSize
		r := c.incDec(width, c.readRM(inst, width), dec)
		c.writeRM(inst, width, r)
		return
	}
	width := opWidth(inst)
	var a uint32
	if width == 4 {
		a = c.reg32ByIndex(inst.Reg)
	} else {
		a = uint32(c.reg16ByIndex(inst.Reg))
	}
	r := c.incDec(width, a, dec)
	if width == 4 {
		c.setReg32ByIndex(inst.Reg, r)
	} else {
		c.setReg16ByIndex(inst.Reg, uint16(r))
	}
}

func (c *CPU) execMul(inst *x86asm.Instruction) {
	width := inst.ImmSize
	src := c.readRM(inst, width)
	switch width {
	case 1:
		res := uint16(c.AL()) * uint16(byte(src))
		c.SetAX(res)
		hi := res>>8 != 0
		c.SetFlag(FlagCF, hi)
		c.SetFlag(FlagOF, hi)
	case 2:
		res := uint32(c.AX()) * uint32(uint16(src))
		c.SetAX(uint16(res))
		c.SetDX(uint16(res >> 16))
		hi := uint16(res>>16) != 0
		c.SetFlag(FlagCF, hi)
		c.SetFlag(FlagOF, hi)
	default:
		res := uint64(c.EAX) * uint64(src)
		c.EAX = uint32(res)
		c.EDX = uint32(res >> 32)
		hi := uint32(res>>32) != 0
		c.SetFlag(FlagCF, hi)
		c.SetFlag(FlagOF, hi)
	}
}

func (c *CPU) execImul(inst *x86asm.Instruction) {
	width := inst.ImmSize
	src := c.readRM(inst, width)
	switch width {
	case 1:
		res := int16(int8(c.AL())) * int16(int8(byte(src)))
		c.SetAX(uint16(res))
		fits := res == int16(int8(byte(res)))
		c.SetFlag(FlagCF, !fits)
		c.SetFlag(FlagOF, !fits)
	case 2:
		res := int32(int16(c.AX())) * int32(int16(uint16(src)))
		c.SetAX(uint16(res))
		c.SetDX(uint16(uint32(res) >> 16))
		fits := res == int32(int16(uint16(res)))
		c.SetFlag(FlagCF, !fits)
		c.SetFlag(FlagOF, !fits)
	default:
		res := int64(int32(c.EAX)) * int64(int32(src))
		c.EAX = uint32(res)
		c.EDX = uint32(uint64(res) >> 32)
		fits := res == int64(int32(uint32(res)))
		c.SetFlag(FlagCF, !fits)
		c.SetFlag(FlagOF, !fits)
	}
}

func (c *CPU) execDiv(inst *x86asm.Instruction) *Fault {
	width := inst.ImmSize
	src := c.readRM(inst, width)
	switch width {
	case 1:
		divisor := uint16(byte(src))
		if divisor == 0 {
			return c.newFault(CodeDivideByZero, "byte division by zero", inst.RawBytes)
		}
		dividend := c.AX()
		q, r := dividend/divisor, dividend%divisor
		if q > 0xFF {
			return c.newFault(CodeDivideByZero, "byte division overflow", inst.RawBytes)
		}
		c.SetAL(byte(q))
		c.SetAH(byte(r))
	case 2:
		divisor := uint32(uint16(src))
		if divisor == 0 {
			return c.newFault(CodeDivideByZero, "word division by zero", inst.RawBytes)
		}
		dividend := uint32(c.DX())<<16 | uint32(c.AX())
		q, r := dividend/divisor, dividend%divisor
		if q > 0xFFFF {
			return c.newFault(CodeDivideByZero, "word division overflow", inst.RawBytes)
		}
		c.SetAX(uint16(q))
		c.SetDX(uint16(r))
	default:
		divisor := uint64(src)
		if divisor == 0 {
			return c.newFault(CodeDivideByZero, "dword division by zero", inst.RawBytes)
		}
		dividend := uint64(c.EDX)<<32 | uint64(c.EAX)
		q, r := dividend/divisor, dividend%divisor
		if q > 0xFFFFFFFF {
			return c.newFault(CodeDivideByZero, "dword division overflow", inst.RawBytes)
		}
		c.EAX = uint32(q)
		c.EDX = uint32(r)
	}
	return nil
}

func (c *CPU) execIdiv(inst *x86asm.Instruction) *Fault {
	width := inst.ImmSize
	src := c.readRM(inst, width)
	switch width {
	case 1:
		divisor := int16(int8(byte(src)))
		if divisor == 0 {
			return c.newFault(CodeDivideByZero, "byte division by zero", inst.RawBytes)
		}
		dividend := int16(c.AX())
		q, r := dividend/divisor, dividend%divisor
		if q < -128 || q > 127 {
			return c.newFault(CodeDivideByZero, "byte division overflow", inst.RawBytes)
		}
		c.SetAL(byte(int8(q)))
		c.SetAH(byte(int8(r)))
	case 2:
		divisor := int32(int16(uint16(src)))
		if divisor == 0 {
			return c.newFault(CodeDivideByZero, "word division by zero", inst.RawBytes)
		}
		dividend := int32(uint32(c.DX())<<16 | uint32(c.AX()))
		q, r := dividend/divisor, dividend%divisor
		if q < -32768 || q > 32767 {
			return c.newFault(CodeDivideByZero, "word division overflow", inst.RawBytes)
		}
		c.SetAX(uint16(int16(q)))
		c.SetDX(uint16(int16(r)))
	default:
		divisor := int64(int32(src))
		if divisor == 0 {
			return c.newFault(CodeDivideByZero, "dword division by zero", inst.RawBytes)
		}
		dividend := int64(uint64(c.EDX)<<32 | uint64(c.EAX))
		q, r := dividend/divisor, dividend%divisor
		if q < -2147483648 || q > 2147483647 {
			return c.newFault(CodeDivideByZero, "dword division overflow", inst.RawBytes)
		}
		c.EAX = uint32(int32(q))
		c.EDX = uint32(int32(r))
	}
	return nil
}

func (c *CPU) execShift(inst *x86asm.Instruction) {
	width := inst.ImmSize
	var count byte
	switch inst.Cond {
	case 0:
		count = 1
	case 1:
		count = c.CL() & 0x1F
	case 2:
		count = byte(inst.Imm) & 0x1F
	}
	a := c.readRM(inst, width)
	r := c.shiftCompute(width, inst.Shift, a, count)
	if count != 0 {
		c.writeRM(inst, width, r)
	}
}

func (c *CPU) execMovxx(inst *x86asm.Instruction) {
	var srcWidth byte = 2
	if inst.Cond == 0 {
		srcWidth = 1
	}
	destWidth := opWidth(inst)
	v := c.readRM(inst, srcWidth)
	if inst.Mnemonic == x86asm.Movsx {
		v = signExtend(v, srcWidth)
	}
	c.writeReg(inst, destWidth, v)
}
