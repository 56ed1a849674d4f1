package cpu

import (
	"github.com/mbbscore/emucore/farptr"
	"github.com/mbbscore/emucore/internal/x86asm"
	"github.com/mbbscore/emucore/memory"
)

// fpuBus adapts CPU's Memory (segment:offset addressed) to fpu.Bus (linear
// addr from an agreed-upon segment), so fpu.Stack's load/store helpers
// never need to know about far pointers.
type fpuBus struct {
	mem memory.Memory
	seg uint16
}

func (b fpuBus) ReadByte(addr uint32) byte {
	return b.mem.GetByte(farptr.New(b.seg, uint16(addr)))
}

func (b fpuBus) WriteByte(addr uint32, v byte) {
	b.mem.SetByte(farptr.New(b.seg, uint16(addr)), v)
}

// executeFpu dispatches one decoded x87 ESC instruction.
func (c *CPU) executeFpu(inst *x86asm.Instruction) {
	if inst.IsMemory {
		c.executeFpuMem(inst)
		return
	}
	c.executeFpuReg(inst)
}

func (c *CPU) executeFpuMem(inst *x86asm.Instruction) {
	addr := c.effectiveAddr(inst)
	bus := fpuBus{mem: c.Mem, seg: addr.Segment}
	off := uint32(addr.Offset)

	switch inst.Fpu {
	case x86asm.FFld:
		if inst.ImmSize == 8 {
			c.FPU.Push(c.FPU.LoadFloat64(bus, off))
		} else {
			c.FPU.Push(c.FPU.LoadFloat32(bus, off))
		}
	case x86asm.FFldInt:
		switch inst.ImmSize {
		case 2:
			c.FPU.Push(c.FPU.LoadInt16(bus, off))
		case 8:
			c.FPU.Push(c.FPU.LoadInt64(bus, off))
		default:
			c.FPU.Push(c.FPU.LoadInt32(bus, off))
		}
	case x86asm.FFst, x86asm.FFstp:
		if inst.ImmSize == 8 {
			c.FPU.StoreFloat64(bus, off, c.FPU.ST(0))
		} else {
			c.FPU.StoreFloat32(bus, off, c.FPU.ST(0))
		}
		if inst.Fpu == x86asm.FFstp {
			c.FPU.Pop()
		}
	case x86asm.FFistp:
		switch inst.ImmSize {
		case 2:
			c.FPU.StoreInt16(bus, off, c.FPU.ST(0))
		case 8:
			c.FPU.StoreInt64(bus, off, c.FPU.ST(0))
		default:
			c.FPU.StoreInt32(bus, off, c.FPU.ST(0))
		}
		c.FPU.Pop()
	case x86asm.FFadd, x86asm.FFsub, x86asm.FFsubr, x86asm.FFmul, x86asm.FFdiv, x86asm.FFdivr:
		var val float64
		if inst.ImmSize == 8 {
			val = c.FPU.LoadFloat64(bus, off)
		} else {
			val = c.FPU.LoadFloat32(bus, off)
		}
		c.FPU.SetST(0, fpuCombine(inst.Fpu, c.FPU.ST(0), val))
	case x86asm.FFcom, x86asm.FFcomp:
		var val float64
		if inst.ImmSize == 8 {
			val = c.FPU.LoadFloat64(bus, off)
		} else {
			val = c.FPU.LoadFloat32(bus, off)
		}
		c.FPU.DoCompare(c.FPU.ST(0), val, true)
		if inst.Fpu == x86asm.FFcomp {
			c.FPU.Pop()
		}
	case x86asm.FFldcw:
		c.FPU.FCW = bus.ReadByte(0) | uint16(bus.ReadByte(1))<<8
	case x86asm.FFstcw:
		v := c.FPU.FCW
		bus.WriteByte(0, byte(v))
		bus.WriteByte(1, byte(v>>8))
	case x86asm.FFstsw:
		v := c.FPU.FSW
		bus.WriteByte(0, byte(v))
		bus.WriteByte(1, byte(v>>8))
	}
}

func (c *CPU) executeFpuReg(inst *x86asm.Instruction) {
	i := int(inst.RM)
	switch inst.Fpu {
	case x86asm.FpuNone:
		// FNOP / FNINIT-adjacent no-ops fall through here.
	case x86asm.FFld:
		c.FPU.Push(c.FPU.ST(i))
	case x86asm.FFxch:
		a, b := c.FPU.ST(0), c.FPU.ST(i)
		c.FPU.SetST(0, b)
		c.FPU.SetST(i, a)
	case x86asm.FFchs:
		c.FPU.SetST(0, -c.FPU.ST(0))
	case x86asm.FFabs:
		v := c.FPU.ST(0)
		if v < 0 {
			v = -v
		}
		c.FPU.SetST(0, v)
	case x86asm.FFld1:
		c.FPU.Push(1)
	case x86asm.FFldz:
		c.FPU.Push(0)
	case x86asm.FFinit:
		c.FPU.Reset()
	case x86asm.FFstsw:
		v := c.FPU.FSW
		c.SetAH(byte(v >> 8))
		c.SetAL(byte(v))
	case x86asm.FFadd, x86asm.FFmul, x86asm.FFsub, x86asm.FFsubr, x86asm.FFdiv, x86asm.FFdivr:
		c.FPU.SetST(0, fpuCombine(inst.Fpu, c.FPU.ST(0), c.FPU.ST(i)))
	case x86asm.FFaddp, x86asm.FFmulp, x86asm.FFsubp, x86asm.FFsubrp, x86asm.FFdivp, x86asm.FFdivrp:
		kind := fpuPopVariantKind(inst.Fpu)
		c.FPU.SetST(i, fpuCombine(kind, c.FPU.ST(i), c.FPU.ST(0)))
		c.FPU.Pop()
	case x86asm.FFstp:
		c.FPU.SetST(i, c.FPU.ST(0))
		c.FPU.Pop()
	case x86asm.FFcomp:
		c.FPU.DoCompare(c.FPU.ST(0), c.FPU.ST(i), true)
		c.FPU.Pop()
	case x86asm.FFcompp:
		c.FPU.DoCompare(c.FPU.ST(0), c.FPU.ST(1), true)
		c.FPU.Pop()
		c.FPU.Pop()
	}
}

// fpuCombine applies one non-"p" arithmetic kind to (dest, operand).
func fpuCombine(kind x86asm.FpuOp, a, b float64) float64 {
	switch kind {
	case x86asm.FFadd:
		return a + b
	case x86asm.FFmul:
		return a * b
	case x86asm.FFsub:
		return a - b
	case x86asm.FFsubr:
		return b - a
	case x86asm.FFdiv:
		return a / b
	case x86asm.FFdivr:
		return b / a
	default:
		return a
	}
}

// fpuPopVariantKind maps a "p" (pop) arithmetic FpuOp to the equivalent
// non-pop kind fpuCombine knows how to evaluate.
func fpuPopVariantKind(op x86asm.FpuOp) x86asm.FpuOp {
	switch op {
	case x86asm.FFaddp:
		return x86asm.FFadd
	case x86asm.FFmulp:
		return x86asm.FFmul
	case x86asm.FFsubp:
		return x86asm.FFsub
	case x86asm.FFsubrp:
		return x86asm.FFsubr
	case x86asm.FFdivp:
		return x86asm.FFdiv
	case x86asm.FFdivrp:
		return x86asm.FFdivr
	default:
		return op
	}
}
