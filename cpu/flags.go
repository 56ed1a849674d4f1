package cpu

func parity(v byte) bool {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v&1 == 0
}

// setFlagsArith8/16/32 set CF/ZF/SF/PF/OF/AF after an ALU add or subtract,
// taking the unclamped result so CF can read off the carry/borrow out of
// the operand width.
func (c *CPU) setFlagsArith8(result uint16, a, b byte, sub bool) {
	r := byte(result)
	c.SetFlag(FlagCF, result > 0xFF)
	c.SetFlag(FlagZF, r == 0)
	c.SetFlag(FlagSF, r&0x80 != 0)
	c.SetFlag(FlagPF, parity(r))
	if sub {
		c.SetFlag(FlagOF, (a^b)&(a^r)&0x80 != 0)
		c.SetFlag(FlagAF, a&0x0F < b&0x0F)
	} else {
		c.SetFlag(FlagOF, (^(a^b))&(a^r)&0x80 != 0)
		c.SetFlag(FlagAF, (a&0x0F)+(b&0x0F) > 0x0F)
	}
}

func (c *CPU) setFlagsArith16(result uint32, a, b uint16, sub bool) {
	r := uint16(result)
	c.SetFlag(FlagCF, result > 0xFFFF)
	c.SetFlag(FlagZF, r == 0)
	c.SetFlag(FlagSF, r&0x8000 != 0)
	c.SetFlag(FlagPF, parity(byte(r)))
	if sub {
		c.SetFlag(FlagOF, (a^b)&(a^r)&0x8000 != 0)
		c.SetFlag(FlagAF, a&0x0F < b&0x0F)
	} else {
		c.SetFlag(FlagOF, (^(a^b))&(a^r)&0x8000 != 0)
		c.SetFlag(FlagAF, (a&0x0F)+(b&0x0F) > 0x0F)
	}
}

func (c *CPU) setFlagsArith32(result uint64, a, b uint32, sub bool) {
	r := uint32(result)
	c.SetFlag(FlagCF, result > 0xFFFFFFFF)
	c.SetFlag(FlagZF, r == 0)
	c.SetFlag(FlagSF, r&0x80000000 != 0)
	c.SetFlag(FlagPF, parity(byte(r)))
	if sub {
		c.SetFlag(FlagOF, (a^b)&(a^r)&0x80000000 != 0)
		c.SetFlag(FlagAF, a&0x0F < b&0x0F)
	} else {
		c.SetFlag(FlagOF, (^(a^b))&(a^r)&0x80000000 != 0)
		c.SetFlag(FlagAF, (a&0x0F)+(b&0x0F) > 0x0F)
	}
}

func (c *CPU) setFlagsLogic8(result byte) {
	c.SetFlag(FlagCF, false)
	c.SetFlag(FlagOF, false)
	c.SetFlag(FlagZF, result == 0)
	c.SetFlag(FlagSF, result&0x80 != 0)
	c.SetFlag(FlagPF, parity(result))
}

func (c *CPU) setFlagsLogic16(result uint16) {
	c.SetFlag(FlagCF, false)
	c.SetFlag(FlagOF, false)
	c.SetFlag(FlagZF, result == 0)
	c.SetFlag(FlagSF, result&0x8000 != 0)
	c.SetFlag(FlagPF, parity(byte(result)))
}

func (c *CPU) setFlagsLogic32(result uint32) {
	c.SetFlag(FlagCF, false)
	c.SetFlag(FlagOF, false)
	c.SetFlag(FlagZF, result == 0)
	c.SetFlag(FlagSF, result&0x80000000 != 0)
	c.SetFlag(FlagPF, parity(byte(result)))
}

// setFlagsIncDec8/16/32 update ZF/SF/PF/AF/OF for INC/DEC, which (unlike
// ADD/SUB) leave CF untouched.
func (c *CPU) setFlagsIncDec8(result uint16, a byte, sub bool) {
	before := c.GetFlag(FlagCF)
	c.setFlagsArith8(result, a, 1, sub)
	c.SetFlag(FlagCF, before)
}

func (c *CPU) setFlagsIncDec16(result uint32, a uint16, sub bool) {
	before := c.GetFlag(FlagCF)
	c.setFlagsArith16(result, a, 1, sub)
	c.SetFlag(FlagCF, before)
}

func (c *CPU) setFlagsIncDec32(result uint64, a uint32, sub bool) {
	before := c.GetFlag(FlagCF)
	c.setFlagsArith32(result, a, 1, sub)
	c.SetFlag(FlagCF, before)
}
