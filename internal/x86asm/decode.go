package x86asm

import "errors"

// ErrTruncated is returned when an instruction's encoding runs past the end
// of the supplied byte slice (e.g. a segment ending mid-instruction).
var ErrTruncated = errors.New("x86asm: instruction truncated at segment end")

// ErrUndefined is returned for opcodes this decoder does not recognize.
// cpu.CPU turns this into a fatal DecodeError fault per spec; the memory
// instruction cache's linear decode stops at the failing IP and stores
// nothing there, so a later fetch of that IP retries via recompile
// (spec.md §4.1 Design Notes).
var ErrUndefined = errors.New("x86asm: undefined or unsupported opcode")

type decoder struct {
	code []byte
	pos  int
	ip   uint16
}

func (d *decoder) u8() (byte, bool) {
	if d.pos >= len(d.code) {
		return 0, false
	}
	b := d.code[d.pos]
	d.pos++
	return b, true
}

func (d *decoder) u16() (uint16, bool) {
	lo, ok := d.u8()
	if !ok {
		return 0, false
	}
	hi, ok := d.u8()
	if !ok {
		return 0, false
	}
	return uint16(lo) | uint16(hi)<<8, true
}

func (d *decoder) u32() (uint32, bool) {
	lo, ok := d.u16()
	if !ok {
		return 0, false
	}
	hi, ok := d.u16()
	if !ok {
		return 0, false
	}
	return uint32(lo) | uint32(hi)<<16, true
}

// Decode decodes one instruction starting at ip within code. code is the
// full segment byte buffer; ip indexes into it. The returned Instruction's
// Length is always >= 1 on success.
func Decode(code []byte, ip uint16) (Instruction, error) {
	d := &decoder{code: code, pos: int(ip), ip: ip}

	inst := Instruction{IP: ip, SegOverride: SegNone}

	// Legacy prefixes, in any order, LOCK ignored (single-threaded core).
prefixLoop:
	for {
		b, ok := d.u8()
		if !ok {
			return Instruction{}, ErrTruncated
		}
		switch b {
		case 0x26:
			inst.SegOverride = SegES
		case 0x2E:
			inst.SegOverride = SegCS
		case 0x36:
			inst.SegOverride = SegSS
		case 0x3E:
			inst.SegOverride = SegDS
		case 0x64:
			inst.SegOverride = SegFS
		case 0x65:
			inst.SegOverride = SegGS
		case 0x66:
			inst.OperandSize32 = true
		case 0x67:
			inst.AddressSize32 = true
		case 0xF0: // LOCK
			// no-op: this core is single-threaded per guest context
		case 0xF2:
			inst.Rep = RepNZ
		case 0xF3:
			inst.Rep = RepZ
		default:
			d.pos--
			break prefixLoop
		}
	}

	op, ok := d.u8()
	if !ok {
		return Instruction{}, ErrTruncated
	}
	inst.RawOpcode = op

	var err error
	if op == 0x0F {
		op2, ok := d.u8()
		if !ok {
			return Instruction{}, ErrTruncated
		}
		inst.TwoByte = true
		inst.RawOpcode = op2
		err = d.decodeTwoByte(&inst, op2)
	} else {
		err = d.decodeOneByte(&inst, op)
	}
	if err != nil {
		return Instruction{}, err
	}

	inst.Length = uint16(d.pos - int(ip))
	inst.RawBytes = append([]byte(nil), code[ip:d.pos]...)
	return inst, nil
}

// modrm fetches and decodes the ModR/M byte (and SIB/displacement, for
// 32-bit addressing) into inst. It must only be called once per
// instruction; repeated operand references reuse the already-decoded
// fields, mirroring how the source caches a single fetched ModR/M byte
// per instruction rather than re-reading it.
func (d *decoder) modrm(inst *Instruction) bool {
	if inst.HasModRM {
		return true
	}
	b, ok := d.u8()
	if !ok {
		return false
	}
	inst.HasModRM = true
	inst.Mod = (b >> 6) & 3
	inst.Reg = (b >> 3) & 7
	inst.RM = b & 7

	if inst.Mod == 3 {
		inst.IsMemory = false
		return true
	}
	inst.IsMemory = true

	if inst.AddressSize32 {
		return d.modrm32(inst)
	}
	return d.modrm16(inst)
}

func (d *decoder) modrm16(inst *Instruction) bool {
	if inst.Mod == 0 && inst.RM == 6 {
		inst.DirectRM = true
		disp, ok := d.u16()
		if !ok {
			return false
		}
		inst.DispSize = 2
		inst.Disp = int32(int16(disp))
		return true
	}
	switch inst.Mod {
	case 1:
		b, ok := d.u8()
		if !ok {
			return false
		}
		inst.DispSize = 1
		inst.Disp = int32(int8(b))
	case 2:
		w, ok := d.u16()
		if !ok {
			return false
		}
		inst.DispSize = 2
		inst.Disp = int32(int16(w))
	}
	return true
}

func (d *decoder) modrm32(inst *Instruction) bool {
	if inst.RM == 4 {
		sib, ok := d.u8()
		if !ok {
			return false
		}
		inst.HasSIB = true
		inst.Scale = (sib >> 6) & 3
		inst.Index = (sib >> 3) & 7
		inst.Base = sib & 7
		if inst.Mod == 0 && inst.Base == 5 {
			disp, ok := d.u32()
			if !ok {
				return false
			}
			inst.DirectRM = true
			inst.DispSize = 4
			inst.Disp = int32(disp)
		}
	} else if inst.Mod == 0 && inst.RM == 5 {
		disp, ok := d.u32()
		if !ok {
			return false
		}
		inst.DirectRM = true
		inst.DispSize = 4
		inst.Disp = int32(disp)
	}
	switch inst.Mod {
	case 1:
		b, ok := d.u8()
		if !ok {
			return false
		}
		inst.DispSize = 1
		inst.Disp = int32(int8(b))
	case 2:
		w, ok := d.u32()
		if !ok {
			return false
		}
		inst.DispSize = 4
		inst.Disp = int32(w)
	}
	return true
}

// opWidth returns the width, in bytes, of an immediate/displacement of
// "word" (Iz/Iv) shape given the current operand-size prefix state.
func (inst *Instruction) opWidth() int {
	if inst.OperandSize32 {
		return 4
	}
	return 2
}

func (d *decoder) immWord(inst *Instruction) bool {
	inst.HasImm = true
	if inst.opWidth() == 4 {
		v, ok := d.u32()
		if !ok {
			return false
		}
		inst.ImmSize = 4
		inst.Imm = v
		return true
	}
	v, ok := d.u16()
	if !ok {
		return false
	}
	inst.ImmSize = 2
	inst.Imm = uint32(v)
	return true
}

func (d *decoder) immByte(inst *Instruction) bool {
	v, ok := d.u8()
	if !ok {
		return false
	}
	inst.HasImm = true
	inst.ImmSize = 1
	inst.Imm = uint32(v)
	return true
}

func (d *decoder) immByteSigned(inst *Instruction) bool {
	v, ok := d.u8()
	if !ok {
		return false
	}
	inst.HasImm = true
	inst.ImmSize = 1
	inst.Imm = uint32(uint32(int32(int8(v))))
	return true
}

func boolErr(ok bool) error {
	if ok {
		return nil
	}
	return ErrTruncated
}
