package x86asm

// decodeOneByte fills inst for a single-byte opcode. It mirrors the
// source's opcode-table grouping (ALU block of eight opcodes followed by
// a PUSH/POP-segment pair, group 1/2/3/4/5 opcode-extension blocks keyed
// off the ModR/M reg field) but, unlike the source's per-opcode closures,
// produces one flat Instruction value rather than executing anything.
func (d *decoder) decodeOneByte(inst *Instruction, op byte) error {
	switch {
	case op <= 0x3D && op&7 <= 5 && (op>>3) <= 7 && op != 0x0F:
		return d.decodeAluGroup(inst, op)
	}

	switch op {
	case 0x06:
		inst.Mnemonic, inst.Reg = PushSeg, byte(SegES)
	case 0x07:
		inst.Mnemonic, inst.Reg = PopSeg, byte(SegES)
	case 0x0E:
		inst.Mnemonic, inst.Reg = PushSeg, byte(SegCS)
	case 0x16:
		inst.Mnemonic, inst.Reg = PushSeg, byte(SegSS)
	case 0x17:
		inst.Mnemonic, inst.Reg = PopSeg, byte(SegSS)
	case 0x1E:
		inst.Mnemonic, inst.Reg = PushSeg, byte(SegDS)
	case 0x1F:
		inst.Mnemonic, inst.Reg = PopSeg, byte(SegDS)

	case 0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47:
		inst.Mnemonic, inst.Reg = Inc, op-0x40
	case 0x48, 0x49, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F:
		inst.Mnemonic, inst.Reg = Dec, op-0x48
	case 0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57:
		inst.Mnemonic, inst.Reg = Push, op-0x50
	case 0x58, 0x59, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F:
		inst.Mnemonic, inst.Reg = Pop, op-0x58

	case 0x68:
		inst.Mnemonic = PushImm
		if !d.immWord(inst) {
			return ErrTruncated
		}
	case 0x6A:
		inst.Mnemonic = PushImm
		if !d.immByteSigned(inst) {
			return ErrTruncated
		}

	case 0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x77,
		0x78, 0x79, 0x7A, 0x7B, 0x7C, 0x7D, 0x7E, 0x7F:
		inst.Mnemonic = Jcc
		inst.Cond = CondCode(op & 0x0F)
		if !d.immByteSigned(inst) {
			return ErrTruncated
		}

	case 0x80:
		return d.decodeGroup1(inst, 1, false, true) // Eb, Ib
	case 0x81:
		return d.decodeGroup1(inst, 0, true, false) // Ev, Iz
	case 0x83:
		return d.decodeGroup1(inst, 1, false, false) // Ev, Ib sign-extended

	case 0x84:
		inst.Mnemonic = Test
		if !d.modrm(inst) {
			return ErrTruncated
		}
		inst.ImmSize = 1
	case 0x85:
		inst.Mnemonic = Test
		if !d.modrm(inst) {
			return ErrTruncated
		}
		inst.ImmSize = byte(inst.opWidth())
	case 0x86:
		inst.Mnemonic = Xchg
		inst.ImmSize = 1
		if !d.modrm(inst) {
			return ErrTruncated
		}
	case 0x87:
		inst.Mnemonic = Xchg
		inst.ImmSize = byte(inst.opWidth())
		if !d.modrm(inst) {
			return ErrTruncated
		}

	case 0x88:
		inst.Mnemonic, inst.ImmSize = Mov, 1
		if !d.modrm(inst) {
			return ErrTruncated
		}
		inst.Cond = 0 // Eb,Gb — writeback to RM, read Reg
	case 0x89:
		inst.Mnemonic, inst.ImmSize = Mov, byte(inst.opWidth())
		if !d.modrm(inst) {
			return ErrTruncated
		}
		inst.Cond = 0
	case 0x8A:
		inst.Mnemonic, inst.ImmSize = Mov, 1
		if !d.modrm(inst) {
			return ErrTruncated
		}
		inst.Cond = 1 // Gb,Eb — writeback to Reg, read RM
	case 0x8B:
		inst.Mnemonic, inst.ImmSize = Mov, byte(inst.opWidth())
		if !d.modrm(inst) {
			return ErrTruncated
		}
		inst.Cond = 1
	case 0x8C:
		inst.Mnemonic = MovSegRM
		inst.Cond = 0 // RM <- Sreg
		if !d.modrm(inst) {
			return ErrTruncated
		}
	case 0x8D:
		inst.Mnemonic = Lea
		if !d.modrm(inst) {
			return ErrTruncated
		}
	case 0x8E:
		inst.Mnemonic = MovSegRM
		inst.Cond = 1 // Sreg <- RM
		if !d.modrm(inst) {
			return ErrTruncated
		}
	case 0x8F:
		inst.Mnemonic = Pop
		inst.ImmSize = byte(inst.opWidth())
		if !d.modrm(inst) {
			return ErrTruncated
		}

	case 0x90:
		inst.Mnemonic = Nop
	case 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97:
		inst.Mnemonic, inst.Reg = Xchg, op-0x90
		inst.RM = 0 // AX/EAX
		inst.HasModRM = true
		inst.Mod = 3
	case 0x98:
		inst.Mnemonic = Cbw
	case 0x99:
		inst.Mnemonic = Cwd
	case 0x9A:
		inst.Mnemonic = CallFar
		off, ok := d.u16()
		if !ok {
			return ErrTruncated
		}
		if inst.OperandSize32 {
			hi, ok := d.u16()
			if !ok {
				return ErrTruncated
			}
			inst.FarOff = uint32(off) | uint32(hi)<<16
		} else {
			inst.FarOff = uint32(off)
		}
		seg, ok := d.u16()
		if !ok {
			return ErrTruncated
		}
		inst.FarSeg = seg
	case 0x9B:
		inst.Mnemonic = Wait
	case 0x9C:
		inst.Mnemonic = Pushf
	case 0x9D:
		inst.Mnemonic = Popf
	case 0x9E:
		inst.Mnemonic = Sahf
	case 0x9F:
		inst.Mnemonic = Lahf

	case 0xA0:
		inst.Mnemonic, inst.ImmSize, inst.Cond = MovMoffs, 1, 1
		if !d.immWord16Addr(inst) {
			return ErrTruncated
		}
	case 0xA1:
		inst.Mnemonic, inst.ImmSize, inst.Cond = MovMoffs, byte(inst.opWidth()), 1
		if !d.immWord16Addr(inst) {
			return ErrTruncated
		}
	case 0xA2:
		inst.Mnemonic, inst.ImmSize, inst.Cond = MovMoffs, 1, 0
		if !d.immWord16Addr(inst) {
			return ErrTruncated
		}
	case 0xA3:
		inst.Mnemonic, inst.ImmSize, inst.Cond = MovMoffs, byte(inst.opWidth()), 0
		if !d.immWord16Addr(inst) {
			return ErrTruncated
		}

	case 0xA4:
		inst.Mnemonic, inst.ImmSize = Movs, 1
	case 0xA5:
		inst.Mnemonic, inst.ImmSize = Movs, byte(inst.opWidth())
	case 0xA6:
		inst.Mnemonic, inst.ImmSize = Cmps, 1
	case 0xA7:
		inst.Mnemonic, inst.ImmSize = Cmps, byte(inst.opWidth())
	case 0xA8:
		inst.Mnemonic = Test
		inst.HasModRM, inst.Mod, inst.RM = true, 3, 0
		if !d.immByte(inst) {
			return ErrTruncated
		}
	case 0xA9:
		inst.Mnemonic = Test
		inst.HasModRM, inst.Mod, inst.RM = true, 3, 0
		if !d.immWord(inst) {
			return ErrTruncated
		}
	case 0xAA:
		inst.Mnemonic, inst.ImmSize = Stos, 1
	case 0xAB:
		inst.Mnemonic, inst.ImmSize = Stos, byte(inst.opWidth())
	case 0xAC:
		inst.Mnemonic, inst.ImmSize = Lods, 1
	case 0xAD:
		inst.Mnemonic, inst.ImmSize = Lods, byte(inst.opWidth())
	case 0xAE:
		inst.Mnemonic, inst.ImmSize = Scas, 1
	case 0xAF:
		inst.Mnemonic, inst.ImmSize = Scas, byte(inst.opWidth())

	case 0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6, 0xB7:
		inst.Mnemonic, inst.Reg = Mov, op-0xB0
		inst.Cond = 2 // immediate to reg8
		if !d.immByte(inst) {
			return ErrTruncated
		}
	case 0xB8, 0xB9, 0xBA, 0xBB, 0xBC, 0xBD, 0xBE, 0xBF:
		inst.Mnemonic, inst.Reg = Mov, op-0xB8
		inst.Cond = 3 // immediate to reg16/32
		if !d.immWord(inst) {
			return ErrTruncated
		}

	case 0xC0:
		return d.decodeGroup2(inst, 1, true)
	case 0xC1:
		return d.decodeGroup2(inst, byte(inst.opWidth()), true)
	case 0xC2:
		inst.Mnemonic = Ret
		w, ok := d.u16()
		if !ok {
			return ErrTruncated
		}
		inst.HasImm, inst.ImmSize, inst.Imm = true, 2, uint32(w)
	case 0xC3:
		inst.Mnemonic = Ret
	case 0xC6:
		inst.Mnemonic = Mov
		inst.Cond = 4 // immediate to Eb
		inst.ImmSize = 1
		if !d.modrm(inst) {
			return ErrTruncated
		}
		if !d.immByte(inst) {
			return ErrTruncated
		}
	case 0xC7:
		inst.Mnemonic = Mov
		inst.Cond = 5 // immediate to Ev
		inst.ImmSize = byte(inst.opWidth())
		if !d.modrm(inst) {
			return ErrTruncated
		}
		if !d.immWord(inst) {
			return ErrTruncated
		}
	case 0xC8:
		inst.Mnemonic = Enter
		w, ok := d.u16()
		if !ok {
			return ErrTruncated
		}
		b, ok := d.u8()
		if !ok {
			return ErrTruncated
		}
		inst.HasImm, inst.ImmSize, inst.Imm = true, 2, uint32(w)
		inst.FarOff = uint32(b)
	case 0xC9:
		inst.Mnemonic = Leave
	case 0xCA:
		inst.Mnemonic = RetFar
		w, ok := d.u16()
		if !ok {
			return ErrTruncated
		}
		inst.HasImm, inst.ImmSize, inst.Imm = true, 2, uint32(w)
	case 0xCB:
		inst.Mnemonic = RetFar
	case 0xCC:
		inst.Mnemonic = Int3
	case 0xCD:
		inst.Mnemonic = IntImm
		if !d.immByte(inst) {
			return ErrTruncated
		}

	case 0xD0:
		return d.decodeGroup2Const1(inst, 1)
	case 0xD1:
		return d.decodeGroup2Const1(inst, byte(inst.opWidth()))
	case 0xD2:
		return d.decodeGroup2CL(inst, 1)
	case 0xD3:
		return d.decodeGroup2CL(inst, byte(inst.opWidth()))
	case 0xD7:
		inst.Mnemonic = Xchg // XLAT reuses Xchg's "special" slot, see cpu package
		inst.Cond = 9

	case 0xD8, 0xD9, 0xDA, 0xDB, 0xDC, 0xDD, 0xDE, 0xDF:
		return d.decodeFpu(inst, op)

	case 0xE0:
		inst.Mnemonic = Loopne
		if !d.immByteSigned(inst) {
			return ErrTruncated
		}
	case 0xE1:
		inst.Mnemonic = Loope
		if !d.immByteSigned(inst) {
			return ErrTruncated
		}
	case 0xE2:
		inst.Mnemonic = Loop
		if !d.immByteSigned(inst) {
			return ErrTruncated
		}
	case 0xE3:
		inst.Mnemonic = Jcxz
		if !d.immByteSigned(inst) {
			return ErrTruncated
		}
	case 0xE4:
		inst.Mnemonic, inst.ImmSize = In, 1
		if !d.immByte(inst) {
			return ErrTruncated
		}
	case 0xE5:
		inst.Mnemonic, inst.ImmSize = In, byte(inst.opWidth())
		if !d.immByte(inst) {
			return ErrTruncated
		}
	case 0xE6:
		inst.Mnemonic, inst.ImmSize = Out, 1
		if !d.immByte(inst) {
			return ErrTruncated
		}
	case 0xE7:
		inst.Mnemonic, inst.ImmSize = Out, byte(inst.opWidth())
		if !d.immByte(inst) {
			return ErrTruncated
		}
	case 0xE8:
		inst.Mnemonic = Call
		if !d.immWord(inst) {
			return ErrTruncated
		}
	case 0xE9:
		inst.Mnemonic = Jmp
		if !d.immWord(inst) {
			return ErrTruncated
		}
	case 0xEA:
		inst.Mnemonic = JmpFar
		off, ok := d.u16()
		if !ok {
			return ErrTruncated
		}
		if inst.OperandSize32 {
			hi, ok := d.u16()
			if !ok {
				return ErrTruncated
			}
			inst.FarOff = uint32(off) | uint32(hi)<<16
		} else {
			inst.FarOff = uint32(off)
		}
		seg, ok := d.u16()
		if !ok {
			return ErrTruncated
		}
		inst.FarSeg = seg
	case 0xEB:
		inst.Mnemonic = Jmp
		if !d.immByteSigned(inst) {
			return ErrTruncated
		}
		inst.ImmSize = 1

	case 0xF4:
		inst.Mnemonic = Hlt
	case 0xF5:
		inst.Mnemonic = Cmc
	case 0xF6:
		return d.decodeGroup3(inst, 1)
	case 0xF7:
		return d.decodeGroup3(inst, byte(inst.opWidth()))
	case 0xF8:
		inst.Mnemonic = Clc
	case 0xF9:
		inst.Mnemonic = Stc
	case 0xFA:
		inst.Mnemonic = Cli
	case 0xFB:
		inst.Mnemonic = Sti
	case 0xFC:
		inst.Mnemonic = Cld
	case 0xFD:
		inst.Mnemonic = Std
	case 0xFE:
		return d.decodeGroup4(inst)
	case 0xFF:
		return d.decodeGroup5(inst)

	default:
		return ErrUndefined
	}
	return nil
}

// immWord16Addr reads the moffs operand for A0-A3: always address-sized
// (16-bit unless 0x67 is set), stored in Disp for the executor to combine
// with the segment.
func (d *decoder) immWord16Addr(inst *Instruction) bool {
	if inst.AddressSize32 {
		v, ok := d.u32()
		if !ok {
			return false
		}
		inst.Disp = int32(v)
		inst.DispSize = 4
		return true
	}
	v, ok := d.u16()
	if !ok {
		return false
	}
	inst.Disp = int32(v)
	inst.DispSize = 2
	return true
}

func (d *decoder) decodeAluGroup(inst *Instruction, op byte) error {
	inst.Mnemonic = AluOp
	inst.Alu = AluKind(op >> 3)
	form := op & 7
	switch form {
	case 0: // Eb, Gb
		inst.ImmSize = 1
		inst.Cond = 0
		if !d.modrm(inst) {
			return ErrTruncated
		}
	case 1: // Ev, Gv
		inst.ImmSize = byte(inst.opWidth())
		inst.Cond = 0
		if !d.modrm(inst) {
			return ErrTruncated
		}
	case 2: // Gb, Eb
		inst.ImmSize = 1
		inst.Cond = 1
		if !d.modrm(inst) {
			return ErrTruncated
		}
	case 3: // Gv, Ev
		inst.ImmSize = byte(inst.opWidth())
		inst.Cond = 1
		if !d.modrm(inst) {
			return ErrTruncated
		}
	case 4: // AL, Ib
		inst.ImmSize = 1
		inst.Cond = 2
		if !d.immByte(inst) {
			return ErrTruncated
		}
	case 5: // eAX, Iz
		inst.ImmSize = byte(inst.opWidth())
		inst.Cond = 2
		if !d.immWord(inst) {
			return ErrTruncated
		}
	}
	return nil
}

// decodeGroup1 handles opcodes 0x80/0x81/0x83 (ADD/OR/ADC/SBB/AND/SUB/XOR/CMP
// Eb-or-Ev, immediate), where the ALU operation is selected by the ModR/M
// reg field rather than by the opcode byte itself. forceByte marks 0x80,
// whose Eb destination stays byte-wide regardless of any 0x66 prefix; 0x83's
// Ib is sign-extended into Imm but ImmSize still reports the Ev destination
// width so the executor's RM access and the immediate use the same width.
func (d *decoder) decodeGroup1(inst *Instruction, immBytes byte, wordImm bool, forceByte bool) error {
	inst.Mnemonic = AluOp
	if !d.modrm(inst) {
		return ErrTruncated
	}
	inst.Alu = AluKind(inst.Reg)
	inst.Cond = 6 // Eb/Ev, immediate form
	if immBytes == 1 {
		if !d.immByteSigned(inst) {
			return ErrTruncated
		}
		if forceByte {
			inst.ImmSize = 1
		} else {
			inst.ImmSize = byte(inst.opWidth())
		}
	} else if wordImm {
		inst.ImmSize = byte(inst.opWidth())
		if !d.immWord(inst) {
			return ErrTruncated
		}
	}
	return nil
}

func shiftKindFromReg(reg byte) ShiftKind { return ShiftKind(reg) }

func (d *decoder) decodeGroup2(inst *Instruction, width byte, immediate bool) error {
	if !d.modrm(inst) {
		return ErrTruncated
	}
	inst.Mnemonic = ShiftOp
	inst.Shift = shiftKindFromReg(inst.Reg)
	inst.Cond = 2 // count in Ib
	if !d.immByte(inst) {
		return ErrTruncated
	}
	inst.ImmSize = width // immByte leaves ImmSize=1; restore the operand's real width
	return nil
}

func (d *decoder) decodeGroup2Const1(inst *Instruction, width byte) error {
	if !d.modrm(inst) {
		return ErrTruncated
	}
	inst.Mnemonic = ShiftOp
	inst.Shift = shiftKindFromReg(inst.Reg)
	inst.ImmSize = width
	inst.Cond = 0 // count == 1
	return nil
}

func (d *decoder) decodeGroup2CL(inst *Instruction, width byte) error {
	if !d.modrm(inst) {
		return ErrTruncated
	}
	inst.Mnemonic = ShiftOp
	inst.Shift = shiftKindFromReg(inst.Reg)
	inst.ImmSize = width
	inst.Cond = 1 // count in CL
	return nil
}

// decodeGroup3 handles TEST/NOT/NEG/MUL/IMUL/DIV/IDIV Eb-or-Ev, selected
// by the ModR/M reg field (0/1=TEST, 2=NOT, 3=NEG, 4=MUL, 5=IMUL, 6=DIV,
// 7=IDIV).
func (d *decoder) decodeGroup3(inst *Instruction, width byte) error {
	if !d.modrm(inst) {
		return ErrTruncated
	}
	inst.ImmSize = width
	switch inst.Reg {
	case 0, 1:
		inst.Mnemonic = Test
		if width == 1 {
			if !d.immByte(inst) {
				return ErrTruncated
			}
		} else if !d.immWord(inst) {
			return ErrTruncated
		}
	case 2:
		inst.Mnemonic = Not
	case 3:
		inst.Mnemonic = Neg
	case 4:
		inst.Mnemonic = Mul
	case 5:
		inst.Mnemonic = Imul
	case 6:
		inst.Mnemonic = Div
	case 7:
		inst.Mnemonic = Idiv
	}
	return nil
}

// decodeGroup4 handles INC/DEC Eb (reg field 0/1 only).
func (d *decoder) decodeGroup4(inst *Instruction) error {
	if !d.modrm(inst) {
		return ErrTruncated
	}
	inst.ImmSize = 1
	if inst.Reg == 0 {
		inst.Mnemonic = Inc
	} else {
		inst.Mnemonic = Dec
	}
	inst.Cond = 8 // memory/r8 form, not the 0x40-range register form
	return nil
}

// decodeGroup5 handles INC/DEC/CALL/JMP/PUSH Ev (reg field 0-6).
func (d *decoder) decodeGroup5(inst *Instruction) error {
	if !d.modrm(inst) {
		return ErrTruncated
	}
	inst.ImmSize = byte(inst.opWidth())
	switch inst.Reg {
	case 0:
		inst.Mnemonic, inst.Cond = Inc, 8
	case 1:
		inst.Mnemonic, inst.Cond = Dec, 8
	case 2:
		inst.Mnemonic = Call // near indirect through Ev
	case 3:
		inst.Mnemonic = CallFar // far indirect through memory Ep
	case 4:
		inst.Mnemonic = Jmp
		inst.Cond = 7 // near indirect through Ev
	case 5:
		inst.Mnemonic = JmpFar // far indirect through memory Ep
	case 6:
		inst.Mnemonic = Push
		inst.Cond = 7 // Ev form, not the 0x50-range register form
	default:
		return ErrUndefined
	}
	return nil
}

// decodeTwoByte handles the 0x0F-prefixed opcode map: Jcc near and the
// MOVZX/MOVSX forms, which are the only two-byte opcodes a Watcom/Borland
// 16-bit C compiler realistically emits for door-game modules.
func (d *decoder) decodeTwoByte(inst *Instruction, op2 byte) error {
	switch {
	case op2 >= 0x80 && op2 <= 0x8F:
		inst.Mnemonic = Jcc
		inst.Cond = CondCode(op2 & 0x0F)
		if !d.immWord(inst) {
			return ErrTruncated
		}
		return nil
	}
	switch op2 {
	case 0xB6:
		inst.Mnemonic, inst.Cond = Movzx, 0 // source width 1
		if !d.modrm(inst) {
			return ErrTruncated
		}
	case 0xB7:
		inst.Mnemonic, inst.Cond = Movzx, 1 // source width 2
		if !d.modrm(inst) {
			return ErrTruncated
		}
	case 0xBE:
		inst.Mnemonic, inst.Cond = Movsx, 0
		if !d.modrm(inst) {
			return ErrTruncated
		}
	case 0xBF:
		inst.Mnemonic, inst.Cond = Movsx, 1
		if !d.modrm(inst) {
			return ErrTruncated
		}
	default:
		return ErrUndefined
	}
	return nil
}
