// Package x86asm decodes 16-bit real-mode x86 instructions (with the 32-bit
// operand/address-size extensions DOS-era 386 code uses) into a flat
// Instruction value. It performs no execution and touches no CPU or Memory
// state — memory.Segmented/memory.RealMode call Decode once per code byte
// range to populate their per-segment instruction cache, and cpu.CPU
// executes the cached Instruction values it gets back.
package x86asm

// Mnemonic identifies the decoded operation. Operand shape (register vs
// memory, immediate size, which ALU/shift variant) lives on the
// Instruction itself rather than as separate Mnemonic values, the same way
// the source groups e.g. all eight ALU ops behind one ModRM-plus-opcode
// shape.
type Mnemonic uint8

const (
	Undefined Mnemonic = iota
	Mov
	MovSegRM // MOV to/from a segment register (8C/8E)
	MovMoffs // MOV AL/AX, moffs and reverse (A0-A3)
	Push
	PushImm
	PushSeg
	Pop
	PopSeg
	Lea
	Xchg
	In
	Out
	AluOp // ADD/OR/ADC/SBB/AND/SUB/XOR/CMP, selected by AluKind
	Inc
	Dec
	Test
	Not
	Neg
	Mul
	Imul
	Div
	Idiv
	ShiftOp // SHL/SHR/SAR/ROL/ROR/RCL/RCR, selected by ShiftKind
	Cbw
	Cwd
	Movsx
	Movzx
	Jmp
	JmpFar
	Call
	CallFar
	Ret
	RetFar
	Jcc
	Loop
	Loope
	Loopne
	Jcxz
	Clc
	Stc
	Cmc
	Cld
	Std
	Cli
	Sti
	Pushf
	Popf
	Lahf
	Sahf
	Nop
	Hlt
	Wait
	Enter
	Leave
	Movs
	Cmps
	Scas
	Lods
	Stos
	Int3
	IntImm
	Fpu // x87 ESC opcode, selected by FpuOp
)

// AluKind distinguishes the eight ALU operations that share encoding shape.
type AluKind uint8

const (
	AluAdd AluKind = iota
	AluOr
	AluAdc
	AluSbb
	AluAnd
	AluSub
	AluXor
	AluCmp
)

// ShiftKind distinguishes the eight group-2 shift/rotate operations.
type ShiftKind uint8

const (
	ShlRol ShiftKind = iota
	ShlRor
	ShlRcl
	ShlRcr
	ShlShl
	ShlShr
	ShlSalUnused // reg field 6 is an alias of SHL on real hardware
	ShlSar
)

// FpuOp enumerates the x87 operations this core implements. Only the
// subset a MAJORBBS-era module realistically emits is decoded; anything
// else decodes as Undefined so the CPU reports a DecodeError instead of
// silently misbehaving.
type FpuOp uint8

const (
	FpuNone FpuOp = iota
	FFld
	FFldInt
	FFst
	FFstp
	FFistp
	FFadd
	FFaddp
	FFsub
	FFsubr
	FFsubp
	FFsubrp
	FFmul
	FFmulp
	FFdiv
	FFdivr
	FFdivp
	FFdivrp
	FFcom
	FFcomp
	FFcompp
	FFchs
	FFabs
	FFldz
	FFld1
	FFxch
	FFinit
	FFstsw
	FFstcw
	FFldcw
)

// SegOverride identifies the segment-override prefix, if any.
type SegOverride int8

const (
	SegNone SegOverride = -1
	SegES   SegOverride = 0
	SegCS   SegOverride = 1
	SegSS   SegOverride = 2
	SegDS   SegOverride = 3
	SegFS   SegOverride = 4
	SegGS   SegOverride = 5
)

// RepPrefix identifies the string-instruction repeat prefix.
type RepPrefix uint8

const (
	RepNone RepPrefix = iota
	RepZ              // F3, REP/REPE/REPZ
	RepNZ             // F2, REPNE/REPNZ
)

// CondCode is the low nibble of a Jcc opcode (0x70-0x7F / 0x0F80-0x0F8F),
// identifying which flag combination is tested.
type CondCode uint8

// Instruction is the fully decoded, self-contained form of one x86
// instruction: everything cpu.CPU's executor needs without re-reading memory,
// and everything Memory's instruction cache needs to store by IP.
type Instruction struct {
	IP     uint16 // instruction pointer of the first opcode byte
	Length uint16 // total encoded length including prefixes

	Mnemonic Mnemonic
	Alu      AluKind
	Shift    ShiftKind
	Fpu      FpuOp
	Cond     CondCode

	OperandSize32 bool // 0x66 toggled the default 16-bit operand size
	AddressSize32 bool // 0x67 toggled the default 16-bit address size
	SegOverride   SegOverride
	Rep           RepPrefix

	HasModRM bool
	Mod      byte
	Reg      byte
	RM       byte

	HasSIB bool
	Scale  byte
	Index  byte
	Base   byte

	IsMemory  bool  // RM operand resolves to memory, not a register
	DispSize  byte  // 0, 1, 2, or 4
	Disp      int32 // sign-extended displacement
	DirectRM  bool  // mod==0,rm==6 (16-bit) or mod==0,rm==5 (32-bit): disp-only address, no base reg

	HasImm  bool
	ImmSize byte // 1, 2, or 4
	Imm     uint32

	// far-pointer immediate target, for JMP/CALL far with an immediate
	// target. ENTER also stores its nesting-level byte in FarOff; far
	// RET's optional imm16 pop count is carried in Imm.
	FarSeg uint16
	FarOff uint32

	RawOpcode  byte
	TwoByte    bool // 0x0F-prefixed opcode
	RawBytes   []byte
}
