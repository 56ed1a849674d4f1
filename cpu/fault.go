package cpu

import "github.com/mbbscore/emucore/corefault"

const (
	CodeDecodeError        corefault.Code = "cpu.decode_error"
	CodeSegmentationFault  corefault.Code = "cpu.segmentation_fault"
	CodeDivideByZero       corefault.Code = "cpu.divide_by_zero"
	CodeFPUStackOverflow   corefault.Code = "cpu.fpu_stack_overflow"
	CodeFPUStackUnderflow  corefault.Code = "cpu.fpu_stack_underflow"
)

// Snapshot captures the full register file at the moment of a fault, so a
// host can log and terminate the guest with complete context.
type Snapshot struct {
	EAX, EBX, ECX, EDX uint32
	ESI, EDI, EBP, ESP uint32
	CS, IP             uint16
	DS, ES, SS, FS, GS uint16
	Flags              uint16
}

// Fault is returned by Tick when execution cannot continue: an
// undefined or misaligned opcode, an unmapped segment access, integer
// division by zero, or an FPU stack over/underflow.
type Fault struct {
	corefault.Base
	Snapshot  Snapshot
	OpcodeRaw []byte
}

func (c *CPU) snapshot() Snapshot {
	return Snapshot{
		EAX: c.EAX, EBX: c.EBX, ECX: c.ECX, EDX: c.EDX,
		ESI: c.ESI, EDI: c.EDI, EBP: c.EBP, ESP: c.ESP,
		CS: c.CS, IP: c.IP,
		DS: c.DS, ES: c.ES, SS: c.SS, FS: c.FS, GS: c.GS,
		Flags: c.Flags,
	}
}

func (c *CPU) newFault(code corefault.Code, message string, opcode []byte) *Fault {
	f := &Fault{
		Base:      corefault.New(code, message),
		Snapshot:  c.snapshot(),
		OpcodeRaw: opcode,
	}
	c.log.Errorw(message, "code", code, "cs", c.CS, "ip", c.IP, "opcode", opcode)
	return f
}
