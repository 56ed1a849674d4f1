// Package cpu implements the fetch-execute loop driving 16-bit real-mode
// x86 instructions (with 32-bit operand/address extensions) against a
// memory.Memory and an fpu.Stack, executing internal/x86asm's decoded
// Instruction values rather than dispatching raw opcode bytes directly.
package cpu

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mbbscore/emucore/farptr"
	"github.com/mbbscore/emucore/fpu"
	"github.com/mbbscore/emucore/memory"
)

// Flag bit positions within the 16-bit flags word.
const (
	FlagCF uint16 = 1 << 0
	FlagPF uint16 = 1 << 2
	FlagAF uint16 = 1 << 4
	FlagZF uint16 = 1 << 6
	FlagSF uint16 = 1 << 7
	FlagTF uint16 = 1 << 8
	FlagIF uint16 = 1 << 9
	FlagDF uint16 = 1 << 10
	FlagOF uint16 = 1 << 11
)

// CPU is the register file and execution state for one guest context. It
// is not safe for concurrent use; the concurrency model (spec.md §5) gives
// each guest execution context its own CPU and Memory pair on its own
// goroutine.
type CPU struct {
	EAX, EBX, ECX, EDX uint32
	ESI, EDI, EBP, ESP uint32

	IP uint16
	CS, DS, ES, SS, FS, GS uint16

	Flags uint16

	Halted bool
	Cycles uint64

	// running is set true by Reset and false by Stop; Tick refuses to
	// execute while it is false. Unlike Halted (only ever touched by the
	// goroutine driving Tick, as a HLT opcode's result), running may be
	// cleared from another goroutine to interrupt a guest mid-run, so it
	// is atomic rather than a plain bool.
	running atomic.Bool

	FPU *fpu.Stack
	Mem memory.Memory

	log *zap.SugaredLogger

	// importedSegments names the segment ordinals the host has registered
	// as host-API imports; a CALL FAR to one of these yields a HostCall
	// instead of executing from the instruction cache.
	importedSegments map[uint16]bool
}

// Config constructs a CPU bound to mem and fpuStack.
type Config struct {
	Memory memory.Memory
	FPU    *fpu.Stack
	Logger *zap.SugaredLogger
}

// New returns a CPU reset to its power-up state.
func New(cfg Config) *CPU {
	c := &CPU{
		Mem:              cfg.Memory,
		FPU:              cfg.FPU,
		log:              cfg.logger(),
		importedSegments: make(map[uint16]bool),
	}
	c.Reset()
	return c
}

func (c Config) logger() *zap.SugaredLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop().Sugar()
}

// Reset restores power-up register state: all GPRs and segments zero,
// flags with only IF set, not halted, and running.
func (c *CPU) Reset() {
	c.EAX, c.EBX, c.ECX, c.EDX = 0, 0, 0, 0
	c.ESI, c.EDI, c.EBP, c.ESP = 0, 0, 0, 0
	c.IP = 0
	c.CS, c.DS, c.ES, c.SS, c.FS, c.GS = 0, 0, 0, 0, 0, 0
	c.Flags = FlagIF
	c.Halted = false
	c.Cycles = 0
	c.running.Store(true)
}

// Stop clears the running flag, causing every subsequent Tick to return
// immediately. Safe to call from a goroutine other than the one driving
// Tick, to interrupt a guest that is stuck or no longer wanted.
func (c *CPU) Stop() {
	c.running.Store(false)
}

// Running reports whether Tick will currently execute.
func (c *CPU) Running() bool {
	return c.running.Load()
}

// ImportSegment registers ordinal as a host-API segment: CALL FAR targets
// there yield a HostCall instead of executing cached code.
func (c *CPU) ImportSegment(ordinal uint16) {
	c.importedSegments[ordinal] = true
}

func (c *CPU) isImported(ordinal uint16) bool {
	return c.importedSegments[ordinal]
}

// 16-bit general-purpose register views, named the way 8086 assembly
// names them, used throughout effective-address computation.
func (c *CPU) AX() uint16    { return uint16(c.EAX) }
func (c *CPU) SetAX(v uint16) { c.EAX = (c.EAX &^ 0xFFFF) | uint32(v) }
func (c *CPU) BX() uint16    { return uint16(c.EBX) }
func (c *CPU) SetBX(v uint16) { c.EBX = (c.EBX &^ 0xFFFF) | uint32(v) }
func (c *CPU) CX() uint16    { return uint16(c.ECX) }
func (c *CPU) SetCX(v uint16) { c.ECX = (c.ECX &^ 0xFFFF) | uint32(v) }
func (c *CPU) DX() uint16    { return uint16(c.EDX) }
func (c *CPU) SetDX(v uint16) { c.EDX = (c.EDX &^ 0xFFFF) | uint32(v) }
func (c *CPU) SI() uint16    { return uint16(c.ESI) }
func (c *CPU) SetSI(v uint16) { c.ESI = (c.ESI &^ 0xFFFF) | uint32(v) }
func (c *CPU) DI() uint16    { return uint16(c.EDI) }
func (c *CPU) SetDI(v uint16) { c.EDI = (c.EDI &^ 0xFFFF) | uint32(v) }
func (c *CPU) BP() uint16    { return uint16(c.EBP) }
func (c *CPU) SetBP(v uint16) { c.EBP = (c.EBP &^ 0xFFFF) | uint32(v) }
func (c *CPU) SP() uint16    { return uint16(c.ESP) }
func (c *CPU) SetSP(v uint16) { c.ESP = (c.ESP &^ 0xFFFF) | uint32(v) }

func (c *CPU) AL() byte     { return byte(c.EAX) }
func (c *CPU) SetAL(v byte) { c.EAX = (c.EAX &^ 0xFF) | uint32(v) }
func (c *CPU) AH() byte     { return byte(c.EAX >> 8) }
func (c *CPU) SetAH(v byte) { c.EAX = (c.EAX &^ 0xFF00) | uint32(v)<<8 }
func (c *CPU) CL() byte     { return byte(c.ECX) }

func (c *CPU) reg32ByIndex(i byte) uint32 {
	switch i & 7 {
	case 0:
		return c.EAX
	case 1:
		return c.ECX
	case 2:
		return c.EDX
	case 3:
		return c.EBX
	case 4:
		return c.ESP
	case 5:
		return c.EBP
	case 6:
		return c.ESI
	default:
		return c.EDI
	}
}

func (c *CPU) setReg32ByIndex(i byte, v uint32) {
	switch i & 7 {
	case 0:
		c.EAX = v
	case 1:
		c.ECX = v
	case 2:
		c.EDX = v
	case 3:
		c.EBX = v
	case 4:
		c.ESP = v
	case 5:
		c.EBP = v
	case 6:
		c.ESI = v
	default:
		c.EDI = v
	}
}

func (c *CPU) reg16ByIndex(i byte) uint16 { return uint16(c.reg32ByIndex(i)) }

func (c *CPU) setReg16ByIndex(i byte, v uint16) {
	c.setReg32ByIndex(i, (c.reg32ByIndex(i)&^0xFFFF)|uint32(v))
}

func (c *CPU) reg8ByIndex(i byte) byte {
	i &= 7
	if i < 4 {
		return byte(c.reg32ByIndex(i))
	}
	return byte(c.reg32ByIndex(i-4) >> 8)
}

func (c *CPU) setReg8ByIndex(i byte, v byte) {
	i &= 7
	if i < 4 {
		c.setReg32ByIndex(i, (c.reg32ByIndex(i)&^0xFF)|uint32(v))
		return
	}
	base := i - 4
	c.setReg32ByIndex(base, (c.reg32ByIndex(base)&^0xFF00)|uint32(v)<<8)
}

func (c *CPU) segByIndex(i int8) uint16 {
	switch i {
	case 0:
		return c.ES
	case 1:
		return c.CS
	case 2:
		return c.SS
	case 3:
		return c.DS
	case 4:
		return c.FS
	default:
		return c.GS
	}
}

func (c *CPU) setSegByIndex(i int8, v uint16) {
	switch i {
	case 0:
		c.ES = v
	case 1:
		c.CS = v
	case 2:
		c.SS = v
	case 3:
		c.DS = v
	case 4:
		c.FS = v
	default:
		c.GS = v
	}
}

func (c *CPU) GetFlag(f uint16) bool { return c.Flags&f != 0 }

func (c *CPU) SetFlag(f uint16, v bool) {
	if v {
		c.Flags |= f
	} else {
		c.Flags &^= f
	}
}

// far returns a far pointer into seg using the effective segment's current
// value, for callers that already hold the segment register value.
func far(seg, off uint16) farptr.FarPtr { return farptr.New(seg, off) }
