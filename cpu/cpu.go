package cpu

import (
	"github.com/mbbscore/emucore/internal/x86asm"
	"github.com/mbbscore/emucore/memory"
)

// opWidth returns the operand width in bytes implied by the 0x66 prefix:
// 4 when OperandSize32 is set, 2 otherwise. Byte-sized forms carry their
// own width (1) directly on the Instruction and never call this.
func opWidth(inst *x86asm.Instruction) byte {
	if inst.OperandSize32 {
		return 4
	}
	return 2
}

// fetch returns the decoded instruction at CS:IP, repairing a misaligned
// cache entry via Recompile once before giving up.
func (c *CPU) fetch() (x86asm.Instruction, error) {
	inst, err := c.Mem.GetInstruction(c.CS, c.IP)
	if err == nil {
		return inst, nil
	}
	if rerr := c.Mem.Recompile(c.CS, c.IP); rerr != nil {
		return x86asm.Instruction{}, err
	}
	return c.Mem.GetInstruction(c.CS, c.IP)
}

// Tick fetches and executes one instruction at CS:IP. It returns a non-nil
// HostCall when execution reached a CALL FAR/JMP FAR into a segment the
// host registered with ImportSegment; the host must service it and, for a
// CALL FAR, call ReturnFromHostCall before the next Tick. A non-nil Fault
// means the guest cannot continue; the caller should log Fault.Snapshot and
// terminate the context. An access to an unmapped segment is reported as a
// SegmentationFault Fault.
func (c *CPU) Tick() (hostCall *HostCall, fault *Fault) {
	if c.Halted || !c.running.Load() {
		return nil, nil
	}

	inst, err := c.fetch()
	if err != nil {
		return nil, c.newFault(CodeDecodeError, "failed to fetch instruction", nil)
	}
	if inst.Mnemonic == x86asm.Undefined {
		return nil, c.newFault(CodeDecodeError, "undefined opcode", inst.RawBytes)
	}

	defer func() {
		if r := recover(); r != nil {
			merr, ok := r.(memory.Error)
			if !ok || merr.Code() != memory.CodeSegmentationFault {
				panic(r)
			}
			hostCall, fault = nil, c.newFault(CodeSegmentationFault, "access to unmapped segment", inst.RawBytes)
		}
	}()

	c.Cycles++
	nextIP := c.IP + inst.Length

	hostCall, branched, fault := c.execute(&inst, nextIP)
	if fault != nil {
		return nil, fault
	}
	if !branched {
		c.IP = nextIP
	}
	return hostCall, nil
}

// resolveFarTarget resolves a far jump/call target: either the immediate
// FarSeg:FarOff pair (0x9A/0xEA) or a far pointer held in memory for the
// group-5 indirect-through-Ep forms.
func (c *CPU) resolveFarTarget(inst *x86asm.Instruction) (seg, off uint16) {
	if inst.HasModRM {
		addr := c.effectiveAddr(inst)
		if opWidth(inst) == 4 {
			lo := c.Mem.GetDword(addr)
			hi := c.Mem.GetWord(addr.Add(4))
			return hi, uint16(lo)
		}
		lo := c.Mem.GetWord(addr)
		hi := c.Mem.GetWord(addr.Add(2))
		return hi, lo
	}
	return inst.FarSeg, uint16(inst.FarOff)
}
