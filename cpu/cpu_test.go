package cpu

import (
	"testing"

	"github.com/mbbscore/emucore/fpu"
	"github.com/mbbscore/emucore/memory"
)

const codeSeg uint16 = 0x2000

func newTestCPU(t *testing.T, code []byte) *CPU {
	t.Helper()
	mem := memory.New(memory.Config{Mode: memory.ModeSegmented})
	if err := mem.AddSegment(memory.SegmentDescriptor{Ordinal: codeSeg, Data: code, Code: true}); err != nil {
		t.Fatalf("AddSegment: %v", err)
	}
	c := New(Config{Memory: mem, FPU: fpu.New()})
	c.CS = codeSeg
	c.DS = codeSeg
	c.IP = 0
	return c
}

func tick(t *testing.T, c *CPU) *HostCall {
	t.Helper()
	hc, fault := c.Tick()
	if fault != nil {
		t.Fatalf("unexpected fault: %+v", fault)
	}
	return hc
}

func TestCwdSignExtendsAXIntoDX(t *testing.T) {
	// CWD (0x99): AX=0x8000 (negative as int16) -> DX:AX = 0xFFFF:0x8000,
	// AX itself unchanged, and CWD never touches the flags.
	c := newTestCPU(t, []byte{0x99})
	c.SetAX(0x8000)
	c.Flags = FlagIF

	tick(t, c)

	if c.DX() != 0xFFFF {
		t.Errorf("DX: got 0x%04X, want 0xFFFF", c.DX())
	}
	if c.AX() != 0x8000 {
		t.Errorf("AX: got 0x%04X, want 0x8000 (unchanged)", c.AX())
	}
	if c.Flags != FlagIF {
		t.Errorf("Flags: got 0x%04X, want unchanged 0x%04X", c.Flags, FlagIF)
	}
}

func TestCwdPositiveClearsDX(t *testing.T) {
	c := newTestCPU(t, []byte{0x99})
	c.SetAX(0x1234)

	tick(t, c)

	if c.DX() != 0 {
		t.Errorf("DX: got 0x%04X, want 0", c.DX())
	}
}

func TestMovsxByteToEax(t *testing.T) {
	// MOVSX EAX, BL (0x66 0x0F 0xBE 0xC3): BL=0xC3 -> EAX=0xFFFFFFC3.
	c := newTestCPU(t, []byte{0x66, 0x0F, 0xBE, 0xC3})
	c.SetAL(0) // clears low byte of EAX cheaply
	c.EBX = 0x000000C3

	tick(t, c)

	if c.EAX != 0xFFFFFFC3 {
		t.Errorf("EAX: got 0x%08X, want 0xFFFFFFC3", c.EAX)
	}
}

func TestMovzxByteClearsUpperBits(t *testing.T) {
	// MOVZX EAX, BL, with EAX pre-seeded with garbage in the upper bits.
	c := newTestCPU(t, []byte{0x66, 0x0F, 0xB6, 0xC3})
	c.EAX = 0xFFFFFFFF
	c.EBX = 0x000000C3

	tick(t, c)

	if c.EAX != 0x000000C3 {
		t.Errorf("EAX: got 0x%08X, want 0x000000C3", c.EAX)
	}
}

func TestFaddMemSingleAddsIntoST0(t *testing.T) {
	// FADD DWORD PTR [0x0010] (D8 06 disp16): ST(0)=0.5, mem=1.5 -> ST(0)=2.0.
	// The segment's backing array is exactly as long as the bytes it was
	// created with, so the 1.5f operand is laid out in the same buffer
	// rather than poked in afterward at an offset past the end of it.
	code := make([]byte, 0x14)
	copy(code, []byte{0xD8, 0x06, 0x10, 0x00})
	copy(code[0x10:], []byte{0x00, 0x00, 0xC0, 0x3F}) // 1.5f little-endian
	c := newTestCPU(t, code)
	c.FPU.Push(0.5)

	tick(t, c)

	if got := c.FPU.ST(0); got != 2.0 {
		t.Errorf("ST(0): got %v, want 2.0", got)
	}
}

func TestMovRegImmAndAluAdd(t *testing.T) {
	// MOV AX, 0x0005; ADD AX, 0x0003 -> AX=8, ZF/CF/SF clear.
	c := newTestCPU(t, []byte{
		0xB8, 0x05, 0x00, // MOV AX, 5
		0x05, 0x03, 0x00, // ADD AX, 3
	})

	tick(t, c)
	if c.AX() != 5 {
		t.Fatalf("after MOV: AX=%d, want 5", c.AX())
	}
	tick(t, c)
	if c.AX() != 8 {
		t.Fatalf("after ADD: AX=%d, want 8", c.AX())
	}
	if c.GetFlag(FlagZF) || c.GetFlag(FlagCF) || c.GetFlag(FlagSF) {
		t.Errorf("unexpected flags after non-zero non-carry add: 0x%04X", c.Flags)
	}
}

func TestAluAddSetsCarryOnOverflow(t *testing.T) {
	// ADD AL, 0x01 with AL=0xFF wraps to 0 and sets CF+ZF.
	c := newTestCPU(t, []byte{0x04, 0x01})
	c.SetAL(0xFF)

	tick(t, c)

	if c.AL() != 0 {
		t.Errorf("AL: got 0x%02X, want 0x00", c.AL())
	}
	if !c.GetFlag(FlagCF) {
		t.Error("CF should be set on byte-add overflow")
	}
	if !c.GetFlag(FlagZF) {
		t.Error("ZF should be set when result wraps to zero")
	}
}

func TestIncDoesNotTouchCarry(t *testing.T) {
	// STC; INC AX with AX=0xFFFF wraps to 0 but CF must stay set.
	c := newTestCPU(t, []byte{0xF9, 0x40})
	c.SetAX(0xFFFF)

	tick(t, c)
	if !c.GetFlag(FlagCF) {
		t.Fatal("STC should have set CF")
	}
	tick(t, c)
	if c.AX() != 0 {
		t.Errorf("AX: got 0x%04X, want 0", c.AX())
	}
	if !c.GetFlag(FlagCF) {
		t.Error("INC must not clear CF")
	}
}

func TestDivByZeroFaults(t *testing.T) {
	// DIV CL with CL=0 and AX=anything must raise CodeDivideByZero.
	c := newTestCPU(t, []byte{0xF6, 0xF1}) // DIV CL (ModRM: mod=3, reg=6, rm=1)
	c.SetAX(0x0010)
	c.SetCX(0)

	hc, fault := c.Tick()
	if hc != nil {
		t.Fatalf("unexpected HostCall on fault path")
	}
	if fault == nil {
		t.Fatal("expected divide-by-zero fault, got nil")
	}
	if fault.Code() != CodeDivideByZero {
		t.Errorf("fault code: got %v, want %v", fault.Code(), CodeDivideByZero)
	}
}

func TestDivByteQuotient(t *testing.T) {
	// DIV CL: AX=0x000A, CL=3 -> AL=3 (quotient), AH=1 (remainder).
	c := newTestCPU(t, []byte{0xF6, 0xF1})
	c.SetAX(0x000A)
	c.SetCX(3)

	tick(t, c)

	if c.AL() != 3 {
		t.Errorf("AL (quotient): got %d, want 3", c.AL())
	}
	if c.AH() != 1 {
		t.Errorf("AH (remainder): got %d, want 1", c.AH())
	}
}

func TestJccTaken(t *testing.T) {
	// CMP AX, AX (always equal) sets ZF; JZ +1 should skip the next NOP.
	c := newTestCPU(t, []byte{
		0x39, 0xC0, // CMP AX, AX
		0x74, 0x01, // JZ +1
		0x90, // NOP (skipped)
		0x90, // NOP (landing pad)
	})

	tick(t, c) // CMP
	if !c.GetFlag(FlagZF) {
		t.Fatal("CMP AX,AX should set ZF")
	}
	tick(t, c) // JZ
	if c.IP != 5 {
		t.Errorf("IP after taken JZ: got %d, want 5", c.IP)
	}
}

func TestLoopDecrementsCXAndBranches(t *testing.T) {
	c := newTestCPU(t, []byte{
		0x90,       // NOP (loop target)
		0xE2, 0xFD, // LOOP -3
	})
	c.SetCX(3)

	for i := 0; i < 2; i++ {
		tick(t, c) // NOP
		tick(t, c) // LOOP, branches back while CX != 0
		if c.IP != 0 {
			t.Fatalf("iteration %d: IP=%d, want 0 (loop back)", i, c.IP)
		}
	}
	if c.CX() != 1 {
		t.Fatalf("CX after two loop iterations: got %d, want 1", c.CX())
	}
	tick(t, c) // NOP
	tick(t, c) // LOOP, CX hits 0, falls through
	if c.IP != 3 {
		t.Errorf("IP after loop exhausted: got %d, want 3", c.IP)
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	c := newTestCPU(t, []byte{
		0x50, // PUSH AX
		0x5B, // POP BX
	})
	c.SetAX(0xBEEF)
	spBefore := c.SP()

	tick(t, c) // PUSH AX
	if c.SP() != spBefore-2 {
		t.Fatalf("SP after push: got %d, want %d", c.SP(), spBefore-2)
	}
	tick(t, c) // POP BX
	if c.BX() != 0xBEEF {
		t.Errorf("BX: got 0x%04X, want 0xBEEF", c.BX())
	}
	if c.SP() != spBefore {
		t.Errorf("SP after pop: got %d, want %d (restored)", c.SP(), spBefore)
	}
}

func TestCallFarToImportedSegmentYieldsHostCall(t *testing.T) {
	// CALL FAR 0x3000:0x0010 (9A 10 00 00 30), target segment imported.
	c := newTestCPU(t, []byte{0x9A, 0x10, 0x00, 0x00, 0x30})
	c.ImportSegment(0x3000)

	hc, fault := c.Tick()
	if fault != nil {
		t.Fatalf("unexpected fault: %+v", fault)
	}
	if hc == nil {
		t.Fatal("expected a HostCall for an imported far-call target")
	}
	if hc.Segment != 0x3000 || hc.Offset != 0x0010 {
		t.Errorf("HostCall target: got %04X:%04X, want 3000:0010", hc.Segment, hc.Offset)
	}
	if c.CS != 0x3000 || c.IP != 0x0010 {
		t.Errorf("CS:IP after CallFar: got %04X:%04X", c.CS, c.IP)
	}
}

func TestReturnFromHostCallResumesCaller(t *testing.T) {
	c := newTestCPU(t, []byte{0x9A, 0x10, 0x00, 0x00, 0x30})
	c.ImportSegment(0x3000)

	tick(t, c)
	c.ReturnFromHostCall()

	if c.CS != codeSeg || c.IP != 5 {
		t.Errorf("CS:IP after ReturnFromHostCall: got %04X:%04X, want %04X:0005", c.CS, c.IP, codeSeg)
	}
}

func TestUndefinedOpcodeFaults(t *testing.T) {
	c := newTestCPU(t, []byte{0x0F, 0xFF}) // not a decoded two-byte opcode
	_, fault := c.Tick()
	if fault == nil {
		t.Fatal("expected a DecodeError fault for an undefined opcode")
	}
	if fault.Code() != CodeDecodeError {
		t.Errorf("fault code: got %v, want %v", fault.Code(), CodeDecodeError)
	}
}

func TestHaltStopsTicking(t *testing.T) {
	c := newTestCPU(t, []byte{0xF4, 0x90})
	tick(t, c)
	if !c.Halted {
		t.Fatal("HLT should set Halted")
	}
	ipBefore := c.IP
	hc, fault := c.Tick()
	if hc != nil || fault != nil {
		t.Fatal("Tick on a halted CPU should be a no-op")
	}
	if c.IP != ipBefore {
		t.Errorf("IP moved while halted: got %d, want %d", c.IP, ipBefore)
	}
}

func TestStopPreventsFurtherTicking(t *testing.T) {
	c := newTestCPU(t, []byte{0x90, 0x90, 0x90})
	if !c.Running() {
		t.Fatal("a freshly reset CPU should be running")
	}

	c.Stop()
	if c.Running() {
		t.Fatal("Stop should clear Running")
	}

	ipBefore := c.IP
	hc, fault := c.Tick()
	if hc != nil || fault != nil {
		t.Fatal("Tick on a stopped CPU should be a no-op")
	}
	if c.IP != ipBefore {
		t.Errorf("IP moved while stopped: got %d, want %d", c.IP, ipBefore)
	}
}
