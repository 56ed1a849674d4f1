package hostapi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mbbscore/emucore/corefault"
	"github.com/mbbscore/emucore/cpu"
	"github.com/mbbscore/emucore/farptr"
	"github.com/mbbscore/emucore/memory"
)

func TestRegisterLookupFindsRegisteredExport(t *testing.T) {
	d := New(Config{})
	d.Register(0x0001, 0x0010, "exit", func(c *cpu.CPU) error { return nil })

	exp, ok := d.Lookup(cpu.HostCall{Segment: 0x0001, Offset: 0x0010})
	require.True(t, ok)
	require.Equal(t, "exit", exp.Name)
}

func TestLookupMissesUnknownOrdinalAndOffset(t *testing.T) {
	d := New(Config{})
	d.Register(0x0001, 0x0010, "exit", func(c *cpu.CPU) error { return nil })

	_, ok := d.Lookup(cpu.HostCall{Segment: 0x0002, Offset: 0x0010})
	require.False(t, ok, "unregistered ordinal")

	_, ok = d.Lookup(cpu.HostCall{Segment: 0x0001, Offset: 0x0020})
	require.False(t, ok, "registered ordinal, unregistered offset")
}

func TestOrdinalsListsEveryRegisteredSegment(t *testing.T) {
	d := New(Config{})
	d.Register(0x0001, 0x0010, "a", func(c *cpu.CPU) error { return nil })
	d.Register(0x0002, 0x0010, "b", func(c *cpu.CPU) error { return nil })

	ords := d.Ordinals()
	require.Len(t, ords, 2)
	require.Contains(t, ords, uint16(0x0001))
	require.Contains(t, ords, uint16(0x0002))
}

func TestRegisterTwiceReplacesEarlierHandler(t *testing.T) {
	d := New(Config{})
	var calls []string
	d.Register(0x0001, 0x0010, "first", func(c *cpu.CPU) error {
		calls = append(calls, "first")
		return nil
	})
	d.Register(0x0001, 0x0010, "second", func(c *cpu.CPU) error {
		calls = append(calls, "second")
		return nil
	})

	// IsJump so Dispatch never needs a populated stack to resume through.
	require.NoError(t, d.Dispatch(cpu.New(cpu.Config{}), cpu.HostCall{Segment: 0x0001, Offset: 0x0010, IsJump: true}))
	require.Equal(t, []string{"second"}, calls)
}

// seedFarReturn pokes a far return address (CS then IP, the order a real
// CALL FAR pushes them) directly under c.SS:c.SP, the way the guest's call
// would have left the stack before Tick yielded a non-jump HostCall.
func seedFarReturn(c *cpu.CPU, sp, retCS, retIP uint16) {
	base := sp - 4
	c.Mem.SetWord(farptr.FarPtr{Segment: c.SS, Offset: base}, retIP)
	c.Mem.SetWord(farptr.FarPtr{Segment: c.SS, Offset: base + 2}, retCS)
	c.SetSP(base)
}

func TestDispatchCallsHandlerAndReturnsFromHostCall(t *testing.T) {
	d := New(Config{})
	d.Register(0x0001, 0x0010, "increment-ax", func(c *cpu.CPU) error {
		c.SetAX(c.AX() + 1)
		return nil
	})

	c := cpu.New(cpu.Config{Memory: memory.New(memory.Config{Mode: memory.ModeRealMode})})
	c.SetAX(41)
	c.SS = 0
	seedFarReturn(c, 0x0100, 0x1234, 0x5678)

	require.NoError(t, d.Dispatch(c, cpu.HostCall{Segment: 0x0001, Offset: 0x0010}))
	require.Equal(t, uint16(42), c.AX())
	require.Equal(t, uint16(0x5678), c.IP)
	require.Equal(t, uint16(0x1234), c.CS)
}

func TestDispatchSkipsReturnOnJumpCall(t *testing.T) {
	d := New(Config{})
	d.Register(0x0001, 0x0010, "jump-target", func(c *cpu.CPU) error { return nil })

	c := cpu.New(cpu.Config{})
	c.CS, c.IP = 0x0001, 0x0010

	require.NoError(t, d.Dispatch(c, cpu.HostCall{Segment: 0x0001, Offset: 0x0010, IsJump: true}))
	// A jump call never pushed a return address, so CS:IP must be left
	// exactly as the handler saw them; popping here would panic on the
	// nil Memory anyway.
	require.Equal(t, uint16(0x0001), c.CS)
	require.Equal(t, uint16(0x0010), c.IP)
}

func TestDispatchReturnsUnknownOrdinalError(t *testing.T) {
	d := New(Config{})
	err := d.Dispatch(cpu.New(cpu.Config{}), cpu.HostCall{Segment: 0x0099, Offset: 0x0010, IsJump: true})
	require.Error(t, err)
	var hErr *Error
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, CodeUnknownOrdinal, hErr.Code())
}

func TestDispatchReturnsUnknownOffsetErrorForKnownOrdinal(t *testing.T) {
	d := New(Config{})
	d.Register(0x0001, 0x0010, "exit", func(c *cpu.CPU) error { return nil })

	err := d.Dispatch(cpu.New(cpu.Config{}), cpu.HostCall{Segment: 0x0001, Offset: 0x0099, IsJump: true})
	require.Error(t, err)
	var hErr *Error
	require.ErrorAs(t, err, &hErr)
	require.Equal(t, CodeUnknownOffset, hErr.Code())
}

func TestDispatchPropagatesHandlerError(t *testing.T) {
	d := New(Config{})
	d.Register(0x0001, 0x0010, "fails", func(c *cpu.CPU) error {
		return &Error{Base: corefault.New(CodeUnknownOffset, "boom")}
	})

	err := d.Dispatch(cpu.New(cpu.Config{}), cpu.HostCall{Segment: 0x0001, Offset: 0x0010, IsJump: true})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}
