package fpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	mem map[uint32]byte
}

func newFakeBus() *fakeBus { return &fakeBus{mem: make(map[uint32]byte)} }

func (b *fakeBus) ReadByte(addr uint32) byte      { return b.mem[addr] }
func (b *fakeBus) WriteByte(addr uint32, v byte) { b.mem[addr] = v }

func almostEqual(t *testing.T, want, got float64) {
	t.Helper()
	if math.IsNaN(want) {
		require.True(t, math.IsNaN(got))
		return
	}
	require.InDelta(t, want, got, 1e-9)
}

func TestStackResetState(t *testing.T) {
	s := New()
	require.Equal(t, uint16(0x037F), s.FCW)
	require.Equal(t, uint16(0), s.FSW)
	require.Equal(t, uint16(0xFFFF), s.FTW)
	require.Equal(t, 0, s.top())
}

func TestPushPopOrdering(t *testing.T) {
	s := New()
	s.Push(1)
	s.Push(2)
	s.Push(3)
	require.Equal(t, 5, s.top())
	require.Equal(t, 3.0, s.ST(0))
	require.Equal(t, 2.0, s.ST(1))
	require.Equal(t, 1.0, s.ST(2))

	require.Equal(t, 3.0, s.Pop())
	require.Equal(t, 2.0, s.Pop())
	require.Equal(t, 1.0, s.Pop())
}

func TestStackOverflowSetsFlags(t *testing.T) {
	s := New()
	for i := range 8 {
		s.Push(float64(i))
	}
	s.Push(9)
	require.Equal(t, SWInvalidOp|SWStackFault|SWC1, s.FSW&(SWInvalidOp|SWStackFault|SWC1))
}

func TestStackUnderflowClearsC1(t *testing.T) {
	s := New()
	_ = s.Pop()
	require.Equal(t, SWInvalidOp|SWStackFault, s.FSW&(SWInvalidOp|SWStackFault))
	require.Zero(t, s.FSW&SWC1)
}

func TestTagClassification(t *testing.T) {
	s := New()
	s.Push(1.0)
	require.Equal(t, TagValid, s.getTag(s.physReg(0)))
	s.Pop()

	s.Push(0.0)
	require.Equal(t, TagZero, s.getTag(s.physReg(0)))
	s.Pop()

	s.Push(math.Inf(1))
	require.Equal(t, TagSpecial, s.getTag(s.physReg(0)))
}

func TestRoundPerFCW(t *testing.T) {
	s := New()
	s.FCW = (s.FCW &^ fcwRCMask) | (RCChop << fcwRCShift)
	require.Equal(t, 2.0, s.RoundPerFCW(2.9))
	require.Equal(t, -2.0, s.RoundPerFCW(-2.9))

	s.FCW = (s.FCW &^ fcwRCMask) | (RCUp << fcwRCShift)
	require.Equal(t, 3.0, s.RoundPerFCW(2.1))
}

func TestIntFromFloatIndefiniteOnOverflow(t *testing.T) {
	s := New()
	got := s.IntFromFloat(1e20, 32)
	require.Equal(t, int64(IndefInt32), got)
	require.NotZero(t, s.FSW&SWInvalidOp)
}

func TestFloat32RoundTrip(t *testing.T) {
	s := New()
	bus := newFakeBus()
	s.StoreFloat32(bus, 0x100, 1.5)
	almostEqual(t, 1.5, s.LoadFloat32(bus, 0x100))
}

func TestFloat64RoundTrip(t *testing.T) {
	s := New()
	bus := newFakeBus()
	s.StoreFloat64(bus, 0x200, 0.5)
	almostEqual(t, 0.5, s.LoadFloat64(bus, 0x200))
}

func TestExtended80RoundTrip(t *testing.T) {
	s := New()
	bus := newFakeBus()
	for _, v := range []float64{0, 1, -1, 2.5, 1e10, -1e-10} {
		s.StoreExtended80(bus, 0x300, v)
		almostEqual(t, v, s.LoadExtended80(bus, 0x300))
	}
}

func TestBCDRoundTrip(t *testing.T) {
	s := New()
	bus := newFakeBus()
	s.StoreBCD(bus, 0x400, 12345)
	require.Equal(t, 12345.0, s.LoadBCD(bus, 0x400))

	s.StoreBCD(bus, 0x410, -99)
	require.Equal(t, -99.0, s.LoadBCD(bus, 0x410))
}

func TestIntWidthRoundTrips(t *testing.T) {
	s := New()
	bus := newFakeBus()

	s.StoreInt16(bus, 0x500, -7)
	require.Equal(t, -7.0, s.LoadInt16(bus, 0x500))

	s.StoreInt32(bus, 0x510, 123456)
	require.Equal(t, 123456.0, s.LoadInt32(bus, 0x510))

	s.StoreInt64(bus, 0x520, -123456789)
	require.Equal(t, -123456789.0, s.LoadInt64(bus, 0x520))
}

func TestDoCompareOrdering(t *testing.T) {
	s := New()
	s.DoCompare(2, 1, true)
	require.Zero(t, s.FSW&(SWC0|SWC3))

	s.DoCompare(1, 2, true)
	require.NotZero(t, s.FSW&SWC0)

	s.DoCompare(1, 1, true)
	require.NotZero(t, s.FSW&SWC3)

	s.DoCompare(math.NaN(), 1, true)
	require.Equal(t, SWC0|SWC2|SWC3, s.FSW&(SWC0|SWC2|SWC3))
	require.NotZero(t, s.FSW&SWInvalidOp)
}

// FADD m32 0.5 + 1.5 = 2.0, exercised the way cpu.CPU drives the Fpu
// opcode: load the memory operand and combine it into ST(0) without
// pushing it, so the stack depth is unchanged.
func TestFaddMemoryOperandScenario(t *testing.T) {
	s := New()
	bus := newFakeBus()
	s.Push(1.5)
	s.StoreFloat32(bus, 0x600, 0.5)
	operand := s.LoadFloat32(bus, 0x600)
	s.SetST(0, s.ST(0)+operand)
	require.Equal(t, 2.0, s.ST(0))
}
