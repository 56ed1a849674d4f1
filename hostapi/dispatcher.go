// Package hostapi implements the narrow, one-directional dispatch boundary
// between the CPU core and the MAJORBBS/GALGSBL host-API export surface.
// The core never calls into a host function directly: cpu.CPU.Tick yields a
// cpu.HostCall when a guest performs a far call to a segment ordinal the
// host registered with cpu.CPU.ImportSegment, and the driver loop hands
// that value to a Dispatcher here. Every export is a registration-table
// entry (ordinal:offset -> Handler) rather than a direct method call, which
// keeps the CPU package free of any dependency on host-API semantics.
package hostapi

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mbbscore/emucore/corefault"
	"github.com/mbbscore/emucore/cpu"
)

// Error codes for the hostapi package's own Code space (corefault.Code).
const (
	CodeUnknownOrdinal corefault.Code = "hostapi.unknown_ordinal"
	CodeUnknownOffset  corefault.Code = "hostapi.unknown_offset"
)

// Error is hostapi's corefault.Base-embedding error type, returned when a
// guest far-calls an imported segment ordinal that has no handler
// registered at the requested offset, or an ordinal that was never
// registered at all.
type Error struct {
	corefault.Base
	Call cpu.HostCall
}

// Handler services one host-API export. It receives the CPU whose
// registers it should read arguments from and write a return value into,
// the same way the real export would have read/written registers across
// the original direct call. Handlers must not advance CS:IP themselves;
// the driver calls cpu.CPU.ReturnFromHostCall after a non-jump Handler
// returns.
type Handler func(c *cpu.CPU) error

// Export names one registered entry point, for diagnostic listings and
// log lines; Name has no behavioural effect.
type Export struct {
	Offset  uint16
	Name    string
	Handler Handler
}

// segmentTable is the per-ordinal offset->Export map: the key is the exact
// offset a CALL FAR landed at, since host-API exports are discrete entry
// points rather than a continuous address range.
type segmentTable map[uint16]Export

// Dispatcher owns the registered host-API surface and routes a
// cpu.HostCall to the Handler registered for its Segment:Offset. One
// Dispatcher is normally shared read-only across every guest context's
// CPU, the way one MachineBus's I/O mapping table is shared across every
// peripheral access from a single CPU core.
type Dispatcher struct {
	segments map[uint16]segmentTable
	log      *zap.SugaredLogger
}

// Config constructs a Dispatcher.
type Config struct {
	Logger *zap.SugaredLogger
}

func (c Config) logger() *zap.SugaredLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop().Sugar()
}

// New returns an empty Dispatcher. Register exports with Register, then
// register the same ordinals with every CPU via cpu.CPU.ImportSegment.
func New(cfg Config) *Dispatcher {
	return &Dispatcher{
		segments: make(map[uint16]segmentTable),
		log:      cfg.logger(),
	}
}

// Register adds handler as the export reached by a far call to
// ordinal:offset. Registering the same ordinal:offset pair twice replaces
// the earlier handler; this is deliberate; it lets a host override a
// single export (for test doubles) without rebuilding the whole table.
func (d *Dispatcher) Register(ordinal, offset uint16, name string, handler Handler) {
	table, ok := d.segments[ordinal]
	if !ok {
		table = make(segmentTable)
		d.segments[ordinal] = table
	}
	table[offset] = Export{Offset: offset, Name: name, Handler: handler}
}

// Ordinals returns every segment ordinal with at least one registered
// export, for wiring each one into a CPU via ImportSegment.
func (d *Dispatcher) Ordinals() []uint16 {
	out := make([]uint16, 0, len(d.segments))
	for ord := range d.segments {
		out = append(out, ord)
	}
	return out
}

// Lookup returns the Export registered at call's target, if any.
func (d *Dispatcher) Lookup(call cpu.HostCall) (Export, bool) {
	table, ok := d.segments[call.Segment]
	if !ok {
		return Export{}, false
	}
	exp, ok := table[call.Offset]
	return exp, ok
}

// Dispatch looks up and runs the Handler registered for call's target,
// then (for a non-jump call) resumes the guest via
// cpu.CPU.ReturnFromHostCall. Callers servicing a HostCall should prefer
// Dispatch over Lookup+manual invocation unless they need to intercept
// unregistered calls differently than returning an Error.
func (d *Dispatcher) Dispatch(c *cpu.CPU, call cpu.HostCall) error {
	exp, ok := d.Lookup(call)
	if !ok {
		err := &Error{
			Base: corefault.New(CodeUnknownOrdinal, fmt.Sprintf("no host-API export registered at %04X:%04X", call.Segment, call.Offset)),
			Call: call,
		}
		if _, segOK := d.segments[call.Segment]; segOK {
			err.Base = corefault.New(CodeUnknownOffset, fmt.Sprintf("segment %04X has no export at offset %04X", call.Segment, call.Offset))
		}
		d.log.Errorw("unregistered host-API call", "segment", call.Segment, "offset", call.Offset, "isJump", call.IsJump)
		return err
	}

	d.log.Debugw("host-API call", "segment", call.Segment, "offset", call.Offset, "name", exp.Name)
	if err := exp.Handler(c); err != nil {
		return err
	}
	if !call.IsJump {
		c.ReturnFromHostCall()
	}
	return nil
}
