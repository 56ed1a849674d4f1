// Command coreharness is a minimal example driver, not a product binary:
// it loads a flat code image into one segment, runs the CPU's fetch-execute
// loop, and dispatches any far calls into a toy host API (just enough to
// halt the guest) so integration tests have something concrete to drive
// end to end.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mbbscore/emucore/cpu"
	"github.com/mbbscore/emucore/farptr"
	"github.com/mbbscore/emucore/fpu"
	"github.com/mbbscore/emucore/hostapi"
	"github.com/mbbscore/emucore/memory"
)

const hostOrdinal uint16 = 0x0001

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coreharness",
		Short: "Run a flat 16-bit code image against the core CPU/memory/host-API stack",
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		codeOrdinal uint16
		entryOffset uint16
		maxTicks    uint64
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "run <image>",
		Short: "Load a code image and tick the CPU, servicing host-API calls, until it halts, faults, or hits the tick limit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zap.NewNop().Sugar()
			if verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				logger = l.Sugar()
			}
			return runImage(args[0], codeOrdinal, entryOffset, maxTicks, logger)
		},
	}

	cmd.Flags().Uint16Var(&codeOrdinal, "ordinal", 0x1000, "segment ordinal to load the image into")
	cmd.Flags().Uint16Var(&entryOffset, "entry", 0, "entry point offset within the loaded segment")
	cmd.Flags().Uint64Var(&maxTicks, "max-ticks", 1_000_000, "stop after this many Tick calls even if the guest never halts")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable structured debug logging")
	return cmd
}

func runImage(path string, codeOrdinal, entryOffset uint16, maxTicks uint64, logger *zap.SugaredLogger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	mem := memory.New(memory.Config{Mode: memory.ModeSegmented, Logger: logger})
	if err := mem.AddSegment(memory.SegmentDescriptor{Ordinal: codeOrdinal, Data: data, Code: true}); err != nil {
		return fmt.Errorf("loading image into segment %04X: %w", codeOrdinal, err)
	}

	c := cpu.New(cpu.Config{Memory: mem, FPU: fpu.New(), Logger: logger})
	c.CS, c.IP = codeOrdinal, entryOffset
	c.ImportSegment(hostOrdinal)

	dispatcher := newStubHostAPI(logger)

	var ticks uint64
	for ; ticks < maxTicks && !c.Halted; ticks++ {
		hostCall, fault := c.Tick()
		if fault != nil {
			return fmt.Errorf("guest faulted at %04X:%04X: %s", fault.Snapshot.CS, fault.Snapshot.IP, fault.Error())
		}
		if hostCall != nil {
			if err := dispatcher.Dispatch(c, *hostCall); err != nil {
				return fmt.Errorf("host-API dispatch: %w", err)
			}
		}
	}

	logger.Infow("run finished", "ticks", ticks, "halted", c.Halted, "cs", c.CS, "ip", c.IP)
	if !c.Halted && ticks >= maxTicks {
		return fmt.Errorf("guest did not halt within %d ticks", maxTicks)
	}
	return nil
}

// newStubHostAPI registers the bare minimum a harness run needs: an exit()
// export at the imported segment's offset 0 that halts the guest, and
// rstrin at offset 2 (DS:DI buffer, CX length). A real
// host build registers the full MAJORBBS export table here instead.
func newStubHostAPI(logger *zap.SugaredLogger) *hostapi.Dispatcher {
	d := hostapi.New(hostapi.Config{Logger: logger})
	d.Register(hostOrdinal, 0x0000, "exit", func(c *cpu.CPU) error {
		c.Halted = true
		return nil
	})
	d.Register(hostOrdinal, 0x0002, "rstrin", func(c *cpu.CPU) error {
		ptr := farptr.FarPtr{Segment: c.DS, Offset: c.DI()}
		return hostapi.Rstrin(c.Mem, ptr, c.CX())
	})
	return d
}
