package main

import (
	"fmt"
	"io"
	"runtime"
	"text/tabwriter"

	"golang.org/x/sync/errgroup"

	"github.com/user-none/emvdp/emu"
)

// checkModes runs one frame of every counter mode concurrently and prints
// the resulting geometry.
func checkModes(w io.Writer) error {
	modes := emu.CounterModes()
	reports := make([]emu.ModeReport, len(modes))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, m := range modes {
		g.Go(func() error {
			r, err := emu.CheckCounterMode(m)
			reports[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODE\tH TOTAL\tH JUMP\tV TOTAL\tV JUMP\tSLOTS\tEXTERNAL\tREFRESH\tFRAME MCLK")
	for i, r := range reports {
		m := modes[i]
		fmt.Fprintf(tw, "%s\t%d\t$%03X->$%03X\t%d\t$%03X->$%03X\t%d\t%d\t%d\t%d\n",
			r.Name,
			m.HTotalCount, m.HJumpTrigger, r.HJumpTarget,
			r.LinesPerFrame, m.VJumpTrigger, r.VJumpTarget,
			r.SlotsPerLine, r.ExternalSlots, r.RefreshSlots,
			r.FrameMasterClocks)
	}
	return tw.Flush()
}
