// Package cli provides a headless command-line runner for the emulator.
// It runs frames on a dedicated goroutine, optionally paced to the region's
// frame rate, and reports VDP statistics.
package cli

import (
	"context"
	"time"

	"github.com/user-none/emvdp/emu"
	"github.com/user-none/emvdp/log"
)

// Summary is what a run produced.
type Summary struct {
	Frames     int
	Stats      emu.Stats
	LinesDrawn int // active lines in the last frame
	Samples    int // PSG samples in the last frame
	Elapsed    time.Duration
}

// Runner wraps an emulator for command-line mode.
type Runner struct {
	emulator *emu.Emulator
	frames   int  // 0 runs until the context ends
	realtime bool // sleep to the region frame rate

	// ReportEvery logs a progress line every n frames when non-zero.
	ReportEvery int
}

// NewRunner creates a new Runner wrapping the given emulator.
func NewRunner(e *emu.Emulator, frames int, realtime bool) *Runner {
	return &Runner{
		emulator: e,
		frames:   frames,
		realtime: realtime,
	}
}

// Run runs the emulation loop on its own goroutine until the frame count
// is reached or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) Summary {
	done := make(chan Summary, 1)
	go func() {
		done <- r.emulationLoop(ctx)
	}()
	return <-done
}

func (r *Runner) emulationLoop(ctx context.Context) Summary {
	timing := r.emulator.GetTiming()
	frameTime := time.Duration(float64(time.Second) / float64(timing.FPS))
	start := time.Now()
	lastFrameTime := start

	var sum Summary
	for r.frames == 0 || sum.Frames < r.frames {
		if ctx.Err() != nil {
			break
		}

		r.emulator.RunFrame()
		sum.Frames++

		if r.ReportEvery > 0 && sum.Frames%r.ReportEvery == 0 {
			st := r.emulator.VDP().Stats()
			log.ModEmu.WithFields(log.Fields{
				"frame": sum.Frames,
				"vints": st.VInts,
				"hints": st.HInts,
				"dma":   st.DMACompleted,
			}).Infof("progress")
		}

		if !r.realtime {
			continue
		}
		sleepTime := frameTime - time.Since(lastFrameTime)
		if sleepTime > time.Millisecond {
			select {
			case <-ctx.Done():
			case <-time.After(sleepTime):
			}
		}
		lastFrameTime = time.Now()
	}

	sum.Stats = r.emulator.VDP().Stats()
	sum.LinesDrawn = r.emulator.LinesDrawn()
	sum.Samples = len(r.emulator.GetAudioSamples())
	sum.Elapsed = time.Since(start)
	return sum
}
