package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/term"

	"github.com/user-none/emvdp/cli"
	"github.com/user-none/emvdp/emu"
	"github.com/user-none/emvdp/log"
)

const version = "0.1.0"

func main() {
	log.SetColors(term.IsTerminal(int(os.Stderr.Fd())))

	cfg := parseArgs(os.Args[1:])
	switch cfg.mode {
	case runMode:
		runROM(cfg.Run)
	case infoMode:
		showInfo(cfg.Info)
	case modesMode:
		checkf(checkModes(os.Stdout), "counter mode check failed")
	case versionMode:
		fmt.Println("emvdp", version)
	}
}

func runROM(args Run) {
	fileCfg, err := emu.LoadConfig(args.Config)
	checkf(err, "failed to load config")

	if len(fileCfg.Log) > 0 && !args.logSet {
		mask, err := moduleMask(fileCfg.Log)
		checkf(err, "invalid log modules in config")
		log.EnableDebugModules(mask)
	}

	rom, err := os.ReadFile(args.RomPath)
	checkf(err, "failed to load ROM")
	if err := emu.ValidateSystemType(rom); err != nil {
		log.ModEmu.Warnf("%v", err)
	}
	if err := emu.ValidateChecksum(rom); err != nil {
		log.ModEmu.Warnf("%v", err)
	}

	regionName := fileCfg.Region
	if args.Region != "" {
		regionName = args.Region
	}
	region, auto, err := emu.ParseRegion(regionName)
	checkf(err, "invalid region")
	if auto {
		region = emu.DetectRegion(rom)
	}

	frames := fileCfg.Frames
	if args.Frames >= 0 {
		frames = args.Frames
	}

	opts := emu.EmulatorOptions{FastDMAWindows: fileCfg.FastDMAWindows()}

	var tracer *emu.JSONTracer
	switch {
	case args.Trace != nil:
		defer args.Trace.Close()
		tracer = emu.NewJSONTracer(args.Trace)
	case fileCfg.Trace.Path != "":
		f, err := os.Create(fileCfg.Trace.Path)
		checkf(err, "failed to create trace file")
		defer f.Close()
		tracer = emu.NewJSONTracer(f)
	}
	if tracer != nil {
		opts.Tracer = tracer
	}

	e, err := emu.NewEmulator(rom, region, opts)
	checkf(err, "failed to initialize emulator")
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := cli.NewRunner(e, frames, args.Realtime)
	runner.ReportEvery = args.Report
	sum := runner.Run(ctx)

	if tracer != nil && tracer.Err() != nil {
		log.ModEmu.Warnf("trace output failed: %v", tracer.Err())
	}

	st := sum.Stats
	fmt.Printf("frames %d in %v (%s)\n", sum.Frames, sum.Elapsed, e.VDP().CounterMode().Name)
	fmt.Printf("vints %d  hints %d  dma %d/%d  fifo overflows %d\n",
		st.VInts, st.HInts, st.DMACompleted, st.DMAStarted, st.FIFOOverflows)
	fmt.Printf("last frame: %d active lines, %d audio samples\n", sum.LinesDrawn, sum.Samples)
}

func showInfo(args Info) {
	rom, err := os.ReadFile(args.RomPath)
	checkf(err, "failed to load ROM")

	h, err := emu.ParseROMHeader(rom)
	checkf(err, "failed to read ROM header")

	checksum := "ok"
	if err := emu.ValidateChecksum(rom); err != nil {
		checksum = err.Error()
	}
	region := "NTSC"
	if emu.DetectRegion(rom) == emu.RegionPAL {
		region = "PAL"
	}

	fmt.Printf("system:   %s\n", h.SystemType)
	fmt.Printf("title:    %s\n", h.Title)
	fmt.Printf("regions:  %s (%s)\n", h.Regions, region)
	fmt.Printf("checksum: %04X (%s)\n", h.Checksum, checksum)
	fmt.Printf("size:     %d bytes\n", len(rom))
}
