package emu

import (
	"bytes"
	"fmt"
	"strings"

	emucore "github.com/user-none/eblitui/api"
)

// Region is the display timing region shared with the frontend API.
type Region = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// RegionTiming holds the clocks and frame geometry for one region.
type RegionTiming struct {
	MasterClockHz int
	M68KClockHz   int
	Z80ClockHz    int
	Scanlines     int
	FPS           int
}

func regionTiming(master int, pal bool, fps int) RegionTiming {
	return RegionTiming{
		MasterClockHz: master,
		M68KClockHz:   master / m68kClockDivider,
		Z80ClockHz:    master / z80ClockDivider,
		Scanlines:     SelectCounterMode(true, false, pal).VTotalCount,
		FPS:           fps,
	}
}

var (
	NTSCTiming = regionTiming(53693175, false, 60)
	PALTiming  = regionTiming(53203424, true, 50)
)

// GetTimingForRegion returns the timing constants for r.
func GetTimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}

// ConsoleRegion is the hardware identity reported by the version register
// ($A10001). It is separate from the display timing region.
type ConsoleRegion int

const (
	ConsoleJapan  ConsoleRegion = iota // Domestic, NTSC
	ConsoleUSA                         // Overseas, NTSC
	ConsoleEurope                      // Overseas, PAL
)

// Header region codes in priority order.
var regionCodes = []struct {
	code    byte
	console ConsoleRegion
}{
	{'J', ConsoleJapan},
	{'U', ConsoleUSA},
	{'E', ConsoleEurope},
}

// DetectConsoleRegion reads the header region field ($1F0-$1FF). Multi-region
// cartridges resolve J, then U, then E; anything else is ConsoleUSA.
func DetectConsoleRegion(rom []byte) ConsoleRegion {
	if len(rom) < 0x200 {
		return ConsoleUSA
	}
	field := rom[0x1F0:0x200]
	for _, r := range regionCodes {
		if bytes.IndexByte(field, r.code) >= 0 {
			return r.console
		}
	}
	return ConsoleUSA
}

// DetectRegion maps the header region to display timing: only a
// European-only cartridge runs PAL.
func DetectRegion(rom []byte) Region {
	if DetectConsoleRegion(rom) == ConsoleEurope {
		return RegionPAL
	}
	return RegionNTSC
}

func DefaultRegion() Region {
	return RegionNTSC
}

// Timing returns the frontend timing description for r.
func Timing(r Region) emucore.Timing {
	t := GetTimingForRegion(r)
	return emucore.Timing{FPS: t.FPS, Scanlines: t.Scanlines}
}

// ParseRegion parses a region name. "auto" (or "") reports auto=true and
// leaves detection to the ROM header.
func ParseRegion(name string) (r Region, auto bool, err error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return DefaultRegion(), true, nil
	case "ntsc":
		return RegionNTSC, false, nil
	case "pal":
		return RegionPAL, false, nil
	}
	return DefaultRegion(), false, fmt.Errorf("unknown region %q (want auto, ntsc or pal)", name)
}
