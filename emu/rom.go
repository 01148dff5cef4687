package emu

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	headerSystemType = 0x100
	headerTitle      = 0x150
	headerChecksum   = 0x18E
	headerRegions    = 0x1F0
	headerEnd        = 0x200
)

var systemTypes = []string{"SEGA MEGA DRIVE", "SEGA GENESIS"}

// ValidateSystemType checks the system type field at $100-$10F.
func ValidateSystemType(rom []byte) error {
	if len(rom) < headerSystemType+0x10 {
		return fmt.Errorf("ROM too short to contain system type header (%d bytes)", len(rom))
	}
	sys := strings.TrimRight(string(rom[headerSystemType:headerSystemType+0x10]), " ")
	for _, s := range systemTypes {
		if sys == s {
			return nil
		}
	}
	return fmt.Errorf("unrecognized system type: %q", sys)
}

// romChecksum is the 16-bit sum of the big-endian words after the header.
// An odd trailing byte counts as the high half of a word.
func romChecksum(rom []byte) uint16 {
	var sum uint16
	data := rom[headerEnd:]
	for len(data) >= 2 {
		sum += binary.BigEndian.Uint16(data)
		data = data[2:]
	}
	if len(data) == 1 {
		sum += uint16(data[0]) << 8
	}
	return sum
}

// ValidateChecksum compares the header checksum at $18E against the data.
func ValidateChecksum(rom []byte) error {
	if len(rom) < headerEnd {
		return fmt.Errorf("ROM too short to validate checksum (%d bytes)", len(rom))
	}
	want := binary.BigEndian.Uint16(rom[headerChecksum:])
	if got := romChecksum(rom); got != want {
		return fmt.Errorf("checksum mismatch: header=%04X computed=%04X", want, got)
	}
	return nil
}

// ROMHeader holds the cartridge header fields the CLI reports.
type ROMHeader struct {
	SystemType string
	Title      string // overseas name
	Regions    string
	Checksum   uint16
}

// ParseROMHeader reads the header at $100-$1FF.
func ParseROMHeader(rom []byte) (ROMHeader, error) {
	if len(rom) < headerEnd {
		return ROMHeader{}, fmt.Errorf("ROM too short to contain a header (%d bytes)", len(rom))
	}
	field := func(start, end int) string {
		return strings.TrimSpace(strings.Map(func(r rune) rune {
			if r < 0x20 || r > 0x7E {
				return ' '
			}
			return r
		}, string(rom[start:end])))
	}
	return ROMHeader{
		SystemType: field(headerSystemType, headerSystemType+0x10),
		Title:      field(headerTitle, headerTitle+0x30),
		Regions:    field(headerRegions, headerEnd),
		Checksum:   binary.BigEndian.Uint16(rom[headerChecksum:]),
	}, nil
}
