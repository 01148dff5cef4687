package emu

import (
	"errors"
	"fmt"
)

// RAMMode is the access target selected by code bits CD3-CD0.
type RAMMode uint8

const (
	VRAMRead   RAMMode = 0x00
	VRAMWrite  RAMMode = 0x01
	CRAMWrite  RAMMode = 0x03
	VSRAMRead  RAMMode = 0x04
	VSRAMWrite RAMMode = 0x05
	CRAMRead   RAMMode = 0x08
	VRAMRead8  RAMMode = 0x0C
)

// ramModeFromCode extracts the target from the 6-bit command code.
func ramModeFromCode(code uint8) RAMMode {
	return RAMMode(code & 0x0F)
}

func (m RAMMode) String() string {
	switch m {
	case VRAMRead:
		return "VRAM read"
	case VRAMWrite:
		return "VRAM write"
	case CRAMWrite:
		return "CRAM write"
	case VSRAMRead:
		return "VSRAM read"
	case VSRAMWrite:
		return "VSRAM write"
	case CRAMRead:
		return "CRAM read"
	case VRAMRead8:
		return "VRAM 8-bit read"
	}
	return fmt.Sprintf("invalid(%X)", uint8(m))
}

func (m RAMMode) isWrite() bool {
	return m == VRAMWrite || m == CRAMWrite || m == VSRAMWrite
}

func (m RAMMode) isRead() bool {
	return m == VRAMRead || m == CRAMRead || m == VSRAMRead || m == VRAMRead8
}

// byteWide reports whether writes in this mode go through the 8-bit VRAM
// path and therefore occupy the FIFO head for two services.
func (m RAMMode) byteWide() bool {
	return m == VRAMWrite
}

type memTarget uint8

const (
	targetNone memTarget = iota
	targetVRAM
	targetCRAM
	targetVSRAM
)

func (m RAMMode) target() memTarget {
	switch m {
	case VRAMRead, VRAMWrite, VRAMRead8:
		return targetVRAM
	case CRAMRead, CRAMWrite:
		return targetCRAM
	case VSRAMRead, VSRAMWrite:
		return targetVSRAM
	}
	return targetNone
}

// VideoMemory is the storage behind the VDP data port and DMA engine. The
// core never interprets its contents.
type VideoMemory interface {
	ReadWord(mode RAMMode, addr uint16) uint16
	WriteWord(mode RAMMode, addr uint16, val uint16)
	ReadByteAt(mode RAMMode, addr uint16) uint8
	WriteByteAt(mode RAMMode, addr uint16, val uint8)
}

const (
	vramSize  = 0x10000
	cramSize  = 128
	vsramSize = 80

	// VideoRAMSerializeSize is the number of bytes written by VideoRAM.Serialize.
	VideoRAMSerializeSize = 1 + vramSize + cramSize + vsramSize
	videoRAMVersion       = 1
)

// VideoRAM is the default VideoMemory: 64KB VRAM, 64 9-bit CRAM colors and
// 40 10-bit VSRAM scroll entries.
type VideoRAM struct {
	vram  [vramSize]uint8
	cram  [cramSize]uint8
	vsram [vsramSize]uint8
}

var _ VideoMemory = (*VideoRAM)(nil)

// NewVideoRAM returns zeroed video memory.
func NewVideoRAM() *VideoRAM {
	return &VideoRAM{}
}

// ReadWord reads a word as seen by the data port prefetch.
func (m *VideoRAM) ReadWord(mode RAMMode, addr uint16) uint16 {
	switch mode {
	case VRAMRead:
		return uint16(m.vram[addr])<<8 | uint16(m.vram[addr+1])
	case VRAMRead8:
		return uint16(m.vram[addr^1])
	case CRAMRead:
		a := addr & 0x7E
		return uint16(m.cram[a])<<8 | uint16(m.cram[a+1])
	case VSRAMRead:
		a := addr & 0x7E
		if a >= vsramSize {
			return 0
		}
		return uint16(m.vsram[a])<<8 | uint16(m.vsram[a+1])
	}
	return 0
}

// WriteWord stores a word. Odd VRAM addresses store the word byte-swapped
// at the even address.
func (m *VideoRAM) WriteWord(mode RAMMode, addr uint16, val uint16) {
	switch mode.target() {
	case targetVRAM:
		if addr&1 == 0 {
			m.vram[addr] = uint8(val >> 8)
			m.vram[addr+1] = uint8(val)
		} else {
			a := addr & 0xFFFE
			m.vram[a] = uint8(val)
			m.vram[a+1] = uint8(val >> 8)
		}
	case targetCRAM:
		a := addr & 0x7E
		m.cram[a] = uint8(val>>8) & 0x0E
		m.cram[a+1] = uint8(val) & 0xEE
	case targetVSRAM:
		a := addr & 0x7E
		if a < vsramSize {
			m.vsram[a] = uint8(val>>8) & 0x03
			m.vsram[a+1] = uint8(val)
		}
	}
}

// ReadByteAt reads one byte, used by DMA copy.
func (m *VideoRAM) ReadByteAt(mode RAMMode, addr uint16) uint8 {
	switch mode.target() {
	case targetVRAM:
		return m.vram[addr]
	case targetCRAM:
		return m.cram[addr&0x7F]
	case targetVSRAM:
		if a := addr & 0x7F; a < vsramSize {
			return m.vsram[a]
		}
	}
	return 0
}

// WriteByteAt writes one byte, used by DMA fill and copy.
func (m *VideoRAM) WriteByteAt(mode RAMMode, addr uint16, val uint8) {
	switch mode.target() {
	case targetVRAM:
		m.vram[addr] = val
	case targetCRAM:
		a := addr & 0x7F
		if a&1 == 0 {
			m.cram[a] = val & 0x0E
		} else {
			m.cram[a] = val & 0xEE
		}
	case targetVSRAM:
		a := addr & 0x7F
		if a >= vsramSize {
			return
		}
		if a&1 == 0 {
			m.vsram[a] = val & 0x03
		} else {
			m.vsram[a] = val
		}
	}
}

// VRAM returns the VRAM contents for the renderer.
func (m *VideoRAM) VRAM() []uint8 {
	return m.vram[:]
}

// CRAM returns the CRAM contents for the renderer.
func (m *VideoRAM) CRAM() []uint8 {
	return m.cram[:]
}

// VSRAM returns the VSRAM contents for the renderer.
func (m *VideoRAM) VSRAM() []uint8 {
	return m.vsram[:]
}

// Serialize writes the memory contents to buf, which must be at least
// VideoRAMSerializeSize bytes.
func (m *VideoRAM) Serialize(buf []byte) error {
	if len(buf) < VideoRAMSerializeSize {
		return errors.New("video RAM serialize buffer too small")
	}
	buf[0] = videoRAMVersion
	offset := 1
	offset += copy(buf[offset:], m.vram[:])
	offset += copy(buf[offset:], m.cram[:])
	copy(buf[offset:], m.vsram[:])
	return nil
}

// Deserialize restores memory contents written by Serialize.
func (m *VideoRAM) Deserialize(buf []byte) error {
	if len(buf) < VideoRAMSerializeSize {
		return errors.New("video RAM deserialize buffer too small")
	}
	if buf[0] > videoRAMVersion {
		return errors.New("unsupported video RAM state version")
	}
	offset := 1
	offset += copy(m.vram[:], buf[offset:offset+vramSize])
	offset += copy(m.cram[:], buf[offset:offset+cramSize])
	copy(m.vsram[:], buf[offset:offset+vsramSize])
	return nil
}
