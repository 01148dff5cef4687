package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-sn76489"
	"github.com/user-none/go-chip-z80"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "emVDPState\x00\x00"
	stateHeaderSize = 22 // magic(12) + version(2) + romCRC(4) + dataCRC(4)
)

// Fixed serialization sizes for inline components
const (
	busSerializeSize      = mainRAMSize + z80RAMSize + 4 // ram + z80RAM + flags
	z80MemSerializeSize   = 2                            // bank
	emulatorSerializeSize = 4*4 + 2                      // clock credits(16) + z80 line(1) + taken(1)
)

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// stateSection is one fixed-size component of a save state.
type stateSection struct {
	name string
	size int
	save func([]byte) error
	load func([]byte) error
}

// sections lists the state layout in order, after the header.
func (e *Emulator) sections() []stateSection {
	return []stateSection{
		{"m68k", m68k.SerializeSize, e.m68k.Serialize, e.m68k.Deserialize},
		{"z80", z80.SerializeSize, e.z80.Serialize, e.z80.Deserialize},
		{"bus", busSerializeSize, e.serializeBus, e.deserializeBus},
		{"z80mem", z80MemSerializeSize, e.serializeZ80Mem, e.deserializeZ80Mem},
		{"vdp", VDPSerializeSize, e.vdp.Serialize, e.vdp.Deserialize},
		{"vram", VideoRAMSerializeSize, e.vram.Serialize, e.vram.Deserialize},
		{"psg", sn76489.SerializeSize, e.psg.Serialize, e.psg.Deserialize},
		{"io", ioSerializeSize, e.io.serialize, e.io.deserialize},
		{"scheduler", emulatorSerializeSize, e.serializeScheduler, e.deserializeScheduler},
	}
}

// SerializeSize returns the total size in bytes needed for a save state.
func (e *Emulator) SerializeSize() int {
	n := stateHeaderSize
	for _, sec := range e.sections() {
		n += sec.size
	}
	return n
}

// Serialize creates a save state and returns it as a byte slice.
func (e *Emulator) Serialize() ([]byte, error) {
	data := make([]byte, e.SerializeSize())
	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], e.bus.romCRC)

	offset := stateHeaderSize
	for _, sec := range e.sections() {
		if err := sec.save(data[offset : offset+sec.size]); err != nil {
			return nil, fmt.Errorf("save %s: %w", sec.name, err)
		}
		offset += sec.size
	}

	binary.LittleEndian.PutUint32(data[18:22], crc32.ChecksumIEEE(data[stateHeaderSize:]))
	return data, nil
}

// Deserialize restores emulator state from a save state byte slice.
// The region is not part of the state; the VDP keeps following the
// emulator's current region.
func (e *Emulator) Deserialize(data []byte) error {
	if err := e.VerifyState(data); err != nil {
		return err
	}

	offset := stateHeaderSize
	for _, sec := range e.sections() {
		if err := sec.load(data[offset : offset+sec.size]); err != nil {
			return fmt.Errorf("load %s: %w", sec.name, err)
		}
		offset += sec.size
	}

	e.vdp.SetPAL(e.region == RegionPAL)
	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (e *Emulator) VerifyState(data []byte) error {
	expectedSize := e.SerializeSize()
	if len(data) < expectedSize {
		return errors.New("save state too short")
	}

	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}

	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}

	romCRC := binary.LittleEndian.Uint32(data[14:18])
	if romCRC != e.bus.romCRC {
		return errors.New("save state is for a different ROM")
	}

	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:expectedSize])
	if expectedCRC != actualCRC {
		return errors.New("save state data is corrupted")
	}

	return nil
}

func (e *Emulator) serializeBus(buf []byte) error {
	n := copy(buf, e.bus.ram[:])
	n += copy(buf[n:], e.bus.z80RAM[:])
	for _, f := range []bool{e.bus.z80BusRequested, e.bus.z80Reset, e.bus.z80PendingReset, e.bus.dmaStall} {
		buf[n] = boolByte(f)
		n++
	}
	return nil
}

func (e *Emulator) deserializeBus(buf []byte) error {
	n := copy(e.bus.ram[:], buf)
	n += copy(e.bus.z80RAM[:], buf[n:])
	for _, f := range []*bool{&e.bus.z80BusRequested, &e.bus.z80Reset, &e.bus.z80PendingReset, &e.bus.dmaStall} {
		*f = buf[n] != 0
		n++
	}
	return nil
}

func (e *Emulator) serializeZ80Mem(buf []byte) error {
	binary.LittleEndian.PutUint16(buf, e.z80Mem.bank)
	return nil
}

func (e *Emulator) deserializeZ80Mem(buf []byte) error {
	e.z80Mem.bank = binary.LittleEndian.Uint16(buf) & 0x1FF
	return nil
}

// serializeScheduler writes the clock credits and the Z80 INT line.
func (e *Emulator) serializeScheduler(buf []byte) error {
	n := 0
	for _, c := range []int{e.m68kClocks, e.z80Clocks, e.psgClocks, e.psgPending} {
		binary.LittleEndian.PutUint32(buf[n:], uint32(int32(c)))
		n += 4
	}
	buf[n] = boolByte(e.z80Host.line)
	buf[n+1] = boolByte(e.z80Host.taken)
	return nil
}

func (e *Emulator) deserializeScheduler(buf []byte) error {
	n := 0
	for _, c := range []*int{&e.m68kClocks, &e.z80Clocks, &e.psgClocks, &e.psgPending} {
		*c = int(int32(binary.LittleEndian.Uint32(buf[n:])))
		n += 4
	}
	e.z80Host.line = buf[n] != 0
	e.z80Host.taken = buf[n+1] != 0
	return nil
}
