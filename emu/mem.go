package emu

import (
	"hash/crc32"

	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-sn76489"

	"github.com/user-none/emvdp/log"
)

const (
	mainRAMSize = 0x10000  // 64KB main 68K RAM
	z80RAMSize  = 0x2000   // 8KB Z80 RAM
	maxROMSize  = 0x400000 // 4MB max ROM

	ramMirrorStart = 0xE00000 // main RAM repeats every 64KB from here

	autovectorBase = 24 * 4 // vector for level n is at autovectorBase + n*4
)

// GenesisBus implements m68k.CycleBus with the Genesis memory map.
//
// Address map (M68K view, 24-bit):
//
//	0x000000-0x3FFFFF  ROM (up to 4MB, read-only)
//	0xA00000-0xA0FFFF  Z80 address space (0xA00000-0xA01FFF = 8KB Z80 RAM)
//	0xA10000-0xA1001F  I/O registers
//	0xA11100-0xA11101  Z80 bus request
//	0xA11200-0xA11201  Z80 reset
//	0xC00000-0xC00003  VDP data port
//	0xC00004-0xC00007  VDP control port
//	0xC00008-0xC0000F  VDP HV counter
//	0xC00011           PSG write port
//	0xE00000-0xFFFFFF  68K main RAM (64KB, mirrored every 64KB)
//
// While a VDP fill or copy runs, the 68K may only touch the VDP control
// port, the HV counter and the PSG. Any other access sets dmaStall and the
// scheduler holds the 68K until the transfer ends.
type GenesisBus struct {
	rom    []byte
	ram    [mainRAMSize]byte
	z80RAM [z80RAMSize]byte
	romCRC uint32
	vdp    *VDP
	io     *ioPorts
	psg    *sn76489.SN76489

	z80BusRequested bool
	z80Reset        bool
	z80PendingReset bool // Set when Z80 reset transitions from asserted to deasserted

	dmaStall bool

	// vectorFetch is the level whose autovector the 68K read while entering
	// its handler, 0 if none since the last take.
	vectorFetch uint8

	// CPU reference for instruction-aware bus behavior (TAS write suppression)
	cpu *m68k.CPU
}

// NewGenesisBus creates a new GenesisBus with the given ROM, VDP, IO and PSG.
func NewGenesisBus(rom []byte, vdp *VDP, io *ioPorts, psg *sn76489.SN76489) *GenesisBus {
	if len(rom) > maxROMSize {
		rom = rom[:maxROMSize]
	}
	return &GenesisBus{
		rom:    rom,
		romCRC: crc32.ChecksumIEEE(rom),
		vdp:    vdp,
		io:     io,
		psg:    psg,
	}
}

// SetCPU sets the CPU reference for instruction-aware bus behavior.
// Called after CPU creation due to circular construction dependency.
func (b *GenesisBus) SetCPU(cpu *m68k.CPU) {
	b.cpu = cpu
}

// isTASWriteBack returns true if the current 68K instruction is TAS with a
// memory operand. The VDP bus arbiter does not support read-modify-write
// cycles, so the write-back never completes.
func (b *GenesisBus) isTASWriteBack() bool {
	if b.cpu == nil {
		return false
	}
	ir := b.cpu.Registers().IR
	// TAS opcode: 0100 1010 11MM MRRR (0x4AC0-0x4AFF)
	// Mode 000 = data register (write goes to register, not bus)
	return ir&0xFFC0 == 0x4AC0 && ir&0x0038 != 0
}

// restrictedAllowed reports whether addr may be accessed while a fill or
// copy holds the VDP bus.
func restrictedAllowed(addr uint32, write bool) bool {
	if addr < 0xC00000 || addr > 0xDFFFFF {
		return false
	}
	port := addr & 0x1F
	switch {
	case port >= 0x04 && port < 0x08:
		return true
	case port >= 0x08 && port < 0x10:
		return !write
	case port >= 0x10 && port < 0x18:
		return write
	}
	return false
}

func (b *GenesisBus) checkRestricted(addr uint32, write bool) {
	if b.dmaStall || b.vdp.BusyState() != BusDMARestricted {
		return
	}
	if !restrictedAllowed(addr&0xFFFFFF, write) {
		log.ModBus.Debugf("68K access to %06X during VDP fill/copy, stalling", addr&0xFFFFFF)
		b.dmaStall = true
	}
}

// Read implements m68k.Bus.
func (b *GenesisBus) Read(s m68k.Size, addr uint32) uint32 {
	return b.ReadCycle(0, s, addr)
}

// ReadCycle implements m68k.CycleBus.
func (b *GenesisBus) ReadCycle(cycle uint64, s m68k.Size, addr uint32) uint32 {
	b.checkRestricted(addr, false)
	b.noteVectorFetch(s, addr)
	return b.read(cycle, s, addr)
}

// noteVectorFetch records the handler address read that ends 68K interrupt
// entry. By then the CPU has already raised its mask to the level.
func (b *GenesisBus) noteVectorFetch(s m68k.Size, addr uint32) {
	addr &= 0xFFFFFF
	if s != m68k.Long || b.cpu == nil || addr&3 != 0 {
		return
	}
	if addr <= autovectorBase || addr > autovectorBase+7*4 {
		return
	}
	level := uint8((addr - autovectorBase) / 4)
	if uint8(b.cpu.Registers().SR>>8)&0x07 == level {
		b.vectorFetch = level
	}
}

// takeVectorFetch returns and clears the recorded autovector level.
func (b *GenesisBus) takeVectorFetch() uint8 {
	level := b.vectorFetch
	b.vectorFetch = 0
	return level
}

func (b *GenesisBus) read(cycle uint64, s m68k.Size, addr uint32) uint32 {
	addr &= 0xFFFFFF

	switch {
	case addr < 0x400000:
		return b.readROM(s, addr)
	case addr >= 0xA00000 && addr <= 0xA0FFFF:
		return b.readZ80(s, addr)
	case addr >= 0xA10000 && addr <= 0xA1001F:
		return readSized(s, func(i uint32) byte { return b.io.ReadRegister(addr + i) })
	case addr >= 0xA11100 && addr <= 0xA11101:
		// Bit 0 of the high byte clear means the 68K owns the Z80 bus.
		return readSized(s, fixedBytes(boolByte(!b.z80BusRequested), 0))
	case addr >= 0xA11200 && addr <= 0xA11201:
		return 0
	case addr >= 0xC00000 && addr <= 0xDFFFFF:
		return b.vdp.ReadPort(s, addr)
	case addr >= ramMirrorStart:
		return readSized(s, func(i uint32) byte { return b.ram[(addr+i)&0xFFFF] })
	}
	return 0
}

// Write implements m68k.Bus.
func (b *GenesisBus) Write(s m68k.Size, addr uint32, value uint32) {
	b.WriteCycle(0, s, addr, value)
}

// WriteCycle implements m68k.CycleBus.
func (b *GenesisBus) WriteCycle(cycle uint64, s m68k.Size, addr uint32, value uint32) {
	if b.isTASWriteBack() {
		return
	}
	b.checkRestricted(addr, true)
	b.write(s, addr, value)
}

func (b *GenesisBus) write(s m68k.Size, addr uint32, value uint32) {
	addr &= 0xFFFFFF

	switch {
	case addr < 0x400000:
	case addr >= 0xA00000 && addr <= 0xA0FFFF:
		off := addr - 0xA00000
		writeSized(s, value, func(i uint32, v byte) {
			if off+i < z80RAMSize {
				b.z80RAM[off+i] = v
			}
		})
	case addr >= 0xA10000 && addr <= 0xA1001F:
		writeSized(s, value, func(i uint32, v byte) { b.io.WriteRegister(addr+i, v) })
	case addr >= 0xA11100 && addr <= 0xA11201:
		b.writeZ80Control(s, addr, value)
	case addr >= 0xC00000 && addr <= 0xDFFFFF:
		if port := addr & 0x1F; port >= 0x10 && port < 0x18 {
			b.psg.Write(byte(value))
			return
		}
		b.vdp.WritePort(s, addr, value)
	case addr >= ramMirrorStart:
		writeSized(s, value, func(i uint32, v byte) { b.ram[(addr+i)&0xFFFF] = v })
	}
}

// writeZ80Control handles the bus request ($A11100) and reset ($A11200)
// lines. Only bit 0 of the even byte is decoded.
func (b *GenesisBus) writeZ80Control(s m68k.Size, addr uint32, value uint32) {
	var bit, ok bool
	switch s {
	case m68k.Byte:
		bit, ok = value&0x01 != 0, addr&1 == 0
	default:
		bit, ok = value&0x0100 != 0, true
	}
	if !ok {
		return
	}
	switch addr &^ 1 {
	case 0xA11100:
		b.z80BusRequested = bit
	case 0xA11200:
		if !b.z80Reset && bit {
			b.z80PendingReset = true
		}
		b.z80Reset = bit
	}
}

// Reset clears RAM. Implements m68k.Bus.
func (b *GenesisBus) Reset() {
	b.ram = [mainRAMSize]byte{}
	b.z80RAM = [z80RAMSize]byte{}
}

// GetROMCRC32 returns the CRC32 of the loaded ROM.
func (b *GenesisBus) GetROMCRC32() uint32 {
	return b.romCRC
}

// readROM returns 0 for any access that runs past the end of the image.
func (b *GenesisBus) readROM(s m68k.Size, addr uint32) uint32 {
	if addr+uint32(sizeBytes(s)) > uint32(len(b.rom)) {
		return 0
	}
	return readSized(s, func(i uint32) byte { return b.rom[addr+i] })
}

// readZ80 exposes Z80 RAM; the rest of the window reads as idle FM.
func (b *GenesisBus) readZ80(s m68k.Size, addr uint32) uint32 {
	off := addr - 0xA00000
	if off >= z80RAMSize {
		return 0
	}
	return readSized(s, func(i uint32) byte {
		if off+i < z80RAMSize {
			return b.z80RAM[off+i]
		}
		return 0
	})
}

func sizeBytes(s m68k.Size) int {
	switch s {
	case m68k.Word:
		return 2
	case m68k.Long:
		return 4
	}
	return 1
}

// readSized assembles a big-endian value from byte i of the access.
func readSized(s m68k.Size, at func(i uint32) byte) uint32 {
	var v uint32
	for i := range uint32(sizeBytes(s)) {
		v = v<<8 | uint32(at(i))
	}
	return v
}

// writeSized splits a big-endian value into byte stores.
func writeSized(s m68k.Size, value uint32, put func(i uint32, v byte)) {
	n := uint32(sizeBytes(s))
	for i := range n {
		put(i, byte(value>>(8*(n-1-i))))
	}
}

// fixedBytes serves a two-byte register; long reads see it in the upper word.
func fixedBytes(hi, lo byte) func(uint32) byte {
	return func(i uint32) byte {
		switch i {
		case 0:
			return hi
		case 1:
			return lo
		}
		return 0
	}
}
