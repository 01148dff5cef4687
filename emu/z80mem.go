package emu

import (
	"github.com/user-none/go-chip-m68k"

	"github.com/user-none/emvdp/log"
)

const (
	z80MirrorEnd = 0x4000
	z80FMEnd     = 0x6000
	z80BankReg   = 0x6000
	z80PortStart = 0x7F00
	z80PortEnd   = 0x7F20
	z80BankStart = 0x8000
)

// Z80Memory is the Z80 address space. RAM and the bank register are local;
// the port block and the bank window reach the VDP and the 68K bus.
//
//	$0000-$3FFF  8KB RAM, mirrored
//	$4000-$5FFF  FM ports, idle
//	$6000        bank register, one address bit per write
//	$7F00-$7F1F  VDP ports, PSG at $7F11
//	$8000-$FFFF  32KB window into 68K space
type Z80Memory struct {
	bus  *GenesisBus
	bank uint16 // 68K address bits 23:15
}

// NewZ80Memory creates a Z80Memory connected to the given GenesisBus.
func NewZ80Memory(bus *GenesisBus) *Z80Memory {
	return &Z80Memory{bus: bus}
}

func (m *Z80Memory) Fetch(addr uint16) uint8 {
	return m.Read(addr)
}

func (m *Z80Memory) Read(addr uint16) uint8 {
	switch {
	case addr < z80MirrorEnd:
		return m.bus.z80RAM[addr%z80RAMSize]
	case addr < z80FMEnd:
		return 0x00 // FM status: not busy, no timer flags
	case addr >= z80PortStart && addr < z80PortEnd:
		return m.readPort(uint32(addr - z80PortStart))
	case addr < z80BankStart:
		return 0xFF
	}
	a, ok := m.bankAddress(addr)
	if !ok {
		return 0xFF
	}
	return uint8(m.bus.read(0, m68k.Byte, a))
}

func (m *Z80Memory) Write(addr uint16, val uint8) {
	switch {
	case addr < z80MirrorEnd:
		m.bus.z80RAM[addr%z80RAMSize] = val
	case addr < z80FMEnd:
	case addr == z80BankReg:
		m.bank = m.bank>>1 | uint16(val&1)<<8
	case addr >= z80PortStart && addr < z80PortEnd:
		m.writePort(uint32(addr-z80PortStart), val)
	case addr < z80BankStart:
	default:
		if a, ok := m.bankAddress(addr); ok {
			m.bus.write(m68k.Byte, a, uint32(val))
		}
	}
}

// bankAddress maps a window address into 68K space. The window shares the
// 68K bus, so it is unavailable while a 68K->VDP transfer holds that bus.
func (m *Z80Memory) bankAddress(addr uint16) (uint32, bool) {
	a := uint32(m.bank)<<15 | uint32(addr&0x7FFF)
	if m.bus.vdp.BusyState() == BusDMAHalt {
		log.ModBus.WithField("addr", a).Debugf("Z80 bank access during 68K DMA")
		return a, false
	}
	return a, true
}

// readPort reads the VDP block with the 68K layout. The PSG and debug
// registers are write-only.
func (m *Z80Memory) readPort(port uint32) uint8 {
	if port >= 0x10 {
		return 0xFF
	}
	return uint8(m.bus.vdp.ReadPort(m68k.Byte, port))
}

func (m *Z80Memory) writePort(port uint32, val uint8) {
	switch {
	case port < 0x10:
		m.bus.vdp.WritePort(m68k.Byte, port, uint32(val))
	case port < 0x18:
		m.bus.psg.Write(val)
	}
}

// In and Out: the Z80 has nothing on its I/O space here.
func (m *Z80Memory) In(port uint16) uint8 {
	return 0xFF
}

func (m *Z80Memory) Out(port uint16, val uint8) {}
