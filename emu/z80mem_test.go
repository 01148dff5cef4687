package emu

import (
	"testing"

	"github.com/user-none/go-chip-m68k"
)

func makeTestZ80Memory() *Z80Memory {
	return NewZ80Memory(makeTestBus())
}

// loadBank shifts a 9-bit bank number into the register, LSB first.
func loadBank(m *Z80Memory, bank uint16) {
	for i := 0; i < 9; i++ {
		m.Write(z80BankReg, uint8(bank>>i)&1)
	}
}

func TestZ80Memory_RAM(t *testing.T) {
	mem := makeTestZ80Memory()

	tests := []struct {
		name  string
		write uint16
		read  uint16
		val   uint8
	}{
		{"base", 0x0000, 0x0000, 0x42},
		{"top", 0x1FFF, 0x1FFF, 0xAB},
		{"read mirror", 0x0100, 0x2100, 0x55},
		{"write mirror", 0x2200, 0x0200, 0x77},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem.Write(tt.write, tt.val)
			if got := mem.Read(tt.read); got != tt.val {
				t.Errorf("expected 0x%02X at $%04X, got 0x%02X", tt.val, tt.read, got)
			}
		})
	}
}

func TestZ80Memory_OpenRanges(t *testing.T) {
	mem := makeTestZ80Memory()

	// FM writes are dropped.
	mem.Write(0x4000, 0xFF)
	mem.Write(0x5FFF, 0xFF)
	if got := mem.bus.z80RAM[0]; got != 0 {
		t.Errorf("expected RAM untouched by FM writes, got 0x%02X", got)
	}
	mem.Write(0x7F20, 0xFF)
	mem.Write(0x7FFF, 0xFF)

	tests := []struct {
		addr uint16
		want uint8
	}{
		{0x4000, 0x00}, // FM idle
		{0x5FFF, 0x00},
		{0x6000, 0xFF}, // bank register is write-only
		{0x6001, 0xFF},
		{0x7EFF, 0xFF},
		{0x7F10, 0xFF}, // PSG is write-only
		{0x7F11, 0xFF},
		{0x7F20, 0xFF},
		{0x7FFF, 0xFF},
	}
	for _, tt := range tests {
		if got := mem.Read(tt.addr); got != tt.want {
			t.Errorf("$%04X: expected 0x%02X, got 0x%02X", tt.addr, tt.want, got)
		}
	}
}

func TestZ80Memory_BankRegister(t *testing.T) {
	mem := makeTestZ80Memory()

	for _, bank := range []uint16{0x1FF, 0x000, 0x100, 0x001, 0x1FE} {
		loadBank(mem, bank)
		if mem.bank != bank {
			t.Errorf("expected bank 0x%03X, got 0x%03X", bank, mem.bank)
		}
	}

	// Only bit 0 of each write is used.
	mem.Write(z80BankReg, 0xFE)
	if mem.bank != 0x0FF {
		t.Errorf("expected 0x0FF after shifting in a 0, got 0x%03X", mem.bank)
	}
}

func TestZ80Memory_BankWindow(t *testing.T) {
	mem := makeTestZ80Memory()

	// Bank 0 is the start of the cartridge: SSP $00FF0000.
	if got := mem.Read(0x8001); got != 0xFF {
		t.Errorf("expected ROM byte 0xFF at $8001, got 0x%02X", got)
	}

	loadBank(mem, 0xFF0000>>15)
	mem.Write(0x8000, 0xAA)
	if got := mem.bus.ReadCycle(0, m68k.Byte, 0xFF0000); uint8(got) != 0xAA {
		t.Errorf("expected 0xAA in work RAM, got 0x%02X", got)
	}
	if got := mem.Read(0x8000); got != 0xAA {
		t.Errorf("expected 0xAA read back through the window, got 0x%02X", got)
	}
}

func TestZ80Memory_BankWindowDuringTransfer(t *testing.T) {
	mem := makeTestZ80Memory()
	loadBank(mem, 0xFF0000>>15)
	mem.Write(0x8000, 0x5A)

	setup68kTransfer(mem.bus.vdp)
	if mem.bus.vdp.BusyState() != BusDMAHalt {
		t.Fatalf("expected %v, got %v", BusDMAHalt, mem.bus.vdp.BusyState())
	}

	if got := mem.Read(0x8000); got != 0xFF {
		t.Errorf("expected open bus while the 68K bus is held, got 0x%02X", got)
	}
	mem.Write(0x8000, 0x11)
	if got := mem.bus.ReadCycle(0, m68k.Byte, 0xFF0000); uint8(got) != 0x5A {
		t.Errorf("expected the write dropped, got 0x%02X", got)
	}

	// Z80 RAM is its own bus.
	mem.Write(0x0010, 0x33)
	if got := mem.Read(0x0010); got != 0x33 {
		t.Errorf("expected Z80 RAM usable during the transfer, got 0x%02X", got)
	}
}

func TestZ80Memory_VDPPorts(t *testing.T) {
	mem := makeTestZ80Memory()
	v := mem.bus.vdp

	// Reset NTSC status is $7608; even byte is the high half.
	if hi, lo := mem.Read(0x7F04), mem.Read(0x7F05); hi != 0x76 || lo != 0x08 {
		t.Errorf("expected status 76 08, got %02X %02X", hi, lo)
	}
	if hi, lo := mem.Read(0x7F08), mem.Read(0x7F09); hi != 0 || lo != 0 {
		t.Errorf("expected HV 00 00 at reset, got %02X %02X", hi, lo)
	}

	// Byte data writes duplicate into both halves of the word.
	v.WriteControl(0x4000)
	v.WriteControl(0x0000)
	mem.Write(0x7F00, 0xAB)
	drainFIFO(t, v)
	if got := vramOf(v)[0:2]; got[0] != 0xAB || got[1] != 0xAB {
		t.Errorf("expected AB AB in VRAM, got %02X %02X", got[0], got[1])
	}

	vramOf(v)[0x1010] = 0xDE
	vramOf(v)[0x1011] = 0xAD
	// Byte writes duplicate: $1010 then $0000 is a VRAM read of $1010.
	mem.Write(0x7F04, 0x10)
	mem.Write(0x7F04, 0x00)
	if got := mem.Read(0x7F00); got != 0xDE {
		t.Errorf("expected 0xDE from the data port, got 0x%02X", got)
	}
}

func TestZ80Memory_PSG(t *testing.T) {
	mem := makeTestZ80Memory()

	// Channel 0 attenuation 5.
	mem.Write(0x7F11, 0x95)
	if got := mem.bus.psg.GetVolume(0); got != 5 {
		t.Errorf("expected PSG volume 5, got %d", got)
	}
	// $7F18 and above is not the PSG.
	mem.Write(0x7F18, 0xB2)
	if got := mem.bus.psg.GetVolume(1); got == 2 {
		t.Error("expected $7F18 not to reach the PSG")
	}
}
