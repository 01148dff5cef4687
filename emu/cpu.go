package emu

import (
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-z80"
)

// Compile-time interface checks.
var _ PrimaryCPU = (*m68kHost)(nil)
var _ CoprocessorCPU = (*z80Host)(nil)

// m68kHost adapts the 68K core to the VDP's PrimaryCPU. cpu and bus are
// filled in after construction because the bus needs the VDP first.
type m68kHost struct {
	cpu *m68k.CPU
	bus *GenesisBus
}

// RaiseInterrupt latches an autovector request when the level is above the
// SR interrupt mask (level 7 is non-maskable).
func (h *m68kHost) RaiseInterrupt(level uint8) bool {
	if h.cpu == nil {
		return false
	}
	if level <= h.interruptMask() && level != 7 {
		return false
	}
	h.cpu.RequestInterrupt(level, nil)
	return true
}

// Read fetches DMA source data. It bypasses the FILL/COPY access check
// since the access comes from the VDP.
func (h *m68kHost) Read(addr uint32, size m68k.Size) uint32 {
	if h.bus == nil {
		return 0
	}
	return h.bus.read(0, size, addr)
}

func (h *m68kHost) ProgramCounter() uint32 {
	if h.cpu == nil {
		return 0
	}
	return h.cpu.Registers().PC
}

// interruptMask returns SR bits 10:8.
func (h *m68kHost) interruptMask() uint8 {
	return uint8(h.cpu.Registers().SR>>8) & 0x07
}

// z80Host adapts the Z80 core to the VDP's CoprocessorCPU. The Z80 has no
// acknowledge output, so the scheduler reports the IFF1 drop that marks
// the CPU taking the interrupt.
type z80Host struct {
	cpu   *z80.CPU
	line  bool // INT held low
	taken bool // interrupt taken while the line was held
}

// Interrupt drives the INT line and reports whether the interrupt has been
// taken since the line went active.
func (h *z80Host) Interrupt(active bool) bool {
	if !active {
		if h.line && h.cpu != nil {
			h.cpu.INT(false, 0xFF)
		}
		h.line = false
		h.taken = false
		return false
	}
	if !h.line {
		if h.cpu != nil {
			h.cpu.INT(true, 0xFF)
		}
		h.line = true
	}
	return h.taken
}

// noteAcknowledge records that the Z80 entered its interrupt handler.
func (h *z80Host) noteAcknowledge() {
	if h.line {
		h.taken = true
	}
}
