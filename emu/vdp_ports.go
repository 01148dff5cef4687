package emu

import (
	"github.com/user-none/go-chip-m68k"

	"github.com/user-none/emvdp/log"
)

// --- Control port ---

// WriteControl writes to the VDP control port.
func (v *VDP) WriteControl(val uint16) {
	// Register writes (bits 15:14 = 10) are always detected, even with a
	// pending first command word, and cancel it.
	if val&0xC000 == 0x8000 {
		reg := uint8(val>>8) & 0x1F
		v.writeRegister(reg, uint8(val))
		v.code = (v.code & 0x3C) | (uint8(val>>14) & 0x03)
		v.writePending = false
		return
	}

	if !v.writePending {
		v.writePending = true
		v.code = (v.code & 0x3C) | (uint8(val>>14) & 0x03)
		v.regs.address = (v.regs.address & 0xC000) | (val & 0x3FFF)
		return
	}

	v.writePending = false
	v.code = (v.code & 0x03) | (uint8(val>>2) & 0x3C)
	v.regs.address = (v.regs.address & 0x3FFF) | ((val & 0x03) << 14)

	if v.code&0x20 != 0 && v.regs.dmaEnabled() {
		v.startDMA()
		return
	}

	if v.code&0x01 == 0 {
		v.prefetch()
	}
}

func (v *VDP) startDMA() {
	mode := v.dma.setup(ramModeFromCode(v.code), v.regs.r[regDMASrcHi], v.regs.dmaEnabled())
	switch mode {
	case DMANone:
		return
	case DMAInvalid:
		v.trace(TraceDMAStart, mode.String(), 0)
		return
	}
	v.stats.DMAStarted++
	v.trace(TraceDMAStart, mode.String(), int(v.regs.dmaLength()))
	v.updateBusy()
}

// ReadControl returns the status register and cancels a pending first
// command word. V-int pending is left alone; only the interrupt
// acknowledge clears it.
//
//	15:10 011101 (fixed)
//	    9 FIFO empty
//	    8 FIFO full
//	    7 V-int pending
//	    4 odd field (interlace only)
//	    3 V-blank (or display disabled)
//	    2 H-blank
//	    1 DMA busy
//	    0 PAL
func (v *VDP) ReadControl() uint16 {
	var status uint16 = 0x7400

	if v.fifo.isEmpty() {
		status |= 1 << 9
	}
	if v.fifo.isFull() {
		status |= 1 << 8
	}
	if v.hv.vIntPending {
		status |= 1 << 7
	}
	if v.oddField && v.regs.interlaceMode() != 0 {
		status |= 1 << 4
	}
	if v.hv.vBlank || !v.regs.displayEnabled() {
		status |= 1 << 3
	}
	if v.hv.hBlank {
		status |= 1 << 2
	}
	if v.dma.inProgress() {
		status |= 1 << 1
	}
	if v.pal {
		status |= 1
	}

	v.writePending = false
	return status
}

// writeRegister writes a register and applies its side effects.
func (v *VDP) writeRegister(reg uint8, data uint8) {
	if reg >= numRegisters {
		log.ModVDP.Debugf("write to unused register %d ignored", reg)
		return
	}
	old := v.regs.r[reg]
	v.regs.r[reg] = data

	switch reg {
	case regMode1:
		switch {
		case old&0x02 == 0 && data&0x02 != 0:
			v.hvLatchValue = v.formatHVCounter()
			v.hvLatched = true
		case old&0x02 != 0 && data&0x02 == 0:
			v.hvLatched = false
		}
	case regMode2, regMode4:
		v.selectCounterMode()
	case regHIntCounter:
		v.lc.setReload(int(data))
	}
}

// --- Data port ---

// WriteData queues a write to the data port. The write reaches video
// memory when the FIFO is serviced on an external slot.
func (v *VDP) WriteData(val uint16) {
	v.writePending = false

	mode := ramModeFromCode(v.code)
	if !mode.isWrite() {
		log.ModVDP.WithFields(log.Fields{
			"target": mode.String(),
			"data":   val,
			"pc":     v.programCounter(),
		}).Warnf("data port write with a non-write target dropped")
		v.regs.address += v.regs.autoIncrement()
		return
	}

	if !v.fifo.push(fifoEntry{ramMode: mode, address: v.regs.address, data: val}) {
		v.stats.FIFOOverflows++
	}
	v.regs.address += v.regs.autoIncrement()

	if v.dma.setupFillMaybe(val) {
		v.trace(TraceFillArmed, "", int(val))
	}
	v.updateBusy()
}

// ReadData returns the pre-fetched value and fetches the next one. Reading
// while writes are still queued returns the stale buffer.
func (v *VDP) ReadData() uint16 {
	v.writePending = false

	if !v.fifo.isEmpty() {
		log.ModVDP.WithFields(log.Fields{
			"queued": v.fifo.len(),
			"pc":     v.programCounter(),
		}).Warnf("data port read with writes pending")
	}

	result := v.readBuffer
	v.prefetch()
	return result
}

// prefetch reads the next value into readBuffer for the current target.
func (v *VDP) prefetch() {
	mode := ramModeFromCode(v.code)
	if mode.isRead() {
		v.readBuffer = v.mem.ReadWord(mode, v.regs.address)
	} else {
		v.readBuffer = 0
	}
	v.regs.address += v.regs.autoIncrement()
}

func (v *VDP) programCounter() uint32 {
	if v.primary == nil {
		return 0
	}
	return v.primary.ProgramCounter()
}

// --- HV Counter ---

// formatHVCounter packs the external V and H counters.
//
//	Non-interlace:    V[7:0] | H[7:0]
//	Interlace normal: V[7:1]:V[8] | H[7:0]
//	Interlace double: (V<<1)[7:1]:(V<<1)[8] | H[7:0]
func (v *VDP) formatHVCounter() uint16 {
	return uint16(v.hv.vExternal(v.regs.interlaceMode()))<<8 | uint16(v.hv.hExternal())
}

// ReadHVCounter returns the HV counter, or the latched value while the
// latch is engaged.
func (v *VDP) ReadHVCounter() uint16 {
	if v.hvLatched {
		return v.hvLatchValue
	}
	return v.formatHVCounter()
}

// LatchHVCounter captures the HV counter on an external HL pin edge. It
// only has an effect while latch mode is enabled.
func (v *VDP) LatchHVCounter() {
	if v.regs.hvLatchEnabled() {
		v.hvLatchValue = v.formatHVCounter()
		v.hvLatched = true
	}
}

// --- Bus ports ---

// WritePort handles a CPU write to the VDP port block. addr is the port
// offset (0x00-0x1F). Byte writes are seen by the VDP on both halves of
// the data bus; long writes are two word writes, high word first.
func (v *VDP) WritePort(size m68k.Size, addr uint32, val uint32) {
	addr &= 0x1F
	switch size {
	case m68k.Byte:
		b := uint16(val & 0xFF)
		v.writePortWord(addr, b<<8|b)
	case m68k.Long:
		v.writePortWord(addr, uint16(val>>16))
		v.writePortWord(addr+2, uint16(val))
	default:
		v.writePortWord(addr, uint16(val))
	}
}

// ReadPort handles a CPU read from the VDP port block. Byte reads return
// the high byte on even addresses and the low byte on odd ones.
func (v *VDP) ReadPort(size m68k.Size, addr uint32) uint32 {
	addr &= 0x1F
	switch size {
	case m68k.Byte:
		w := v.readPortWord(addr &^ 1)
		if addr&1 == 0 {
			return uint32(w >> 8)
		}
		return uint32(w & 0xFF)
	case m68k.Long:
		hi := v.readPortWord(addr)
		lo := v.readPortWord(addr + 2)
		return uint32(hi)<<16 | uint32(lo)
	default:
		return uint32(v.readPortWord(addr))
	}
}

func (v *VDP) writePortWord(addr uint32, val uint16) {
	switch {
	case addr < 0x04:
		v.WriteData(val)
	case addr < 0x08:
		v.WriteControl(val)
	default:
		log.ModVDP.Debugf("write to port %02X ignored", addr)
	}
}

func (v *VDP) readPortWord(addr uint32) uint16 {
	switch {
	case addr < 0x04:
		return v.ReadData()
	case addr < 0x08:
		return v.ReadControl()
	case addr < 0x10:
		return v.ReadHVCounter()
	}
	return 0xFFFF
}
