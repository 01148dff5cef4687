package emu

import (
	"fmt"

	"github.com/user-none/go-chip-m68k"

	"github.com/user-none/emvdp/log"
)

// DMAMode is the transfer type resolved at DMA setup.
type DMAMode uint8

const (
	DMANone DMAMode = iota
	DMAFill
	DMACopy
	DMAMemToVRAM
	// DMAInvalid is returned by setup for a combination the VDP cannot run.
	// It is never stored as the engine's mode.
	DMAInvalid
)

func (m DMAMode) String() string {
	switch m {
	case DMANone:
		return "none"
	case DMAFill:
		return "fill"
	case DMACopy:
		return "copy"
	case DMAMemToVRAM:
		return "68k"
	case DMAInvalid:
		return "invalid"
	}
	return fmt.Sprintf("DMAMode(%d)", uint8(m))
}

// AddressRange is a half-open range of 68K byte addresses.
type AddressRange struct {
	Start uint32
	End   uint32
}

func (r AddressRange) contains(addr uint32) bool {
	return addr >= r.Start && addr < r.End
}

// DefaultFastDMAWindows is the SVP DRAM window. Transfers from it skip the
// first word, matching the one-word lag of the cartridge bus.
var DefaultFastDMAWindows = []AddressRange{{Start: 0x300000, End: 0x320000}}

// dmaEngine runs fill, copy and 68K transfers one external slot at a time.
// Length, source and destination are not owned by the engine: they live in
// the register file and are updated there after every step.
type dmaEngine struct {
	regs *vdpRegisters
	mem  VideoMemory
	cpu  PrimaryCPU
	fifo *dataFifo

	fastWindows []AddressRange

	mode    DMAMode
	ramMode RAMMode

	fillData  uint16
	fillArmed bool

	copyPending bool
	copyByte    uint8
}

func (d *dmaEngine) reset() {
	d.mode = DMANone
	d.ramMode = VRAMRead
	d.fillData = 0
	d.fillArmed = false
	d.copyPending = false
	d.copyByte = 0
}

// setup decodes register 23 bits 7:6 against the target selected by the
// command word and starts a transfer. Invalid combinations are logged and
// leave the engine and registers untouched.
func (d *dmaEngine) setup(ramMode RAMMode, reg23 uint8, enabled bool) DMAMode {
	if !enabled {
		return DMANone
	}

	var mode DMAMode
	switch reg23 >> 6 {
	case 0, 1:
		mode = DMAMemToVRAM
	case 2:
		mode = DMAFill
	case 3:
		mode = DMACopy
	}

	valid := false
	switch mode {
	case DMAMemToVRAM, DMAFill:
		valid = ramMode.isWrite()
	case DMACopy:
		valid = ramMode.target() == targetVRAM
	}
	if !valid {
		log.ModDMA.WithFields(log.Fields{
			"mode":   mode.String(),
			"target": ramMode.String(),
			"reg23":  reg23,
		}).Warnf("invalid DMA configuration, transfer aborted")
		return DMAInvalid
	}

	d.mode = mode
	d.ramMode = ramMode
	d.fillArmed = false
	d.copyPending = false

	log.ModDMA.WithFields(log.Fields{
		"mode":   mode.String(),
		"target": ramMode.String(),
		"length": d.regs.dmaLength(),
		"source": d.regs.dmaSource(),
		"dest":   d.regs.address,
	}).Debugf("DMA setup")

	if mode == DMAMemToVRAM && d.fastSource(d.regs.dmaSource()<<1) {
		d.preAdvance()
	}
	return mode
}

func (d *dmaEngine) fastSource(addr uint32) bool {
	for _, w := range d.fastWindows {
		if w.contains(addr) {
			return true
		}
	}
	return false
}

// preAdvance consumes one step of length and destination without a
// transfer.
func (d *dmaEngine) preAdvance() {
	n := d.regs.dmaLength() - 1
	d.regs.setDMALength(n)
	d.regs.address += d.regs.autoIncrement()
	if n == 0 {
		d.mode = DMANone
	}
}

// setupFillMaybe arms a pending fill with the data-port value. It reports
// whether the write armed the fill.
func (d *dmaEngine) setupFillMaybe(data uint16) bool {
	if d.mode != DMAFill || d.fillArmed {
		return false
	}
	d.fillData = data
	d.fillArmed = true
	return true
}

// inProgress reports whether the engine wants external slots. A fill does
// not count until the data-port write has armed it.
func (d *dmaEngine) inProgress() bool {
	switch d.mode {
	case DMAFill:
		return d.fillArmed
	case DMACopy, DMAMemToVRAM:
		return true
	}
	return false
}

// busy returns the bus state the current transfer imposes on the 68K.
func (d *dmaEngine) busy() BusyState {
	if !d.inProgress() {
		return BusNotBusy
	}
	if d.mode == DMAMemToVRAM {
		return BusDMAHalt
	}
	return BusDMARestricted
}

// step consumes one external slot. It reports whether the transfer
// finished on this step.
func (d *dmaEngine) step() bool {
	if !d.inProgress() {
		return false
	}

	switch d.mode {
	case DMAFill:
		dest := d.regs.address ^ 1
		d.mem.WriteByteAt(d.ramMode, dest, uint8(d.fillData>>8))

	case DMACopy:
		src := uint16(d.regs.dmaSource()) ^ 1
		if !d.copyPending {
			d.copyByte = d.mem.ReadByteAt(VRAMRead, src)
			d.copyPending = true
			return false
		}
		d.mem.WriteByteAt(VRAMWrite, d.regs.address^1, d.copyByte)
		d.copyPending = false

	case DMAMemToVRAM:
		addr := (d.regs.dmaSource() << 1) & 0xFFFFFF
		var word uint16
		if d.cpu != nil {
			word = uint16(d.cpu.Read(addr, m68k.Word))
		}
		d.fifo.push(fifoEntry{
			ramMode: d.ramMode,
			address: d.regs.address,
			data:    word,
		})
	}

	return d.postStep()
}

// postStep is shared by every mode: length-- with 16-bit wrap, source++
// inside its 128KB window, destination += auto-increment.
func (d *dmaEngine) postStep() bool {
	n := d.regs.dmaLength() - 1
	d.regs.setDMALength(n)
	d.regs.incDMASource()
	d.regs.address += d.regs.autoIncrement()
	if n != 0 {
		return false
	}
	log.ModDMA.Debugf("DMA %s complete", d.mode)
	d.mode = DMANone
	d.fillArmed = false
	return true
}
