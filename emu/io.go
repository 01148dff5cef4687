package emu

import (
	"errors"

	"github.com/user-none/emvdp/log"
)

// ioPorts is the I/O block at $A10000. No peripherals are attached: input
// pins read as pulled high. Port 2 TH is wired to the VDP HL pin, so a
// falling TH edge with TH interrupts enabled latches the HV counter.
type ioPorts struct {
	console ConsoleRegion
	pal     bool
	vdp     *VDP

	p1Data byte // Port 1 data register (output values)
	p1Ctrl byte // Port 1 ctrl register (1=output, 0=input)
	p2Data byte // Port 2 data register
	p2Ctrl byte // Port 2 ctrl register

	p2THHigh bool
}

const (
	ioSerializeVersion = 1
	// ioSerializeSize: version(1) + p1Data(1) + p1Ctrl(1) + p2Data(1) +
	// p2Ctrl(1) + p2THHigh(1)
	ioSerializeSize = 6
)

func newIOPorts(vdp *VDP, console ConsoleRegion, pal bool) *ioPorts {
	return &ioPorts{
		console:  console,
		pal:      pal,
		vdp:      vdp,
		p2THHigh: true, // TH pulled high at power-on
	}
}

// versionRegister returns $A10001: bit 7 overseas, bit 6 PAL, bit 5 no
// expansion unit.
func (io *ioPorts) versionRegister() byte {
	var val byte = 0x20
	if io.console != ConsoleJapan {
		val |= 0x80
	}
	if io.pal {
		val |= 0x40
	}
	return val
}

// readData combines output pins from the data register with the
// pulled-up input pins.
func readData(data, ctrl byte) byte {
	return (data & ctrl & 0x7F) | (0x7F &^ ctrl)
}

// ReadRegister reads an I/O register by address.
func (io *ioPorts) ReadRegister(addr uint32) byte {
	switch addr {
	case 0xA10001:
		return io.versionRegister()
	case 0xA10003:
		return readData(io.p1Data, io.p1Ctrl)
	case 0xA10005:
		return readData(io.p2Data, io.p2Ctrl)
	case 0xA10007:
		return 0x7F
	case 0xA10009:
		return io.p1Ctrl
	case 0xA1000B:
		return io.p2Ctrl
	default:
		return 0x00
	}
}

// WriteRegister writes an I/O register by address.
func (io *ioPorts) WriteRegister(addr uint32, val byte) {
	switch addr {
	case 0xA10003:
		io.p1Data = val
	case 0xA10005:
		io.p2Data = val
		io.updateTH()
	case 0xA10009:
		io.p1Ctrl = val
	case 0xA1000B:
		io.p2Ctrl = val
		io.updateTH()
	}
}

// updateTH tracks the port 2 TH pin. TH reads high when configured as an
// input.
func (io *ioPorts) updateTH() {
	high := true
	if io.p2Ctrl&0x40 != 0 {
		high = io.p2Data&0x40 != 0
	}
	if io.p2THHigh && !high && io.p2Ctrl&0x80 != 0 && io.vdp != nil {
		log.ModBus.Debugf("TH falling edge on port 2, latching HV counter")
		io.vdp.LatchHVCounter()
	}
	io.p2THHigh = high
}

func (io *ioPorts) serialize(buf []byte) error {
	if len(buf) < ioSerializeSize {
		return errors.New("IO serialize buffer too small")
	}
	buf[0] = ioSerializeVersion
	buf[1] = io.p1Data
	buf[2] = io.p1Ctrl
	buf[3] = io.p2Data
	buf[4] = io.p2Ctrl
	buf[5] = boolByte(io.p2THHigh)
	return nil
}

func (io *ioPorts) deserialize(buf []byte) error {
	if len(buf) < ioSerializeSize {
		return errors.New("IO deserialize buffer too small")
	}
	if buf[0] > ioSerializeVersion {
		return errors.New("unsupported IO state version")
	}
	io.p1Data = buf[1]
	io.p1Ctrl = buf[2]
	io.p2Data = buf[3]
	io.p2Ctrl = buf[4]
	io.p2THHigh = buf[5] != 0
	return nil
}
