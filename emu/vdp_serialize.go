package emu

import (
	"encoding/binary"
	"errors"
)

const (
	vdpSerializeVersion = 1

	// VDPSerializeSize is the total bytes needed for VDP core serialization.
	// Video memory is not included; see VideoRAM.Serialize.
	//
	// version(1) + regs(24) + address(2) + writePending(1) + code(1) +
	// readBuffer(2) + hvLatched(1) + hvLatchValue(2) + oddField(1) + pal(1) +
	// busy(1) + slot(4) +
	// hv: hCounter(2) + vCounter(2) + hJumped(1) + vJumped(1) +
	// pixelNumber(2) + hBlank(1) + vBlank(1) + vIntPending(1) + vIntPulse(1) +
	// lineCounter: remaining(4) + reload(4) + pending(1) +
	// fifo: head(1) + count(1) + 4 x (mode(1) + address(2) + data(2) + first(1)) +
	// dma: mode(1) + ramMode(1) + fillData(2) + fillArmed(1) + copyPending(1) + copyByte(1) +
	// arbiter: primaryState(1) + assertedLevel(1) + copState(1) + expired(1) +
	// stats: 6 x 8
	VDPSerializeSize = 41 + 12 + 9 + (2 + fifoCapacity*6) + 7 + 4 + 6*8
)

// Serialize writes VDP core state to buf. buf must be at least
// VDPSerializeSize bytes.
func (v *VDP) Serialize(buf []byte) error {
	if len(buf) < VDPSerializeSize {
		return errors.New("VDP serialize buffer too small")
	}

	offset := 0

	// Version
	buf[offset] = vdpSerializeVersion
	offset++

	// Registers and control port
	copy(buf[offset:], v.regs.r[:])
	offset += numRegisters
	binary.LittleEndian.PutUint16(buf[offset:], v.regs.address)
	offset += 2
	buf[offset] = boolByte(v.writePending)
	offset++
	buf[offset] = v.code
	offset++
	binary.LittleEndian.PutUint16(buf[offset:], v.readBuffer)
	offset += 2
	buf[offset] = boolByte(v.hvLatched)
	offset++
	binary.LittleEndian.PutUint16(buf[offset:], v.hvLatchValue)
	offset += 2
	buf[offset] = boolByte(v.oddField)
	offset++
	buf[offset] = boolByte(v.pal)
	offset++
	buf[offset] = uint8(v.busy)
	offset++
	binary.LittleEndian.PutUint32(buf[offset:], uint32(int32(v.slot)))
	offset += 4

	// Counters
	binary.LittleEndian.PutUint16(buf[offset:], uint16(v.hv.hCounter))
	offset += 2
	binary.LittleEndian.PutUint16(buf[offset:], uint16(v.hv.vCounter))
	offset += 2
	buf[offset] = boolByte(v.hv.hJumped)
	offset++
	buf[offset] = boolByte(v.hv.vJumped)
	offset++
	binary.LittleEndian.PutUint16(buf[offset:], uint16(v.hv.pixelNumber))
	offset += 2
	buf[offset] = boolByte(v.hv.hBlank)
	offset++
	buf[offset] = boolByte(v.hv.vBlank)
	offset++
	buf[offset] = boolByte(v.hv.vIntPending)
	offset++
	buf[offset] = boolByte(v.hv.vIntPulse)
	offset++

	// Line counter
	binary.LittleEndian.PutUint32(buf[offset:], uint32(int32(v.lc.remaining)))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(int32(v.lc.reload)))
	offset += 4
	buf[offset] = boolByte(v.lc.pending)
	offset++

	// FIFO
	buf[offset] = uint8(v.fifo.head)
	offset++
	buf[offset] = uint8(v.fifo.count)
	offset++
	for _, e := range v.fifo.entries {
		buf[offset] = uint8(e.ramMode)
		offset++
		binary.LittleEndian.PutUint16(buf[offset:], e.address)
		offset += 2
		binary.LittleEndian.PutUint16(buf[offset:], e.data)
		offset += 2
		buf[offset] = boolByte(e.firstByteWritten)
		offset++
	}

	// DMA
	buf[offset] = uint8(v.dma.mode)
	offset++
	buf[offset] = uint8(v.dma.ramMode)
	offset++
	binary.LittleEndian.PutUint16(buf[offset:], v.dma.fillData)
	offset += 2
	buf[offset] = boolByte(v.dma.fillArmed)
	offset++
	buf[offset] = boolByte(v.dma.copyPending)
	offset++
	buf[offset] = v.dma.copyByte
	offset++

	// Arbiter
	buf[offset] = uint8(v.arb.primaryState)
	offset++
	buf[offset] = v.arb.assertedLevel
	offset++
	buf[offset] = uint8(v.arb.copState)
	offset++
	buf[offset] = boolByte(v.arb.vIntFrameExpired)
	offset++

	// Stats
	for _, n := range []uint64{
		v.stats.Frames, v.stats.VInts, v.stats.HInts,
		v.stats.DMAStarted, v.stats.DMACompleted, v.stats.FIFOOverflows,
	} {
		binary.LittleEndian.PutUint64(buf[offset:], n)
		offset += 8
	}

	return nil
}

// Deserialize reads VDP core state from buf. buf must be at least
// VDPSerializeSize bytes. The counter mode is re-derived from the restored
// registers and region.
func (v *VDP) Deserialize(buf []byte) error {
	if len(buf) < VDPSerializeSize {
		return errors.New("VDP deserialize buffer too small")
	}

	offset := 0

	// Version
	version := buf[offset]
	offset++
	if version > vdpSerializeVersion {
		return errors.New("unsupported VDP state version")
	}

	// Registers and control port
	copy(v.regs.r[:], buf[offset:offset+numRegisters])
	offset += numRegisters
	v.regs.address = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	v.writePending = buf[offset] != 0
	offset++
	v.code = buf[offset]
	offset++
	v.readBuffer = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	v.hvLatched = buf[offset] != 0
	offset++
	v.hvLatchValue = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	v.oddField = buf[offset] != 0
	offset++
	v.pal = buf[offset] != 0
	offset++
	v.busy = BusyState(buf[offset])
	offset++
	v.slot = int(int32(binary.LittleEndian.Uint32(buf[offset:])))
	offset += 4

	// Counters
	v.hv.mode = v.currentCounterMode()
	v.hv.hCounter = int(binary.LittleEndian.Uint16(buf[offset:]))
	offset += 2
	v.hv.vCounter = int(binary.LittleEndian.Uint16(buf[offset:]))
	offset += 2
	v.hv.hJumped = buf[offset] != 0
	offset++
	v.hv.vJumped = buf[offset] != 0
	offset++
	v.hv.pixelNumber = int(binary.LittleEndian.Uint16(buf[offset:]))
	offset += 2
	v.hv.hBlank = buf[offset] != 0
	offset++
	v.hv.vBlank = buf[offset] != 0
	offset++
	v.hv.vIntPending = buf[offset] != 0
	offset++
	v.hv.vIntPulse = buf[offset] != 0
	offset++

	// Line counter
	v.lc.remaining = int(int32(binary.LittleEndian.Uint32(buf[offset:])))
	offset += 4
	v.lc.reload = int(int32(binary.LittleEndian.Uint32(buf[offset:])))
	offset += 4
	v.lc.pending = buf[offset] != 0
	offset++

	// FIFO
	head := int(buf[offset])
	offset++
	count := int(buf[offset])
	offset++
	if head >= fifoCapacity || count > fifoCapacity {
		return errors.New("VDP state has a corrupt FIFO")
	}
	v.fifo.head = head
	v.fifo.count = count
	for i := range v.fifo.entries {
		e := &v.fifo.entries[i]
		e.ramMode = RAMMode(buf[offset])
		offset++
		e.address = binary.LittleEndian.Uint16(buf[offset:])
		offset += 2
		e.data = binary.LittleEndian.Uint16(buf[offset:])
		offset += 2
		e.firstByteWritten = buf[offset] != 0
		offset++
	}

	// DMA
	v.dma.mode = DMAMode(buf[offset])
	offset++
	v.dma.ramMode = RAMMode(buf[offset])
	offset++
	v.dma.fillData = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	v.dma.fillArmed = buf[offset] != 0
	offset++
	v.dma.copyPending = buf[offset] != 0
	offset++
	v.dma.copyByte = buf[offset]
	offset++

	// Arbiter
	v.arb.primaryState = IntState(buf[offset])
	offset++
	v.arb.assertedLevel = buf[offset]
	offset++
	v.arb.copState = IntState(buf[offset])
	offset++
	v.arb.vIntFrameExpired = buf[offset] != 0
	offset++

	// Stats
	for _, n := range []*uint64{
		&v.stats.Frames, &v.stats.VInts, &v.stats.HInts,
		&v.stats.DMAStarted, &v.stats.DMACompleted, &v.stats.FIFOOverflows,
	} {
		*n = binary.LittleEndian.Uint64(buf[offset:])
		offset += 8
	}

	return nil
}
