package emu

const (
	regMode1       = 0
	regMode2       = 1
	regBackdrop    = 7
	regHIntCounter = 10
	regMode3       = 11
	regMode4       = 12
	regAutoInc     = 15
	regDMALenLo    = 19
	regDMALenHi    = 20
	regDMASrcLo    = 21
	regDMASrcMid   = 22
	regDMASrcHi    = 23

	numRegisters = 24
)

// vdpRegisters is the register file plus the data-port address, which the
// DMA engine uses as its destination. The DMA engine reads and writes the
// length and source registers in place, so CPU writes during a transfer
// are seen by the next step.
type vdpRegisters struct {
	r       [numRegisters]uint8
	address uint16
}

func (v *vdpRegisters) displayEnabled() bool { return v.r[regMode2]&0x40 != 0 }
func (v *vdpRegisters) vIntEnabled() bool    { return v.r[regMode2]&0x20 != 0 }
func (v *vdpRegisters) dmaEnabled() bool     { return v.r[regMode2]&0x10 != 0 }
func (v *vdpRegisters) v30Mode() bool        { return v.r[regMode2]&0x08 != 0 }
func (v *vdpRegisters) hIntEnabled() bool    { return v.r[regMode1]&0x10 != 0 }
func (v *vdpRegisters) hvLatchEnabled() bool { return v.r[regMode1]&0x02 != 0 }
func (v *vdpRegisters) h40Mode() bool        { return v.r[regMode4]&0x01 != 0 }

// interlaceMode returns reg 12 bits 2:1.
// 0 = none, 1 = interlace normal, 2 = invalid, 3 = interlace double-res.
func (v *vdpRegisters) interlaceMode() int {
	return int((v.r[regMode4] >> 1) & 0x03)
}

func (v *vdpRegisters) autoIncrement() uint16 {
	return uint16(v.r[regAutoInc])
}

// dmaLength returns the 16-bit DMA length. Zero means 0x10000 transfers.
func (v *vdpRegisters) dmaLength() uint16 {
	return uint16(v.r[regDMALenHi])<<8 | uint16(v.r[regDMALenLo])
}

func (v *vdpRegisters) setDMALength(n uint16) {
	v.r[regDMALenLo] = uint8(n)
	v.r[regDMALenHi] = uint8(n >> 8)
}

// dmaSource returns the 23-bit DMA source in words. For 68K transfers the
// byte address is the returned value shifted left by one; for VRAM copy
// only the low 16 bits are used, as a byte address.
func (v *vdpRegisters) dmaSource() uint32 {
	return uint32(v.r[regDMASrcHi]&0x7F)<<16 | uint32(v.r[regDMASrcMid])<<8 | uint32(v.r[regDMASrcLo])
}

// incDMASource increments the source. Only registers 21 and 22 count, so
// a transfer wraps inside its 128KB window.
func (v *vdpRegisters) incDMASource() {
	lo := uint16(v.r[regDMASrcMid])<<8 | uint16(v.r[regDMASrcLo])
	lo++
	v.r[regDMASrcLo] = uint8(lo)
	v.r[regDMASrcMid] = uint8(lo >> 8)
}
