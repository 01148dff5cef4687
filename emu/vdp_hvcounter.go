package emu

// hvEvent is a set of timing edges produced by one counter advance.
type hvEvent uint16

const (
	evHBlankStart hvEvent = 1 << iota
	evHBlankEnd
	evActiveStart
	evActiveEnd
	evLineAdvance
	evVBlankStart
	evVBlankEnd
	evVIntPulseOn
	evVIntPulseOff
	evFrameStart
)

// hvCounter is the horizontal/vertical counter engine. The counters only
// change through advance; readers that need the software-visible values go
// through hExternal/vExternal, which never mutate state.
type hvCounter struct {
	mode *CounterMode

	hCounter int
	vCounter int
	hJumped  bool // H has re-based this line
	vJumped  bool // V has re-based this frame

	pixelNumber int // pixels since H wrapped to 0

	hBlank bool
	vBlank bool

	vIntPending bool // status F flag, cleared by acknowledge
	vIntPulse   bool // one-tick Z80 interrupt pulse
}

// reset re-selects the counter mode and clears all counter state.
func (c *hvCounter) reset(mode *CounterMode) {
	*c = hvCounter{mode: mode}
}

// slot returns the slot number the next two advances belong to.
func (c *hvCounter) slot() int {
	return c.pixelNumber >> 1
}

// advance steps the horizontal counter by one pixel and returns the edges
// crossed. Advancing without a counter mode is a host sequencing bug.
func (c *hvCounter) advance() hvEvent {
	m := c.mode
	if m == nil {
		panic("vdp: counter advanced with no counter mode selected")
	}

	var ev hvEvent

	c.hCounter++
	c.pixelNumber++
	if !c.hJumped && c.hCounter == m.HJumpTrigger+1 {
		c.hCounter = m.hJumpTarget()
		c.hJumped = true
	}
	if c.hJumped && c.hCounter > counterLimit {
		c.hCounter = 0
		c.hJumped = false
		c.pixelNumber = 0
	}

	h := c.hCounter
	if h == m.HBlankSet {
		c.hBlank = true
		ev |= evHBlankStart
	}
	if h == m.HBlankClear {
		c.hBlank = false
		ev |= evHBlankEnd
	}
	if h == m.HActiveDisplayStart {
		ev |= evActiveStart
	}
	if h == m.HActiveDisplayEnd {
		ev |= evActiveEnd
	}
	if h == m.VCounterIncrementOn {
		ev |= c.advanceV()
	}

	if c.vCounter == m.VBlankSet {
		switch {
		case h == vIntHCounter:
			c.vIntPending = true
			c.vIntPulse = true
			ev |= evVIntPulseOn
		case h == vIntHCounter+1 && c.vIntPulse:
			c.vIntPulse = false
			ev |= evVIntPulseOff
		}
	}
	return ev
}

// advanceV steps the vertical counter by one line.
func (c *hvCounter) advanceV() hvEvent {
	m := c.mode
	ev := evLineAdvance

	c.vCounter++
	if !c.vJumped && c.vCounter == m.VJumpTrigger+1 {
		c.vCounter = m.vJumpTarget()
		c.vJumped = true
	}
	if c.vJumped && c.vCounter > counterLimit {
		c.vCounter = 0
		c.vJumped = false
	}

	switch c.vCounter {
	case m.VBlankSet:
		c.vBlank = true
		ev |= evVBlankStart
	case counterLimit:
		if c.vBlank {
			c.vBlank = false
			ev |= evVBlankEnd
		}
	case 0:
		if c.vBlank {
			c.vBlank = false
			ev |= evVBlankEnd
		}
		ev |= evFrameStart
	}
	return ev
}

// activeLine reports whether the current line is inside active display.
func (c *hvCounter) activeLine() bool {
	return c.vCounter < c.mode.VBlankSet
}

// hExternal returns the 8-bit H counter visible to software.
func (c *hvCounter) hExternal() uint8 {
	return uint8(c.hCounter >> 1)
}

// vExternal returns the 8-bit V counter visible to software. In interlace
// modes the counter is shifted by the mode order and bit 8 replaces bit 0.
//
//	mode 1 (interlace normal): V[7:1]:V[8]
//	mode 3 (interlace double): (V<<1)[7:1]:(V<<1)[8]
func (c *hvCounter) vExternal(interlace int) uint8 {
	v := c.vCounter
	switch interlace {
	case 1:
	case 3:
		v <<= 1
	default:
		return uint8(v)
	}
	v = (v &^ 1) | (v>>8)&1
	return uint8(v)
}
