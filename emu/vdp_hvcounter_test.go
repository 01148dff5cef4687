package emu

import "testing"

// advanceUntil steps c until cond holds, failing after limit advances.
func advanceUntil(t *testing.T, c *hvCounter, limit int, cond func(ev hvEvent) bool) hvEvent {
	t.Helper()
	for i := 0; i < limit; i++ {
		if ev := c.advance(); cond(ev) {
			return ev
		}
	}
	t.Fatalf("condition not met after %d advances", limit)
	return 0
}

func TestHVCounter_PanicsWithoutMode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when advancing without a counter mode")
		}
	}()
	var c hvCounter
	c.advance()
}

func TestHVCounter_NTSCVJump(t *testing.T) {
	m := SelectCounterMode(false, false, false)
	var c hvCounter
	c.reset(m)

	var seq []int
	for range m.VTotalCount {
		advanceUntil(t, &c, m.HTotalCount, func(ev hvEvent) bool { return ev&evLineAdvance != 0 })
		seq = append(seq, c.vCounter)
	}

	// $0EA is followed by $1E5, and the frame ends back at 0.
	for i := 1; i < len(seq); i++ {
		if seq[i-1] == 0x0EA && seq[i] != 0x1E5 {
			t.Errorf("expected V $0EA -> $1E5, got $0EA -> $%03X", seq[i])
		}
	}
	if last := seq[len(seq)-1]; last != 0 {
		t.Errorf("expected V=0 after %d lines, got $%03X", m.VTotalCount, last)
	}
}

func TestHVCounter_VBlankAndPulse(t *testing.T) {
	m := SelectCounterMode(true, false, false)
	var c hvCounter
	c.reset(m)

	advanceUntil(t, &c, m.HTotalCount*m.VTotalCount, func(ev hvEvent) bool { return ev&evVBlankStart != 0 })
	if c.vCounter != m.VBlankSet || !c.vBlank {
		t.Fatalf("expected V-blank at line %d, got line %d vBlank=%v", m.VBlankSet, c.vCounter, c.vBlank)
	}
	if c.vIntPending {
		t.Error("V-int should not be pending before H reaches the pulse position")
	}

	advanceUntil(t, &c, m.HTotalCount, func(ev hvEvent) bool { return ev&evVIntPulseOn != 0 })
	if !c.vIntPending || !c.vIntPulse {
		t.Errorf("expected pending and pulse, got pending=%v pulse=%v", c.vIntPending, c.vIntPulse)
	}
	ev := c.advance()
	if ev&evVIntPulseOff == 0 || c.vIntPulse {
		t.Error("expected the pulse to end one advance later")
	}
	if !c.vIntPending {
		t.Error("V-int pending should stay set until acknowledged")
	}

	advanceUntil(t, &c, m.HTotalCount*m.VTotalCount, func(ev hvEvent) bool { return ev&evVBlankEnd != 0 })
	if c.vBlank {
		t.Error("expected V-blank cleared")
	}
}

func TestHVCounter_HBlank(t *testing.T) {
	m := SelectCounterMode(false, false, false)
	var c hvCounter
	c.reset(m)

	advanceUntil(t, &c, m.HTotalCount, func(ev hvEvent) bool { return ev&evHBlankStart != 0 })
	if c.hCounter != m.HBlankSet || !c.hBlank {
		t.Errorf("expected H-blank at $%03X, got $%03X hBlank=%v", m.HBlankSet, c.hCounter, c.hBlank)
	}
	advanceUntil(t, &c, m.HTotalCount, func(ev hvEvent) bool { return ev&evHBlankEnd != 0 })
	if c.hCounter != m.HBlankClear || c.hBlank {
		t.Errorf("expected H-blank cleared at $%03X, got $%03X hBlank=%v", m.HBlankClear, c.hCounter, c.hBlank)
	}
}

func TestHVCounter_SlotFollowsPixelNumber(t *testing.T) {
	m := SelectCounterMode(true, false, false)
	var c hvCounter
	c.reset(m)

	seen := make(map[int]int)
	for range m.HTotalCount / 2 {
		seen[c.slot()]++
		c.advance()
		c.advance()
	}
	if len(seen) != m.SlotsPerLine() {
		t.Errorf("expected %d distinct slots per line, got %d", m.SlotsPerLine(), len(seen))
	}
	if c.slot() != 0 {
		t.Errorf("expected slot 0 at the start of the next line, got %d", c.slot())
	}
}

func TestHVCounter_External(t *testing.T) {
	m := SelectCounterMode(true, false, false)
	c := hvCounter{mode: m, hCounter: 0x1C9, vCounter: 0x101}

	if got := c.hExternal(); got != 0xE4 {
		t.Errorf("expected external H 0xE4, got 0x%02X", got)
	}
	if got := c.vExternal(0); got != 0x01 {
		t.Errorf("non-interlace: expected 0x01, got 0x%02X", got)
	}
	if got := c.vExternal(1); got != 0x01 {
		t.Errorf("interlace normal: expected 0x01, got 0x%02X", got)
	}

	c.vCounter = 0x0E4
	if got := c.vExternal(1); got != 0xE4 {
		t.Errorf("interlace normal: expected 0xE4, got 0x%02X", got)
	}
	// (0xE4<<1) = 0x1C8: bits 7:1 = 0xC8, bit 8 moves to bit 0
	if got := c.vExternal(3); got != 0xC9 {
		t.Errorf("interlace double: expected 0xC9, got 0x%02X", got)
	}
}
