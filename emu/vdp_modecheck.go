package emu

import "fmt"

// ModeReport summarizes one full frame of a counter mode.
type ModeReport struct {
	Name          string
	SlotsPerLine  int
	ExternalSlots int
	RefreshSlots  int
	HJumpTarget   int
	VJumpTarget   int
	LinesPerFrame int
	// FrameMasterClocks is the frame length in master clocks.
	FrameMasterClocks int
}

// CheckCounterMode runs the counters of m through one frame and verifies
// that every line takes HTotalCount advances and every frame VTotalCount
// lines, with each counter visiting as many distinct values as its total.
func CheckCounterMode(m *CounterMode) (ModeReport, error) {
	r := ModeReport{
		Name:          m.Name,
		SlotsPerLine:  m.SlotsPerLine(),
		ExternalSlots: m.countSlots(SlotExternal),
		RefreshSlots:  m.countSlots(SlotRefresh),
		HJumpTarget:   m.hJumpTarget(),
		VJumpTarget:   m.vJumpTarget(),
	}
	if len(m.SlotTypes) != r.SlotsPerLine {
		return r, fmt.Errorf("%s: slot table has %d entries, want %d", m.Name, len(m.SlotTypes), r.SlotsPerLine)
	}
	if len(m.SlotClocks) != r.SlotsPerLine {
		return r, fmt.Errorf("%s: slot clock table has %d entries, want %d", m.Name, len(m.SlotClocks), r.SlotsPerLine)
	}

	var c hvCounter
	c.reset(m)

	hSeen := make(map[int]bool)
	vSeen := map[int]bool{0: true}
	sinceLine := 0
	for {
		ev := c.advance()
		sinceLine++
		// The first line is entered part way; sample H on the second.
		if r.LinesPerFrame == 1 {
			hSeen[c.hCounter] = true
		}
		if ev&evLineAdvance == 0 {
			continue
		}
		if r.LinesPerFrame > 0 && sinceLine != m.HTotalCount {
			return r, fmt.Errorf("%s: line %d took %d advances, want %d", m.Name, r.LinesPerFrame, sinceLine, m.HTotalCount)
		}
		sinceLine = 0
		r.LinesPerFrame++
		if ev&evFrameStart != 0 {
			break
		}
		vSeen[c.vCounter] = true
		if r.LinesPerFrame > m.VTotalCount {
			return r, fmt.Errorf("%s: no frame start after %d lines", m.Name, r.LinesPerFrame)
		}
	}

	if r.LinesPerFrame != m.VTotalCount {
		return r, fmt.Errorf("%s: frame took %d lines, want %d", m.Name, r.LinesPerFrame, m.VTotalCount)
	}
	if len(hSeen) != m.HTotalCount {
		return r, fmt.Errorf("%s: H counter took %d values, want %d", m.Name, len(hSeen), m.HTotalCount)
	}
	if len(vSeen) != m.VTotalCount {
		return r, fmt.Errorf("%s: V counter took %d values, want %d", m.Name, len(vSeen), m.VTotalCount)
	}
	r.FrameMasterClocks = m.LineMasterClocks() * m.VTotalCount
	return r, nil
}
