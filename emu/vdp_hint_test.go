package emu

import "testing"

func TestLineCounter_FiresEveryReloadPlusOneLines(t *testing.T) {
	var c lineCounter
	c.setReload(3)
	c.remaining = 3

	var fired []int
	for v := 1; v <= 12; v++ {
		if c.onLineAdvance(v, 224) {
			fired = append(fired, v)
			c.pending = false
		}
	}
	want := []int{4, 8, 12}
	if len(fired) != len(want) {
		t.Fatalf("expected H-int on lines %v, got %v", want, fired)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("expected H-int on lines %v, got %v", want, fired)
			break
		}
	}
}

func TestLineCounter_ReloadZeroFiresEveryLine(t *testing.T) {
	var c lineCounter
	for v := 1; v <= 5; v++ {
		if !c.onLineAdvance(v, 224) {
			t.Errorf("line %d: expected H-int with reload 0", v)
		}
	}
}

func TestLineCounter_HeldDuringVBlank(t *testing.T) {
	var c lineCounter
	c.setReload(0)
	// From the line before V-blank on, the counter holds at reload and
	// never underflows.
	for _, v := range []int{223, 224, 225, 0x1E5, 0x1FF} {
		c.remaining = 0
		if c.onLineAdvance(v, 224) {
			t.Errorf("line $%03X: expected no H-int in the blanking area", v)
		}
		if c.remaining != 0 {
			t.Errorf("line $%03X: expected counter held at reload, got %d", v, c.remaining)
		}
	}
}

func TestLineCounter_SetReloadDoesNotTouchCount(t *testing.T) {
	var c lineCounter
	c.remaining = 5
	c.setReload(10)
	if c.remaining != 5 {
		t.Errorf("expected running count 5, got %d", c.remaining)
	}
	c.remaining = 0
	c.onLineAdvance(1, 224)
	if c.remaining != 10 {
		t.Errorf("expected reload to 10 on underflow, got %d", c.remaining)
	}
}

func TestLineCounter_ThroughVDP(t *testing.T) {
	v := NewVDP(Collaborators{}, Options{})
	v.WriteControl(0x8A00) // reload 0
	v.WriteControl(0x8010) // H-int enable

	m := v.CounterMode()
	for range m.SlotsPerLine() * 3 {
		v.RunSlot()
	}
	if got := v.Stats().HInts; got != 3 {
		t.Errorf("expected 3 H-ints over 3 lines, got %d", got)
	}
}
