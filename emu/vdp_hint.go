package emu

// lineCounter is the H-int line counter. It is loaded from register 10 and
// counts down once per line; an underflow raises H-int pending.
type lineCounter struct {
	remaining int
	reload    int
	pending   bool
}

// setReload changes the reload value. The running count is not touched;
// the new value is used the next time the counter reloads.
func (c *lineCounter) setReload(v int) {
	c.reload = v
}

// onLineAdvance is called once per V counter advance with the new V value.
// From the line before V-blank onwards the counter is held at the reload
// value, so no H-int fires in the blanking area. It reports whether this
// call raised H-int pending.
func (c *lineCounter) onLineAdvance(vCounter, vBlankSet int) bool {
	c.remaining--
	if vCounter >= vBlankSet-1 {
		c.remaining = c.reload
	}
	if c.remaining < 0 {
		c.pending = true
		c.remaining = c.reload
		return true
	}
	return false
}

func (c *lineCounter) reset() {
	*c = lineCounter{}
}
