package emu

// SlotType classifies what the VDP does with one slot of a line.
type SlotType uint8

const (
	SlotRefresh  SlotType = iota // DRAM refresh, no bus access
	SlotExternal                 // free for the FIFO or a DMA step
	SlotActive                   // pattern/sprite fetch for the display
)

func (t SlotType) String() string {
	switch t {
	case SlotRefresh:
		return "refresh"
	case SlotExternal:
		return "external"
	case SlotActive:
		return "active"
	}
	return "unknown"
}

// counterLimit is the largest value of the 9-bit H and V counters.
const counterLimit = 0x1FF

// vIntHCounter is the internal H position, on the blank-entry line, at
// which V-int pending is raised and the Z80 interrupt pulse starts.
const vIntHCounter = 1

// CounterMode describes the counter geometry of one resolution and
// refresh-region combination. H values are in pixels (the external H
// counter is the internal value shifted right by one), V values in lines.
//
// A counter counts from 0 up to its jump trigger, then re-bases to
// (counterLimit+1)+(trigger+1)-total and counts up to counterLimit before
// wrapping to 0, so one full cycle always takes exactly total steps.
type CounterMode struct {
	Name string

	HTotalCount         int
	HJumpTrigger        int
	HBlankSet           int
	HBlankClear         int
	HActiveDisplayStart int
	HActiveDisplayEnd   int
	VCounterIncrementOn int

	VTotalCount  int
	VJumpTrigger int
	VBlankSet    int

	// SlotClocks is the length of each slot in master clocks, used by the
	// host to award CPU cycles. Indexed like SlotTypes.
	SlotClocks []int

	// SlotTypes is indexed by slot number (pixel number / 2).
	SlotTypes []SlotType
}

// hJumpTarget returns the H value the counter re-bases to after the jump.
func (m *CounterMode) hJumpTarget() int {
	return rebaseTarget(m.HJumpTrigger, m.HTotalCount)
}

// vJumpTarget returns the V value the counter re-bases to after the jump.
func (m *CounterMode) vJumpTarget() int {
	return rebaseTarget(m.VJumpTrigger, m.VTotalCount)
}

func rebaseTarget(trigger, total int) int {
	return (counterLimit + 1) + (trigger + 1) - total
}

// SlotsPerLine returns the number of slots in one line.
func (m *CounterMode) SlotsPerLine() int {
	return m.HTotalCount / 2
}

// slotType returns the classification of slot n. Slots outside the table
// are treated as refresh so that a short table never grants bus access.
func (m *CounterMode) slotType(n int) SlotType {
	if n < 0 || n >= len(m.SlotTypes) {
		return SlotRefresh
	}
	return m.SlotTypes[n]
}

// slotClocks returns the master-clock length of slot n.
func (m *CounterMode) slotClocks(n int) int {
	if n < 0 || n >= len(m.SlotClocks) {
		return 0
	}
	return m.SlotClocks[n]
}

// LineMasterClocks returns the length of one line in master clocks.
func (m *CounterMode) LineMasterClocks() int {
	n := 0
	for _, c := range m.SlotClocks {
		n += c
	}
	return n
}

// countSlots counts slots of the given type in one line.
func (m *CounterMode) countSlots(t SlotType) int {
	n := 0
	for _, st := range m.SlotTypes {
		if st == t {
			n++
		}
	}
	return n
}

// buildSlotTypes returns a slot table of n active slots with the listed
// refresh and external positions marked.
func buildSlotTypes(n int, refresh, external []int) []SlotType {
	slots := make([]SlotType, n)
	for i := range slots {
		slots[i] = SlotActive
	}
	for _, s := range refresh {
		slots[s] = SlotRefresh
	}
	for _, s := range external {
		slots[s] = SlotExternal
	}
	return slots
}

// H40: 420 pixels per line, 210 slots. 18 external slots per line during
// active display, 5 refresh slots.
var h40Slots = buildSlotTypes(210,
	[]int{26, 58, 90, 122, 154},
	[]int{8, 24, 40, 56, 72, 88, 104, 120, 136, 152,
		164, 168, 172, 176, 180, 184, 188, 192})

// H32: 342 pixels per line, 171 slots. 16 external, 4 refresh.
var h32Slots = buildSlotTypes(171,
	[]int{26, 58, 90, 122},
	[]int{8, 24, 40, 56, 72, 88, 104, 120,
		132, 136, 140, 144, 148, 152, 156, 160})

// buildSlotClocks returns n slots of base master clocks, with the slots
// from hsync onwards stretched to long.
func buildSlotClocks(n, base, hsync, count, long int) []int {
	clocks := make([]int, n)
	for i := range clocks {
		clocks[i] = base
	}
	for i := hsync; i < hsync+count; i++ {
		clocks[i] = long
	}
	return clocks
}

// H32 slots are all 20 master clocks. H40 slots are 16, except that the
// pixel clock drops during hsync (H $1D0-$1ED) and those 15 slots take 20,
// so both widths run 3420 master clocks per line.
var (
	h40Clocks = buildSlotClocks(210, 16, 186, 15, 20)
	h32Clocks = buildSlotClocks(171, 20, 0, 0, 20)
)

type hGeometry struct {
	total, jump, blankSet, blankClear, activeStart, activeEnd, vIncOn int
	slots                                                             []SlotType
	clocks                                                            []int
}

type vGeometry struct {
	total, jump, blankSet int
}

// H40: internal $000-$16C then $1C9-$1FF (external $00-$B6, $E4-$FF)
// H32: internal $000-$127 then $1D2-$1FF (external $00-$93, $E9-$FF)
var (
	geomH40 = hGeometry{420, 0x16C, 0x164, 0x00A, 0x000, 0x140, 0x14A, h40Slots, h40Clocks}
	geomH32 = hGeometry{342, 0x127, 0x126, 0x00A, 0x000, 0x100, 0x10A, h32Slots, h32Clocks}
)

// NTSC V28: $000-$0EA then $1E5-$1FF
// NTSC V30: $000-$105, plain wrap (no valid NTSC 240-line mode)
// PAL  V28: $000-$102 then $1CA-$1FF
// PAL  V30: $000-$10A then $1D2-$1FF
var (
	geomNTSCV28 = vGeometry{262, 0x0EA, 0x0E0}
	geomNTSCV30 = vGeometry{262, 0x105, 0x0F0}
	geomPALV28  = vGeometry{313, 0x102, 0x0E0}
	geomPALV30  = vGeometry{313, 0x10A, 0x0F0}
)

func newCounterMode(name string, h hGeometry, v vGeometry) *CounterMode {
	return &CounterMode{
		Name:                name,
		HTotalCount:         h.total,
		HJumpTrigger:        h.jump,
		HBlankSet:           h.blankSet,
		HBlankClear:         h.blankClear,
		HActiveDisplayStart: h.activeStart,
		HActiveDisplayEnd:   h.activeEnd,
		VCounterIncrementOn: h.vIncOn,
		VTotalCount:         v.total,
		VJumpTrigger:        v.jump,
		VBlankSet:           v.blankSet,
		SlotTypes:           h.slots,
		SlotClocks:          h.clocks,
	}
}

// modeIndex packs the three selection bits: H40, V30, PAL.
type modeIndex uint8

const (
	modePAL modeIndex = 1 << iota
	modeV30
	modeH40
)

func makeModeIndex(h40, v30, pal bool) modeIndex {
	var idx modeIndex
	if h40 {
		idx |= modeH40
	}
	if v30 {
		idx |= modeV30
	}
	if pal {
		idx |= modePAL
	}
	return idx
}

var counterModes = [8]*CounterMode{
	0:                           newCounterMode("H32 NTSC V28", geomH32, geomNTSCV28),
	modePAL:                     newCounterMode("H32 PAL V28", geomH32, geomPALV28),
	modeV30:                     newCounterMode("H32 NTSC V30", geomH32, geomNTSCV30),
	modeV30 | modePAL:           newCounterMode("H32 PAL V30", geomH32, geomPALV30),
	modeH40:                     newCounterMode("H40 NTSC V28", geomH40, geomNTSCV28),
	modeH40 | modePAL:           newCounterMode("H40 PAL V28", geomH40, geomPALV28),
	modeH40 | modeV30:           newCounterMode("H40 NTSC V30", geomH40, geomNTSCV30),
	modeH40 | modeV30 | modePAL: newCounterMode("H40 PAL V30", geomH40, geomPALV30),
}

// SelectCounterMode returns the counter mode for the given display width,
// display height and refresh region.
func SelectCounterMode(h40, v30, pal bool) *CounterMode {
	return counterModes[makeModeIndex(h40, v30, pal)]
}

// CounterModes returns every predefined counter mode.
func CounterModes() []*CounterMode {
	out := make([]*CounterMode, len(counterModes))
	copy(out, counterModes[:])
	return out
}
