package emu

import (
	"github.com/user-none/go-chip-m68k"

	"github.com/user-none/emvdp/log"
)

// PrimaryCPU is the 68K as seen by the VDP.
type PrimaryCPU interface {
	// RaiseInterrupt offers an autovector interrupt at level. It reports
	// whether the CPU latched it.
	RaiseInterrupt(level uint8) bool
	// Read is used by 68K->VDP DMA to fetch source words.
	Read(addr uint32, size m68k.Size) uint32
	// ProgramCounter is used for diagnostics only.
	ProgramCounter() uint32
}

// CoprocessorCPU is the Z80 interrupt line. Interrupt reports whether the
// CPU has taken the interrupt while the line was held.
type CoprocessorCPU interface {
	Interrupt(active bool) bool
}

// Renderer is told when an active line starts. It reads video memory on
// its own and never calls back into the VDP.
type Renderer interface {
	DrawLine(line int)
}

// Collaborators are the devices the VDP is wired to. Memory defaults to a
// fresh VideoRAM; every other field may be nil.
type Collaborators struct {
	Memory      VideoMemory
	Primary     PrimaryCPU
	Coprocessor CoprocessorCPU
	Renderer    Renderer
	Tracer      Tracer
}

// Options configure a VDP at construction.
type Options struct {
	PAL bool
	// FastDMAWindows lists 68K source ranges that skip the first DMA word.
	// nil selects DefaultFastDMAWindows; an empty slice disables the fast path.
	FastDMAWindows []AddressRange
}

// BusyState is the bus-busy signal the VDP exports to the 68K side.
type BusyState uint8

const (
	BusNotBusy BusyState = iota
	BusFifoFull
	// BusDMARestricted: fill or copy running, the 68K may only touch the
	// control port, HV counter and PSG.
	BusDMARestricted
	// BusDMAHalt: 68K->VDP transfer running, the 68K is off the bus.
	BusDMAHalt
)

func (s BusyState) String() string {
	switch s {
	case BusNotBusy:
		return "not busy"
	case BusFifoFull:
		return "fifo full"
	case BusDMARestricted:
		return "dma restricted"
	case BusDMAHalt:
		return "dma halt"
	}
	return "unknown"
}

// Stats counts VDP events since the last reset.
type Stats struct {
	Frames        uint64
	VInts         uint64
	HInts         uint64
	DMAStarted    uint64
	DMACompleted  uint64
	FIFOOverflows uint64
}

// VDP is the Genesis Video Display Processor timing core. The host calls
// RunSlot once per VDP slot; port accesses happen between slots.
type VDP struct {
	regs vdpRegisters
	hv   hvCounter
	lc   lineCounter
	fifo dataFifo
	dma  dmaEngine
	arb  busArbiter

	mem      VideoMemory
	primary  PrimaryCPU
	renderer Renderer
	tracer   Tracer

	// Control port state machine
	writePending bool
	code         uint8  // CD5-CD0
	readBuffer   uint16 // Pre-fetch buffer for data reads

	hvLatched    bool
	hvLatchValue uint16

	oddField bool
	pal      bool

	busy       BusyState
	slot       int     // slot number of the slot being run
	slotEvents hvEvent // edges crossed during the current slot

	stats Stats
}

// NewVDP creates a VDP wired to c and resets it.
func NewVDP(c Collaborators, opts Options) *VDP {
	v := &VDP{
		mem:      c.Memory,
		primary:  c.Primary,
		renderer: c.Renderer,
		tracer:   c.Tracer,
		pal:      opts.PAL,
	}
	if v.mem == nil {
		v.mem = NewVideoRAM()
	}

	windows := opts.FastDMAWindows
	if windows == nil {
		windows = DefaultFastDMAWindows
	}
	v.dma = dmaEngine{
		regs:        &v.regs,
		mem:         v.mem,
		cpu:         c.Primary,
		fifo:        &v.fifo,
		fastWindows: windows,
	}
	v.arb = busArbiter{
		lines:       v,
		primary:     c.Primary,
		coprocessor: c.Coprocessor,
	}
	v.Reset()
	return v
}

// Reset returns the VDP to its power-on state. Video memory is untouched.
func (v *VDP) Reset() {
	v.regs = vdpRegisters{}
	v.hv.reset(v.currentCounterMode())
	v.lc.reset()
	v.fifo.reset()
	v.dma.reset()
	v.arb.reset()
	v.writePending = false
	v.code = 0
	v.readBuffer = 0
	v.hvLatched = false
	v.hvLatchValue = 0
	v.oddField = false
	v.busy = BusNotBusy
	v.slot = 0
	v.slotEvents = 0
	v.stats = Stats{}
}

// SetPAL switches the refresh region and re-selects the counter mode.
func (v *VDP) SetPAL(pal bool) {
	v.pal = pal
	v.selectCounterMode()
}

// PAL reports whether the VDP runs with PAL timing.
func (v *VDP) PAL() bool {
	return v.pal
}

func (v *VDP) currentCounterMode() *CounterMode {
	return SelectCounterMode(v.regs.h40Mode(), v.regs.v30Mode(), v.pal)
}

// selectCounterMode re-selects the mode from the registers and region.
// A different mode restarts the counters.
func (v *VDP) selectCounterMode() {
	mode := v.currentCounterMode()
	if mode == v.hv.mode {
		return
	}
	log.ModVDP.WithField("mode", mode.Name).Debugf("counter mode selected")
	v.hv.reset(mode)
}

// CounterMode returns the active counter mode.
func (v *VDP) CounterMode() *CounterMode {
	return v.hv.mode
}

// RunSlot runs one VDP slot: two counter advances, the interrupt poll, at
// most one FIFO service or DMA step, then the bus-busy update.
func (v *VDP) RunSlot() {
	if v.hv.mode == nil {
		panic("vdp: RunSlot called with no counter mode selected")
	}

	v.slot = v.hv.slot()
	v.slotEvents = 0
	for range 2 {
		ev := v.hv.advance()
		v.slotEvents |= ev
		v.handleEvents(ev)
	}

	v.arb.poll()

	if v.externalSlot(v.slot) {
		switch {
		case !v.fifo.isEmpty():
			v.fifo.service(v.mem)
		case v.dma.inProgress():
			mode := v.dma.mode
			if v.dma.step() {
				v.stats.DMACompleted++
				v.trace(TraceDMAEnd, mode.String(), 0)
			}
		}
	}

	v.updateBusy()
}

func (v *VDP) handleEvents(ev hvEvent) {
	if ev == 0 {
		return
	}
	if ev&evLineAdvance != 0 {
		if v.lc.onLineAdvance(v.hv.vCounter, v.hv.mode.VBlankSet) {
			v.stats.HInts++
			v.trace(TraceHInt, "", v.lc.reload)
		}
	}
	if ev&evActiveStart != 0 && v.hv.activeLine() && v.renderer != nil {
		v.renderer.DrawLine(v.hv.vCounter)
	}
	if ev&evVBlankStart != 0 {
		v.oddField = !v.oddField
		v.trace(TraceVBlank, "", 0)
	}
	if ev&evVIntPulseOn != 0 {
		v.stats.VInts++
		v.trace(TraceVInt, "", 0)
	}
	if ev&evFrameStart != 0 {
		v.arb.newFrame()
		v.stats.Frames++
		v.trace(TraceFrameStart, "", 0)
	}
}

// externalSlot reports whether slot n is free for a FIFO or DMA access.
// Active-display slots are free while the display is blanked.
func (v *VDP) externalSlot(n int) bool {
	switch v.hv.mode.slotType(n) {
	case SlotExternal:
		return true
	case SlotActive:
		return v.hv.vBlank || !v.regs.displayEnabled()
	}
	return false
}

// updateBusy recomputes the bus-busy signal. FIFO full wins over DMA.
func (v *VDP) updateBusy() {
	var s BusyState
	if v.fifo.isFull() {
		s = BusFifoFull
	} else {
		s = v.dma.busy()
	}
	if s != v.busy {
		v.busy = s
		v.trace(TraceBusy, s.String(), int(s))
	}
}

// BusyState returns the current bus-busy signal.
func (v *VDP) BusyState() BusyState {
	return v.busy
}

// SlotMasterClocks returns the length in master clocks of the slot the last
// RunSlot ran.
func (v *VDP) SlotMasterClocks() int {
	return v.hv.mode.slotClocks(v.slot)
}

// AcknowledgeInterrupt is called by the host when the 68K takes the
// interrupt the VDP asserted. It reports whether one was asserted.
func (v *VDP) AcknowledgeInterrupt() bool {
	level := v.arb.assertedLevel
	if !v.arb.ackInterrupts() {
		return false
	}
	v.trace(TraceIntAck, "", int(level))
	return true
}

// PrimaryInterruptState returns the 68K handshake state.
func (v *VDP) PrimaryInterruptState() IntState {
	return v.arb.primaryState
}

// AssertedInterruptLevel returns the level currently asserted to the 68K,
// or 0.
func (v *VDP) AssertedInterruptLevel() uint8 {
	if v.arb.primaryState != IntAsserted {
		return 0
	}
	return v.arb.assertedLevel
}

// CoprocessorInterruptState returns the Z80 handshake state.
func (v *VDP) CoprocessorInterruptState() IntState {
	return v.arb.copState
}

// Stats returns event counters since the last reset.
func (v *VDP) Stats() Stats {
	return v.stats
}

// Register returns the value of register n, or 0 when n is out of range.
func (v *VDP) Register(n int) uint8 {
	if n < 0 || n >= numRegisters {
		return 0
	}
	return v.regs.r[n]
}

// Position returns the internal H and V counters.
func (v *VDP) Position() (h, vc int) {
	return v.hv.hCounter, v.hv.vCounter
}

// InVBlank reports whether the V counter is in vertical blanking.
func (v *VDP) InVBlank() bool {
	return v.hv.vBlank
}

// ActiveHeight returns the active display height in lines.
func (v *VDP) ActiveHeight() int {
	return v.hv.mode.VBlankSet
}

// DMAMode returns the transfer in progress, DMANone when idle.
func (v *VDP) DMAMode() DMAMode {
	return v.dma.mode
}

func (v *VDP) trace(kind TraceKind, detail string, value int) {
	if v.tracer == nil {
		return
	}
	v.tracer.Trace(TraceEvent{
		Kind:   kind,
		Frame:  v.stats.Frames,
		V:      v.hv.vCounter,
		H:      v.hv.hCounter,
		Detail: detail,
		Value:  value,
	})
}

// --- interruptLines ---

func (v *VDP) vIntAsserted() bool {
	return v.hv.vIntPending && v.regs.vIntEnabled()
}

func (v *VDP) hIntAsserted() bool {
	return v.lc.pending && v.regs.hIntEnabled()
}

func (v *VDP) clearVInt() {
	v.hv.vIntPending = false
}

func (v *VDP) clearHInt() {
	v.lc.pending = false
}

// coprocessorPulse includes pulses that started and ended inside the
// current slot, since the arbiter only looks once per slot.
func (v *VDP) coprocessorPulse() bool {
	return v.hv.vIntPulse || v.slotEvents&evVIntPulseOn != 0
}

func (v *VDP) onBlankEntryLine() bool {
	return v.hv.vCounter == v.hv.mode.VBlankSet
}
