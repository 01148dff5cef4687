package emu

import (
	"fmt"

	"github.com/user-none/emvdp/log"
)

// IntState is the interrupt handshake state for one CPU.
type IntState uint8

const (
	IntNone IntState = iota
	IntPending
	IntAsserted
	IntAcked
)

func (s IntState) String() string {
	switch s {
	case IntNone:
		return "none"
	case IntPending:
		return "pending"
	case IntAsserted:
		return "asserted"
	case IntAcked:
		return "acked"
	}
	return fmt.Sprintf("IntState(%d)", uint8(s))
}

// 68K autovector levels.
const (
	vIntLevel uint8 = 6
	hIntLevel uint8 = 4
)

// interruptLines is the VDP side of the arbiter: the pending flags and
// enables it reads, and the flags it clears on acknowledge.
type interruptLines interface {
	vIntAsserted() bool
	hIntAsserted() bool
	clearVInt()
	clearHInt()

	coprocessorPulse() bool
	onBlankEntryLine() bool
}

// busArbiter tracks the interrupt handshake with both CPUs. It is polled
// once per slot after the counters have advanced.
type busArbiter struct {
	lines       interruptLines
	primary     PrimaryCPU
	coprocessor CoprocessorCPU

	primaryState  IntState
	assertedLevel uint8

	copState         IntState
	vIntFrameExpired bool
}

func (a *busArbiter) reset() {
	a.primaryState = IntNone
	a.assertedLevel = 0
	a.copState = IntNone
	a.vIntFrameExpired = false
}

func (a *busArbiter) poll() {
	a.handlePrimary()
	a.handleCoprocessor()
}

func (a *busArbiter) handlePrimary() {
	switch a.primaryState {
	case IntAcked:
		a.primaryState = IntNone
	case IntNone:
		if a.checkInterrupts() {
			a.raiseInterrupts()
		}
	case IntPending:
		a.raiseInterrupts()
	case IntAsserted:
		switch {
		case a.assertedLevel == hIntLevel && a.lines.vIntAsserted():
			a.raiseInterrupts()
		case !a.lines.vIntAsserted() && !a.lines.hIntAsserted():
			// Software cleared the source before the CPU took it.
			a.primaryState = IntNone
			a.assertedLevel = 0
		}
	}
}

// checkInterrupts moves the primary CPU to pending when either source is
// asserting.
func (a *busArbiter) checkInterrupts() bool {
	if a.lines.vIntAsserted() || a.lines.hIntAsserted() {
		a.primaryState = IntPending
		return true
	}
	return false
}

// raiseInterrupts offers the highest pending level to the CPU. Vertical
// wins over horizontal.
func (a *busArbiter) raiseInterrupts() {
	var level uint8
	switch {
	case a.lines.vIntAsserted():
		level = vIntLevel
	case a.lines.hIntAsserted():
		level = hIntLevel
	default:
		a.primaryState = IntNone
		a.assertedLevel = 0
		return
	}
	if a.primary == nil || !a.primary.RaiseInterrupt(level) {
		return
	}
	if a.assertedLevel != level {
		log.ModBus.Debugf("primary interrupt asserted at level %d", level)
	}
	a.primaryState = IntAsserted
	a.assertedLevel = level
}

// ackInterrupts is called when the CPU acknowledges. It clears the flag
// the VDP is currently asserting, vertical first, and reports whether an
// acknowledge was expected.
func (a *busArbiter) ackInterrupts() bool {
	if a.primaryState != IntAsserted {
		return false
	}
	switch {
	case a.lines.vIntAsserted():
		a.lines.clearVInt()
	case a.lines.hIntAsserted():
		a.lines.clearHInt()
	}
	a.primaryState = IntAcked
	a.assertedLevel = 0
	return true
}

// handleCoprocessor drives the Z80 interrupt. The line is held for at most
// the blank-entry line and fires at most once per frame.
func (a *busArbiter) handleCoprocessor() {
	onLine := a.lines.onBlankEntryLine()

	switch a.copState {
	case IntAcked:
		a.copState = IntNone
		return
	case IntNone:
		if !a.lines.coprocessorPulse() || a.vIntFrameExpired || !onLine {
			return
		}
		a.copState = IntPending
	}

	switch a.copState {
	case IntPending:
		if !onLine {
			a.copState = IntNone
			a.vIntFrameExpired = true
			a.setCoprocessorLine(false)
			log.ModBus.Debugf("coprocessor interrupt expired unacknowledged")
			return
		}
		if a.setCoprocessorLine(true) {
			a.copState = IntAsserted
		}
	case IntAsserted:
		if !onLine {
			a.setCoprocessorLine(false)
			a.copState = IntAcked
			a.vIntFrameExpired = true
			return
		}
		a.setCoprocessorLine(true)
	}
}

func (a *busArbiter) setCoprocessorLine(active bool) bool {
	if a.coprocessor == nil {
		return false
	}
	return a.coprocessor.Interrupt(active)
}

// newFrame re-arms the once-per-frame coprocessor interrupt.
func (a *busArbiter) newFrame() {
	a.vIntFrameExpired = false
}
