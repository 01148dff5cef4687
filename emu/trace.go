package emu

import (
	"io"

	"github.com/go-faster/jx"
)

// TraceKind identifies a timing event reported to a Tracer.
type TraceKind uint8

const (
	TraceFrameStart TraceKind = iota
	TraceVBlank
	TraceVInt
	TraceHInt
	TraceDMAStart
	TraceDMAEnd
	TraceFillArmed
	TraceBusy
	TraceIntAck
)

var traceKindNames = [...]string{
	TraceFrameStart: "frame",
	TraceVBlank:     "vblank",
	TraceVInt:       "vint",
	TraceHInt:       "hint",
	TraceDMAStart:   "dma_start",
	TraceDMAEnd:     "dma_end",
	TraceFillArmed:  "fill_armed",
	TraceBusy:       "busy",
	TraceIntAck:     "int_ack",
}

func (k TraceKind) String() string {
	if int(k) < len(traceKindNames) {
		return traceKindNames[k]
	}
	return "unknown"
}

// TraceEvent is one timing event with the counter position it happened at.
type TraceEvent struct {
	Kind   TraceKind
	Frame  uint64
	V      int
	H      int
	Detail string
	Value  int
}

// Tracer receives timing events from the VDP.
type Tracer interface {
	Trace(ev TraceEvent)
}

// JSONTracer writes one JSON object per event.
type JSONTracer struct {
	w   io.Writer
	enc jx.Encoder
	err error
}

// NewJSONTracer returns a tracer writing JSON lines to w.
func NewJSONTracer(w io.Writer) *JSONTracer {
	return &JSONTracer{w: w}
}

// Trace encodes ev as a single line. After the first write error further
// events are dropped; the error is reported by Err.
func (t *JSONTracer) Trace(ev TraceEvent) {
	if t.err != nil {
		return
	}
	e := &t.enc
	e.Reset()
	e.ObjStart()
	e.FieldStart("kind")
	e.Str(ev.Kind.String())
	e.FieldStart("frame")
	e.UInt64(ev.Frame)
	e.FieldStart("v")
	e.Int(ev.V)
	e.FieldStart("h")
	e.Int(ev.H)
	if ev.Detail != "" {
		e.FieldStart("detail")
		e.Str(ev.Detail)
	}
	if ev.Value != 0 {
		e.FieldStart("value")
		e.Int(ev.Value)
	}
	e.ObjEnd()

	buf := append(e.Bytes(), '\n')
	if _, err := t.w.Write(buf); err != nil {
		t.err = err
	}
}

// Err returns the first write error, if any.
func (t *JSONTracer) Err() error {
	return t.err
}
