package emu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// startFill sets up a VRAM fill of length n at address 0 with increment 1
// and arms it with data.
func startFill(v *VDP, n uint16, data uint16) {
	v.WriteControl(0x8114) // DMA enable, display off
	v.WriteControl(0x8F01)
	v.WriteControl(0x9300 | n&0xFF)
	v.WriteControl(0x9400 | n>>8)
	v.WriteControl(0x9780)
	v.WriteControl(0x4000)
	v.WriteControl(0x0080)
	v.WriteData(data)
}

func TestDMA_FillLengthZeroWraps(t *testing.T) {
	vdp := makeTestVDP()
	startFill(vdp, 0, 0xAB00)

	if vdp.DMAMode() != DMAFill {
		t.Fatalf("expected fill, got %v", vdp.DMAMode())
	}
	steps := 0
	for !vdp.dma.step() {
		steps++
		if steps > 0x10000 {
			t.Fatal("fill did not stop after 0x10000 steps")
		}
	}
	steps++

	if steps != 0x10000 {
		t.Errorf("expected 0x10000 steps, got 0x%X", steps)
	}
	if vdp.DMAMode() != DMANone {
		t.Errorf("expected mode none, got %v", vdp.DMAMode())
	}
	m := vramOf(vdp)
	for _, a := range []int{0, 1, 0x8000, 0xFFFF} {
		if m[a] != 0xAB {
			t.Errorf("expected VRAM[0x%04X]=0xAB, got 0x%02X", a, m[a])
		}
	}
}

func TestDMA_FillWaitsForData(t *testing.T) {
	vdp := makeTestVDP()
	vdp.WriteControl(0x8114)
	vdp.WriteControl(0x9304)
	vdp.WriteControl(0x9780)
	vdp.WriteControl(0x4000)
	vdp.WriteControl(0x0080)

	if vdp.DMAMode() != DMAFill {
		t.Fatalf("expected fill, got %v", vdp.DMAMode())
	}
	if vdp.dma.inProgress() || vdp.BusyState() != BusNotBusy {
		t.Error("expected an unarmed fill to leave the bus alone")
	}
	if vdp.ReadControl()&0x02 != 0 {
		t.Error("expected DMA busy clear before the fill is armed")
	}

	vdp.WriteData(0x5500)
	if !vdp.dma.inProgress() || vdp.BusyState() != BusDMARestricted {
		t.Errorf("expected armed fill and restricted bus, got %v", vdp.BusyState())
	}
	if vdp.ReadControl()&0x02 == 0 {
		t.Error("expected DMA busy set")
	}
}

func TestDMA_FillThroughSlots(t *testing.T) {
	vdp := makeTestVDP()
	startFill(vdp, 4, 0x7700)

	for i := 0; vdp.DMAMode() != DMANone; i++ {
		if i > 1000 {
			t.Fatal("fill did not complete")
		}
		vdp.RunSlot()
	}
	if vdp.BusyState() != BusNotBusy {
		t.Errorf("expected bus released, got %v", vdp.BusyState())
	}
	st := vdp.Stats()
	if st.DMAStarted != 1 || st.DMACompleted != 1 {
		t.Errorf("expected 1 started / 1 completed, got %d / %d", st.DMAStarted, st.DMACompleted)
	}
	// The FIFO write lands at 0-1 first. The fill then writes the high
	// byte at address^1 for addresses 1 through 4.
	want := []uint8{0x77, 0x00, 0x77, 0x77, 0x00, 0x77}
	if diff := cmp.Diff(want, vramOf(vdp)[:6]); diff != "" {
		t.Errorf("VRAM mismatch (-want +got):\n%s", diff)
	}
}

func TestDMA_CopyLengthOne(t *testing.T) {
	vdp := makeTestVDP()
	m := vramOf(vdp)
	m[0x11] = 0x5A

	vdp.WriteControl(0x8114)
	vdp.WriteControl(0x8F01)
	vdp.WriteControl(0x9301)
	vdp.WriteControl(0x9400)
	vdp.WriteControl(0x9510) // source 0x0010
	vdp.WriteControl(0x9600)
	vdp.WriteControl(0x97C0)
	vdp.WriteControl(0x0020) // dest 0x0020
	vdp.WriteControl(0x00C0)

	if vdp.DMAMode() != DMACopy {
		t.Fatalf("expected copy, got %v", vdp.DMAMode())
	}
	if vdp.BusyState() != BusDMARestricted {
		t.Errorf("expected %v, got %v", BusDMARestricted, vdp.BusyState())
	}

	if vdp.dma.step() {
		t.Fatal("expected the first step to only read")
	}
	if m[0x21] != 0 {
		t.Error("expected destination untouched after the read step")
	}
	if !vdp.dma.step() {
		t.Fatal("expected the second step to finish")
	}
	if m[0x21] != 0x5A {
		t.Errorf("expected 0x5A copied, got 0x%02X", m[0x21])
	}
	if vdp.DMAMode() != DMANone {
		t.Errorf("expected mode none, got %v", vdp.DMAMode())
	}
	if got := uint16(vdp.regs.dmaSource()); got != 0x11 {
		t.Errorf("expected source 0x11, got 0x%X", got)
	}
}

func TestDMA_InvalidCombinations(t *testing.T) {
	tests := []struct {
		name   string
		reg23  uint16
		first  uint16
		second uint16
	}{
		{"fill to read target", 0x9780, 0x0000, 0x0080},
		{"68k to read target", 0x9700, 0x0000, 0x0080},
		{"copy to CRAM", 0x97C0, 0xC000, 0x00C0},
		{"copy to VSRAM", 0x97C0, 0x4000, 0x00D0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vdp := makeTestVDP()
			vdp.WriteControl(0x8114)
			vdp.WriteControl(0x9310)
			vdp.WriteControl(tt.reg23)
			vdp.WriteControl(tt.first)
			vdp.WriteControl(tt.second)

			if vdp.DMAMode() != DMANone {
				t.Errorf("expected no transfer, got %v", vdp.DMAMode())
			}
			if vdp.Stats().DMAStarted != 0 {
				t.Error("expected no DMA counted")
			}
			if vdp.regs.dmaLength() != 0x10 {
				t.Errorf("expected length untouched, got 0x%X", vdp.regs.dmaLength())
			}
		})
	}
}

func TestDMA_DisabledIgnoresCD5(t *testing.T) {
	vdp := makeTestVDP()
	vdp.WriteControl(0x9780)
	vdp.WriteControl(0x4000)
	vdp.WriteControl(0x0080)
	if vdp.DMAMode() != DMANone {
		t.Errorf("expected no transfer with DMA disabled, got %v", vdp.DMAMode())
	}
}

// setup68kTransfer programs a two-word 68K transfer from byte address
// 0x10000 to VRAM 0.
func setup68kTransfer(v *VDP) {
	v.WriteControl(0x8114)
	v.WriteControl(0x8F02)
	v.WriteControl(0x9302)
	v.WriteControl(0x9400)
	v.WriteControl(0x9500)
	v.WriteControl(0x9680)
	v.WriteControl(0x9700)
	v.WriteControl(0x4000)
	v.WriteControl(0x0080)
}

func TestDMA_MemToVRAM(t *testing.T) {
	cpu := &fakePrimary{words: map[uint32]uint16{0x10000: 0x1234, 0x10002: 0x5678}}
	vdp := NewVDP(Collaborators{Primary: cpu}, Options{FastDMAWindows: []AddressRange{}})
	setup68kTransfer(vdp)

	if vdp.BusyState() != BusDMAHalt {
		t.Errorf("expected %v, got %v", BusDMAHalt, vdp.BusyState())
	}
	for i := 0; vdp.DMAMode() != DMANone || !vdp.fifo.isEmpty(); i++ {
		if i > 1000 {
			t.Fatal("transfer did not complete")
		}
		vdp.RunSlot()
	}

	if diff := cmp.Diff([]uint32{0x10000, 0x10002}, cpu.reads); diff != "" {
		t.Errorf("source reads mismatch (-want +got):\n%s", diff)
	}
	want := []uint8{0x12, 0x34, 0x56, 0x78}
	if diff := cmp.Diff(want, vramOf(vdp)[:4]); diff != "" {
		t.Errorf("VRAM mismatch (-want +got):\n%s", diff)
	}
	if vdp.BusyState() != BusNotBusy {
		t.Errorf("expected bus released, got %v", vdp.BusyState())
	}
}

func TestDMA_FastWindowSkipsFirstWord(t *testing.T) {
	cpu := &fakePrimary{words: map[uint32]uint16{0x10000: 0x1234}}
	windows := []AddressRange{{Start: 0x10000, End: 0x20000}}
	vdp := NewVDP(Collaborators{Primary: cpu}, Options{FastDMAWindows: windows})
	setup68kTransfer(vdp)

	if got := vdp.regs.dmaLength(); got != 1 {
		t.Errorf("expected length 1 after pre-advance, got %d", got)
	}
	for i := 0; vdp.DMAMode() != DMANone || !vdp.fifo.isEmpty(); i++ {
		if i > 1000 {
			t.Fatal("transfer did not complete")
		}
		vdp.RunSlot()
	}

	if diff := cmp.Diff([]uint32{0x10000}, cpu.reads); diff != "" {
		t.Errorf("source reads mismatch (-want +got):\n%s", diff)
	}
	want := []uint8{0x00, 0x00, 0x12, 0x34}
	if diff := cmp.Diff(want, vramOf(vdp)[:4]); diff != "" {
		t.Errorf("VRAM mismatch (-want +got):\n%s", diff)
	}
}

func TestDMA_FastWindowLengthOneEndsAtSetup(t *testing.T) {
	cpu := &fakePrimary{}
	windows := []AddressRange{{Start: 0x10000, End: 0x20000}}
	vdp := NewVDP(Collaborators{Primary: cpu}, Options{FastDMAWindows: windows})
	vdp.WriteControl(0x8114)
	vdp.WriteControl(0x9301)
	vdp.WriteControl(0x9680)
	vdp.WriteControl(0x4000)
	vdp.WriteControl(0x0080)

	if vdp.DMAMode() != DMANone {
		t.Errorf("expected transfer to end at setup, got %v", vdp.DMAMode())
	}
	if vdp.BusyState() != BusNotBusy {
		t.Errorf("expected %v, got %v", BusNotBusy, vdp.BusyState())
	}
	if len(cpu.reads) != 0 {
		t.Errorf("expected no source reads, got %v", cpu.reads)
	}
}

// Reprogramming length mid-fill takes effect on the next step. Display is on
// so the fill spreads over several lines.
func TestDMA_LengthRewriteMidTransfer(t *testing.T) {
	vdp := makeTestVDP()
	startFill(vdp, 0x100, 0xAB00)
	vdp.WriteControl(0x8154)

	runSlots(vdp, vdp.CounterMode().SlotsPerLine())
	remaining := vdp.regs.dmaLength()
	if vdp.DMAMode() != DMAFill || remaining == 0x100 || remaining == 0 {
		t.Fatalf("expected a fill in progress, got %v with length 0x%X", vdp.DMAMode(), remaining)
	}
	dest := vdp.regs.address

	vdp.WriteControl(0x9301)
	if got := vdp.regs.dmaLength(); got != 1 {
		t.Fatalf("expected length 1 after the rewrite, got 0x%X", got)
	}
	for i := 0; vdp.DMAMode() != DMANone; i++ {
		if i > 1000 {
			t.Fatal("fill did not stop after the length rewrite")
		}
		vdp.RunSlot()
	}
	if got := vdp.regs.address; got != dest+1 {
		t.Errorf("expected one more step to $%04X, got $%04X", dest+1, got)
	}
	if got := vdp.regs.dmaLength(); got != 0 {
		t.Errorf("expected length 0, got 0x%X", got)
	}
}

// Reprogramming the source mid-transfer moves the next read.
func TestDMA_SourceRewriteMidTransfer(t *testing.T) {
	cpu := &fakePrimary{}
	vdp := NewVDP(Collaborators{Primary: cpu}, Options{FastDMAWindows: []AddressRange{}})
	setup68kTransfer(vdp)
	vdp.WriteControl(0x8154)
	vdp.WriteControl(0x9304)

	for i := 0; vdp.regs.dmaLength() == 4; i++ {
		if i > 1000 {
			t.Fatal("transfer did not start")
		}
		vdp.RunSlot()
	}
	vdp.WriteControl(0x9540)
	for i := 0; vdp.DMAMode() != DMANone; i++ {
		if i > 1000 {
			t.Fatal("transfer did not complete")
		}
		vdp.RunSlot()
	}

	want := []uint32{0x10000, 0x10080, 0x10082, 0x10084}
	if diff := cmp.Diff(want, cpu.reads); diff != "" {
		t.Errorf("source reads mismatch (-want +got):\n%s", diff)
	}
}

func TestDMA_SourceWrapsInWindow(t *testing.T) {
	var r vdpRegisters
	r.r[regDMASrcLo] = 0xFF
	r.r[regDMASrcMid] = 0xFF
	r.r[regDMASrcHi] = 0x01
	r.incDMASource()
	if got := r.dmaSource(); got != 0x10000 {
		t.Errorf("expected source to wrap to 0x10000, got 0x%X", got)
	}
}

// With a queued FIFO write and a DMA in progress, each external slot pops
// one FIFO entry and the DMA waits.
func TestDMA_FIFOBeforeDMA(t *testing.T) {
	vdp := makeTestVDP()
	vdp.WriteControl(0x8114)
	vdp.WriteControl(0x8F02)
	vdp.WriteControl(0x9310)
	vdp.WriteControl(0x9780)
	vdp.WriteControl(0xC000) // CRAM fill
	vdp.WriteControl(0x0080)
	for i := range 4 {
		vdp.WriteData(uint16(i) << 1)
	}
	if !vdp.dma.inProgress() || vdp.fifo.len() != 4 {
		t.Fatalf("expected armed fill and full FIFO, got %v / %d", vdp.dma.inProgress(), vdp.fifo.len())
	}

	length := vdp.regs.dmaLength()
	for i := 0; !vdp.fifo.isEmpty(); i++ {
		if i > 1000 {
			t.Fatal("FIFO not drained")
		}
		external := vdp.externalSlot(vdp.hv.slot())
		before := vdp.fifo.len()
		vdp.RunSlot()

		want := before
		if external {
			want--
		}
		if got := vdp.fifo.len(); got != want {
			t.Fatalf("slot %d: expected FIFO len %d, got %d", i, want, got)
		}
		if got := vdp.regs.dmaLength(); got != length {
			t.Fatalf("slot %d: expected no DMA step, length went %d -> %d", i, length, got)
		}
	}

	// The next external slot runs the DMA.
	for vdp.regs.dmaLength() == length {
		vdp.RunSlot()
	}
	if got := vdp.regs.dmaLength(); got != length-1 {
		t.Errorf("expected one DMA step, length %d -> %d", length, got)
	}
}
