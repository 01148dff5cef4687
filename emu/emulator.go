package emu

import (
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-sn76489"
	"github.com/user-none/go-chip-z80"

	"github.com/user-none/emvdp/log"
)

// Compile-time interface checks.
var _ emucore.SaveStater = (*Emulator)(nil)
var _ emucore.MemoryInspector = (*Emulator)(nil)
var _ emucore.MemoryMapper = (*Emulator)(nil)

// Flat address boundaries for ReadMemory.
const (
	mainRAMStart = 0x000000
	mainRAMEnd   = 0x00FFFF
	z80RAMStart  = 0x010000
	z80RAMEnd    = 0x011FFF
)

const (
	m68kClockDivider = 7
	z80ClockDivider  = 15

	sampleRate    = 48000
	psgBufferSize = 1024
	psgGain       = 1898.0

	// psgBatchCycles is how many Z80 clocks of PSG time are queued before
	// the PSG is run. Roughly one scanline.
	psgBatchCycles = 228
)

// EmulatorOptions configure the machine around the VDP.
type EmulatorOptions struct {
	// FastDMAWindows is passed to the VDP. nil selects the default.
	FastDMAWindows []AddressRange
	Tracer         Tracer
}

// Emulator is a Genesis machine scheduled one VDP slot at a time. After
// each slot the CPUs receive the slot's master clocks as credit; the 68K
// is held while the VDP bus-busy signal says so.
type Emulator struct {
	m68k   *m68k.CPU
	z80    *z80.CPU
	z80Mem *Z80Memory
	bus    *GenesisBus
	vdp    *VDP
	vram   *VideoRAM
	psg    *sn76489.SN76489
	io     *ioPorts

	m68kHost *m68kHost
	z80Host  *z80Host
	lines    *lineTally

	region Region
	timing RegionTiming

	// Master clocks owed to each CPU. Negative when a CPU ran past its
	// credit finishing an instruction.
	m68kClocks int
	z80Clocks  int

	psgClocks  int // master clocks not yet converted to PSG clocks
	psgPending int // PSG clocks not yet run

	// Pre-allocated audio buffer for external consumption
	audioBuffer []int16
}

// lineTally counts active lines the VDP started this frame.
type lineTally struct {
	count int
	last  int
}

func (t *lineTally) DrawLine(line int) {
	t.count++
	t.last = line
}

// NewEmulator builds the machine for rom and resets the CPUs.
func NewEmulator(rom []byte, region Region, opts EmulatorOptions) (*Emulator, error) {
	consoleRegion := DetectConsoleRegion(rom)
	timing := GetTimingForRegion(region)
	pal := region == RegionPAL

	m68kHost := &m68kHost{}
	z80Host := &z80Host{}
	lines := &lineTally{}
	vram := NewVideoRAM()

	vdp := NewVDP(Collaborators{
		Memory:      vram,
		Primary:     m68kHost,
		Coprocessor: z80Host,
		Renderer:    lines,
		Tracer:      opts.Tracer,
	}, Options{
		PAL:            pal,
		FastDMAWindows: opts.FastDMAWindows,
	})

	psg := sn76489.New(timing.Z80ClockHz, sampleRate, psgBufferSize, sn76489.Sega)
	psg.SetGain(psgGain)
	io := newIOPorts(vdp, consoleRegion, pal)

	bus := NewGenesisBus(rom, vdp, io, psg)
	cpu := m68k.New(bus)
	bus.SetCPU(cpu)
	m68kHost.cpu = cpu
	m68kHost.bus = bus

	z80Mem := NewZ80Memory(bus)
	z80CPU := z80.New(z80Mem)
	z80Host.cpu = z80CPU

	log.ModEmu.WithFields(log.Fields{
		"region":  region,
		"console": consoleRegion,
		"mode":    vdp.CounterMode().Name,
	}).Debugf("machine created")

	return &Emulator{
		m68k:        cpu,
		z80:         z80CPU,
		z80Mem:      z80Mem,
		bus:         bus,
		vdp:         vdp,
		vram:        vram,
		psg:         psg,
		io:          io,
		m68kHost:    m68kHost,
		z80Host:     z80Host,
		lines:       lines,
		region:      region,
		timing:      timing,
		audioBuffer: make([]int16, 0, psgBufferSize),
	}, nil
}

// VDP returns the video display processor.
func (e *Emulator) VDP() *VDP {
	return e.vdp
}

// StepSlot runs one VDP slot, then lets both CPUs catch up to it.
func (e *Emulator) StepSlot() {
	e.vdp.RunSlot()
	clocks := e.vdp.SlotMasterClocks()
	e.runM68K(clocks)
	e.runZ80(clocks)
	e.runPSG(clocks)
}

// RunFrame runs slots until the VDP starts the next frame.
func (e *Emulator) RunFrame() {
	e.audioBuffer = e.audioBuffer[:0]
	e.psg.ResetBuffer()
	e.lines.count = 0

	start := e.vdp.Stats().Frames
	for e.vdp.Stats().Frames == start {
		e.StepSlot()
	}

	e.flushPSG()
	e.collectAudio()
}

// m68kStalled reports whether the bus-busy signal keeps the 68K off the
// bus. Under a fill or copy the 68K only stops once it touched something
// other than the control port, HV counter or PSG.
func (e *Emulator) m68kStalled() bool {
	switch e.vdp.BusyState() {
	case BusDMAHalt, BusFifoFull:
		return true
	case BusDMARestricted:
		return e.bus.dmaStall
	}
	e.bus.dmaStall = false
	return false
}

func (e *Emulator) runM68K(clocks int) {
	e.m68kClocks += clocks
	for e.m68kClocks >= m68kClockDivider {
		budget := e.m68kClocks / m68kClockDivider
		if e.m68kStalled() {
			e.m68k.AddCycles(uint64(budget))
			e.m68kClocks -= budget * m68kClockDivider
			return
		}
		consumed := e.m68k.StepCycles(budget)
		if consumed == 0 {
			// CPU halted (double bus fault)
			e.m68kClocks = 0
			return
		}
		e.m68kClocks -= consumed * m68kClockDivider
		e.checkPrimaryAck()
	}
}

// checkPrimaryAck reports an acknowledge to the VDP once the 68K has taken
// the asserted interrupt. The core has no IACK output, so the autovector
// read for that level stands in for it. Raising the SR mask alone does not
// acknowledge.
func (e *Emulator) checkPrimaryAck() {
	fetched := e.bus.takeVectorFetch()
	level := e.vdp.AssertedInterruptLevel()
	if level == 0 || fetched != level {
		return
	}
	e.vdp.AcknowledgeInterrupt()
}

func (e *Emulator) runZ80(clocks int) {
	// Handle Z80 reset transition (reset deasserted = Z80 can start)
	if e.bus.z80PendingReset {
		e.z80.Reset()
		e.bus.z80PendingReset = false
	}

	// The Z80 is paused while in reset or while the 68K holds its bus.
	if !e.bus.z80Reset || e.bus.z80BusRequested {
		e.z80Clocks = 0
		return
	}

	e.z80Clocks += clocks
	for e.z80Clocks >= z80ClockDivider {
		budget := e.z80Clocks / z80ClockDivider
		prevIFF1 := e.z80.Registers().IFF1
		consumed := e.z80.StepCycles(budget)
		if consumed == 0 {
			e.z80Clocks = 0
			return
		}
		e.z80Clocks -= consumed * z80ClockDivider
		// IFF1 dropping while INT is held is the Z80 taking the interrupt.
		if prevIFF1 && !e.z80.Registers().IFF1 {
			e.z80Host.noteAcknowledge()
		}
	}
}

// runPSG queues PSG time. The PSG shares the Z80 clock but keeps running
// while the Z80 is held.
func (e *Emulator) runPSG(clocks int) {
	e.psgClocks += clocks
	n := e.psgClocks / z80ClockDivider
	e.psgClocks -= n * z80ClockDivider
	e.psgPending += n
	if e.psgPending >= psgBatchCycles {
		e.flushPSG()
	}
}

func (e *Emulator) flushPSG() {
	if e.psgPending == 0 {
		return
	}
	e.psg.Run(e.psgPending)
	e.psgPending = 0
}

// collectAudio copies the frame's PSG output into the audio buffer.
func (e *Emulator) collectAudio() {
	psgBuf, psgCount := e.psg.GetBuffer()
	for i := 0; i < psgCount; i++ {
		e.audioBuffer = append(e.audioBuffer, int16(clampInt32(int32(psgBuf[i]), -32768, 32767)))
	}
}

func clampInt32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// GetAudioSamples returns the mono PSG samples of the last frame.
func (e *Emulator) GetAudioSamples() []int16 {
	return e.audioBuffer
}

// LinesDrawn returns how many active lines the last frame started.
func (e *Emulator) LinesDrawn() int {
	return e.lines.count
}

// GetRegion returns the emulator's region setting.
func (e *Emulator) GetRegion() Region {
	return e.region
}

// GetTiming returns FPS and scanline count for the current region.
func (e *Emulator) GetTiming() emucore.Timing {
	return Timing(e.region)
}

// SetRegion updates the emulator's region configuration.
func (e *Emulator) SetRegion(region Region) {
	e.region = region
	e.timing = GetTimingForRegion(region)
	e.vdp.SetPAL(region == RegionPAL)
	e.io.pal = region == RegionPAL
}

// ReadMainRAM reads a single byte from 68K main RAM.
func (e *Emulator) ReadMainRAM(addr uint16) byte {
	return e.bus.ram[addr]
}

// ReadZ80RAM reads a single byte from Z80 RAM.
// Returns 0 for addresses beyond the 8KB Z80 RAM range.
func (e *Emulator) ReadZ80RAM(addr uint16) byte {
	if addr >= z80RAMSize {
		return 0
	}
	return e.bus.z80RAM[addr]
}

// GetMainRAM returns a copy of the 68K main RAM.
func (e *Emulator) GetMainRAM() []byte {
	out := make([]byte, mainRAMSize)
	copy(out, e.bus.ram[:])
	return out
}

// SetMainRAM writes data into the 68K main RAM.
func (e *Emulator) SetMainRAM(data []byte) {
	copy(e.bus.ram[:], data)
}

// Close releases any resources held by the emulator.
func (e *Emulator) Close() {}

// ReadMemory reads from a flat address into buf and returns the number
// of bytes read.
func (e *Emulator) ReadMemory(addr uint32, buf []byte) uint32 {
	var count uint32
	for i := range buf {
		cur := addr + uint32(i)
		var b byte
		switch {
		case cur >= mainRAMStart && cur <= mainRAMEnd:
			b = e.ReadMainRAM(uint16(cur - mainRAMStart))
		case cur >= z80RAMStart && cur <= z80RAMEnd:
			b = e.ReadZ80RAM(uint16(cur - z80RAMStart))
		default:
			return count
		}
		buf[i] = b
		count++
	}
	return count
}

// MemoryMap returns a list of available memory regions with sizes.
func (e *Emulator) MemoryMap() []emucore.MemoryRegion {
	return []emucore.MemoryRegion{
		{Type: emucore.MemorySystemRAM, Size: mainRAMSize},
	}
}

// ReadRegion returns a copy of the specified memory region.
func (e *Emulator) ReadRegion(regionType int) []byte {
	if regionType == emucore.MemorySystemRAM {
		return e.GetMainRAM()
	}
	return nil
}

// WriteRegion writes data to the specified memory region.
func (e *Emulator) WriteRegion(regionType int, data []byte) {
	if regionType == emucore.MemorySystemRAM {
		e.SetMainRAM(data)
	}
}
