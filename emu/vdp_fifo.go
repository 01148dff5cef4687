package emu

import "github.com/user-none/emvdp/log"

const fifoCapacity = 4

// fifoEntry is one pending data-port write.
type fifoEntry struct {
	ramMode          RAMMode
	address          uint16
	data             uint16
	firstByteWritten bool // byte-wide targets: first half already serviced
}

// dataFifo is the 4-entry write FIFO between the data port and video
// memory. Entries are values; nothing outside the ring refers to them.
type dataFifo struct {
	entries [fifoCapacity]fifoEntry
	head    int
	count   int
}

// push appends an entry. A push onto a full FIFO is dropped and logged;
// it reports whether the entry was stored.
func (f *dataFifo) push(e fifoEntry) bool {
	if f.count == fifoCapacity {
		log.ModFIFO.WithFields(log.Fields{
			"mode":    e.ramMode.String(),
			"address": e.address,
			"data":    e.data,
		}).Warnf("push on full FIFO dropped")
		return false
	}
	f.entries[(f.head+f.count)%fifoCapacity] = e
	f.count++
	return true
}

// pop removes the head entry. Popping an empty FIFO does nothing.
func (f *dataFifo) pop() {
	if f.count == 0 {
		return
	}
	f.entries[f.head] = fifoEntry{}
	f.head = (f.head + 1) % fifoCapacity
	f.count--
}

// peek returns the head entry. ok is false when the FIFO is empty.
func (f *dataFifo) peek() (e fifoEntry, ok bool) {
	if f.count == 0 {
		return fifoEntry{}, false
	}
	return f.entries[f.head], true
}

func (f *dataFifo) markFirstByteWritten() {
	if f.count > 0 {
		f.entries[f.head].firstByteWritten = true
	}
}

func (f *dataFifo) isFull() bool  { return f.count == fifoCapacity }
func (f *dataFifo) isEmpty() bool { return f.count == 0 }
func (f *dataFifo) len() int      { return f.count }

func (f *dataFifo) reset() {
	*f = dataFifo{}
}

// service performs one external-slot access for the head entry. Byte-wide
// targets need two services: the first only marks the entry, the second
// writes the word and pops it.
func (f *dataFifo) service(mem VideoMemory) {
	e, ok := f.peek()
	if !ok {
		return
	}
	if e.ramMode.byteWide() && !e.firstByteWritten {
		f.markFirstByteWritten()
		return
	}
	mem.WriteWord(e.ramMode, e.address, e.data)
	f.pop()
}
