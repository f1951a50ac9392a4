package sysport

import (
	"context"
	"fmt"
)

// BlockSize is the Bcache/Dcache coherence granule (§4.4, §6.3): every
// ReadBlk-family command moves exactly one 64-byte block.
const BlockSize = 64

// Request is one Cbox -> system command (§6.3).
type Request struct {
	Tag  CmdTag
	PA   uint64
	ID   uint64 // correlates to a Cbox MAF/VDB/IOWB entry index
	Data [BlockSize]byte
	Size int // byte count for non-block Read/Wr commands
}

// Response is the system's reply to a Request.
type Response struct {
	DC   SysDC
	PA   uint64
	ID   uint64
	Data [BlockSize]byte
}

// Probe is an unsolicited system -> Cbox coherence request (§6.3, §4.4).
// A single-CPU core never sees one from a peer cache, but the seam exists
// so a future multi-socket system port can drive it; the in-process Memory
// port never issues one.
type Probe struct {
	DM ProbeDM
	NS ProbeNS
	PA uint64
	ID uint64
}

// Device is a memory-mapped peripheral addressed through the same physical
// address space as main memory (e.g. the real-time clock that posts
// IRQ_H, §5).
type Device interface {
	Base() uint64
	Size() uint64
	Read(addr uint64, size int) (uint64, error)
	Write(addr uint64, size int, val uint64) error
}

// Port is the seam a Cbox drives to reach outside the chip (§6.3). Submit
// is synchronous from the Cbox's point of view — a real system port is
// pipelined and would return out-of-order responses tagged by ID, but the
// Cbox's own MAF/VDB/IOWB bookkeeping is what imposes read/write ordering
// here, so a request/response round trip is enough to model it faithfully.
type Port interface {
	Submit(ctx context.Context, req Request) (Response, error)
	Probes() <-chan Probe
	RaiseIRQ(bits uint64)
	IRQ() uint64
	ClearIRQ(bits uint64)
}

// ErrBadAddress is returned by Memory when a request falls outside backing
// storage and no Device claims it.
var ErrBadAddress = fmt.Errorf("sysport: address out of range")
