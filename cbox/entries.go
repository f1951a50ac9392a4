// Package cbox implements the Cbox: the Bcache (board-level victim cache),
// its duplicate tag stores (DTAG/CTAG), and the four outstanding-request
// structures that front the system port (§4.4) — the miss-address file
// (MAF), victim data buffer (VDB), I/O write buffer (IOWB) and probe queue
// (PQ). All four are built on ring.Ring, in the same style as the Ibox's
// issue queues (§9: "every in-flight structure in this design is a bounded
// ring with the same two failure modes: full, and age-ordered drain").
package cbox

import (
	"axp21264/ring"
	"axp21264/sysport"
)

// Capacities per §4.4.
const (
	MAFCapacity  = 8
	VDBCapacity  = 8
	IOWBCapacity = 4
	PQCapacity   = 8
)

// EntryState is the lifecycle shared by MAF/VDB/IOWB entries: empty, a
// command has been built and is waiting for an arbiter slot, the command
// is outstanding at the system port, or the response arrived and the
// entry is waiting to be drained back into the Mbox/Ibox.
type EntryState int

const (
	Empty EntryState = iota
	Pending
	Outstanding
	Complete
)

// MAFEntry is one outstanding cacheable memory reference: a Dcache or
// Icache miss waiting on ReadBlk/ReadBlkMod/ReadBlkI/FetchBlk data. A
// single entry can back several waiting LQ/SQ slots at once: two misses
// to the same block merge into one outstanding request rather than each
// allocating their own MAF entry (§4.4, "multiple references to the same
// block merge in the MAF"), which is also why the block address, not the
// requesting slot, is the entry's identity.
type MAFEntry struct {
	State    EntryState
	PA       uint64
	Cmd      sysport.CmdTag
	ReqID    uint64
	LQIdxs   []int // LQ slots waiting on this block
	SQIdxs   []int // SQ slots waiting on this block (fill-for-ownership)
	IsIcache bool
	Data     [sysport.BlockSize]byte
}

func (e *MAFEntry) Valid() bool { return e.State != Empty }

// blockAddr masks pa down to its containing block, the granularity MAF
// merge comparisons use.
func blockAddr(pa uint64) uint64 {
	return pa &^ uint64(sysport.BlockSize-1)
}

// VDBEntry buffers a victim block being written back (WrVictimBlk /
// CleanVictimBlk) and gates probes against it: ProbeValid must clear
// before a ProbeResponse referencing this block's address can be issued
// (§9 "probe-causing-invalidate... ProbeResponse gated on VDB probe-valid
// clearing").
type VDBEntry struct {
	State      EntryState
	PA         uint64
	Data       [sysport.BlockSize]byte
	Dirty      bool
	ProbeValid bool
	ReqID      uint64
}

func (e *VDBEntry) Valid() bool { return e.State != Empty }

// IOWBEntry buffers an uncached (I/O space) write so adjacent writes to
// the same aligned quadword can merge before draining to the system
// port: each merge sets the corresponding bits of Mask. A write merges
// only while the entry is still Pending; the next Tick drains every
// Pending entry, and a later write to the same quadword gets a new entry.
type IOWBEntry struct {
	State EntryState
	PA    uint64 // 8-byte aligned base
	Data  [8]byte
	Mask  uint8 // bit i set => Data[i] holds a merged-in write
	ReqID uint64
}

func (e *IOWBEntry) size() int {
	n := 0
	for m := e.Mask; m != 0; m >>= 1 {
		if m&1 != 0 {
			n++
		}
	}
	return n
}

func (e *IOWBEntry) Valid() bool { return e.State != Empty }

// PQEntry is an incoming probe awaiting processing in the fixed per-cycle
// order MAF, VDB, IOWB, PQ, IRQ (§9).
type PQEntry struct {
	State EntryState
	Probe sysport.Probe
}

func (e *PQEntry) Valid() bool { return e.State != Empty }

type MAF = ring.Ring[*MAFEntry]
type VDB = ring.Ring[*VDBEntry]
type IOWB = ring.Ring[*IOWBEntry]
type PQ = ring.Ring[*PQEntry]

func NewMAF() *MAF   { return ring.New[*MAFEntry](MAFCapacity) }
func NewVDB() *VDB   { return ring.New[*VDBEntry](VDBCapacity) }
func NewIOWB() *IOWB { return ring.New[*IOWBEntry](IOWBCapacity) }
func NewPQ() *PQ     { return ring.New[*PQEntry](PQCapacity) }
