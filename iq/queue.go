package iq

import "axp21264/ring"

// Capacities from §3.1.
const (
	IQCapacity = 20
	FQCapacity = 15
	LQCapacity = 32
	SQCapacity = 32
)

// IQ is the integer issue queue; FQ is the floating-point issue queue. Both
// hold pointers to in-flight Descriptors and are drained by the Ebox/Fbox
// arbiters in age order (lowest ID first).
type IQ = ring.Ring[*Descriptor]
type FQ = ring.Ring[*Descriptor]

func NewIQ() *IQ { return ring.New[*Descriptor](IQCapacity) }
func NewFQ() *FQ { return ring.New[*Descriptor](FQCapacity) }

// MemState is the lifecycle of a load or store queue entry (§4.3), distinct
// from the owning Descriptor's own State: a descriptor can be Executing
// while its LQ entry is still ReadPending waiting on a Dcache fill.
type MemState int

const (
	MemEmpty MemState = iota
	MemReadPending
	MemWritePending
	MemComplete
)

// LQEntry is one load-queue slot: the virtual/physical address once
// resolved, the requested width, and enough bookkeeping for store-to-load
// forwarding and replay (§4.3 "speculative load ordering").
type LQEntry struct {
	State   MemState
	DescID  uint64
	Desc    *Descriptor
	VA      uint64
	PA      uint64
	PAValid bool
	Size    int // bytes: 1,2,4,8
	Signed  bool
	Data    uint64
	MAFIdx  int // -1 if not waiting on the Cbox
	Replay  bool

	// OrderViolation is set by the Mbox when a younger load completed
	// (and was read by its consumer) from an address a since-retired
	// older store turned out to overlap: the speculative load's value is
	// stale and must be replayed (§4.3 "speculative load ordering").
	// Diagnostic only in this design — see checkLoadReplay.
	OrderViolation bool
}

func (e *LQEntry) Valid() bool { return e.State != MemEmpty }

// SQEntry is one store-queue slot.
type SQEntry struct {
	State    MemState
	DescID   uint64
	Desc     *Descriptor
	VA       uint64
	PA       uint64
	PAValid  bool
	Size     int
	Data     uint64
	Retired  bool // architecturally committed, may now be drained to the Cbox
	MAFIdx   int
}

func (e *SQEntry) Valid() bool { return e.State != MemEmpty }

type LQ = ring.Ring[*LQEntry]
type SQ = ring.Ring[*SQEntry]

func NewLQ() *LQ { return ring.New[*LQEntry](LQCapacity) }
func NewSQ() *SQ { return ring.New[*SQEntry](SQCapacity) }
