// Package iq defines the in-flight instruction descriptor (§3.3) and the
// four in-flight structures that hold them: the integer and floating-point
// issue queues (IQ, FQ) and the load/store queues (LQ, SQ), all built on
// ring.Ring.
package iq

import (
	"sync/atomic"

	"axp21264/alpha"
)

// State is the descriptor lifecycle (§3.3): a Descriptor starts Retired
// (the free/unused state, confusingly named after where it ends up), and
// advances monotonically until it is Retiring, at which point the Ibox
// reclaims the slot and its state snaps back to Retired.
type State int

const (
	Retired State = iota
	Assigned
	Queued
	Executing
	WaitingRetirement
	Retiring
)

func (s State) String() string {
	switch s {
	case Retired:
		return "Retired"
	case Assigned:
		return "Assigned"
	case Queued:
		return "Queued"
	case Executing:
		return "Executing"
	case WaitingRetirement:
		return "WaitingRetirement"
	case Retiring:
		return "Retiring"
	default:
		return "Unknown"
	}
}

var nextID uint64

// NextID hands out unique, monotonically increasing instruction IDs used
// for age-priority arbitration (§3.3, §4.2). Safe for concurrent use since
// the Ibox dispatch path is the only writer but tests may construct
// descriptors from multiple goroutines.
func NextID() uint64 { return atomic.AddUint64(&nextID, 1) }

// Scoreboard tracks which source operands of a Descriptor are still
// pending, so the issue queue can arbitrate only instructions whose sources
// are ready (§3.3 "scoreboard bits").
type Scoreboard struct {
	Ra, Rb, Fa, Fb bool // true once the corresponding source value is valid
}

// Ready reports whether every source this descriptor actually uses is
// valid.
func (s Scoreboard) Ready(reg alpha.RegUse) bool {
	if reg.UsesRa && !s.Ra {
		return false
	}
	if reg.UsesRb && !reg.HasLiteral && !s.Rb {
		return false
	}
	if reg.UsesFa && !s.Fa {
		return false
	}
	if reg.UsesFb && !s.Fb {
		return false
	}
	return true
}

// Descriptor is one in-flight instruction: the decode-time static
// information (alpha.Decoded) plus everything the rest of the pipeline
// attaches to it as it moves through issue, execute and retirement.
type Descriptor struct {
	ID uint64

	Decoded alpha.Decoded

	// architectural <-> physical register mapping resolved at rename time
	ArchRa, ArchRb, ArchRc, ArchFa, ArchFb, ArchFc uint8
	PhysRa, PhysRb, PhysRc, PhysFa, PhysFb, PhysFc int
	PrevPhysDest                                   int // physical reg freed on retire, -1 if none

	Scoreboard Scoreboard
	SrcInt     [2]uint64 // Ra, Rb values once ready
	SrcFP      [2]uint64 // Fa, Fb values once ready
	Dest       uint64    // result, filled at execute

	FetchPC     uint64
	PALMode     bool
	PredictedPC uint64
	BranchPC    uint64 // actual target, filled by branch execution
	Taken       bool
	CheckpointIdx int // rename-map checkpoint slot taken at dispatch

	State State

	Exception     alpha.ExceptionKind
	ExcSummary    uint64
	ExcRegMask    uint64

	LQIndex, SQIndex int // -1 if not a memory op
}

// Valid satisfies ring.Entry: a descriptor slot is "live" for ring-advance
// purposes once it has been assigned and until it is fully retired.
func (d *Descriptor) Valid() bool { return d.State != Retired }

// New creates a fresh descriptor for a just-decoded instruction at the
// given fetch PC, in the Assigned state with an empty scoreboard.
func New(decoded alpha.Decoded, fetchPC uint64, palMode bool) *Descriptor {
	return &Descriptor{
		ID:            NextID(),
		Decoded:       decoded,
		FetchPC:       fetchPC,
		PALMode:       palMode,
		State:         Assigned,
		PrevPhysDest:  -1,
		LQIndex:       -1,
		SQIndex:       -1,
	}
}
