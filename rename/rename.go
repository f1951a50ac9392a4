// Package rename implements the physical register file, free list, and
// mapping/checkpoint machinery described in §3.2 and §4.5. One File exists
// for the integer file (80 physical registers) and one for the
// floating-point file (72); the Ibox owns both.
package rename

import "fmt"

// PhysState is the per-physical-register state invariant from §3.2.
type PhysState int

const (
	Free PhysState = iota
	PendingWrite
	Valid
)

// Zero is the sentinel physical index used for R31/F31, which never
// allocate a real physical register (§4.1, §8).
const Zero = -1

// File is a rename map plus free list plus a bounded ring of full-map
// checkpoints, one per in-flight window slot (§9: "a ring of full
// rename-map snapshots... is acceptable given the 80-register envelope").
type File struct {
	numArch int
	numPhys int

	Map    []int // architectural index -> physical index (Zero for R31/F31)
	states []PhysState
	free   []int // stack of free physical indices

	checkpoints [][]int // one full Map snapshot per window slot
}

// New creates a File with numPhys physical registers backing numArch
// architectural registers, where index (numArch-1) is the hardwired-zero
// register (R31 or F31) and windowDepth is the number of checkpoint slots
// to keep (one per in-flight instruction).
func New(numArch, numPhys, windowDepth int) *File {
	f := &File{
		numArch:     numArch,
		numPhys:     numPhys,
		Map:         make([]int, numArch),
		states:      make([]PhysState, numPhys),
		free:        make([]int, 0, numPhys),
		checkpoints: make([][]int, windowDepth),
	}
	for i := 0; i < numArch-1; i++ {
		f.Map[i] = i // architectural registers start 1:1 mapped
		f.states[i] = Valid
	}
	f.Map[numArch-1] = Zero
	for i := numArch - 1; i < numPhys; i++ {
		f.free = append(f.free, i)
	}
	return f
}

// ErrNoFreeRegister is returned by Rename when the free list is exhausted;
// this should not happen with a correctly sized physical file and is a
// programming-invariant violation if it does (§8: the free+mapped+in-flight
// count must always equal numPhys).
var ErrNoFreeRegister = fmt.Errorf("rename: no free physical register")

// Rename allocates a new physical register for architectural register arch,
// updates the map, and returns (newPhys, prevPhys). For the hardwired-zero
// register it allocates nothing and returns (Zero, Zero). prevPhys is the
// register the caller must track and free at retirement once no in-flight
// instruction still reads it (§3.2).
func (f *File) Rename(arch uint8) (newPhys, prevPhys int, err error) {
	if int(arch) == f.numArch-1 {
		return Zero, Zero, nil
	}
	if len(f.free) == 0 {
		return 0, 0, ErrNoFreeRegister
	}
	prevPhys = f.Map[arch]
	newPhys = f.free[len(f.free)-1]
	f.free = f.free[:len(f.free)-1]
	f.states[newPhys] = PendingWrite
	f.Map[arch] = newPhys
	return newPhys, prevPhys, nil
}

// CommitWrite marks a physical register Valid once its producing
// instruction has executed (read value available to later consumers).
func (f *File) CommitWrite(phys int) {
	if phys == Zero {
		return
	}
	f.states[phys] = Valid
}

// FreeReg returns a physical register to the free list. The caller (the
// Ibox retirement path) is responsible for only calling this once no
// in-flight instruction still references the register (§3.2 invariant).
func (f *File) FreeReg(phys int) {
	if phys == Zero {
		return
	}
	f.states[phys] = Free
	f.free = append(f.free, phys)
}

// Checkpoint snapshots the current map into window slot idx, taken at
// decode/dispatch time for the instruction occupying that in-flight
// position (§4.5 step 2).
func (f *File) Checkpoint(idx int) {
	snap := make([]int, f.numArch)
	copy(snap, f.Map)
	f.checkpoints[idx%len(f.checkpoints)] = snap
}

// Restore rolls the map back to the snapshot taken at window slot idx, used
// on mis-prediction or exception recovery (§4.5 step 2, §8 "restores the
// rename map exactly to its value after instruction N's decode-time
// checkpoint").
func (f *File) Restore(idx int) {
	snap := f.checkpoints[idx%len(f.checkpoints)]
	if snap == nil {
		return
	}
	copy(f.Map, snap)
}

// State returns a physical register's current state.
func (f *File) State(phys int) PhysState {
	if phys == Zero {
		return Valid
	}
	return f.states[phys]
}

// FreeCount, the number of distinct physical registers in Map and the
// caller-tracked in-flight count must always sum to numPhys (§8 universal invariant); FreeCount is exposed so tests can
// assert that directly.
func (f *File) FreeCount() int { return len(f.free) }

func (f *File) NumPhys() int { return f.numPhys }
