// Package ebox implements the integer execution clusters (§4.1): the two
// upper pipes (U0/U1, which handle multiply and the full integer opcode
// set) and two lower pipes (L0/L1, which additionally handle address
// generation for loads/stores and branch resolution). Arbitration between
// the four pipes is age-ordered, mirroring the Ibox's issue-queue drain
// order (§4.2).
package ebox

import (
	"axp21264/alpha"
	"axp21264/ipr"
	"axp21264/iq"
	"axp21264/mask"
)

// Cluster identifies one of the four integer execute pipes.
type Cluster int

const (
	L0 Cluster = iota
	L1
	U0
	U1
)

func (c Cluster) String() string {
	return [...]string{"L0", "L1", "U0", "U1"}[c]
}

// CanExecute reports whether cluster c is able to execute op (only L0/L1
// generate addresses, per §4.1).
func CanExecute(c Cluster, op alpha.Op) bool {
	if isMemoryOp(op) || isBranchOp(op) {
		return c == L0 || c == L1
	}
	return true
}

func isMemoryOp(op alpha.Op) bool {
	switch op {
	case alpha.OpLDA, alpha.OpLDAH, alpha.OpLDBU, alpha.OpLDQU, alpha.OpLDWU,
		alpha.OpSTW, alpha.OpSTB, alpha.OpSTQU, alpha.OpLDL, alpha.OpLDQ,
		alpha.OpLDLL, alpha.OpLDQL, alpha.OpSTL, alpha.OpSTQ, alpha.OpSTLC,
		alpha.OpSTQC:
		return true
	}
	return false
}

func isBranchOp(op alpha.Op) bool {
	switch op {
	case alpha.OpBR, alpha.OpBSR, alpha.OpBEQ, alpha.OpBNE, alpha.OpBLT,
		alpha.OpBLE, alpha.OpBGE, alpha.OpBGT, alpha.OpBLBC, alpha.OpBLBS,
		alpha.OpJMP, alpha.OpJSR, alpha.OpRET, alpha.OpJSRCoroutine:
		return true
	}
	return false
}

// Arbitrate assigns each of cands (age-ordered, oldest/lowest-ID first) to
// the first still-free cluster that CanExecute it, exactly the age-priority
// rule of §4.2: ties never happen since cands is already ordered, and an
// instruction that finds no eligible free cluster is simply left
// unassigned (the caller issues it on a later cycle). Memory and branch
// ops try the lower clusters (L0, L1) first; every other op tries the
// upper clusters (U0, U1) first, leaving the lower ones free for memory
// and branch ops.
func Arbitrate(cands []*iq.Descriptor) map[*iq.Descriptor]Cluster {
	assigned := make(map[*iq.Descriptor]Cluster, len(cands))
	busy := map[Cluster]bool{}
	for _, d := range cands {
		order := [...]Cluster{L0, L1, U0, U1}
		if !isMemoryOp(d.Decoded.Op) && !isBranchOp(d.Decoded.Op) {
			order = [...]Cluster{U0, U1, L0, L1}
		}
		for _, c := range order {
			if busy[c] {
				continue
			}
			if CanExecute(c, d.Decoded.Op) {
				assigned[d] = c
				busy[c] = true
				break
			}
		}
	}
	return assigned
}

// Result carries the execution outcome back to the Ibox retirement path:
// the computed destination value (or effective address, for memory ops),
// any exception raised, and, for control instructions, the resolved
// target and taken/not-taken outcome.
type Result struct {
	Value     uint64
	Exception alpha.ExceptionKind
	BranchPC  uint64
	Taken     bool
}

// Execute runs one integer instruction to completion. It is pure with
// respect to rename/architectural state: callers apply Result to the
// descriptor and rename file themselves, so Execute can be called
// speculatively without side effects leaking into committed state. The one
// exception is iprs: HW_MFPR/HW_MTPR reach directly through to the IPR
// bank (§4.7), the same way real PALcode does, so those two opcodes are
// never issued speculatively (the Ibox excludes them from its
// speculative-lookahead slot).
func Execute(d *iq.Descriptor, iprs *ipr.Bank) Result {
	op := d.Decoded.Op
	ra, rb := d.SrcInt[0], d.SrcInt[1]
	if d.Decoded.HasLit {
		rb = uint64(d.Decoded.Literal)
	}

	switch op {
	case alpha.OpADDL:
		v := uint32(ra) + uint32(rb)
		return Result{Value: signExtend32(v)}
	case alpha.OpADDQ:
		return Result{Value: ra + rb}
	case alpha.OpSUBL:
		v := uint32(ra) - uint32(rb)
		return Result{Value: signExtend32(v)}
	case alpha.OpSUBQ:
		return Result{Value: ra - rb}
	case alpha.OpMULL:
		v := uint32(ra) * uint32(rb)
		return Result{Value: signExtend32(v)}
	case alpha.OpMULQ:
		return Result{Value: ra * rb}
	case alpha.OpUMULH:
		hi, _ := bitsMul64(ra, rb)
		return Result{Value: hi}
	case alpha.OpCMPEQ:
		return Result{Value: boolU64(ra == rb)}
	case alpha.OpCMPLT:
		return Result{Value: boolU64(int64(ra) < int64(rb))}
	case alpha.OpCMPLE:
		return Result{Value: boolU64(int64(ra) <= int64(rb))}
	case alpha.OpCMPULT:
		return Result{Value: boolU64(ra < rb)}
	case alpha.OpCMPULE:
		return Result{Value: boolU64(ra <= rb)}
	case alpha.OpAND:
		return Result{Value: ra & rb}
	case alpha.OpBIS:
		return Result{Value: ra | rb}
	case alpha.OpXOR:
		return Result{Value: ra ^ rb}
	case alpha.OpORNOT:
		return Result{Value: ra | ^rb}
	case alpha.OpEQV:
		return Result{Value: ^(ra ^ rb)}
	case alpha.OpBIC:
		return Result{Value: ra &^ rb}
	case alpha.OpSLL:
		return Result{Value: ra << (rb & 0x3f)}
	case alpha.OpSRL:
		return Result{Value: ra >> (rb & 0x3f)}
	case alpha.OpSRA:
		return Result{Value: uint64(int64(ra) >> (rb & 0x3f))}

	case alpha.OpHWMFPR:
		name, ok := ipr.FunctionToName(d.Decoded.IprIndex)
		if !ok {
			return Result{Exception: alpha.AXP_OPCDEC}
		}
		return Result{Value: iprs.Read(name)}
	case alpha.OpHWMTPR:
		name, ok := ipr.FunctionToName(d.Decoded.IprIndex)
		if !ok {
			return Result{Exception: alpha.AXP_OPCDEC}
		}
		iprs.Write(name, ra)
		return Result{}

	case alpha.OpTRAPB, alpha.OpMB, alpha.OpWMB:
		// Pipeline/memory barriers: no computation, no destination. The
		// Ibox executes and retires one instruction at a time in program
		// order, so every older access has already completed by the time
		// one of these executes (§4.5).
		return Result{}
	case alpha.OpWH64, alpha.OpECB:
		// Cache hints: no architectural effect on a model that never
		// observes timing (§4.1).
		return Result{}

	case alpha.OpLDA:
		// LDA/LDAH are address-only: Rb is the source, Ra the dest; the
		// Ibox parks the renamed destination in PhysRc regardless of
		// which architectural field names it (§4.1).
		return Result{Value: rb + uint64(int64(d.Decoded.Disp16))}
	case alpha.OpLDAH:
		return Result{Value: rb + uint64(int64(d.Decoded.Disp16)<<16)}

	case alpha.OpBR, alpha.OpBSR:
		return Result{BranchPC: d.FetchPC + 4 + uint64(d.Decoded.Disp21)*4, Taken: true, Value: d.FetchPC + 4}
	case alpha.OpBEQ:
		return branchIf(d, ra == 0)
	case alpha.OpBNE:
		return branchIf(d, ra != 0)
	case alpha.OpBLT:
		return branchIf(d, int64(ra) < 0)
	case alpha.OpBLE:
		return branchIf(d, int64(ra) <= 0)
	case alpha.OpBGE:
		return branchIf(d, int64(ra) >= 0)
	case alpha.OpBGT:
		return branchIf(d, int64(ra) > 0)
	case alpha.OpBLBC:
		return branchIf(d, ra&1 == 0)
	case alpha.OpBLBS:
		return branchIf(d, ra&1 == 1)

	case alpha.OpJMP, alpha.OpJSR, alpha.OpJSRCoroutine:
		target := rb &^ 0x3
		return Result{BranchPC: target, Taken: true, Value: d.FetchPC + 4}
	case alpha.OpRET:
		target := rb &^ 0x3
		return Result{BranchPC: target, Taken: true, Value: d.FetchPC + 4}

	default:
		return Result{Exception: alpha.AXP_OPCDEC}
	}
}

func branchIf(d *iq.Descriptor, cond bool) Result {
	if !cond {
		return Result{Taken: false, Value: d.FetchPC + 4}
	}
	return Result{BranchPC: d.FetchPC + 4 + uint64(d.Decoded.Disp21)*4, Taken: true, Value: d.FetchPC + 4}
}

func signExtend32(v uint32) uint64 {
	return uint64(mask.SignExtend(uint64(v), 32))
}

func boolU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// bitsMul64 returns the 128-bit product of two uint64s split as (hi, lo),
// needed for UMULH.
func bitsMul64(a, b uint64) (hi, lo uint64) {
	const mask32 = 0xffffffff
	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	t := aLo * bLo
	w0 := t & mask32
	k := t >> 32

	t = aHi*bLo + k
	w1 := t & mask32
	w2 := t >> 32

	t = aLo*bHi + w1
	k = t >> 32

	hi = aHi*bHi + w2 + k
	lo = (t << 32) + w0
	return hi, lo
}
