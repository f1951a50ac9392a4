package ibox

import (
	"context"
	"encoding/binary"
	"fmt"

	"axp21264/alpha"
	"axp21264/cbox"
	"axp21264/ebox"
	"axp21264/fbox"
	"axp21264/iq"
	"axp21264/ipr"
	"axp21264/mbox"
	"axp21264/rename"
	"axp21264/sysport"
	"axp21264/trace"
)

// icacheBlockPA masks pa down to the Icache block it falls in.
func icacheBlockPA(pa uint64) uint64 { return pa &^ (sysport.BlockSize - 1) }

// WindowDepth is the number of in-flight instructions the rename
// checkpoint ring and the integer issue queue are sized for (§3.1, §4.5).
const WindowDepth = 20

// Ibox is the top-level fetch/decode/rename/issue/retire engine (§4.2).
// It owns the architectural-visible state machine (PC, PALmode, the
// rename maps and physical register files) and drives the Mbox/Ebox/Fbox
// to completion each Step.
type Ibox struct {
	PC      uint64
	PALMode bool
	PALBase uint64

	IntRen *rename.File
	FPRen  *rename.File
	IntRF  []uint64 // physical integer register file values
	FPRF   []uint64 // physical FP register file values

	IQ *iq.IQ
	FQ *iq.FQ

	Predictor *Predictor
	RAS       *RAS
	FPCR      *fbox.FPCR

	IPRs *ipr.Bank

	ic *Icache

	cb   *cbox.Cbox
	mb   *mbox.Mbox
	port sysport.Port
	log  *trace.Logger

	checkpointSeq int
	halted        bool
}

// New wires an Ibox to its Mbox, Cbox and system port. The physical
// register files are sized by alpha.NumPhysInt and alpha.NumPhysFP.
func New(cb *cbox.Cbox, mb *mbox.Mbox, port sysport.Port, log *trace.Logger) *Ibox {
	ib := &Ibox{
		IntRen: rename.New(alpha.NumIntRegs, alpha.NumPhysInt, WindowDepth),
		FPRen:  rename.New(alpha.NumFPRegs, alpha.NumPhysFP, WindowDepth),
		IntRF:  make([]uint64, alpha.NumPhysInt),
		FPRF:   make([]uint64, alpha.NumPhysFP),
		IQ:     iq.NewIQ(),
		FQ:     iq.NewFQ(),

		Predictor: NewPredictor(10, 12),
		RAS:       NewRAS(32),
		FPCR:      &fbox.FPCR{},
		IPRs:      ipr.NewBank(),

		ic: NewIcache(),

		cb:   cb,
		mb:   mb,
		port: port,
		log:  log,
	}
	ib.IPRs.Write(ipr.PAL_BASE, ib.PALBase)
	return ib
}

func (ib *Ibox) readInt(phys int) uint64 {
	if phys == rename.Zero {
		return 0
	}
	return ib.IntRF[phys]
}

func (ib *Ibox) readFP(phys int) uint64 {
	if phys == rename.Zero {
		return 0
	}
	return ib.FPRF[phys]
}

func (ib *Ibox) writeInt(phys int, v uint64) {
	if phys == rename.Zero {
		return
	}
	ib.IntRF[phys] = v
}

func (ib *Ibox) writeFP(phys int, v uint64) {
	if phys == rename.Zero {
		return
	}
	ib.FPRF[phys] = v
}

// fetch reads one 32-bit instruction word at pc, treated as a physical
// address, through the Icache (§4.3). Fetching through a virtual
// instruction-TB path is out of scope (§9 — this core never runs
// user-mode code that would need it); PALcode and the boot ROM image
// both execute with the MMU off, which covers every §8 scenario.
func (ib *Ibox) fetch(ctx context.Context, pc uint64) (uint32, error) {
	block := icacheBlockPA(pc)
	offset := int(pc & (sysport.BlockSize - 1))

	data, ok := ib.ic.Lookup(block)
	if !ok {
		var err error
		data, err = ib.fillIcache(ctx, block)
		if err != nil {
			return 0, err
		}
	}
	return binary.LittleEndian.Uint32(data[offset : offset+4]), nil
}

// fillIcache services an Icache miss through the Cbox's MAF, the same
// path a Dcache miss uses, but as an Icache request so it merges only
// against other Icache misses (§4.4). It spins the Cbox's Tick loop
// until the fill completes, mirroring executeMemory's load-miss poll.
func (ib *Ibox) fillIcache(ctx context.Context, block uint64) ([sysport.BlockSize]byte, error) {
	idx, err := ib.cb.RequestIFill(block, iq.NextID())
	if err != nil {
		return [sysport.BlockSize]byte{}, err
	}
	for {
		n, terr := ib.cb.Tick(ctx)
		if terr != nil {
			return [sysport.BlockSize]byte{}, terr
		}
		entry := ib.cb.MAFEntryAt(idx)
		if entry.State == cbox.Complete {
			ib.ic.Fill(block, entry.Data)
			ib.cb.ReleaseMAF(idx)
			return entry.Data, nil
		}
		if n == 0 {
			return [sysport.BlockSize]byte{}, fmt.Errorf("ibox: icache fill at %#x stalled", block)
		}
	}
}

// Step fetches, decodes, renames, issues, executes and retires exactly
// one instruction, the way the in-order engine always has. On a branch
// it additionally takes one bounded speculative step: it predicts the
// branch's outcome (Predictor/RAS, §4.2), and if the prediction points
// somewhere speculatable (a simple non-memory, non-control, non-PAL
// instruction — anything else risks a side effect this engine cannot
// undo), it fetches, decodes and renames that instruction too before the
// real branch resolves. Once the branch's true outcome is known, the
// speculative instruction either completes in the same Step (predicted
// correctly, so its rename/register-write work was not wasted) or is
// rolled back (mispredicted, §4.5 step 2). A predicted target that is not
// speculatable is rolled back as soon as it has been decoded. Step
// returns false once the Ibox has been halted (see Halt), and false with
// an error when a fetch fails.
func (ib *Ibox) Step(ctx context.Context) (bool, error) {
	if ib.halted {
		return false, nil
	}

	if ib.checkIRQ() {
		return true, nil
	}

	desc, err := ib.fetchDecodeRename(ctx, ib.PC)
	if err != nil {
		return false, fmt.Errorf("ibox: fetch at %#x: %w", ib.PC, err)
	}
	if desc == nil {
		return true, nil // IQ/FQ full; stall this cycle
	}

	var spec *iq.Descriptor
	predictedTarget, predictedTaken := uint64(0), false
	if isBranchFormat(desc.Decoded.Format) {
		if target, taken := ib.predictBranch(desc); taken {
			predictedTarget, predictedTaken = target, true
			if d2, serr := ib.fetchDecodeRename(ctx, target); serr == nil && d2 != nil {
				if speculatable(d2.Decoded) {
					spec = d2
				} else {
					ib.rollback(d2)
				}
			}
		}
	}

	if spec != nil {
		// Arbitrate age-orders desc ahead of spec (desc is strictly
		// older) and only keeps spec speculatively executing this cycle
		// if a cluster is actually free for it once desc's has been
		// assigned one (§4.2); a structural conflict drops the
		// speculative instruction rather than inventing a second pipe.
		assignment := ebox.Arbitrate([]*iq.Descriptor{desc, spec})
		if _, ok := assignment[spec]; !ok {
			ib.rollback(spec)
			spec = nil
		}
	}

	exc := ib.executeAndRetire(ctx, desc)
	if exc != alpha.NoException {
		if spec != nil {
			ib.rollback(spec)
		}
		ib.rollback(desc)
		ib.dispatchException(exc, desc)
		return true, nil
	}

	actualPC := ib.nextPC(desc)
	if spec == nil {
		ib.PC = actualPC
		return true, nil
	}

	if !predictedTaken || actualPC != predictedTarget {
		ib.rollback(spec)
		ib.PC = actualPC
		return true, nil
	}

	specExc := ib.executeAndRetire(ctx, spec)
	if specExc != alpha.NoException {
		ib.rollback(spec)
		ib.dispatchException(specExc, spec)
		return true, nil
	}
	ib.PC = ib.nextPC(spec)
	return true, nil
}

// fetchDecodeRename fetches and decodes the instruction at pc, renames
// its operands and allocates it an issue-queue slot. It returns (nil,
// nil) if the appropriate queue is full, letting the caller treat that
// as a stall rather than an error.
func (ib *Ibox) fetchDecodeRename(ctx context.Context, pc uint64) (*iq.Descriptor, error) {
	word, err := ib.fetch(ctx, pc)
	if err != nil {
		return nil, err
	}

	decoded := alpha.Decode(word)
	desc := iq.New(decoded, pc, ib.PALMode)

	ib.renameOperands(desc)
	ib.readSources(desc)

	switch decoded.Queue {
	case alpha.QueueFP:
		if ib.FQ.Full() {
			return nil, nil
		}
		ib.FQ.Alloc(desc)
	default:
		if ib.IQ.Full() {
			return nil, nil
		}
		ib.IQ.Alloc(desc)
	}
	desc.State = iq.Executing
	return desc, nil
}

// speculatable reports whether d is safe to execute before an older
// branch resolves: it must have no side effect beyond its own register
// write, so a misprediction can be undone by rollback alone (§4.5 step
// 2). Memory ops touch the Mbox/Cbox, control ops would need their own
// nested speculation, and PALcode-visible ops (HW_MFPR/HW_MTPR,
// CALL_PAL) touch IPR state rollback does not track.
func speculatable(d alpha.Decoded) bool {
	if d.IsLoad || d.IsStore {
		return false
	}
	if isBranchFormat(d.Format) {
		return false
	}
	switch d.Op {
	case alpha.OpHWMFPR, alpha.OpHWMTPR, alpha.OpCALLPAL:
		return false
	}
	return true
}

// predictBranch returns the Predictor/RAS's best guess at a branch's
// outcome without executing it (§4.2). RET predicts from the return
// address stack; BR/BSR are unconditional and PC-relative, so their
// target is known at decode time; conditional branches consult the
// taken/not-taken predictor. JMP/JSR/JSR_COROUTINE and CALL_PAL are not
// predicted: their target depends on a register or PAL-function value
// the lookahead has no way to know before the real instruction executes.
func (ib *Ibox) predictBranch(d *iq.Descriptor) (target uint64, taken bool) {
	switch d.Decoded.Op {
	case alpha.OpRET:
		if pc, ok := ib.RAS.Pop(); ok {
			return pc, true
		}
		return 0, false
	case alpha.OpBR, alpha.OpBSR:
		return d.FetchPC + 4 + uint64(d.Decoded.Disp21)*4, true
	case alpha.OpJMP, alpha.OpJSR, alpha.OpJSRCoroutine, alpha.OpCALLPAL:
		return 0, false
	default:
		if !ib.Predictor.Predict(d.FetchPC) {
			return 0, false
		}
		return d.FetchPC + 4 + uint64(d.Decoded.Disp21)*4, true
	}
}

// rollback undoes d's rename-time allocation: the map is restored to the
// checkpoint taken just before d was renamed, and the physical
// registers that restore orphans are returned to the free list. Used
// both for exception recovery (§4.6) and for misprediction recovery of
// a speculatively-executed instruction (§4.5 step 2). checkpointSeq is
// shared between the integer and FP rename files, so both are always
// restored together regardless of which one d actually allocated from.
func (ib *Ibox) rollback(d *iq.Descriptor) {
	if d == nil {
		return
	}
	ib.IntRen.Restore(d.CheckpointIdx)
	ib.FPRen.Restore(d.CheckpointIdx)
	ib.IntRen.FreeReg(d.PhysRc)
	ib.FPRen.FreeReg(d.PhysFc)
	d.State = iq.Retired
}

func (ib *Ibox) renameOperands(d *iq.Descriptor) {
	reg := d.Decoded.Reg
	d.ArchRa, d.ArchRb, d.ArchRc = d.Decoded.Ra, d.Decoded.Rb, d.Decoded.Rc
	d.ArchFa, d.ArchFb, d.ArchFc = d.Decoded.Ra, d.Decoded.Rb, d.Decoded.Rc

	d.PhysRa = ib.IntRen.Map[boundedArch(d.ArchRa)]
	d.PhysRb = ib.IntRen.Map[boundedArch(d.ArchRb)]
	d.PhysFa = ib.FPRen.Map[boundedArch(d.ArchFa)]
	d.PhysFb = ib.FPRen.Map[boundedArch(d.ArchFb)]
	d.PrevPhysDest = -1

	ib.checkpointSeq++
	idx := ib.checkpointSeq % WindowDepth
	d.CheckpointIdx = idx
	ib.IntRen.Checkpoint(idx)
	ib.FPRen.Checkpoint(idx)

	if reg.RcIsDest || reg.RaIsDest {
		destArch := d.ArchRc
		if reg.RaIsDest {
			destArch = d.ArchRa
		}
		newPhys, prevPhys, err := ib.IntRen.Rename(destArch)
		if err == nil {
			d.PhysRc = newPhys
			d.PrevPhysDest = prevPhys
		}
	} else {
		d.PhysRc = rename.Zero
	}
	if reg.FcIsDest {
		newPhys, prevPhys, err := ib.FPRen.Rename(d.ArchFc)
		if err == nil {
			d.PhysFc = newPhys
			d.PrevPhysDest = prevPhys
		}
	} else {
		d.PhysFc = rename.Zero
	}
}

func boundedArch(a uint8) uint8 {
	if int(a) >= alpha.NumIntRegs {
		return alpha.R31
	}
	return a
}

func (ib *Ibox) readSources(d *iq.Descriptor) {
	d.SrcInt[0] = ib.readInt(d.PhysRa)
	d.SrcInt[1] = ib.readInt(d.PhysRb)
	d.SrcFP[0] = ib.readFP(d.PhysFa)
	d.SrcFP[1] = ib.readFP(d.PhysFb)
}

// executeAndRetire runs the instruction's execute stage and immediately
// retires it (§9 resolution: this Ibox issues and retires strictly in
// program order, so the IQ/FQ still enforce real backpressure but there
// is no separate out-of-order completion step to model).
func (ib *Ibox) executeAndRetire(ctx context.Context, d *iq.Descriptor) alpha.ExceptionKind {
	defer ib.releaseQueueSlot(d)

	if d.Decoded.Queue == alpha.QueueFP && d.Decoded.Format == alpha.FormatFP {
		res := fbox.Execute(ib.FPCR, d)
		if res.Exception != alpha.NoException {
			return res.Exception
		}
		ib.writeFP(d.PhysFc, res.Value)
		ib.FPRen.CommitWrite(d.PhysFc)
		ib.FPRen.FreeReg(d.PrevPhysDest)
		d.State = iq.Retiring
		return alpha.NoException
	}

	if d.Decoded.IsLoad || d.Decoded.IsStore {
		return ib.executeMemory(ctx, d)
	}

	if d.Decoded.Op == alpha.OpCALLPAL {
		ib.executeCallPal(d)
		d.State = iq.Retiring
		return alpha.NoException
	}

	res := ebox.Execute(d, ib.IPRs)
	if res.Exception != alpha.NoException {
		return res.Exception
	}
	if d.Decoded.Reg.RcIsDest || d.Decoded.Reg.RaIsDest {
		ib.writeInt(d.PhysRc, res.Value)
		ib.IntRen.CommitWrite(d.PhysRc)
		ib.IntRen.FreeReg(d.PrevPhysDest)
	}
	d.BranchPC = res.BranchPC
	d.Taken = res.Taken
	if isBranchFormat(d.Decoded.Format) {
		ib.Predictor.Update(d.FetchPC, res.Taken)
	}
	d.State = iq.Retiring
	return alpha.NoException
}

func isBranchFormat(f alpha.Format) bool {
	return f == alpha.FormatBra || f == alpha.FormatCond || f == alpha.FormatFPBra || f == alpha.FormatMbr || f == alpha.FormatPAL
}

// executeCallPal vectors to a PAL entry point derived from the call's
// 26-bit function code (§4.6, §4.7): nextPC picks this up the same way
// it picks up a taken branch, since CALL_PAL is a FormatPAL instruction.
// Real hardware reserves a separate unprivileged-call region distinguished
// by a bit in the function code; nothing in scope pins down an exact
// mapping, so callPalOffset reconstructs one (§9 Open Question).
func (ib *Ibox) executeCallPal(d *iq.Descriptor) {
	ib.IPRs.Write(ipr.EXC_ADDR, d.FetchPC+4)
	ib.PALMode = true
	d.BranchPC = ib.PALBase + callPalOffset(d.Decoded.Function)
	d.Taken = true
}

func callPalOffset(function uint16) uint64 {
	base := uint64(0x2000)
	if function&0x80 != 0 {
		base = 0 // privileged calls vector into the low PAL block
	}
	return base + uint64(function&0x3F)*0x40
}

func (ib *Ibox) executeMemory(ctx context.Context, d *iq.Descriptor) alpha.ExceptionKind {
	isFP := d.Decoded.Queue == alpha.QueueFP
	ea := ib.readInt(d.PhysRb) + uint64(int64(d.Decoded.Disp16))

	if d.Decoded.IsLoad {
		lq := &iq.LQEntry{State: iq.MemReadPending, Desc: d, VA: ea, Size: memSize(d.Decoded.Op), Signed: memSigned(d.Decoded.Op)}
		idx := ib.mb.LQ.Alloc(lq)
		d.LQIndex = idx
		exc := ib.mb.IssueLoad(lq)
		if exc != alpha.NoException {
			return exc
		}
		for lq.State != iq.MemComplete {
			if lq.State == iq.MemReadPending {
				if _, err := ib.cb.Tick(ctx); err != nil {
					return alpha.NoException
				}
				ib.mb.PollFill(lq)
			} else {
				break
			}
		}
		val := lq.Data
		if lq.Signed {
			val = signExtendLoad(val, lq.Size)
		}
		if isFP {
			ib.writeFP(d.PhysFc, val)
			ib.FPRen.CommitWrite(d.PhysFc)
			ib.FPRen.FreeReg(d.PrevPhysDest)
		} else {
			ib.writeInt(d.PhysRc, val)
			ib.IntRen.CommitWrite(d.PhysRc)
			ib.IntRen.FreeReg(d.PrevPhysDest)
		}
		d.State = iq.Retiring
		return alpha.NoException
	}

	storeData := ib.readInt(d.PhysRa)
	if isFP {
		storeData = ib.readFP(d.PhysFa)
	}
	sq := &iq.SQEntry{State: iq.MemWritePending, Desc: d, VA: ea, Size: memSize(d.Decoded.Op), Data: storeData}
	idx := ib.mb.SQ.Alloc(sq)
	d.SQIndex = idx
	exc := ib.mb.IssueStore(sq)
	if exc != alpha.NoException {
		return exc
	}
	if err := ib.mb.RetireStore(ctx, sq); err != nil {
		ib.log.Errorf("ibox: store retire failed: %v", err)
	}
	d.State = iq.Retiring
	return alpha.NoException
}

func memSize(op alpha.Op) int {
	switch op {
	case alpha.OpLDBU, alpha.OpSTB:
		return 1
	case alpha.OpLDWU, alpha.OpSTW:
		return 2
	case alpha.OpLDL, alpha.OpLDLL, alpha.OpSTL, alpha.OpSTLC:
		return 4
	default:
		return 8
	}
}

func memSigned(op alpha.Op) bool {
	return op == alpha.OpLDL || op == alpha.OpLDLL
}

func signExtendLoad(v uint64, size int) uint64 {
	switch size {
	case 4:
		return uint64(int64(int32(v)))
	default:
		return v
	}
}

func (ib *Ibox) releaseQueueSlot(d *iq.Descriptor) {
	d.State = iq.Retired
	ib.IQ.Advance()
	ib.FQ.Advance()
}

func (ib *Ibox) nextPC(d *iq.Descriptor) uint64 {
	if isBranchFormat(d.Decoded.Format) && d.Taken {
		if d.Decoded.Op == alpha.OpJSR {
			ib.RAS.Push(d.FetchPC + 4)
		}
		return d.BranchPC
	}
	return d.FetchPC + 4
}

// dispatchException vectors to PAL on any raised exception (§4.6): it
// records the faulting PC and summary in the IPR bank and redirects PC to
// PALBase plus the exception's fixed offset.
func (ib *Ibox) dispatchException(exc alpha.ExceptionKind, d *iq.Descriptor) {
	ib.IPRs.Write(ipr.EXC_ADDR, d.FetchPC)
	ib.IPRs.Write(ipr.EXC_SUM, uint64(exc))
	ib.PALMode = true
	ib.PC = ib.PALBase + alpha.PALOffset[exc]
	ib.log.Debugf("ibox: exception %s at %#x, vectoring to %#x", exc, d.FetchPC, ib.PC)
}

// checkIRQ polls the system port's pending interrupt mask and, if any bit
// is both pending and unmasked, vectors to the interrupt PAL entry
// (§4.6, §5). It returns true if an interrupt was taken this Step.
func (ib *Ibox) checkIRQ() bool {
	pending := ib.port.IRQ() &^ ib.IPRs.Read(ipr.IRQ_MASK)
	if pending == 0 {
		return false
	}
	ib.IPRs.Write(ipr.INTID, pending)
	ib.IPRs.Write(ipr.EXC_ADDR, ib.PC)
	ib.PALMode = true
	ib.PC = ib.PALBase + alpha.PALOffset[alpha.AXP_INTERRUPT]
	ib.port.ClearIRQ(pending)
	return true
}

// SetPALBase sets the PAL base address, normally done once at boot from
// the SROM image header (§8 scenario 1).
func (ib *Ibox) SetPALBase(base uint64) {
	ib.PALBase = base
	ib.IPRs.Write(ipr.PAL_BASE, base)
}

// Halt stops the fetch loop: every later Step returns false. cpu.CPU.Halt
// calls it.
func (ib *Ibox) Halt() { ib.halted = true }

func (ib *Ibox) Halted() bool { return ib.halted }
