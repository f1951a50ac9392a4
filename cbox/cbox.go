package cbox

import (
	"context"
	"fmt"

	"axp21264/sysport"
	"axp21264/trace"
)

// Lifecycle is the Cbox main-loop state machine (§4.4).
type Lifecycle int

const (
	Cold Lifecycle = iota
	WaitBiST
	WaitBiSI
	Run
	FaultReset
	Sleep
	ShuttingDown
)

func (l Lifecycle) String() string {
	switch l {
	case Cold:
		return "Cold"
	case WaitBiST:
		return "WaitBiST"
	case WaitBiSI:
		return "WaitBiSI"
	case Run:
		return "Run"
	case FaultReset:
		return "FaultReset"
	case Sleep:
		return "Sleep"
	case ShuttingDown:
		return "ShuttingDown"
	default:
		return "Unknown"
	}
}

// Cbox owns the Bcache, its tag mirrors, and the MAF/VDB/IOWB/PQ rings. It
// is the only component with a direct handle to the system Port; the Mbox
// reaches memory exclusively through the Cbox's public Request* methods.
type Cbox struct {
	state Lifecycle

	port sysport.Port
	log  *trace.Logger

	Bcache *Bcache
	DTag   DTag
	CTag   CTag

	maf  *MAF
	vdb  *VDB
	iowb *IOWB
	pq   *PQ

	bistOK bool
}

// New creates a Cbox in the Cold state.
func New(port sysport.Port, log *trace.Logger, bcacheLines int) *Cbox {
	return &Cbox{
		state:  Cold,
		port:   port,
		log:    log,
		Bcache: NewBcache(bcacheLines),
		DTag:   NewDTag(bcacheLines),
		CTag:   NewCTag(bcacheLines),
		maf:    NewMAF(),
		vdb:    NewVDB(),
		iowb:   NewIOWB(),
		pq:     NewPQ(),
	}
}

func (c *Cbox) State() Lifecycle { return c.state }

// BiST runs the built-in self test transition Cold -> WaitBiST -> WaitBiSI
// (or -> FaultReset on failure), matching the SROM boot sequence of §8
// scenario 1.
func (c *Cbox) BiST() error {
	if c.state != Cold {
		return fmt.Errorf("cbox: BiST called outside Cold state (in %s)", c.state)
	}
	c.state = WaitBiST
	c.bistOK = true // the emulated chip's self test always passes
	if !c.bistOK {
		c.state = FaultReset
		return fmt.Errorf("cbox: BiST failed")
	}
	c.state = WaitBiSI
	return nil
}

// BiSI runs built-in self init and transitions to Run.
func (c *Cbox) BiSI() error {
	if c.state != WaitBiSI {
		return fmt.Errorf("cbox: BiSI called outside WaitBiSI state (in %s)", c.state)
	}
	c.state = Run
	c.log.Debugf("cbox: entering Run")
	return nil
}

// Sleep and Wake implement the low-power STOP/idle transitions (§4.4);
// ShuttingDown is terminal.
func (c *Cbox) Sleep() { c.state = Sleep }
func (c *Cbox) Wake()  { c.state = Run }
func (c *Cbox) Shutdown() { c.state = ShuttingDown }

// Tick runs one Cbox processing round in the fixed order MAF, VDB, IOWB,
// PQ, IRQ (§9: "the Cbox must service MAF before VDB before IOWB before PQ
// on every wake-up; reordering this changes forward-progress guarantees
// under the probe-vs-fill race"). It returns the number of entries it
// advanced, so the caller's scheduler can decide whether to keep spinning
// or block for new work.
func (c *Cbox) Tick(ctx context.Context) (int, error) {
	if c.state != Run {
		return 0, nil
	}
	progress := 0

	n, err := c.serviceMAF(ctx)
	if err != nil {
		return progress, err
	}
	progress += n

	n = c.serviceVDB(ctx)
	progress += n

	n = c.serviceIOWB(ctx)
	progress += n

	n, err = c.servicePQ(ctx)
	if err != nil {
		return progress, err
	}
	progress += n

	c.serviceIRQ()

	return progress, nil
}

func (c *Cbox) serviceMAF(ctx context.Context) (int, error) {
	progress := 0
	c.maf.Each(func(idx int, e *MAFEntry) bool {
		if e.State != Pending {
			return true
		}
		e.State = Outstanding
		resp, err := c.port.Submit(ctx, sysport.Request{Tag: e.Cmd, PA: e.PA, ID: e.ReqID})
		if err != nil {
			c.log.Errorf("cbox: MAF request for %#x failed: %v", e.PA, err)
			e.State = Pending
			return true
		}
		e.Data = resp.Data
		e.State = Complete
		progress++
		return true
	})
	return progress, nil
}

func (c *Cbox) serviceVDB(ctx context.Context) int {
	progress := 0
	c.vdb.Each(func(idx int, e *VDBEntry) bool {
		if e.State != Pending || e.ProbeValid {
			return true
		}
		cmd := sysport.CleanVictimBlk
		if e.Dirty {
			cmd = sysport.WrVictimBlk
		}
		e.State = Outstanding
		_, err := c.port.Submit(ctx, sysport.Request{Tag: cmd, PA: e.PA, Data: e.Data, ID: e.ReqID})
		if err != nil {
			c.log.Errorf("cbox: VDB write-back for %#x failed: %v", e.PA, err)
			e.State = Pending
			return true
		}
		e.State = Complete
		progress++
		return true
	})
	return progress
}

func (c *Cbox) serviceIOWB(ctx context.Context) int {
	progress := 0
	c.iowb.Each(func(idx int, e *IOWBEntry) bool {
		if e.State != Pending {
			return true
		}
		e.State = Outstanding
		size := e.size()
		tag := sysport.WrBytes
		switch size {
		case 4:
			tag = sysport.WrLWs
		case 8:
			tag = sysport.WrQWs
		}
		var data [sysport.BlockSize]byte
		copy(data[:], e.Data[:])
		_, err := c.port.Submit(ctx, sysport.Request{Tag: tag, PA: e.PA, Size: size, Data: data, ID: e.ReqID})
		if err != nil {
			c.log.Errorf("cbox: IOWB write for %#x failed: %v", e.PA, err)
			e.State = Pending
			return true
		}
		e.State = Complete
		progress++
		return true
	})
	return progress
}

func (c *Cbox) servicePQ(ctx context.Context) (int, error) {
	progress := 0
	var firstErr error
	c.pq.Each(func(idx int, e *PQEntry) bool {
		if e.State != Pending {
			return true
		}
		if err := c.handleProbe(ctx, e.Probe); err != nil && firstErr == nil {
			firstErr = err
		}
		e.State = Complete
		progress++
		return true
	})
	return progress, firstErr
}

// handleProbe applies an incoming probe's requested coherence transition
// to the Bcache, then, for probes carrying a data-movement request (DM !=
// DMNop), answers with a ProbeResponse once any covering VDB entry's
// ProbeValid gate has cleared (§9, §4.4: "ProbeResponse gated on VDB
// probe-valid clearing"). A probe with DM == DMNop (a pure invalidate or
// state change) never expects a response.
func (c *Cbox) handleProbe(ctx context.Context, p sysport.Probe) error {
	switch p.NS {
	case sysport.NSInvalid:
		c.Bcache.Flush(p.PA)
		c.DTag.Invalidate(p.PA)
		c.CTag.Invalidate(p.PA)
	case sysport.NSCleanShared, sysport.NSDirtyShared:
		c.Bcache.SetShared(p.PA)
	case sysport.NSClean:
		c.Bcache.ClearDirty(p.PA)
	}

	c.vdb.Each(func(idx int, e *VDBEntry) bool {
		if e.PA == p.PA {
			e.ProbeValid = false
		}
		return true
	})

	if p.DM == sysport.DMNop {
		return nil
	}
	_, err := c.port.Submit(ctx, sysport.Request{Tag: sysport.ProbeResponse, PA: p.PA, ID: p.ID})
	return err
}

func (c *Cbox) serviceIRQ() {
	// IRQ delivery to the Ibox is driven by the system port's pending mask
	// directly (sysport.Port.IRQ); the Cbox's role in the fixed MAF, VDB,
	// IOWB, PQ, IRQ order is only to make sure it is checked last, after
	// any probe this cycle may have changed cache state the interrupt
	// handler could observe.
}

// RequestFill enqueues a cacheable-fill request (load/store miss). If an
// outstanding MAF entry already targets the same block, the new LQ/SQ
// waiter merges onto it instead of allocating a second entry and a
// second system-port request (§4.4). The returned index is always the
// entry (new or merged) the caller should poll.
func (c *Cbox) RequestFill(pa uint64, cmd sysport.CmdTag, reqID uint64, lqIdx, sqIdx int) (int, error) {
	block := blockAddr(pa)
	merged := -1
	c.maf.Each(func(idx int, e *MAFEntry) bool {
		if e.State != Empty && e.PA == block && !e.IsIcache {
			merged = idx
			return false
		}
		return true
	})
	if merged >= 0 {
		e := c.maf.At(merged)
		if lqIdx >= 0 {
			e.LQIdxs = append(e.LQIdxs, lqIdx)
		}
		if sqIdx >= 0 {
			e.SQIdxs = append(e.SQIdxs, sqIdx)
		}
		return merged, nil
	}
	if c.maf.Full() {
		return 0, fmt.Errorf("cbox: MAF full")
	}
	entry := &MAFEntry{State: Pending, PA: block, Cmd: cmd, ReqID: reqID}
	if lqIdx >= 0 {
		entry.LQIdxs = append(entry.LQIdxs, lqIdx)
	}
	if sqIdx >= 0 {
		entry.SQIdxs = append(entry.SQIdxs, sqIdx)
	}
	idx := c.maf.Alloc(entry)
	return idx, nil
}

// RequestIFill is RequestFill's Icache counterpart (§4.3): Icache misses
// merge only against other Icache misses, never against Dcache ones, so
// they are kept on a distinct IsIcache entry even when the block address
// collides (an Icache line and a Dcache line never share a MAF entry).
func (c *Cbox) RequestIFill(pa uint64, reqID uint64) (int, error) {
	block := blockAddr(pa)
	merged := -1
	c.maf.Each(func(idx int, e *MAFEntry) bool {
		if e.State != Empty && e.PA == block && e.IsIcache {
			merged = idx
			return false
		}
		return true
	})
	if merged >= 0 {
		return merged, nil
	}
	if c.maf.Full() {
		return 0, fmt.Errorf("cbox: MAF full")
	}
	idx := c.maf.Alloc(&MAFEntry{State: Pending, PA: block, Cmd: sysport.FetchBlk, ReqID: reqID, IsIcache: true})
	return idx, nil
}

// MAFEntryAt returns the MAF entry at idx for polling by the Mbox.
func (c *Cbox) MAFEntryAt(idx int) *MAFEntry { return c.maf.At(idx) }

// ReleaseMAF returns a completed MAF entry to the free state.
func (c *Cbox) ReleaseMAF(idx int) {
	c.maf.Set(idx, &MAFEntry{State: Empty})
	c.maf.Advance()
}

// RequestVictim enqueues a dirty or clean victim block eviction.
func (c *Cbox) RequestVictim(pa uint64, data [sysport.BlockSize]byte, dirty bool, reqID uint64) (int, error) {
	if c.vdb.Full() {
		return 0, fmt.Errorf("cbox: VDB full")
	}
	idx := c.vdb.Alloc(&VDBEntry{State: Pending, PA: pa, Data: data, Dirty: dirty, ProbeValid: true, ReqID: reqID})
	return idx, nil
}

func (c *Cbox) VDBEntryAt(idx int) *VDBEntry { return c.vdb.At(idx) }
func (c *Cbox) ReleaseVDB(idx int) {
	c.vdb.Set(idx, &VDBEntry{State: Empty})
	c.vdb.Advance()
}

// RequestIOWrite enqueues an uncached write. A write that falls within an
// already-pending entry's aligned quadword merges into it (§4.4) rather
// than allocating a second IOWB slot, the same way RequestFill merges
// same-block MAF misses.
func (c *Cbox) RequestIOWrite(pa uint64, size int, data uint64, reqID uint64) (int, error) {
	base := pa &^ 7
	off := pa & 7
	var bytes [8]byte
	for i := 0; i < size && int(off)+i < 8; i++ {
		bytes[int(off)+i] = byte(data >> (8 * i))
	}
	var mask uint8
	for i := 0; i < size && int(off)+i < 8; i++ {
		mask |= 1 << (off + uint64(i))
	}

	merged := -1
	c.iowb.Each(func(idx int, e *IOWBEntry) bool {
		if e.State == Pending && e.PA == base {
			merged = idx
			return false
		}
		return true
	})
	if merged >= 0 {
		e := c.iowb.At(merged)
		for i := 0; i < 8; i++ {
			if mask&(1<<i) != 0 {
				e.Data[i] = bytes[i]
				e.Mask |= 1 << i
			}
		}
		return merged, nil
	}

	if c.iowb.Full() {
		return 0, fmt.Errorf("cbox: IOWB full")
	}
	idx := c.iowb.Alloc(&IOWBEntry{State: Pending, PA: base, Data: bytes, Mask: mask, ReqID: reqID})
	return idx, nil
}

func (c *Cbox) IOWBEntryAt(idx int) *IOWBEntry { return c.iowb.At(idx) }
func (c *Cbox) ReleaseIOWB(idx int) {
	c.iowb.Set(idx, &IOWBEntry{State: Empty})
	c.iowb.Advance()
}

// PostProbe is called by whatever drains sysport.Port.Probes() (normally
// the Cbox's own goroutine) to enqueue a probe for the next Tick.
func (c *Cbox) PostProbe(p sysport.Probe) error {
	if c.pq.Full() {
		return fmt.Errorf("cbox: PQ full")
	}
	c.pq.Alloc(&PQEntry{State: Pending, Probe: p})
	return nil
}
