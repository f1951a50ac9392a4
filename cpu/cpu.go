// Package cpu wires the Ibox, Mbox, Cbox and system port into a single
// runnable core and drives its top-level lifecycle (§4.4, §8 scenario 1):
// Cold -> BiST -> BiSI (Boot), then Run until halt, error or cancellation.
// This generalizes the teacher's cpu.CPU (fetch/decode/execute/Step loop
// driving a single 6502) to the multi-box Alpha pipeline: the single-step
// entry point is ibox.Ibox.Step, and CPU exports Run.
package cpu

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"axp21264/cbox"
	"axp21264/ibox"
	"axp21264/iq"
	"axp21264/mbox"
	"axp21264/sysport"
	"axp21264/trace"
)

// Config bundles the sizing knobs every box needs at construction.
type Config struct {
	BcacheLines int
	DcacheLines int
	DTBEntries  int
	MemorySize  uint64
	PALBase     uint64
}

// DefaultConfig returns sane sizes for a standalone emulated core.
func DefaultConfig() Config {
	return Config{
		BcacheLines: 1024,
		DcacheLines: 256,
		DTBEntries:  128,
		MemorySize:  64 << 20,
		PALBase:     0x20000000,
	}
}

// CPU is the top-level emulated core.
type CPU struct {
	cfg Config
	log *trace.Logger

	Memory *sysport.Memory
	Cbox   *cbox.Cbox
	Mbox   *mbox.Mbox
	Ibox   *ibox.Ibox

	mu        sync.Mutex
	cond      *sync.Cond
	running   bool
	stopped   chan struct{}
	stopOnce  sync.Once
}

// New constructs a CPU with all boxes wired together but left in the
// Cold lifecycle state; call Boot to bring it up.
func New(cfg Config, log *trace.Logger) *CPU {
	mem := sysport.NewMemory(cfg.MemorySize)
	cb := cbox.New(mem, log, cfg.BcacheLines)

	lq := iq.NewLQ()
	sq := iq.NewSQ()
	mb := mbox.New(cb, log, cfg.DTBEntries, cfg.DcacheLines, lq, sq)
	ib := ibox.New(cb, mb, mem, log)
	ib.SetPALBase(cfg.PALBase)

	c := &CPU{
		cfg:     cfg,
		log:     log,
		Memory:  mem,
		Cbox:    cb,
		Mbox:    mb,
		Ibox:    ib,
		stopped: make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Boot runs the Cbox self-test/self-init sequence and loads the given
// SROM image into memory at address 0 (§8 scenario 1).
func (c *CPU) Boot(image []byte) error {
	if err := c.Cbox.BiST(); err != nil {
		return fmt.Errorf("cpu: boot failed self-test: %w", err)
	}
	if err := c.Cbox.BiSI(); err != nil {
		return fmt.Errorf("cpu: boot failed self-init: %w", err)
	}
	if err := c.loadImage(image); err != nil {
		return fmt.Errorf("cpu: boot failed loading image: %w", err)
	}
	c.log.Infof("cpu: boot complete, entering Run at PC=%#x", c.Ibox.PC)
	return nil
}

func (c *CPU) loadImage(image []byte) error {
	ctx := context.Background()
	for off := 0; off < len(image); off += 8 {
		end := off + 8
		if end > len(image) {
			end = len(image)
		}
		var data [sysport.BlockSize]byte
		copy(data[:], image[off:end])
		if _, err := c.Memory.Submit(ctx, sysport.Request{Tag: sysport.WrQWs, PA: uint64(off), Size: end - off, Data: data}); err != nil {
			return err
		}
	}
	return nil
}

// Run drives the Ibox's fetch/execute/retire loop along with the Cbox's
// background servicing goroutine until ctx is cancelled, the Ibox halts,
// or either goroutine returns an error. It mirrors the teacher's
// goroutine-plus-errgroup pattern for fan-out/fan-in with first-error
// propagation (§9 "ambient concurrency stack").
func (c *CPU) Run(ctx context.Context) error {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			ok, err := c.Ibox.Step(gctx)
			if err != nil {
				return err
			}
			if !ok {
				c.log.Infof("cpu: halted at PC=%#x", c.Ibox.PC)
				return nil
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if _, err := c.Cbox.Tick(gctx); err != nil {
				return err
			}
			if c.Ibox.Halted() {
				return nil
			}
		}
	})

	err := g.Wait()
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	c.stopOnce.Do(func() { close(c.stopped) })
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// Halt stops the fetch loop from outside Run's goroutines (e.g. a
// console command); the Ibox notices on its next Step.
func (c *CPU) Halt() { c.Ibox.Halt() }

// Wait blocks until Run has returned, for callers that kicked Run off in
// its own goroutine.
func (c *CPU) Wait() { <-c.stopped }

// IsRunning reports whether Run is currently active, guarded by cond's
// lock so console status queries never race Run's own state flip.
func (c *CPU) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
