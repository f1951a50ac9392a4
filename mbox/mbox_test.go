package mbox

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axp21264/alpha"
	"axp21264/cbox"
	"axp21264/iq"
	"axp21264/sysport"
	"axp21264/trace"
)

func testLogger() *trace.Logger { return trace.New(io.Discard, trace.LevelError) }

func setup(t *testing.T) (*Mbox, *cbox.Cbox, *sysport.Memory) {
	mem := sysport.NewMemory(1 << 20)
	cb := cbox.New(mem, testLogger(), 16)
	require.NoError(t, cb.BiST())
	require.NoError(t, cb.BiSI())
	lq := iq.NewLQ()
	sq := iq.NewSQ()
	m := New(cb, testLogger(), 8, 16, lq, sq)
	m.DTB.Insert(PTE{Valid: true, VPN: 0x10, PFN: 0x10, Writable: true})
	return m, cb, mem
}

func TestLoadMissGoesThroughMAFAndFills(t *testing.T) {
	m, cb, mem := setup(t)
	va := uint64(0x10)<<PageShift + 0x20

	var block [sysport.BlockSize]byte
	block[0x20] = 0x77
	pa := uint64(0x10)<<PageShift + 0x20
	blockPA := pa &^ (sysport.BlockSize - 1)
	_, err := mem.Submit(context.Background(), sysport.Request{Tag: sysport.WrVictimBlk, PA: blockPA, Data: block})
	require.NoError(t, err)

	desc := iq.New(alpha.Decoded{}, 0, false)
	e := &iq.LQEntry{State: iq.MemReadPending, Desc: desc, VA: va, Size: 1}
	exc := m.IssueLoad(e)
	require.Equal(t, alpha.NoException, exc)
	require.Equal(t, iq.MemReadPending, e.State, "must miss since Dcache starts empty")

	n, err := cb.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.True(t, m.PollFill(e))
	assert.Equal(t, iq.MemComplete, e.State)
	assert.Equal(t, uint64(0x77), e.Data)
}

func TestStoreRetirementMarksBcacheDirty(t *testing.T) {
	m, cb, _ := setup(t)
	va := uint64(0x10)<<PageShift + 0x30

	desc := iq.New(alpha.Decoded{}, 0, false)
	e := &iq.SQEntry{Desc: desc, VA: va, Size: 4, Data: 0xCAFEBABE}
	exc := m.IssueStore(e)
	require.Equal(t, alpha.NoException, exc)

	require.NoError(t, m.RetireStore(context.Background(), e))
	assert.True(t, e.Retired)

	blockPA := e.PA &^ (sysport.BlockSize - 1)
	assert.Equal(t, cbox.Dirty, cb.Bcache.Status(blockPA))
}

func TestLoadForwardsFromOlderStore(t *testing.T) {
	m, _, _ := setup(t)
	va := uint64(0x10)<<PageShift + 0x40

	storeDesc := iq.New(alpha.Decoded{}, 0, false)
	sEntry := &iq.SQEntry{State: iq.MemWritePending, Desc: storeDesc, VA: va, Size: 8, Data: 0x1122334455667788}
	require.Equal(t, alpha.NoException, m.IssueStore(sEntry))
	m.SQ.Alloc(sEntry)

	loadDesc := iq.New(alpha.Decoded{}, 0, false)
	loadDesc.ID = storeDesc.ID + 1
	lEntry := &iq.LQEntry{State: iq.MemReadPending, Desc: loadDesc, VA: va, Size: 8}
	exc := m.IssueLoad(lEntry)
	require.Equal(t, alpha.NoException, exc)
	assert.Equal(t, iq.MemComplete, lEntry.State)
	assert.Equal(t, uint64(0x1122334455667788), lEntry.Data)
}

func TestTranslateMissRaisesTBMissFault(t *testing.T) {
	m, _, _ := setup(t)
	desc := iq.New(alpha.Decoded{}, 0, false)
	e := &iq.LQEntry{Desc: desc, VA: 0xDEAD0000, Size: 4}
	exc := m.IssueLoad(e)
	assert.Equal(t, alpha.TBMissFault, exc)
}
