package cbox

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axp21264/sysport"
	"axp21264/trace"
)

func testLogger() *trace.Logger { return trace.New(io.Discard, trace.LevelError) }

// recordingPort wraps a sysport.Memory, recording every request tag
// submitted through it so a test can assert a ProbeResponse was actually
// sent, not merely that Tick reported progress.
type recordingPort struct {
	*sysport.Memory
	tags []sysport.CmdTag
}

func newRecordingPort(size uint64) *recordingPort {
	return &recordingPort{Memory: sysport.NewMemory(size)}
}

func (p *recordingPort) Submit(ctx context.Context, req sysport.Request) (sysport.Response, error) {
	p.tags = append(p.tags, req.Tag)
	return p.Memory.Submit(ctx, req)
}

func newTestCbox(t *testing.T) (*Cbox, *sysport.Memory) {
	mem := sysport.NewMemory(1 << 16)
	c := New(mem, testLogger(), 16)
	require.NoError(t, c.BiST())
	require.NoError(t, c.BiSI())
	return c, mem
}

func TestLifecycleBootSequence(t *testing.T) {
	c, _ := newTestCbox(t)
	assert.Equal(t, Run, c.State())
}

func TestRequestFillCompletesThroughPort(t *testing.T) {
	c, mem := newTestCbox(t)
	var block [sysport.BlockSize]byte
	block[0] = 0x42
	_, err := mem.Submit(context.Background(), sysport.Request{Tag: sysport.WrVictimBlk, PA: 0x1000, Data: block})
	require.NoError(t, err)

	idx, err := c.RequestFill(0x1000, sysport.ReadBlk, 1, 0, -1)
	require.NoError(t, err)

	n, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entry := c.MAFEntryAt(idx)
	assert.Equal(t, Complete, entry.State)
	assert.Equal(t, byte(0x42), entry.Data[0])
}

func TestVictimWriteBackGatedByProbeValid(t *testing.T) {
	c, _ := newTestCbox(t)
	idx, err := c.RequestVictim(0x2000, [sysport.BlockSize]byte{1, 2, 3}, true, 7)
	require.NoError(t, err)

	n, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "write-back must stall while ProbeValid is set")

	c.VDBEntryAt(idx).ProbeValid = false
	n, err = c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, Complete, c.VDBEntryAt(idx).State)
}

func TestProbeInvalidatesBcacheAndClearsVDBGate(t *testing.T) {
	c, _ := newTestCbox(t)
	var block [sysport.BlockSize]byte
	c.Bcache.Write(0x3000, block, Dirty)

	vdbIdx, err := c.RequestVictim(0x3000, block, true, 9)
	require.NoError(t, err)
	assert.True(t, c.VDBEntryAt(vdbIdx).ProbeValid)

	require.NoError(t, c.PostProbe(sysport.Probe{PA: 0x3000, NS: sysport.NSInvalid}))
	n, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, Invalid, c.Bcache.Status(0x3000))
	assert.False(t, c.VDBEntryAt(vdbIdx).ProbeValid)
}

func TestProbeWithDataMovementEmitsProbeResponse(t *testing.T) {
	port := newRecordingPort(1 << 16)
	c := New(port, testLogger(), 16)
	require.NoError(t, c.BiST())
	require.NoError(t, c.BiSI())

	require.NoError(t, c.PostProbe(sysport.Probe{PA: 0x4000, DM: sysport.DMReadAny, NS: sysport.NSCleanShared, ID: 5}))
	n, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, port.tags, sysport.ProbeResponse)
}

func TestProbeWithoutDataMovementSendsNoResponse(t *testing.T) {
	c, _ := newTestCbox(t)

	require.NoError(t, c.PostProbe(sysport.Probe{PA: 0x4000, NS: sysport.NSInvalid}))
	n, err := c.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the probe itself still counts as serviced progress")
	assert.Equal(t, Invalid, c.Bcache.Status(0x4000))
}

func TestRequestFillMergesSameBlockMiss(t *testing.T) {
	c, _ := newTestCbox(t)

	idx1, err := c.RequestFill(0x5000, sysport.ReadBlk, 1, 0, -1)
	require.NoError(t, err)
	idx2, err := c.RequestFill(0x5010, sysport.ReadBlk, 2, 1, -1)
	require.NoError(t, err)

	assert.Equal(t, idx1, idx2, "two misses to the same block must merge into one MAF entry")
	assert.ElementsMatch(t, []int{0, 1}, c.MAFEntryAt(idx1).LQIdxs)
}

func TestRequestIOWriteMergesSameQuadword(t *testing.T) {
	c, _ := newTestCbox(t)

	idx1, err := c.RequestIOWrite(0x6000, 4, 0xAABBCCDD, 1)
	require.NoError(t, err)
	idx2, err := c.RequestIOWrite(0x6004, 4, 0x11223344, 2)
	require.NoError(t, err)

	assert.Equal(t, idx1, idx2, "two writes to the same aligned quadword must merge into one IOWB entry")
	entry := c.IOWBEntryAt(idx1)
	assert.Equal(t, uint8(0xFF), entry.Mask)
}

func TestBcacheSetDirtyOnlyAffectsValidLine(t *testing.T) {
	b := NewBcache(4)
	b.SetDirty(0x40) // no line installed yet: must be a no-op (§9)
	assert.Equal(t, Invalid, b.Status(0x40))

	b.Write(0x40, [sysport.BlockSize]byte{}, Clean)
	b.SetDirty(0x40)
	assert.Equal(t, Dirty, b.Status(0x40))
}
