package sysport

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarReadWriteRoundTrip(t *testing.T) {
	m := NewMemory(4096)
	ctx := context.Background()

	var data [BlockSize]byte
	binary.LittleEndian.PutUint64(data[:8], 0xdeadbeef)
	_, err := m.Submit(ctx, Request{Tag: WrQWs, PA: 0x100, Size: 8, Data: data})
	require.NoError(t, err)

	resp, err := m.Submit(ctx, Request{Tag: ReadQWs, PA: 0x100, Size: 8})
	require.NoError(t, err)
	assert.Equal(t, ReadData0, resp.DC)
	assert.Equal(t, uint64(0xdeadbeef), binary.LittleEndian.Uint64(resp.Data[:8]))
}

func TestBlockReadWriteAligned(t *testing.T) {
	m := NewMemory(4096)
	ctx := context.Background()

	var block [BlockSize]byte
	for i := range block {
		block[i] = byte(i)
	}
	_, err := m.Submit(ctx, Request{Tag: WrVictimBlk, PA: 0x1C0, Data: block})
	require.NoError(t, err)

	resp, err := m.Submit(ctx, Request{Tag: ReadBlk, PA: 0x1C5}) // unaligned PA, same block
	require.NoError(t, err)
	assert.Equal(t, block, resp.Data)
}

func TestBadAddress(t *testing.T) {
	m := NewMemory(64)
	_, err := m.Submit(context.Background(), Request{Tag: ReadBlk, PA: 0x1000})
	assert.ErrorIs(t, err, ErrBadAddress)
}

func TestIRQRaiseAndClearUnderLock(t *testing.T) {
	m := NewMemory(64)
	m.RaiseIRQ(0x1)
	m.RaiseIRQ(0x4)
	assert.Equal(t, uint64(0x5), m.IRQ())
	m.ClearIRQ(0x1)
	assert.Equal(t, uint64(0x4), m.IRQ())
}

type fakeDevice struct {
	base uint64
	val  uint64
}

func (d *fakeDevice) Base() uint64 { return d.base }
func (d *fakeDevice) Size() uint64 { return 8 }
func (d *fakeDevice) Read(addr uint64, size int) (uint64, error) { return d.val, nil }
func (d *fakeDevice) Write(addr uint64, size int, val uint64) error {
	d.val = val
	return nil
}

func TestDeviceTakesPriorityOverBacking(t *testing.T) {
	m := NewMemory(4096)
	dev := &fakeDevice{base: 0x800}
	m.AddDevice(dev)

	_, err := m.Submit(context.Background(), Request{Tag: WrQWs, PA: 0x800, Size: 8, Data: func() [BlockSize]byte {
		var d [BlockSize]byte
		binary.LittleEndian.PutUint64(d[:8], 42)
		return d
	}()})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), dev.val)
}
