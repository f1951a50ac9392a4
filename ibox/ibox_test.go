package ibox

import (
	"context"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axp21264/alpha"
	"axp21264/cbox"
	"axp21264/iq"
	"axp21264/mbox"
	"axp21264/sysport"
	"axp21264/trace"
)

func testLogger() *trace.Logger { return trace.New(io.Discard, trace.LevelError) }

func encodeOprLit(opcode, ra, lit, function, rc uint8) uint32 {
	var w uint32
	w |= uint32(opcode) << 26
	w |= uint32(ra) << 21
	w |= uint32(lit) << 13
	w |= 1 << 12
	w |= uint32(function&0x7F) << 5
	w |= uint32(rc)
	return w
}

func setupSystem(t *testing.T) (*Ibox, *sysport.Memory) {
	mem := sysport.NewMemory(1 << 16)
	cb := cbox.New(mem, testLogger(), 16)
	require.NoError(t, cb.BiST())
	require.NoError(t, cb.BiSI())
	lq := iq.NewLQ()
	sq := iq.NewSQ()
	mb := mbox.New(cb, testLogger(), 8, 16, lq, sq)
	ib := New(cb, mb, mem, testLogger())
	return ib, mem
}

func writeWord(t *testing.T, mem *sysport.Memory, pa uint64, word uint32) {
	var data [sysport.BlockSize]byte
	binary.LittleEndian.PutUint32(data[:4], word)
	_, err := mem.Submit(context.Background(), sysport.Request{Tag: sysport.WrLWs, PA: pa, Size: 4, Data: data})
	require.NoError(t, err)
}

func TestStepExecutesADDQImmediate(t *testing.T) {
	ib, mem := setupSystem(t)
	// ADDQ R5,#1,R6 at PC 0
	word := encodeOprLit(0x10, 5, 1, 0x20, 6)
	writeWord(t, mem, 0, word)

	ib.IntRF[ib.IntRen.Map[5]] = 41
	ok, err := ib.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), ib.IntRF[ib.IntRen.Map[6]])
	assert.Equal(t, uint64(4), ib.PC)
}

func TestStepLDAComputesAddress(t *testing.T) {
	ib, mem := setupSystem(t)

	// LDA R1, 0x100(R31)  -- sets R1 = 0x100
	ldaWord := uint32(0x08)<<26 | uint32(alpha.R31)<<16 | uint32(1)<<21 | uint32(0x100)&0xFFFF
	writeWord(t, mem, 0, ldaWord)

	ok, err := ib.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0x100), ib.IntRF[ib.IntRen.Map[1]])
}

func TestDispatchExceptionVectorsToPAL(t *testing.T) {
	ib, _ := setupSystem(t)
	ib.SetPALBase(0x8000)
	desc := &iq.Descriptor{FetchPC: 0x40}
	ib.dispatchException(alpha.IllegalOperand, desc)
	assert.True(t, ib.PALMode)
	assert.Equal(t, ib.PALBase+alpha.PALOffset[alpha.IllegalOperand], ib.PC)
}
