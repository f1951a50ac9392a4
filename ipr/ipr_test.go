package ipr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteReadRoundTrip(t *testing.T) {
	b := NewBank()
	b.Write(PAL_BASE, 0x8000)
	assert.Equal(t, uint64(0x8000), b.Read(PAL_BASE))
}

func TestUnmodeledNameReadsZero(t *testing.T) {
	b := NewBank()
	assert.Equal(t, uint64(0), b.Read(Name(9999)))
}

func TestFunctionToName(t *testing.T) {
	n, ok := FunctionToName(uint16(EXC_ADDR))
	assert.True(t, ok)
	assert.Equal(t, EXC_ADDR, n)

	_, ok = FunctionToName(9999)
	assert.False(t, ok)
}
