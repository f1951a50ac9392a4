package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMask(t *testing.T) {
	assert.Equal(t, Last(0b0000_1111, I1), uint64(0b0000_0001))
	assert.Equal(t, Last(0b0000_1111, I2), uint64(0b0000_0011))
	assert.Equal(t, Last(0b0000_1111, I3), uint64(0b0000_0111))
	assert.Equal(t, Last(0b0000_1111, I4), uint64(0b0000_1111))

	assert.Equal(t, Last(0b1000_1111, I1), uint64(0b0000_0001))
	assert.Equal(t, Last(0b1000_1111, I2), uint64(0b0000_0011))
	assert.Equal(t, Last(0b1000_1111, I3), uint64(0b0000_0111))
	assert.Equal(t, Last(0b1000_1111, I4), uint64(0b0000_1111))

	assert.Equal(t, Last(0b0000_1010, I1), uint64(0b0000_0000))
	assert.Equal(t, Last(0b0000_1010, I2), uint64(0b0000_0010))
	assert.Equal(t, Last(0b0000_1010, I3), uint64(0b0000_0010))
	assert.Equal(t, Last(0b0000_1010, I4), uint64(0b0000_1010))

	assert.True(t, IsSet(0b1, 64))
	assert.False(t, IsSet(0b1, 63))

	assert.Equal(t, Field64(0xFF00, 15, 8), uint64(0xFF))
	assert.Equal(t, Field64(0xFF00, 7, 0), uint64(0))
	assert.Equal(t, SetField64(0, 15, 8, 0xAB), uint64(0xAB00))
	assert.Equal(t, SetField64(0xFFFF, 15, 8, 0), uint64(0x00FF))

	assert.Equal(t, SignExtend(0x7F, 8), int64(0x7F))
	assert.Equal(t, SignExtend(0xFF, 8), int64(-1))
	assert.Equal(t, SignExtend(0x1FFFF, 18), int64(0x1FFFF))
}

func BenchmarkLast(b *testing.B) {
	Last(0b1000_1111, 4)
}

func BenchmarkLastLoop(b *testing.B) {
	lastLoop(0b1000_1111, 4)
}

func BenchmarkFirst(b *testing.B) {
	First(0b1000_1111, 4)
}
