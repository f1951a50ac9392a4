package alpha

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// encodeOprLit builds an Opr-format (0x10-0x13) word with an immediate literal,
// matching the 21264 instruction-set layout: [31:26]=opcode [25:21]=Ra
// [20:13]=literal [12]=1 [11:5]=function [4:0]=Rc.
func encodeOprLit(opcode uint8, ra uint8, lit uint8, function uint8, rc uint8) uint32 {
	return uint32(opcode)<<26 | uint32(ra)<<21 | uint32(lit)<<13 | 1<<12 | uint32(function)<<5 | uint32(rc)
}

func TestDecodeADDQImmediate(t *testing.T) {
	// ADDQ R5, #1, R6
	word := encodeOprLit(0x10, 5, 1, 0x20, 6)
	d := Decode(word)
	assert.Equal(t, OpADDQ, d.Op)
	assert.Equal(t, uint8(5), d.Ra)
	assert.Equal(t, uint8(6), d.Rc)
	assert.True(t, d.HasLit)
	assert.Equal(t, uint8(1), d.Literal)
}

func TestDecodeLDQ(t *testing.T) {
	// LDQ R1, 0x40(R2)
	word := uint32(0x29)<<26 | uint32(1)<<21 | uint32(2)<<16 | 0x0040
	d := Decode(word)
	assert.Equal(t, OpLDQ, d.Op)
	assert.True(t, d.IsLoad)
	assert.Equal(t, int32(0x40), d.Disp16)
}

func TestDecodeBranch(t *testing.T) {
	// BEQ R1, -1 (branch back one instruction)
	word := uint32(0x39)<<26 | uint32(1)<<21 | (uint32(0x1FFFFF) & 0x1FFFFF)
	d := Decode(word)
	assert.Equal(t, OpBEQ, d.Op)
	assert.Equal(t, int32(-1), d.Disp21)
}

func TestDecodeUnknownIsIllegal(t *testing.T) {
	word := uint32(0x02) << 26 // reserved major opcode
	d := Decode(word)
	assert.Equal(t, OpIllegal, d.Op)
	assert.Equal(t, FormatRes, d.Format)
}

func TestDecodeADDT(t *testing.T) {
	word := uint32(0x16)<<26 | uint32(10)<<21 | uint32(11)<<16 | uint32(0x0A0)<<5 | uint32(12)
	d := Decode(word)
	assert.Equal(t, OpADDT, d.Op)
	assert.Equal(t, FormatFP, d.Format)
	assert.True(t, d.Reg.UsesFa)
	assert.True(t, d.Reg.UsesFb)
	assert.True(t, d.Reg.FcIsDest)
}
