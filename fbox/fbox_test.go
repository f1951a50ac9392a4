package fbox

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"axp21264/alpha"
	"axp21264/iq"
)

func TestAddSignalingNaNSetsInvalidSticky(t *testing.T) {
	fc := &FPCR{}
	snan := math.Float64frombits(0x7FF4000000000000) // quiet bit (51) clear
	decoded := alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpADDT}}
	d := iq.New(decoded, 0, false)
	d.SrcFP[0] = math.Float64bits(snan)
	d.SrcFP[1] = math.Float64bits(1.0)

	res := Execute(fc, d)
	assert.Equal(t, alpha.NoException, res.Exception)
	assert.True(t, fc.InvalidSticky)
	assert.True(t, math.IsNaN(math.Float64frombits(res.Value)))
}

func TestAddSignalingNaNTrapsWhenEnabled(t *testing.T) {
	fc := &FPCR{InvalidEnable: true}
	snan := math.Float64frombits(0x7FF4000000000000)
	decoded := alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpADDT}}
	d := iq.New(decoded, 0, false)
	d.SrcFP[0] = math.Float64bits(snan)
	d.SrcFP[1] = math.Float64bits(1.0)

	res := Execute(fc, d)
	assert.Equal(t, alpha.IllegalOperand, res.Exception)
}

func TestAddNormal(t *testing.T) {
	fc := &FPCR{}
	decoded := alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpADDT}}
	d := iq.New(decoded, 0, false)
	d.SrcFP[0] = math.Float64bits(1.5)
	d.SrcFP[1] = math.Float64bits(2.25)

	res := Execute(fc, d)
	assert.Equal(t, alpha.NoException, res.Exception)
	assert.Equal(t, 3.75, math.Float64frombits(res.Value))
}

func TestCompareTLT(t *testing.T) {
	fc := &FPCR{}
	decoded := alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpCMPTLT}}
	d := iq.New(decoded, 0, false)
	d.SrcFP[0] = math.Float64bits(1.0)
	d.SrcFP[1] = math.Float64bits(2.0)
	res := Execute(fc, d)
	assert.Equal(t, 2.0, math.Float64frombits(res.Value))
}

func TestCopySign(t *testing.T) {
	fc := &FPCR{}
	decoded := alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpCPYS}}
	d := iq.New(decoded, 0, false)
	d.SrcFP[0] = math.Float64bits(5.0)
	d.SrcFP[1] = math.Float64bits(-1.0)
	res := Execute(fc, d)
	assert.Equal(t, -5.0, math.Float64frombits(res.Value))
}
