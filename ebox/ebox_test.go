package ebox

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"axp21264/alpha"
	"axp21264/ipr"
	"axp21264/iq"
)

func TestExecuteADDQImmediateOverflowWraps(t *testing.T) {
	decoded := alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpADDQ}, HasLit: true, Literal: 1}
	d := iq.New(decoded, 0, false)
	d.SrcInt[0] = ^uint64(0) // -1
	res := Execute(d, ipr.NewBank())
	assert.Equal(t, uint64(0), res.Value)
	assert.Equal(t, alpha.NoException, res.Exception)
}

func TestExecuteCMPEQ(t *testing.T) {
	decoded := alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpCMPEQ}}
	d := iq.New(decoded, 0, false)
	d.SrcInt[0], d.SrcInt[1] = 7, 7
	res := Execute(d, ipr.NewBank())
	assert.Equal(t, uint64(1), res.Value)
}

func TestExecuteBranchTakenComputesTarget(t *testing.T) {
	decoded := alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpBEQ}, Disp21: -1}
	d := iq.New(decoded, 0x1000, false)
	d.SrcInt[0] = 0
	res := Execute(d, ipr.NewBank())
	assert.True(t, res.Taken)
	assert.Equal(t, uint64(0x1000+4-4), res.BranchPC)
}

func TestExecuteUnknownOpRaisesOpcDec(t *testing.T) {
	decoded := alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpIllegal}}
	d := iq.New(decoded, 0, false)
	res := Execute(d, ipr.NewBank())
	assert.Equal(t, alpha.AXP_OPCDEC, res.Exception)
}

func TestArbitrateAssignsAgeOrderedClusters(t *testing.T) {
	oldest := iq.New(alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpLDQ}}, 0, false)
	middle := iq.New(alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpADDQ}}, 0, false)
	youngest := iq.New(alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpSTQ}}, 0, false)

	assigned := Arbitrate([]*iq.Descriptor{oldest, middle, youngest})

	assert.Equal(t, L0, assigned[oldest], "the oldest memory op claims the first free address-generating cluster")
	assert.Equal(t, U0, assigned[middle], "a non-memory op can use either upper cluster")
	assert.Equal(t, L1, assigned[youngest], "the younger memory op gets the remaining address-generating cluster")
}

func TestArbitrateLeavesUnassignedWhenNoClusterFree(t *testing.T) {
	loads := make([]*iq.Descriptor, 3)
	for i := range loads {
		loads[i] = iq.New(alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpLDQ}}, 0, false)
	}

	assigned := Arbitrate(loads)

	assert.Len(t, assigned, 2, "only L0 and L1 can take memory ops, so a third candidate goes unassigned")
	_, ok := assigned[loads[2]]
	assert.False(t, ok)
}

func TestUMULHHighBits(t *testing.T) {
	decoded := alpha.Decoded{OpInfo: alpha.OpInfo{Op: alpha.OpUMULH}}
	d := iq.New(decoded, 0, false)
	d.SrcInt[0] = ^uint64(0)
	d.SrcInt[1] = 2
	res := Execute(d, ipr.NewBank())
	assert.Equal(t, uint64(1), res.Value)
}
