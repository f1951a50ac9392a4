package rename

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenameR31IsZeroSentinel(t *testing.T) {
	f := New(32, 80, 80)
	newPhys, prevPhys, err := f.Rename(31)
	assert.NoError(t, err)
	assert.Equal(t, Zero, newPhys)
	assert.Equal(t, Zero, prevPhys)
}

func TestRenameAllocatesFromFreeList(t *testing.T) {
	f := New(32, 80, 80)
	before := f.FreeCount()
	newPhys, prevPhys, err := f.Rename(5)
	assert.NoError(t, err)
	assert.NotEqual(t, Zero, newPhys)
	assert.Equal(t, 5, prevPhys) // arch regs start 1:1 mapped
	assert.Equal(t, before-1, f.FreeCount())
	assert.Equal(t, newPhys, f.Map[5])
}

func TestInvariantSumEqualsNumPhys(t *testing.T) {
	f := New(32, 80, 80)
	inFlight := 0
	for i := 0; i < 10; i++ {
		_, _, err := f.Rename(uint8(i % 31))
		assert.NoError(t, err)
		inFlight++
	}
	mapped := map[int]bool{}
	for _, p := range f.Map {
		if p != Zero {
			mapped[p] = true
		}
	}
	// Each rename displaced a previous physical register that is neither
	// free nor mapped until retirement frees it, so free + mapped +
	// in-flight == numPhys (39 + 31 + 10 == 80).
	assert.Equal(t, f.NumPhys(), f.FreeCount()+len(mapped)+inFlight)
}

func TestCheckpointRestore(t *testing.T) {
	f := New(32, 80, 80)
	f.Checkpoint(0)
	snapshot := append([]int(nil), f.Map...)

	newPhys, _, err := f.Rename(3)
	assert.NoError(t, err)
	assert.NotEqual(t, snapshot[3], f.Map[3])
	assert.Equal(t, newPhys, f.Map[3])

	f.Restore(0)
	assert.Equal(t, snapshot, f.Map)
}

func TestFreeRegReturnsToFreeList(t *testing.T) {
	f := New(32, 80, 80)
	before := f.FreeCount()
	newPhys, _, _ := f.Rename(2)
	assert.Equal(t, before-1, f.FreeCount())
	f.FreeReg(newPhys)
	assert.Equal(t, before, f.FreeCount())
	assert.Equal(t, Free, f.State(newPhys))
}
