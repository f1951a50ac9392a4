package alpha

// R31 and F31 are hard-wired to zero: reads always return 0, and writes to
// them are no-ops that allocate no physical register (§4.1, §8 boundary
// behaviors).
const (
	R31 = 31
	F31 = 31
)

// NumIntRegs/NumFPRegs are the architectural register file sizes (§3.1).
const (
	NumIntRegs = 32
	NumFPRegs  = 32
)

// NumPhysInt/NumPhysFP are the physical register file sizes backing rename
// (§3.2).
const (
	NumPhysInt = 80
	NumPhysFP  = 72
)
