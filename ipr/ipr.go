// Package ipr implements the internal processor register bank HW_MFPR
// and HW_MTPR address (§4.1, §5, §7 GLOSSARY "IPR"): the Ibox, Mbox,
// Cbox and Ebox/Fbox state PALcode reaches through move-from/to-IPR
// instructions rather than ordinary load/store.
package ipr

// Name enumerates the subset of the ~60-entry real IPR space this core
// implements: the ones PALcode needs to drive exceptions, ASN/VA
// handling and the boot sequence (§8 scenarios). Unmodeled IPRs read as
// zero and discard writes, which is itself how several real reserved
// IPRs behave.
type Name int

const (
	ITB_TAG Name = iota
	ITB_PTE
	ITB_IS
	ITB_ASN
	EXC_ADDR
	EXC_SUM
	EXC_MASK
	IVPTBR
	MCSR
	PAL_BASE
	ICSR
	PCTX
	DTB_TAG
	DTB_PTE
	DTB_ASN
	DTB_IS
	VA
	VA_FORM
	MM_STAT
	M_FIX
	FPCR
	IRQ_MASK
	INTID
)

// Bank holds the IPR values themselves, plain uint64 slots keyed by Name.
// Access is always through Read/Write so side-effecting IPRs (those that
// latch a hardware condition on read, e.g. EXC_SUM) have a single seam to
// add that behavior.
type Bank struct {
	regs map[Name]uint64
}

func NewBank() *Bank {
	return &Bank{regs: make(map[Name]uint64, len(names))}
}

var names = []Name{
	ITB_TAG, ITB_PTE, ITB_IS, ITB_ASN, EXC_ADDR, EXC_SUM, EXC_MASK, IVPTBR,
	MCSR, PAL_BASE, ICSR, PCTX, DTB_TAG, DTB_PTE, DTB_ASN, DTB_IS, VA,
	VA_FORM, MM_STAT, M_FIX, FPCR, IRQ_MASK, INTID,
}

func (b *Bank) Read(n Name) uint64 { return b.regs[n] }

func (b *Bank) Write(n Name, v uint64) {
	if int(n) < 0 || int(n) >= len(names) {
		return
	}
	b.regs[n] = v
}

// FunctionToName maps an HW_MFPR/HW_MTPR instruction's function field (the
// index bits of the Pcd-format word) to the IPR it targets. Real hardware
// uses the full function encoding; this core uses the Name enum's own
// ordinal as the function code, which keeps decode.go's table-driven
// dispatch (§9) uniform with every other instruction format.
func FunctionToName(function uint16) (Name, bool) {
	n := Name(function)
	if int(n) < 0 || int(n) >= len(names) {
		return 0, false
	}
	return n, true
}
