package mbox

import "axp21264/alpha"

// PageSize and PageShift define the Mbox's one supported page granularity
// (§4.3 "the 8KB granularity hint is the only one implemented"); real
// hardware also supports 64KB/512KB/4MB granularity hints, out of scope
// here. Superpage translation is a separate mechanism (below) and is
// implemented regardless of page-granularity scope.
const (
	PageShift = 13
	PageSize  = 1 << PageShift
)

// Superpage enable bits (SPE), set from the MCSR/ICSR IPR fields (§4.3,
// §4.7). When any bit is set, Translate bypasses the DTB entirely for
// virtual addresses the corresponding mode claims, mapping them straight
// to physical addresses the way PALcode uses to run with the MMU
// effectively off outside the mapped kernel region. The exact VA ranges
// each mode claims are not pinned down by anything in scope here; this
// is a reasoned reconstruction (recorded as a decided Open Question)
// rather than a verified hardware trivia.
const (
	SPE0 uint8 = 1 << iota // mode 0: VA<63:41> == 2 maps PA = VA<39:0>
	SPE1                   // mode 1: VA<63:41> == 2 maps PA = VA<43:0>
	SPE2                   // mode 2: any VA maps PA = VA<31:0>
)

// PTE is one data translation buffer entry.
type PTE struct {
	Valid    bool
	ASN      uint8
	VPN      uint64
	PFN      uint64
	Writable bool
	KernelOnly bool
}

// DTB is a small fully-associative translation buffer, generalized from
// the teacher's flat-memory addressing with an actual VA->PA mapping
// layer, since the Mbox is the one place in the core the spec requires
// virtual addresses at all (§4.3, §7 GLOSSARY "DTB").
type DTB struct {
	entries []PTE
	asn     uint8 // current address space number
	spe     uint8 // superpage enable bits, see SPE0/SPE1/SPE2
}

// NewDTB creates a DTB with the given number of entries (the real 21264
// has 128; tests use far fewer).
func NewDTB(numEntries int) *DTB {
	return &DTB{entries: make([]PTE, numEntries)}
}

func (t *DTB) SetASN(asn uint8) { t.asn = asn }

// SetSuperpageEnable sets the live SPE bits (OR of SPE0/SPE1/SPE2); 0
// disables superpage translation entirely.
func (t *DTB) SetSuperpageEnable(bits uint8) { t.spe = bits }

// superpage reports the direct physical mapping for va under the
// current SPE mode, if any is enabled and va falls within that mode's
// claimed range.
func (t *DTB) superpage(va uint64) (pa uint64, ok bool) {
	if t.spe == 0 {
		return 0, false
	}
	if t.spe&SPE2 != 0 {
		return va & 0xFFFFFFFF, true
	}
	if va>>41 != 0x2 {
		return 0, false
	}
	if t.spe&SPE1 != 0 {
		return va & (1<<44 - 1), true
	}
	if t.spe&SPE0 != 0 {
		return va & (1<<40 - 1), true
	}
	return 0, false
}

// Insert installs or replaces a translation, evicting the oldest entry
// (index 0, shifted) if the DTB is full — a direct stand-in for the real
// hardware's not-last-used replacement policy.
func (t *DTB) Insert(pte PTE) {
	for i := range t.entries {
		if !t.entries[i].Valid {
			t.entries[i] = pte
			return
		}
	}
	copy(t.entries, t.entries[1:])
	t.entries[len(t.entries)-1] = pte
}

func (t *DTB) vpn(va uint64) uint64 { return va >> PageShift }

// Lookup finds a resident translation for va under the current ASN.
func (t *DTB) Lookup(va uint64) (PTE, bool) {
	vpn := t.vpn(va)
	for _, e := range t.entries {
		if e.Valid && e.VPN == vpn && e.ASN == t.asn {
			return e, true
		}
	}
	return PTE{}, false
}

// Translate resolves va to a physical address, returning TBMissFault if
// no resident PTE covers it, FaultOnWrite if the access is a write to a
// read-only page, and NoException on success.
func (t *DTB) Translate(va uint64, forWrite bool) (pa uint64, exc alpha.ExceptionKind) {
	if spa, ok := t.superpage(va); ok {
		return spa, alpha.NoException
	}
	pte, ok := t.Lookup(va)
	if !ok {
		return 0, alpha.TBMissFault
	}
	if forWrite && !pte.Writable {
		return 0, alpha.FaultOnWrite
	}
	offset := va & (PageSize - 1)
	return pte.PFN<<PageShift | offset, alpha.NoException
}

func (t *DTB) Invalidate(va uint64) {
	vpn := t.vpn(va)
	for i := range t.entries {
		if t.entries[i].Valid && t.entries[i].VPN == vpn {
			t.entries[i].Valid = false
		}
	}
}

func (t *DTB) InvalidateAll() {
	for i := range t.entries {
		t.entries[i].Valid = false
	}
}
