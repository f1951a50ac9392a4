// Package mbox implements the Mbox: the data translation buffer (DTB),
// the first-level data cache (Dcache), and the load/store queue draining
// logic that turns iq.LQ/iq.SQ entries into Dcache hits, Cbox fill
// requests, and store-to-load forwards (§4.3).
package mbox

import "axp21264/sysport"

// dline is one Dcache line. It carries a valid bit instead of
// cbox.CacheState's vocabulary: the Dcache is always write-through to the Bcache in this
// design (§4.3: "the Dcache never originates a write-back; dirty data
// only ever leaves through the Bcache/VDB path"), so only Valid/Invalid
// matters here.
type dline struct {
	tag   uint64
	valid bool
	data  [sysport.BlockSize]byte
}

// Dcache is a direct-mapped, write-through first-level data cache.
type Dcache struct {
	lines []dline
}

func NewDcache(numLines int) *Dcache {
	return &Dcache{lines: make([]dline, numLines)}
}

func (d *Dcache) index(pa uint64) uint64 {
	return (pa / sysport.BlockSize) & (uint64(len(d.lines)) - 1)
}

func (d *Dcache) tag(pa uint64) uint64 {
	return pa / sysport.BlockSize / uint64(len(d.lines))
}

func (d *Dcache) Valid(pa uint64) bool {
	l := &d.lines[d.index(pa)]
	return l.valid && l.tag == d.tag(pa)
}

func (d *Dcache) Read(pa uint64) [sysport.BlockSize]byte {
	return d.lines[d.index(pa)].data
}

func (d *Dcache) Fill(pa uint64, data [sysport.BlockSize]byte) {
	l := &d.lines[d.index(pa)]
	l.tag = d.tag(pa)
	l.valid = true
	l.data = data
}

// WriteThrough updates the byte range [offset, offset+size) of pa's
// resident block, if present, so a subsequent load from the same block
// sees the store without needing a re-fill.
func (d *Dcache) WriteThrough(pa uint64, offset int, size int, value uint64) {
	if !d.Valid(pa) {
		return
	}
	l := &d.lines[d.index(pa)]
	for i := 0; i < size; i++ {
		l.data[offset+i] = byte(value >> (8 * i))
	}
}

// OldPA reports the address currently occupying pa's index slot, so a
// caller about to Fill that slot can invalidate the duplicate tag store
// entry for whatever line is being evicted (§4.4), the same role
// Bcache.Evict plays for the Bcache/CTag pair. ok is false for an
// invalid line.
func (d *Dcache) OldPA(pa uint64) (oldPA uint64, ok bool) {
	l := &d.lines[d.index(pa)]
	if !l.valid {
		return 0, false
	}
	return l.tag*uint64(len(d.lines))*sysport.BlockSize + d.index(pa)*sysport.BlockSize, true
}

func (d *Dcache) Invalidate(pa uint64) {
	l := &d.lines[d.index(pa)]
	if l.tag == d.tag(pa) {
		l.valid = false
	}
}

// ReadAt extracts a size-byte little-endian value at byte offset within
// a resident block.
func (d *Dcache) ReadAt(pa uint64, offset int, size int) uint64 {
	block := d.Read(pa)
	var v uint64
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | uint64(block[offset+i])
	}
	return v
}
