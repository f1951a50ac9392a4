package ibox

import "axp21264/sysport"

// icacheSets and icacheWays size the Icache as a 2-way set-associative
// array of 512 sets (§4.3): 512*2*64 bytes = 64KB, the real 21264's
// Icache capacity.
const (
	icacheSets = 512
	icacheWays = 2
)

type icacheLine struct {
	valid bool
	tag   uint64
	data  [sysport.BlockSize]byte
}

// Icache is the Ibox's first-level instruction cache. Unlike the Dcache,
// it is read-only from the pipeline's perspective: instructions never
// write through it, they only fill it on a miss (§4.3).
type Icache struct {
	sets [icacheSets][icacheWays]icacheLine
	// lruWay[set] names the way that will be evicted next if both ways
	// are valid: a free-running pointer, advanced on every fill that
	// evicts so repeated misses to one set don't starve the other way.
	lruWay [icacheSets]int
}

func NewIcache() *Icache { return &Icache{} }

func (ic *Icache) index(pa uint64) uint64 {
	return (pa / sysport.BlockSize) % icacheSets
}

func (ic *Icache) tag(pa uint64) uint64 {
	return pa / sysport.BlockSize / icacheSets
}

// Lookup returns the resident block covering pa, if either way hits.
func (ic *Icache) Lookup(pa uint64) ([sysport.BlockSize]byte, bool) {
	set := &ic.sets[ic.index(pa)]
	tag := ic.tag(pa)
	for i := range set {
		if set[i].valid && set[i].tag == tag {
			return set[i].data, true
		}
	}
	return [sysport.BlockSize]byte{}, false
}

// Fill installs data at pa, preferring an invalid way and otherwise
// evicting the least-recently-filled way (round-robin, not true LRU —
// the Icache is never written back, so eviction never costs more than a
// re-fetch).
func (ic *Icache) Fill(pa uint64, data [sysport.BlockSize]byte) {
	idx := ic.index(pa)
	set := &ic.sets[idx]
	tag := ic.tag(pa)

	for i := range set {
		if !set[i].valid {
			set[i] = icacheLine{valid: true, tag: tag, data: data}
			return
		}
	}
	victim := ic.lruWay[idx]
	set[victim] = icacheLine{valid: true, tag: tag, data: data}
	ic.lruWay[idx] = (victim + 1) % icacheWays
}

// Invalidate clears any way covering pa, used when a probe or a store
// targets a physical page this core also executes from (self-modifying
// code, PALcode image reload).
func (ic *Icache) Invalidate(pa uint64) {
	set := &ic.sets[ic.index(pa)]
	tag := ic.tag(pa)
	for i := range set {
		if set[i].valid && set[i].tag == tag {
			set[i].valid = false
		}
	}
}
