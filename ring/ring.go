// Package ring implements the head/tail-cursor ring buffer shape shared by
// every in-flight and Cbox queue in the machine (IQ, FQ, LQ, SQ, MAF, VDB,
// IOWB, PQ). The head is always the oldest live entry; a search sweeps
// head-to-tail and must tolerate wraparound; freeing the head only advances
// it past entries already marked invalid by the caller (see Advance).
package ring

// An Entry is anything a Ring can hold. Valid reports whether the slot
// currently holds a live request; the ring never interprets the payload
// itself, only this one bit, so callers are free to give Valid whatever
// meaning fits their queue (MAF entries are valid until completed and
// drained, LQ/SQ entries until retired, and so on).
type Entry interface {
	Valid() bool
}

// Ring is a fixed-capacity circular queue of T, indexed by a head (top) and
// tail (bottom) cursor. It never reallocates; capacity is fixed at
// construction to match the architectural queue sizes (IQ=20, FQ=15, LQ=32,
// SQ=32, MAF=8, VDB=8, IOWB=4, PQ=8).
type Ring[T Entry] struct {
	slots []T
	head  int // oldest
	tail  int // next free slot to allocate into
	count int
}

// New creates a Ring with the given capacity, whose slots are zero-valued T.
func New[T Entry](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Ring[T]{slots: make([]T, capacity)}
}

// Cap returns the ring's fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.slots) }

// Len returns the number of entries currently allocated (valid or not;
// entries only leave the count on Advance/Reset).
func (r *Ring[T]) Len() int { return r.count }

// Full reports whether the ring has no free slot to Alloc into. Per §4.3/
// §4.4, a full queue stalls its producer (dispatch, MAF insertion, ...).
func (r *Ring[T]) Full() bool { return r.count == len(r.slots) }

// Alloc reserves the next slot in program/arrival order, stores v in it, and
// returns the slot's absolute index, which the caller keeps as a stable
// handle (LQ/SQ index, MAF index, ...). It panics if the ring is Full;
// callers must check Full first, matching GetLQSlot/GetSQSlot returning the
// queue length as the "stall" sentinel (handled one level up, in mbox).
func (r *Ring[T]) Alloc(v T) int {
	if r.Full() {
		panic("ring: Alloc on full ring")
	}
	idx := r.tail
	r.slots[idx] = v
	r.tail = (r.tail + 1) % len(r.slots)
	r.count++
	return idx
}

// At returns the entry at absolute index idx.
func (r *Ring[T]) At(idx int) T { return r.slots[idx] }

// Set overwrites the entry at absolute index idx.
func (r *Ring[T]) Set(idx int, v T) { r.slots[idx] = v }

// Head returns the oldest entry's absolute index and whether the ring is
// non-empty.
func (r *Ring[T]) Head() (int, bool) {
	if r.count == 0 {
		return 0, false
	}
	return r.head, true
}

// Advance drops entries from the head while they report !Valid(), per §9:
// "head/tail indices should advance only when the head is known invalid".
// It never skips past a still-valid entry.
func (r *Ring[T]) Advance() {
	for r.count > 0 && !r.slots[r.head].Valid() {
		r.head = (r.head + 1) % len(r.slots)
		r.count--
	}
}

// Each calls fn for every allocated slot, oldest first, tolerating
// wraparound. Stops early if fn returns false.
func (r *Ring[T]) Each(fn func(idx int, v T) bool) {
	i := r.head
	for n := 0; n < r.count; n++ {
		if !fn(i, r.slots[i]) {
			return
		}
		i = (i + 1) % len(r.slots)
	}
}

// Find returns the absolute index of the first entry (oldest first) for
// which pred returns true, or -1 if none match. Per §9, a search never looks
// past the tail and never skips a valid entry.
func (r *Ring[T]) Find(pred func(v T) bool) int {
	found := -1
	r.Each(func(idx int, v T) bool {
		if pred(v) {
			found = idx
			return false
		}
		return true
	})
	return found
}

// Reset empties the ring without inspecting Valid.
func (r *Ring[T]) Reset() {
	r.head, r.tail, r.count = 0, 0, 0
}

// DropWhere removes every allocated entry for which pred returns true,
// regardless of position, compacting the remaining entries in their
// original relative order.
func (r *Ring[T]) DropWhere(pred func(v T) bool) {
	kept := make([]T, 0, r.count)
	r.Each(func(_ int, v T) bool {
		if !pred(v) {
			kept = append(kept, v)
		}
		return true
	})
	r.Reset()
	for _, v := range kept {
		r.Alloc(v)
	}
}
