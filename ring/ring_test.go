package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type entry struct {
	id    int
	valid bool
}

func (e entry) Valid() bool { return e.valid }

func TestAllocAndFull(t *testing.T) {
	r := New[entry](2)
	assert.False(t, r.Full())
	r.Alloc(entry{id: 1, valid: true})
	r.Alloc(entry{id: 2, valid: true})
	assert.True(t, r.Full())
	assert.Panics(t, func() { r.Alloc(entry{id: 3, valid: true}) })
}

func TestAdvanceOnlyPastInvalid(t *testing.T) {
	r := New[entry](4)
	r.Alloc(entry{id: 1, valid: false})
	r.Alloc(entry{id: 2, valid: true})
	r.Alloc(entry{id: 3, valid: false})

	r.Advance()
	head, ok := r.Head()
	assert.True(t, ok)
	assert.Equal(t, 2, r.At(head).id)

	// the head entry is still valid, so nothing advances
	r.Advance()
	head, _ = r.Head()
	assert.Equal(t, 2, r.At(head).id)
}

func TestWraparoundSearch(t *testing.T) {
	r := New[entry](3)
	a := r.Alloc(entry{id: 1, valid: true})
	r.Alloc(entry{id: 2, valid: true})
	r.Set(a, entry{id: 1, valid: false})
	r.Advance() // drops id 1, head now at id 2

	r.Alloc(entry{id: 3, valid: true}) // fills slot 2
	r.Alloc(entry{id: 4, valid: true}) // wraps into slot 0

	var seen []int
	r.Each(func(_ int, v entry) bool {
		seen = append(seen, v.id)
		return true
	})
	assert.Equal(t, []int{2, 3, 4}, seen)

	idx := r.Find(func(v entry) bool { return v.id == 4 })
	assert.NotEqual(t, -1, idx)
	assert.Equal(t, 4, r.At(idx).id)
}

func TestDropWhere(t *testing.T) {
	r := New[entry](4)
	r.Alloc(entry{id: 1, valid: true})
	r.Alloc(entry{id: 2, valid: true})
	r.Alloc(entry{id: 3, valid: true})

	r.DropWhere(func(v entry) bool { return v.id >= 2 })

	assert.Equal(t, 1, r.Len())
	head, _ := r.Head()
	assert.Equal(t, 1, r.At(head).id)
}
