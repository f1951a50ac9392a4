// Package ibox implements instruction fetch, the tournament branch
// predictor and return-address stack, decode/rename dispatch, issue,
// in-order retirement and exception/PAL dispatch (§4.2, §4.5).
package ibox

// saturating2Bit is a 2-bit saturating counter used by both predictor
// components (§4.2 "local and global history each train a 2-bit
// saturating counter; the choice predictor is itself a third 2-bit
// counter selecting which history wins").
type saturating2Bit uint8

const (
	strongNotTaken saturating2Bit = iota
	weakNotTaken
	weakTaken
	strongTaken
)

func (c saturating2Bit) taken() bool { return c >= weakTaken }

func (c saturating2Bit) update(taken bool) saturating2Bit {
	if taken {
		if c < strongTaken {
			c++
		}
	} else {
		if c > strongNotTaken {
			c--
		}
	}
	return c
}

// Predictor is a tournament branch predictor: a local history table
// indexed by PC, a global history table indexed by the global history
// shift register, and a choice table that learns which of the two has
// been more accurate for a given PC (§4.2).
type Predictor struct {
	localHistory []uint16 // per-PC local history register
	localTable   []saturating2Bit
	globalTable  []saturating2Bit
	choiceTable  []saturating2Bit
	globalHist   uint16

	localBits  uint
	globalBits uint
}

// NewPredictor builds a predictor with 2^localBits local-history entries
// and 2^globalBits global/choice-history entries.
func NewPredictor(localBits, globalBits uint) *Predictor {
	return &Predictor{
		localHistory: make([]uint16, 1<<localBits),
		localTable:   make([]saturating2Bit, 1<<localBits),
		globalTable:  make([]saturating2Bit, 1<<globalBits),
		choiceTable:  make([]saturating2Bit, 1<<globalBits),
		localBits:    localBits,
		globalBits:   globalBits,
	}
}

func (p *Predictor) localIndex(pc uint64) uint64 {
	return (pc >> 2) & (uint64(len(p.localTable)) - 1)
}

func (p *Predictor) globalIndex() uint64 {
	return uint64(p.globalHist) & (uint64(len(p.globalTable)) - 1)
}

// Predict returns the taken/not-taken prediction for a branch at pc.
func (p *Predictor) Predict(pc uint64) bool {
	li := p.localIndex(pc)
	localPred := p.localTable[li].taken()
	gi := p.globalIndex()
	globalPred := p.globalTable[gi].taken()
	if p.choiceTable[gi].taken() {
		return globalPred
	}
	return localPred
}

// Update trains the predictor with the actual outcome of a resolved
// branch at pc.
func (p *Predictor) Update(pc uint64, taken bool) {
	li := p.localIndex(pc)
	gi := p.globalIndex()

	localPred := p.localTable[li].taken()
	globalPred := p.globalTable[gi].taken()

	if localPred != globalPred {
		if localPred == taken {
			p.choiceTable[gi] = p.choiceTable[gi].update(false)
		} else {
			p.choiceTable[gi] = p.choiceTable[gi].update(true)
		}
	}

	p.localTable[li] = p.localTable[li].update(taken)
	p.globalTable[gi] = p.globalTable[gi].update(taken)

	p.localHistory[li] = p.localHistory[li]<<1 | boolBit(taken)
	p.globalHist = p.globalHist<<1 | uint16(boolBit(taken))
}

func boolBit(b bool) uint16 {
	if b {
		return 1
	}
	return 0
}

// RAS is the return-address stack used to predict JSR/RET targets
// (§4.2: "a JSR pushes the fall-through PC; RET pops it as its
// prediction, corrected by the Ebox on resolution like any other
// branch").
type RAS struct {
	stack []uint64
	depth int
}

func NewRAS(capacity int) *RAS {
	return &RAS{stack: make([]uint64, capacity)}
}

func (r *RAS) Push(pc uint64) {
	if r.depth == len(r.stack) {
		copy(r.stack, r.stack[1:])
		r.depth--
	}
	r.stack[r.depth] = pc
	r.depth++
}

func (r *RAS) Pop() (uint64, bool) {
	if r.depth == 0 {
		return 0, false
	}
	r.depth--
	return r.stack[r.depth], true
}
