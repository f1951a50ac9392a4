// Package alpha holds the architectural constants and instruction-decode
// table shared by every box: opcode/function encodings, instruction formats,
// exception kinds, and the pipeline classes used by the Ebox/Fbox arbiters.
//
// This generalizes the teacher's map-of-opcodes idiom (cpu/opcodes.go) from
// an 8-bit, single-format ISA to Alpha's 6-bit major opcode plus per-format
// function field, and replaces its function-pointer dispatch with a tagged
// Op enum (§9 "dynamic dispatch by opcode" redesign flag) — the decode table
// below only classifies an instruction; ebox/fbox switch on the resulting Op
// to execute it.
package alpha

// Format is one of the eleven instruction formats named in §3.3.
type Format int

const (
	FormatBra   Format = iota // conditionless branch (BR, BSR)
	FormatCond                // conditional branch (BEQ, BLT, ...)
	FormatFP                  // floating operate
	FormatFPBra               // floating conditional branch (FBEQ, ...)
	FormatMbr                 // memory-format branch (JMP/JSR/RET/JSR_COROUTINE family)
	FormatMem                 // load/store
	FormatMfc                 // memory function code (e.g. FETCH, WH64, ECB)
	FormatOpr                 // integer operate
	FormatPcd                 // PALcode-callable misc
	FormatPAL                 // CALL_PAL
	FormatRes                 // reserved / unimplemented opcode
)

func (f Format) String() string {
	switch f {
	case FormatBra:
		return "Bra"
	case FormatCond:
		return "Cond"
	case FormatFP:
		return "FP"
	case FormatFPBra:
		return "FPBra"
	case FormatMbr:
		return "Mbr"
	case FormatMem:
		return "Mem"
	case FormatMfc:
		return "Mfc"
	case FormatOpr:
		return "Opr"
	case FormatPcd:
		return "Pcd"
	case FormatPAL:
		return "PAL"
	default:
		return "Res"
	}
}

// Queue identifies which issue queue an instruction targets.
type Queue int

const (
	QueueNone Queue = iota
	QueueInt
	QueueFP
)

// PipelineClass is the default sub-cluster/pipe an instruction is slotted
// to by the Ibox (§4.1 "issue queue insertion"); the arbiter may still place
// it elsewhere if allowed (§4.2 "single instruction requesting both...").
type PipelineClass int

const (
	PipeNone PipelineClass = iota
	PipeL0
	PipeL1
	PipeU0
	PipeU1
	PipeFAdd
	PipeFMul
	PipeFOther
)
