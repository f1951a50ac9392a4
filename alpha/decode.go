package alpha

import "fmt"

// Op is the tagged operation every decoded instruction carries; ebox/fbox
// switch on it to execute (§9 "dynamic dispatch by opcode"). The set below
// covers the opcodes exercised by the test programs and end-to-end
// scenarios in §8 plus their immediate neighbors in each instruction class;
// it is not the full ~200-entry Alpha ISA (see DESIGN.md).
type Op int

const (
	OpIllegal Op = iota

	// integer arithmetic/logical/shift/multiply (Opr format)
	OpADDL
	OpADDQ
	OpSUBL
	OpSUBQ
	OpCMPEQ
	OpCMPLT
	OpCMPLE
	OpCMPULT
	OpCMPULE
	OpAND
	OpBIS // OR
	OpXOR
	OpORNOT
	OpEQV
	OpBIC // AND NOT
	OpSLL
	OpSRL
	OpSRA
	OpMULL
	OpMULQ
	OpUMULH

	// memory (Mem format)
	OpLDA
	OpLDAH
	OpLDBU
	OpLDQU
	OpLDWU
	OpSTW
	OpSTB
	OpSTQU
	OpLDL
	OpLDQ
	OpLDLL // load-locked
	OpLDQL
	OpSTL
	OpSTQ
	OpSTLC // store-conditional
	OpSTQC
	OpLDF
	OpLDG
	OpLDS
	OpLDT
	OpSTF
	OpSTG
	OpSTS
	OpSTT

	// branches (Bra/Cond/FPBra format)
	OpBR
	OpBSR
	OpBEQ
	OpBNE
	OpBLT
	OpBLE
	OpBGE
	OpBGT
	OpBLBC
	OpBLBS
	OpFBEQ
	OpFBNE
	OpFBLT
	OpFBLE
	OpFBGE
	OpFBGT

	// Mbr format (JMP/JSR/RET/JSR_COROUTINE share opcode 0x1A)
	OpJMP
	OpJSR
	OpRET
	OpJSRCoroutine

	// floating point (FP format)
	OpADDS
	OpADDT
	OpSUBS
	OpSUBT
	OpMULS
	OpMULT
	OpDIVS
	OpDIVT
	OpCMPTEQ
	OpCMPTLT
	OpCMPTLE
	OpCPYS
	OpCPYSN
	OpCPYSE

	// misc / PAL / IPR access
	OpTRAPB
	OpMB
	OpWMB
	OpWH64
	OpECB
	OpFETCH
	OpHWMFPR
	OpHWMTPR
	OpCALLPAL
)

// RegUse classifies which architectural fields of a decoded word are live
// sources or the destination, so the Ibox rename stage (§4.1) knows what to
// look up/allocate without a second opcode switch.
type RegUse struct {
	UsesRa, UsesRb, UsesRc       bool // integer sources/dest
	UsesFa, UsesFb, UsesFc       bool // fp sources/dest
	RaIsDest, RcIsDest, FcIsDest bool
	HasLiteral                   bool // Rb replaced by an 8-bit zero-extended literal
	HasDisplacement              bool // branch/memory displacement present
}

// OpInfo is one row of the decode table: the static information about an
// opcode+function pair needed to slot and, later, execute the instruction.
// This generalizes the teacher's Opcode{AddressingMode,Cycles,Instruction}
// row shape (cpu/opcodes.go) to Alpha's richer format/queue/pipe axes.
type OpInfo struct {
	Op     Op
	Name   string
	Format Format
	Queue  Queue
	Pipe   PipelineClass
	Reg    RegUse
	IsLoad bool
	IsStore bool
}

// key packs a major opcode and (when the format uses one) a function field
// into a single lookup key.
type key struct {
	opcode   uint8
	function uint16
}

// DecodeTable maps (opcode, function) to static instruction information.
// Entries whose format has no function field use function 0.
var DecodeTable = map[key]OpInfo{
	{0x10, 0x00}: {OpADDL, "ADDL", FormatOpr, QueueInt, PipeU0, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x10, 0x20}: {OpADDQ, "ADDQ", FormatOpr, QueueInt, PipeU0, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x10, 0x09}: {OpSUBL, "SUBL", FormatOpr, QueueInt, PipeU0, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x10, 0x29}: {OpSUBQ, "SUBQ", FormatOpr, QueueInt, PipeU0, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x10, 0x2D}: {OpCMPEQ, "CMPEQ", FormatOpr, QueueInt, PipeU0, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x10, 0x4D}: {OpCMPLT, "CMPLT", FormatOpr, QueueInt, PipeU0, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x10, 0x6D}: {OpCMPLE, "CMPLE", FormatOpr, QueueInt, PipeU0, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x10, 0x1D}: {OpCMPULT, "CMPULT", FormatOpr, QueueInt, PipeU0, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x10, 0x3D}: {OpCMPULE, "CMPULE", FormatOpr, QueueInt, PipeU0, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},

	{0x11, 0x00}: {OpAND, "AND", FormatOpr, QueueInt, PipeU1, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x11, 0x20}: {OpBIS, "BIS", FormatOpr, QueueInt, PipeU1, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x11, 0x40}: {OpXOR, "XOR", FormatOpr, QueueInt, PipeU1, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x11, 0x28}: {OpORNOT, "ORNOT", FormatOpr, QueueInt, PipeU1, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x11, 0x48}: {OpEQV, "EQV", FormatOpr, QueueInt, PipeU1, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x11, 0x08}: {OpBIC, "BIC", FormatOpr, QueueInt, PipeU1, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},

	{0x12, 0x39}: {OpSLL, "SLL", FormatOpr, QueueInt, PipeU1, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x12, 0x34}: {OpSRL, "SRL", FormatOpr, QueueInt, PipeU1, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x12, 0x3C}: {OpSRA, "SRA", FormatOpr, QueueInt, PipeU1, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},

	{0x13, 0x00}: {OpMULL, "MULL", FormatOpr, QueueInt, PipeU1, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x13, 0x20}: {OpMULQ, "MULQ", FormatOpr, QueueInt, PipeU1, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},
	{0x13, 0x30}: {OpUMULH, "UMULH", FormatOpr, QueueInt, PipeU1, RegUse{UsesRa: true, UsesRb: true, UsesRc: true, RcIsDest: true, HasLiteral: true}, false, false},

	// LDA/LDAH never touch memory despite the Mem format: they compute
	// Rb+disp (or Rb+disp<<16) directly into Ra, so IsLoad is false and
	// the Ebox executes them like any other address-generation op.
	{0x08, 0}: {OpLDA, "LDA", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true, HasDisplacement: true}, false, false},
	{0x09, 0}: {OpLDAH, "LDAH", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true, HasDisplacement: true}, false, false},
	{0x0A, 0}: {OpLDBU, "LDBU", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true, HasDisplacement: true}, true, false},
	{0x0B, 0}: {OpLDQU, "LDQ_U", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true, HasDisplacement: true}, true, false},
	{0x0C, 0}: {OpLDWU, "LDWU", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true, HasDisplacement: true}, true, false},
	{0x0D, 0}: {OpSTW, "STW", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, HasDisplacement: true}, false, true},
	{0x0E, 0}: {OpSTB, "STB", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, HasDisplacement: true}, false, true},
	{0x0F, 0}: {OpSTQU, "STQ_U", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, HasDisplacement: true}, false, true},
	{0x28, 0}: {OpLDL, "LDL", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true, HasDisplacement: true}, true, false},
	{0x29, 0}: {OpLDQ, "LDQ", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true, HasDisplacement: true}, true, false},
	{0x2A, 0}: {OpLDLL, "LDL_L", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true, HasDisplacement: true}, true, false},
	{0x2B, 0}: {OpLDQL, "LDQ_L", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true, HasDisplacement: true}, true, false},
	{0x2C, 0}: {OpSTL, "STL", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, HasDisplacement: true}, false, true},
	{0x2D, 0}: {OpSTQ, "STQ", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, HasDisplacement: true}, false, true},
	{0x2E, 0}: {OpSTLC, "STL_C", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true, HasDisplacement: true}, false, true},
	{0x2F, 0}: {OpSTQC, "STQ_C", FormatMem, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true, HasDisplacement: true}, false, true},
	{0x20, 0}: {OpLDF, "LDF", FormatMem, QueueFP, PipeL1, RegUse{UsesRb: true, UsesFa: true, FcIsDest: true, HasDisplacement: true}, true, false},
	{0x21, 0}: {OpLDG, "LDG", FormatMem, QueueFP, PipeL1, RegUse{UsesRb: true, UsesFa: true, FcIsDest: true, HasDisplacement: true}, true, false},
	{0x22, 0}: {OpLDS, "LDS", FormatMem, QueueFP, PipeL1, RegUse{UsesRb: true, UsesFa: true, FcIsDest: true, HasDisplacement: true}, true, false},
	{0x23, 0}: {OpLDT, "LDT", FormatMem, QueueFP, PipeL1, RegUse{UsesRb: true, UsesFa: true, FcIsDest: true, HasDisplacement: true}, true, false},
	{0x24, 0}: {OpSTF, "STF", FormatMem, QueueFP, PipeL1, RegUse{UsesRb: true, UsesFa: true, HasDisplacement: true}, false, true},
	{0x25, 0}: {OpSTG, "STG", FormatMem, QueueFP, PipeL1, RegUse{UsesRb: true, UsesFa: true, HasDisplacement: true}, false, true},
	{0x26, 0}: {OpSTS, "STS", FormatMem, QueueFP, PipeL1, RegUse{UsesRb: true, UsesFa: true, HasDisplacement: true}, false, true},
	{0x27, 0}: {OpSTT, "STT", FormatMem, QueueFP, PipeL1, RegUse{UsesRb: true, UsesFa: true, HasDisplacement: true}, false, true},

	{0x30, 0}: {OpBR, "BR", FormatBra, QueueInt, PipeL0, RegUse{UsesRa: true, RaIsDest: true, HasDisplacement: true}, false, false},
	{0x34, 0}: {OpBSR, "BSR", FormatBra, QueueInt, PipeL0, RegUse{UsesRa: true, RaIsDest: true, HasDisplacement: true}, false, false},
	{0x39, 0}: {OpBEQ, "BEQ", FormatCond, QueueInt, PipeL0, RegUse{UsesRa: true, HasDisplacement: true}, false, false},
	{0x3C, 0}: {OpBNE, "BNE", FormatCond, QueueInt, PipeL0, RegUse{UsesRa: true, HasDisplacement: true}, false, false},
	{0x3A, 0}: {OpBLT, "BLT", FormatCond, QueueInt, PipeL0, RegUse{UsesRa: true, HasDisplacement: true}, false, false},
	{0x3B, 0}: {OpBLE, "BLE", FormatCond, QueueInt, PipeL0, RegUse{UsesRa: true, HasDisplacement: true}, false, false},
	{0x3D, 0}: {OpBGE, "BGE", FormatCond, QueueInt, PipeL0, RegUse{UsesRa: true, HasDisplacement: true}, false, false},
	{0x3E, 0}: {OpBGT, "BGT", FormatCond, QueueInt, PipeL0, RegUse{UsesRa: true, HasDisplacement: true}, false, false},
	{0x38, 0}: {OpBLBC, "BLBC", FormatCond, QueueInt, PipeL0, RegUse{UsesRa: true, HasDisplacement: true}, false, false},
	{0x3F, 0}: {OpBLBS, "BLBS", FormatCond, QueueInt, PipeL0, RegUse{UsesRa: true, HasDisplacement: true}, false, false},
	{0x31, 0}: {OpFBEQ, "FBEQ", FormatFPBra, QueueFP, PipeL1, RegUse{UsesFa: true, HasDisplacement: true}, false, false},
	{0x35, 0}: {OpFBNE, "FBNE", FormatFPBra, QueueFP, PipeL1, RegUse{UsesFa: true, HasDisplacement: true}, false, false},
	{0x32, 0}: {OpFBLT, "FBLT", FormatFPBra, QueueFP, PipeL1, RegUse{UsesFa: true, HasDisplacement: true}, false, false},
	{0x33, 0}: {OpFBLE, "FBLE", FormatFPBra, QueueFP, PipeL1, RegUse{UsesFa: true, HasDisplacement: true}, false, false},
	{0x36, 0}: {OpFBGE, "FBGE", FormatFPBra, QueueFP, PipeL1, RegUse{UsesFa: true, HasDisplacement: true}, false, false},
	{0x37, 0}: {OpFBGT, "FBGT", FormatFPBra, QueueFP, PipeL1, RegUse{UsesFa: true, HasDisplacement: true}, false, false},

	{0x1A, 0}: {OpJMP, "JMP", FormatMbr, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true}, false, false},
	{0x1A, 1}: {OpJSR, "JSR", FormatMbr, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true}, false, false},
	{0x1A, 2}: {OpRET, "RET", FormatMbr, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true}, false, false},
	{0x1A, 3}: {OpJSRCoroutine, "JSR_COROUTINE", FormatMbr, QueueInt, PipeL0, RegUse{UsesRb: true, UsesRa: true, RaIsDest: true}, false, false},

	{0x16, 0x080}: {OpADDS, "ADDS", FormatFP, QueueFP, PipeFAdd, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},
	{0x16, 0x0A0}: {OpADDT, "ADDT", FormatFP, QueueFP, PipeFAdd, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},
	{0x16, 0x081}: {OpSUBS, "SUBS", FormatFP, QueueFP, PipeFAdd, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},
	{0x16, 0x0A1}: {OpSUBT, "SUBT", FormatFP, QueueFP, PipeFAdd, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},
	{0x16, 0x082}: {OpMULS, "MULS", FormatFP, QueueFP, PipeFMul, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},
	{0x16, 0x0A2}: {OpMULT, "MULT", FormatFP, QueueFP, PipeFMul, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},
	{0x16, 0x083}: {OpDIVS, "DIVS", FormatFP, QueueFP, PipeFMul, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},
	{0x16, 0x0A3}: {OpDIVT, "DIVT", FormatFP, QueueFP, PipeFMul, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},
	{0x16, 0x0A5}: {OpCMPTEQ, "CMPTEQ", FormatFP, QueueFP, PipeFOther, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},
	{0x16, 0x0A6}: {OpCMPTLT, "CMPTLT", FormatFP, QueueFP, PipeFOther, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},
	{0x16, 0x0A7}: {OpCMPTLE, "CMPTLE", FormatFP, QueueFP, PipeFOther, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},
	{0x17, 0x020}: {OpCPYS, "CPYS", FormatFP, QueueFP, PipeFOther, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},
	{0x17, 0x021}: {OpCPYSN, "CPYSN", FormatFP, QueueFP, PipeFOther, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},
	{0x17, 0x022}: {OpCPYSE, "CPYSE", FormatFP, QueueFP, PipeFOther, RegUse{UsesFa: true, UsesFb: true, FcIsDest: true}, false, false},

	{0x18, 0x0000}: {OpTRAPB, "TRAPB", FormatMfc, QueueInt, PipeL0, RegUse{}, false, false},
	{0x18, 0x4000}: {OpMB, "MB", FormatMfc, QueueInt, PipeL0, RegUse{}, false, false},
	{0x18, 0x4400}: {OpWMB, "WMB", FormatMfc, QueueInt, PipeL0, RegUse{}, false, false},
	{0x18, 0xF800}: {OpWH64, "WH64", FormatMfc, QueueInt, PipeL0, RegUse{UsesRb: true}, false, false},
	{0x18, 0xE800}: {OpECB, "ECB", FormatMfc, QueueInt, PipeL0, RegUse{UsesRb: true}, false, false},
	{0x18, 0x8000}: {OpFETCH, "FETCH", FormatMfc, QueueInt, PipeL0, RegUse{UsesRb: true}, false, false},

	{0x19, 0}: {OpHWMFPR, "HW_MFPR", FormatPcd, QueueInt, PipeNone, RegUse{UsesRa: true, RaIsDest: true}, false, false},
	{0x1D, 0}: {OpHWMTPR, "HW_MTPR", FormatPcd, QueueInt, PipeNone, RegUse{UsesRa: true}, false, false},

	{0x00, 0}: {OpCALLPAL, "CALL_PAL", FormatPAL, QueueInt, PipeL0, RegUse{}, false, false},
}

// Decoded is the static result of decoding one 32-bit instruction word: the
// table row plus the raw fields pulled out of the word. The Ibox combines
// this with renamed operands to build the full in-flight descriptor
// (iq.Descriptor).
type Decoded struct {
	OpInfo
	Raw          uint32
	Ra, Rb, Rc   uint8
	Literal      uint8
	HasLit       bool
	Disp21       int32 // sign-extended 21-bit branch displacement
	Disp16       int32 // sign-extended 16-bit memory displacement
	Function     uint16
	Opcode       uint8
	IprIndex     uint16 // HW_MFPR/HW_MTPR target IPR, decoded separately from Function (§4.7)
}

// Decode classifies a raw 32-bit Alpha instruction word. It never executes
// anything; it is pure, total (every 32-bit pattern decodes, unknown
// patterns become OpIllegal/FormatRes) and side-effect free, matching the
// teacher's fetch/decode split (cpu.fetch looks up the table; cpu.decode
// only resolves addressing, never mutates architectural state).
func Decode(word uint32) Decoded {
	opcode := uint8(word >> 26)
	ra := uint8((word >> 21) & 0x1F)
	rb := uint8((word >> 16) & 0x1F)

	d := Decoded{Raw: word, Opcode: opcode, Ra: ra, Rb: rb}

	switch opcode {
	case 0x10, 0x11, 0x12, 0x13:
		d.Rc = uint8(word & 0x1F)
		if word&(1<<12) != 0 {
			d.HasLit = true
			d.Literal = uint8((word >> 13) & 0xFF)
			d.Function = uint16((word >> 5) & 0x7F)
		} else {
			d.Function = uint16((word >> 5) & 0x7F)
		}
	case 0x16, 0x17:
		d.Rc = uint8(word & 0x1F)
		d.Function = uint16((word >> 5) & 0x7FF)
	case 0x18:
		d.Function = uint16(word & 0xFFFF)
	case 0x1A:
		d.Rc = uint8(word & 0x1F)
		d.Function = uint16((word >> 14) & 0x3)
	case 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
		0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27,
		0x28, 0x29, 0x2A, 0x2B, 0x2C, 0x2D, 0x2E, 0x2F:
		d.Disp16 = int32(int16(word & 0xFFFF))
	case 0x30, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37,
		0x38, 0x39, 0x3A, 0x3B, 0x3C, 0x3D, 0x3E, 0x3F:
		raw := word & 0x1FFFFF
		if raw&0x100000 != 0 {
			d.Disp21 = int32(raw | 0xFFE00000)
		} else {
			d.Disp21 = int32(raw)
		}
	case 0x00:
		d.Function = uint16(word & 0x3FFFFFF)
	case 0x19, 0x1D:
		// HW_MFPR/HW_MTPR key the decode table on function 0 (both are
		// single-row opcodes); the IPR they target is a separate index
		// field in the low bits, pulled out here so ebox can dispatch it
		// without disturbing the table lookup above.
		d.IprIndex = uint16(word & 0xFFFF)
	}

	k := key{opcode: opcode, function: d.Function}
	info, ok := DecodeTable[k]
	if !ok {
		switch opcode {
		case 0x10, 0x11, 0x12, 0x13, 0x16, 0x17, 0x18, 0x1A:
			// function-keyed formats: an unlisted function stays illegal
		default:
			// formats with no function field key entries on function 0
			info, ok = DecodeTable[key{opcode: opcode}]
		}
	}
	if !ok {
		info = OpInfo{Op: OpIllegal, Name: "???", Format: FormatRes}
	}
	d.OpInfo = info
	return d
}

func (d Decoded) String() string {
	return fmt.Sprintf("%s (op=%#x fn=%#x ra=%d rb=%d rc=%d)", d.Name, d.Opcode, d.Function, d.Ra, d.Rb, d.Rc)
}
