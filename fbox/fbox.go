package fbox

import (
	"math"

	"axp21264/alpha"
	"axp21264/iq"
)

// Result carries an FP pipe's outcome back to the Ibox, mirroring
// ebox.Result.
type Result struct {
	Value     uint64 // IEEE double bit pattern
	Exception alpha.ExceptionKind
}

// Execute runs one floating-point instruction using fc's current FPCR
// state for rounding and sticky-exception accumulation.
func Execute(fc *FPCR, d *iq.Descriptor) Result {
	op := d.Decoded.Op
	fa := math.Float64frombits(d.SrcFP[0])
	fb := math.Float64frombits(d.SrcFP[1])

	switch op {
	case alpha.OpADDS, alpha.OpADDT:
		if IsInvalidOperand(fa, fb) || (math.IsInf(fa, 0) && math.IsInf(fb, 0) && math.Signbit(fa) != math.Signbit(fb)) {
			if fc.InvalidEnable {
				return Result{Exception: alpha.IllegalOperand}
			}
			fc.InvalidSticky = true
			return Result{Value: math.Float64bits(math.NaN())}
		}
		return Result{Value: math.Float64bits(fc.Add(fa, fb))}

	case alpha.OpSUBS, alpha.OpSUBT:
		if IsInvalidOperand(fa, fb) || (math.IsInf(fa, 0) && math.IsInf(fb, 0) && math.Signbit(fa) == math.Signbit(fb)) {
			if fc.InvalidEnable {
				return Result{Exception: alpha.IllegalOperand}
			}
			fc.InvalidSticky = true
			return Result{Value: math.Float64bits(math.NaN())}
		}
		return Result{Value: math.Float64bits(fc.Sub(fa, fb))}

	case alpha.OpMULS, alpha.OpMULT:
		if IsInvalidOperand(fa, fb) || (fa == 0 && math.IsInf(fb, 0)) || (math.IsInf(fa, 0) && fb == 0) {
			if fc.InvalidEnable {
				return Result{Exception: alpha.IllegalOperand}
			}
			fc.InvalidSticky = true
			return Result{Value: math.Float64bits(math.NaN())}
		}
		return Result{Value: math.Float64bits(fc.Mul(fa, fb))}

	case alpha.OpDIVS, alpha.OpDIVT:
		if IsInvalidOperand(fa, fb) || (math.IsInf(fa, 0) && math.IsInf(fb, 0)) || (fa == 0 && fb == 0) {
			if fc.InvalidEnable {
				return Result{Exception: alpha.IllegalOperand}
			}
			fc.InvalidSticky = true
			return Result{Value: math.Float64bits(math.NaN())}
		}
		if fb == 0 && fc.DivZeroEnable {
			return Result{Exception: alpha.ArithmeticTraps}
		}
		return Result{Value: math.Float64bits(fc.Div(fa, fb))}

	case alpha.OpCMPTEQ:
		return Result{Value: cmpResult(fa == fb)}
	case alpha.OpCMPTLT:
		return Result{Value: cmpResult(fa < fb)}
	case alpha.OpCMPTLE:
		return Result{Value: cmpResult(fa <= fb)}

	case alpha.OpCPYS:
		return Result{Value: copySign(fa, fb, false)}
	case alpha.OpCPYSN:
		return Result{Value: copySign(fa, fb, true)}
	case alpha.OpCPYSE:
		return Result{Value: copySignExp(fa, fb)}

	default:
		return Result{Exception: alpha.AXP_OPCDEC}
	}
}

// cmpResult encodes an Alpha FP compare result: 2.0 for true, 0.0 for
// false (§7 GLOSSARY).
func cmpResult(b bool) uint64 {
	if b {
		return math.Float64bits(2.0)
	}
	return math.Float64bits(0.0)
}

func copySign(fa, fb float64, negate bool) uint64 {
	sign := math.Signbit(fb)
	if negate {
		sign = !sign
	}
	mag := math.Abs(fa)
	if sign {
		mag = -mag
	}
	return math.Float64bits(mag)
}

func copySignExp(fa, fb float64) uint64 {
	abits := math.Float64bits(fa)
	bbits := math.Float64bits(fb)
	const expMask = uint64(0x7FF) << 52
	const signMask = uint64(1) << 63
	result := (abits &^ (expMask | signMask)) | (bbits & (expMask | signMask))
	return result
}
