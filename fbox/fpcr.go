// Package fbox implements the floating-point execution pipes (§4.1): the
// add pipe, the multiply/divide pipe, and the "other" pipe for compares
// and sign-copy operations. Rounding is performed with math/big.Float
// rather than hardware FPU rounding-mode control, since Go's math package
// always rounds ties-to-even in native float64 arithmetic and exposes no
// portable way to select FPCR-style dynamic rounding modes (documented in
// DESIGN.md as the one stdlib-only corner of the FP pipe).
package fbox

import (
	"math"
	"math/big"
)

// RoundingMode mirrors the FPCR dynamic rounding-mode field (§7 GLOSSARY
// "FPCR").
type RoundingMode int

const (
	RoundNearest RoundingMode = iota
	RoundToZero
	RoundDown
	RoundUp
)

func (m RoundingMode) bigMode() big.RoundingMode {
	switch m {
	case RoundToZero:
		return big.ToZero
	case RoundDown:
		return big.ToNegativeInf
	case RoundUp:
		return big.ToPositiveInf
	default:
		return big.ToNearestEven
	}
}

// FPCR is the floating-point control register: the dynamic rounding mode
// plus the trap-enable and sticky-exception-summary bits the IEEE
// completion path consults (§4.1, §5).
type FPCR struct {
	Mode RoundingMode

	InvalidEnable  bool
	DivZeroEnable  bool
	OverflowEnable bool
	UnderflowEnable bool
	InexactEnable  bool

	InvalidSticky  bool
	DivZeroSticky  bool
	OverflowSticky bool
	UnderflowSticky bool
	InexactSticky  bool
}

// roundBig rounds a *big.Float result to float64 precision under the
// FPCR's current mode, using big.Float's own rounding rather than
// relying on Go's always-nearest-even native conversion.
func (f *FPCR) roundBig(v *big.Float) float64 {
	v.SetMode(f.Mode.bigMode())
	v.SetPrec(53)
	out, _ := v.Float64()
	return out
}

// Add performs an IEEE addition with the FPCR's rounding mode applied via
// big.Float, flagging Inexact/Overflow/Underflow on the sticky bits.
func (f *FPCR) Add(a, b float64) float64 {
	ba, bb := new(big.Float).SetFloat64(a), new(big.Float).SetFloat64(b)
	ba.SetPrec(200)
	sum := new(big.Float).SetPrec(200).Add(ba, bb)
	result := f.roundBig(sum)
	f.flagResult(sum, result)
	return result
}

func (f *FPCR) Sub(a, b float64) float64 { return f.Add(a, -b) }

func (f *FPCR) Mul(a, b float64) float64 {
	ba, bb := new(big.Float).SetFloat64(a), new(big.Float).SetFloat64(b)
	ba.SetPrec(200)
	prod := new(big.Float).SetPrec(200).Mul(ba, bb)
	result := f.roundBig(prod)
	f.flagResult(prod, result)
	return result
}

func (f *FPCR) Div(a, b float64) float64 {
	if b == 0 {
		f.DivZeroSticky = true
		return math.Inf(sign(a))
	}
	ba, bb := new(big.Float).SetFloat64(a), new(big.Float).SetFloat64(b)
	ba.SetPrec(200)
	quot := new(big.Float).SetPrec(200).Quo(ba, bb)
	result := f.roundBig(quot)
	f.flagResult(quot, result)
	return result
}

func sign(v float64) int {
	if math.Signbit(v) {
		return -1
	}
	return 1
}

func (f *FPCR) flagResult(exact *big.Float, rounded float64) {
	if math.IsInf(rounded, 0) && !exact.IsInf() {
		f.OverflowSticky = true
		return
	}
	exactF64, _ := exact.Float64()
	if exactF64 != rounded {
		f.InexactSticky = true
	}
	if rounded == 0 && exactF64 != 0 {
		f.UnderflowSticky = true
	}
}

// IsInvalidOperand reports whether a or b is a signaling NaN, the
// precheck every FP pipe op runs before touching the operands (§8
// scenario: "FP ADDS invalid-operand signaling-NaN case").
func IsInvalidOperand(a, b float64) bool {
	return isSignalingNaN(a) || isSignalingNaN(b)
}

// isSignalingNaN distinguishes a signaling NaN from a quiet one by its
// mantissa's most significant bit (IEEE 754: clear means signaling).
func isSignalingNaN(v float64) bool {
	if !math.IsNaN(v) {
		return false
	}
	bits := math.Float64bits(v)
	const quietBit = uint64(1) << 51
	return bits&quietBit == 0
}
