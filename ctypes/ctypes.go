// Package ctypes provides the library's sized scalar types and checked
// conversions between them.
//
// Native widths:
//
//	Type      C type        Width
//	─────────────────────────────────
//	Size      mp_size_t     4
//	Exp       mp_exp_t      4
//	BitCount  mp_bitcnt_t   pointer width
//	Limb      mp_limb_t     pointer width
//	SizeT     size_t        pointer width
//
// Pointer-width types are carried as 64-bit Go values and checked against
// the target width when they cross into foreign memory.
package ctypes

import (
	"math"

	"github.com/wippyai/gmp-native/errors"
)

// Size is a signed limb count (mp_size_t).
type Size int32

// Exp is a float exponent in limbs (mp_exp_t).
type Exp int32

// BitCount is a count of bits (mp_bitcnt_t).
type BitCount uint64

// Limb is one machine word of a magnitude (mp_limb_t).
type Limb uint64

// SizeT is a byte count (size_t).
type SizeT uint64

// Integer is the set of Go integer types conversions accept.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Convert converts v to T, failing with KindOverflow when v does not fit.
func Convert[T, F Integer](v F) (T, error) {
	t := T(v)
	if F(t) != v || (t < 0) != (v < 0) {
		return 0, errors.Overflow(errors.PhaseConvert, nil, v, typeName[T]())
	}
	return t, nil
}

// MustConvert is Convert for values known to fit; it panics otherwise.
func MustConvert[T, F Integer](v F) T {
	t, err := Convert[T](v)
	if err != nil {
		panic(err)
	}
	return t
}

func typeName[T Integer]() string {
	var z T
	switch any(z).(type) {
	case Size:
		return "mp_size_t"
	case Exp:
		return "mp_exp_t"
	case BitCount:
		return "mp_bitcnt_t"
	case Limb:
		return "mp_limb_t"
	case SizeT:
		return "size_t"
	case int8:
		return "int8"
	case int16:
		return "int16"
	case int32:
		return "int32"
	case int64:
		return "int64"
	case uint8:
		return "uint8"
	case uint16:
		return "uint16"
	case uint32:
		return "uint32"
	case uint64:
		return "uint64"
	case int:
		return "int"
	case uint:
		return "uint"
	}
	return "integer"
}

// FitsWidth reports whether v fits an unsigned native word of ptrSize bytes.
func FitsWidth(v uint64, ptrSize uint64) bool {
	return ptrSize >= 8 || v <= math.MaxUint32
}

// CheckWidth returns KindOverflow when v does not fit a ptrSize-byte word.
func CheckWidth[T ~uint64](v T, ptrSize uint64) error {
	if FitsWidth(uint64(v), ptrSize) {
		return nil
	}
	return errors.Overflow(errors.PhaseConvert, nil, uint64(v), typeName[T]())
}

// Abs returns the magnitude of a signed limb count.
func (s Size) Abs() int {
	if s < 0 {
		return -int(s)
	}
	return int(s)
}

// Sign returns -1, 0 or +1.
func (s Size) Sign() int {
	switch {
	case s < 0:
		return -1
	case s > 0:
		return 1
	}
	return 0
}

// LimbsForBits returns the number of limbs of limbSize bytes needed to hold
// bits bits.
func LimbsForBits(bits BitCount, limbSize uint64) (Size, error) {
	lb := BitCount(limbSize * 8)
	n := uint64(bits/lb) + boolToU64(bits%lb != 0)
	return Convert[Size](n)
}

// FloatPrecLimbs returns the value the library stores in a float's prec
// field for a requested precision in bits: one limb more than the
// precision needs, and at least two limbs.
func FloatPrecLimbs(bits BitCount, limbSize uint64) (Size, error) {
	n, err := LimbsForBits(max(bits, 53), limbSize)
	if err != nil {
		return 0, err
	}
	if n == math.MaxInt32 {
		return 0, errors.Overflow(errors.PhaseConvert, nil, bits, "mp_size_t")
	}
	return n + 1, nil
}

// FloatPrecBits returns the usable precision in bits of a float whose prec
// field holds precLimbs.
func FloatPrecBits(precLimbs Size, limbSize uint64) BitCount {
	if precLimbs <= 1 {
		return 0
	}
	return BitCount(int64(precLimbs-1)) * BitCount(limbSize*8)
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
