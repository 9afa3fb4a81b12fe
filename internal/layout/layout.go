package layout

import (
	"sync"

	"github.com/wippyai/gmp-native/errors"
)

// Field names shared by the handle layouts.
const (
	FieldAlloc   = "alloc"
	FieldSize    = "size"
	FieldLimbs   = "d"
	FieldPrec    = "prec"
	FieldExp     = "exp"
	FieldNum     = "num"
	FieldDen     = "den"
	FieldSeed    = "seed"
	FieldAlg     = "alg"
	FieldAlgData = "algdata"
)

// floatPack keeps the float limb pointer directly after the 4-byte exponent.
const floatPack = 4

// Layout holds every handle layout for one pointer width.
type Layout struct {
	Int       Struct
	Rat       Struct
	Float     Struct
	RandState Struct
	PtrSize   uint64
	LimbSize  uint64
}

// Compute derives all layouts for ptrSize-byte pointers.
func Compute(ptrSize uint64) (Layout, error) {
	if ptrSize != 4 && ptrSize != 8 {
		return Layout{}, errors.New(errors.PhaseLayout, errors.KindInvalidArgument).
			Value(ptrSize).
			Detail("pointer size must be 4 or 8, got %d", ptrSize).
			Build()
	}

	c := NewCalculator(ptrSize)

	mpz := c.Record("__mpz_struct", 0,
		c.Int32(FieldAlloc),
		c.Int32(FieldSize),
		c.Pointer(FieldLimbs),
	)
	mpq := c.Record("__mpq_struct", 0,
		c.Embed(FieldNum, mpz),
		c.Embed(FieldDen, mpz),
	)
	mpf := c.Record("__mpf_struct", floatPack,
		c.Int32(FieldPrec),
		c.Int32(FieldSize),
		c.Int32(FieldExp),
		c.Pointer(FieldLimbs),
	)
	rand := c.Record("__gmp_randstate_struct", 0,
		c.Embed(FieldSeed, mpz),
		c.Int32(FieldAlg),
		c.Pointer(FieldAlgData),
	)

	return Layout{
		Int:       mpz,
		Rat:       mpq,
		Float:     mpf,
		RandState: rand,
		PtrSize:   ptrSize,
		LimbSize:  ptrSize,
	}, nil
}

var (
	layout32 = sync.OnceValue(func() Layout { l, _ := Compute(4); return l })
	layout64 = sync.OnceValue(func() Layout { l, _ := Compute(8); return l })
)

// For returns the cached layout for ptrSize-byte pointers.
func For(ptrSize uint64) (Layout, error) {
	switch ptrSize {
	case 4:
		return layout32(), nil
	case 8:
		return layout64(), nil
	}
	return Compute(ptrSize)
}

// MustFor is For for pointer sizes already validated by the caller.
func MustFor(ptrSize uint64) Layout {
	l, err := For(ptrSize)
	if err != nil {
		panic(err)
	}
	return l
}
