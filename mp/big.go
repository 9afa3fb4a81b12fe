package mp

import (
	"math/big"

	"github.com/wippyai/gmp-native/ctypes"
	"github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/foreign"
	"github.com/wippyai/gmp-native/limbs"
)

// magnitudeLimbs splits |b| into little-endian limbs of w bytes.
func magnitudeLimbs(b *big.Int, w uint64) []uint64 {
	be := b.Bytes()
	lw := int(w)
	out := make([]uint64, (len(be)+lw-1)/lw)
	for i := range be {
		out[i/lw] |= uint64(be[len(be)-1-i]) << (8 * (i % lw))
	}
	return out
}

// limbsToBig assembles little-endian limbs of w bytes into a magnitude.
func limbsToBig(words []uint64, w uint64) *big.Int {
	lw := int(w)
	be := make([]byte, len(words)*lw)
	for i, v := range words {
		for j := 0; j < lw; j++ {
			be[len(be)-1-(i*lw+j)] = byte(v >> (8 * j))
		}
	}
	return new(big.Int).SetBytes(be)
}

func writeLimbs(space *foreign.Space, d foreign.Ptr, words []uint64) error {
	arr := limbs.View(space, d, ctypes.Size(len(words)))
	for i, v := range words {
		if err := arr.Set(i, v); err != nil {
			return err
		}
	}
	return nil
}

// reserve makes room for n limbs, growing the limb array the way the
// library does when a result outgrows it.
func (z *Int) reserve(n int) error {
	alloc, err := z.Alloc()
	if err != nil {
		return err
	}
	if int(alloc) >= n {
		return nil
	}
	want, err := ctypes.Convert[int32](n)
	if err != nil {
		return err
	}
	w := z.env.Space.PtrSize
	d, err := z.LimbPtr()
	if err != nil {
		return err
	}
	var nd foreign.Ptr
	if d == 0 {
		nd, err = z.env.Space.Calloc(uint64(n) * w)
	} else {
		nd, err = z.env.Space.Realloc(d, uint64(alloc)*w, uint64(n)*w)
	}
	if err != nil {
		return err
	}
	if err := z.SetLimbPtr(nd); err != nil {
		return err
	}
	return z.SetAlloc(want)
}

// SetBig stores b in the handle's limbs directly, without a library call.
// The limb array is grown through the space's allocator when needed.
func (z *Int) SetBig(b *big.Int) error {
	if b == nil {
		return errors.NilSource(errors.PhaseMarshal, "big.Int")
	}
	if err := z.ready(); err != nil {
		return err
	}
	words := magnitudeLimbs(b, z.env.Space.PtrSize)
	size, err := ctypes.Convert[ctypes.Size](len(words))
	if err != nil {
		return err
	}
	if err := z.reserve(len(words)); err != nil {
		return err
	}
	d, err := z.LimbPtr()
	if err != nil {
		return err
	}
	if err := writeLimbs(z.env.Space, d, words); err != nil {
		return err
	}
	if b.Sign() < 0 {
		size = -size
	}
	return z.SetSize(size)
}

// Big reads the handle's value from its limbs.
func (z *Int) Big() (*big.Int, error) {
	if err := z.ready(); err != nil {
		return nil, err
	}
	arr, err := z.Limbs()
	if err != nil {
		return nil, err
	}
	words, err := arr.Words()
	if err != nil {
		return nil, err
	}
	v := limbsToBig(words, z.env.Space.PtrSize)
	if arr.Count() < 0 {
		v.Neg(v)
	}
	return v, nil
}

// SetBig stores r's numerator and denominator without a library call.
func (q *Rat) SetBig(r *big.Rat) error {
	if r == nil {
		return errors.NilSource(errors.PhaseMarshal, "big.Rat")
	}
	if err := q.ready(); err != nil {
		return err
	}
	num, _ := q.Num()
	den, _ := q.Den()
	if err := num.SetBig(r.Num()); err != nil {
		return err
	}
	return den.SetBig(r.Denom())
}

// Big reads the value as a big.Rat.
func (q *Rat) Big() (*big.Rat, error) {
	if err := q.ready(); err != nil {
		return nil, err
	}
	num, _ := q.Num()
	den, _ := q.Den()
	n, err := num.Big()
	if err != nil {
		return nil, err
	}
	d, err := den.Big()
	if err != nil {
		return nil, err
	}
	if d.Sign() == 0 {
		return nil, errors.InvalidData(errors.PhaseUnmarshal, []string{"den"}, "zero denominator")
	}
	return new(big.Rat).SetFrac(n, d), nil
}

// Big reads the value as a big.Float holding every stored mantissa bit.
func (f *Float) Big() (*big.Float, error) {
	if err := f.ready(); err != nil {
		return nil, err
	}
	arr, err := f.Limbs()
	if err != nil {
		return nil, err
	}
	words, err := arr.Words()
	if err != nil {
		return nil, err
	}
	exp, err := f.Exp()
	if err != nil {
		return nil, err
	}
	lb := int(8 * f.env.Space.PtrSize)
	out := new(big.Float).SetPrec(uint(max(len(words)*lb, 64)))
	if len(words) == 0 {
		return out, nil
	}
	out.SetInt(limbsToBig(words, f.env.Space.PtrSize))
	out.SetMantExp(out, (int(exp)-len(words))*lb)
	if arr.Count() < 0 {
		out.Neg(out)
	}
	return out, nil
}

// SetBig stores v truncated to the handle's precision plus one limb, the
// most the library keeps, without a library call.
func (f *Float) SetBig(v *big.Float) error {
	if v == nil {
		return errors.NilSource(errors.PhaseMarshal, "big.Float")
	}
	if v.IsInf() {
		return errors.New(errors.PhaseMarshal, errors.KindInvalidArgument).
			Value(v.String()).
			Detail("infinity has no mpf representation").
			Build()
	}
	if err := f.ready(); err != nil {
		return err
	}
	if v.Sign() == 0 {
		if err := f.SetSize(0); err != nil {
			return err
		}
		return f.SetExp(0)
	}

	prec, err := f.Prec()
	if err != nil {
		return err
	}
	capacity := int(prec) + 1
	lb := int(8 * f.env.Space.PtrSize)

	// |v| < 2^e, so the limb exponent is ceil(e / lb).
	e := v.MantExp(nil)
	le := e / lb
	if e%lb != 0 && e > 0 {
		le++
	}
	exp, err := ctypes.Convert[ctypes.Exp](le)
	if err != nil {
		return err
	}

	t := new(big.Float).Abs(v)
	t.SetMantExp(t, lb*(capacity-le))
	m, _ := t.Int(nil)
	words := magnitudeLimbs(m, f.env.Space.PtrSize)
	lo := 0
	for lo < len(words) && words[lo] == 0 {
		lo++
	}
	words = words[lo:]

	d, err := f.LimbPtr()
	if err != nil {
		return err
	}
	if err := writeLimbs(f.env.Space, d, words); err != nil {
		return err
	}
	size := ctypes.Size(len(words))
	if v.Sign() < 0 {
		size = -size
	}
	if err := f.SetSize(size); err != nil {
		return err
	}
	return f.SetExp(exp)
}
