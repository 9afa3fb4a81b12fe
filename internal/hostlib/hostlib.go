// Package hostlib implements the part of the library ABI this module calls
// in Go, over math/big, reading and writing handles through their foreign
// layouts exactly as the native library would.
//
// It lets every handle and variadic path run against the Go arena at
// either pointer width without a native build. Integer text uses bases 2
// to 36; float text uses base 10.
package hostlib

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/gmp-native/ctypes"
	"github.com/wippyai/gmp-native/foreign"
	"github.com/wippyai/gmp-native/internal/layout"
	"github.com/wippyai/gmp-native/mp"
	"github.com/wippyai/gmp-native/native"
)

// defaultFloatBits is the precision mpf_init gives a float.
const defaultFloatBits = 64

// Lib is a Go implementation of the library bound to one space.
type Lib struct {
	env   *mp.Env
	funcs native.Funcs
}

// New returns a library over space and an Env bound to it.
func New(space *foreign.Space) (*Lib, error) {
	env, err := mp.NewEnv(space, nil)
	if err != nil {
		return nil, err
	}
	l := &Lib{env: env}
	l.funcs = native.Funcs{
		"__gmpz_init":            l.intInit,
		"__gmpz_init2":           l.intInit2,
		"__gmpz_clear":           l.intClear,
		"__gmpz_set_str":         l.intSetStr,
		"__gmpz_init_set_str":    l.intInitSetStr,
		"__gmpz_get_str":         l.intGetStr,
		"__gmpz_sizeinbase":      l.intSizeInBase,
		"__gmpz_urandomb":        l.intURandomB,
		"__gmpq_init":            l.ratInit,
		"__gmpq_clear":           l.ratClear,
		"__gmpq_set_str":         l.ratSetStr,
		"__gmpq_get_str":         l.ratGetStr,
		"__gmpq_canonicalize":    l.ratCanonicalize,
		"__gmpf_init":            l.floatInit,
		"__gmpf_init2":           l.floatInit2,
		"__gmpf_clear":           l.floatClear,
		"__gmpf_set_prec":        l.floatSetPrec,
		"__gmpf_set_str":         l.floatSetStr,
		"__gmpf_get_str":         l.floatGetStr,
		"__gmp_randinit_default": l.randInitDefault,
		"__gmp_randclear":        l.randClear,
		"__gmp_randseed":         l.randSeed,
		"__gmp_randseed_ui":      l.randSeedUI,
		"__gmp_snprintf":         l.snprintf,
		"__gmp_sscanf":           l.sscanf,
	}
	env.Lib = l.funcs
	return l, nil
}

// NewArena returns a library over a fresh arena of the given pointer width.
func NewArena(ptrSize uint64) (*Lib, *foreign.Arena, error) {
	space, arena, err := foreign.NewArenaSpace(ptrSize)
	if err != nil {
		return nil, nil, err
	}
	l, err := New(space)
	if err != nil {
		return nil, nil, err
	}
	return l, arena, nil
}

// Env returns the handle environment bound to this library.
func (l *Lib) Env() *mp.Env { return l.env }

// Funcs returns the symbol table.
func (l *Lib) Funcs() native.Funcs { return l.funcs }

func (l *Lib) space() *foreign.Space { return l.env.Space }

func ptr(v uint64) foreign.Ptr { return foreign.Ptr(v) }

func ret(v int32) []uint64 { return []uint64{api.EncodeI32(v)} }

func argc(args []uint64, n int) error {
	if len(args) != n {
		return fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	return nil
}

// allocLimbs gives an integer struct at p a zeroed array of n limbs.
func (l *Lib) allocLimbs(z *mp.Int, n int) error {
	d, err := l.space().Calloc(uint64(n) * l.space().PtrSize)
	if err != nil {
		return err
	}
	if err := z.SetLimbPtr(d); err != nil {
		return err
	}
	if err := z.SetAlloc(int32(n)); err != nil {
		return err
	}
	return z.SetSize(0)
}

func (l *Lib) freeLimbs(z *mp.Int) error {
	d, err := z.LimbPtr()
	if err != nil {
		return err
	}
	l.space().Release(&d)
	if err := z.SetLimbPtr(0); err != nil {
		return err
	}
	return z.SetAlloc(0)
}

// writeText stores s as a C string at buf, allocating when buf is null.
func (l *Lib) writeText(buf foreign.Ptr, s string) ([]uint64, error) {
	if buf == 0 {
		p, err := l.space().CString(s)
		if err != nil {
			return nil, err
		}
		return []uint64{uint64(p)}, nil
	}
	if err := l.space().WriteCString(buf, s); err != nil {
		return nil, err
	}
	return []uint64{uint64(buf)}, nil
}

func (l *Lib) readText(p foreign.Ptr) (string, error) {
	return l.space().ReadCString(p)
}

// parseInt reads an integer the way mpz_set_str does: optional sign,
// base 0 selects 0x/0b/0 prefixes, white space is ignored.
func parseInt(text string, base int) (*big.Int, bool) {
	s := strings.Join(strings.Fields(text), "")
	if base != 0 && (base < 2 || base > 36) {
		return nil, false
	}
	if strings.Contains(s, "_") {
		return nil, false
	}
	v, ok := new(big.Int).SetString(s, base)
	return v, ok
}

// formatInt formats v as mpz_get_str does. Negative bases use upper case.
func formatInt(v *big.Int, base int) (string, bool) {
	upper := base < 0
	if upper {
		base = -base
	}
	if base < 2 || base > 36 {
		return "", false
	}
	s := v.Text(base)
	if upper {
		s = strings.ToUpper(s)
	}
	return s, true
}

// --- mpz ---

func (l *Lib) intInit(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 1); err != nil {
		return nil, err
	}
	return nil, l.allocLimbs(mp.IntAt(l.env, ptr(args[0])), 1)
}

func (l *Lib) intInit2(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 2); err != nil {
		return nil, err
	}
	n, err := ctypes.LimbsForBits(ctypes.BitCount(args[1]), l.space().PtrSize)
	if err != nil {
		return nil, err
	}
	return nil, l.allocLimbs(mp.IntAt(l.env, ptr(args[0])), max(int(n), 1))
}

func (l *Lib) intClear(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 1); err != nil {
		return nil, err
	}
	return nil, l.freeLimbs(mp.IntAt(l.env, ptr(args[0])))
}

func (l *Lib) intSetStr(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 3); err != nil {
		return nil, err
	}
	text, err := l.readText(ptr(args[1]))
	if err != nil {
		return nil, err
	}
	v, ok := parseInt(text, int(api.DecodeI32(args[2])))
	if !ok {
		return ret(-1), nil
	}
	if err := mp.IntAt(l.env, ptr(args[0])).SetBig(v); err != nil {
		return nil, err
	}
	return ret(0), nil
}

func (l *Lib) intInitSetStr(ctx context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 3); err != nil {
		return nil, err
	}
	if _, err := l.intInit(ctx, args[0]); err != nil {
		return nil, err
	}
	return l.intSetStr(ctx, args...)
}

func (l *Lib) intGetStr(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 3); err != nil {
		return nil, err
	}
	v, err := mp.IntAt(l.env, ptr(args[2])).Big()
	if err != nil {
		return nil, err
	}
	s, ok := formatInt(v, int(api.DecodeI32(args[1])))
	if !ok {
		return []uint64{0}, nil
	}
	return l.writeText(ptr(args[0]), s)
}

func (l *Lib) intSizeInBase(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 2); err != nil {
		return nil, err
	}
	v, err := mp.IntAt(l.env, ptr(args[0])).Big()
	if err != nil {
		return nil, err
	}
	base := int(api.DecodeI32(args[1]))
	if base < 2 || base > 36 {
		// Binary digits bound every larger base.
		return []uint64{uint64(max(v.BitLen(), 1))}, nil
	}
	return []uint64{uint64(len(new(big.Int).Abs(v).Text(base)))}, nil
}

func (l *Lib) intURandomB(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 3); err != nil {
		return nil, err
	}
	seed, err := l.seedOf(ptr(args[1]))
	if err != nil {
		return nil, err
	}
	v, err := nextRandom(seed, uint(args[2]))
	if err != nil {
		return nil, err
	}
	return nil, mp.IntAt(l.env, ptr(args[0])).SetBig(v)
}

// --- mpq ---

func (l *Lib) ratParts(p foreign.Ptr) (*mp.Int, *mp.Int, error) {
	q := mp.RatAt(l.env, p)
	num, err := q.Num()
	if err != nil {
		return nil, nil, err
	}
	den, err := q.Den()
	if err != nil {
		return nil, nil, err
	}
	return num, den, nil
}

func (l *Lib) ratInit(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 1); err != nil {
		return nil, err
	}
	num, den, err := l.ratParts(ptr(args[0]))
	if err != nil {
		return nil, err
	}
	if err := l.allocLimbs(num, 1); err != nil {
		return nil, err
	}
	if err := l.allocLimbs(den, 1); err != nil {
		return nil, err
	}
	return nil, den.SetBig(big.NewInt(1))
}

func (l *Lib) ratClear(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 1); err != nil {
		return nil, err
	}
	num, den, err := l.ratParts(ptr(args[0]))
	if err != nil {
		return nil, err
	}
	if err := l.freeLimbs(num); err != nil {
		return nil, err
	}
	return nil, l.freeLimbs(den)
}

func (l *Lib) ratSetStr(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 3); err != nil {
		return nil, err
	}
	text, err := l.readText(ptr(args[1]))
	if err != nil {
		return nil, err
	}
	base := int(api.DecodeI32(args[2]))
	numText, denText, hasDen := strings.Cut(text, "/")
	n, ok := parseInt(numText, base)
	if !ok {
		return ret(-1), nil
	}
	d := big.NewInt(1)
	if hasDen {
		if d, ok = parseInt(denText, base); !ok {
			return ret(-1), nil
		}
	}
	num, den, err := l.ratParts(ptr(args[0]))
	if err != nil {
		return nil, err
	}
	if err := num.SetBig(n); err != nil {
		return nil, err
	}
	if err := den.SetBig(d); err != nil {
		return nil, err
	}
	return ret(0), nil
}

func (l *Lib) ratCanonicalize(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 1); err != nil {
		return nil, err
	}
	num, den, err := l.ratParts(ptr(args[0]))
	if err != nil {
		return nil, err
	}
	n, err := num.Big()
	if err != nil {
		return nil, err
	}
	d, err := den.Big()
	if err != nil {
		return nil, err
	}
	if d.Sign() == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	r := new(big.Rat).SetFrac(n, d)
	return nil, mp.RatAt(l.env, ptr(args[0])).SetBig(r)
}

func (l *Lib) ratGetStr(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 3); err != nil {
		return nil, err
	}
	num, den, err := l.ratParts(ptr(args[2]))
	if err != nil {
		return nil, err
	}
	n, err := num.Big()
	if err != nil {
		return nil, err
	}
	d, err := den.Big()
	if err != nil {
		return nil, err
	}
	base := int(api.DecodeI32(args[1]))
	s, ok := formatInt(n, base)
	if !ok {
		return []uint64{0}, nil
	}
	if d.Cmp(big.NewInt(1)) != 0 {
		ds, _ := formatInt(d, base)
		s += "/" + ds
	}
	return l.writeText(ptr(args[0]), s)
}

// --- mpf ---

func (l *Lib) floatInitPrec(p foreign.Ptr, bits ctypes.BitCount) error {
	f := mp.FloatAt(l.env, p)
	prec, err := ctypes.FloatPrecLimbs(bits, l.space().PtrSize)
	if err != nil {
		return err
	}
	d, err := l.space().Calloc(uint64(prec+1) * l.space().PtrSize)
	if err != nil {
		return err
	}
	for _, step := range []func() error{
		func() error { return f.SetPrecField(prec) },
		func() error { return f.SetSize(0) },
		func() error { return f.SetExp(0) },
		func() error { return f.SetLimbPtr(d) },
	} {
		if err := step(); err != nil {
			l.space().Release(&d)
			return err
		}
	}
	return nil
}

func (l *Lib) floatInit(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 1); err != nil {
		return nil, err
	}
	return nil, l.floatInitPrec(ptr(args[0]), defaultFloatBits)
}

func (l *Lib) floatInit2(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 2); err != nil {
		return nil, err
	}
	return nil, l.floatInitPrec(ptr(args[0]), ctypes.BitCount(args[1]))
}

func (l *Lib) floatClear(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 1); err != nil {
		return nil, err
	}
	f := mp.FloatAt(l.env, ptr(args[0]))
	d, err := f.LimbPtr()
	if err != nil {
		return nil, err
	}
	l.space().Release(&d)
	return nil, f.SetLimbPtr(0)
}

func (l *Lib) floatSetPrec(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 2); err != nil {
		return nil, err
	}
	f := mp.FloatAt(l.env, ptr(args[0]))
	v, err := f.Big()
	if err != nil {
		return nil, err
	}
	oldPrec, err := f.Prec()
	if err != nil {
		return nil, err
	}
	prec, err := ctypes.FloatPrecLimbs(ctypes.BitCount(args[1]), l.space().PtrSize)
	if err != nil {
		return nil, err
	}
	d, err := f.LimbPtr()
	if err != nil {
		return nil, err
	}
	w := l.space().PtrSize
	nd, err := l.space().Realloc(d, uint64(oldPrec+1)*w, uint64(prec+1)*w)
	if err != nil {
		return nil, err
	}
	if err := f.SetLimbPtr(nd); err != nil {
		return nil, err
	}
	if err := f.SetPrecField(prec); err != nil {
		return nil, err
	}
	return nil, f.SetBig(v)
}

func (l *Lib) floatSetStr(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 3); err != nil {
		return nil, err
	}
	text, err := l.readText(ptr(args[1]))
	if err != nil {
		return nil, err
	}
	if base := api.DecodeI32(args[2]); base != 10 && base != -10 {
		return ret(-1), nil
	}
	f := mp.FloatAt(l.env, ptr(args[0]))
	bits, err := f.PrecBits()
	if err != nil {
		return nil, err
	}
	v, ok := parseFloat(text, uint(bits)+64)
	if !ok {
		return ret(-1), nil
	}
	if err := f.SetBig(v); err != nil {
		return nil, err
	}
	return ret(0), nil
}

// parseFloat accepts [-]digits[.digits][e[-]digits] and nothing else.
func parseFloat(text string, prec uint) (*big.Float, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		digit := c >= '0' && c <= '9'
		if !digit && c != '.' && c != '-' && c != '+' && c != 'e' && c != 'E' {
			return nil, false
		}
	}
	v, _, err := big.ParseFloat(s, 10, prec, big.ToZero)
	if err != nil {
		return nil, false
	}
	return v, true
}

func (l *Lib) floatGetStr(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 5); err != nil {
		return nil, err
	}
	buf, expPtr := ptr(args[0]), ptr(args[1])
	if base := api.DecodeI32(args[2]); base != 10 && base != -10 {
		return []uint64{0}, nil
	}
	digits := int(args[3])
	v, err := mp.FloatAt(l.env, ptr(args[4])).Big()
	if err != nil {
		return nil, err
	}
	mant, exp := decimalDigits(v, digits)
	if err := l.space().WriteInt32(expPtr, int32(exp)); err != nil {
		return nil, err
	}
	return l.writeText(buf, mant)
}

// decimalDigits returns the digits and exponent of v = 0.digits * 10^exp,
// rounded to n significant digits (n <= 0 means as many as needed), with
// trailing zeros removed. Zero is ("", 0).
func decimalDigits(v *big.Float, n int) (string, int) {
	if v.Sign() == 0 {
		return "", 0
	}
	prec := n - 1
	if n <= 0 {
		prec = -1
	}
	s := v.Text('e', prec)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	mant, expText, _ := strings.Cut(s, "e")
	mant = strings.Replace(mant, ".", "", 1)
	mant = strings.TrimRight(mant, "0")
	var exp int
	fmt.Sscanf(expText, "%d", &exp)
	return sign + mant, exp + 1
}

// --- random state ---

func (l *Lib) seedOf(state foreign.Ptr) (*mp.Int, error) {
	p, err := l.space().Offset(state, l.env.Layout.RandState.Offset(layout.FieldSeed))
	if err != nil {
		return nil, err
	}
	return mp.IntAt(l.env, p), nil
}

func (l *Lib) randInitDefault(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 1); err != nil {
		return nil, err
	}
	state := ptr(args[0])
	seed, err := l.seedOf(state)
	if err != nil {
		return nil, err
	}
	if err := l.allocLimbs(seed, 2); err != nil {
		return nil, err
	}
	rs := l.env.Layout.RandState
	alg, err := l.space().Offset(state, rs.Offset(layout.FieldAlg))
	if err != nil {
		return nil, err
	}
	if err := l.space().WriteInt32(alg, 0); err != nil {
		return nil, err
	}
	data, err := l.space().Offset(state, rs.Offset(layout.FieldAlgData))
	if err != nil {
		return nil, err
	}
	return nil, l.space().WritePtr(data, 0)
}

func (l *Lib) randClear(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 1); err != nil {
		return nil, err
	}
	seed, err := l.seedOf(ptr(args[0]))
	if err != nil {
		return nil, err
	}
	return nil, l.freeLimbs(seed)
}

func (l *Lib) randSeed(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 2); err != nil {
		return nil, err
	}
	seed, err := l.seedOf(ptr(args[0]))
	if err != nil {
		return nil, err
	}
	v, err := mp.IntAt(l.env, ptr(args[1])).Big()
	if err != nil {
		return nil, err
	}
	return nil, seed.SetBig(v.Abs(v))
}

func (l *Lib) randSeedUI(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 2); err != nil {
		return nil, err
	}
	seed, err := l.seedOf(ptr(args[0]))
	if err != nil {
		return nil, err
	}
	return nil, seed.SetBig(new(big.Int).SetUint64(args[1]))
}

var (
	lcgMul  = mustHex("2360ed051fc65da44385df649fccf645")
	lcgInc  = mustHex("5851f42d4c957f2d14057b7ef767814f")
	lcgMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
)

func mustHex(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("bad constant " + s)
	}
	return v
}

// nextRandom draws bits bits from a 128-bit LCG whose state is the seed
// integer, taking the high 64 bits of each step, and stores the advanced
// state back.
func nextRandom(seed *mp.Int, bits uint) (*big.Int, error) {
	s, err := seed.Big()
	if err != nil {
		return nil, err
	}
	s.And(s, lcgMask)
	out := new(big.Int)
	for got := uint(0); got < bits; got += 64 {
		s.Mul(s, lcgMul).Add(s, lcgInc).And(s, lcgMask)
		chunk := new(big.Int).Rsh(s, 64)
		out.Or(out, chunk.Lsh(chunk, got))
	}
	out.And(out, new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits), big.NewInt(1)))
	if err := seed.SetBig(s); err != nil {
		return nil, err
	}
	return out, nil
}
