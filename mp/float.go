package mp

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/gmp-native/ctypes"
	"github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/foreign"
	"github.com/wippyai/gmp-native/internal/layout"
	"github.com/wippyai/gmp-native/limbs"
)

// Float is a multi-precision float handle (mpf_t). The value is
// 0.d[n-1]...d[0] * B^exp with B = 2^(8*limb size) and n = |size|.
type Float struct {
	env      *Env
	ptr      foreign.Ptr
	init     bool
	borrowed bool
}

// NewFloat allocates an uninitialized float struct.
func NewFloat(env *Env) (*Float, error) {
	if env == nil {
		return nil, errors.NilSource(errors.PhaseAlloc, "env")
	}
	p, err := env.Space.Malloc(env.Layout.Float.Size)
	if err != nil {
		return nil, err
	}
	return &Float{env: env, ptr: p}, nil
}

// FloatAt returns a borrowed view of an initialized float struct at p.
// Clearing a view only detaches it.
func FloatAt(env *Env, p foreign.Ptr) *Float {
	return &Float{env: env, ptr: p, init: p != 0, borrowed: true}
}

// Addr returns the struct's foreign address, or 0 for a nil or cleared handle.
func (f *Float) Addr() foreign.Ptr {
	if f == nil {
		return 0
	}
	return f.ptr
}

// Initialized reports whether the library has initialized the struct.
func (f *Float) Initialized() bool { return f.init }

func (f *Float) field(name string) (foreign.Ptr, error) {
	return fieldAddr(f.env, f.ptr, f.env.Layout.Float, name, "*mp.Float")
}

func (f *Float) ready() error {
	if f.ptr == 0 || !f.init {
		return errors.NotInitialized(errors.PhaseAccess, "mpf")
	}
	return nil
}

func (f *Float) readInt32(name string) (int32, error) {
	p, err := f.field(name)
	if err != nil {
		return 0, err
	}
	return f.env.Space.ReadInt32(p)
}

func (f *Float) writeInt32(name string, v int32) error {
	p, err := f.field(name)
	if err != nil {
		return err
	}
	return f.env.Space.WriteInt32(p, v)
}

// Prec returns the precision field in limbs.
func (f *Float) Prec() (ctypes.Size, error) {
	v, err := f.readInt32(layout.FieldPrec)
	return ctypes.Size(v), err
}

// SetPrecField stores the precision field without reallocating limbs.
func (f *Float) SetPrecField(n ctypes.Size) error {
	return f.writeInt32(layout.FieldPrec, int32(n))
}

// PrecBits returns the usable precision in bits.
func (f *Float) PrecBits() (ctypes.BitCount, error) {
	n, err := f.Prec()
	if err != nil {
		return 0, err
	}
	return ctypes.FloatPrecBits(n, f.env.Layout.LimbSize), nil
}

// Size returns the signed used-limb count.
func (f *Float) Size() (ctypes.Size, error) {
	v, err := f.readInt32(layout.FieldSize)
	return ctypes.Size(v), err
}

// SetSize stores the signed used-limb count.
func (f *Float) SetSize(n ctypes.Size) error {
	return f.writeInt32(layout.FieldSize, int32(n))
}

// Exp returns the exponent in limbs.
func (f *Float) Exp() (ctypes.Exp, error) {
	v, err := f.readInt32(layout.FieldExp)
	return ctypes.Exp(v), err
}

// SetExp stores the exponent in limbs.
func (f *Float) SetExp(e ctypes.Exp) error {
	return f.writeInt32(layout.FieldExp, int32(e))
}

// LimbPtr returns the address of the mantissa limbs.
func (f *Float) LimbPtr() (foreign.Ptr, error) {
	p, err := f.field(layout.FieldLimbs)
	if err != nil {
		return 0, err
	}
	return f.env.Space.ReadPtr(p)
}

// SetLimbPtr stores the address of the mantissa limbs.
func (f *Float) SetLimbPtr(d foreign.Ptr) error {
	p, err := f.field(layout.FieldLimbs)
	if err != nil {
		return err
	}
	return f.env.Space.WritePtr(p, d)
}

// Limbs returns a view of the used mantissa limbs.
func (f *Float) Limbs() (*limbs.Array, error) {
	d, err := f.LimbPtr()
	if err != nil {
		return nil, err
	}
	n, err := f.Size()
	if err != nil {
		return nil, err
	}
	return limbs.View(f.env.Space, d, n), nil
}

// IsZero reports whether the value is zero: size and exponent both zero.
func (f *Float) IsZero() (bool, error) {
	n, err := f.Size()
	if err != nil {
		return false, err
	}
	e, err := f.Exp()
	if err != nil {
		return false, err
	}
	return n == 0 && e == 0, nil
}

// Init initializes the struct with the library's default precision.
func (f *Float) Init(ctx context.Context) error {
	if err := f.checkUninit(); err != nil {
		return err
	}
	if _, err := f.env.Call(ctx, symFloatInit, uint64(f.ptr)); err != nil {
		return err
	}
	f.init = true
	return nil
}

// Init2 initializes the struct with at least bits bits of precision.
func (f *Float) Init2(ctx context.Context, bits ctypes.BitCount) error {
	if err := f.checkUninit(); err != nil {
		return err
	}
	if err := ctypes.CheckWidth(bits, f.env.PtrSize()); err != nil {
		return err
	}
	if _, err := f.env.Call(ctx, symFloatInit2, uint64(f.ptr), uint64(bits)); err != nil {
		return err
	}
	f.init = true
	return nil
}

func (f *Float) checkUninit() error {
	if f.ptr == 0 {
		return errors.NilPointer(errors.PhaseCall, nil, "*mp.Float")
	}
	if f.init {
		return errors.InvalidArgument(errors.PhaseCall, "mpf already initialized")
	}
	return nil
}

// SetPrec changes the precision through the library, rounding the value.
func (f *Float) SetPrec(ctx context.Context, bits ctypes.BitCount) error {
	if err := f.ready(); err != nil {
		return err
	}
	if err := ctypes.CheckWidth(bits, f.env.PtrSize()); err != nil {
		return err
	}
	_, err := f.env.Call(ctx, symFloatSetPrec, uint64(f.ptr), uint64(bits))
	return err
}

// SetString parses text through the library. The exponent marker is 'e'
// for bases up to 10 and '@' for any base.
func (f *Float) SetString(ctx context.Context, text string, base int) error {
	if err := checkText(text); err != nil {
		return err
	}
	if err := checkParseBase(base, -62, 62); err != nil {
		return err
	}
	if err := f.ready(); err != nil {
		return err
	}
	return f.env.withCString(text, func(s foreign.Ptr) error {
		rc, err := f.env.callInt32(ctx, symFloatSetStr, uint64(f.ptr), uint64(s), encodeBase(base))
		if err != nil {
			return err
		}
		if rc != 0 {
			return rejected(text, base)
		}
		return nil
	})
}

// Text formats the value as [-]0.<digits>e<exp> (base <= 10) or
// [-]0.<digits>@<exp>, with the exponent written in the same base. This is
// the form SetString reads back. Bases 2 to 36 are supported.
func (f *Float) Text(ctx context.Context, base int) (string, error) {
	if err := checkFormatBase(base, 36); err != nil {
		return "", err
	}
	if err := f.ready(); err != nil {
		return "", err
	}
	bits, err := f.PrecBits()
	if err != nil {
		return "", err
	}
	digits := uint64(math.Ceil(float64(bits)*math.Ln2/math.Log(float64(abs(base))))) + 1

	expCell, err := f.env.Space.Calloc(4)
	if err != nil {
		return "", err
	}
	defer f.env.Space.Release(&expCell)

	mant, err := f.env.readOut(digits+2, func(buf foreign.Ptr) (uint64, error) {
		return f.env.callWord(ctx, symFloatGetStr,
			uint64(buf), uint64(expCell), encodeBase(base), digits, uint64(f.ptr))
	})
	if err != nil {
		return "", err
	}
	exp, err := f.env.Space.ReadInt32(expCell)
	if err != nil {
		return "", err
	}
	return formatFloat(mant, int64(exp), base), nil
}

func formatFloat(mant string, exp int64, base int) string {
	neg := strings.HasPrefix(mant, "-")
	mant = strings.TrimPrefix(mant, "-")
	if mant == "" {
		return "0"
	}
	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	sb.WriteString("0.")
	sb.WriteString(mant)
	if exp != 0 {
		if abs(base) <= 10 {
			sb.WriteByte('e')
		} else {
			sb.WriteByte('@')
		}
		sb.WriteString(strconv.FormatInt(exp, abs(base)))
	}
	return sb.String()
}

// Clear has the library release the mantissa, frees the struct and resets
// the handle. Clearing a cleared handle is a no-op.
func (f *Float) Clear(ctx context.Context) error {
	if f == nil || f.ptr == 0 {
		return nil
	}
	if f.borrowed {
		f.ptr, f.init = 0, false
		return nil
	}
	var err error
	if f.init {
		_, err = f.env.Call(ctx, symFloatClear, uint64(f.ptr))
	}
	f.env.Space.Release(&f.ptr)
	f.init = false
	return err
}
