package mp

import (
	"context"

	"github.com/wippyai/gmp-native/ctypes"
	"github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/foreign"
	"github.com/wippyai/gmp-native/internal/layout"
	"github.com/wippyai/gmp-native/limbs"
)

// Int is a multi-precision integer handle (mpz_t).
type Int struct {
	env      *Env
	ptr      foreign.Ptr
	init     bool
	borrowed bool
}

// NewInt allocates an uninitialized integer struct.
func NewInt(env *Env) (*Int, error) {
	if env == nil {
		return nil, errors.NilSource(errors.PhaseAlloc, "env")
	}
	p, err := env.Space.Malloc(env.Layout.Int.Size)
	if err != nil {
		return nil, err
	}
	return &Int{env: env, ptr: p}, nil
}

// IntAt returns a borrowed view of an initialized integer struct at p, such
// as one embedded in another struct. Clearing a view only detaches it.
func IntAt(env *Env, p foreign.Ptr) *Int {
	return &Int{env: env, ptr: p, init: p != 0, borrowed: true}
}

// Addr returns the struct's foreign address, or 0 for a nil or cleared handle.
func (z *Int) Addr() foreign.Ptr {
	if z == nil {
		return 0
	}
	return z.ptr
}

// Initialized reports whether the library has initialized the struct.
func (z *Int) Initialized() bool { return z.init }

func (z *Int) field(name string) (foreign.Ptr, error) {
	return fieldAddr(z.env, z.ptr, z.env.Layout.Int, name, "*mp.Int")
}

func (z *Int) ready() error {
	if z.ptr == 0 || !z.init {
		return errors.NotInitialized(errors.PhaseAccess, "mpz")
	}
	return nil
}

// Alloc returns the number of limbs allocated for the magnitude.
func (z *Int) Alloc() (int32, error) {
	p, err := z.field(layout.FieldAlloc)
	if err != nil {
		return 0, err
	}
	return z.env.Space.ReadInt32(p)
}

// SetAlloc stores the allocated limb count.
func (z *Int) SetAlloc(n int32) error {
	p, err := z.field(layout.FieldAlloc)
	if err != nil {
		return err
	}
	return z.env.Space.WriteInt32(p, n)
}

// Size returns the signed used-limb count.
func (z *Int) Size() (ctypes.Size, error) {
	p, err := z.field(layout.FieldSize)
	if err != nil {
		return 0, err
	}
	v, err := z.env.Space.ReadInt32(p)
	return ctypes.Size(v), err
}

// SetSize stores the signed used-limb count.
func (z *Int) SetSize(n ctypes.Size) error {
	p, err := z.field(layout.FieldSize)
	if err != nil {
		return err
	}
	return z.env.Space.WriteInt32(p, int32(n))
}

// LimbPtr returns the address of the limb array.
func (z *Int) LimbPtr() (foreign.Ptr, error) {
	p, err := z.field(layout.FieldLimbs)
	if err != nil {
		return 0, err
	}
	return z.env.Space.ReadPtr(p)
}

// SetLimbPtr stores the address of the limb array.
func (z *Int) SetLimbPtr(d foreign.Ptr) error {
	p, err := z.field(layout.FieldLimbs)
	if err != nil {
		return err
	}
	return z.env.Space.WritePtr(p, d)
}

// Limbs returns a view of the used limbs. The view's count carries the
// sign of the value.
func (z *Int) Limbs() (*limbs.Array, error) {
	d, err := z.LimbPtr()
	if err != nil {
		return nil, err
	}
	n, err := z.Size()
	if err != nil {
		return nil, err
	}
	return limbs.View(z.env.Space, d, n), nil
}

// Sign returns -1, 0 or +1.
func (z *Int) Sign() (int, error) {
	n, err := z.Size()
	return n.Sign(), err
}

// Init has the library initialize the struct to zero.
func (z *Int) Init(ctx context.Context) error {
	if err := z.checkUninit(); err != nil {
		return err
	}
	if _, err := z.env.Call(ctx, symIntInit, uint64(z.ptr)); err != nil {
		return err
	}
	z.init = true
	return nil
}

// Init2 initializes the struct with room for bits bits.
func (z *Int) Init2(ctx context.Context, bits ctypes.BitCount) error {
	if err := z.checkUninit(); err != nil {
		return err
	}
	if err := ctypes.CheckWidth(bits, z.env.PtrSize()); err != nil {
		return err
	}
	if _, err := z.env.Call(ctx, symIntInit2, uint64(z.ptr), uint64(bits)); err != nil {
		return err
	}
	z.init = true
	return nil
}

func (z *Int) checkUninit() error {
	if z.ptr == 0 {
		return errors.NilPointer(errors.PhaseCall, nil, "*mp.Int")
	}
	if z.init {
		return errors.InvalidArgument(errors.PhaseCall, "mpz already initialized")
	}
	return nil
}

// SetString parses text in base through the library.
func (z *Int) SetString(ctx context.Context, text string, base int) error {
	if err := checkText(text); err != nil {
		return err
	}
	if err := checkParseBase(base, 0, 62); err != nil {
		return err
	}
	if err := z.ready(); err != nil {
		return err
	}
	return z.env.withCString(text, func(s foreign.Ptr) error {
		rc, err := z.env.callInt32(ctx, symIntSetStr, uint64(z.ptr), uint64(s), encodeBase(base))
		if err != nil {
			return err
		}
		if rc != 0 {
			return rejected(text, base)
		}
		return nil
	})
}

// Text formats the value in base through the library. Bases 2 to 62 use
// lower case digits where there is a choice; -2 to -36 use upper case.
func (z *Int) Text(ctx context.Context, base int) (string, error) {
	if err := checkFormatBase(base, 62); err != nil {
		return "", err
	}
	if err := z.ready(); err != nil {
		return "", err
	}
	n, err := z.sizeInBase(ctx, base)
	if err != nil {
		return "", err
	}
	// Room for a sign and the terminator.
	return z.env.readOut(n+2, func(buf foreign.Ptr) (uint64, error) {
		return z.env.callWord(ctx, symIntGetStr, uint64(buf), encodeBase(base), uint64(z.ptr))
	})
}

func (z *Int) sizeInBase(ctx context.Context, base int) (uint64, error) {
	return z.env.callWord(ctx, symIntSizeInBase, uint64(z.ptr), encodeBase(abs(base)))
}

// Random sets z to a uniformly distributed value in [0, 2^bits).
func (z *Int) Random(ctx context.Context, state *RandState, bits ctypes.BitCount) error {
	if err := z.ready(); err != nil {
		return err
	}
	if state == nil || !state.init {
		return errors.NotInitialized(errors.PhaseCall, "random state")
	}
	if err := ctypes.CheckWidth(bits, z.env.PtrSize()); err != nil {
		return err
	}
	_, err := z.env.Call(ctx, symIntURandomB, uint64(z.ptr), uint64(state.ptr), uint64(bits))
	return err
}

// Clear has the library release the limbs, frees the struct and resets
// the handle. Clearing a cleared handle is a no-op.
func (z *Int) Clear(ctx context.Context) error {
	if z == nil || z.ptr == 0 {
		return nil
	}
	if z.borrowed {
		z.ptr, z.init = 0, false
		return nil
	}
	var err error
	if z.init {
		_, err = z.env.Call(ctx, symIntClear, uint64(z.ptr))
	}
	z.env.Space.Release(&z.ptr)
	z.init = false
	return err
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
