package mp

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	gmpnative "github.com/wippyai/gmp-native"
	"github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/foreign"
	"github.com/wippyai/gmp-native/internal/layout"
)

// Library symbols used by the handles.
const (
	symIntInit       = "__gmpz_init"
	symIntInit2      = "__gmpz_init2"
	symIntClear      = "__gmpz_clear"
	symIntSetStr     = "__gmpz_set_str"
	symIntInitSetStr = "__gmpz_init_set_str"
	symIntGetStr     = "__gmpz_get_str"
	symIntSizeInBase = "__gmpz_sizeinbase"
	symIntURandomB   = "__gmpz_urandomb"

	symRatInit         = "__gmpq_init"
	symRatClear        = "__gmpq_clear"
	symRatSetStr       = "__gmpq_set_str"
	symRatGetStr       = "__gmpq_get_str"
	symRatCanonicalize = "__gmpq_canonicalize"

	symFloatInit    = "__gmpf_init"
	symFloatInit2   = "__gmpf_init2"
	symFloatClear   = "__gmpf_clear"
	symFloatSetPrec = "__gmpf_set_prec"
	symFloatSetStr  = "__gmpf_set_str"
	symFloatGetStr  = "__gmpf_get_str"

	symRandInitDefault = "__gmp_randinit_default"
	symRandClear       = "__gmp_randclear"
	symRandSeed        = "__gmp_randseed"
	symRandSeedUI      = "__gmp_randseed_ui"
)

// Env is what every handle is bound to: the foreign space its block lives
// in, the struct layouts for that space's pointer width, and the library
// that initializes, clears and formats handles.
type Env struct {
	Space  *foreign.Space
	Lib    gmpnative.Library
	Layout layout.Layout
}

// NewEnv binds a space and a library. lib may be nil for code that only
// touches handle fields.
func NewEnv(space *foreign.Space, lib gmpnative.Library) (*Env, error) {
	if space == nil {
		return nil, errors.NilSource(errors.PhaseConfig, "space")
	}
	l, err := layout.For(space.PtrSize)
	if err != nil {
		return nil, err
	}
	return &Env{Space: space, Lib: lib, Layout: l}, nil
}

// PtrSize returns the native pointer width in bytes.
func (e *Env) PtrSize() uint64 { return e.Space.PtrSize }

// Call invokes a library symbol, wrapping failures as call errors.
func (e *Env) Call(ctx context.Context, symbol string, args ...uint64) ([]uint64, error) {
	if e.Lib == nil {
		return nil, errors.NotInitialized(errors.PhaseCall, "library")
	}
	res, err := e.Lib.Call(ctx, symbol, args...)
	if err != nil {
		Logger().Debug("library call failed", zap.String("symbol", symbol), zap.Error(err))
		if errors.HasKind(err, errors.KindCall) || errors.HasKind(err, errors.KindNotFound) {
			return nil, err
		}
		return nil, errors.CallFailed(symbol, err)
	}
	return res, nil
}

func (e *Env) callWord(ctx context.Context, symbol string, args ...uint64) (uint64, error) {
	res, err := e.Call(ctx, symbol, args...)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, errors.InvalidData(errors.PhaseCall, []string{symbol}, "missing return value")
	}
	return res[0], nil
}

func (e *Env) callInt32(ctx context.Context, symbol string, args ...uint64) (int32, error) {
	v, err := e.callWord(ctx, symbol, args...)
	return api.DecodeI32(v), err
}

// withCString passes a temporary NUL-terminated copy of text to fn.
func (e *Env) withCString(text string, fn func(p foreign.Ptr) error) error {
	p, err := e.Space.CString(text)
	if err != nil {
		return err
	}
	defer e.Space.Release(&p)
	return fn(p)
}

// readOut allocates an n-byte output buffer, lets fn fill it and reads it
// back as a C string.
func (e *Env) readOut(n uint64, fn func(buf foreign.Ptr) (uint64, error)) (string, error) {
	buf, err := e.Space.Calloc(n)
	if err != nil {
		return "", err
	}
	defer e.Space.Release(&buf)

	ret, err := fn(buf)
	if err != nil {
		return "", err
	}
	if ret == 0 {
		return "", errors.InvalidData(errors.PhaseUnmarshal, nil, "library returned a null string")
	}
	return e.Space.ReadCString(foreign.Ptr(ret))
}

// Handle is any library object backed by one foreign block.
type Handle interface {
	Addr() foreign.Ptr
	Clear(ctx context.Context) error
}

// ClearAll clears every handle, skipping nil ones, and combines the errors.
func ClearAll(ctx context.Context, handles ...Handle) error {
	var err error
	for _, h := range handles {
		if h == nil {
			continue
		}
		err = multierr.Append(err, h.Clear(ctx))
	}
	return err
}

func fieldAddr(env *Env, base foreign.Ptr, s layout.Struct, name, goType string) (foreign.Ptr, error) {
	if base == 0 {
		return 0, errors.NilPointer(errors.PhaseAccess, []string{s.Name, name}, goType)
	}
	return env.Space.Offset(base, s.Offset(name))
}

func encodeBase(base int) uint64 {
	return api.EncodeI32(int32(base))
}
