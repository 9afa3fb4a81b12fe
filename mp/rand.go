package mp

import (
	"context"

	"github.com/wippyai/gmp-native/ctypes"
	"github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/foreign"
	"github.com/wippyai/gmp-native/internal/layout"
)

// RandState is a random generator state (gmp_randstate_t). Its contents
// belong to the library; only the embedded seed integer is exposed.
type RandState struct {
	env      *Env
	ptr      foreign.Ptr
	init     bool
	borrowed bool
}

// NewRandState allocates an uninitialized random state struct.
func NewRandState(env *Env) (*RandState, error) {
	if env == nil {
		return nil, errors.NilSource(errors.PhaseAlloc, "env")
	}
	p, err := env.Space.Malloc(env.Layout.RandState.Size)
	if err != nil {
		return nil, err
	}
	return &RandState{env: env, ptr: p}, nil
}

// RandStateAt returns a borrowed view of an initialized random state at p.
// Clearing a view only detaches it.
func RandStateAt(env *Env, p foreign.Ptr) *RandState {
	return &RandState{env: env, ptr: p, init: p != 0, borrowed: true}
}

// Addr returns the struct's foreign address, or 0 for a nil or cleared handle.
func (r *RandState) Addr() foreign.Ptr {
	if r == nil {
		return 0
	}
	return r.ptr
}

// Initialized reports whether the library has initialized the state.
func (r *RandState) Initialized() bool { return r.init }

// SeedInt returns a view of the integer the library keeps its state in.
func (r *RandState) SeedInt() (*Int, error) {
	p, err := fieldAddr(r.env, r.ptr, r.env.Layout.RandState, layout.FieldSeed, "*mp.RandState")
	if err != nil {
		return nil, err
	}
	z := IntAt(r.env, p)
	z.init = r.init
	return z, nil
}

// InitDefault initializes the state with the library's default algorithm.
func (r *RandState) InitDefault(ctx context.Context) error {
	if r.ptr == 0 {
		return errors.NilPointer(errors.PhaseCall, nil, "*mp.RandState")
	}
	if r.init {
		return errors.InvalidArgument(errors.PhaseCall, "random state already initialized")
	}
	if _, err := r.env.Call(ctx, symRandInitDefault, uint64(r.ptr)); err != nil {
		return err
	}
	r.init = true
	return nil
}

// Seed seeds the generator from an integer handle.
func (r *RandState) Seed(ctx context.Context, seed *Int) error {
	if !r.init {
		return errors.NotInitialized(errors.PhaseCall, "random state")
	}
	if seed == nil {
		return errors.NilSource(errors.PhaseCall, "seed")
	}
	if err := seed.ready(); err != nil {
		return err
	}
	_, err := r.env.Call(ctx, symRandSeed, uint64(r.ptr), uint64(seed.ptr))
	return err
}

// SeedUint seeds the generator from an unsigned long.
func (r *RandState) SeedUint(ctx context.Context, seed uint64) error {
	if !r.init {
		return errors.NotInitialized(errors.PhaseCall, "random state")
	}
	if err := ctypes.CheckWidth(ctypes.SizeT(seed), r.env.PtrSize()); err != nil {
		return err
	}
	_, err := r.env.Call(ctx, symRandSeedUI, uint64(r.ptr), seed)
	return err
}

// Clear has the library release the state, frees the struct and resets
// the handle. Clearing a cleared handle is a no-op.
func (r *RandState) Clear(ctx context.Context) error {
	if r == nil || r.ptr == 0 {
		return nil
	}
	if r.borrowed {
		r.ptr, r.init = 0, false
		return nil
	}
	var err error
	if r.init {
		_, err = r.env.Call(ctx, symRandClear, uint64(r.ptr))
	}
	r.env.Space.Release(&r.ptr)
	r.init = false
	return err
}
