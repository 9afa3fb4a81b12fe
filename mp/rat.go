package mp

import (
	"context"

	"github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/foreign"
	"github.com/wippyai/gmp-native/internal/layout"
)

// Rat is a multi-precision rational handle (mpq_t): two integer structs,
// numerator first, in one block.
type Rat struct {
	env      *Env
	ptr      foreign.Ptr
	init     bool
	borrowed bool
}

// NewRat allocates an uninitialized rational struct.
func NewRat(env *Env) (*Rat, error) {
	if env == nil {
		return nil, errors.NilSource(errors.PhaseAlloc, "env")
	}
	p, err := env.Space.Malloc(env.Layout.Rat.Size)
	if err != nil {
		return nil, err
	}
	return &Rat{env: env, ptr: p}, nil
}

// RatAt returns a borrowed view of an initialized rational struct at p.
// Clearing a view only detaches it.
func RatAt(env *Env, p foreign.Ptr) *Rat {
	return &Rat{env: env, ptr: p, init: p != 0, borrowed: true}
}

// Addr returns the struct's foreign address, or 0 for a nil or cleared handle.
func (q *Rat) Addr() foreign.Ptr {
	if q == nil {
		return 0
	}
	return q.ptr
}

// Initialized reports whether the library has initialized the struct.
func (q *Rat) Initialized() bool { return q.init }

func (q *Rat) part(name string) (*Int, error) {
	p, err := fieldAddr(q.env, q.ptr, q.env.Layout.Rat, name, "*mp.Rat")
	if err != nil {
		return nil, err
	}
	z := IntAt(q.env, p)
	z.init = q.init
	return z, nil
}

// Num returns a view of the numerator.
func (q *Rat) Num() (*Int, error) { return q.part(layout.FieldNum) }

// Den returns a view of the denominator, laid out like an Int at offset
// 8 + pointer width.
func (q *Rat) Den() (*Int, error) { return q.part(layout.FieldDen) }

func (q *Rat) ready() error {
	if q.ptr == 0 || !q.init {
		return errors.NotInitialized(errors.PhaseAccess, "mpq")
	}
	return nil
}

// Init has the library initialize the struct to 0/1.
func (q *Rat) Init(ctx context.Context) error {
	if q.ptr == 0 {
		return errors.NilPointer(errors.PhaseCall, nil, "*mp.Rat")
	}
	if q.init {
		return errors.InvalidArgument(errors.PhaseCall, "mpq already initialized")
	}
	if _, err := q.env.Call(ctx, symRatInit, uint64(q.ptr)); err != nil {
		return err
	}
	q.init = true
	return nil
}

// SetString parses "n" or "n/d" in base and canonicalizes the result.
func (q *Rat) SetString(ctx context.Context, text string, base int) error {
	if err := checkText(text); err != nil {
		return err
	}
	if err := checkParseBase(base, 0, 62); err != nil {
		return err
	}
	if err := q.ready(); err != nil {
		return err
	}
	err := q.env.withCString(text, func(s foreign.Ptr) error {
		rc, err := q.env.callInt32(ctx, symRatSetStr, uint64(q.ptr), uint64(s), encodeBase(base))
		if err != nil {
			return err
		}
		if rc != 0 {
			return rejected(text, base)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return q.Canonicalize(ctx)
}

// Canonicalize removes common factors and makes the denominator positive.
func (q *Rat) Canonicalize(ctx context.Context) error {
	if err := q.ready(); err != nil {
		return err
	}
	den, _ := q.Den()
	if n, err := den.Size(); err == nil && n == 0 {
		return errors.New(errors.PhaseParse, errors.KindInvalidArgument).
			Detail("zero denominator").
			Build()
	}
	_, err := q.env.Call(ctx, symRatCanonicalize, uint64(q.ptr))
	return err
}

// Text formats the value as "n" or "n/d" through the library.
func (q *Rat) Text(ctx context.Context, base int) (string, error) {
	if err := checkFormatBase(base, 62); err != nil {
		return "", err
	}
	if err := q.ready(); err != nil {
		return "", err
	}
	num, _ := q.Num()
	den, _ := q.Den()
	nn, err := num.sizeInBase(ctx, base)
	if err != nil {
		return "", err
	}
	dn, err := den.sizeInBase(ctx, base)
	if err != nil {
		return "", err
	}
	// Sign, slash and terminator.
	return q.env.readOut(nn+dn+3, func(buf foreign.Ptr) (uint64, error) {
		return q.env.callWord(ctx, symRatGetStr, uint64(buf), encodeBase(base), uint64(q.ptr))
	})
}

// Clear has the library release both limb arrays, frees the struct and
// resets the handle. Clearing a cleared handle is a no-op.
func (q *Rat) Clear(ctx context.Context) error {
	if q == nil || q.ptr == 0 {
		return nil
	}
	if q.borrowed {
		q.ptr, q.init = 0, false
		return nil
	}
	var err error
	if q.init {
		_, err = q.env.Call(ctx, symRatClear, uint64(q.ptr))
	}
	q.env.Space.Release(&q.ptr)
	q.init = false
	return err
}
