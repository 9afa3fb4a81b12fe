package mp

import (
	"context"

	"go.uber.org/multierr"

	"github.com/wippyai/gmp-native/ctypes"
	"github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/foreign"
)

// checkText rejects source text before anything is allocated. The empty
// string stands in for a null source.
func checkText(text string) error {
	if text == "" {
		return errors.NilSource(errors.PhaseParse, "source text")
	}
	return foreign.CheckASCII(text)
}

func checkParseBase(base, lo, hi int) error {
	switch {
	case base >= 2 && base <= hi:
		return nil
	case base == 0 && lo == 0:
		return nil
	case lo < 0 && base <= -2 && base >= lo:
		return nil
	}
	return errors.New(errors.PhaseParse, errors.KindInvalidArgument).
		Value(base).
		Detail("unsupported base %d", base).
		Build()
}

func checkFormatBase(base, hi int) error {
	if (base >= 2 && base <= hi) || (base >= -36 && base <= -2) {
		return nil
	}
	return errors.New(errors.PhaseUnmarshal, errors.KindInvalidArgument).
		Value(base).
		Detail("unsupported output base %d", base).
		Build()
}

func rejected(text string, base int) error {
	return errors.New(errors.PhaseParse, errors.KindInvalidArgument).
		Value(text).
		Detail("not a valid number in base %d", base).
		Build()
}

// ParseInt allocates an integer handle and has the library initialize it
// from text. Base 0 selects the base from a 0x, 0b or 0 prefix. Empty or
// non-ASCII text fails before any foreign memory is allocated.
func ParseInt(ctx context.Context, env *Env, text string, base int) (*Int, error) {
	if env == nil {
		return nil, errors.NilSource(errors.PhaseParse, "env")
	}
	if err := checkText(text); err != nil {
		return nil, err
	}
	if err := checkParseBase(base, 0, 62); err != nil {
		return nil, err
	}

	z, err := NewInt(env)
	if err != nil {
		return nil, err
	}
	err = env.withCString(text, func(s foreign.Ptr) error {
		rc, err := env.callInt32(ctx, symIntInitSetStr, uint64(z.ptr), uint64(s), encodeBase(base))
		if err != nil {
			return err
		}
		// init_set_str initializes the struct even when parsing fails.
		z.init = true
		if rc != 0 {
			return rejected(text, base)
		}
		return nil
	})
	if err != nil {
		return nil, multierr.Append(err, z.Clear(ctx))
	}
	return z, nil
}

// ParseRat allocates a rational handle, parses text ("n" or "n/d") and
// canonicalizes the result.
func ParseRat(ctx context.Context, env *Env, text string, base int) (*Rat, error) {
	if env == nil {
		return nil, errors.NilSource(errors.PhaseParse, "env")
	}
	if err := checkText(text); err != nil {
		return nil, err
	}
	if err := checkParseBase(base, 0, 62); err != nil {
		return nil, err
	}

	q, err := NewRat(env)
	if err != nil {
		return nil, err
	}
	if err := q.Init(ctx); err != nil {
		return nil, multierr.Append(err, q.Clear(ctx))
	}
	if err := q.SetString(ctx, text, base); err != nil {
		return nil, multierr.Append(err, q.Clear(ctx))
	}
	return q, nil
}

// ParseFloat allocates a float handle with at least prec bits of precision
// and parses text. Negative bases read the exponent in decimal.
func ParseFloat(ctx context.Context, env *Env, text string, base int, prec ctypes.BitCount) (*Float, error) {
	if env == nil {
		return nil, errors.NilSource(errors.PhaseParse, "env")
	}
	if err := checkText(text); err != nil {
		return nil, err
	}
	if err := checkParseBase(base, -62, 62); err != nil {
		return nil, err
	}

	f, err := NewFloat(env)
	if err != nil {
		return nil, err
	}
	if err := f.Init2(ctx, prec); err != nil {
		return nil, multierr.Append(err, f.Clear(ctx))
	}
	if err := f.SetString(ctx, text, base); err != nil {
		return nil, multierr.Append(err, f.Clear(ctx))
	}
	return f, nil
}
