package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/wippyai/gmp-native/ctypes"
	"github.com/wippyai/gmp-native/internal/hostlib"
	"github.com/wippyai/gmp-native/mp"
	"github.com/wippyai/gmp-native/native"
	"github.com/wippyai/gmp-native/varargs"
)

// backend is a loaded library with the env its handles use.
type backend struct {
	env   *mp.Env
	name  string
	close func(context.Context) error
}

// openBackend loads wasmFile when set, otherwise the Go library over an
// arena of ptrSize-byte pointers.
func openBackend(ctx context.Context, wasmFile string, ptrSize uint64, cfg native.Config) (*backend, error) {
	if wasmFile == "" {
		lib, _, err := hostlib.NewArena(ptrSize)
		if err != nil {
			return nil, err
		}
		return &backend{
			env:   lib.Env(),
			name:  fmt.Sprintf("go arena (%d-byte pointers)", ptrSize),
			close: func(context.Context) error { return nil },
		}, nil
	}

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	mod, err := native.Load(ctx, data, cfg)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", wasmFile, err)
	}
	return &backend{env: mod.Env(), name: wasmFile, close: mod.Close}, nil
}

// evaluator runs calculator commands against one env. It is not safe for
// concurrent use.
type evaluator struct {
	env  *mp.Env
	base int
	prec ctypes.BitCount
}

func newEvaluator(env *mp.Env) *evaluator {
	return &evaluator{env: env, base: 10, prec: 64}
}

const helpText = `commands:
  int TEXT              normalize an integer
  rat TEXT              canonicalize a fraction
  float TEXT            normalize a float
  limbs TEXT            show an integer's limbs
  rand SEED BITS        draw a random integer
  printf FORMAT ARGS    format through the library's printf
  base N | prec BITS    change the text base or float precision
printf args: z:TEXT q:TEXT f:TEXT for handles, numbers, or strings`

// eval runs one command line.
func (e *evaluator) eval(ctx context.Context, line string) (string, error) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "":
		return "", nil
	case "help":
		return helpText, nil
	case "int", "rat", "float", "limbs":
		if rest == "" || strings.ContainsAny(rest, " \t") {
			return "", fmt.Errorf("%s takes exactly one value", cmd)
		}
		return e.value(ctx, cmd, rest)
	case "rand":
		f := strings.Fields(rest)
		if len(f) != 2 {
			return "", fmt.Errorf("rand takes a seed and a bit count")
		}
		return e.random(ctx, f[0], f[1])
	case "printf":
		format, tail, err := splitFormat(rest)
		if err != nil {
			return "", err
		}
		return e.printf(ctx, format, strings.Fields(tail))
	case "base":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return "", fmt.Errorf("base: %w", err)
		}
		e.base = n
		return fmt.Sprintf("base %d", n), nil
	case "prec":
		n, err := strconv.ParseUint(rest, 10, 32)
		if err != nil || n == 0 {
			return "", fmt.Errorf("prec needs a positive bit count")
		}
		e.prec = ctypes.BitCount(n)
		return fmt.Sprintf("prec %d", n), nil
	default:
		return "", fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

// value parses text as kind and prints it back in the current base.
func (e *evaluator) value(ctx context.Context, kind, text string) (string, error) {
	switch kind {
	case "int":
		z, err := mp.ParseInt(ctx, e.env, text, e.base)
		if err != nil {
			return "", err
		}
		defer z.Clear(ctx)
		return z.Text(ctx, e.base)
	case "rat":
		q, err := mp.ParseRat(ctx, e.env, text, e.base)
		if err != nil {
			return "", err
		}
		defer q.Clear(ctx)
		return q.Text(ctx, e.base)
	case "float":
		f, err := mp.ParseFloat(ctx, e.env, text, e.base, e.prec)
		if err != nil {
			return "", err
		}
		defer f.Clear(ctx)
		return f.Text(ctx, e.base)
	case "limbs":
		z, err := mp.ParseInt(ctx, e.env, text, e.base)
		if err != nil {
			return "", err
		}
		defer z.Clear(ctx)
		return describeLimbs(z)
	}
	return "", fmt.Errorf("unknown kind %q", kind)
}

func describeLimbs(z *mp.Int) (string, error) {
	size, err := z.Size()
	if err != nil {
		return "", err
	}
	alloc, err := z.Alloc()
	if err != nil {
		return "", err
	}
	arr, err := z.Limbs()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "size=%d alloc=%d limbs=[", size, alloc)
	for i, w := range arr.All() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%#x", w)
	}
	b.WriteByte(']')
	return b.String(), nil
}

func (e *evaluator) random(ctx context.Context, seedText, bitsText string) (_ string, err error) {
	seed, err := strconv.ParseUint(seedText, 0, 64)
	if err != nil {
		return "", fmt.Errorf("seed: %w", err)
	}
	bits, err := strconv.ParseUint(bitsText, 10, 32)
	if err != nil {
		return "", fmt.Errorf("bits: %w", err)
	}

	state, err := mp.NewRandState(e.env)
	if err != nil {
		return "", err
	}
	z, err := mp.NewInt(e.env)
	if err != nil {
		return "", multierr.Append(err, state.Clear(ctx))
	}
	defer func() { err = multierr.Append(err, mp.ClearAll(ctx, z, state)) }()

	if err := state.InitDefault(ctx); err != nil {
		return "", err
	}
	if err := state.SeedUint(ctx, seed); err != nil {
		return "", err
	}
	if err := z.Init(ctx); err != nil {
		return "", err
	}
	if err := z.Random(ctx, state, ctypes.BitCount(bits)); err != nil {
		return "", err
	}
	return z.Text(ctx, e.base)
}

// printf formats tokens through the library. Tokens prefixed z:, q: or f:
// become handles; other tokens become int, long long, double or string
// arguments, whichever parses first.
func (e *evaluator) printf(ctx context.Context, format string, tokens []string) (_ string, err error) {
	var handles []mp.Handle
	defer func() { err = multierr.Append(err, mp.ClearAll(ctx, handles...)) }()

	values := make([]any, 0, len(tokens))
	for _, tok := range tokens {
		prefix, text, ok := strings.Cut(tok, ":")
		if ok {
			var h mp.Handle
			switch prefix {
			case "z":
				h, err = mp.ParseInt(ctx, e.env, text, e.base)
			case "q":
				h, err = mp.ParseRat(ctx, e.env, text, e.base)
			case "f":
				h, err = mp.ParseFloat(ctx, e.env, text, e.base, e.prec)
			default:
				ok = false
			}
			if ok {
				if err != nil {
					return "", fmt.Errorf("%s: %w", tok, err)
				}
				handles = append(handles, h)
				values = append(values, h)
				continue
			}
		}
		values = append(values, scalar(tok))
	}

	args, err := varargs.Of(values...)
	if err != nil {
		return "", err
	}
	return varargs.Sprintf(ctx, e.env, format, args...)
}

func scalar(tok string) any {
	if v, err := strconv.ParseInt(tok, 0, 32); err == nil {
		return int(v)
	}
	if v, err := strconv.ParseInt(tok, 0, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(tok, 64); err == nil {
		return v
	}
	return tok
}

// splitFormat takes the format from the front of s, Go-quoted or up to
// the first space.
func splitFormat(s string) (string, string, error) {
	if s == "" {
		return "", "", fmt.Errorf("printf needs a format")
	}
	if s[0] != '"' {
		format, tail, _ := strings.Cut(s, " ")
		return format, tail, nil
	}
	quoted, err := strconv.QuotedPrefix(s)
	if err != nil {
		return "", "", fmt.Errorf("format: %w", err)
	}
	format, err := strconv.Unquote(quoted)
	if err != nil {
		return "", "", fmt.Errorf("format: %w", err)
	}
	return format, s[len(quoted):], nil
}
