package mp_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/wippyai/gmp-native/ctypes"
	gmperrors "github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/mp"
)

func TestParseFloat_Text(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"1.5", "0.15e1"},
		{"-0.00125", "-0.125e-2"},
		{"1e10", "0.1e11"},
		{"0", "0"},
		{"250", "0.25e3"},
	}
	ctx := context.Background()
	for _, w := range widths {
		for _, tc := range tests {
			env, arena := newEnv(t, w)
			f, err := mp.ParseFloat(ctx, env, tc.text, 10, 64)
			if err != nil {
				t.Fatalf("w=%d ParseFloat(%q): %v", w, tc.text, err)
			}
			got, err := f.Text(ctx, 10)
			if err != nil || got != tc.want {
				t.Errorf("w=%d %q: Text = %q, %v; want %q", w, tc.text, got, err, tc.want)
			}
			if err := f.Clear(ctx); err != nil {
				t.Fatal(err)
			}
			if n := arena.Stats().LiveBlocks; n != 0 {
				t.Errorf("w=%d %q: %d blocks leaked", w, tc.text, n)
			}
		}
	}
}

func TestFloat_Fields(t *testing.T) {
	ctx := context.Background()
	for _, w := range widths {
		env, _ := newEnv(t, w)
		f, err := mp.ParseFloat(ctx, env, "1.5", 10, 64)
		if err != nil {
			t.Fatal(err)
		}
		bits, err := f.PrecBits()
		if err != nil || bits < 64 {
			t.Errorf("w=%d: PrecBits = %d, %v", w, bits, err)
		}
		prec, _ := f.Prec()
		if want, _ := ctypes.FloatPrecLimbs(64, w); prec != want {
			t.Errorf("w=%d: Prec = %d, want %d", w, prec, want)
		}
		if size, _ := f.Size(); size != 2 {
			t.Errorf("w=%d: Size = %d, want 2", w, size)
		}
		if exp, _ := f.Exp(); exp != 1 {
			t.Errorf("w=%d: Exp = %d, want 1", w, exp)
		}
		arr, err := f.Limbs()
		if err != nil {
			t.Fatal(err)
		}
		words, _ := arr.Words()
		top := uint64(1) << (8*w - 1)
		if len(words) != 2 || words[0] != top || words[1] != 1 {
			t.Errorf("w=%d: mantissa limbs %x", w, words)
		}
		if zero, _ := f.IsZero(); zero {
			t.Errorf("w=%d: 1.5 reported zero", w)
		}
		_ = f.Clear(ctx)
	}
}

func TestFloat_IsZero(t *testing.T) {
	ctx := context.Background()
	env, _ := newEnv(t, 8)
	f, err := mp.NewFloat(env)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if zero, err := f.IsZero(); err != nil || !zero {
		t.Errorf("fresh float: IsZero = %v, %v", zero, err)
	}
	if err := f.SetString(ctx, "-3.25", 10); err != nil {
		t.Fatal(err)
	}
	if zero, _ := f.IsZero(); zero {
		t.Error("-3.25 reported zero")
	}
	if err := f.SetBig(new(big.Float)); err != nil {
		t.Fatal(err)
	}
	if zero, _ := f.IsZero(); !zero {
		t.Error("SetBig(0) not zero")
	}
	_ = f.Clear(ctx)
}

func TestFloat_BigRoundTrip(t *testing.T) {
	ctx := context.Background()
	values := []float64{1, -1, 0.5, 3.141592653589793, -1e-30, 6.02214076e23, 1.0 / 3}
	for _, w := range widths {
		env, _ := newEnv(t, w)
		f, err := mp.NewFloat(env)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.Init2(ctx, 128); err != nil {
			t.Fatal(err)
		}
		for _, v := range values {
			want := big.NewFloat(v)
			if err := f.SetBig(want); err != nil {
				t.Fatalf("w=%d SetBig(%g): %v", w, v, err)
			}
			got, err := f.Big()
			if err != nil {
				t.Fatal(err)
			}
			if got.Cmp(want) != 0 {
				t.Errorf("w=%d: Big = %s, want %g", w, got.Text('g', 20), v)
			}
		}
		inf := new(big.Float).SetInf(false)
		if err := f.SetBig(inf); !errors.Is(err, gmperrors.ErrInvalidArgument) {
			t.Errorf("SetBig(+Inf): err = %v", err)
		}
		_ = f.Clear(ctx)
	}
}

func TestFloat_SetPrec(t *testing.T) {
	ctx := context.Background()
	for _, w := range widths {
		env, arena := newEnv(t, w)
		f, err := mp.ParseFloat(ctx, env, "2.75", 10, 32)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetPrec(ctx, 512); err != nil {
			t.Fatal(err)
		}
		bits, _ := f.PrecBits()
		if bits < 512 {
			t.Errorf("w=%d: PrecBits = %d after SetPrec(512)", w, bits)
		}
		v, err := f.Big()
		if err != nil {
			t.Fatal(err)
		}
		if v.Cmp(big.NewFloat(2.75)) != 0 {
			t.Errorf("w=%d: value %s after SetPrec", w, v.Text('g', 10))
		}
		_ = f.Clear(ctx)
		if n := arena.Stats().LiveBlocks; n != 0 {
			t.Errorf("w=%d: %d blocks leaked", w, n)
		}
	}
}

func TestParseFloat_Rejects(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		text string
		base int
	}{
		{"empty", "", 10},
		{"bad base", "1.0", 63},
		{"bad digits", "1.2.3", 10},
		{"letters", "abc", 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env, arena := newEnv(t, 4)
			f, err := mp.ParseFloat(ctx, env, tc.text, tc.base, 64)
			if !errors.Is(err, gmperrors.ErrInvalidArgument) {
				t.Fatalf("err = %v, want invalid_argument", err)
			}
			if f != nil {
				t.Error("handle returned on failure")
			}
			if n := arena.Stats().LiveBlocks; n != 0 {
				t.Errorf("%d blocks leaked", n)
			}
		})
	}
}

func TestFloat_TextBase(t *testing.T) {
	ctx := context.Background()
	env, _ := newEnv(t, 8)
	f, err := mp.ParseFloat(ctx, env, "1", 10, 64)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Clear(ctx)
	for _, base := range []int{0, 1, 37, -37} {
		if _, err := f.Text(ctx, base); !errors.Is(err, gmperrors.ErrInvalidArgument) {
			t.Errorf("Text(%d): err = %v", base, err)
		}
	}
}
