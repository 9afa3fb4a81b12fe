package mp_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	gmperrors "github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/mp"
)

func TestParseInt_Text(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		base    int
		outBase int
		want    string
	}{
		{"decimal", "12345678901234567890123", 10, 10, "12345678901234567890123"},
		{"negative hex", "-ff", 16, 16, "-ff"},
		{"upper case output", "-ff", 16, -16, "-FF"},
		{"prefix detection", "0x1F", 0, 10, "31"},
		{"binary", "101", 2, 10, "5"},
		{"zero", "0", 10, 10, "0"},
		{"to base 36", "1295", 10, 36, "zz"},
	}
	ctx := context.Background()
	for _, w := range widths {
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				env, arena := newEnv(t, w)
				z, err := mp.ParseInt(ctx, env, tc.text, tc.base)
				if err != nil {
					t.Fatalf("w=%d ParseInt(%q, %d): %v", w, tc.text, tc.base, err)
				}
				got, err := z.Text(ctx, tc.outBase)
				if err != nil {
					t.Fatalf("w=%d Text(%d): %v", w, tc.outBase, err)
				}
				if got != tc.want {
					t.Errorf("w=%d Text = %q, want %q", w, got, tc.want)
				}
				if err := z.Clear(ctx); err != nil {
					t.Fatal(err)
				}
				if n := arena.Stats().LiveBlocks; n != 0 {
					t.Errorf("w=%d: %d blocks leaked", w, n)
				}
			})
		}
	}
}

func TestParseInt_LimbLayout(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		w         uint64
		wantSize  int
		wantLimbs []uint64
	}{
		{4, -3, []uint64{0, 0, 1}},
		{8, -2, []uint64{0, 1}},
	}
	for _, tc := range tests {
		env, _ := newEnv(t, tc.w)
		// -2^64
		z, err := mp.ParseInt(ctx, env, "-18446744073709551616", 10)
		if err != nil {
			t.Fatal(err)
		}
		size, err := z.Size()
		if err != nil || int(size) != tc.wantSize {
			t.Errorf("w=%d: Size = %d, %v; want %d", tc.w, size, err, tc.wantSize)
		}
		if sign, _ := z.Sign(); sign != -1 {
			t.Errorf("w=%d: Sign = %d", tc.w, sign)
		}
		alloc, _ := z.Alloc()
		if int(alloc) < len(tc.wantLimbs) {
			t.Errorf("w=%d: Alloc = %d, below used limbs", tc.w, alloc)
		}
		arr, err := z.Limbs()
		if err != nil {
			t.Fatal(err)
		}
		if arr.Owned() {
			t.Errorf("w=%d: limb view claims ownership", tc.w)
		}
		words, err := arr.Words()
		if err != nil {
			t.Fatal(err)
		}
		if len(words) != len(tc.wantLimbs) {
			t.Fatalf("w=%d: limbs %x, want %x", tc.w, words, tc.wantLimbs)
		}
		for i := range words {
			if words[i] != tc.wantLimbs[i] {
				t.Errorf("w=%d: limb %d = %x, want %x", tc.w, i, words[i], tc.wantLimbs[i])
			}
		}
		_ = z.Clear(ctx)
	}
}

func TestParseInt_RejectsBeforeAllocating(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		text string
		base int
	}{
		{"empty text", "", 10},
		{"non-ascii", "１２", 10},
		{"embedded nul", "1\x002", 10},
		{"base one", "1", 1},
		{"base too large", "1", 63},
		{"negative base", "1", -10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env, arena := newEnv(t, 8)
			z, err := mp.ParseInt(ctx, env, tc.text, tc.base)
			if !errors.Is(err, gmperrors.ErrInvalidArgument) {
				t.Fatalf("err = %v, want invalid_argument", err)
			}
			if z != nil {
				t.Error("handle returned on failure")
			}
			if n := arena.Stats().Allocs; n != 0 {
				t.Errorf("%d allocations before rejecting", n)
			}
		})
	}
}

func TestParseInt_InvalidDigitsFreeEverything(t *testing.T) {
	ctx := context.Background()
	for _, w := range widths {
		env, arena := newEnv(t, w)
		_, err := mp.ParseInt(ctx, env, "12z", 10)
		if !errors.Is(err, gmperrors.ErrInvalidArgument) {
			t.Errorf("w=%d: err = %v", w, err)
		}
		st := arena.Stats()
		if st.LiveBlocks != 0 || st.Allocs != st.Frees {
			t.Errorf("w=%d: stats after failure %+v", w, st)
		}
	}
}

func TestInt_ClearTwice(t *testing.T) {
	ctx := context.Background()
	env, arena := newEnv(t, 4)
	z, err := mp.ParseInt(ctx, env, "7", 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := z.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	frees := arena.Stats().Frees
	if err := z.Clear(ctx); err != nil {
		t.Errorf("second Clear: %v", err)
	}
	if arena.Stats().Frees != frees {
		t.Error("second Clear freed memory")
	}
	if z.Addr() != 0 || z.Initialized() {
		t.Error("cleared handle still addressable")
	}
	if _, err := z.Text(ctx, 10); !gmperrors.HasKind(err, gmperrors.KindNotInitialized) {
		t.Errorf("Text after Clear: err = %v", err)
	}
	if _, err := z.Size(); !gmperrors.HasKind(err, gmperrors.KindNilPointer) {
		t.Errorf("Size after Clear: err = %v", err)
	}
}

func TestInt_InitSetString(t *testing.T) {
	ctx := context.Background()
	for _, w := range widths {
		env, _ := newEnv(t, w)
		z, err := mp.NewInt(env)
		if err != nil {
			t.Fatal(err)
		}
		if err := z.SetString(ctx, "1", 10); !gmperrors.HasKind(err, gmperrors.KindNotInitialized) {
			t.Errorf("SetString before Init: err = %v", err)
		}
		if err := z.Init2(ctx, 200); err != nil {
			t.Fatal(err)
		}
		if err := z.Init(ctx); !errors.Is(err, gmperrors.ErrInvalidArgument) {
			t.Errorf("double Init: err = %v", err)
		}
		alloc, _ := z.Alloc()
		if want := (200 + 8*int(w) - 1) / (8 * int(w)); int(alloc) < want {
			t.Errorf("w=%d: Init2(200) allocated %d limbs, want >= %d", w, alloc, want)
		}
		if err := z.SetString(ctx, "-123456789abcdef0123456789", 16); err != nil {
			t.Fatal(err)
		}
		got, err := z.Text(ctx, 16)
		if err != nil || got != "-123456789abcdef0123456789" {
			t.Errorf("w=%d: Text = %q, %v", w, got, err)
		}
		if err := z.SetString(ctx, "xyz", 10); !errors.Is(err, gmperrors.ErrInvalidArgument) {
			t.Errorf("bad digits: err = %v", err)
		}
		_ = z.Clear(ctx)
	}
}

func TestInt_Big(t *testing.T) {
	ctx := context.Background()
	values := []string{"0", "1", "-1", "4294967296", "-340282366920938463463374607431768211457"}
	for _, w := range widths {
		env, _ := newEnv(t, w)
		z, err := mp.NewInt(env)
		if err != nil {
			t.Fatal(err)
		}
		if err := z.Init(ctx); err != nil {
			t.Fatal(err)
		}
		for _, s := range values {
			want, _ := new(big.Int).SetString(s, 10)
			if err := z.SetBig(want); err != nil {
				t.Fatalf("w=%d SetBig(%s): %v", w, s, err)
			}
			got, err := z.Big()
			if err != nil {
				t.Fatal(err)
			}
			if got.Cmp(want) != 0 {
				t.Errorf("w=%d: Big = %s, want %s", w, got, want)
			}
			text, err := z.Text(ctx, 10)
			if err != nil || text != s {
				t.Errorf("w=%d: Text = %q, %v; want %q", w, text, err, s)
			}
		}
		if err := z.SetBig(nil); !errors.Is(err, gmperrors.ErrInvalidArgument) {
			t.Errorf("SetBig(nil): err = %v", err)
		}
		_ = z.Clear(ctx)
	}
}

func TestIntAt_BorrowedView(t *testing.T) {
	ctx := context.Background()
	env, arena := newEnv(t, 8)
	z, err := mp.ParseInt(ctx, env, "99", 10)
	if err != nil {
		t.Fatal(err)
	}
	view := mp.IntAt(env, z.Addr())
	if v, err := view.Big(); err != nil || v.Int64() != 99 {
		t.Errorf("view reads %v, %v", v, err)
	}
	live := arena.Stats().LiveBlocks
	if err := view.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if arena.Stats().LiveBlocks != live {
		t.Error("clearing a view freed memory")
	}
	if text, err := z.Text(ctx, 10); err != nil || text != "99" {
		t.Errorf("owner after view cleared: %q, %v", text, err)
	}
	_ = z.Clear(ctx)
}
