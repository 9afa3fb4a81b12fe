package ctypes

import (
	"errors"
	"math"
	"testing"

	gmperrors "github.com/wippyai/gmp-native/errors"
)

func TestConvert(t *testing.T) {
	if v, err := Convert[Size](int64(-5)); err != nil || v != -5 {
		t.Errorf("Convert[Size](-5) = %d, %v", v, err)
	}
	if v, err := Convert[Exp](int(math.MaxInt32)); err != nil || v != math.MaxInt32 {
		t.Errorf("Convert[Exp](MaxInt32) = %d, %v", v, err)
	}
	if v, err := Convert[SizeT](uint32(7)); err != nil || v != 7 {
		t.Errorf("Convert[SizeT](7) = %d, %v", v, err)
	}

	overflows := []struct {
		name string
		fn   func() error
	}{
		{"int64 to Size", func() error { _, err := Convert[Size](int64(math.MaxInt32) + 1); return err }},
		{"negative to SizeT", func() error { _, err := Convert[SizeT](int32(-1)); return err }},
		{"uint64 max to int64", func() error { _, err := Convert[int64](uint64(math.MaxUint64)); return err }},
		{"negative Exp to BitCount", func() error { _, err := Convert[BitCount](Exp(-1)); return err }},
		{"int to uint8", func() error { _, err := Convert[uint8](256); return err }},
	}
	for _, tc := range overflows {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.fn(); !errors.Is(err, gmperrors.ErrOverflow) {
				t.Errorf("err = %v, want overflow", err)
			}
		})
	}
}

func TestConvert_ErrorNamesTarget(t *testing.T) {
	_, err := Convert[Exp](int64(1) << 40)
	var e *gmperrors.Error
	if !errors.As(err, &e) {
		t.Fatalf("err = %v", err)
	}
	if e.CType != "mp_exp_t" {
		t.Errorf("CType = %q, want mp_exp_t", e.CType)
	}
}

func TestMustConvert(t *testing.T) {
	if MustConvert[Size](3) != 3 {
		t.Error("MustConvert wrong value")
	}
	defer func() {
		if recover() == nil {
			t.Error("MustConvert did not panic on overflow")
		}
	}()
	MustConvert[int8](1000)
}

func TestCheckWidth(t *testing.T) {
	if err := CheckWidth(Limb(math.MaxUint32), 4); err != nil {
		t.Errorf("max 32-bit limb rejected: %v", err)
	}
	if err := CheckWidth(Limb(1<<32), 4); !errors.Is(err, gmperrors.ErrOverflow) {
		t.Errorf("oversized limb: err = %v", err)
	}
	if err := CheckWidth(SizeT(math.MaxUint64), 8); err != nil {
		t.Errorf("64-bit size_t rejected: %v", err)
	}
}

func TestSize_AbsSign(t *testing.T) {
	tests := []struct {
		s    Size
		abs  int
		sign int
	}{
		{0, 0, 0},
		{3, 3, 1},
		{-3, 3, -1},
		{math.MinInt32, 1 << 31, -1},
	}
	for _, tc := range tests {
		if tc.s.Abs() != tc.abs || tc.s.Sign() != tc.sign {
			t.Errorf("Size(%d): abs %d sign %d", tc.s, tc.s.Abs(), tc.s.Sign())
		}
	}
}

func TestLimbsForBits(t *testing.T) {
	tests := []struct {
		bits     BitCount
		limbSize uint64
		want     Size
	}{
		{0, 8, 0},
		{1, 8, 1},
		{64, 8, 1},
		{65, 8, 2},
		{64, 4, 2},
		{100, 4, 4},
	}
	for _, tc := range tests {
		got, err := LimbsForBits(tc.bits, tc.limbSize)
		if err != nil || got != tc.want {
			t.Errorf("LimbsForBits(%d, %d) = %d, %v; want %d", tc.bits, tc.limbSize, got, err, tc.want)
		}
	}

	if _, err := LimbsForBits(math.MaxUint64, 4); !errors.Is(err, gmperrors.ErrOverflow) {
		t.Errorf("huge bit count: err = %v", err)
	}
}

func TestFloatPrec(t *testing.T) {
	tests := []struct {
		bits     BitCount
		limbSize uint64
		prec     Size
		usable   BitCount
	}{
		{0, 8, 2, 64},
		{53, 8, 2, 64},
		{64, 8, 2, 64},
		{65, 8, 3, 128},
		{53, 4, 3, 64},
		{256, 4, 9, 256},
	}
	for _, tc := range tests {
		prec, err := FloatPrecLimbs(tc.bits, tc.limbSize)
		if err != nil || prec != tc.prec {
			t.Errorf("FloatPrecLimbs(%d, %d) = %d, %v; want %d", tc.bits, tc.limbSize, prec, err, tc.prec)
			continue
		}
		if got := FloatPrecBits(prec, tc.limbSize); got != tc.usable {
			t.Errorf("FloatPrecBits(%d, %d) = %d, want %d", prec, tc.limbSize, got, tc.usable)
		}
	}
	if FloatPrecBits(0, 8) != 0 {
		t.Error("FloatPrecBits(0) should be 0")
	}
}
