package layout

import (
	"errors"
	"testing"

	gmperrors "github.com/wippyai/gmp-native/errors"
)

func TestCalculateRecord(t *testing.T) {
	c := NewCalculator(8)

	t.Run("empty", func(t *testing.T) {
		s := c.Record("empty", 0)
		if s.Size != 0 {
			t.Errorf("size: got %d, want 0", s.Size)
		}
		if s.Align != 1 {
			t.Errorf("align: got %d, want 1", s.Align)
		}
	})

	t.Run("mixed_alignment", func(t *testing.T) {
		s := c.Record("mixed", 0,
			FieldSpec{Name: "a", Size: 1, Align: 1},
			c.Int32("b"),
			FieldSpec{Name: "c", Size: 1, Align: 1},
		)
		if s.Size != 12 {
			t.Errorf("size: got %d, want 12", s.Size)
		}
		if s.Offset("b") != 4 || s.Offset("c") != 8 {
			t.Errorf("offsets: b=%d c=%d", s.Offset("b"), s.Offset("c"))
		}
	})

	t.Run("pointer_after_int", func(t *testing.T) {
		s := c.Record("p", 0, c.Int32("n"), c.Pointer("p"))
		if s.Offset("p") != 8 || s.Size != 16 || s.Align != 8 {
			t.Errorf("got p@%d size %d align %d", s.Offset("p"), s.Size, s.Align)
		}
	})

	t.Run("packed", func(t *testing.T) {
		s := c.Record("p", 4, c.Int32("n"), c.Pointer("p"))
		if s.Offset("p") != 4 || s.Size != 12 || s.Align != 4 {
			t.Errorf("got p@%d size %d align %d", s.Offset("p"), s.Size, s.Align)
		}
	})

	t.Run("field_order", func(t *testing.T) {
		s := c.Record("o", 0, c.Int32("z"), c.Int32("a"), c.Pointer("m"))
		fields := s.Fields()
		want := []string{"z", "a", "m"}
		for i, f := range fields {
			if f.Name != want[i] {
				t.Errorf("field %d = %s, want %s", i, f.Name, want[i])
			}
		}
	})

	t.Run("unknown_field_panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("Offset of unknown field did not panic")
			}
		}()
		s := c.Record("x", 0, c.Int32("a"))
		_ = s.Offset("nope")
	})
}

func TestAlignTo(t *testing.T) {
	tests := []struct {
		offset, align, want uint64
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{5, 8, 8},
		{17, 16, 32},
		{7, 0, 7},
		{7, 1, 7},
	}
	for _, tc := range tests {
		if got := AlignTo(tc.offset, tc.align); got != tc.want {
			t.Errorf("AlignTo(%d, %d) = %d, want %d", tc.offset, tc.align, got, tc.want)
		}
	}
}

func TestHandleLayouts(t *testing.T) {
	tests := []struct {
		ptrSize uint64

		intLimbs, intSize    uint64
		ratDen, ratSize      uint64
		floatExp, floatLimbs uint64
		floatSize            uint64
		randSize             uint64
	}{
		{
			ptrSize:  4,
			intLimbs: 8, intSize: 12,
			ratDen: 12, ratSize: 24,
			floatExp: 8, floatLimbs: 12,
			floatSize: 16,
			randSize:  20,
		},
		{
			ptrSize:  8,
			intLimbs: 8, intSize: 16,
			ratDen: 16, ratSize: 32,
			floatExp: 8, floatLimbs: 12,
			floatSize: 20,
			randSize:  32,
		},
	}

	for _, tc := range tests {
		l, err := For(tc.ptrSize)
		if err != nil {
			t.Fatalf("For(%d): %v", tc.ptrSize, err)
		}
		w := tc.ptrSize

		if l.LimbSize != w || l.PtrSize != w {
			t.Errorf("w=%d: limb size %d ptr size %d", w, l.LimbSize, l.PtrSize)
		}

		if got := l.Int.Offset(FieldAlloc); got != 0 {
			t.Errorf("w=%d: int alloc @%d", w, got)
		}
		if got := l.Int.Offset(FieldSize); got != 4 {
			t.Errorf("w=%d: int size @%d", w, got)
		}
		if got := l.Int.Offset(FieldLimbs); got != tc.intLimbs {
			t.Errorf("w=%d: int limbs @%d, want %d", w, got, tc.intLimbs)
		}
		if l.Int.Size != tc.intSize || l.Int.Size != 8+w {
			t.Errorf("w=%d: int size %d, want %d", w, l.Int.Size, tc.intSize)
		}

		if got := l.Rat.Offset(FieldNum); got != 0 {
			t.Errorf("w=%d: rat num @%d", w, got)
		}
		if got := l.Rat.Offset(FieldDen); got != tc.ratDen || got != 8+w {
			t.Errorf("w=%d: rat den @%d, want %d", w, got, 8+w)
		}
		if l.Rat.Size != tc.ratSize || l.Rat.Size != 2*l.Int.Size {
			t.Errorf("w=%d: rat size %d", w, l.Rat.Size)
		}

		if got := l.Float.Offset(FieldPrec); got != 0 {
			t.Errorf("w=%d: float prec @%d", w, got)
		}
		if got := l.Float.Offset(FieldSize); got != 4 {
			t.Errorf("w=%d: float size @%d", w, got)
		}
		if got := l.Float.Offset(FieldExp); got != tc.floatExp {
			t.Errorf("w=%d: float exp @%d", w, got)
		}
		if got := l.Float.Offset(FieldLimbs); got != tc.floatLimbs {
			t.Errorf("w=%d: float limbs @%d, want 12", w, got)
		}
		if l.Float.Size != tc.floatSize || l.Float.Size != 12+w {
			t.Errorf("w=%d: float size %d", w, l.Float.Size)
		}

		if l.RandState.Size != tc.randSize {
			t.Errorf("w=%d: randstate size %d, want %d", w, l.RandState.Size, tc.randSize)
		}

		for _, s := range []Struct{l.Int, l.Float} {
			f, ok := s.Field(FieldLimbs)
			if !ok || f.Size != w {
				t.Errorf("w=%d: %s limb pointer width %d", w, s.Name, f.Size)
			}
		}
	}
}

func TestFor_Cached(t *testing.T) {
	a, _ := For(8)
	b, _ := For(8)
	if a.Int.Size != b.Int.Size || a.Rat.Offset(FieldDen) != b.Rat.Offset(FieldDen) {
		t.Error("cached layouts differ")
	}
}

func TestFor_InvalidPointerSize(t *testing.T) {
	for _, w := range []uint64{0, 2, 16} {
		_, err := For(w)
		if !errors.Is(err, gmperrors.ErrInvalidArgument) {
			t.Errorf("For(%d): err = %v", w, err)
		}
	}

	defer func() {
		if recover() == nil {
			t.Error("MustFor(3) did not panic")
		}
	}()
	MustFor(3)
}
