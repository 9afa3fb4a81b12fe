package foreign

import (
	"errors"
	"math"
	"testing"

	gmperrors "github.com/wippyai/gmp-native/errors"
)

func TestNewSpace_Validation(t *testing.T) {
	a := NewArena(PtrSize64, 0)

	if _, err := NewSpace(nil, a, 8); !errors.Is(err, gmperrors.ErrInvalidArgument) {
		t.Errorf("nil memory: err = %v", err)
	}
	if _, err := NewSpace(a, nil, 8); !errors.Is(err, gmperrors.ErrInvalidArgument) {
		t.Errorf("nil allocator: err = %v", err)
	}
	for _, w := range []uint64{0, 2, 6, 16} {
		if _, err := NewSpace(a, a, w); !errors.Is(err, gmperrors.ErrInvalidArgument) {
			t.Errorf("pointer size %d: err = %v", w, err)
		}
	}
	if _, err := NewSpace(a, a, 4); err != nil {
		t.Errorf("pointer size 4 rejected: %v", err)
	}
}

func TestSpace_Offset(t *testing.T) {
	tests := []struct {
		name    string
		ptrSize uint64
		p       Ptr
		off     uint64
		want    Ptr
		wantErr bool
	}{
		{"w4 in range", 4, 0x1000, 0x10, 0x1010, false},
		{"w4 at top", 4, math.MaxUint32 - 1, 1, math.MaxUint32, false},
		{"w4 overflow", 4, math.MaxUint32 - 1, 2, 0, true},
		{"w4 ptr beyond range", 4, 1 << 32, 0, 0, true},
		{"w8 large", 8, 1 << 40, 1 << 20, 1<<40 + 1<<20, false},
		{"w8 overflow", 8, math.MaxUint64, 1, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, _, err := NewArenaSpace(tc.ptrSize)
			if err != nil {
				t.Fatal(err)
			}
			got, err := s.Offset(tc.p, tc.off)
			if tc.wantErr {
				if !errors.Is(err, gmperrors.ErrOutOfRange) {
					t.Errorf("err = %v, want out_of_range", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Offset failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Offset = 0x%x, want 0x%x", got, tc.want)
			}
		})
	}
}

func TestSpace_WordWidth(t *testing.T) {
	for _, w := range []uint64{PtrSize32, PtrSize64} {
		s, _, _ := NewArenaSpace(w)
		p, err := s.Calloc(16)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Mem.WriteU64(p, math.MaxUint64); err != nil {
			t.Fatal(err)
		}
		if err := s.WritePtr(p, 0x1234); err != nil {
			t.Fatal(err)
		}
		got, err := s.ReadPtr(p)
		if err != nil {
			t.Fatal(err)
		}
		if got != 0x1234 {
			t.Errorf("w=%d: ReadPtr = 0x%x", w, got)
		}
		// Bytes past the pointer width are untouched.
		hi, _ := s.Mem.ReadU8(p + Ptr(w))
		if w == PtrSize32 && hi != 0xff {
			t.Errorf("w=4: WritePtr clobbered byte %d", w)
		}
	}

	s, _, _ := NewArenaSpace(PtrSize32)
	p, _ := s.Calloc(8)
	if err := s.WriteWord(p, 1<<32); !errors.Is(err, gmperrors.ErrOverflow) {
		t.Errorf("WriteWord overflow: err = %v", err)
	}
}

func TestSpace_Int32(t *testing.T) {
	s, _, _ := NewArenaSpace(PtrSize64)
	p, _ := s.Calloc(4)
	if err := s.WriteInt32(p, -7); err != nil {
		t.Fatal(err)
	}
	v, err := s.ReadInt32(p)
	if err != nil || v != -7 {
		t.Errorf("ReadInt32 = %d, %v", v, err)
	}
}

func TestSpace_ReleaseIdempotent(t *testing.T) {
	s, a, _ := NewArenaSpace(PtrSize64)
	p, _ := s.Malloc(32)

	s.Release(&p)
	if p != 0 {
		t.Errorf("Release did not null the pointer: 0x%x", p)
	}
	s.Release(&p)
	s.Release(nil)

	st := a.Stats()
	if st.Frees != 1 || st.LiveBlocks != 0 {
		t.Errorf("stats = %+v", st)
	}
}

func TestSpace_CString(t *testing.T) {
	s, a, _ := NewArenaSpace(PtrSize32)

	p, err := s.CString("12345")
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := s.Mem.Read(p, 6)
	if string(raw) != "12345\x00" {
		t.Errorf("raw = %q", raw)
	}
	got, err := s.ReadCString(p)
	if err != nil || got != "12345" {
		t.Errorf("ReadCString = %q, %v", got, err)
	}

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a' + byte(i%26)
	}
	lp, err := s.CString(string(long))
	if err != nil {
		t.Fatal(err)
	}
	got, err = s.ReadCString(lp)
	if err != nil || got != string(long) {
		t.Errorf("long ReadCString mismatch: %v", err)
	}

	before := a.Stats().Allocs
	for _, bad := range []string{"12é3", "1\x002"} {
		if _, err := s.CString(bad); !errors.Is(err, gmperrors.ErrInvalidArgument) {
			t.Errorf("CString(%q): err = %v", bad, err)
		}
	}
	if a.Stats().Allocs != before {
		t.Error("rejected text allocated foreign memory")
	}

	if _, err := s.ReadCString(0); err == nil {
		t.Error("ReadCString(null) should fail")
	}
}

func TestSpace_ReadCStringAtEndOfMemory(t *testing.T) {
	s, _, _ := NewArenaSpace(PtrSize64)
	p, _ := s.Malloc(16)
	if err := s.WriteCString(p, "abc"); err != nil {
		t.Fatal(err)
	}
	// The block is the last one in the arena, so a 64-byte window would
	// run off the end; the reader must shrink it.
	got, err := s.ReadCString(p)
	if err != nil || got != "abc" {
		t.Errorf("ReadCString = %q, %v", got, err)
	}

	full, _ := s.Malloc(16)
	if err := s.Mem.Write(full, []byte("0123456789abcdef")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReadCString(full); err == nil {
		t.Error("unterminated string should fail")
	}
}

func TestCheckASCII(t *testing.T) {
	if err := CheckASCII("-0x1F/3 @ 10"); err != nil {
		t.Errorf("ASCII rejected: %v", err)
	}
	if err := CheckASCII(""); err != nil {
		t.Errorf("empty rejected: %v", err)
	}
	if err := CheckASCII("\xff"); err == nil {
		t.Error("0xff accepted")
	}
}
