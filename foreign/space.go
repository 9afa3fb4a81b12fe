package foreign

import (
	"math"

	"go.uber.org/zap"

	gmpnative "github.com/wippyai/gmp-native"
	"github.com/wippyai/gmp-native/errors"
)

type (
	Ptr       = gmpnative.Ptr
	Memory    = gmpnative.Memory
	Allocator = gmpnative.Allocator
)

// Supported native pointer widths in bytes.
const (
	PtrSize32 = 4
	PtrSize64 = 8
)

// Space is the capability to touch foreign memory: a memory view, the
// allocator that owns its blocks, and the native pointer width both were
// built for. Only code that emulates native layouts should hold one.
type Space struct {
	Mem     Memory
	Alloc   Allocator
	PtrSize uint64
}

// NewSpace validates the pointer width and returns a Space.
func NewSpace(mem Memory, alloc Allocator, ptrSize uint64) (*Space, error) {
	if mem == nil {
		return nil, errors.NilSource(errors.PhaseConfig, "memory")
	}
	if alloc == nil {
		return nil, errors.NilSource(errors.PhaseConfig, "allocator")
	}
	if ptrSize != PtrSize32 && ptrSize != PtrSize64 {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Value(ptrSize).
			Detail("pointer size must be 4 or 8, got %d", ptrSize).
			Build()
	}
	return &Space{Mem: mem, Alloc: alloc, PtrSize: ptrSize}, nil
}

// MaxAddr returns the highest address representable with the native pointer width.
func (s *Space) MaxAddr() uint64 {
	if s.PtrSize == PtrSize32 {
		return math.MaxUint32
	}
	return math.MaxUint64
}

// Offset returns p+off, failing if the result leaves the address range.
func (s *Space) Offset(p Ptr, off uint64) (Ptr, error) {
	if uint64(p) > s.MaxAddr() || off > s.MaxAddr()-uint64(p) {
		return 0, errors.New(errors.PhaseAccess, errors.KindOutOfRange).
			Value(off).
			Detail("address 0x%x + %d exceeds %d-bit address range", uint64(p), off, s.PtrSize*8).
			Build()
	}
	return p + Ptr(off), nil
}

// ReadWord reads an unsigned pointer-width value.
func (s *Space) ReadWord(p Ptr) (uint64, error) {
	if s.PtrSize == PtrSize32 {
		v, err := s.Mem.ReadU32(p)
		return uint64(v), err
	}
	return s.Mem.ReadU64(p)
}

// WriteWord writes an unsigned pointer-width value.
func (s *Space) WriteWord(p Ptr, v uint64) error {
	if s.PtrSize == PtrSize32 {
		if v > math.MaxUint32 {
			return errors.Overflow(errors.PhaseMarshal, nil, v, "32-bit word")
		}
		return s.Mem.WriteU32(p, uint32(v))
	}
	return s.Mem.WriteU64(p, v)
}

// ReadPtr reads a native pointer stored at p.
func (s *Space) ReadPtr(p Ptr) (Ptr, error) {
	v, err := s.ReadWord(p)
	return Ptr(v), err
}

// WritePtr stores a native pointer at p.
func (s *Space) WritePtr(p Ptr, v Ptr) error {
	return s.WriteWord(p, uint64(v))
}

// ReadInt32 reads a signed 32-bit value.
func (s *Space) ReadInt32(p Ptr) (int32, error) {
	v, err := s.Mem.ReadU32(p)
	return int32(v), err
}

// WriteInt32 writes a signed 32-bit value.
func (s *Space) WriteInt32(p Ptr, v int32) error {
	return s.Mem.WriteU32(p, uint32(v))
}

// Malloc allocates size bytes. Allocation failures are returned as
// KindAllocation and never retried.
func (s *Space) Malloc(size uint64) (Ptr, error) {
	p, err := s.Alloc.Alloc(size)
	if err != nil {
		Logger().Warn("foreign allocation failed", zap.Uint64("size", size), zap.Error(err))
		if errors.HasKind(err, errors.KindAllocation) {
			return 0, err
		}
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, err)
	}
	if p == 0 && size > 0 {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, nil)
	}
	return p, nil
}

// Calloc allocates size bytes and zeroes them.
func (s *Space) Calloc(size uint64) (Ptr, error) {
	p, err := s.Malloc(size)
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return p, nil
	}
	if err := s.Mem.Write(p, make([]byte, size)); err != nil {
		s.Alloc.Free(p)
		return 0, err
	}
	return p, nil
}

// Realloc resizes a block, preserving min(oldSize, newSize) bytes.
func (s *Space) Realloc(p Ptr, oldSize, newSize uint64) (Ptr, error) {
	np, err := s.Alloc.Realloc(p, oldSize, newSize)
	if err != nil {
		if errors.HasKind(err, errors.KindAllocation) {
			return 0, err
		}
		return 0, errors.AllocationFailed(errors.PhaseAlloc, newSize, err)
	}
	return np, nil
}

// Release frees *p and sets it to null. Releasing a null pointer is a no-op.
func (s *Space) Release(p *Ptr) {
	if p == nil || *p == 0 {
		return
	}
	s.Alloc.Free(*p)
	*p = 0
}

// Zero fills n bytes at p with zeroes.
func (s *Space) Zero(p Ptr, n uint64) error {
	if n == 0 {
		return nil
	}
	return s.Mem.Write(p, make([]byte, n))
}
