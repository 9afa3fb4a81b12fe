package foreign

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/gmp-native/errors"
)

// WrapMemory wraps a wazero api.Memory as 32-bit foreign memory.
func WrapMemory(mem api.Memory) Memory {
	if mem == nil {
		return nil
	}
	return &LinearMemory{Mem: mem}
}

// LinearMemory adapts wazero api.Memory to the Memory interface.
// Addresses above 4GiB are out of range.
type LinearMemory struct {
	Mem api.Memory
}

func offset32(p Ptr, n uint64) (uint32, error) {
	if uint64(p) > math.MaxUint32 || n > math.MaxUint32-uint64(p) {
		return 0, errors.New(errors.PhaseAccess, errors.KindOutOfRange).
			Value(uint64(p)).
			Detail("address 0x%x+%d outside 32-bit linear memory", uint64(p), n).
			Build()
	}
	return uint32(p), nil
}

func oob(op string, p Ptr, n uint64) error {
	return errors.New(errors.PhaseAccess, errors.KindOutOfRange).
		Value(uint64(p)).
		Detail("memory %s out of bounds: offset=%d, length=%d", op, uint64(p), n).
		Build()
}

// Read reads bytes from memory. The returned slice is a copy.
func (m *LinearMemory) Read(p Ptr, length uint64) ([]byte, error) {
	off, err := offset32(p, length)
	if err != nil {
		return nil, err
	}
	data, ok := m.Mem.Read(off, uint32(length))
	if !ok {
		return nil, oob("read", p, length)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write writes bytes to memory.
func (m *LinearMemory) Write(p Ptr, data []byte) error {
	off, err := offset32(p, uint64(len(data)))
	if err != nil {
		return err
	}
	if !m.Mem.Write(off, data) {
		return oob("write", p, uint64(len(data)))
	}
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *LinearMemory) ReadU8(p Ptr) (uint8, error) {
	off, err := offset32(p, 1)
	if err != nil {
		return 0, err
	}
	v, ok := m.Mem.ReadByte(off)
	if !ok {
		return 0, oob("read", p, 1)
	}
	return v, nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (m *LinearMemory) ReadU16(p Ptr) (uint16, error) {
	off, err := offset32(p, 2)
	if err != nil {
		return 0, err
	}
	v, ok := m.Mem.ReadUint16Le(off)
	if !ok {
		return 0, oob("read", p, 2)
	}
	return v, nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *LinearMemory) ReadU32(p Ptr) (uint32, error) {
	off, err := offset32(p, 4)
	if err != nil {
		return 0, err
	}
	v, ok := m.Mem.ReadUint32Le(off)
	if !ok {
		return 0, oob("read", p, 4)
	}
	return v, nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *LinearMemory) ReadU64(p Ptr) (uint64, error) {
	off, err := offset32(p, 8)
	if err != nil {
		return 0, err
	}
	v, ok := m.Mem.ReadUint64Le(off)
	if !ok {
		return 0, oob("read", p, 8)
	}
	return v, nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *LinearMemory) WriteU8(p Ptr, value uint8) error {
	off, err := offset32(p, 1)
	if err != nil {
		return err
	}
	if !m.Mem.WriteByte(off, value) {
		return oob("write", p, 1)
	}
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (m *LinearMemory) WriteU16(p Ptr, value uint16) error {
	off, err := offset32(p, 2)
	if err != nil {
		return err
	}
	if !m.Mem.WriteUint16Le(off, value) {
		return oob("write", p, 2)
	}
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *LinearMemory) WriteU32(p Ptr, value uint32) error {
	off, err := offset32(p, 4)
	if err != nil {
		return err
	}
	if !m.Mem.WriteUint32Le(off, value) {
		return oob("write", p, 4)
	}
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *LinearMemory) WriteU64(p Ptr, value uint64) error {
	off, err := offset32(p, 8)
	if err != nil {
		return err
	}
	if !m.Mem.WriteUint64Le(off, value) {
		return oob("write", p, 8)
	}
	return nil
}

// Size returns the current size of linear memory in bytes.
func (m *LinearMemory) Size() uint32 {
	return m.Mem.Size()
}

// GuestAllocator allocates inside a wasm guest through its exported
// allocation functions. Either ReallocFn (cabi_realloc signature
// (old, oldSize, align, newSize) -> ptr) or Malloc and FreeFn must be set.
type GuestAllocator struct {
	Ctx       context.Context
	ReallocFn api.Function
	Malloc    api.Function
	FreeFn    api.Function
	Align     uint32

	sizes    map[Ptr]uint64
	stackBuf [4]uint64
	mu       sync.Mutex
}

// WrapAllocator wraps a cabi_realloc export.
func WrapAllocator(ctx context.Context, realloc api.Function) *GuestAllocator {
	if realloc == nil {
		return nil
	}
	return &GuestAllocator{Ctx: ctx, ReallocFn: realloc, Align: 8, sizes: make(map[Ptr]uint64)}
}

// WrapMallocFree wraps a malloc/free export pair.
func WrapMallocFree(ctx context.Context, malloc, free api.Function) *GuestAllocator {
	if malloc == nil || free == nil {
		return nil
	}
	return &GuestAllocator{Ctx: ctx, Malloc: malloc, FreeFn: free, Align: 8, sizes: make(map[Ptr]uint64)}
}

// SetContext replaces the context used for guest calls.
func (a *GuestAllocator) SetContext(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Ctx = ctx
}

func (a *GuestAllocator) ctx() context.Context {
	if a.Ctx == nil {
		return context.Background()
	}
	return a.Ctx
}

// Alloc allocates size bytes in the guest.
func (a *GuestAllocator) Alloc(size uint64) (Ptr, error) {
	if size > math.MaxUint32 {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, fmt.Errorf("size exceeds 32-bit address space"))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var err error
	if a.ReallocFn != nil {
		a.stackBuf[0] = 0
		a.stackBuf[1] = 0
		a.stackBuf[2] = uint64(a.Align)
		a.stackBuf[3] = size
		err = a.ReallocFn.CallWithStack(a.ctx(), a.stackBuf[:4])
	} else {
		a.stackBuf[0] = size
		err = a.Malloc.CallWithStack(a.ctx(), a.stackBuf[:1])
	}
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, err)
	}
	p := Ptr(uint32(a.stackBuf[0]))
	if p == 0 {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, fmt.Errorf("guest allocator returned null"))
	}
	a.sizes[p] = size
	return p, nil
}

// Free releases a guest block. Null pointers are ignored.
func (a *GuestAllocator) Free(p Ptr) {
	if p == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	size := a.sizes[p]
	delete(a.sizes, p)

	var err error
	if a.ReallocFn != nil {
		a.stackBuf[0] = uint64(p)
		a.stackBuf[1] = size
		a.stackBuf[2] = uint64(a.Align)
		a.stackBuf[3] = 0
		err = a.ReallocFn.CallWithStack(a.ctx(), a.stackBuf[:4])
	} else {
		a.stackBuf[0] = uint64(p)
		err = a.FreeFn.CallWithStack(a.ctx(), a.stackBuf[:1])
	}
	if err != nil {
		Logger().Warn("guest free failed",
			zap.Uint64("ptr", uint64(p)),
			zap.Uint64("size", size),
			zap.Error(err))
	}
}

// Reallocate resizes a guest block. cabi_realloc moves the contents itself;
// the malloc/free pair is emulated by copy through mem.
func (a *GuestAllocator) Reallocate(mem Memory, p Ptr, oldSize, newSize uint64) (Ptr, error) {
	if p == 0 {
		return a.Alloc(newSize)
	}
	if a.ReallocFn != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.stackBuf[0] = uint64(p)
		a.stackBuf[1] = oldSize
		a.stackBuf[2] = uint64(a.Align)
		a.stackBuf[3] = newSize
		if err := a.ReallocFn.CallWithStack(a.ctx(), a.stackBuf[:4]); err != nil {
			return 0, errors.AllocationFailed(errors.PhaseAlloc, newSize, err)
		}
		np := Ptr(uint32(a.stackBuf[0]))
		if np == 0 {
			return 0, errors.AllocationFailed(errors.PhaseAlloc, newSize, fmt.Errorf("guest allocator returned null"))
		}
		delete(a.sizes, p)
		a.sizes[np] = newSize
		return np, nil
	}

	np, err := a.Alloc(newSize)
	if err != nil {
		return 0, err
	}
	if n := min(oldSize, newSize); n > 0 {
		data, err := mem.Read(p, n)
		if err != nil {
			a.Free(np)
			return 0, err
		}
		if err := mem.Write(np, data); err != nil {
			a.Free(np)
			return 0, err
		}
	}
	a.Free(p)
	return np, nil
}

// Outstanding returns the number of guest blocks not yet freed.
func (a *GuestAllocator) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sizes)
}

// boundAllocator pairs a GuestAllocator with the memory it allocates in so
// that it satisfies Allocator including Realloc.
type boundAllocator struct {
	*GuestAllocator
	mem Memory
}

func (b boundAllocator) Realloc(p Ptr, oldSize, newSize uint64) (Ptr, error) {
	return b.GuestAllocator.Reallocate(b.mem, p, oldSize, newSize)
}

// NewGuestSpace returns a 32-bit Space over wasm linear memory.
func NewGuestSpace(mem api.Memory, alloc *GuestAllocator) (*Space, error) {
	if mem == nil {
		return nil, errors.NilSource(errors.PhaseConfig, "linear memory")
	}
	if alloc == nil {
		return nil, errors.NilSource(errors.PhaseConfig, "guest allocator")
	}
	lm := WrapMemory(mem)
	return NewSpace(lm, boundAllocator{GuestAllocator: alloc, mem: lm}, PtrSize32)
}
