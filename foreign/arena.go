package foreign

import (
	"encoding/binary"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/gmp-native/errors"
)

const (
	// arenaBase keeps the first arena block away from the null pointer.
	arenaBase = 0x1000
	// arenaGranule is the allocation granule and block alignment.
	arenaGranule = 16
)

// ArenaStats counts allocator activity.
type ArenaStats struct {
	Allocs     uint64
	Frees      uint64
	Reallocs   uint64
	LiveBlocks int
	LiveBytes  uint64
}

type span struct {
	ptr  Ptr
	size uint64
}

// Arena is a Go-backed foreign address space. It emulates a native heap of
// either pointer width so that layouts for both widths can be exercised in
// one process. Blocks are zeroed on allocation.
type Arena struct {
	data    []byte
	live    map[Ptr]uint64
	free    []span
	stats   ArenaStats
	limit   uint64
	ptrSize uint64
	mu      sync.Mutex
}

// NewArena creates an empty arena for the given pointer width.
// limit caps the total address space in bytes; 0 means the platform maximum.
func NewArena(ptrSize, limit uint64) *Arena {
	return &Arena{
		live:    make(map[Ptr]uint64),
		limit:   limit,
		ptrSize: ptrSize,
	}
}

// NewArenaSpace returns a Space backed by a fresh arena.
func NewArenaSpace(ptrSize uint64) (*Space, *Arena, error) {
	a := NewArena(ptrSize, 0)
	s, err := NewSpace(a, a, ptrSize)
	if err != nil {
		return nil, nil, err
	}
	return s, a, nil
}

// PtrSize returns the pointer width the arena emulates.
func (a *Arena) PtrSize() uint64 {
	return a.ptrSize
}

// Stats returns a snapshot of allocator counters.
func (a *Arena) Stats() ArenaStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Live reports whether p is the start of a live block.
func (a *Arena) Live(p Ptr) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.live[p]
	return ok
}

func (a *Arena) maxSpan() uint64 {
	top := uint64(1) << 32
	if a.ptrSize == PtrSize64 {
		top = 1 << 40
	}
	if a.limit > arenaBase && a.limit < top {
		top = a.limit
	}
	return top - arenaBase
}

// Alloc reserves size bytes. A zero size still yields a distinct block.
func (a *Arena) Alloc(size uint64) (Ptr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, err := a.allocLocked(size)
	if err != nil {
		return 0, err
	}
	a.stats.Allocs++
	return p, nil
}

func (a *Arena) allocLocked(size uint64) (Ptr, error) {
	rounded := roundGranule(size)
	if rounded < size {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, nil)
	}

	for i, f := range a.free {
		if f.size < rounded {
			continue
		}
		p := f.ptr
		if f.size == rounded {
			a.free = append(a.free[:i], a.free[i+1:]...)
		} else {
			a.free[i] = span{ptr: f.ptr + Ptr(rounded), size: f.size - rounded}
		}
		clear(a.bytes(p, rounded))
		a.track(p, size)
		return p, nil
	}

	used := uint64(len(a.data))
	if rounded > a.maxSpan()-used {
		return 0, errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Value(size).
			Detail("arena exhausted: %d bytes requested, %d in use", size, used).
			Build()
	}
	a.data = append(a.data, make([]byte, rounded)...)
	p := Ptr(arenaBase + used)
	a.track(p, size)
	return p, nil
}

func (a *Arena) track(p Ptr, size uint64) {
	a.live[p] = size
	a.stats.LiveBlocks++
	a.stats.LiveBytes += size
}

// Free releases a block. Null and unknown pointers are ignored.
func (a *Arena) Free(p Ptr) {
	if p == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.live[p]; ok {
		a.stats.Frees++
	}
	a.freeLocked(p)
}

func (a *Arena) freeLocked(p Ptr) {
	size, ok := a.live[p]
	if !ok {
		Logger().Warn("arena free of unknown block", zap.Uint64("ptr", uint64(p)))
		return
	}
	delete(a.live, p)
	a.stats.LiveBlocks--
	a.stats.LiveBytes -= size
	a.release(span{ptr: p, size: roundGranule(size)})
}

// release returns a span to the free list, merging neighbours.
func (a *Arena) release(s span) {
	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].ptr > s.ptr })
	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = s

	if i+1 < len(a.free) && a.free[i].ptr+Ptr(a.free[i].size) == a.free[i+1].ptr {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].ptr+Ptr(a.free[i-1].size) == a.free[i].ptr {
		a.free[i-1].size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
}

// Realloc moves a block to one of newSize bytes, preserving its prefix.
// A null pointer behaves like Alloc. On failure the old block is untouched.
func (a *Arena) Realloc(p Ptr, oldSize, newSize uint64) (Ptr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p == 0 {
		np, err := a.allocLocked(newSize)
		if err != nil {
			return 0, err
		}
		a.stats.Allocs++
		return np, nil
	}

	size, ok := a.live[p]
	if !ok {
		return 0, errors.InvalidArgument(errors.PhaseAlloc, "realloc of unknown block")
	}

	np, err := a.allocLocked(newSize)
	if err != nil {
		return 0, err
	}
	n := min(oldSize, size, newSize)
	copy(a.bytes(np, n), a.bytes(p, n))
	a.freeLocked(p)
	a.stats.Reallocs++
	return np, nil
}

func roundGranule(size uint64) uint64 {
	if size == 0 {
		return arenaGranule
	}
	return (size + arenaGranule - 1) &^ (arenaGranule - 1)
}

// bytes returns the backing slice for [p, p+n). Callers hold mu and have
// validated the range.
func (a *Arena) bytes(p Ptr, n uint64) []byte {
	off := uint64(p) - arenaBase
	return a.data[off : off+n]
}

func (a *Arena) window(p Ptr, n uint64) ([]byte, error) {
	if uint64(p) < arenaBase {
		return nil, a.outOfRange(p, n)
	}
	off := uint64(p) - arenaBase
	if off > uint64(len(a.data)) || n > uint64(len(a.data))-off {
		return nil, a.outOfRange(p, n)
	}
	return a.data[off : off+n], nil
}

func (a *Arena) outOfRange(p Ptr, n uint64) error {
	return errors.New(errors.PhaseAccess, errors.KindOutOfRange).
		Value(uint64(p)).
		Detail("arena access out of bounds: ptr=0x%x, length=%d", uint64(p), n).
		Build()
}

// Read copies length bytes starting at p.
func (a *Arena) Read(p Ptr, length uint64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, err := a.window(p, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, w)
	return out, nil
}

// Write copies data to p.
func (a *Arena) Write(p Ptr, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, err := a.window(p, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(w, data)
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (a *Arena) ReadU8(p Ptr) (uint8, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, err := a.window(p, 1)
	if err != nil {
		return 0, err
	}
	return w[0], nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (a *Arena) ReadU16(p Ptr) (uint16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, err := a.window(p, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(w), nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (a *Arena) ReadU32(p Ptr) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, err := a.window(p, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(w), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (a *Arena) ReadU64(p Ptr) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, err := a.window(p, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(w), nil
}

// WriteU8 writes an unsigned 8-bit value.
func (a *Arena) WriteU8(p Ptr, value uint8) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, err := a.window(p, 1)
	if err != nil {
		return err
	}
	w[0] = value
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (a *Arena) WriteU16(p Ptr, value uint16) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, err := a.window(p, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(w, value)
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (a *Arena) WriteU32(p Ptr, value uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, err := a.window(p, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(w, value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (a *Arena) WriteU64(p Ptr, value uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, err := a.window(p, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(w, value)
	return nil
}
