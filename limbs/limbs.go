// Package limbs presents a foreign block as a little-endian array of
// machine-word limbs.
//
// A limb is as wide as a native pointer: 4 bytes on 32-bit targets and 8
// bytes on 64-bit targets. Element 0 is the least significant limb. The
// element count is signed; its sign flags the sign of the magnitude and is
// never iterated.
//
// Element access mirrors raw pointer arithmetic. Get and Set reject only
// negative indices and addresses the target cannot represent; they do not
// check the index against the element count.
package limbs

import (
	"encoding/binary"
	"iter"
	"math"

	"github.com/wippyai/gmp-native/ctypes"
	"github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/foreign"
)

// Array is a view of count limbs starting at a foreign address.
type Array struct {
	space *foreign.Space
	ptr   foreign.Ptr
	count ctypes.Size
	owned bool
}

// Alloc allocates a zeroed block holding count limbs.
func Alloc(space *foreign.Space, count int) (*Array, error) {
	if space == nil {
		return nil, errors.NilSource(errors.PhaseAlloc, "space")
	}
	n, err := ctypes.Convert[ctypes.Size](count)
	if err != nil || n < 0 {
		return nil, errors.New(errors.PhaseAlloc, errors.KindInvalidArgument).
			Value(count).
			Detail("invalid limb count %d", count).
			Build()
	}
	size, err := byteSize(space, uint64(n))
	if err != nil {
		return nil, err
	}
	p, err := space.Calloc(size)
	if err != nil {
		return nil, err
	}
	return &Array{space: space, ptr: p, count: n, owned: true}, nil
}

// View wraps count limbs at p without taking ownership of the block.
func View(space *foreign.Space, p foreign.Ptr, count ctypes.Size) *Array {
	return &Array{space: space, ptr: p, count: count}
}

// FromBytes packs src into the fewest limbs that hold it.
func FromBytes(space *foreign.Space, src []byte) (*Array, error) {
	if src == nil {
		return nil, errors.NilSource(errors.PhaseMarshal, "source byte array")
	}
	return pack(space, src)
}

// FromUint16s packs 16-bit words into limbs, least significant first.
func FromUint16s(space *foreign.Space, src []uint16) (*Array, error) {
	if src == nil {
		return nil, errors.NilSource(errors.PhaseMarshal, "source uint16 array")
	}
	raw := make([]byte, 0, len(src)*2)
	for _, v := range src {
		raw = binary.LittleEndian.AppendUint16(raw, v)
	}
	return pack(space, raw)
}

// FromUint32s packs 32-bit words into limbs, least significant first.
func FromUint32s(space *foreign.Space, src []uint32) (*Array, error) {
	if src == nil {
		return nil, errors.NilSource(errors.PhaseMarshal, "source uint32 array")
	}
	raw := make([]byte, 0, len(src)*4)
	for _, v := range src {
		raw = binary.LittleEndian.AppendUint32(raw, v)
	}
	return pack(space, raw)
}

// FromUint64s packs 64-bit words into limbs. On a 32-bit target each word
// spans two limbs.
func FromUint64s(space *foreign.Space, src []uint64) (*Array, error) {
	if src == nil {
		return nil, errors.NilSource(errors.PhaseMarshal, "source uint64 array")
	}
	raw := make([]byte, 0, len(src)*8)
	for _, v := range src {
		raw = binary.LittleEndian.AppendUint64(raw, v)
	}
	return pack(space, raw)
}

func pack(space *foreign.Space, raw []byte) (*Array, error) {
	if space == nil {
		return nil, errors.NilSource(errors.PhaseMarshal, "space")
	}
	w := space.PtrSize
	words := (uint64(len(raw)) + w - 1) / w
	n, err := ctypes.Convert[ctypes.Size](words)
	if err != nil {
		return nil, err
	}
	p, err := space.Malloc(words * w)
	if err != nil {
		return nil, err
	}
	if words > 0 {
		// The tail of the last word is not covered by raw.
		if err := space.Zero(p+foreign.Ptr((words-1)*w), w); err != nil {
			space.Alloc.Free(p)
			return nil, err
		}
		if err := space.Mem.Write(p, raw); err != nil {
			space.Alloc.Free(p)
			return nil, err
		}
	}
	return &Array{space: space, ptr: p, count: n, owned: true}, nil
}

func byteSize(space *foreign.Space, n uint64) (uint64, error) {
	if n > space.MaxAddr()/space.PtrSize {
		return 0, errors.Overflow(errors.PhaseAlloc, nil, n, "limb array size")
	}
	return n * space.PtrSize, nil
}

// Ptr returns the address of limb 0.
func (a *Array) Ptr() foreign.Ptr { return a.ptr }

// Count returns the signed element count.
func (a *Array) Count() ctypes.Size { return a.count }

// SetCount replaces the signed element count. The block is not resized.
func (a *Array) SetCount(n ctypes.Size) { a.count = n }

// Len returns the number of limbs, ignoring the sign of the count.
func (a *Array) Len() int { return a.count.Abs() }

// Owned reports whether Free releases the block.
func (a *Array) Owned() bool { return a.owned }

func (a *Array) addr(i int) (foreign.Ptr, error) {
	if i < 0 {
		return 0, errors.OutOfRange(errors.PhaseAccess, []string{"limbs"}, int64(i), "is negative")
	}
	w := a.space.PtrSize
	if uint64(i) > math.MaxUint64/w {
		return 0, errors.OutOfRange(errors.PhaseAccess, []string{"limbs"}, int64(i), "exceeds the address range")
	}
	return a.space.Offset(a.ptr, uint64(i)*w)
}

// Get reads limb i.
func (a *Array) Get(i int) (uint64, error) {
	p, err := a.addr(i)
	if err != nil {
		return 0, err
	}
	return a.space.ReadWord(p)
}

// Set writes limb i. On a 32-bit target v must fit in 32 bits.
func (a *Array) Set(i int, v uint64) error {
	p, err := a.addr(i)
	if err != nil {
		return err
	}
	if err := ctypes.CheckWidth(ctypes.Limb(v), a.space.PtrSize); err != nil {
		return err
	}
	return a.space.WriteWord(p, v)
}

// All yields (index, limb) for every limb in the array. The sequence stops
// early if a read fails; Words reports the error.
func (a *Array) All() iter.Seq2[int, uint64] {
	return func(yield func(int, uint64) bool) {
		n := a.Len()
		for i := 0; i < n; i++ {
			v, err := a.Get(i)
			if err != nil {
				return
			}
			if !yield(i, v) {
				return
			}
		}
	}
}

// Words reads every limb into a slice.
func (a *Array) Words() ([]uint64, error) {
	out := make([]uint64, a.Len())
	for i := range out {
		v, err := a.Get(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Bytes returns the little-endian bytes of every limb.
func (a *Array) Bytes() ([]byte, error) {
	n := uint64(a.Len())
	if n == 0 {
		return []byte{}, nil
	}
	size, err := byteSize(a.space, n)
	if err != nil {
		return nil, err
	}
	return a.space.Mem.Read(a.ptr, size)
}

// Resize grows or shrinks an owned block to n limbs. Existing limbs are
// preserved up to the smaller length and new limbs read as zero.
func (a *Array) Resize(n int) error {
	if !a.owned {
		return errors.InvalidArgument(errors.PhaseAlloc, "cannot resize a borrowed limb array")
	}
	count, err := ctypes.Convert[ctypes.Size](n)
	if err != nil || count < 0 {
		return errors.New(errors.PhaseAlloc, errors.KindInvalidArgument).
			Value(n).
			Detail("invalid limb count %d", n).
			Build()
	}
	oldSize, _ := byteSize(a.space, uint64(a.Len()))
	newSize, err := byteSize(a.space, uint64(count))
	if err != nil {
		return err
	}
	p, err := a.space.Realloc(a.ptr, oldSize, newSize)
	if err != nil {
		return err
	}
	if newSize > oldSize {
		if err := a.space.Zero(p+foreign.Ptr(oldSize), newSize-oldSize); err != nil {
			return err
		}
	}
	a.ptr = p
	if a.count < 0 {
		count = -count
	}
	a.count = count
	return nil
}

// Free releases an owned block and detaches the view. Calling Free again,
// or on a borrowed view, only detaches.
func (a *Array) Free() {
	if a.owned {
		a.space.Release(&a.ptr)
	}
	a.ptr = 0
	a.count = 0
	a.owned = false
}
