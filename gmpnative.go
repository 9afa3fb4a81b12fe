package gmpnative

import "context"

// Ptr is an address in foreign memory. Zero is the null pointer.
type Ptr uint64

// IsNull reports whether p is the null pointer.
func (p Ptr) IsNull() bool { return p == 0 }

// Add returns p advanced by off bytes.
func (p Ptr) Add(off uint64) Ptr { return p + Ptr(off) }

// Memory represents foreign memory addressed by Ptr.
// All multi-byte accessors are little-endian.
type Memory interface {
	Read(ptr Ptr, length uint64) ([]byte, error)
	Write(ptr Ptr, data []byte) error
	ReadU8(ptr Ptr) (uint8, error)
	ReadU16(ptr Ptr) (uint16, error)
	ReadU32(ptr Ptr) (uint32, error)
	ReadU64(ptr Ptr) (uint64, error)
	WriteU8(ptr Ptr, value uint8) error
	WriteU16(ptr Ptr, value uint16) error
	WriteU32(ptr Ptr, value uint32) error
	WriteU64(ptr Ptr, value uint64) error
}

// Allocator allocates blocks of foreign memory.
type Allocator interface {
	Alloc(size uint64) (Ptr, error)
	Free(ptr Ptr)
	Realloc(ptr Ptr, oldSize, newSize uint64) (Ptr, error)
}

// Library invokes native symbols with raw word arguments.
type Library interface {
	Call(ctx context.Context, symbol string, args ...uint64) ([]uint64, error)
}
