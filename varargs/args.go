package varargs

import (
	"math"

	"github.com/wippyai/gmp-native/ctypes"
	"github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/foreign"
)

// Kind identifies an argument variant.
type Kind uint8

const (
	KindChar Kind = iota
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat64
	KindSizeT
	KindPointer
	KindString
	KindHandle
	KindOutInt8
	KindOutInt16
	KindOutInt32
	KindOutInt64
	KindOutFloat64
	KindOutSizeT
	KindOutPointer
	KindOutString
)

var kindNames = [...]string{
	KindChar:       "char",
	KindInt8:       "int8",
	KindUint8:      "uint8",
	KindInt16:      "int16",
	KindUint16:     "uint16",
	KindInt32:      "int32",
	KindUint32:     "uint32",
	KindInt64:      "int64",
	KindUint64:     "uint64",
	KindFloat64:    "double",
	KindSizeT:      "size_t",
	KindPointer:    "pointer",
	KindString:     "string",
	KindHandle:     "handle",
	KindOutInt8:    "out int8",
	KindOutInt16:   "out int16",
	KindOutInt32:   "out int32",
	KindOutInt64:   "out int64",
	KindOutFloat64: "out double",
	KindOutSizeT:   "out size_t",
	KindOutPointer: "out pointer",
	KindOutString:  "out string",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Out reports whether the callee writes the argument back.
func (k Kind) Out() bool { return k >= KindOutInt8 }

// Arg is one variadic argument. The variants are the types in this
// package; each knows its own widths and how it is stored and read back.
type Arg interface {
	Kind() Kind
	// check validates the value for pointer width w.
	check(w uint64) error
	// widths returns the slot width and the data region bytes.
	widths(w uint64) (slot, data uint64)
	// store writes the slot and, for indirect kinds, the data cell.
	store(s *foreign.Space, slot, data foreign.Ptr) error
	// load reads an out-parameter's data cell back.
	load(s *foreign.Space, data foreign.Ptr) error
}

// Char is a single C char.
type Char byte

// Int8 is a signed char.
type Int8 int8

// Uint8 is an unsigned char.
type Uint8 uint8

// Int16 is a short.
type Int16 int16

// Uint16 is an unsigned short.
type Uint16 uint16

// Int32 is an int.
type Int32 int32

// Uint32 is an unsigned int.
type Uint32 uint32

// Int64 is a long long.
type Int64 int64

// Uint64 is an unsigned long long.
type Uint64 uint64

// Float64 is a double.
type Float64 float64

// SizeT is a size_t, as wide as a pointer.
type SizeT uint64

// Pointer is a raw foreign address.
type Pointer foreign.Ptr

func (Char) Kind() Kind    { return KindChar }
func (Int8) Kind() Kind    { return KindInt8 }
func (Uint8) Kind() Kind   { return KindUint8 }
func (Int16) Kind() Kind   { return KindInt16 }
func (Uint16) Kind() Kind  { return KindUint16 }
func (Int32) Kind() Kind   { return KindInt32 }
func (Uint32) Kind() Kind  { return KindUint32 }
func (Int64) Kind() Kind   { return KindInt64 }
func (Uint64) Kind() Kind  { return KindUint64 }
func (Float64) Kind() Kind { return KindFloat64 }
func (SizeT) Kind() Kind   { return KindSizeT }
func (Pointer) Kind() Kind { return KindPointer }

func (Char) check(uint64) error    { return nil }
func (Int8) check(uint64) error    { return nil }
func (Uint8) check(uint64) error   { return nil }
func (Int16) check(uint64) error   { return nil }
func (Uint16) check(uint64) error  { return nil }
func (Int32) check(uint64) error   { return nil }
func (Uint32) check(uint64) error  { return nil }
func (Int64) check(uint64) error   { return nil }
func (Uint64) check(uint64) error  { return nil }
func (Float64) check(uint64) error { return nil }

func (v SizeT) check(w uint64) error   { return ctypes.CheckWidth(ctypes.SizeT(v), w) }
func (v Pointer) check(w uint64) error { return ctypes.CheckWidth(ctypes.SizeT(v), w) }

func (Char) widths(uint64) (uint64, uint64)    { return 1, 0 }
func (Int8) widths(uint64) (uint64, uint64)    { return 1, 0 }
func (Uint8) widths(uint64) (uint64, uint64)   { return 1, 0 }
func (Int16) widths(uint64) (uint64, uint64)   { return 2, 0 }
func (Uint16) widths(uint64) (uint64, uint64)  { return 2, 0 }
func (Int32) widths(uint64) (uint64, uint64)   { return 4, 0 }
func (Uint32) widths(uint64) (uint64, uint64)  { return 4, 0 }
func (Int64) widths(uint64) (uint64, uint64)   { return 8, 0 }
func (Uint64) widths(uint64) (uint64, uint64)  { return 8, 0 }
func (Float64) widths(uint64) (uint64, uint64) { return 8, 0 }
func (SizeT) widths(w uint64) (uint64, uint64)   { return w, 0 }
func (Pointer) widths(w uint64) (uint64, uint64) { return w, 0 }

func (v Char) store(s *foreign.Space, slot, _ foreign.Ptr) error   { return s.Mem.WriteU8(slot, byte(v)) }
func (v Int8) store(s *foreign.Space, slot, _ foreign.Ptr) error   { return s.Mem.WriteU8(slot, uint8(v)) }
func (v Uint8) store(s *foreign.Space, slot, _ foreign.Ptr) error  { return s.Mem.WriteU8(slot, uint8(v)) }
func (v Int16) store(s *foreign.Space, slot, _ foreign.Ptr) error  { return s.Mem.WriteU16(slot, uint16(v)) }
func (v Uint16) store(s *foreign.Space, slot, _ foreign.Ptr) error { return s.Mem.WriteU16(slot, uint16(v)) }
func (v Int32) store(s *foreign.Space, slot, _ foreign.Ptr) error  { return s.Mem.WriteU32(slot, uint32(v)) }
func (v Uint32) store(s *foreign.Space, slot, _ foreign.Ptr) error { return s.Mem.WriteU32(slot, uint32(v)) }
func (v Int64) store(s *foreign.Space, slot, _ foreign.Ptr) error  { return s.Mem.WriteU64(slot, uint64(v)) }
func (v Uint64) store(s *foreign.Space, slot, _ foreign.Ptr) error { return s.Mem.WriteU64(slot, uint64(v)) }
func (v Float64) store(s *foreign.Space, slot, _ foreign.Ptr) error {
	return s.Mem.WriteU64(slot, math.Float64bits(float64(v)))
}
func (v SizeT) store(s *foreign.Space, slot, _ foreign.Ptr) error   { return s.WriteWord(slot, uint64(v)) }
func (v Pointer) store(s *foreign.Space, slot, _ foreign.Ptr) error { return s.WritePtr(slot, foreign.Ptr(v)) }

func (Char) load(*foreign.Space, foreign.Ptr) error    { return nil }
func (Int8) load(*foreign.Space, foreign.Ptr) error    { return nil }
func (Uint8) load(*foreign.Space, foreign.Ptr) error   { return nil }
func (Int16) load(*foreign.Space, foreign.Ptr) error   { return nil }
func (Uint16) load(*foreign.Space, foreign.Ptr) error  { return nil }
func (Int32) load(*foreign.Space, foreign.Ptr) error   { return nil }
func (Uint32) load(*foreign.Space, foreign.Ptr) error  { return nil }
func (Int64) load(*foreign.Space, foreign.Ptr) error   { return nil }
func (Uint64) load(*foreign.Space, foreign.Ptr) error  { return nil }
func (Float64) load(*foreign.Space, foreign.Ptr) error { return nil }
func (SizeT) load(*foreign.Space, foreign.Ptr) error   { return nil }
func (Pointer) load(*foreign.Space, foreign.Ptr) error { return nil }

// String is a NUL-terminated ASCII string copied into the data region.
type String string

func (String) Kind() Kind { return KindString }

func (v String) check(uint64) error {
	return foreign.CheckASCII(string(v))
}

func (v String) widths(w uint64) (uint64, uint64) { return w, uint64(len(v)) + 1 }

func (v String) store(s *foreign.Space, slot, data foreign.Ptr) error {
	if err := s.WritePtr(slot, data); err != nil {
		return err
	}
	return s.WriteCString(data, string(v))
}

func (String) load(*foreign.Space, foreign.Ptr) error { return nil }

// Addresser is anything with a foreign address, such as an mp handle.
type Addresser interface {
	Addr() foreign.Ptr
}

// Handle passes a library object by address.
type Handle struct {
	Value Addresser
}

func (Handle) Kind() Kind { return KindHandle }

func (v Handle) check(uint64) error {
	if v.Value == nil || v.Value.Addr() == 0 {
		return errors.NilSource(errors.PhaseLayout, "handle")
	}
	return nil
}

func (Handle) widths(w uint64) (uint64, uint64) { return w, 0 }

func (v Handle) store(s *foreign.Space, slot, _ foreign.Ptr) error {
	return s.WritePtr(slot, v.Value.Addr())
}

func (Handle) load(*foreign.Space, foreign.Ptr) error { return nil }
