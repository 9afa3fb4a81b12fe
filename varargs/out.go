package varargs

import (
	"bytes"
	"math"

	"github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/foreign"
)

// Out-parameters occupy a pointer slot that addresses a cell in the data
// region. The cell starts with the target's current value and is copied
// back into the target by Buffer.Retrieve.

// OutInt8 receives a signed char.
type OutInt8 struct{ Target *int8 }

// OutInt16 receives a short.
type OutInt16 struct{ Target *int16 }

// OutInt32 receives an int, as written by %d or %n.
type OutInt32 struct{ Target *int32 }

// OutInt64 receives a long long.
type OutInt64 struct{ Target *int64 }

// OutFloat64 receives a double.
type OutFloat64 struct{ Target *float64 }

// OutSizeT receives a pointer-width unsigned value.
type OutSizeT struct{ Target *uint64 }

// OutPointer receives a foreign address.
type OutPointer struct{ Target *foreign.Ptr }

// OutString receives a NUL-terminated string of at most Cap-1 bytes.
type OutString struct {
	Target *string
	Cap    int
}

func (OutInt8) Kind() Kind    { return KindOutInt8 }
func (OutInt16) Kind() Kind   { return KindOutInt16 }
func (OutInt32) Kind() Kind   { return KindOutInt32 }
func (OutInt64) Kind() Kind   { return KindOutInt64 }
func (OutFloat64) Kind() Kind { return KindOutFloat64 }
func (OutSizeT) Kind() Kind   { return KindOutSizeT }
func (OutPointer) Kind() Kind { return KindOutPointer }
func (OutString) Kind() Kind  { return KindOutString }

func nilTarget(k Kind) error {
	return errors.NilPointer(errors.PhaseLayout, []string{k.String()}, "target")
}

func (v OutInt8) check(uint64) error {
	if v.Target == nil {
		return nilTarget(v.Kind())
	}
	return nil
}

func (v OutInt16) check(uint64) error {
	if v.Target == nil {
		return nilTarget(v.Kind())
	}
	return nil
}

func (v OutInt32) check(uint64) error {
	if v.Target == nil {
		return nilTarget(v.Kind())
	}
	return nil
}

func (v OutInt64) check(uint64) error {
	if v.Target == nil {
		return nilTarget(v.Kind())
	}
	return nil
}

func (v OutFloat64) check(uint64) error {
	if v.Target == nil {
		return nilTarget(v.Kind())
	}
	return nil
}

func (v OutSizeT) check(w uint64) error {
	if v.Target == nil {
		return nilTarget(v.Kind())
	}
	if w == foreign.PtrSize32 && *v.Target > math.MaxUint32 {
		return errors.Overflow(errors.PhaseLayout, []string{v.Kind().String()}, *v.Target, "size_t")
	}
	return nil
}

func (v OutPointer) check(w uint64) error {
	if v.Target == nil {
		return nilTarget(v.Kind())
	}
	if w == foreign.PtrSize32 && *v.Target > math.MaxUint32 {
		return errors.Overflow(errors.PhaseLayout, []string{v.Kind().String()}, *v.Target, "void *")
	}
	return nil
}

func (v OutString) check(uint64) error {
	if v.Target == nil {
		return nilTarget(v.Kind())
	}
	if v.Cap <= 0 {
		return errors.New(errors.PhaseLayout, errors.KindInvalidArgument).
			Value(v.Cap).
			Detail("out string capacity must be positive").
			Build()
	}
	return nil
}

func (OutInt8) widths(w uint64) (uint64, uint64)    { return w, 1 }
func (OutInt16) widths(w uint64) (uint64, uint64)   { return w, 2 }
func (OutInt32) widths(w uint64) (uint64, uint64)   { return w, 4 }
func (OutInt64) widths(w uint64) (uint64, uint64)   { return w, 8 }
func (OutFloat64) widths(w uint64) (uint64, uint64) { return w, 8 }
func (OutSizeT) widths(w uint64) (uint64, uint64)   { return w, w }
func (OutPointer) widths(w uint64) (uint64, uint64) { return w, w }
func (v OutString) widths(w uint64) (uint64, uint64) {
	return w, uint64(v.Cap)
}

func (v OutInt8) store(s *foreign.Space, slot, data foreign.Ptr) error {
	if err := s.WritePtr(slot, data); err != nil {
		return err
	}
	return s.Mem.WriteU8(data, uint8(*v.Target))
}

func (v OutInt16) store(s *foreign.Space, slot, data foreign.Ptr) error {
	if err := s.WritePtr(slot, data); err != nil {
		return err
	}
	return s.Mem.WriteU16(data, uint16(*v.Target))
}

func (v OutInt32) store(s *foreign.Space, slot, data foreign.Ptr) error {
	if err := s.WritePtr(slot, data); err != nil {
		return err
	}
	return s.Mem.WriteU32(data, uint32(*v.Target))
}

func (v OutInt64) store(s *foreign.Space, slot, data foreign.Ptr) error {
	if err := s.WritePtr(slot, data); err != nil {
		return err
	}
	return s.Mem.WriteU64(data, uint64(*v.Target))
}

func (v OutFloat64) store(s *foreign.Space, slot, data foreign.Ptr) error {
	if err := s.WritePtr(slot, data); err != nil {
		return err
	}
	return s.Mem.WriteU64(data, math.Float64bits(*v.Target))
}

func (v OutSizeT) store(s *foreign.Space, slot, data foreign.Ptr) error {
	if err := s.WritePtr(slot, data); err != nil {
		return err
	}
	return s.WriteWord(data, *v.Target)
}

func (v OutPointer) store(s *foreign.Space, slot, data foreign.Ptr) error {
	if err := s.WritePtr(slot, data); err != nil {
		return err
	}
	return s.WritePtr(data, *v.Target)
}

// The string cell starts zeroed; the current target value is not passed in.
func (v OutString) store(s *foreign.Space, slot, data foreign.Ptr) error {
	return s.WritePtr(slot, data)
}

func (v OutInt8) load(s *foreign.Space, data foreign.Ptr) error {
	b, err := s.Mem.ReadU8(data)
	if err != nil {
		return err
	}
	*v.Target = int8(b)
	return nil
}

func (v OutInt16) load(s *foreign.Space, data foreign.Ptr) error {
	h, err := s.Mem.ReadU16(data)
	if err != nil {
		return err
	}
	*v.Target = int16(h)
	return nil
}

func (v OutInt32) load(s *foreign.Space, data foreign.Ptr) error {
	x, err := s.ReadInt32(data)
	if err != nil {
		return err
	}
	*v.Target = x
	return nil
}

func (v OutInt64) load(s *foreign.Space, data foreign.Ptr) error {
	x, err := s.Mem.ReadU64(data)
	if err != nil {
		return err
	}
	*v.Target = int64(x)
	return nil
}

func (v OutFloat64) load(s *foreign.Space, data foreign.Ptr) error {
	x, err := s.Mem.ReadU64(data)
	if err != nil {
		return err
	}
	*v.Target = math.Float64frombits(x)
	return nil
}

func (v OutSizeT) load(s *foreign.Space, data foreign.Ptr) error {
	x, err := s.ReadWord(data)
	if err != nil {
		return err
	}
	*v.Target = x
	return nil
}

func (v OutPointer) load(s *foreign.Space, data foreign.Ptr) error {
	p, err := s.ReadPtr(data)
	if err != nil {
		return err
	}
	*v.Target = p
	return nil
}

func (v OutString) load(s *foreign.Space, data foreign.Ptr) error {
	raw, err := s.Mem.Read(data, uint64(v.Cap))
	if err != nil {
		return err
	}
	i := bytes.IndexByte(raw, 0)
	if i < 0 {
		return errors.InvalidData(errors.PhaseUnmarshal, []string{v.Kind().String()}, "string overran its capacity")
	}
	*v.Target = string(raw[:i])
	return nil
}
