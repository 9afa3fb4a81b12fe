package layout

import (
	"fmt"
)

// Field is a resolved field: its byte offset and native width.
type Field struct {
	Name   string
	Offset uint64
	Size   uint64
}

// Struct is a resolved record layout.
type Struct struct {
	fields map[string]Field
	Name   string
	order  []string
	Size   uint64
	Align  uint64
}

// Field returns the named field.
func (s Struct) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Offset returns the offset of the named field. It panics on an unknown
// name, which is a programming error in the caller.
func (s Struct) Offset(name string) uint64 {
	f, ok := s.fields[name]
	if !ok {
		panic(fmt.Sprintf("layout: %s has no field %q", s.Name, name))
	}
	return f.Offset
}

// Fields returns the fields in declaration order.
func (s Struct) Fields() []Field {
	out := make([]Field, len(s.order))
	for i, name := range s.order {
		out[i] = s.fields[name]
	}
	return out
}

// FieldSpec declares one field of a record.
type FieldSpec struct {
	Name  string
	Size  uint64
	Align uint64
}

// Calculator builds records for one pointer width.
type Calculator struct {
	PtrSize uint64
}

// NewCalculator returns a calculator for ptrSize-byte pointers.
func NewCalculator(ptrSize uint64) *Calculator {
	return &Calculator{PtrSize: ptrSize}
}

// Int32 declares a C int field.
func (c *Calculator) Int32(name string) FieldSpec {
	return FieldSpec{Name: name, Size: 4, Align: 4}
}

// Pointer declares a pointer-width field.
func (c *Calculator) Pointer(name string) FieldSpec {
	return FieldSpec{Name: name, Size: c.PtrSize, Align: c.PtrSize}
}

// Embed declares a nested record field.
func (c *Calculator) Embed(name string, s Struct) FieldSpec {
	return FieldSpec{Name: name, Size: s.Size, Align: s.Align}
}

// Record lays out fields in order. pack caps field alignment the way
// #pragma pack does; 0 means natural alignment.
func (c *Calculator) Record(name string, pack uint64, fields ...FieldSpec) Struct {
	s := Struct{
		Name:   name,
		fields: make(map[string]Field, len(fields)),
		order:  make([]string, 0, len(fields)),
	}
	if len(fields) == 0 {
		s.Align = 1
		return s
	}

	maxAlign := uint64(1)
	offset := uint64(0)

	for _, f := range fields {
		align := f.Align
		if pack > 0 && align > pack {
			align = pack
		}
		offset = AlignTo(offset, align)
		s.fields[f.Name] = Field{Name: f.Name, Offset: offset, Size: f.Size}
		s.order = append(s.order, f.Name)

		if align > maxAlign {
			maxAlign = align
		}
		offset += f.Size
	}

	s.Size = AlignTo(offset, maxAlign)
	s.Align = maxAlign
	return s
}

// AlignTo rounds offset up to a multiple of align (a power of two).
func AlignTo(offset, align uint64) uint64 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
