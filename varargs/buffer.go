package varargs

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/foreign"
)

// Slot describes where one argument lives in a packed buffer.
type Slot struct {
	Kind       Kind
	SlotOffset uint64 // from the buffer start
	SlotWidth  uint64
	DataOffset uint64 // from the start of the data region
	DataWidth  uint64
}

// Layout is the packed shape of an argument list. Slots follow one another
// with no padding; the data region for strings and out-parameters follows
// the last slot.
type Layout struct {
	Slots     []Slot
	SlotBytes uint64
	DataBytes uint64
	PtrSize   uint64
}

// Size returns the total buffer size.
func (l Layout) Size() uint64 { return l.SlotBytes + l.DataBytes }

// Plan validates args and computes their layout for pointer width ptrSize.
// It touches no foreign memory, so an unsupported or invalid argument fails
// before anything is allocated.
func Plan(ptrSize uint64, args ...Arg) (Layout, error) {
	if ptrSize != foreign.PtrSize32 && ptrSize != foreign.PtrSize64 {
		return Layout{}, errors.New(errors.PhaseLayout, errors.KindInvalidArgument).
			Value(ptrSize).
			Detail("pointer size must be 4 or 8, got %d", ptrSize).
			Build()
	}
	l := Layout{Slots: make([]Slot, len(args)), PtrSize: ptrSize}
	for i, a := range args {
		if a == nil {
			return Layout{}, errors.UnsupportedKind(errors.PhaseLayout, i, "<nil>")
		}
		if err := a.check(ptrSize); err != nil {
			return Layout{}, errors.New(errors.PhaseLayout, errors.KindInvalidArgument).
				Path(fmt.Sprintf("arg%d", i)).
				Cause(err).
				Detail("%s argument", a.Kind()).
				Build()
		}
		sw, dw := a.widths(ptrSize)
		l.Slots[i] = Slot{
			Kind:       a.Kind(),
			SlotOffset: l.SlotBytes,
			SlotWidth:  sw,
			DataOffset: l.DataBytes,
			DataWidth:  dw,
		}
		l.SlotBytes += sw
		l.DataBytes += dw
	}
	return l, nil
}

// Buffer is a packed argument buffer in foreign memory. The pointer passed
// as the last native argument is Ptr.
type Buffer struct {
	space     *foreign.Space
	ptr       foreign.Ptr
	layout    Layout
	args      []Arg
	retrieved bool
}

// Build plans args, allocates a zeroed buffer and stores every argument.
// A buffer is allocated even for an empty list so the callee always gets a
// valid address.
func Build(space *foreign.Space, args ...Arg) (*Buffer, error) {
	if space == nil {
		return nil, errors.NilSource(errors.PhaseLayout, "space")
	}
	l, err := Plan(space.PtrSize, args...)
	if err != nil {
		return nil, err
	}
	size := l.Size()
	if size == 0 {
		size = 1
	}
	p, err := space.Calloc(size)
	if err != nil {
		return nil, err
	}
	b := &Buffer{space: space, ptr: p, layout: l, args: args}
	for i, a := range args {
		if err := a.store(space, b.slot(i), b.data(i)); err != nil {
			b.Free()
			return nil, errors.New(errors.PhaseMarshal, errors.KindInvalidData).
				Path(fmt.Sprintf("arg%d", i)).
				Cause(err).
				Detail("store %s argument", a.Kind()).
				Build()
		}
	}
	Logger().Debug("varargs buffer built", zap.Int("args", len(args)), zap.Uint64("size", size))
	return b, nil
}

func (b *Buffer) slot(i int) foreign.Ptr {
	return b.ptr.Add(b.layout.Slots[i].SlotOffset)
}

func (b *Buffer) data(i int) foreign.Ptr {
	return b.ptr.Add(b.layout.SlotBytes + b.layout.Slots[i].DataOffset)
}

// Ptr returns the buffer address, or 0 once freed.
func (b *Buffer) Ptr() foreign.Ptr { return b.ptr }

// Layout returns the buffer's layout.
func (b *Buffer) Layout() Layout { return b.layout }

// SlotAddr returns the address of argument i's slot.
func (b *Buffer) SlotAddr(i int) (foreign.Ptr, error) {
	if err := b.index(i); err != nil {
		return 0, err
	}
	return b.slot(i), nil
}

// DataAddr returns the address of argument i's data cell, or 0 when the
// argument has none.
func (b *Buffer) DataAddr(i int) (foreign.Ptr, error) {
	if err := b.index(i); err != nil {
		return 0, err
	}
	if b.layout.Slots[i].DataWidth == 0 {
		return 0, nil
	}
	return b.data(i), nil
}

func (b *Buffer) index(i int) error {
	if b.ptr == 0 {
		return errors.NotInitialized(errors.PhaseAccess, "varargs buffer")
	}
	if i < 0 || i >= len(b.layout.Slots) {
		return errors.OutOfRange(errors.PhaseAccess, nil, int64(i), fmt.Sprintf("outside %d arguments", len(b.layout.Slots)))
	}
	return nil
}

// Retrieve copies every out-parameter back into its target, in argument
// order. It may run once per buffer.
func (b *Buffer) Retrieve() error {
	if b.ptr == 0 {
		return errors.NotInitialized(errors.PhaseUnmarshal, "varargs buffer")
	}
	if b.retrieved {
		return errors.InvalidArgument(errors.PhaseUnmarshal, "out-parameters already retrieved")
	}
	b.retrieved = true
	var err error
	for i, a := range b.args {
		if !a.Kind().Out() {
			continue
		}
		if e := a.load(b.space, b.data(i)); e != nil {
			err = multierr.Append(err, errors.New(errors.PhaseUnmarshal, errors.KindInvalidData).
				Path(fmt.Sprintf("arg%d", i)).
				Cause(e).
				Detail("read back %s", a.Kind()).
				Build())
		}
	}
	return err
}

// Free releases the buffer. Calling it again is a no-op.
func (b *Buffer) Free() {
	if b == nil {
		return
	}
	b.space.Release(&b.ptr)
}
