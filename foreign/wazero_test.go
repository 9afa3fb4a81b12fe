package foreign

import (
	"context"
	"errors"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	gmperrors "github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/internal/wasmtest"
)

func instantiate(t *testing.T, wasm []byte) api.Module {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}
	return mod
}

func TestWrapMemory_Nil(t *testing.T) {
	if mem := WrapMemory(nil); mem != nil {
		t.Error("expected nil for nil memory")
	}
}

func TestWrapAllocator_Nil(t *testing.T) {
	if alloc := WrapAllocator(context.Background(), nil); alloc != nil {
		t.Error("expected nil for nil function")
	}
	if alloc := WrapMallocFree(context.Background(), nil, nil); alloc != nil {
		t.Error("expected nil for nil functions")
	}
}

func TestLinearMemory_ReadWrite(t *testing.T) {
	mod := instantiate(t, wasmtest.MemoryOnly)
	mem := WrapMemory(mod.ExportedMemory("memory"))

	data := []byte{1, 2, 3, 4}
	if err := mem.Write(0, data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	read, err := mem.Read(0, 4)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	for i, b := range read {
		if b != data[i] {
			t.Errorf("byte %d: expected %d, got %d", i, data[i], b)
		}
	}

	// Read returns a copy.
	read[0] = 99
	again, _ := mem.ReadU8(0)
	if again != 1 {
		t.Error("Read aliased linear memory")
	}

	if err := mem.WriteU64(8, 0x123456789ABCDEF0); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU64(8); v != 0x123456789ABCDEF0 {
		t.Errorf("ReadU64 = 0x%x", v)
	}
	if err := mem.WriteU32(16, 0xCAFEBABE); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU32(16); v != 0xCAFEBABE {
		t.Errorf("ReadU32 = 0x%x", v)
	}
	if err := mem.WriteU16(20, 0xBEEF); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU16(20); v != 0xBEEF {
		t.Errorf("ReadU16 = 0x%x", v)
	}
}

func TestLinearMemory_OutOfBounds(t *testing.T) {
	mod := instantiate(t, wasmtest.MemoryOnly)
	mem := WrapMemory(mod.ExportedMemory("memory"))

	tests := []struct {
		name string
		fn   func() error
	}{
		{"read at boundary", func() error { _, err := mem.Read(65536, 1); return err }},
		{"write at boundary", func() error { return mem.Write(65536, []byte{1}) }},
		{"u32 straddling end", func() error { _, err := mem.ReadU32(65534); return err }},
		{"beyond 32 bits", func() error { _, err := mem.ReadU8(1 << 32); return err }},
		{"length wraps", func() error { _, err := mem.Read(16, 1<<32); return err }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.fn(); !errors.Is(err, gmperrors.ErrOutOfRange) {
				t.Errorf("err = %v, want out_of_range", err)
			}
		})
	}
}

func TestGuestAllocator_CabiRealloc(t *testing.T) {
	ctx := context.Background()
	mod := instantiate(t, wasmtest.BumpAllocator)

	alloc := WrapAllocator(ctx, mod.ExportedFunction("cabi_realloc"))
	if alloc == nil {
		t.Fatal("expected allocator")
	}

	p1, err := alloc.Alloc(12)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if p1 != 16 {
		t.Errorf("first block = %d, want 16", p1)
	}
	p2, err := alloc.Alloc(4)
	if err != nil {
		t.Fatal(err)
	}
	if p2 != 32 {
		t.Errorf("second block = %d, want 32 (8-byte aligned)", p2)
	}
	if alloc.Outstanding() != 2 {
		t.Errorf("Outstanding = %d", alloc.Outstanding())
	}

	alloc.Free(p1)
	alloc.Free(0)
	if alloc.Outstanding() != 1 {
		t.Errorf("Outstanding after free = %d", alloc.Outstanding())
	}

	if _, err := alloc.Alloc(1 << 33); !errors.Is(err, gmperrors.ErrAllocation) {
		t.Errorf("oversized Alloc: err = %v", err)
	}
}

func TestNewGuestSpace(t *testing.T) {
	ctx := context.Background()
	mod := instantiate(t, wasmtest.BumpAllocator)

	if _, err := NewGuestSpace(nil, nil); err == nil {
		t.Error("expected error for nil memory")
	}

	alloc := WrapAllocator(ctx, mod.ExportedFunction("cabi_realloc"))
	space, err := NewGuestSpace(mod.ExportedMemory("memory"), alloc)
	if err != nil {
		t.Fatal(err)
	}
	if space.PtrSize != PtrSize32 {
		t.Errorf("PtrSize = %d", space.PtrSize)
	}

	p, err := space.CString("42")
	if err != nil {
		t.Fatal(err)
	}
	s, err := space.ReadCString(p)
	if err != nil || s != "42" {
		t.Errorf("ReadCString = %q, %v", s, err)
	}

	np, err := space.Realloc(p, 3, 64)
	if err != nil {
		t.Fatal(err)
	}
	if np == 0 {
		t.Error("Realloc returned null")
	}
	space.Release(&np)
	if alloc.Outstanding() != 0 {
		t.Errorf("Outstanding = %d", alloc.Outstanding())
	}
}
