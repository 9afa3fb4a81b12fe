package native

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/tetratelabs/wazero/api"

	gmperrors "github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/internal/wasmtest"
	"github.com/wippyai/gmp-native/mp"
)

func bumpConfig() Config {
	return Config{
		MemoryExport:  "memory",
		ReallocExport: "cabi_realloc",
	}
}

func loadBump(t *testing.T, cfg Config) *Module {
	t.Helper()
	m, err := Load(context.Background(), wasmtest.BumpAllocator, cfg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func TestLoad_BumpAllocator(t *testing.T) {
	ctx := context.Background()
	m := loadBump(t, bumpConfig())

	if w := m.Space().PtrSize; w != 4 {
		t.Errorf("pointer width %d, want 4", w)
	}
	if m.Env().PtrSize() != 4 || m.Env().Layout.Int.Size != 12 {
		t.Errorf("env layout for width %d", m.Env().PtrSize())
	}
	if got := m.Symbols(); !slices.Equal(got, []string{"cabi_realloc"}) {
		t.Errorf("Symbols = %v", got)
	}

	p, err := m.Space().CString("123")
	if err != nil {
		t.Fatal(err)
	}
	if p < 16 || p%8 != 0 {
		t.Errorf("guest block at %#x", p)
	}
	if s, err := m.Space().ReadCString(p); err != nil || s != "123" {
		t.Errorf("ReadCString = %q, %v", s, err)
	}
	if n := m.Allocator().Outstanding(); n != 1 {
		t.Errorf("Outstanding = %d, want 1", n)
	}
	m.Space().Release(&p)
	if n := m.Allocator().Outstanding(); n != 0 {
		t.Errorf("Outstanding after release = %d", n)
	}

	// Handles allocate in guest memory; the bump module has no library.
	z, err := mp.NewInt(m.Env())
	if err != nil {
		t.Fatal(err)
	}
	if err := z.Init(ctx); !gmperrors.HasKind(err, gmperrors.KindNotFound) {
		t.Errorf("Init without library export: err = %v", err)
	}
	if err := z.Clear(ctx); err != nil {
		t.Errorf("Clear: %v", err)
	}
}

func TestModule_Call(t *testing.T) {
	ctx := context.Background()
	m := loadBump(t, bumpConfig())

	res, err := m.Call(ctx, "cabi_realloc", 0, 0, 8, 32)
	if err != nil {
		t.Fatal(err)
	}
	first := api.DecodeU32(res[0])
	res, err = m.Call(ctx, "cabi_realloc", 0, 0, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if second := api.DecodeU32(res[0]); second != first+32 {
		t.Errorf("second block at %d, first at %d", second, first)
	}

	if _, err := m.Call(ctx, "cabi_realloc", 0, 0); !errors.Is(err, gmperrors.ErrInvalidArgument) {
		t.Errorf("wrong arity: err = %v", err)
	}
	if _, err := m.Call(ctx, "__gmpz_init", 16); !gmperrors.HasKind(err, gmperrors.KindNotFound) {
		t.Errorf("missing symbol: err = %v", err)
	}
}

func TestModule_SymbolPrefix(t *testing.T) {
	cfg := bumpConfig()
	cfg.SymbolPrefix = "cabi_"
	m := loadBump(t, cfg)
	if _, err := m.Call(context.Background(), "realloc", 0, 0, 8, 16); err != nil {
		t.Errorf("prefixed call: %v", err)
	}
}

func TestLoad_Failures(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		wasm     []byte
		cfg      Config
		wantKind gmperrors.Kind
	}{
		{"invalid config", wasmtest.BumpAllocator, Config{}, gmperrors.KindInvalidArgument},
		{"empty binary", nil, bumpConfig(), gmperrors.KindInvalidArgument},
		{"not wasm", []byte("not a module"), bumpConfig(), gmperrors.KindInvalidData},
		{"missing allocator", wasmtest.MemoryOnly, bumpConfig(), gmperrors.KindNotFound},
		{"missing malloc", wasmtest.MemoryOnly, Config{MemoryExport: "memory", MallocExport: "malloc", FreeExport: "free"}, gmperrors.KindNotFound},
		{"missing memory", wasmtest.BumpAllocator, Config{MemoryExport: "mem", ReallocExport: "cabi_realloc"}, gmperrors.KindNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := Load(ctx, tc.wasm, tc.cfg)
			if !gmperrors.HasKind(err, tc.wantKind) {
				t.Errorf("err = %v, want %s", err, tc.wantKind)
			}
			if m != nil {
				t.Error("module returned on failure")
			}
		})
	}
}

func TestModule_CloseTwice(t *testing.T) {
	m, err := Load(context.Background(), wasmtest.BumpAllocator, bumpConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestFuncs(t *testing.T) {
	ctx := context.Background()
	fail := errors.New("boom")
	f := Funcs{
		"b": func(_ context.Context, args ...uint64) ([]uint64, error) { return []uint64{args[0] + 1}, nil },
		"a": func(context.Context, ...uint64) ([]uint64, error) { return nil, fail },
	}
	if got := f.Symbols(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("Symbols = %v", got)
	}
	res, err := f.Call(ctx, "b", 41)
	if err != nil || res[0] != 42 {
		t.Errorf("Call(b) = %v, %v", res, err)
	}
	if _, err := f.Call(ctx, "a"); !gmperrors.HasKind(err, gmperrors.KindCall) || !errors.Is(err, fail) {
		t.Errorf("Call(a): err = %v", err)
	}
	if _, err := f.Call(ctx, "c"); !gmperrors.HasKind(err, gmperrors.KindNotFound) {
		t.Errorf("Call(c): err = %v", err)
	}
}
