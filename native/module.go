package native

import (
	"context"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/foreign"
	"github.com/wippyai/gmp-native/mp"
)

// Module is a wasm32 build of the library running in wazero. Its linear
// memory is the foreign memory handles live in and its exports are the
// library's symbols.
type Module struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	mod      api.Module
	alloc    *foreign.GuestAllocator
	space    *foreign.Space
	env      *mp.Env
	prefix   string
	mu       sync.Mutex
}

// Load compiles and instantiates wasm with cfg.
func Load(ctx context.Context, wasm []byte, cfg Config) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(wasm) == 0 {
		return nil, errors.NilSource(errors.PhaseLoad, "wasm binary")
	}

	rtCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		rtCfg = rtCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)

	m, err := instantiate(ctx, rt, wasm, cfg)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return m, nil
}

func instantiate(ctx context.Context, rt wazero.Runtime, wasm []byte, cfg Config) (*Module, error) {
	if cfg.EnableWASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
			return nil, errors.Load("instantiate WASI", err)
		}
	}

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}

	modCfg := wazero.NewModuleConfig().
		WithName("gmp").
		WithStartFunctions(cfg.StartFunctions...)
	mod, err := rt.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, errors.Load("instantiate module", err)
	}

	mem := mod.ExportedMemory(cfg.MemoryExport)
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseLoad, "memory export", cfg.MemoryExport)
	}

	var alloc *foreign.GuestAllocator
	if cfg.ReallocExport != "" {
		fn := mod.ExportedFunction(cfg.ReallocExport)
		if fn == nil {
			return nil, errors.NotFound(errors.PhaseLoad, "allocator export", cfg.ReallocExport)
		}
		alloc = foreign.WrapAllocator(ctx, fn)
	} else {
		malloc := mod.ExportedFunction(cfg.MallocExport)
		if malloc == nil {
			return nil, errors.NotFound(errors.PhaseLoad, "allocator export", cfg.MallocExport)
		}
		free := mod.ExportedFunction(cfg.FreeExport)
		if free == nil {
			return nil, errors.NotFound(errors.PhaseLoad, "allocator export", cfg.FreeExport)
		}
		alloc = foreign.WrapMallocFree(ctx, malloc, free)
	}

	space, err := foreign.NewGuestSpace(mem, alloc)
	if err != nil {
		return nil, err
	}

	m := &Module{
		runtime:  rt,
		compiled: compiled,
		mod:      mod,
		alloc:    alloc,
		space:    space,
		prefix:   cfg.SymbolPrefix,
	}
	m.env, err = mp.NewEnv(space, m)
	if err != nil {
		return nil, err
	}

	Logger().Debug("library loaded",
		zap.Int("exports", len(compiled.ExportedFunctions())),
		zap.Uint32("memory_bytes", mem.Size()))
	return m, nil
}

// Env returns the handle environment bound to this module.
func (m *Module) Env() *mp.Env { return m.env }

// Space returns the module's linear memory as a foreign space.
func (m *Module) Space() *foreign.Space { return m.space }

// Allocator returns the guest allocator.
func (m *Module) Allocator() *foreign.GuestAllocator { return m.alloc }

// Symbols returns the exported function names, sorted.
func (m *Module) Symbols() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes an exported library function. Calls are serialized; the
// guest is not reentrant.
func (m *Module) Call(ctx context.Context, symbol string, args ...uint64) ([]uint64, error) {
	name := m.prefix + symbol
	fn := m.mod.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseCall, "symbol", name)
	}
	if want := len(fn.Definition().ParamTypes()); want != len(args) {
		return nil, errors.New(errors.PhaseCall, errors.KindInvalidArgument).
			Path(name).
			Value(len(args)).
			Detail("expected %d arguments, got %d", want, len(args)).
			Build()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.alloc.SetContext(ctx)
	res, err := fn.Call(ctx, args...)
	if err != nil {
		return nil, errors.CallFailed(name, err)
	}
	return res, nil
}

// Close releases the runtime. Blocks still allocated in the guest are
// reported and discarded with the linear memory.
func (m *Module) Close(ctx context.Context) error {
	if m.runtime == nil {
		return nil
	}
	if n := m.alloc.Outstanding(); n > 0 {
		Logger().Warn("closing module with live foreign blocks", zap.Int("blocks", n))
	}
	err := multierr.Append(m.mod.Close(ctx), m.runtime.Close(ctx))
	m.runtime = nil
	return err
}
