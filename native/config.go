package native

import (
	"github.com/go-playground/validator/v10"

	"github.com/wippyai/gmp-native/errors"
)

// validate is shared; building a validator is expensive.
var validate = validator.New()

// Config controls how a wasm32 build of the library is loaded.
type Config struct {
	// MemoryExport names the exported linear memory.
	MemoryExport string `json:"memory_export" validate:"required" jsonschema:"default=memory"`

	// ReallocExport names a cabi_realloc-style export
	// (old, oldSize, align, newSize) -> ptr. When set it is used for every
	// allocation and MallocExport/FreeExport are ignored.
	ReallocExport string `json:"realloc_export,omitempty"`

	// MallocExport and FreeExport name the C allocator exports used when
	// ReallocExport is empty.
	MallocExport string `json:"malloc_export,omitempty" validate:"required_without=ReallocExport"`
	FreeExport   string `json:"free_export,omitempty" validate:"required_with=MallocExport"`

	// SymbolPrefix is prepended to every library symbol before lookup.
	SymbolPrefix string `json:"symbol_prefix,omitempty" validate:"omitempty,printascii"`

	// MemoryLimitPages caps linear memory in 64KiB pages. 0 means the
	// wazero default of 65536 pages (4GiB).
	MemoryLimitPages uint32 `json:"memory_limit_pages,omitempty" validate:"lte=65536" jsonschema:"maximum=65536"`

	// StartFunctions run at instantiation. Missing functions are skipped.
	StartFunctions []string `json:"start_functions,omitempty" validate:"dive,required"`

	// EnableWASI instantiates wasi_snapshot_preview1 for modules built
	// against a WASI libc.
	EnableWASI bool `json:"enable_wasi,omitempty"`
}

// DefaultConfig returns the configuration for a reactor-style WASI build
// exporting malloc and free.
func DefaultConfig() Config {
	return Config{
		MemoryExport:   "memory",
		MallocExport:   "malloc",
		FreeExport:     "free",
		StartFunctions: []string{"_initialize"},
		EnableWASI:     true,
	}
}

// Validate checks the configuration's field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.New(errors.PhaseConfig, errors.KindInvalidArgument).
			Cause(err).
			Detail("invalid loader configuration").
			Build()
	}
	return nil
}
