package native

import (
	"context"
	"sort"

	"github.com/wippyai/gmp-native/errors"
)

// Func is a Go implementation of a library symbol. Arguments and results
// are raw words, encoded as for a wasm call.
type Func func(ctx context.Context, args ...uint64) ([]uint64, error)

// Funcs is a Library backed by Go functions keyed by symbol.
type Funcs map[string]Func

// Call invokes the function registered for symbol.
func (f Funcs) Call(ctx context.Context, symbol string, args ...uint64) ([]uint64, error) {
	fn, ok := f[symbol]
	if !ok {
		return nil, errors.NotFound(errors.PhaseCall, "symbol", symbol)
	}
	res, err := fn(ctx, args...)
	if err != nil {
		return nil, errors.CallFailed(symbol, err)
	}
	return res, nil
}

// Symbols returns the registered symbols in order.
func (f Funcs) Symbols() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
