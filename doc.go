// Package gmpnative drives a native multi-precision arithmetic library (the GMP
// ABI) from Go through foreign memory.
//
// Values handed to the library live outside the Go heap, laid out exactly as
// the library's C structs. This module emulates those layouts by offset
// arithmetic over raw foreign blocks and builds the byte-exact buffers the
// library's variadic functions consume.
//
// # Architecture Overview
//
//	gmpnative/            Root package with Ptr, Memory, Allocator and Library
//	├── foreign/          Foreign memory capability: Space, Arena, wazero adapters
//	├── internal/layout   Struct layouts parametrized by pointer width
//	├── internal/hostlib  Go implementation of the library over math/big
//	├── ctypes/           Sized scalar wrappers with checked conversions
//	├── limbs/            Limb array views over foreign blocks
//	├── mp/               mpz, mpq, mpf and random-state handles
//	├── varargs/          Variadic argument buffer builder
//	├── native/           Library implementations (wazero module, Go functions)
//	├── errors/           Structured error types
//	└── cmd/gmpcalc/      Command line front end
//
// # Quick Start
//
// Load a wasm32 build of the library and format a number:
//
//	mod, err := native.Load(ctx, wasmBytes, native.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mod.Close(ctx)
//
//	env := mod.Env()
//	z, err := mp.ParseInt(ctx, env, "123456789012345678901234567890", 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer z.Clear(ctx)
//
//	s, _ := z.Text(ctx, 16)
//	fmt.Println(s)
//
// # Variadic Calls
//
// Sprintf and Sscanf wrap the library's printf and scanf families:
//
//	s, err := varargs.Sprintf(ctx, env, "%Zd has %d digits", varargs.Handle{Value: z}, varargs.Int32(30))
//
//	var pos int32
//	n, err := varargs.Sscanf(ctx, env, "42/7", "%Qd%n",
//	    varargs.Handle{Value: q}, varargs.OutInt32{Target: &pos})
//
// Call builds the argument buffer for any other variadic symbol, passes
// its address after the fixed arguments and copies out-parameters back:
//
//	res, err := varargs.Call(ctx, env, varargs.SymSnprintf,
//	    []uint64{uint64(buf), size, uint64(format)},
//	    varargs.Handle{Value: z}, varargs.OutInt32{Target: &pos})
//
// # Thread Safety
//
// Handles and argument buffers are owned by the goroutine that created them.
// No operation synchronizes access to a handle; callers must serialize it.
//
// # Memory Model
//
// Every foreign block has exactly one owner and is released explicitly.
// Release is idempotent: clearing a handle twice is a no-op.
package gmpnative
