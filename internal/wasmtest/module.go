// Package wasmtest holds hand-assembled wasm modules used by tests.
package wasmtest

// BumpAllocator is a core module exporting one page of "memory" and a
// bump allocator with the cabi_realloc signature
// (old, oldSize, align, newSize) -> ptr. Blocks are 8-byte aligned, the
// first block starts at 16 and nothing is ever reclaimed or copied.
var BumpAllocator = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version

	// type section: (i32 i32 i32 i32) -> i32
	0x01, 0x09, 0x01, 0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f,

	// function section: func 0 has type 0
	0x03, 0x02, 0x01, 0x00,

	// memory section: 1 page, no max
	0x05, 0x03, 0x01, 0x00, 0x01,

	// global section: (mut i32) = 16
	0x06, 0x06, 0x01, 0x7f, 0x01, 0x41, 0x10, 0x0b,

	// export section: "memory" (mem 0), "cabi_realloc" (func 0)
	0x07, 0x19, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x0c, 'c', 'a', 'b', 'i', '_', 'r', 'e', 'a', 'l', 'l', 'o', 'c', 0x00, 0x00,

	// code section
	0x0a, 0x17, 0x01, 0x15,
	0x01, 0x01, 0x7f, // one i32 local

	0x23, 0x00, // global.get 0
	0x41, 0x07, // i32.const 7
	0x6a,       // i32.add
	0x41, 0x78, // i32.const -8
	0x71,       // i32.and
	0x22, 0x04, // local.tee 4
	0x20, 0x03, // local.get 3 (newSize)
	0x6a,       // i32.add
	0x24, 0x00, // global.set 0
	0x20, 0x04, // local.get 4
	0x0b,       // end
}

// MemoryOnly is a minimal module with 1 page of memory exported as "memory".
var MemoryOnly = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page, no max
	0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
	0x02, 0x00, // kind: memory, index 0
}
