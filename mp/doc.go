// Package mp provides typed handles over the library's multi-precision
// structs in foreign memory.
//
// Each handle owns one foreign block shaped exactly like the library's C
// struct for the Env's pointer width:
//
//	Handle     Struct                   Size (w = pointer width)
//	──────────────────────────────────────────────────────────────
//	Int        __mpz_struct             8 + w
//	Rat        __mpq_struct             2 * (8 + w)
//	Float      __mpf_struct             12 + w
//	RandState  __gmp_randstate_struct   20 (w=4), 32 (w=8)
//
// A handle's lifecycle is explicit: New* allocates the block, an Init
// method (or a Parse* constructor) has the library initialize it, and
// Clear has the library release its limbs before the block itself is
// freed. Clear is idempotent.
//
// Field accessors read and write the struct fields directly at offsets
// computed for the pointer width. Parsing and formatting always go through
// the library's own routines:
//
//	z, err := mp.ParseInt(ctx, env, "-0x1f", 0)
//	if err != nil {
//	    return err
//	}
//	defer z.Clear(ctx)
//
//	size, _ := z.Size()   // -1
//	s, _ := z.Text(ctx, 10) // "-31"
package mp
