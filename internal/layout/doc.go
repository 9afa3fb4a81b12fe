// Package layout computes the native C struct layouts of the library's
// handle types for a given pointer width.
//
// Every offset is derived from field declarations by the same record rules
// a C compiler applies, parametrized by the pointer width, so the 4-byte and
// 8-byte platforms are computed rather than hard-coded.
//
// # Layout Rules
//
//   - int fields: size 4, align 4
//   - pointers and limbs: size and align equal the pointer width
//   - records: fields in declaration order, each aligned to
//     min(field align, pack), total rounded up to the record alignment
//   - embedded records keep their own size and alignment
//
// # Shapes
//
//	__mpz_struct      { int alloc; int size; mp_limb_t *d; }
//	__mpq_struct      { __mpz_struct num; __mpz_struct den; }
//	__mpf_struct      { int prec; int size; int exp; mp_limb_t *d; }  (pack 4)
//	__gmp_randstate   { __mpz_struct seed; int alg; void *algdata; }
//
// # Usage
//
//	l := layout.MustFor(8)
//	off := l.Int.Offset(layout.FieldLimbs) // 8
//	size := l.Rat.Size                      // 32
//
// This package is internal to the module.
package layout
