// Package errors provides structured error types for the gmp-native module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The taxonomy follows the four failure classes of foreign memory
// work:
//
//   - KindInvalidArgument: nil or unusable input, unsupported variadic kinds.
//     Nothing is allocated when this is returned.
//   - KindOutOfRange: an index or computed address outside the platform's
//     address range.
//   - KindAllocation: the foreign allocator failed. Not retried.
//   - KindOverflow: a narrowing scalar conversion lost information.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindInvalidArgument).
//		Path("arg", "2").
//		GoType("complex128").
//		Detail("no native representation").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NilSource(errors.PhaseParse, "source text")
//	err := errors.OutOfRange(errors.PhaseAccess, path, -1, "is negative")
//
// Kind sentinels match regardless of phase:
//
//	if errors.Is(err, gmperrors.ErrInvalidArgument) { ... }
package errors
