package varargs

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/gmp-native/ctypes"
	"github.com/wippyai/gmp-native/errors"
	"github.com/wippyai/gmp-native/foreign"
	"github.com/wippyai/gmp-native/mp"
)

// Library formatted I/O entry points.
const (
	SymSnprintf = "__gmp_snprintf"
	SymSscanf   = "__gmp_sscanf"
)

// DefaultStringCap is the capacity Of gives a *string out-parameter.
const DefaultStringCap = 256

// Of maps plain Go values to arguments:
//
//	int8, uint8, int16, uint16, int32, uint32, int64, uint64   same-width integer
//	int                                                        int (must fit 32 bits)
//	float32, float64                                           double
//	string                                                     string
//	foreign.Ptr                                                pointer
//	Addresser (mp handles)                                     handle
//	*int8, *int16, *int32, *int64, *float64                    out-parameter
//	*foreign.Ptr                                               out pointer
//	*string                                                    out string, DefaultStringCap bytes
//
// Call does not bound a %s conversion into an out string; use Sscanf, or a
// width below the capacity, when the input may be longer.
// Values that are already an Arg pass through. Anything else fails with an
// unsupported-kind error naming its position.
func Of(values ...any) ([]Arg, error) {
	out := make([]Arg, len(values))
	for i, v := range values {
		a, err := of(i, v)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

func of(i int, v any) (Arg, error) {
	switch x := v.(type) {
	case Arg:
		return x, nil
	case int8:
		return Int8(x), nil
	case uint8:
		return Uint8(x), nil
	case int16:
		return Int16(x), nil
	case uint16:
		return Uint16(x), nil
	case int32:
		return Int32(x), nil
	case uint32:
		return Uint32(x), nil
	case int64:
		return Int64(x), nil
	case uint64:
		return Uint64(x), nil
	case int:
		n, err := ctypes.Convert[int32](x)
		if err != nil {
			return nil, errors.New(errors.PhaseLayout, errors.KindOverflow).
				Path(fmt.Sprintf("arg%d", i)).
				Cause(err).
				Detail("int argument is passed as a C int").
				Build()
		}
		return Int32(n), nil
	case float32:
		return Float64(x), nil
	case float64:
		return Float64(x), nil
	case string:
		return String(x), nil
	case foreign.Ptr:
		return Pointer(x), nil
	case Addresser:
		return Handle{Value: x}, nil
	case *int8:
		return OutInt8{Target: x}, nil
	case *int16:
		return OutInt16{Target: x}, nil
	case *int32:
		return OutInt32{Target: x}, nil
	case *int64:
		return OutInt64{Target: x}, nil
	case *float64:
		return OutFloat64{Target: x}, nil
	case *foreign.Ptr:
		return OutPointer{Target: x}, nil
	case *string:
		return OutString{Target: x, Cap: DefaultStringCap}, nil
	default:
		return nil, errors.UnsupportedKind(errors.PhaseLayout, i, fmt.Sprintf("%T", v))
	}
}

// Call builds a buffer from args, invokes symbol with fixed followed by the
// buffer address, reads out-parameters back and frees the buffer.
func Call(ctx context.Context, env *mp.Env, symbol string, fixed []uint64, args ...Arg) ([]uint64, error) {
	if env == nil {
		return nil, errors.NilSource(errors.PhaseCall, "env")
	}
	buf, err := Build(env.Space, args...)
	if err != nil {
		return nil, err
	}
	defer buf.Free()

	words := make([]uint64, 0, len(fixed)+1)
	words = append(words, fixed...)
	words = append(words, uint64(buf.Ptr()))
	res, err := env.Call(ctx, symbol, words...)
	if err != nil {
		return nil, err
	}
	if err := buf.Retrieve(); err != nil {
		return res, err
	}
	return res, nil
}

// Sprintf formats through the library's snprintf, growing the output
// buffer once if the first attempt is truncated.
func Sprintf(ctx context.Context, env *mp.Env, format string, args ...Arg) (string, error) {
	if env == nil {
		return "", errors.NilSource(errors.PhaseCall, "env")
	}
	if _, err := Plan(env.PtrSize(), args...); err != nil {
		return "", err
	}
	fp, err := env.Space.CString(format)
	if err != nil {
		return "", err
	}
	defer env.Space.Release(&fp)

	size := uint64(len(format)) + 64
	for attempt := 0; attempt < 2; attempt++ {
		out, err := env.Space.Calloc(size)
		if err != nil {
			return "", err
		}
		n, err := snprintf(ctx, env, out, size, fp, args)
		if err != nil {
			env.Space.Release(&out)
			return "", err
		}
		if uint64(n) < size {
			s, err := env.Space.ReadCString(out)
			env.Space.Release(&out)
			return s, err
		}
		env.Space.Release(&out)
		size = uint64(n) + 1
	}
	return "", errors.InvalidData(errors.PhaseUnmarshal, []string{SymSnprintf}, "output length changed between attempts")
}

func snprintf(ctx context.Context, env *mp.Env, out foreign.Ptr, size uint64, fp foreign.Ptr, args []Arg) (int32, error) {
	res, err := Call(ctx, env, SymSnprintf, []uint64{uint64(out), size, uint64(fp)}, args...)
	if err != nil {
		return 0, err
	}
	if len(res) == 0 {
		return 0, errors.InvalidData(errors.PhaseCall, []string{SymSnprintf}, "no result")
	}
	n := api.DecodeI32(res[0])
	if n < 0 {
		return 0, errors.New(errors.PhaseCall, errors.KindInvalidData).
			Path(SymSnprintf).
			Value(n).
			Detail("format failed").
			Build()
	}
	return n, nil
}

// Sscanf parses input through the library's sscanf and returns the number
// of assigned conversions, or -1 if input ended before the first one.
// A %s writing to an OutString must be bounded by a width below the
// string's Cap unless all of input fits.
func Sscanf(ctx context.Context, env *mp.Env, input, format string, args ...Arg) (int, error) {
	if env == nil {
		return 0, errors.NilSource(errors.PhaseCall, "env")
	}
	if _, err := Plan(env.PtrSize(), args...); err != nil {
		return 0, err
	}
	if err := foreign.CheckASCII(input); err != nil {
		return 0, err
	}
	if err := checkScanStrings(format, input, args); err != nil {
		return 0, err
	}
	ip, err := env.Space.CString(input)
	if err != nil {
		return 0, err
	}
	defer env.Space.Release(&ip)
	fp, err := env.Space.CString(format)
	if err != nil {
		return 0, err
	}
	defer env.Space.Release(&fp)

	res, err := Call(ctx, env, SymSscanf, []uint64{uint64(ip), uint64(fp)}, args...)
	if len(res) == 0 {
		if err != nil {
			return 0, err
		}
		return 0, errors.InvalidData(errors.PhaseCall, []string{SymSscanf}, "no result")
	}
	return int(api.DecodeI32(res[0])), err
}
