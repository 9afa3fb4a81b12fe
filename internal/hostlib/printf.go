package hostlib

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/wippyai/gmp-native/foreign"
	"github.com/wippyai/gmp-native/mp"
)

// directive is one parsed conversion: %[flags][width][.prec][length]verb.
type directive struct {
	flags  string
	width  string
	prec   string
	length string
	verb   byte
}

func (d directive) suppress() bool { return strings.Contains(d.flags, "*") }

func (d directive) goVerb(verb byte) string {
	return "%" + strings.ReplaceAll(d.flags, "*", "") + d.width + d.prec + string(verb)
}

func (d directive) maxWidth(def int) int {
	if d.width == "" {
		return def
	}
	var n int
	fmt.Sscanf(d.width, "%d", &n)
	return n
}

// parseDirective reads the directive starting just after a '%'.
func parseDirective(format string, i int) (directive, int, error) {
	var d directive
	start := i
	for i < len(format) && strings.IndexByte("-+ #0*", format[i]) >= 0 {
		i++
	}
	d.flags = format[start:i]

	start = i
	for i < len(format) && format[i] >= '0' && format[i] <= '9' {
		i++
	}
	d.width = format[start:i]

	if i < len(format) && format[i] == '.' {
		start = i
		i++
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			i++
		}
		d.prec = format[start:i]
	}

	for _, l := range []string{"hh", "ll", "h", "l", "L", "z", "j", "Z", "Q", "F"} {
		if strings.HasPrefix(format[i:], l) {
			d.length = l
			i += len(l)
			break
		}
	}

	if i >= len(format) {
		return d, i, fmt.Errorf("truncated conversion at offset %d", start)
	}
	d.verb = format[i]
	return d, i + 1, nil
}

// vaList walks a variadic argument buffer. Slots are packed in argument
// order with the widths the buffer builder uses.
type vaList struct {
	space *foreign.Space
	p     foreign.Ptr
}

func (v *vaList) next(n uint64) (uint64, error) {
	var (
		x   uint64
		err error
	)
	mem := v.space.Mem
	switch n {
	case 1:
		var b uint8
		b, err = mem.ReadU8(v.p)
		x = uint64(b)
	case 2:
		var h uint16
		h, err = mem.ReadU16(v.p)
		x = uint64(h)
	case 4:
		var w uint32
		w, err = mem.ReadU32(v.p)
		x = uint64(w)
	default:
		x, err = mem.ReadU64(v.p)
	}
	if err != nil {
		return 0, err
	}
	v.p += foreign.Ptr(n)
	return x, nil
}

func (v *vaList) pointer() (foreign.Ptr, error) {
	x, err := v.next(v.space.PtrSize)
	return foreign.Ptr(x), err
}

// intWidth is the slot width of an integer conversion's length modifier.
func intWidth(length string, ptrSize uint64) uint64 {
	switch length {
	case "hh":
		return 1
	case "h":
		return 2
	case "l", "z":
		return ptrSize
	case "ll", "j":
		return 8
	}
	return 4
}

func signExtend(x uint64, width uint64) int64 {
	shift := 64 - 8*width
	return int64(x<<shift) >> shift
}

func (l *Lib) snprintf(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 4); err != nil {
		return nil, err
	}
	buf, size := ptr(args[0]), args[1]
	format, err := l.readText(ptr(args[2]))
	if err != nil {
		return nil, err
	}
	out, err := l.format(format, &vaList{space: l.space(), p: ptr(args[3])})
	if err != nil {
		return nil, err
	}
	if buf != 0 && size > 0 {
		n := min(uint64(len(out)), size-1)
		if err := l.space().WriteCString(buf, out[:n]); err != nil {
			return nil, err
		}
	}
	return ret(int32(len(out))), nil
}

func (l *Lib) format(format string, va *vaList) (string, error) {
	var sb strings.Builder
	w := l.space().PtrSize
	for i := 0; i < len(format); {
		c := format[i]
		if c != '%' {
			sb.WriteByte(c)
			i++
			continue
		}
		d, next, err := parseDirective(format, i+1)
		if err != nil {
			return "", err
		}
		i = next

		switch {
		case d.verb == '%':
			sb.WriteByte('%')

		case d.length == "Z":
			z, err := l.intArg(va)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, d.goVerb(intVerb(d.verb)), z)

		case d.length == "Q":
			p, err := va.pointer()
			if err != nil {
				return "", err
			}
			r, err := mp.RatAt(l.env, p).Big()
			if err != nil {
				return "", err
			}
			verb := directive{flags: strings.Trim(d.flags, "-*"), prec: d.prec}.goVerb(intVerb(d.verb))
			text := fmt.Sprintf(verb, r.Num())
			if !r.IsInt() {
				text += "/" + fmt.Sprintf(verb, r.Denom())
			}
			pad := directive{flags: strings.Trim(d.flags, "+ #0*"), width: d.width}
			fmt.Fprintf(&sb, pad.goVerb('s'), text)

		case d.length == "F":
			p, err := va.pointer()
			if err != nil {
				return "", err
			}
			f, err := mp.FloatAt(l.env, p).Big()
			if err != nil {
				return "", err
			}
			if d.prec == "" {
				d.prec = ".6"
			}
			fmt.Fprintf(&sb, d.goVerb(d.verb), f)

		case d.verb == 'd' || d.verb == 'i':
			x, err := va.next(intWidth(d.length, w))
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, d.goVerb('d'), signExtend(x, intWidth(d.length, w)))

		case d.verb == 'u' || d.verb == 'x' || d.verb == 'X' || d.verb == 'o':
			x, err := va.next(intWidth(d.length, w))
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, d.goVerb(intVerb(d.verb)), x)

		case d.verb == 'c':
			x, err := va.next(1)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, d.goVerb('c'), rune(byte(x)))

		case d.verb == 's':
			p, err := va.pointer()
			if err != nil {
				return "", err
			}
			s := "(null)"
			if p != 0 {
				if s, err = l.readText(p); err != nil {
					return "", err
				}
			}
			fmt.Fprintf(&sb, d.goVerb('s'), s)

		case d.verb == 'p':
			p, err := va.pointer()
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, "0x%x", uint64(p))

		case strings.IndexByte("feEgG", d.verb) >= 0:
			x, err := va.next(8)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&sb, d.goVerb(d.verb), math.Float64frombits(x))

		case d.verb == 'n':
			p, err := va.pointer()
			if err != nil {
				return "", err
			}
			if err := writeUint(l.space(), p, uint64(sb.Len()), intWidth(d.length, w)); err != nil {
				return "", err
			}

		default:
			return "", fmt.Errorf("unsupported conversion %%%s%c", d.length, d.verb)
		}
	}
	return sb.String(), nil
}

func (l *Lib) intArg(va *vaList) (*big.Int, error) {
	p, err := va.pointer()
	if err != nil {
		return nil, err
	}
	return mp.IntAt(l.env, p).Big()
}

func intVerb(v byte) byte {
	switch v {
	case 'i', 'u':
		return 'd'
	}
	return v
}

func (l *Lib) sscanf(_ context.Context, args ...uint64) ([]uint64, error) {
	if err := argc(args, 3); err != nil {
		return nil, err
	}
	input, err := l.readText(ptr(args[0]))
	if err != nil {
		return nil, err
	}
	format, err := l.readText(ptr(args[1]))
	if err != nil {
		return nil, err
	}
	n, err := l.scan(input, format, &vaList{space: l.space(), p: ptr(args[2])})
	if err != nil {
		return nil, err
	}
	return ret(int32(n)), nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func skipSpace(s string, pos int) int {
	for pos < len(s) && isSpace(s[pos]) {
		pos++
	}
	return pos
}

// scan returns the number of assigned conversions, or -1 when the input
// ends before the first one.
func (l *Lib) scan(input, format string, va *vaList) (int, error) {
	pos, assigned := 0, 0
	eof := func() int {
		if assigned == 0 {
			return -1
		}
		return assigned
	}

	for i := 0; i < len(format); {
		c := format[i]
		if isSpace(c) {
			pos = skipSpace(input, pos)
			i++
			continue
		}
		if c != '%' {
			if pos >= len(input) {
				return eof(), nil
			}
			if input[pos] != c {
				return assigned, nil
			}
			pos++
			i++
			continue
		}

		d, next, err := parseDirective(format, i+1)
		if err != nil {
			return 0, err
		}
		i = next

		if d.verb == 'n' {
			if !d.suppress() {
				p, err := va.pointer()
				if err != nil {
					return 0, err
				}
				if err := writeUint(l.space(), p, uint64(pos), intWidth(d.length, l.space().PtrSize)); err != nil {
					return 0, err
				}
			}
			continue
		}
		if d.verb != 'c' {
			pos = skipSpace(input, pos)
		}
		if pos >= len(input) {
			return eof(), nil
		}
		if d.verb == '%' {
			if input[pos] != '%' {
				return assigned, nil
			}
			pos++
			continue
		}

		consumed, store, err := l.scanOne(d, input[pos:])
		if err != nil {
			return 0, err
		}
		if consumed == 0 {
			return assigned, nil
		}
		pos += consumed
		if d.suppress() {
			continue
		}
		p, err := va.pointer()
		if err != nil {
			return 0, err
		}
		if err := store(p); err != nil {
			return 0, err
		}
		assigned++
	}
	return assigned, nil
}

// scanOne matches one conversion at the start of s and returns how much
// it consumed and how to store the result.
func (l *Lib) scanOne(d directive, s string) (int, func(foreign.Ptr) error, error) {
	limit := d.maxWidth(len(s))
	if limit > len(s) {
		limit = len(s)
	}
	s = s[:limit]
	space := l.space()

	switch {
	case d.length == "Z" && isIntVerb(d.verb):
		n, v := scanInt(s, scanBase(d.verb))
		return n, func(p foreign.Ptr) error { return mp.IntAt(l.env, p).SetBig(v) }, nil

	case d.length == "Q" && isIntVerb(d.verb):
		n, num := scanInt(s, scanBase(d.verb))
		if n == 0 {
			return 0, nil, nil
		}
		den := big.NewInt(1)
		if n < len(s) && s[n] == '/' {
			m, v := scanInt(s[n+1:], scanBase(d.verb))
			if m > 0 && v.Sign() != 0 {
				n, den = n+1+m, v
			}
		}
		r := new(big.Rat).SetFrac(num, den)
		return n, func(p foreign.Ptr) error { return mp.RatAt(l.env, p).SetBig(r) }, nil

	case d.length == "F" && strings.IndexByte("feEgG", d.verb) >= 0:
		n := scanFloat(s)
		if n == 0 {
			return 0, nil, nil
		}
		text := s[:n]
		return n, func(p foreign.Ptr) error {
			f := mp.FloatAt(l.env, p)
			bits, err := f.PrecBits()
			if err != nil {
				return err
			}
			v, ok := parseFloat(text, uint(bits)+64)
			if !ok {
				return fmt.Errorf("bad float %q", text)
			}
			return f.SetBig(v)
		}, nil

	case isIntVerb(d.verb):
		n, v := scanInt(s, scanBase(d.verb))
		width := intWidth(d.length, space.PtrSize)
		return n, func(p foreign.Ptr) error {
			x := v.Uint64()
			if v.Sign() < 0 {
				x = uint64(v.Int64())
			}
			return writeUint(space, p, x, width)
		}, nil

	case strings.IndexByte("feEgG", d.verb) >= 0:
		n := scanFloat(s)
		if n == 0 {
			return 0, nil, nil
		}
		var x float64
		fmt.Sscan(s[:n], &x)
		double := d.length == "l" || d.length == "L"
		return n, func(p foreign.Ptr) error {
			if double {
				return space.Mem.WriteU64(p, math.Float64bits(x))
			}
			return space.Mem.WriteU32(p, math.Float32bits(float32(x)))
		}, nil

	case d.verb == 's':
		n := 0
		for n < len(s) && !isSpace(s[n]) {
			n++
		}
		tok := s[:n]
		return n, func(p foreign.Ptr) error { return space.WriteCString(p, tok) }, nil

	case d.verb == 'c':
		n := min(d.maxWidth(1), len(s))
		tok := []byte(s[:n])
		return n, func(p foreign.Ptr) error { return space.Mem.Write(p, tok) }, nil
	}
	return 0, nil, fmt.Errorf("unsupported conversion %%%s%c", d.length, d.verb)
}

func isIntVerb(v byte) bool { return strings.IndexByte("diuxXo", v) >= 0 }

func scanBase(v byte) int {
	switch v {
	case 'x', 'X':
		return 16
	case 'o':
		return 8
	case 'i':
		return 0
	}
	return 10
}

func writeUint(space *foreign.Space, p foreign.Ptr, x uint64, width uint64) error {
	switch width {
	case 1:
		return space.Mem.WriteU8(p, uint8(x))
	case 2:
		return space.Mem.WriteU16(p, uint16(x))
	case 4:
		return space.Mem.WriteU32(p, uint32(x))
	}
	return space.Mem.WriteU64(p, x)
}

// scanInt matches [+-][prefix]digits. Base 0 reads 0x as hex and a
// leading 0 as octal.
func scanInt(s string, base int) (int, *big.Int) {
	i := 0
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	if (base == 0 || base == 16) && i+1 < len(s) && s[i] == '0' && (s[i+1] == 'x' || s[i+1] == 'X') &&
		i+2 < len(s) && digitValue(s[i+2]) < 16 {
		i += 2
		base = 16
	} else if base == 0 {
		base = 10
		if i < len(s) && s[i] == '0' {
			base = 8
		}
	}
	start := i
	for i < len(s) && digitValue(s[i]) < base {
		i++
	}
	if i == start {
		return 0, nil
	}
	v, _ := new(big.Int).SetString(s[start:i], base)
	if neg {
		v.Neg(v)
	}
	return i, v
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 99
}

// scanFloat matches [+-]digits[.digits][(e|E)[+-]digits].
func scanFloat(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}
