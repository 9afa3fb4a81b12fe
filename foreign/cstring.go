package foreign

import (
	"bytes"

	"github.com/wippyai/gmp-native/errors"
)

// MaxCString bounds how far ReadCString scans for a terminator.
const MaxCString = 1 << 24

// CheckASCII rejects text the native library cannot be assumed to accept.
func CheckASCII(s string) error {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x80 {
			return errors.New(errors.PhaseMarshal, errors.KindInvalidArgument).
				Value(s).
				Detail("non-ASCII byte 0x%02x at offset %d", c, i).
				Build()
		}
		if c == 0 {
			return errors.New(errors.PhaseMarshal, errors.KindInvalidArgument).
				Value(s).
				Detail("embedded NUL at offset %d", i).
				Build()
		}
	}
	return nil
}

// CString allocates a NUL-terminated copy of s. The text is validated before
// anything is allocated.
func (s *Space) CString(str string) (Ptr, error) {
	if err := CheckASCII(str); err != nil {
		return 0, err
	}
	n := uint64(len(str)) + 1
	p, err := s.Malloc(n)
	if err != nil {
		return 0, err
	}
	if err := s.WriteCString(p, str); err != nil {
		s.Alloc.Free(p)
		return 0, err
	}
	return p, nil
}

// WriteCString writes str followed by a NUL byte at p.
func (s *Space) WriteCString(p Ptr, str string) error {
	buf := make([]byte, len(str)+1)
	copy(buf, str)
	return s.Mem.Write(p, buf)
}

// ReadCString reads a NUL-terminated string starting at p.
func (s *Space) ReadCString(p Ptr) (string, error) {
	if p == 0 {
		return "", errors.NilPointer(errors.PhaseUnmarshal, nil, "char *")
	}
	var out []byte
	const chunk = 64
	for uint64(len(out)) < MaxCString {
		at, err := s.Offset(p, uint64(len(out)))
		if err != nil {
			return "", err
		}
		data, err := s.readUpTo(at, chunk)
		if err != nil {
			return "", err
		}
		if i := bytes.IndexByte(data, 0); i >= 0 {
			out = append(out, data[:i]...)
			return string(out), nil
		}
		out = append(out, data...)
	}
	return "", errors.InvalidData(errors.PhaseUnmarshal, nil, "unterminated C string")
}

// readUpTo reads at most n bytes, shrinking the window at the end of memory.
func (s *Space) readUpTo(p Ptr, n uint64) ([]byte, error) {
	for ; n > 0; n /= 2 {
		data, err := s.Mem.Read(p, n)
		if err == nil {
			return data, nil
		}
		if n == 1 {
			return nil, err
		}
	}
	return nil, errors.InvalidData(errors.PhaseUnmarshal, nil, "empty read")
}
