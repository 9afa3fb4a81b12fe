package varargs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/gmp-native/errors"
)

// scanLengths are the length modifiers a scanf directive may carry.
const scanLengths = "hlLqjztZQF"

// checkScanStrings rejects a %s conversion that could write more than its
// OutString cell holds. A %s without a width is accepted only when the
// whole input fits the cell.
func checkScanStrings(format, input string, args []Arg) error {
	next := 0
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		if i < len(format) && format[i] == '%' {
			continue
		}
		suppress := i < len(format) && format[i] == '*'
		if suppress {
			i++
		}
		start := i
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			i++
		}
		width := format[start:i]
		for i < len(format) && strings.IndexByte(scanLengths, format[i]) >= 0 {
			i++
		}
		if i >= len(format) || suppress {
			continue
		}

		idx := next
		next++
		if format[i] != 's' || idx >= len(args) {
			continue
		}
		out, ok := args[idx].(OutString)
		if !ok {
			continue
		}
		limit := len(input)
		if width != "" {
			n, err := strconv.Atoi(width)
			if err == nil && n < limit {
				limit = n
			}
		}
		if limit >= out.Cap {
			return errors.New(errors.PhaseLayout, errors.KindInvalidArgument).
				Path(fmt.Sprintf("arg%d", idx)).
				Value(out.Cap).
				Detail("%%%ss may write %d bytes into a %d-byte string", width, limit+1, out.Cap).
				Build()
		}
	}
	return nil
}
