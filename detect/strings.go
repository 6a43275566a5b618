package detect

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"

	"github.com/pkg/errors"
)

// isPrintable reports whether b is one of Go's equivalent of Python's string.printable: the
// 7-bit printable set (digits, letters, punctuation, whitespace).
func isPrintable(b byte) bool {
	return (b >= 0x20 && b < 0x7f) || b == '\t' || b == '\n' || b == '\v' || b == '\f' || b == '\r'
}

// nativeStrings scans data for the longest run of printable bytes and returns its length if it
// meets min, or 0 if no run qualifies (§4.7).
func nativeStrings(data []byte, min int) int {
	longest := 0
	run := 0
	for _, b := range data {
		if isPrintable(b) {
			run++
			continue
		}
		if run > longest {
			longest = run
		}
		run = 0
	}
	if run > longest {
		longest = run
	}
	if longest < min {
		return 0
	}
	return longest
}

// gnuStrings pipes data through the external `strings -n min` utility and returns the length of
// its (trimmed) output, or 0 if shorter than min (§4.7). This is a thin process wrapper, not a
// reimplementation — matching original_source/analyzer.py's gnu_strings subprocess shape.
func gnuStrings(ctx context.Context, data []byte, min int) (int, error) {
	cmd := exec.CommandContext(ctx, "strings", "-n", strconv.Itoa(min))
	cmd.Stdin = bytes.NewReader(data)

	out, err := cmd.Output()
	if err != nil {
		return 0, errors.Wrap(err, "run strings")
	}

	trimmed := bytes.TrimSpace(out)
	if len(trimmed) < min {
		return 0, nil
	}
	return len(trimmed), nil
}
