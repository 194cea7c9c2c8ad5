// Package docseq allocates human-readable document codes such as "QUO 2025-0001"
// or "0042" from a numeric series.
package docseq

import (
	"regexp"
	"strconv"
	"strings"
)

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// Format describes how a numeric suffix is rendered into a code and which
// existing codes take part in the series.
//
// When Scoped is true only codes of the exact form <Prefix><digits> count;
// otherwise the trailing digit run of any code counts, whatever its prefix.
type Format struct {
	Prefix string
	Pad    int
	Scoped bool
}

// Render formats n as a padded code with the configured prefix.
func (f Format) Render(n int64) string {
	if n < 1 {
		n = 1
	}
	digits := strconv.FormatInt(n, 10)
	if pad := f.Pad; pad > len(digits) {
		digits = strings.Repeat("0", pad-len(digits)) + digits
	}
	return f.Prefix + digits
}

// Suffix extracts the numeric suffix of code. The second return value is false
// when the code does not belong to the series.
func (f Format) Suffix(code string) (int64, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, false
	}
	var digits string
	if f.Scoped {
		if !strings.HasPrefix(code, f.Prefix) {
			return 0, false
		}
		digits = code[len(f.Prefix):]
		if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
			return 0, false
		}
	} else {
		m := trailingDigits.FindStringSubmatch(code)
		if m == nil {
			return 0, false
		}
		digits = m[1]
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Max returns the largest suffix among codes, or zero when none qualifies.
func (f Format) Max(codes []string) int64 {
	var max int64
	for _, c := range codes {
		if n, ok := f.Suffix(c); ok && n > max {
			max = n
		}
	}
	return max
}

// Next returns the code following the largest suffix among codes.
func (f Format) Next(codes []string) string {
	return f.Render(f.Max(codes) + 1)
}

// NextCode computes the next code over existing. An empty prefix matches the
// trailing digits of any code; a non-empty prefix scopes the scan to codes that
// start with it.
func NextCode(existing []string, pad int, prefix string) string {
	return Format{Prefix: prefix, Pad: pad, Scoped: prefix != ""}.Next(existing)
}
