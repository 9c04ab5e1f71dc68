package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`^[+-]?\d+(\.\d+)?|^[+-]?\.\d+`)

// ParseMeasurement extracts the leading numeric token from a cell such as
// "21.3 C", "4 mm", "$1.20" or "-$1.20". Empty cells, "NaN" and text without a
// leading number report false so the caller can treat the value as missing.
func ParseMeasurement(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")

	// A sign may come before or after the currency symbol
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	s = strings.TrimLeft(s, "$£€")
	if sign != "" && (strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+")) {
		return 0, false
	}
	s = sign + s

	match := leadingNumber.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
