package parse

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numberRe = regexp.MustCompile(`(\d+(?:[.,]\d+)*)\s*([KkMmBb])?\b`)

// ExtractNumber returns the first count found in text. Abbreviated counts
// such as "1.2K" or "3M" are expanded; thousands separators are ignored.
// Text without any digits yields 0.
func ExtractNumber(text string) int {
	m := numberRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}

	digits, suffix := m[1], strings.ToUpper(m[2])
	if suffix == "" {
		n, err := strconv.Atoi(strings.NewReplacer(",", "", ".", "").Replace(digits))
		if err != nil {
			return 0
		}
		return n
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", "."), 64)
	if err != nil {
		return 0
	}
	switch suffix {
	case "K":
		f *= 1e3
	case "M":
		f *= 1e6
	case "B":
		f *= 1e9
	}
	return int(math.Round(f))
}
