package util

import (
	"regexp"
	"strconv"
	"strings"
)

var reNonNumeric = regexp.MustCompile(`[^0-9.]`)

// CleanNumeric normalizes a cell value into a float. Values that are already
// numeric pass through; strings are stripped of thousands-separator commas and
// every remaining non-digit, non-dot character before parsing. Anything that
// still does not parse yields 0.
func CleanNumeric(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		return CleanNumericString(v)
	case *string:
		if v == nil {
			return 0
		}
		return CleanNumericString(*v)
	default:
		return 0
	}
}

func CleanNumericString(input string) float64 {
	cleaned := strings.ReplaceAll(input, ",", "")
	cleaned = reNonNumeric.ReplaceAllString(cleaned, "")
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return parsed
}
