package pipeline

import (
	"regexp"
	"strings"

	"invoicemerge/internal"
	"invoicemerge/internal/util"
)

// ExtractField pulls the value trailing a literal keyword out of free text.
// The keyword may be followed by intra-line whitespace, one optional separator
// out of ":", "—", "=", and more whitespace; the value runs until a newline or
// a pipe. Returns the sentinel when the keyword is absent or the value is
// empty after trimming.
func ExtractField(text, keyword string) string {
	if text == "" {
		return internal.SentinelText
	}
	re := regexp.MustCompile(regexp.QuoteMeta(keyword) + `[^\S\r\n]*[:—=]?\s*([^\n|]+)`)
	match := re.FindStringSubmatch(text)
	if match == nil {
		return internal.SentinelText
	}
	value := strings.TrimSpace(match[1])
	if value == "" {
		return internal.SentinelText
	}
	return value
}

// ExtractNumericField pulls an amount that follows a keyword and an optionally
// parenthesized EGP marker. Missing keyword or an unparsable amount yields 0.
func ExtractNumericField(text, keyword string) float64 {
	if text == "" {
		return 0
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(keyword) + `\s*\(?EGP\)?\s*[:=]?\s*([\d,]+\.?\d*)`)
	match := re.FindStringSubmatch(text)
	if match == nil {
		return 0
	}
	return util.CleanNumericString(match[1])
}
