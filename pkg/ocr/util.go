package ocr

import "strings"

// snippet returns a shortened version of text for logging.
func snippet(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// collapseSpaces trims s and replaces every whitespace run with a single space.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
