package ocr

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// disallowedRE matches anything that is not a word character, whitespace, hyphen,
// period or comma. Word characters include combining marks so Devanagari survives.
var disallowedRE = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s.,-]`)

const minLineRunes = 2

// CleanText normalizes raw OCR output into compact lines. Each line is trimmed,
// dropped when shorter than two characters, whitespace-collapsed and then stripped
// of disallowed characters. Surviving lines keep their order and are joined by "\n".
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) < minLineRunes {
			continue
		}
		line = collapseSpaces(line)
		line = disallowedRE.ReplaceAllString(line, "")
		// stripping can leave doubled or edge spaces and stub lines behind
		line = collapseSpaces(line)
		if utf8.RuneCountInString(line) < minLineRunes {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}
