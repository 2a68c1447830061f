package ocr

import (
	"fmt"
	"strings"
)

// Language is a selectable OCR language code, e.g. "en" or "en+hi".
type Language string

const (
	LangEnglish       Language = "en"
	LangEnglishHindi  Language = "en+hi"
	LangEnglishFrench Language = "en+fr"
	LangFrench        Language = "fr"
	LangHindi         Language = "hi"
	LangMarathi       Language = "mr"
)

var supportedLanguages = []Language{
	LangEnglish, LangEnglishHindi, LangEnglishFrench, LangFrench, LangHindi, LangMarathi,
}

var languageNames = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"fr": "French",
	"mr": "Marathi",
}

var tesseractCodes = map[string]string{
	"en": "eng",
	"hi": "hin",
	"fr": "fra",
	"mr": "mar",
}

// Languages lists the supported languages in menu order; English comes first.
func Languages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// ParseLanguage validates s. An empty value selects English.
func ParseLanguage(s string) (Language, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LangEnglish, nil
	}
	for _, l := range supportedLanguages {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, s)
}

// Parts splits a combined language into its single-language codes.
func (l Language) Parts() []string {
	return strings.Split(string(l), "+")
}

// TesseractCodes maps the language onto traineddata names.
func (l Language) TesseractCodes() []string {
	parts := l.Parts()
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if code, ok := tesseractCodes[p]; ok {
			out = append(out, code)
		}
	}
	if len(out) == 0 {
		out = append(out, "eng")
	}
	return out
}

// Label is the human readable name shown in menus.
func (l Language) Label() string {
	parts := l.Parts()
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if n, ok := languageNames[p]; ok {
			names = append(names, n)
		} else {
			names = append(names, p)
		}
	}
	return strings.Join(names, " + ")
}
