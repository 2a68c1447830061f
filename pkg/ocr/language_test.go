package ocr

import (
	"errors"
	"testing"
)

func TestParseLanguage(t *testing.T) {
	cases := map[string]Language{
		"":       LangEnglish,
		"en":     LangEnglish,
		" EN+HI": LangEnglishHindi,
		"mr":     LangMarathi,
	}
	for in, want := range cases {
		got, err := ParseLanguage(in)
		if err != nil || got != want {
			t.Fatalf("ParseLanguage(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseLanguage("de"); !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("expected ErrUnknownLanguage, got %v", err)
	}
}

func TestLanguageCodes(t *testing.T) {
	got := LangEnglishFrench.TesseractCodes()
	if len(got) != 2 || got[0] != "eng" || got[1] != "fra" {
		t.Fatalf("unexpected codes %v", got)
	}
	if LangEnglishHindi.Label() != "English + Hindi" {
		t.Fatalf("unexpected label %q", LangEnglishHindi.Label())
	}
	if Languages()[0] != LangEnglish {
		t.Fatalf("English must be the default entry")
	}
}
