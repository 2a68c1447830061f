package ocr

import (
	"errors"
	"fmt"
)

// ErrNoText is returned when OCR completes but nothing readable is left.
var ErrNoText = errors.New("no text detected")

var (
	ErrUnsupportedType = errors.New("unsupported file type (expected jpg, jpeg, png or pdf)")
	ErrUnknownLanguage = errors.New("unknown OCR language")
	ErrUnknownEngine   = errors.New("unknown OCR engine")
)

// InputKind tells images and PDFs apart; failures are reported per kind.
type InputKind string

const (
	KindImage InputKind = "image"
	KindPDF   InputKind = "pdf"
)

// ProcessingError wraps a failure raised while running OCR over one upload.
type ProcessingError struct {
	Kind InputKind
	Err  error
}

func (e *ProcessingError) Error() string {
	label := "image"
	if e.Kind == KindPDF {
		label = "PDF"
	}
	return fmt.Sprintf("error processing %s: %v", label, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }
