package models

import (
	"time"
	"unicode/utf8"
)

// Extraction statuses
const (
	StatusOK     = "ok"
	StatusNoText = "no_text"
	StatusFailed = "failed"
)

// Extraction sources
const (
	SourceWeb   = "web"
	SourceAPI   = "api"
	SourceBatch = "batch"
)

// Extraction records one OCR run over an uploaded or batch file. Only the
// size of the extracted text is kept, never the text itself.
type Extraction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	ResultID     string    `gorm:"size:36;index" json:"result_id"`
	FileName     string    `gorm:"size:255;not null" json:"file_name"`
	Kind         string    `gorm:"size:16" json:"kind"`
	Language     string    `gorm:"size:16" json:"language"`
	Handwritten  bool      `json:"handwritten"`
	Engine       string    `gorm:"size:32" json:"engine"`
	Source       string    `gorm:"size:16;index" json:"source"`
	Pages        int       `json:"pages"`
	Status       string    `gorm:"size:16;index;not null" json:"status"`
	FailedReason string    `gorm:"size:255" json:"failed_reason,omitempty"`
	RawChars     int       `json:"raw_chars"`
	CleanedChars int       `json:"cleaned_chars"`
	DurationMS   int64     `json:"duration_ms"`
}

// SetTextStats records the character counts of the extracted texts.
func (e *Extraction) SetTextStats(raw, cleaned string) {
	e.RawChars = utf8.RuneCountInString(raw)
	e.CleanedChars = utf8.RuneCountInString(cleaned)
}
