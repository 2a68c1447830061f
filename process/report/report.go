package report

import (
	"fmt"
	"io"
	"time"

	"ocrtext/models"
	"ocrtext/pkg/history"

	"gorm.io/gorm"
)

// MonthRange returns the UTC bounds [start, end) of a YYYY-MM month.
func MonthRange(month string) (time.Time, time.Time, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month format, expected YYYY-MM: %w", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Write prints the summary rows for month followed by totals.
func Write(w io.Writer, month string, rows []history.SummaryRow) {
	fmt.Fprintf(w, "Extraction report for month=%s (UTC):\n", month)
	var count, pages int64
	for _, r := range rows {
		mode := "printed"
		if r.Handwritten {
			mode = "handwritten"
		}
		fmt.Fprintf(w, "  %-8s %-6s %-11s extractions=%d pages=%d\n", r.Status, r.Source, mode, r.Count, r.Pages)
		count += r.Count
		pages += r.Pages
	}
	fmt.Fprintf(w, "  total extractions=%d pages=%d\n", count, pages)
}

// RunReport summarizes the month and optionally lists every extraction in it.
func RunReport(w io.Writer, db *gorm.DB, month string, list bool) error {
	start, end, err := MonthRange(month)
	if err != nil {
		return err
	}
	rows, err := history.Summarize(db, start, end)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	Write(w, month, rows)

	if list {
		var recs []models.Extraction
		if err := db.Where("created_at >= ? AND created_at < ?", start, end).
			Order("id").Find(&recs).Error; err != nil {
			return fmt.Errorf("fetch rows: %w", err)
		}
		for _, r := range recs {
			fmt.Fprintf(w, "%d|%s|%s|%s|%s|%d|%s\n", r.ID, r.FileName, r.Status, r.Engine, r.Language, r.Pages, r.CreatedAt.Format(time.RFC3339))
		}
	}
	return nil
}
