package history

import (
	"errors"
	"fmt"
	"time"

	"ocrtext/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrDisabled is returned by helpers called without a database.
var ErrDisabled = errors.New("extraction history is disabled")

// Open connects to Postgres and optionally migrates the schema.
func Open(dsn string, autoMigrate bool) (*gorm.DB, error) {
	if dsn == "" {
		return nil, ErrDisabled
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres database: %w", err)
	}
	if autoMigrate {
		if err := Migrate(db); err != nil {
			log.Warn().Err(err).Msg("migration warning (extractions)")
		}
	}
	return db, nil
}

// Migrate creates or updates the extractions table.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return ErrDisabled
	}
	return db.AutoMigrate(&models.Extraction{})
}

// Record stores rec. The failure reason is cut to the column size.
func Record(db *gorm.DB, rec *models.Extraction) error {
	if db == nil {
		return ErrDisabled
	}
	rec.FailedReason = truncate(rec.FailedReason, 255)
	return db.Create(rec).Error
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Filter narrows List results.
type Filter struct {
	Status string
	Source string
	Limit  int
	Offset int
}

// List returns the newest extractions first together with the total count.
func List(db *gorm.DB, f Filter) ([]models.Extraction, int64, error) {
	if db == nil {
		return nil, 0, ErrDisabled
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	q := db.Model(&models.Extraction{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var items []models.Extraction
	err := q.Order("id desc").Limit(f.Limit).Offset(f.Offset).Find(&items).Error
	return items, total, err
}

// Get loads a single extraction.
func Get(db *gorm.DB, id uint) (*models.Extraction, error) {
	if db == nil {
		return nil, ErrDisabled
	}
	var rec models.Extraction
	if err := db.First(&rec, id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Prune deletes extractions created before cutoff.
func Prune(db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, ErrDisabled
	}
	res := db.Where("created_at < ?", cutoff).Delete(&models.Extraction{})
	return res.RowsAffected, res.Error
}

// SummaryRow counts extractions per status, source and mode.
type SummaryRow struct {
	Status      string
	Source      string
	Handwritten bool
	Count       int64
	Pages       int64
}

// Summarize aggregates extractions created in [start, end).
func Summarize(db *gorm.DB, start, end time.Time) ([]SummaryRow, error) {
	if db == nil {
		return nil, ErrDisabled
	}
	var rows []SummaryRow
	err := db.Model(&models.Extraction{}).
		Select("status, source, handwritten, COUNT(*) AS count, COALESCE(SUM(pages),0) AS pages").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("status, source, handwritten").
		Order("status, source, handwritten").
		Scan(&rows).Error
	return rows, err
}
