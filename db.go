package main

import (
	"time"

	"ocrtext/models"
	"ocrtext/pkg/config"
	"ocrtext/pkg/history"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// db is nil when no database is configured; history endpoints then answer 503.
var db *gorm.DB

func initDB(cfg config.DatabaseConfig) error {
	if cfg.DSN == "" {
		log.Info().Msg("database.dsn not set, extraction history disabled")
		return nil
	}
	conn, err := history.Open(cfg.DSN, cfg.AutoMigrate)
	if err != nil {
		return err
	}
	db = conn
	log.Info().Bool("auto_migrate", cfg.AutoMigrate).Msg("database connected")
	return nil
}

// recordExtraction stores rec when history is enabled. Failures are logged only.
func recordExtraction(rec *models.Extraction) {
	if db == nil {
		return
	}
	if err := history.Record(db, rec); err != nil {
		log.Warn().Err(err).Str("file", rec.FileName).Msg("failed to record extraction")
	}
}

// startRetentionJob prunes history older than retention once an hour.
func startRetentionJob(retention time.Duration) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc("@hourly", func() {
		n, err := history.Prune(db, time.Now().Add(-retention))
		if err != nil {
			log.Warn().Err(err).Msg("history retention failed")
			return
		}
		if n > 0 {
			log.Info().Int64("deleted", n).Dur("retention", retention).Msg("history pruned")
		}
	})
	if err != nil {
		log.Warn().Err(err).Msg("could not schedule history retention")
		return nil
	}
	c.Start()
	return c
}
