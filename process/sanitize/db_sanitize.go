package sanitize

import (
	"context"
	"flag"
	"fmt"
	"time"

	"ocrtext/models"
	"ocrtext/pkg/config"
	"ocrtext/pkg/history"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Run executes the db_sanitize CLI behavior: it deletes stored extractions
// older than a cutoff. Exported so a small cmd/main can call it.
func Run() {
	var (
		dryRun    = flag.Bool("dry-run", true, "Don't delete anything; show what would be removed")
		yes       = flag.Bool("yes", false, "Confirm destructive action (required to actually delete)")
		olderThan = flag.Duration("older-than", 0, "Delete extractions older than this (default: database.retention)")
		status    = flag.String("status", "", "Only consider extractions with this status (ok, no_text, failed)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	gdb, err := history.Open(cfg.Database.DSN, false)
	if err != nil {
		log.Fatal().Err(err).Msg("database.dsn must be set to run db_sanitize")
	}

	age := *olderThan
	if age <= 0 {
		age = cfg.Database.Retention
	}
	if age <= 0 {
		log.Fatal().Msg("no cutoff: pass --older-than or set database.retention")
	}
	cutoff := time.Now().Add(-age)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	q := scope(gdb.WithContext(ctx), cutoff, *status)
	var cnt int64
	if err := q.Model(&models.Extraction{}).Count(&cnt).Error; err != nil {
		log.Fatal().Err(err).Msg("count failed")
	}
	fmt.Printf("Extractions created before %s: %d\n", cutoff.UTC().Format(time.RFC3339), cnt)
	if cnt == 0 {
		return
	}

	if *dryRun {
		fmt.Println("dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return
	}
	if !*yes {
		fmt.Println("Destructive operation. Pass --yes to confirm execution. Aborting.")
		return
	}

	if *status == "" {
		n, err := history.Prune(gdb.WithContext(ctx), cutoff)
		if err != nil {
			log.Fatal().Err(err).Msg("prune failed")
		}
		log.Info().Int64("deleted", n).Msg("extractions deleted")
		return
	}
	res := scope(gdb.WithContext(ctx), cutoff, *status).Delete(&models.Extraction{})
	if res.Error != nil {
		log.Fatal().Err(res.Error).Msg("delete failed")
	}
	log.Info().Int64("deleted", res.RowsAffected).Str("status", *status).Msg("extractions deleted")
}

func scope(db *gorm.DB, cutoff time.Time, status string) *gorm.DB {
	q := db.Where("created_at < ?", cutoff)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return q
}
