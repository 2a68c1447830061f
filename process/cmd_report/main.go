package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"ocrtext/pkg/config"
	"ocrtext/pkg/history"
	"ocrtext/process/report"
)

func main() {
	month := flag.String("month", time.Now().UTC().Format("2006-01"), "month to report (YYYY-MM)")
	list := flag.Bool("list", false, "list matching extractions")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if cfg.Database.DSN == "" {
		fmt.Fprintln(os.Stderr, "database.dsn not set; export DB_DSN and retry")
		os.Exit(2)
	}
	db, err := history.Open(cfg.Database.DSN, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	if err := report.RunReport(os.Stdout, db, *month, *list); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
