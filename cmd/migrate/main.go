package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/netbill/netbill/internal/config"
	"github.com/netbill/netbill/internal/logger"
)

func main() {
	dir := flag.String("dir", "migrations", "Directory containing .sql migration files")
	dryRun := flag.Bool("dry-run", false, "Print migration SQL without executing it")
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		logger.Fatalw("Failed to list migration files", "error", err, "dir", *dir)
	}
	if len(files) == 0 {
		logger.Fatalw("No migration files found", "dir", *dir)
	}
	sort.Strings(files)

	if *dryRun {
		logger.Info("Dry run mode - printing migration SQL without executing")
		for _, file := range files {
			sqlBytes, err := os.ReadFile(file)
			if err != nil {
				logger.Fatalw("Failed to read migration", "error", err, "file", file)
			}
			os.Stdout.Write(sqlBytes)
		}
		return
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host)
	db, err := sqlx.Connect("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			logger.Fatalw("Failed to read migration", "error", err, "file", file)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			logger.Fatalw("Failed to apply migration", "error", err, "file", file)
		}
		logger.Infow("Applied migration", "file", filepath.Base(file))
	}
	logger.Info("Migration completed successfully")
}
