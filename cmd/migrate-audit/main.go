// Package main applies or rolls back the postgres audit log migrations.
// It is only needed when AUDIT_BACKEND=postgres.
package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/Smartconnectcrm/smartconnect-website/config"
	"github.com/Smartconnectcrm/smartconnect-website/db"
	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/joho/godotenv"
)

func main() {
	down := flag.Int("down", 0, "Roll back this many migrations instead of migrating up")
	flag.Parse()

	_ = godotenv.Load()
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	dbURL := buildDatabaseURL()
	log.Infow("Using database", "url", logger.MaskConnectionString(dbURL))

	if *down > 0 {
		if err := db.RollbackMigrations(dbURL, *down); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Infow("Rolled back migrations", "steps", *down)
		return
	}

	if err := db.RunMigrations(dbURL); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Info("Audit schema is up to date")
}

// buildDatabaseURL prefers DATABASE_URL and falls back to the DB_* variables
// the server reads, so the tool works without the mail and admin settings.
func buildDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	port, err := strconv.Atoi(envOrDefault("DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}
	cfg := config.DatabaseConfig{
		Host:     envOrDefault("DB_HOST", "localhost"),
		Port:     port,
		User:     envOrDefault("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     envOrDefault("DB_NAME", "smartconnect_website"),
		SSLMode:  envOrDefault("DB_SSL_MODE", "disable"),
	}
	return cfg.URL()
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
