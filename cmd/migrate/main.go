package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/catalogsync/backend/internal/infrastructure/crypto"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/catalogsync/backend/internal/infrastructure/persistence"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	// genkey needs neither config nor database
	if command == "genkey" {
		key, err := crypto.GenerateKey()
		if err != nil {
			log.Fatal("Failed to generate key", zap.Error(err))
		}
		fmt.Println(key)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	switch command {
	case "up":
		db, err := persistence.NewDatabase(&cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer func() {
			_ = db.Close()
		}()

		if err := persistence.Migrate(db.DB); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Migrations applied successfully")

	case "ping":
		db, err := persistence.NewDatabase(&cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer func() {
			_ = db.Close()
		}()
		log.Info("Database reachable", zap.String("host", cfg.Database.Host))

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Catalog Sync Database Tool

Usage:
  migrate [flags] <command>

Commands:
  up        Apply the schema (creates or updates all tables)
  ping      Verify database connectivity
  genkey    Generate a hex credential key for crypto.credential_key

Flags:
  -log-level string   Log level: debug, info, warn, error (default: info)

Environment Variables:
  CATALOGSYNC_DATABASE_HOST, CATALOGSYNC_DATABASE_PORT,
  CATALOGSYNC_DATABASE_USER, CATALOGSYNC_DATABASE_PASSWORD,
  CATALOGSYNC_DATABASE_DBNAME`)
}
