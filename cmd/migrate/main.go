package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/propledger/backend/internal/infrastructure/config"
	"github.com/propledger/backend/internal/infrastructure/logger"
	"github.com/propledger/backend/internal/infrastructure/migration"
	"github.com/propledger/backend/migrations"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

func main() {
	var (
		migrationsDir string
		logLevel      string
	)
	flag.StringVar(&migrationsDir, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
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

	// create and list only touch files on disk
	switch command {
	case "create":
		if len(args) < 2 {
			log.Fatal("Migration name required. Usage: migrate create <name> [description]")
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		pair, err := migration.Create(dirOrDefault(migrationsDir), args[1], description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		log.Info("Migration created",
			zap.Uint("version", pair.Version),
			zap.String("up_file", pair.UpPath),
			zap.String("down_file", pair.DownPath),
		)
		return
	case "list":
		entries, err := migration.Scan(dirOrDefault(migrationsDir))
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		for _, e := range entries {
			fmt.Println("  -", e)
		}
		log.Info("Available migrations", zap.Int("count", len(entries)))
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	var m *migration.Migrator
	if migrationsDir != "" {
		m, err = migration.OpenDir(db, migrationsDir, log)
	} else {
		m, err = migration.Open(db, migrations.FS, log)
	}
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("database", cfg.Database.DBName),
		zap.Bool("embedded", migrationsDir == ""),
	)

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "step":
		n, convErr := strconv.Atoi(argAt(log, args, 1, "step <n>"))
		if convErr != nil {
			log.Fatal("Invalid step count", zap.String("value", args[1]))
		}
		err = m.Steps(n)
	case "goto":
		v, convErr := strconv.ParseUint(argAt(log, args, 1, "goto <version>"), 10, 32)
		if convErr != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		err = m.GoTo(uint(v))
	case "force":
		v, convErr := strconv.Atoi(argAt(log, args, 1, "force <version>"))
		if convErr != nil {
			log.Fatal("Invalid version number", zap.String("value", args[1]))
		}
		err = m.Force(v)
	case "version":
		var status migration.Status
		status, err = m.Status()
		if err == nil && !status.Applied {
			log.Info("No migrations applied")
		} else if err == nil {
			log.Info("Current migration version",
				zap.Uint("version", status.Version),
				zap.Bool("dirty", status.Dirty),
			)
		}
	case "drop":
		if len(args) < 2 || (args[1] != "-confirm" && args[1] != "--confirm") {
			log.Fatal("Drop deletes every ledger table. Run 'migrate drop -confirm' to proceed.")
		}
		err = m.Drop()
	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func dirOrDefault(dir string) string {
	if dir == "" {
		return defaultMigrationsDir
	}
	return dir
}

func argAt(log *zap.Logger, args []string, i int, usage string) string {
	if len(args) <= i {
		log.Fatal("Missing argument. Usage: migrate " + usage)
	}
	return args[i]
}

func printUsage() {
	fmt.Println(`Property Ledger Database Migration Tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  goto <version>        Migrate to a specific version
  version               Show current migration version
  force <version>       Mark a version as clean after a failed migration
  drop -confirm         Drop all database objects
  create <name> [desc]  Create the next numbered migration pair
  list                  List migrations in the migrations directory

Flags:
  -path string          Use migrations from this directory (default: embedded)
  -log-level string     Log level: debug, info, warn, error (default: info)

Environment Variables:
  PROPLEDGER_DATABASE_HOST, PROPLEDGER_DATABASE_PORT, PROPLEDGER_DATABASE_USER,
  PROPLEDGER_DATABASE_PASSWORD, PROPLEDGER_DATABASE_DBNAME, PROPLEDGER_DATABASE_SSLMODE

Examples:
  migrate up
  migrate step -1
  migrate create add_tariff_column "Store the tariff used per invoice"`)
}
