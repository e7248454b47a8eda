package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/supremacy-go/combat/internal/api"
	"github.com/supremacy-go/combat/internal/config"
	"github.com/supremacy-go/combat/internal/database"
	"github.com/supremacy-go/combat/internal/logging"
	"github.com/supremacy-go/combat/internal/storage"
)

var (
	db *gorm.DB

	SlogManager *logging.SlogManager
	Logger      *slog.Logger
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <command> [args]\n\n", os.Args[0])
	fmt.Fprintln(out, "commands:")
	fmt.Fprintln(out, "  getjson <id|uuid>...    export combats to gzipped JSON")
	fmt.Fprintln(out, "  migratebackups <dir>    copy combats from SQLite backups into the database")
	fmt.Fprintln(out, "  setupdb                 migrate the schema")
	fmt.Fprintln(out, "\nflags:")
	flag.PrintDefaults()
}

func main() {
	var (
		configDir  string
		sqlitePath string
		outputDir  string
		upload     bool
	)
	flag.StringVar(&configDir, "config", ".", "directory containing combatsim.cfg.json")
	flag.StringVar(&sqlitePath, "sqlite", "", "read from this SQLite file instead of Postgres")
	flag.StringVar(&outputDir, "out", "", "output directory for getjson (default storage.memory.outputDir)")
	flag.BoolVar(&upload, "upload", false, "upload exported combats to the report frontend")
	flag.Usage = usage
	flag.Parse()

	SlogManager = logging.NewSlogManager("combat_reports")
	if err := config.Load(configDir); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config, using defaults: %v\n", err)
	}
	SlogManager.Setup(nil, viper.GetString("logLevel"), nil)
	Logger = SlogManager.Logger()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	if outputDir == "" {
		outputDir = config.GetStorageConfig().Memory.OutputDir
	}

	var err error
	Logger.Info("Connecting to database...")
	db, err = connect(sqlitePath)
	if err != nil {
		Logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	Logger.Info("Database connection established.", "dialect", db.Dialector.Name())

	switch strings.ToLower(args[0]) {
	case "getjson":
		if len(args) < 2 {
			fmt.Println("No combat IDs provided.")
			os.Exit(2)
		}
		var paths []storage.ExportedFile
		paths, err = exportCombats(db, args[1:], outputDir)
		if err == nil && upload {
			err = uploadExports(context.Background(), paths)
		}

	case "migratebackups":
		if len(args) != 2 {
			fmt.Println("No backup directory provided.")
			os.Exit(2)
		}
		err = migrateBackups(db, args[1])

	case "setupdb":
		err = database.Setup(db)
		if err == nil {
			Logger.Info("DB setup complete.")
		}

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		Logger.Error("Command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func connect(sqlitePath string) (*gorm.DB, error) {
	if sqlitePath != "" {
		return database.GetSqliteDB(sqlitePath)
	}
	conn, err := database.GetPostgresDB()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	return conn, nil
}

func uploadExports(ctx context.Context, exports []storage.ExportedFile) error {
	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if err := client.Healthcheck(ctx); err != nil {
		return fmt.Errorf("report frontend is offline: %w", err)
	}
	for _, e := range exports {
		if err := client.Upload(ctx, e.Path, e.Metadata); err != nil {
			return fmt.Errorf("uploading %s: %w", e.Path, err)
		}
		Logger.Info("Uploaded combat", "path", e.Path, "combat", e.Metadata.CombatID)
	}
	return nil
}
