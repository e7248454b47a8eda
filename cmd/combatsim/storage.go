package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/supremacy-go/combat/internal/config"
	"github.com/supremacy-go/combat/internal/database"
	"github.com/supremacy-go/combat/internal/storage"
	"github.com/supremacy-go/combat/internal/storage/memory"
	pgstorage "github.com/supremacy-go/combat/internal/storage/postgres"
	sqlitestorage "github.com/supremacy-go/combat/internal/storage/sqlite"
	wsstorage "github.com/supremacy-go/combat/internal/storage/websocket"
)

func initStorage() error {
	storageCfg := config.GetStorageConfig()

	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	storageBackend = backend
	if err := storageBackend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return err
	}
	return nil
}

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		// falls back to a local SQLite file when Postgres is unreachable
		dbManager := database.NewManager(zlog("database"))
		dbManager.SqliteFilePath = sqliteFilePath(storageCfg.SQLite.OutputDir)
		if err := dbManager.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		DB = dbManager.DB
		Logger.Info("Postgres storage backend initialized", "local", dbManager.ShouldSaveLocal)
		return pgstorage.New(pgstorage.Dependencies{
			DB:         DB,
			LogManager: SlogManager,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     sqliteFilePath(storageCfg.SQLite.OutputDir),
		}, SlogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized")
		return backend, nil

	case "websocket":
		wsURL := storageCfg.WebSocket.URL
		if wsURL == "" {
			wsURL = httpToWS(viper.GetString("api.serverUrl")) + "/v1/stream"
		}
		secret := storageCfg.WebSocket.Secret
		if secret == "" {
			secret = viper.GetString("api.apiKey")
		}
		Logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: secret,
			Logger: Logger,
		}), nil

	default:
		Logger.Info("Memory storage backend initialized")
		return memory.New(storageCfg.Memory), nil
	}
}

func sqliteFilePath(dir string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.db", AppName, SessionStartTime.Format("20060102_150405")))
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
