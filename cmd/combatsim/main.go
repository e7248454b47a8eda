package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/supremacy-go/combat/internal/api"
	"github.com/supremacy-go/combat/internal/cache"
	"github.com/supremacy-go/combat/internal/channel"
	"github.com/supremacy-go/combat/internal/combat"
	"github.com/supremacy-go/combat/internal/config"
	"github.com/supremacy-go/combat/internal/dispatcher"
	"github.com/supremacy-go/combat/internal/influx"
	"github.com/supremacy-go/combat/internal/logging"
	"github.com/supremacy-go/combat/internal/monitor"
	intOtel "github.com/supremacy-go/combat/internal/otel"
	"github.com/supremacy-go/combat/internal/storage"
	"github.com/supremacy-go/combat/internal/worker"
	"github.com/supremacy-go/combat/internal/world"
	"github.com/supremacy-go/combat/pkg/core"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "combatsim"
)

// file paths
var (
	// ConfigDir holds combatsim.cfg.json. Defaults to the working directory.
	ConfigDir string

	LogFilePath string
	LogFile     *os.File
	OTelLogFile *os.File

	SessionStartTime time.Time = time.Now()
)

// global variables
var (
	// DB is set when a SQL backend is in use
	DB *gorm.DB

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// UpdateCache holds the latest CombatUpdate of every faction
	UpdateCache *cache.UpdateCache = cache.NewUpdateCache()

	// FactionCache maps faction ids to their names for reports
	FactionCache *cache.FactionCache = cache.NewFactionCache()

	// Scenario and the galaxy built from it
	Scenario *world.Scenario
	Galaxy   *world.Galaxy

	// Services
	workerManager   *worker.Manager
	monitorService  *monitor.Service
	eventDispatcher *dispatcher.Dispatcher
	influxManager   *influx.Manager

	// Storage backend
	storageBackend storage.Backend
)

func setupLogging() {
	var err error

	SlogManager = logging.NewSlogManager(AppName)
	SlogManager.WithContext(func() []slog.Attr {
		if workerManager == nil {
			return nil
		}
		return []slog.Attr{slog.Int("activeCombats", workerManager.ActiveCombats())}
	})
	SlogManager.Setup(nil, viper.GetString("logLevel"), nil)
	Logger = SlogManager.Logger()

	err = config.Load(ConfigDir)
	if err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		Logger.Error("Failed to create logs directory", "error", err, "path", logsDir)
	}

	LogFilePath = logging.LogFilePath(logsDir, AppName, SessionStartTime)

	// rotate a log file left behind by a session started in the same second
	if _, err := os.Stat(LogFilePath); err == nil {
		os.Rename(LogFilePath, LogFilePath+".old")
	}

	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	}

	Logger.Info("Begin logging in logs directory", "path", LogFilePath)

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		otelPath := logging.OTelLogFilePath(logsDir, AppName, SessionStartTime)
		OTelLogFile, err = os.Create(otelPath)
		if err != nil {
			Logger.Error("Failed to create OTel log file", "error", err, "path", otelPath)
		} else {
			OTelProvider, err = intOtel.New(intOtel.FromConfig(otelCfg, OTelLogFile, OTelLogFile))
			if err != nil {
				Logger.Error("Failed to initialize OTel provider", "error", err)
			} else if otelCfg.Endpoint != "" {
				Logger.Info("OTel provider initialized", "file", otelPath, "endpoint", otelCfg.Endpoint)
			} else {
				Logger.Info("OTel provider initialized", "file", otelPath)
			}
		}
	}

	// Re-setup logging with file output and optional OTel
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	if LogFile != nil {
		SlogManager.Setup(LogFile, viper.GetString("logLevel"), otelLogProvider)
	} else {
		SlogManager.Setup(nil, viper.GetString("logLevel"), otelLogProvider)
	}
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath, "version", CurrentVersion, "buildDate", BuildDate)
}

// zlog returns a zerolog logger writing to the session log file.
func zlog(component string) zerolog.Logger {
	if LogFile != nil {
		return zerolog.New(LogFile).With().Timestamp().Str("component", component).Logger()
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(console).With().Timestamp().Str("component", component).Logger()
}

func loadScenario(path string) error {
	var err error
	Scenario, Galaxy, err = world.LoadScenario(path)
	if err != nil {
		return err
	}
	for _, f := range Galaxy.Factions() {
		FactionCache.Set(f.Ref())
	}
	Logger.Info("Scenario loaded", "name", Scenario.Name, "turn", Scenario.Turn, "factions", len(Scenario.Factions), "ships", len(Scenario.Ships))
	return nil
}

func setupInflux() {
	if !viper.GetBool("influx.enabled") {
		return
	}
	backupPath := filepath.Join(viper.GetString("logsDir"), fmt.Sprintf("%s_influx_%s.lp.gz", AppName, SessionStartTime.Format("20060102_150405")))
	influxManager = influx.NewManager(zlog("influx"), backupPath)
	if err := influxManager.Connect(); err != nil {
		Logger.Error("Failed to set up InfluxDB", "error", err)
		influxManager = nil
	}
}

func startServices() error {
	combatCfg := config.GetCombatConfig()

	tuning, err := config.LoadTuning(combatCfg.TuningFile)
	if err != nil {
		return err
	}

	deps := worker.Dependencies{
		World:      Galaxy,
		IDs:        combat.NewSequenceIDs(0),
		Updates:    UpdateCache,
		Factions:   FactionCache,
		LogManager: SlogManager,
		Tuning:     &tuning,
		MaxRounds:  combatCfg.MaxRounds,
		Seed:       combatCfg.Seed,
		Tag:        viper.GetString("defaultTag"),
	}
	if Scenario.Tag != "" {
		deps.Tag = Scenario.Tag
	}
	if influxManager != nil {
		deps.Metrics = influxManager
	}
	workerManager = worker.NewManager(deps, storageBackend)

	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(zlog("dispatcher")))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	workerManager.RegisterHandlers(eventDispatcher)
	Logger.Info("Worker handlers registered with dispatcher")

	monitorDeps := monitor.Dependencies{
		DB:         DB,
		LogManager: SlogManager,
		Workers:    workerManager,
		StatusDir:  viper.GetString("logsDir"),
	}
	if q, ok := storageBackend.(monitor.QueueStatus); ok {
		monitorDeps.Queues = q
	}
	monitorService = monitor.NewService(monitorDeps)

	if DB != nil && DB.Dialector.Name() == "postgres" && viper.GetBool("db.timescale") {
		if err := monitorService.ValidateHypertables(monitor.HypertableTables); err != nil {
			Logger.Error("Failed to validate hypertables", "error", err)
		}
	}

	if !monitorService.IsRunning() {
		if err := monitorService.Start(); err != nil {
			Logger.Error("Failed to start status monitor", "error", err)
		}
	}
	return nil
}

// runBatch starts a combat at every contested location and waits for all of
// them to end. At most combat.workers combats run at once.
func runBatch(ctx context.Context) (int, error) {
	combatCfg := config.GetCombatConfig()
	workers := max(combatCfg.Workers, 1)

	locations := Galaxy.CombatLocations()
	Logger.Info("Contested locations found", "count", len(locations))

	jobs := channel.New[core.Location](len(locations))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		finished int
		errs     []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for loc := range jobs.Receive() {
				err := runCombat(ctx, loc, combatCfg.AutoResolve)
				mu.Lock()
				if err != nil {
					errs = append(errs, fmt.Errorf("combat at %s: %w", loc, err))
				} else {
					finished++
				}
				mu.Unlock()
			}
		}()
	}

	for _, loc := range locations {
		if !jobs.SendContext(ctx, loc) {
			break
		}
	}
	jobs.Close()
	wg.Wait()

	return finished, errors.Join(errs...)
}

func runCombat(ctx context.Context, loc core.Location, autoResolve bool) error {
	assets, sitreps := Galaxy.CombatAssetsAt(loc)
	if assets == nil {
		Logger.Debug("Location no longer contested", "location", loc.String())
		return nil
	}

	autopilot := make(map[combat.FactionID]combat.Stance, len(assets))
	for _, a := range assets {
		if f, ok := Galaxy.Faction(a.OwnerID()); ok && f.IsHuman && !autoResolve {
			continue
		}
		stance, err := Scenario.StanceFor(a.OwnerID())
		if err != nil {
			return err
		}
		autopilot[a.OwnerID()] = stance
	}

	record, err := workerManager.StartCombat(ctx, worker.Request{
		Assets:    assets,
		SitReps:   sitreps,
		Autopilot: autopilot,
	})
	if err != nil {
		return err
	}
	defer workerManager.Forget(record.ID)

	result, err := workerManager.Wait(ctx, record.ID)
	if err != nil {
		return err
	}
	Logger.Info("Combat finished",
		"combat", record.ID,
		"location", loc.String(),
		"rounds", result.Rounds,
		"standoff", result.Standoff,
		"survivors", result.Survivors,
	)
	return nil
}

// uploadReports sends every exported report to the report frontend.
func uploadReports(ctx context.Context) {
	apiKey := viper.GetString("api.apiKey")
	uploadable, ok := storageBackend.(storage.Uploadable)
	if !ok || apiKey == "" {
		return
	}

	client := api.New(viper.GetString("api.serverUrl"), apiKey)
	if err := client.Healthcheck(ctx); err != nil {
		Logger.Info("Report frontend is offline, skipping upload", "error", err)
		return
	}
	Logger.Info("Report frontend is online")

	for _, f := range uploadable.ExportedFiles() {
		if err := client.Upload(ctx, f.Path, f.Metadata); err != nil {
			Logger.Error("Failed to upload report", "error", err, "path", f.Path)
			continue
		}
		Logger.Info("Uploaded report", "path", f.Path, "combat", f.Metadata.CombatID)
	}
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if monitorService != nil {
		monitorService.Stop()
	}
	if eventDispatcher != nil {
		eventDispatcher.Close()
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if influxManager != nil {
		if err := influxManager.Close(); err != nil {
			Logger.Error("Failed to close InfluxDB", "error", err)
		}
	}
	if err := SlogManager.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush logs", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if OTelLogFile != nil {
		OTelLogFile.Close()
	}
	if LogFile != nil {
		LogFile.Close()
	}
}

func main() {
	var scenarioPath string
	flag.StringVar(&ConfigDir, "config", ".", "directory containing combatsim.cfg.json")
	flag.StringVar(&scenarioPath, "scenario", "", "scenario YAML file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [-config dir] -scenario file.yaml\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if scenarioPath == "" && flag.NArg() > 0 {
		scenarioPath = flag.Arg(0)
	}
	if scenarioPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	setupLogging()
	Logger.Info("Starting up...")

	if err := run(scenarioPath); err != nil {
		Logger.Error("Run failed", "error", err)
		shutdown()
		os.Exit(1)
	}
	shutdown()
}

func run(scenarioPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := loadScenario(scenarioPath); err != nil {
		return err
	}

	Logger.Info("Initializing storage...")
	if err := initStorage(); err != nil {
		return err
	}
	Logger.Info("Storage initialization complete.")

	setupInflux()
	if err := startServices(); err != nil {
		return err
	}

	if !config.GetCombatConfig().AutoResolve {
		go runConsole(ctx, os.Stdin, os.Stdout)
	}

	start := time.Now()
	finished, err := runBatch(ctx)
	Logger.Info("Batch complete",
		"combats", finished,
		"rounds", workerManager.RoundsResolved(),
		"duration", time.Since(start),
	)
	fmt.Printf("%d combats resolved in %s\n", finished, time.Since(start).Round(time.Millisecond))

	uploadReports(ctx)
	return err
}
