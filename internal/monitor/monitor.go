package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/supremacy-go/combat/internal/combat"
	"github.com/supremacy-go/combat/internal/logging"
	"github.com/supremacy-go/combat/internal/model"

	"gorm.io/gorm"
)

// HypertableTables maps the time-series tables to their compression
// segment columns.
var HypertableTables = map[string][]string{
	"unit_states":   {"combat_id", "object_id"},
	"combat_rounds": {"combat_id"},
	"sitreps":       {"combat_id", "faction_id"},
}

// WorkerStatus is the part of the worker manager the monitor reports on.
type WorkerStatus interface {
	ActiveCombats() int
	Pending() map[int][]combat.FactionID
	GetLastResolveDuration() time.Duration
	RoundsResolved() int
}

// QueueStatus is implemented by storage backends with write queues.
type QueueStatus interface {
	QueueLengths() model.WriteQueueLengths
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
	Workers    WorkerStatus
	Queues     QueueStatus // optional
	StatusDir  string
	Interval   time.Duration
}

// Status is one snapshot of the program state.
type Status struct {
	Time              time.Time                  `json:"time"`
	ActiveCombats     int                        `json:"activeCombats"`
	RoundsResolved    int                        `json:"roundsResolved"`
	Pending           map[int][]combat.FactionID `json:"pending"`
	WriteQueueLengths model.WriteQueueLengths    `json:"writeQueueLengths"`
	LastResolveMs     float32                    `json:"lastResolveMs"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	stopped   chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager("combat-monitor")
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot collects the current status.
func (s *Service) Snapshot() Status {
	st := Status{
		Time:           time.Now(),
		ActiveCombats:  s.deps.Workers.ActiveCombats(),
		RoundsResolved: s.deps.Workers.RoundsResolved(),
		Pending:        s.deps.Workers.Pending(),
		LastResolveMs:  float32(s.deps.Workers.GetLastResolveDuration().Microseconds()) / 1000,
	}
	if s.deps.Queues != nil {
		st.WriteQueueLengths = s.deps.Queues.QueueLengths()
	}
	return st
}

// GetProgramStatus renders the selected parts of the status as JSON.
func (s *Service) GetProgramStatus(
	pending bool,
	writeQueues bool,
	lastResolve bool,
) (output []string, status Status) {
	status = s.Snapshot()

	render := func(v any) string {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf(`{"error": "%s"}`, err)
		}
		return string(b)
	}

	output = append(output, fmt.Sprintf("active combats: %d, rounds resolved: %d", status.ActiveCombats, status.RoundsResolved))
	if pending {
		output = append(output, render(pendingLines(status.Pending)))
	}
	if writeQueues {
		output = append(output, render(status.WriteQueueLengths))
	}
	if lastResolve {
		output = append(output, render(status.LastResolveMs))
	}
	return output, status
}

// pendingLines formats the outstanding factions per combat, e.g.
// "combat 3: 1, 4".
func pendingLines(pending map[int][]combat.FactionID) []string {
	ids := make([]int, 0, len(pending))
	for id := range pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		factions := make([]string, 0, len(pending[id]))
		for _, f := range pending[id] {
			factions = append(factions, fmt.Sprint(int(f)))
		}
		lines = append(lines, fmt.Sprintf("combat %d: %s", id, strings.Join(factions, ", ")))
	}
	return lines
}

// ValidateHypertables turns the given tables into TimescaleDB hypertables
// with compression.
func (s *Service) ValidateHypertables(tables map[string][]string) error {
	logger := s.deps.LogManager.Logger().With("function", "validateHypertables")

	var existing []string
	s.deps.DB.Raw(`SELECT hypertable_name FROM timescaledb_information.hypertables`).Scan(&existing)
	logger.Debug("existing hypertables", "tables", existing)

	names := make([]string, 0, len(tables))
	for table := range tables {
		names = append(names, table)
	}
	slices.Sort(names)

	for _, table := range names {
		if slices.Contains(existing, table) {
			logger.Info("table is already configured", "table", table)
			continue
		}

		queryCreateHypertable := fmt.Sprintf(`
				SELECT create_hypertable('%s', 'time', chunk_time_interval => interval '1 day', if_not_exists => true);
			`, table)
		if err := s.deps.DB.Exec(queryCreateHypertable).Error; err != nil {
			logger.Error("failed to create hypertable", "table", table, "error", err)
			return err
		}
		logger.Info("created hypertable", "table", table)

		queryCompressHypertable := fmt.Sprintf(`
				ALTER TABLE %s SET (
					timescaledb.compress,
					timescaledb.compress_segmentby = ?);
			`, table)
		if err := s.deps.DB.Exec(queryCompressHypertable, strings.Join(tables[table], ",")).Error; err != nil {
			logger.Error("failed to enable compression", "table", table, "error", err)
			return err
		}
		logger.Info("enabled hypertable compression", "table", table)

		queryCompressAfterHypertable := fmt.Sprintf(`
				SELECT add_compression_policy(
					'%s',
					compress_after => interval '14 day');
			`, table)
		if err := s.deps.DB.Exec(queryCompressAfterHypertable).Error; err != nil {
			logger.Error("failed to set compress_after", "table", table, "error", err)
			return err
		}
		logger.Info("set compress_after", "table", table)
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.stopped = make(chan struct{})
	stop, stopped := s.stopChan, s.stopped
	s.mu.Unlock()

	logger := s.deps.LogManager.Logger()

	var statusFile *os.File
	if s.deps.StatusDir != "" {
		f, err := os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		} else {
			statusFile = f
		}
	}

	go func() {
		defer func() {
			if statusFile != nil {
				statusFile.Close()
			}
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(stopped)
		}()

		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tick(logger, statusFile)
			}
		}
	}()

	return nil
}

func (s *Service) tick(logger *slog.Logger, statusFile *os.File) {
	lines, status := s.GetProgramStatus(true, true, true)
	if status.ActiveCombats == 0 {
		return
	}

	if statusFile != nil {
		_ = statusFile.Truncate(0)
		_, _ = statusFile.Seek(0, 0)
		for _, line := range lines {
			_, _ = statusFile.WriteString(line + "\n")
		}
	}

	logger.Debug("status",
		"activeCombats", status.ActiveCombats,
		"pendingCombats", len(status.Pending),
		"roundsResolved", status.RoundsResolved,
		"lastResolveMs", status.LastResolveMs)
}

// Stop stops the status monitor and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	stopped := s.stopped
	s.mu.Unlock()
	<-stopped
}
