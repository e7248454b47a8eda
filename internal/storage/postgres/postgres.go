// Package postgres implements the storage.Backend interface using GORM/PostgreSQL
// with internal queues and a background DB writer goroutine.
package postgres

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/supremacy-go/combat/internal/database"
	"github.com/supremacy-go/combat/internal/logging"
	"github.com/supremacy-go/combat/internal/model"
	"github.com/supremacy-go/combat/internal/model/convert"
	"github.com/supremacy-go/combat/internal/queue"
	"github.com/supremacy-go/combat/pkg/core"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultBatchSize     = 5000
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	FlushInterval time.Duration
	BatchSize     int
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Rounds     *queue.Queue[model.CombatRound]
	UnitStates *queue.Queue[model.UnitState]
	SitReps    *queue.Queue[model.SitRep]
}

func newQueues() *queues {
	return &queues{
		Rounds:     queue.New[model.CombatRound](),
		UnitStates: queue.New[model.UnitState](),
		SitReps:    queue.New[model.SitRep](),
	}
}

// Backend implements storage.Backend using GORM/PostgreSQL with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	log    *slog.Logger
	queues *queues

	// engine combat id -> combats.id
	mu      sync.RWMutex
	combats map[int]uint

	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager("combatsim")
	}
	return &Backend{
		deps:    deps,
		log:     deps.LogManager.Logger().With("component", "storage.postgres"),
		queues:  newQueues(),
		combats: make(map[int]uint),
	}
}

// Init runs schema migration and starts the DB writer goroutine.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.GetPostgresDB()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.log.Info("Migrating schema")
	if err := database.Setup(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.runWriter()
	return nil
}

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return nil
}

// StartCombat inserts the combat row synchronously so that queued records
// can reference its DB id.
func (b *Backend) StartCombat(c *core.Combat) error {
	var dbID uint
	if b.deps.DB != nil {
		row := convert.CoreToCombat(*c)
		if err := b.deps.DB.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert combat: %w", err)
		}
		dbID = row.ID
	}

	b.mu.Lock()
	b.combats[c.ID] = dbID
	b.mu.Unlock()
	return nil
}

// EndCombat flushes pending records and stores the result on the combat row.
func (b *Backend) EndCombat(r *core.CombatResult) error {
	dbID, err := b.combatID(r.CombatID)
	if err != nil {
		return err
	}

	if b.deps.DB != nil {
		b.flush()

		row := model.Combat{}
		row.ID = dbID
		convert.ApplyResult(&row, *r)
		if err := b.deps.DB.Model(&row).
			Select("Rounds", "Standoff", "Survivors", "EndTime").
			Updates(&row).Error; err != nil {
			return fmt.Errorf("failed to store combat result: %w", err)
		}
	}

	b.mu.Lock()
	delete(b.combats, r.CombatID)
	b.mu.Unlock()
	return nil
}

// RecordRound converts and queues a round summary.
func (b *Backend) RecordRound(s *core.RoundSummary) error {
	dbID, err := b.combatID(s.CombatID)
	if err != nil {
		return err
	}
	row := convert.CoreToCombatRound(*s)
	row.CombatID = dbID
	if row.Time.IsZero() {
		row.Time = time.Now()
	}
	b.queues.Rounds.Push(row)
	return nil
}

// RecordUnitState converts and queues a unit state.
func (b *Backend) RecordUnitState(s *core.UnitState) error {
	dbID, err := b.combatID(s.CombatID)
	if err != nil {
		return err
	}
	row := convert.CoreToUnitState(*s)
	row.CombatID = dbID
	row.Time = time.Now()
	b.queues.UnitStates.Push(row)
	return nil
}

// RecordSitRep converts and queues a situation report.
func (b *Backend) RecordSitRep(s *core.SitRep) error {
	dbID, err := b.combatID(s.CombatID)
	if err != nil {
		return err
	}
	row := convert.CoreToSitRep(*s)
	row.CombatID = dbID
	row.Time = time.Now()
	b.queues.SitReps.Push(row)
	return nil
}

// QueueLengths reports the number of records waiting for the writer.
func (b *Backend) QueueLengths() model.WriteQueueLengths {
	return model.WriteQueueLengths{
		Rounds:     uint16(min(b.queues.Rounds.Len(), 65535)),
		UnitStates: uint16(min(b.queues.UnitStates.Len(), 65535)),
		SitReps:    uint16(min(b.queues.SitReps.Len(), 65535)),
	}
}

// ActiveCombats returns the number of combats started but not ended.
func (b *Backend) ActiveCombats() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.combats)
}

func (b *Backend) combatID(engineID int) (uint, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.combats[engineID]
	if !ok {
		return 0, fmt.Errorf("combat %d is not recording", engineID)
	}
	return id, nil
}

// writeQueue drains a queue into the database in batches. A failed batch is
// pushed back for the next cycle. Returns the number of rows written.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], batchSize int, name string, log *slog.Logger) int {
	written := 0
	for !q.Empty() {
		items := q.PopN(batchSize)
		if len(items) == 0 {
			break
		}
		if err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&items).Error
		}); err != nil {
			log.Error("Error writing batch", "table", name, "count", len(items), "error", err)
			q.Push(items...)
			break
		}
		written += len(items)
	}
	return written
}

// flush writes every queue once and records a performance row when
// anything was written.
func (b *Backend) flush() {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if b.deps.DB == nil {
		return
	}

	lengths := b.QueueLengths()
	start := time.Now()

	written := writeQueue(b.deps.DB, b.queues.Rounds, b.deps.BatchSize, "combat_rounds", b.log)
	written += writeQueue(b.deps.DB, b.queues.UnitStates, b.deps.BatchSize, "unit_states", b.log)
	written += writeQueue(b.deps.DB, b.queues.SitReps, b.deps.BatchSize, "sitreps", b.log)
	if written == 0 {
		return
	}

	perf := model.CombatPerformance{
		Time:                time.Now(),
		ActiveCombats:       b.ActiveCombats(),
		WriteQueueLengths:   lengths,
		LastWriteDurationMs: float32(time.Since(start).Microseconds()) / 1000,
	}
	if err := b.deps.DB.Create(&perf).Error; err != nil {
		b.log.Warn("Failed to record writer performance", "error", err)
	}
	b.log.Debug("Flushed write queues", "rows", written, "duration", time.Since(start))
}

// runWriter periodically drains queues into the DB until Close.
func (b *Backend) runWriter() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.flush()
			return
		case <-ticker.C:
			b.flush()
		}
	}
}
