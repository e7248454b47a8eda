package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/supremacy-go/combat/internal/cache"
	"github.com/supremacy-go/combat/internal/combat"
	"github.com/supremacy-go/combat/internal/logging"
	"github.com/supremacy-go/combat/internal/storage"
	"github.com/supremacy-go/combat/pkg/core"
)

var (
	ErrUnknownCombat  = errors.New("unknown combat")
	ErrNoParticipants = errors.New("fewer than two factions at location")
)

// MetricsWriter receives per-round figures. *influx.Manager implements it.
type MetricsWriter interface {
	WriteRound(s *core.RoundSummary, location core.Location) error
	WriteResolve(combatID, round int, took time.Duration) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	World      combat.World
	IDs        combat.IDGenerator
	Updates    *cache.UpdateCache
	Factions   *cache.FactionCache
	LogManager *logging.SlogManager
	Metrics    MetricsWriter  // optional
	Tuning     *combat.Tuning // defaults when nil
	MaxRounds  int
	Seed       int64
	Tag        string
}

// Request describes a combat to start.
type Request struct {
	Assets []*combat.CombatAssets
	// SitReps raised while gathering the assets, e.g. decamouflaged ships.
	SitReps []core.SitRep
	// Autopilot lists the factions whose orders are generated each round
	// with the given blanket stance instead of being submitted.
	Autopilot map[combat.FactionID]combat.Stance
	Tag       string
}

// Manager owns the running engines.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	mu      sync.RWMutex
	running map[int]*running

	active      cache.SafeCounter
	lastResolve atomic.Int64
	resolved    atomic.Int64
}

type running struct {
	engine    *combat.Engine
	record    *core.Combat
	log       *slog.Logger
	autopilot map[combat.FactionID]combat.Stance

	// resolveMu serializes resolution attempts and guards the fields below.
	resolveMu sync.Mutex
	round     int
	summary   *core.RoundSummary
	units     []core.UnitState
	sitreps   []core.SitRep
	standoff  bool
	ended     bool

	result *core.CombatResult
	done   chan struct{}
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.IDs == nil {
		deps.IDs = combat.NewSequenceIDs(0)
	}
	if deps.Updates == nil {
		deps.Updates = cache.NewUpdateCache()
	}
	if deps.Factions == nil {
		deps.Factions = cache.NewFactionCache()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager("combat-worker")
	}
	return &Manager{
		deps:    deps,
		backend: backend,
		running: make(map[int]*running),
	}
}

// StartCombat creates an engine for the request, records the start of the
// combat and broadcasts the initial state. Autopiloted factions submit
// immediately, so a combat made only of them runs to completion before
// StartCombat returns.
func (m *Manager) StartCombat(ctx context.Context, req Request) (*core.Combat, error) {
	if len(req.Assets) < 2 {
		return nil, ErrNoParticipants
	}
	r := &running{
		autopilot: maps.Clone(req.Autopilot),
		done:      make(chan struct{}),
	}

	opts := []combat.Option{
		combat.WithLogger(m.deps.LogManager.Logger()),
		combat.WithMaxRounds(m.deps.MaxRounds),
	}
	if m.deps.Tuning != nil {
		opts = append(opts, combat.WithTuning(*m.deps.Tuning))
	}
	if m.deps.Seed != 0 {
		opts = append(opts, combat.WithRandom(combat.NewRandom(m.deps.Seed)))
	}
	engine, err := combat.NewEngine(req.Assets,
		func(_ *combat.Engine, u combat.CombatUpdate) { m.onUpdate(r, u) },
		func(*combat.Engine) { r.ended = true },
		combat.Deps{World: m.deps.World, IDs: m.deps.IDs},
		opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	r.engine = engine
	r.log = m.deps.LogManager.ForCombat(engine.CombatID(), engine.Location().String())

	tag := req.Tag
	if tag == "" {
		tag = m.deps.Tag
	}
	r.record = &core.Combat{
		ID:         engine.CombatID(),
		UUID:       uuid.NewString(),
		Location:   engine.Location(),
		TurnNumber: m.deps.World.TurnNumber(),
		Tag:        tag,
		StartTime:  time.Now(),
	}
	for _, id := range engine.Factions() {
		ref := core.FactionRef{ID: int(id), Name: m.deps.Factions.Name(int(id))}
		if f, ok := m.deps.World.Faction(id); ok {
			ref = f.Ref()
			m.deps.Factions.Set(ref)
		}
		r.record.Factions = append(r.record.Factions, ref)
	}

	if err := m.backend.StartCombat(r.record); err != nil {
		return nil, fmt.Errorf("recording combat start: %w", err)
	}

	m.mu.Lock()
	m.running[engine.CombatID()] = r
	m.mu.Unlock()
	m.active.Inc()

	r.log.Info("combat started", "factions", len(r.record.Factions), "uuid", r.record.UUID)

	r.resolveMu.Lock()
	r.round = 0
	r.sitreps = stampSitReps(req.SitReps, engine.CombatID(), 0, engine.Location())
	r.summary = &core.RoundSummary{CombatID: engine.CombatID()}
	engine.SendInitialUpdate()
	m.flushLocked(r)
	r.resolveMu.Unlock()

	if err := m.advance(ctx, r); err != nil {
		return r.record, err
	}
	return r.record, nil
}

// Engine returns the engine of a running combat.
func (m *Manager) Engine(combatID int) (*combat.Engine, bool) {
	r, ok := m.get(combatID)
	if !ok {
		return nil, false
	}
	return r.engine, true
}

func (m *Manager) get(combatID int) (*running, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.running[combatID]
	return r, ok
}

// Wait blocks until the combat ended and returns its result.
func (m *Manager) Wait(ctx context.Context, combatID int) (*core.CombatResult, error) {
	r, ok := m.get(combatID)
	if !ok {
		return nil, fmt.Errorf("combat %d: %w", combatID, ErrUnknownCombat)
	}
	select {
	case <-r.done:
		return r.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ActiveCombats returns the number of combats still running.
func (m *Manager) ActiveCombats() int {
	return m.active.Value()
}

// Pending returns, per running combat, the factions that still owe orders
// or targets for the current round.
func (m *Manager) Pending() map[int][]combat.FactionID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int][]combat.FactionID)
	for id, r := range m.running {
		if r.engine.State() == combat.StateOver {
			continue
		}
		if ids := r.engine.Outstanding(); len(ids) > 0 {
			out[id] = ids
		}
	}
	return out
}

// CombatIDs returns the ids of the running combats in ascending order.
func (m *Manager) CombatIDs() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.running))
}

// GetLastResolveDuration returns how long the last round resolution took.
func (m *Manager) GetLastResolveDuration() time.Duration {
	return time.Duration(m.lastResolve.Load())
}

// RoundsResolved returns the number of rounds resolved by this manager.
func (m *Manager) RoundsResolved() int {
	return int(m.resolved.Load())
}

// advance resolves rounds for as long as every faction has submitted,
// generating the submissions of autopiloted factions first.
func (m *Manager) advance(ctx context.Context, r *running) error {
	r.resolveMu.Lock()
	defer r.resolveMu.Unlock()

	for {
		if r.engine.State() == combat.StateOver {
			return nil
		}
		if err := m.submitAutopilotLocked(r); err != nil {
			return err
		}
		if !r.engine.Ready() {
			return nil
		}

		r.round = r.engine.RoundNumber()
		r.summary = &core.RoundSummary{CombatID: r.engine.CombatID(), Round: r.round}
		rctx := logging.WithRound(ctx, r.engine.CombatID(), r.round)
		start := time.Now()
		err := r.engine.ResolveCombatRound(rctx)
		took := time.Since(start)
		switch {
		case errors.Is(err, combat.ErrNotReady):
			return nil
		case err != nil:
			return fmt.Errorf("resolving round %d of combat %d: %w", r.round, r.engine.CombatID(), err)
		}
		m.lastResolve.Store(int64(took))
		m.resolved.Add(1)
		if m.deps.Metrics != nil {
			if err := m.deps.Metrics.WriteResolve(r.engine.CombatID(), r.round, took); err != nil {
				r.log.WarnContext(rctx, "writing resolve metric", "error", err)
			}
		}
		m.flushLocked(r)

		if r.ended {
			m.finishLocked(r)
			return nil
		}
	}
}

func (m *Manager) submitAutopilotLocked(r *running) error {
	for _, a := range r.engine.Assets() {
		stance, ok := r.autopilot[a.OwnerID()]
		if !ok {
			continue
		}
		if err := m.submitBlanket(r.engine, a, stance); err != nil {
			return err
		}
	}
	return nil
}

// submitBlanket gives every unit of a the same stance and points both
// target slots at the factions it will engage.
func (m *Manager) submitBlanket(e *combat.Engine, a *combat.CombatAssets, stance combat.Stance) error {
	primary, secondary := chooseTargets(m.deps.World, e.Factions(), a.OwnerID())
	if err := e.SubmitOrders(combat.GenerateBlanketOrders(a, stance)); err != nil {
		return err
	}
	if err := e.SubmitTargetOnes(combat.GenerateTargetPrimary(a, primary)); err != nil {
		return err
	}
	return e.SubmitTargetTwos(combat.GenerateTargetSecondary(a, secondary))
}

// chooseTargets picks the first two factions owner will engage, falling
// back to return fire.
func chooseTargets(w combat.World, factions []combat.FactionID, owner combat.FactionID) (combat.TargetSelection, combat.TargetSelection) {
	var hostile []combat.FactionID
	for _, f := range slices.Sorted(slices.Values(factions)) {
		if f != owner && combat.WillEngage(w, owner, f) {
			hostile = append(hostile, f)
		}
	}
	switch len(hostile) {
	case 0:
		return combat.ReturnFireOnly(), combat.ReturnFireOnly()
	case 1:
		return combat.TargetFaction(hostile[0]), combat.TargetFaction(hostile[0])
	}
	return combat.TargetFaction(hostile[0]), combat.TargetFaction(hostile[1])
}

// onUpdate runs inside the engine while it broadcasts; resolveMu is held
// by the goroutine that triggered the broadcast.
func (m *Manager) onUpdate(r *running, u combat.CombatUpdate) {
	m.deps.Updates.Put(u)
	if len(u.FriendlyAssets) == 0 {
		return
	}
	own := u.FriendlyAssets[0]
	r.standoff = u.IsStandoff
	r.summary.Standoff = u.IsStandoff
	r.summary.Factions = append(r.summary.Factions, factionRound(own))
	r.units = append(r.units, unitStates(u.CombatID, r.round, own)...)
	r.sitreps = append(r.sitreps, u.SitReps...)
}

func (m *Manager) flushLocked(r *running) {
	location := r.engine.Location()
	if s := r.summary; s != nil && len(s.Factions) > 0 {
		s.RecordedAt = time.Now()
		slices.SortFunc(s.Factions, func(a, b core.FactionRound) int { return a.FactionID - b.FactionID })
		if err := m.backend.RecordRound(s); err != nil {
			r.log.Error("recording round", "round", s.Round, "error", err)
		}
		if m.deps.Metrics != nil {
			if err := m.deps.Metrics.WriteRound(s, location); err != nil {
				r.log.Warn("writing round metrics", "round", s.Round, "error", err)
			}
		}
	}
	for i := range r.units {
		if err := m.backend.RecordUnitState(&r.units[i]); err != nil {
			r.log.Error("recording unit state", "unit", r.units[i].ObjectID, "error", err)
		}
	}
	for i := range r.sitreps {
		if err := m.backend.RecordSitRep(&r.sitreps[i]); err != nil {
			r.log.Error("recording sitrep", "kind", r.sitreps[i].Kind, "error", err)
		}
	}
	r.summary = nil
	r.units = nil
	r.sitreps = nil
}

func (m *Manager) finishLocked(r *running) {
	result := &core.CombatResult{
		CombatID: r.engine.CombatID(),
		Rounds:   r.round,
		Standoff: r.standoff,
		EndTime:  time.Now(),
	}
	for _, a := range r.engine.Assets() {
		if a.HasSurvivingAssets() {
			result.Survivors = append(result.Survivors, int(a.OwnerID()))
		}
	}
	slices.Sort(result.Survivors)

	if err := m.backend.EndCombat(result); err != nil {
		r.log.Error("recording combat end", "error", err)
	}
	r.result = result
	m.active.Dec()
	close(r.done)
	r.log.Info("combat over", "rounds", result.Rounds, "standoff", result.Standoff, "survivors", result.Survivors)
}

// Forget drops a finished combat and its cached updates.
func (m *Manager) Forget(combatID int) {
	m.mu.Lock()
	delete(m.running, combatID)
	m.mu.Unlock()
	m.deps.Updates.Delete(combatID)
}

func factionRound(v combat.AssetsView) core.FactionRound {
	fr := core.FactionRound{
		FactionID:     int(v.Owner),
		Firepower:     v.Strength.Firepower,
		Strength:      v.Strength.Strength,
		Combatants:    len(v.CombatShips),
		NonCombatants: len(v.NonCombatShips),
		Escaped:       len(v.EscapedShips),
		Destroyed:     len(v.DestroyedShips),
		Assimilated:   len(v.AssimilatedShips),
		HasStation:    v.Station != nil,
	}
	if v.Station != nil {
		fr.StationAlive = v.Station.Hull > 0
	}
	return fr
}

func unitStates(combatID, round int, v combat.AssetsView) []core.UnitState {
	var out []core.UnitState
	add := func(units []combat.UnitView, status string) {
		for _, u := range units {
			out = append(out, unitState(combatID, round, u, status))
		}
	}
	if v.Station != nil {
		status := core.UnitActive
		if v.Station.Hull <= 0 {
			status = core.UnitDestroyed
		}
		out = append(out, unitState(combatID, round, *v.Station, status))
	}
	add(v.CombatShips, core.UnitActive)
	add(v.NonCombatShips, core.UnitActive)
	add(v.EscapedShips, core.UnitEscaped)
	add(v.DestroyedShips, core.UnitDestroyed)
	add(v.AssimilatedShips, core.UnitAssimilated)
	return out
}

func unitState(combatID, round int, u combat.UnitView, status string) core.UnitState {
	return core.UnitState{
		CombatID:  combatID,
		Round:     round,
		ObjectID:  int(u.ObjectID),
		OwnerID:   int(u.Owner),
		Name:      u.Name,
		Design:    u.Design,
		ShipType:  u.ShipType.String(),
		Hull:      u.Hull,
		MaxHull:   u.MaxHull,
		Shield:    u.Shield,
		MaxShield: u.MaxShield,
		Firepower: u.Firepower,
		IsStation: u.IsStation,
		Status:    status,
	}
}

func stampSitReps(in []core.SitRep, combatID, round int, loc core.Location) []core.SitRep {
	out := slices.Clone(in)
	for i := range out {
		out[i].CombatID = combatID
		out[i].Round = round
		out[i].Location = loc
	}
	return out
}
