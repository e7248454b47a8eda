package combat

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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/supremacy-go/combat/pkg/core"
)

// DefaultMaxRounds caps combats that would otherwise never end.
const DefaultMaxRounds = 10

// State is the phase an engine is in.
type State int32

const (
	StateAwaitingOrders State = iota
	StateResolving
	StateBroadcasting
	StateOver
)

func (s State) String() string {
	switch s {
	case StateAwaitingOrders:
		return "awaiting_orders"
	case StateResolving:
		return "resolving"
	case StateBroadcasting:
		return "broadcasting"
	case StateOver:
		return "over"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// UpdateFunc receives the snapshot of one faction after a round.
type UpdateFunc func(e *Engine, u CombatUpdate)

// EndedFunc is called once when the combat is over.
type EndedFunc func(e *Engine)

// Deps are the collaborators an engine needs.
type Deps struct {
	World    World
	IDs      IDGenerator
	Resolver Resolver // defaults to the automated resolver
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxRounds ends the combat after n resolved rounds.
func WithMaxRounds(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRounds = n
		}
	}
}

// WithTuning replaces the default balance tables.
func WithTuning(t Tuning) Option {
	return func(e *Engine) { e.tuning = t }
}

// WithRandom sets the source of randomness.
func WithRandom(r Random) Option {
	return func(e *Engine) { e.rng = r }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

type owned interface {
	Owner() FactionID
	CombatID() int
}

// submissions is one buffer of per-faction submissions for the current round.
type submissions[T owned] struct {
	mu        sync.Mutex
	byFaction map[FactionID]T
	gate      *countdown
}

func newSubmissions[T owned](parties []FactionID) *submissions[T] {
	return &submissions[T]{byFaction: make(map[FactionID]T), gate: newCountdown(parties)}
}

// resetLocked clears the buffer; the caller holds mu.
func (s *submissions[T]) resetLocked(parties []FactionID) {
	s.byFaction = make(map[FactionID]T)
	s.gate.reset(parties)
}

func (s *submissions[T]) snapshot() map[FactionID]T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.byFaction)
}

// Engine orchestrates one combat: it collects orders and targets from every
// faction, resolves rounds once all are in and broadcasts the results.
type Engine struct {
	id          int
	world       World
	resolver    Resolver
	sendUpdate  UpdateFunc
	combatEnded EndedFunc
	tuning      Tuning
	rng         Random
	log         *slog.Logger
	maxRounds   int
	metrics     *instruments

	orders     *submissions[*CombatOrders]
	targetOnes *submissions[*CombatTargetPrimaries]
	targetTwos *submissions[*CombatTargetSecondaries]

	// mu guards the fields below. Only round resolution writes them.
	mu          sync.RWMutex
	assets      []*CombatAssets
	round       int
	resolved    int
	standDown   bool
	handedOver  map[ObjectID]bool
	lastTarget  map[FactionID]*CombatUnit
	location    core.Location
	lastSitReps []core.SitRep

	state   atomic.Int32
	endOnce sync.Once
}

// NewEngine creates an engine for the given participants.
func NewEngine(assets []*CombatAssets, sendUpdate UpdateFunc, combatEnded EndedFunc, deps Deps, opts ...Option) (*Engine, error) {
	if len(assets) == 0 || slices.Contains(assets, nil) {
		return nil, ErrNilAssets
	}
	if sendUpdate == nil || combatEnded == nil {
		return nil, ErrNilCallback
	}
	if deps.World == nil {
		return nil, ErrNilWorld
	}

	e := &Engine{
		world:       deps.World,
		resolver:    deps.Resolver,
		sendUpdate:  sendUpdate,
		combatEnded: combatEnded,
		tuning:      DefaultTuning(),
		maxRounds:   DefaultMaxRounds,
		assets:      slices.Clone(assets),
		round:       1,
		handedOver:  make(map[ObjectID]bool),
		lastTarget:  make(map[FactionID]*CombatUnit),
		location:    assets[0].Location(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = NewAutomatedResolver()
	}
	if e.rng == nil {
		e.rng = NewRandom(0)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if deps.IDs != nil {
		e.id = deps.IDs.NextID()
	}
	e.log = e.log.With("combatId", e.id)

	metrics, err := newInstruments()
	if err != nil {
		return nil, err
	}
	e.metrics = metrics

	for _, a := range e.assets {
		a.SetCombatID(e.id)
	}
	parties := e.factionsLocked()
	e.orders = newSubmissions[*CombatOrders](parties)
	e.targetOnes = newSubmissions[*CombatTargetPrimaries](parties)
	e.targetTwos = newSubmissions[*CombatTargetSecondaries](parties)
	e.state.Store(int32(StateAwaitingOrders))
	return e, nil
}

// CombatID returns the id stamped on every participant.
func (e *Engine) CombatID() int { return e.id }

// Location returns where the combat takes place.
func (e *Engine) Location() core.Location { return e.location }

// State returns the current phase.
func (e *Engine) State() State { return State(e.state.Load()) }

// RoundNumber returns the round awaiting orders, starting at 1.
func (e *Engine) RoundNumber() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round
}

// Assets returns the participants still in the combat.
func (e *Engine) Assets() []*CombatAssets {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.assets)
}

// Factions returns the ids of the participants still in the combat.
func (e *Engine) Factions() []FactionID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.factionsLocked()
}

func (e *Engine) factionsLocked() []FactionID {
	ids := make([]FactionID, 0, len(e.assets))
	for _, a := range e.assets {
		ids = append(ids, a.OwnerID())
	}
	return ids
}

func (e *Engine) assetsOfLocked(f FactionID) (*CombatAssets, bool) {
	for _, a := range e.assets {
		if a.OwnerID() == f {
			return a, true
		}
	}
	return nil, false
}

func submit[T owned](e *Engine, s *submissions[T], v T, kind string, check func(T) error) error {
	if v.CombatID() != e.id {
		return fmt.Errorf("%s for combat %d: %w", kind, v.CombatID(), ErrWrongCombat)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.State() == StateOver {
		return ErrCombatOver
	}

	owner := v.Owner()
	if _, ok := s.byFaction[owner]; ok {
		e.log.Debug("ignoring duplicate submission", "kind", kind, "faction", owner)
		return nil
	}
	if check != nil {
		if err := check(v); err != nil {
			return err
		}
	}
	if _, err := s.gate.arrive(owner); err != nil {
		return fmt.Errorf("%s from faction %d: %w", kind, owner, err)
	}
	s.byFaction[owner] = v
	e.log.Debug("submission received", "kind", kind, "faction", owner)
	return nil
}

// SubmitOrders stores the orders of one faction for the current round. The
// first submission of a faction wins; later ones are ignored.
func (e *Engine) SubmitOrders(orders *CombatOrders) error {
	return submit(e, e.orders, orders, "orders", e.checkOrders)
}

// SubmitTargetOnes stores the primary targets of one faction.
func (e *Engine) SubmitTargetOnes(targets *CombatTargetPrimaries) error {
	return submit(e, e.targetOnes, targets, "primary targets", nil)
}

// SubmitTargetTwos stores the secondary targets of one faction.
func (e *Engine) SubmitTargetTwos(targets *CombatTargetSecondaries) error {
	return submit(e, e.targetTwos, targets, "secondary targets", nil)
}

func (e *Engine) checkOrders(o *CombatOrders) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.assetsOfLocked(o.Owner())
	if !ok {
		return fmt.Errorf("orders from faction %d: %w", o.Owner(), ErrUnknownFaction)
	}
	var missing []error
	for _, u := range a.ActiveUnits() {
		if _, err := o.Order(u); err != nil {
			missing = append(missing, err)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %w", ErrIncompleteOrder, errors.Join(missing...))
	}
	return nil
}

// Ready reports whether every faction submitted orders and both targets.
func (e *Engine) Ready() bool {
	return e.orders.gate.complete() && e.targetOnes.gate.complete() && e.targetTwos.gate.complete()
}

// WaitReady blocks until Ready or ctx is done.
func (e *Engine) WaitReady(ctx context.Context) error {
	return waitAll(ctx, e.orders.gate, e.targetOnes.gate, e.targetTwos.gate)
}

// Outstanding returns the factions that still owe a submission of any kind.
func (e *Engine) Outstanding() []FactionID {
	seen := make(map[FactionID]bool)
	var out []FactionID
	for _, g := range []*countdown{e.orders.gate, e.targetOnes.gate, e.targetTwos.gate} {
		for _, id := range g.outstanding() {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	slices.Sort(out)
	return out
}

// IsCombatOver reports whether the combat has ended.
func (e *Engine) IsCombatOver() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isOverLocked()
}

func (e *Engine) isOverLocked() bool {
	if e.standDown {
		return true
	}
	if e.resolved >= e.maxRounds {
		return true
	}
	var survivors []FactionID
	for _, a := range e.assets {
		if a.HasSurvivingAssets() {
			survivors = append(survivors, a.OwnerID())
		}
	}
	if len(survivors) <= 1 {
		return true
	}
	for i, a := range survivors {
		for _, b := range survivors[i+1:] {
			if WillEngage(e.world, a, b) || WillEngage(e.world, b, a) {
				return false
			}
		}
	}
	return true
}

// SendInitialUpdate broadcasts the state before the first round.
func (e *Engine) SendInitialUpdate() {
	e.mu.RLock()
	updates := e.buildUpdatesLocked(nil, e.isOverLocked())
	e.mu.RUnlock()
	for _, u := range updates {
		e.sendUpdate(e, u)
	}
}

// ResolveCombatRound resolves the current round. It fails with ErrNotReady
// until every faction submitted, or while another round is being resolved,
// and with ErrCombatOver once the combat ended.
//
// The submission buffers stay locked until they are cleared for the next
// round. Updates are broadcast after that, so callbacks may submit for the
// next round.
func (e *Engine) ResolveCombatRound(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateAwaitingOrders), int32(StateResolving)) {
		if e.State() == StateOver {
			return ErrCombatOver
		}
		return ErrNotReady
	}
	start := time.Now()

	e.lockBuffers()
	if !e.Ready() {
		e.unlockBuffers()
		e.state.Store(int32(StateAwaitingOrders))
		return ErrNotReady
	}

	e.mu.Lock()
	for _, a := range e.assets {
		a.SetCombatID(e.id)
	}
	round := &Round{
		CombatID:    e.id,
		Number:      e.round,
		Location:    e.location,
		Assets:      e.assets,
		Strengths:   strengths(e.assets),
		World:       e.world,
		Tuning:      e.tuning,
		Random:      e.rng,
		Logger:      e.log.With("round", e.round),
		orders:      maps.Clone(e.orders.byFaction),
		primaries:   maps.Clone(e.targetOnes.byFaction),
		secondaries: maps.Clone(e.targetTwos.byFaction),
		lastTarget:  e.lastTarget,
	}

	standDown := allSidesStandDown(round)
	if !standDown {
		e.recharge(round.Number)
		if err := e.resolver.Resolve(ctx, round); err != nil {
			e.log.ErrorContext(ctx, "resolving round", "round", round.Number, "error", err)
		}
	}
	e.performAssimilation(round)
	e.performRetreat(round)
	e.syncUnits()

	e.standDown = standDown
	e.resolved++
	over := e.isOverLocked()
	if !over {
		e.round++
	}
	if over {
		for _, a := range e.assets {
			if a.HasSurvivingAssets() {
				round.sitreps = append(round.sitreps, core.SitRep{
					CombatID:  e.id,
					Round:     round.Number,
					FactionID: int(a.OwnerID()),
					Kind:      core.SitRepCombatOver,
					Text:      fmt.Sprintf("Combat at %s is over", e.location),
					Location:  e.location,
				})
			}
		}
	}
	e.lastSitReps = round.sitreps
	updates := e.buildUpdatesLocked(round.sitreps, over)
	e.removeDefeatedLocked()
	e.forgetTargetsLocked()
	parties := e.factionsLocked()
	e.mu.Unlock()

	e.orders.resetLocked(parties)
	e.targetOnes.resetLocked(parties)
	e.targetTwos.resetLocked(parties)
	if over {
		e.state.Store(int32(StateOver))
	} else {
		e.state.Store(int32(StateBroadcasting))
	}
	e.unlockBuffers()

	for _, u := range updates {
		e.sendUpdate(e, u)
	}

	attrs := metric.WithAttributes(attribute.Int("combat.id", e.id))
	e.metrics.rounds.Add(ctx, 1, attrs)
	e.metrics.destroyed.Add(ctx, int64(round.destroyed), attrs)
	e.metrics.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)

	e.log.InfoContext(ctx, "round resolved",
		"round", round.Number,
		"standDown", standDown,
		"destroyed", round.destroyed,
		"over", over,
		"duration", time.Since(start))

	if over {
		e.endOnce.Do(func() { e.combatEnded(e) })
	} else {
		e.state.Store(int32(StateAwaitingOrders))
	}
	return nil
}

// lockBuffers takes the three submission locks, always in the same order.
func (e *Engine) lockBuffers() {
	e.orders.mu.Lock()
	e.targetOnes.mu.Lock()
	e.targetTwos.mu.Lock()
}

func (e *Engine) unlockBuffers() {
	e.targetTwos.mu.Unlock()
	e.targetOnes.mu.Unlock()
	e.orders.mu.Unlock()
}

// SitReps returns the situation reports of the last resolved round.
func (e *Engine) SitReps() []core.SitRep {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.lastSitReps)
}

func allSidesStandDown(r *Round) bool {
	for _, a := range r.Assets {
		for _, u := range a.ActiveUnits() {
			if r.Order(u).IsAggressive() {
				return false
			}
		}
	}
	return true
}

func (e *Engine) recharge(round int) {
	for _, a := range e.assets {
		for _, u := range a.ActiveUnits() {
			u.RechargeWeapons()
			if round > 1 {
				u.RegenerateShields()
			}
		}
	}
}

func (e *Engine) performAssimilation(r *Round) {
	syncer, canSync := e.world.(UnitSync)
	for _, a := range e.assets {
		for _, u := range a.AssimilatedShips() {
			if e.handedOver[u.SourceID()] {
				continue
			}
			e.handedOver[u.SourceID()] = true
			by, _ := u.AssimilatedBy()
			dest, ok := CalculateRetreatDestination(e.world, a)
			if !ok {
				dest = a.Location()
			}
			r.Logger.Info("unit assimilated", "unit", u.SourceID(), "name", u.Name(), "by", by, "to", dest)
			if canSync {
				syncer.AssimilateUnit(u, by, dest)
			}
		}
	}
}

func (e *Engine) performRetreat(r *Round) {
	syncer, canSync := e.world.(UnitSync)
	for _, a := range e.assets {
		if !a.HasEscapedAssets() {
			continue
		}
		dest, ok := CalculateRetreatDestination(e.world, a)
		if !ok {
			r.Logger.Warn("no retreat destination", "faction", a.OwnerID())
			continue
		}
		a.RetreatDestination = &dest
		for _, u := range a.EscapedShips() {
			if e.handedOver[u.SourceID()] {
				continue
			}
			e.handedOver[u.SourceID()] = true
			if canSync {
				syncer.RelocateUnit(u, dest)
			}
			r.Logger.Debug("unit retreats", "unit", u.SourceID(), "name", u.Name(), "to", dest)
		}
	}
}

func (e *Engine) syncUnits() {
	syncer, ok := e.world.(UnitSync)
	if !ok {
		return
	}
	for _, a := range e.assets {
		for _, u := range a.AllUnits() {
			syncer.SyncUnit(u)
		}
	}
}

func (e *Engine) buildUpdatesLocked(sitreps []core.SitRep, over bool) []CombatUpdate {
	updates := make([]CombatUpdate, 0, len(e.assets))
	for _, a := range e.assets {
		updates = append(updates, buildUpdate(e.world, e.id, e.round, e.standDown, over, a, e.assets, sitreps))
	}
	return updates
}

// forgetTargetsLocked drops focus targets that are no longer fighting.
func (e *Engine) forgetTargetsLocked() {
	maps.DeleteFunc(e.lastTarget, func(_ FactionID, u *CombatUnit) bool {
		a, ok := e.assetsOfLocked(u.OwnerID())
		return !ok || u.IsDestroyed() || !slices.Contains(a.ActiveUnits(), u)
	})
}

func (e *Engine) removeDefeatedLocked() {
	e.assets = slices.DeleteFunc(e.assets, func(a *CombatAssets) bool {
		if a.HasSurvivingAssets() {
			return false
		}
		e.log.Info("faction defeated", "faction", a.OwnerID())
		return true
	})
}
