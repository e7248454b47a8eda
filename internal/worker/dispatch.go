package worker

import (
	"context"
	"fmt"

	"github.com/supremacy-go/combat/internal/combat"
	"github.com/supremacy-go/combat/internal/dispatcher"
)

// Commands understood by the handlers registered in RegisterHandlers.
const (
	CmdOrders    = ":COMBAT:ORDERS:"
	CmdTargetOne = ":COMBAT:TARGET:ONE:"
	CmdTargetTwo = ":COMBAT:TARGET:TWO:"
	CmdBlanket   = ":COMBAT:BLANKET:"
	CmdStatus    = ":COMBAT:STATUS:"
	CmdResolve   = ":COMBAT:RESOLVE:"
)

// RegisterHandlers registers the combat command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Submissions - buffered, resolution runs on the handler goroutine
	d.Register(CmdOrders, m.handleOrders, dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(CmdTargetOne, m.handleTargetOne, dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(CmdTargetTwo, m.handleTargetTwo, dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(CmdBlanket, m.handleBlanket, dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())

	// Queries - sync
	d.Register(CmdStatus, m.handleStatus, dispatcher.Logged())
	d.Register(CmdResolve, m.handleResolve, dispatcher.Logged())
}

func (m *Manager) lookup(e dispatcher.Event) (*running, error) {
	r, ok := m.get(e.CombatID)
	if !ok {
		return nil, fmt.Errorf("combat %d: %w", e.CombatID, ErrUnknownCombat)
	}
	return r, nil
}

func payload[T any](e dispatcher.Event) (T, error) {
	v, ok := e.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: unexpected payload %T", e.Command, e.Payload)
	}
	return v, nil
}

func (m *Manager) handleOrders(e dispatcher.Event) (any, error) {
	r, err := m.lookup(e)
	if err != nil {
		return nil, err
	}
	orders, err := payload[*combat.CombatOrders](e)
	if err != nil {
		return nil, err
	}
	if err := r.engine.SubmitOrders(orders); err != nil {
		return nil, fmt.Errorf("failed to submit orders: %w", err)
	}
	return nil, m.advance(context.Background(), r)
}

func (m *Manager) handleTargetOne(e dispatcher.Event) (any, error) {
	r, err := m.lookup(e)
	if err != nil {
		return nil, err
	}
	targets, err := payload[*combat.CombatTargetPrimaries](e)
	if err != nil {
		return nil, err
	}
	if err := r.engine.SubmitTargetOnes(targets); err != nil {
		return nil, fmt.Errorf("failed to submit primary targets: %w", err)
	}
	return nil, m.advance(context.Background(), r)
}

func (m *Manager) handleTargetTwo(e dispatcher.Event) (any, error) {
	r, err := m.lookup(e)
	if err != nil {
		return nil, err
	}
	targets, err := payload[*combat.CombatTargetSecondaries](e)
	if err != nil {
		return nil, err
	}
	if err := r.engine.SubmitTargetTwos(targets); err != nil {
		return nil, fmt.Errorf("failed to submit secondary targets: %w", err)
	}
	return nil, m.advance(context.Background(), r)
}

// handleBlanket submits orders and targets for every unit of e.Faction
// from a single stance.
func (m *Manager) handleBlanket(e dispatcher.Event) (any, error) {
	r, err := m.lookup(e)
	if err != nil {
		return nil, err
	}
	stance, err := payload[combat.Stance](e)
	if err != nil {
		return nil, err
	}
	var assets *combat.CombatAssets
	for _, a := range r.engine.Assets() {
		if a.OwnerID() == combat.FactionID(e.Faction) {
			assets = a
		}
	}
	if assets == nil {
		return nil, fmt.Errorf("faction %d: %w", e.Faction, combat.ErrUnknownFaction)
	}
	if err := m.submitBlanket(r.engine, assets, stance); err != nil {
		return nil, fmt.Errorf("failed to submit blanket orders: %w", err)
	}
	return nil, m.advance(context.Background(), r)
}

// handleStatus returns the latest CombatUpdate of e.Faction.
func (m *Manager) handleStatus(e dispatcher.Event) (any, error) {
	u, ok := m.deps.Updates.Get(e.CombatID, combat.FactionID(e.Faction))
	if !ok {
		return nil, fmt.Errorf("no update for faction %d in combat %d: %w", e.Faction, e.CombatID, ErrUnknownCombat)
	}
	return u, nil
}

// handleResolve retries resolution, e.g. after a faction was autopiloted
// late. It returns the factions still outstanding.
func (m *Manager) handleResolve(e dispatcher.Event) (any, error) {
	r, err := m.lookup(e)
	if err != nil {
		return nil, err
	}
	if err := m.advance(context.Background(), r); err != nil {
		return nil, err
	}
	return r.engine.Outstanding(), nil
}

// Autopilot hands a faction over to blanket orders from the next
// submission on.
func (m *Manager) Autopilot(combatID int, faction combat.FactionID, stance combat.Stance) error {
	r, ok := m.get(combatID)
	if !ok {
		return fmt.Errorf("combat %d: %w", combatID, ErrUnknownCombat)
	}
	r.resolveMu.Lock()
	if r.autopilot == nil {
		r.autopilot = make(map[combat.FactionID]combat.Stance)
	}
	r.autopilot[faction] = stance
	r.resolveMu.Unlock()
	return nil
}
