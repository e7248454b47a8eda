package combat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/supremacy-go/combat/pkg/core"
)

// Resolver carries out the fighting of one round. Implementations mutate the
// units and assets of the round; the engine does the bookkeeping around it.
type Resolver interface {
	Resolve(ctx context.Context, r *Round) error
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, r *Round) error

func (f ResolverFunc) Resolve(ctx context.Context, r *Round) error { return f(ctx, r) }

// Round is everything a resolver may consult or change while resolving.
type Round struct {
	CombatID  int
	Number    int
	Location  core.Location
	Assets    []*CombatAssets
	Strengths map[FactionID]FactionStrength
	World     World
	Tuning    Tuning
	Random    Random
	Logger    *slog.Logger

	orders      map[FactionID]*CombatOrders
	primaries   map[FactionID]*CombatTargetPrimaries
	secondaries map[FactionID]*CombatTargetSecondaries
	lastTarget  map[FactionID]*CombatUnit
	sitreps     []core.SitRep
	destroyed   int
}

// AssetsOf returns the assets of a faction.
func (r *Round) AssetsOf(f FactionID) (*CombatAssets, bool) {
	for _, a := range r.Assets {
		if a.OwnerID() == f {
			return a, true
		}
	}
	return nil, false
}

// Order returns the stance of a unit. Units that joined without an order
// engage.
func (r *Round) Order(u *CombatUnit) Stance {
	o, ok := r.orders[u.OwnerID()]
	if !ok {
		return Engage
	}
	s, err := o.Order(u)
	if err != nil {
		r.Logger.Debug("defaulting order", "unit", u.SourceID(), "error", err)
		return Engage
	}
	return s
}

// TargetOne returns the primary target of a unit.
func (r *Round) TargetOne(u *CombatUnit) TargetSelection {
	if t, ok := r.primaries[u.OwnerID()]; ok {
		return t.Target(u)
	}
	return HoldFire()
}

// TargetTwo returns the secondary target of a unit.
func (r *Round) TargetTwo(u *CombatUnit) TargetSelection {
	if t, ok := r.secondaries[u.OwnerID()]; ok {
		return t.Target(u)
	}
	return HoldFire()
}

// Primaries returns the primary targets submitted by a faction.
func (r *Round) Primaries(f FactionID) (*CombatTargetPrimaries, bool) {
	t, ok := r.primaries[f]
	return t, ok
}

// Secondaries returns the secondary targets submitted by a faction.
func (r *Round) Secondaries(f FactionID) (*CombatTargetSecondaries, bool) {
	t, ok := r.secondaries[f]
	return t, ok
}

// Report adds a situation report for the owner of u.
func (r *Round) Report(kind core.SitRepKind, u *CombatUnit, format string, args ...any) {
	r.sitreps = append(r.sitreps, core.SitRep{
		CombatID:  r.CombatID,
		Round:     r.Number,
		FactionID: int(u.OwnerID()),
		ObjectID:  int(u.SourceID()),
		Kind:      kind,
		Text:      fmt.Sprintf(format, args...),
		Location:  r.Location,
	})
	if kind == core.SitRepDestroyed {
		r.destroyed++
	}
}

// SitReps returns the reports collected so far.
func (r *Round) SitReps() []core.SitRep { return r.sitreps }
