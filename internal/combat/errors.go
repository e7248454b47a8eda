package combat

import "errors"

var (
	// ErrNilAssets is returned when an engine is created without participants
	ErrNilAssets = errors.New("combat assets must not be nil or empty")
	// ErrNilCallback is returned when an engine is created without its callbacks
	ErrNilCallback = errors.New("combat callbacks must not be nil")
	// ErrNilWorld is returned when an engine is created without a world
	ErrNilWorld = errors.New("world must not be nil")

	ErrNotReady        = errors.New("not all factions have submitted orders and targets")
	ErrCombatOver      = errors.New("combat is over")
	ErrUnknownFaction  = errors.New("faction is not part of this combat")
	ErrWrongCombat     = errors.New("submission belongs to another combat")
	ErrMissingOrder    = errors.New("no order for unit")
	ErrIncompleteOrder = errors.New("orders do not cover every unit")
)
