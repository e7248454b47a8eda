package combat

import "strings"

// UnitDesign is the static blueprint of a ship or station.
type UnitDesign struct {
	Name               string        `yaml:"name"`
	ShipType           ShipType      `yaml:"-"`
	HullStrength       int           `yaml:"hull"`
	ShieldStrength     int           `yaml:"shield"`
	ShieldRecharge     float64       `yaml:"shieldRecharge"`
	Maneuverability    int           `yaml:"maneuverability"`
	ScanStrength       int           `yaml:"scan"`
	CloakStrength      int           `yaml:"cloak"`
	CamouflageStrength int           `yaml:"camouflage"`
	Beams              []WeaponMount `yaml:"beams"`
	Torpedoes          []WeaponMount `yaml:"torpedoes"`
	IsStation          bool          `yaml:"station"`
}

// IsCombatant reports whether the design carries any weapon.
func (d UnitDesign) IsCombatant() bool {
	for _, b := range d.Beams {
		if b.Damage > 0 {
			return true
		}
	}
	for _, t := range d.Torpedoes {
		if t.Damage > 0 {
			return true
		}
	}
	return false
}

// UnitSource is the live simulation object a CombatUnit is taken from.
type UnitSource struct {
	ObjectID      ObjectID
	Owner         FactionID
	Name          string
	Design        UnitDesign
	Rank          ExperienceRank
	Hero          bool
	Hull          int
	Shield        int
	IsCloaked     bool
	IsCamouflaged bool
}

// CombatUnit is a combat-time snapshot of a ship or station, detached from the
// simulation object it was taken from.
type CombatUnit struct {
	sourceID ObjectID
	ownerID  FactionID
	name     string
	design   UnitDesign
	rank     ExperienceRank
	hero     bool

	hull   Meter
	shield Meter

	isCloaked          bool
	isCamouflaged      bool
	cloakStrength      int
	camouflageStrength int
	scanStrength       int
	isAssimilated      bool
	assimilatedBy      FactionID

	weapons []*CombatWeapon
}

// NewCombatUnit snapshots a source. Units whose name contains "!" are heroes.
func NewCombatUnit(src UnitSource) *CombatUnit {
	u := &CombatUnit{
		sourceID:           src.ObjectID,
		ownerID:            src.Owner,
		name:               src.Name,
		design:             src.Design,
		rank:               src.Rank,
		hero:               src.Hero || strings.Contains(src.Name, "!"),
		hull:               NewMeter(src.Design.HullStrength),
		shield:             NewMeter(src.Design.ShieldStrength),
		isCloaked:          src.IsCloaked,
		isCamouflaged:      src.IsCamouflaged,
		cloakStrength:      src.Design.CloakStrength,
		camouflageStrength: src.Design.CamouflageStrength,
		scanStrength:       src.Design.ScanStrength,
		weapons:            CreateWeapons(src.Design),
	}
	u.hull.SetCurrent(src.Hull)
	u.shield.SetCurrent(src.Shield)
	u.hull.SaveLast()
	u.shield.SaveLast()
	return u
}

func (u *CombatUnit) SourceID() ObjectID       { return u.sourceID }
func (u *CombatUnit) OwnerID() FactionID       { return u.ownerID }
func (u *CombatUnit) Name() string             { return u.name }
func (u *CombatUnit) Design() UnitDesign       { return u.design }
func (u *CombatUnit) ShipType() ShipType       { return u.design.ShipType }
func (u *CombatUnit) Rank() ExperienceRank     { return u.rank }
func (u *CombatUnit) IsHero() bool             { return u.hero }
func (u *CombatUnit) IsStation() bool          { return u.design.IsStation }
func (u *CombatUnit) IsMobile() bool           { return !u.design.IsStation }
func (u *CombatUnit) Hull() *Meter             { return &u.hull }
func (u *CombatUnit) Shield() *Meter           { return &u.shield }
func (u *CombatUnit) HullStrength() int        { return u.hull.Current() }
func (u *CombatUnit) ShieldStrength() int      { return u.shield.Current() }
func (u *CombatUnit) IsCloaked() bool          { return u.isCloaked }
func (u *CombatUnit) IsCamouflaged() bool      { return u.isCamouflaged }
func (u *CombatUnit) CloakStrength() int       { return u.cloakStrength }
func (u *CombatUnit) CamouflageStrength() int  { return u.camouflageStrength }
func (u *CombatUnit) ScanStrength() int        { return u.scanStrength }
func (u *CombatUnit) IsAssimilated() bool      { return u.isAssimilated }
func (u *CombatUnit) Weapons() []*CombatWeapon { return u.weapons }

// Maneuverability is zero for immobile units.
func (u *CombatUnit) Maneuverability() int {
	if !u.IsMobile() {
		return 0
	}
	return u.design.Maneuverability
}

// IsCombatant reports whether the unit carries weapons.
func (u *CombatUnit) IsCombatant() bool {
	return u.design.IsCombatant()
}

// IsDestroyed reports whether the hull is gone.
func (u *CombatUnit) IsDestroyed() bool {
	return u.hull.IsMinimized()
}

// Firepower is the damage all charged weapons would deal now.
func (u *CombatUnit) Firepower() int {
	total := 0
	for _, w := range u.weapons {
		total += w.Damage()
	}
	return total
}

// MaxFirepower is the firepower of a fully charged unit.
func (u *CombatUnit) MaxFirepower() int {
	total := 0
	for _, w := range u.weapons {
		total += w.MaxDamage().Maximum() * w.Count()
	}
	return total
}

// TakeDamage applies incoming damage to shields first and passes the overflow
// to the hull.
func (u *CombatUnit) TakeDamage(damage int) {
	if damage <= 0 {
		return
	}
	remaining := max(0, damage-u.shield.Current())
	u.shield.AdjustCurrent(-damage)
	u.hull.AdjustCurrent(-remaining)
}

// Absorbable is how much damage the unit can take before it is destroyed.
func (u *CombatUnit) Absorbable() int {
	return u.shield.Current() + u.hull.Current()
}

// DischargeAll fires every weapon and returns the damage released.
func (u *CombatUnit) DischargeAll() int {
	total := 0
	for _, w := range u.weapons {
		if w.CanFire() {
			total += w.Damage()
			w.Discharge()
		}
	}
	return total
}

// Discharge fires weapons until at least amount damage has been released and
// returns what was actually released.
func (u *CombatUnit) Discharge(amount int) int {
	released := 0
	for _, w := range u.weapons {
		if released >= amount {
			break
		}
		if w.CanFire() {
			released += w.Damage()
			w.Discharge()
		}
	}
	return released
}

// RechargeWeapons recharges every weapon.
func (u *CombatUnit) RechargeWeapons() {
	for _, w := range u.weapons {
		w.Recharge()
	}
}

// RegenerateShields restores shields by the design's recharge fraction unless
// the hull is gone.
func (u *CombatUnit) RegenerateShields() {
	if u.hull.IsMinimized() {
		return
	}
	regen := int(float64(u.shield.Maximum()) * u.design.ShieldRecharge)
	u.shield.AdjustCurrent(regen)
}

// Decloak drops the cloak.
func (u *CombatUnit) Decloak() {
	u.isCloaked = false
}

// Decamouflage drops the camouflage.
func (u *CombatUnit) Decamouflage() {
	u.isCamouflaged = false
}

func (u *CombatUnit) markAssimilated(by FactionID) {
	u.isAssimilated = true
	u.assimilatedBy = by
}

// AssimilatedBy returns the faction that took the unit over.
func (u *CombatUnit) AssimilatedBy() (FactionID, bool) {
	return u.assimilatedBy, u.isAssimilated
}

// Equal compares units by source object.
func (u *CombatUnit) Equal(other *CombatUnit) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.sourceID == other.sourceID
}
