package combat

// WeaponMount describes one weapon bank on a design.
type WeaponMount struct {
	Damage       int          `yaml:"damage"`
	Count        int          `yaml:"count"`
	Delivery     DeliveryType `yaml:"-"`
	RechargeRate float64      `yaml:"rechargeRate"`
}

// CombatWeapon is the charge state of a single weapon bank during combat.
type CombatWeapon struct {
	maxDamage    Meter
	count        int
	delivery     DeliveryType
	rechargeRate float64
}

// NewCombatWeapon creates a charged weapon from its mount.
func NewCombatWeapon(m WeaponMount) *CombatWeapon {
	count := m.Count
	if count <= 0 {
		count = 1
	}
	return &CombatWeapon{
		maxDamage:    NewMeter(m.Damage),
		count:        count,
		delivery:     m.Delivery,
		rechargeRate: m.RechargeRate,
	}
}

// CreateWeapons builds the weapons of a design: beams first, then torpedoes.
func CreateWeapons(d UnitDesign) []*CombatWeapon {
	weapons := make([]*CombatWeapon, 0, len(d.Beams)+len(d.Torpedoes))
	for _, b := range d.Beams {
		b.Delivery = DeliveryBeam
		weapons = append(weapons, NewCombatWeapon(b))
	}
	for _, t := range d.Torpedoes {
		t.Delivery = DeliveryTorpedo
		weapons = append(weapons, NewCombatWeapon(t))
	}
	return weapons
}

func (w *CombatWeapon) MaxDamage() *Meter          { return &w.maxDamage }
func (w *CombatWeapon) Count() int                 { return w.count }
func (w *CombatWeapon) DeliveryType() DeliveryType { return w.delivery }
func (w *CombatWeapon) RechargeRate() float64      { return w.rechargeRate }

// CanFire reports whether the weapon holds any charge.
func (w *CombatWeapon) CanFire() bool {
	return !w.maxDamage.IsMinimized()
}

// Damage is the damage the weapon would deal if fired now.
func (w *CombatWeapon) Damage() int {
	return w.maxDamage.Current() * w.count
}

// Discharge fires the weapon.
func (w *CombatWeapon) Discharge() {
	w.maxDamage.SaveLast()
	w.maxDamage.SetCurrent(0)
}

// Recharge restores charge for the next round. A weapon that fired from a full
// charge only regains its recharge fraction; otherwise it is fully restored.
func (w *CombatWeapon) Recharge() {
	if w.maxDamage.IsMaximized() {
		return
	}
	maximum := w.maxDamage.Maximum()
	if w.maxDamage.LastValue() == maximum {
		w.maxDamage.SetCurrent(int(float64(maximum) * w.rechargeRate))
	} else {
		w.maxDamage.Reset()
	}
	w.maxDamage.SaveLast()
}
