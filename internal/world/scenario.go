// internal/world/scenario.go
package world

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/supremacy-go/combat/internal/combat"
	"github.com/supremacy-go/combat/pkg/core"
)

var (
	ErrUnknownDesign  = errors.New("unknown design")
	ErrUnknownFaction = errors.New("unknown faction")
	ErrDuplicateID    = errors.New("duplicate id")
)

// Scenario is the YAML description of a galaxy.
type Scenario struct {
	Name      string         `yaml:"name"`
	Tag       string         `yaml:"tag"`
	Turn      int            `yaml:"turn"`
	Width     int            `yaml:"width"`
	Height    int            `yaml:"height"`
	Factions  []FactionSpec  `yaml:"factions"`
	Relations []RelationSpec `yaml:"relations"`
	Designs   []DesignSpec   `yaml:"designs"`
	Colonies  []ColonySpec   `yaml:"colonies"`
	Ships     []ShipSpec     `yaml:"ships"`
	Orders    map[int]string `yaml:"orders"`
}

type FactionSpec struct {
	ID                  int            `yaml:"id"`
	Name                string         `yaml:"name"`
	ShortName           string         `yaml:"shortName"`
	Human               bool           `yaml:"human"`
	Assimilates         bool           `yaml:"assimilates"`
	Traits              []combat.Trait `yaml:"traits"`
	Home                core.Location  `yaml:"home"`
	CombatEffectiveness float64        `yaml:"combatEffectiveness"`
	WeaponsTech         int            `yaml:"weaponsTech"`
}

type RelationSpec struct {
	Between [2]int `yaml:"between"`
	Status  string `yaml:"status"`
}

// DesignSpec wraps a unit design with the names YAML can't map directly.
type DesignSpec struct {
	combat.UnitDesign `yaml:",inline"`
	Type string `yaml:"type"`
}

type ColonySpec struct {
	Name          string        `yaml:"name"`
	Owner         int           `yaml:"owner"`
	Location      core.Location `yaml:"location"`
	GroundCombat  int           `yaml:"groundCombat"`
	GroundDefense int           `yaml:"groundDefense"`
}

// ShipSpec places a ship. Zero hull or shield means full strength.
type ShipSpec struct {
	ID          int           `yaml:"id"`
	Owner       int           `yaml:"owner"`
	Name        string        `yaml:"name"`
	Design      string        `yaml:"design"`
	Rank        string        `yaml:"rank"`
	Hero        bool          `yaml:"hero"`
	Location    core.Location `yaml:"location"`
	Hull        int           `yaml:"hull"`
	Shield      int           `yaml:"shield"`
	Cloaked     bool          `yaml:"cloaked"`
	Camouflaged bool          `yaml:"camouflaged"`
}

// LoadScenario reads a YAML scenario file and builds its galaxy.
func LoadScenario(path string) (*Scenario, *Galaxy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	g, err := s.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, g, nil
}

// Build creates the galaxy the scenario describes.
func (s *Scenario) Build() (*Galaxy, error) {
	width, height := s.Width, s.Height
	if width <= 0 {
		width = 16
	}
	if height <= 0 {
		height = 16
	}
	g := NewGalaxy(width, height, s.Turn)

	for _, f := range s.Factions {
		if _, ok := g.Faction(combat.FactionID(f.ID)); ok {
			return nil, fmt.Errorf("faction %d: %w", f.ID, ErrDuplicateID)
		}
		effectiveness := f.CombatEffectiveness
		if effectiveness == 0 {
			effectiveness = 1
		}
		g.AddFaction(combat.Faction{
			ID:                  combat.FactionID(f.ID),
			Name:                f.Name,
			ShortName:           f.ShortName,
			IsHuman:             f.Human,
			Assimilates:         f.Assimilates,
			Traits:              f.Traits,
			Home:                f.Home,
			CombatEffectiveness: effectiveness,
		}, f.WeaponsTech)
	}

	for _, r := range s.Relations {
		status, err := combat.ParseDiplomaticStatus(r.Status)
		if err != nil {
			return nil, fmt.Errorf("relation %v: %w", r.Between, err)
		}
		for _, id := range r.Between {
			if _, ok := g.Faction(combat.FactionID(id)); !ok {
				return nil, fmt.Errorf("relation %v: faction %d: %w", r.Between, id, ErrUnknownFaction)
			}
		}
		g.SetStatus(combat.FactionID(r.Between[0]), combat.FactionID(r.Between[1]), status)
	}

	designs := make(map[string]combat.UnitDesign, len(s.Designs))
	for _, d := range s.Designs {
		design := d.UnitDesign
		design.ShipType = combat.ParseShipType(d.Type)
		designs[design.Name] = design
	}

	for _, c := range s.Colonies {
		if _, ok := g.Faction(combat.FactionID(c.Owner)); !ok {
			return nil, fmt.Errorf("colony %s: faction %d: %w", c.Name, c.Owner, ErrUnknownFaction)
		}
		g.AddColony(combat.Colony{
			Name:          c.Name,
			Owner:         combat.FactionID(c.Owner),
			Location:      c.Location,
			GroundCombat:  c.GroundCombat,
			GroundDefense: c.GroundDefense,
		})
	}

	for _, sh := range s.Ships {
		design, ok := designs[sh.Design]
		if !ok {
			return nil, fmt.Errorf("ship %d: %q: %w", sh.ID, sh.Design, ErrUnknownDesign)
		}
		if _, ok := g.Faction(combat.FactionID(sh.Owner)); !ok {
			return nil, fmt.Errorf("ship %d: faction %d: %w", sh.ID, sh.Owner, ErrUnknownFaction)
		}
		if _, ok := g.Ship(combat.ObjectID(sh.ID)); ok {
			return nil, fmt.Errorf("ship %d: %w", sh.ID, ErrDuplicateID)
		}
		hull, shield := sh.Hull, sh.Shield
		if hull <= 0 {
			hull = design.HullStrength
		}
		if shield <= 0 {
			shield = design.ShieldStrength
		}
		g.AddShip(&Ship{
			ID:          combat.ObjectID(sh.ID),
			Owner:       combat.FactionID(sh.Owner),
			Name:        sh.Name,
			Design:      cloneDesign(design),
			Rank:        combat.ParseExperienceRank(sh.Rank),
			Hero:        sh.Hero,
			Hull:        hull,
			Shield:      shield,
			Cloaked:     sh.Cloaked,
			Camouflaged: sh.Camouflaged,
			Location:    sh.Location,
		})
	}
	return g, nil
}

// StanceFor returns the blanket stance configured for a faction, Engage
// when none is set.
func (s *Scenario) StanceFor(id combat.FactionID) (combat.Stance, error) {
	name, ok := s.Orders[int(id)]
	if !ok || name == "" {
		return combat.Engage, nil
	}
	return combat.ParseStance(name)
}

func cloneDesign(d combat.UnitDesign) combat.UnitDesign {
	d.Beams = append([]combat.WeaponMount(nil), d.Beams...)
	d.Torpedoes = append([]combat.WeaponMount(nil), d.Torpedoes...)
	return d
}
