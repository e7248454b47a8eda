package combat

import (
	"fmt"
	"strings"
)

// ShipType is the hull class of a ship.
type ShipType int

const (
	ShipUnknown ShipType = iota
	ShipScout
	ShipFrigate
	ShipDestroyer
	ShipCruiser
	ShipStrikeCruiser
	ShipHeavyCruiser
	ShipCommand
	ShipTransport
	ShipColony
	ShipConstruction
	ShipMedical
	ShipSpy
	ShipDiplomatic
	ShipScience
)

var shipTypeNames = map[ShipType]string{
	ShipUnknown:       "Unknown",
	ShipScout:         "Scout",
	ShipFrigate:       "Frigate",
	ShipDestroyer:     "Destroyer",
	ShipCruiser:       "Cruiser",
	ShipStrikeCruiser: "StrikeCruiser",
	ShipHeavyCruiser:  "HeavyCruiser",
	ShipCommand:       "Command",
	ShipTransport:     "Transport",
	ShipColony:        "Colony",
	ShipConstruction:  "Construction",
	ShipMedical:       "Medical",
	ShipSpy:           "Spy",
	ShipDiplomatic:    "Diplomatic",
	ShipScience:       "Science",
}

func (t ShipType) String() string {
	if s, ok := shipTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ShipType(%d)", int(t))
}

// ParseShipType is case-insensitive and returns ShipUnknown for unknown names.
func ParseShipType(s string) ShipType {
	for t, name := range shipTypeNames {
		if strings.EqualFold(name, s) {
			return t
		}
	}
	return ShipUnknown
}

// IsEscort reports whether the class is a light escort hull.
func (t ShipType) IsEscort() bool {
	return t == ShipScout || t == ShipFrigate || t == ShipDestroyer
}

// ExperienceRank is a crew's veterancy.
type ExperienceRank int

const (
	RankUnknown ExperienceRank = iota
	RankGreen
	RankRegular
	RankVeteran
	RankElite
	RankLegendary
)

var rankNames = []string{"Unknown", "Green", "Regular", "Veteran", "Elite", "Legendary"}

func (r ExperienceRank) String() string {
	if r < 0 || int(r) >= len(rankNames) {
		return fmt.Sprintf("ExperienceRank(%d)", int(r))
	}
	return rankNames[r]
}

// ParseExperienceRank is case-insensitive and returns RankUnknown for unknown names.
func ParseExperienceRank(s string) ExperienceRank {
	for i, name := range rankNames {
		if strings.EqualFold(name, s) {
			return ExperienceRank(i)
		}
	}
	return RankUnknown
}

// DeliveryType is how a weapon delivers its damage.
type DeliveryType int

const (
	DeliveryBeam DeliveryType = iota
	DeliveryTorpedo
)

func (d DeliveryType) String() string {
	if d == DeliveryTorpedo {
		return "Torpedo"
	}
	return "Beam"
}
