package models

import "fmt"

type TroopType string

const (
	TroopGround  TroopType = "Ground"
	TroopRanged  TroopType = "Ranged"
	TroopMounted TroopType = "Mounted"
	TroopSiege   TroopType = "Siege"
)

var TroopTypes = []TroopType{TroopGround, TroopRanged, TroopMounted, TroopSiege}

const (
	MinTier = 1
	MaxTier = 17
)

// UserProfile is the numeric profile the player fills in once and that
// every analysis call receives as an immutable input.
type UserProfile struct {
	HighestTiers    map[TroopType]int `json:"highest_tiers"`
	MarchSize       int               `json:"march_size"`
	EmbassyCapacity int               `json:"embassy_capacity"`
	IsSetup         bool              `json:"is_setup"`
}

func (p UserProfile) Validate() error {
	for _, tt := range TroopTypes {
		tier, ok := p.HighestTiers[tt]
		if !ok {
			return fmt.Errorf("profile is missing a tier for %s troops", tt)
		}
		if tier < MinTier || tier > MaxTier {
			return fmt.Errorf("%s tier %d is out of range [%d,%d]", tt, tier, MinTier, MaxTier)
		}
	}
	if p.MarchSize < 0 {
		return fmt.Errorf("march size must not be negative")
	}
	if p.EmbassyCapacity < 0 {
		return fmt.Errorf("embassy capacity must not be negative")
	}
	return nil
}
