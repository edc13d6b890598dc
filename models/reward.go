package models

// Reward is the fixed set of currencies a ledger entry can grant. Zero value grants nothing.
type Reward struct {
	XP       int `json:"xp"`
	Coins    int `json:"coins"`
	Gems     int `json:"gems"`
	Crystals int `json:"crystals"`
}

// IsZero reports whether the reward grants nothing.
func (r Reward) IsZero() bool {
	return r.XP == 0 && r.Coins == 0 && r.Gems == 0 && r.Crystals == 0
}

// Add returns the field-wise sum of two rewards.
func (r Reward) Add(o Reward) Reward {
	return Reward{
		XP:       r.XP + o.XP,
		Coins:    r.Coins + o.Coins,
		Gems:     r.Gems + o.Gems,
		Crystals: r.Crystals + o.Crystals,
	}
}
