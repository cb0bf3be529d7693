package achievement

import "time"

// Achievement is an unlockable badge kept in the user's aggregate.
type Achievement struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Unlocked     bool       `json:"unlocked"`
	Progress     float64    `json:"progress"`
	Rarity       string     `json:"rarity"`
	UnlockedDate *time.Time `json:"unlockedDate,omitempty"`
	Target       int        `json:"target,omitempty"`
	Current      int        `json:"current,omitempty"`
}
