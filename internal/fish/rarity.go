package fish

import "strings"

type RarityTier int

const (
	TierCommon RarityTier = iota
	TierUncommon
	TierRare
	TierEpic
	TierLegendary
)

func (t RarityTier) String() string {
	switch t {
	case TierLegendary:
		return "legendary"
	case TierEpic:
		return "epic"
	case TierRare:
		return "rare"
	case TierUncommon:
		return "uncommon"
	default:
		return "common"
	}
}

func ParseRarity(s string) (RarityTier, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "common":
		return TierCommon, true
	case "uncommon":
		return TierUncommon, true
	case "rare":
		return TierRare, true
	case "epic":
		return TierEpic, true
	case "legendary":
		return TierLegendary, true
	}
	return TierCommon, false
}

// Weight is the relative chance of a species of this tier being picked.
func (t RarityTier) Weight() int {
	switch t {
	case TierLegendary:
		return 1
	case TierEpic:
		return 4
	case TierRare:
		return 15
	case TierUncommon:
		return 30
	default:
		return 50
	}
}

func ColorForTier(t RarityTier) int {
	switch t {
	case TierLegendary:
		return 0xF1C40F // gold
	case TierEpic:
		return 0x9B59B6 // purple
	case TierRare:
		return 0x3498DB // blue
	case TierUncommon:
		return 0x2ECC71 // green
	default:
		return 0x95A5A6 // gray
	}
}
