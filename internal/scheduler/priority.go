package scheduler

import "github.com/mkorobovv/trade-mirror/internal/common/domain"

const (
	// Symbols scoring above this refresh at twice the base rate.
	highPriorityThreshold = 80

	topTierBonus         = 20
	activitySectorBonus  = 10
	maxSimulationDrift   = 0.02
	latencyWindowSamples = 100
)

// Sectors that historically dominate trading activity; their symbols get a
// scheduling bonus.
var highActivitySectors = map[string]struct{}{
	"Banking": {},
	"IT":      {},
	"Energy":  {},
	"Finance": {},
}

// priorityScore computes the scheduling hint for one instrument: a base
// score inversely proportional to index rank, a bonus for top-tier market
// cap, and a bonus for high-activity sectors. Used only for ordering, never
// for correctness.
func priorityScore(rank, total int, instrument domain.Instrument) int {
	if total <= 0 {
		total = 1
	}

	base := 70 - 70*rank/total

	score := base
	if instrument.Tier == 1 {
		score += topTierBonus
	}
	if _, ok := highActivitySectors[instrument.Sector]; ok {
		score += activitySectorBonus
	}

	return score
}
