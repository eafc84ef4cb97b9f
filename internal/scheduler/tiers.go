package scheduler

import "time"

// tierConfig selects the batch-sizing policy for the current universe size.
// Larger universes get larger batches, longer intervals and more in-flight
// fetches, trading per-symbol freshness for throughput stability.
type tierConfig struct {
	Name          string
	BatchSize     int
	Interval      time.Duration
	MaxConcurrent int
}

const (
	smallUniverseMax  = 50
	mediumUniverseMax = 200
)

var (
	tierSmall  = tierConfig{Name: "small", BatchSize: 5, Interval: 1 * time.Second, MaxConcurrent: 2}
	tierMedium = tierConfig{Name: "medium", BatchSize: 10, Interval: 2 * time.Second, MaxConcurrent: 4}
	tierLarge  = tierConfig{Name: "large", BatchSize: 20, Interval: 3 * time.Second, MaxConcurrent: 6}
)

func tierFor(universeSize int) tierConfig {
	switch {
	case universeSize <= smallUniverseMax:
		return tierSmall
	case universeSize <= mediumUniverseMax:
		return tierMedium
	default:
		return tierLarge
	}
}
