package tuner

// Worker limits.
const (
	maxWorkers = 64

	// Traversal is metadata-bound and gains from parallelism even on small
	// machines.
	minWalkWorkers = 4

	minHashWorkers = 2

	// Below this much available memory hashing is limited to one worker
	// per core.
	lowMemory = 1 << 30
)

// OptimalConfig holds the worker counts derived from system resources.
type OptimalConfig struct {
	// WalkWorkers is the number of directory traversal goroutines per tree.
	WalkWorkers int

	// HashWorkers bounds concurrent file hashing during comparison.
	HashWorkers int
}

// Calculate returns worker counts for resources.
//
//   - WalkWorkers: max(NumCPU, 4)
//   - HashWorkers: NumCPU * 2, or NumCPU when available memory is low
//
// Both are capped at 64.
func Calculate(resources SystemResources) OptimalConfig {
	cores := max(resources.CPUCores, 1)

	walk := max(cores, minWalkWorkers)

	hash := cores * 2
	if resources.AvailableRAM > 0 && resources.AvailableRAM < lowMemory {
		hash = cores
	}
	hash = max(hash, minHashWorkers)

	return OptimalConfig{
		WalkWorkers: min(walk, maxWorkers),
		HashWorkers: min(hash, maxWorkers),
	}
}

// CalculateWithOverrides applies explicit worker counts on top of Calculate.
// Values of zero or less keep the calculated count.
func CalculateWithOverrides(resources SystemResources, walk, hash int) OptimalConfig {
	config := Calculate(resources)

	if walk > 0 {
		config.WalkWorkers = min(walk, maxWorkers)
	}
	if hash > 0 {
		config.HashWorkers = min(hash, maxWorkers)
	}

	return config
}
